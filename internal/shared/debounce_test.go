package shared

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDebouncerCoalescesBursts(t *testing.T) {
	var mu sync.Mutex
	var calls []string
	d := NewDebouncer(30*time.Millisecond, func(value string) {
		mu.Lock()
		calls = append(calls, value)
		mu.Unlock()
	})
	defer d.Stop()

	d.Trigger("a")
	d.Trigger("b")
	d.Trigger("c")

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(calls) == 1
	}, time.Second, 5*time.Millisecond)

	mu.Lock()
	require.Equal(t, []string{"c"}, calls)
	mu.Unlock()
}

func TestDebouncerStopCancelsPending(t *testing.T) {
	var mu sync.Mutex
	fired := false
	d := NewDebouncer(20*time.Millisecond, func(string) {
		mu.Lock()
		fired = true
		mu.Unlock()
	})

	d.Trigger("x")
	d.Stop()

	time.Sleep(60 * time.Millisecond)
	mu.Lock()
	require.False(t, fired)
	mu.Unlock()
}

func TestDebouncerFiresAgainAfterQuiet(t *testing.T) {
	var mu sync.Mutex
	var calls []string
	d := NewDebouncer(15*time.Millisecond, func(value string) {
		mu.Lock()
		calls = append(calls, value)
		mu.Unlock()
	})
	defer d.Stop()

	d.Trigger("first")
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(calls) == 1
	}, time.Second, 5*time.Millisecond)

	d.Trigger("second")
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(calls) == 2
	}, time.Second, 5*time.Millisecond)

	mu.Lock()
	require.Equal(t, []string{"first", "second"}, calls)
	mu.Unlock()
}
