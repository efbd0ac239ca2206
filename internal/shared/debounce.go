package shared

import (
	"sync"
	"time"
)

// Debouncer coalesces bursts of triggers into a single trailing invocation
// carrying the last value seen. Used to collapse stock-change storms into
// one low-stock scan instead of one per mutation.
type Debouncer struct {
	mu    sync.Mutex
	delay time.Duration
	timer *time.Timer
	fn    func(value string)
	last  string
}

// NewDebouncer builds a Debouncer that waits delay after the last trigger
// before invoking fn.
func NewDebouncer(delay time.Duration, fn func(value string)) *Debouncer {
	return &Debouncer{delay: delay, fn: fn}
}

// Trigger schedules an invocation, resetting the timer if one is pending.
func (d *Debouncer) Trigger(value string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.last = value
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, d.fire)
}

// Stop cancels any pending invocation.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

func (d *Debouncer) fire() {
	d.mu.Lock()
	value := d.last
	d.timer = nil
	d.mu.Unlock()
	d.fn(value)
}
