package shared

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewPagination(t *testing.T) {
	cases := []struct {
		name       string
		page       int
		pageSize   int
		totalCount int
		wantPage   int
		wantSize   int
		wantPages  int
	}{
		{"exact fit", 1, 20, 40, 1, 20, 2},
		{"partial last page", 2, 20, 41, 2, 20, 3},
		{"empty result", 1, 20, 0, 1, 20, 0},
		{"zero page size falls back", 1, 0, 10, 1, DefaultPageSize, 1},
		{"zero page falls back", 0, 10, 5, 1, 10, 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := NewPagination(tc.page, tc.pageSize, tc.totalCount)
			require.Equal(t, tc.wantPage, p.Page)
			require.Equal(t, tc.wantSize, p.PageSize)
			require.Equal(t, tc.totalCount, p.TotalCount)
			require.Equal(t, tc.wantPages, p.TotalPages)
		})
	}
}

func TestPaginationOffset(t *testing.T) {
	require.Equal(t, 0, NewPagination(1, 20, 100).Offset())
	require.Equal(t, 40, NewPagination(3, 20, 100).Offset())
}

func TestPageWindow(t *testing.T) {
	require.Nil(t, PageWindow(1, 0))
	require.Equal(t, []int{1, 2, 3}, PageWindow(2, 3))
	require.Equal(t, []int{3, 4, 5, 6, 7}, PageWindow(5, 10))
	require.Equal(t, []int{1, 2, 3, 4, 5}, PageWindow(1, 10))
	require.Equal(t, []int{6, 7, 8, 9, 10}, PageWindow(10, 10))

	// Out-of-range current pages clamp instead of panicking.
	require.Equal(t, []int{1, 2, 3, 4, 5}, PageWindow(-3, 10))
	require.Equal(t, []int{6, 7, 8, 9, 10}, PageWindow(99, 10))
}
