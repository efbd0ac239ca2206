package shared

import "math"

// DefaultPageSize applies when a list request does not specify one.
const DefaultPageSize = 20

// PageWindowSize is how many page buttons a list view shows at once.
const PageWindowSize = 5

// Pagination contains metadata for paginated listings.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"pageSize"`
	TotalCount int `json:"totalCount"`
	TotalPages int `json:"totalPages"`
}

// NewPagination computes pagination metadata.
func NewPagination(page, pageSize, totalCount int) Pagination {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if page <= 0 {
		page = 1
	}
	totalPages := int(math.Ceil(float64(totalCount) / float64(pageSize)))
	return Pagination{Page: page, PageSize: pageSize, TotalCount: totalCount, TotalPages: totalPages}
}

// Offset returns the zero-based row offset for the current page.
func (p Pagination) Offset() int {
	return (p.Page - 1) * p.PageSize
}

// PageWindow returns up to PageWindowSize page numbers centered on current,
// clamped to [1, totalPages]. An empty slice means there is nothing to page.
func PageWindow(current, totalPages int) []int {
	if totalPages <= 0 {
		return nil
	}
	if current < 1 {
		current = 1
	}
	if current > totalPages {
		current = totalPages
	}
	start := current - PageWindowSize/2
	if start < 1 {
		start = 1
	}
	end := start + PageWindowSize - 1
	if end > totalPages {
		end = totalPages
		start = end - PageWindowSize + 1
		if start < 1 {
			start = 1
		}
	}
	window := make([]int, 0, end-start+1)
	for p := start; p <= end; p++ {
		window = append(window, p)
	}
	return window
}
