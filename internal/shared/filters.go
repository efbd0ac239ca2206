package shared

import (
	"net/url"
	"strconv"
	"strings"
	"time"
)

// SortAsc and SortDesc are the accepted sort directions.
const (
	SortAsc  = "asc"
	SortDesc = "desc"
)

// ListFilters carries the standard list query parameters.
type ListFilters struct {
	Page      int
	PageSize  int
	Search    string
	SortBy    string
	SortOrder string

	// Entity specific filters, zero-valued when absent.
	Category  string
	Status    string
	Expiry    string
	Dentist   string
	Treatment string
	Date      string
	DateFrom  time.Time
	DateTo    time.Time
	ViewAll   bool
}

// ParseListFilters reads the standard query parameters with defaults.
// sortable lists the allow-listed sort columns; the first entry is the
// default.
func ParseListFilters(query url.Values, sortable ...string) ListFilters {
	f := ListFilters{
		Page:      parseInt(query.Get("page"), 1),
		PageSize:  parseInt(query.Get("pageSize"), DefaultPageSize),
		Search:    strings.TrimSpace(firstOf(query, "search", "searchTerm")),
		Category:  query.Get("category"),
		Status:    query.Get("status"),
		Expiry:    query.Get("expiry"),
		Dentist:   query.Get("dentist"),
		Treatment: query.Get("treatment"),
		Date:      query.Get("date"),
		ViewAll:   query.Get("viewAll") == "true",
	}
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PageSize < 1 || f.PageSize > 200 {
		f.PageSize = DefaultPageSize
	}
	if from := query.Get("dateFrom"); from != "" {
		if t, err := time.Parse("2006-01-02", from); err == nil {
			f.DateFrom = t
		}
	}
	if to := query.Get("dateTo"); to != "" {
		if t, err := time.Parse("2006-01-02", to); err == nil {
			f.DateTo = t
		}
	}

	f.SortOrder = SortAsc
	if strings.EqualFold(query.Get("sortOrder"), SortDesc) {
		f.SortOrder = SortDesc
	}
	if len(sortable) > 0 {
		f.SortBy = sortable[0]
		requested := query.Get("sortBy")
		for _, col := range sortable {
			if requested == col {
				f.SortBy = col
				break
			}
		}
	}
	return f
}

// MatchesSearch reports whether any of the fields contains the search term,
// case-insensitively. An empty term matches everything.
func (f ListFilters) MatchesSearch(fields ...string) bool {
	if f.Search == "" {
		return true
	}
	term := strings.ToLower(f.Search)
	for _, field := range fields {
		if strings.Contains(strings.ToLower(field), term) {
			return true
		}
	}
	return false
}

// InDateRange reports whether t falls inside the filter's date range.
// Open ends of the range always match.
func (f ListFilters) InDateRange(t time.Time) bool {
	if !f.DateFrom.IsZero() && t.Before(f.DateFrom) {
		return false
	}
	if !f.DateTo.IsZero() && t.After(f.DateTo.Add(24*time.Hour-time.Nanosecond)) {
		return false
	}
	return true
}

func parseInt(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}

func firstOf(query url.Values, keys ...string) string {
	for _, key := range keys {
		if v := query.Get(key); v != "" {
			return v
		}
	}
	return ""
}
