package shared

import "time"

// MonthRange bounds one calendar month: [Start, End) where End is the first
// instant of the following month.
type MonthRange struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls inside the range.
func (r MonthRange) Contains(t time.Time) bool {
	return !t.Before(r.Start) && t.Before(r.End)
}

// CurrentMonth returns the calendar month containing now.
func CurrentMonth(now time.Time) MonthRange {
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	return MonthRange{Start: start, End: start.AddDate(0, 1, 0)}
}

// PreviousMonth returns the full calendar month before the one containing now.
func PreviousMonth(now time.Time) MonthRange {
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	return MonthRange{Start: start.AddDate(0, -1, 0), End: start}
}

// PeriodChange computes the month-over-month percentage change. A zero
// baseline with a positive current value reports +100 rather than infinity;
// a zero baseline with a zero current value reports 0.
func PeriodChange(thisMonth, lastMonth float64) float64 {
	if lastMonth == 0 {
		if thisMonth > 0 {
			return 100
		}
		return 0
	}
	return (thisMonth - lastMonth) / lastMonth * 100
}

// SplitByMonth sums the measure of records falling in the current and
// previous calendar months. Records outside both buckets are ignored.
func SplitByMonth(now time.Time, timestamps []time.Time, measures []float64) (thisMonth, lastMonth float64) {
	cur := CurrentMonth(now)
	prev := PreviousMonth(now)
	for i, ts := range timestamps {
		measure := 1.0
		if measures != nil {
			measure = measures[i]
		}
		switch {
		case cur.Contains(ts):
			thisMonth += measure
		case prev.Contains(ts):
			lastMonth += measure
		}
	}
	return thisMonth, lastMonth
}
