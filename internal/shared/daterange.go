package shared

import (
	"net/url"
	"time"
)

// DateRange is an inclusive [From, To] filter. Zero endpoints mean
// unbounded on that side, so the zero value covers all time.
type DateRange struct {
	From time.Time
	To   time.Time
}

// ParseDateRange reads from/to query parameters in YYYY-MM-DD form.
// Unparseable values are treated as absent rather than rejected; reports
// answer bad ranges with empty results, not errors.
func ParseDateRange(q url.Values) DateRange {
	var dr DateRange
	if v := q.Get("from"); v != "" {
		if t, err := time.Parse("2006-01-02", v); err == nil {
			dr.From = t
		}
	}
	if v := q.Get("to"); v != "" {
		if t, err := time.Parse("2006-01-02", v); err == nil {
			// include the whole end day
			dr.To = t.Add(24*time.Hour - time.Nanosecond)
		}
	}
	return dr
}

// Contains reports whether t falls inside the range.
func (r DateRange) Contains(t time.Time) bool {
	if !r.From.IsZero() && t.Before(r.From) {
		return false
	}
	if !r.To.IsZero() && t.After(r.To) {
		return false
	}
	return true
}
