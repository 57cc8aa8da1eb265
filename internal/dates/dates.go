// Package dates holds the pickup-date calendar rules: result pickups happen
// Monday through Wednesday only, minus explicitly excluded days.
package dates

import (
	"errors"
	"fmt"
	"time"
)

const Layout = "2006-01-02"

var ErrInvalidDate = errors.New("invalid date format")

// Parse reads a YYYY-MM-DD string as a date-only value at midnight UTC.
func Parse(s string) (time.Time, error) {
	t, err := time.ParseInLocation(Layout, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q (want YYYY-MM-DD)", ErrInvalidDate, s)
	}
	return t, nil
}

// Format renders a date-only value back to YYYY-MM-DD.
func Format(t time.Time) string {
	return t.Format(Layout)
}

// Today returns the current calendar date at midnight UTC.
func Today() time.Time {
	return Truncate(time.Now().UTC())
}

// Truncate drops the time component of t, keeping the UTC calendar date.
func Truncate(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func pickupWeekday(d time.Weekday) bool {
	return d == time.Monday || d == time.Tuesday || d == time.Wednesday
}

// PickupDates returns every qualifying pickup day in the inclusive range
// [start, end]: weekday in Mon..Wed and not listed in exclude. The result is
// strictly ascending and duplicate-free; it is empty when no day qualifies.
// Malformed dates in the range or the exclusion list fail with
// ErrInvalidDate instead of silently producing an empty schedule window.
func PickupDates(start, end string, exclude []string) ([]time.Time, error) {
	from, err := Parse(start)
	if err != nil {
		return nil, fmt.Errorf("start date: %w", err)
	}
	to, err := Parse(end)
	if err != nil {
		return nil, fmt.Errorf("end date: %w", err)
	}

	excluded := make(map[string]struct{}, len(exclude))
	for _, raw := range exclude {
		d, err := Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("exclude date: %w", err)
		}
		excluded[Format(d)] = struct{}{}
	}

	var out []time.Time
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		if !pickupWeekday(d.Weekday()) {
			continue
		}
		if _, skip := excluded[Format(d)]; skip {
			continue
		}
		out = append(out, d)
	}
	return out, nil
}
