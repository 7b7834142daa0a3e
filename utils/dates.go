package utils

import (
	"fmt"
	"sync"
	"time"
)

// DateLayout is the civil date format used for check-in keys.
const DateLayout = "2006-01-02"

var (
	loc   = time.Local
	locMu sync.RWMutex
)

// SetLocation sets the zone used to derive today's civil date. Unknown names are an error.
func SetLocation(name string) error {
	if name == "" || name == "Local" {
		locMu.Lock()
		loc = time.Local
		locMu.Unlock()
		return nil
	}
	l, err := time.LoadLocation(name)
	if err != nil {
		return fmt.Errorf("load location %q: %w", name, err)
	}
	locMu.Lock()
	loc = l
	locMu.Unlock()
	return nil
}

// Location returns the configured zone.
func Location() *time.Location {
	locMu.RLock()
	defer locMu.RUnlock()
	return loc
}

// Now returns the current time in the configured zone.
func Now() time.Time {
	return time.Now().In(Location())
}

// DateKey formats t as a civil date in its own zone.
func DateKey(t time.Time) string {
	return t.Format(DateLayout)
}

// Today returns the current civil date in the configured zone.
func Today() string {
	return DateKey(Now())
}

// ParseDate parses a YYYY-MM-DD civil date. The result is midnight UTC so day arithmetic never
// crosses a DST boundary.
func ParseDate(s string) (time.Time, error) {
	return time.Parse(DateLayout, s)
}

// MonthRange returns the first day of the month and the first day of the next one as date keys.
func MonthRange(year int, month time.Month) (from, to string) {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	return DateKey(first), DateKey(first.AddDate(0, 1, 0))
}
