package core

import (
	"fmt"
	"time"
)

// LocalDate is a plain calendar date (no time of day, no timezone).
// Cloudbeds sends reservation dates as "YYYY-MM-DD" strings; parsing
// them through time.Parse with a UTC location and then reading local
// calendar fields can shift a booking across midnight, so the engine
// only ever works with this value type.
type LocalDate struct {
	Year  int
	Month time.Month
	Day   int
}

// ParseDate parses a "YYYY-MM-DD" string into a LocalDate.
// This is the only way a wire date enters the engine.
func ParseDate(s string) (LocalDate, error) {
	var y, m, d int
	if _, err := fmt.Sscanf(s, "%4d-%2d-%2d", &y, &m, &d); err != nil {
		return LocalDate{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", s)
	}
	if m < 1 || m > 12 || d < 1 || d > DaysInMonth(y, time.Month(m)) {
		return LocalDate{}, fmt.Errorf("invalid date %q: no such calendar day", s)
	}
	return LocalDate{Year: y, Month: time.Month(m), Day: d}, nil
}

func (d LocalDate) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

func (d LocalDate) IsZero() bool {
	return d == LocalDate{}
}

// Before reports whether d is strictly earlier than other.
func (d LocalDate) Before(other LocalDate) bool {
	if d.Year != other.Year {
		return d.Year < other.Year
	}
	if d.Month != other.Month {
		return d.Month < other.Month
	}
	return d.Day < other.Day
}

// Next returns the following calendar day.
func (d LocalDate) Next() LocalDate {
	if d.Day < DaysInMonth(d.Year, d.Month) {
		return LocalDate{Year: d.Year, Month: d.Month, Day: d.Day + 1}
	}
	if d.Month == time.December {
		return LocalDate{Year: d.Year + 1, Month: time.January, Day: 1}
	}
	return LocalDate{Year: d.Year, Month: d.Month + 1, Day: 1}
}

// In reports whether the date falls inside the given month.
func (d LocalDate) In(year int, month time.Month) bool {
	return d.Year == year && d.Month == month
}

// DaysInMonth returns the number of days in the given month.
func DaysInMonth(year int, month time.Month) int {
	// day 0 of the next month is the last day of this one
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// MarshalJSON renders the date as a plain "YYYY-MM-DD" string.
func (d LocalDate) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

// UnmarshalJSON accepts a "YYYY-MM-DD" string.
func (d *LocalDate) UnmarshalJSON(b []byte) error {
	if len(b) < 2 || b[0] != '"' || b[len(b)-1] != '"' {
		return fmt.Errorf("invalid date json: %s", b)
	}
	parsed, err := ParseDate(string(b[1 : len(b)-1]))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
