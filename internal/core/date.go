package core

import (
	"errors"
	"strings"
	"time"
)

// Date is a calendar date with no time-of-day component. The zero value
// means "no date" and is used for optional fields (template end dates,
// never-advanced watermarks).
type Date struct {
	time.Time
}

// NewDate creates a Date from year, month, day at UTC midnight.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to a calendar date at UTC midnight.
func DateOf(t time.Time) Date {
	y, m, d := t.UTC().Date()
	return NewDate(y, int(m), d)
}

// ParseDate parses a date in YYYY-MM-DD form.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Date{}, err
	}
	return DateOf(t), nil
}

var errZeroDate = errors.New("date cannot be zero")

func (d Date) Validate() error {
	if d.IsZero() {
		return errZeroDate
	}
	return nil
}

// IsEmpty reports whether the date is unset (for optional dates).
func (d Date) IsEmpty() bool {
	return d.IsZero()
}

// Day returns the day of the month.
func (d Date) Day() int {
	return d.Time.Day()
}

// Month returns the month as 1-12.
func (d Date) Month() int {
	return int(d.Time.Month())
}

// Year returns the year.
func (d Date) Year() int {
	return d.Time.Year()
}

// String formats the date as YYYY-MM-DD.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format("2006-01-02")
}

// MarshalJSON encodes the date as "YYYY-MM-DD", or null when unset.
func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + d.String() + `"`), nil
}

// UnmarshalJSON accepts "YYYY-MM-DD", an empty string or null.
func (d *Date) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Before reports whether d falls strictly before other.
func (d Date) Before(other Date) bool {
	return d.Time.Before(other.Time)
}

// After reports whether d falls strictly after other.
func (d Date) After(other Date) bool {
	return d.Time.After(other.Time)
}

// Equal reports whether d and other are the same calendar date.
func (d Date) Equal(other Date) bool {
	return d.Time.Equal(other.Time)
}

// AddPeriods returns the date n periods of freq after d. Month and year
// steps are anchored on d's day of month and clamp overflow to the last
// day of the target month: Jan 31 plus one month is Feb 28 (29 in leap
// years), and Jan 31 plus two months is Mar 31. Stepping is always
// computed from the anchor, never from a previously clamped result, so
// clamping does not accumulate.
func (d Date) AddPeriods(freq Frequency, n int) Date {
	switch freq {
	case Daily:
		return DateOf(d.AddDate(0, 0, n))
	case Weekly:
		return DateOf(d.AddDate(0, 0, 7*n))
	case Monthly:
		return addMonthsClamped(d, n)
	case Yearly:
		return addMonthsClamped(d, 12*n)
	default:
		return d
	}
}

func addMonthsClamped(d Date, months int) Date {
	// Normalize to a zero-based month count so the arithmetic works for
	// any sign of months.
	total := d.Year()*12 + (d.Month() - 1) + months
	year := total / 12
	month := total%12 + 1
	if month < 1 {
		month += 12
		year--
	}
	day := d.Day()
	if last := daysInMonth(year, month); day > last {
		day = last
	}
	return NewDate(year, month, day)
}

// daysInMonth returns the number of days in the given month. Day 0 of the
// following month is the last day of this one.
func daysInMonth(year, month int) int {
	return time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
