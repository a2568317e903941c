package shared

import (
	"bytes"
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/gympoint/academy-hub/pkg/timeutil"
)

// Date is a calendar date without time of day. It is stored as midnight UTC
// and serialized as "YYYY-MM-DD".
type Date struct {
	time.Time
}

// NewDate builds a Date from year, month and day.
func NewDate(year int, month time.Month, day int) Date {
	return Date{time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar date (in t's location).
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, m, d)
}

// ParseDate parses "YYYY-MM-DD" or an RFC3339 timestamp.
func ParseDate(value string) (Date, error) {
	t, err := timeutil.ParseDate(value)
	if err != nil {
		return Date{}, err
	}
	return DateOf(t), nil
}

// AddMonths shifts the date by whole calendar months, clamping the day.
func (d Date) AddMonths(n int) Date {
	return DateOf(timeutil.AddMonths(d.Time, n))
}

// String formats the date as YYYY-MM-DD.
func (d Date) String() string {
	return d.Format(timeutil.DateLayout)
}

// MarshalJSON implements json.Marshaler.
func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Date) UnmarshalJSON(data []byte) error {
	data = bytes.Trim(data, `"`)
	parsed, err := ParseDate(string(data))
	if err != nil {
		return fmt.Errorf("date: %w", err)
	}
	*d = parsed
	return nil
}

// Value implements driver.Valuer so Date can be passed to DATE columns.
func (d Date) Value() (driver.Value, error) {
	return d.Time, nil
}
