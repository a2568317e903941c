// Package timeutil provides calendar helpers for Academy Hub: month arithmetic
// with day clamping, date parsing, and the Brazilian date format used in mails.
package timeutil

import (
	"errors"
	"strings"
	"time"
)

// SaoPauloTZ is the academy timezone (UTC-3, no DST since 2019).
var SaoPauloTZ = time.FixedZone("America/Sao_Paulo", -3*60*60)

// DateLayout is the ISO calendar date layout used on the wire.
const DateLayout = "2006-01-02"

// BRDateLayout is the dd/MM/yyyy layout used in notification mails.
const BRDateLayout = "02/01/2006"

// ErrInvalidDate is returned when a date string cannot be parsed.
var ErrInvalidDate = errors.New("timeutil: invalid date")

// StartOfDay returns midnight of t in t's location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// DaysIn returns the number of days in the given month.
func DaysIn(year int, month time.Month) int {
	// Day 0 of the next month normalizes to the last day of this one.
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// AddMonths shifts t forward (or backward) by whole calendar months.
// When the source day does not exist in the target month the result is
// clamped to that month's last day: Jan 31 + 1 month = Feb 28 (or 29).
func AddMonths(t time.Time, months int) time.Time {
	y, m, d := t.Date()
	hh, mm, ss := t.Clock()

	// Normalize the target month through the first day to avoid time.Date overflow.
	first := time.Date(y, m+time.Month(months), 1, 0, 0, 0, 0, t.Location())
	if last := DaysIn(first.Year(), first.Month()); d > last {
		d = last
	}

	return time.Date(first.Year(), first.Month(), d, hh, mm, ss, t.Nanosecond(), t.Location())
}

// ParseDate parses a calendar date. It accepts "YYYY-MM-DD" and full RFC3339
// timestamps; for timestamps only the date part (in UTC) is kept.
func ParseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, ErrInvalidDate
	}

	if t, err := time.Parse(DateLayout, value); err == nil {
		return t, nil
	}

	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, ErrInvalidDate
	}
	return StartOfDay(t.UTC()), nil
}

// FormatDateBR formats t as dd/MM/yyyy in the academy timezone.
func FormatDateBR(t time.Time) string {
	return t.In(SaoPauloTZ).Format(BRDateLayout)
}

// FormatCalendarDateBR formats a calendar date (no timezone conversion).
func FormatCalendarDateBR(t time.Time) string {
	return t.Format(BRDateLayout)
}
