// Package checkin contains attendance check-ins and the rolling-window quota
// that limits how often a student may check in.
package checkin

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gympoint/academy-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// CHECKIN ENTITY
// ══════════════════════════════════════════════════════════════════════════════

// Checkin is an append-only attendance record.
type Checkin struct {
	ID        int64     `json:"id"`
	StudentID int64     `json:"student_id"`
	CreatedAt time.Time `json:"created_at"`
}

// ══════════════════════════════════════════════════════════════════════════════
// QUOTA POLICY
// ══════════════════════════════════════════════════════════════════════════════

const (
	// DefaultLimit is the number of check-ins allowed per window.
	DefaultLimit = 5

	// DefaultWindow is the trailing window length.
	DefaultWindow = 7 * 24 * time.Hour
)

// QuotaPolicy limits check-ins to Limit per trailing Window.
// The window is inclusive: a check-in exactly Window old still counts.
type QuotaPolicy struct {
	Limit  int
	Window time.Duration
}

// DefaultQuotaPolicy returns 5 check-ins per 7 days.
func DefaultQuotaPolicy() QuotaPolicy {
	return QuotaPolicy{Limit: DefaultLimit, Window: DefaultWindow}
}

// CountRecent counts check-ins with 0 <= now-created_at <= Window.
// Records dated after now are not counted.
func (p QuotaPolicy) CountRecent(history []Checkin, now time.Time) int {
	count := 0
	for _, c := range history {
		age := now.Sub(c.CreatedAt)
		if age >= 0 && age <= p.Window {
			count++
		}
	}
	return count
}

// Check returns a quota error when the recent count has reached the limit.
func (p QuotaPolicy) Check(history []Checkin, now time.Time) error {
	count := p.CountRecent(history, now)
	if count >= p.Limit {
		return NewQuotaExceeded(count, p.Window)
	}
	return nil
}

// WindowDays returns the window length in whole days, at least 1.
func (p QuotaPolicy) WindowDays() int {
	days := int(p.Window / (24 * time.Hour))
	if days < 1 {
		return 1
	}
	return days
}

// ══════════════════════════════════════════════════════════════════════════════
// ERRORS
// ══════════════════════════════════════════════════════════════════════════════

// ErrQuotaExceeded matches any quota rejection via errors.Is.
var ErrQuotaExceeded = errors.New("checkin quota exceeded")

// QuotaExceededError carries the number of recent check-ins found.
type QuotaExceededError struct {
	Count int
	Days  int
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("You had %d checkins on last %d days", e.Count, e.Days)
}

// Is matches ErrQuotaExceeded.
func (e *QuotaExceededError) Is(target error) bool {
	return target == ErrQuotaExceeded
}

// NewQuotaExceeded builds a conflict-kind domain error wrapping the count.
func NewQuotaExceeded(count int, window time.Duration) error {
	q := &QuotaExceededError{Count: count, Days: QuotaPolicy{Window: window}.WindowDays()}
	return shared.WrapError("checkin", "Record", shared.ErrConflict, q.Error(), q)
}

// ══════════════════════════════════════════════════════════════════════════════
// REPOSITORY
// ══════════════════════════════════════════════════════════════════════════════

// Store reads and appends check-ins.
type Store interface {
	// ListByStudent returns the full history ordered by created_at, then id.
	ListByStudent(ctx context.Context, studentID int64) ([]Checkin, error)

	// Create appends c and assigns its ID.
	Create(ctx context.Context, c *Checkin) error
}

// Repository is a Store that can serialize writers per student.
type Repository interface {
	Store

	// WithinStudentLock runs fn while holding an exclusive per-student lock.
	// Two concurrent check-ins for the same student never evaluate the quota
	// against the same history. Writes made through the Store passed to fn
	// commit only if fn returns nil.
	WithinStudentLock(ctx context.Context, studentID int64, fn func(Store) error) error
}
