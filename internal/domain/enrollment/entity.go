// Package enrollment contains the enrollment aggregate: a student's
// subscription to a plan with a derived end date and total price.
package enrollment

import (
	"context"
	"time"

	"github.com/gympoint/academy-hub/internal/domain/plan"
	"github.com/gympoint/academy-hub/internal/domain/shared"
	"github.com/gympoint/academy-hub/internal/domain/student"
)

// ══════════════════════════════════════════════════════════════════════════════
// ENROLLMENT ENTITY
// ══════════════════════════════════════════════════════════════════════════════

// Enrollment links a student to a plan for a date range.
// At most one enrollment exists per (StudentID, PlanID).
type Enrollment struct {
	ID        int64 `json:"id"`
	StudentID int64 `json:"student_id"`
	PlanID    int64 `json:"plan_id"`

	// StartDate is chosen by the client.
	StartDate shared.Date `json:"start_date"`

	// EndDate and Price are derived by ComputeTerms and never set directly.
	EndDate shared.Date  `json:"end_date"`
	Price   shared.Money `json:"price"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Terms are the fields derived from a plan and a start date.
type Terms struct {
	EndDate shared.Date
	Price   shared.Money
}

// ComputeTerms derives the end date and total price of an enrollment.
// The end date is start shifted by plan.Duration calendar months, clamped to
// the last day of the target month. The price is the flat plan.Price times
// plan.Duration. Create and update both go through here.
func ComputeTerms(p *plan.Plan, start shared.Date) (Terms, error) {
	if p == nil || p.Duration <= 0 {
		return Terms{}, shared.Validation("enrollment", "ComputeTerms", "plan duration must be positive")
	}
	if start.IsZero() {
		return Terms{}, shared.Validation("enrollment", "ComputeTerms", "start_date is required")
	}

	return Terms{
		EndDate: start.AddMonths(p.Duration),
		Price:   p.Total(),
	}, nil
}

// New builds an enrollment with derived terms.
func New(s *student.Student, p *plan.Plan, start shared.Date, now time.Time) (*Enrollment, error) {
	terms, err := ComputeTerms(p, start)
	if err != nil {
		return nil, err
	}

	e := &Enrollment{
		StudentID: s.ID,
		PlanID:    p.ID,
		StartDate: start,
		CreatedAt: now,
		UpdatedAt: now,
	}
	e.apply(terms)
	return e, nil
}

// Reassign points the enrollment at a (possibly new) student, plan and start
// date and recomputes the derived terms.
func (e *Enrollment) Reassign(s *student.Student, p *plan.Plan, start shared.Date, now time.Time) error {
	terms, err := ComputeTerms(p, start)
	if err != nil {
		return err
	}

	e.StudentID = s.ID
	e.PlanID = p.ID
	e.StartDate = start
	e.UpdatedAt = now
	e.apply(terms)
	return nil
}

func (e *Enrollment) apply(t Terms) {
	e.EndDate = t.EndDate
	e.Price = t.Price
}

// ══════════════════════════════════════════════════════════════════════════════
// READ MODEL
// ══════════════════════════════════════════════════════════════════════════════

// Detailed is the list projection with embedded student and plan summaries.
type Detailed struct {
	ID        int64           `json:"id"`
	StartDate shared.Date     `json:"start_date"`
	EndDate   shared.Date     `json:"end_date"`
	Price     shared.Money    `json:"price"`
	Student   student.Summary `json:"student"`
	Plan      plan.Summary    `json:"plan"`
}

// ══════════════════════════════════════════════════════════════════════════════
// REPOSITORY
// ══════════════════════════════════════════════════════════════════════════════

// Repository persists enrollments.
type Repository interface {
	// Create stores e and assigns its ID.
	// Returns shared.ErrEnrollmentExists when the (student, plan) pair is taken.
	Create(ctx context.Context, e *Enrollment) error

	// GetByID returns shared.ErrEnrollmentNotFound when absent.
	GetByID(ctx context.Context, id int64) (*Enrollment, error)

	// ExistsForPair reports whether another enrollment (id != excludeID) holds
	// the (studentID, planID) pair. Pass 0 to check all enrollments.
	ExistsForPair(ctx context.Context, studentID, planID, excludeID int64) (bool, error)

	// Update overwrites e. Returns shared.ErrEnrollmentNotFound when absent and
	// shared.ErrEnrollmentExists when the new pair is taken.
	Update(ctx context.Context, e *Enrollment) error

	// Delete hard-deletes. Returns shared.ErrEnrollmentNotFound when absent.
	Delete(ctx context.Context, id int64) error

	// ListDetailed returns every enrollment ordered by id.
	ListDetailed(ctx context.Context) ([]Detailed, error)
}
