// Package plan contains subscription plans. Plans are managed outside the core
// and only referenced by enrollments.
package plan

import (
	"context"
	"strings"

	"github.com/gympoint/academy-hub/internal/domain/shared"
)

// Plan is a subscription template.
type Plan struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`

	// Duration is the plan length in whole months, always positive.
	Duration int `json:"duration"`

	// Price is charged per month.
	Price shared.Money `json:"price"`
}

// Validate checks plan invariants.
func (p *Plan) Validate() error {
	switch {
	case p.ID <= 0:
		return shared.Validation("plan", "Validate", "plan id must be positive")
	case strings.TrimSpace(p.Title) == "":
		return shared.Validation("plan", "Validate", "plan title is required")
	case p.Duration <= 0:
		return shared.Validation("plan", "Validate", "plan duration must be positive")
	case p.Price < 0:
		return shared.Validation("plan", "Validate", "plan price must not be negative")
	}
	return nil
}

// Total returns the flat price for the whole duration.
func (p *Plan) Total() shared.Money {
	return p.Price.Mul(p.Duration)
}

// Summary returns the {id, title} projection embedded in enrollment lists.
func (p *Plan) Summary() Summary {
	return Summary{ID: p.ID, Title: p.Title}
}

// Summary is the read-only plan projection.
type Summary struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
}

// Repository resolves plan references.
type Repository interface {
	// GetByID returns shared.ErrPlanNotFound when the plan does not exist.
	GetByID(ctx context.Context, id int64) (*Plan, error)
}

// Writer persists plans (seed and tests only).
type Writer interface {
	Save(ctx context.Context, p *Plan) error
}
