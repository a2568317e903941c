// Package query contains read operations (CQRS - Queries).
package query

import (
	"context"
	"fmt"

	"github.com/gympoint/academy-hub/internal/domain/enrollment"
)

// ══════════════════════════════════════════════════════════════════════════════
// LIST ENROLLMENTS QUERY
// Read-only projection: derived fields are returned as stored.
// ══════════════════════════════════════════════════════════════════════════════

// ListEnrollmentsHandler lists every enrollment with its student and plan.
type ListEnrollmentsHandler struct {
	enrollments enrollment.Repository
}

// NewListEnrollmentsHandler creates a new ListEnrollmentsHandler.
func NewListEnrollmentsHandler(enrollments enrollment.Repository) *ListEnrollmentsHandler {
	return &ListEnrollmentsHandler{enrollments: enrollments}
}

// Handle returns enrollments ordered by id. The result is never nil.
func (h *ListEnrollmentsHandler) Handle(ctx context.Context) ([]enrollment.Detailed, error) {
	items, err := h.enrollments.ListDetailed(ctx)
	if err != nil {
		return nil, fmt.Errorf("list_enrollments: %w", err)
	}
	if items == nil {
		items = []enrollment.Detailed{}
	}
	return items, nil
}
