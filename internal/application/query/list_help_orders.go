package query

import (
	"context"
	"fmt"

	"github.com/gympoint/academy-hub/internal/domain/helporder"
	"github.com/gympoint/academy-hub/internal/domain/student"
)

// ══════════════════════════════════════════════════════════════════════════════
// LIST HELP ORDERS QUERY
// ══════════════════════════════════════════════════════════════════════════════

// ListHelpOrdersQuery selects a student's help orders.
type ListHelpOrdersQuery struct {
	StudentID int64
}

// ListHelpOrdersHandler handles ListHelpOrdersQuery.
type ListHelpOrdersHandler struct {
	students   student.Repository
	helpOrders helporder.Repository
}

// NewListHelpOrdersHandler creates a new ListHelpOrdersHandler.
func NewListHelpOrdersHandler(students student.Repository, helpOrders helporder.Repository) *ListHelpOrdersHandler {
	return &ListHelpOrdersHandler{students: students, helpOrders: helpOrders}
}

// Handle returns help orders ordered by creation, each embedding the
// student's {id, name}.
func (h *ListHelpOrdersHandler) Handle(ctx context.Context, q ListHelpOrdersQuery) ([]*helporder.HelpOrder, error) {
	s, err := h.students.GetByID(ctx, q.StudentID)
	if err != nil {
		return nil, fmt.Errorf("list_help_orders: %w", err)
	}

	items, err := h.helpOrders.ListByStudent(ctx, q.StudentID)
	if err != nil {
		return nil, fmt.Errorf("list_help_orders: %w", err)
	}

	summary := s.Summary()
	summary.Email = ""
	out := make([]*helporder.HelpOrder, 0, len(items))
	for _, item := range items {
		copied := *item
		copied.Student = &summary
		out = append(out, &copied)
	}
	return out, nil
}
