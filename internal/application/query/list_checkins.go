package query

import (
	"context"
	"fmt"

	"github.com/gympoint/academy-hub/internal/domain/checkin"
	"github.com/gympoint/academy-hub/internal/domain/student"
)

// ══════════════════════════════════════════════════════════════════════════════
// LIST CHECKINS QUERY
// Full history, unlike the write path which only looks at the quota window.
// ══════════════════════════════════════════════════════════════════════════════

// ListCheckinsQuery selects a student's check-ins.
type ListCheckinsQuery struct {
	StudentID int64
}

// ListCheckinsHandler handles ListCheckinsQuery.
type ListCheckinsHandler struct {
	students student.Repository
	checkins checkin.Store
}

// NewListCheckinsHandler creates a new ListCheckinsHandler.
func NewListCheckinsHandler(students student.Repository, checkins checkin.Store) *ListCheckinsHandler {
	return &ListCheckinsHandler{students: students, checkins: checkins}
}

// Handle returns the chronological history of the student.
func (h *ListCheckinsHandler) Handle(ctx context.Context, q ListCheckinsQuery) ([]checkin.Checkin, error) {
	if _, err := h.students.GetByID(ctx, q.StudentID); err != nil {
		return nil, fmt.Errorf("list_checkins: %w", err)
	}

	items, err := h.checkins.ListByStudent(ctx, q.StudentID)
	if err != nil {
		return nil, fmt.Errorf("list_checkins: %w", err)
	}
	if items == nil {
		items = []checkin.Checkin{}
	}
	return items, nil
}
