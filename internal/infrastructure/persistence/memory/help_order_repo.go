package memory

import (
	"context"
	"sort"

	"github.com/gympoint/academy-hub/internal/domain/helporder"
	"github.com/gympoint/academy-hub/internal/domain/shared"
)

// HelpOrderRepository implements helporder.Repository.
type HelpOrderRepository struct{ s *Store }

// Create implements helporder.Repository.
func (r *HelpOrderRepository) Create(ctx context.Context, h *helporder.HelpOrder) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	r.s.nextHelpOrderID++
	h.ID = r.s.nextHelpOrderID
	stored := *h
	stored.Student = nil
	r.s.helpOrders[h.ID] = stored
	return nil
}

// GetByID implements helporder.Repository.
func (r *HelpOrderRepository) GetByID(ctx context.Context, id int64) (*helporder.HelpOrder, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	h, ok := r.s.helpOrders[id]
	if !ok {
		return nil, shared.ErrHelpOrderNotFound
	}
	if st, ok := r.s.students[h.StudentID]; ok {
		summary := st.Summary()
		h.Student = &summary
	}
	return &h, nil
}

// SaveAnswer implements helporder.Repository.
func (r *HelpOrderRepository) SaveAnswer(ctx context.Context, h *helporder.HelpOrder) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	stored, ok := r.s.helpOrders[h.ID]
	if !ok {
		return shared.ErrHelpOrderNotFound
	}
	if h.Answer != nil {
		answer := *h.Answer
		stored.Answer = &answer
	}
	if h.AnsweredAt != nil {
		at := *h.AnsweredAt
		stored.AnsweredAt = &at
	}
	r.s.helpOrders[h.ID] = stored
	return nil
}

// ListByStudent implements helporder.Repository.
func (r *HelpOrderRepository) ListByStudent(ctx context.Context, studentID int64) ([]*helporder.HelpOrder, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]*helporder.HelpOrder, 0)
	for _, h := range r.s.helpOrders {
		if h.StudentID == studentID {
			item := h
			out = append(out, &item)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}
