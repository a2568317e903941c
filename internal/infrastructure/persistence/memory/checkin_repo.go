package memory

import (
	"context"
	"sort"

	"github.com/gympoint/academy-hub/internal/domain/checkin"
)

// CheckinRepository implements checkin.Repository.
type CheckinRepository struct{ s *Store }

// ListByStudent implements checkin.Store.
func (r *CheckinRepository) ListByStudent(ctx context.Context, studentID int64) ([]checkin.Checkin, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]checkin.Checkin, 0)
	for _, c := range r.s.checkins {
		if c.StudentID == studentID {
			out = append(out, c)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// Create implements checkin.Store.
func (r *CheckinRepository) Create(ctx context.Context, c *checkin.Checkin) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	r.s.nextCheckinID++
	c.ID = r.s.nextCheckinID
	r.s.checkins = append(r.s.checkins, *c)
	return nil
}

// WithinStudentLock implements checkin.Repository with a per-student mutex.
// Creates made through the Store passed to fn are buffered and applied only
// when fn succeeds.
func (r *CheckinRepository) WithinStudentLock(ctx context.Context, studentID int64, fn func(checkin.Store) error) error {
	l := r.s.studentLock(studentID)
	l.Lock()
	defer l.Unlock()

	tx := &checkinTx{repo: r}
	if err := fn(tx); err != nil {
		return err
	}

	for _, c := range tx.pending {
		if err := r.Create(ctx, c); err != nil {
			return err
		}
	}
	return nil
}

// checkinTx reads through to the repository and buffers writes.
type checkinTx struct {
	repo    *CheckinRepository
	pending []*checkin.Checkin
}

func (t *checkinTx) ListByStudent(ctx context.Context, studentID int64) ([]checkin.Checkin, error) {
	out, err := t.repo.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}
	for _, c := range t.pending {
		if c.StudentID == studentID {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (t *checkinTx) Create(ctx context.Context, c *checkin.Checkin) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t.pending = append(t.pending, c)
	return nil
}
