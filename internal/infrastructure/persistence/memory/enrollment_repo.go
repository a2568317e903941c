package memory

import (
	"context"
	"sort"

	"github.com/gympoint/academy-hub/internal/domain/enrollment"
	"github.com/gympoint/academy-hub/internal/domain/shared"
)

// EnrollmentRepository implements enrollment.Repository. Create and Update
// enforce the (student, plan) uniqueness the Postgres constraint provides.
type EnrollmentRepository struct{ s *Store }

func (r *EnrollmentRepository) pairTakenLocked(studentID, planID, excludeID int64) bool {
	for id, e := range r.s.enrollments {
		if id != excludeID && e.StudentID == studentID && e.PlanID == planID {
			return true
		}
	}
	return false
}

// Create implements enrollment.Repository.
func (r *EnrollmentRepository) Create(ctx context.Context, e *enrollment.Enrollment) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if r.pairTakenLocked(e.StudentID, e.PlanID, 0) {
		return shared.ErrEnrollmentExists
	}

	r.s.nextEnrollmentID++
	e.ID = r.s.nextEnrollmentID
	r.s.enrollments[e.ID] = *e
	return nil
}

// GetByID implements enrollment.Repository.
func (r *EnrollmentRepository) GetByID(ctx context.Context, id int64) (*enrollment.Enrollment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	e, ok := r.s.enrollments[id]
	if !ok {
		return nil, shared.ErrEnrollmentNotFound
	}
	return &e, nil
}

// ExistsForPair implements enrollment.Repository.
func (r *EnrollmentRepository) ExistsForPair(ctx context.Context, studentID, planID, excludeID int64) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	return r.pairTakenLocked(studentID, planID, excludeID), nil
}

// Update implements enrollment.Repository.
func (r *EnrollmentRepository) Update(ctx context.Context, e *enrollment.Enrollment) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.enrollments[e.ID]; !ok {
		return shared.ErrEnrollmentNotFound
	}
	if r.pairTakenLocked(e.StudentID, e.PlanID, e.ID) {
		return shared.ErrEnrollmentExists
	}
	r.s.enrollments[e.ID] = *e
	return nil
}

// Delete implements enrollment.Repository.
func (r *EnrollmentRepository) Delete(ctx context.Context, id int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.enrollments[id]; !ok {
		return shared.ErrEnrollmentNotFound
	}
	delete(r.s.enrollments, id)
	return nil
}

// ListDetailed implements enrollment.Repository.
func (r *EnrollmentRepository) ListDetailed(ctx context.Context) ([]enrollment.Detailed, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]enrollment.Detailed, 0, len(r.s.enrollments))
	for _, e := range r.s.enrollments {
		d := enrollment.Detailed{
			ID:        e.ID,
			StartDate: e.StartDate,
			EndDate:   e.EndDate,
			Price:     e.Price,
		}
		if st, ok := r.s.students[e.StudentID]; ok {
			d.Student = st.Summary()
		}
		if p, ok := r.s.plans[e.PlanID]; ok {
			d.Plan = p.Summary()
		}
		out = append(out, d)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
