// Package memory provides in-process implementations of the domain
// repositories. They back the application tests and the single-process
// development mode (DATABASE_DRIVER=memory).
package memory

import (
	"context"
	"sync"

	"github.com/gympoint/academy-hub/internal/domain/checkin"
	"github.com/gympoint/academy-hub/internal/domain/enrollment"
	"github.com/gympoint/academy-hub/internal/domain/helporder"
	"github.com/gympoint/academy-hub/internal/domain/plan"
	"github.com/gympoint/academy-hub/internal/domain/shared"
	"github.com/gympoint/academy-hub/internal/domain/student"
)

// Store holds every table behind one lock. Values are copied in and out so
// callers never share memory with the store.
type Store struct {
	mu sync.RWMutex

	students    map[int64]student.Student
	plans       map[int64]plan.Plan
	enrollments map[int64]enrollment.Enrollment
	checkins    []checkin.Checkin
	helpOrders  map[int64]helporder.HelpOrder

	nextEnrollmentID int64
	nextCheckinID    int64
	nextHelpOrderID  int64

	lockMu       sync.Mutex
	studentLocks map[int64]*sync.Mutex
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		students:     make(map[int64]student.Student),
		plans:        make(map[int64]plan.Plan),
		enrollments:  make(map[int64]enrollment.Enrollment),
		helpOrders:   make(map[int64]helporder.HelpOrder),
		studentLocks: make(map[int64]*sync.Mutex),
	}
}

// Ping reports whether the context is still alive.
func (s *Store) Ping(ctx context.Context) error { return ctx.Err() }

// Students returns the student repository.
func (s *Store) Students() *StudentRepository { return &StudentRepository{s: s} }

// Plans returns the plan repository.
func (s *Store) Plans() *PlanRepository { return &PlanRepository{s: s} }

// Enrollments returns the enrollment repository.
func (s *Store) Enrollments() *EnrollmentRepository { return &EnrollmentRepository{s: s} }

// Checkins returns the check-in repository.
func (s *Store) Checkins() *CheckinRepository { return &CheckinRepository{s: s} }

// HelpOrders returns the help order repository.
func (s *Store) HelpOrders() *HelpOrderRepository { return &HelpOrderRepository{s: s} }

func (s *Store) studentLock(id int64) *sync.Mutex {
	s.lockMu.Lock()
	defer s.lockMu.Unlock()

	l, ok := s.studentLocks[id]
	if !ok {
		l = &sync.Mutex{}
		s.studentLocks[id] = l
	}
	return l
}

// ══════════════════════════════════════════════════════════════════════════════
// STUDENTS & PLANS
// ══════════════════════════════════════════════════════════════════════════════

// StudentRepository implements student.Repository and student.Writer.
type StudentRepository struct{ s *Store }

// GetByID implements student.Repository.
func (r *StudentRepository) GetByID(ctx context.Context, id int64) (*student.Student, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	st, ok := r.s.students[id]
	if !ok {
		return nil, shared.ErrStudentNotFound
	}
	return &st, nil
}

// Exists implements student.Repository.
func (r *StudentRepository) Exists(ctx context.Context, id int64) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	_, ok := r.s.students[id]
	return ok, nil
}

// Save implements student.Writer.
func (r *StudentRepository) Save(ctx context.Context, st *student.Student) error {
	if err := st.Validate(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	r.s.students[st.ID] = *st
	return nil
}

// PlanRepository implements plan.Repository and plan.Writer.
type PlanRepository struct{ s *Store }

// GetByID implements plan.Repository.
func (r *PlanRepository) GetByID(ctx context.Context, id int64) (*plan.Plan, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	p, ok := r.s.plans[id]
	if !ok {
		return nil, shared.ErrPlanNotFound
	}
	return &p, nil
}

// Save implements plan.Writer.
func (r *PlanRepository) Save(ctx context.Context, p *plan.Plan) error {
	if err := p.Validate(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	r.s.plans[p.ID] = *p
	return nil
}
