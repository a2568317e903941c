package postgres

import (
	"context"
	"fmt"

	"github.com/gympoint/academy-hub/internal/domain/plan"
	"github.com/gympoint/academy-hub/internal/domain/shared"
	"github.com/gympoint/academy-hub/internal/domain/student"
)

// ══════════════════════════════════════════════════════════════════════════════
// STUDENT REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// StudentRepository implements student.Repository and student.Writer.
type StudentRepository struct {
	conn *Connection
}

// NewStudentRepository creates a new StudentRepository.
func NewStudentRepository(conn *Connection) *StudentRepository {
	return &StudentRepository{conn: conn}
}

// GetByID returns a student by ID.
func (r *StudentRepository) GetByID(ctx context.Context, id int64) (*student.Student, error) {
	q, err := r.conn.querier()
	if err != nil {
		return nil, err
	}
	ctx, cancel := r.conn.withTimeout(ctx)
	defer cancel()

	var s student.Student
	err = q.QueryRow(ctx, `SELECT id, name, email FROM students WHERE id = $1`, id).
		Scan(&s.ID, &s.Name, &s.Email)
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrStudentNotFound
		}
		return nil, fmt.Errorf("failed to get student: %w", err)
	}
	return &s, nil
}

// Exists reports whether a student exists.
func (r *StudentRepository) Exists(ctx context.Context, id int64) (bool, error) {
	q, err := r.conn.querier()
	if err != nil {
		return false, err
	}
	ctx, cancel := r.conn.withTimeout(ctx)
	defer cancel()

	var exists bool
	err = q.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM students WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check student: %w", err)
	}
	return exists, nil
}

// Save upserts a student. Used by the seed command.
func (r *StudentRepository) Save(ctx context.Context, s *student.Student) error {
	q, err := r.conn.querier()
	if err != nil {
		return err
	}
	ctx, cancel := r.conn.withTimeout(ctx)
	defer cancel()

	if s.ID == 0 {
		err = q.QueryRow(ctx, `
			INSERT INTO students (name, email) VALUES ($1, $2)
			ON CONFLICT (email) DO UPDATE SET name = EXCLUDED.name, updated_at = NOW()
			RETURNING id
		`, s.Name, s.Email).Scan(&s.ID)
	} else {
		_, err = q.Exec(ctx, `
			INSERT INTO students (id, name, email) VALUES ($1, $2, $3)
			ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, email = EXCLUDED.email, updated_at = NOW()
		`, s.ID, s.Name, s.Email)
	}
	if err != nil {
		return fmt.Errorf("failed to save student: %w", err)
	}
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// PLAN REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// PlanRepository implements plan.Repository and plan.Writer.
type PlanRepository struct {
	conn *Connection
}

// NewPlanRepository creates a new PlanRepository.
func NewPlanRepository(conn *Connection) *PlanRepository {
	return &PlanRepository{conn: conn}
}

// GetByID returns a plan by ID.
func (r *PlanRepository) GetByID(ctx context.Context, id int64) (*plan.Plan, error) {
	q, err := r.conn.querier()
	if err != nil {
		return nil, err
	}
	ctx, cancel := r.conn.withTimeout(ctx)
	defer cancel()

	var (
		p     plan.Plan
		price int64
	)
	err = q.QueryRow(ctx, `SELECT id, title, duration, price_cents FROM plans WHERE id = $1`, id).
		Scan(&p.ID, &p.Title, &p.Duration, &price)
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrPlanNotFound
		}
		return nil, fmt.Errorf("failed to get plan: %w", err)
	}
	p.Price = shared.Money(price)
	return &p, nil
}

// Save upserts a plan. Used by the seed command.
func (r *PlanRepository) Save(ctx context.Context, p *plan.Plan) error {
	q, err := r.conn.querier()
	if err != nil {
		return err
	}
	ctx, cancel := r.conn.withTimeout(ctx)
	defer cancel()

	if p.ID == 0 {
		err = q.QueryRow(ctx, `
			INSERT INTO plans (title, duration, price_cents) VALUES ($1, $2, $3) RETURNING id
		`, p.Title, p.Duration, p.Price.Cents()).Scan(&p.ID)
	} else {
		_, err = q.Exec(ctx, `
			INSERT INTO plans (id, title, duration, price_cents) VALUES ($1, $2, $3, $4)
			ON CONFLICT (id) DO UPDATE
			SET title = EXCLUDED.title, duration = EXCLUDED.duration,
			    price_cents = EXCLUDED.price_cents, updated_at = NOW()
		`, p.ID, p.Title, p.Duration, p.Price.Cents())
	}
	if err != nil {
		return fmt.Errorf("failed to save plan: %w", err)
	}
	return nil
}
