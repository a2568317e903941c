package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/gympoint/academy-hub/internal/domain/enrollment"
	"github.com/gympoint/academy-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// ENROLLMENT REPOSITORY IMPLEMENTATION
// The (student_id, plan_id) unique constraint is the final guard against
// concurrent duplicates; violations map to shared.ErrEnrollmentExists.
// ══════════════════════════════════════════════════════════════════════════════

// EnrollmentRepository implements enrollment.Repository for PostgreSQL.
type EnrollmentRepository struct {
	conn *Connection
}

// NewEnrollmentRepository creates a new EnrollmentRepository.
func NewEnrollmentRepository(conn *Connection) *EnrollmentRepository {
	return &EnrollmentRepository{conn: conn}
}

// Create inserts an enrollment and assigns its ID.
func (r *EnrollmentRepository) Create(ctx context.Context, e *enrollment.Enrollment) error {
	q, err := r.conn.querier()
	if err != nil {
		return err
	}
	ctx, cancel := r.conn.withTimeout(ctx)
	defer cancel()

	err = q.QueryRow(ctx, `
		INSERT INTO enrollments (student_id, plan_id, start_date, end_date, price_cents, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`,
		e.StudentID,
		e.PlanID,
		e.StartDate.Time,
		e.EndDate.Time,
		e.Price.Cents(),
		e.CreatedAt,
		e.UpdatedAt,
	).Scan(&e.ID)
	if err != nil {
		return mapEnrollmentError("create", err)
	}
	return nil
}

// GetByID returns an enrollment by ID.
func (r *EnrollmentRepository) GetByID(ctx context.Context, id int64) (*enrollment.Enrollment, error) {
	q, err := r.conn.querier()
	if err != nil {
		return nil, err
	}
	ctx, cancel := r.conn.withTimeout(ctx)
	defer cancel()

	row := q.QueryRow(ctx, `
		SELECT id, student_id, plan_id, start_date, end_date, price_cents, created_at, updated_at
		FROM enrollments
		WHERE id = $1
	`, id)

	e, err := scanEnrollment(row)
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrEnrollmentNotFound
		}
		return nil, fmt.Errorf("failed to get enrollment: %w", err)
	}
	return e, nil
}

// ExistsForPair reports whether another enrollment holds the pair.
func (r *EnrollmentRepository) ExistsForPair(ctx context.Context, studentID, planID, excludeID int64) (bool, error) {
	q, err := r.conn.querier()
	if err != nil {
		return false, err
	}
	ctx, cancel := r.conn.withTimeout(ctx)
	defer cancel()

	var exists bool
	err = q.QueryRow(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM enrollments
			WHERE student_id = $1 AND plan_id = $2 AND id <> $3
		)
	`, studentID, planID, excludeID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check enrollment pair: %w", err)
	}
	return exists, nil
}

// Update overwrites an enrollment.
func (r *EnrollmentRepository) Update(ctx context.Context, e *enrollment.Enrollment) error {
	q, err := r.conn.querier()
	if err != nil {
		return err
	}
	ctx, cancel := r.conn.withTimeout(ctx)
	defer cancel()

	tag, err := q.Exec(ctx, `
		UPDATE enrollments
		SET student_id = $2, plan_id = $3, start_date = $4, end_date = $5,
		    price_cents = $6, updated_at = $7
		WHERE id = $1
	`,
		e.ID,
		e.StudentID,
		e.PlanID,
		e.StartDate.Time,
		e.EndDate.Time,
		e.Price.Cents(),
		e.UpdatedAt,
	)
	if err != nil {
		return mapEnrollmentError("update", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrEnrollmentNotFound
	}
	return nil
}

// Delete hard-deletes an enrollment.
func (r *EnrollmentRepository) Delete(ctx context.Context, id int64) error {
	q, err := r.conn.querier()
	if err != nil {
		return err
	}
	ctx, cancel := r.conn.withTimeout(ctx)
	defer cancel()

	tag, err := q.Exec(ctx, `DELETE FROM enrollments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete enrollment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrEnrollmentNotFound
	}
	return nil
}

// ListDetailed returns every enrollment joined with its student and plan.
func (r *EnrollmentRepository) ListDetailed(ctx context.Context) ([]enrollment.Detailed, error) {
	q, err := r.conn.querier()
	if err != nil {
		return nil, err
	}
	ctx, cancel := r.conn.withTimeout(ctx)
	defer cancel()

	rows, err := q.Query(ctx, `
		SELECT e.id, e.start_date, e.end_date, e.price_cents,
		       s.id, s.name, s.email,
		       p.id, p.title
		FROM enrollments e
		JOIN students s ON s.id = e.student_id
		JOIN plans p ON p.id = e.plan_id
		ORDER BY e.id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list enrollments: %w", err)
	}
	defer rows.Close()

	out := make([]enrollment.Detailed, 0)
	for rows.Next() {
		var (
			d          enrollment.Detailed
			start, end time.Time
			price      int64
		)
		if err := rows.Scan(
			&d.ID, &start, &end, &price,
			&d.Student.ID, &d.Student.Name, &d.Student.Email,
			&d.Plan.ID, &d.Plan.Title,
		); err != nil {
			return nil, fmt.Errorf("failed to scan enrollment: %w", err)
		}
		d.StartDate = shared.DateOf(start)
		d.EndDate = shared.DateOf(end)
		d.Price = shared.Money(price)
		out = append(out, d)
	}
	return out, rows.Err()
}

func scanEnrollment(row pgx.Row) (*enrollment.Enrollment, error) {
	var (
		e          enrollment.Enrollment
		start, end time.Time
		price      int64
	)
	if err := row.Scan(
		&e.ID, &e.StudentID, &e.PlanID, &start, &end, &price, &e.CreatedAt, &e.UpdatedAt,
	); err != nil {
		return nil, err
	}
	e.StartDate = shared.DateOf(start)
	e.EndDate = shared.DateOf(end)
	e.Price = shared.Money(price)
	e.CreatedAt = e.CreatedAt.UTC()
	e.UpdatedAt = e.UpdatedAt.UTC()
	return &e, nil
}

func mapEnrollmentError(op string, err error) error {
	switch {
	case IsUniqueViolation(err):
		return shared.ErrEnrollmentExists
	case IsForeignKeyViolation(err):
		return shared.WrapError("enrollment", op, shared.ErrNotFound, "Student or plan does not exist", err)
	default:
		return fmt.Errorf("failed to %s enrollment: %w", op, err)
	}
}
