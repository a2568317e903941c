package postgres

import (
	"context"
	"fmt"

	"github.com/gympoint/academy-hub/internal/domain/helporder"
	"github.com/gympoint/academy-hub/internal/domain/shared"
	"github.com/gympoint/academy-hub/internal/domain/student"
)

// ══════════════════════════════════════════════════════════════════════════════
// HELP ORDER REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// HelpOrderRepository implements helporder.Repository for PostgreSQL.
type HelpOrderRepository struct {
	conn *Connection
}

// NewHelpOrderRepository creates a new HelpOrderRepository.
func NewHelpOrderRepository(conn *Connection) *HelpOrderRepository {
	return &HelpOrderRepository{conn: conn}
}

// Create inserts an unanswered help order and assigns its ID.
func (r *HelpOrderRepository) Create(ctx context.Context, h *helporder.HelpOrder) error {
	q, err := r.conn.querier()
	if err != nil {
		return err
	}
	ctx, cancel := r.conn.withTimeout(ctx)
	defer cancel()

	err = q.QueryRow(ctx, `
		INSERT INTO help_orders (student_id, question, created_at, updated_at)
		VALUES ($1, $2, $3, $3)
		RETURNING id
	`, h.StudentID, h.Question, h.CreatedAt).Scan(&h.ID)
	if err != nil {
		if IsForeignKeyViolation(err) {
			return shared.ErrStudentNotFound
		}
		return fmt.Errorf("failed to create help order: %w", err)
	}
	return nil
}

// GetByID returns a help order joined with its student's name and email.
func (r *HelpOrderRepository) GetByID(ctx context.Context, id int64) (*helporder.HelpOrder, error) {
	q, err := r.conn.querier()
	if err != nil {
		return nil, err
	}
	ctx, cancel := r.conn.withTimeout(ctx)
	defer cancel()

	var (
		h       helporder.HelpOrder
		summary student.Summary
	)
	err = q.QueryRow(ctx, `
		SELECT h.id, h.student_id, h.question, h.answer, h.answer_at, h.created_at,
		       s.id, s.name, s.email
		FROM help_orders h
		JOIN students s ON s.id = h.student_id
		WHERE h.id = $1
	`, id).Scan(
		&h.ID, &h.StudentID, &h.Question, &h.Answer, &h.AnsweredAt, &h.CreatedAt,
		&summary.ID, &summary.Name, &summary.Email,
	)
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrHelpOrderNotFound
		}
		return nil, fmt.Errorf("failed to get help order: %w", err)
	}
	normalizeHelpOrder(&h)
	h.Student = &summary
	return &h, nil
}

// SaveAnswer persists the answer and its timestamp.
func (r *HelpOrderRepository) SaveAnswer(ctx context.Context, h *helporder.HelpOrder) error {
	q, err := r.conn.querier()
	if err != nil {
		return err
	}
	ctx, cancel := r.conn.withTimeout(ctx)
	defer cancel()

	tag, err := q.Exec(ctx, `
		UPDATE help_orders
		SET answer = $2, answer_at = $3, updated_at = $3
		WHERE id = $1
	`, h.ID, h.Answer, h.AnsweredAt)
	if err != nil {
		return fmt.Errorf("failed to answer help order: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrHelpOrderNotFound
	}
	return nil
}

// ListByStudent returns the student's help orders, oldest first.
func (r *HelpOrderRepository) ListByStudent(ctx context.Context, studentID int64) ([]*helporder.HelpOrder, error) {
	q, err := r.conn.querier()
	if err != nil {
		return nil, err
	}
	ctx, cancel := r.conn.withTimeout(ctx)
	defer cancel()

	rows, err := q.Query(ctx, `
		SELECT id, student_id, question, answer, answer_at, created_at
		FROM help_orders
		WHERE student_id = $1
		ORDER BY created_at, id
	`, studentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list help orders: %w", err)
	}
	defer rows.Close()

	out := make([]*helporder.HelpOrder, 0)
	for rows.Next() {
		var h helporder.HelpOrder
		if err := rows.Scan(&h.ID, &h.StudentID, &h.Question, &h.Answer, &h.AnsweredAt, &h.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan help order: %w", err)
		}
		normalizeHelpOrder(&h)
		out = append(out, &h)
	}
	return out, rows.Err()
}

func normalizeHelpOrder(h *helporder.HelpOrder) {
	h.CreatedAt = h.CreatedAt.UTC()
	if h.AnsweredAt != nil {
		at := h.AnsweredAt.UTC()
		h.AnsweredAt = &at
	}
}

