package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/gympoint/academy-hub/internal/domain/checkin"
)

// ══════════════════════════════════════════════════════════════════════════════
// CHECKIN REPOSITORY IMPLEMENTATION
// WithinStudentLock takes a transaction-scoped advisory lock keyed by the
// student id, so the quota read and the insert of concurrent requests for the
// same student run one after another even across API replicas.
// ══════════════════════════════════════════════════════════════════════════════

// checkinLockNamespace separates check-in advisory locks from other users of
// pg_advisory_xact_lock(int, int).
const checkinLockNamespace int32 = 0x43484b

// CheckinRepository implements checkin.Repository for PostgreSQL.
type CheckinRepository struct {
	conn *Connection
}

// NewCheckinRepository creates a new CheckinRepository.
func NewCheckinRepository(conn *Connection) *CheckinRepository {
	return &CheckinRepository{conn: conn}
}

// ListByStudent returns the student's full check-in history.
func (r *CheckinRepository) ListByStudent(ctx context.Context, studentID int64) ([]checkin.Checkin, error) {
	q, err := r.conn.querier()
	if err != nil {
		return nil, err
	}
	ctx, cancel := r.conn.withTimeout(ctx)
	defer cancel()

	return listCheckins(ctx, q, studentID)
}

// Create inserts a check-in and assigns its ID.
func (r *CheckinRepository) Create(ctx context.Context, c *checkin.Checkin) error {
	q, err := r.conn.querier()
	if err != nil {
		return err
	}
	ctx, cancel := r.conn.withTimeout(ctx)
	defer cancel()

	return insertCheckin(ctx, q, c)
}

// WithinStudentLock runs fn inside a transaction holding the student's
// advisory lock. The lock is released on commit or rollback.
func (r *CheckinRepository) WithinStudentLock(ctx context.Context, studentID int64, fn func(checkin.Store) error) error {
	ctx, cancel := r.conn.withTimeout(ctx)
	defer cancel()

	return r.conn.inTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`SELECT pg_advisory_xact_lock($1, hashtext($2::text))`,
			checkinLockNamespace, studentID,
		); err != nil {
			return fmt.Errorf("failed to lock student checkins: %w", err)
		}
		return fn(&checkinTx{tx: tx})
	})
}

// checkinTx is the checkin.Store bound to a locked transaction.
type checkinTx struct {
	tx pgx.Tx
}

func (t *checkinTx) ListByStudent(ctx context.Context, studentID int64) ([]checkin.Checkin, error) {
	return listCheckins(ctx, t.tx, studentID)
}

func (t *checkinTx) Create(ctx context.Context, c *checkin.Checkin) error {
	return insertCheckin(ctx, t.tx, c)
}

func listCheckins(ctx context.Context, q Querier, studentID int64) ([]checkin.Checkin, error) {
	rows, err := q.Query(ctx, `
		SELECT id, student_id, created_at
		FROM checkins
		WHERE student_id = $1
		ORDER BY created_at, id
	`, studentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list checkins: %w", err)
	}
	defer rows.Close()

	out := make([]checkin.Checkin, 0)
	for rows.Next() {
		var c checkin.Checkin
		if err := rows.Scan(&c.ID, &c.StudentID, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan checkin: %w", err)
		}
		c.CreatedAt = c.CreatedAt.UTC()
		out = append(out, c)
	}
	return out, rows.Err()
}

func insertCheckin(ctx context.Context, q Querier, c *checkin.Checkin) error {
	err := q.QueryRow(ctx,
		`INSERT INTO checkins (student_id, created_at) VALUES ($1, $2) RETURNING id`,
		c.StudentID, c.CreatedAt,
	).Scan(&c.ID)
	if err != nil {
		return fmt.Errorf("failed to create checkin: %w", err)
	}
	return nil
}
