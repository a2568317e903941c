package command

import (
	"context"
	"fmt"

	"github.com/gympoint/academy-hub/internal/domain/checkin"
	"github.com/gympoint/academy-hub/internal/domain/shared"
	"github.com/gympoint/academy-hub/internal/domain/student"
	"github.com/gympoint/academy-hub/pkg/logger"
	"go.uber.org/zap"
)

// ══════════════════════════════════════════════════════════════════════════════
// RECORD CHECKIN COMMAND
// Enforces the attendance quota over a trailing window. The quota is evaluated
// against the full history under a per-student lock, so two concurrent
// check-ins can never both pass against the same count.
// ══════════════════════════════════════════════════════════════════════════════

// RecordCheckinCommand records an attendance.
type RecordCheckinCommand struct {
	StudentID int64
}

// Validate validates the command.
func (c RecordCheckinCommand) Validate() error {
	if c.StudentID <= 0 {
		return shared.Validation("checkin", "Record", "student id must be a positive integer")
	}
	return nil
}

// RecordCheckinHandler handles RecordCheckinCommand.
type RecordCheckinHandler struct {
	students student.Repository
	checkins checkin.Repository
	policy   checkin.QuotaPolicy
	clock    Clock
	log      *zap.Logger
}

// NewRecordCheckinHandler creates a new RecordCheckinHandler. A zero policy
// falls back to checkin.DefaultQuotaPolicy.
func NewRecordCheckinHandler(
	students student.Repository,
	checkins checkin.Repository,
	policy checkin.QuotaPolicy,
	clock Clock,
	log *zap.Logger,
) *RecordCheckinHandler {
	if policy.Limit <= 0 || policy.Window <= 0 {
		policy = checkin.DefaultQuotaPolicy()
	}
	if log == nil {
		log = zap.NewNop()
	}

	return &RecordCheckinHandler{
		students: students,
		checkins: checkins,
		policy:   policy,
		clock:    clock,
		log:      log,
	}
}

// Handle stores a check-in dated now, or rejects it with a quota error that
// reports the recent count.
func (h *RecordCheckinHandler) Handle(ctx context.Context, cmd RecordCheckinCommand) (*checkin.Checkin, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	if _, err := h.students.GetByID(ctx, cmd.StudentID); err != nil {
		return nil, fmt.Errorf("record_checkin: %w", err)
	}

	var created *checkin.Checkin
	err := h.checkins.WithinStudentLock(ctx, cmd.StudentID, func(store checkin.Store) error {
		history, err := store.ListByStudent(ctx, cmd.StudentID)
		if err != nil {
			return fmt.Errorf("load history: %w", err)
		}

		now := h.clock.now()
		if err := h.policy.Check(history, now); err != nil {
			return err
		}

		c := &checkin.Checkin{StudentID: cmd.StudentID, CreatedAt: now}
		if err := store.Create(ctx, c); err != nil {
			return fmt.Errorf("store checkin: %w", err)
		}
		created = c
		return nil
	})
	if err != nil {
		if shared.IsConflict(err) {
			h.log.Info("checkin rejected", logger.StudentID(cmd.StudentID), zap.String("reason", shared.Message(err)))
		}
		return nil, fmt.Errorf("record_checkin: %w", err)
	}

	h.log.Debug("checkin recorded", logger.StudentID(cmd.StudentID))
	return created, nil
}
