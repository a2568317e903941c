// Package command contains write operations (CQRS - Commands).
package command

import (
	"context"
	"fmt"

	"github.com/gympoint/academy-hub/internal/domain/enrollment"
	"github.com/gympoint/academy-hub/internal/domain/notification"
	"github.com/gympoint/academy-hub/internal/domain/plan"
	"github.com/gympoint/academy-hub/internal/domain/shared"
	"github.com/gympoint/academy-hub/internal/domain/student"
	"github.com/gympoint/academy-hub/pkg/logger"
	"go.uber.org/zap"
)

// ══════════════════════════════════════════════════════════════════════════════
// DEPENDENCIES
// ══════════════════════════════════════════════════════════════════════════════

// EnrollmentDependencies are shared by the enrollment command handlers.
type EnrollmentDependencies struct {
	Students    student.Repository
	Plans       plan.Repository
	Enrollments enrollment.Repository
	Notifier    *Notifier
	Logger      *zap.Logger
	Clock       Clock
}

func (d EnrollmentDependencies) log() *zap.Logger {
	if d.Logger == nil {
		return zap.NewNop()
	}
	return d.Logger
}

// EnrollmentResult is returned by create and update.
type EnrollmentResult struct {
	// Enrollment is the stored record.
	Enrollment *enrollment.Enrollment

	// Notified is true when the EnrollmentMail task was enqueued.
	Notified bool
}

// resolveRefs loads the student and plan an enrollment points at.
func (d EnrollmentDependencies) resolveRefs(ctx context.Context, studentID, planID int64) (*student.Student, *plan.Plan, error) {
	s, err := d.Students.GetByID(ctx, studentID)
	if err != nil {
		return nil, nil, err
	}

	p, err := d.Plans.GetByID(ctx, planID)
	if err != nil {
		return nil, nil, err
	}

	return s, p, nil
}

// ensurePairFree fails with shared.ErrEnrollmentExists when another
// enrollment holds the pair.
func (d EnrollmentDependencies) ensurePairFree(ctx context.Context, studentID, planID, excludeID int64) error {
	exists, err := d.Enrollments.ExistsForPair(ctx, studentID, planID, excludeID)
	if err != nil {
		return fmt.Errorf("check duplicate enrollment: %w", err)
	}
	if exists {
		return shared.ErrEnrollmentExists
	}
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// CREATE ENROLLMENT COMMAND
// ══════════════════════════════════════════════════════════════════════════════

// CreateEnrollmentCommand enrolls a student in a plan.
type CreateEnrollmentCommand struct {
	StudentID int64
	PlanID    int64
	StartDate shared.Date
}

// Validate validates the command.
func (c CreateEnrollmentCommand) Validate() error {
	if c.StudentID <= 0 {
		return shared.Validation("enrollment", "Create", "student_id must be a positive integer")
	}
	if c.PlanID <= 0 {
		return shared.Validation("enrollment", "Create", "plan_id must be a positive integer")
	}
	if c.StartDate.IsZero() {
		return shared.Validation("enrollment", "Create", "start_date is required")
	}
	return nil
}

// CreateEnrollmentHandler handles CreateEnrollmentCommand.
type CreateEnrollmentHandler struct {
	deps EnrollmentDependencies
}

// NewCreateEnrollmentHandler creates a new CreateEnrollmentHandler.
func NewCreateEnrollmentHandler(deps EnrollmentDependencies) *CreateEnrollmentHandler {
	return &CreateEnrollmentHandler{deps: deps}
}

// Handle validates references, computes the terms, stores the enrollment and
// enqueues the confirmation mail. Every failed check returns immediately.
func (h *CreateEnrollmentHandler) Handle(ctx context.Context, cmd CreateEnrollmentCommand) (*EnrollmentResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	s, p, err := h.deps.resolveRefs(ctx, cmd.StudentID, cmd.PlanID)
	if err != nil {
		return nil, fmt.Errorf("create_enrollment: %w", err)
	}

	if err := h.deps.ensurePairFree(ctx, s.ID, p.ID, 0); err != nil {
		return nil, fmt.Errorf("create_enrollment: %w", err)
	}

	e, err := enrollment.New(s, p, cmd.StartDate, h.deps.Clock.now())
	if err != nil {
		return nil, err
	}

	// The unique constraint still catches a concurrent create that passed the
	// check above.
	if err := h.deps.Enrollments.Create(ctx, e); err != nil {
		return nil, fmt.Errorf("create_enrollment: %w", err)
	}

	h.deps.log().Info("enrollment created",
		logger.EnrollmentID(e.ID),
		logger.StudentID(s.ID),
		logger.PlanID(p.ID),
	)

	payload := notification.NewEnrollmentMailPayload(notification.EnrollmentCreated, e, p, s)
	return &EnrollmentResult{
		Enrollment: e,
		Notified:   h.deps.Notifier.Notify(ctx, notification.KeyEnrollmentMail, payload),
	}, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// UPDATE ENROLLMENT COMMAND
// ══════════════════════════════════════════════════════════════════════════════

// UpdateEnrollmentCommand changes an enrollment. Nil fields keep their
// current value.
type UpdateEnrollmentCommand struct {
	ID        int64
	StudentID *int64
	PlanID    *int64
	StartDate *shared.Date
}

// Validate validates the command.
func (c UpdateEnrollmentCommand) Validate() error {
	if c.ID <= 0 {
		return shared.Validation("enrollment", "Update", "id must be a positive integer")
	}
	if c.StudentID != nil && *c.StudentID <= 0 {
		return shared.Validation("enrollment", "Update", "student_id must be a positive integer")
	}
	if c.PlanID != nil && *c.PlanID <= 0 {
		return shared.Validation("enrollment", "Update", "plan_id must be a positive integer")
	}
	if c.StartDate != nil && c.StartDate.IsZero() {
		return shared.Validation("enrollment", "Update", "start_date is invalid")
	}
	return nil
}

// UpdateEnrollmentHandler handles UpdateEnrollmentCommand.
type UpdateEnrollmentHandler struct {
	deps EnrollmentDependencies
}

// NewUpdateEnrollmentHandler creates a new UpdateEnrollmentHandler.
func NewUpdateEnrollmentHandler(deps EnrollmentDependencies) *UpdateEnrollmentHandler {
	return &UpdateEnrollmentHandler{deps: deps}
}

// Handle applies the changes, recomputes the terms and enqueues exactly one
// EnrollmentMail task.
func (h *UpdateEnrollmentHandler) Handle(ctx context.Context, cmd UpdateEnrollmentCommand) (*EnrollmentResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	e, err := h.deps.Enrollments.GetByID(ctx, cmd.ID)
	if err != nil {
		return nil, fmt.Errorf("update_enrollment: %w", err)
	}

	studentID, planID, start := e.StudentID, e.PlanID, e.StartDate
	if cmd.StudentID != nil {
		studentID = *cmd.StudentID
	}
	if cmd.PlanID != nil {
		planID = *cmd.PlanID
	}
	if cmd.StartDate != nil {
		start = *cmd.StartDate
	}

	s, p, err := h.deps.resolveRefs(ctx, studentID, planID)
	if err != nil {
		return nil, fmt.Errorf("update_enrollment: %w", err)
	}

	if studentID != e.StudentID || planID != e.PlanID {
		if err := h.deps.ensurePairFree(ctx, studentID, planID, e.ID); err != nil {
			return nil, fmt.Errorf("update_enrollment: %w", err)
		}
	}

	if err := e.Reassign(s, p, start, h.deps.Clock.now()); err != nil {
		return nil, err
	}

	if err := h.deps.Enrollments.Update(ctx, e); err != nil {
		return nil, fmt.Errorf("update_enrollment: %w", err)
	}

	h.deps.log().Info("enrollment updated",
		logger.EnrollmentID(e.ID),
		logger.StudentID(s.ID),
		logger.PlanID(p.ID),
	)

	payload := notification.NewEnrollmentMailPayload(notification.EnrollmentUpdated, e, p, s)
	return &EnrollmentResult{
		Enrollment: e,
		Notified:   h.deps.Notifier.Notify(ctx, notification.KeyEnrollmentMail, payload),
	}, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// DELETE ENROLLMENT COMMAND
// ══════════════════════════════════════════════════════════════════════════════

// DeleteEnrollmentCommand cancels an enrollment.
type DeleteEnrollmentCommand struct {
	ID int64
}

// Validate validates the command.
func (c DeleteEnrollmentCommand) Validate() error {
	if c.ID <= 0 {
		return shared.Validation("enrollment", "Delete", "id must be a positive integer")
	}
	return nil
}

// DeleteEnrollmentHandler handles DeleteEnrollmentCommand.
type DeleteEnrollmentHandler struct {
	deps EnrollmentDependencies
}

// NewDeleteEnrollmentHandler creates a new DeleteEnrollmentHandler.
func NewDeleteEnrollmentHandler(deps EnrollmentDependencies) *DeleteEnrollmentHandler {
	return &DeleteEnrollmentHandler{deps: deps}
}

// Handle hard-deletes the enrollment. No notification is sent.
func (h *DeleteEnrollmentHandler) Handle(ctx context.Context, cmd DeleteEnrollmentCommand) error {
	if err := cmd.Validate(); err != nil {
		return err
	}

	if err := h.deps.Enrollments.Delete(ctx, cmd.ID); err != nil {
		return fmt.Errorf("delete_enrollment: %w", err)
	}

	h.deps.log().Info("enrollment deleted", logger.EnrollmentID(cmd.ID))
	return nil
}
