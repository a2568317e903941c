package command

import (
	"context"
	"fmt"

	"github.com/gympoint/academy-hub/internal/domain/helporder"
	"github.com/gympoint/academy-hub/internal/domain/notification"
	"github.com/gympoint/academy-hub/internal/domain/shared"
	"github.com/gympoint/academy-hub/internal/domain/student"
	"github.com/gympoint/academy-hub/pkg/logger"
	"go.uber.org/zap"
)

// ══════════════════════════════════════════════════════════════════════════════
// CREATE HELP ORDER COMMAND
// ══════════════════════════════════════════════════════════════════════════════

// CreateHelpOrderCommand records a question from a student.
type CreateHelpOrderCommand struct {
	StudentID int64
	Question  string
}

// Validate validates the command.
func (c CreateHelpOrderCommand) Validate() error {
	if c.StudentID <= 0 {
		return shared.Validation("help_order", "Create", "student id must be a positive integer")
	}
	return nil
}

// CreateHelpOrderHandler handles CreateHelpOrderCommand.
type CreateHelpOrderHandler struct {
	students   student.Repository
	helpOrders helporder.Repository
	clock      Clock
}

// NewCreateHelpOrderHandler creates a new CreateHelpOrderHandler.
func NewCreateHelpOrderHandler(students student.Repository, helpOrders helporder.Repository, clock Clock) *CreateHelpOrderHandler {
	return &CreateHelpOrderHandler{students: students, helpOrders: helpOrders, clock: clock}
}

// Handle stores an unanswered help order. Nothing is enqueued on creation.
func (h *CreateHelpOrderHandler) Handle(ctx context.Context, cmd CreateHelpOrderCommand) (*helporder.HelpOrder, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	order, err := helporder.New(cmd.StudentID, cmd.Question, h.clock.now())
	if err != nil {
		return nil, err
	}

	if _, err := h.students.GetByID(ctx, cmd.StudentID); err != nil {
		return nil, fmt.Errorf("create_help_order: %w", err)
	}

	if err := h.helpOrders.Create(ctx, order); err != nil {
		return nil, fmt.Errorf("create_help_order: %w", err)
	}
	return order, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// ANSWER HELP ORDER COMMAND
// ══════════════════════════════════════════════════════════════════════════════

// AnswerHelpOrderCommand answers a help order.
type AnswerHelpOrderCommand struct {
	ID     int64
	Answer string
}

// Validate validates the command.
func (c AnswerHelpOrderCommand) Validate() error {
	if c.ID <= 0 {
		return shared.Validation("help_order", "Answer", "id must be a positive integer")
	}
	return nil
}

// HelpOrderResult is returned by AnswerHelpOrderHandler.
type HelpOrderResult struct {
	HelpOrder *helporder.HelpOrder

	// Notified is true when the HelpOrderAnswerMail task was enqueued.
	Notified bool
}

// AnswerHelpOrderHandler handles AnswerHelpOrderCommand.
type AnswerHelpOrderHandler struct {
	students   student.Repository
	helpOrders helporder.Repository
	notifier   *Notifier
	clock      Clock
	log        *zap.Logger
}

// NewAnswerHelpOrderHandler creates a new AnswerHelpOrderHandler.
func NewAnswerHelpOrderHandler(
	students student.Repository,
	helpOrders helporder.Repository,
	notifier *Notifier,
	clock Clock,
	log *zap.Logger,
) *AnswerHelpOrderHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &AnswerHelpOrderHandler{
		students:   students,
		helpOrders: helpOrders,
		notifier:   notifier,
		clock:      clock,
		log:        log,
	}
}

// Handle records the answer and its timestamp, then enqueues the answer mail
// with the student's name and email embedded.
func (h *AnswerHelpOrderHandler) Handle(ctx context.Context, cmd AnswerHelpOrderCommand) (*HelpOrderResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	order, err := h.helpOrders.GetByID(ctx, cmd.ID)
	if err != nil {
		return nil, fmt.Errorf("answer_help_order: %w", err)
	}

	if order.IsAnswered() {
		h.log.Warn("help order answered again", logger.HelpOrderID(order.ID))
	}

	if err := order.Respond(cmd.Answer, h.clock.now()); err != nil {
		return nil, err
	}

	contact, err := h.recipient(ctx, order)
	if err != nil {
		return nil, fmt.Errorf("answer_help_order: %w", err)
	}

	if err := h.helpOrders.SaveAnswer(ctx, order); err != nil {
		return nil, fmt.Errorf("answer_help_order: %w", err)
	}

	h.log.Info("help order answered",
		logger.HelpOrderID(order.ID),
		logger.StudentID(order.StudentID),
	)

	payload := notification.NewHelpOrderAnswerMailPayload(order, contact)
	return &HelpOrderResult{
		HelpOrder: order,
		Notified:  h.notifier.Notify(ctx, notification.KeyHelpOrderAnswerMail, payload),
	}, nil
}

// recipient returns the student contact embedded in the help order, loading
// the student when the repository did not join it.
func (h *AnswerHelpOrderHandler) recipient(ctx context.Context, order *helporder.HelpOrder) (student.Contact, error) {
	if order.Student != nil && order.Student.Email != "" {
		return student.Contact{ID: order.StudentID, Name: order.Student.Name, Email: order.Student.Email}, nil
	}

	s, err := h.students.GetByID(ctx, order.StudentID)
	if err != nil {
		return student.Contact{}, err
	}
	summary := s.Summary()
	order.Student = &summary
	return s.Contact(), nil
}
