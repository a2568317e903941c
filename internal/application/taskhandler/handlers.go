// Package taskhandler contains the notification task handlers run by the
// worker. Each handler renders its payload into a notification.Mail and hands
// it to the mail transport. Handlers are pure functions of the payload, so a
// redelivered task produces the same mail.
package taskhandler

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/gympoint/academy-hub/config"
	"github.com/gympoint/academy-hub/internal/domain/notification"
	"github.com/gympoint/academy-hub/internal/domain/student"
	"github.com/gympoint/academy-hub/pkg/logger"
)

// Mail subjects and template names.
const (
	SubjectEnrollmentCreated = "Matrícula realizada"
	SubjectEnrollmentUpdated = "Matrícula atualizada"
	SubjectHelpOrderAnswered = "Seu pedido de auxílio foi respondido"

	TemplateEnrollment       = "enrollments"
	TemplateEnrollmentUpdate = "enrollmentsUpdate"
	TemplateHelpOrderAnswer  = "helpOrderAnswer"
)

// FeatureFlags is satisfied by *config.FeatureFlags.
type FeatureFlags interface {
	IsEnabled(featureName string, ctx *config.FeatureContext) bool
}

// Dependencies are shared by all handlers.
type Dependencies struct {
	Mailer notification.Mailer
	Flags  FeatureFlags

	// Location renders timestamps; defaults to São Paulo.
	Location *time.Location

	Logger *zap.Logger
}

// Handler executes one task.
type Handler func(ctx context.Context, task *notification.Task) error

// Handlers returns the handler for every task key the core produces.
func Handlers(deps Dependencies) map[notification.TaskKey]Handler {
	return map[notification.TaskKey]Handler{
		notification.KeyEnrollmentMail:      NewEnrollmentMailHandler(deps).Handle,
		notification.KeyHelpOrderAnswerMail: NewHelpOrderAnswerMailHandler(deps).Handle,
	}
}

// enabled evaluates feature for the recipient, so rollouts and per-student
// overrides apply.
func (d Dependencies) enabled(feature string, to student.Contact) bool {
	if d.Flags == nil {
		return true
	}
	var fc *config.FeatureContext
	if to.ID != 0 {
		fc = config.ForStudent(to.ID)
	}
	return d.Flags.IsEnabled(feature, fc)
}

func (d Dependencies) log() *zap.Logger {
	if d.Logger == nil {
		return zap.NewNop()
	}
	return d.Logger
}

var errNoRecipient = errors.New("payload has no recipient email")

// ══════════════════════════════════════════════════════════════════════════════
// ENROLLMENT MAIL
// ══════════════════════════════════════════════════════════════════════════════

// EnrollmentMailHandler confirms created and updated enrollments.
type EnrollmentMailHandler struct {
	deps Dependencies
}

// NewEnrollmentMailHandler creates a new EnrollmentMailHandler.
func NewEnrollmentMailHandler(deps Dependencies) *EnrollmentMailHandler {
	return &EnrollmentMailHandler{deps: deps}
}

// Handle renders and sends the enrollment mail.
func (h *EnrollmentMailHandler) Handle(ctx context.Context, task *notification.Task) error {
	var p notification.EnrollmentMailPayload
	if err := task.Decode(&p); err != nil {
		return err
	}
	if p.Student.Email == "" {
		return notification.Permanent(errNoRecipient)
	}

	if !h.deps.enabled(config.FeatureNotifyEnrollmentMail, p.Student) {
		h.deps.log().Info("enrollment mail disabled, skipping", logger.TaskID(task.ID))
		return nil
	}

	subject, template := SubjectEnrollmentCreated, TemplateEnrollment
	if p.Event == notification.EnrollmentUpdated && h.deps.enabled(config.FeatureNotifyEnrollmentUpdate, p.Student) {
		subject, template = SubjectEnrollmentUpdated, TemplateEnrollmentUpdate
	}

	return h.deps.Mailer.Send(ctx, notification.Mail{
		To:       notification.Address{Name: p.Student.Name, Email: p.Student.Email},
		Subject:  subject,
		Template: template,
		Context: map[string]any{
			"student":       p.Student.Name,
			"plan":          p.Plan.Title,
			"duration":      p.Plan.Duration,
			"monthly_price": formatBRL(p.Plan.Price),
			"start_date":    formatDate(p.Enrollment.StartDate),
			"end_date":      formatDate(p.Enrollment.EndDate),
			"total":         formatBRL(p.Enrollment.Price),
		},
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// HELP ORDER ANSWER MAIL
// ══════════════════════════════════════════════════════════════════════════════

// HelpOrderAnswerMailHandler sends an answered question back to the student.
type HelpOrderAnswerMailHandler struct {
	deps Dependencies
}

// NewHelpOrderAnswerMailHandler creates a new HelpOrderAnswerMailHandler.
func NewHelpOrderAnswerMailHandler(deps Dependencies) *HelpOrderAnswerMailHandler {
	return &HelpOrderAnswerMailHandler{deps: deps}
}

// Handle renders and sends the answer mail.
func (h *HelpOrderAnswerMailHandler) Handle(ctx context.Context, task *notification.Task) error {
	var p notification.HelpOrderAnswerMailPayload
	if err := task.Decode(&p); err != nil {
		return err
	}

	order := p.HelpOrder
	if order.Student.Email == "" {
		return notification.Permanent(errNoRecipient)
	}
	if order.Answer == "" || order.AnswerAt.IsZero() {
		return notification.Permanent(errors.New("payload has no answer"))
	}

	if !h.deps.enabled(config.FeatureNotifyHelpOrderAnswerMail, order.Student) {
		h.deps.log().Info("help order answer mail disabled, skipping", logger.TaskID(task.ID))
		return nil
	}

	return h.deps.Mailer.Send(ctx, notification.Mail{
		To:       notification.Address{Name: order.Student.Name, Email: order.Student.Email},
		Subject:  SubjectHelpOrderAnswered,
		Template: TemplateHelpOrderAnswer,
		Context: map[string]any{
			"student":   order.Student.Name,
			"question":  order.Question,
			"answer":    order.Answer,
			"answer_at": formatInstant(order.AnswerAt, h.deps.Location),
		},
	})
}
