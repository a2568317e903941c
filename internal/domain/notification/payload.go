package notification

import (
	"time"

	"github.com/gympoint/academy-hub/internal/domain/enrollment"
	"github.com/gympoint/academy-hub/internal/domain/helporder"
	"github.com/gympoint/academy-hub/internal/domain/plan"
	"github.com/gympoint/academy-hub/internal/domain/shared"
	"github.com/gympoint/academy-hub/internal/domain/student"
)

// Payloads are snapshots taken at mutation time. Handlers render from them
// alone and never look records up again.

// ─────────────────────────────────────────────────────────────────────────────
// EnrollmentMail
// ─────────────────────────────────────────────────────────────────────────────

// EnrollmentEvent tells the handler which mail variant to send.
type EnrollmentEvent string

const (
	EnrollmentCreated EnrollmentEvent = "created"
	EnrollmentUpdated EnrollmentEvent = "updated"
)

// EnrollmentMailPayload is the payload of KeyEnrollmentMail.
type EnrollmentMailPayload struct {
	Event      EnrollmentEvent    `json:"event"`
	Enrollment EnrollmentSnapshot `json:"enrollment"`
	Plan       PlanSnapshot       `json:"plan"`
	Student    student.Contact    `json:"student"`
}

// EnrollmentSnapshot holds the derived enrollment fields.
type EnrollmentSnapshot struct {
	ID        int64        `json:"id"`
	StartDate shared.Date  `json:"start_date"`
	EndDate   shared.Date  `json:"end_date"`
	Price     shared.Money `json:"price"`
}

// PlanSnapshot holds the plan fields used in the confirmation.
type PlanSnapshot struct {
	Title    string       `json:"title"`
	Duration int          `json:"duration"`
	Price    shared.Money `json:"price"`
}

// NewEnrollmentMailPayload snapshots the records used to compute e.
func NewEnrollmentMailPayload(event EnrollmentEvent, e *enrollment.Enrollment, p *plan.Plan, s *student.Student) EnrollmentMailPayload {
	return EnrollmentMailPayload{
		Event: event,
		Enrollment: EnrollmentSnapshot{
			ID:        e.ID,
			StartDate: e.StartDate,
			EndDate:   e.EndDate,
			Price:     e.Price,
		},
		Plan: PlanSnapshot{
			Title:    p.Title,
			Duration: p.Duration,
			Price:    p.Price,
		},
		Student: s.Contact(),
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// HelpOrderAnswerMail
// ─────────────────────────────────────────────────────────────────────────────

// HelpOrderAnswerMailPayload is the payload of KeyHelpOrderAnswerMail.
type HelpOrderAnswerMailPayload struct {
	HelpOrder HelpOrderSnapshot `json:"help_order"`
}

// HelpOrderSnapshot is the answered help order with its recipient.
type HelpOrderSnapshot struct {
	ID       int64           `json:"id"`
	Question string          `json:"question"`
	Answer   string          `json:"answer"`
	AnswerAt time.Time       `json:"answer_at"`
	Student  student.Contact `json:"student"`
}

// NewHelpOrderAnswerMailPayload snapshots an answered help order.
func NewHelpOrderAnswerMailPayload(h *helporder.HelpOrder, s student.Contact) HelpOrderAnswerMailPayload {
	snap := HelpOrderSnapshot{
		ID:       h.ID,
		Question: h.Question,
		Student:  s,
	}
	if h.Answer != nil {
		snap.Answer = *h.Answer
	}
	if h.AnsweredAt != nil {
		snap.AnswerAt = *h.AnsweredAt
	}
	return HelpOrderAnswerMailPayload{HelpOrder: snap}
}
