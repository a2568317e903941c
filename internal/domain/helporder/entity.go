// Package helporder contains student support questions and their answers.
package helporder

import (
	"context"
	"strings"
	"time"

	"github.com/gympoint/academy-hub/internal/domain/shared"
	"github.com/gympoint/academy-hub/internal/domain/student"
)

// HelpOrder is a question asked by a student, optionally answered.
type HelpOrder struct {
	ID        int64  `json:"id"`
	StudentID int64  `json:"student_id"`
	Question  string `json:"question"`

	// Answer and AnsweredAt are nil until answered and are set together.
	Answer     *string    `json:"answer"`
	AnsweredAt *time.Time `json:"answer_at"`

	CreatedAt time.Time `json:"created_at"`

	// Student is populated by reads that join the student.
	Student *student.Summary `json:"student,omitempty"`
}

// New creates an unanswered help order.
func New(studentID int64, question string, now time.Time) (*HelpOrder, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, shared.Validation("help_order", "Create", "question is required")
	}
	return &HelpOrder{StudentID: studentID, Question: question, CreatedAt: now}, nil
}

// IsAnswered reports whether an answer was recorded.
func (h *HelpOrder) IsAnswered() bool {
	return h.Answer != nil
}

// Respond records the answer and its timestamp together.
// Answering twice overwrites the previous answer.
func (h *HelpOrder) Respond(answer string, now time.Time) error {
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return shared.Validation("help_order", "Answer", "answer is required")
	}
	h.Answer = &answer
	h.AnsweredAt = &now
	return nil
}

// Repository persists help orders.
type Repository interface {
	// Create stores h and assigns its ID.
	Create(ctx context.Context, h *HelpOrder) error

	// GetByID returns the help order with its student summary (name and
	// email) populated. Returns shared.ErrHelpOrderNotFound when absent.
	GetByID(ctx context.Context, id int64) (*HelpOrder, error)

	// SaveAnswer persists Answer and AnsweredAt.
	SaveAnswer(ctx context.Context, h *HelpOrder) error

	// ListByStudent returns the student's help orders ordered by created_at, then id.
	ListByStudent(ctx context.Context, studentID int64) ([]*HelpOrder, error)
}
