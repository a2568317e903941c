package notification

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/gympoint/academy-hub/internal/domain/enrollment"
	"github.com/gympoint/academy-hub/internal/domain/plan"
	"github.com/gympoint/academy-hub/internal/domain/shared"
	"github.com/gympoint/academy-hub/internal/domain/student"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTask_RoundTripsEnrollmentPayload(t *testing.T) {
	s := &student.Student{ID: 1, Name: "Ana", Email: "ana@example.com"}
	p := &plan.Plan{ID: 2, Title: "Gold", Duration: 3, Price: shared.NewMoney(109, 0)}
	e, err := enrollment.New(s, p, shared.NewDate(2024, time.May, 1), time.Now())
	require.NoError(t, err)
	e.ID = 9

	task, err := NewTask(KeyEnrollmentMail, NewEnrollmentMailPayload(EnrollmentCreated, e, p, s))
	require.NoError(t, err)
	assert.NotEmpty(t, task.ID)
	assert.Equal(t, KeyEnrollmentMail, task.Key)

	var got EnrollmentMailPayload
	require.NoError(t, task.Decode(&got))
	assert.Equal(t, EnrollmentCreated, got.Event)
	assert.Equal(t, int64(9), got.Enrollment.ID)
	assert.Equal(t, shared.NewDate(2024, time.August, 1), got.Enrollment.EndDate)
	assert.Equal(t, shared.NewMoney(327, 0), got.Enrollment.Price)
	assert.Equal(t, "Gold", got.Plan.Title)
	assert.Equal(t, "ana@example.com", got.Student.Email)
	assert.Equal(t, int64(1), got.Student.ID)
}

func TestTask_DecodeMalformedIsPermanent(t *testing.T) {
	task := &Task{Key: KeyHelpOrderAnswerMail, Payload: []byte(`{"help_order": 42}`)}

	var got HelpOrderAnswerMailPayload
	err := task.Decode(&got)
	require.Error(t, err)
	assert.True(t, IsPermanent(err))
}

func TestPermanent(t *testing.T) {
	assert.Nil(t, Permanent(nil))

	cause := errors.New("550 mailbox unavailable")
	err := fmt.Errorf("send: %w", Permanent(cause))
	assert.True(t, IsPermanent(err))
	assert.True(t, errors.Is(err, cause))
	assert.False(t, IsPermanent(cause))
}

func TestAddress_String(t *testing.T) {
	assert.Equal(t, "Ana <ana@example.com>", Address{Name: "Ana", Email: "ana@example.com"}.String())
	assert.Equal(t, "ana@example.com", Address{Email: "ana@example.com"}.String())
}
