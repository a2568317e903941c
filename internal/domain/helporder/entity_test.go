package helporder

import (
	"testing"
	"time"

	"github.com/gympoint/academy-hub/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	now := time.Date(2024, time.May, 2, 10, 0, 0, 0, time.UTC)

	h, err := New(3, "  How do I warm up?  ", now)
	require.NoError(t, err)
	assert.Equal(t, "How do I warm up?", h.Question)
	assert.False(t, h.IsAnswered())

	_, err = New(3, "   ", now)
	assert.True(t, shared.IsValidation(err))
}

func TestRespond(t *testing.T) {
	now := time.Date(2024, time.May, 2, 10, 0, 0, 0, time.UTC)
	h, err := New(3, "Question", now)
	require.NoError(t, err)

	assert.True(t, shared.IsValidation(h.Respond("", now)))
	assert.False(t, h.IsAnswered())

	answeredAt := now.Add(time.Hour)
	require.NoError(t, h.Respond("Stretch for ten minutes", answeredAt))
	require.True(t, h.IsAnswered())
	assert.Equal(t, "Stretch for ten minutes", *h.Answer)
	assert.Equal(t, answeredAt, *h.AnsweredAt)
}
