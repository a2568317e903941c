package shared

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDomainError_Classification(t *testing.T) {
	wrapped := fmt.Errorf("handler: %w", ErrStudentNotFound)

	assert.True(t, IsNotFound(wrapped))
	assert.False(t, IsConflict(wrapped))
	assert.True(t, errors.Is(wrapped, ErrStudentNotFound))
	assert.Equal(t, "Student does not exist", Message(wrapped))

	assert.True(t, IsConflict(ErrEnrollmentExists))
	assert.True(t, IsValidation(Validation("enrollment", "Create", "start_date is required")))

	cause := errors.New("smtp down")
	dispatch := WrapError("notification", "Send", ErrDispatchFailure, "mail failed", cause)
	assert.True(t, IsDispatchFailure(dispatch))
	assert.True(t, errors.Is(dispatch, cause))
	assert.Contains(t, dispatch.Error(), "smtp down")
}

func TestMoney(t *testing.T) {
	m := NewMoney(129, 90)
	assert.Equal(t, int64(12990), m.Cents())
	assert.Equal(t, "389.70", m.Mul(3).String())
	assert.Equal(t, Money(12990), MoneyFromFloat(129.9))

	data, err := json.Marshal(map[string]Money{"price": m})
	require.NoError(t, err)
	assert.JSONEq(t, `{"price": 129.90}`, string(data))

	var decoded struct {
		Price Money `json:"price"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"price": 49.99}`), &decoded))
	assert.Equal(t, Money(4999), decoded.Price)

	require.NoError(t, json.Unmarshal([]byte(`{"price": "10.5"}`), &decoded))
	assert.Equal(t, Money(1050), decoded.Price)
}

func TestDate(t *testing.T) {
	d := NewDate(2024, time.January, 31)
	assert.Equal(t, "2024-02-29", d.AddMonths(1).String())

	data, err := json.Marshal(d)
	require.NoError(t, err)
	assert.Equal(t, `"2024-01-31"`, string(data))

	var parsed Date
	require.NoError(t, json.Unmarshal([]byte(`"2024-03-01T10:00:00Z"`), &parsed))
	assert.Equal(t, NewDate(2024, time.March, 1), parsed)

	assert.Error(t, json.Unmarshal([]byte(`"not-a-date"`), &parsed))
}
