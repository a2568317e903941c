package enrollment

import (
	"testing"
	"time"

	"github.com/gympoint/academy-hub/internal/domain/plan"
	"github.com/gympoint/academy-hub/internal/domain/shared"
	"github.com/gympoint/academy-hub/internal/domain/student"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeTerms(t *testing.T) {
	tests := []struct {
		name     string
		duration int
		price    shared.Money
		start    shared.Date
		wantEnd  shared.Date
		wantCost shared.Money
	}{
		{
			name:     "one month plan",
			duration: 1,
			price:    shared.NewMoney(129, 0),
			start:    shared.NewDate(2024, time.March, 10),
			wantEnd:  shared.NewDate(2024, time.April, 10),
			wantCost: shared.NewMoney(129, 0),
		},
		{
			name:     "clamps january 31 into leap february",
			duration: 1,
			price:    shared.NewMoney(100, 0),
			start:    shared.NewDate(2024, time.January, 31),
			wantEnd:  shared.NewDate(2024, time.February, 29),
			wantCost: shared.NewMoney(100, 0),
		},
		{
			name:     "three month plan",
			duration: 3,
			price:    shared.NewMoney(109, 0),
			start:    shared.NewDate(2024, time.November, 30),
			wantEnd:  shared.NewDate(2025, time.February, 28),
			wantCost: shared.NewMoney(327, 0),
		},
		{
			name:     "six months with cents",
			duration: 6,
			price:    shared.NewMoney(89, 99),
			start:    shared.NewDate(2024, time.August, 31),
			wantEnd:  shared.NewDate(2025, time.February, 28),
			wantCost: shared.NewMoney(539, 94),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &plan.Plan{ID: 1, Title: "Plan", Duration: tt.duration, Price: tt.price}

			terms, err := ComputeTerms(p, tt.start)
			require.NoError(t, err)
			assert.Equal(t, tt.wantEnd, terms.EndDate)
			assert.Equal(t, tt.wantCost, terms.Price)
		})
	}
}

func TestComputeTerms_Invalid(t *testing.T) {
	_, err := ComputeTerms(&plan.Plan{ID: 1, Duration: 0}, shared.NewDate(2024, time.May, 1))
	assert.True(t, shared.IsValidation(err))

	_, err = ComputeTerms(&plan.Plan{ID: 1, Duration: 1}, shared.Date{})
	assert.True(t, shared.IsValidation(err))
}

func TestReassign_RecomputesTerms(t *testing.T) {
	now := time.Date(2024, time.May, 1, 12, 0, 0, 0, time.UTC)
	s := &student.Student{ID: 7, Name: "Ana", Email: "ana@example.com"}
	start := &plan.Plan{ID: 1, Title: "Start", Duration: 1, Price: shared.NewMoney(129, 0)}
	gold := &plan.Plan{ID: 2, Title: "Gold", Duration: 3, Price: shared.NewMoney(109, 0)}

	e, err := New(s, start, shared.NewDate(2024, time.May, 1), now)
	require.NoError(t, err)
	assert.Equal(t, shared.NewDate(2024, time.June, 1), e.EndDate)

	later := now.Add(time.Hour)
	require.NoError(t, e.Reassign(s, gold, e.StartDate, later))
	assert.Equal(t, int64(2), e.PlanID)
	assert.Equal(t, shared.NewDate(2024, time.August, 1), e.EndDate)
	assert.Equal(t, shared.NewMoney(327, 0), e.Price)
	assert.Equal(t, later, e.UpdatedAt)
	assert.Equal(t, now, e.CreatedAt)
}
