package query

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gympoint/academy-hub/internal/domain/checkin"
	"github.com/gympoint/academy-hub/internal/domain/enrollment"
	"github.com/gympoint/academy-hub/internal/domain/helporder"
	"github.com/gympoint/academy-hub/internal/domain/plan"
	"github.com/gympoint/academy-hub/internal/domain/shared"
	"github.com/gympoint/academy-hub/internal/domain/student"
	"github.com/gympoint/academy-hub/internal/infrastructure/persistence/memory"
)

func seededStore(t *testing.T) *memory.Store {
	t.Helper()
	ctx := context.Background()
	store := memory.NewStore()
	now := time.Date(2024, time.June, 10, 12, 0, 0, 0, time.UTC)

	ana := &student.Student{ID: 1, Name: "Ana", Email: "ana@example.com"}
	gold := &plan.Plan{ID: 2, Title: "Gold", Duration: 3, Price: shared.NewMoney(109, 0)}
	require.NoError(t, store.Students().Save(ctx, ana))
	require.NoError(t, store.Plans().Save(ctx, gold))

	e, err := enrollment.New(ana, gold, shared.NewDate(2024, time.June, 1), now)
	require.NoError(t, err)
	require.NoError(t, store.Enrollments().Create(ctx, e))

	for _, age := range []time.Duration{48 * time.Hour, 24 * time.Hour, 0} {
		require.NoError(t, store.Checkins().Create(ctx, &checkin.Checkin{StudentID: 1, CreatedAt: now.Add(-age)}))
	}

	for i, q := range []string{"first", "second"} {
		h, err := helporder.New(1, q, now.Add(time.Duration(i)*time.Minute))
		require.NoError(t, err)
		require.NoError(t, store.HelpOrders().Create(ctx, h))
	}
	return store
}

func TestListEnrollments(t *testing.T) {
	store := seededStore(t)
	h := NewListEnrollmentsHandler(store.Enrollments())

	first, err := h.Handle(context.Background())
	require.NoError(t, err)
	require.Len(t, first, 1)
	assert.Equal(t, "Ana", first[0].Student.Name)
	assert.Equal(t, "ana@example.com", first[0].Student.Email)
	assert.Equal(t, "Gold", first[0].Plan.Title)
	assert.Equal(t, shared.NewMoney(327, 0), first[0].Price)

	second, err := h.Handle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestListEnrollments_Empty(t *testing.T) {
	items, err := NewListEnrollmentsHandler(memory.NewStore().Enrollments()).Handle(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, items)
	assert.Empty(t, items)
}

func TestListCheckins(t *testing.T) {
	store := seededStore(t)
	h := NewListCheckinsHandler(store.Students(), store.Checkins())

	first, err := h.Handle(context.Background(), ListCheckinsQuery{StudentID: 1})
	require.NoError(t, err)
	require.Len(t, first, 3)
	assert.True(t, first[0].CreatedAt.Before(first[1].CreatedAt))
	assert.True(t, first[1].CreatedAt.Before(first[2].CreatedAt))

	second, err := h.Handle(context.Background(), ListCheckinsQuery{StudentID: 1})
	require.NoError(t, err)
	assert.Equal(t, first, second)

	_, err = h.Handle(context.Background(), ListCheckinsQuery{StudentID: 9})
	assert.True(t, shared.IsNotFound(err))
}

func TestListHelpOrders(t *testing.T) {
	store := seededStore(t)
	h := NewListHelpOrdersHandler(store.Students(), store.HelpOrders())

	first, err := h.Handle(context.Background(), ListHelpOrdersQuery{StudentID: 1})
	require.NoError(t, err)
	require.Len(t, first, 2)
	assert.Equal(t, "first", first[0].Question)
	assert.Equal(t, "second", first[1].Question)
	require.NotNil(t, first[0].Student)
	assert.Equal(t, "Ana", first[0].Student.Name)
	assert.Empty(t, first[0].Student.Email)

	second, err := h.Handle(context.Background(), ListHelpOrdersQuery{StudentID: 1})
	require.NoError(t, err)
	assert.Equal(t, first, second)

	_, err = h.Handle(context.Background(), ListHelpOrdersQuery{StudentID: 9})
	assert.True(t, shared.IsNotFound(err))
}
