package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type funcJob struct {
	name string
	fn   func(ctx context.Context) error
}

func (j funcJob) Name() string                  { return j.name }
func (j funcJob) Run(ctx context.Context) error { return j.fn(ctx) }

func TestScheduler_RunsDueJobs(t *testing.T) {
	s := New(Config{Tick: 5 * time.Millisecond})

	var runs atomic.Int32
	require.NoError(t, s.Register(funcJob{name: "count", fn: func(context.Context) error {
		runs.Add(1)
		return nil
	}}, Every(10*time.Millisecond)))

	require.NoError(t, s.Start(context.Background()))
	assert.ErrorIs(t, s.Start(context.Background()), ErrSchedulerAlreadyRunning)

	assert.Eventually(t, func() bool { return runs.Load() >= 2 }, time.Second, 5*time.Millisecond)
	require.NoError(t, s.Stop())
	assert.ErrorIs(t, s.Stop(), ErrSchedulerNotRunning)
}

func TestScheduler_ReportsFailuresAndPanics(t *testing.T) {
	s := New(Config{Tick: 5 * time.Millisecond})

	results := make(chan JobResult, 16)
	s.OnJobComplete(func(r JobResult) { results <- r })

	require.NoError(t, s.Register(funcJob{name: "boom", fn: func(context.Context) error {
		panic("kaput")
	}}, Every(time.Millisecond)))

	require.NoError(t, s.Start(context.Background()))
	defer func() { _ = s.Stop() }()

	select {
	case r := <-results:
		assert.Equal(t, "boom", r.JobName)
		require.Error(t, r.Err)
		assert.Contains(t, r.Err.Error(), "kaput")
	case <-time.After(time.Second):
		t.Fatal("job never completed")
	}
}

func TestScheduler_Register(t *testing.T) {
	s := New(Config{})
	job := funcJob{name: "a", fn: func(context.Context) error { return nil }}

	assert.ErrorIs(t, s.Register(nil, Every(time.Second)), ErrNilJob)
	assert.ErrorIs(t, s.Register(job, nil), ErrNilSchedule)
	require.NoError(t, s.Register(job, Every(time.Second)))
	assert.ErrorIs(t, s.Register(job, Every(time.Second)), ErrJobAlreadyExists)
}

func TestScheduler_RunNow(t *testing.T) {
	s := New(Config{})
	want := errors.New("nope")
	require.NoError(t, s.Register(funcJob{name: "a", fn: func(context.Context) error { return want }}, Every(time.Hour)))

	assert.ErrorIs(t, s.RunNow(context.Background(), "a"), want)
	assert.ErrorIs(t, s.RunNow(context.Background(), "missing"), ErrJobNotFound)
}

func TestEvery(t *testing.T) {
	base := time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, base.Add(time.Minute), Every(time.Minute).Next(base))
	assert.Equal(t, "@every 1m0s", Every(time.Minute).String())
}
