package messaging

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gympoint/academy-hub/internal/domain/notification"
	"github.com/gympoint/academy-hub/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestWorker(q *MemoryQueue, maxRetries int) *Worker {
	w := NewWorker(q, WorkerConfig{
		Concurrency:    2,
		PollTimeout:    20 * time.Millisecond,
		HandlerTimeout: time.Second,
		Retry: RetryConfig{
			MaxRetries:     maxRetries,
			InitialBackoff: time.Millisecond,
			MaxBackoff:     5 * time.Millisecond,
		},
		Logger: zap.NewNop(),
	})
	w.Use(RecoveryMiddleware(zap.NewNop()))
	w.Use(LoggingMiddleware(zap.NewNop()))
	return w
}

func enqueueAndDequeue(t *testing.T, q *MemoryQueue, key notification.TaskKey) *notification.Task {
	t.Helper()
	ctx := context.Background()

	task, err := notification.NewTask(key, map[string]string{"hello": "world"})
	require.NoError(t, err)
	require.NoError(t, q.Enqueue(ctx, task))

	got, err := q.Dequeue(ctx, time.Second)
	require.NoError(t, err)
	return got
}

func TestWorker_ProcessTask_Success(t *testing.T) {
	q := NewMemoryQueue(10)
	w := newTestWorker(q, 3)

	var calls atomic.Int32
	require.NoError(t, w.Register(notification.KeyEnrollmentMail, func(ctx context.Context, task *notification.Task) error {
		calls.Add(1)
		return nil
	}))

	task := enqueueAndDequeue(t, q, notification.KeyEnrollmentMail)
	require.NoError(t, w.ProcessTask(context.Background(), task))

	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, 0, q.InFlight())
	assert.Equal(t, 0, q.DeadLetters().Size())
	assert.Equal(t, int64(1), w.Metrics().Snapshot().Succeeded)
}

func TestWorker_ProcessTask_RetriesTransientFailures(t *testing.T) {
	q := NewMemoryQueue(10)
	w := newTestWorker(q, 3)

	var calls atomic.Int32
	require.NoError(t, w.Register(notification.KeyEnrollmentMail, func(ctx context.Context, task *notification.Task) error {
		if calls.Add(1) < 3 {
			return errors.New("smtp timeout")
		}
		return nil
	}))

	task := enqueueAndDequeue(t, q, notification.KeyEnrollmentMail)
	require.NoError(t, w.ProcessTask(context.Background(), task))

	assert.Equal(t, int32(3), calls.Load())
	assert.Equal(t, 2, task.Attempts)
	assert.Equal(t, int64(2), w.Metrics().Snapshot().Retried)
	assert.Equal(t, 0, q.DeadLetters().Size())
}

func TestWorker_ProcessTask_DeadLettersAfterRetries(t *testing.T) {
	q := NewMemoryQueue(10)
	w := newTestWorker(q, 2)

	var calls atomic.Int32
	require.NoError(t, w.Register(notification.KeyHelpOrderAnswerMail, func(ctx context.Context, task *notification.Task) error {
		calls.Add(1)
		return errors.New("connection refused")
	}))

	task := enqueueAndDequeue(t, q, notification.KeyHelpOrderAnswerMail)
	err := w.ProcessTask(context.Background(), task)

	require.Error(t, err)
	assert.True(t, shared.IsDispatchFailure(err))
	assert.Equal(t, int32(3), calls.Load())
	assert.Equal(t, 0, q.InFlight())

	dead := q.DeadLetters().Entries()
	require.Len(t, dead, 1)
	assert.Equal(t, task.ID, dead[0].Task.ID)
	assert.Contains(t, dead[0].Error, "connection refused")
}

func TestWorker_ProcessTask_PermanentErrorSkipsRetries(t *testing.T) {
	q := NewMemoryQueue(10)
	w := newTestWorker(q, 5)

	var calls atomic.Int32
	require.NoError(t, w.Register(notification.KeyEnrollmentMail, func(ctx context.Context, task *notification.Task) error {
		calls.Add(1)
		return notification.Permanent(errors.New("invalid recipient"))
	}))

	task := enqueueAndDequeue(t, q, notification.KeyEnrollmentMail)
	err := w.ProcessTask(context.Background(), task)

	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, 1, q.DeadLetters().Size())
}

func TestWorker_ProcessTask_UnknownKey(t *testing.T) {
	q := NewMemoryQueue(10)
	w := newTestWorker(q, 3)

	task := enqueueAndDequeue(t, q, notification.TaskKey("Unknown"))
	err := w.ProcessTask(context.Background(), task)

	require.Error(t, err)
	assert.True(t, shared.IsDispatchFailure(err))
	assert.Equal(t, 1, q.DeadLetters().Size())
}

func TestWorker_ProcessTask_RecoversPanics(t *testing.T) {
	q := NewMemoryQueue(10)
	w := newTestWorker(q, 1)

	require.NoError(t, w.Register(notification.KeyEnrollmentMail, func(ctx context.Context, task *notification.Task) error {
		panic("template exploded")
	}))

	task := enqueueAndDequeue(t, q, notification.KeyEnrollmentMail)
	err := w.ProcessTask(context.Background(), task)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "template exploded")
	assert.Equal(t, 2, task.Attempts)
}

func TestWorker_RegisterTwice(t *testing.T) {
	w := newTestWorker(NewMemoryQueue(10), 0)
	noop := func(context.Context, *notification.Task) error { return nil }

	require.NoError(t, w.Register(notification.KeyEnrollmentMail, noop))
	assert.Error(t, w.Register(notification.KeyEnrollmentMail, noop))
	assert.Error(t, w.RegisterHandler(notification.KeyHelpOrderAnswerMail, HandlerRegistration{}))
}

func TestWorker_Run_FailureDoesNotStopLoop(t *testing.T) {
	q := NewMemoryQueue(10)
	w := newTestWorker(q, 0)

	delivered := make(chan string, 4)
	require.NoError(t, w.Register(notification.KeyEnrollmentMail, func(ctx context.Context, task *notification.Task) error {
		return errors.New("transport down")
	}))
	require.NoError(t, w.Register(notification.KeyHelpOrderAnswerMail, func(ctx context.Context, task *notification.Task) error {
		delivered <- task.ID
		return nil
	}))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = w.Run(ctx)
		close(done)
	}()

	failing, err := notification.NewTask(notification.KeyEnrollmentMail, struct{}{})
	require.NoError(t, err)
	ok1, err := notification.NewTask(notification.KeyHelpOrderAnswerMail, struct{}{})
	require.NoError(t, err)
	ok2, err := notification.NewTask(notification.KeyHelpOrderAnswerMail, struct{}{})
	require.NoError(t, err)

	for _, task := range []*notification.Task{failing, ok1, ok2} {
		require.NoError(t, q.Enqueue(context.Background(), task))
	}

	got := map[string]bool{}
	for len(got) < 2 {
		select {
		case id := <-delivered:
			got[id] = true
		case <-time.After(2 * time.Second):
			t.Fatal("tasks were not delivered")
		}
	}

	assert.Eventually(t, func() bool { return q.DeadLetters().Size() == 1 }, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop")
	}

	assert.True(t, got[ok1.ID])
	assert.True(t, got[ok2.ID])
}

func TestMemoryQueue_DequeueEmpty(t *testing.T) {
	q := NewMemoryQueue(1)
	_, err := q.Dequeue(context.Background(), 10*time.Millisecond)
	assert.ErrorIs(t, err, notification.ErrQueueEmpty)
}

func TestMemoryQueue_Recover(t *testing.T) {
	q := NewMemoryQueue(1)
	task := enqueueAndDequeue(t, q, notification.KeyEnrollmentMail)
	assert.Equal(t, 1, q.InFlight())

	n, err := q.Recover(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	again, err := q.Dequeue(context.Background(), time.Second)
	require.NoError(t, err)
	assert.Equal(t, task.ID, again.ID)
}
