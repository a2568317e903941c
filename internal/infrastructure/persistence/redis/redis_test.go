package redis

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gympoint/academy-hub/internal/domain/notification"
	"github.com/gympoint/academy-hub/internal/domain/shared"
	"github.com/gympoint/academy-hub/internal/domain/student"
)

func newTestClient(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func mustTask(t *testing.T, key notification.TaskKey, payload any) *notification.Task {
	t.Helper()
	task, err := notification.NewTask(key, payload)
	require.NoError(t, err)
	return task
}

// ══════════════════════════════════════════════════════════════════════════════
// TASK QUEUE
// ══════════════════════════════════════════════════════════════════════════════

func TestTaskQueue_FIFOAndAck(t *testing.T) {
	_, client := newTestClient(t)
	q := NewTaskQueue(client, "test:queue", 10)
	ctx := context.Background()

	first := mustTask(t, notification.KeyEnrollmentMail, map[string]int{"n": 1})
	second := mustTask(t, notification.KeyHelpOrderAnswerMail, map[string]int{"n": 2})
	require.NoError(t, q.Enqueue(ctx, first))
	require.NoError(t, q.Enqueue(ctx, second))

	got, err := q.Dequeue(ctx, time.Second)
	require.NoError(t, err)
	assert.Equal(t, first.ID, got.ID)
	assert.Equal(t, notification.KeyEnrollmentMail, got.Key)
	assert.JSONEq(t, `{"n":1}`, string(got.Payload))
	assert.NotEmpty(t, got.Receipt)

	stats, err := q.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, QueueStats{Pending: 1, Processing: 1}, stats)

	require.NoError(t, q.Ack(ctx, got))

	got, err = q.Dequeue(ctx, time.Second)
	require.NoError(t, err)
	assert.Equal(t, second.ID, got.ID)
	require.NoError(t, q.Ack(ctx, got))

	stats, err = q.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, QueueStats{}, stats)
}

func TestTaskQueue_Empty(t *testing.T) {
	_, client := newTestClient(t)
	q := NewTaskQueue(client, "", 10)

	_, err := q.Dequeue(context.Background(), 100*time.Millisecond)
	assert.ErrorIs(t, err, notification.ErrQueueEmpty)
}

func TestTaskQueue_AckAfterAttemptsChanged(t *testing.T) {
	_, client := newTestClient(t)
	q := NewTaskQueue(client, "test:queue", 10)
	ctx := context.Background()

	require.NoError(t, q.Enqueue(ctx, mustTask(t, notification.KeyEnrollmentMail, struct{}{})))
	got, err := q.Dequeue(ctx, time.Second)
	require.NoError(t, err)

	// The worker mutates the task between attempts; the receipt still matches.
	got.Attempts = 3
	got.LastError = "smtp timeout"
	require.NoError(t, q.Ack(ctx, got))

	stats, err := q.Stats(ctx)
	require.NoError(t, err)
	assert.Zero(t, stats.Processing)
}

func TestTaskQueue_DeadLetter(t *testing.T) {
	_, client := newTestClient(t)
	q := NewTaskQueue(client, "test:queue", 2)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, q.Enqueue(ctx, mustTask(t, notification.KeyHelpOrderAnswerMail, map[string]int{"i": i})))
		got, err := q.Dequeue(ctx, time.Second)
		require.NoError(t, err)
		require.NoError(t, q.DeadLetter(ctx, got, errors.New("mailbox unavailable")))
	}

	stats, err := q.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), stats.Processing)
	assert.Equal(t, int64(2), stats.Dead)

	dead, err := q.DeadLetters(ctx, 0)
	require.NoError(t, err)
	require.Len(t, dead, 2)
	assert.JSONEq(t, `{"i":2}`, string(dead[0].Payload))
	assert.Equal(t, "mailbox unavailable", dead[0].LastError)
}

func TestTaskQueue_Recover(t *testing.T) {
	_, client := newTestClient(t)
	q := NewTaskQueue(client, "test:queue", 10)
	ctx := context.Background()

	a := mustTask(t, notification.KeyEnrollmentMail, map[string]string{"t": "a"})
	b := mustTask(t, notification.KeyEnrollmentMail, map[string]string{"t": "b"})
	require.NoError(t, q.Enqueue(ctx, a))
	require.NoError(t, q.Enqueue(ctx, b))

	// Simulate a worker that took both and crashed.
	_, err := q.Dequeue(ctx, time.Second)
	require.NoError(t, err)
	_, err = q.Dequeue(ctx, time.Second)
	require.NoError(t, err)

	n, err := q.Recover(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	got, err := q.Dequeue(ctx, time.Second)
	require.NoError(t, err)
	assert.Equal(t, a.ID, got.ID)
	got, err = q.Dequeue(ctx, time.Second)
	require.NoError(t, err)
	assert.Equal(t, b.ID, got.ID)
}

func TestTaskQueue_UndecodableEntryIsParked(t *testing.T) {
	mr, client := newTestClient(t)
	q := NewTaskQueue(client, "test:queue", 10)

	_, err := mr.Lpush("test:queue:pending", "{not json")
	require.NoError(t, err)

	_, err = q.Dequeue(context.Background(), time.Second)
	require.Error(t, err)
	assert.True(t, notification.IsPermanent(err))

	stats, err := q.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, QueueStats{Dead: 1}, stats)
}

func TestTaskQueue_ParkFailureIsTransient(t *testing.T) {
	mr, client := newTestClient(t)
	q := NewTaskQueue(client, "test:queue", 10)
	ctx := context.Background()

	// A dead list of the wrong type makes the park transaction fail.
	require.NoError(t, mr.Set("test:queue:dead", "occupied"))
	_, err := mr.Lpush("test:queue:pending", "{not json")
	require.NoError(t, err)

	_, err = q.Dequeue(ctx, time.Second)
	require.Error(t, err)
	assert.False(t, notification.IsPermanent(err))
	assert.Contains(t, err.Error(), "park undecodable task")
}

func TestTaskQueue_EncodingErrors(t *testing.T) {
	_, client := newTestClient(t)
	q := NewTaskQueue(client, "test:queue", 10)
	ctx := context.Background()

	bad := &notification.Task{ID: "t-1", Key: notification.KeyEnrollmentMail, Payload: []byte("{broken")}

	err := q.Enqueue(ctx, bad)
	assert.ErrorIs(t, err, ErrTaskEncoding)
	assert.NotErrorIs(t, err, ErrCacheSerialization)

	assert.ErrorIs(t, q.DeadLetter(ctx, bad, errors.New("boom")), ErrTaskEncoding)
}

func TestTaskQueue_EnqueueFailsWhenRedisDown(t *testing.T) {
	mr, client := newTestClient(t)
	q := NewTaskQueue(client, "test:queue", 10)
	mr.Close()

	err := q.Enqueue(context.Background(), mustTask(t, notification.KeyEnrollmentMail, struct{}{}))
	assert.Error(t, err)
}

// ══════════════════════════════════════════════════════════════════════════════
// STUDENT CACHE
// ══════════════════════════════════════════════════════════════════════════════

type countingStudents struct {
	mu       sync.Mutex
	calls    int
	gate     chan struct{}
	students map[int64]*student.Student
}

func (c *countingStudents) GetByID(_ context.Context, id int64) (*student.Student, error) {
	if c.gate != nil {
		<-c.gate
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	s, ok := c.students[id]
	if !ok {
		return nil, shared.ErrStudentNotFound
	}
	cp := *s
	return &cp, nil
}

func (c *countingStudents) Exists(ctx context.Context, id int64) (bool, error) {
	_, err := c.GetByID(ctx, id)
	return err == nil, nil
}

func TestCachedStudentRepository(t *testing.T) {
	mr, client := newTestClient(t)
	inner := &countingStudents{students: map[int64]*student.Student{
		7: {ID: 7, Name: "Carla", Email: "carla@example.com"},
	}}
	repo := NewCachedStudentRepository(inner, NewCache(client), time.Minute, nil)
	ctx := context.Background()

	s, err := repo.GetByID(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, "Carla", s.Name)

	s, err = repo.GetByID(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, "carla@example.com", s.Email)
	assert.Equal(t, 1, inner.calls)
	assert.True(t, mr.Exists(StudentKey(7)))
	assert.Equal(t, time.Minute, mr.TTL(StudentKey(7)))

	_, err = repo.GetByID(ctx, 8)
	assert.ErrorIs(t, err, shared.ErrStudentNotFound)
	assert.False(t, mr.Exists(StudentKey(8)))

	exists, err := repo.Exists(ctx, 8)
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, repo.Invalidate(ctx, 7))
	_, err = repo.GetByID(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, 2, inner.calls)
}

func TestCachedStudentRepository_SharesConcurrentMisses(t *testing.T) {
	_, client := newTestClient(t)
	inner := &countingStudents{
		gate:     make(chan struct{}),
		students: map[int64]*student.Student{3: {ID: 3, Name: "Davi"}},
	}
	repo := NewCachedStudentRepository(inner, NewCache(client), time.Minute, nil)

	var wg sync.WaitGroup
	names := make([]string, 8)
	for i := range names {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			s, err := repo.GetByID(context.Background(), 3)
			if err == nil {
				names[i] = s.Name
			}
		}()
	}

	time.Sleep(20 * time.Millisecond)
	close(inner.gate)
	wg.Wait()

	for _, n := range names {
		assert.Equal(t, "Davi", n)
	}
	assert.LessOrEqual(t, inner.calls, 2)
}

func TestCachedStudentRepository_FallsBackWhenRedisDown(t *testing.T) {
	mr, client := newTestClient(t)
	inner := &countingStudents{students: map[int64]*student.Student{
		1: {ID: 1, Name: "Ana", Email: "ana@example.com"},
	}}
	repo := NewCachedStudentRepository(inner, NewCache(client), 0, nil)
	mr.Close()

	s, err := repo.GetByID(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "Ana", s.Name)
}

func TestConfigOptions(t *testing.T) {
	cfg := DefaultConfig()
	opts, err := cfg.Options()
	require.NoError(t, err)
	assert.Equal(t, "localhost:6379", opts.Addr)
	assert.Equal(t, 10, opts.PoolSize)

	cfg.URL = "redis://:secret@cache:6380/2"
	opts, err = cfg.Options()
	require.NoError(t, err)
	assert.Equal(t, "cache:6380", opts.Addr)
	assert.Equal(t, "secret", opts.Password)
	assert.Equal(t, 2, opts.DB)

	cfg.URL = "http://nope"
	_, err = cfg.Options()
	assert.Error(t, err)
}
