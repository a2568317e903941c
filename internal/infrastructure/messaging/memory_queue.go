package messaging

import (
	"context"
	"sync"
	"time"

	"github.com/gympoint/academy-hub/internal/domain/notification"
)

// ══════════════════════════════════════════════════════════════════════════════
// MEMORY QUEUE
// In-process notification queue for tests and single-binary development.
// Tasks are lost on restart; use the Redis queue when durability matters.
// ══════════════════════════════════════════════════════════════════════════════

// MemoryQueue implements notification.Queue and notification.Consumer.
type MemoryQueue struct {
	mu       sync.Mutex
	pending  []*notification.Task
	inFlight map[string]*notification.Task
	dead     *DeadLetterQueue
	signal   chan struct{}
}

// NewMemoryQueue creates a queue keeping at most deadLetterSize dead letters.
func NewMemoryQueue(deadLetterSize int) *MemoryQueue {
	return &MemoryQueue{
		inFlight: make(map[string]*notification.Task),
		dead:     NewDeadLetterQueue(deadLetterSize),
		signal:   make(chan struct{}, 1),
	}
}

// Enqueue implements notification.Queue.
func (q *MemoryQueue) Enqueue(ctx context.Context, t *notification.Task) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	q.mu.Lock()
	q.pending = append(q.pending, cloneTask(t))
	q.mu.Unlock()

	q.wake()
	return nil
}

// Dequeue implements notification.Consumer.
func (q *MemoryQueue) Dequeue(ctx context.Context, wait time.Duration) (*notification.Task, error) {
	timer := time.NewTimer(wait)
	defer timer.Stop()

	for {
		if t := q.pop(); t != nil {
			return t, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
			return nil, notification.ErrQueueEmpty
		case <-q.signal:
		}
	}
}

// Ack implements notification.Consumer.
func (q *MemoryQueue) Ack(_ context.Context, t *notification.Task) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	delete(q.inFlight, t.ID)
	return nil
}

// DeadLetter implements notification.Consumer.
func (q *MemoryQueue) DeadLetter(_ context.Context, t *notification.Task, cause error) error {
	q.mu.Lock()
	delete(q.inFlight, t.ID)
	q.mu.Unlock()

	entry := DeadLetterEntry{Task: cloneTask(t), FailedAt: time.Now().UTC()}
	if cause != nil {
		entry.Error = cause.Error()
	}
	q.dead.Add(entry)
	return nil
}

// Recover moves in-flight tasks back to pending. Call it when no consumer is
// running, e.g. before starting a worker.
func (q *MemoryQueue) Recover(context.Context) (int, error) {
	q.mu.Lock()
	n := len(q.inFlight)
	for id, t := range q.inFlight {
		q.pending = append(q.pending, t)
		delete(q.inFlight, id)
	}
	q.mu.Unlock()

	if n > 0 {
		q.wake()
	}
	return n, nil
}

// Ping always succeeds.
func (q *MemoryQueue) Ping(ctx context.Context) error { return ctx.Err() }

// Pending returns copies of the tasks waiting to be consumed.
func (q *MemoryQueue) Pending() []*notification.Task {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]*notification.Task, 0, len(q.pending))
	for _, t := range q.pending {
		out = append(out, cloneTask(t))
	}
	return out
}

// InFlight returns the number of dequeued tasks not yet acked.
func (q *MemoryQueue) InFlight() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.inFlight)
}

// DeadLetters returns the dead-letter store.
func (q *MemoryQueue) DeadLetters() *DeadLetterQueue {
	return q.dead
}

func (q *MemoryQueue) pop() *notification.Task {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.pending) == 0 {
		return nil
	}

	t := q.pending[0]
	q.pending[0] = nil
	q.pending = q.pending[1:]
	q.inFlight[t.ID] = t

	if len(q.pending) > 0 {
		q.wake()
	}
	return cloneTask(t)
}

func (q *MemoryQueue) wake() {
	select {
	case q.signal <- struct{}{}:
	default:
	}
}

func cloneTask(t *notification.Task) *notification.Task {
	c := *t
	c.Payload = append([]byte(nil), t.Payload...)
	return &c
}

// ══════════════════════════════════════════════════════════════════════════════
// DEAD LETTER QUEUE
// ══════════════════════════════════════════════════════════════════════════════

// DeadLetterEntry is a task that will not be retried.
type DeadLetterEntry struct {
	Task     *notification.Task
	Error    string
	FailedAt time.Time
}

// DeadLetterQueue is a bounded in-memory store of dead letters.
type DeadLetterQueue struct {
	mu      sync.RWMutex
	entries []DeadLetterEntry
	maxSize int
}

// NewDeadLetterQueue creates a new dead letter queue.
func NewDeadLetterQueue(maxSize int) *DeadLetterQueue {
	if maxSize <= 0 {
		maxSize = 1000
	}
	return &DeadLetterQueue{
		entries: make([]DeadLetterEntry, 0),
		maxSize: maxSize,
	}
}

// Add adds an entry, dropping the oldest at capacity.
func (q *DeadLetterQueue) Add(entry DeadLetterEntry) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.entries) >= q.maxSize {
		q.entries = q.entries[1:]
	}
	q.entries = append(q.entries, entry)
}

// Entries returns all entries.
func (q *DeadLetterQueue) Entries() []DeadLetterEntry {
	q.mu.RLock()
	defer q.mu.RUnlock()

	result := make([]DeadLetterEntry, len(q.entries))
	copy(result, q.entries)
	return result
}

// Size returns the current queue size.
func (q *DeadLetterQueue) Size() int {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return len(q.entries)
}
