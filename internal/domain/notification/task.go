// Package notification contains the deferred-notification contracts: tasks
// carried by the queue, the payload snapshots they hold and the mail
// transport the worker hands rendered messages to.
//
// Producers never talk to the mail transport directly. They enqueue a Task
// with a self-contained payload and return; the worker resolves the handler
// registered for Task.Key and performs delivery later.
package notification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ══════════════════════════════════════════════════════════════════════════════
// TASK KEYS
// ══════════════════════════════════════════════════════════════════════════════

// TaskKey selects the handler a task is dispatched to.
type TaskKey string

const (
	// KeyEnrollmentMail confirms a created or updated enrollment.
	KeyEnrollmentMail TaskKey = "EnrollmentMail"

	// KeyHelpOrderAnswerMail sends an answered question back to the student.
	KeyHelpOrderAnswerMail TaskKey = "HelpOrderAnswerMail"
)

// String returns the key as stored on the wire.
func (k TaskKey) String() string {
	return string(k)
}

// ══════════════════════════════════════════════════════════════════════════════
// TASK
// ══════════════════════════════════════════════════════════════════════════════

// Task is a unit of deferred work.
type Task struct {
	// ID identifies the task across retries and logs.
	ID string `json:"id"`

	// Key selects the handler.
	Key TaskKey `json:"key"`

	// Payload is the handler input, decoded by the handler itself.
	Payload json.RawMessage `json:"payload"`

	// Attempts counts finished handler runs that failed.
	Attempts int `json:"attempts"`

	// EnqueuedAt is set by NewTask.
	EnqueuedAt time.Time `json:"enqueued_at"`

	// LastError is filled before a task is dead-lettered.
	LastError string `json:"last_error,omitempty"`

	// Receipt is the transport-specific handle used to ack the task.
	Receipt string `json:"-"`
}

// NewTask serializes payload and builds a task for key.
func NewTask(key TaskKey, payload any) (*Task, error) {
	if key == "" {
		return nil, errors.New("notification: task key is required")
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("notification: encode %s payload: %w", key, err)
	}

	return &Task{
		ID:         uuid.NewString(),
		Key:        key,
		Payload:    data,
		EnqueuedAt: time.Now().UTC(),
	}, nil
}

// Decode unmarshals the payload into v. A payload that cannot be decoded is
// a permanent failure: retrying it can never succeed.
func (t *Task) Decode(v any) error {
	if err := json.Unmarshal(t.Payload, v); err != nil {
		return Permanent(fmt.Errorf("decode %s payload: %w", t.Key, err))
	}
	return nil
}

// String implements fmt.Stringer.
func (t *Task) String() string {
	return fmt.Sprintf("Task{id=%s, key=%s, attempts=%d}", t.ID, t.Key, t.Attempts)
}

// ══════════════════════════════════════════════════════════════════════════════
// QUEUE CONTRACTS
// ══════════════════════════════════════════════════════════════════════════════

// ErrQueueEmpty is returned by Dequeue when no task arrived within the wait.
var ErrQueueEmpty = errors.New("notification: queue empty")

// Queue is the producer side. Enqueue returns as soon as the task is stored;
// it never waits for delivery.
type Queue interface {
	Enqueue(ctx context.Context, t *Task) error
}

// Consumer is the worker side. A dequeued task stays in flight until it is
// acked or dead-lettered, so a crashed worker does not lose it.
type Consumer interface {
	// Dequeue blocks up to wait for the next task.
	// Returns ErrQueueEmpty on timeout.
	Dequeue(ctx context.Context, wait time.Duration) (*Task, error)

	// Ack removes a finished task.
	Ack(ctx context.Context, t *Task) error

	// DeadLetter moves a task that will not be retried to the dead-letter store.
	DeadLetter(ctx context.Context, t *Task, cause error) error
}
