package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/gympoint/academy-hub/internal/domain/notification"
)

// ══════════════════════════════════════════════════════════════════════════════
// TASK QUEUE
// Reliable list queue. Producers LPUSH onto <name>:pending; consumers BLMOVE
// the oldest entry to <name>:processing and LREM it once finished, so a task
// taken by a crashed worker stays in processing until Recover puts it back.
// ══════════════════════════════════════════════════════════════════════════════

// DefaultQueueName prefixes the queue lists.
const DefaultQueueName = "academy:notifications"

// ErrTaskEncoding is returned when a task cannot be written to the queue.
var ErrTaskEncoding = errors.New("redis queue: task encoding failed")

// TaskQueue implements notification.Queue and notification.Consumer.
type TaskQueue struct {
	client     *redis.Client
	pending    string
	processing string
	dead       string
	deadMax    int64
}

// NewTaskQueue creates a queue whose lists are prefixed with name. At most
// deadLetterSize dead letters are kept; older ones are trimmed.
func NewTaskQueue(client *redis.Client, name string, deadLetterSize int) *TaskQueue {
	if name == "" {
		name = DefaultQueueName
	}
	if deadLetterSize <= 0 {
		deadLetterSize = 1000
	}
	return &TaskQueue{
		client:     client,
		pending:    name + ":pending",
		processing: name + ":processing",
		dead:       name + ":dead",
		deadMax:    int64(deadLetterSize),
	}
}

// Enqueue implements notification.Queue.
func (q *TaskQueue) Enqueue(ctx context.Context, t *notification.Task) error {
	data, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrTaskEncoding, t.Key, err)
	}
	if err := q.client.LPush(ctx, q.pending, data).Err(); err != nil {
		return fmt.Errorf("redis queue: enqueue %s: %w", t.Key, err)
	}
	return nil
}

// Dequeue implements notification.Consumer. The raw entry is kept as the
// task receipt so Ack removes exactly what was moved.
func (q *TaskQueue) Dequeue(ctx context.Context, wait time.Duration) (*notification.Task, error) {
	raw, err := q.client.BLMove(ctx, q.pending, q.processing, "RIGHT", "LEFT", wait).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, notification.ErrQueueEmpty
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("redis queue: dequeue: %w", err)
	}

	var t notification.Task
	if err := json.Unmarshal([]byte(raw), &t); err != nil {
		// An undecodable entry can never be handled; park it. A failed park
		// is reported as transient so the worker logs it and backs off.
		decodeErr := fmt.Errorf("redis queue: decode task: %w", err)
		_, parkErr := q.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.LRem(ctx, q.processing, 1, raw)
			p.LPush(ctx, q.dead, raw)
			p.LTrim(ctx, q.dead, 0, q.deadMax-1)
			return nil
		})
		if parkErr != nil {
			return nil, fmt.Errorf("redis queue: park undecodable task: %w (%v)", parkErr, decodeErr)
		}
		return nil, notification.Permanent(decodeErr)
	}
	t.Receipt = raw
	return &t, nil
}

// Ack implements notification.Consumer.
func (q *TaskQueue) Ack(ctx context.Context, t *notification.Task) error {
	if err := q.client.LRem(ctx, q.processing, 1, t.Receipt).Err(); err != nil {
		return fmt.Errorf("redis queue: ack %s: %w", t.ID, err)
	}
	return nil
}

// DeadLetter implements notification.Consumer.
func (q *TaskQueue) DeadLetter(ctx context.Context, t *notification.Task, cause error) error {
	dead := *t
	if cause != nil {
		dead.LastError = cause.Error()
	}
	data, err := json.Marshal(&dead)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrTaskEncoding, t.ID, err)
	}

	_, err = q.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.LRem(ctx, q.processing, 1, t.Receipt)
		p.LPush(ctx, q.dead, data)
		p.LTrim(ctx, q.dead, 0, q.deadMax-1)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis queue: dead-letter %s: %w", t.ID, err)
	}
	return nil
}

// Recover moves every in-flight task back to the head of pending. Call it
// before starting consumers; tasks held by a live worker would run twice.
func (q *TaskQueue) Recover(ctx context.Context) (int, error) {
	n := 0
	for {
		err := q.client.LMove(ctx, q.processing, q.pending, "LEFT", "RIGHT").Err()
		if errors.Is(err, redis.Nil) {
			return n, nil
		}
		if err != nil {
			return n, fmt.Errorf("redis queue: recover: %w", err)
		}
		n++
	}
}

// Ping checks if Redis is reachable.
func (q *TaskQueue) Ping(ctx context.Context) error {
	return q.client.Ping(ctx).Err()
}

// QueueStats are list lengths.
type QueueStats struct {
	Pending    int64 `json:"pending"`
	Processing int64 `json:"processing"`
	Dead       int64 `json:"dead"`
}

// Stats returns the current list lengths.
func (q *TaskQueue) Stats(ctx context.Context) (QueueStats, error) {
	var pending, processing, dead *redis.IntCmd
	_, err := q.client.Pipelined(ctx, func(p redis.Pipeliner) error {
		pending = p.LLen(ctx, q.pending)
		processing = p.LLen(ctx, q.processing)
		dead = p.LLen(ctx, q.dead)
		return nil
	})
	if err != nil {
		return QueueStats{}, fmt.Errorf("redis queue: stats: %w", err)
	}
	return QueueStats{
		Pending:    pending.Val(),
		Processing: processing.Val(),
		Dead:       dead.Val(),
	}, nil
}

// DeadLetters returns up to limit dead tasks, newest first.
func (q *TaskQueue) DeadLetters(ctx context.Context, limit int64) ([]*notification.Task, error) {
	if limit <= 0 {
		limit = q.deadMax
	}
	raws, err := q.client.LRange(ctx, q.dead, 0, limit-1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis queue: list dead letters: %w", err)
	}

	out := make([]*notification.Task, 0, len(raws))
	for _, raw := range raws {
		var t notification.Task
		if err := json.Unmarshal([]byte(raw), &t); err != nil {
			continue
		}
		out = append(out, &t)
	}
	return out, nil
}
