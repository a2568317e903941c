package command

import (
	"context"
	"time"

	"github.com/gympoint/academy-hub/internal/domain/notification"
	"github.com/gympoint/academy-hub/pkg/logger"
	"go.uber.org/zap"
)

// ══════════════════════════════════════════════════════════════════════════════
// NOTIFICATION PRODUCER
// Commands never deliver mail themselves. They hand a snapshot to the queue
// after the mutation is stored and return without waiting.
// ══════════════════════════════════════════════════════════════════════════════

// Notifier enqueues notification tasks on behalf of commands.
type Notifier struct {
	queue notification.Queue
	log   *zap.Logger
}

// NewNotifier creates a Notifier. A nil logger disables logging.
func NewNotifier(queue notification.Queue, log *zap.Logger) *Notifier {
	if log == nil {
		log = zap.NewNop()
	}
	return &Notifier{queue: queue, log: log.Named("notifier")}
}

// Notify enqueues a task for key and reports whether it was stored.
// Failures are logged and never returned: the mutation that triggered the
// notification has already been committed and stays final.
func (n *Notifier) Notify(ctx context.Context, key notification.TaskKey, payload any) bool {
	start := time.Now()

	task, err := notification.NewTask(key, payload)
	if err != nil {
		n.log.Error("failed to build notification task",
			logger.TaskKey(key.String()),
			zap.Error(err),
		)
		return false
	}

	if err := n.queue.Enqueue(ctx, task); err != nil {
		n.log.Error("failed to enqueue notification task",
			logger.TaskKey(key.String()),
			logger.TaskID(task.ID),
			zap.Error(err),
		)
		return false
	}

	n.log.Debug("notification task enqueued",
		logger.TaskKey(key.String()),
		logger.TaskID(task.ID),
		logger.Latency(time.Since(start)),
	)
	return true
}

// Clock returns the current time. Handlers default to time.Now.
type Clock func() time.Time

// now returns the clock time in UTC at microsecond precision, the resolution
// Postgres stores, so snapshots match what a later read returns.
func (c Clock) now() time.Time {
	if c == nil {
		return time.Now().UTC().Truncate(time.Microsecond)
	}
	return c().UTC().Truncate(time.Microsecond)
}
