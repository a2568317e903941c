// Package messaging implements the notification queue consumers: the worker
// that dispatches tasks to registered handlers and the in-memory queue.
package messaging

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gympoint/academy-hub/internal/domain/notification"
	"github.com/gympoint/academy-hub/internal/domain/shared"
	"github.com/gympoint/academy-hub/pkg/logger"
	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"
)

// ══════════════════════════════════════════════════════════════════════════════
// WORKER
// ══════════════════════════════════════════════════════════════════════════════

// Handler executes one task.
type Handler func(ctx context.Context, task *notification.Task) error

// HandlerRegistration contains handler metadata.
type HandlerRegistration struct {
	Name       string
	Handler    Handler
	MaxRetries int
	Timeout    time.Duration
}

// RetryConfig contains retry configuration.
type RetryConfig struct {
	// MaxRetries is the number of retries after the first attempt.
	MaxRetries int

	// InitialBackoff is the first wait between attempts; it doubles each retry.
	InitialBackoff time.Duration

	// MaxBackoff caps a single wait.
	MaxBackoff time.Duration

	// JitterPercent randomizes each wait by +/- this percentage.
	JitterPercent uint64
}

// DefaultRetryConfig returns sensible retry defaults.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:     3,
		InitialBackoff: 500 * time.Millisecond,
		MaxBackoff:     30 * time.Second,
		JitterPercent:  10,
	}
}

// WorkerConfig contains configuration for the Worker.
type WorkerConfig struct {
	// Concurrency is the number of consumer loops.
	Concurrency int

	// PollTimeout is how long a single Dequeue blocks.
	PollTimeout time.Duration

	// HandlerTimeout bounds a single attempt unless the registration sets one.
	HandlerTimeout time.Duration

	Retry  RetryConfig
	Logger *zap.Logger
}

// DefaultWorkerConfig returns sensible defaults.
func DefaultWorkerConfig() WorkerConfig {
	return WorkerConfig{
		Concurrency:    2,
		PollTimeout:    5 * time.Second,
		HandlerTimeout: 30 * time.Second,
		Retry:          DefaultRetryConfig(),
	}
}

// Worker drains a notification.Consumer and routes each task to the handler
// registered for its key. A failing task is retried with exponential backoff
// and then dead-lettered; it never stops the loop or affects other tasks.
type Worker struct {
	consumer    notification.Consumer
	handlers    map[notification.TaskKey]HandlerRegistration
	middlewares []Middleware
	config      WorkerConfig
	log         *zap.Logger
	metrics     *WorkerMetrics
	mu          sync.RWMutex
}

// NewWorker creates a new worker.
func NewWorker(consumer notification.Consumer, config WorkerConfig) *Worker {
	defaults := DefaultWorkerConfig()
	if config.Concurrency <= 0 {
		config.Concurrency = defaults.Concurrency
	}
	if config.PollTimeout <= 0 {
		config.PollTimeout = defaults.PollTimeout
	}
	if config.HandlerTimeout <= 0 {
		config.HandlerTimeout = defaults.HandlerTimeout
	}
	if config.Retry.InitialBackoff <= 0 {
		config.Retry.InitialBackoff = defaults.Retry.InitialBackoff
	}
	if config.Retry.MaxBackoff <= 0 {
		config.Retry.MaxBackoff = defaults.Retry.MaxBackoff
	}
	if config.Logger == nil {
		config.Logger = zap.NewNop()
	}

	return &Worker{
		consumer: consumer,
		handlers: make(map[notification.TaskKey]HandlerRegistration),
		config:   config,
		log:      config.Logger.Named("worker"),
		metrics:  &WorkerMetrics{},
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER REGISTRATION
// ══════════════════════════════════════════════════════════════════════════════

// RegisterHandler registers the handler for a task key. Registering a key
// twice is an error.
func (w *Worker) RegisterHandler(key notification.TaskKey, reg HandlerRegistration) error {
	if reg.Handler == nil {
		return errors.New("handler cannot be nil")
	}
	if reg.Name == "" {
		reg.Name = key.String()
	}
	if reg.MaxRetries < 0 {
		reg.MaxRetries = 0
	}
	if reg.Timeout <= 0 {
		reg.Timeout = w.config.HandlerTimeout
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if _, ok := w.handlers[key]; ok {
		return fmt.Errorf("handler already registered for %s", key)
	}
	w.handlers[key] = reg

	w.log.Debug("registered handler",
		logger.TaskKey(key.String()),
		zap.String("handler_name", reg.Name),
		zap.Int("max_retries", reg.MaxRetries),
	)
	return nil
}

// Register registers a handler with the worker's default retry budget.
func (w *Worker) Register(key notification.TaskKey, handler Handler) error {
	return w.RegisterHandler(key, HandlerRegistration{
		Handler:    handler,
		MaxRetries: w.config.Retry.MaxRetries,
	})
}

// Keys returns the registered task keys.
func (w *Worker) Keys() []notification.TaskKey {
	w.mu.RLock()
	defer w.mu.RUnlock()

	keys := make([]notification.TaskKey, 0, len(w.handlers))
	for k := range w.handlers {
		keys = append(keys, k)
	}
	return keys
}

// ══════════════════════════════════════════════════════════════════════════════
// MIDDLEWARE
// ══════════════════════════════════════════════════════════════════════════════

// Middleware wraps handler execution.
type Middleware func(Handler) Handler

// Use adds middleware to the worker. The first added runs outermost.
func (w *Worker) Use(middleware Middleware) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.middlewares = append(w.middlewares, middleware)
}

// RecoveryMiddleware turns handler panics into errors.
func RecoveryMiddleware(log *zap.Logger) Middleware {
	return func(next Handler) Handler {
		return func(ctx context.Context, task *notification.Task) (err error) {
			defer func() {
				if r := recover(); r != nil {
					log.Error("handler panic recovered",
						logger.TaskKey(task.Key.String()),
						logger.TaskID(task.ID),
						zap.Any("panic", r),
						zap.String("stack", string(debug.Stack())),
					)
					err = fmt.Errorf("handler panic: %v", r)
				}
			}()
			return next(ctx, task)
		}
	}
}

// LoggingMiddleware logs each attempt.
func LoggingMiddleware(log *zap.Logger) Middleware {
	return func(next Handler) Handler {
		return func(ctx context.Context, task *notification.Task) error {
			start := time.Now()
			err := next(ctx, task)

			fields := []zap.Field{
				logger.TaskKey(task.Key.String()),
				logger.TaskID(task.ID),
				logger.Attempt(task.Attempts + 1),
				logger.Latency(time.Since(start)),
			}
			if err != nil {
				log.Warn("handler attempt failed", append(fields, zap.Error(err))...)
			} else {
				log.Debug("handler completed", fields...)
			}
			return err
		}
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// PROCESSING
// ══════════════════════════════════════════════════════════════════════════════

// Run starts the consumer loops and blocks until ctx is cancelled and every
// loop has returned. A task interrupted by shutdown is neither acked nor
// dead-lettered, so the queue redelivers it.
func (w *Worker) Run(ctx context.Context) error {
	w.log.Info("worker started",
		zap.Int("concurrency", w.config.Concurrency),
		zap.Int("handlers", len(w.Keys())),
	)

	var wg sync.WaitGroup
	for i := 0; i < w.config.Concurrency; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			w.loop(ctx, id)
		}(i)
	}
	wg.Wait()

	w.log.Info("worker stopped")
	return nil
}

func (w *Worker) loop(ctx context.Context, id int) {
	log := w.log.With(zap.Int("consumer", id))

	for ctx.Err() == nil {
		task, err := w.consumer.Dequeue(ctx, w.config.PollTimeout)
		if err != nil {
			if errors.Is(err, notification.ErrQueueEmpty) || ctx.Err() != nil {
				continue
			}
			if notification.IsPermanent(err) {
				log.Warn("dropped undecodable task", zap.Error(err))
				continue
			}
			log.Error("dequeue failed", zap.Error(err))
			sleep(ctx, w.config.PollTimeout)
			continue
		}

		// Errors are logged and dead-lettered inside ProcessTask.
		_ = w.ProcessTask(ctx, task)
	}
}

// ProcessTask runs a task to completion: handler with retries, then ack on
// success or dead-letter on terminal failure. The returned error is a
// shared.ErrDispatchFailure and is informational only.
func (w *Worker) ProcessTask(ctx context.Context, task *notification.Task) error {
	w.metrics.processed.Add(1)

	w.mu.RLock()
	reg, ok := w.handlers[task.Key]
	middlewares := w.middlewares
	w.mu.RUnlock()

	if !ok {
		return w.fail(ctx, task, notification.Permanent(fmt.Errorf("no handler registered for %q", task.Key)))
	}

	handler := reg.Handler
	for i := len(middlewares) - 1; i >= 0; i-- {
		handler = middlewares[i](handler)
	}

	backoff := w.backoff(reg.MaxRetries)
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attemptCtx, cancel := context.WithTimeout(ctx, reg.Timeout)
		defer cancel()

		err := handler(attemptCtx, task)
		if err == nil {
			return nil
		}

		task.Attempts++
		task.LastError = err.Error()
		if notification.IsPermanent(err) || ctx.Err() != nil {
			return err
		}
		w.metrics.retried.Add(1)
		return retry.RetryableError(err)
	})

	if err == nil {
		// Ack even if shutdown started while the handler ran: the mail is out.
		if ackErr := w.consumer.Ack(context.WithoutCancel(ctx), task); ackErr != nil {
			w.log.Error("ack failed", logger.TaskID(task.ID), zap.Error(ackErr))
		}
		w.metrics.succeeded.Add(1)
		return nil
	}

	if ctx.Err() != nil {
		w.log.Info("task interrupted by shutdown", logger.TaskID(task.ID), logger.TaskKey(task.Key.String()))
		return ctx.Err()
	}

	return w.fail(ctx, task, err)
}

func (w *Worker) fail(ctx context.Context, task *notification.Task, cause error) error {
	task.LastError = cause.Error()
	if err := w.consumer.DeadLetter(context.WithoutCancel(ctx), task, cause); err != nil {
		w.log.Error("dead-letter failed", logger.TaskID(task.ID), zap.Error(err))
	}
	w.metrics.deadLettered.Add(1)

	w.log.Error("notification dispatch failed",
		logger.TaskKey(task.Key.String()),
		logger.TaskID(task.ID),
		logger.Attempt(task.Attempts),
		zap.Bool("permanent", notification.IsPermanent(cause)),
		zap.Error(cause),
	)

	return shared.WrapError("notification", task.Key.String(), shared.ErrDispatchFailure, "notification delivery failed", cause)
}

func (w *Worker) backoff(maxRetries int) retry.Backoff {
	b := retry.NewExponential(w.config.Retry.InitialBackoff)
	if w.config.Retry.JitterPercent > 0 {
		b = retry.WithJitterPercent(w.config.Retry.JitterPercent, b)
	}
	b = retry.WithCappedDuration(w.config.Retry.MaxBackoff, b)
	return retry.WithMaxRetries(uint64(maxRetries), b)
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// Metrics returns worker metrics.
func (w *Worker) Metrics() *WorkerMetrics {
	return w.metrics
}

// ══════════════════════════════════════════════════════════════════════════════
// WORKER METRICS
// ══════════════════════════════════════════════════════════════════════════════

// WorkerMetrics tracks worker throughput.
type WorkerMetrics struct {
	processed    atomic.Int64
	succeeded    atomic.Int64
	retried      atomic.Int64
	deadLettered atomic.Int64
}

// WorkerMetricsSnapshot is a point-in-time snapshot.
type WorkerMetricsSnapshot struct {
	Processed    int64 `json:"processed"`
	Succeeded    int64 `json:"succeeded"`
	Retried      int64 `json:"retried"`
	DeadLettered int64 `json:"dead_lettered"`
}

// Snapshot returns a point-in-time snapshot.
func (m *WorkerMetrics) Snapshot() WorkerMetricsSnapshot {
	return WorkerMetricsSnapshot{
		Processed:    m.processed.Load(),
		Succeeded:    m.succeeded.Load(),
		Retried:      m.retried.Load(),
		DeadLettered: m.deadLettered.Load(),
	}
}
