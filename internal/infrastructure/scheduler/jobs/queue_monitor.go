// Package jobs holds the periodic jobs run by the worker's scheduler.
package jobs

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// QueueDepth is a point-in-time view of the notification queue.
type QueueDepth struct {
	Pending    int64
	Processing int64
	Dead       int64
}

// DepthFunc reads the current queue depth.
type DepthFunc func(ctx context.Context) (QueueDepth, error)

// QueueMonitor logs the queue depth and warns when tasks are dead-lettered
// or the backlog grows past a threshold.
type QueueMonitor struct {
	depth       DepthFunc
	warnPending int64
	logger      *zap.Logger

	mu       sync.Mutex
	lastDead int64
	primed   bool
}

// NewQueueMonitor creates the monitor. A warnPending of zero disables the
// backlog warning.
func NewQueueMonitor(depth DepthFunc, warnPending int64, logger *zap.Logger) *QueueMonitor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QueueMonitor{depth: depth, warnPending: warnPending, logger: logger}
}

// Name implements scheduler.Job.
func (m *QueueMonitor) Name() string { return "queue-monitor" }

// Run implements scheduler.Job.
func (m *QueueMonitor) Run(ctx context.Context) error {
	d, err := m.depth(ctx)
	if err != nil {
		return fmt.Errorf("read queue depth: %w", err)
	}

	fields := []zap.Field{
		zap.Int64("pending", d.Pending),
		zap.Int64("processing", d.Processing),
		zap.Int64("dead", d.Dead),
	}
	m.logger.Info("notification queue depth", fields...)

	m.mu.Lock()
	grown := m.primed && d.Dead > m.lastDead
	delta := d.Dead - m.lastDead
	m.lastDead = d.Dead
	m.primed = true
	m.mu.Unlock()

	if grown {
		m.logger.Warn("notifications dead-lettered since last check", zap.Int64("new", delta))
	}
	if m.warnPending > 0 && d.Pending >= m.warnPending {
		m.logger.Warn("notification backlog above threshold", zap.Int64("pending", d.Pending), zap.Int64("threshold", m.warnPending))
	}
	return nil
}
