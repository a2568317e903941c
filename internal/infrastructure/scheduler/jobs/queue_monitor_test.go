package jobs

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestQueueMonitor(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)

	depths := []QueueDepth{
		{Pending: 1, Dead: 2},
		{Pending: 12, Processing: 1, Dead: 2},
		{Pending: 0, Dead: 5},
	}
	call := 0
	m := NewQueueMonitor(func(context.Context) (QueueDepth, error) {
		d := depths[call]
		call++
		return d, nil
	}, 10, zap.New(core))

	assert.Equal(t, "queue-monitor", m.Name())

	require.NoError(t, m.Run(context.Background()))
	assert.Equal(t, 0, logs.FilterLevelExact(zapcore.WarnLevel).Len())

	require.NoError(t, m.Run(context.Background()))
	backlog := logs.FilterMessage("notification backlog above threshold").All()
	require.Len(t, backlog, 1)
	assert.Equal(t, int64(12), backlog[0].ContextMap()["pending"])

	require.NoError(t, m.Run(context.Background()))
	dead := logs.FilterMessage("notifications dead-lettered since last check").All()
	require.Len(t, dead, 1)
	assert.Equal(t, int64(3), dead[0].ContextMap()["new"])

	assert.Equal(t, 3, logs.FilterMessage("notification queue depth").Len())
}

func TestQueueMonitor_DepthError(t *testing.T) {
	m := NewQueueMonitor(func(context.Context) (QueueDepth, error) {
		return QueueDepth{}, errors.New("redis down")
	}, 0, nil)

	err := m.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis down")
}
