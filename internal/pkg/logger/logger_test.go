package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func observe(t *testing.T, level zapcore.Level) *observer.ObservedLogs {
	core, logs := observer.New(level)
	prev := global.Load()
	SetLogger(zap.New(core))
	t.Cleanup(func() { global.Store(prev) })
	return logs
}

func TestWithFields(t *testing.T) {
	logs := observe(t, zapcore.DebugLevel)

	ctx := WithFields(context.Background(), zap.String("run_id", "r1"))
	Infof(ctx, "upserted %d locations", 3)
	Warnf(context.Background(), "plain")

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "upserted 3 locations", entries[0].Message)
	assert.Equal(t, "r1", entries[0].ContextMap()["run_id"])
	assert.NotContains(t, entries[1].ContextMap(), "run_id")
}

func TestLevels(t *testing.T) {
	logs := observe(t, zapcore.InfoLevel)

	Debugf(context.Background(), "hidden")
	Info(context.Background(), "done", zap.Int("facts", 15))
	Errorf(context.Background(), "failed: %s", "boom")

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.EqualValues(t, 15, entries[0].ContextMap()["facts"])
	assert.Equal(t, zapcore.ErrorLevel, entries[1].Level)
}

func TestNew(t *testing.T) {
	prev := global.Load()
	t.Cleanup(func() { global.Store(prev) })

	l, err := New("debug")
	require.NoError(t, err)
	assert.True(t, l.Core().Enabled(zapcore.DebugLevel))

	_, err = New("loud")
	assert.Error(t, err)
}
