package logger

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

func observe(t *testing.T) *observer.ObservedLogs {
	core, logs := observer.New(zapcore.DebugLevel)
	previous := log
	log = zap.New(core)
	t.Cleanup(func() { log = previous })
	return logs
}

func TestWithFieldsAccumulates(t *testing.T) {
	logs := observe(t)

	ctx := WithFields(context.Background(), zap.String("run_id", "01HZX"))
	ctx = WithFields(ctx, zap.String("component", "reconciler"))

	InfoCtx(ctx, "Applied marketplace event", zap.Uint64("block", 12))

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "Applied marketplace event", entries[0].Message)
	fields := entries[0].ContextMap()
	assert.Equal(t, "01HZX", fields["run_id"])
	assert.Equal(t, "reconciler", fields["component"])
	assert.Equal(t, uint64(12), fields["block"])
}

func TestWithFieldsDoesNotLeakToParent(t *testing.T) {
	logs := observe(t)

	parent := WithFields(context.Background(), zap.String("run_id", "a"))
	_ = WithFields(parent, zap.String("component", "backfill"))

	WarnCtx(parent, "parent")

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.NotContains(t, entries[0].ContextMap(), "component")
}

func TestErrorCtx(t *testing.T) {
	logs := observe(t)

	ErrorCtx(context.Background(), errors.New("store unavailable"))
	ErrorCtx(context.Background(), nil)
	Error(errors.New("plain"))

	entries := logs.All()
	require.Len(t, entries, 3)
	assert.Equal(t, "store unavailable", entries[0].Message)
	assert.Equal(t, zapcore.ErrorLevel, entries[0].Level)
	assert.Equal(t, "error occurred", entries[1].Message)
	assert.Equal(t, "plain", entries[2].Message)
}

func TestLevels(t *testing.T) {
	logs := observe(t)

	ctx := context.Background()
	DebugCtx(ctx, "debug ctx")
	Info("info")
	InfoCtx(ctx, "info ctx")
	WarnCtx(ctx, "warn ctx")

	entries := logs.All()
	require.Len(t, entries, 4)
	assert.Equal(t, zapcore.DebugLevel, entries[0].Level)
	assert.Equal(t, zapcore.InfoLevel, entries[1].Level)
	assert.Equal(t, zapcore.InfoLevel, entries[2].Level)
	assert.Equal(t, zapcore.WarnLevel, entries[3].Level)
}

func TestFromContextNil(t *testing.T) {
	observe(t)

	//nolint:staticcheck
	assert.Equal(t, log, FromContext(nil))
}

func TestInitialize(t *testing.T) {
	previous := log
	t.Cleanup(func() { log = previous })

	require.NoError(t, Initialize(Config{Debug: true}))
	assert.True(t, log.Core().Enabled(zapcore.DebugLevel))

	require.NoError(t, Initialize(Config{Debug: false}))
	assert.False(t, log.Core().Enabled(zapcore.DebugLevel))
	assert.True(t, log.Core().Enabled(zapcore.InfoLevel))
}
