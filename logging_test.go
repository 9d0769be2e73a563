// SPDX-License-Identifier: MIT
// SPDX-FileCopyrightText: Ryan Johnson

package vnc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func newObservedLogger() (*ZapLogger, *observer.ObservedLogs) {
	core, logs := observer.New(zap.DebugLevel)
	return NewZapLoggerFrom(zap.New(core)), logs
}

func TestLogging_NoOpLogger(t *testing.T) {
	logger := &NoOpLogger{}

	logger.Debug("debug message", Field{Key: "key", Value: "value"})
	logger.Info("info message", Field{Key: "key", Value: "value"})
	logger.Warn("warn message", Field{Key: "key", Value: "value"})
	logger.Error("error message", Field{Key: "key", Value: "value"})

	contextLogger := logger.With(Field{Key: "context", Value: "test"})
	contextLogger.Info("test message")

	_, ok := contextLogger.(*NoOpLogger)
	assert.True(t, ok, "With() should return a NoOpLogger")
}

func TestLogging_ZapLoggerLevels(t *testing.T) {
	logger, logs := newObservedLogger()

	logger.Debug("debug test")
	logger.Info("info test", Field{Key: "key1", Value: "value1"})
	logger.Warn("warn test", Field{Key: "message", Value: "hello world"})
	logger.Error("error test", Field{Key: "error", Value: NewVNCError("test", ErrNetwork, "test error", nil)})

	require.Equal(t, 4, logs.Len())
	entries := logs.All()
	assert.Equal(t, "debug test", entries[0].Message)
	assert.Equal(t, "info test", entries[1].Message)
	assert.Equal(t, "value1", entries[1].ContextMap()["key1"])
	assert.Equal(t, "warn test", entries[2].Message)
	assert.Equal(t, "error test", entries[3].Message)
}

func TestLogging_ZapLoggerWith(t *testing.T) {
	logger, logs := newObservedLogger()

	connLogger := logger.With(
		Field{Key: "conn_id", Value: "conn-123"},
		Field{Key: "remote_addr", Value: "192.168.1.100:5900"},
	)

	connLogger.Info("Protocol version negotiated",
		Field{Key: "major", Value: 3},
		Field{Key: "minor", Value: 3})

	require.Equal(t, 1, logs.Len())
	ctx := logs.All()[0].ContextMap()
	assert.Equal(t, "conn-123", ctx["conn_id"])
	assert.Equal(t, "192.168.1.100:5900", ctx["remote_addr"])
	assert.EqualValues(t, 3, ctx["major"])
	assert.EqualValues(t, 3, ctx["minor"])

	// The base logger is unaffected by fields bound via With.
	logs.TakeAll()
	logger.Info("unrelated message")
	require.Equal(t, 1, logs.Len())
	_, hasConnID := logs.All()[0].ContextMap()["conn_id"]
	assert.False(t, hasConnID)
}

func TestLogging_ClientConfigDefaultsToNoOp(t *testing.T) {
	config := &ClientConfig{
		Shared: true,
	}
	assert.Nil(t, config.Logger)
}

func TestLogging_ClientConfigWithZapLogger(t *testing.T) {
	logger, _ := newObservedLogger()
	config := &ClientConfig{
		Shared: true,
		Logger: logger,
	}

	require.NotNil(t, config.Logger)
	_, ok := config.Logger.(*ZapLogger)
	assert.True(t, ok)
}
