// SPDX-License-Identifier: MIT
// SPDX-FileCopyrightText: Ryan Johnson

package vnc

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Field represents a structured logging field with a key-value pair.
type Field struct {
	Key   string
	Value interface{}
}

// Logger defines the interface for structured logging throughout the VNC library.
type Logger interface {
	// Debug logs debug-level messages with optional structured fields.
	Debug(msg string, fields ...Field)

	// Info logs info-level messages with optional structured fields.
	Info(msg string, fields ...Field)

	// Warn logs warning-level messages with optional structured fields.
	Warn(msg string, fields ...Field)

	// Error logs error-level messages with optional structured fields.
	Error(msg string, fields ...Field)

	// With creates a new logger instance with the provided fields pre-populated.
	With(fields ...Field) Logger
}

// NoOpLogger is a Logger implementation that discards all log messages.
type NoOpLogger struct{}

// Debug discards debug-level log messages.
func (l *NoOpLogger) Debug(msg string, fields ...Field) {
}

// Info discards info-level log messages.
func (l *NoOpLogger) Info(msg string, fields ...Field) {
}

// Warn discards warning-level log messages.
func (l *NoOpLogger) Warn(msg string, fields ...Field) {
}

// Error discards error-level log messages.
func (l *NoOpLogger) Error(msg string, fields ...Field) {
}

// With returns a new NoOpLogger instance (ignores fields).
func (l *NoOpLogger) With(fields ...Field) Logger {
	return &NoOpLogger{}
}

// ZapLogger adapts a *zap.Logger to the Logger interface. It is not installed
// by default: a ClientConfig with a nil Logger uses NoOpLogger, so a caller
// opts in by setting ClientConfig.Logger.
type ZapLogger struct {
	logger *zap.Logger
}

// NewZapLogger builds a ZapLogger around a production zap configuration
// (JSON encoding, ISO8601 timestamps, stderr). Falls back to zap's no-op
// logger if construction fails rather than panicking the caller.
func NewZapLogger() *ZapLogger {
	cfg := zap.NewProductionConfig()
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		logger = zap.NewNop()
	}
	return &ZapLogger{logger: logger}
}

// NewZapLoggerFrom wraps an existing *zap.Logger supplied by the caller.
func NewZapLoggerFrom(logger *zap.Logger) *ZapLogger {
	return &ZapLogger{logger: logger}
}

func toZapFields(fields []Field) []zap.Field {
	zf := make([]zap.Field, 0, len(fields))
	for _, f := range fields {
		zf = append(zf, zap.Any(f.Key, f.Value))
	}
	return zf
}

// Debug logs a debug-level message with structured fields.
func (l *ZapLogger) Debug(msg string, fields ...Field) {
	l.logger.Debug(msg, toZapFields(fields)...)
}

// Info logs an info-level message with structured fields.
func (l *ZapLogger) Info(msg string, fields ...Field) {
	l.logger.Info(msg, toZapFields(fields)...)
}

// Warn logs a warning-level message with structured fields.
func (l *ZapLogger) Warn(msg string, fields ...Field) {
	l.logger.Warn(msg, toZapFields(fields)...)
}

// Error logs an error-level message with structured fields.
func (l *ZapLogger) Error(msg string, fields ...Field) {
	l.logger.Error(msg, toZapFields(fields)...)
}

// With creates a new ZapLogger instance with additional context fields
// pre-populated onto the underlying zap.Logger.
func (l *ZapLogger) With(fields ...Field) Logger {
	return &ZapLogger{logger: l.logger.With(toZapFields(fields)...)}
}
