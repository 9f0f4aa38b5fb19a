package logger

import "context"

// NoopLogger discards every log entry. Used in tests and as a safe default.
type NoopLogger struct{}

// NewNoopLogger creates a logger that does nothing.
func NewNoopLogger() Logger { return &NoopLogger{} }

func (l *NoopLogger) Debug(ctx context.Context, message string, fields ...Field)            {}
func (l *NoopLogger) Info(ctx context.Context, message string, fields ...Field)             {}
func (l *NoopLogger) Warn(ctx context.Context, message string, fields ...Field)             {}
func (l *NoopLogger) Error(ctx context.Context, message string, err error, fields ...Field) {}
func (l *NoopLogger) Fatal(ctx context.Context, message string, err error, fields ...Field) {}
func (l *NoopLogger) WithFields(fields ...Field) Logger                                     { return l }
func (l *NoopLogger) WithComponent(component string) Logger                                 { return l }
