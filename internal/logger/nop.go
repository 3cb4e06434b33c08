package logger

// NopLogger discards all log entries. Used in tests.
type NopLogger struct{}

// NewNop creates a logger that does nothing.
func NewNop() Logger { return &NopLogger{} }

// Debug does nothing.
func (l *NopLogger) Debug(msg string, fields ...Field) {}

// Info does nothing.
func (l *NopLogger) Info(msg string, fields ...Field) {}

// Warn does nothing.
func (l *NopLogger) Warn(msg string, fields ...Field) {}

// Error does nothing.
func (l *NopLogger) Error(msg string, fields ...Field) {}

// With returns the same no-op logger.
func (l *NopLogger) With(fields ...Field) Logger { return l }

// Sync does nothing and returns nil.
func (l *NopLogger) Sync() error { return nil }
