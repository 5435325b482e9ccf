package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// TestLogger records every entry in memory so tests can assert on them.
type TestLogger struct {
	Logger
	logs *observer.ObservedLogs
}

// LogEntry represents a recorded log entry.
type LogEntry struct {
	Level   string
	Name    string
	Message string
	Fields  map[string]any
}

// NewTestLogger creates a test logger recording entries at debug level and above.
func NewTestLogger() *TestLogger {
	core, logs := observer.New(zapcore.DebugLevel)
	return &TestLogger{
		Logger: &logger{zap: zap.New(core)},
		logs:   logs,
	}
}

// Entries returns all recorded entries in order.
func (t *TestLogger) Entries() []LogEntry {
	all := t.logs.All()
	entries := make([]LogEntry, 0, len(all))
	for _, e := range all {
		entries = append(entries, LogEntry{
			Level:   e.Level.String(),
			Name:    e.LoggerName,
			Message: e.Message,
			Fields:  e.ContextMap(),
		})
	}
	return entries
}

// Count returns how many entries carry the given message.
func (t *TestLogger) Count(message string) int {
	return t.logs.FilterMessage(message).Len()
}

// CountLevel returns how many entries were logged at the given level ("warn", "error", ...).
func (t *TestLogger) CountLevel(level string) int {
	return t.logs.FilterLevelExact(parseLevel(level)).Len()
}
