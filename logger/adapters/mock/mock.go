package mock

import (
	"context"
	"strings"
	"sync"

	"github.com/bignyap/studio-storage/logger/api"
)

// Level names a recorded severity.
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
	LevelFatal Level = "fatal"
)

// LogEntry represents a logged message
type LogEntry struct {
	Level     Level
	Message   string
	Error     error
	Component string
	Fields    []api.Field
}

// Field returns the value of the named field and whether it was present.
func (e LogEntry) Field(key string) (interface{}, bool) {
	for _, f := range e.Fields {
		if f.Key == key {
			return f.Value, true
		}
	}
	return nil, false
}

type sink struct {
	mu      sync.Mutex
	entries []LogEntry
}

// Mock implements the Logger interface for testing purposes.
// Loggers derived with WithComponent/WithFields record into the same sink.
type Mock struct {
	sink      *sink
	component string
	fields    []api.Field
	traceID   string
}

var _ api.Logger = (*Mock)(nil)

// NewMockLogger creates a new mock logger
func NewMockLogger() *Mock {
	return &Mock{sink: &sink{}}
}

func (m *Mock) record(level Level, msg string, err error, fields []api.Field) {
	all := make([]api.Field, 0, len(m.fields)+len(fields))
	all = append(all, m.fields...)
	all = append(all, fields...)

	m.sink.mu.Lock()
	defer m.sink.mu.Unlock()
	m.sink.entries = append(m.sink.entries, LogEntry{
		Level:     level,
		Message:   msg,
		Error:     err,
		Component: m.component,
		Fields:    all,
	})
}

func (m *Mock) Debug(ctx context.Context, msg string, fields ...api.Field) {
	m.record(LevelDebug, msg, nil, fields)
}

func (m *Mock) Info(ctx context.Context, msg string, fields ...api.Field) {
	m.record(LevelInfo, msg, nil, fields)
}

func (m *Mock) Warn(ctx context.Context, msg string, fields ...api.Field) {
	m.record(LevelWarn, msg, nil, fields)
}

func (m *Mock) Error(ctx context.Context, msg string, err error, fields ...api.Field) {
	m.record(LevelError, msg, err, fields)
}

// Fatal records the message; unlike a real logger it does not exit.
func (m *Mock) Fatal(ctx context.Context, msg string, err error, fields ...api.Field) {
	m.record(LevelFatal, msg, err, fields)
}

func (m *Mock) derive() *Mock {
	return &Mock{
		sink:      m.sink,
		component: m.component,
		fields:    append([]api.Field(nil), m.fields...),
		traceID:   m.traceID,
	}
}

func (m *Mock) WithTraceID(traceID string) api.Logger {
	d := m.derive()
	d.traceID = traceID
	return d
}

func (m *Mock) WithFields(fields ...api.Field) api.Logger {
	d := m.derive()
	d.fields = append(d.fields, fields...)
	return d
}

func (m *Mock) WithComponent(component string) api.Logger {
	d := m.derive()
	d.component = component
	return d
}

func (m *Mock) AddField(key string, value interface{}) api.Logger {
	return m.WithFields(api.Any(key, value))
}

func (m *Mock) ToContext(ctx context.Context) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = context.WithValue(ctx, api.LoggerContextKey, m)
	if m.traceID != "" {
		ctx = context.WithValue(ctx, api.TraceIDKey, m.traceID)
	}
	if m.component != "" {
		ctx = context.WithValue(ctx, api.ComponentKey, m.component)
	}
	return ctx
}

// Entries returns a copy of everything logged at the given level.
func (m *Mock) Entries(level Level) []LogEntry {
	m.sink.mu.Lock()
	defer m.sink.mu.Unlock()
	var out []LogEntry
	for _, e := range m.sink.entries {
		if e.Level == level {
			out = append(out, e)
		}
	}
	return out
}

// Warnings is shorthand for Entries(LevelWarn).
func (m *Mock) Warnings() []LogEntry {
	return m.Entries(LevelWarn)
}

// HasWarning reports whether any warning message contains substr.
func (m *Mock) HasWarning(substr string) bool {
	for _, e := range m.Warnings() {
		if strings.Contains(e.Message, substr) {
			return true
		}
	}
	return false
}

// Clear drops all recorded entries
func (m *Mock) Clear() {
	m.sink.mu.Lock()
	defer m.sink.mu.Unlock()
	m.sink.entries = nil
}
