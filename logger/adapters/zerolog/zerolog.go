package zerolog

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/bignyap/studio-storage/logger/api"
	"github.com/bignyap/studio-storage/logger/config"
	"github.com/rs/zerolog"
)

// Logger implements the Logger interface using zerolog
type Logger struct {
	log       zerolog.Logger
	component string
	fields    []api.Field
}

var _ api.Logger = (*Logger)(nil)

// NewZerologger creates a new zerolog-based logger writing to the configured output
func NewZerologger(cfg config.LogConfig) (*Logger, error) {
	writer, err := openWriter(cfg)
	if err != nil {
		return nil, err
	}
	return NewZerologgerWithWriter(cfg, writer), nil
}

// NewZerologgerWithWriter builds a logger on an explicit writer; tests pass a buffer.
func NewZerologgerWithWriter(cfg config.LogConfig, writer io.Writer) *Logger {
	if cfg.Format == "pretty" && cfg.Environment != "prod" {
		writer = zerolog.ConsoleWriter{Out: writer, TimeFormat: "15:04:05"}
	}

	ctx := zerolog.New(writer).Level(parseLevel(cfg.Level)).With().Timestamp()
	for k, v := range cfg.Fields {
		ctx = ctx.Interface(k, v)
	}

	return &Logger{log: ctx.Logger()}
}

func (l *Logger) Debug(ctx context.Context, msg string, fields ...api.Field) {
	l.emit(ctx, l.log.Debug(), nil, msg, fields)
}

func (l *Logger) Info(ctx context.Context, msg string, fields ...api.Field) {
	l.emit(ctx, l.log.Info(), nil, msg, fields)
}

func (l *Logger) Warn(ctx context.Context, msg string, fields ...api.Field) {
	l.emit(ctx, l.log.Warn(), nil, msg, fields)
}

func (l *Logger) Error(ctx context.Context, msg string, err error, fields ...api.Field) {
	l.emit(ctx, l.log.Error(), err, msg, fields)
}

func (l *Logger) Fatal(ctx context.Context, msg string, err error, fields ...api.Field) {
	l.emit(ctx, l.log.Fatal(), err, msg, fields)
}

func (l *Logger) WithTraceID(traceID string) api.Logger {
	if traceID == "" {
		return l
	}
	return &Logger{
		log:       l.log.With().Str("trace_id", traceID).Logger(),
		component: l.component,
		fields:    l.fields,
	}
}

func (l *Logger) WithFields(fields ...api.Field) api.Logger {
	if len(fields) == 0 {
		return l
	}
	ctx := l.log.With()
	for _, f := range fields {
		ctx = ctx.Interface(f.Key, f.Value)
	}
	return &Logger{log: ctx.Logger(), component: l.component, fields: appendFields(l.fields, fields...)}
}

func (l *Logger) WithComponent(component string) api.Logger {
	if component == "" {
		return l
	}
	return &Logger{log: l.log, component: component, fields: l.fields}
}

func (l *Logger) AddField(key string, value interface{}) api.Logger {
	return l.WithFields(api.Any(key, value))
}

func (l *Logger) ToContext(ctx context.Context) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = context.WithValue(ctx, api.LoggerContextKey, l)
	if l.component != "" {
		ctx = context.WithValue(ctx, api.ComponentKey, l.component)
	}
	return ctx
}

func (l *Logger) emit(ctx context.Context, event *zerolog.Event, err error, msg string, fields []api.Field) {
	if event == nil {
		return
	}
	if traceID := api.GetTraceIDFromContext(ctx); traceID != "" {
		event.Str("trace_id", traceID)
	}
	if l.component != "" {
		event.Str("component", l.component)
	}
	if err != nil {
		event.Err(err)
	}
	for _, f := range fields {
		event.Interface(f.Key, f.Value)
	}
	event.Msg(msg)
}

// appendFields copies so sibling loggers never share a backing array.
func appendFields(base []api.Field, extra ...api.Field) []api.Field {
	out := make([]api.Field, 0, len(base)+len(extra))
	out = append(out, base...)
	return append(out, extra...)
}

func parseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "fatal":
		return zerolog.FatalLevel
	case "none", "off", "silent":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}

func openWriter(cfg config.LogConfig) (io.Writer, error) {
	switch cfg.Output {
	case "stderr":
		return os.Stderr, nil
	case "file":
		if err := os.MkdirAll(filepath.Dir(cfg.FilePath), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		f, err := os.OpenFile(cfg.FilePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		return f, nil
	default:
		return os.Stdout, nil
	}
}
