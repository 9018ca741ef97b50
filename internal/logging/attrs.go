package logging

import (
	"context"
	"log/slog"
	"strconv"
	"time"
)

type Attr = slog.Attr

func Any(key string, value any) Attr { return slog.Any(key, value) }

func Bool(key string, value bool) Attr { return slog.Bool(key, value) }

func Duration(key string, value time.Duration) Attr { return slog.Duration(key, value) }

func Float64(key string, value float64) Attr { return slog.Float64(key, value) }

func Int(key string, value int) Attr { return slog.Int(key, value) }

func Int64(key string, value int64) Attr { return slog.Int64(key, value) }

func String(key string, value string) Attr { return slog.String(key, value) }

func Strings(key string, values []string) Attr { return slog.Any(key, values) }

func Alert(value string) Attr { return slog.String(FieldAlert, value) }

// AssetID tags a record with the asset it concerns.
func AssetID(id string) Attr { return slog.String(FieldAssetID, id) }

// Command records an external process invocation as one string.
func Command(cmd string) Attr { return slog.String("command", cmd) }

// Seconds renders a media timestamp with millisecond precision, the way
// ffmpeg seek offsets are written.
func Seconds(key string, value float64) Attr {
	return slog.String(key, strconv.FormatFloat(value, 'f', 3, 64)+"s")
}

func Error(err error) Attr {
	if err == nil {
		return slog.String("error", "<nil>")
	}
	return slog.Any("error", err)
}

func NewNop() *slog.Logger {
	return slog.New(noopHandler{})
}

// NewComponentLogger tags logger with a component. A nil logger yields a
// component-tagged no-op logger.
func NewComponentLogger(logger *slog.Logger, component string) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	return logger.With(String(FieldComponent, component))
}

func hasKey(attrs []Attr, key string) bool {
	for _, a := range attrs {
		if a.Key == key {
			return true
		}
	}
	return false
}

// WarnWithContext logs a warning that always carries event_type,
// error_hint, and impact, filling defaults for any the caller omitted.
func WarnWithContext(logger *slog.Logger, msg, eventType string, attrs ...Attr) {
	if logger == nil {
		return
	}
	if !hasKey(attrs, FieldEventType) {
		attrs = append(attrs, String(FieldEventType, eventType))
	}
	if !hasKey(attrs, FieldErrorHint) {
		attrs = append(attrs, String(FieldErrorHint, "run `archivist logs --asset <id>` for details"))
	}
	if !hasKey(attrs, FieldImpact) {
		attrs = append(attrs, String(FieldImpact, "operation completed with warnings"))
	}
	logger.LogAttrs(context.Background(), slog.LevelWarn, msg, attrs...)
}

type noopHandler struct{}

func (noopHandler) Enabled(context.Context, slog.Level) bool { return false }

func (noopHandler) Handle(context.Context, slog.Record) error { return nil }

func (noopHandler) WithAttrs([]slog.Attr) slog.Handler { return noopHandler{} }

func (noopHandler) WithGroup(string) slog.Handler { return noopHandler{} }
