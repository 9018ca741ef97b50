package logging

import (
	"context"
	"errors"
	"log/slog"
)

// teeHandler forwards each record to every child that accepts its level.
type teeHandler []slog.Handler

// TeeHandler creates a handler that duplicates log output to multiple handlers.
// Nil handlers are dropped; a single survivor is returned unwrapped.
func TeeHandler(handlers ...slog.Handler) slog.Handler {
	var kept teeHandler
	for _, h := range handlers {
		if h != nil {
			kept = append(kept, h)
		}
	}
	switch len(kept) {
	case 0:
		return noopHandler{}
	case 1:
		return kept[0]
	default:
		return kept
	}
}

func (t teeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range t {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (t teeHandler) Handle(ctx context.Context, record slog.Record) error {
	var errs []error
	for _, h := range t {
		if !h.Enabled(ctx, record.Level) {
			continue
		}
		if err := h.Handle(ctx, record.Clone()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (t teeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := make(teeHandler, len(t))
	for i, h := range t {
		next[i] = h.WithAttrs(attrs)
	}
	return next
}

func (t teeHandler) WithGroup(name string) slog.Handler {
	next := make(teeHandler, len(t))
	for i, h := range t {
		next[i] = h.WithGroup(name)
	}
	return next
}
