package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestTeeHandlerCollapses(t *testing.T) {
	if _, ok := TeeHandler(nil, nil).(noopHandler); !ok {
		t.Fatal("expected noop handler for all nil handlers")
	}
	var buf bytes.Buffer
	inner := slog.NewJSONHandler(&buf, nil)
	if h := TeeHandler(nil, inner); h != inner {
		t.Fatal("expected single handler to be returned unwrapped")
	}
}

func TestTeeHandlerRespectsChildLevels(t *testing.T) {
	var infoBuf, warnBuf bytes.Buffer
	h := TeeHandler(
		slog.NewJSONHandler(&infoBuf, &slog.HandlerOptions{Level: slog.LevelInfo}),
		slog.NewJSONHandler(&warnBuf, &slog.HandlerOptions{Level: slog.LevelWarn}),
	)
	if h.Enabled(context.Background(), slog.LevelDebug) {
		t.Fatal("expected debug to be disabled on every child")
	}

	logger := slog.New(h).With("asset_id", "abc")
	logger.Info("thumbnail saved")
	logger.Warn("proxy skipped")

	if !strings.Contains(infoBuf.String(), "thumbnail saved") || !strings.Contains(infoBuf.String(), "proxy skipped") {
		t.Fatalf("info handler missing records: %s", infoBuf.String())
	}
	if strings.Contains(warnBuf.String(), "thumbnail saved") {
		t.Fatalf("warn handler received info record: %s", warnBuf.String())
	}
	if !strings.Contains(warnBuf.String(), `"asset_id":"abc"`) {
		t.Fatalf("expected attrs to propagate to children: %s", warnBuf.String())
	}
}
