package ledger_test

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"

	"archivist/internal/asset"
	"archivist/internal/ledger"
	"archivist/internal/services"
)

func openLedger(t *testing.T) (*asset.Store, *ledger.Ledger) {
	t.Helper()
	ctx := context.Background()
	store, err := asset.Open(ctx, filepath.Join(t.TempDir(), "archivist.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	l, err := ledger.New(ctx, store.DB())
	if err != nil {
		t.Fatalf("open ledger: %v", err)
	}
	return store, l
}

func TestRecordCapturesExitCodeAndTruncates(t *testing.T) {
	_, l := openLedger(t)
	ctx := context.Background()

	stderr := strings.Repeat("frame=  120 fps= 30 q=28.0 size=    1024kB\n", 80) + "Conversion failed!"
	failure := &services.ExitError{Binary: "ffmpeg", Code: 187, Stderr: stderr}
	entry := ledger.FromError(ledger.Entry{Stage: ledger.StageTranscode, FileName: "tape.mov"}, failure)
	rec, err := l.Record(ctx, entry)
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if n := utf8.RuneCountInString(rec.Message); n != ledger.MessageLimit {
		t.Fatalf("expected message capped at %d runes, got %d", ledger.MessageLimit, n)
	}
	if !strings.HasSuffix(rec.Message, "Conversion failed!") {
		t.Fatalf("expected final stderr line kept, got tail %q", rec.Message[len(rec.Message)-40:])
	}

	got, err := l.Get(ctx, rec.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Extra["exit_code"] != float64(187) {
		t.Fatalf("expected exit_code 187, got %v", got.Extra)
	}
	if got.Stage != ledger.StageTranscode || got.Resolved {
		t.Fatalf("unexpected record: %+v", got)
	}
}

func TestRecordRejectsUnknownStage(t *testing.T) {
	_, l := openLedger(t)
	_, err := l.Record(context.Background(), ledger.Entry{Stage: "render", Message: "x"})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestListFiltersAndResolve(t *testing.T) {
	store, l := openLedger(t)
	ctx := context.Background()

	a, err := store.Register(ctx, asset.Registration{Kind: asset.KindImage, Container: "stills", OriginalName: "p.cr2"})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	first, err := l.Record(ctx, ledger.Entry{AssetID: a.ID, AssetKind: "image", Stage: ledger.StageImageProcess, Message: "raw decode failed"})
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if _, err := l.Record(ctx, ledger.Entry{Stage: ledger.StageCustomEncode, Message: "bad preset"}); err != nil {
		t.Fatalf("Record: %v", err)
	}

	images, err := l.List(ctx, ledger.Filter{Stage: ledger.StageImageProcess})
	if err != nil || len(images) != 1 || images[0].AssetID != a.ID {
		t.Fatalf("stage filter = %+v, %v", images, err)
	}

	if err := l.SetResolved(ctx, first.ID, true); err != nil {
		t.Fatalf("SetResolved: %v", err)
	}
	open := false
	unresolved, err := l.List(ctx, ledger.Filter{Resolved: &open})
	if err != nil || len(unresolved) != 1 || unresolved[0].Stage != ledger.StageCustomEncode {
		t.Fatalf("resolved filter = %+v, %v", unresolved, err)
	}
	if n, err := l.Unresolved(ctx); err != nil || n != 1 {
		t.Fatalf("Unresolved = %d, %v", n, err)
	}
	if err := l.SetResolved(ctx, "missing", true); !errors.Is(err, ledger.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	if err := store.Delete(ctx, a.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	kept, err := l.Get(ctx, first.ID)
	if err != nil {
		t.Fatalf("Get after asset delete: %v", err)
	}
	if kept.AssetID != "" {
		t.Fatalf("expected asset reference nulled, got %q", kept.AssetID)
	}
}
