package stage

import (
	"errors"
	"testing"

	"archivist/internal/ledger"
	"archivist/internal/services"
)

func TestFailTagsStage(t *testing.T) {
	base := &services.ExitError{Binary: "ffmpeg", Code: 1}
	err := Fail(ledger.StageTranscode, "playable", base)
	if StageOf(err) != ledger.StageTranscode || StepOf(err) != "playable" {
		t.Fatalf("unexpected tags: %v / %q", StageOf(err), StepOf(err))
	}
	var exitErr *services.ExitError
	if !errors.As(err, &exitErr) {
		t.Fatalf("expected exit error to remain reachable: %v", err)
	}
	if err.Error() != "transcode playable: ffmpeg exited with code 1" {
		t.Fatalf("unexpected message: %q", err.Error())
	}
}

func TestFailNil(t *testing.T) {
	if Fail(ledger.StageOther, "x", nil) != nil {
		t.Fatal("expected nil for nil error")
	}
}

func TestStageOfDefaultsToOther(t *testing.T) {
	if StageOf(errors.New("boom")) != ledger.StageOther {
		t.Fatal("expected other stage for untagged error")
	}
}

func TestHealthWithEncoder(t *testing.T) {
	h := Healthy("video").WithEncoder(" h264_nvenc ")
	if !h.Ready || h.Encoder != "h264_nvenc" || h.Detail != "encoder h264_nvenc" {
		t.Fatalf("unexpected health %+v", h)
	}
	down := Unhealthy("video", "storage unavailable").WithEncoder("libx264")
	if down.Ready || down.Detail != "storage unavailable" {
		t.Fatalf("unhealthy detail should be kept, got %+v", down)
	}
}
