package pipeline_test

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"archivist/internal/asset"
	"archivist/internal/ledger"
	"archivist/internal/pipeline"
	"archivist/internal/services"
	"archivist/internal/stage"
)

func argAfter(call []string, flag string) string {
	i := slices.Index(call, flag)
	if i < 0 || i+1 >= len(call) {
		return ""
	}
	return call[i+1]
}

func TestVideoPipelineShortClip(t *testing.T) {
	h := newHarness(t, fakeInspector{duration: 3.2})
	a := h.claimed(t, asset.KindVideo, "clip.mov", []byte("video"))

	require.NoError(t, pipeline.NewVideo(h.deps).Execute(context.Background(), a))

	heroIdx := h.runner.callWith("_thumb.jpg")
	slateIdx := h.runner.callWith("_slate.jpg")
	playableIdx := h.runner.callWith("_h264.mp4")
	require.GreaterOrEqual(t, heroIdx, 0)
	require.Less(t, heroIdx, playableIdx, "thumbnails run before transcode")
	require.Less(t, slateIdx, playableIdx)

	calls := h.runner.Calls()
	assert.Equal(t, "1.6", argAfter(calls[heroIdx], "-ss"))
	assert.Equal(t, "scale=-2:360", argAfter(calls[heroIdx], "-vf"))
	assert.Equal(t, "0.5", argAfter(calls[slateIdx], "-ss"))
	assert.Equal(t, "scale=-2:720", argAfter(calls[slateIdx], "-vf"))
	assert.Equal(t, "libx264", argAfter(calls[playableIdx], "-c:v"))

	got := h.reload(t, a.ID)
	assert.Equal(t, asset.StatusCompleted, got.Status)
	assert.Equal(t, "thumbnails/"+a.ID[:8]+"_thumb.jpg", got.Artifacts.Thumbnail)
	assert.Equal(t, "slates/"+a.ID[:8]+"_slate.jpg", got.Artifacts.SlateThumbnail)
	assert.Equal(t, "playable/"+a.ID[:8]+"_h264.mp4", got.Artifacts.PlayableProxy)
	assert.NotEmpty(t, got.Artifacts.SupportProxy)
	assert.InDelta(t, 3.2, got.Metadata["duration_seconds"], 1e-9)
	for _, rel := range []string{got.Artifacts.Thumbnail, got.Artifacts.SlateThumbnail, got.Artifacts.PlayableProxy} {
		assert.True(t, h.storage.Exists(rel), rel)
	}
}

func TestVideoTranscodeFailureKeepsThumbnails(t *testing.T) {
	h := newHarness(t, fakeInspector{duration: 120})
	h.runner.failOn["_h264.mp4"] = &services.ExitError{Binary: "ffmpeg", Code: 1, Stderr: "Conversion failed!"}
	a := h.claimed(t, asset.KindVideo, "broken.mov", []byte("video"))

	err := pipeline.NewVideo(h.deps).Execute(context.Background(), a)
	require.Error(t, err)
	assert.Equal(t, ledger.StageTranscode, stage.StageOf(err))
	assert.Equal(t, "playable", stage.StepOf(err))

	got := h.reload(t, a.ID)
	assert.Equal(t, asset.StatusProcessing, got.Status, "terminal transition belongs to the dispatcher")
	assert.NotEmpty(t, got.Artifacts.Thumbnail)
	assert.NotEmpty(t, got.Artifacts.SlateThumbnail)
	assert.Empty(t, got.Artifacts.PlayableProxy)
	assert.Equal(t, -1, h.runner.callWith("_h265.mp4"), "support proxy must not run after a failed playable")
}

func TestVideoSupportProxyFailureIsNonFatal(t *testing.T) {
	h := newHarness(t, fakeInspector{duration: 60})
	h.runner.failOn["_h265.mp4"] = &services.ExitError{Binary: "ffmpeg", Code: 234, Stderr: "Unknown encoder 'libx265'"}
	a := h.claimed(t, asset.KindVideo, "proxy.mov", []byte("video"))

	require.NoError(t, pipeline.NewVideo(h.deps).Execute(context.Background(), a))

	got := h.reload(t, a.ID)
	assert.Equal(t, asset.StatusCompleted, got.Status)
	assert.Empty(t, got.Artifacts.SupportProxy)

	records := h.ledgerEntries(t, ledger.StageTranscode)
	require.Len(t, records, 1)
	assert.Equal(t, a.ID, records[0].AssetID)
	assert.Equal(t, "Unknown encoder 'libx265'", records[0].Message)
	assert.EqualValues(t, 234, records[0].Extra["exit_code"])
}

func TestVideoDurationFallback(t *testing.T) {
	h := newHarness(t, fakeInspector{err: errors.New("moov atom not found")})
	a := h.claimed(t, asset.KindVideo, "nodur.mov", []byte("video"))

	require.NoError(t, pipeline.NewVideo(h.deps).Execute(context.Background(), a))

	calls := h.runner.Calls()
	assert.Equal(t, "7.1", argAfter(calls[h.runner.callWith("_thumb.jpg")], "-ss"))
	assert.Equal(t, "2", argAfter(calls[h.runner.callWith("_slate.jpg")], "-ss"))
	assert.InDelta(t, 30.0, h.reload(t, a.ID).Metadata["duration_seconds"], 1e-9)
}

func TestVideoProxyDisabled(t *testing.T) {
	h := newHarness(t, fakeInspector{duration: 20})
	h.cfg.Video.ProxyEnabled = false
	a := h.claimed(t, asset.KindVideo, "noproxy.mov", []byte("video"))

	require.NoError(t, pipeline.NewVideo(h.deps).Execute(context.Background(), a))
	assert.Equal(t, -1, h.runner.callWith("_h265.mp4"))
}

func TestVideoPrepareRequiresSource(t *testing.T) {
	h := newHarness(t, fakeInspector{duration: 20})
	a := &asset.Asset{ID: "x", Kind: asset.KindVideo, SourcePath: "/does/not/exist.mov"}
	err := pipeline.NewVideo(h.deps).Prepare(context.Background(), a)
	assert.ErrorIs(t, err, services.ErrNotFound)
}

func TestRegenerateThumbnailsLeavesStatus(t *testing.T) {
	h := newHarness(t, fakeInspector{duration: 8})
	a := h.claimed(t, asset.KindVideo, "regen.mov", []byte("video"))
	require.NoError(t, pipeline.NewVideo(h.deps).RegenerateThumbnails(context.Background(), a))

	got := h.reload(t, a.ID)
	assert.Equal(t, asset.StatusProcessing, got.Status)
	assert.NotEmpty(t, got.Artifacts.Thumbnail)
	assert.Equal(t, -1, h.runner.callWith("_h264.mp4"))
}
