package pipeline_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"archivist/internal/asset"
	"archivist/internal/command"
	"archivist/internal/ledger"
	"archivist/internal/pipeline"
	"archivist/internal/services"
)

func completedVideo(t *testing.T, h *harness) *asset.Asset {
	t.Helper()
	a := h.claimed(t, asset.KindVideo, "master.mov", []byte("video"))
	require.NoError(t, pipeline.NewVideo(h.deps).Execute(context.Background(), a))
	return h.reload(t, a.ID)
}

func TestCustomEncodeAppendsVariant(t *testing.T) {
	h := newHarness(t, fakeInspector{duration: 30})
	a := completedVideo(t, h)

	variant, err := pipeline.NewCustom(h.deps).Encode(context.Background(), a, "hd720", nil)
	require.NoError(t, err)
	assert.Equal(t, a.ID[:8]+"_hd720.mp4", variant.FileName)
	assert.Equal(t, "encoded/"+variant.FileName, variant.Path)
	assert.Equal(t, "hd720", variant.PresetID)
	assert.Equal(t, "libx264", variant.Codec)
	assert.True(t, h.storage.Exists(variant.Path))

	got := h.reload(t, a.ID)
	assert.Equal(t, asset.StatusCompleted, got.Status)
	require.Len(t, got.Artifacts.CustomVariants, 1)
	assert.Equal(t, variant.Path, got.Artifacts.CustomVariants[0].Path)
	assert.Equal(t, "1280x720", got.Artifacts.CustomVariants[0].Settings.Resolution)
}

func TestCustomEncodeFailureOnlyTouchesLedger(t *testing.T) {
	h := newHarness(t, fakeInspector{duration: 30})
	a := completedVideo(t, h)
	h.runner.failOn["_web_sd."] = &services.ExitError{Binary: "ffmpeg", Code: 1, Stderr: "Error while opening encoder"}

	_, err := pipeline.NewCustom(h.deps).Encode(context.Background(), a, "web_sd", nil)
	require.Error(t, err)

	got := h.reload(t, a.ID)
	assert.Equal(t, asset.StatusCompleted, got.Status)
	assert.Empty(t, got.LastError)
	assert.Empty(t, got.Artifacts.CustomVariants)

	records := h.ledgerEntries(t, ledger.StageCustomEncode)
	require.Len(t, records, 1)
	assert.Equal(t, "Error while opening encoder", records[0].Message)
}

func TestCustomEncodeAudioForcesAudioOnly(t *testing.T) {
	h := newHarness(t, fakeInspector{})
	a := h.claimed(t, asset.KindAudio, "speech.wav", []byte("riff"))

	variant, err := pipeline.NewCustom(h.deps).Encode(context.Background(), a, "custom", &command.Settings{AudioCodec: "pcm_s16le"})
	require.NoError(t, err)
	assert.Equal(t, "wav", variant.Container)
	assert.Equal(t, "pcm_s16le", variant.Codec)
	assert.True(t, variant.Settings.AudioOnly)

	call := h.runner.Calls()[h.runner.callWith("_custom.wav")]
	assert.Contains(t, call, "-vn")
	assert.Equal(t, asset.StatusProcessing, h.reload(t, a.ID).Status)
}

func TestCustomEncodeRejectsUnknownPresetWithoutSettings(t *testing.T) {
	h := newHarness(t, fakeInspector{duration: 30})
	a := completedVideo(t, h)

	_, err := pipeline.NewCustom(h.deps).Encode(context.Background(), a, "broadcast_master", nil)
	assert.ErrorIs(t, err, services.ErrValidation)
	assert.Len(t, h.ledgerEntries(t, ledger.StageCustomEncode), 1)
}

func TestCustomEncodeRejectsImages(t *testing.T) {
	h := newHarness(t, fakeInspector{})
	a := &asset.Asset{ID: "00000000-0000-0000-0000-000000000000", Kind: asset.KindImage}
	_, err := pipeline.NewCustom(h.deps).Encode(context.Background(), a, "hd720", nil)
	assert.ErrorIs(t, err, services.ErrValidation)
}
