package pipeline_test

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"archivist/internal/asset"
	"archivist/internal/ledger"
	"archivist/internal/pipeline"
	"archivist/internal/stage"
	"archivist/internal/storage"
)

func encodeImage(t *testing.T, img image.Image, format imaging.Format) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, imaging.Encode(&buf, img, format))
	return buf.Bytes()
}

// transparentCanvas is fully transparent except for a red square.
func transparentCanvas(w, h int) *image.NRGBA {
	img := imaging.New(w, h, color.NRGBA{})
	square := imaging.New(w/4, h/4, color.NRGBA{R: 0xff, A: 0xff})
	return imaging.PasteCenter(img, square)
}

func TestImagePipelineFlattensAndResizes(t *testing.T) {
	h := newHarness(t, fakeInspector{})
	h.cfg.Image.WebMaxEdge = 150
	h.cfg.Image.ThumbnailEdge = 40
	a := h.claimed(t, asset.KindImage, "logo.png", encodeImage(t, transparentCanvas(300, 200), imaging.PNG))

	require.NoError(t, pipeline.NewImage(h.deps).Execute(context.Background(), a))

	got := h.reload(t, a.ID)
	assert.Equal(t, asset.StatusCompleted, got.Status)
	assert.EqualValues(t, 300, got.Metadata["width"])
	assert.EqualValues(t, 200, got.Metadata["height"])
	assert.Equal(t, "png", got.Metadata["format"])

	webAbs, err := h.storage.Resolve(got.Artifacts.WebVariant)
	require.NoError(t, err)
	web, err := imaging.Open(webAbs)
	require.NoError(t, err)
	assert.Equal(t, 150, web.Bounds().Dx())
	assert.Equal(t, 100, web.Bounds().Dy())
	r, g, b, _ := web.At(1, 1).RGBA()
	assert.Greater(t, r>>8, uint32(240), "transparent corner should be white")
	assert.Greater(t, g>>8, uint32(240))
	assert.Greater(t, b>>8, uint32(240))

	thumbAbs, err := h.storage.Resolve(got.Artifacts.Thumbnail)
	require.NoError(t, err)
	thumb, err := imaging.Open(thumbAbs)
	require.NoError(t, err)
	assert.Equal(t, 40, thumb.Bounds().Dx())
}

func TestImagePipelineRawUsesConverter(t *testing.T) {
	h := newHarness(t, fakeInspector{})
	h.runner.stdout["dcraw"] = encodeImage(t, imaging.New(64, 48, color.NRGBA{G: 0x80, A: 0xff}), imaging.TIFF)
	a := h.claimed(t, asset.KindImage, "frame.CR2", []byte("raw"))

	require.NoError(t, pipeline.NewImage(h.deps).Execute(context.Background(), a))

	call := h.runner.Calls()[0]
	assert.Equal(t, []string{"dcraw", "-c", "-w", "-T"}, call[:4])
	got := h.reload(t, a.ID)
	assert.EqualValues(t, 64, got.Metadata["width"])
	assert.Equal(t, "raw", got.Metadata["decode"])
}

func TestImagePipelineHEIFUsesFramePipe(t *testing.T) {
	h := newHarness(t, fakeInspector{})
	h.runner.stdout["ffmpeg"] = encodeImage(t, imaging.New(32, 32, color.NRGBA{B: 0xff, A: 0xff}), imaging.PNG)
	a := h.claimed(t, asset.KindImage, "phone.heic", []byte("heic"))

	require.NoError(t, pipeline.NewImage(h.deps).Execute(context.Background(), a))
	assert.Equal(t, "image2pipe", argAfter(h.runner.Calls()[0], "-f"))
	assert.Equal(t, asset.StatusCompleted, h.reload(t, a.ID).Status)
}

func TestImagePipelineVectorPlaceholder(t *testing.T) {
	h := newHarness(t, fakeInspector{})
	a := h.claimed(t, asset.KindImage, "mark.svg", []byte("<svg xmlns='http://www.w3.org/2000/svg'/>"))

	require.NoError(t, pipeline.NewImage(h.deps).Execute(context.Background(), a))
	got := h.reload(t, a.ID)
	assert.Equal(t, true, got.Metadata["placeholder"])
	assert.Empty(t, h.runner.Calls())
}

func TestImageDecodeFailure(t *testing.T) {
	h := newHarness(t, fakeInspector{})
	a := h.claimed(t, asset.KindImage, "corrupt.jpg", []byte("not a jpeg"))

	err := pipeline.NewImage(h.deps).Execute(context.Background(), a)
	require.Error(t, err)
	assert.Equal(t, ledger.StageImageProcess, stage.StageOf(err))
}

func TestImageThumbnailFailureKeepsWebVariant(t *testing.T) {
	h := newHarness(t, fakeInspector{})
	a := h.claimed(t, asset.KindImage, "poster.png", encodeImage(t, transparentCanvas(120, 80), imaging.PNG))

	// A non-empty directory at the thumbnail path makes the final rename fail.
	thumbAbs, _, err := h.storage.Prepare(storage.Thumbnails, storage.HeroThumbnailName(a.ID))
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(filepath.Join(thumbAbs, "occupied"), 0o755))

	err = pipeline.NewImage(h.deps).Execute(context.Background(), a)
	require.Error(t, err)
	assert.Equal(t, ledger.StageStorageSave, stage.StageOf(err))
	assert.Equal(t, "thumbnail", stage.StepOf(err))

	got := h.reload(t, a.ID)
	require.NotEmpty(t, got.Artifacts.WebVariant, "web variant written before the failure must be recorded")
	assert.Empty(t, got.Artifacts.Thumbnail)
	webAbs, err := h.storage.Resolve(got.Artifacts.WebVariant)
	require.NoError(t, err)
	assert.FileExists(t, webAbs)
}

func TestBranchFor(t *testing.T) {
	cases := map[string]pipeline.DecodeBranch{
		"a.jpg":  pipeline.BranchRaster,
		"a.GIF":  pipeline.BranchRaster,
		"a.webp": pipeline.BranchRaster,
		"a.HEIC": pipeline.BranchHEIF,
		"a.nef":  pipeline.BranchRAW,
		"a.dng":  pipeline.BranchRAW,
		"a.eps":  pipeline.BranchVector,
		"a.svg":  pipeline.BranchVector,
	}
	for name, want := range cases {
		assert.Equal(t, want, pipeline.BranchFor(name), name)
	}
}

func TestWebQuality(t *testing.T) {
	assert.Equal(t, 82, pipeline.WebQuality(6000, 4000))
	assert.Equal(t, 85, pipeline.WebQuality(3000, 2000))
	assert.Equal(t, 90, pipeline.WebQuality(1920, 1080))
}
