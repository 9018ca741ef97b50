package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"archivist/internal/asset"
	"archivist/internal/command"
	"archivist/internal/ledger"
	"archivist/internal/logging"
	"archivist/internal/stage"
	"archivist/internal/storage"
)

// DecodeBranch names how an image source is turned into pixels.
type DecodeBranch string

const (
	BranchRaster DecodeBranch = "raster"
	BranchHEIF   DecodeBranch = "heif"
	BranchRAW    DecodeBranch = "raw"
	BranchVector DecodeBranch = "vector"
)

const (
	placeholderWidth  = 800
	placeholderHeight = 600
	thumbnailQuality  = 85
)

var branchByExt = map[string]DecodeBranch{
	".heic": BranchHEIF, ".heif": BranchHEIF,
	".cr2": BranchRAW, ".cr3": BranchRAW, ".nef": BranchRAW, ".arw": BranchRAW,
	".dng": BranchRAW, ".orf": BranchRAW, ".rw2": BranchRAW, ".raf": BranchRAW,
	".srw": BranchRAW, ".pef": BranchRAW,
	".svg": BranchVector, ".svgz": BranchVector, ".eps": BranchVector,
	".ai": BranchVector, ".pdf": BranchVector,
}

// BranchFor selects the decode branch from the file extension. Anything
// unknown is attempted as a standard raster format.
func BranchFor(path string) DecodeBranch {
	if branch, ok := branchByExt[strings.ToLower(filepath.Ext(path))]; ok {
		return branch
	}
	return BranchRaster
}

// WebQuality picks the JPEG quality of the web variant from the source
// pixel count.
func WebQuality(width, height int) int {
	pixels := width * height
	switch {
	case pixels > 12_000_000:
		return 82
	case pixels > 4_000_000:
		return 85
	default:
		return 90
	}
}

// Flatten composites img onto white, dropping any alpha channel.
func Flatten(img image.Image) *image.NRGBA {
	bounds := img.Bounds()
	background := imaging.New(bounds.Dx(), bounds.Dy(), color.White)
	return imaging.Overlay(background, img, image.Pt(0, 0), 1.0)
}

// Image decodes the original and derives a web variant and a thumbnail.
type Image struct {
	deps *Dependencies
}

// NewImage constructs the image pipeline.
func NewImage(deps *Dependencies) *Image {
	return &Image{deps: deps}
}

// Prepare refuses assets whose original does not resolve.
func (p *Image) Prepare(_ context.Context, a *asset.Asset) error {
	return requireSource(p.deps, a)
}

// Execute decodes, persists dimensions, then writes derived images. Each
// artifact is recorded as soon as its file exists.
func (p *Image) Execute(ctx context.Context, a *asset.Asset) error {
	logger := p.deps.logger(ctx, "image")
	src, err := p.deps.source(a)
	if err != nil {
		return err
	}

	branch := BranchFor(src)
	img, err := p.decode(ctx, a, src, branch)
	if err != nil {
		return stage.Fail(ledger.StageImageProcess, "decode", err)
	}
	bounds := img.Bounds()
	if err := p.deps.Assets.MergeMetadata(ctx, a.ID, map[string]any{
		"width":       bounds.Dx(),
		"height":      bounds.Dy(),
		"format":      strings.TrimPrefix(strings.ToLower(filepath.Ext(src)), "."),
		"decode":      string(branch),
		"placeholder": branch == BranchVector,
	}); err != nil {
		return stage.Fail(ledger.StageStorageSave, "metadata", err)
	}

	flat := Flatten(img)
	maxEdge := p.deps.Config.Image.WebMaxEdge
	web := flat
	if bounds.Dx() > maxEdge || bounds.Dy() > maxEdge {
		web = imaging.Fit(flat, maxEdge, maxEdge, imaging.Lanczos)
	}
	webAbs, webRel, err := p.deps.Storage.Prepare(storage.Web, storage.WebVariantName(a.ID))
	if err != nil {
		return stage.Fail(ledger.StageStorageSave, "web", err)
	}
	if err := writeImage(webAbs, web, imaging.JPEG, imaging.JPEGQuality(WebQuality(bounds.Dx(), bounds.Dy()))); err != nil {
		return stage.Fail(ledger.StageStorageSave, "web", err)
	}
	if err := p.deps.persist(ctx, a, map[asset.Artifact]string{asset.ArtifactWebVariant: webRel}); err != nil {
		return err
	}

	edge := p.deps.Config.Image.ThumbnailEdge
	thumb := imaging.Fit(flat, edge, edge, imaging.Linear)
	thumbAbs, thumbRel, err := p.deps.Storage.Prepare(storage.Thumbnails, storage.HeroThumbnailName(a.ID))
	if err != nil {
		return stage.Fail(ledger.StageStorageSave, "thumbnail", err)
	}
	if err := writeImage(thumbAbs, thumb, imaging.JPEG, imaging.JPEGQuality(thumbnailQuality)); err != nil {
		return stage.Fail(ledger.StageStorageSave, "thumbnail", err)
	}

	if err := p.deps.persist(ctx, a, map[asset.Artifact]string{asset.ArtifactThumbnail: thumbRel}); err != nil {
		return err
	}
	if err := p.deps.Assets.Complete(ctx, a.ID); err != nil {
		return stage.Fail(ledger.StageStorageSave, "complete", err)
	}
	logger.Info("image processed",
		logging.String(logging.FieldEventType, "asset_completed"),
		logging.String("decode", string(branch)),
		logging.Int("width", bounds.Dx()),
		logging.Int("height", bounds.Dy()),
	)
	return nil
}

// HealthCheck reports configuration readiness.
func (p *Image) HealthCheck(context.Context) stage.Health {
	return healthCheck(p.deps, "image")
}

func (p *Image) decode(ctx context.Context, a *asset.Asset, src string, branch DecodeBranch) (image.Image, error) {
	switch branch {
	case BranchVector:
		return VectorPlaceholder(), nil
	case BranchHEIF:
		cmd := command.BuildFrameDecodeCommand(p.deps.Config.FFmpegBinary(), src)
		return p.decodePipe(ctx, a, "heif_decode", cmd)
	case BranchRAW:
		cmd := command.BuildRawDecodeCommand(p.deps.Config.RawConverterBinary(), src)
		return p.decodePipe(ctx, a, "raw_decode", cmd)
	default:
		// multi-frame formats decode their first frame only
		return imaging.Open(src, imaging.AutoOrientation(true))
	}
}

func (p *Image) decodePipe(ctx context.Context, a *asset.Asset, step string, cmd command.Command) (image.Image, error) {
	out, err := p.deps.run(ctx, a.Kind, step, cmd)
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%s produced no image data", cmd.Binary)
	}
	img, err := imaging.Decode(bytes.NewReader(out))
	if err != nil {
		return nil, fmt.Errorf("decode %s output: %w", cmd.Binary, err)
	}
	return img, nil
}

// VectorPlaceholder is the preview used for formats that are not
// rasterized.
func VectorPlaceholder() *image.NRGBA {
	canvas := imaging.New(placeholderWidth, placeholderHeight, color.NRGBA{R: 0xee, G: 0xee, B: 0xee, A: 0xff})
	frame := imaging.New(placeholderWidth/2, placeholderHeight/2, color.NRGBA{R: 0xc8, G: 0xc8, B: 0xc8, A: 0xff})
	return imaging.PasteCenter(canvas, frame)
}
