package pipeline

import (
	"context"
	"image"
	"image/color"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"

	"archivist/internal/asset"
	"archivist/internal/command"
	"archivist/internal/ledger"
	"archivist/internal/logging"
	"archivist/internal/stage"
	"archivist/internal/storage"
)

// Icon sizes for list and detail views.
const (
	IconSmall = 128
	IconLarge = 512
)

var (
	iconBackground = color.NRGBA{R: 0x1f, G: 0x2a, B: 0x44, A: 0xff}
	iconBar        = color.NRGBA{R: 0x6c, G: 0xc2, B: 0xe8, A: 0xff}
	// relative bar heights of the placeholder waveform
	iconBars = []float64{0.35, 0.6, 0.9, 0.55, 0.75, 0.4, 0.65, 0.3}
)

// Tags is the outcome of best-effort tag extraction. When Extracted is
// false, Title holds the filename default and Reason explains why.
type Tags struct {
	Title     string
	Artist    string
	Album     string
	Genre     string
	Date      string
	Duration  float64
	Extracted bool
	Reason    string
}

// Metadata renders the tags as asset metadata.
func (t Tags) Metadata() map[string]any {
	values := map[string]any{
		"title":          t.Title,
		"tags_extracted": t.Extracted,
	}
	for key, value := range map[string]string{"artist": t.Artist, "album": t.Album, "genre": t.Genre, "date": t.Date} {
		if value != "" {
			values[key] = value
		}
	}
	if t.Duration > 0 {
		values["duration_seconds"] = t.Duration
	}
	if t.Reason != "" {
		values["tags_fallback_reason"] = t.Reason
	}
	return values
}

// Audio converts the original to MP3 and attaches placeholder icons and tags.
type Audio struct {
	deps *Dependencies
}

// NewAudio constructs the audio pipeline.
func NewAudio(deps *Dependencies) *Audio {
	return &Audio{deps: deps}
}

// Prepare refuses assets whose original does not resolve.
func (p *Audio) Prepare(_ context.Context, a *asset.Asset) error {
	return requireSource(p.deps, a)
}

// Execute runs the conversion, which is the only fatal step.
func (p *Audio) Execute(ctx context.Context, a *asset.Asset) error {
	logger := p.deps.logger(ctx, "audio")
	src, err := p.deps.source(a)
	if err != nil {
		return err
	}

	abs, rel, err := p.deps.Storage.Prepare(storage.Audio, storage.ConvertedAudioName(a.ID))
	if err != nil {
		return stage.Fail(ledger.StageStorageSave, "convert", err)
	}
	cmd := command.BuildAudioConvertCommand(p.deps.Config.FFmpegBinary(), src, abs, p.deps.Config.Audio.Bitrate)
	if _, err := p.deps.run(ctx, a.Kind, "convert", cmd); err != nil {
		return stage.Fail(ledger.StageAudioEncode, "convert", err)
	}
	if err := p.deps.persist(ctx, a, map[asset.Artifact]string{asset.ArtifactConvertedAudio: rel}); err != nil {
		return err
	}

	if err := p.icons(ctx, a); err != nil {
		p.deps.record(ctx, a, ledger.StageAudioProcess, "audio has no list icons", err)
	}

	tags := p.ExtractTags(ctx, a, src)
	if !tags.Extracted {
		logger.Info("audio tags unavailable; using filename",
			logging.String(logging.FieldEventType, "tags_defaulted"),
			logging.String("reason", tags.Reason),
		)
	}
	if err := p.deps.Assets.MergeMetadata(ctx, a.ID, tags.Metadata()); err != nil {
		p.deps.record(ctx, a, ledger.StageStorageSave, "audio metadata not saved", err)
	}

	if err := p.deps.Assets.Complete(ctx, a.ID); err != nil {
		return stage.Fail(ledger.StageStorageSave, "complete", err)
	}
	logger.Info("audio processed", logging.String(logging.FieldEventType, "asset_completed"))
	return nil
}

// ExtractTags reads textual tags and duration. It never fails: missing
// tags default the title to the original filename.
func (p *Audio) ExtractTags(ctx context.Context, a *asset.Asset, src string) Tags {
	tags := Tags{Title: defaultTitle(a, src)}
	result, err := p.deps.inspector().Inspect(ctx, src)
	if err != nil {
		tags.Reason = "inspect failed: " + err.Error()
		return tags
	}
	tags.Duration = result.DurationSeconds()
	tags.Artist = result.Tag("artist")
	tags.Album = result.Tag("album")
	tags.Genre = result.Tag("genre")
	tags.Date = result.Tag("date")
	if title := result.Tag("title"); title != "" {
		tags.Title = title
		tags.Extracted = true
	} else {
		tags.Reason = "no title tag"
	}
	return tags
}

// HealthCheck reports configuration readiness.
func (p *Audio) HealthCheck(context.Context) stage.Health {
	return healthCheck(p.deps, "audio")
}

func (p *Audio) icons(ctx context.Context, a *asset.Asset) error {
	artifacts := make(map[asset.Artifact]string, 2)
	for artifact, size := range map[asset.Artifact]int{asset.ArtifactIconSmall: IconSmall, asset.ArtifactIconLarge: IconLarge} {
		abs, rel, err := p.deps.Storage.Prepare(storage.Icons, storage.IconName(a.ID, size))
		if err != nil {
			return err
		}
		if err := writeImage(abs, PlaceholderIcon(size), imaging.PNG); err != nil {
			return err
		}
		artifacts[artifact] = rel
	}
	return p.deps.Assets.SetArtifacts(ctx, a.ID, artifacts)
}

// PlaceholderIcon draws a static waveform glyph. It does not depend on the
// audio content.
func PlaceholderIcon(size int) *image.NRGBA {
	icon := imaging.New(size, size, iconBackground)
	slot := size / (len(iconBars) + 2)
	if slot < 2 {
		return icon
	}
	barWidth := slot * 2 / 3
	for i, h := range iconBars {
		height := int(float64(size) * 0.7 * h)
		if height < 1 {
			height = 1
		}
		bar := imaging.New(barWidth, height, iconBar)
		x := slot*(i+1) + (slot-barWidth)/2
		y := (size - height) / 2
		icon = imaging.Paste(icon, bar, image.Pt(x, y))
	}
	return icon
}

func defaultTitle(a *asset.Asset, src string) string {
	name := a.OriginalName
	if name == "" {
		name = filepath.Base(src)
	}
	return strings.TrimSuffix(name, filepath.Ext(name))
}
