package pipeline

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"archivist/internal/asset"
	"archivist/internal/command"
	"archivist/internal/ledger"
	"archivist/internal/logging"
	"archivist/internal/services"
	"archivist/internal/stage"
	"archivist/internal/storage"
)

// Custom produces on-demand variants from preset or explicit settings. It
// never changes an asset's status; failures go to the ledger only.
type Custom struct {
	deps *Dependencies
	now  func() time.Time
}

// NewCustom constructs the custom encode pipeline.
func NewCustom(deps *Dependencies) *Custom {
	return &Custom{deps: deps, now: func() time.Time { return time.Now().UTC() }}
}

// Encode resolves the settings, runs the encode, and appends the variant.
func (c *Custom) Encode(ctx context.Context, a *asset.Asset, presetID string, overrides *command.Settings) (asset.CustomVariant, error) {
	ctx = services.WithStage(services.WithAssetID(ctx, a.ID), "custom_encode")
	variant, err := c.encode(ctx, a, presetID, overrides)
	if err != nil {
		c.deps.record(ctx, a, stage.StageOf(err), "custom variant not produced; asset status unchanged", err)
		return asset.CustomVariant{}, err
	}
	return variant, nil
}

func (c *Custom) encode(ctx context.Context, a *asset.Asset, presetID string, overrides *command.Settings) (asset.CustomVariant, error) {
	logger := c.deps.logger(ctx, "custom")
	switch a.Kind {
	case asset.KindVideo:
	case asset.KindAudio:
		forced := command.Settings{AudioOnly: true}
		if overrides != nil {
			forced = overrides.Merge(forced)
		}
		overrides = &forced
	default:
		return asset.CustomVariant{}, stage.Fail(ledger.StageCustomEncode, "resolve",
			fmt.Errorf("%w: custom encode is not available for %s assets", services.ErrValidation, a.Kind))
	}

	resolved, err := command.ResolveSettings(presetID, overrides)
	if err != nil {
		return asset.CustomVariant{}, stage.Fail(ledger.StageCustomEncode, "resolve", err)
	}
	if resolved.Correction != nil {
		logger.Info("container corrected",
			logging.String(logging.FieldEventType, "container_corrected"),
			logging.String("from", resolved.Correction.From),
			logging.String("to", resolved.Correction.To),
			logging.String("reason", resolved.Correction.Reason),
			logging.String("audio_from", resolved.Correction.AudioFrom),
			logging.String("audio_to", resolved.Correction.AudioTo),
		)
	}

	src, err := c.deps.source(a)
	if err != nil {
		return asset.CustomVariant{}, err
	}
	if !c.deps.Storage.Exists(a.SourcePath) {
		return asset.CustomVariant{}, stage.Fail(ledger.StageUpload, "source",
			fmt.Errorf("%w: source file %s", services.ErrNotFound, a.SourcePath))
	}

	settings := resolved.Settings
	name := command.OutputName(a.ID, resolved.PresetID, settings.Container)
	abs, rel, err := c.deps.Storage.Prepare(storage.Encoded, name)
	if err != nil {
		return asset.CustomVariant{}, stage.Fail(ledger.StageStorageSave, "prepare", err)
	}
	cmd := command.BuildCustomCommand(c.deps.Config.FFmpegBinary(), src, abs, settings)
	if _, err := c.deps.run(ctx, a.Kind, "custom_encode", cmd); err != nil {
		return asset.CustomVariant{}, stage.Fail(ledger.StageCustomEncode, "encode", err)
	}

	info, err := os.Stat(abs)
	if err != nil {
		return asset.CustomVariant{}, stage.Fail(ledger.StageStorageSave, "stat", err)
	}
	codec := settings.VideoCodec
	if settings.AudioOnly {
		codec = settings.AudioCodec
	}
	variant := asset.CustomVariant{
		FileName:   filepath.Base(abs),
		Path:       rel,
		PresetID:   resolved.PresetID,
		Container:  settings.Container,
		Codec:      codec,
		Resolution: settings.Resolution,
		SizeMB:     math.Round(float64(info.Size())/(1024*1024)*100) / 100,
		CreatedAt:  c.now(),
		Settings:   settings,
	}
	if err := c.deps.Assets.AppendCustomVariant(ctx, a.ID, variant); err != nil {
		return asset.CustomVariant{}, stage.Fail(ledger.StageStorageSave, "append", err)
	}
	logger.Info("custom variant encoded",
		logging.String(logging.FieldEventType, "custom_encoded"),
		logging.String("preset", resolved.PresetID),
		logging.String("path", rel),
		logging.Float64("size_mb", variant.SizeMB),
	)
	return variant, nil
}
