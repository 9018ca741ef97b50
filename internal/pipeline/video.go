package pipeline

import (
	"context"
	"math"

	"archivist/internal/asset"
	"archivist/internal/command"
	"archivist/internal/ledger"
	"archivist/internal/logging"
	"archivist/internal/stage"
	"archivist/internal/storage"
)

// Video produces hero and slate thumbnails, the H.264 playable proxy, and
// the optional H.265 support proxy.
type Video struct {
	deps *Dependencies
}

// NewVideo constructs the video pipeline.
func NewVideo(deps *Dependencies) *Video {
	return &Video{deps: deps}
}

// Prepare refuses assets whose original does not resolve.
func (v *Video) Prepare(_ context.Context, a *asset.Asset) error {
	return requireSource(v.deps, a)
}

// Execute runs probe, thumbnails, and transcode in order. Each step
// persists its artifacts before the next begins.
func (v *Video) Execute(ctx context.Context, a *asset.Asset) error {
	logger := v.deps.logger(ctx, "video")
	src, err := v.deps.source(a)
	if err != nil {
		return err
	}

	duration := v.Duration(ctx, src)
	hero, slate := Timestamps(duration)
	logger.Info("thumbnail timestamps",
		logging.String(logging.FieldEventType, "timestamps_selected"),
		logging.Seconds("duration", duration),
		logging.Seconds("hero", hero),
		logging.Seconds("slate", slate),
	)
	if err := v.deps.Assets.MergeMetadata(ctx, a.ID, map[string]any{"duration_seconds": duration}); err != nil {
		return stage.Fail(ledger.StageStorageSave, "metadata", err)
	}

	if err := v.thumbnails(ctx, a, src, hero, slate); err != nil {
		return err
	}

	if err := v.playable(ctx, a, src); err != nil {
		return err
	}

	if v.deps.Config.Video.ProxyEnabled {
		if err := v.support(ctx, a, src); err != nil {
			v.deps.record(ctx, a, stage.StageOf(err), "no H.265 support proxy; playable proxy is unaffected", err)
		}
	}

	if err := v.deps.Assets.Complete(ctx, a.ID); err != nil {
		return stage.Fail(ledger.StageStorageSave, "complete", err)
	}
	logger.Info("video processed", logging.String(logging.FieldEventType, "asset_completed"))
	return nil
}

// Duration reads the container duration, falling back to the configured
// default when the inspector cannot produce a usable value.
func (v *Video) Duration(ctx context.Context, src string) float64 {
	fallback := v.deps.Config.Video.FallbackDurationSeconds
	duration, err := v.deps.inspector().Duration(ctx, src)
	if err != nil || math.IsNaN(duration) || duration <= 0 {
		logging.WarnWithContext(v.deps.logger(ctx, "video"), "duration probe failed; using fallback", "duration_fallback",
			logging.Seconds("fallback", fallback),
			logging.Error(err),
			logging.String(logging.FieldImpact, "thumbnail timestamps assume the fallback duration"),
		)
		return fallback
	}
	return duration
}

// RegenerateThumbnails re-runs only the thumbnail steps. Status is not
// touched.
func (v *Video) RegenerateThumbnails(ctx context.Context, a *asset.Asset) error {
	src, err := v.deps.source(a)
	if err != nil {
		return err
	}
	hero, slate := Timestamps(v.Duration(ctx, src))
	return v.thumbnails(ctx, a, src, hero, slate)
}

// HealthCheck reports configuration readiness.
func (v *Video) HealthCheck(context.Context) stage.Health {
	health := healthCheck(v.deps, "video")
	if v.deps != nil {
		health = health.WithEncoder(v.deps.Capability.VideoEncoder)
	}
	return health
}

func (v *Video) thumbnails(ctx context.Context, a *asset.Asset, src string, hero, slate float64) error {
	cfg := v.deps.Config
	heroAbs, heroRel, err := v.deps.Storage.Prepare(storage.Thumbnails, storage.HeroThumbnailName(a.ID))
	if err != nil {
		return stage.Fail(ledger.StageStorageSave, "thumbnail", err)
	}
	slateAbs, slateRel, err := v.deps.Storage.Prepare(storage.Slates, storage.SlateThumbnailName(a.ID))
	if err != nil {
		return stage.Fail(ledger.StageStorageSave, "slate", err)
	}

	heroCmd := command.BuildThumbnailCommand(cfg.FFmpegBinary(), src, heroAbs, hero, cfg.Video.HeroHeight)
	if _, err := v.deps.run(ctx, a.Kind, "thumbnail", heroCmd); err != nil {
		return stage.Fail(ledger.StageTranscode, "thumbnail", err)
	}
	slateCmd := command.BuildThumbnailCommand(cfg.FFmpegBinary(), src, slateAbs, slate, cfg.Video.SlateHeight)
	if _, err := v.deps.run(ctx, a.Kind, "slate", slateCmd); err != nil {
		return stage.Fail(ledger.StageTranscode, "slate", err)
	}

	return v.deps.persist(ctx, a, map[asset.Artifact]string{
		asset.ArtifactThumbnail:      heroRel,
		asset.ArtifactSlateThumbnail: slateRel,
	})
}

func (v *Video) playable(ctx context.Context, a *asset.Asset, src string) error {
	cfg := v.deps.Config
	abs, rel, err := v.deps.Storage.Prepare(storage.Playable, storage.PlayableName(a.ID))
	if err != nil {
		return stage.Fail(ledger.StageStorageSave, "playable", err)
	}
	cmd := command.BuildVideoCommand(cfg.FFmpegBinary(), src, command.PlayableSpec(abs, cfg.Video.PlayableHeight), v.deps.Capability)
	if _, err := v.deps.run(ctx, a.Kind, "playable", cmd); err != nil {
		return stage.Fail(ledger.StageTranscode, "playable", err)
	}
	return v.deps.persist(ctx, a, map[asset.Artifact]string{asset.ArtifactPlayableProxy: rel})
}

func (v *Video) support(ctx context.Context, a *asset.Asset, src string) error {
	cfg := v.deps.Config
	abs, rel, err := v.deps.Storage.Prepare(storage.Support, storage.SupportName(a.ID))
	if err != nil {
		return stage.Fail(ledger.StageStorageSave, "support", err)
	}
	cmd := command.BuildVideoCommand(cfg.FFmpegBinary(), src, command.SupportSpec(abs, cfg.Video.ProxyHeight), v.deps.Capability)
	if _, err := v.deps.run(ctx, a.Kind, "support", cmd); err != nil {
		return stage.Fail(ledger.StageTranscode, "support", err)
	}
	return v.deps.persist(ctx, a, map[asset.Artifact]string{asset.ArtifactSupportProxy: rel})
}
