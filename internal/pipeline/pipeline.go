package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"archivist/internal/asset"
	"archivist/internal/command"
	"archivist/internal/config"
	"archivist/internal/encoder"
	"archivist/internal/ledger"
	"archivist/internal/logging"
	"archivist/internal/media/ffprobe"
	"archivist/internal/metrics"
	"archivist/internal/services"
	"archivist/internal/stage"
	"archivist/internal/storage"
)

// AssetWriter is the subset of the asset store the pipelines mutate.
// Every method is a field-scoped update.
type AssetWriter interface {
	SetArtifacts(ctx context.Context, id string, artifacts map[asset.Artifact]string) error
	MergeMetadata(ctx context.Context, id string, values map[string]any) error
	AppendCustomVariant(ctx context.Context, id string, variant asset.CustomVariant) error
	Complete(ctx context.Context, id string) error
}

// Recorder appends failures to the error ledger.
type Recorder interface {
	Record(ctx context.Context, entry ledger.Entry) (*ledger.Record, error)
}

// MediaInspector reads container metadata.
type MediaInspector interface {
	Inspect(ctx context.Context, path string) (ffprobe.Result, error)
	Duration(ctx context.Context, path string) (float64, error)
}

// Dependencies are shared by every pipeline. Capability is resolved once
// at startup and never changes afterwards.
type Dependencies struct {
	Config     *config.Config
	Assets     AssetWriter
	Ledger     Recorder
	Storage    *storage.Store
	Runner     services.Runner
	Inspector  MediaInspector
	Capability encoder.Capability
	Logger     *slog.Logger
}

func (d *Dependencies) runner() services.Runner {
	if d.Runner != nil {
		return d.Runner
	}
	return services.ExecRunner{}
}

func (d *Dependencies) inspector() MediaInspector {
	if d.Inspector != nil {
		return d.Inspector
	}
	return ffprobe.Inspector{Binary: d.Config.FFprobeBinary(), Runner: d.runner()}
}

func (d *Dependencies) logger(ctx context.Context, component string) *slog.Logger {
	base := d.Logger
	if base == nil {
		base = logging.NewNop()
	}
	return logging.WithContext(ctx, logging.NewComponentLogger(base, component))
}

// run executes cmd and records the step duration under kind.
func (d *Dependencies) run(ctx context.Context, kind asset.Kind, step string, cmd command.Command) ([]byte, error) {
	ctx = services.WithStage(ctx, step)
	d.logger(ctx, "pipeline").Debug("running command", logging.Command(cmd.String()))
	started := time.Now()
	out, err := d.runner().Run(ctx, cmd.Binary, cmd.Args...)
	metrics.ObserveStage(string(kind), step, time.Since(started))
	return out, err
}

// source resolves the asset's original to an absolute path.
func (d *Dependencies) source(a *asset.Asset) (string, error) {
	if a.SourcePath == "" {
		return "", stage.Fail(ledger.StageUpload, "source", fmt.Errorf("%w: asset has no source file", services.ErrNotFound))
	}
	abs, err := d.Storage.Resolve(a.SourcePath)
	if err != nil {
		return "", stage.Fail(ledger.StageUpload, "source", err)
	}
	return abs, nil
}

// persist writes artifacts, tagging failures as storage saves.
func (d *Dependencies) persist(ctx context.Context, a *asset.Asset, artifacts map[asset.Artifact]string) error {
	return stage.Fail(ledger.StageStorageSave, "persist", d.Assets.SetArtifacts(ctx, a.ID, artifacts))
}

// record appends a non-fatal failure to the ledger and logs it.
func (d *Dependencies) record(ctx context.Context, a *asset.Asset, ledgerStage ledger.Stage, impact string, err error) {
	logger := d.logger(ctx, "pipeline")
	logging.WarnWithContext(logger, "pipeline step failed", "step_failed",
		logging.String("ledger_stage", string(ledgerStage)),
		logging.Error(err),
		logging.String(logging.FieldImpact, impact),
	)
	metrics.StageFailures.WithLabelValues(string(ledgerStage)).Inc()
	if d.Ledger == nil {
		return
	}
	entry := ledger.FromError(ledger.Entry{
		AssetID:   a.ID,
		AssetKind: string(a.Kind),
		Stage:     ledgerStage,
		FileName:  a.OriginalName,
	}, err)
	if _, recErr := d.Ledger.Record(ctx, entry); recErr != nil {
		logger.Error("record ledger entry failed", logging.Error(recErr))
	}
}

// Handlers returns the primary pipeline for each asset kind.
func Handlers(deps *Dependencies) map[asset.Kind]stage.Handler {
	return map[asset.Kind]stage.Handler{
		asset.KindVideo: NewVideo(deps),
		asset.KindAudio: NewAudio(deps),
		asset.KindImage: NewImage(deps),
		asset.KindFile:  NewFile(deps),
	}
}

// requireSource is the shared Prepare: the original must resolve to a file.
func requireSource(d *Dependencies, a *asset.Asset) error {
	if a.SourcePath == "" || !d.Storage.Exists(a.SourcePath) {
		return fmt.Errorf("%w: source file for %s", services.ErrNotFound, a.ID)
	}
	return nil
}

func healthCheck(d *Dependencies, name string) stage.Health {
	switch {
	case d == nil || d.Config == nil:
		return stage.Unhealthy(name, "configuration unavailable")
	case d.Assets == nil:
		return stage.Unhealthy(name, "asset store unavailable")
	case d.Storage == nil:
		return stage.Unhealthy(name, "storage unavailable")
	}
	return stage.Healthy(name)
}
