package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"

	"golang.org/x/sync/errgroup"

	"archivist/internal/asset"
	"archivist/internal/config"
	"archivist/internal/logging"
	"archivist/internal/metrics"
	"archivist/internal/services"
)

// Candidate is one proposed link between an asset and a source file.
type Candidate struct {
	AssetID      string
	OriginalName string
	Identifier   string
	Path         string
	RelPath      string
	Tier         Tier
	Applied      bool
}

// Report is the outcome of one reconcile run.
type Report struct {
	Root       string
	Scanned    int
	Candidates []Candidate
	Unmatched  []string
	DryRun     bool
}

// Store is the asset persistence the reconciler needs.
type Store interface {
	List(ctx context.Context, filter asset.Filter) ([]*asset.Asset, error)
	SetSourcePath(ctx context.Context, id, path string) error
}

// Reconciler matches metadata-only assets to files under a root.
type Reconciler struct {
	store      Store
	root       string
	extensions []string
	logger     *slog.Logger
}

// New builds a Reconciler from the reconcile configuration.
func New(cfg *config.Config, store Store, logger *slog.Logger) *Reconciler {
	return &Reconciler{
		store:      store,
		root:       cfg.Paths.SourceRoot,
		extensions: cfg.Reconcile.Extensions,
		logger:     logging.NewComponentLogger(logger, "reconcile"),
	}
}

// Run reconciles metadata-only assets in container (all containers when
// empty). With dryRun nothing is written. Applying a match never changes
// the asset status.
func (r *Reconciler) Run(ctx context.Context, container string, dryRun bool) (Report, error) {
	report := Report{Root: r.root, DryRun: dryRun}
	if r.root == "" {
		return report, fmt.Errorf("%w: paths.source_root is not set", services.ErrConfiguration)
	}

	var (
		idx     *index
		pending []*asset.Asset
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		idx, err = buildIndex(gctx, r.root, r.extensions)
		if err != nil {
			return fmt.Errorf("walk %s: %w", r.root, err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		pending, err = r.store.List(gctx, asset.Filter{Container: container, MetadataOnly: true})
		return err
	})
	if err := g.Wait(); err != nil {
		return report, err
	}
	report.Scanned = len(idx.files)

	matches := make([]*Candidate, len(pending))
	mg, mctx := errgroup.WithContext(ctx)
	mg.SetLimit(runtime.GOMAXPROCS(0))
	for i, a := range pending {
		mg.Go(func() error {
			if err := mctx.Err(); err != nil {
				return err
			}
			f, tier, ok := idx.match(a.Identifier, a.OriginalName)
			if !ok {
				return nil
			}
			matches[i] = &Candidate{
				AssetID:      a.ID,
				OriginalName: a.OriginalName,
				Identifier:   a.Identifier,
				Path:         f.abs,
				RelPath:      f.rel,
				Tier:         tier,
			}
			return nil
		})
	}
	if err := mg.Wait(); err != nil {
		return report, err
	}

	var errs []error
	for i, c := range matches {
		if c == nil {
			report.Unmatched = append(report.Unmatched, pending[i].ID)
			metrics.ReconcileMatches.WithLabelValues(tierUnmatchedKey).Inc()
			continue
		}
		metrics.ReconcileMatches.WithLabelValues(string(c.Tier)).Inc()
		if !dryRun {
			if err := r.store.SetSourcePath(ctx, c.AssetID, c.Path); err != nil {
				errs = append(errs, fmt.Errorf("attach %s: %w", c.AssetID, err))
			} else {
				c.Applied = true
			}
		}
		report.Candidates = append(report.Candidates, *c)
	}

	r.logger.Info("reconcile finished",
		logging.String(logging.FieldEventType, "reconcile_complete"),
		logging.String("root", r.root),
		logging.String("container", container),
		logging.Bool("dry_run", dryRun),
		logging.Int("scanned", report.Scanned),
		logging.Int("matched", len(report.Candidates)),
		logging.Int("unmatched", len(report.Unmatched)),
	)
	return report, errors.Join(errs...)
}
