package workflow

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"archivist/internal/asset"
	"archivist/internal/command"
	"archivist/internal/ledger"
	"archivist/internal/logging"
	"archivist/internal/metrics"
	"archivist/internal/notifications"
	"archivist/internal/services"
)

// RegisterRequest describes a new asset. UploadPath, when set, is copied
// into the sources bucket; SourcePath attaches an existing file as-is.
type RegisterRequest struct {
	Kind         asset.Kind
	Container    string
	OriginalName string
	Identifier   string
	SourcePath   string
	UploadPath   string
	Metadata     map[string]any
	Dispatch     bool
}

// Register creates a pending asset, imports its upload when given, and
// optionally dispatches it.
func (m *Manager) Register(ctx context.Context, req RegisterRequest) (*asset.Asset, *Handle, error) {
	name := req.OriginalName
	if name == "" && req.UploadPath != "" {
		name = filepath.Base(req.UploadPath)
	}
	a, err := m.assets.Register(ctx, asset.Registration{
		Kind:         req.Kind,
		Container:    req.Container,
		OriginalName: name,
		Identifier:   req.Identifier,
		SourcePath:   req.SourcePath,
		Metadata:     req.Metadata,
	})
	if err != nil {
		return nil, nil, err
	}
	ctx = services.WithAssetID(ctx, a.ID)

	if req.UploadPath != "" {
		rel, digest, err := m.storage.ImportOriginal(ctx, a.ID, req.UploadPath)
		if err == nil {
			err = m.assets.SetSourcePath(ctx, a.ID, rel)
		}
		if err != nil {
			uploadErr := services.Wrap(services.ErrExternalTool, string(ledger.StageUpload), "import", "store original", err)
			m.recordUpload(ctx, a, uploadErr)
			return a, nil, uploadErr
		}
		m.jobLogger(ctx).Info("original stored",
			logging.String(logging.FieldEventType, "upload_stored"),
			logging.String("path", rel),
			logging.Int64("bytes", digest.Size),
		)
		if a, err = m.assets.MustGet(ctx, a.ID); err != nil {
			return nil, nil, err
		}
	}

	if !req.Dispatch {
		return a, nil, nil
	}
	handle, err := m.Dispatch(ctx, a.ID)
	return a, handle, err
}

func (m *Manager) recordUpload(ctx context.Context, a *asset.Asset, err error) {
	m.jobLogger(ctx).Error("store original failed",
		logging.String(logging.FieldEventType, "upload_failed"),
		logging.Error(err),
	)
	if m.ledger == nil {
		return
	}
	entry := ledger.FromError(ledger.Entry{
		AssetID:   a.ID,
		AssetKind: string(a.Kind),
		Stage:     ledger.StageUpload,
		FileName:  a.OriginalName,
	}, err)
	if _, recErr := m.ledger.Record(ctx, entry); recErr != nil {
		m.jobLogger(ctx).Error("record ledger entry failed", logging.Error(recErr))
	}
}

// Dispatch submits an asset after upload or reconciliation. An asset
// whose source does not resolve stays pending and is reported through
// ErrSourceMissing.
func (m *Manager) Dispatch(ctx context.Context, assetID string) (*Handle, error) {
	a, err := m.assets.MustGet(ctx, assetID)
	if err != nil {
		return nil, err
	}
	if !m.sourceResolves(a) {
		return nil, fmt.Errorf("%w: %s", ErrSourceMissing, assetID)
	}
	return m.Submit(ctx, assetID)
}

// Retry validates the source, clears the last error, and resubmits.
func (m *Manager) Retry(ctx context.Context, assetID string) (*Handle, error) {
	return m.retry(ctx, assetID, false)
}

func (m *Manager) retry(ctx context.Context, assetID string, dedupe bool) (*Handle, error) {
	if dedupe && m.inFlight(assetID) {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyQueued, assetID)
	}
	a, err := m.assets.MustGet(ctx, assetID)
	if err != nil {
		return nil, err
	}
	if !m.sourceResolves(a) {
		return nil, fmt.Errorf("%w: %s", ErrSourceMissing, assetID)
	}
	if err := m.assets.ClearError(ctx, assetID); err != nil {
		return nil, err
	}
	m.logger.Info("retry requested",
		logging.String(logging.FieldEventType, "retry"),
		logging.AssetID(assetID),
		logging.String("previous_status", string(a.Status)),
	)
	return m.enqueue(ctx, &job{assetID: assetID, trigger: "retry", dedupe: dedupe})
}

// RetryFilter scopes a bulk retry. Statuses default to error.
type RetryFilter struct {
	Container string
	Statuses  []asset.Status
}

// RetryAll retries every asset in scope, skipping and reporting those
// whose source no longer resolves.
func (m *Manager) RetryAll(ctx context.Context, filter RetryFilter) (BulkReport, error) {
	statuses := filter.Statuses
	if len(statuses) == 0 {
		statuses = []asset.Status{asset.StatusError}
	}
	assets, err := m.assets.List(ctx, asset.Filter{Container: filter.Container, Statuses: statuses})
	if err != nil {
		return BulkReport{}, err
	}
	var report BulkReport
	for _, a := range assets {
		if _, err := m.retry(ctx, a.ID, true); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return report, ctxErr
			}
			report.Skipped = append(report.Skipped, Skip{AssetID: a.ID, Reason: skipReason(err)})
			continue
		}
		report.Submitted = append(report.Submitted, a.ID)
	}
	m.logBulk("retry_all", report)
	return report, nil
}

// DispatchPending submits every pending asset in scope whose source
// resolves. Metadata-only assets are reported as skipped.
func (m *Manager) DispatchPending(ctx context.Context, container string) (BulkReport, error) {
	assets, err := m.assets.List(ctx, asset.Filter{Container: container, Statuses: []asset.Status{asset.StatusPending}})
	if err != nil {
		return BulkReport{}, err
	}
	var report BulkReport
	for _, a := range assets {
		if !m.sourceResolves(a) {
			report.Skipped = append(report.Skipped, Skip{AssetID: a.ID, Reason: "source file missing"})
			continue
		}
		if _, err := m.enqueue(ctx, &job{assetID: a.ID, trigger: "dispatch_pending", dedupe: true}); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return report, ctxErr
			}
			report.Skipped = append(report.Skipped, Skip{AssetID: a.ID, Reason: skipReason(err)})
			continue
		}
		report.Submitted = append(report.Submitted, a.ID)
	}
	m.logBulk("dispatch_pending", report)
	return report, nil
}

// CancelStuck flips assets processing for longer than olderThan to error.
func (m *Manager) CancelStuck(ctx context.Context, olderThan time.Duration) ([]string, error) {
	if olderThan <= 0 {
		return nil, fmt.Errorf("%w: stuck threshold must be positive", services.ErrValidation)
	}
	ids, err := m.assets.CancelStuck(ctx, olderThan)
	if err != nil {
		return nil, err
	}
	m.logCancelled(ctx, "stuck", ids, logging.Duration("older_than", olderThan))
	return ids, nil
}

// CancelAllProcessing flips every processing asset to error.
func (m *Manager) CancelAllProcessing(ctx context.Context) ([]string, error) {
	ids, err := m.assets.CancelAllProcessing(ctx)
	if err != nil {
		return nil, err
	}
	m.logCancelled(ctx, "all", ids)
	return ids, nil
}

func (m *Manager) logCancelled(ctx context.Context, reason string, ids []string, attrs ...logging.Attr) {
	metrics.CancelledAssets.WithLabelValues(reason).Add(float64(len(ids)))
	if len(ids) == 0 {
		return
	}
	attrs = append(attrs,
		logging.String("reason", reason),
		logging.Strings("asset_ids", ids),
	)
	logging.WarnWithContext(m.logger, "processing assets cancelled", "assets_cancelled",
		append(attrs, logging.String(logging.FieldImpact, "assets marked error; retry to reprocess"))...,
	)
	payload := notifications.Payload{"reason": reason, "count": len(ids)}
	if err := m.notifier.Publish(ctx, notifications.EventAssetsCancelled, payload); err != nil {
		m.logger.Warn("cancellation notification failed",
			logging.String(logging.FieldEventType, "notification_failed"),
			logging.Error(err),
		)
	}
}

// CustomEncode queues an on-demand encode. The asset's primary status is
// never changed by it.
func (m *Manager) CustomEncode(ctx context.Context, assetID, presetID string, overrides *command.Settings) (*Handle, error) {
	a, err := m.assets.MustGet(ctx, assetID)
	if err != nil {
		return nil, err
	}
	if a.Kind != asset.KindVideo && a.Kind != asset.KindAudio {
		return nil, fmt.Errorf("%w: custom encode supports video and audio assets, not %s", services.ErrValidation, a.Kind)
	}
	if !m.sourceResolves(a) {
		return nil, fmt.Errorf("%w: %s", ErrSourceMissing, assetID)
	}
	return m.SubmitCustom(ctx, assetID, presetID, overrides)
}

// ThumbnailReport summarizes a thumbnail regeneration run.
type ThumbnailReport struct {
	Regenerated []string
	Skipped     []Skip
	Failed      []Skip
}

// RegenerateThumbnails re-runs hero and slate extraction for video assets
// in scope. Assets that already have both are skipped unless force is set.
func (m *Manager) RegenerateThumbnails(ctx context.Context, container string, force bool) (ThumbnailReport, error) {
	regen, ok := m.handlers[asset.KindVideo].(ThumbnailRegenerator)
	if !ok {
		return ThumbnailReport{}, fmt.Errorf("%w: video pipeline cannot regenerate thumbnails", services.ErrConfiguration)
	}
	assets, err := m.assets.List(ctx, asset.Filter{Container: container, Kind: asset.KindVideo})
	if err != nil {
		return ThumbnailReport{}, err
	}
	var report ThumbnailReport
	for _, a := range assets {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		switch {
		case !m.sourceResolves(a):
			report.Skipped = append(report.Skipped, Skip{AssetID: a.ID, Reason: "source file missing"})
			continue
		case !force && m.storage.Exists(a.Artifacts.Thumbnail) && m.storage.Exists(a.Artifacts.SlateThumbnail):
			report.Skipped = append(report.Skipped, Skip{AssetID: a.ID, Reason: "thumbnails present"})
			continue
		}
		if err := regen.RegenerateThumbnails(services.WithAssetID(ctx, a.ID), a); err != nil {
			report.Failed = append(report.Failed, Skip{AssetID: a.ID, Reason: services.Diagnostic(err)})
			continue
		}
		report.Regenerated = append(report.Regenerated, a.ID)
	}
	m.logger.Info("thumbnail regeneration finished",
		logging.String(logging.FieldEventType, "thumbnails_regenerated"),
		logging.Int("regenerated", len(report.Regenerated)),
		logging.Int("skipped", len(report.Skipped)),
		logging.Int("failed", len(report.Failed)),
	)
	return report, nil
}

// ErrAssetBusy reports a delete of an asset that is being processed.
var ErrAssetBusy = errors.New("asset is processing")

// DeleteAsset removes the stored original, every derived artifact, and
// the record. Sources outside the media root are left on disk.
func (m *Manager) DeleteAsset(ctx context.Context, assetID string) error {
	a, err := m.assets.MustGet(ctx, assetID)
	if err != nil {
		return err
	}
	if a.Status == asset.StatusProcessing {
		return fmt.Errorf("%w: %s", ErrAssetBusy, assetID)
	}
	logger := m.jobLogger(services.WithAssetID(ctx, assetID))

	paths := a.Artifacts.Paths()
	if a.SourcePath != "" && !filepath.IsAbs(a.SourcePath) {
		paths = append(paths, a.SourcePath)
	}
	for _, rel := range paths {
		removed, err := m.storage.Remove(rel)
		switch {
		case err != nil:
			logging.WarnWithContext(logger, "artifact removal failed", "artifact_remove_failed",
				logging.String("path", rel),
				logging.Error(err),
				logging.String(logging.FieldImpact, "file left in media root"),
			)
		case !removed:
			logging.WarnWithContext(logger, "artifact already missing", "artifact_missing",
				logging.String("path", rel),
				logging.String(logging.FieldImpact, "nothing to remove"),
			)
		}
	}
	if err := m.assets.Delete(ctx, assetID); err != nil {
		return err
	}
	logger.Info("asset deleted",
		logging.String(logging.FieldEventType, "asset_deleted"),
		logging.Int("files", len(paths)),
	)
	return nil
}

func (m *Manager) sourceResolves(a *asset.Asset) bool {
	return a != nil && a.SourcePath != "" && m.storage.Exists(a.SourcePath)
}

func (m *Manager) logBulk(event string, report BulkReport) {
	m.logger.Info("bulk dispatch finished",
		logging.String(logging.FieldEventType, event),
		logging.Int("submitted", len(report.Submitted)),
		logging.Int("skipped", len(report.Skipped)),
	)
}

func skipReason(err error) string {
	switch {
	case errors.Is(err, ErrSourceMissing):
		return "source file missing"
	case errors.Is(err, ErrNotRunning):
		return "dispatcher not running"
	case errors.Is(err, ErrAlreadyQueued):
		return "already queued"
	}
	return strings.TrimSpace(services.Diagnostic(err))
}
