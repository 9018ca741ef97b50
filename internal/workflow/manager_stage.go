package workflow

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/google/uuid"

	"archivist/internal/asset"
	"archivist/internal/ledger"
	"archivist/internal/logging"
	"archivist/internal/metrics"
	"archivist/internal/services"
	"archivist/internal/stage"
)

func (m *Manager) process(ctx context.Context, j *job) Result {
	started := time.Now()
	result := Result{AssetID: j.assetID, Started: started}
	finish := func(outcome Outcome, reason string, err error) Result {
		result.Outcome, result.Reason, result.Err = outcome, reason, err
		result.Duration = time.Since(started)
		return result
	}

	ctx = services.WithAssetID(ctx, j.assetID)
	ctx = services.WithRequestID(ctx, uuid.NewString())
	logger := m.jobLogger(ctx)

	a, err := m.assets.MustGet(ctx, j.assetID)
	if err != nil {
		logger.Error("load asset failed", logging.Error(err))
		m.setLastError(err)
		return finish(OutcomeFailed, "asset unavailable", err)
	}
	result.Kind = a.Kind
	handler, ok := m.handlers[a.Kind]
	if !ok {
		err := fmt.Errorf("%w: no pipeline for %s assets", services.ErrConfiguration, a.Kind)
		return finish(OutcomeSkipped, err.Error(), err)
	}

	// The source guard runs before the claim so a metadata-only record
	// stays pending and produces no error record.
	if err := handler.Prepare(ctx, a); err != nil {
		logger.Info("dispatch skipped; source not available",
			logging.String(logging.FieldEventType, "dispatch_skipped"),
			logging.String("source", a.SourcePath),
			logging.String("reason", err.Error()),
		)
		return finish(OutcomeSkipped, "source file missing", errors.Join(ErrSourceMissing, err))
	}

	claimed, err := m.assets.Claim(ctx, a.ID)
	if err != nil {
		if errors.Is(err, asset.ErrAlreadyClaimed) {
			logger.Info("dispatch skipped; asset already processing",
				logging.String(logging.FieldEventType, "dispatch_skipped"),
			)
			return finish(OutcomeSkipped, "already processing", err)
		}
		logger.Error("claim failed", logging.Error(err))
		m.setLastError(err)
		return finish(OutcomeFailed, "claim failed", err)
	}

	metrics.ActiveJobs.Inc()
	defer metrics.ActiveJobs.Dec()
	logger.Info("pipeline started",
		logging.String(logging.FieldEventType, "stage_start"),
		logging.String("kind", string(claimed.Kind)),
		logging.String("trigger", j.trigger),
		logging.String("source", claimed.SourcePath),
	)

	execErr := m.execute(ctx, handler, claimed)
	if execErr != nil {
		if errors.Is(execErr, context.Canceled) && ctx.Err() != nil {
			logger.Info("pipeline interrupted by shutdown; the stuck sweep will release the asset",
				logging.String(logging.FieldEventType, "stage_interrupted"),
			)
			return finish(OutcomeSkipped, "interrupted", execErr)
		}
		m.handleFailure(ctx, claimed, execErr)
		return finish(OutcomeFailed, services.Diagnostic(execErr), execErr)
	}

	logger.Info("pipeline completed",
		logging.String(logging.FieldEventType, "stage_complete"),
		logging.Duration("stage_duration", time.Since(started)),
	)
	return finish(OutcomeCompleted, "", nil)
}

// execute runs the handler, converting a panic into a stage failure so one
// bad job never takes a worker down.
func (m *Manager) execute(ctx context.Context, handler stage.Handler, a *asset.Asset) (err error) {
	defer func() {
		if r := recover(); r != nil {
			m.jobLogger(ctx).Error("pipeline panicked",
				logging.String(logging.FieldEventType, "stage_panic"),
				logging.Any("panic", r),
				logging.String("stack", string(debug.Stack())),
			)
			err = stage.Fail(ledger.StageOther, "panic", fmt.Errorf("panic: %v", r))
		}
	}()
	return handler.Execute(ctx, a)
}

func (m *Manager) processCustom(ctx context.Context, j *job) Result {
	started := time.Now()
	ctx = services.WithAssetID(ctx, j.assetID)
	ctx = services.WithRequestID(ctx, uuid.NewString())
	result := Result{AssetID: j.assetID, Started: started}

	a, err := m.assets.MustGet(ctx, j.assetID)
	if err != nil {
		result.Outcome, result.Err = OutcomeFailed, err
		result.Duration = time.Since(started)
		return result
	}
	result.Kind = a.Kind

	variant, err := m.encodeCustom(ctx, a, j.custom)
	result.Duration = time.Since(started)
	if err != nil {
		result.Outcome, result.Err, result.Reason = OutcomeFailed, err, services.Diagnostic(err)
		return result
	}
	result.Outcome = OutcomeCompleted
	result.Variant = &variant
	return result
}

func (m *Manager) encodeCustom(ctx context.Context, a *asset.Asset, req *customRequest) (variant asset.CustomVariant, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = stage.Fail(ledger.StageCustomEncode, "panic", fmt.Errorf("panic: %v", r))
			m.record(ctx, a, err)
		}
	}()
	return m.custom.Encode(ctx, a, req.presetID, req.overrides)
}
