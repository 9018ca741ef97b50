package workflow

import (
	"context"
	"errors"
	"strings"

	"archivist/internal/asset"
	"archivist/internal/ledger"
	"archivist/internal/logging"
	"archivist/internal/metrics"
	"archivist/internal/notifications"
	"archivist/internal/services"
	"archivist/internal/stage"
)

// handleFailure flips the asset to error and appends a ledger record.
// Artifacts persisted by earlier steps are left in place.
func (m *Manager) handleFailure(ctx context.Context, a *asset.Asset, stageErr error) {
	logger := m.jobLogger(ctx)
	message := failureMessage(stageErr)
	ledgerStage := stage.StageOf(stageErr)

	logger.Error("pipeline failed",
		logging.String(logging.FieldEventType, "stage_failure"),
		logging.Alert("stage_failure"),
		logging.String("ledger_stage", string(ledgerStage)),
		logging.String("step", stage.StepOf(stageErr)),
		logging.Int("exit_code", services.ExitCode(stageErr)),
		logging.String("error_message", message),
		logging.String(logging.FieldErrorHint, "inspect the error ledger entry, then retry the asset"),
		logging.Error(stageErr),
	)
	metrics.StageFailures.WithLabelValues(string(ledgerStage)).Inc()
	m.setLastError(stageErr)

	if err := m.assets.Fail(ctx, a.ID, message); err != nil {
		if errors.Is(err, asset.ErrNotClaimed) {
			logger.Warn("asset left processing before failure was recorded",
				logging.String(logging.FieldEventType, "fail_not_claimed"),
				logging.String(logging.FieldImpact, "status keeps the cancellation notice"),
			)
		} else {
			logger.Error("persist failure status failed", logging.Error(err))
		}
	}
	m.record(ctx, a, stageErr)
	m.notifyFailure(ctx, a, ledgerStage, message)
}

func (m *Manager) notifyFailure(ctx context.Context, a *asset.Asset, ledgerStage ledger.Stage, message string) {
	payload := notifications.Payload{
		"asset_id": a.ID,
		"name":     a.OriginalName,
		"kind":     string(a.Kind),
		"stage":    string(ledgerStage),
		"error":    message,
	}
	if err := m.notifier.Publish(ctx, notifications.EventAssetFailed, payload); err != nil {
		m.jobLogger(ctx).Warn("failure notification failed",
			logging.String(logging.FieldEventType, "notification_failed"),
			logging.String(logging.FieldImpact, "operators were not alerted about this failure"),
			logging.Error(err),
		)
	}
}

func (m *Manager) record(ctx context.Context, a *asset.Asset, stageErr error) {
	if m.ledger == nil {
		return
	}
	entry := ledger.FromError(ledger.Entry{
		AssetID:   a.ID,
		AssetKind: string(a.Kind),
		Stage:     stage.StageOf(stageErr),
		FileName:  a.OriginalName,
		Extra:     map[string]any{"step": stage.StepOf(stageErr)},
	}, stageErr)
	if _, err := m.ledger.Record(ctx, entry); err != nil {
		m.jobLogger(ctx).Error("record ledger entry failed", logging.Error(err))
	}
}

// failureMessage prefixes the step to the process diagnostic, preferring
// the stderr tail over the wrapped error text.
func failureMessage(err error) string {
	if err == nil {
		return "failed without error detail"
	}
	diagnostic := strings.TrimSpace(services.Diagnostic(err))
	var stepErr *stage.StepError
	if errors.As(err, &stepErr) {
		label := string(stepErr.Stage)
		if stepErr.Step != "" {
			label += " " + stepErr.Step
		}
		var exitErr *services.ExitError
		if errors.As(err, &exitErr) {
			return label + ": " + diagnostic
		}
		return label + ": " + services.Diagnostic(stepErr.Err)
	}
	return diagnostic
}
