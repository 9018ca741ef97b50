package workflow

import (
	"log/slog"

	"archivist/internal/asset"
	"archivist/internal/config"
	"archivist/internal/ledger"
	"archivist/internal/notifications"
	"archivist/internal/pipeline"
)

// NewFromPipeline wires the per-kind pipelines and the custom encoder
// into a Manager sharing one set of pipeline dependencies.
func NewFromPipeline(cfg *config.Config, store *asset.Store, l *ledger.Ledger, deps *pipeline.Dependencies, notifier notifications.Service, logger *slog.Logger) *Manager {
	return NewManager(cfg, Dependencies{
		Assets:   store,
		Ledger:   l,
		Storage:  deps.Storage,
		Handlers: pipeline.Handlers(deps),
		Custom:   pipeline.NewCustom(deps),
		Notifier: notifier,
	}, logger)
}
