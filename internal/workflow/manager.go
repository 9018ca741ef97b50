package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"archivist/internal/asset"
	"archivist/internal/command"
	"archivist/internal/config"
	"archivist/internal/ledger"
	"archivist/internal/logging"
	"archivist/internal/notifications"
	"archivist/internal/services"
	"archivist/internal/stage"
	"archivist/internal/storage"
)

// ErrSourceMissing reports an asset whose original does not resolve to a file.
var ErrSourceMissing = fmt.Errorf("%w: source file missing", services.ErrNotFound)

// ErrAlreadyQueued reports a bulk submission for an asset that already has
// a primary job queued or running.
var ErrAlreadyQueued = fmt.Errorf("%w: asset already queued", services.ErrTransient)

// ErrNotRunning reports a submission while the pool is stopped.
var ErrNotRunning = fmt.Errorf("%w: dispatcher is not running", services.ErrConfiguration)

// Recorder appends failures to the error ledger.
type Recorder interface {
	Record(ctx context.Context, entry ledger.Entry) (*ledger.Record, error)
}

// CustomEncoder runs on-demand variant encodes.
type CustomEncoder interface {
	Encode(ctx context.Context, a *asset.Asset, presetID string, overrides *command.Settings) (asset.CustomVariant, error)
}

// ThumbnailRegenerator re-runs the thumbnail steps of a pipeline.
type ThumbnailRegenerator interface {
	RegenerateThumbnails(ctx context.Context, a *asset.Asset) error
}

// Dependencies are the collaborators the Manager dispatches to.
type Dependencies struct {
	Assets   *asset.Store
	Ledger   Recorder
	Storage  *storage.Store
	Handlers map[asset.Kind]stage.Handler
	Custom   CustomEncoder
	Notifier notifications.Service
}

// Manager is the dispatcher and its bounded worker pool. Jobs for
// different assets run concurrently; the atomic claim on the asset row
// keeps two jobs off the same asset.
type Manager struct {
	cfg      *config.Config
	assets   *asset.Store
	ledger   Recorder
	storage  *storage.Store
	handlers map[asset.Kind]stage.Handler
	custom   CustomEncoder
	notifier notifications.Service
	logger   *slog.Logger

	jobs chan *job

	// queued counts primary jobs per asset between enqueue and resolve.
	queueMu sync.Mutex
	queued  map[string]int

	mu       sync.RWMutex
	running  bool
	stopping chan struct{}
	sending  sync.WaitGroup
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	lastErr error
	last    *Result
}

// NewManager constructs a dispatcher. Call Start before submitting jobs
// unless the configuration forces synchronous dispatch.
func NewManager(cfg *config.Config, deps Dependencies, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = logging.NewNop()
	}
	queueSize := cfg.Workers.QueueSize
	if queueSize <= 0 {
		queueSize = 1
	}
	handlers := make(map[asset.Kind]stage.Handler, len(deps.Handlers))
	for kind, handler := range deps.Handlers {
		handlers[kind] = handler
	}
	notifier := deps.Notifier
	if notifier == nil {
		notifier = notifications.Noop()
	}
	return &Manager{
		cfg:      cfg,
		assets:   deps.Assets,
		ledger:   deps.Ledger,
		storage:  deps.Storage,
		handlers: handlers,
		custom:   deps.Custom,
		notifier: notifier,
		logger:   logging.NewComponentLogger(logger, "workflow"),
		jobs:     make(chan *job, queueSize),
		queued:   make(map[string]int),
	}
}

// Sync reports whether jobs run inline on the submitting goroutine.
func (m *Manager) Sync() bool {
	return m.cfg.Workers.Sync
}
