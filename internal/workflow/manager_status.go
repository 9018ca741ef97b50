package workflow

import (
	"context"

	"archivist/internal/asset"
	"archivist/internal/logging"
	"archivist/internal/stage"
)

// StatusSummary represents lightweight dispatcher diagnostics.
type StatusSummary struct {
	Running     bool
	Sync        bool
	Workers     int
	QueueDepth  int
	LastError   string
	LastResult  *Result
	AssetStats  map[asset.Status]int
	StageHealth map[string]stage.Health
}

// Status returns the latest dispatcher information.
func (m *Manager) Status(ctx context.Context) StatusSummary {
	m.mu.RLock()
	running := m.running
	lastErr := m.lastErr
	last := m.last
	m.mu.RUnlock()

	stats, err := m.assets.StatusCounts(ctx, "")
	if err != nil {
		m.logger.Warn("failed to read asset stats", logging.Error(err))
	}

	health := make(map[string]stage.Health, len(m.handlers))
	for kind, handler := range m.handlers {
		if handler == nil {
			continue
		}
		health[string(kind)] = handler.HealthCheck(ctx)
	}

	summary := StatusSummary{
		Running:     running,
		Sync:        m.Sync(),
		Workers:     m.cfg.Workers.Concurrency,
		QueueDepth:  len(m.jobs),
		AssetStats:  stats,
		StageHealth: health,
	}
	if lastErr != nil {
		summary.LastError = lastErr.Error()
	}
	if last != nil {
		copy := *last
		summary.LastResult = &copy
	}
	return summary
}

func (m *Manager) setLastError(err error) {
	m.mu.Lock()
	m.lastErr = err
	m.mu.Unlock()
}

func (m *Manager) setLast(result Result) {
	m.mu.Lock()
	m.last = &result
	m.mu.Unlock()
}
