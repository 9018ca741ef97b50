package workflow

import (
	"context"
	"errors"
	"fmt"

	"archivist/internal/asset"
	"archivist/internal/command"
	"archivist/internal/logging"
	"archivist/internal/metrics"
	"archivist/internal/services"
)

// Start launches the worker pool. In synchronous mode it only marks the
// manager running; jobs execute on the submitting goroutine.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return errors.New("workflow already running")
	}
	if len(m.handlers) == 0 {
		m.mu.Unlock()
		return errors.New("workflow pipelines not configured")
	}
	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.running = true
	m.stopping = make(chan struct{})

	workers := 0
	if !m.Sync() {
		workers = max(m.cfg.Workers.Concurrency, 1)
	}
	m.wg.Add(workers)
	m.mu.Unlock()

	for i := range workers {
		go m.runWorker(runCtx, i+1)
	}
	m.logger.Info("dispatcher started",
		logging.String(logging.FieldEventType, "dispatcher_started"),
		logging.Int("workers", workers),
		logging.Bool("sync", m.Sync()),
	)
	return nil
}

// Stop cancels running jobs, waits for workers, and resolves queued
// handles as skipped. Submitters blocked on a full queue return
// ErrNotRunning.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	cancel := m.cancel
	m.running = false
	m.cancel = nil
	close(m.stopping)
	m.mu.Unlock()

	// No send can land after this point, so the drain below is final.
	m.sending.Wait()
	cancel()
	m.wg.Wait()

	for {
		select {
		case j := <-m.jobs:
			m.untrack(j)
			j.handle.resolve(Result{AssetID: j.assetID, Outcome: OutcomeSkipped, Reason: "dispatcher stopped"})
		default:
			metrics.QueueDepth.Set(0)
			return
		}
	}
}

// Running reports whether Start has been called without Stop.
func (m *Manager) Running() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.running
}

// Submit queues the primary pipeline for an asset. Submitting an asset
// that is already processing is accepted; the job then resolves as
// skipped when its claim fails.
func (m *Manager) Submit(ctx context.Context, assetID string) (*Handle, error) {
	return m.enqueue(ctx, &job{assetID: assetID, trigger: "submit"})
}

// SubmitCustom queues an on-demand variant encode.
func (m *Manager) SubmitCustom(ctx context.Context, assetID, presetID string, overrides *command.Settings) (*Handle, error) {
	if m.custom == nil {
		return nil, fmt.Errorf("%w: custom encoding not configured", services.ErrConfiguration)
	}
	return m.enqueue(ctx, &job{
		assetID: assetID,
		trigger: "custom_encode",
		custom:  &customRequest{presetID: presetID, overrides: overrides},
	})
}

func (m *Manager) enqueue(ctx context.Context, j *job) (*Handle, error) {
	a, err := m.assets.MustGet(ctx, j.assetID)
	if err != nil {
		return nil, err
	}
	if j.custom == nil {
		if _, ok := m.handlers[a.Kind]; !ok {
			return nil, fmt.Errorf("%w: no pipeline for %s assets", services.ErrConfiguration, a.Kind)
		}
	}
	if !m.track(j) {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyQueued, j.assetID)
	}
	j.handle = newHandle(j.assetID)

	if m.Sync() {
		m.runJob(ctx, 0, j)
		return j.handle, nil
	}

	m.mu.RLock()
	if !m.running {
		m.mu.RUnlock()
		m.untrack(j)
		return nil, ErrNotRunning
	}
	stopping := m.stopping
	m.sending.Add(1)
	m.mu.RUnlock()
	defer m.sending.Done()

	select {
	case m.jobs <- j:
		metrics.QueueDepth.Set(float64(len(m.jobs)))
		return j.handle, nil
	case <-stopping:
		m.untrack(j)
		return nil, ErrNotRunning
	case <-ctx.Done():
		m.untrack(j)
		return nil, ctx.Err()
	}
}

// track registers a primary job against its asset. It refuses a dedupe
// job when another primary job for the asset is queued or running.
func (m *Manager) track(j *job) bool {
	if j.custom != nil {
		return true
	}
	m.queueMu.Lock()
	defer m.queueMu.Unlock()
	if j.dedupe && m.queued[j.assetID] > 0 {
		return false
	}
	m.queued[j.assetID]++
	return true
}

func (m *Manager) untrack(j *job) {
	if j.custom != nil {
		return
	}
	m.queueMu.Lock()
	defer m.queueMu.Unlock()
	if n := m.queued[j.assetID]; n > 1 {
		m.queued[j.assetID] = n - 1
		return
	}
	delete(m.queued, j.assetID)
}

// inFlight reports whether the asset has a primary job queued or running.
func (m *Manager) inFlight(assetID string) bool {
	m.queueMu.Lock()
	defer m.queueMu.Unlock()
	return m.queued[assetID] > 0
}

func (m *Manager) runWorker(ctx context.Context, slot int) {
	defer m.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case j := <-m.jobs:
			metrics.QueueDepth.Set(float64(len(m.jobs)))
			m.runJob(ctx, slot, j)
		}
	}
}

func (m *Manager) runJob(ctx context.Context, slot int, j *job) {
	if slot > 0 {
		ctx = services.WithWorker(ctx, slot)
	}
	var result Result
	if j.custom != nil {
		result = m.processCustom(ctx, j)
	} else {
		result = m.process(ctx, j)
	}
	kind := string(result.Kind)
	if kind == "" {
		kind = string(asset.KindFile)
	}
	if j.custom != nil {
		kind = "custom"
	}
	metrics.ObserveJob(kind, string(result.Outcome), result.Duration)
	m.setLast(result)
	m.untrack(j)
	j.handle.resolve(result)
}
