package workflow

import (
	"context"
	"time"

	"archivist/internal/asset"
	"archivist/internal/command"
)

// Outcome is the terminal result of one job.
type Outcome string

const (
	OutcomeCompleted Outcome = "completed"
	OutcomeFailed    Outcome = "failed"
	OutcomeSkipped   Outcome = "skipped"
)

// Result describes what a job did.
type Result struct {
	AssetID  string
	Kind     asset.Kind
	Outcome  Outcome
	Reason   string
	Err      error
	Variant  *asset.CustomVariant
	Started  time.Time
	Duration time.Duration
}

// Skip names an asset a bulk operation did not act on.
type Skip struct {
	AssetID string
	Reason  string
}

// BulkReport summarizes a bulk dispatch.
type BulkReport struct {
	Submitted []string
	Skipped   []Skip
}

type customRequest struct {
	presetID  string
	overrides *command.Settings
}

type job struct {
	assetID string
	trigger string
	custom  *customRequest
	handle  *Handle
	// dedupe rejects the job when the asset already has a primary job
	// in flight. Bulk dispatch sets it; explicit submits do not.
	dedupe bool
}

// Handle tracks a submitted job.
type Handle struct {
	AssetID string
	done    chan struct{}
	result  Result
}

func newHandle(assetID string) *Handle {
	return &Handle{AssetID: assetID, done: make(chan struct{})}
}

func (h *Handle) resolve(result Result) {
	h.result = result
	close(h.done)
}

// Done is closed when the job has finished.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Wait blocks until the job finishes or ctx ends.
func (h *Handle) Wait(ctx context.Context) (Result, error) {
	select {
	case <-h.done:
		return h.result, nil
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}
