package pipeline

import (
	"context"

	"archivist/internal/asset"
	"archivist/internal/ledger"
	"archivist/internal/stage"
)

// File handles generic attachments, which have no derived artifacts.
type File struct {
	deps *Dependencies
}

// NewFile constructs the generic file pipeline.
func NewFile(deps *Dependencies) *File {
	return &File{deps: deps}
}

// Prepare refuses assets whose original does not resolve.
func (p *File) Prepare(_ context.Context, a *asset.Asset) error {
	return requireSource(p.deps, a)
}

// Execute completes the asset.
func (p *File) Execute(ctx context.Context, a *asset.Asset) error {
	return stage.Fail(ledger.StageStorageSave, "complete", p.deps.Assets.Complete(ctx, a.ID))
}

// HealthCheck reports configuration readiness.
func (p *File) HealthCheck(context.Context) stage.Health {
	return healthCheck(p.deps, "file")
}
