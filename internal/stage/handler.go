package stage

import (
	"context"

	"archivist/internal/asset"
)

// Handler describes the contract the dispatcher needs from each pipeline.
// Prepare runs before the asset is claimed and may refuse the job. Execute
// runs with the asset held in processing; a nil return means the asset was
// completed, an error leaves the failure transition to the caller.
type Handler interface {
	Prepare(context.Context, *asset.Asset) error
	Execute(context.Context, *asset.Asset) error
	HealthCheck(context.Context) Health
}
