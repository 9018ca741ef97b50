package asset

import (
	"errors"
	"fmt"

	"archivist/internal/services"
)

var (
	// ErrNotFound reports an unknown asset id.
	ErrNotFound = fmt.Errorf("asset %w", services.ErrNotFound)
	// ErrAlreadyClaimed reports a claim on an asset another worker holds.
	ErrAlreadyClaimed = errors.New("asset already processing")
	// ErrNotClaimed reports a terminal transition for an asset that is no
	// longer processing (for example after a cancel sweep).
	ErrNotClaimed = errors.New("asset is not processing")
	// ErrIncomplete reports a completion attempt with mandatory artifacts missing.
	ErrIncomplete = errors.New("mandatory artifacts missing")
	// ErrDuplicate reports a second asset with the same original name in a container.
	ErrDuplicate = fmt.Errorf("%w: duplicate original name", services.ErrValidation)
)
