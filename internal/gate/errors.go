package gate

import (
	"github.com/fyrsmithlabs/roomgate/internal/classifier"
	"github.com/fyrsmithlabs/roomgate/internal/memorystore"
)

// Errors callers of Process should distinguish with errors.Is.
var (
	// ErrInvalidInput is returned for blank text or a bad threshold.
	ErrInvalidInput = classifier.ErrInvalidInput

	// ErrModelUnavailable is returned when no trained model can be used.
	ErrModelUnavailable = classifier.ErrModelUnavailable

	// ErrStoreCorruption is returned when the memory document cannot be parsed.
	ErrStoreCorruption = memorystore.ErrStoreCorrupted
)
