//go:build !cgo

package embeddings

import (
	"errors"
	"fmt"
)

// ErrFastEmbedNotAvailable means the binary was built without cgo, so the
// ONNX runtime cannot be loaded.
var ErrFastEmbedNotAvailable = errors.New("fastembed: not available without cgo, use the tei or hashing provider")

// FastEmbedProvider cannot be constructed in cgo-free builds; the type
// exists so the provider factory compiles either way.
type FastEmbedProvider struct {
	Provider
}

func NewFastEmbedProvider(cfg FastEmbedConfig) (*FastEmbedProvider, error) {
	return nil, fmt.Errorf("%w (model %s)", ErrFastEmbedNotAvailable, cfg.withDefaults().Model)
}
