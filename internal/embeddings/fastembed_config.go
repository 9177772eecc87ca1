package embeddings

import "path/filepath"

// DefaultFastEmbedModel matches the sentence-transformers model the gate was designed around.
const DefaultFastEmbedModel = "sentence-transformers/all-MiniLM-L6-v2"

// FastEmbedConfig configures the local ONNX provider.
type FastEmbedConfig struct {
	// Model is a sentence-transformers or BAAI name, or a fastembed
	// "fast-" alias. Empty selects DefaultFastEmbedModel.
	Model string

	// CacheDir holds downloaded model files. Defaults to ./local_cache.
	CacheDir string

	// MaxLength is the token limit per input. Defaults to 512; longer
	// exchanges are truncated by the tokenizer.
	MaxLength int
}

func (c FastEmbedConfig) withDefaults() FastEmbedConfig {
	if c.Model == "" {
		c.Model = DefaultFastEmbedModel
	}
	if c.CacheDir == "" {
		c.CacheDir = filepath.Join(".", "local_cache")
	}
	if c.MaxLength == 0 {
		c.MaxLength = 512
	}
	return c
}
