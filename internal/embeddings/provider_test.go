package embeddings

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProvider(t *testing.T) {
	tests := []struct {
		name      string
		cfg       ProviderConfig
		wantDim   int
		wantError bool
	}{
		{
			name: "tei provider with valid config",
			cfg: ProviderConfig{
				Provider: "tei",
				BaseURL:  "http://localhost:8080",
				Model:    "BAAI/bge-small-en-v1.5",
			},
			wantDim: 384,
		},
		{
			name: "tei provider with explicit dimension",
			cfg: ProviderConfig{
				Provider:  "tei",
				BaseURL:   "http://localhost:8080",
				Model:     "custom/model",
				Dimension: 1536,
			},
			wantDim: 1536,
		},
		{
			name: "tei provider without base URL",
			cfg: ProviderConfig{
				Provider: "tei",
				Model:    "BAAI/bge-small-en-v1.5",
			},
			wantError: true,
		},
		{
			name:    "hashing provider default dimension",
			cfg:     ProviderConfig{Provider: "hashing"},
			wantDim: DefaultHashingDimension,
		},
		{
			name:    "hashing provider custom dimension",
			cfg:     ProviderConfig{Provider: "hashing", Dimension: 64},
			wantDim: 64,
		},
		{
			name:      "hashing provider invalid dimension",
			cfg:       ProviderConfig{Provider: "hashing", Dimension: 1},
			wantError: true,
		},
		{
			name:      "unknown provider",
			cfg:       ProviderConfig{Provider: "unknown"},
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider, err := NewProvider(tt.cfg)
			if tt.wantError {
				assert.Error(t, err)
				assert.Nil(t, provider)
				return
			}
			require.NoError(t, err)
			defer provider.Close()
			assert.Equal(t, tt.wantDim, provider.Dimension())
		})
	}
}

func TestDetectDimensionFromModel(t *testing.T) {
	tests := []struct {
		model string
		want  int
	}{
		{"sentence-transformers/all-MiniLM-L6-v2", 384},
		{"BAAI/bge-base-en-v1.5", 768},
		{"BAAI/bge-small-zh-v1.5", 512},
		{"intfloat/e5-large", 1024},
		{"some/base-model", 768},
		{"mystery", 384},
	}
	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			assert.Equal(t, tt.want, detectDimensionFromModel(tt.model))
		})
	}
}
