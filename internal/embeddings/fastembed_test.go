//go:build cgo

package embeddings

import (
	"context"
	"os"
	"testing"
)

func skipWithoutONNX(t *testing.T) {
	t.Helper()
	// Skip in short mode as this downloads models
	if testing.Short() {
		t.Skip("skipping FastEmbed test in short mode")
	}
	if _, err := os.Stat("/usr/lib/libonnxruntime.so"); os.IsNotExist(err) {
		if os.Getenv("ONNX_PATH") == "" {
			t.Skip("ONNX runtime not available, skipping FastEmbed test")
		}
	}
}

func TestNewFastEmbedProvider(t *testing.T) {
	skipWithoutONNX(t)

	tests := []struct {
		name    string
		cfg     FastEmbedConfig
		wantDim int
	}{
		{
			name:    "default model",
			cfg:     FastEmbedConfig{},
			wantDim: 384,
		},
		{
			name:    "fastembed model name",
			cfg:     FastEmbedConfig{Model: "fast-bge-small-en-v1.5"},
			wantDim: 384,
		},
		{
			name:    "base model",
			cfg:     FastEmbedConfig{Model: "BAAI/bge-base-en-v1.5"},
			wantDim: 768,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider, err := NewFastEmbedProvider(tt.cfg)
			if err != nil {
				t.Fatalf("NewFastEmbedProvider() error = %v", err)
			}
			defer provider.Close()

			if provider.Dimension() != tt.wantDim {
				t.Errorf("Dimension() = %d, want %d", provider.Dimension(), tt.wantDim)
			}
		})
	}
}

func TestFastEmbedProvider_UnknownModel(t *testing.T) {
	_, err := NewFastEmbedProvider(FastEmbedConfig{Model: "not-a-model"})
	if err == nil {
		t.Fatal("expected error for unknown model")
	}
}

func TestFastEmbedProvider_Encode(t *testing.T) {
	skipWithoutONNX(t)

	provider, err := NewFastEmbedProvider(FastEmbedConfig{})
	if err != nil {
		t.Fatalf("NewFastEmbedProvider() error = %v", err)
	}
	defer provider.Close()

	guarded := Guard(provider)
	ctx := context.Background()

	single, err := guarded.Encode(ctx, "my dad died yesterday")
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	if len(single) != 384 {
		t.Fatalf("len = %d, want 384", len(single))
	}

	batch, err := guarded.EncodeBatch(ctx, []string{"my dad died yesterday", "what color are ladybugs"})
	if err != nil {
		t.Fatalf("EncodeBatch() error = %v", err)
	}
	if len(batch) != 2 {
		t.Fatalf("len(batch) = %d, want 2", len(batch))
	}
	for i := range single {
		if single[i] != batch[0][i] {
			t.Fatalf("single and batch encodings differ at %d", i)
		}
	}
}
