package embeddings

import (
	"context"
	"fmt"
	"math"
	"strings"
)

// Guarded enforces the adapter contract on top of any Provider: blank input
// is rejected and every returned vector must have the advertised dimension,
// be finite and be non-zero.
type Guarded struct {
	Provider
	metrics *Metrics
}

// Guard wraps p. Guarding an already guarded provider returns it unchanged.
func Guard(p Provider) *Guarded {
	if g, ok := p.(*Guarded); ok {
		return g
	}
	return &Guarded{Provider: p, metrics: NewMetrics(nil)}
}

// Encode embeds text and validates the result.
func (g *Guarded) Encode(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, g.reject(ctx, fmt.Errorf("%w: text cannot be blank", ErrEmptyInput))
	}
	vec, err := g.Provider.Encode(ctx, text)
	if err != nil {
		return nil, err
	}
	if err := g.check(vec); err != nil {
		return nil, g.reject(ctx, err)
	}
	return vec, nil
}

// EncodeBatch embeds texts and validates every result.
func (g *Guarded) EncodeBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, g.reject(ctx, fmt.Errorf("%w: texts cannot be empty", ErrEmptyInput))
	}
	for i, text := range texts {
		if strings.TrimSpace(text) == "" {
			return nil, g.reject(ctx, fmt.Errorf("%w: text %d is blank", ErrEmptyInput, i))
		}
	}
	vecs, err := g.Provider.EncodeBatch(ctx, texts)
	if err != nil {
		return nil, err
	}
	if len(vecs) != len(texts) {
		return nil, g.reject(ctx, fmt.Errorf("%w: got %d vectors for %d texts", ErrDegenerateEmbedding, len(vecs), len(texts)))
	}
	for i, vec := range vecs {
		if err := g.check(vec); err != nil {
			return nil, g.reject(ctx, fmt.Errorf("text %d: %w", i, err))
		}
	}
	return vecs, nil
}

func (g *Guarded) reject(ctx context.Context, err error) error {
	g.metrics.RecordRejection(ctx, g.Provider.ModelID(), err)
	return err
}

func (g *Guarded) check(vec []float32) error {
	if want := g.Provider.Dimension(); len(vec) != want {
		return fmt.Errorf("%w: dimension %d, want %d", ErrDegenerateEmbedding, len(vec), want)
	}
	nonZero := false
	for _, v := range vec {
		f := float64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return fmt.Errorf("%w: non-finite component", ErrDegenerateEmbedding)
		}
		if v != 0 {
			nonZero = true
		}
	}
	if !nonZero {
		return fmt.Errorf("%w: zero vector for non-empty input", ErrDegenerateEmbedding)
	}
	return nil
}
