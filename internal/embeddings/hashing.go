package embeddings

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"strings"
	"unicode"
)

// DefaultHashingDimension is the vector size of the hashing provider.
// Large enough that token collisions are rare for conversational text.
const DefaultHashingDimension = 4096

// HashingProvider embeds text as a signed, L2-normalised bag of hashed tokens.
// It is deterministic, needs no model files, and is safe for concurrent use.
type HashingProvider struct {
	dimension int
}

// NewHashingProvider creates a hashing provider. dimension 0 uses the default.
func NewHashingProvider(dimension int) (*HashingProvider, error) {
	if dimension == 0 {
		dimension = DefaultHashingDimension
	}
	if dimension < 2 {
		return nil, fmt.Errorf("%w: hashing dimension must be >= 2, got %d", ErrInvalidConfig, dimension)
	}
	return &HashingProvider{dimension: dimension}, nil
}

// Encode returns the hashed bag-of-words vector for text.
func (p *HashingProvider) Encode(_ context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: text cannot be blank", ErrEmptyInput)
	}

	vec := make([]float64, p.dimension)
	tokens := tokenize(text)
	if len(tokens) == 0 {
		// Punctuation-only input still gets a stable, non-zero vector.
		tokens = []string{strings.TrimSpace(text)}
	}
	for _, tok := range tokens {
		idx, sign := p.bucket(tok)
		vec[idx] += sign
	}

	var norm float64
	for _, v := range vec {
		norm += v * v
	}
	out := make([]float32, p.dimension)
	if norm == 0 {
		// Every token cancelled out; fall back to the whole text.
		idx, sign := p.bucket(text)
		out[idx] = float32(sign)
		return out, nil
	}
	norm = math.Sqrt(norm)
	for i, v := range vec {
		out[i] = float32(v / norm)
	}
	return out, nil
}

// EncodeBatch encodes each text in order.
func (p *HashingProvider) EncodeBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("%w: texts cannot be empty", ErrEmptyInput)
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := p.Encode(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("text %d: %w", i, err)
		}
		out[i] = vec
	}
	return out, nil
}

// Dimension returns the vector size.
func (p *HashingProvider) Dimension() int {
	return p.dimension
}

// ModelID encodes the dimension so cached classifiers are not reused across sizes.
func (p *HashingProvider) ModelID() string {
	return fmt.Sprintf("hashing-fnv64a-%d", p.dimension)
}

// Close is a no-op.
func (p *HashingProvider) Close() error {
	return nil
}

func (p *HashingProvider) bucket(token string) (int, float64) {
	h := fnv.New64a()
	h.Write([]byte(token))
	sum := h.Sum64()
	sign := 1.0
	if sum>>63 == 1 {
		sign = -1.0
	}
	return int(sum % uint64(p.dimension)), sign
}

// tokenize lowercases text and splits it into word tokens. Apostrophes stay
// inside words so "i'm" and "don't" remain single tokens.
func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\''
	})
}
