package classifier

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"time"

	"gonum.org/v1/gonum/floats"
)

// FormatVersion is the artifact layout written by Save.
const FormatVersion = 1

// Metadata describes how a Model was produced.
type Metadata struct {
	EmbeddingModel    string    `json:"embedding_model"`
	Dimension         int       `json:"dimension"`
	C                 float64   `json:"c"`
	FlushCount        int       `json:"flush_count"`
	PersistCount      int       `json:"persist_count"`
	CorpusFingerprint string    `json:"corpus_fingerprint"`
	TrainedAt         time.Time `json:"trained_at"`
	// OptimizerStatus is the L-BFGS termination status.
	OptimizerStatus string `json:"optimizer_status,omitempty"`
	// StoppedEarly marks a model whose optimisation hit a limit or failed
	// before converging. The parameters are usable but not optimal.
	StoppedEarly bool `json:"stopped_early,omitempty"`
}

// Model is a trained logistic regression. It is never mutated after
// construction and is safe for concurrent use.
type Model struct {
	meta      Metadata
	weights   []float64
	intercept float64
}

// artifact is the on-disk form of a Model.
type artifact struct {
	Version   int       `json:"version"`
	Weights   []float64 `json:"weights"`
	Intercept float64   `json:"intercept"`
	Metadata
}

func newModel(meta Metadata, weights []float64, intercept float64) *Model {
	w := make([]float64, len(weights))
	copy(w, weights)
	meta.Dimension = len(w)
	return &Model{meta: meta, weights: w, intercept: intercept}
}

// Metadata returns a copy of the training metadata.
func (m *Model) Metadata() Metadata {
	return m.meta
}

// Dimension is the embedding size the model expects.
func (m *Model) Dimension() int {
	return len(m.weights)
}

// Current lets a fixed Model serve as a ModelSource.
func (m *Model) Current() *Model {
	return m
}

// Probability returns P(PERSIST | vec).
func (m *Model) Probability(vec []float32) (float64, error) {
	if len(vec) != len(m.weights) {
		return 0, fmt.Errorf("%w: got %d, model expects %d", ErrDimensionMismatch, len(vec), len(m.weights))
	}
	x := make([]float64, len(vec))
	for i, v := range vec {
		x[i] = float64(v)
	}
	return sigmoid(floats.Dot(m.weights, x) + m.intercept), nil
}

// Compatible reports whether the model was trained against the given embedder.
func (m *Model) Compatible(modelID string, dimension int) bool {
	return m.meta.EmbeddingModel == modelID && len(m.weights) == dimension
}

// Save writes the model as JSON. The file is replaced atomically so readers
// see either the previous artifact or the new one.
func (m *Model) Save(path string) error {
	data, err := json.MarshalIndent(artifact{
		Version:   FormatVersion,
		Weights:   m.weights,
		Intercept: m.intercept,
		Metadata:  m.meta,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling model: %w", err)
	}
	return writeFileAtomic(path, data)
}

// Load reads a model written by Save. A missing file is reported as
// fs.ErrNotExist; any decoding problem is ErrModelCorrupted.
func Load(path string) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
		return nil, fmt.Errorf("reading model: %w", err)
	}

	var a artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrModelCorrupted, path, err)
	}
	if a.Version != FormatVersion {
		return nil, fmt.Errorf("%w: %s: unsupported version %d", ErrModelCorrupted, path, a.Version)
	}
	if len(a.Weights) == 0 || (a.Dimension != 0 && a.Dimension != len(a.Weights)) {
		return nil, fmt.Errorf("%w: %s: %d weights for dimension %d", ErrModelCorrupted, path, len(a.Weights), a.Dimension)
	}
	if !allFinite(a.Weights) || math.IsNaN(a.Intercept) || math.IsInf(a.Intercept, 0) {
		return nil, fmt.Errorf("%w: %s: non-finite parameters", ErrModelCorrupted, path)
	}
	return newModel(a.Metadata, a.Weights, a.Intercept), nil
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("creating model directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".classifier-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("syncing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, 0600); err != nil {
		return fmt.Errorf("setting permissions: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("renaming model file: %w", err)
	}
	return nil
}

func sigmoid(z float64) float64 {
	if z >= 0 {
		return 1 / (1 + math.Exp(-z))
	}
	e := math.Exp(z)
	return e / (1 + e)
}

// softplus is log(1 + e^z) without overflow.
func softplus(z float64) float64 {
	return math.Max(z, 0) + math.Log1p(math.Exp(-math.Abs(z)))
}

func allFinite(xs []float64) bool {
	for _, x := range xs {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}
