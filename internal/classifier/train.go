package classifier

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/optimize"

	"github.com/fyrsmithlabs/roomgate/internal/corpus"
)

// Embedder is the slice of the embedding adapter the classifier needs.
type Embedder interface {
	Encode(ctx context.Context, text string) ([]float32, error)
	EncodeBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimension() int
	ModelID() string
}

// TrainConfig controls model fitting.
type TrainConfig struct {
	// C is the inverse regularisation strength.
	C float64
	// MaxIterations bounds the L-BFGS major iterations.
	MaxIterations int
	// BatchSize is the number of texts sent to the embedder per call.
	BatchSize int
}

// DefaultTrainConfig returns C=1 and 1000 iterations.
func DefaultTrainConfig() TrainConfig {
	return TrainConfig{C: 1.0, MaxIterations: 1000, BatchSize: 64}
}

func (c TrainConfig) withDefaults() TrainConfig {
	d := DefaultTrainConfig()
	if c.C <= 0 {
		c.C = d.C
	}
	if c.MaxIterations <= 0 {
		c.MaxIterations = d.MaxIterations
	}
	if c.BatchSize <= 0 {
		c.BatchSize = d.BatchSize
	}
	return c
}

// Train embeds every example and fits a class-balanced logistic regression.
//
// The objective is ½‖w‖² + C·Σ sᵢ·logloss(yᵢ, σ(w·xᵢ + b)) with an
// unpenalised intercept and sᵢ = n / (2·n_class(yᵢ)). Optimisation starts
// from zero, so identical inputs always yield an identical model.
func Train(ctx context.Context, emb Embedder, set *corpus.Set, cfg TrainConfig) (*Model, error) {
	if set == nil {
		return nil, fmt.Errorf("%w: no training set", ErrInsufficientData)
	}
	if err := set.ValidateForTraining(); err != nil {
		if errors.Is(err, corpus.ErrMissingClass) {
			return nil, fmt.Errorf("%w: %v", ErrInsufficientData, err)
		}
		return nil, fmt.Errorf("validating training set: %w", err)
	}
	cfg = cfg.withDefaults()

	x, err := embedAll(ctx, emb, set.Texts(), cfg.BatchSize)
	if err != nil {
		return nil, err
	}
	y := make([]float64, len(set.Examples))
	for i, ex := range set.Examples {
		if ex.Label == corpus.LabelPersist {
			y[i] = 1
		}
	}

	flush, persist := set.Counts()
	fitted, err := fit(x, y, classWeights(y, flush, persist), cfg)
	if err != nil {
		return nil, err
	}

	return newModel(Metadata{
		EmbeddingModel:    emb.ModelID(),
		C:                 cfg.C,
		FlushCount:        flush,
		PersistCount:      persist,
		CorpusFingerprint: set.Fingerprint(),
		TrainedAt:         time.Now().UTC(),
		OptimizerStatus:   fitted.status.String(),
		StoppedEarly:      !fitted.converged,
	}, fitted.weights, fitted.intercept), nil
}

func embedAll(ctx context.Context, emb Embedder, texts []string, batchSize int) ([][]float64, error) {
	out := make([][]float64, 0, len(texts))
	for start := 0; start < len(texts); start += batchSize {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		end := min(start+batchSize, len(texts))
		vecs, err := emb.EncodeBatch(ctx, texts[start:end])
		if err != nil {
			return nil, fmt.Errorf("embedding training texts %d-%d: %w", start, end, err)
		}
		for _, v := range vecs {
			row := make([]float64, len(v))
			for j, f := range v {
				row[j] = float64(f)
			}
			out = append(out, row)
		}
	}
	dim := emb.Dimension()
	for i, row := range out {
		if len(row) != dim {
			return nil, fmt.Errorf("%w: training text %d has %d, embedder reports %d", ErrDimensionMismatch, i, len(row), dim)
		}
	}
	return out, nil
}

// classWeights gives each class the same total weight.
func classWeights(y []float64, flush, persist int) []float64 {
	n := float64(len(y))
	wFlush := n / (2 * float64(flush))
	wPersist := n / (2 * float64(persist))
	s := make([]float64, len(y))
	for i, label := range y {
		if label == 1 {
			s[i] = wPersist
		} else {
			s[i] = wFlush
		}
	}
	return s
}

type fitResult struct {
	weights   []float64
	intercept float64
	status    optimize.Status
	converged bool
}

// converged reports whether Minimize stopped at an optimum rather than at
// a limit or after a failure.
func converged(status optimize.Status, err error) bool {
	if err != nil {
		return false
	}
	switch status {
	case optimize.NotTerminated, optimize.Failure, optimize.IterationLimit, optimize.RuntimeLimit,
		optimize.FunctionEvaluationLimit, optimize.GradientEvaluationLimit, optimize.HessianEvaluationLimit:
		return false
	}
	return true
}

// fit minimises the regularised weighted log loss. params is [w..., b].
// A run that stops early still returns its parameters when they are
// finite; the result records that it did not converge.
func fit(x [][]float64, y, s []float64, cfg TrainConfig) (fitResult, error) {
	dim := len(x[0])
	z := make([]float64, len(x))

	margins := func(params []float64) {
		w, b := params[:dim], params[dim]
		for i, row := range x {
			z[i] = floats.Dot(w, row) + b
		}
	}

	problem := optimize.Problem{
		Func: func(params []float64) float64 {
			margins(params)
			w := params[:dim]
			var loss float64
			for i := range x {
				loss += s[i] * (softplus(z[i]) - y[i]*z[i])
			}
			return 0.5*floats.Dot(w, w) + cfg.C*loss
		},
		Grad: func(grad, params []float64) {
			margins(params)
			copy(grad[:dim], params[:dim])
			grad[dim] = 0
			for i, row := range x {
				r := cfg.C * s[i] * (sigmoid(z[i]) - y[i])
				floats.AddScaled(grad[:dim], r, row)
				grad[dim] += r
			}
		},
	}

	settings := &optimize.Settings{
		MajorIterations:   cfg.MaxIterations,
		GradientThreshold: 1e-6,
	}
	result, err := optimize.Minimize(problem, make([]float64, dim+1), settings, &optimize.LBFGS{})
	if result == nil {
		return fitResult{}, fmt.Errorf("optimising model: %w", err)
	}
	params := result.X
	if !allFinite(params) {
		return fitResult{}, fmt.Errorf("optimising model: non-finite parameters (status %v): %w", result.Status, err)
	}
	return fitResult{
		weights:   params[:dim],
		intercept: params[dim],
		status:    result.Status,
		converged: converged(result.Status, err),
	}, nil
}
