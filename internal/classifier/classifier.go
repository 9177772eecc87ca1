package classifier

import (
	"context"
	"fmt"
	"strings"

	"github.com/fyrsmithlabs/roomgate/internal/corpus"
)

// DefaultThreshold is the P(PERSIST) above which an exchange is kept.
const DefaultThreshold = 0.5

// Prediction is the verdict for one exchange.
type Prediction struct {
	Label corpus.Label
	// Confidence is the probability mass of the predicted label. It is at
	// least 0.5 at DefaultThreshold. A caller threshold moves the decision
	// boundary but not the probabilities, so with a threshold below 0.5 a
	// PERSIST can carry confidence below 0.5, and likewise FLUSH above it.
	Confidence float64
	// PersistProbability is P(PERSIST | text).
	PersistProbability float64
}

// ModelSource yields the model to predict with. *Model and *Reloader
// both satisfy it.
type ModelSource interface {
	Current() *Model
}

// Classifier pairs an embedder with a trained model.
type Classifier struct {
	embedder  Embedder
	models    ModelSource
	threshold float64
}

// New creates a classifier. A zero threshold selects DefaultThreshold.
func New(embedder Embedder, models ModelSource, threshold float64) (*Classifier, error) {
	if embedder == nil {
		return nil, fmt.Errorf("%w: embedder is required", ErrModelUnavailable)
	}
	if models == nil {
		return nil, fmt.Errorf("%w: model source is required", ErrModelUnavailable)
	}
	if threshold == 0 {
		threshold = DefaultThreshold
	}
	if err := ValidateThreshold(threshold); err != nil {
		return nil, err
	}
	return &Classifier{embedder: embedder, models: models, threshold: threshold}, nil
}

// ValidateThreshold requires 0 < t < 1.
func ValidateThreshold(t float64) error {
	if !(t > 0 && t < 1) {
		return fmt.Errorf("%w: threshold %v must be in (0, 1)", ErrInvalidInput, t)
	}
	return nil
}

// Threshold returns the configured decision threshold.
func (c *Classifier) Threshold() float64 {
	return c.threshold
}

// Predict classifies text at the configured threshold.
func (c *Classifier) Predict(ctx context.Context, text string) (Prediction, error) {
	return c.predict(ctx, text, c.threshold)
}

// PredictWithThreshold classifies text at a caller supplied threshold.
func (c *Classifier) PredictWithThreshold(ctx context.Context, text string, threshold float64) (Prediction, error) {
	if err := ValidateThreshold(threshold); err != nil {
		return Prediction{}, err
	}
	return c.predict(ctx, text, threshold)
}

func (c *Classifier) predict(ctx context.Context, text string, threshold float64) (Prediction, error) {
	if strings.TrimSpace(text) == "" {
		return Prediction{}, fmt.Errorf("%w: text is blank", ErrInvalidInput)
	}
	model := c.models.Current()
	if model == nil {
		return Prediction{}, ErrModelUnavailable
	}

	vec, err := c.embedder.Encode(ctx, text)
	if err != nil {
		return Prediction{}, fmt.Errorf("embedding text: %w", err)
	}
	p, err := model.Probability(vec)
	if err != nil {
		return Prediction{}, err
	}

	if p > threshold {
		return Prediction{Label: corpus.LabelPersist, Confidence: p, PersistProbability: p}, nil
	}
	return Prediction{Label: corpus.LabelFlush, Confidence: 1 - p, PersistProbability: p}, nil
}
