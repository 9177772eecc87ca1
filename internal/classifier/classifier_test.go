package classifier

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/roomgate/internal/corpus"
)

func TestClassifier_Scenarios(t *testing.T) {
	model, emb := trainedBuiltin(t)
	c, err := New(emb, model, 0)
	require.NoError(t, err)

	tests := []struct {
		text string
		want corpus.Label
	}{
		{text: "what color are ladybugs", want: corpus.LabelFlush},
		{text: "my dad died yesterday", want: corpus.LabelPersist},
		{text: "i'm shipping my game in January", want: corpus.LabelPersist},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			pred, err := c.Predict(context.Background(), tt.text)
			require.NoError(t, err)
			assert.Equal(t, tt.want, pred.Label)
			assert.GreaterOrEqual(t, pred.Confidence, 0.5)
			assert.LessOrEqual(t, pred.Confidence, 1.0)
		})
	}
}

func TestClassifier_ConfidenceMatchesLabel(t *testing.T) {
	model, emb := trainedBuiltin(t)
	c, err := New(emb, model, 0)
	require.NoError(t, err)

	validation, err := corpus.Validation()
	require.NoError(t, err)
	for _, ex := range validation.Examples {
		pred, err := c.Predict(context.Background(), ex.Text)
		require.NoError(t, err)
		require.True(t, pred.Label.Valid())
		if pred.Label == corpus.LabelPersist {
			assert.Equal(t, pred.PersistProbability, pred.Confidence)
		} else {
			assert.InDelta(t, 1-pred.PersistProbability, pred.Confidence, 1e-12)
		}
		assert.GreaterOrEqual(t, pred.Confidence, 0.5)
	}
}

func TestClassifier_ThresholdBias(t *testing.T) {
	model, emb := trainedBuiltin(t)
	c, err := New(emb, model, 0)
	require.NoError(t, err)
	ctx := context.Background()

	base, err := c.Predict(ctx, "my dad died yesterday")
	require.NoError(t, err)
	require.Equal(t, corpus.LabelPersist, base.Label)

	strict, err := c.PredictWithThreshold(ctx, "my dad died yesterday", 0.999)
	require.NoError(t, err)
	assert.Equal(t, corpus.LabelFlush, strict.Label)
	assert.Equal(t, base.PersistProbability, strict.PersistProbability)

	lenient, err := c.PredictWithThreshold(ctx, "what color are ladybugs", 0.001)
	require.NoError(t, err)
	assert.Equal(t, corpus.LabelPersist, lenient.Label)
}

func TestClassifier_CustomThresholdConfidenceIsLabelMass(t *testing.T) {
	model, emb := trainedBuiltin(t)
	c, err := New(emb, model, 0)
	require.NoError(t, err)

	pred, err := c.PredictWithThreshold(context.Background(), "what color are ladybugs", 0.001)
	require.NoError(t, err)
	require.Equal(t, corpus.LabelPersist, pred.Label)
	assert.Equal(t, pred.PersistProbability, pred.Confidence)
	assert.Less(t, pred.Confidence, 0.5, "a trivial exchange forced to PERSIST keeps its low probability")
}

func TestClassifier_InvalidInput(t *testing.T) {
	model, emb := trainedBuiltin(t)
	c, err := New(emb, model, 0)
	require.NoError(t, err)

	for _, text := range []string{"", "   ", "\n\t"} {
		_, err := c.Predict(context.Background(), text)
		assert.ErrorIs(t, err, ErrInvalidInput)
	}

	for _, threshold := range []float64{-0.1, 1, 1.5} {
		_, err := c.PredictWithThreshold(context.Background(), "hello", threshold)
		assert.ErrorIs(t, err, ErrInvalidInput)
	}
}

func TestNew_Validation(t *testing.T) {
	model, emb := trainedBuiltin(t)

	c, err := New(emb, model, 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultThreshold, c.Threshold())

	_, err = New(emb, model, 1.2)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = New(nil, model, 0)
	assert.ErrorIs(t, err, ErrModelUnavailable)

	_, err = New(emb, nil, 0)
	assert.ErrorIs(t, err, ErrModelUnavailable)
}

type nilSource struct{}

func (nilSource) Current() *Model { return nil }

func TestClassifier_NoModel(t *testing.T) {
	_, emb := trainedBuiltin(t)
	c, err := New(emb, nilSource{}, 0)
	require.NoError(t, err)

	_, err = c.Predict(context.Background(), "hello")
	assert.ErrorIs(t, err, ErrModelUnavailable)
}

type failingEmbedder struct{ Embedder }

var errBackend = errors.New("backend down")

func (failingEmbedder) Encode(context.Context, string) ([]float32, error) {
	return nil, errBackend
}

func TestClassifier_EmbedderErrorPropagates(t *testing.T) {
	model, emb := trainedBuiltin(t)
	c, err := New(failingEmbedder{emb}, model, 0)
	require.NoError(t, err)

	_, err = c.Predict(context.Background(), "hello")
	assert.ErrorIs(t, err, errBackend)
}
