// Package validation measures gate accuracy on labelled exchanges.
//
// The two error kinds are reported separately because they cost different
// things: a false positive loses a memory, a false negative keeps noise.
package validation

import (
	"context"
	"errors"
	"fmt"

	"github.com/fyrsmithlabs/roomgate/internal/classifier"
	"github.com/fyrsmithlabs/roomgate/internal/corpus"
)

// ErrEmptySet is returned when there is nothing to evaluate.
var ErrEmptySet = errors.New("no examples to evaluate")

// Predictor classifies one exchange. *classifier.Classifier satisfies it.
type Predictor interface {
	Predict(ctx context.Context, text string) (classifier.Prediction, error)
}

// Miss is a misclassified example.
type Miss struct {
	Text       string       `json:"text"`
	Expected   corpus.Label `json:"expected"`
	Predicted  corpus.Label `json:"predicted"`
	Confidence float64      `json:"confidence"`
}

// FalsePositive reports a PERSIST exchange that was flushed (a lost memory).
func (m Miss) FalsePositive() bool {
	return m.Expected == corpus.LabelPersist && m.Predicted == corpus.LabelFlush
}

// Report summarises one evaluation run.
type Report struct {
	Name     string  `json:"name,omitempty"`
	Accuracy float64 `json:"accuracy"`
	Correct  int     `json:"correct"`
	Total    int     `json:"total"`
	// FalsePositives counts PERSIST-truth exchanges predicted FLUSH.
	FalsePositives int `json:"false_positives"`
	// FalseNegatives counts FLUSH-truth exchanges predicted PERSIST.
	FalseNegatives int    `json:"false_negatives"`
	Misclassified  []Miss `json:"misclassified"`
}

// Evaluate predicts every example and tallies the results. A prediction
// error aborts the run.
func Evaluate(ctx context.Context, p Predictor, examples []corpus.Example) (Report, error) {
	if len(examples) == 0 {
		return Report{}, ErrEmptySet
	}

	r := Report{Total: len(examples), Misclassified: []Miss{}}
	for i, ex := range examples {
		if err := ctx.Err(); err != nil {
			return Report{}, err
		}
		pred, err := p.Predict(ctx, ex.Text)
		if err != nil {
			return Report{}, fmt.Errorf("example %d: %w", i, err)
		}
		if pred.Label == ex.Label {
			r.Correct++
			continue
		}
		m := Miss{Text: ex.Text, Expected: ex.Label, Predicted: pred.Label, Confidence: pred.Confidence}
		if m.FalsePositive() {
			r.FalsePositives++
		} else {
			r.FalseNegatives++
		}
		r.Misclassified = append(r.Misclassified, m)
	}
	r.Accuracy = float64(r.Correct) / float64(r.Total)
	return r, nil
}

// EvaluateSet evaluates a named corpus.
func EvaluateSet(ctx context.Context, p Predictor, set *corpus.Set) (Report, error) {
	if set == nil {
		return Report{}, ErrEmptySet
	}
	r, err := Evaluate(ctx, p, set.Examples)
	if err != nil {
		return Report{}, fmt.Errorf("evaluating %s: %w", set.Name, err)
	}
	r.Name = set.Name
	return r, nil
}
