package validation

import (
	"context"
	"errors"
	"fmt"

	"gonum.org/v1/gonum/stat"

	"github.com/fyrsmithlabs/roomgate/internal/classifier"
	"github.com/fyrsmithlabs/roomgate/internal/corpus"
)

// DefaultFolds is the fold count used when k is zero.
const DefaultFolds = 5

// ErrTooFewExamples is returned when a corpus cannot be split into k
// folds that each train on both classes.
var ErrTooFewExamples = errors.New("too few examples for cross-validation")

// CVReport holds per-fold accuracies.
type CVReport struct {
	Folds    int       `json:"folds"`
	Accuracy []float64 `json:"accuracy"`
	Mean     float64   `json:"mean"`
	// StdDev is the population standard deviation across folds.
	StdDev float64 `json:"std_dev"`
}

// CrossValidate runs stratified k-fold cross-validation. Fold assignment
// deals FLUSH then PERSIST examples round-robin in corpus order, so the
// same corpus always yields the same folds.
func CrossValidate(ctx context.Context, emb classifier.Embedder, set *corpus.Set, k int, cfg classifier.TrainConfig) (CVReport, error) {
	if k == 0 {
		k = DefaultFolds
	}
	if k < 2 {
		return CVReport{}, fmt.Errorf("%w: need at least 2 folds, got %d", ErrTooFewExamples, k)
	}
	if set == nil {
		return CVReport{}, ErrEmptySet
	}
	if err := set.ValidateForTraining(); err != nil {
		return CVReport{}, err
	}
	flush, persist := set.Counts()
	if flush < 2 || persist < 2 || flush+persist < k {
		return CVReport{}, fmt.Errorf("%w: %d FLUSH and %d PERSIST examples for %d folds", ErrTooFewExamples, flush, persist, k)
	}

	folds := assignFolds(set.Examples, k)

	report := CVReport{Folds: k, Accuracy: make([]float64, 0, k)}
	for f := 0; f < k; f++ {
		train := &corpus.Set{Name: fmt.Sprintf("%s-train-%d", set.Name, f)}
		var test []corpus.Example
		for i, ex := range set.Examples {
			if folds[i] == f {
				test = append(test, ex)
			} else {
				train.Examples = append(train.Examples, ex)
			}
		}

		model, err := classifier.Train(ctx, emb, train, cfg)
		if err != nil {
			return CVReport{}, fmt.Errorf("fold %d: %w", f, err)
		}
		clf, err := classifier.New(emb, model, 0)
		if err != nil {
			return CVReport{}, fmt.Errorf("fold %d: %w", f, err)
		}
		r, err := Evaluate(ctx, clf, test)
		if err != nil {
			return CVReport{}, fmt.Errorf("fold %d: %w", f, err)
		}
		report.Accuracy = append(report.Accuracy, r.Accuracy)
	}

	report.Mean, report.StdDev = stat.PopMeanStdDev(report.Accuracy, nil)
	return report, nil
}

// assignFolds returns the fold index of each example.
func assignFolds(examples []corpus.Example, k int) []int {
	folds := make([]int, len(examples))
	next := 0
	for _, label := range []corpus.Label{corpus.LabelFlush, corpus.LabelPersist} {
		for i, ex := range examples {
			if ex.Label == label {
				folds[i] = next % k
				next++
			}
		}
	}
	return folds
}
