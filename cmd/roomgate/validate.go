package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/roomgate/internal/classifier"
	"github.com/fyrsmithlabs/roomgate/internal/corpus"
	"github.com/fyrsmithlabs/roomgate/internal/logging"
	"github.com/fyrsmithlabs/roomgate/internal/validation"
)

var (
	validateCorpus    string
	validateFolds     int
	validateFailUnder float64
)

func init() {
	rootCmd.AddCommand(validateCmd)
	validateCmd.Flags().StringVar(&validateCorpus, "corpus", "", "additional labelled TOML corpus to evaluate")
	validateCmd.Flags().IntVar(&validateFolds, "cv", 0, "also run k-fold cross-validation on the training corpus")
	validateCmd.Flags().Float64Var(&validateFailUnder, "fail-under", 0, "exit non-zero when any set scores below this accuracy")
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Measure classifier accuracy",
	Long: `Evaluate the classifier on the built-in validation cases and the
held-out novel set, and print accuracy and misclassifications.

False positives (PERSIST exchanges predicted FLUSH) are memories the
gate would lose and are reported separately.

Examples:
  roomgate validate
  roomgate validate --corpus support-chats.toml
  roomgate validate --cv 5 --fail-under 0.9`,
	Args: cobra.NoArgs,
	RunE: runValidate,
}

func runValidate(cmd *cobra.Command, _ []string) error {
	ctx := logging.WithSurface(cmd.Context(), logging.SurfaceCLI)

	if validateFolds == 1 || validateFolds < 0 {
		return fmt.Errorf("--cv must be 0 or at least 2, got %d", validateFolds)
	}

	a, err := newApp(ctx, true)
	if err != nil {
		return err
	}
	defer a.Close()

	emb, err := a.embedder()
	if err != nil {
		return err
	}
	defer func() { _ = emb.Close() }()

	model, err := a.loadModel(ctx, emb)
	if err != nil {
		return err
	}
	clf, err := classifier.New(emb, model, a.cfg.Classifier.Threshold)
	if err != nil {
		return err
	}

	sets := []func() (*corpus.Set, error){corpus.Validation, corpus.Novel}
	if validateCorpus != "" {
		sets = append(sets, func() (*corpus.Set, error) { return loadCorpus(validateCorpus, nil) })
	}

	w := cmd.OutOrStdout()
	var below []string
	for _, load := range sets {
		set, err := load()
		if err != nil {
			return err
		}
		report, err := validation.EvaluateSet(ctx, clf, set)
		if err != nil {
			return fmt.Errorf("evaluating %s: %w", set.Name, err)
		}
		if err := validation.Render(w, report); err != nil {
			return err
		}
		fmt.Fprintln(w)

		a.logger.Info(ctx, "validation complete",
			zap.String("set", report.Name),
			zap.Float64("accuracy", report.Accuracy),
			zap.Int("false_positives", report.FalsePositives),
			zap.Int("false_negatives", report.FalseNegatives))

		if report.Accuracy < validateFailUnder {
			below = append(below, report.Name)
		}
	}

	if validateFolds > 0 {
		training, err := a.trainingCorpus()
		if err != nil {
			return err
		}
		cv, err := validation.CrossValidate(ctx, emb, training, validateFolds, a.trainConfig())
		if err != nil {
			return fmt.Errorf("cross-validation: %w", err)
		}
		if err := validation.RenderCV(w, cv); err != nil {
			return err
		}
		if cv.Mean < validateFailUnder {
			below = append(below, "cross-validation")
		}
	}

	if len(below) > 0 {
		return fmt.Errorf("accuracy below %.2f on: %v", validateFailUnder, below)
	}
	return nil
}
