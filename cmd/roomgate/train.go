package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/roomgate/internal/classifier"
	"github.com/fyrsmithlabs/roomgate/internal/config"
	"github.com/fyrsmithlabs/roomgate/internal/corpus"
	"github.com/fyrsmithlabs/roomgate/internal/logging"
)

var (
	trainCorpus string
	trainOutput string
)

func init() {
	rootCmd.AddCommand(trainCmd)
	trainCmd.Flags().StringVar(&trainCorpus, "corpus", "", "TOML training corpus (default: corpus.path or the built-in corpus)")
	trainCmd.Flags().StringVarP(&trainOutput, "output", "o", "", "artifact path (default: classifier.model_path)")
}

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Retrain the classifier and rewrite the model artifact",
	Long: `Embed the training corpus, fit the classifier and write the artifact.

A running "roomgate serve" with classifier.watch enabled swaps in the new
model as soon as the file is replaced.

Examples:
  roomgate train
  roomgate train --corpus my-corpus.toml -o /tmp/classifier.json`,
	Args: cobra.NoArgs,
	RunE: runTrain,
}

func runTrain(cmd *cobra.Command, _ []string) error {
	ctx := logging.WithSurface(cmd.Context(), logging.SurfaceCLI)

	a, err := newApp(ctx, true)
	if err != nil {
		return err
	}
	defer a.Close()

	set, err := loadCorpus(trainCorpus, a.trainingCorpus)
	if err != nil {
		return err
	}

	out := trainOutput
	if out == "" {
		out = a.cfg.Classifier.ModelPath
	}
	out, err = config.ExpandPath(out)
	if err != nil {
		return err
	}

	emb, err := a.embedder()
	if err != nil {
		return err
	}
	defer func() { _ = emb.Close() }()

	model, err := classifier.Train(ctx, emb, set, a.trainConfig())
	if err != nil {
		return err
	}
	if err := model.Save(out); err != nil {
		return err
	}

	meta := model.Metadata()
	flush, persist := set.Counts()
	a.logger.Info(ctx, "classifier trained",
		zap.String("path", out),
		zap.String("corpus", set.Name),
		zap.Int("examples", flush+persist))

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Trained on %d examples (%d FLUSH, %d PERSIST) from %s\n", flush+persist, flush, persist, set.Name)
	fmt.Fprintf(w, "Embedding model: %s (%d dims)\n", meta.EmbeddingModel, meta.Dimension)
	if meta.StoppedEarly {
		fmt.Fprintf(w, "Warning: optimisation stopped before converging (%s); consider raising classifier.max_iterations\n", meta.OptimizerStatus)
	}
	fmt.Fprintf(w, "Saved to %s\n", out)
	return nil
}

// loadCorpus reads path, or the built-in set when path is empty.
func loadCorpus(path string, builtin func() (*corpus.Set, error)) (*corpus.Set, error) {
	if path == "" {
		return builtin()
	}
	set, err := corpus.Load(path)
	if err != nil {
		return nil, fmt.Errorf("loading corpus %s: %w", path, err)
	}
	return set, nil
}
