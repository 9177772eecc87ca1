package classifier

import (
	"context"
	"errors"
	"fmt"
	"io/fs"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/roomgate/internal/corpus"
)

// CorpusFunc supplies the training set when a model has to be (re)built.
type CorpusFunc func() (*corpus.Set, error)

// LoadOrTrain returns the cached model at path when it matches emb, and
// otherwise trains a new one from the corpus and caches it at path.
//
// A corrupt artifact is an error rather than a silent retrain, so a damaged
// file is noticed. An artifact for a different embedder is replaced.
func LoadOrTrain(ctx context.Context, path string, emb Embedder, training CorpusFunc, cfg TrainConfig, logger *zap.Logger) (*Model, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	if path != "" {
		model, err := Load(path)
		switch {
		case err == nil && model.Compatible(emb.ModelID(), emb.Dimension()):
			logger.Info("loaded classifier model",
				zap.String("path", path),
				zap.String("embedding_model", model.meta.EmbeddingModel),
				zap.Time("trained_at", model.meta.TrainedAt))
			warnStoppedEarly(logger, model, path)
			return model, nil
		case err == nil:
			logger.Warn("classifier model built for a different embedder, retraining",
				zap.String("path", path),
				zap.String("artifact_model", model.meta.EmbeddingModel),
				zap.Int("artifact_dimension", model.Dimension()),
				zap.String("embedder_model", emb.ModelID()),
				zap.Int("embedder_dimension", emb.Dimension()))
		case errors.Is(err, fs.ErrNotExist):
			logger.Info("no classifier model cached, training", zap.String("path", path))
		default:
			return nil, err
		}
	}

	if training == nil {
		return nil, fmt.Errorf("%w: no artifact at %q and no training corpus", ErrModelUnavailable, path)
	}
	set, err := training()
	if err != nil {
		return nil, fmt.Errorf("%w: loading training corpus: %v", ErrModelUnavailable, err)
	}

	model, err := Train(ctx, emb, set, cfg)
	if err != nil {
		return nil, fmt.Errorf("training classifier: %w", err)
	}
	flush, persist := set.Counts()
	logger.Info("trained classifier model",
		zap.String("corpus", set.Name),
		zap.Int("flush", flush),
		zap.Int("persist", persist),
		zap.String("embedding_model", emb.ModelID()))
	warnStoppedEarly(logger, model, path)

	if path != "" {
		if err := model.Save(path); err != nil {
			return nil, fmt.Errorf("caching classifier model: %w", err)
		}
	}
	return model, nil
}

func warnStoppedEarly(logger *zap.Logger, model *Model, path string) {
	if !model.meta.StoppedEarly {
		return
	}
	logger.Warn("classifier optimisation stopped before converging",
		zap.String("path", path),
		zap.String("optimizer_status", model.meta.OptimizerStatus))
}
