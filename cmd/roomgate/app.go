package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/roomgate/internal/category"
	"github.com/fyrsmithlabs/roomgate/internal/classifier"
	"github.com/fyrsmithlabs/roomgate/internal/config"
	"github.com/fyrsmithlabs/roomgate/internal/corpus"
	"github.com/fyrsmithlabs/roomgate/internal/embeddings"
	"github.com/fyrsmithlabs/roomgate/internal/gate"
	"github.com/fyrsmithlabs/roomgate/internal/logging"
	"github.com/fyrsmithlabs/roomgate/internal/memorystore"
	"github.com/fyrsmithlabs/roomgate/internal/secrets"
	"github.com/fyrsmithlabs/roomgate/internal/telemetry"
)

// app holds the process-wide ambient stack: configuration, logger and
// telemetry.
type app struct {
	cfg    *config.Config
	logger *logging.Logger
	tel    *telemetry.Telemetry
}

// newApp loads configuration and starts logging and telemetry.
// stderr keeps stdout free for command output or the MCP transport.
func newApp(ctx context.Context, stderr bool) (*app, error) {
	cfg, err := config.LoadWithFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if stderr {
		cfg.Logging.Stderr = true
	}

	logCfg, err := logging.ConfigFrom(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("logging config: %w", err)
	}
	bootstrap, err := logging.NewLogger(logCfg, nil)
	if err != nil {
		return nil, fmt.Errorf("initializing logger: %w", err)
	}

	tel, err := telemetry.New(ctx, telemetry.ConfigFrom(cfg.Telemetry, version), bootstrap.Underlying())
	if err != nil {
		return nil, fmt.Errorf("initializing telemetry: %w", err)
	}

	logger := bootstrap
	if logCfg.Output.OTEL {
		logger, err = logging.NewLogger(logCfg, tel.LoggerProvider())
		if err != nil {
			return nil, fmt.Errorf("initializing otel logger: %w", err)
		}
	}

	return &app{cfg: cfg, logger: logger, tel: tel}, nil
}

// Close flushes telemetry and the logger.
func (a *app) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.tel.Shutdown(ctx); err != nil {
		a.logger.Warn(ctx, "telemetry shutdown failed", zap.Error(err))
	}
	_ = a.logger.Sync()
}

func (a *app) trainConfig() classifier.TrainConfig {
	cfg := classifier.DefaultTrainConfig()
	cfg.C = a.cfg.Classifier.C
	cfg.MaxIterations = a.cfg.Classifier.MaxIterations
	return cfg
}

// embedder builds the configured provider wrapped in the adapter contract.
func (a *app) embedder() (*embeddings.Guarded, error) {
	e := a.cfg.Embeddings
	p, err := embeddings.NewProvider(embeddings.ProviderConfig{
		Provider:  e.Provider,
		Model:     e.Model,
		BaseURL:   e.BaseURL,
		CacheDir:  e.CacheDir,
		Dimension: e.Dimension,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", gate.ErrModelUnavailable, err)
	}
	return embeddings.Guard(p), nil
}

func (a *app) store() (*memorystore.Store, error) {
	return memorystore.New(a.cfg.Store.Path, memorystore.WithLogger(a.logger.Underlying()))
}

// loadModel returns the cached artifact, training and caching one when it
// is missing or was built for another embedder.
func (a *app) loadModel(ctx context.Context, emb classifier.Embedder) (*classifier.Model, error) {
	return classifier.LoadOrTrain(ctx, a.cfg.Classifier.ModelPath, emb, a.trainingCorpus, a.trainConfig(), a.logger.Underlying())
}

// trainingCorpus returns corpus.path when set, else the built-in set.
func (a *app) trainingCorpus() (*corpus.Set, error) {
	return loadCorpus(a.cfg.Corpus.Path, corpus.Training)
}

// components are the pieces behind the gate.
type components struct {
	embedder   *embeddings.Guarded
	classifier *classifier.Classifier
	reloader   *classifier.Reloader
	gate       *gate.Service
}

// Close stops the model watcher and releases the embedder.
func (c *components) Close() error {
	if c.reloader != nil {
		c.reloader.Stop()
	}
	return c.embedder.Close()
}

// buildGate wires embedder, classifier, tagger, store and scrubber into the
// gate facade. With watch set, the model artifact is reloaded when it
// changes on disk.
func (a *app) buildGate(ctx context.Context, watch bool) (*components, error) {
	emb, err := a.embedder()
	if err != nil {
		return nil, err
	}
	c := &components{embedder: emb}

	model, err := a.loadModel(ctx, emb)
	if err != nil {
		_ = emb.Close()
		return nil, err
	}

	var source classifier.ModelSource = model
	if watch && a.cfg.Classifier.ModelPath != "" {
		reloader, err := classifier.NewReloader(a.cfg.Classifier.ModelPath, model, emb, a.logger.Underlying())
		if err != nil {
			a.logger.Warn(ctx, "model hot reload disabled", zap.Error(err))
		} else if err := reloader.Start(ctx); err != nil {
			reloader.Stop()
			a.logger.Warn(ctx, "model hot reload disabled", zap.Error(err))
		} else {
			c.reloader = reloader
			source = reloader
		}
	}

	c.classifier, err = classifier.New(emb, source, a.cfg.Classifier.Threshold)
	if err != nil {
		return nil, errors.Join(err, c.Close())
	}

	tagger, err := category.NewTagger(a.cfg.Category.Rules)
	if err != nil {
		return nil, errors.Join(err, c.Close())
	}

	store, err := a.store()
	if err != nil {
		return nil, errors.Join(err, c.Close())
	}

	scrubber, err := secrets.New(a.cfg.Secrets)
	if err != nil {
		return nil, errors.Join(fmt.Errorf("secret scrubber: %w", err), c.Close())
	}

	c.gate, err = gate.New(c.classifier, tagger, store,
		gate.WithScrubber(scrubber),
		gate.WithLogger(a.logger),
		gate.WithTracer(a.tel.Tracer("github.com/fyrsmithlabs/roomgate/internal/gate")),
	)
	if err != nil {
		return nil, errors.Join(err, c.Close())
	}
	return c, nil
}
