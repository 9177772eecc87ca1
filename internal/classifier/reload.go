package classifier

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// ErrWatcherFailed indicates the filesystem watcher failed to initialize.
var ErrWatcherFailed = errors.New("failed to initialize model watcher")

// Reloader serves the active model and replaces it when the artifact on disk
// is rewritten. A reload that fails, or yields a model for another embedder,
// keeps the current model.
type Reloader struct {
	path      string
	modelID   string
	dimension int
	logger    *zap.Logger

	current  atomic.Pointer[Model]
	watcher  *fsnotify.Watcher
	stop     chan struct{}
	stopOnce sync.Once
	reloaded chan struct{}
}

// NewReloader creates a reloader for the artifact at path, starting from initial.
func NewReloader(path string, initial *Model, emb Embedder, logger *zap.Logger) (*Reloader, error) {
	if initial == nil {
		return nil, ErrModelUnavailable
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrWatcherFailed, err)
	}

	r := &Reloader{
		path:      filepath.Clean(path),
		modelID:   emb.ModelID(),
		dimension: emb.Dimension(),
		logger:    logger,
		watcher:   watcher,
		stop:      make(chan struct{}),
		reloaded:  make(chan struct{}, 1),
	}
	r.current.Store(initial)
	return r, nil
}

// Current returns the active model.
func (r *Reloader) Current() *Model {
	return r.current.Load()
}

// Reloaded receives a value after each successful swap. Used by tests and
// by callers that want to log model changes.
func (r *Reloader) Reloaded() <-chan struct{} {
	return r.reloaded
}

// Start watches the artifact's directory. Save replaces the file by rename,
// so the file itself cannot be watched.
func (r *Reloader) Start(ctx context.Context) error {
	if err := r.watcher.Add(filepath.Dir(r.path)); err != nil {
		return fmt.Errorf("watching model directory: %w", err)
	}
	go r.processEvents(ctx)
	return nil
}

// Stop ends watching. It is safe to call more than once.
func (r *Reloader) Stop() {
	r.stopOnce.Do(func() {
		close(r.stop)
		_ = r.watcher.Close()
	})
}

func (r *Reloader) processEvents(ctx context.Context) {
	for {
		select {
		case <-r.stop:
			return
		case <-ctx.Done():
			return
		case event, ok := <-r.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != r.path {
				continue
			}
			if event.Has(fsnotify.Create) || event.Has(fsnotify.Write) {
				r.Reload()
			}
		case err, ok := <-r.watcher.Errors:
			if !ok {
				return
			}
			r.logger.Warn("model watcher error", zap.Error(err))
		}
	}
}

// Reload reads the artifact and swaps it in if it is usable.
func (r *Reloader) Reload() bool {
	model, err := Load(r.path)
	if err != nil {
		r.logger.Warn("model reload failed, keeping current model", zap.String("path", r.path), zap.Error(err))
		return false
	}
	if !model.Compatible(r.modelID, r.dimension) {
		r.logger.Warn("reloaded model built for a different embedder, keeping current model",
			zap.String("path", r.path),
			zap.String("artifact_model", model.meta.EmbeddingModel),
			zap.String("embedder_model", r.modelID))
		return false
	}

	r.current.Store(model)
	r.logger.Info("classifier model reloaded",
		zap.String("path", r.path),
		zap.Time("trained_at", model.meta.TrainedAt))
	select {
	case r.reloaded <- struct{}{}:
	default:
	}
	return true
}
