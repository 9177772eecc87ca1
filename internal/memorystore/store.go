// Package memorystore is the append-only JSON document holding exchanges the
// gate decided to keep.
package memorystore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrStoreCorrupted indicates the document exists but cannot be parsed.
// Appends refuse to overwrite it.
var ErrStoreCorrupted = errors.New("memory store corrupted")

// Store persists entries as a single JSON array. Every write replaces the
// whole document through a temp file and rename, so readers see either the
// old or the new document and a crash never leaves a partial one.
//
// Appends and Clear are serialised within the process by a mutex and
// across processes by an advisory lock on a sibling ".lock" file, so the
// server and CLI commands can share one document. Reads take no lock.
type Store struct {
	path   string
	mu     sync.RWMutex
	now    func() time.Time
	newID  func() string
	logger *zap.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the store logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// New creates a store backed by the document at path. The file and its
// directory are created on first append.
func New(path string, opts ...Option) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("memory store path is required")
	}
	s := &Store{
		path:   filepath.Clean(path),
		now:    time.Now,
		newID:  func() string { return uuid.New().String() },
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Path returns the document location.
func (s *Store) Path() string {
	return s.path
}

// Append stamps e with a new id and the current time and adds it to the end
// of the document. The returned entry is what was written.
func (s *Store) Append(ctx context.Context, e Entry) (Entry, error) {
	if err := ctx.Err(); err != nil {
		return Entry{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var (
		record  Entry
		entries []Entry
	)
	err := s.withFileLock(func() error {
		var err error
		entries, err = s.read()
		if err != nil {
			return err
		}

		ts := s.now().UTC()
		if n := len(entries); n > 0 && entries[n-1].Timestamp.After(ts) {
			ts = entries[n-1].Timestamp
		}
		record = Entry{
			ID:        s.newID(),
			Text:      e.Text,
			Timestamp: ts,
			Category:  e.Category,
			Metadata:  cleanMetadata(e.Metadata),
		}
		entries = append(entries, record)
		return s.write(entries)
	})
	if err != nil {
		AppendFailures.WithLabelValues(failureReason(err)).Inc()
		return Entry{}, err
	}

	AppendsTotal.WithLabelValues(string(record.Category)).Inc()
	Entries.Set(float64(len(entries)))
	s.logger.Debug("memory appended",
		zap.String("id", record.ID),
		zap.String("category", string(record.Category)),
		zap.Int("entries", len(entries)))
	return record, nil
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, ErrStoreCorrupted):
		return "corrupt"
	case errors.Is(err, errLock):
		return "lock"
	default:
		return "io"
	}
}

// ReadAll returns every entry in append order. A missing document is empty.
func (s *Store) ReadAll(ctx context.Context) ([]Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, err := s.read()
	if err != nil {
		return nil, err
	}
	Entries.Set(float64(len(entries)))
	return entries, nil
}

// Clear deletes the document.
func (s *Store) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.withFileLock(func() error {
		if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("clearing memory store: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	Entries.Set(0)
	s.logger.Info("memory store cleared", zap.String("path", s.path))
	return nil
}

func (s *Store) read() ([]Entry, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []Entry{}, nil
		}
		return nil, fmt.Errorf("reading memory store: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return []Entry{}, nil
	}

	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrStoreCorrupted, s.path, err)
	}
	if entries == nil {
		entries = []Entry{}
	}
	return entries, nil
}

func (s *Store) write(entries []Entry) error {
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding memory store: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("creating memory store directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".memories-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("syncing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		return fmt.Errorf("replacing memory store: %w", err)
	}
	return nil
}

func cleanMetadata(in map[string]any) map[string]any {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]any, len(in))
	for k, v := range in {
		if !isReserved(k) {
			out[k] = v
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
