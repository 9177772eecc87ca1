package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/fyrsmithlabs/roomgate/internal/category"
	"github.com/fyrsmithlabs/roomgate/internal/classifier"
	"github.com/fyrsmithlabs/roomgate/internal/corpus"
	"github.com/fyrsmithlabs/roomgate/internal/gate"
	"github.com/fyrsmithlabs/roomgate/internal/logging"
	"github.com/fyrsmithlabs/roomgate/internal/memorystore"
)

// stubGate records calls and returns a canned decision or error.
type stubGate struct {
	mu       sync.Mutex
	decision gate.Decision
	err      error
	calls    []gate.Options
	texts    []string
}

func (g *stubGate) Process(_ context.Context, text string, opts gate.Options) (gate.Decision, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, opts)
	g.texts = append(g.texts, text)
	if g.err != nil {
		return gate.Decision{}, g.err
	}
	d := g.decision
	d.Exchange = text
	return d, nil
}

func setupTestServer(t *testing.T, g Processor, mutate ...func(*Config)) (*Server, *logging.TestLogger) {
	t.Helper()
	cfg := DefaultConfig()
	cfg.RateLimit = 0
	for _, m := range mutate {
		m(cfg)
	}
	logger := logging.NewTestLogger()
	server, err := NewServer(g, logger.Logger, cfg)
	require.NoError(t, err)
	return server, logger
}

func do(s *Server, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestNewServer(t *testing.T) {
	t.Run("uses defaults when config is nil", func(t *testing.T) {
		server, err := NewServer(&stubGate{}, logging.Nop(), nil)
		require.NoError(t, err)
		assert.Equal(t, "127.0.0.1:5000", server.Addr())
	})

	t.Run("returns error when logger is nil", func(t *testing.T) {
		_, err := NewServer(&stubGate{}, nil, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "logger is required")
	})

	t.Run("returns error when gate is nil", func(t *testing.T) {
		_, err := NewServer(nil, logging.Nop(), nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "gate cannot be nil")
	})
}

func TestHandleHealth(t *testing.T) {
	server, _ := setupTestServer(t, &stubGate{})

	rec := do(server, http.MethodGet, "/health", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestHandleMetrics(t *testing.T) {
	server, _ := setupTestServer(t, &stubGate{})

	rec := do(server, http.MethodGet, "/metrics", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestHandleClassify(t *testing.T) {
	empathy := category.Empathy

	t.Run("persist", func(t *testing.T) {
		g := &stubGate{decision: gate.Decision{
			Decision:   corpus.LabelPersist,
			Confidence: 0.91,
			Category:   &empathy,
			Persisted:  true,
			EntryID:    "abc",
		}}
		server, _ := setupTestServer(t, g)

		rec := do(server, http.MethodPost, "/classify", `{"text":"my dad died yesterday"}`)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"decision":"PERSIST","confidence":0.91,"category":"EMPATHY","persisted":true,"id":"abc"}`, rec.Body.String())
		require.Len(t, g.calls, 1)
		assert.True(t, g.calls[0].AutoPersist, "auto_persist defaults to true")
		assert.Zero(t, g.calls[0].Threshold)
	})

	t.Run("flush has null category", func(t *testing.T) {
		g := &stubGate{decision: gate.Decision{Decision: corpus.LabelFlush, Confidence: 0.88}}
		server, _ := setupTestServer(t, g)

		rec := do(server, http.MethodPost, "/classify", `{"text":"what color are ladybugs"}`)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"decision":"FLUSH","confidence":0.88,"category":null,"persisted":false}`, rec.Body.String())
	})

	t.Run("options forwarded", func(t *testing.T) {
		g := &stubGate{decision: gate.Decision{Decision: corpus.LabelFlush, Confidence: 0.6}}
		server, _ := setupTestServer(t, g)

		rec := do(server, http.MethodPost, "/classify",
			`{"text":"hello","auto_persist":false,"threshold":0.8,"metadata":{"session":"s1"}}`)

		require.Equal(t, http.StatusOK, rec.Code)
		require.Len(t, g.calls, 1)
		assert.False(t, g.calls[0].AutoPersist)
		assert.Equal(t, 0.8, g.calls[0].Threshold)
		assert.Equal(t, map[string]any{"session": "s1"}, g.calls[0].Metadata)
	})
}

func TestHandleClassify_BadRequests(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"missing text", `{}`, `{"error":"No text provided"}`},
		{"empty text", `{"text":""}`, `{"error":"No text provided"}`},
		{"blank text", `{"text":"   "}`, `{"error":"No text provided"}`},
		{"malformed json", `{"text":`, `{"error":"invalid request body"}`},
		{"threshold zero", `{"text":"hi","threshold":0}`, `{"error":"threshold must be between 0 and 1 (exclusive)"}`},
		{"threshold one", `{"text":"hi","threshold":1}`, `{"error":"threshold must be between 0 and 1 (exclusive)"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := &stubGate{}
			server, _ := setupTestServer(t, g)

			rec := do(server, http.MethodPost, "/classify", tt.body)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.JSONEq(t, tt.want, rec.Body.String())
			assert.Empty(t, g.calls, "gate must not run")
		})
	}
}

func TestHandleClassify_Failures(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
		want string
	}{
		{"invalid input", fmt.Errorf("%w: text is blank", gate.ErrInvalidInput), http.StatusBadRequest, "invalid input: text is blank"},
		{"model unavailable", fmt.Errorf("classifying exchange: %w", gate.ErrModelUnavailable), http.StatusInternalServerError, "classifier model unavailable"},
		{"store corrupted", fmt.Errorf("persisting exchange: %w", gate.ErrStoreCorruption), http.StatusInternalServerError, "memory store corrupted"},
		{"other", errors.New("disk on fire"), http.StatusInternalServerError, "internal error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server, logger := setupTestServer(t, &stubGate{err: tt.err})

			rec := do(server, http.MethodPost, "/classify", `{"text":"my dad died yesterday"}`)

			assert.Equal(t, tt.code, rec.Code)
			var resp ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tt.want, resp.Error)
			assert.NotContains(t, rec.Body.String(), "decision", "failures never produce a default decision")
			if tt.code == http.StatusInternalServerError {
				logger.AssertLogged(t, zapcore.ErrorLevel, "classify failed")
			}
		})
	}
}

func TestRequestLogging(t *testing.T) {
	server, logger := setupTestServer(t, &stubGate{decision: gate.Decision{Decision: corpus.LabelFlush}})

	req := httptest.NewRequest(http.MethodPost, "/classify", strings.NewReader(`{"text":"secret diary entry"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(echoRequestIDHeader, "req-123")
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "req-123", rec.Header().Get(echoRequestIDHeader))

	entries := logger.FilterMessage("http request").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "/classify", fields["path"])
	assert.Equal(t, int64(http.StatusOK), fields["status"])
	assert.Equal(t, "req-123", fields["request.id"])
	assert.Equal(t, "http", fields["surface"])
	logger.AssertNoExchangeText(t, "secret diary entry")
}

func TestErrorHandler_JSON(t *testing.T) {
	server, _ := setupTestServer(t, &stubGate{})

	rec := do(server, http.MethodGet, "/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"Not Found"}`, rec.Body.String())

	rec = do(server, http.MethodGet, "/classify", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestBodyLimit(t *testing.T) {
	g := &stubGate{}
	server, _ := setupTestServer(t, g, func(c *Config) { c.BodyLimit = "1K" })

	body := fmt.Sprintf(`{"text":%q}`, strings.Repeat("a", 4096))
	rec := do(server, http.MethodPost, "/classify", body)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Empty(t, g.calls)
}

func TestRateLimit(t *testing.T) {
	g := &stubGate{decision: gate.Decision{Decision: corpus.LabelFlush}}
	server, _ := setupTestServer(t, g, func(c *Config) {
		c.RateLimit = 0.001
		c.RateBurst = 2
	})

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		codes = append(codes, do(server, http.MethodPost, "/classify", `{"text":"hi"}`).Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)

	// Health checks are never limited.
	assert.Equal(t, http.StatusOK, do(server, http.MethodGet, "/health", "").Code)
}

func TestCORS(t *testing.T) {
	server, _ := setupTestServer(t, &stubGate{})

	req := httptest.NewRequest(http.MethodOptions, "/classify", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestClassify_EndToEnd(t *testing.T) {
	tagger, err := category.NewTagger(nil)
	require.NoError(t, err)
	store, err := memorystore.New(filepath.Join(t.TempDir(), "room2.json"))
	require.NoError(t, err)
	svc, err := gate.New(fixedPredictor(0.9), tagger, store)
	require.NoError(t, err)
	server, _ := setupTestServer(t, svc)

	rec := do(server, http.MethodPost, "/classify", `{"text":"i have ADHD and it affects how i work"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp ClassifyResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, corpus.LabelPersist, resp.Decision)
	require.NotNil(t, resp.Category)
	assert.Equal(t, category.Understanding, *resp.Category)
	assert.True(t, resp.Persisted)

	entries, err := store.ReadAll(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, resp.EntryID, entries[0].ID)
}

// fixedPredictor returns the same P(PERSIST) for every text.
type fixedPredictor float64

func (p fixedPredictor) Predict(ctx context.Context, text string) (classifier.Prediction, error) {
	return p.PredictWithThreshold(ctx, text, classifier.DefaultThreshold)
}

func (p fixedPredictor) PredictWithThreshold(_ context.Context, _ string, threshold float64) (classifier.Prediction, error) {
	prob := float64(p)
	if prob > threshold {
		return classifier.Prediction{Label: corpus.LabelPersist, Confidence: prob, PersistProbability: prob}, nil
	}
	return classifier.Prediction{Label: corpus.LabelFlush, Confidence: 1 - prob, PersistProbability: prob}, nil
}

const echoRequestIDHeader = "X-Request-Id"
