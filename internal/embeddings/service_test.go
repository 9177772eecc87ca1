package embeddings

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTEIServer(t *testing.T, handler func(inputs []string) (int, any)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/embed", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)

		var req teiRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		assert.True(t, req.Truncate)

		status, body := handler(req.Inputs)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestNewService(t *testing.T) {
	tests := []struct {
		name       string
		baseURL    string
		wantErr    bool
		errMessage string
	}{
		{name: "valid TEI configuration", baseURL: "http://localhost:8080"},
		{name: "empty base URL", wantErr: true, errMessage: "base URL required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service, err := NewService(Config{BaseURL: tt.baseURL, Model: "BAAI/bge-small-en-v1.5"})
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrInvalidConfig)
				assert.Contains(t, err.Error(), tt.errMessage)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, service)
		})
	}
}

func TestService_Encode(t *testing.T) {
	srv := newTEIServer(t, func(inputs []string) (int, any) {
		out := make([][]float32, len(inputs))
		for i := range inputs {
			out[i] = []float32{float32(i + 1), 0.5, -0.5}
		}
		return http.StatusOK, out
	})

	svc, err := NewService(Config{BaseURL: srv.URL, Model: "test-model"})
	require.NoError(t, err)
	ctx := context.Background()

	t.Run("single text", func(t *testing.T) {
		vec, err := svc.Encode(ctx, "hello")
		require.NoError(t, err)
		assert.Equal(t, []float32{1, 0.5, -0.5}, vec)
	})

	t.Run("batch keeps order", func(t *testing.T) {
		vecs, err := svc.EncodeBatch(ctx, []string{"a", "b"})
		require.NoError(t, err)
		require.Len(t, vecs, 2)
		assert.Equal(t, float32(2), vecs[1][0])
	})

	t.Run("empty batch", func(t *testing.T) {
		_, err := svc.EncodeBatch(ctx, nil)
		assert.ErrorIs(t, err, ErrEmptyInput)
	})

	assert.Equal(t, "tei:test-model", svc.ModelID())
}

func TestService_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("non-200 status", func(t *testing.T) {
		srv := newTEIServer(t, func([]string) (int, any) {
			return http.StatusServiceUnavailable, map[string]string{"error": "model loading"}
		})
		svc, err := NewService(Config{BaseURL: srv.URL})
		require.NoError(t, err)

		_, err = svc.Encode(ctx, "hello")
		assert.ErrorIs(t, err, ErrEmbeddingFailed)
		assert.Contains(t, err.Error(), "503")
	})

	t.Run("vector count mismatch", func(t *testing.T) {
		srv := newTEIServer(t, func([]string) (int, any) {
			return http.StatusOK, [][]float32{}
		})
		svc, err := NewService(Config{BaseURL: srv.URL})
		require.NoError(t, err)

		_, err = svc.Encode(ctx, "hello")
		assert.ErrorIs(t, err, ErrEmbeddingFailed)
	})

	t.Run("unreachable server", func(t *testing.T) {
		svc, err := NewService(Config{BaseURL: "http://127.0.0.1:1"})
		require.NoError(t, err)

		_, err = svc.Encode(ctx, "hello")
		assert.ErrorIs(t, err, ErrEmbeddingFailed)
	})
}
