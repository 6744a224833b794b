package embeddings

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newEmbedServer(t *testing.T, dim int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/embed", r.URL.Path)

		var req embedRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		count := 1
		if texts, ok := req.Inputs.([]interface{}); ok {
			count = len(texts)
		}

		vectors := make([][]float32, count)
		for i := range vectors {
			vectors[i] = make([]float32, dim)
			vectors[i][0] = float32(i + 1)
		}
		require.NoError(t, json.NewEncoder(w).Encode(vectors))
	}))
}

func TestNewService_RequiresBaseURL(t *testing.T) {
	_, err := NewService(Config{}, zap.NewNop())
	require.ErrorIs(t, err, ErrInvalidConfig)
}

func TestEmbedQuery(t *testing.T) {
	srv := newEmbedServer(t, 4)
	defer srv.Close()

	svc, err := NewService(Config{BaseURL: srv.URL}, zap.NewNop())
	require.NoError(t, err)

	vec, err := svc.EmbedQuery(context.Background(), "hello")
	require.NoError(t, err)
	assert.Len(t, vec, 4)
}

func TestEmbedQuery_EmptyText(t *testing.T) {
	svc, err := NewService(Config{BaseURL: "http://localhost:1"}, zap.NewNop())
	require.NoError(t, err)

	_, err = svc.EmbedQuery(context.Background(), "")
	require.ErrorIs(t, err, ErrEmptyInput)
}

func TestEmbedDocuments(t *testing.T) {
	srv := newEmbedServer(t, 4)
	defer srv.Close()

	svc, err := NewService(Config{BaseURL: srv.URL}, zap.NewNop())
	require.NoError(t, err)

	vectors, err := svc.EmbedDocuments(context.Background(), []string{"a", "b", "c"})
	require.NoError(t, err)
	require.Len(t, vectors, 3)
	assert.Len(t, vectors[0], 4)
}

func TestEmbedDocuments_Empty(t *testing.T) {
	svc, err := NewService(Config{BaseURL: "http://localhost:1"}, zap.NewNop())
	require.NoError(t, err)

	_, err = svc.EmbedDocuments(context.Background(), nil)
	require.ErrorIs(t, err, ErrEmptyInput)
}

func TestEmbed_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	svc, err := NewService(Config{BaseURL: srv.URL}, zap.NewNop())
	require.NoError(t, err)

	_, err = svc.EmbedQuery(context.Background(), "hello")
	require.ErrorIs(t, err, ErrEmbeddingFailed)
	assert.Contains(t, err.Error(), "503")
}

func TestEmbed_Unreachable(t *testing.T) {
	svc, err := NewService(Config{BaseURL: "http://127.0.0.1:1", Timeout: 200 * time.Millisecond}, zap.NewNop())
	require.NoError(t, err)

	_, err = svc.EmbedQuery(context.Background(), "hello")
	require.ErrorIs(t, err, ErrEmbeddingFailed)
}

func TestDimension(t *testing.T) {
	tests := []struct {
		model string
		want  int
	}{
		{"BAAI/bge-small-en-v1.5", 384},
		{"BAAI/bge-base-en-v1.5", 768},
		{"BAAI/bge-large-en-v1.5", 1024},
		{"", 384},
	}
	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			svc, err := NewService(Config{BaseURL: "http://localhost:1", Model: tt.model}, zap.NewNop())
			require.NoError(t, err)
			assert.Equal(t, tt.want, svc.Dimension())
		})
	}
}

func TestDimension_Override(t *testing.T) {
	svc, err := NewService(Config{BaseURL: "http://localhost:1", Dimension: 1536}, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, 1536, svc.Dimension())
}
