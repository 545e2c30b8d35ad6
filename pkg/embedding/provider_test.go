package embedding

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeVector(t *testing.T) {
	got := normalizeVector([]float32{3, 4})
	assert.InDelta(t, 0.6, got[0], 1e-6)
	assert.InDelta(t, 0.8, got[1], 1e-6)

	zero := []float32{0, 0}
	assert.Equal(t, zero, normalizeVector(zero))
}

func TestOllamaProviderGenerate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/embed", r.URL.Path)
		var req ollamaEmbedRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "nomic-embed-text", req.Model)
		assert.Equal(t, []string{"dental coverage"}, req.Input)
		_ = json.NewEncoder(w).Encode(ollamaEmbedResponse{Embeddings: [][]float32{{0, 2, 0}}})
	}))
	defer srv.Close()

	p := NewOllamaProvider(srv.URL, "")
	res, err := p.Generate(context.Background(), "dental coverage", TaskRetrievalQuery)
	require.NoError(t, err)
	assert.Equal(t, []float32{0, 1, 0}, res.Embedding.Values)
}

func TestOllamaProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := NewOllamaProvider(srv.URL, "missing").Generate(context.Background(), "x", "")
	assert.ErrorContains(t, err, "model not found")

	empty := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"embeddings":[]}`))
	}))
	defer empty.Close()
	_, err = NewOllamaProvider(empty.URL, "").Generate(context.Background(), "x", "")
	assert.ErrorContains(t, err, "no embedding")
}

func TestNewProvider(t *testing.T) {
	_, err := NewProvider("openai", "", "", "")
	assert.Error(t, err)

	p, err := NewProvider("ollama", "", "", "")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:11434", p.(*OllamaProvider).BaseURL)

	_, err = NewProvider("word2vec", "", "", "")
	assert.Error(t, err)
}
