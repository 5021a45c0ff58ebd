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

func embedServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/test/model/pipeline/feature-extraction", r.URL.Path)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))

		var req hfEmbedRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		out := make([][]float32, len(req.Inputs))
		for i := range req.Inputs {
			out[i] = []float32{float32(i), 0.5}
		}
		json.NewEncoder(w).Encode(out)
	}))
}

func TestEmbed(t *testing.T) {
	server := embedServer(t)
	defer server.Close()

	adapter := NewHFAdapter(server.URL, "test/model", "test-token", nil)
	embedding, err := adapter.Embed(context.Background(), "tapete de yoga")

	require.NoError(t, err)
	assert.Equal(t, []float32{0, 0.5}, embedding)
}

func TestEmbedBatch(t *testing.T) {
	server := embedServer(t)
	defer server.Close()

	adapter := NewHFAdapter(server.URL, "test/model", "test-token", nil)
	texts := make([]string, maxBatch+3)
	for i := range texts {
		texts[i] = "passage"
	}

	embeddings, err := adapter.EmbedBatch(context.Background(), texts)

	require.NoError(t, err)
	require.Len(t, embeddings, maxBatch+3)
	for _, e := range embeddings {
		assert.Len(t, e, 2)
	}
}

func TestEmbed_CountMismatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([][]float32{})
	}))
	defer server.Close()

	adapter := NewHFAdapter(server.URL, "test/model", "", nil)
	_, err := adapter.Embed(context.Background(), "anything")

	require.Error(t, err)
}

func TestEmbed_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	adapter := NewHFAdapter(server.URL, "test/model", "", nil)
	_, err := adapter.Embed(context.Background(), "anything")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}
