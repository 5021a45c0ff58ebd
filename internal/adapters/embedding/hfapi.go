// Package embedding provides the Hugging Face Inference API adapter.
// Clean Architecture: This is an adapter that implements
// ports.EmbeddingService. It knows about the HF API specifics but the
// domain layer doesn't.
package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// maxBatch keeps request bodies within the Inference API payload
// limits.
const maxBatch = 64

// HFAdapter implements ports.EmbeddingService using the Hugging Face
// Inference API feature-extraction pipeline.
type HFAdapter struct {
	baseURL string
	model   string
	token   string
	client  *http.Client
	log     *zap.SugaredLogger
}

// NewHFAdapter creates a new Hugging Face embedding adapter.
func NewHFAdapter(baseURL, model, token string, log *zap.Logger) *HFAdapter {
	if baseURL == "" {
		baseURL = "https://router.huggingface.co/hf-inference/models"
	}
	if model == "" {
		model = "BAAI/bge-small-en-v1.5"
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &HFAdapter{
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		token:   token,
		client: &http.Client{
			Timeout: 60 * time.Second,
		},
		log: log.Sugar(),
	}
}

// hfEmbedRequest is the feature-extraction request format.
type hfEmbedRequest struct {
	Inputs []string `json:"inputs"`
}

// Embed generates an embedding for a single text.
func (a *HFAdapter) Embed(ctx context.Context, text string) ([]float32, error) {
	embeddings, err := a.embedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(embeddings) != 1 {
		return nil, fmt.Errorf("expected 1 embedding, got %d", len(embeddings))
	}
	return embeddings[0], nil
}

// EmbedBatch generates embeddings for multiple texts, splitting the
// input into API-sized batches.
func (a *HFAdapter) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	embeddings := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += maxBatch {
		end := start + maxBatch
		if end > len(texts) {
			end = len(texts)
		}
		batch, err := a.embedBatch(ctx, texts[start:end])
		if err != nil {
			return nil, fmt.Errorf("embedding batch at %d: %w", start, err)
		}
		embeddings = append(embeddings, batch...)
	}
	return embeddings, nil
}

func (a *HFAdapter) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	jsonData, err := json.Marshal(hfEmbedRequest{Inputs: texts})
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	url := fmt.Sprintf("%s/%s/pipeline/feature-extraction", a.baseURL, a.model)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if a.token != "" {
		req.Header.Set("Authorization", "Bearer "+a.token)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling Hugging Face: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("Hugging Face returned status %d", resp.StatusCode)
	}

	var embeddings [][]float32
	if err := json.NewDecoder(resp.Body).Decode(&embeddings); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	if len(embeddings) != len(texts) {
		return nil, fmt.Errorf("expected %d embeddings, got %d", len(texts), len(embeddings))
	}
	a.log.Debugw("embedded texts", "count", len(texts), "dimensions", dims(embeddings))
	return embeddings, nil
}

func dims(embeddings [][]float32) int {
	if len(embeddings) == 0 {
		return 0
	}
	return len(embeddings[0])
}
