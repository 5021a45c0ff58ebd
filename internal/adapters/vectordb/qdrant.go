package vectordb

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/yogateria/supportbot/internal/domain/entities"
)

// QdrantStore implements ports.VectorStore against the Qdrant REST API.
// Passage IDs are mapped to deterministic UUIDs so re-ingesting the
// same catalog overwrites points instead of duplicating them.
type QdrantStore struct {
	baseURL    string
	collection string
	client     *http.Client
	log        *zap.SugaredLogger
}

// NewQdrantStore creates a Qdrant-backed vector store.
func NewQdrantStore(baseURL, collection string, log *zap.Logger) *QdrantStore {
	if baseURL == "" {
		baseURL = "http://localhost:6333"
	}
	if collection == "" {
		collection = "yogateria_products_v2"
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &QdrantStore{
		baseURL:    strings.TrimRight(baseURL, "/"),
		collection: collection,
		client: &http.Client{
			Timeout: 60 * time.Second,
		},
		log: log.Sugar(),
	}
}

type qdrantPoint struct {
	ID      string                 `json:"id"`
	Vector  []float32              `json:"vector"`
	Payload map[string]interface{} `json:"payload"`
}

type qdrantSearchRequest struct {
	Vector      []float32 `json:"vector"`
	Limit       int       `json:"limit"`
	WithPayload bool      `json:"with_payload"`
}

type qdrantSearchResponse struct {
	Result []struct {
		Score   float64                `json:"score"`
		Payload map[string]interface{} `json:"payload"`
	} `json:"result"`
	Status interface{} `json:"status"`
}

// pointID derives a stable UUID from a passage ID. Qdrant only accepts
// integers or UUIDs as point IDs.
func pointID(passageID string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(passageID)).String()
}

func (s *QdrantStore) do(ctx context.Context, method, path string, body interface{}) ([]byte, int, error) {
	var reader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, 0, fmt.Errorf("marshaling request: %w", err)
		}
		reader = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, reader)
	if err != nil {
		return nil, 0, fmt.Errorf("creating request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("calling Qdrant: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("reading response: %w", err)
	}
	return data, resp.StatusCode, nil
}

// ensureCollection creates the collection if it does not exist yet.
// Vector size follows whatever the embedding model produces.
func (s *QdrantStore) ensureCollection(ctx context.Context, vectorSize int) error {
	_, status, err := s.do(ctx, "GET", "/collections/"+s.collection, nil)
	if err != nil {
		return err
	}
	if status == http.StatusOK {
		return nil
	}

	body := map[string]interface{}{
		"vectors": map[string]interface{}{
			"size":     vectorSize,
			"distance": "Cosine",
		},
	}
	_, status, err = s.do(ctx, "PUT", "/collections/"+s.collection, body)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return fmt.Errorf("creating collection: Qdrant returned status %d", status)
	}
	s.log.Infow("collection created", "collection", s.collection, "vector_size", vectorSize)
	return nil
}

// Store upserts passages as Qdrant points.
func (s *QdrantStore) Store(ctx context.Context, passages []entities.Passage) error {
	if len(passages) == 0 {
		return nil
	}
	if err := s.ensureCollection(ctx, len(passages[0].Embedding)); err != nil {
		return err
	}

	points := make([]qdrantPoint, len(passages))
	for i, p := range passages {
		points[i] = qdrantPoint{
			ID:     pointID(p.ID),
			Vector: p.Embedding,
			Payload: map[string]interface{}{
				"passage_id":  p.ID,
				"product_id":  p.ProductID,
				"title":       p.Title,
				"text":        p.Content,
				"chunk_index": p.Index,
			},
		}
	}

	_, status, err := s.do(ctx, "PUT", "/collections/"+s.collection+"/points?wait=true", map[string]interface{}{"points": points})
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return fmt.Errorf("upserting points: Qdrant returned status %d", status)
	}
	return nil
}

// Search runs a similarity query and rebuilds passages from payloads.
func (s *QdrantStore) Search(ctx context.Context, embedding []float32, topK int) ([]entities.RetrievedPassage, error) {
	data, status, err := s.do(ctx, "POST", "/collections/"+s.collection+"/points/search", qdrantSearchRequest{
		Vector:      embedding,
		Limit:       topK,
		WithPayload: true,
	})
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return nil, nil
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("searching points: Qdrant returned status %d", status)
	}

	var searchResp qdrantSearchResponse
	if err := json.Unmarshal(data, &searchResp); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	results := make([]entities.RetrievedPassage, 0, len(searchResp.Result))
	for _, hit := range searchResp.Result {
		results = append(results, entities.RetrievedPassage{
			Passage: entities.Passage{
				ID:        payloadString(hit.Payload, "passage_id"),
				ProductID: payloadString(hit.Payload, "product_id"),
				Title:     payloadString(hit.Payload, "title"),
				Content:   payloadString(hit.Payload, "text"),
				Index:     payloadInt(hit.Payload, "chunk_index"),
			},
			Score: hit.Score,
		})
	}
	return results, nil
}

// Delete removes all points for a product.
func (s *QdrantStore) Delete(ctx context.Context, productID string) error {
	body := map[string]interface{}{
		"filter": map[string]interface{}{
			"must": []map[string]interface{}{
				{"key": "product_id", "match": map[string]interface{}{"value": productID}},
			},
		},
	}
	_, status, err := s.do(ctx, "POST", "/collections/"+s.collection+"/points/delete?wait=true", body)
	if err != nil {
		return err
	}
	if status != http.StatusOK && status != http.StatusNotFound {
		return fmt.Errorf("deleting points: Qdrant returned status %d", status)
	}
	return nil
}

// Clear drops the collection; Store recreates it on the next ingest.
func (s *QdrantStore) Clear(ctx context.Context) error {
	_, status, err := s.do(ctx, "DELETE", "/collections/"+s.collection, nil)
	if err != nil {
		return err
	}
	if status != http.StatusOK && status != http.StatusNotFound {
		return fmt.Errorf("dropping collection: Qdrant returned status %d", status)
	}
	return nil
}

// Ping reports whether Qdrant is reachable.
func (s *QdrantStore) Ping(ctx context.Context) error {
	_, status, err := s.do(ctx, "GET", "/readyz", nil)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return fmt.Errorf("Qdrant returned status %d", status)
	}
	return nil
}

func payloadString(payload map[string]interface{}, key string) string {
	if v, ok := payload[key].(string); ok {
		return v
	}
	return ""
}

func payloadInt(payload map[string]interface{}, key string) int {
	if v, ok := payload[key].(float64); ok {
		return int(v)
	}
	return 0
}
