// Package vectordb provides vector store adapters.
// Clean Architecture: Adapter implementing ports.VectorStore.
// The in-memory store serves tests and offline runs; Qdrant is the
// production backend.
package vectordb

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/yogateria/supportbot/internal/domain/entities"
)

// InMemoryStore is a simple in-memory vector store.
type InMemoryStore struct {
	mu       sync.RWMutex
	passages map[string]entities.Passage // passageID -> passage
	products map[string][]string         // productID -> []passageID
}

// NewInMemoryStore creates a new in-memory vector store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		passages: make(map[string]entities.Passage),
		products: make(map[string][]string),
	}
}

// Store saves passages with their embeddings.
func (s *InMemoryStore) Store(ctx context.Context, passages []entities.Passage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range passages {
		s.passages[p.ID] = p
		if p.ProductID != "" {
			s.products[p.ProductID] = append(s.products[p.ProductID], p.ID)
		}
	}
	return nil
}

// Search finds the most similar passages to a query embedding.
func (s *InMemoryStore) Search(ctx context.Context, embedding []float32, topK int) ([]entities.RetrievedPassage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var results []entities.RetrievedPassage
	for _, p := range s.passages {
		results = append(results, entities.RetrievedPassage{
			Passage: p,
			Score:   cosineSimilarity(embedding, p.Embedding),
		})
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

// Delete removes all passages for a product.
func (s *InMemoryStore) Delete(ctx context.Context, productID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids, ok := s.products[productID]
	if !ok {
		return nil
	}
	for _, id := range ids {
		delete(s.passages, id)
	}
	delete(s.products, productID)
	return nil
}

// Clear removes all data from the store.
func (s *InMemoryStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.passages = make(map[string]entities.Passage)
	s.products = make(map[string][]string)
	return nil
}

// cosineSimilarity computes cosine similarity between two vectors.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
