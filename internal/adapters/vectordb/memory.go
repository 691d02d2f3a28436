// Package vectordb - memory.go is the in-memory store used in tests and
// for ephemeral runs where persistence is not wanted.
package vectordb

import (
	"context"
	"sort"
	"sync"

	"nutriswap/internal/domain/entities"
)

// InMemoryStore is a map-backed vector store. It implements the same
// port as SQLiteStore and can be swapped in without touching usecases.
type InMemoryStore struct {
	mu   sync.RWMutex
	docs map[string]entities.FoodDocument // food id -> document
}

// NewInMemoryStore creates a new in-memory vector store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		docs: make(map[string]entities.FoodDocument),
	}
}

// Store saves food documents with their embeddings.
func (s *InMemoryStore) Store(ctx context.Context, docs []entities.FoodDocument) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, doc := range docs {
		s.docs[doc.Food.ID] = doc
	}
	return nil
}

// Search finds the foods most similar to a query embedding.
func (s *InMemoryStore) Search(ctx context.Context, embedding []float32, topK int) ([]entities.Candidate, error) {
	if topK < 0 {
		topK = 0
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var results []entities.Candidate
	for _, doc := range s.docs {
		results = append(results, entities.Candidate{
			Food:      doc.Food,
			Relevance: cosineSimilarity(embedding, doc.Embedding),
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Relevance > results[j].Relevance
	})
	if len(results) > topK {
		results = results[:topK]
	}

	return results, nil
}

// Delete removes a food by record id.
func (s *InMemoryStore) Delete(ctx context.Context, foodID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.docs, foodID)
	return nil
}

// Clear removes all data from the store.
func (s *InMemoryStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.docs = make(map[string]entities.FoodDocument)
	return nil
}
