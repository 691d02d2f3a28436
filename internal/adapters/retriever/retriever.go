// Package retriever adapts the embedding service and vector store into a
// single candidate source: free text in, similar foods out.
// Clean Architecture: Adapter implementing ports.CandidateSource.
package retriever

import (
	"context"
	"fmt"

	"nutriswap/internal/domain/entities"
	"nutriswap/internal/domain/ports"
)

// Retriever implements ports.CandidateSource by embedding the query text
// and searching the vector store. Result order is the store's relevance
// order, which callers treat as opaque.
type Retriever struct {
	embedder     ports.EmbeddingService
	store        ports.VectorStore
	minRelevance float64 // Results below this similarity are dropped. 0 keeps everything.
}

// NewRetriever creates a Retriever with injected dependencies.
func NewRetriever(embedder ports.EmbeddingService, store ports.VectorStore, minRelevance float64) *Retriever {
	if minRelevance < 0 {
		minRelevance = 0
	}
	return &Retriever{
		embedder:     embedder,
		store:        store,
		minRelevance: minRelevance,
	}
}

// Search returns up to k candidates for the query. An empty index or no
// result above the relevance cutoff yields an empty slice, not an error.
func (r *Retriever) Search(ctx context.Context, query string, k int) ([]entities.Candidate, error) {
	if k <= 0 {
		k = 5
	}

	embedding, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	candidates, err := r.store.Search(ctx, embedding, k)
	if err != nil {
		return nil, fmt.Errorf("searching foods: %w", err)
	}

	if r.minRelevance == 0 {
		return candidates, nil
	}
	kept := candidates[:0]
	for _, c := range candidates {
		if c.Relevance >= r.minRelevance {
			kept = append(kept, c)
		}
	}
	return kept, nil
}
