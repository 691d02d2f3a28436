// Package ports defines interfaces for external dependencies.
// Clean Architecture: These are the boundaries - usecases depend on these abstractions,
// not concrete implementations. Adapters implement these interfaces.
package ports

import (
	"context"

	"nutriswap/internal/domain/entities"
)

// EmbeddingService generates vector embeddings for text.
type EmbeddingService interface {
	// Embed generates a vector embedding for the given text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts efficiently.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// LLMService generates the natural-language narrative around a set of
// recommendations. The core treats the text as opaque.
type LLMService interface {
	// Generate produces a response given a prompt and supporting context.
	Generate(ctx context.Context, prompt string, context []string) (string, error)

	// GenerateStream produces a streaming response for token-by-token output.
	GenerateStream(ctx context.Context, prompt string, context []string) (<-chan StreamToken, error)
}

// VectorStore persists and queries food documents by embedding.
type VectorStore interface {
	// Store saves food documents with their embeddings.
	Store(ctx context.Context, docs []entities.FoodDocument) error

	// Search finds the foods most similar to a query embedding.
	Search(ctx context.Context, embedding []float32, topK int) ([]entities.Candidate, error)

	// Delete removes a food by its record id.
	Delete(ctx context.Context, foodID string) error

	// Clear removes all data from the store.
	Clear(ctx context.Context) error
}

// CandidateSource returns substitution candidates for a free-text query.
// An empty index or no result above the source's relevance cutoff yields
// an empty slice, not an error.
type CandidateSource interface {
	Search(ctx context.Context, query string, k int) ([]entities.Candidate, error)
}

// NutrientSource looks up nutrition facts from an external data provider.
// Implementations are expected to cache: repeated lookups for the same
// key must not re-contact the provider. Lookup failures surface as a
// *DataProviderError and are never cached.
type NutrientSource interface {
	// SearchFoods finds foods matching a free-text query.
	SearchFoods(ctx context.Context, query string, limit int) ([]entities.FoodRecord, error)

	// FoodDetails fetches the full nutrient profile for an external food id.
	FoodDetails(ctx context.Context, id string) (entities.FoodRecord, error)
}

// FoodLoader reads food records from a local data file.
type FoodLoader interface {
	// Load parses food records from the file at path.
	Load(ctx context.Context, path string) ([]entities.FoodRecord, error)

	// SupportedExtensions returns file extensions this loader handles.
	SupportedExtensions() []string
}

// StreamToken represents a single token in a streaming LLM response.
type StreamToken struct {
	Content string
	Done    bool
	Error   error
}

// FileWatcher monitors a directory for changes.
type FileWatcher interface {
	// Watch starts monitoring the directory and emits events.
	Watch(ctx context.Context, dir string) (<-chan FileEvent, error)

	// Stop stops the watcher.
	Stop() error
}

// FileEvent represents a file system change.
type FileEvent struct {
	Path      string
	Operation FileOperation
}

// FileOperation is the type of file change.
type FileOperation int

const (
	FileCreated FileOperation = iota
	FileModified
	FileDeleted
)

// DataProviderError wraps a failed external nutrient lookup. The failed
// attempt is surfaced to the caller and never cached.
type DataProviderError struct {
	Op  string // Provider operation, e.g. "search" or "food".
	Key string // Normalized lookup key.
	Err error  // Underlying cause.
}

func (e *DataProviderError) Error() string {
	return "nutrient provider " + e.Op + " " + e.Key + ": " + e.Err.Error()
}

func (e *DataProviderError) Unwrap() error {
	return e.Err
}
