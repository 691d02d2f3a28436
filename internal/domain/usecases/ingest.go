// Package usecases - ingest.go handles loading foods into the vector store.
package usecases

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"nutriswap/internal/domain/entities"
	"nutriswap/internal/domain/ports"
)

// IngestUseCase turns food records into searchable documents: it renders
// each record as text, embeds the text, and persists the result.
type IngestUseCase struct {
	embedder    ports.EmbeddingService
	vectorStore ports.VectorStore
}

// NewIngestUseCase creates an IngestUseCase with injected dependencies.
func NewIngestUseCase(embedder ports.EmbeddingService, vectorStore ports.VectorStore) *IngestUseCase {
	return &IngestUseCase{
		embedder:    embedder,
		vectorStore: vectorStore,
	}
}

// Ingest embeds and stores a batch of food records. Records without an
// external id get a deterministic one derived from their name, so
// re-ingesting the same food replaces it instead of duplicating it.
func (uc *IngestUseCase) Ingest(ctx context.Context, foods []entities.FoodRecord) error {
	if len(foods) == 0 {
		return nil
	}

	docs := make([]entities.FoodDocument, len(foods))
	texts := make([]string, len(foods))
	for i, f := range foods {
		f = f.Normalize()
		if f.ID == "" {
			f.ID = localFoodID(f.Name)
		}
		docs[i] = entities.FoodDocument{Food: f, Content: renderFoodDocument(f)}
		texts[i] = docs[i].Content
	}

	embeddings, err := uc.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return fmt.Errorf("embedding foods: %w", err)
	}
	for i := range docs {
		docs[i].Embedding = embeddings[i]
	}

	return uc.vectorStore.Store(ctx, docs)
}

// Seed resolves food names through the nutrient source and ingests the
// results. Lookups that fail or return nothing are skipped - seeding is
// best-effort. Returns the number of foods ingested.
func (uc *IngestUseCase) Seed(ctx context.Context, source ports.NutrientSource, names []string) (int, error) {
	var records []entities.FoodRecord
	for _, name := range names {
		matches, err := source.SearchFoods(ctx, name, 1)
		if err != nil || len(matches) == 0 {
			continue
		}
		food, err := source.FoodDetails(ctx, matches[0].ID)
		if err != nil {
			continue
		}
		records = append(records, food)
	}

	if err := uc.Ingest(ctx, records); err != nil {
		return 0, err
	}
	return len(records), nil
}

// Delete removes a food from the store by record id.
func (uc *IngestUseCase) Delete(ctx context.Context, foodID string) error {
	return uc.vectorStore.Delete(ctx, foodID)
}

// renderFoodDocument produces the text a food is embedded from. The
// layout mirrors what users ask for ("high protein", "low carb") so the
// similarity search has phrases to latch onto.
func renderFoodDocument(f entities.FoodRecord) string {
	var sb strings.Builder
	sb.WriteString("Food: " + f.Name + "\n")
	sb.WriteString("Nutrition per serving:\n")
	sb.WriteString(fmt.Sprintf("- Protein: %sg\n", formatGrams(f.Protein)))
	sb.WriteString(fmt.Sprintf("- Carbohydrates: %sg\n", formatGrams(f.Carbs)))
	sb.WriteString(fmt.Sprintf("- Fat: %sg\n", formatGrams(f.Fat)))
	sb.WriteString(fmt.Sprintf("- Calories: %s\n", formatGrams(f.Calories)))
	sb.WriteString(fmt.Sprintf("- Fiber: %sg\n", formatGrams(f.Fiber)))
	sb.WriteString(fmt.Sprintf("- Sugar: %sg", formatGrams(f.Sugar)))
	return sb.String()
}

// localFoodID creates a deterministic id for a food with no external one.
func localFoodID(name string) string {
	hash := sha256.Sum256([]byte("food:" + strings.ToLower(strings.TrimSpace(name))))
	return "local-" + hex.EncodeToString(hash[:8])
}
