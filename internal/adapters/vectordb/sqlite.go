// Package vectordb provides vector store adapters.
// Clean Architecture: Adapter implementing ports.VectorStore.
package vectordb

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"

	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"nutriswap/internal/domain/entities"
)

// SQLiteStore implements ports.VectorStore with SQLite-based persistence.
// Nutrient values are stored as columns alongside the embedding so a
// search result comes back as a complete FoodRecord without a second
// lookup. Similarity is brute-force cosine over all rows, which is fine
// for a food index of a few thousand entries.
type SQLiteStore struct {
	mu       sync.RWMutex
	db       *sql.DB
	dataPath string
}

// NewSQLiteStore creates a new persistent vector store under dataPath.
func NewSQLiteStore(dataPath string) (*SQLiteStore, error) {
	if dataPath == "" {
		dataPath = "./data"
	}

	if err := os.MkdirAll(dataPath, 0755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataPath, "foods.db")
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	store := &SQLiteStore{
		db:       db,
		dataPath: dataPath,
	}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}

	return store, nil
}

// initSchema creates the necessary tables.
func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS foods (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		protein REAL NOT NULL DEFAULT 0,
		carbs REAL NOT NULL DEFAULT 0,
		fat REAL NOT NULL DEFAULT 0,
		calories REAL NOT NULL DEFAULT 0,
		fiber REAL NOT NULL DEFAULT 0,
		sugar REAL NOT NULL DEFAULT 0,
		content TEXT NOT NULL,
		embedding BLOB NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_foods_name ON foods(name);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Store saves food documents with their embeddings. Re-storing an id
// replaces the previous row.
func (s *SQLiteStore) Store(ctx context.Context, docs []entities.FoodDocument) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO foods (id, name, protein, carbs, fat, calories, fiber, sugar, content, embedding)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	for _, doc := range docs {
		embeddingJSON, err := json.Marshal(doc.Embedding)
		if err != nil {
			return fmt.Errorf("encoding embedding: %w", err)
		}

		f := doc.Food
		_, err = stmt.ExecContext(ctx,
			f.ID, f.Name, f.Protein, f.Carbs, f.Fat, f.Calories, f.Fiber, f.Sugar,
			doc.Content, embeddingJSON,
		)
		if err != nil {
			return fmt.Errorf("inserting food %q: %w", f.Name, err)
		}
	}

	return tx.Commit()
}

// Search finds the foods most similar to a query embedding.
func (s *SQLiteStore) Search(ctx context.Context, embedding []float32, topK int) ([]entities.Candidate, error) {
	if topK < 0 {
		topK = 0
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, protein, carbs, fat, calories, fiber, sugar, embedding
		FROM foods
	`)
	if err != nil {
		return nil, fmt.Errorf("querying foods: %w", err)
	}
	defer rows.Close()

	var results []entities.Candidate
	for rows.Next() {
		var f entities.FoodRecord
		var embeddingJSON []byte

		err := rows.Scan(&f.ID, &f.Name, &f.Protein, &f.Carbs, &f.Fat, &f.Calories, &f.Fiber, &f.Sugar, &embeddingJSON)
		if err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}

		var stored []float32
		if err := json.Unmarshal(embeddingJSON, &stored); err != nil {
			continue // Skip corrupted embeddings
		}

		results = append(results, entities.Candidate{
			Food:      f,
			Relevance: cosineSimilarity(embedding, stored),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating rows: %w", err)
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
func (s *SQLiteStore) Delete(ctx context.Context, foodID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, "DELETE FROM foods WHERE id = ?", foodID)
	return err
}

// Clear removes all data from the store.
func (s *SQLiteStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, "DELETE FROM foods")
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Count returns the number of indexed foods.
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM foods").Scan(&count)
	return count, err
}

// cosineSimilarity calculates cosine similarity between two vectors.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}
