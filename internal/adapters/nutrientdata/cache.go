// Package nutrientdata provides the external nutrient lookup adapter:
// a USDA FoodData Central client with a durable response cache.
// Clean Architecture: Adapter implementing ports.NutrientSource.
package nutrientdata

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// ResponseCache is a durable key/value store for raw provider responses.
// Entries survive process restarts and never expire: staleness is an
// accepted trade-off for availability and rate-limit avoidance.
type ResponseCache struct {
	db *sql.DB
}

// NewResponseCache opens (or creates) the cache database under dataPath.
func NewResponseCache(dataPath string) (*ResponseCache, error) {
	if dataPath == "" {
		dataPath = "./data"
	}

	if err := os.MkdirAll(dataPath, 0755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	db, err := sql.Open("sqlite3", filepath.Join(dataPath, "responses.db"))
	if err != nil {
		return nil, fmt.Errorf("opening cache database: %w", err)
	}

	schema := `
	CREATE TABLE IF NOT EXISTS responses (
		key TEXT PRIMARY KEY,
		body BLOB NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing cache schema: %w", err)
	}

	return &ResponseCache{db: db}, nil
}

// Get returns the cached body for key, if present.
func (c *ResponseCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var body []byte
	err := c.db.QueryRowContext(ctx, "SELECT body FROM responses WHERE key = ?", key).Scan(&body)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("reading cache: %w", err)
	}
	return body, true, nil
}

// Put stores a body under key, replacing any previous entry.
func (c *ResponseCache) Put(ctx context.Context, key string, body []byte) error {
	_, err := c.db.ExecContext(ctx, "INSERT OR REPLACE INTO responses (key, body) VALUES (?, ?)", key, body)
	if err != nil {
		return fmt.Errorf("writing cache: %w", err)
	}
	return nil
}

// Clear removes every cached response.
func (c *ResponseCache) Clear(ctx context.Context) error {
	_, err := c.db.ExecContext(ctx, "DELETE FROM responses")
	return err
}

// Close closes the cache database.
func (c *ResponseCache) Close() error {
	return c.db.Close()
}

// cacheKey builds the canonical key for one provider call. url.Values
// encoding sorts parameter names, so equal parameter sets always produce
// equal keys. Credentials are added at request time and never keyed.
func cacheKey(op string, params url.Values) string {
	return op + ":" + params.Encode()
}

// normalizeQuery canonicalizes free-text lookup input so trivially
// different spellings of the same search share a cache entry.
func normalizeQuery(q string) string {
	return strings.ToLower(strings.Join(strings.Fields(q), " "))
}
