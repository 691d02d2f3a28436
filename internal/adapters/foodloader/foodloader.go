// Package foodloader provides food data file loading adapters.
// Clean Architecture: Adapter implementing ports.FoodLoader.
package foodloader

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"nutriswap/internal/domain/entities"
)

// JSONLoader loads food records from .json files holding an array of
// foods. This is the format used for local food datasets dropped into
// the watched data directory.
type JSONLoader struct{}

// NewJSONLoader creates a new JSON food loader.
func NewJSONLoader() *JSONLoader {
	return &JSONLoader{}
}

// foodEntry is the on-disk shape of one food.
type foodEntry struct {
	ID       string  `json:"id,omitempty"`
	Name     string  `json:"name"`
	Protein  float64 `json:"protein_g"`
	Carbs    float64 `json:"carbs_g"`
	Fat      float64 `json:"fat_g"`
	Calories float64 `json:"calories"`
	Fiber    float64 `json:"fiber_g"`
	Sugar    float64 `json:"sugar_g"`
}

// Load parses food records from the file at path. Entries without a name
// are skipped: a record with no name can never be recommended. IDs are
// optional; ingestion derives stable ones for records without them.
func (l *JSONLoader) Load(ctx context.Context, path string) ([]entities.FoodRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	var entries []foodEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	records := make([]entities.FoodRecord, 0, len(entries))
	for _, e := range entries {
		if e.Name == "" {
			continue
		}
		record := entities.FoodRecord{
			ID:       e.ID,
			Name:     e.Name,
			Protein:  e.Protein,
			Carbs:    e.Carbs,
			Fat:      e.Fat,
			Calories: e.Calories,
			Fiber:    e.Fiber,
			Sugar:    e.Sugar,
		}
		records = append(records, record.Normalize())
	}
	return records, nil
}

// SupportedExtensions returns file extensions this loader handles.
func (l *JSONLoader) SupportedExtensions() []string {
	return []string{".json"}
}
