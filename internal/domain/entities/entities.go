// Package entities contains core business entities.
// These are the enterprise business rules - pure domain objects with no external dependencies.
package entities

// FoodRecord represents one food's nutrition profile.
// Quantities are grams per serving (calories are kcal). A nutrient absent
// from the source data is 0, never missing, so downstream arithmetic is
// always well-defined.
type FoodRecord struct {
	ID       string // Opaque external id (e.g. USDA FDC id). May be empty.
	Name     string
	Protein  float64
	Carbs    float64
	Fat      float64
	Calories float64
	Fiber    float64
	Sugar    float64
}

// Normalize clamps negative nutrient values to zero. Source data should
// never carry them, but scoring assumes non-negative inputs.
func (f FoodRecord) Normalize() FoodRecord {
	for _, v := range []*float64{&f.Protein, &f.Carbs, &f.Fat, &f.Calories, &f.Fiber, &f.Sugar} {
		if *v < 0 {
			*v = 0
		}
	}
	return f
}

// NutritionVerdict is the outcome of comparing an alternative against an
// original food. Positive deltas always mean improvement: the protein
// delta is alternative minus original, the carb and fat deltas are
// original minus alternative (a reduction is the improvement).
type NutritionVerdict struct {
	ProteinDelta float64
	CarbDelta    float64
	FatDelta     float64
	OverallScore float64
	Reasoning    string
}

// RankedAlternative pairs a qualifying candidate with its verdict.
// Rank is 1-based within one recommendation result.
type RankedAlternative struct {
	Food    FoodRecord
	Verdict NutritionVerdict
	Rank    int
}

// Candidate is a food returned by the similarity search together with the
// source's relevance score. How relevance is computed is opaque to the
// domain layer.
type Candidate struct {
	Food      FoodRecord
	Relevance float64
}

// FoodDocument is the unit the vector store persists: a food record, the
// text it was embedded from, and the embedding itself (populated by an
// adapter before storage).
type FoodDocument struct {
	Food      FoodRecord
	Content   string
	Embedding []float32
}
