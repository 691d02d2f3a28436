// Package usecases contains application business rules.
// Clean Architecture: Usecases orchestrate entities and depend on port interfaces.
// They contain NO framework code, NO external dependencies - just pure business logic.
package usecases

import (
	"sort"
	"strconv"
	"strings"

	"nutriswap/internal/domain/entities"
)

// Scoring weights: protein matters most, carbs and fat split the rest.
const (
	proteinWeight = 0.40
	carbWeight    = 0.30
	fatWeight     = 0.30
)

// Criteria are the thresholds a candidate must clear to qualify as a
// better alternative. Ratios are relative to the original food and must
// be in (0, 1].
type Criteria struct {
	MinProteinIncrease float64 // Grams of extra protein required.
	MaxCarbRatio       float64 // Candidate carbs as a fraction of the original's.
	MaxFatRatio        float64 // Candidate fat as a fraction of the original's.
}

// DefaultCriteria returns the standard qualification thresholds.
func DefaultCriteria() Criteria {
	return Criteria{
		MinProteinIncrease: 3.0,
		MaxCarbRatio:       0.8,
		MaxFatRatio:        0.8,
	}
}

// Analyzer decides whether one food is a better alternative to another
// and quantifies how much better. All methods are pure functions over
// their inputs.
type Analyzer struct {
	criteria Criteria
}

// NewAnalyzer creates an Analyzer with the default criteria.
func NewAnalyzer() *Analyzer {
	return NewAnalyzerWithCriteria(DefaultCriteria())
}

// NewAnalyzerWithCriteria creates an Analyzer, replacing out-of-range
// thresholds with defaults.
func NewAnalyzerWithCriteria(c Criteria) *Analyzer {
	def := DefaultCriteria()
	if c.MinProteinIncrease < 0 {
		c.MinProteinIncrease = def.MinProteinIncrease
	}
	if c.MaxCarbRatio <= 0 || c.MaxCarbRatio > 1 {
		c.MaxCarbRatio = def.MaxCarbRatio
	}
	if c.MaxFatRatio <= 0 || c.MaxFatRatio > 1 {
		c.MaxFatRatio = def.MaxFatRatio
	}
	return &Analyzer{criteria: c}
}

// Criteria returns the thresholds this analyzer applies.
func (a *Analyzer) Criteria() Criteria {
	return a.criteria
}

// Qualifies reports whether alternative is a better choice than original:
// it must add at least MinProteinIncrease grams of protein and stay under
// the carb and fat ratios. A ratio check is skipped when the original has
// zero of that nutrient - there is no ratio improvement on zero.
func (a *Analyzer) Qualifies(original, alternative entities.FoodRecord) bool {
	if alternative.Protein-original.Protein < a.criteria.MinProteinIncrease {
		return false
	}
	if original.Carbs > 0 && alternative.Carbs/original.Carbs > a.criteria.MaxCarbRatio {
		return false
	}
	if original.Fat > 0 && alternative.Fat/original.Fat > a.criteria.MaxFatRatio {
		return false
	}
	return true
}

// Score quantifies how much better alternative is than original. Each
// axis contributes its delta normalized by the original value, weighted
// 40/30/30 protein/carbs/fat. A score of 0 means no net improvement;
// negative means worse on balance. The max(original, 1) guard below is a
// deliberate approximation kept for behavioral compatibility: it avoids
// division blow-up near zero but flattens relative improvement when the
// original value is between 0 and 1.
func (a *Analyzer) Score(original, alternative entities.FoodRecord) entities.NutritionVerdict {
	proteinDelta := alternative.Protein - original.Protein
	carbDelta := original.Carbs - alternative.Carbs
	fatDelta := original.Fat - alternative.Fat

	score := axisScore(proteinDelta, original.Protein)*proteinWeight +
		axisScore(carbDelta, original.Carbs)*carbWeight +
		axisScore(fatDelta, original.Fat)*fatWeight

	return entities.NutritionVerdict{
		ProteinDelta: proteinDelta,
		CarbDelta:    carbDelta,
		FatDelta:     fatDelta,
		OverallScore: score,
		Reasoning:    buildReasoning(proteinDelta, carbDelta, fatDelta),
	}
}

// RankAlternatives filters candidates through Qualifies, scores the
// survivors, and returns the top n ordered by overall score. The sort is
// stable: ties keep the original candidate order. An empty result is a
// normal outcome, not an error.
func (a *Analyzer) RankAlternatives(original entities.FoodRecord, candidates []entities.FoodRecord, topN int) []entities.RankedAlternative {
	// Stage 1: filter.
	qualified := make([]entities.FoodRecord, 0, len(candidates))
	for _, c := range candidates {
		if a.Qualifies(original, c) {
			qualified = append(qualified, c)
		}
	}

	// Stage 2: score.
	ranked := make([]entities.RankedAlternative, len(qualified))
	for i, c := range qualified {
		ranked[i] = entities.RankedAlternative{Food: c, Verdict: a.Score(original, c)}
	}

	// Stage 3: stable top-k.
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Verdict.OverallScore > ranked[j].Verdict.OverallScore
	})
	if topN < 0 {
		topN = 0
	}
	if len(ranked) > topN {
		ranked = ranked[:topN]
	}
	for i := range ranked {
		ranked[i].Rank = i + 1
	}
	return ranked
}

// axisScore normalizes a delta by the original value on that axis.
func axisScore(delta, original float64) float64 {
	denom := original
	if denom < 1 {
		denom = 1
	}
	return delta / denom
}

// buildReasoning summarizes strictly positive deltas in fixed
// protein, carbs, fat order.
func buildReasoning(proteinDelta, carbDelta, fatDelta float64) string {
	var reasons []string
	if proteinDelta > 0 {
		reasons = append(reasons, "+"+formatGrams(proteinDelta)+"g protein")
	}
	if carbDelta > 0 {
		reasons = append(reasons, "-"+formatGrams(carbDelta)+"g carbs")
	}
	if fatDelta > 0 {
		reasons = append(reasons, "-"+formatGrams(fatDelta)+"g fat")
	}
	if len(reasons) == 0 {
		return "Similar nutrition"
	}
	return strings.Join(reasons, ", ")
}

// formatGrams renders a quantity in its shortest exact decimal form
// (13, not 13.000000).
func formatGrams(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
