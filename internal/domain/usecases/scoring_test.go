package usecases

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nutriswap/internal/domain/entities"
)

func TestAnalyzer_Qualifies_RequiresProteinIncrease(t *testing.T) {
	a := NewAnalyzer()
	original := entities.FoodRecord{Name: "turkey sandwich", Protein: 8, Carbs: 35, Fat: 12}

	// Massive carb/fat cuts cannot compensate for a 1g protein gain.
	alt := entities.FoodRecord{Name: "lettuce wrap", Protein: 9, Carbs: 1, Fat: 1}
	assert.False(t, a.Qualifies(original, alt))

	alt.Protein = 11 // Exactly the 3g threshold.
	alt.Carbs = 20
	alt.Fat = 9
	assert.True(t, a.Qualifies(original, alt))
}

func TestAnalyzer_Qualifies_SkipsRatioChecksOnZero(t *testing.T) {
	a := NewAnalyzer()

	// Zero carbs in the original: any candidate carb amount passes the
	// carb check. Same for fat.
	original := entities.FoodRecord{Name: "chicken breast", Protein: 10, Carbs: 0, Fat: 0}
	alt := entities.FoodRecord{Name: "protein bar", Protein: 20, Carbs: 100, Fat: 50}
	assert.True(t, a.Qualifies(original, alt))
}

func TestAnalyzer_Qualifies_RatioThresholds(t *testing.T) {
	a := NewAnalyzer()
	original := entities.FoodRecord{Protein: 10, Carbs: 10, Fat: 10}

	tooManyCarbs := entities.FoodRecord{Protein: 20, Carbs: 8.1, Fat: 5}
	assert.False(t, a.Qualifies(original, tooManyCarbs))

	tooMuchFat := entities.FoodRecord{Protein: 20, Carbs: 5, Fat: 8.1}
	assert.False(t, a.Qualifies(original, tooMuchFat))

	atTheLimit := entities.FoodRecord{Protein: 20, Carbs: 8, Fat: 8}
	assert.True(t, a.Qualifies(original, atTheLimit))
}

func TestAnalyzer_Score_IdentityIsZero(t *testing.T) {
	a := NewAnalyzer()
	food := entities.FoodRecord{Name: "oatmeal", Protein: 5, Carbs: 27, Fat: 3}

	v := a.Score(food, food)
	assert.Zero(t, v.OverallScore)
	assert.Equal(t, "Similar nutrition", v.Reasoning)
}

func TestAnalyzer_Score_DocumentedScenario(t *testing.T) {
	a := NewAnalyzer()
	original := entities.FoodRecord{Name: "pepperoni pizza", Protein: 12, Carbs: 33, Fat: 10}
	alt := entities.FoodRecord{Name: "cauliflower crust pizza", Protein: 25, Carbs: 15, Fat: 7}

	require.True(t, a.Qualifies(original, alt))

	v := a.Score(original, alt)
	assert.Equal(t, 13.0, v.ProteinDelta)
	assert.Equal(t, 18.0, v.CarbDelta)
	assert.Equal(t, 3.0, v.FatDelta)
	assert.InDelta(t, 0.687, v.OverallScore, 0.001)
	assert.Equal(t, "+13g protein, -18g carbs, -3g fat", v.Reasoning)
}

func TestAnalyzer_Score_FractionalDeltas(t *testing.T) {
	a := NewAnalyzer()
	original := entities.FoodRecord{Name: "white rice", Protein: 2.5, Carbs: 28, Fat: 0.3}
	alt := entities.FoodRecord{Name: "quinoa", Protein: 8, Carbs: 21.5, Fat: 0.3}

	v := a.Score(original, alt)
	assert.Equal(t, "+5.5g protein, -6.5g carbs", v.Reasoning)
}

func TestAnalyzer_Score_QualifyingFoodCanStillScoreNegative(t *testing.T) {
	a := NewAnalyzer()

	// Qualifies only gates protein and the ratio thresholds; a food that
	// passes them can still be worse on balance.
	original := entities.FoodRecord{Protein: 1, Carbs: 0, Fat: 0}
	alt := entities.FoodRecord{Protein: 5, Carbs: 50, Fat: 50}

	require.True(t, a.Qualifies(original, alt))
	assert.Negative(t, a.Score(original, alt).OverallScore)
}

func TestAnalyzer_Score_GuardFlattensSubUnitOriginals(t *testing.T) {
	a := NewAnalyzer()

	// Original fat of 0.5 is normalized by 1, not 0.5: the relative
	// improvement is flattened. Accepted approximation.
	original := entities.FoodRecord{Protein: 10, Carbs: 10, Fat: 0.5}
	alt := entities.FoodRecord{Protein: 10, Carbs: 10, Fat: 0}

	v := a.Score(original, alt)
	assert.InDelta(t, 0.15, v.OverallScore, 1e-9) // 0.5/1 * 0.3
}

func TestAnalyzer_RankAlternatives(t *testing.T) {
	a := NewAnalyzer()
	original := entities.FoodRecord{Name: "pepperoni pizza", Protein: 12, Carbs: 33, Fat: 10}
	candidates := []entities.FoodRecord{
		{Name: "turkey sandwich", Protein: 8, Carbs: 35, Fat: 12},         // Fails protein check.
		{Name: "grilled chicken wrap", Protein: 25, Carbs: 26, Fat: 6},    // Qualifies.
		{Name: "chicken caesar salad", Protein: 30, Carbs: 10, Fat: 8},    // Qualifies, best score.
		{Name: "cauliflower crust pizza", Protein: 20, Carbs: 15, Fat: 7}, // Qualifies.
	}

	ranked := a.RankAlternatives(original, candidates, 2)
	require.Len(t, ranked, 2)

	assert.Equal(t, "chicken caesar salad", ranked[0].Food.Name)
	assert.Equal(t, 1, ranked[0].Rank)
	assert.Equal(t, 2, ranked[1].Rank)
	assert.GreaterOrEqual(t, ranked[0].Verdict.OverallScore, ranked[1].Verdict.OverallScore)
	for _, alt := range ranked {
		assert.True(t, a.Qualifies(original, alt.Food))
	}
}

func TestAnalyzer_RankAlternatives_EmptyAndZeroN(t *testing.T) {
	a := NewAnalyzer()
	original := entities.FoodRecord{Name: "pizza", Protein: 12, Carbs: 33, Fat: 10}

	assert.Empty(t, a.RankAlternatives(original, nil, 5))

	candidates := []entities.FoodRecord{{Name: "salad", Protein: 30, Carbs: 10, Fat: 8}}
	assert.Empty(t, a.RankAlternatives(original, candidates, 0))
	assert.Empty(t, a.RankAlternatives(original, candidates, -1))
}

func TestAnalyzer_RankAlternatives_StableTies(t *testing.T) {
	a := NewAnalyzer()
	original := entities.FoodRecord{Name: "pizza", Protein: 12, Carbs: 33, Fat: 10}

	// Identical profiles score identically; input order must be kept.
	candidates := []entities.FoodRecord{
		{Name: "first", Protein: 25, Carbs: 15, Fat: 7},
		{Name: "second", Protein: 25, Carbs: 15, Fat: 7},
		{Name: "third", Protein: 25, Carbs: 15, Fat: 7},
	}

	ranked := a.RankAlternatives(original, candidates, 3)
	require.Len(t, ranked, 3)
	assert.Equal(t, "first", ranked[0].Food.Name)
	assert.Equal(t, "second", ranked[1].Food.Name)
	assert.Equal(t, "third", ranked[2].Food.Name)
}

func TestNewAnalyzerWithCriteria_ReplacesInvalidThresholds(t *testing.T) {
	a := NewAnalyzerWithCriteria(Criteria{MinProteinIncrease: -1, MaxCarbRatio: 1.5, MaxFatRatio: 0})
	assert.Equal(t, DefaultCriteria(), a.Criteria())

	// Zero protein increase is a valid, permissive configuration.
	a = NewAnalyzerWithCriteria(Criteria{MinProteinIncrease: 0, MaxCarbRatio: 0.5, MaxFatRatio: 0.5})
	assert.Zero(t, a.Criteria().MinProteinIncrease)
}
