package usecases

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nutriswap/internal/domain/entities"
	"nutriswap/internal/domain/ports"
)

// mockCandidateSource implements ports.CandidateSource for testing
type mockCandidateSource struct {
	results  []entities.Candidate
	err      error
	gotQuery string
	gotK     int
}

func (m *mockCandidateSource) Search(ctx context.Context, query string, k int) ([]entities.Candidate, error) {
	m.gotQuery = query
	m.gotK = k
	if m.err != nil {
		return nil, m.err
	}
	return m.results, nil
}

// mockLLM implements ports.LLMService for testing
type mockLLM struct {
	response  string
	err       error
	gotPrompt string
}

func (m *mockLLM) Generate(ctx context.Context, prompt string, context []string) (string, error) {
	m.gotPrompt = prompt
	if m.err != nil {
		return "", m.err
	}
	return m.response, nil
}

func (m *mockLLM) GenerateStream(ctx context.Context, prompt string, context []string) (<-chan ports.StreamToken, error) {
	m.gotPrompt = prompt
	if m.err != nil {
		return nil, m.err
	}
	ch := make(chan ports.StreamToken, 1)
	ch <- ports.StreamToken{Content: m.response, Done: true}
	close(ch)
	return ch, nil
}

func candidate(name string, protein, carbs, fat float64) entities.Candidate {
	return entities.Candidate{
		Food:      entities.FoodRecord{Name: name, Protein: protein, Carbs: carbs, Fat: fat},
		Relevance: 0.9,
	}
}

func TestBuildQuery_BiasClauses(t *testing.T) {
	uc := NewRecommendUseCase(&mockCandidateSource{}, &mockLLM{}, nil, 0)

	// Low average protein and high average carbs trigger both biases.
	foods := []entities.FoodRecord{
		{Name: "white rice", Protein: 2.7, Carbs: 28},
		{Name: "pasta", Protein: 7, Carbs: 43},
	}
	query, err := uc.BuildQuery(foods, "lose weight")
	require.NoError(t, err)
	assert.Equal(t, "high protein alternatives low carb substitutes lose weight alternatives to white rice pasta", query)
}

func TestBuildQuery_NoBiasForBalancedDiet(t *testing.T) {
	uc := NewRecommendUseCase(&mockCandidateSource{}, &mockLLM{}, nil, 0)

	foods := []entities.FoodRecord{
		{Name: "grilled salmon", Protein: 25, Carbs: 0},
	}
	query, err := uc.BuildQuery(foods, "eat healthier")
	require.NoError(t, err)
	assert.Equal(t, "eat healthier alternatives to grilled salmon", query)
}

func TestBuildQuery_EmptyFoodsIsInvalidInput(t *testing.T) {
	uc := NewRecommendUseCase(&mockCandidateSource{}, &mockLLM{}, nil, 0)

	_, err := uc.BuildQuery(nil, "any goal")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoFoods))
}

func TestRecommend_RanksQualifyingCandidates(t *testing.T) {
	source := &mockCandidateSource{
		results: []entities.Candidate{
			candidate("turkey sandwich", 8, 35, 12),
			candidate("chicken caesar salad", 30, 10, 8),
			candidate("cauliflower crust pizza", 20, 15, 7),
		},
	}
	uc := NewRecommendUseCase(source, &mockLLM{}, nil, 10)

	original := entities.FoodRecord{Name: "pepperoni pizza", Protein: 12, Carbs: 33, Fat: 10}
	ranked, err := uc.Recommend(context.Background(), original, "improve nutrition", 5)
	require.NoError(t, err)

	require.Len(t, ranked, 2)
	assert.Equal(t, "chicken caesar salad", ranked[0].Food.Name)
	assert.Equal(t, "cauliflower crust pizza", ranked[1].Food.Name)
	assert.Equal(t, 10, source.gotK)
	assert.Contains(t, source.gotQuery, "alternatives to pepperoni pizza")
}

func TestRecommend_NoCandidatesIsNotAnError(t *testing.T) {
	uc := NewRecommendUseCase(&mockCandidateSource{}, &mockLLM{}, nil, 5)

	original := entities.FoodRecord{Name: "chicken breast", Protein: 31, Carbs: 0, Fat: 3.6}
	ranked, err := uc.Recommend(context.Background(), original, "bulk up", 3)
	require.NoError(t, err)
	assert.Empty(t, ranked)
}

func TestRecommend_SourceErrorSurfaces(t *testing.T) {
	cause := errors.New("index unavailable")
	uc := NewRecommendUseCase(&mockCandidateSource{err: cause}, &mockLLM{}, nil, 5)

	original := entities.FoodRecord{Name: "pizza", Protein: 12, Carbs: 33, Fat: 10}
	_, err := uc.Recommend(context.Background(), original, "", 3)
	require.Error(t, err)
	assert.True(t, errors.Is(err, cause))
}

func TestAnalyze_BuildsPromptFromDietAndContext(t *testing.T) {
	source := &mockCandidateSource{
		results: []entities.Candidate{candidate("tofu", 8, 2, 4)},
	}
	llm := &mockLLM{response: "Swap the rice for quinoa."}
	uc := NewRecommendUseCase(source, llm, nil, 5)

	foods := []entities.FoodRecord{
		{Name: "white rice", Protein: 2.7, Carbs: 28, Fat: 0.3, Calories: 130},
		{Name: "ground beef", Protein: 26, Carbs: 0, Fat: 20, Calories: 280},
	}
	answer, err := uc.Analyze(context.Background(), foods, "Austin, TX", "lose weight")
	require.NoError(t, err)
	assert.Equal(t, "Swap the rice for quinoa.", answer)

	assert.Contains(t, llm.gotPrompt, "Location: Austin, TX")
	assert.Contains(t, llm.gotPrompt, "Foods: white rice, ground beef")
	assert.Contains(t, llm.gotPrompt, "tofu")
	assert.Contains(t, llm.gotPrompt, "Total Daily Intake:")
}

func TestAnalyze_EmptyDietIsInvalidInput(t *testing.T) {
	uc := NewRecommendUseCase(&mockCandidateSource{}, &mockLLM{}, nil, 5)

	_, err := uc.Analyze(context.Background(), nil, "Austin, TX", "lose weight")
	assert.True(t, errors.Is(err, ErrNoFoods))
}

func TestAnalyzeStream_DeliversTokens(t *testing.T) {
	llm := &mockLLM{response: "streamed analysis"}
	uc := NewRecommendUseCase(&mockCandidateSource{}, llm, nil, 5)

	foods := []entities.FoodRecord{{Name: "oatmeal", Protein: 5, Carbs: 27, Fat: 3}}
	ch, err := uc.AnalyzeStream(context.Background(), foods, "", "more protein")
	require.NoError(t, err)

	var sb strings.Builder
	for tok := range ch {
		require.NoError(t, tok.Error)
		sb.WriteString(tok.Content)
	}
	assert.Equal(t, "streamed analysis", sb.String())
}

func TestFormatNutritionSummary_Totals(t *testing.T) {
	foods := []entities.FoodRecord{
		{Name: "eggs", Protein: 12, Carbs: 1, Fat: 10, Calories: 155},
		{Name: "toast", Protein: 4, Carbs: 24, Fat: 2, Calories: 130},
	}
	summary := formatNutritionSummary(foods)

	assert.Contains(t, summary, "eggs:")
	assert.Contains(t, summary, "  - Protein: 12g")
	assert.Contains(t, summary, "Total Daily Intake:")
	assert.Contains(t, summary, "  - Protein: 16g")
	assert.Contains(t, summary, "  - Calories: 285")
}
