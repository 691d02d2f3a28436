// Package usecases - recommend.go handles candidate retrieval, ranking,
// and the narrative diet analysis.
package usecases

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"nutriswap/internal/domain/entities"
	"nutriswap/internal/domain/ports"
)

// ErrNoFoods is returned when an operation that averages over a diet is
// given no foods to work with.
var ErrNoFoods = errors.New("no foods provided")

// Query-bias thresholds: diets averaging under 15g protein or over 30g
// carbs per food steer the similarity search accordingly.
const (
	lowProteinAvg = 15
	highCarbAvg   = 30
)

// RecommendUseCase orchestrates one recommendation: build a search query,
// pull candidates from the similarity index, rank them with the analyzer.
type RecommendUseCase struct {
	candidates ports.CandidateSource
	llm        ports.LLMService
	analyzer   *Analyzer
	poolSize   int // Candidates fetched per query, before filtering.
}

// NewRecommendUseCase creates a RecommendUseCase with injected dependencies.
func NewRecommendUseCase(
	candidates ports.CandidateSource,
	llm ports.LLMService,
	analyzer *Analyzer,
	poolSize int,
) *RecommendUseCase {
	if analyzer == nil {
		analyzer = NewAnalyzer()
	}
	if poolSize <= 0 {
		poolSize = 5
	}
	return &RecommendUseCase{
		candidates: candidates,
		llm:        llm,
		analyzer:   analyzer,
		poolSize:   poolSize,
	}
}

// BuildQuery builds the free-text similarity query for a diet and goal.
// The clause order is fixed: protein bias, carb bias, the raw goal, then
// the food names. This biases the text search; it does not guarantee
// result quality.
func (uc *RecommendUseCase) BuildQuery(foods []entities.FoodRecord, goal string) (string, error) {
	if len(foods) == 0 {
		return "", fmt.Errorf("building query: %w", ErrNoFoods)
	}

	var totalProtein, totalCarbs float64
	names := make([]string, len(foods))
	for i, f := range foods {
		totalProtein += f.Protein
		totalCarbs += f.Carbs
		names[i] = f.Name
	}
	avgProtein := totalProtein / float64(len(foods))
	avgCarbs := totalCarbs / float64(len(foods))

	var parts []string
	if avgProtein < lowProteinAvg {
		parts = append(parts, "high protein alternatives")
	}
	if avgCarbs > highCarbAvg {
		parts = append(parts, "low carb substitutes")
	}
	parts = append(parts, goal)
	parts = append(parts, "alternatives to "+strings.Join(names, " "))

	return strings.Join(parts, " "), nil
}

// Recommend finds up to topN foods that beat original under the
// analyzer's criteria. An empty result means no better alternative
// exists in the index - a normal outcome, not a failure.
func (uc *RecommendUseCase) Recommend(ctx context.Context, original entities.FoodRecord, goal string, topN int) ([]entities.RankedAlternative, error) {
	query, err := uc.BuildQuery([]entities.FoodRecord{original}, goal)
	if err != nil {
		return nil, err
	}

	candidates, err := uc.candidates.Search(ctx, query, uc.poolSize)
	if err != nil {
		return nil, fmt.Errorf("searching candidates: %w", err)
	}

	records := make([]entities.FoodRecord, len(candidates))
	for i, c := range candidates {
		records[i] = c.Food
	}
	return uc.analyzer.RankAlternatives(original, records, topN), nil
}

// Analyze generates a narrative diet analysis: retrieves relevant foods
// as context and delegates the prose to the LLM port.
func (uc *RecommendUseCase) Analyze(ctx context.Context, foods []entities.FoodRecord, location, goal string) (string, error) {
	prompt, contextParts, err := uc.prepareAnalysis(ctx, foods, location, goal)
	if err != nil {
		return "", err
	}
	answer, err := uc.llm.Generate(ctx, prompt, contextParts)
	if err != nil {
		return "", fmt.Errorf("generating analysis: %w", err)
	}
	return answer, nil
}

// AnalyzeStream is Analyze with token-by-token output for streaming UIs.
func (uc *RecommendUseCase) AnalyzeStream(ctx context.Context, foods []entities.FoodRecord, location, goal string) (<-chan ports.StreamToken, error) {
	prompt, contextParts, err := uc.prepareAnalysis(ctx, foods, location, goal)
	if err != nil {
		return nil, err
	}
	return uc.llm.GenerateStream(ctx, prompt, contextParts)
}

// prepareAnalysis builds the analysis prompt and its retrieval context.
func (uc *RecommendUseCase) prepareAnalysis(ctx context.Context, foods []entities.FoodRecord, location, goal string) (string, []string, error) {
	query, err := uc.BuildQuery(foods, goal)
	if err != nil {
		return "", nil, err
	}

	candidates, err := uc.candidates.Search(ctx, query, uc.poolSize)
	if err != nil {
		return "", nil, fmt.Errorf("searching candidates: %w", err)
	}

	contextParts := make([]string, len(candidates))
	for i, c := range candidates {
		contextParts[i] = fmt.Sprintf("[Source %d]\n%s", i+1, describeFood(c.Food))
	}

	names := make([]string, len(foods))
	for i, f := range foods {
		names[i] = f.Name
	}

	var sb strings.Builder
	sb.WriteString("You are a professional nutritionist analyzing a person's diet.\n\n")
	sb.WriteString("Context from knowledge base regarding nutrition information:\n")
	if len(contextParts) == 0 {
		sb.WriteString("No relevant information\n")
	} else {
		sb.WriteString(strings.Join(contextParts, "\n\n"))
		sb.WriteString("\n")
	}
	sb.WriteString("\nUser Information:\n")
	sb.WriteString("  Location: " + location + "\n")
	sb.WriteString("  Foods: " + strings.Join(names, ", ") + "\n")
	sb.WriteString("\nNutrition Data:\n")
	sb.WriteString(formatNutritionSummary(foods))
	sb.WriteString("\n\nGoal:\n")
	sb.WriteString("1. Analyze the nutritional content of the user's typical diet\n")
	sb.WriteString("2. Recommend lower-carb, higher-protein, and lower-fat alternatives from the context\n")
	sb.WriteString("3. Explain why each suggested alternative is better\n")
	sb.WriteString("4. Present recommendations in a clear, friendly manner")

	return sb.String(), contextParts, nil
}

// formatNutritionSummary renders per-food nutrition lines plus totals.
func formatNutritionSummary(foods []entities.FoodRecord) string {
	var sb strings.Builder
	var totalProtein, totalCarbs, totalFat, totalCalories float64

	for _, f := range foods {
		sb.WriteString(fmt.Sprintf("%s:\n", f.Name))
		sb.WriteString(fmt.Sprintf("  - Protein: %sg\n", formatGrams(f.Protein)))
		sb.WriteString(fmt.Sprintf("  - Carbs: %sg\n", formatGrams(f.Carbs)))
		sb.WriteString(fmt.Sprintf("  - Fat: %sg\n", formatGrams(f.Fat)))
		sb.WriteString(fmt.Sprintf("  - Calories: %s\n", formatGrams(f.Calories)))

		totalProtein += f.Protein
		totalCarbs += f.Carbs
		totalFat += f.Fat
		totalCalories += f.Calories
	}

	sb.WriteString("Total Daily Intake:\n")
	sb.WriteString(fmt.Sprintf("  - Protein: %sg\n", formatGrams(totalProtein)))
	sb.WriteString(fmt.Sprintf("  - Carbs: %sg\n", formatGrams(totalCarbs)))
	sb.WriteString(fmt.Sprintf("  - Fat: %sg\n", formatGrams(totalFat)))
	sb.WriteString(fmt.Sprintf("  - Calories: %s", formatGrams(totalCalories)))

	return sb.String()
}

// describeFood renders one food for LLM context.
func describeFood(f entities.FoodRecord) string {
	return fmt.Sprintf("%s: %sg protein, %sg carbs, %sg fat, %s calories",
		f.Name, formatGrams(f.Protein), formatGrams(f.Carbs), formatGrams(f.Fat), formatGrams(f.Calories))
}
