// Package http provides the HTTP server infrastructure.
// Clean Architecture: Framework/driver layer - outermost circle.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"nutriswap/internal/domain/entities"
	"nutriswap/internal/domain/ports"
	"nutriswap/internal/domain/usecases"
)

// errFoodNotFound marks a lookup that completed but matched nothing.
var errFoodNotFound = errors.New("food not found")

// Server is the HTTP server for the recommendation API.
type Server struct {
	recommendUseCase *usecases.RecommendUseCase
	ingestUseCase    *usecases.IngestUseCase
	nutrients        ports.NutrientSource
	addr             string
	readTimeout      time.Duration
	writeTimeout     time.Duration
	defaultTopN      int // Alternatives returned when a request names no top_n.
}

// NewServer creates a new HTTP server.
func NewServer(
	recommendUC *usecases.RecommendUseCase,
	ingestUC *usecases.IngestUseCase,
	nutrients ports.NutrientSource,
	addr string,
	readTimeout, writeTimeout time.Duration,
	defaultTopN int,
) *Server {
	if readTimeout <= 0 {
		readTimeout = 15 * time.Second
	}
	if writeTimeout <= 0 {
		writeTimeout = 300 * time.Second // Longer for streaming
	}
	if defaultTopN <= 0 {
		defaultTopN = 3
	}
	return &Server{
		recommendUseCase: recommendUC,
		ingestUseCase:    ingestUC,
		nutrients:        nutrients,
		addr:             addr,
		readTimeout:      readTimeout,
		writeTimeout:     writeTimeout,
		defaultTopN:      defaultTopN,
	}
}

// Handler builds the route table with the middleware chain applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/recommend", s.handleRecommend)
	mux.HandleFunc("/api/analyze", s.handleAnalyze) // SSE streaming
	mux.HandleFunc("/api/foods", s.handleIngest)
	mux.HandleFunc("/api/foods/search", s.handleFoodSearch)
	mux.HandleFunc("/api/health", s.handleHealth)

	return corsMiddleware(requestIDMiddleware(loggingMiddleware(mux)))
}

// Start runs the HTTP server until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	server := &http.Server{
		Addr:         s.addr,
		Handler:      s.Handler(),
		ReadTimeout:  s.readTimeout,
		WriteTimeout: s.writeTimeout,
	}

	log.Printf("[INFO] NutriSwap server starting on %s", s.addr)

	shutdownDone := make(chan struct{})
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
		close(shutdownDone)
	}()

	err := server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		// ListenAndServe returns as soon as Shutdown is called; wait for
		// in-flight requests to drain before handing control back.
		<-shutdownDone
	}
	return err
}

// foodDTO is the wire representation of a food record. Tags match the
// local data file format so the same JSON works in both places.
type foodDTO struct {
	ID       string  `json:"id,omitempty"`
	Name     string  `json:"name"`
	Protein  float64 `json:"protein_g"`
	Carbs    float64 `json:"carbs_g"`
	Fat      float64 `json:"fat_g"`
	Calories float64 `json:"calories"`
	Fiber    float64 `json:"fiber_g"`
	Sugar    float64 `json:"sugar_g"`
}

func toDTO(f entities.FoodRecord) foodDTO {
	return foodDTO{
		ID:       f.ID,
		Name:     f.Name,
		Protein:  f.Protein,
		Carbs:    f.Carbs,
		Fat:      f.Fat,
		Calories: f.Calories,
		Fiber:    f.Fiber,
		Sugar:    f.Sugar,
	}
}

func (d foodDTO) toRecord() entities.FoodRecord {
	return entities.FoodRecord{
		ID:       d.ID,
		Name:     d.Name,
		Protein:  d.Protein,
		Carbs:    d.Carbs,
		Fat:      d.Fat,
		Calories: d.Calories,
		Fiber:    d.Fiber,
		Sugar:    d.Sugar,
	}.Normalize()
}

type rankedDTO struct {
	Rank         int     `json:"rank"`
	Food         foodDTO `json:"food"`
	ProteinDelta float64 `json:"protein_delta"`
	CarbDelta    float64 `json:"carb_delta"`
	FatDelta     float64 `json:"fat_delta"`
	Score        float64 `json:"score"`
	Reasoning    string  `json:"reasoning"`
}

// handleRecommend ranks healthier alternatives to one food. The food is
// given either inline as a full record or by name, in which case it is
// resolved through the nutrient provider.
func (s *Server) handleRecommend(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req struct {
		Name string   `json:"name"`
		Food *foodDTO `json:"food"`
		Goal string   `json:"goal"`
		TopN int      `json:"top_n"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Food == nil && req.Name == "" {
		writeError(w, http.StatusBadRequest, "name or food required")
		return
	}
	if req.TopN <= 0 {
		req.TopN = s.defaultTopN
	}

	var original entities.FoodRecord
	if req.Food != nil {
		original = req.Food.toRecord()
	} else {
		resolved, err := s.resolveFood(r.Context(), req.Name)
		if err != nil {
			writeLookupError(w, err)
			return
		}
		original = resolved
	}

	ranked, err := s.recommendUseCase.Recommend(r.Context(), original, req.Goal, req.TopN)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	// No qualifying alternative is a normal answer, not an error.
	out := make([]rankedDTO, len(ranked))
	for i, alt := range ranked {
		out[i] = rankedDTO{
			Rank:         alt.Rank,
			Food:         toDTO(alt.Food),
			ProteinDelta: alt.Verdict.ProteinDelta,
			CarbDelta:    alt.Verdict.CarbDelta,
			FatDelta:     alt.Verdict.FatDelta,
			Score:        alt.Verdict.OverallScore,
			Reasoning:    alt.Verdict.Reasoning,
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"original":     toDTO(original),
		"alternatives": out,
	})
}

// handleAnalyze streams a narrative diet analysis over SSE. Food names
// are resolved through the nutrient provider before streaming starts so
// lookup failures still get a proper HTTP status.
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req struct {
		Foods    []string `json:"foods"`
		Location string   `json:"location"`
		Goal     string   `json:"goal"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Foods) == 0 {
		writeError(w, http.StatusBadRequest, "foods required")
		return
	}

	ctx := r.Context()
	records := make([]entities.FoodRecord, 0, len(req.Foods))
	for _, name := range req.Foods {
		food, err := s.resolveFood(ctx, name)
		if err != nil {
			writeLookupError(w, err)
			return
		}
		records = append(records, food)
	}

	// Set SSE headers
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	tokenCh, err := s.recommendUseCase.AnalyzeStream(ctx, records, req.Location, req.Goal)
	if err != nil {
		sendSSE(w, flusher, map[string]any{"error": err.Error(), "done": true})
		return
	}

	for token := range tokenCh {
		if token.Error != nil {
			sendSSE(w, flusher, map[string]any{"error": token.Error.Error(), "done": true})
			return
		}
		sendSSE(w, flusher, map[string]any{"content": token.Content, "done": token.Done})
	}
}

// handleIngest adds food records to the similarity index.
func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req struct {
		Foods []foodDTO `json:"foods"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Foods) == 0 {
		writeError(w, http.StatusBadRequest, "foods required")
		return
	}

	records := make([]entities.FoodRecord, len(req.Foods))
	for i, d := range req.Foods {
		if d.Name == "" {
			writeError(w, http.StatusBadRequest, "food name required")
			return
		}
		records[i] = d.toRecord()
	}

	if err := s.ingestUseCase.Ingest(r.Context(), records); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ingested": len(records)})
}

// handleFoodSearch proxies a free-text search to the nutrient provider.
func (s *Server) handleFoodSearch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	query := r.URL.Query().Get("q")
	if query == "" {
		writeError(w, http.StatusBadRequest, "q required")
		return
	}
	limit := 10
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	foods, err := s.nutrients.SearchFoods(r.Context(), query, limit)
	if err != nil {
		writeLookupError(w, err)
		return
	}

	out := make([]foodDTO, len(foods))
	for i, f := range foods {
		out[i] = toDTO(f)
	}
	writeJSON(w, http.StatusOK, map[string]any{"foods": out})
}

// handleHealth returns server health status.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// resolveFood turns a food name into a full nutrient profile via the
// provider: best search match, then the detail lookup.
func (s *Server) resolveFood(ctx context.Context, name string) (entities.FoodRecord, error) {
	matches, err := s.nutrients.SearchFoods(ctx, name, 1)
	if err != nil {
		return entities.FoodRecord{}, err
	}
	if len(matches) == 0 {
		return entities.FoodRecord{}, fmt.Errorf("%w: %s", errFoodNotFound, name)
	}
	return s.nutrients.FoodDetails(ctx, matches[0].ID)
}

// writeLookupError maps nutrient lookup failures onto HTTP statuses:
// provider failures are a bad gateway, a clean no-match is a 404.
func writeLookupError(w http.ResponseWriter, err error) {
	var provErr *ports.DataProviderError
	switch {
	case errors.As(err, &provErr):
		writeError(w, http.StatusBadGateway, provErr.Error())
	case errors.Is(err, errFoodNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func sendSSE(w http.ResponseWriter, flusher http.Flusher, data map[string]any) {
	jsonData, _ := json.Marshal(data)
	fmt.Fprintf(w, "data: %s\n\n", jsonData)
	flusher.Flush()
}

type requestIDKey struct{}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		ctx := context.WithValue(r.Context(), requestIDKey{}, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		id, _ := r.Context().Value(requestIDKey{}).(string)
		log.Printf("%s %s %s %v", id, r.Method, r.URL.Path, time.Since(start))
	})
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			return
		}
		next.ServeHTTP(w, r)
	})
}
