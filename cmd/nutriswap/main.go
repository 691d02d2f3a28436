// cmd/nutriswap/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"

	"nutriswap/internal/adapters/embedding"
	"nutriswap/internal/adapters/filewatcher"
	"nutriswap/internal/adapters/foodloader"
	"nutriswap/internal/adapters/llm"
	"nutriswap/internal/adapters/nutrientdata"
	"nutriswap/internal/adapters/retriever"
	"nutriswap/internal/adapters/vectordb"
	"nutriswap/internal/domain/ports"
	"nutriswap/internal/domain/usecases"
	"nutriswap/internal/infrastructure/config"
	nshttp "nutriswap/internal/infrastructure/http"
)

var (
	configPath = flag.String("config", "", "Path to config file")
	port       = flag.Int("port", 0, "Port override for the HTTP server")
	version    = flag.Bool("version", false, "Show version")
)

// seedFoods are looked up through the nutrient provider on first run when
// the similarity index is empty and seeding is enabled.
var seedFoods = []string{
	"chicken breast", "turkey breast", "salmon", "tuna", "cod",
	"ground beef", "ground turkey", "pork chop", "shrimp", "eggs",
	"greek yogurt", "cottage cheese", "tofu",
	"white rice", "brown rice", "quinoa", "oatmeal",
	"whole wheat bread", "pasta", "sweet potato", "potato",
	"broccoli", "spinach", "kale", "cauliflower", "carrots",
	"bell peppers", "zucchini",
	"avocado", "almonds",
}

func main() {
	flag.Parse()

	if *version {
		fmt.Println("nutriswap version 1.0.0")
		os.Exit(0)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}

	// Storage
	cache, err := nutrientdata.NewResponseCache(cfg.Data.Dir)
	if err != nil {
		log.Fatalf("Failed to open response cache: %v", err)
	}
	defer cache.Close()

	store, err := vectordb.NewSQLiteStore(cfg.Data.Dir)
	if err != nil {
		log.Fatalf("Failed to open food index: %v", err)
	}
	defer store.Close()

	// Adapters
	nutrients := nutrientdata.NewUSDAClient(cfg.USDA.BaseURL, cfg.USDA.APIKey, cache)
	embedder := embedding.NewOllamaAdapter(cfg.Ollama.BaseURL, cfg.Ollama.EmbedModel)
	generator := llm.NewOllamaAdapter(cfg.Ollama.BaseURL, cfg.Ollama.LLMModel)
	candidates := retriever.NewRetriever(embedder, store, cfg.Recommend.MinRelevance)

	// Use cases
	analyzer := usecases.NewAnalyzerWithCriteria(usecases.Criteria{
		MinProteinIncrease: cfg.Recommend.MinProteinIncrease,
		MaxCarbRatio:       cfg.Recommend.MaxCarbRatio,
		MaxFatRatio:        cfg.Recommend.MaxFatRatio,
	})
	recommendUC := usecases.NewRecommendUseCase(candidates, generator, analyzer, cfg.Recommend.PoolSize)
	ingestUC := usecases.NewIngestUseCase(embedder, store)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Data.SeedOnEmpty {
		seedIfEmpty(ctx, store, ingestUC, nutrients)
	}

	if cfg.Data.Watch {
		go watchFoodFiles(ctx, cfg.Data.WatchDir, ingestUC)
	}

	addr := net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port))
	srv := nshttp.NewServer(recommendUC, ingestUC, nutrients, addr,
		cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Recommend.TopN)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start(ctx)
	}()

	select {
	case <-sigCh:
		log.Println("[INFO] Received shutdown signal")
		log.Println("[INFO] Shutting down...")
		cancel()
		// Start returns once in-flight requests have drained.
		if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("[ERROR] Server error: %v", err)
		}
	case err := <-errCh:
		log.Printf("[ERROR] Server error: %v", err)
		cancel()
	}
}

// seedIfEmpty populates the similarity index from the nutrient provider
// on first run. Seeding is best-effort: unavailable foods are skipped.
func seedIfEmpty(ctx context.Context, store *vectordb.SQLiteStore, ingestUC *usecases.IngestUseCase, nutrients ports.NutrientSource) {
	count, err := store.Count(ctx)
	if err != nil {
		log.Printf("[ERROR] Checking food index: %v", err)
		return
	}
	if count > 0 {
		return
	}

	log.Printf("[INFO] Food index is empty, seeding %d sample foods", len(seedFoods))
	n, err := ingestUC.Seed(ctx, nutrients, seedFoods)
	if err != nil {
		log.Printf("[ERROR] Seeding food index: %v", err)
		return
	}
	log.Printf("[INFO] Seeded %d foods", n)
}

// watchFoodFiles ingests food .json files dropped into dir, and keeps
// doing so as the directory changes.
func watchFoodFiles(ctx context.Context, dir string, ingestUC *usecases.IngestUseCase) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		log.Printf("[ERROR] Creating watch directory %s: %v", dir, err)
		return
	}

	loader := foodloader.NewJSONLoader()
	watcher, err := filewatcher.NewFSNotifyWatcher(loader.SupportedExtensions())
	if err != nil {
		log.Printf("[ERROR] Creating file watcher: %v", err)
		return
	}
	defer watcher.Stop()

	// Ingest whatever is already there before watching for changes.
	ingestExisting(ctx, dir, loader, ingestUC)

	events, err := watcher.Watch(ctx, dir)
	if err != nil {
		log.Printf("[ERROR] Watching %s: %v", dir, err)
		return
	}

	log.Printf("[INFO] Watching %s for food files", dir)
	for event := range events {
		switch event.Operation {
		case ports.FileCreated, ports.FileModified:
			ingestFile(ctx, event.Path, loader, ingestUC)
		}
	}
}

func ingestExisting(ctx context.Context, dir string, loader ports.FoodLoader, ingestUC *usecases.IngestUseCase) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		log.Printf("[ERROR] Reading %s: %v", dir, err)
		return
	}
	for _, entry := range entries {
		if entry.IsDir() || !supportedFile(entry.Name(), loader) {
			continue
		}
		ingestFile(ctx, filepath.Join(dir, entry.Name()), loader, ingestUC)
	}
}

func supportedFile(name string, loader ports.FoodLoader) bool {
	ext := filepath.Ext(name)
	for _, supported := range loader.SupportedExtensions() {
		if ext == supported {
			return true
		}
	}
	return false
}

func ingestFile(ctx context.Context, path string, loader ports.FoodLoader, ingestUC *usecases.IngestUseCase) {
	foods, err := loader.Load(ctx, path)
	if err != nil {
		log.Printf("[ERROR] Loading %s: %v", path, err)
		return
	}
	if len(foods) == 0 {
		return
	}
	if err := ingestUC.Ingest(ctx, foods); err != nil {
		log.Printf("[ERROR] Ingesting %s: %v", path, err)
		return
	}
	log.Printf("[INFO] Ingested %d foods from %s", len(foods), path)
}
