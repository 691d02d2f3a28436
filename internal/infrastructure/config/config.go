// Package config provides centralized configuration management
// using Viper for configuration loading and validation.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Data      DataConfig      `mapstructure:"data"`
	Ollama    OllamaConfig    `mapstructure:"ollama"`
	USDA      USDAConfig      `mapstructure:"usda"`
	Recommend RecommendConfig `mapstructure:"recommend"`
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// DataConfig contains local data directory configuration.
type DataConfig struct {
	Dir         string `mapstructure:"dir"`          // SQLite databases live here.
	WatchDir    string `mapstructure:"watch_dir"`    // Food .json files dropped here are ingested.
	Watch       bool   `mapstructure:"watch"`        // Enable the directory watcher.
	SeedOnEmpty bool   `mapstructure:"seed_on_empty"` // Seed the index from the provider on first run.
}

// OllamaConfig contains Ollama endpoint and model configuration.
type OllamaConfig struct {
	BaseURL    string `mapstructure:"base_url"`
	EmbedModel string `mapstructure:"embed_model"`
	LLMModel   string `mapstructure:"llm_model"`
}

// USDAConfig contains FoodData Central provider configuration.
type USDAConfig struct {
	BaseURL string `mapstructure:"base_url"`
	APIKey  string `mapstructure:"api_key"`
}

// RecommendConfig contains recommendation tuning.
type RecommendConfig struct {
	TopN               int     `mapstructure:"top_n"`
	PoolSize           int     `mapstructure:"pool_size"`
	MinRelevance       float64 `mapstructure:"min_relevance"`
	MinProteinIncrease float64 `mapstructure:"min_protein_increase"`
	MaxCarbRatio       float64 `mapstructure:"max_carb_ratio"`
	MaxFatRatio        float64 `mapstructure:"max_fat_ratio"`
}

// Load loads configuration from file and environment variables.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	v.SetEnvPrefix("NUTRISWAP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is fine, the defaults cover everything.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks configuration values that cannot be silently defaulted.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.Recommend.TopN < 0 {
		return fmt.Errorf("recommend.top_n must not be negative")
	}
	if c.Data.SeedOnEmpty && c.USDA.APIKey == "" {
		return fmt.Errorf("data.seed_on_empty requires usda.api_key")
	}
	return nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8090)
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "300s") // Longer for streaming.

	v.SetDefault("data.dir", "./data")
	v.SetDefault("data.watch_dir", "./data/foods")
	v.SetDefault("data.watch", true)
	v.SetDefault("data.seed_on_empty", false)

	v.SetDefault("ollama.base_url", "http://localhost:11434")
	v.SetDefault("ollama.embed_model", "nomic-embed-text")
	v.SetDefault("ollama.llm_model", "llama3.2")

	v.SetDefault("usda.base_url", "https://api.nal.usda.gov/fdc/v1")
	v.SetDefault("usda.api_key", "")

	v.SetDefault("recommend.top_n", 3)
	v.SetDefault("recommend.pool_size", 10)
	v.SetDefault("recommend.min_relevance", 0.0)
	v.SetDefault("recommend.min_protein_increase", 3.0)
	v.SetDefault("recommend.max_carb_ratio", 0.8)
	v.SetDefault("recommend.max_fat_ratio", 0.8)
}
