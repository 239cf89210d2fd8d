// Package config loads application configuration from defaults, an optional
// YAML file, and environment variables, in that order of precedence.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// ConfigPathEnvVar overrides the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// DefaultConfigPaths lists config file locations searched in order.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
}

// Config is the full application configuration.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	TMDB      TMDBConfig      `koanf:"tmdb"`
	Catalog   CatalogConfig   `koanf:"catalog"`
	Recommend RecommendConfig `koanf:"recommend"`
	Log       LogConfig       `koanf:"log"`
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Addr string `koanf:"addr"`
}

// TMDBConfig holds settings for the external metadata service.
type TMDBConfig struct {
	APIKey       string        `koanf:"api_key"`
	BaseURL      string        `koanf:"base_url"`
	ImageBaseURL string        `koanf:"image_base_url"`
	Timeout      time.Duration `koanf:"timeout"`
}

// CatalogConfig points at the precomputed catalog artifacts.
type CatalogConfig struct {
	MoviesPath     string `koanf:"movies_path"`
	SimilarityPath string `koanf:"similarity_path"`
}

// RecommendConfig tunes the recommendation engine.
type RecommendConfig struct {
	TopK        int `koanf:"top_k"`
	Concurrency int `koanf:"concurrency"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr: ":8080",
		},
		TMDB: TMDBConfig{
			BaseURL:      "https://api.themoviedb.org/3",
			ImageBaseURL: "https://image.tmdb.org/t/p/w500",
			Timeout:      10 * time.Second,
		},
		Catalog: CatalogConfig{
			MoviesPath:     "data/movies.csv",
			SimilarityPath: "data/similarity.csv",
		},
		Recommend: RecommendConfig{
			TopK:        5,
			Concurrency: 5,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load builds the configuration: defaults, then the config file if one
// exists, then environment variables.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("config: load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("config: load %s: %w", path, err)
		}
	}

	envProvider := env.ProviderWithValue("", ".", func(key, value string) (string, interface{}) {
		// An empty variable counts as unset and never clobbers file or
		// default values.
		if value == "" {
			return "", nil
		}
		return envTransform(key), value
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("config: load environment: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks settings that would otherwise fail at first use.
func (c *Config) Validate() error {
	if c.TMDB.APIKey == "" {
		return fmt.Errorf("config: tmdb api key is required (set TMDB_API_KEY)")
	}
	if c.Recommend.TopK <= 0 {
		return fmt.Errorf("config: recommend top_k must be positive, got %d", c.Recommend.TopK)
	}
	if c.Recommend.Concurrency <= 0 {
		return fmt.Errorf("config: recommend concurrency must be positive, got %d", c.Recommend.Concurrency)
	}
	return nil
}

func findConfigFile() string {
	if path := os.Getenv(ConfigPathEnvVar); path != "" {
		return path
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// envTransform maps environment variable names to config keys, e.g.
// TMDB_API_KEY -> tmdb.api_key, SERVER_ADDR -> server.addr.
func envTransform(key string) string {
	key = strings.ToLower(key)

	mappings := map[string]string{
		"server_addr":             "server.addr",
		"tmdb_api_key":            "tmdb.api_key",
		"tmdb_base_url":           "tmdb.base_url",
		"tmdb_image_base_url":     "tmdb.image_base_url",
		"tmdb_timeout":            "tmdb.timeout",
		"catalog_movies_path":     "catalog.movies_path",
		"catalog_similarity_path": "catalog.similarity_path",
		"recommend_top_k":         "recommend.top_k",
		"recommend_concurrency":   "recommend.concurrency",
		"log_level":               "log.level",
		"log_format":              "log.format",
	}
	if mapped, ok := mappings[key]; ok {
		return mapped
	}
	// Unknown variables are dropped so unrelated environment noise
	// cannot clobber config keys.
	return ""
}
