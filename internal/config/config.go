// Package config provides application configuration with multi-source
// priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (runtime override)
//  2. Config file (~/.courselens/config.yaml or ./config.yaml)
//  3. Default values
//
// The GEMINI_API_KEY secret is read directly by Genkit, not via Viper; it
// is only checked for presence during validation.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

var (
	// ErrInvalidChunking indicates chunk size or overlap is out of range.
	ErrInvalidChunking = errors.New("invalid chunking parameters")

	// ErrInvalidMaxResults indicates the search result cap is out of range.
	ErrInvalidMaxResults = errors.New("invalid max results")

	// ErrInvalidMaxTokens indicates the answer token cap is out of range.
	ErrInvalidMaxTokens = errors.New("invalid max tokens")

	// ErrInvalidMaxHistory indicates the history retention is out of range.
	ErrInvalidMaxHistory = errors.New("invalid max history")

	// ErrInvalidThreshold indicates the resolve threshold is out of range.
	ErrInvalidThreshold = errors.New("invalid resolve threshold")

	// ErrInvalidModelName indicates an empty model identifier.
	ErrInvalidModelName = errors.New("invalid model name")

	// ErrMissingAPIKey indicates GEMINI_API_KEY is not set.
	ErrMissingAPIKey = errors.New("missing API key")
)

// Defaults for the generation and retrieval pipeline.
const (
	DefaultModelName     = "gemini-2.5-flash"
	DefaultEmbedderModel = "gemini-embedding-001"
	DefaultChunkSize     = 800
	DefaultChunkOverlap  = 100
	DefaultMaxResults    = 5
	DefaultMaxHistory    = 2
	DefaultMaxTokens     = 800
)

// configDirName is the per-user configuration directory under $HOME.
const configDirName = ".courselens"

// Config stores application configuration.
type Config struct {
	// Model configuration
	ModelName     string `mapstructure:"model_name"`
	EmbedderModel string `mapstructure:"embedder_model"`
	MaxTokens     int    `mapstructure:"max_tokens"`

	// Chunking configuration
	ChunkSize    int `mapstructure:"chunk_size"`
	ChunkOverlap int `mapstructure:"chunk_overlap"`

	// Retrieval configuration
	MaxResults       int     `mapstructure:"max_results"`
	ResolveThreshold float32 `mapstructure:"resolve_threshold"`

	// Conversation configuration
	MaxHistory int `mapstructure:"max_history"`

	// StorePath is where the vector index persists. Empty keeps it in
	// memory for the process lifetime.
	StorePath string `mapstructure:"store_path"`

	// DocsDir is the default transcript directory for ingestion.
	DocsDir string `mapstructure:"docs_dir"`

	// Logging configuration
	LogLevel string `mapstructure:"log_level"`
	LogJSON  bool   `mapstructure:"log_json"`
}

// Load loads configuration.
// Priority: environment variables > configuration file > defaults.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, configDirName))
	}
	v.AddConfigPath(".")

	setDefaults(v)

	v.SetEnvPrefix("COURSELENS")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		slog.Debug("configuration file not found, using defaults")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("model_name", DefaultModelName)
	v.SetDefault("embedder_model", DefaultEmbedderModel)
	v.SetDefault("max_tokens", DefaultMaxTokens)

	v.SetDefault("chunk_size", DefaultChunkSize)
	v.SetDefault("chunk_overlap", DefaultChunkOverlap)

	v.SetDefault("max_results", DefaultMaxResults)
	v.SetDefault("resolve_threshold", 0.3)
	v.SetDefault("max_history", DefaultMaxHistory)

	v.SetDefault("store_path", defaultStorePath())
	v.SetDefault("docs_dir", "docs")

	v.SetDefault("log_level", "info")
	v.SetDefault("log_json", false)
}

func defaultStorePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, configDirName, "index")
}

// Validate checks all values for consistency. Called by Load; exported for
// configurations built by hand.
func (c *Config) Validate() error {
	if c.ModelName == "" {
		return fmt.Errorf("%w: model_name is empty", ErrInvalidModelName)
	}
	if c.EmbedderModel == "" {
		return fmt.Errorf("%w: embedder_model is empty", ErrInvalidModelName)
	}
	if c.ChunkSize <= 0 {
		return fmt.Errorf("%w: chunk_size must be positive, got %d", ErrInvalidChunking, c.ChunkSize)
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("%w: chunk_overlap %d must be in [0, chunk_size)", ErrInvalidChunking, c.ChunkOverlap)
	}
	if c.MaxResults <= 0 || c.MaxResults > 100 {
		return fmt.Errorf("%w: max_results must be in [1, 100], got %d", ErrInvalidMaxResults, c.MaxResults)
	}
	if c.MaxTokens <= 0 || c.MaxTokens > 65536 {
		return fmt.Errorf("%w: max_tokens must be in [1, 65536], got %d", ErrInvalidMaxTokens, c.MaxTokens)
	}
	if c.MaxHistory <= 0 || c.MaxHistory > 100 {
		return fmt.Errorf("%w: max_history must be in [1, 100], got %d", ErrInvalidMaxHistory, c.MaxHistory)
	}
	if c.ResolveThreshold < 0 || c.ResolveThreshold > 1 {
		return fmt.Errorf("%w: resolve_threshold must be in [0, 1], got %v", ErrInvalidThreshold, c.ResolveThreshold)
	}
	return nil
}

// ValidateAPIKey checks that the Gemini API key is present in the
// environment. Separate from Validate so ingestion against an already
// built index and unit tests do not require a key.
func (c *Config) ValidateAPIKey() error {
	if os.Getenv("GEMINI_API_KEY") == "" && os.Getenv("GOOGLE_API_KEY") == "" {
		return fmt.Errorf("%w: set GEMINI_API_KEY", ErrMissingAPIKey)
	}
	return nil
}
