// Package config loads scholarrag settings from a YAML file, then applies
// environment overrides. A missing file yields the defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment variables that override file settings
const (
	EnvDBPath             = "SCHOLARRAG_DB_PATH"
	EnvSourceDir          = "SCHOLARRAG_SOURCE_DIR"
	EnvEmbeddingProvider  = "SCHOLARRAG_EMBEDDING_PROVIDER"
	EnvCompletionProvider = "SCHOLARRAG_COMPLETION_PROVIDER"
	EnvLogMode            = "SCHOLARRAG_LOG_MODE"
	EnvHTTPAddr           = "SCHOLARRAG_HTTP_ADDR"
	EnvOpenAIAPIKey       = "OPENAI_API_KEY"
	EnvJinaAPIKey         = "JINA_API_KEY"
	EnvOllamaBaseURL      = "OLLAMA_BASE_URL"
)

// StorageConfig locates the database and the source-file copies
type StorageConfig struct {
	DBPath    string `yaml:"db_path"`
	SourceDir string `yaml:"source_dir"`
}

// EmbedderConfig selects the embedding provider
type EmbedderConfig struct {
	Provider      string `yaml:"provider"` // jina, openai, ollama, local; empty = auto-detect
	Model         string `yaml:"model"`
	OllamaBaseURL string `yaml:"ollama_base_url"`
	CacheSize     int    `yaml:"cache_size"`
	OpenAIAPIKey  string `yaml:"-"`
	JinaAPIKey    string `yaml:"-"`
}

// CompletionConfig selects the language-completion provider
type CompletionConfig struct {
	Provider      string        `yaml:"provider"` // openai, ollama; empty = auto-detect
	Model         string        `yaml:"model"`
	BaseURL       string        `yaml:"base_url"`
	Timeout       time.Duration `yaml:"timeout"`
	OpenAIAPIKey  string        `yaml:"-"`
	OllamaBaseURL string        `yaml:"ollama_base_url"`
}

// RetrievalConfig holds the hybrid-fusion policy values
type RetrievalConfig struct {
	LexicalLimit        int     `yaml:"lexical_limit"`
	LexicalBoost        float64 `yaml:"lexical_boost"`
	CandidateMultiplier int     `yaml:"candidate_multiplier"`
	MinSimilarity       float64 `yaml:"min_similarity"`
	DefaultK            int     `yaml:"default_k"`
}

// SummaryConfig tunes the summary cache and generation workers
type SummaryConfig struct {
	TTL               time.Duration `yaml:"ttl"`
	CacheSize         int           `yaml:"cache_size"`
	MaxPassages       int           `yaml:"max_passages"`
	PassageChars      int           `yaml:"passage_chars"`
	GenerationTimeout time.Duration `yaml:"generation_timeout"`
	RequestsPerMinute int           `yaml:"requests_per_minute"` // 0 disables rate limiting
	MaxConcurrent     int           `yaml:"max_concurrent"`
}

// IndexerConfig tunes ingestion
type IndexerConfig struct {
	Workers int `yaml:"workers"`
}

// HTTPConfig configures the REST adapter
type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

// LogConfig configures logging
type LogConfig struct {
	Mode string `yaml:"mode"` // dev or prod
}

// Config is the root configuration
type Config struct {
	Storage    StorageConfig    `yaml:"storage"`
	Embedder   EmbedderConfig   `yaml:"embedder"`
	Completion CompletionConfig `yaml:"completion"`
	Retrieval  RetrievalConfig  `yaml:"retrieval"`
	Summary    SummaryConfig    `yaml:"summary"`
	Indexer    IndexerConfig    `yaml:"indexer"`
	HTTP       HTTPConfig       `yaml:"http"`
	Log        LogConfig        `yaml:"log"`
}

// Default returns the built-in configuration
func Default() *Config {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		home = "."
	}
	base := filepath.Join(home, ".scholarrag")
	return &Config{
		Storage: StorageConfig{
			DBPath:    filepath.Join(base, "scholarrag.db"),
			SourceDir: filepath.Join(base, "uploads"),
		},
		Embedder: EmbedderConfig{
			CacheSize: 10000,
		},
		Completion: CompletionConfig{
			Timeout: 120 * time.Second,
		},
		Retrieval: RetrievalConfig{
			LexicalLimit:        10,
			LexicalBoost:        0.05,
			CandidateMultiplier: 3,
			MinSimilarity:       0,
			DefaultK:            12,
		},
		Summary: SummaryConfig{
			TTL:               time.Hour,
			CacheSize:         1000,
			MaxPassages:       10,
			PassageChars:      1200,
			GenerationTimeout: 150 * time.Second,
			MaxConcurrent:     4,
		},
		Indexer: IndexerConfig{
			Workers: 4,
		},
		HTTP: HTTPConfig{
			Addr: ":8080",
		},
		Log: LogConfig{
			Mode: "dev",
		},
	}
}

// Load reads path (if it exists), fills unset values with defaults and applies
// environment overrides. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("read config %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}
	applyDefaults(cfg)
	applyEnv(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyDefaults restores defaults for zero values a partial file may leave behind
func applyDefaults(cfg *Config) {
	def := Default()
	if cfg.Storage.DBPath == "" {
		cfg.Storage.DBPath = def.Storage.DBPath
	}
	if cfg.Storage.SourceDir == "" {
		cfg.Storage.SourceDir = def.Storage.SourceDir
	}
	if cfg.Embedder.CacheSize <= 0 {
		cfg.Embedder.CacheSize = def.Embedder.CacheSize
	}
	if cfg.Completion.Timeout <= 0 {
		cfg.Completion.Timeout = def.Completion.Timeout
	}
	if cfg.Retrieval.LexicalLimit <= 0 {
		cfg.Retrieval.LexicalLimit = def.Retrieval.LexicalLimit
	}
	if cfg.Retrieval.CandidateMultiplier <= 0 {
		cfg.Retrieval.CandidateMultiplier = def.Retrieval.CandidateMultiplier
	}
	if cfg.Retrieval.DefaultK <= 0 {
		cfg.Retrieval.DefaultK = def.Retrieval.DefaultK
	}
	if cfg.Summary.TTL <= 0 {
		cfg.Summary.TTL = def.Summary.TTL
	}
	if cfg.Summary.CacheSize <= 0 {
		cfg.Summary.CacheSize = def.Summary.CacheSize
	}
	if cfg.Summary.MaxPassages <= 0 {
		cfg.Summary.MaxPassages = def.Summary.MaxPassages
	}
	if cfg.Summary.PassageChars <= 0 {
		cfg.Summary.PassageChars = def.Summary.PassageChars
	}
	if cfg.Summary.GenerationTimeout <= 0 {
		cfg.Summary.GenerationTimeout = def.Summary.GenerationTimeout
	}
	if cfg.Summary.MaxConcurrent <= 0 {
		cfg.Summary.MaxConcurrent = def.Summary.MaxConcurrent
	}
	if cfg.Indexer.Workers <= 0 {
		cfg.Indexer.Workers = def.Indexer.Workers
	}
	if cfg.HTTP.Addr == "" {
		cfg.HTTP.Addr = def.HTTP.Addr
	}
	if cfg.Log.Mode == "" {
		cfg.Log.Mode = def.Log.Mode
	}
}

func applyEnv(cfg *Config) {
	if v := os.Getenv(EnvDBPath); v != "" {
		cfg.Storage.DBPath = v
	}
	if v := os.Getenv(EnvSourceDir); v != "" {
		cfg.Storage.SourceDir = v
	}
	if v := os.Getenv(EnvEmbeddingProvider); v != "" {
		cfg.Embedder.Provider = strings.ToLower(v)
	}
	if v := os.Getenv(EnvCompletionProvider); v != "" {
		cfg.Completion.Provider = strings.ToLower(v)
	}
	if v := os.Getenv(EnvLogMode); v != "" {
		cfg.Log.Mode = v
	}
	if v := os.Getenv(EnvHTTPAddr); v != "" {
		cfg.HTTP.Addr = v
	}
	if v := os.Getenv(EnvOllamaBaseURL); v != "" {
		cfg.Embedder.OllamaBaseURL = v
		cfg.Completion.OllamaBaseURL = v
	}
	key := os.Getenv(EnvOpenAIAPIKey)
	cfg.Embedder.OpenAIAPIKey = key
	cfg.Completion.OpenAIAPIKey = key
	cfg.Embedder.JinaAPIKey = os.Getenv(EnvJinaAPIKey)
}

// Validate rejects values that would break retrieval or summarisation
func (c *Config) Validate() error {
	if c.Retrieval.LexicalBoost < 0 {
		return fmt.Errorf("retrieval.lexical_boost must be >= 0, got %s",
			strconv.FormatFloat(c.Retrieval.LexicalBoost, 'f', -1, 64))
	}
	if c.Retrieval.MinSimilarity < -1 || c.Retrieval.MinSimilarity > 1 {
		return fmt.Errorf("retrieval.min_similarity must be within [-1, 1]")
	}
	if c.Summary.RequestsPerMinute < 0 {
		return fmt.Errorf("summary.requests_per_minute must be >= 0")
	}
	return nil
}
