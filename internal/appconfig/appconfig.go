// internal/appconfig/appconfig.go

// Package appconfig manages loading and interpreting application configuration.
package appconfig

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	// DefaultConfigPath is the default path to the application's configuration file.
	DefaultConfigPath = "config/config.json"
	// defaultRequestTimeout bounds a single embedder or generator call.
	defaultRequestTimeout = 60 * time.Second
	// defaultCrawlTimeout bounds a single page fetch.
	defaultCrawlTimeout = 10 * time.Second

	defaultChunkSize    = 1000
	defaultChunkOverlap = 200
	defaultTopK         = 3
	defaultMaxPages     = 5
	defaultIndexDir     = "data"
	defaultVectorFile   = "index.vec"
	defaultMetaFile     = "index.meta.jsonl"
	defaultServerAddr   = "0.0.0.0:8000"
	defaultAPIKeyEnv    = "OPENAI_API_KEY"
	defaultEmbedderType = "hashing"
	defaultHashDim      = 384
	defaultBatchSize    = 64
	defaultConcurrency  = 4
	defaultGenerator    = "openai"
	defaultChatModel    = "gpt-3.5-turbo"
)

// Config represents the top-level application configuration.
type Config struct {
	Debug          bool            `json:"debug" yaml:"debug" mapstructure:"debug"`
	LogFile        string          `json:"logFile,omitempty" yaml:"logFile,omitempty" mapstructure:"logFile"`
	TimeoutSeconds int             `json:"timeout,omitempty" yaml:"timeout,omitempty" mapstructure:"timeout"`
	Chunking       ChunkingConfig  `json:"chunking" yaml:"chunking" mapstructure:"chunking"`
	Index          IndexConfig     `json:"index" yaml:"index" mapstructure:"index"`
	Embedder       EmbedderConfig  `json:"embedder" yaml:"embedder" mapstructure:"embedder"`
	Generator      GeneratorConfig `json:"generator" yaml:"generator" mapstructure:"generator"`
	Crawler        CrawlerConfig   `json:"crawler" yaml:"crawler" mapstructure:"crawler"`
	Server         ServerConfig    `json:"server" yaml:"server" mapstructure:"server"`
	ConfigPath     string          `json:"-" yaml:"-" mapstructure:"-"`
}

// ChunkingConfig controls how page text is split before embedding.
// Sizes are measured in characters.
type ChunkingConfig struct {
	Size    int `json:"size" yaml:"size" mapstructure:"size"`
	Overlap int `json:"overlap" yaml:"overlap" mapstructure:"overlap"`
}

// IndexConfig locates the two persisted index artifacts.
type IndexConfig struct {
	VectorPath   string `json:"vectorPath,omitempty" yaml:"vectorPath,omitempty" mapstructure:"vectorPath"`
	MetadataPath string `json:"metadataPath,omitempty" yaml:"metadataPath,omitempty" mapstructure:"metadataPath"`
	TopK         int    `json:"topK,omitempty" yaml:"topK,omitempty" mapstructure:"topK"`
}

// EmbedderConfig selects and configures the embedding backend.
type EmbedderConfig struct {
	Type              string  `json:"type" yaml:"type" mapstructure:"type"`
	Model             string  `json:"model,omitempty" yaml:"model,omitempty" mapstructure:"model"`
	URL               string  `json:"url,omitempty" yaml:"url,omitempty" mapstructure:"url"`
	APIKeyEnv         string  `json:"apiKeyEnv,omitempty" yaml:"apiKeyEnv,omitempty" mapstructure:"apiKeyEnv"`
	Dimension         int     `json:"dimension,omitempty" yaml:"dimension,omitempty" mapstructure:"dimension"`
	BatchSize         int     `json:"batchSize,omitempty" yaml:"batchSize,omitempty" mapstructure:"batchSize"`
	Concurrency       int     `json:"concurrency,omitempty" yaml:"concurrency,omitempty" mapstructure:"concurrency"`
	RequestsPerSecond float64 `json:"requestsPerSecond,omitempty" yaml:"requestsPerSecond,omitempty" mapstructure:"requestsPerSecond"`
}

// GeneratorConfig selects and configures the answer generation backend.
type GeneratorConfig struct {
	Type        string  `json:"type" yaml:"type" mapstructure:"type"`
	Model       string  `json:"model,omitempty" yaml:"model,omitempty" mapstructure:"model"`
	URL         string  `json:"url,omitempty" yaml:"url,omitempty" mapstructure:"url"`
	APIKeyEnv   string  `json:"apiKeyEnv,omitempty" yaml:"apiKeyEnv,omitempty" mapstructure:"apiKeyEnv"`
	Temperature float64 `json:"temperature" yaml:"temperature" mapstructure:"temperature"`
}

// CrawlerConfig bounds the website crawl that feeds the index.
type CrawlerConfig struct {
	MaxPages          int     `json:"maxPages,omitempty" yaml:"maxPages,omitempty" mapstructure:"maxPages"`
	TimeoutSeconds    int     `json:"timeout,omitempty" yaml:"timeout,omitempty" mapstructure:"timeout"`
	RequestsPerSecond float64 `json:"requestsPerSecond,omitempty" yaml:"requestsPerSecond,omitempty" mapstructure:"requestsPerSecond"`
	UserAgent         string  `json:"userAgent,omitempty" yaml:"userAgent,omitempty" mapstructure:"userAgent"`
}

// ServerConfig configures the HTTP boundary.
type ServerConfig struct {
	Addr string `json:"addr,omitempty" yaml:"addr,omitempty" mapstructure:"addr"`
}

// Default returns a configuration populated with every default value.
func Default() Config {
	cfg := Config{}
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults fills zero-valued fields with their defaults in place.
func (c *Config) ApplyDefaults() {
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = int(defaultRequestTimeout.Seconds())
	}
	if c.Chunking.Size <= 0 {
		c.Chunking.Size = defaultChunkSize
		if c.Chunking.Overlap == 0 {
			c.Chunking.Overlap = defaultChunkOverlap
		}
	}
	if strings.TrimSpace(c.Index.VectorPath) == "" {
		c.Index.VectorPath = filepath.Join(defaultIndexDir, defaultVectorFile)
	}
	if strings.TrimSpace(c.Index.MetadataPath) == "" {
		c.Index.MetadataPath = filepath.Join(defaultIndexDir, defaultMetaFile)
	}
	if c.Index.TopK <= 0 {
		c.Index.TopK = defaultTopK
	}

	c.Embedder.Type = strings.ToLower(strings.TrimSpace(c.Embedder.Type))
	if c.Embedder.Type == "" {
		c.Embedder.Type = defaultEmbedderType
	}
	switch c.Embedder.Type {
	case "hashing":
		if c.Embedder.Dimension <= 0 {
			c.Embedder.Dimension = defaultHashDim
		}
	case "openai":
		if c.Embedder.Model == "" {
			c.Embedder.Model = "text-embedding-3-small"
		}
		if c.Embedder.APIKeyEnv == "" {
			c.Embedder.APIKeyEnv = defaultAPIKeyEnv
		}
	case "ollama":
		if c.Embedder.Model == "" {
			c.Embedder.Model = "nomic-embed-text"
		}
		if c.Embedder.URL == "" {
			c.Embedder.URL = "http://localhost:11434"
		}
	}
	if c.Embedder.BatchSize <= 0 {
		c.Embedder.BatchSize = defaultBatchSize
	}
	if c.Embedder.Concurrency <= 0 {
		c.Embedder.Concurrency = defaultConcurrency
	}

	c.Generator.Type = strings.ToLower(strings.TrimSpace(c.Generator.Type))
	if c.Generator.Type == "" {
		c.Generator.Type = defaultGenerator
	}
	switch c.Generator.Type {
	case "openai":
		if c.Generator.Model == "" {
			c.Generator.Model = defaultChatModel
		}
		if c.Generator.APIKeyEnv == "" {
			c.Generator.APIKeyEnv = defaultAPIKeyEnv
		}
	case "ollama":
		if c.Generator.URL == "" {
			c.Generator.URL = "http://localhost:11434"
		}
	}

	if c.Crawler.MaxPages <= 0 {
		c.Crawler.MaxPages = defaultMaxPages
	}
	if c.Crawler.TimeoutSeconds <= 0 {
		c.Crawler.TimeoutSeconds = int(defaultCrawlTimeout.Seconds())
	}
	if strings.TrimSpace(c.Server.Addr) == "" {
		c.Server.Addr = defaultServerAddr
	}
}

// Validate reports configuration values that can never work.
func (c Config) Validate() error {
	if c.Chunking.Size <= 0 {
		return errors.New("chunking.size must be greater than zero")
	}
	if c.Chunking.Overlap < 0 {
		return errors.New("chunking.overlap must be zero or greater")
	}
	if c.Chunking.Overlap >= c.Chunking.Size {
		return errors.New("chunking.overlap must be smaller than chunking.size")
	}
	switch c.Embedder.Type {
	case "hashing", "openai", "ollama":
	default:
		return fmt.Errorf("unknown embedder type %q", c.Embedder.Type)
	}
	switch c.Generator.Type {
	case "openai", "ollama", "none":
	default:
		return fmt.Errorf("unknown generator type %q", c.Generator.Type)
	}
	if c.Generator.Type == "ollama" && strings.TrimSpace(c.Generator.Model) == "" {
		return errors.New("generator.model is required for the ollama generator")
	}
	return nil
}

// RequestTimeout returns the timeout for a single collaborator call.
func (c Config) RequestTimeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return defaultRequestTimeout
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// CrawlTimeout returns the timeout for a single page fetch.
func (c Config) CrawlTimeout() time.Duration {
	if c.Crawler.TimeoutSeconds <= 0 {
		return defaultCrawlTimeout
	}
	return time.Duration(c.Crawler.TimeoutSeconds) * time.Second
}

// LogFilePath returns the path to the application log file, applying a default if not set.
func (c Config) LogFilePath() string {
	if path := c.LogFile; strings.TrimSpace(path) != "" {
		return path
	}
	return "ragqa.log"
}

// Load reads the application configuration from a JSON file and applies defaults.
// An empty path reads DefaultConfigPath; a missing default file yields Default().
func Load(path string) (Config, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultConfigPath
	}

	config, err := loadFromPath(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			if explicit {
				return Config{}, fmt.Errorf("no configuration file found at %q", path)
			}
			return Default(), nil
		}
		return Config{}, fmt.Errorf("could not read config file %q: %w", path, err)
	}

	config.ApplyDefaults()
	if err := config.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config %q: %w", path, err)
	}
	config.ConfigPath = path
	return config, nil
}

// loadFromPath is a helper function that decodes the configuration from a specific file path.
func loadFromPath(path string) (Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return Config{}, err
	}
	defer file.Close()

	var config Config
	if err := json.NewDecoder(file).Decode(&config); err != nil {
		return Config{}, err
	}
	return config, nil
}
