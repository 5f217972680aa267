// internal/embedding/embedding.go

// Package embedding maps text to dense vectors for the vector index.
package embedding

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/mwiater/ragqa/internal/appconfig"
)

// ErrUnavailable is returned when a backend is not configured well enough to be used.
var ErrUnavailable = errors.New("embedding backend unavailable")

// Embedder maps a batch of texts to vectors of one shared dimensionality.
// Output order matches input order.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Name() string
}

// New builds the embedder selected by cfg.Embedder.Type.
func New(cfg appconfig.Config) (Embedder, error) {
	ec := cfg.Embedder
	switch strings.ToLower(strings.TrimSpace(ec.Type)) {
	case "", "hashing":
		return NewHashing(ec.Dimension), nil
	case "openai":
		key := strings.TrimSpace(os.Getenv(ec.APIKeyEnv))
		if key == "" {
			return nil, fmt.Errorf("%w: environment variable %s is not set", ErrUnavailable, ec.APIKeyEnv)
		}
		clientCfg := openai.DefaultConfig(key)
		if ec.URL != "" {
			clientCfg.BaseURL = ec.URL
		}
		clientCfg.HTTPClient = &http.Client{Timeout: cfg.RequestTimeout()}
		return NewOpenAI(openai.NewClientWithConfig(clientCfg), ec.Model, BatchOptions{
			BatchSize:         ec.BatchSize,
			Concurrency:       ec.Concurrency,
			RequestsPerSecond: ec.RequestsPerSecond,
		}), nil
	case "ollama":
		if strings.TrimSpace(ec.Model) == "" {
			return nil, fmt.Errorf("%w: ollama embedder requires a model", ErrUnavailable)
		}
		return NewOllama(ec.URL, ec.Model, cfg.RequestTimeout(), ec.BatchSize), nil
	default:
		return nil, fmt.Errorf("unknown embedder type %q", ec.Type)
	}
}
