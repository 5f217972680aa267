// internal/generator/generator.go

// Package generator produces natural-language answers from retrieved context.
package generator

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

// ErrUnavailable is returned by New when no generator is configured or its
// credentials are missing. Callers fall back to a placeholder answer.
var ErrUnavailable = errors.New("answer generator unavailable")

// Generator answers userQuery using only systemContext, which already holds
// the instructions and the retrieved passages.
type Generator interface {
	Generate(ctx context.Context, systemContext, userQuery string) (string, error)
	Name() string
}

// New builds the generator selected by cfg.Generator.Type.
func New(cfg appconfig.Config) (Generator, error) {
	gc := cfg.Generator
	switch strings.ToLower(strings.TrimSpace(gc.Type)) {
	case "none":
		return nil, fmt.Errorf("%w: generator type is none", ErrUnavailable)
	case "", "openai":
		key := strings.TrimSpace(os.Getenv(gc.APIKeyEnv))
		if key == "" {
			return nil, fmt.Errorf("%w: environment variable %s is not set", ErrUnavailable, gc.APIKeyEnv)
		}
		clientCfg := openai.DefaultConfig(key)
		if gc.URL != "" {
			clientCfg.BaseURL = gc.URL
		}
		clientCfg.HTTPClient = &http.Client{Timeout: cfg.RequestTimeout()}
		return NewOpenAI(openai.NewClientWithConfig(clientCfg), gc.Model, gc.Temperature), nil
	case "ollama":
		if strings.TrimSpace(gc.Model) == "" {
			return nil, fmt.Errorf("%w: ollama generator requires a model", ErrUnavailable)
		}
		return NewOllama(gc.URL, gc.Model, gc.Temperature, cfg.RequestTimeout()), nil
	default:
		return nil, fmt.Errorf("unknown generator type %q", gc.Type)
	}
}
