// internal/embedding/ollama.go
package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mwiater/ragqa/internal/logging"
)

// Ollama embeds texts through an Ollama-compatible /api/embed endpoint.
type Ollama struct {
	client    *http.Client
	baseURL   string
	model     string
	timeout   time.Duration
	batchSize int
}

type ollamaEmbedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type ollamaEmbedResponse struct {
	Model      string      `json:"model"`
	Embeddings [][]float64 `json:"embeddings"`
}

// NewOllama constructs an Ollama embedder. Each HTTP request is bounded by timeout.
func NewOllama(baseURL, model string, timeout time.Duration, batchSize int) *Ollama {
	if batchSize <= 0 {
		batchSize = 64
	}
	return &Ollama{
		client: &http.Client{
			Timeout:   timeout,
			Transport: &http.Transport{ForceAttemptHTTP2: false},
		},
		baseURL:   strings.TrimRight(baseURL, "/"),
		model:     model,
		timeout:   timeout,
		batchSize: batchSize,
	}
}

// Name identifies the backend in logs.
func (e *Ollama) Name() string { return "ollama:" + e.model }

// Embed sends texts in sequential batches.
func (e *Ollama) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += e.batchSize {
		end := min(start+e.batchSize, len(texts))
		vectors, err := e.embedBatch(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		out = append(out, vectors...)
	}
	return out, nil
}

func (e *Ollama) embedBatch(ctx context.Context, batch []string) ([][]float32, error) {
	body, err := json.Marshal(ollamaEmbedRequest{Model: e.model, Input: batch})
	if err != nil {
		return nil, fmt.Errorf("marshal embedding request: %w", err)
	}
	logging.LogRequest("RAGQA->EMBED", e.baseURL, e.model, "embed", map[string]any{"inputs": len(batch)})

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/api/embed", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create embedding request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embedding request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read embedding response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ollama: /api/embed returned %s: %s", resp.Status, strings.TrimSpace(string(raw)))
	}

	var parsed ollamaEmbedResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("parse embedding response: %w", err)
	}
	if len(parsed.Embeddings) != len(batch) {
		return nil, fmt.Errorf("ollama: got %d embeddings for %d inputs", len(parsed.Embeddings), len(batch))
	}

	vectors := make([][]float32, len(parsed.Embeddings))
	for i, v64 := range parsed.Embeddings {
		if len(v64) == 0 {
			return nil, fmt.Errorf("ollama: empty embedding for input %d", i)
		}
		vec := make([]float32, len(v64))
		for j, x := range v64 {
			vec[j] = float32(x)
		}
		vectors[i] = vec
	}
	return vectors, nil
}
