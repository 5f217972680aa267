// internal/generator/ollama.go
package generator

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

// Ollama generates answers with a non-streaming /api/chat request.
type Ollama struct {
	client      *http.Client
	baseURL     string
	model       string
	temperature float64
	timeout     time.Duration
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string         `json:"model"`
	Messages []chatMessage  `json:"messages"`
	Stream   bool           `json:"stream"`
	Options  map[string]any `json:"options,omitempty"`
}

type chatResponse struct {
	Model   string      `json:"model"`
	Message chatMessage `json:"message"`
	Done    bool        `json:"done"`
	Error   string      `json:"error,omitempty"`
}

// NewOllama constructs an Ollama chat generator bounded by timeout per request.
func NewOllama(baseURL, model string, temperature float64, timeout time.Duration) *Ollama {
	return &Ollama{
		client: &http.Client{
			Timeout:   timeout,
			Transport: &http.Transport{ForceAttemptHTTP2: false},
		},
		baseURL:     strings.TrimRight(baseURL, "/"),
		model:       model,
		temperature: temperature,
		timeout:     timeout,
	}
}

// Name identifies the backend in logs.
func (g *Ollama) Name() string { return "ollama:" + g.model }

// Generate issues a single chat turn and returns the assistant message.
func (g *Ollama) Generate(ctx context.Context, systemContext, userQuery string) (string, error) {
	payload := chatRequest{
		Model: g.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemContext},
			{Role: "user", Content: userQuery},
		},
		Stream:  false,
		Options: map[string]any{"temperature": g.temperature},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	if pretty, perr := json.MarshalIndent(payload, "", "  "); perr == nil {
		logging.LogRequest("RAGQA->LLM", g.baseURL, g.model, "chat", pretty)
	}

	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	logging.LogRequest("LLM->RAGQA", g.baseURL, g.model, "chat", raw)

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ollama: /api/chat returned %s: %s", resp.Status, strings.TrimSpace(string(raw)))
	}

	var result chatResponse
	if err := json.Unmarshal(raw, &result); err != nil {
		return "", fmt.Errorf("ollama: decode chat response: %w", err)
	}
	if result.Error != "" {
		return "", fmt.Errorf("ollama: %s", result.Error)
	}
	return strings.TrimSpace(result.Message.Content), nil
}
