package embedding

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"slices"
	"sync/atomic"
	"testing"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/mwiater/ragqa/internal/appconfig"
)

func squaredDistance(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return sum
}

func TestHashingDeterministicAndNormalized(t *testing.T) {
	h := NewHashing(64)
	first, err := h.Embed(context.Background(), []string{"Shipping takes 3 days", "shipping TAKES 3 days!"})
	if err != nil {
		t.Fatalf("Embed returned error: %v", err)
	}
	if len(first) != 2 || len(first[0]) != 64 {
		t.Fatalf("unexpected shape: %d vectors", len(first))
	}
	if !slices.Equal(first[0], first[1]) {
		t.Fatalf("case and punctuation should not change the vector")
	}

	var norm float64
	for _, v := range first[0] {
		norm += float64(v) * float64(v)
	}
	if math.Abs(norm-1) > 1e-5 {
		t.Fatalf("expected unit vector, got squared norm %f", norm)
	}

	again, _ := h.Embed(context.Background(), []string{"Shipping takes 3 days"})
	if !slices.Equal(first[0], again[0]) {
		t.Fatalf("embedding is not deterministic")
	}
}

func TestHashingLexicalOverlapIsCloser(t *testing.T) {
	h := NewHashing(0)
	if h.Dimension() != DefaultHashingDimension {
		t.Fatalf("expected default dimension, got %d", h.Dimension())
	}
	vecs, err := h.Embed(context.Background(), []string{
		"refund policy for returned items",
		"our refund policy allows returns within 30 days",
		"the office is open on weekdays",
	})
	if err != nil {
		t.Fatalf("Embed returned error: %v", err)
	}
	near := squaredDistance(vecs[0], vecs[1])
	far := squaredDistance(vecs[0], vecs[2])
	if near >= far {
		t.Fatalf("expected related text to be closer: near=%f far=%f", near, far)
	}
}

func TestHashingEmptyTextIsZeroVector(t *testing.T) {
	vecs, err := NewHashing(8).Embed(context.Background(), []string{"   "})
	if err != nil {
		t.Fatalf("Embed returned error: %v", err)
	}
	for _, v := range vecs[0] {
		if v != 0 {
			t.Fatalf("expected zero vector, got %v", vecs[0])
		}
	}
}

func TestHashingRespectsCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewHashing(8).Embed(ctx, []string{"x"}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestOllamaEmbed(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/embed" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		calls.Add(1)
		var req ollamaEmbedRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.Model != "nomic-embed-text" {
			t.Errorf("unexpected model %q", req.Model)
		}
		resp := ollamaEmbedResponse{Model: req.Model}
		for _, in := range req.Input {
			resp.Embeddings = append(resp.Embeddings, []float64{float64(len(in)), 1})
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	e := NewOllama(srv.URL+"/", "nomic-embed-text", time.Second, 2)
	vecs, err := e.Embed(context.Background(), []string{"a", "bb", "ccc"})
	if err != nil {
		t.Fatalf("Embed returned error: %v", err)
	}
	if calls.Load() != 2 {
		t.Fatalf("expected 2 batched requests, got %d", calls.Load())
	}
	for i, want := range []float32{1, 2, 3} {
		if vecs[i][0] != want {
			t.Fatalf("vector %d out of order: %v", i, vecs[i])
		}
	}
	if e.Name() != "ollama:nomic-embed-text" {
		t.Fatalf("unexpected name %q", e.Name())
	}
}

func TestOllamaEmbedErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := NewOllama(srv.URL, "missing", time.Second, 0).Embed(context.Background(), []string{"x"})
	if err == nil {
		t.Fatalf("expected error for 404 response")
	}
}

func newOpenAITestServer(t *testing.T, calls *atomic.Int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/embeddings" {
			t.Errorf("unexpected path %s", r.URL.Path)
			http.NotFound(w, r)
			return
		}
		calls.Add(1)
		var req struct {
			Model string   `json:"model"`
			Input []string `json:"input"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		type item struct {
			Object    string    `json:"object"`
			Embedding []float32 `json:"embedding"`
			Index     int       `json:"index"`
		}
		data := make([]item, 0, len(req.Input))
		// Reverse order to check that the embedder honors the index field.
		for i := len(req.Input) - 1; i >= 0; i-- {
			data = append(data, item{Object: "embedding", Embedding: []float32{float32(len(req.Input[i])), 0}, Index: i})
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"object": "list",
			"data":   data,
			"model":  req.Model,
			"usage":  map[string]int{"prompt_tokens": 1, "total_tokens": 1},
		})
	}))
}

func TestOpenAIEmbedBatchesPreserveOrder(t *testing.T) {
	var calls atomic.Int32
	srv := newOpenAITestServer(t, &calls)
	defer srv.Close()

	cfg := openai.DefaultConfig("test-key")
	cfg.BaseURL = srv.URL + "/v1"
	e := NewOpenAI(openai.NewClientWithConfig(cfg), "text-embedding-3-small", BatchOptions{BatchSize: 2, Concurrency: 3})

	texts := []string{"a", "bb", "ccc", "dddd", "eeeee"}
	vecs, err := e.Embed(context.Background(), texts)
	if err != nil {
		t.Fatalf("Embed returned error: %v", err)
	}
	if calls.Load() != 3 {
		t.Fatalf("expected 3 batch requests, got %d", calls.Load())
	}
	if len(vecs) != len(texts) {
		t.Fatalf("expected %d vectors, got %d", len(texts), len(vecs))
	}
	for i, text := range texts {
		if vecs[i][0] != float32(len(text)) {
			t.Fatalf("vector %d out of order: %v", i, vecs[i])
		}
	}
}

func TestOpenAIEmbedPropagatesAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"bad key","type":"invalid_request_error"}}`))
	}))
	defer srv.Close()

	cfg := openai.DefaultConfig("bad")
	cfg.BaseURL = srv.URL + "/v1"
	e := NewOpenAI(openai.NewClientWithConfig(cfg), "m", BatchOptions{})
	if _, err := e.Embed(context.Background(), []string{"x"}); err == nil {
		t.Fatalf("expected API error")
	}
}

func TestNewSelectsBackend(t *testing.T) {
	cfg := appconfig.Default()
	e, err := New(cfg)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	if e.Name() != "hashing" {
		t.Fatalf("expected hashing default, got %q", e.Name())
	}

	cfg.Embedder = appconfig.EmbedderConfig{Type: "openai", APIKeyEnv: "RAGQA_TEST_EMBED_KEY"}
	cfg.ApplyDefaults()
	t.Setenv("RAGQA_TEST_EMBED_KEY", "")
	if _, err := New(cfg); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable without key, got %v", err)
	}

	t.Setenv("RAGQA_TEST_EMBED_KEY", "sk-test")
	e, err = New(cfg)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	if e.Name() != "openai:text-embedding-3-small" {
		t.Fatalf("unexpected name %q", e.Name())
	}

	cfg.Embedder = appconfig.EmbedderConfig{Type: "ollama"}
	cfg.ApplyDefaults()
	e, err = New(cfg)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	if e.Name() != "ollama:nomic-embed-text" {
		t.Fatalf("unexpected name %q", e.Name())
	}

	cfg.Embedder.Type = "bogus"
	if _, err := New(cfg); err == nil {
		t.Fatalf("expected error for unknown type")
	}
}
