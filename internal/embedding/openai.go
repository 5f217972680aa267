// internal/embedding/openai.go
package embedding

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/mwiater/ragqa/internal/logging"
)

// BatchOptions bounds how a remote embedder splits and paces its requests.
type BatchOptions struct {
	BatchSize         int
	Concurrency       int
	RequestsPerSecond float64
}

func (o BatchOptions) withDefaults() BatchOptions {
	if o.BatchSize <= 0 {
		o.BatchSize = 64
	}
	if o.Concurrency <= 0 {
		o.Concurrency = 1
	}
	return o
}

// OpenAI embeds texts through the OpenAI embeddings API.
type OpenAI struct {
	client  *openai.Client
	model   string
	opts    BatchOptions
	limiter *rate.Limiter
}

// NewOpenAI returns an embedder that sends batches concurrently through client.
func NewOpenAI(client *openai.Client, model string, opts BatchOptions) *OpenAI {
	opts = opts.withDefaults()
	limit := rate.Inf
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}
	return &OpenAI{
		client:  client,
		model:   model,
		opts:    opts,
		limiter: rate.NewLimiter(limit, opts.Concurrency),
	}
}

// Name identifies the backend in logs.
func (e *OpenAI) Name() string { return "openai:" + e.model }

// Embed splits texts into batches and embeds them concurrently. The first
// failing batch cancels the rest.
func (e *OpenAI) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	if len(texts) == 0 {
		return out, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.opts.Concurrency)
	for start := 0; start < len(texts); start += e.opts.BatchSize {
		end := min(start+e.opts.BatchSize, len(texts))
		g.Go(func() error {
			return e.embedBatch(gctx, texts[start:end], out[start:end])
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (e *OpenAI) embedBatch(ctx context.Context, batch []string, dst [][]float32) error {
	if err := e.limiter.Wait(ctx); err != nil {
		return err
	}
	logging.LogRequest("RAGQA->EMBED", "openai", e.model, "embeddings", map[string]any{"inputs": len(batch)})

	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(e.model),
		Input: batch,
	})
	if err != nil {
		return fmt.Errorf("openai embeddings: %w", err)
	}
	if len(resp.Data) != len(batch) {
		return fmt.Errorf("openai embeddings: got %d vectors for %d inputs", len(resp.Data), len(batch))
	}
	for i, item := range resp.Data {
		pos := item.Index
		if pos < 0 || pos >= len(batch) {
			pos = i
		}
		vec := make([]float32, len(item.Embedding))
		for j, v := range item.Embedding {
			vec[j] = float32(v)
		}
		dst[pos] = vec
	}
	for i, vec := range dst {
		if vec == nil {
			return fmt.Errorf("openai embeddings: missing vector for input %d", i)
		}
	}
	return nil
}
