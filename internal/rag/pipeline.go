// Package rag answers questions over an indexed website: it retrieves the
// chunks nearest to a question and asks a generator to answer from them.
package rag

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mwiater/ragqa/internal/embedding"
	"github.com/mwiater/ragqa/internal/generator"
	"github.com/mwiater/ragqa/internal/logging"
	"github.com/mwiater/ragqa/internal/vectorindex"
)

const (
	// DefaultTopK is the number of chunks retrieved by Ask.
	DefaultTopK = 3
	// DefaultCollaboratorTimeout bounds a single embedder or generator call.
	DefaultCollaboratorTimeout = 60 * time.Second
)

// Searcher is the read side of the vector index.
type Searcher interface {
	Search(query []float32, k int) ([]vectorindex.Result, error)
}

// Response is the result of Ask. Context lists the source identifiers of the
// retrieved chunks in ranked order.
type Response struct {
	Query   string   `json:"query"`
	Answer  string   `json:"answer"`
	Context []string `json:"context"`
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithTopK sets how many chunks Ask retrieves.
func WithTopK(k int) Option {
	return func(p *Pipeline) {
		if k > 0 {
			p.topK = k
		}
	}
}

// WithCollaboratorTimeout bounds each embedder and generator call. Zero disables the bound.
func WithCollaboratorTimeout(d time.Duration) Option {
	return func(p *Pipeline) {
		if d >= 0 {
			p.timeout = d
		}
	}
}

// Pipeline composes retrieval and answer generation. It holds no mutable
// state of its own and is safe for concurrent use when its index is.
type Pipeline struct {
	index     Searcher
	embedder  embedding.Embedder
	generator generator.Generator
	topK      int
	timeout   time.Duration
}

// New returns a pipeline over index. gen may be nil, in which case answers are
// placeholders built from the retrieved context.
func New(index Searcher, embedder embedding.Embedder, gen generator.Generator, opts ...Option) *Pipeline {
	p := &Pipeline{
		index:     index,
		embedder:  embedder,
		generator: gen,
		topK:      DefaultTopK,
		timeout:   DefaultCollaboratorTimeout,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// TopK returns the number of chunks Ask retrieves.
func (p *Pipeline) TopK() int { return p.topK }

// HasGenerator reports whether answers come from a real generator.
func (p *Pipeline) HasGenerator() bool { return p.generator != nil }

// Retrieve embeds query and returns up to topK nearest chunks. A blank query
// yields no results without calling the embedder.
func (p *Pipeline) Retrieve(ctx context.Context, query string, topK int) ([]vectorindex.Result, error) {
	if strings.TrimSpace(query) == "" {
		return []vectorindex.Result{}, nil
	}
	if p.embedder == nil {
		return nil, fmt.Errorf("retrieve: %w", embedding.ErrUnavailable)
	}
	if p.index == nil {
		return nil, errors.New("retrieve: no index")
	}

	callCtx, cancel := p.collaboratorContext(ctx)
	vectors, err := p.embedder.Embed(callCtx, []string{query})
	cancel()
	if err != nil {
		return nil, fmt.Errorf("retrieve: embed query with %s: %w", p.embedder.Name(), err)
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("retrieve: embedder returned %d vectors for 1 query", len(vectors))
	}

	results, err := p.index.Search(vectors[0], topK)
	if err != nil {
		return nil, fmt.Errorf("retrieve: %w", err)
	}
	return results, nil
}

// GenerateAnswer answers query from results. It never fails: an empty
// context yields NoContextAnswer, a missing generator yields a placeholder,
// and generator errors are reported inside the answer text.
func (p *Pipeline) GenerateAnswer(ctx context.Context, query string, results []vectorindex.Result) string {
	contextText := FormatContext(results)
	if contextText == "" {
		return NoContextAnswer
	}
	if p.generator == nil {
		return PlaceholderAnswer(contextText)
	}

	callCtx, cancel := p.collaboratorContext(ctx)
	defer cancel()
	answer, err := p.generator.Generate(callCtx, SystemPrompt(contextText), query)
	if err != nil {
		logging.LogEvent("[RAG] %s error: %v", p.generator.Name(), err)
		return "Error generating answer: " + err.Error()
	}
	return answer
}

// Ask retrieves context for query and generates an answer. Only retrieval
// failures are returned as errors.
func (p *Pipeline) Ask(ctx context.Context, query string) (Response, error) {
	results, err := p.Retrieve(ctx, query, p.topK)
	if err != nil {
		return Response{}, err
	}
	return Response{
		Query:   query,
		Answer:  p.GenerateAnswer(ctx, query, results),
		Context: SourceIDs(results),
	}, nil
}

func (p *Pipeline) collaboratorContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if p.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, p.timeout)
}
