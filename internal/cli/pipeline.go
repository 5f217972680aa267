package ragqa

import (
	"errors"
	"fmt"
	"io"

	"github.com/fatih/color"

	"github.com/mwiater/ragqa/internal/appconfig"
	"github.com/mwiater/ragqa/internal/embedding"
	"github.com/mwiater/ragqa/internal/generator"
	"github.com/mwiater/ragqa/internal/logging"
	"github.com/mwiater/ragqa/internal/rag"
	"github.com/mwiater/ragqa/internal/vectorindex"
)

// requireConfig returns the config loaded by the root command.
func requireConfig() (*appconfig.Config, error) {
	cfg := GetConfig()
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	return cfg, nil
}

// indexPaths returns the artifact pair named by cfg.
func indexPaths(cfg *appconfig.Config) vectorindex.Paths {
	return vectorindex.Paths{Vectors: cfg.Index.VectorPath, Metadata: cfg.Index.MetadataPath}
}

// newGenerator builds the configured generator. An unavailable generator is
// not fatal: the pipeline answers with placeholders instead.
func newGenerator(cfg *appconfig.Config) (generator.Generator, error) {
	gen, err := generator.New(*cfg)
	if err != nil {
		if errors.Is(err, generator.ErrUnavailable) {
			logging.LogEvent("[RAG] %v; answers will be placeholders", err)
			return nil, nil
		}
		return nil, err
	}
	return gen, nil
}

// newPipeline wires index, embedder and generator from cfg. topK overrides
// cfg.Index.TopK when positive.
func newPipeline(cfg *appconfig.Config, index *vectorindex.Index, topK int) (*rag.Pipeline, error) {
	embedder, err := embedding.New(*cfg)
	if err != nil {
		return nil, fmt.Errorf("embedder: %w", err)
	}
	gen, err := newGenerator(cfg)
	if err != nil {
		return nil, fmt.Errorf("generator: %w", err)
	}
	if topK <= 0 {
		topK = cfg.Index.TopK
	}
	return rag.New(index, embedder, gen,
		rag.WithTopK(topK),
		rag.WithCollaboratorTimeout(cfg.RequestTimeout()),
	), nil
}

// warnNoGenerator tells an interactive user that answers are placeholders.
func warnNoGenerator(out io.Writer, p *rag.Pipeline, cfg *appconfig.Config) {
	if p.HasGenerator() {
		return
	}
	color.New(color.FgYellow).Fprintf(out, "No answer generator available (generator.type=%s); showing placeholder answers.\n", cfg.Generator.Type)
}

// warnEmptyIndex explains an empty search result when the saved index could
// not be loaded. The load failure itself only reaches the log file.
func warnEmptyIndex(out io.Writer, index *vectorindex.Index) {
	if index.Len() > 0 {
		return
	}
	paths := index.Paths()
	color.New(color.FgYellow).Fprintf(out, "No index loaded from %s and %s (missing or unreadable); run 'ragqa index --url ...' first.\n", paths.Vectors, paths.Metadata)
}
