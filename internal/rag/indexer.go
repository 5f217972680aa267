package rag

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/mwiater/ragqa/internal/chunker"
	"github.com/mwiater/ragqa/internal/embedding"
	"github.com/mwiater/ragqa/internal/vectorindex"
)

// IndexStats summarizes a BuildIndex run.
type IndexStats struct {
	Pages    int
	Chunks   int
	Elapsed  time.Duration
	Saved    bool
	Embedder string
}

// BuildIndex chunks pages, embeds the chunks into index and, when paths is
// non-zero, saves the artifacts. Progress lines go to out and the log.
func BuildIndex(ctx context.Context, out io.Writer, pages []chunker.Page, ch *chunker.Chunker, index *vectorindex.Index, embedder embedding.Embedder, paths vectorindex.Paths) (IndexStats, error) {
	if ch == nil || index == nil {
		return IndexStats{}, errors.New("build index: chunker and index are required")
	}
	if embedder == nil {
		return IndexStats{}, fmt.Errorf("build index: %w", embedding.ErrUnavailable)
	}
	if out == nil {
		out = io.Discard
	}

	start := time.Now()
	status := func(format string, args ...any) {
		elapsed := time.Since(start).Truncate(time.Millisecond)
		msg := fmt.Sprintf("[%s] %s", elapsed, fmt.Sprintf(format, args...))
		log.Print(msg)
		fmt.Fprintln(out, msg)
	}
	stats := IndexStats{Pages: len(pages), Embedder: embedder.Name()}

	status("[RAG] Pages: %d", len(pages))
	status("[RAG] Embedder: %s", embedder.Name())
	status("[RAG] Chunk size: %d chars, overlap: %d chars", ch.Size(), ch.Overlap())

	chunks := ch.ProcessPages(pages)
	stats.Chunks = len(chunks)
	status("[RAG] Chunked %d pages into %d chunks", len(pages), len(chunks))

	embedStart := time.Now()
	if err := index.Build(ctx, chunks, embedder.Embed); err != nil {
		stats.Elapsed = time.Since(start)
		return stats, err
	}
	status("[RAG] Embedded %d chunks in %s", len(chunks), time.Since(embedStart).Truncate(time.Millisecond))

	if !paths.IsZero() {
		if err := index.Save(paths); err != nil {
			stats.Elapsed = time.Since(start)
			return stats, err
		}
		stats.Saved = true
		status("[RAG] Saved index to %s and %s", paths.Vectors, paths.Metadata)
	}

	stats.Elapsed = time.Since(start)
	status("[RAG] Index complete in %s", stats.Elapsed.Truncate(time.Millisecond))
	return stats, nil
}
