package rag

import (
	"context"
	"fmt"
	"io"
	"log"
	"strings"
	"time"
)

// Preview runs retrieval only and prints each ranked chunk with its distance
// and offsets, followed by the context block a generator would receive.
func Preview(ctx context.Context, out io.Writer, p *Pipeline, query string, topK int) error {
	query = strings.TrimSpace(query)
	if query == "" {
		return fmt.Errorf("query is required")
	}
	if topK <= 0 {
		topK = p.TopK()
	}

	status := func(format string, args ...any) {
		msg := fmt.Sprintf(format, args...)
		log.Print(msg)
		fmt.Fprintln(out, msg)
	}

	status("[RAG] Preview query: %s", query)
	status("[RAG] topK: %d", topK)

	start := time.Now()
	results, err := p.Retrieve(ctx, query, topK)
	if err != nil {
		return err
	}
	status("[RAG] retrieval_ms: %d", time.Since(start).Milliseconds())
	status("[RAG] chunks: %d", len(results))

	for i, r := range results {
		rec := r.Record
		status("[RAG] chunk %d distance=%.6f source=%s range=[%d,%d)", i+1, r.Distance, rec.SourceID, rec.ChunkStart, rec.ChunkEnd)
		status("[RAG] chunk %d text: %s", i+1, rec.Content)
	}

	if contextText := FormatContext(results); contextText != "" {
		status("[RAG] context:\n%s", contextText)
	}
	return nil
}
