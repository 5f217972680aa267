package rag

import (
	"strings"

	"github.com/mwiater/ragqa/internal/vectorindex"
)

// NoContextAnswer is returned when retrieval found nothing to answer from.
const NoContextAnswer = "I'm sorry, I couldn't find any relevant information in the provided website content."

const (
	placeholderPrefix = "[MOCK ANSWER] Based on the context provided, here is what I found: "
	placeholderRunes  = 200
)

// FormatContext joins the contents of results in ranked order, separated by a blank line.
func FormatContext(results []vectorindex.Result) string {
	if len(results) == 0 {
		return ""
	}
	var b strings.Builder
	for i, r := range results {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(r.Record.Content)
	}
	if strings.TrimSpace(b.String()) == "" {
		return ""
	}
	return b.String()
}

// SystemPrompt restricts the generator to contextText.
func SystemPrompt(contextText string) string {
	return "You are a helpful support bot. Use ONLY the following context to answer the user's question. " +
		"If the answer is not in the context, say 'I don't know based on the provided information'. " +
		"Context:\n" + contextText
}

// PlaceholderAnswer is the answer given when no generator is configured.
func PlaceholderAnswer(contextText string) string {
	runes := []rune(contextText)
	if len(runes) > placeholderRunes {
		runes = runes[:placeholderRunes]
	}
	return placeholderPrefix + string(runes) + "..."
}

// SourceIDs lists the source identifiers of results in ranked order. Runs of
// the same identifier collapse to one entry and empty identifiers are skipped.
func SourceIDs(results []vectorindex.Result) []string {
	ids := make([]string, 0, len(results))
	for _, r := range results {
		id := r.Record.SourceID
		if id == "" {
			continue
		}
		if n := len(ids); n > 0 && ids[n-1] == id {
			continue
		}
		ids = append(ids, id)
	}
	return ids
}
