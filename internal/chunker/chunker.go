// Package chunker turns cleaned page text into overlapping, fixed-size,
// character-offset chunks that carry their provenance.
package chunker

import (
	"errors"
	"fmt"
	"maps"
	"regexp"
	"strings"

	"github.com/mwiater/ragqa/internal/logging"
)

var (
	// ErrInvalidSize is returned when the chunk size is not positive.
	ErrInvalidSize = errors.New("chunk size must be greater than zero")
	// ErrInvalidOverlap is returned when the overlap would stop the window from advancing.
	ErrInvalidOverlap = errors.New("chunk overlap must be zero or greater and smaller than chunk size")

	newlineRuns = regexp.MustCompile(`\n+`)
	spaceRuns   = regexp.MustCompile(` +`)
)

// Page is the cleaned text of one crawled URL.
type Page struct {
	SourceID string
	Text     string
}

// Metadata is the provenance attached to a chunk. ChunkStart and ChunkEnd are
// character (rune) offsets into the page's cleaned text.
type Metadata struct {
	SourceID   string
	ChunkStart int
	ChunkEnd   int
	Extra      map[string]any
}

// Chunk is a bounded substring of a page plus its provenance.
type Chunk struct {
	Content  string
	Metadata Metadata
}

// Chunker splits text into windows of Size characters, each window starting
// Size-Overlap characters after the previous one.
type Chunker struct {
	size    int
	overlap int
}

// New validates the window parameters and returns a Chunker.
func New(size, overlap int) (*Chunker, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidSize, size)
	}
	if overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("%w: size=%d overlap=%d", ErrInvalidOverlap, size, overlap)
	}
	return &Chunker{size: size, overlap: overlap}, nil
}

// Size returns the maximum chunk length in characters.
func (c *Chunker) Size() int { return c.size }

// Overlap returns the number of characters shared by consecutive chunks.
func (c *Chunker) Overlap() int { return c.overlap }

// Clean collapses newline runs and space runs and trims surrounding whitespace.
// Clean(Clean(s)) == Clean(s).
func Clean(text string) string {
	text = newlineRuns.ReplaceAllString(text, "\n")
	text = spaceRuns.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// Chunk cleans text and splits it into overlapping windows. Every chunk gets
// a copy of meta with ChunkStart/ChunkEnd set.
func (c *Chunker) Chunk(text string, meta Metadata) []Chunk {
	runes := []rune(Clean(text))
	n := len(runes)
	if n == 0 {
		return nil
	}

	step := c.size - c.overlap
	chunks := make([]Chunk, 0, (n+step-1)/step)
	for start := 0; start < n; start += step {
		end := min(start+c.size, n)

		m := meta
		m.Extra = maps.Clone(meta.Extra)
		m.ChunkStart = start
		m.ChunkEnd = end

		chunks = append(chunks, Chunk{
			Content:  string(runes[start:end]),
			Metadata: m,
		})
		if end >= n {
			break
		}
	}
	return chunks
}

// ProcessPages chunks every page in order and concatenates the results.
func (c *Chunker) ProcessPages(pages []Page) []Chunk {
	var all []Chunk
	for _, page := range pages {
		logging.LogEvent("[CHUNK] Chunking content from: %s", page.SourceID)
		all = append(all, c.Chunk(page.Text, Metadata{SourceID: page.SourceID})...)
	}
	return all
}
