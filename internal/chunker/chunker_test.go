package chunker

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRejectsNonAdvancingWindows(t *testing.T) {
	_, err := New(0, 0)
	require.ErrorIs(t, err, ErrInvalidSize)

	_, err = New(10, 10)
	require.ErrorIs(t, err, ErrInvalidOverlap)

	_, err = New(10, 25)
	require.ErrorIs(t, err, ErrInvalidOverlap)

	_, err = New(10, -1)
	require.ErrorIs(t, err, ErrInvalidOverlap)

	c, err := New(10, 9)
	require.NoError(t, err)
	assert.Equal(t, 10, c.Size())
	assert.Equal(t, 9, c.Overlap())
}

func TestClean(t *testing.T) {
	in := "  Hello\n\n\nworld   and    friends \n\n"
	out := Clean(in)
	assert.Equal(t, "Hello\nworld and friends", out)
	assert.Equal(t, out, Clean(out), "Clean must be idempotent")
}

func TestChunkOffsetsAndContent(t *testing.T) {
	c, err := New(10, 2)
	require.NoError(t, err)

	chunks := c.Chunk("Alpha Beta Gamma Delta", Metadata{SourceID: "page-a"})
	require.Len(t, chunks, 3)

	assert.Equal(t, "Alpha Beta", chunks[0].Content)
	assert.Equal(t, 0, chunks[0].Metadata.ChunkStart)
	assert.Equal(t, 10, chunks[0].Metadata.ChunkEnd)

	assert.Equal(t, "ta Gamma D", chunks[1].Content)
	assert.Equal(t, 8, chunks[1].Metadata.ChunkStart)
	assert.Equal(t, 18, chunks[1].Metadata.ChunkEnd)

	assert.Equal(t, " Delta", chunks[2].Content)
	assert.Equal(t, 16, chunks[2].Metadata.ChunkStart)
	assert.Equal(t, 22, chunks[2].Metadata.ChunkEnd)

	for _, ch := range chunks {
		assert.Equal(t, "page-a", ch.Metadata.SourceID)
	}
}

func TestChunkCoversTextWithExactOverlap(t *testing.T) {
	texts := []string{
		"a",
		"short",
		strings.Repeat("lorem ipsum dolor sit amet ", 40),
		"héllo wörld ünïcode ✓ ✓ ✓ " + strings.Repeat("ß", 33),
	}
	params := [][2]int{{1, 0}, {5, 0}, {7, 3}, {10, 9}, {64, 16}}

	for _, text := range texts {
		cleaned := []rune(Clean(text))
		for _, p := range params {
			c, err := New(p[0], p[1])
			require.NoError(t, err)

			chunks := c.Chunk(text, Metadata{})
			require.NotEmpty(t, chunks)

			assert.Equal(t, 0, chunks[0].Metadata.ChunkStart)
			assert.Equal(t, len(cleaned), chunks[len(chunks)-1].Metadata.ChunkEnd)

			for i, ch := range chunks {
				m := ch.Metadata
				assert.Less(t, m.ChunkStart, m.ChunkEnd)
				assert.LessOrEqual(t, m.ChunkEnd-m.ChunkStart, p[0])
				assert.LessOrEqual(t, utf8.RuneCountInString(ch.Content), p[0])
				assert.Equal(t, string(cleaned[m.ChunkStart:m.ChunkEnd]), ch.Content)
				if i == 0 {
					continue
				}
				prev := chunks[i-1].Metadata
				assert.LessOrEqual(t, prev.ChunkStart, m.ChunkStart)
				if i < len(chunks)-1 {
					assert.Equal(t, p[1], prev.ChunkEnd-m.ChunkStart, "consecutive chunks overlap by exactly overlap")
				}
			}
		}
	}
}

func TestChunkEmptyText(t *testing.T) {
	c, err := New(10, 2)
	require.NoError(t, err)
	assert.Empty(t, c.Chunk("   \n\n  ", Metadata{}))
}

func TestChunkCopiesExtraMetadata(t *testing.T) {
	c, err := New(4, 1)
	require.NoError(t, err)

	extra := map[string]any{"title": "Home"}
	chunks := c.Chunk("abcdefghij", Metadata{SourceID: "s", Extra: extra})
	require.Greater(t, len(chunks), 1)

	chunks[0].Metadata.Extra["title"] = "mutated"
	assert.Equal(t, "Home", extra["title"])
	assert.Equal(t, "Home", chunks[1].Metadata.Extra["title"])
}

func TestProcessPagesKeepsPageOrder(t *testing.T) {
	c, err := New(10, 2)
	require.NoError(t, err)

	chunks := c.ProcessPages([]Page{
		{SourceID: "https://example.com/a", Text: "Alpha Beta Gamma Delta"},
		{SourceID: "https://example.com/b", Text: "Zulu Yankee"},
	})
	require.Len(t, chunks, 5)
	for _, ch := range chunks[:3] {
		assert.Equal(t, "https://example.com/a", ch.Metadata.SourceID)
	}
	for _, ch := range chunks[3:] {
		assert.Equal(t, "https://example.com/b", ch.Metadata.SourceID)
	}
	assert.Equal(t, "Zulu Yanke", chunks[3].Content)
	assert.Equal(t, "kee", chunks[4].Content)
}
