// internal/embedding/hashing.go
package embedding

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"unicode"
)

// DefaultHashingDimension is used when NewHashing is given a non-positive dimension.
const DefaultHashingDimension = 384

// Hashing is an offline embedder that hashes lowercase word tokens into a
// fixed number of buckets and L2-normalizes the counts. Texts sharing words
// land close together, which is enough for lexical retrieval without a
// model server.
type Hashing struct {
	dim int
}

// NewHashing returns a hashing embedder producing vectors of length dim.
func NewHashing(dim int) *Hashing {
	if dim <= 0 {
		dim = DefaultHashingDimension
	}
	return &Hashing{dim: dim}
}

// Name identifies the backend in logs.
func (h *Hashing) Name() string { return "hashing" }

// Dimension returns the output vector length.
func (h *Hashing) Dimension() int { return h.dim }

// Embed hashes every text. It only fails when ctx is already done.
func (h *Hashing) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = h.vector(text)
	}
	return out, nil
}

func (h *Hashing) vector(text string) []float32 {
	vec := make([]float32, h.dim)
	for _, token := range tokenize(text) {
		hasher := fnv.New32a()
		_, _ = hasher.Write([]byte(token))
		vec[hasher.Sum32()%uint32(h.dim)]++
	}
	normalize(vec)
	return vec
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// normalize scales v to unit length in place. The zero vector is left as is.
func normalize(v []float32) {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return
	}
	inv := 1 / math.Sqrt(sum)
	for i := range v {
		v[i] = float32(float64(v[i]) * inv)
	}
}
