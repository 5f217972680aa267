// Package vectorindex is an exact k-nearest-neighbor index over dense
// embeddings with a parallel metadata store and two-file persistence.
//
// The index is read-mostly: Search never blocks on writers and always sees a
// complete snapshot. Build and Load are exclusive writers that publish a new
// snapshot atomically.
package vectorindex

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"maps"
	"math"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/mwiater/ragqa/internal/chunker"
	"github.com/mwiater/ragqa/internal/logging"
)

// EmbedFunc maps a batch of texts to vectors of one shared dimensionality,
// in input order.
type EmbedFunc func(ctx context.Context, texts []string) ([][]float32, error)

// Record is one indexed chunk. Vector is owned by the index and must not be
// modified by callers.
type Record struct {
	Vector     []float32      `json:"-"`
	Content    string         `json:"content"`
	SourceID   string         `json:"source_identifier"`
	ChunkStart int            `json:"chunk_start"`
	ChunkEnd   int            `json:"chunk_end"`
	Extra      map[string]any `json:"extra,omitempty"`
}

// Result is a record with its squared Euclidean distance to the query.
type Result struct {
	Record   Record
	Distance float64
}

// Paths names the two artifacts of a persisted index.
type Paths struct {
	Vectors  string
	Metadata string
}

// IsZero reports whether no artifact location is configured.
func (p Paths) IsZero() bool { return p.Vectors == "" && p.Metadata == "" }

// snapshot is immutable once published. records[i].Vector is vector i.
type snapshot struct {
	records []Record
	dim     int
}

var emptySnapshot = &snapshot{}

// Index stores vectors and their records in positional correspondence.
type Index struct {
	paths Paths

	writeMu       sync.Mutex
	state         atomic.Pointer[snapshot]
	loadAttempted atomic.Bool
}

// New returns an empty index. When paths is non-zero, the first Search on
// the empty index attempts a single Load from those paths.
func New(paths Paths) *Index {
	idx := &Index{paths: paths}
	idx.state.Store(emptySnapshot)
	return idx
}

// Paths returns the artifact locations used for lazy loading.
func (idx *Index) Paths() Paths { return idx.paths }

// Len returns the number of indexed records.
func (idx *Index) Len() int { return len(idx.current().records) }

// Dimension returns the vector dimensionality, or 0 for an empty index.
func (idx *Index) Dimension() int { return idx.current().dim }

func (idx *Index) current() *snapshot {
	if s := idx.state.Load(); s != nil {
		return s
	}
	return emptySnapshot
}

// Build embeds all chunk contents in one batch and replaces the index
// contents. On any error the previously published contents stay in place.
func (idx *Index) Build(ctx context.Context, chunks []chunker.Chunk, embed EmbedFunc) error {
	if len(chunks) == 0 {
		logging.LogEvent("[INDEX] No chunks provided to create index.")
		return &EmptyInputError{Op: "build"}
	}
	if embed == nil {
		return errors.New("build: embed function is nil")
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}

	logging.LogEvent("[INDEX] Generating embeddings for %d chunks...", len(texts))
	vectors, err := embed(ctx, texts)
	if err != nil {
		return fmt.Errorf("build: embed chunks: %w", err)
	}
	if len(vectors) != len(chunks) {
		return &DimensionMismatchError{Expected: len(chunks), Actual: len(vectors), Position: -1, Count: true}
	}

	dim := len(vectors[0])
	if dim == 0 {
		return &DimensionMismatchError{Expected: 1, Actual: 0, Position: 0}
	}
	records := make([]Record, len(chunks))
	for i, c := range chunks {
		if len(vectors[i]) != dim {
			return &DimensionMismatchError{Expected: dim, Actual: len(vectors[i]), Position: i}
		}
		if j := nonFinite(vectors[i]); j >= 0 {
			return &NonFiniteVectorError{Position: i, Component: j}
		}
		records[i] = Record{
			Vector:     slices.Clone(vectors[i]),
			Content:    c.Content,
			SourceID:   c.Metadata.SourceID,
			ChunkStart: c.Metadata.ChunkStart,
			ChunkEnd:   c.Metadata.ChunkEnd,
			Extra:      maps.Clone(c.Metadata.Extra),
		}
	}

	idx.writeMu.Lock()
	idx.state.Store(&snapshot{records: records, dim: dim})
	idx.loadAttempted.Store(true)
	idx.writeMu.Unlock()

	logging.LogEvent("[INDEX] Index created: %d vectors, dimension %d", len(records), dim)
	return nil
}

// Search returns up to k records closest to query by squared Euclidean
// distance, ascending, ties in insertion order. An empty index yields an
// empty result.
func (idx *Index) Search(query []float32, k int) ([]Result, error) {
	snap := idx.current()
	if len(snap.records) == 0 {
		snap = idx.lazyLoad()
	}
	if len(snap.records) == 0 || k <= 0 {
		return []Result{}, nil
	}
	if len(query) != snap.dim {
		return nil, &DimensionMismatchError{Expected: snap.dim, Actual: len(query), Position: -1}
	}
	if j := nonFinite(query); j >= 0 {
		return nil, &NonFiniteVectorError{Position: -1, Component: j}
	}

	results := make([]Result, len(snap.records))
	for i, rec := range snap.records {
		results[i] = Result{Record: rec, Distance: squaredL2(query, rec.Vector)}
	}
	slices.SortStableFunc(results, func(a, b Result) int {
		return cmp.Compare(a.Distance, b.Distance)
	})
	if k < len(results) {
		results = results[:k]
	}
	return results, nil
}

// lazyLoad performs the one load attempt allowed for an index that was never
// built or loaded.
func (idx *Index) lazyLoad() *snapshot {
	if idx.paths.IsZero() || idx.loadAttempted.Load() {
		return idx.current()
	}

	idx.writeMu.Lock()
	defer idx.writeMu.Unlock()
	if idx.loadAttempted.Load() {
		return idx.current()
	}
	idx.loadAttempted.Store(true)

	ok, err := idx.loadLocked(idx.paths)
	switch {
	case err != nil:
		logging.LogEvent("[INDEX] Index not initialized: %v", err)
	case !ok:
		logging.LogEvent("[INDEX] Index not initialized or loaded.")
	}
	return idx.current()
}

// nonFinite returns the index of the first NaN or infinite component, or -1.
func nonFinite(v []float32) int {
	for i, x := range v {
		if math.IsNaN(float64(x)) || math.IsInf(float64(x), 0) {
			return i
		}
	}
	return -1
}

func squaredL2(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return sum
}
