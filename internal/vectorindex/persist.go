package vectorindex

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"

	"github.com/mwiater/ragqa/internal/logging"
)

const (
	formatVersion = 1
	// maxDimension bounds header values so a corrupt artifact cannot force a huge allocation.
	maxDimension = 1 << 16
)

var vectorMagic = [4]byte{'R', 'Q', 'V', 'X'}

// vectorHeader precedes the little-endian float32 payload in the vector artifact.
type vectorHeader struct {
	Magic     [4]byte
	Version   uint32
	Dimension uint32
	Count     uint32
}

// metadataHeader is the first line of the metadata artifact.
type metadataHeader struct {
	Version   int `json:"version"`
	Count     int `json:"count"`
	Dimension int `json:"dimension"`
}

// Save writes the vector and metadata artifacts. Each file is replaced via
// rename, so a reader never observes a half-written file.
//
// Save must not run concurrently with another Save or Load on the same
// paths from a different process; callers coordinate that externally.
func (idx *Index) Save(paths Paths) error {
	idx.writeMu.Lock()
	defer idx.writeMu.Unlock()

	snap := idx.current()
	if len(snap.records) == 0 {
		return &EmptyInputError{Op: "save"}
	}

	if err := writeFileAtomic(paths.Vectors, func(w io.Writer) error {
		return encodeVectors(w, snap)
	}); err != nil {
		return persistErr("save", paths.Vectors, err)
	}
	if err := writeFileAtomic(paths.Metadata, func(w io.Writer) error {
		return encodeMetadata(w, snap)
	}); err != nil {
		return persistErr("save", paths.Metadata, err)
	}

	logging.LogEvent("[INDEX] Index and metadata saved to %s and %s", paths.Vectors, paths.Metadata)
	return nil
}

// Load replaces the index contents with the artifacts at paths. It returns
// false with a nil error when either artifact is missing, and a
// *PersistenceError when an artifact is unreadable, corrupt, or from an
// unsupported format version. On failure the index is unchanged.
func (idx *Index) Load(paths Paths) (bool, error) {
	idx.writeMu.Lock()
	defer idx.writeMu.Unlock()
	idx.loadAttempted.Store(true)
	return idx.loadLocked(paths)
}

func (idx *Index) loadLocked(paths Paths) (bool, error) {
	if !fileExists(paths.Vectors) || !fileExists(paths.Metadata) {
		return false, nil
	}

	vectors, dim, err := readVectors(paths.Vectors)
	if err != nil {
		return false, persistErr("load", paths.Vectors, err)
	}
	records, err := readMetadata(paths.Metadata, len(vectors), dim)
	if err != nil {
		return false, persistErr("load", paths.Metadata, err)
	}
	for i := range records {
		records[i].Vector = vectors[i]
	}

	if len(records) == 0 {
		idx.state.Store(emptySnapshot)
	} else {
		idx.state.Store(&snapshot{records: records, dim: dim})
	}
	logging.LogEvent("[INDEX] Index and metadata loaded successfully (%d records).", len(records))
	return true, nil
}

func fileExists(path string) bool {
	if path == "" {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func writeFileAtomic(path string, write func(io.Writer) error) error {
	if path == "" {
		return errors.New("empty path")
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create index directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	bw := bufio.NewWriter(tmp)
	if err := write(bw); err != nil {
		tmp.Close()
		cleanup()
		return err
	}
	if err := bw.Flush(); err != nil {
		tmp.Close()
		cleanup()
		return err
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return err
	}
	return nil
}

func encodeVectors(w io.Writer, snap *snapshot) error {
	enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return fmt.Errorf("create zstd writer: %w", err)
	}
	header := vectorHeader{
		Magic:     vectorMagic,
		Version:   formatVersion,
		Dimension: uint32(snap.dim),
		Count:     uint32(len(snap.records)),
	}
	if err := binary.Write(enc, binary.LittleEndian, header); err != nil {
		enc.Close()
		return err
	}
	buf := make([]byte, 4*snap.dim)
	for _, rec := range snap.records {
		for j, v := range rec.Vector {
			binary.LittleEndian.PutUint32(buf[j*4:], math.Float32bits(v))
		}
		if _, err := enc.Write(buf); err != nil {
			enc.Close()
			return err
		}
	}
	return enc.Close()
}

func readVectors(path string) ([][]float32, int, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer file.Close()

	dec, err := zstd.NewReader(file)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	defer dec.Close()

	var header vectorHeader
	if err := binary.Read(dec, binary.LittleEndian, &header); err != nil {
		return nil, 0, fmt.Errorf("%w: read header: %v", ErrCorrupt, err)
	}
	if header.Magic != vectorMagic {
		return nil, 0, fmt.Errorf("%w: bad magic %q", ErrCorrupt, header.Magic[:])
	}
	if header.Version != formatVersion {
		return nil, 0, fmt.Errorf("%w: %d", ErrUnsupportedVersion, header.Version)
	}
	dim := int(header.Dimension)
	if header.Count > 0 && (dim == 0 || dim > maxDimension) {
		return nil, 0, fmt.Errorf("%w: dimension %d", ErrCorrupt, dim)
	}

	vectors := make([][]float32, 0, min(int(header.Count), 1<<16))
	buf := make([]byte, 4*dim)
	for i := 0; i < int(header.Count); i++ {
		if _, err := io.ReadFull(dec, buf); err != nil {
			return nil, 0, fmt.Errorf("%w: vector %d: %v", ErrCorrupt, i, err)
		}
		vec := make([]float32, dim)
		for j := range vec {
			vec[j] = math.Float32frombits(binary.LittleEndian.Uint32(buf[j*4:]))
		}
		vectors = append(vectors, vec)
	}
	if n, _ := io.Copy(io.Discard, dec); n > 0 {
		return nil, 0, fmt.Errorf("%w: %d trailing bytes", ErrCorrupt, n)
	}
	return vectors, dim, nil
}

func encodeMetadata(w io.Writer, snap *snapshot) error {
	encoder := json.NewEncoder(w)
	encoder.SetEscapeHTML(false)
	if err := encoder.Encode(metadataHeader{Version: formatVersion, Count: len(snap.records), Dimension: snap.dim}); err != nil {
		return fmt.Errorf("write metadata header: %w", err)
	}
	for _, rec := range snap.records {
		if err := encoder.Encode(rec); err != nil {
			return fmt.Errorf("write metadata record: %w", err)
		}
	}
	return nil
}

func readMetadata(path string, wantCount, wantDim int) ([]Record, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 8*1024*1024)

	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: missing header", ErrCorrupt)
	}
	var header metadataHeader
	if err := json.Unmarshal(scanner.Bytes(), &header); err != nil {
		return nil, fmt.Errorf("%w: parse header: %v", ErrCorrupt, err)
	}
	if header.Version != formatVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, header.Version)
	}
	if header.Count != wantCount || (wantCount > 0 && header.Dimension != wantDim) {
		return nil, fmt.Errorf("%w: metadata describes %d records of dimension %d, vectors hold %d of dimension %d",
			ErrCorrupt, header.Count, header.Dimension, wantCount, wantDim)
	}

	records := make([]Record, 0, wantCount)
	lineNo := 1
	for scanner.Scan() {
		lineNo++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var rec Record
		if err := json.Unmarshal(line, &rec); err != nil {
			return nil, fmt.Errorf("%w: parse line %d: %v", ErrCorrupt, lineNo, err)
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(records) != wantCount {
		return nil, fmt.Errorf("%w: %d metadata records for %d vectors", ErrCorrupt, len(records), wantCount)
	}
	return records, nil
}
