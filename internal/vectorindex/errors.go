package vectorindex

import (
	"errors"
	"fmt"
)

var (
	// ErrCorrupt marks an artifact whose contents cannot be decoded.
	ErrCorrupt = errors.New("corrupt index artifact")
	// ErrUnsupportedVersion marks an artifact written by an incompatible format version.
	ErrUnsupportedVersion = errors.New("unsupported index format version")
)

// EmptyInputError is returned when there is nothing to index or persist.
// The index is left unchanged.
type EmptyInputError struct {
	Op string
}

func (e *EmptyInputError) Error() string {
	return fmt.Sprintf("%s: no records", e.Op)
}

// DimensionMismatchError indicates vectors of inconsistent dimensionality.
// Position is the offending vector's ordinal, or -1 for a query vector.
// When Count is set, Expected and Actual are numbers of vectors: the
// embedder did not return one vector per input.
type DimensionMismatchError struct {
	Expected int
	Actual   int
	Position int
	Count    bool
}

func (e *DimensionMismatchError) Error() string {
	if e.Count {
		return fmt.Sprintf("vector count mismatch: expected %d vectors, got %d", e.Expected, e.Actual)
	}
	if e.Position < 0 {
		return fmt.Sprintf("dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
	}
	return fmt.Sprintf("dimension mismatch at vector %d: expected %d, got %d", e.Position, e.Expected, e.Actual)
}

// NonFiniteVectorError reports a NaN or infinite vector component.
// Position is the vector's ordinal, or -1 for a query vector.
type NonFiniteVectorError struct {
	Position  int
	Component int
}

func (e *NonFiniteVectorError) Error() string {
	if e.Position < 0 {
		return fmt.Sprintf("non-finite query component %d", e.Component)
	}
	return fmt.Sprintf("non-finite component %d in vector %d", e.Component, e.Position)
}

// PersistenceError wraps failures reading or writing index artifacts.
//
// The underlying error can be accessed via errors.Unwrap; decoding failures
// wrap ErrCorrupt or ErrUnsupportedVersion.
type PersistenceError struct {
	Op    string
	Path  string
	cause error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("index %s %s: %v", e.Op, e.Path, e.cause)
}

func (e *PersistenceError) Unwrap() error { return e.cause }

func persistErr(op, path string, err error) error {
	if err == nil {
		return nil
	}
	return &PersistenceError{Op: op, Path: path, cause: err}
}
