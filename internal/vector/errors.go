package vector

import (
	"errors"
	"fmt"
)

var (
	// ErrDegenerateVector is matched by DegenerateVectorError.
	ErrDegenerateVector = errors.New("degenerate vector")
	// ErrDimensionMismatch is matched by DimensionError.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
)

// DegenerateVectorError is returned by Cosine when either operand has zero norm,
// and by ingestion for a zero-norm embedding.
type DegenerateVectorError struct {
	// Operand is "a", "b" or "both". Empty when Key is set.
	Operand string
	// Key is the entry whose vector has zero norm.
	Key string
}

func (e *DegenerateVectorError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("zero-norm vector for %q", e.Key)
	}
	return fmt.Sprintf("cosine similarity: zero-norm vector (%s)", e.Operand)
}

// Is reports whether target is ErrDegenerateVector.
func (e *DegenerateVectorError) Is(target error) bool {
	return target == ErrDegenerateVector
}

// DimensionError reports a vector whose length does not match what was expected.
type DimensionError struct {
	Key      string
	Got      int
	Expected int
}

func (e *DimensionError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("vector dimension mismatch for %q: got %d, expected %d", e.Key, e.Got, e.Expected)
	}
	return fmt.Sprintf("vector dimension mismatch: got %d, expected %d", e.Got, e.Expected)
}

// Is reports whether target is ErrDimensionMismatch.
func (e *DimensionError) Is(target error) bool {
	return target == ErrDimensionMismatch
}
