package threshold

import (
	"errors"
	"fmt"
)

// Domain errors for threshold statistics.
var (
	// ErrEmptyBoundary indicates no observation lies at or below the threshold.
	ErrEmptyBoundary = errors.New("threshold: empty boundary slice")

	// ErrNonFinite indicates a statistic evaluated to NaN or Inf.
	ErrNonFinite = errors.New("threshold: non-finite statistic")

	// ErrMalformedStats indicates a stats file that is not five floats.
	ErrMalformedStats = errors.New("threshold: malformed stats file")
)

// IndexError wraps an error with the threshold it was computed for.
type IndexError struct {
	Index     int
	Threshold float64
	Wrapped   error
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("threshold %d (z=%g): %v", e.Index, e.Threshold, e.Wrapped)
}

func (e *IndexError) Unwrap() error {
	return e.Wrapped
}
