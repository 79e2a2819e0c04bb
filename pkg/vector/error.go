package vector

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrInvalidArgument is returned for caller mistakes such as k <= 0 or an
	// empty document id.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrDimensionMismatch is matched by every *DimensionMismatchError.
	ErrDimensionMismatch = errors.New("dimension mismatch")

	// ErrStorage is returned when the backing store is unreachable or a row
	// cannot be loaded.
	ErrStorage = errors.New("storage failure")

	// ErrDecode is returned when a stored blob or graph artifact does not match
	// its expected encoding.
	ErrDecode = errors.New("decode failure")

	// ErrEmbeddingUnavailable is returned when embedding generation fails.
	// Callers may retry these with backoff.
	ErrEmbeddingUnavailable = errors.New("embedding unavailable")

	// ErrCancelled is returned when a context is cancelled or its deadline
	// passes mid-computation. Partial results are never returned with it.
	ErrCancelled = errors.New("cancelled")
)

// DimensionMismatchError reports two embeddings, or an embedding and a store,
// that disagree on dimensionality.
type DimensionMismatchError struct {
	Expected int
	Actual   int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}

// Is reports whether target is ErrDimensionMismatch.
func (e *DimensionMismatchError) Is(target error) bool {
	return target == ErrDimensionMismatch
}

// CheckDimensions returns a *DimensionMismatchError when actual != expected.
func CheckDimensions(expected, actual int) error {
	if expected != actual {
		return &DimensionMismatchError{Expected: expected, Actual: actual}
	}
	return nil
}

// Cancelled wraps the context's error as ErrCancelled. It returns nil when
// ctx is still live.
func Cancelled(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrCancelled, err)
	}
	return nil
}

// Kind returns a short name for the error kind of err, or "internal" when err
// carries none of the package's kinds. Cancellation wins over every other
// kind because a cancelled operation's other failures are incidental.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrCancelled):
		return "cancelled"
	case errors.Is(err, ErrInvalidArgument):
		return "invalid_argument"
	case errors.Is(err, ErrDimensionMismatch):
		return "dimension_mismatch"
	case errors.Is(err, ErrDecode):
		return "decode"
	case errors.Is(err, ErrStorage):
		return "storage"
	case errors.Is(err, ErrEmbeddingUnavailable):
		return "embedding_unavailable"
	default:
		return "internal"
	}
}
