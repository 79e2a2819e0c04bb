// Package embeddings defines the text-to-vector boundary. Implementations tag
// every failure with vector.ErrEmbeddingUnavailable, except cancellation,
// which surfaces as vector.ErrCancelled.
package embeddings

import (
	"context"
	"fmt"

	"github.com/papercomputeco/lightwiki/pkg/vector"
)

// Embedder provides text embedding capabilities.
type Embedder interface {
	// Embed converts text into a vector embedding.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Close releases any resources held by the embedder.
	Close() error
}

// Unavailable wraps err as vector.ErrEmbeddingUnavailable, or as
// vector.ErrCancelled when ctx is already done.
func Unavailable(ctx context.Context, op string, err error) error {
	if cerr := vector.Cancelled(ctx); cerr != nil {
		return cerr
	}
	return fmt.Errorf("%w: %s: %w", vector.ErrEmbeddingUnavailable, op, err)
}
