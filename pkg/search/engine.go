// Package search answers top-k similarity queries over an embedding snapshot,
// either for a ready-made query vector or for free text run through an
// embedder.
package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/papercomputeco/lightwiki/pkg/embeddings"
	"github.com/papercomputeco/lightwiki/pkg/vector"
	"github.com/papercomputeco/lightwiki/pkg/vector/distance"
	"github.com/papercomputeco/lightwiki/pkg/vector/index"
)

// DefaultTopK is the number of results returned when the caller does not ask
// for a specific count.
const DefaultTopK = 5

// Option configures an Engine.
type Option func(*Engine)

// WithMetric sets the ranking metric. Defaults to distance.Cosine.
func WithMetric(m distance.Metric) Option {
	return func(e *Engine) {
		e.metric = m
	}
}

// WithEmbedder sets the embedder used by SearchText.
func WithEmbedder(emb embeddings.Embedder) Option {
	return func(e *Engine) {
		e.embedder = emb
	}
}

// WithLogger sets the engine's logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// Engine ranks the documents of one snapshot against queries. The index is
// built on first use and shared by every later query. An Engine is safe for
// concurrent use.
type Engine struct {
	snap     *vector.Snapshot
	metric   distance.Metric
	embedder embeddings.Embedder
	logger   *slog.Logger

	once sync.Once
	idx  *index.Index
}

// NewEngine creates an engine over snap.
func NewEngine(snap *vector.Snapshot, opts ...Option) *Engine {
	e := &Engine{
		snap:   snap,
		metric: distance.Cosine,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Index returns the engine's index, building it if needed.
func (e *Engine) Index() *index.Index {
	e.once.Do(func() {
		e.idx = index.Build(e.snap, e.metric)
		e.logger.Debug("built search index",
			"documents", e.snap.Len(),
			"dimensions", e.snap.Dimensions(),
			"metric", e.metric.String(),
		)
	})
	return e.idx
}

// Search returns the k documents nearest to q, closest first. Index errors
// are returned unchanged.
func (e *Engine) Search(ctx context.Context, q vector.Embedding, k int) ([]vector.Neighbor, error) {
	return e.Index().Query(ctx, q, k)
}

// SearchText embeds text and returns the k nearest documents. Embedder
// failures are reported as vector.ErrEmbeddingUnavailable.
func (e *Engine) SearchText(ctx context.Context, text string, k int) ([]vector.Neighbor, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: query text is empty", vector.ErrInvalidArgument)
	}
	if k <= 0 {
		return nil, fmt.Errorf("%w: k must be positive, got %d", vector.ErrInvalidArgument, k)
	}
	if e.embedder == nil {
		return nil, fmt.Errorf("%w: no embedder configured", vector.ErrEmbeddingUnavailable)
	}

	e.logger.Debug("search request", "query", text, "top_k", k)

	q, err := e.embedder.Embed(ctx, text)
	if err != nil {
		if errors.Is(err, vector.ErrCancelled) || errors.Is(err, vector.ErrEmbeddingUnavailable) {
			return nil, err
		}
		return nil, embeddings.Unavailable(ctx, "embedding query", err)
	}

	return e.Search(ctx, q, k)
}
