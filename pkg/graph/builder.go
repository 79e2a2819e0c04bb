package graph

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/papercomputeco/lightwiki/pkg/vector"
	"github.com/papercomputeco/lightwiki/pkg/vector/distance"
	"github.com/papercomputeco/lightwiki/pkg/vector/index"
)

// chunksPerWorker splits the corpus finer than the worker count so uneven
// chunks still balance.
const chunksPerWorker = 4

// BuilderOption configures a Builder.
type BuilderOption func(*Builder)

// WithK sets the number of neighbors per node. Zero selects AutoK.
func WithK(k int) BuilderOption {
	return func(b *Builder) {
		b.k = k
	}
}

// WithMetric sets the distance metric. Defaults to distance.Cosine.
func WithMetric(m distance.Metric) BuilderOption {
	return func(b *Builder) {
		b.metric = m
	}
}

// WithWorkers bounds the number of concurrent neighbor queries. Zero or less
// selects runtime.NumCPU().
func WithWorkers(n int) BuilderOption {
	return func(b *Builder) {
		b.workers = n
	}
}

// WithLayout enables 3D node positions.
func WithLayout(enabled bool) BuilderOption {
	return func(b *Builder) {
		b.layout = enabled
	}
}

// WithLogger sets the builder's logger.
func WithLogger(l *slog.Logger) BuilderOption {
	return func(b *Builder) {
		b.logger = l
	}
}

// Builder computes the k-nearest-neighbor graph of a snapshot.
type Builder struct {
	k       int
	metric  distance.Metric
	workers int
	layout  bool
	logger  *slog.Logger
}

// NewBuilder creates a Builder.
func NewBuilder(opts ...BuilderOption) *Builder {
	b := &Builder{
		metric: distance.Cosine,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.workers <= 0 {
		b.workers = runtime.NumCPU()
	}
	return b
}

// Build computes the graph of snap: each document linked to its k nearest
// other documents. The result depends only on snap and the builder's options.
// An empty snapshot yields a graph with no nodes.
func (b *Builder) Build(ctx context.Context, snap *vector.Snapshot) (*Graph, error) {
	if b.k < 0 {
		return nil, fmt.Errorf("%w: k must not be negative, got %d", vector.ErrInvalidArgument, b.k)
	}
	if err := vector.Cancelled(ctx); err != nil {
		return nil, err
	}

	n := snap.Len()
	k := b.k
	if k == 0 {
		k = AutoK(n)
	}

	g := &Graph{
		Metric:     b.metric,
		K:          k,
		Dimensions: snap.Dimensions(),
		Nodes:      make([]Node, n),
	}
	if n == 0 {
		return g, nil
	}

	start := time.Now()
	idx := index.Build(snap, b.metric)

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(b.workers)

	chunk := max(1, (n+b.workers*chunksPerWorker-1)/(b.workers*chunksPerWorker))
	for lo := 0; lo < n; lo += chunk {
		hi := min(lo+chunk, n)
		eg.Go(func() error {
			for i := lo; i < hi; i++ {
				doc := snap.At(i)
				neighbors, err := idx.QueryExcluding(egCtx, doc.Embedding, k, doc.ID)
				if err != nil {
					return fmt.Errorf("neighbors of %s: %w", doc.ID, err)
				}

				edges := make([]Edge, len(neighbors))
				for j, nb := range neighbors {
					edges[j] = Edge{ID: nb.ID, Distance: nb.Distance}
				}
				// Each goroutine owns a disjoint range of nodes.
				g.Nodes[i] = Node{ID: doc.ID, Neighbors: edges}
			}
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		if cerr := vector.Cancelled(ctx); cerr != nil {
			return nil, cerr
		}
		return nil, err
	}

	if b.layout {
		positions, err := Layout(snap)
		if err != nil {
			return nil, err
		}
		for i := range g.Nodes {
			g.Nodes[i].Position = &positions[i]
		}
	}

	b.logger.Debug("built neighbor graph",
		"nodes", n,
		"k", k,
		"metric", b.metric.String(),
		"workers", b.workers,
		"layout", b.layout,
		"duration", time.Since(start),
	)

	return g, nil
}
