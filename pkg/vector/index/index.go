// Package index answers exact k-nearest-neighbor queries over an immutable
// embedding snapshot.
//
// Queries are a linear scan with a bounded max-heap, so results are exact:
// every document is compared with the query. Results are ordered by ascending
// distance with ties broken by ascending document id, which makes them fully
// deterministic for a given snapshot.
package index

import (
	"container/heap"
	"context"
	"fmt"
	"slices"

	"github.com/papercomputeco/lightwiki/pkg/vector"
	"github.com/papercomputeco/lightwiki/pkg/vector/distance"
)

// cancelCheckInterval is how many documents are scanned between context
// checks.
const cancelCheckInterval = 256

// Index is a read-only exact KNN index. It is safe for concurrent queries.
type Index struct {
	snap   *vector.Snapshot
	metric distance.Metric

	// norms holds each document's L2 norm when the metric is Cosine.
	norms []float64
}

// Build creates an index over snap. Cosine norms are computed once here.
func Build(snap *vector.Snapshot, metric distance.Metric) *Index {
	idx := &Index{
		snap:   snap,
		metric: metric,
	}

	if metric == distance.Cosine {
		idx.norms = make([]float64, snap.Len())
		for i, doc := range snap.Documents() {
			idx.norms[i] = distance.Norm(doc.Embedding)
		}
	}

	return idx
}

// Len returns the number of indexed documents.
func (idx *Index) Len() int {
	return idx.snap.Len()
}

// Dimensions returns the indexed dimensionality.
func (idx *Index) Dimensions() int {
	return idx.snap.Dimensions()
}

// Metric returns the metric the index ranks by.
func (idx *Index) Metric() distance.Metric {
	return idx.metric
}

// Query returns the min(k, Len()) documents nearest to q.
func (idx *Index) Query(ctx context.Context, q vector.Embedding, k int) ([]vector.Neighbor, error) {
	return idx.query(ctx, q, k, "")
}

// QueryExcluding is Query but never returns the document with excludeID.
func (idx *Index) QueryExcluding(ctx context.Context, q vector.Embedding, k int, excludeID string) ([]vector.Neighbor, error) {
	return idx.query(ctx, q, k, excludeID)
}

func (idx *Index) query(ctx context.Context, q vector.Embedding, k int, excludeID string) ([]vector.Neighbor, error) {
	if k <= 0 {
		return nil, fmt.Errorf("%w: k must be positive, got %d", vector.ErrInvalidArgument, k)
	}
	if err := vector.Cancelled(ctx); err != nil {
		return nil, err
	}

	if dim := idx.snap.Dimensions(); dim > 0 {
		if err := vector.CheckDimensions(dim, len(q)); err != nil {
			return nil, err
		}
	}
	if err := q.CheckFinite(); err != nil {
		return nil, fmt.Errorf("%w: query: %w", vector.ErrInvalidArgument, err)
	}

	n := idx.snap.Len()
	if n == 0 {
		return []vector.Neighbor{}, nil
	}

	var qNorm float64
	if idx.metric == distance.Cosine {
		qNorm = distance.Norm(q)
	}

	h := make(resultHeap, 0, min(k, n))
	for i, doc := range idx.snap.Documents() {
		if i%cancelCheckInterval == 0 {
			if err := vector.Cancelled(ctx); err != nil {
				return nil, err
			}
		}
		if excludeID != "" && doc.ID == excludeID {
			continue
		}

		cand := vector.Neighbor{ID: doc.ID, Distance: idx.distance(q, qNorm, i, doc.Embedding)}
		switch {
		case len(h) < k:
			heap.Push(&h, cand)
		case cand.Less(h[0]):
			h[0] = cand
			heap.Fix(&h, 0)
		}
	}

	if err := vector.Cancelled(ctx); err != nil {
		return nil, err
	}

	results := []vector.Neighbor(h)
	slices.SortFunc(results, compareNeighbors)
	return results, nil
}

func (idx *Index) distance(q vector.Embedding, qNorm float64, i int, e vector.Embedding) float64 {
	if idx.metric == distance.Cosine {
		return distance.CosineWithNorms(q, e, qNorm, idx.norms[i])
	}
	d, _ := distance.EuclideanDistance(q, e)
	return d
}

func compareNeighbors(a, b vector.Neighbor) int {
	switch {
	case a.Less(b):
		return -1
	case b.Less(a):
		return 1
	default:
		return 0
	}
}
