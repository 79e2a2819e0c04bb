// Package vector provides the embedding store that every search and graph
// operation reads from: documents keyed by an opaque id, each carrying exactly
// one fixed-dimension embedding.
package vector

import (
	"fmt"
	"math"
	"slices"
)

// Embedding is a dense vector representation of a document's content.
type Embedding []float32

// Clone returns a copy of e that shares no memory with it.
func (e Embedding) Clone() Embedding {
	return slices.Clone(e)
}

// CheckFinite returns an error naming the first NaN or infinite element of e.
// Such an element would make every distance to e undefined.
func (e Embedding) CheckFinite() error {
	for i, v := range e {
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			return fmt.Errorf("element %d is not finite: %v", i, v)
		}
	}
	return nil
}

// Document represents a stored item with its embedding.
type Document struct {
	// ID is the externally assigned, stable document identifier
	// (typically the pages table primary key).
	ID string

	// Embedding is the vector representation of the document content.
	Embedding Embedding
}

// Neighbor is a ranked search or graph result.
type Neighbor struct {
	// ID is the matched document.
	ID string `json:"id"`

	// Distance from the query under the process-wide metric.
	// Smaller is closer.
	Distance float64 `json:"distance"`
}

// Less orders neighbors by ascending distance, breaking ties by ascending id.
func (n Neighbor) Less(o Neighbor) bool {
	if n.Distance != o.Distance {
		return n.Distance < o.Distance
	}
	return n.ID < o.ID
}
