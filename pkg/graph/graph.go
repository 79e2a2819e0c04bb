// Package graph builds, encodes and persists the k-nearest-neighbor graph of a
// corpus: one node per document, each linked to its closest other documents.
package graph

import (
	"context"
	"errors"
	"math"

	"github.com/papercomputeco/lightwiki/pkg/vector/distance"
)

// ErrNoSnapshot is returned by Store.Load and Store.LoadRaw when no graph has
// been saved yet.
var ErrNoSnapshot = errors.New("no graph snapshot")

// Graph is the k-nearest-neighbor graph over one snapshot.
type Graph struct {
	// Metric is the distance metric the edges were ranked by.
	Metric distance.Metric `json:"metric"`

	// K is the maximum number of neighbors per node.
	K int `json:"k"`

	// Dimensions is the embedding dimensionality of the source snapshot.
	Dimensions int `json:"dimensions"`

	// Nodes are sorted by ascending id.
	Nodes []Node `json:"nodes"`
}

// Node is one document and its outgoing neighbor edges.
type Node struct {
	ID string `json:"id"`

	// Position is the node's 3D layout coordinate, set when the graph was
	// built with a layout.
	Position *Position `json:"position,omitempty"`

	// Neighbors are sorted by ascending distance, ties by ascending id.
	Neighbors []Edge `json:"neighbors"`
}

// Edge points from its owning node to a neighbor.
type Edge struct {
	ID       string  `json:"id"`
	Distance float64 `json:"distance"`
}

// Position is a point in the 3D layout.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// NeighborEdge is an Edge with its source made explicit.
type NeighborEdge struct {
	Source   string
	Target   string
	Distance float64
	Rank     int
}

// Edges flattens the graph into source/target pairs in node order, then
// neighbor rank order.
func (g *Graph) Edges() []NeighborEdge {
	var edges []NeighborEdge
	for _, n := range g.Nodes {
		for rank, e := range n.Neighbors {
			edges = append(edges, NeighborEdge{
				Source:   n.ID,
				Target:   e.ID,
				Distance: e.Distance,
				Rank:     rank,
			})
		}
	}
	return edges
}

// Node returns the node with id.
func (g *Graph) Node(id string) (Node, bool) {
	for _, n := range g.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return Node{}, false
}

// AutoK picks a neighbor count from the corpus size: the square root of n,
// clamped to [2, 10].
func AutoK(n int) int {
	k := int(math.Floor(math.Sqrt(float64(max(n, 0)))))
	return max(2, min(10, k))
}

// Store persists graph snapshots. Save replaces the previous snapshot
// atomically: readers observe either the old or the new graph, never a mix.
type Store interface {
	// Save persists g as the current snapshot.
	Save(ctx context.Context, g *Graph) error

	// Load returns the current snapshot, or ErrNoSnapshot.
	Load(ctx context.Context) (*Graph, error)

	// LoadRaw returns the current snapshot's canonical encoding verbatim, or
	// ErrNoSnapshot.
	LoadRaw(ctx context.Context) ([]byte, error)

	// Close releases any resources held by the store.
	Close() error
}
