package graph

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"

	"github.com/papercomputeco/lightwiki/pkg/vector"
	"github.com/papercomputeco/lightwiki/pkg/vector/distance"
)

// Encode renders g in its canonical JSON form. Equal graphs always encode to
// identical bytes.
func Encode(g *Graph) ([]byte, error) {
	out := *g
	if out.Nodes == nil {
		out.Nodes = []Node{}
	}
	nodes := make([]Node, len(out.Nodes))
	for i, n := range out.Nodes {
		if n.Neighbors == nil {
			n.Neighbors = []Edge{}
		}
		nodes[i] = n
	}
	out.Nodes = nodes

	b, err := json.MarshalIndent(&out, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding graph: %w", err)
	}
	return append(b, '\n'), nil
}

type wireGraph struct {
	Metric     *distance.Metric `json:"metric"`
	K          *int             `json:"k"`
	Dimensions *int             `json:"dimensions"`
	Nodes      *[]Node          `json:"nodes"`
}

// Decode parses a canonical graph encoding. Anything that does not match the
// schema fails with vector.ErrDecode: unknown or missing fields, unsorted
// nodes or neighbors, self-edges, edges to unknown nodes, or more than K
// neighbors on a node.
func Decode(b []byte) (*Graph, error) {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.DisallowUnknownFields()

	var w wireGraph
	if err := dec.Decode(&w); err != nil {
		return nil, fmt.Errorf("%w: graph: %w", vector.ErrDecode, err)
	}
	if dec.More() {
		return nil, fmt.Errorf("%w: graph: trailing data after document", vector.ErrDecode)
	}

	switch {
	case w.Metric == nil:
		return nil, fmt.Errorf("%w: graph: missing metric", vector.ErrDecode)
	case w.K == nil:
		return nil, fmt.Errorf("%w: graph: missing k", vector.ErrDecode)
	case w.Dimensions == nil:
		return nil, fmt.Errorf("%w: graph: missing dimensions", vector.ErrDecode)
	case w.Nodes == nil:
		return nil, fmt.Errorf("%w: graph: missing nodes", vector.ErrDecode)
	}

	g := &Graph{
		Metric:     *w.Metric,
		K:          *w.K,
		Dimensions: *w.Dimensions,
		Nodes:      *w.Nodes,
	}
	if err := Validate(g); err != nil {
		return nil, err
	}
	return g, nil
}

// Validate checks the structural rules every graph satisfies.
func Validate(g *Graph) error {
	if g.K < 1 {
		return fmt.Errorf("%w: graph: k must be positive, got %d", vector.ErrDecode, g.K)
	}
	if g.Dimensions < 0 {
		return fmt.Errorf("%w: graph: negative dimensions %d", vector.ErrDecode, g.Dimensions)
	}

	known := make(map[string]struct{}, len(g.Nodes))
	for i, n := range g.Nodes {
		if n.ID == "" {
			return fmt.Errorf("%w: graph: node %d has no id", vector.ErrDecode, i)
		}
		if i > 0 && g.Nodes[i-1].ID >= n.ID {
			return fmt.Errorf("%w: graph: nodes not sorted by unique id at %q", vector.ErrDecode, n.ID)
		}
		known[n.ID] = struct{}{}
	}

	for _, n := range g.Nodes {
		if len(n.Neighbors) > g.K {
			return fmt.Errorf("%w: graph: node %q has %d neighbors, k is %d",
				vector.ErrDecode, n.ID, len(n.Neighbors), g.K)
		}
		for j, e := range n.Neighbors {
			if e.ID == n.ID {
				return fmt.Errorf("%w: graph: node %q links to itself", vector.ErrDecode, n.ID)
			}
			if _, ok := known[e.ID]; !ok {
				return fmt.Errorf("%w: graph: node %q links to unknown node %q", vector.ErrDecode, n.ID, e.ID)
			}
			if math.IsNaN(e.Distance) || e.Distance < 0 {
				return fmt.Errorf("%w: graph: edge %q -> %q has invalid distance %v",
					vector.ErrDecode, n.ID, e.ID, e.Distance)
			}
			if j > 0 {
				prev := vector.Neighbor{ID: n.Neighbors[j-1].ID, Distance: n.Neighbors[j-1].Distance}
				cur := vector.Neighbor{ID: e.ID, Distance: e.Distance}
				if !prev.Less(cur) {
					return fmt.Errorf("%w: graph: neighbors of %q not sorted at %q", vector.ErrDecode, n.ID, e.ID)
				}
			}
		}
	}
	return nil
}
