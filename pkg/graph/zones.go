package graph

import (
	"slices"
	"strings"

	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
)

// Zone is one connected component of the neighbor graph with edge direction
// ignored.
type Zone struct {
	// ID is the zone's rank when zones are ordered by smallest member id,
	// starting at 1.
	ID int `json:"id"`

	// Members are document ids in ascending order.
	Members []string `json:"members"`
}

// Zones partitions a graph's nodes into connected components.
type Zones struct {
	Zones []Zone `json:"zones"`

	byNode map[string]int
	nodes  int
}

// ZoneStats summarizes zone sizes.
type ZoneStats struct {
	Count    int     `json:"count"`
	Largest  int     `json:"largest"`
	Smallest int     `json:"smallest"`
	Average  float64 `json:"average"`

	// ConnectivityRatio is zones per node: 1/N for a fully connected graph,
	// 1 when every node is isolated.
	ConnectivityRatio float64 `json:"connectivity_ratio"`
}

// Components finds the connected components of g, treating every neighbor
// edge as undirected. Edges to ids outside g are ignored. Zone ids are
// deterministic for a given graph.
func Components(g *Graph) *Zones {
	ug := simple.NewUndirectedGraph()
	index := make(map[string]int64, len(g.Nodes))
	for i, n := range g.Nodes {
		index[n.ID] = int64(i)
		ug.AddNode(simple.Node(int64(i)))
	}
	for i, n := range g.Nodes {
		for _, e := range n.Neighbors {
			j, ok := index[e.ID]
			if !ok || j == int64(i) {
				continue
			}
			ug.SetEdge(ug.NewEdge(simple.Node(int64(i)), simple.Node(j)))
		}
	}

	components := topo.ConnectedComponents(ug)
	zones := make([]Zone, 0, len(components))
	for _, comp := range components {
		members := make([]string, len(comp))
		for i, node := range comp {
			members[i] = g.Nodes[node.ID()].ID
		}
		slices.Sort(members)
		zones = append(zones, Zone{Members: members})
	}
	slices.SortFunc(zones, func(a, b Zone) int {
		return strings.Compare(a.Members[0], b.Members[0])
	})

	z := &Zones{
		Zones:  zones,
		byNode: make(map[string]int, len(g.Nodes)),
		nodes:  len(g.Nodes),
	}
	for i := range z.Zones {
		z.Zones[i].ID = i + 1
		for _, id := range z.Zones[i].Members {
			z.byNode[id] = i + 1
		}
	}
	return z
}

// Of returns the zone id of a document, or 0 when it is not in the graph.
func (z *Zones) Of(id string) int {
	return z.byNode[id]
}

// Stats summarizes the partition. Every field is zero for an empty graph.
func (z *Zones) Stats() ZoneStats {
	if len(z.Zones) == 0 {
		return ZoneStats{}
	}

	s := ZoneStats{
		Count:    len(z.Zones),
		Smallest: len(z.Zones[0].Members),
	}
	for _, zone := range z.Zones {
		size := len(zone.Members)
		s.Largest = max(s.Largest, size)
		s.Smallest = min(s.Smallest, size)
	}
	s.Average = float64(z.nodes) / float64(s.Count)
	s.ConnectivityRatio = float64(s.Count) / float64(z.nodes)
	return s
}
