package index

import "github.com/papercomputeco/lightwiki/pkg/vector"

// resultHeap is a max-heap on (distance, id): the root is the worst of the
// current top-k, so a better candidate replaces it in O(log k).
type resultHeap []vector.Neighbor

func (h resultHeap) Len() int { return len(h) }

func (h resultHeap) Less(i, j int) bool { return h[j].Less(h[i]) }

func (h resultHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *resultHeap) Push(x any) {
	n, _ := x.(vector.Neighbor)
	*h = append(*h, n)
}

func (h *resultHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
