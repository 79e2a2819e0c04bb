package graph_test

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/lightwiki/pkg/graph"
	"github.com/papercomputeco/lightwiki/pkg/logger"
	"github.com/papercomputeco/lightwiki/pkg/vector"
	"github.com/papercomputeco/lightwiki/pkg/vector/distance"
)

func randomSnapshot(n, dim int, seed uint64) *vector.Snapshot {
	r := rand.New(rand.NewPCG(seed, seed+1))
	docs := make([]vector.Document, n)
	for i := range docs {
		e := make(vector.Embedding, dim)
		for j := range e {
			e[j] = r.Float32()*2 - 1
		}
		docs[i] = vector.Document{ID: fmt.Sprintf("page-%04d", i), Embedding: e}
	}
	snap, err := vector.NewSnapshot(dim, docs...)
	Expect(err).NotTo(HaveOccurred())
	return snap
}

func neighborIDs(n graph.Node) []string {
	out := make([]string, len(n.Neighbors))
	for i, e := range n.Neighbors {
		out[i] = e.ID
	}
	return out
}

var _ = Describe("Builder", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
	})

	It("links each reference document to its nearest other document", func() {
		b := graph.NewBuilder(graph.WithK(1), graph.WithLogger(logger.Nop()))

		g, err := b.Build(ctx, referenceSnapshot())
		Expect(err).NotTo(HaveOccurred())
		Expect(g.K).To(Equal(1))
		Expect(g.Metric).To(Equal(distance.Cosine))
		Expect(g.Dimensions).To(Equal(2))
		Expect(g.Nodes).To(HaveLen(4))

		want := map[string]string{"A": "B", "B": "A", "C": "D", "D": "B"}
		for _, n := range g.Nodes {
			Expect(neighborIDs(n)).To(Equal([]string{want[n.ID]}), "node %s", n.ID)
		}

		a, ok := g.Node("A")
		Expect(ok).To(BeTrue())
		Expect(a.Neighbors[0].Distance).To(BeNumerically("~", 0.006116, 1e-4))

		d, _ := g.Node("D")
		Expect(d.Neighbors[0].Distance).To(BeNumerically("~", 0.889568, 1e-4))
	})

	It("never links a node to itself", func() {
		g, err := graph.NewBuilder(graph.WithK(3)).Build(ctx, referenceSnapshot())
		Expect(err).NotTo(HaveOccurred())

		for _, n := range g.Nodes {
			Expect(n.Neighbors).To(HaveLen(3))
			Expect(neighborIDs(n)).NotTo(ContainElement(n.ID))
		}
	})

	It("caps neighbors at N-1 when k exceeds the corpus", func() {
		g, err := graph.NewBuilder(graph.WithK(10)).Build(ctx, referenceSnapshot())
		Expect(err).NotTo(HaveOccurred())
		for _, n := range g.Nodes {
			Expect(n.Neighbors).To(HaveLen(3))
		}
	})

	It("returns an empty graph for an empty snapshot", func() {
		snap, err := vector.NewSnapshot(0)
		Expect(err).NotTo(HaveOccurred())

		g, err := graph.NewBuilder().Build(ctx, snap)
		Expect(err).NotTo(HaveOccurred())
		Expect(g.Nodes).To(BeEmpty())

		b, err := graph.Encode(g)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(b)).To(ContainSubstring(`"nodes": []`))
	})

	It("picks k automatically when unset", func() {
		g, err := graph.NewBuilder().Build(ctx, randomSnapshot(50, 4, 7))
		Expect(err).NotTo(HaveOccurred())
		Expect(g.K).To(Equal(7))
		for _, n := range g.Nodes {
			Expect(n.Neighbors).To(HaveLen(7))
		}
	})

	It("encodes byte-identical output regardless of worker count", func() {
		snap := randomSnapshot(200, 16, 42)

		g1, err := graph.NewBuilder(graph.WithK(5), graph.WithWorkers(1), graph.WithLayout(true)).Build(ctx, snap)
		Expect(err).NotTo(HaveOccurred())
		g2, err := graph.NewBuilder(graph.WithK(5), graph.WithWorkers(8), graph.WithLayout(true)).Build(ctx, snap)
		Expect(err).NotTo(HaveOccurred())

		b1, err := graph.Encode(g1)
		Expect(err).NotTo(HaveOccurred())
		b2, err := graph.Encode(g2)
		Expect(err).NotTo(HaveOccurred())
		Expect(b1).To(Equal(b2))
	})

	It("produces graphs that pass validation", func() {
		g, err := graph.NewBuilder(graph.WithK(4), graph.WithMetric(distance.Euclidean)).
			Build(ctx, randomSnapshot(64, 8, 3))
		Expect(err).NotTo(HaveOccurred())
		Expect(graph.Validate(g)).To(Succeed())
		Expect(g.Edges()).To(HaveLen(64 * 4))
	})

	DescribeTable("keeps distances finite for extreme finite magnitudes",
		func(m distance.Metric) {
			snap, err := vector.NewSnapshot(2,
				vector.Document{ID: "A", Embedding: vector.Embedding{1, 0}},
				vector.Document{ID: "B", Embedding: vector.Embedding{3e38, 0}},
				vector.Document{ID: "C", Embedding: vector.Embedding{-3e38, 1}},
			)
			Expect(err).NotTo(HaveOccurred())

			g, err := graph.NewBuilder(graph.WithK(2), graph.WithMetric(m)).Build(ctx, snap)
			Expect(err).NotTo(HaveOccurred())
			for _, e := range g.Edges() {
				Expect(math.IsNaN(e.Distance) || math.IsInf(e.Distance, 0)).To(BeFalse(), "%s->%s", e.Source, e.Target)
			}

			_, err = graph.Encode(g)
			Expect(err).NotTo(HaveOccurred())
		},
		Entry("cosine", distance.Cosine),
		Entry("euclidean", distance.Euclidean),
	)

	It("cannot be handed a corpus with non-finite embeddings", func() {
		_, err := vector.NewSnapshot(2,
			vector.Document{ID: "A", Embedding: vector.Embedding{1, 0}},
			vector.Document{ID: "B", Embedding: vector.Embedding{float32(math.NaN()), 0}},
			vector.Document{ID: "C", Embedding: vector.Embedding{float32(math.Inf(1)), 1}},
		)
		Expect(err).To(MatchError(vector.ErrInvalidArgument))
	})

	It("rejects a negative k", func() {
		_, err := graph.NewBuilder(graph.WithK(-1)).Build(ctx, referenceSnapshot())
		Expect(err).To(MatchError(vector.ErrInvalidArgument))
	})

	It("returns no partial graph when cancelled", func() {
		cctx, cancel := context.WithCancel(ctx)
		cancel()

		g, err := graph.NewBuilder(graph.WithK(2)).Build(cctx, randomSnapshot(100, 4, 9))
		Expect(err).To(MatchError(vector.ErrCancelled))
		Expect(g).To(BeNil())
	})
})

var _ = Describe("AutoK", func() {
	DescribeTable("clamps the square root of the corpus size",
		func(n, want int) {
			Expect(graph.AutoK(n)).To(Equal(want))
		},
		Entry("empty", 0, 2),
		Entry("tiny", 3, 2),
		Entry("sixteen", 16, 4),
		Entry("just under 100", 99, 9),
		Entry("large", 10000, 10),
	)
})
