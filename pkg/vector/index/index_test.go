package index_test

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/lightwiki/pkg/vector"
	"github.com/papercomputeco/lightwiki/pkg/vector/distance"
	"github.com/papercomputeco/lightwiki/pkg/vector/index"
)

func referenceSnapshot() *vector.Snapshot {
	snap, err := vector.NewSnapshot(2,
		vector.Document{ID: "A", Embedding: vector.Embedding{1, 0}},
		vector.Document{ID: "B", Embedding: vector.Embedding{0.9, 0.1}},
		vector.Document{ID: "C", Embedding: vector.Embedding{-1, 0}},
		vector.Document{ID: "D", Embedding: vector.Embedding{0, 1}},
	)
	Expect(err).NotTo(HaveOccurred())
	return snap
}

func ids(ns []vector.Neighbor) []string {
	out := make([]string, len(ns))
	for i, n := range ns {
		out[i] = n.ID
	}
	return out
}

var _ = Describe("Index", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
	})

	Describe("Query", func() {
		It("ranks the reference corpus under cosine", func() {
			idx := index.Build(referenceSnapshot(), distance.Cosine)

			results, err := idx.Query(ctx, vector.Embedding{1, 0}, 2)
			Expect(err).NotTo(HaveOccurred())
			Expect(ids(results)).To(Equal([]string{"A", "B"}))
			Expect(results[0].Distance).To(BeNumerically("~", 0, 1e-9))
			Expect(results[1].Distance).To(BeNumerically("~", 0.006116, 1e-4))
		})

		It("ranks by euclidean distance when configured", func() {
			idx := index.Build(referenceSnapshot(), distance.Euclidean)

			results, err := idx.Query(ctx, vector.Embedding{0, 1}, 4)
			Expect(err).NotTo(HaveOccurred())
			Expect(ids(results)).To(Equal([]string{"D", "B", "A", "C"}))
			Expect(results[0].Distance).To(BeZero())
		})

		It("truncates to the corpus size when k exceeds it", func() {
			idx := index.Build(referenceSnapshot(), distance.Cosine)

			results, err := idx.Query(ctx, vector.Embedding{1, 0}, 10)
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(HaveLen(4))
			Expect(ids(results)).To(Equal([]string{"A", "B", "D", "C"}))
		})

		It("breaks distance ties by ascending id", func() {
			snap, err := vector.NewSnapshot(2,
				vector.Document{ID: "z", Embedding: vector.Embedding{0, 1}},
				vector.Document{ID: "m", Embedding: vector.Embedding{0, -1}},
				vector.Document{ID: "a", Embedding: vector.Embedding{0, 1}},
			)
			Expect(err).NotTo(HaveOccurred())
			idx := index.Build(snap, distance.Cosine)

			results, err := idx.Query(ctx, vector.Embedding{1, 0}, 2)
			Expect(err).NotTo(HaveOccurred())
			Expect(ids(results)).To(Equal([]string{"a", "m"}))
		})

		It("returns an empty result for an empty corpus", func() {
			snap, err := vector.NewSnapshot(0)
			Expect(err).NotTo(HaveOccurred())

			results, err := index.Build(snap, distance.Cosine).Query(ctx, vector.Embedding{1, 2, 3}, 3)
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(BeEmpty())
		})

		It("rejects a query of the wrong dimensionality against an empty corpus", func() {
			snap, err := vector.NewSnapshot(2)
			Expect(err).NotTo(HaveOccurred())

			_, err = index.Build(snap, distance.Cosine).Query(ctx, vector.Embedding{1, 2, 3}, 1)
			Expect(err).To(MatchError(vector.ErrDimensionMismatch))
		})

		It("rejects a query with non-finite elements", func() {
			idx := index.Build(referenceSnapshot(), distance.Cosine)
			_, err := idx.Query(ctx, vector.Embedding{float32(math.NaN()), 0}, 1)
			Expect(err).To(MatchError(vector.ErrInvalidArgument))
		})

		It("rejects a non-positive k", func() {
			idx := index.Build(referenceSnapshot(), distance.Cosine)
			_, err := idx.Query(ctx, vector.Embedding{1, 0}, 0)
			Expect(err).To(MatchError(vector.ErrInvalidArgument))
		})

		It("rejects a query of the wrong dimensionality", func() {
			idx := index.Build(referenceSnapshot(), distance.Cosine)
			_, err := idx.Query(ctx, vector.Embedding{1, 0, 0}, 1)
			Expect(err).To(MatchError(vector.ErrDimensionMismatch))
		})

		It("stops on a cancelled context", func() {
			idx := index.Build(referenceSnapshot(), distance.Cosine)
			cctx, cancel := context.WithCancel(ctx)
			cancel()

			results, err := idx.Query(cctx, vector.Embedding{1, 0}, 1)
			Expect(err).To(MatchError(vector.ErrCancelled))
			Expect(err).To(MatchError(context.Canceled))
			Expect(results).To(BeNil())
		})

		It("agrees with a brute-force sort on random data", func() {
			r := rand.New(rand.NewPCG(1, 2))
			docs := make([]vector.Document, 500)
			for i := range docs {
				e := make(vector.Embedding, 8)
				for j := range e {
					e[j] = r.Float32()*2 - 1
				}
				docs[i] = vector.Document{ID: fmt.Sprintf("doc-%03d", i), Embedding: e}
			}
			snap, err := vector.NewSnapshot(8, docs...)
			Expect(err).NotTo(HaveOccurred())

			q := docs[17].Embedding
			results, err := index.Build(snap, distance.Cosine).Query(ctx, q, 10)
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(HaveLen(10))
			Expect(results[0].ID).To(Equal("doc-017"))

			for i := 1; i < len(results); i++ {
				Expect(results[i-1].Less(results[i])).To(BeTrue())
			}

			// Nothing outside the top 10 may be closer than the 10th result.
			worst := results[len(results)-1]
			returned := map[string]bool{}
			for _, n := range results {
				returned[n.ID] = true
			}
			for _, d := range docs {
				if returned[d.ID] {
					continue
				}
				dist, err := distance.CosineDistance(q, d.Embedding)
				Expect(err).NotTo(HaveOccurred())
				Expect(vector.Neighbor{ID: d.ID, Distance: dist}.Less(worst)).To(BeFalse())
			}
		})
	})

	Describe("QueryExcluding", func() {
		It("never returns the excluded id", func() {
			idx := index.Build(referenceSnapshot(), distance.Cosine)

			results, err := idx.QueryExcluding(ctx, vector.Embedding{1, 0}, 1, "A")
			Expect(err).NotTo(HaveOccurred())
			Expect(ids(results)).To(Equal([]string{"B"}))
		})

		It("returns N-1 results when k covers the corpus", func() {
			idx := index.Build(referenceSnapshot(), distance.Cosine)

			results, err := idx.QueryExcluding(ctx, vector.Embedding{0, 1}, 10, "D")
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(HaveLen(3))
			Expect(ids(results)).NotTo(ContainElement("D"))
		})
	})
})
