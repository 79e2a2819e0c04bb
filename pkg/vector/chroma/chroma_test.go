package chroma_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/lightwiki/pkg/logger"
	"github.com/papercomputeco/lightwiki/pkg/vector"
	"github.com/papercomputeco/lightwiki/pkg/vector/chroma"
)

// fakeChroma serves the subset of the Chroma v2 collection API the driver uses.
type fakeChroma struct {
	mu   sync.Mutex
	ids  []string
	embs map[string][]float32
}

func newFakeChroma() *fakeChroma {
	return &fakeChroma{embs: map[string][]float32{}}
}

func (f *fakeChroma) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	switch {
	case r.Method == http.MethodGet && strings.HasSuffix(r.URL.Path, "/collections/lightwiki"):
		json.NewEncoder(w).Encode(map[string]string{"id": "cid", "name": "lightwiki"})

	case strings.HasSuffix(r.URL.Path, "/cid/upsert"):
		var req struct {
			IDs        []string    `json:"ids"`
			Embeddings [][]float32 `json:"embeddings"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		for i, id := range req.IDs {
			if _, ok := f.embs[id]; !ok {
				f.ids = append(f.ids, id)
			}
			f.embs[id] = req.Embeddings[i]
		}
		w.Write([]byte("{}"))

	case strings.HasSuffix(r.URL.Path, "/cid/get"):
		var req struct {
			Limit  int `json:"limit"`
			Offset int `json:"offset"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		end := min(req.Offset+req.Limit, len(f.ids))
		start := min(req.Offset, end)
		resp := struct {
			IDs        []string    `json:"ids"`
			Embeddings [][]float32 `json:"embeddings"`
		}{IDs: []string{}, Embeddings: [][]float32{}}
		for _, id := range f.ids[start:end] {
			resp.IDs = append(resp.IDs, id)
			resp.Embeddings = append(resp.Embeddings, f.embs[id])
		}
		json.NewEncoder(w).Encode(resp)

	default:
		http.NotFound(w, r)
	}
}

var _ = Describe("Driver", func() {
	var log *slog.Logger

	BeforeEach(func() {
		log = logger.Nop()
	})

	Describe("NewDriver", func() {
		It("should return an error when URL is empty", func() {
			_, err := chroma.NewDriver(chroma.Config{URL: ""}, log)
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("chroma URL is required"))
		})

		It("should succeed after retrying when Chroma becomes available", func() {
			var attempts atomic.Int32

			// Each retry cycle is a GET for the collection followed by a POST
			// to create it. Fail the first two cycles.
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				attempt := attempts.Add(1)
				if attempt <= 4 {
					http.Error(w, "service unavailable", http.StatusServiceUnavailable)
					return
				}

				w.Header().Set("Content-Type", "application/json")
				json.NewEncoder(w).Encode(map[string]string{
					"id":   "test-collection-id",
					"name": "lightwiki",
				})
			}))
			defer server.Close()

			driver, err := chroma.NewDriver(chroma.Config{
				URL:           server.URL,
				MaxRetries:    5,
				RetryDelay:    10 * time.Millisecond,
				MaxRetryDelay: 50 * time.Millisecond,
			}, log)
			Expect(err).NotTo(HaveOccurred())
			Expect(driver).NotTo(BeNil())
			Expect(attempts.Load()).To(BeNumerically(">=", int32(5)))
		})

		It("should return a storage error after exhausting all retries", func() {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "service unavailable", http.StatusServiceUnavailable)
			}))
			defer server.Close()

			_, err := chroma.NewDriver(chroma.Config{
				URL:           server.URL,
				MaxRetries:    3,
				RetryDelay:    10 * time.Millisecond,
				MaxRetryDelay: 50 * time.Millisecond,
			}, log)
			Expect(err).To(MatchError(vector.ErrStorage))
			Expect(err.Error()).To(ContainSubstring("after 3 attempts"))
		})
	})

	Describe("Upsert and LoadAll", func() {
		var (
			server *httptest.Server
			driver *chroma.Driver
		)

		BeforeEach(func() {
			server = httptest.NewServer(newFakeChroma())
			DeferCleanup(server.Close)

			var err error
			driver, err = chroma.NewDriver(chroma.Config{URL: server.URL, PageSize: 2}, log)
			Expect(err).NotTo(HaveOccurred())
		})

		It("should round trip embeddings across pages", func() {
			ctx := context.Background()
			Expect(driver.Upsert(ctx, []vector.Document{
				{ID: "a", Embedding: vector.Embedding{1, 0}},
				{ID: "b", Embedding: vector.Embedding{0.9, 0.1}},
				{ID: "c", Embedding: vector.Embedding{-1, 0}},
			})).To(Succeed())

			store, err := vector.Load(ctx, driver, vector.LoadOptions{Format: vector.FormatRaw})
			Expect(err).NotTo(HaveOccurred())
			Expect(store.Count()).To(Equal(3))

			e, ok := store.Get("c")
			Expect(ok).To(BeTrue())
			Expect(e).To(Equal(vector.Embedding{-1, 0}))
		})

		It("should replace an existing embedding", func() {
			ctx := context.Background()
			Expect(driver.Upsert(ctx, []vector.Document{{ID: "a", Embedding: vector.Embedding{1, 0}}})).To(Succeed())
			Expect(driver.Upsert(ctx, []vector.Document{{ID: "a", Embedding: vector.Embedding{0, 1}}})).To(Succeed())

			records, err := driver.LoadAll(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(records).To(HaveLen(1))
			Expect(records[0].Blob).To(Equal(vector.FormatRaw.Encode(vector.Embedding{0, 1})))
		})

		It("should report a stopped server as a storage error", func() {
			server.Close()
			_, err := driver.LoadAll(context.Background())
			Expect(err).To(MatchError(vector.ErrStorage))
		})
	})
})
