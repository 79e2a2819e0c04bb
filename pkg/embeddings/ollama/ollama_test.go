package ollama_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/lightwiki/pkg/embeddings/ollama"
	"github.com/papercomputeco/lightwiki/pkg/vector"
)

var _ = Describe("Embedder", func() {
	var (
		server  *httptest.Server
		handler http.HandlerFunc
	)

	BeforeEach(func() {
		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			handler(w, r)
		}))
	})

	AfterEach(func() {
		server.Close()
	})

	newEmbedder := func() *ollama.Embedder {
		e, err := ollama.NewEmbedder(ollama.EmbedderConfig{BaseURL: server.URL, Model: "all-minilm"})
		Expect(err).NotTo(HaveOccurred())
		return e
	}

	It("posts the model and input and returns the first embedding", func() {
		handler = func(w http.ResponseWriter, r *http.Request) {
			defer GinkgoRecover()
			Expect(r.Method).To(Equal(http.MethodPost))
			Expect(r.URL.Path).To(Equal("/api/embed"))

			var body map[string]string
			Expect(json.NewDecoder(r.Body).Decode(&body)).To(Succeed())
			Expect(body).To(Equal(map[string]string{"model": "all-minilm", "input": "kernel tuning"}))

			_, _ = w.Write([]byte(`{"embeddings":[[0.5,-0.25,1]]}`))
		}

		e, err := newEmbedder().Embed(context.Background(), "kernel tuning")
		Expect(err).NotTo(HaveOccurred())
		Expect(e).To(Equal([]float32{0.5, -0.25, 1}))
	})

	It("tags server errors as embedding unavailable", func() {
		handler = func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "model not found", http.StatusNotFound)
		}

		_, err := newEmbedder().Embed(context.Background(), "x")
		Expect(err).To(MatchError(vector.ErrEmbeddingUnavailable))
		Expect(err.Error()).To(ContainSubstring("model not found"))
	})

	It("tags empty responses as embedding unavailable", func() {
		handler = func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"embeddings":[]}`))
		}

		_, err := newEmbedder().Embed(context.Background(), "x")
		Expect(err).To(MatchError(vector.ErrEmbeddingUnavailable))
	})

	It("reports cancellation rather than unavailability", func() {
		handler = func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"embeddings":[[1]]}`))
		}
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := newEmbedder().Embed(ctx, "x")
		Expect(err).To(MatchError(vector.ErrCancelled))
		Expect(err).NotTo(MatchError(vector.ErrEmbeddingUnavailable))
	})

	It("applies defaults", func() {
		e, err := ollama.NewEmbedder(ollama.EmbedderConfig{})
		Expect(err).NotTo(HaveOccurred())
		Expect(e).NotTo(BeNil())
		Expect(e.Close()).To(Succeed())
	})
})
