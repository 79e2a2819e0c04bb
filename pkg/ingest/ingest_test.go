package ingest_test

import (
	"context"
	"errors"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/lightwiki/pkg/ingest"
	"github.com/papercomputeco/lightwiki/pkg/logger"
	"github.com/papercomputeco/lightwiki/pkg/storage/inmemory"
	testutils "github.com/papercomputeco/lightwiki/pkg/utils/test"
	"github.com/papercomputeco/lightwiki/pkg/vector"
)

const export = `[
  {
    "title": "Attention Is All You Need",
    "date": "2024-03-01",
    "authors": ["A Vaswani"],
    "tags": ["transformers"],
    "pagecontent": "## Abstract\nThe dominant sequence transduction models...",
    "page": {"url": "https://example.org/attention"}
  },
  {
    "title": "",
    "date": "not a date",
    "authors": [],
    "tags": [],
    "pagecontent": "",
    "page": {"url": "https://example.org/empty"}
  },
  {
    "title": "Graph Networks",
    "date": "2024-03-02",
    "authors": [],
    "tags": [],
    "pagecontent": "Relational inductive biases.",
    "page": {"url": "https://example.org/graphs"}
  }
]`

var _ = Describe("ParsePages", func() {
	It("decodes the scraper export", func() {
		pages, err := ingest.ParsePages(strings.NewReader(export))
		Expect(err).NotTo(HaveOccurred())
		Expect(pages).To(HaveLen(3))
		Expect(pages[0].Title).To(Equal("Attention Is All You Need"))
		Expect(pages[0].Page.URL).To(Equal("https://example.org/attention"))
		Expect(pages[0].Tags).To(ConsistOf("transformers"))
	})

	It("rejects malformed exports as decode errors", func() {
		_, err := ingest.ParsePages(strings.NewReader(`{"title": "not an array"}`))
		Expect(err).To(MatchError(vector.ErrDecode))
	})
})

var _ = Describe("ScrapedPage", func() {
	It("derives ids from the URL", func() {
		a := ingest.ScrapedPage{Title: "A"}
		a.Page.URL = "https://example.org/a"
		b := ingest.ScrapedPage{Title: "B"}
		b.Page.URL = "https://example.org/a"

		Expect(ingest.DocumentID(a)).To(Equal(ingest.DocumentID(b)))
	})

	It("falls back to the title when there is no URL", func() {
		a := ingest.ScrapedPage{Title: "A"}
		b := ingest.ScrapedPage{Title: "B"}
		Expect(ingest.DocumentID(a)).NotTo(Equal(ingest.DocumentID(b)))
	})

	It("parses the scraped date", func() {
		p := ingest.ScrapedPage{Title: "A", Date: "2024-03-01"}
		Expect(p.StoragePage().CreatedAt.Format("2006-01-02")).To(Equal("2024-03-01"))

		p.Date = "yesterday"
		Expect(p.StoragePage().CreatedAt.IsZero()).To(BeTrue())
	})
})

var _ = Describe("Ingester", func() {
	var (
		pages    []ingest.ScrapedPage
		driver   *inmemory.Driver
		embedder *testutils.MockEmbedder
	)

	BeforeEach(func() {
		var err error
		pages, err = ingest.ParsePages(strings.NewReader(export))
		Expect(err).NotTo(HaveOccurred())

		driver = inmemory.NewDriver(vector.FormatRaw)
		embedder = testutils.NewMockEmbedder()
	})

	newIngester := func() *ingest.Ingester {
		in, err := ingest.New(&ingest.Config{
			Pages:      driver,
			Sink:       driver,
			Embedder:   embedder,
			NumWorkers: 2,
			BatchSize:  1,
			Logger:     logger.Nop(),
		})
		Expect(err).NotTo(HaveOccurred())
		return in
	}

	It("embeds pages with text and saves every page", func() {
		report, err := newIngester().Run(context.Background(), pages)
		Expect(err).NotTo(HaveOccurred())
		Expect(report).To(Equal(ingest.Report{Embedded: 2, Skipped: 1}))
		Expect(embedder.Calls).To(HaveLen(2))

		store, err := vector.Load(context.Background(), driver, vector.LoadOptions{})
		Expect(err).NotTo(HaveOccurred())
		Expect(store.Count()).To(Equal(2))

		id := ingest.DocumentID(pages[0])
		saved, err := driver.Pages(context.Background(), []string{id})
		Expect(err).NotTo(HaveOccurred())
		page := saved[id]
		Expect(page.Title).To(Equal("Attention Is All You Need"))
		Expect(page.URL).To(Equal("https://example.org/attention"))
	})

	It("counts embedding failures without aborting", func() {
		embedder.FailOn = pages[2].Text()

		report, err := newIngester().Run(context.Background(), pages)
		Expect(err).NotTo(HaveOccurred())
		Expect(report).To(Equal(ingest.Report{Embedded: 1, Skipped: 1, Failed: 1}))
	})

	It("aborts on sink failures", func() {
		sink := testutils.NewMockSource()
		sink.UpsertErr = errors.New("disk full")

		in, err := ingest.New(&ingest.Config{
			Sink:     sink,
			Embedder: embedder,
			Logger:   logger.Nop(),
		})
		Expect(err).NotTo(HaveOccurred())

		_, err = in.Run(context.Background(), pages)
		Expect(err).To(MatchError(ContainSubstring("disk full")))
	})

	It("returns cancellation when the context is done", func() {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := newIngester().Run(ctx, pages)
		Expect(err).To(MatchError(vector.ErrCancelled))
	})

	It("requires a sink and an embedder", func() {
		_, err := ingest.New(&ingest.Config{Embedder: embedder})
		Expect(err).To(MatchError(vector.ErrInvalidArgument))

		_, err = ingest.New(&ingest.Config{Sink: driver})
		Expect(err).To(MatchError(vector.ErrEmbeddingUnavailable))
	})
})
