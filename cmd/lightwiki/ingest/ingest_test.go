package ingestcmder_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spf13/cobra"

	ingestcmder "github.com/papercomputeco/lightwiki/cmd/lightwiki/ingest"
	"github.com/papercomputeco/lightwiki/pkg/ingest"
	"github.com/papercomputeco/lightwiki/pkg/storage/pagesql"
	"github.com/papercomputeco/lightwiki/pkg/storage/sqlite"
)

const pagesJSON = `[
  {"title": "Attention", "date": "2024-03-01", "tags": ["ml"], "pagecontent": "Attention is all you need.", "page": {"url": "https://wiki.example/attention"}},
  {"title": "Graphs", "date": "2024-03-02", "pagecontent": "Graph neural networks.", "page": {"url": "https://wiki.example/graphs"}},
  {"title": "", "pagecontent": "", "page": {"url": "https://wiki.example/empty"}}
]`

func fakeOllama() *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"embeddings": [][]float32{{0.5, 0.5, 0}}})
	}))
}

var _ = Describe("ingest command", func() {
	var (
		dir    string
		server *httptest.Server
	)

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
		server = fakeOllama()
		DeferCleanup(server.Close)
	})

	newCmd := func(out *bytes.Buffer, stdin string, args ...string) *cobra.Command {
		cmd := ingestcmder.NewIngestCmd()
		cmd.PersistentFlags().BoolP("debug", "d", false, "")
		cmd.PersistentFlags().String("config-dir", "", "")
		cmd.SetOut(out)
		cmd.SetErr(&bytes.Buffer{})
		cmd.SetIn(strings.NewReader(stdin))
		cmd.SetArgs(append(args, "--config-dir", dir, "--embedding-target", server.URL))
		return cmd
	}

	It("embeds pages from a file into the pages database", func() {
		path := filepath.Join(dir, "pages.json")
		Expect(os.WriteFile(path, []byte(pagesJSON), 0o600)).To(Succeed())

		out := &bytes.Buffer{}
		Expect(newCmd(out, "", path, "--json").Execute()).To(Succeed())

		var report ingest.Report
		Expect(json.Unmarshal(out.Bytes(), &report)).To(Succeed())
		Expect(report).To(Equal(ingest.Report{Embedded: 2, Skipped: 1}))

		ctx := context.Background()
		d, err := sqlite.NewSQLiteDriver(ctx, filepath.Join(dir, "lightwiki.sqlite"), pagesql.Config{})
		Expect(err).NotTo(HaveOccurred())
		defer d.Close()

		records, err := d.LoadAll(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(records).To(HaveLen(2))

		id := ingest.DocumentID(ingest.ScrapedPage{Page: struct {
			URL string `json:"url"`
		}{URL: "https://wiki.example/attention"}})
		saved, err := d.Pages(ctx, []string{id})
		Expect(err).NotTo(HaveOccurred())
		Expect(saved[id].Title).To(Equal("Attention"))
	})

	It("reads pages from stdin", func() {
		out := &bytes.Buffer{}
		Expect(newCmd(out, pagesJSON, "-").Execute()).To(Succeed())
		Expect(out.String()).To(ContainSubstring("embedded"))
	})

	It("copies logs as JSON to --log-file", func() {
		logPath := filepath.Join(dir, "ingest.log")
		Expect(newCmd(&bytes.Buffer{}, pagesJSON, "-", "--log-file", logPath).Execute()).To(Succeed())

		data, err := os.ReadFile(logPath)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(data)).To(ContainSubstring(`"msg":"ingest complete"`))
	})

	It("fails on malformed input", func() {
		err := newCmd(&bytes.Buffer{}, "{not json", "-").Execute()
		Expect(err).To(HaveOccurred())
	})

	It("fails on a missing file", func() {
		err := newCmd(&bytes.Buffer{}, "", filepath.Join(dir, "missing.json")).Execute()
		Expect(err).To(HaveOccurred())
	})
})
