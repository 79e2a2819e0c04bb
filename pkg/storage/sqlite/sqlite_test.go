package sqlite_test

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/lightwiki/pkg/logger"
	"github.com/papercomputeco/lightwiki/pkg/storage"
	"github.com/papercomputeco/lightwiki/pkg/storage/pagesql"
	"github.com/papercomputeco/lightwiki/pkg/storage/sqlite"
	"github.com/papercomputeco/lightwiki/pkg/vector"
)

var _ = Describe("SQLiteDriver", func() {
	var (
		driver *sqlite.SQLiteDriver
		ctx    context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		var err error
		driver, err = sqlite.NewSQLiteDriver(ctx, ":memory:", pagesql.Config{Logger: logger.Nop()})
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		if driver != nil {
			driver.Close()
		}
	})

	Describe("NewSQLiteDriver", func() {
		It("requires a path", func() {
			_, err := sqlite.NewSQLiteDriver(ctx, "", pagesql.Config{})
			Expect(err).To(MatchError(vector.ErrInvalidArgument))
		})

		It("creates a driver with file database", func() {
			dbPath := filepath.Join(GinkgoT().TempDir(), "wiki.db")
			d, err := sqlite.NewSQLiteDriver(ctx, dbPath, pagesql.Config{})
			Expect(err).NotTo(HaveOccurred())
			Expect(d.Close()).To(Succeed())

			// Reopening an existing database keeps the schema.
			d, err = sqlite.NewSQLiteDriver(ctx, dbPath, pagesql.Config{})
			Expect(err).NotTo(HaveOccurred())
			Expect(d.Close()).To(Succeed())
		})
	})

	Describe("pages", func() {
		It("saves and resolves page metadata", func() {
			created := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
			Expect(driver.SavePages(ctx, []storage.Page{
				{ID: "1", Title: "Kernel tuning", URL: "https://wiki/kernel", CreatedAt: created},
				{ID: "2", Title: "Backups"},
			})).To(Succeed())

			pages, err := driver.Pages(ctx, []string{"1", "2", "3"})
			Expect(err).NotTo(HaveOccurred())
			Expect(pages).To(HaveLen(2))
			Expect(pages["1"].Title).To(Equal("Kernel tuning"))
			Expect(pages["1"].URL).To(Equal("https://wiki/kernel"))
			Expect(pages["1"].CreatedAt.Equal(created)).To(BeTrue())
		})

		It("replaces metadata on conflict", func() {
			Expect(driver.SavePages(ctx, []storage.Page{{ID: "1", Title: "Old"}})).To(Succeed())
			Expect(driver.SavePages(ctx, []storage.Page{{ID: "1", Title: "New"}})).To(Succeed())

			pages, err := driver.Pages(ctx, []string{"1"})
			Expect(err).NotTo(HaveOccurred())
			Expect(pages["1"].Title).To(Equal("New"))
		})

		It("keeps the last copy of an id repeated in one batch", func() {
			Expect(driver.SavePages(ctx, []storage.Page{
				{ID: "1", Title: "First"},
				{ID: "2", Title: "Other"},
				{ID: "1", Title: "Second"},
			})).To(Succeed())

			pages, err := driver.Pages(ctx, []string{"1", "2"})
			Expect(err).NotTo(HaveOccurred())
			Expect(pages).To(HaveLen(2))
			Expect(pages["1"].Title).To(Equal("Second"))
		})

		It("writes batches larger than one insert statement", func() {
			batch := make([]storage.Page, 300)
			ids := make([]string, len(batch))
			for i := range batch {
				ids[i] = fmt.Sprintf("page-%03d", i)
				batch[i] = storage.Page{ID: ids[i], Title: ids[i]}
			}
			Expect(driver.SavePages(ctx, batch)).To(Succeed())

			pages, err := driver.Pages(ctx, ids)
			Expect(err).NotTo(HaveOccurred())
			Expect(pages).To(HaveLen(300))
		})

		It("rejects pages without an id", func() {
			Expect(driver.SavePages(ctx, []storage.Page{{Title: "x"}})).To(MatchError(vector.ErrInvalidArgument))
		})
	})

	Describe("embeddings", func() {
		It("loads upserted embeddings in id order", func() {
			Expect(driver.Upsert(ctx, []vector.Document{
				{ID: "b", Embedding: vector.Embedding{0, 1}},
				{ID: "a", Embedding: vector.Embedding{1, 0}},
			})).To(Succeed())

			records, err := driver.LoadAll(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(records).To(HaveLen(2))
			Expect(records[0].ID).To(Equal("a"))
			Expect(records[0].Blob).To(Equal(vector.FormatRaw.Encode(vector.Embedding{1, 0})))
		})

		It("skips pages without embeddings", func() {
			Expect(driver.SavePages(ctx, []storage.Page{{ID: "meta-only", Title: "x"}})).To(Succeed())

			records, err := driver.LoadAll(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(records).To(BeEmpty())
		})

		It("keeps metadata when embeddings change", func() {
			Expect(driver.SavePages(ctx, []storage.Page{{ID: "1", Title: "Home"}})).To(Succeed())
			Expect(driver.Upsert(ctx, []vector.Document{{ID: "1", Embedding: vector.Embedding{1}}})).To(Succeed())

			pages, err := driver.Pages(ctx, []string{"1"})
			Expect(err).NotTo(HaveOccurred())
			Expect(pages["1"].Title).To(Equal("Home"))

			records, err := driver.LoadAll(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(records).To(HaveLen(1))
		})

		It("surfaces corrupt blobs through the vector loader", func() {
			dbPath := filepath.Join(GinkgoT().TempDir(), "wiki.db")
			d, err := sqlite.NewSQLiteDriver(ctx, dbPath, pagesql.Config{})
			Expect(err).NotTo(HaveOccurred())
			defer d.Close()

			raw, err := sql.Open("sqlite3", dbPath)
			Expect(err).NotTo(HaveOccurred())
			defer raw.Close()
			_, err = raw.Exec(`INSERT INTO pages (id, title, url, content, created_at, embedding)
VALUES ('bad', '', '', '', CURRENT_TIMESTAMP, x'010203040506')`)
			Expect(err).NotTo(HaveOccurred())

			_, err = vector.Load(ctx, d, vector.LoadOptions{})
			Expect(err).To(MatchError(vector.ErrDecode))
		})

		It("writes the configured blob format", func() {
			d, err := sqlite.NewSQLiteDriver(ctx, ":memory:", pagesql.Config{Format: vector.FormatPrefixed})
			Expect(err).NotTo(HaveOccurred())
			defer d.Close()

			Expect(d.Upsert(ctx, []vector.Document{{ID: "1", Embedding: vector.Embedding{1, 2}}})).To(Succeed())

			store, err := vector.Load(ctx, d, vector.LoadOptions{Format: vector.FormatPrefixed})
			Expect(err).NotTo(HaveOccurred())
			e, _ := store.Get("1")
			Expect(e).To(Equal(vector.Embedding{1, 2}))
		})
	})
})
