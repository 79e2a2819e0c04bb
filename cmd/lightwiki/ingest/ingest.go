// Package ingestcmder provides the ingest command for embedding scraped wiki
// pages into the configured stores.
package ingestcmder

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/lightwiki/cmd/lightwiki/backend"
	"github.com/papercomputeco/lightwiki/pkg/cliui"
	"github.com/papercomputeco/lightwiki/pkg/config"
	"github.com/papercomputeco/lightwiki/pkg/ingest"
)

type ingestCommander struct {
	path        string
	concurrency uint
	batchSize   int
	json        bool

	settings *backend.Settings
	logger   *slog.Logger
	in       io.Reader
	out      io.Writer
}

const ingestLongDesc string = `Embed scraped wiki pages.

Reads a JSON array of scraped pages (title, date, authors, tags,
pagecontent and page.url), saves their metadata to the pages database and
writes one embedding per page to the configured embedding backend.
Re-ingesting a page replaces its previous embedding. Pass "-" to read
pages from stdin.

Pages that fail to embed are logged and counted; the run continues.

Examples:
  lightwiki ingest pages.json
  lightwiki ingest pages.json --concurrency 8
  cat pages.json | lightwiki ingest - --vector-store-provider qdrant`

const ingestShortDesc string = "Embed scraped wiki pages"

var ingestFlags = backend.ConnectionFlags

func NewIngestCmd() *cobra.Command {
	cmder := &ingestCommander{}

	cmd := &cobra.Command{
		Use:   "ingest <pages.json>",
		Short: ingestShortDesc,
		Long:  ingestLongDesc,
		Args:  cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.settings, err = backend.LoadSettings(cmd, ingestFlags...)
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cmder.path = args[0]
			cmder.in = cmd.InOrStdin()
			cmder.out = cmd.OutOrStdout()
			var err error
			if cmder.logger, err = cmder.settings.Logger(); err != nil {
				return err
			}
			defer cmder.settings.Close()
			return cmder.run(cmd.Context())
		},
	}

	config.AddFlags(cmd, config.Flags, ingestFlags...)
	cmd.Flags().UintVarP(&cmder.concurrency, "concurrency", "c", 3, "Concurrent embedding requests")
	cmd.Flags().IntVar(&cmder.batchSize, "batch-size", 64, "Documents per embedding backend upsert")
	cmd.Flags().BoolVar(&cmder.json, "json", false, "Output the ingest report as JSON")
	backend.AddLogFileFlag(cmd)

	return cmd
}

func (c *ingestCommander) run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	pages, err := c.readPages()
	if err != nil {
		return err
	}

	cfg := c.settings.Config
	b, err := backend.Open(ctx, cfg, c.settings.ConfigDir, c.logger)
	if err != nil {
		return err
	}
	defer b.Close()

	embedder, err := backend.NewEmbedder(cfg)
	if err != nil {
		return err
	}
	defer embedder.Close()

	in, err := ingest.New(&ingest.Config{
		Pages:      b.Pages,
		Sink:       b.Vectors,
		Embedder:   embedder,
		NumWorkers: c.concurrency,
		BatchSize:  c.batchSize,
		Logger:     c.logger,
	})
	if err != nil {
		return err
	}

	start := time.Now()
	var report ingest.Report
	if err := cliui.Step(c.stepWriter(), fmt.Sprintf("Embedding %d pages", len(pages)), func() error {
		report, err = in.Run(ctx, pages)
		return err
	}); err != nil {
		return err
	}

	if c.json {
		enc := json.NewEncoder(c.out)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}

	fmt.Fprintf(c.out, "\n  %s %s embedded, %s skipped, %s failed in %s\n\n",
		cliui.Mark(nil),
		cliui.ValueStyle.Render(fmt.Sprint(report.Embedded)),
		cliui.ValueStyle.Render(fmt.Sprint(report.Skipped)),
		cliui.ValueStyle.Render(fmt.Sprint(report.Failed)),
		cliui.FormatDuration(time.Since(start)),
	)
	return nil
}

func (c *ingestCommander) readPages() ([]ingest.ScrapedPage, error) {
	if c.path == "-" {
		return ingest.ParsePages(c.in)
	}

	f, err := os.Open(c.path)
	if err != nil {
		return nil, fmt.Errorf("opening pages file: %w", err)
	}
	defer f.Close()

	return ingest.ParsePages(f)
}

// stepWriter keeps the spinner off stdout when the report is JSON.
func (c *ingestCommander) stepWriter() io.Writer {
	if c.json {
		return io.Discard
	}
	return c.out
}
