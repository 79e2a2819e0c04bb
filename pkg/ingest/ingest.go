// Package ingest embeds scraped wiki pages and writes them to the pages store
// and the embedding backend.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/papercomputeco/lightwiki/pkg/embeddings"
	"github.com/papercomputeco/lightwiki/pkg/storage"
	"github.com/papercomputeco/lightwiki/pkg/utils"
	"github.com/papercomputeco/lightwiki/pkg/vector"
)

var (
	defaultNumWorkers uint = 3
	defaultBatchSize       = 64
	defaultMaxChars        = 8000
)

// Config is the configuration for an Ingester.
type Config struct {
	// Pages receives page metadata. Optional.
	Pages storage.PageWriter

	// Sink receives the embeddings.
	Sink vector.Sink

	// Embedder turns page text into embeddings.
	Embedder embeddings.Embedder

	// NumWorkers bounds concurrent embedding requests (defaults to 3).
	NumWorkers uint

	// BatchSize is the number of documents per Upsert (defaults to 64).
	BatchSize int

	// MaxChars truncates page text before embedding (defaults to 8000 runes).
	MaxChars int

	Logger *slog.Logger
}

// Report summarizes an ingest run.
type Report struct {
	Embedded int `json:"embedded"`
	Skipped  int `json:"skipped"`
	Failed   int `json:"failed"`
}

// Ingester embeds pages with a bounded pool of workers.
type Ingester struct {
	config *Config
	logger *slog.Logger
}

// New validates c and applies defaults.
func New(c *Config) (*Ingester, error) {
	if c.Sink == nil {
		return nil, fmt.Errorf("%w: ingest requires an embedding sink", vector.ErrInvalidArgument)
	}
	if c.Embedder == nil {
		return nil, fmt.Errorf("%w: ingest requires an embedder", vector.ErrEmbeddingUnavailable)
	}
	if c.NumWorkers == 0 {
		c.NumWorkers = defaultNumWorkers
	}
	if c.NumWorkers > uint(math.MaxInt) {
		return nil, fmt.Errorf("%w: NumWorkers %d exceeds max int", vector.ErrInvalidArgument, c.NumWorkers)
	}
	if c.BatchSize <= 0 {
		c.BatchSize = defaultBatchSize
	}
	if c.MaxChars <= 0 {
		c.MaxChars = defaultMaxChars
	}

	logger := c.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Ingester{config: c, logger: logger}, nil
}

// Run saves page metadata, embeds every page with text and upserts the
// embeddings. A page whose embedding fails is logged and counted in
// Report.Failed; storage failures and cancellation abort the run.
func (in *Ingester) Run(ctx context.Context, pages []ScrapedPage) (Report, error) {
	var report Report

	if in.config.Pages != nil && len(pages) > 0 {
		meta := make([]storage.Page, len(pages))
		for i, p := range pages {
			meta[i] = p.StoragePage()
		}
		if err := in.config.Pages.SavePages(ctx, meta); err != nil {
			return report, err
		}
		in.logger.Debug("saved page metadata", "count", len(meta))
	}

	var (
		mu   sync.Mutex
		docs = make([]vector.Document, 0, len(pages))
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(int(in.config.NumWorkers))

	for _, p := range pages {
		text := p.Text()
		id := DocumentID(p)
		if text == "" {
			in.logger.Debug("skipping page with no text content", "id", id)
			mu.Lock()
			report.Skipped++
			mu.Unlock()
			continue
		}

		g.Go(func() error {
			if err := vector.Cancelled(gctx); err != nil {
				return err
			}

			embedding, err := in.config.Embedder.Embed(gctx, utils.Truncate(text, in.config.MaxChars))
			if err != nil {
				if errors.Is(err, vector.ErrCancelled) || gctx.Err() != nil {
					return vector.Cancelled(gctx)
				}
				in.logger.Warn("failed to generate embedding",
					"id", id,
					"title", p.Title,
					"error", err,
				)
				mu.Lock()
				report.Failed++
				mu.Unlock()
				return nil
			}

			mu.Lock()
			docs = append(docs, vector.Document{ID: id, Embedding: embedding})
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		if cerr := vector.Cancelled(ctx); cerr != nil {
			return report, cerr
		}
		return report, err
	}

	for start := 0; start < len(docs); start += in.config.BatchSize {
		end := min(start+in.config.BatchSize, len(docs))
		if err := in.config.Sink.Upsert(ctx, docs[start:end]); err != nil {
			return report, err
		}
		report.Embedded += end - start
	}

	in.logger.Info("ingest complete",
		"embedded", report.Embedded,
		"skipped", report.Skipped,
		"failed", report.Failed,
	)

	return report, nil
}
