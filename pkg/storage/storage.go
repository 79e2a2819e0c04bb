// Package storage holds the page metadata that search results are resolved
// against, and the embeddings column the vector store is loaded from.
package storage

import (
	"context"
	"time"

	"github.com/papercomputeco/lightwiki/pkg/vector"
)

// Page is one wiki page's metadata.
type Page struct {
	// ID is the stable document id shared with the vector store.
	ID string `json:"id"`

	Title     string    `json:"title"`
	URL       string    `json:"url,omitempty"`
	Content   string    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

// PageReader resolves document ids to page metadata for display.
type PageReader interface {
	// Pages returns the pages with the given ids. Unknown ids are omitted from
	// the result rather than reported as errors.
	Pages(ctx context.Context, ids []string) (map[string]Page, error)
}

// PageWriter persists page metadata.
type PageWriter interface {
	// SavePages inserts pages, replacing the metadata of existing ids. Stored
	// embeddings are left untouched.
	SavePages(ctx context.Context, pages []Page) error
}

// Driver is a full pages backend: page metadata plus the embeddings column,
// exposed as a vector.Source and vector.Sink.
type Driver interface {
	PageReader
	PageWriter
	vector.Source
	vector.Sink
}
