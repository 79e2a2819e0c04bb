package search

import (
	"context"
	"log/slog"
	"time"

	"github.com/papercomputeco/lightwiki/pkg/storage"
	"github.com/papercomputeco/lightwiki/pkg/vector"
)

// Result is a ranked search hit with its page metadata.
type Result struct {
	ID        string    `json:"id"`
	Distance  float64   `json:"distance"`
	Title     string    `json:"title"`
	URL       string    `json:"url,omitempty"`
	CreatedAt time.Time `json:"created_at"`

	// Resolved is false when the page metadata could not be found.
	Resolved bool `json:"resolved"`
}

// Output is a complete search response.
type Output struct {
	Query   string   `json:"query"`
	Results []Result `json:"results"`
	Count   int      `json:"count"`
}

// Resolve attaches page metadata to ranked neighbors, keeping their order.
// Ids the reader does not know are kept with Resolved unset.
func Resolve(ctx context.Context, query string, neighbors []vector.Neighbor, reader storage.PageReader, logger *slog.Logger) (*Output, error) {
	ids := make([]string, len(neighbors))
	for i, n := range neighbors {
		ids[i] = n.ID
	}

	pages, err := reader.Pages(ctx, ids)
	if err != nil {
		return nil, err
	}

	results := make([]Result, 0, len(neighbors))
	for _, n := range neighbors {
		r := Result{ID: n.ID, Distance: n.Distance}
		if p, ok := pages[n.ID]; ok {
			r.Title = p.Title
			r.URL = p.URL
			r.CreatedAt = p.CreatedAt
			r.Resolved = true
		} else if logger != nil {
			logger.Warn("no page metadata for search result", "id", n.ID)
		}
		results = append(results, r)
	}

	return &Output{
		Query:   query,
		Results: results,
		Count:   len(results),
	}, nil
}
