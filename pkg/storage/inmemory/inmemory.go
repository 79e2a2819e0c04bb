// Package inmemory provides a map-backed pages driver for tests and one-off
// runs.
package inmemory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/papercomputeco/lightwiki/pkg/storage"
	"github.com/papercomputeco/lightwiki/pkg/vector"
)

// Driver implements storage.Driver using in-memory maps.
type Driver struct {
	// mu is a read write sync mutex guarding pages and embeddings
	mu sync.RWMutex

	// pages is the in memory map of page metadata keyed by id
	pages map[string]storage.Page

	// embeddings holds encoded embedding blobs keyed by id
	embeddings map[string][]byte

	format vector.BlobFormat
}

// NewDriver creates a new in-memory driver that stores blobs in format.
func NewDriver(format vector.BlobFormat) *Driver {
	return &Driver{
		pages:      make(map[string]storage.Page),
		embeddings: make(map[string][]byte),
		format:     format,
	}
}

// SavePages stores page metadata, replacing existing entries.
func (s *Driver) SavePages(_ context.Context, pages []storage.Page) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range pages {
		if p.ID == "" {
			return fmt.Errorf("%w: page id is required", vector.ErrInvalidArgument)
		}
		s.pages[p.ID] = p
	}
	return nil
}

// Pages returns the known pages among ids.
func (s *Driver) Pages(_ context.Context, ids []string) (map[string]storage.Page, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]storage.Page, len(ids))
	for _, id := range ids {
		if p, ok := s.pages[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

// Upsert stores the embeddings of docs. Pages without metadata get an entry
// holding only the id.
func (s *Driver) Upsert(_ context.Context, docs []vector.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, d := range docs {
		s.embeddings[d.ID] = s.format.Encode(d.Embedding)
		if _, ok := s.pages[d.ID]; !ok {
			s.pages[d.ID] = storage.Page{ID: d.ID}
		}
	}
	return nil
}

// LoadAll returns every stored embedding blob ordered by id.
func (s *Driver) LoadAll(_ context.Context) ([]vector.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.embeddings))
	for id := range s.embeddings {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	records := make([]vector.Record, len(ids))
	for i, id := range ids {
		records[i] = vector.Record{ID: id, Blob: s.embeddings[id]}
	}
	return records, nil
}

// Close is a no-op for the in-memory driver.
func (s *Driver) Close() error {
	return nil
}

var _ storage.Driver = (*Driver)(nil)
