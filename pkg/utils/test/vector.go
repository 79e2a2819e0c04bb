package testutils

import (
	"context"
	"sync"

	"github.com/papercomputeco/lightwiki/pkg/vector"
)

// MockSource is an in-memory vector.Source and vector.Sink. Upserted documents
// are encoded with Format and returned by later LoadAll calls.
type MockSource struct {
	mu sync.Mutex

	Format  vector.BlobFormat
	Records []vector.Record

	// LoadErr and UpsertErr are returned by LoadAll and Upsert when set.
	LoadErr   error
	UpsertErr error

	Closed bool
}

// NewMockSource creates a source holding docs in raw format.
func NewMockSource(docs ...vector.Document) *MockSource {
	m := &MockSource{}
	for _, d := range docs {
		m.Records = append(m.Records, vector.Record{ID: d.ID, Blob: vector.FormatRaw.Encode(d.Embedding)})
	}
	return m
}

func (m *MockSource) LoadAll(_ context.Context) ([]vector.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.LoadErr != nil {
		return nil, m.LoadErr
	}
	out := make([]vector.Record, len(m.Records))
	copy(out, m.Records)
	return out, nil
}

func (m *MockSource) Upsert(_ context.Context, docs []vector.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.UpsertErr != nil {
		return m.UpsertErr
	}
	for _, d := range docs {
		rec := vector.Record{ID: d.ID, Blob: m.Format.Encode(d.Embedding)}
		replaced := false
		for i := range m.Records {
			if m.Records[i].ID == d.ID {
				m.Records[i] = rec
				replaced = true
				break
			}
		}
		if !replaced {
			m.Records = append(m.Records, rec)
		}
	}
	return nil
}

// IDs returns the ids currently held, in insertion order.
func (m *MockSource) IDs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	ids := make([]string, len(m.Records))
	for i, r := range m.Records {
		ids[i] = r.ID
	}
	return ids
}

func (m *MockSource) Close() error {
	m.Closed = true
	return nil
}
