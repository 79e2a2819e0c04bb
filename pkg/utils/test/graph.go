package testutils

import (
	"context"

	"github.com/papercomputeco/lightwiki/pkg/graph"
)

// MockGraphStore keeps the last saved graph in memory.
type MockGraphStore struct {
	Saved *graph.Graph

	// SaveErr is returned by Save when set.
	SaveErr error
}

func NewMockGraphStore() *MockGraphStore {
	return &MockGraphStore{}
}

func (m *MockGraphStore) Save(_ context.Context, g *graph.Graph) error {
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.Saved = g
	return nil
}

func (m *MockGraphStore) Load(_ context.Context) (*graph.Graph, error) {
	if m.Saved == nil {
		return nil, graph.ErrNoSnapshot
	}
	return m.Saved, nil
}

func (m *MockGraphStore) LoadRaw(ctx context.Context) ([]byte, error) {
	g, err := m.Load(ctx)
	if err != nil {
		return nil, err
	}
	return graph.Encode(g)
}

func (m *MockGraphStore) Close() error {
	return nil
}
