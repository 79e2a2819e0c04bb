package vector

import (
	"fmt"
	"iter"
	"slices"
	"sort"
	"strings"
)

// Store owns the set of (document id, embedding) pairs for one corpus. All
// embeddings in a Store share one dimensionality, fixed either at construction
// or by the first Put.
//
// A Store is not safe for concurrent mutation. Freeze it with Snapshot before
// handing it to readers.
type Store struct {
	dim  int
	docs map[string]Embedding
}

// NewStore creates an empty store. A dim of 0 lets the first Put fix the
// dimensionality.
func NewStore(dim int) *Store {
	return &Store{
		dim:  dim,
		docs: make(map[string]Embedding),
	}
}

// Put inserts or replaces the embedding for id. The embedding is copied.
func (s *Store) Put(id string, e Embedding) error {
	if id == "" {
		return fmt.Errorf("%w: document id is required", ErrInvalidArgument)
	}
	if len(e) == 0 {
		return fmt.Errorf("%w: document %s has an empty embedding", ErrInvalidArgument, id)
	}

	if err := e.CheckFinite(); err != nil {
		return fmt.Errorf("%w: document %s: %w", ErrInvalidArgument, id, err)
	}

	if s.dim == 0 {
		s.dim = len(e)
	}
	if err := CheckDimensions(s.dim, len(e)); err != nil {
		return fmt.Errorf("document %s: %w", id, err)
	}

	s.docs[id] = e.Clone()
	return nil
}

// Get returns the embedding stored for id.
func (s *Store) Get(id string) (Embedding, bool) {
	e, ok := s.docs[id]
	return e, ok
}

// Count returns the number of embeddings currently loaded.
func (s *Store) Count() int {
	return len(s.docs)
}

// Dimensions returns the store's fixed dimensionality, or 0 when it is empty
// and was created without one.
func (s *Store) Dimensions() int {
	return s.dim
}

// All iterates documents in ascending id order.
func (s *Store) All() iter.Seq2[string, Embedding] {
	return func(yield func(string, Embedding) bool) {
		for _, id := range s.sortedIDs() {
			if !yield(id, s.docs[id]) {
				return
			}
		}
	}
}

// Snapshot freezes the current contents into an immutable, id-sorted view.
// Later Puts do not affect the returned snapshot.
func (s *Store) Snapshot() *Snapshot {
	ids := s.sortedIDs()
	docs := make([]Document, len(ids))
	for i, id := range ids {
		docs[i] = Document{ID: id, Embedding: s.docs[id].Clone()}
	}
	return &Snapshot{dim: s.dim, docs: docs}
}

func (s *Store) sortedIDs() []string {
	ids := make([]string, 0, len(s.docs))
	for id := range s.docs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Snapshot is an immutable, point-in-time view of a Store with documents
// sorted by ascending id. It is safe for concurrent readers; callers must not
// modify the embeddings it hands out.
type Snapshot struct {
	dim  int
	docs []Document
}

// NewSnapshot builds a snapshot directly from documents, enforcing the same
// rules as Store.Put. Later duplicates of an id replace earlier ones.
func NewSnapshot(dim int, docs ...Document) (*Snapshot, error) {
	s := NewStore(dim)
	for _, d := range docs {
		if err := s.Put(d.ID, d.Embedding); err != nil {
			return nil, err
		}
	}
	return s.Snapshot(), nil
}

// Len returns the number of documents.
func (s *Snapshot) Len() int {
	return len(s.docs)
}

// Dimensions returns the dimensionality shared by every document.
func (s *Snapshot) Dimensions() int {
	return s.dim
}

// At returns the i-th document in id order.
func (s *Snapshot) At(i int) Document {
	return s.docs[i]
}

// Documents iterates documents in ascending id order.
func (s *Snapshot) Documents() iter.Seq2[int, Document] {
	return slices.All(s.docs)
}

// Lookup finds a document by id using binary search.
func (s *Snapshot) Lookup(id string) (Document, bool) {
	i, ok := slices.BinarySearchFunc(s.docs, id, func(d Document, id string) int {
		return strings.Compare(d.ID, id)
	})
	if !ok {
		return Document{}, false
	}
	return s.docs[i], true
}
