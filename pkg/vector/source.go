package vector

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// Record is one row read from a persistent backing store: a document id and
// its embedding in at-rest blob form.
type Record struct {
	ID   string
	Blob []byte
}

// Source is a persistent embedding backing store.
type Source interface {
	// LoadAll fetches every document's embedding blob. Implementations should
	// tag connectivity failures with ErrStorage.
	LoadAll(ctx context.Context) ([]Record, error)

	// Close releases any resources held by the source.
	Close() error
}

// Sink accepts embeddings for storage in a backing store.
type Sink interface {
	// Upsert stores documents with their embeddings. If a document with the
	// same ID already exists, implementers should update it.
	Upsert(ctx context.Context, docs []Document) error
}

// LoadOptions configures Load.
type LoadOptions struct {
	// Format is the blob layout used by the source.
	Format BlobFormat

	// Dimensions, when non-zero, is the expected dimensionality. Zero infers it
	// from the first row.
	Dimensions int

	// Logger receives load progress. Defaults to slog.Default().
	Logger *slog.Logger
}

// Load reads every record from src into a fresh Store. Any unreachable store,
// undecodable blob or dimensionality disagreement fails the whole load; rows
// are never silently skipped.
func Load(ctx context.Context, src Source, opts LoadOptions) (*Store, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	records, err := src.LoadAll(ctx)
	if err != nil {
		if cerr := Cancelled(ctx); cerr != nil {
			return nil, cerr
		}
		if errors.Is(err, ErrStorage) || errors.Is(err, ErrDecode) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: loading embeddings: %w", ErrStorage, err)
	}

	store := NewStore(opts.Dimensions)
	for i, rec := range records {
		if i%1024 == 0 {
			if err := Cancelled(ctx); err != nil {
				return nil, err
			}
		}

		e, err := opts.Format.Decode(rec.Blob)
		if err != nil {
			return nil, fmt.Errorf("%w: document %s: %w", ErrStorage, rec.ID, err)
		}
		if err := store.Put(rec.ID, e); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrStorage, err)
		}
	}

	logger.Debug("loaded embeddings",
		"count", store.Count(),
		"dimensions", store.Dimensions(),
		"format", opts.Format.String(),
	)

	return store, nil
}
