// Package pagesql implements storage.Driver over an ent SQL driver connected
// to the pages table. Queries are built with ent's dialect-aware builder, so
// the same code serves SQLite and PostgreSQL.
package pagesql

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"entgo.io/ent/dialect/sql/schema"

	"github.com/papercomputeco/lightwiki/pkg/storage"
	"github.com/papercomputeco/lightwiki/pkg/vector"
)

// rowsPerStatement bounds multi-row inserts below SQLite's bind variable limit.
const rowsPerStatement = 128

// Config configures a Driver.
type Config struct {
	// Format is the embedding blob layout in the embedding column.
	Format vector.BlobFormat

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Driver implements storage.Driver against the pages table.
type Driver struct {
	drv    *entsql.Driver
	format vector.BlobFormat
	logger *slog.Logger
}

// New migrates the pages schema on drv and returns a driver that owns it.
// Migration is append-only: missing tables and columns are created, existing
// ones are left alone.
func New(ctx context.Context, drv *entsql.Driver, cfg Config) (*Driver, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	m, err := schema.NewMigrate(drv)
	if err != nil {
		return nil, fmt.Errorf("%w: preparing %s migration: %w", vector.ErrStorage, drv.Dialect(), err)
	}
	if err := m.Create(ctx, pagesTable); err != nil {
		return nil, fmt.Errorf("%w: creating %s pages schema: %w", vector.ErrStorage, drv.Dialect(), err)
	}

	return &Driver{
		drv:    drv,
		format: cfg.Format,
		logger: logger,
	}, nil
}

func (d *Driver) builder() *entsql.DialectBuilder {
	return entsql.Dialect(d.drv.Dialect())
}

// LoadAll returns the embedding blob of every page that has one, ordered by
// id.
func (d *Driver) LoadAll(ctx context.Context) ([]vector.Record, error) {
	b := d.builder()
	query, args := b.Select(columnID, columnEmbedding).
		From(b.Table(pagesTableName)).
		Where(entsql.NotNull(columnEmbedding)).
		OrderBy(columnID).
		Query()

	var rows entsql.Rows
	if err := d.drv.Query(ctx, query, args, &rows); err != nil {
		return nil, d.wrapErr(ctx, "querying embeddings", err)
	}
	defer rows.Close()

	var records []vector.Record
	for rows.Next() {
		var rec vector.Record
		if err := rows.Scan(&rec.ID, &rec.Blob); err != nil {
			return nil, d.wrapErr(ctx, "scanning embedding", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, d.wrapErr(ctx, "iterating embeddings", err)
	}

	d.logger.Debug("loaded embedding rows", "dialect", d.drv.Dialect(), "rows", len(records))
	return records, nil
}

// Upsert writes the embeddings of docs, creating bare pages for unknown ids.
func (d *Driver) Upsert(ctx context.Context, docs []vector.Document) error {
	docs = lastByID(docs, func(doc vector.Document) string { return doc.ID })
	now := time.Now().UTC()
	return d.inTx(ctx, "upserting embeddings", len(docs), func(lo, hi int) *entsql.InsertBuilder {
		ins := d.builder().Insert(pagesTableName).
			Columns(columnID, columnTitle, columnURL, columnContent, columnCreatedAt, columnEmbedding)
		for _, doc := range docs[lo:hi] {
			ins.Values(doc.ID, "", "", "", now, d.format.Encode(doc.Embedding))
		}
		return ins.OnConflict(
			entsql.ConflictColumns(columnID),
			entsql.ResolveWith(func(u *entsql.UpdateSet) {
				u.SetExcluded(columnEmbedding)
			}),
		)
	})
}

// SavePages writes page metadata, leaving stored embeddings untouched.
func (d *Driver) SavePages(ctx context.Context, pages []storage.Page) error {
	for _, p := range pages {
		if p.ID == "" {
			return fmt.Errorf("%w: page id is required", vector.ErrInvalidArgument)
		}
	}

	pages = lastByID(pages, func(p storage.Page) string { return p.ID })
	now := time.Now().UTC()
	return d.inTx(ctx, "saving pages", len(pages), func(lo, hi int) *entsql.InsertBuilder {
		ins := d.builder().Insert(pagesTableName).Columns(pageColumnNames...)
		for _, p := range pages[lo:hi] {
			created := p.CreatedAt
			if created.IsZero() {
				created = now
			}
			ins.Values(p.ID, p.Title, p.URL, p.Content, created.UTC())
		}
		return ins.OnConflict(
			entsql.ConflictColumns(columnID),
			entsql.ResolveWith(func(u *entsql.UpdateSet) {
				u.SetExcluded(columnTitle).
					SetExcluded(columnURL).
					SetExcluded(columnContent).
					SetExcluded(columnCreatedAt)
			}),
		)
	})
}

// Pages resolves ids to page metadata. Unknown ids are omitted.
func (d *Driver) Pages(ctx context.Context, ids []string) (map[string]storage.Page, error) {
	out := make(map[string]storage.Page, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	b := d.builder()
	query, qargs := b.Select(columnID, columnTitle, columnURL, columnCreatedAt).
		From(b.Table(pagesTableName)).
		Where(entsql.In(columnID, args...)).
		Query()

	var rows entsql.Rows
	if err := d.drv.Query(ctx, query, qargs, &rows); err != nil {
		return nil, d.wrapErr(ctx, "querying pages", err)
	}
	defer rows.Close()

	for rows.Next() {
		var p storage.Page
		if err := rows.Scan(&p.ID, &p.Title, &p.URL, &p.CreatedAt); err != nil {
			return nil, d.wrapErr(ctx, "scanning page", err)
		}
		out[p.ID] = p
	}
	if err := rows.Err(); err != nil {
		return nil, d.wrapErr(ctx, "iterating pages", err)
	}
	return out, nil
}

// Close closes the underlying database.
func (d *Driver) Close() error {
	return d.drv.Close()
}

// inTx runs the inserts produced by build over n rows, rowsPerStatement at a
// time, in one transaction.
func (d *Driver) inTx(ctx context.Context, op string, n int, build func(lo, hi int) *entsql.InsertBuilder) error {
	if n == 0 {
		return nil
	}

	tx, err := d.drv.Tx(ctx)
	if err != nil {
		return d.wrapErr(ctx, op, err)
	}

	for lo := 0; lo < n; lo += rowsPerStatement {
		hi := min(lo+rowsPerStatement, n)
		query, args := build(lo, hi).Query()
		if err := tx.Exec(ctx, query, args, nil); err != nil {
			_ = tx.Rollback()
			return d.wrapErr(ctx, op, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return d.wrapErr(ctx, op, err)
	}

	d.logger.Debug("wrote pages rows", "dialect", d.drv.Dialect(), "op", op, "rows", n)
	return nil
}

// lastByID keeps the last occurrence of each id, in first-seen order. A
// single upsert statement may not touch the same row twice.
func lastByID[T any](items []T, id func(T) string) []T {
	pos := make(map[string]int, len(items))
	out := make([]T, 0, len(items))
	for _, it := range items {
		if i, ok := pos[id(it)]; ok {
			out[i] = it
			continue
		}
		pos[id(it)] = len(out)
		out = append(out, it)
	}
	return out
}

func (d *Driver) wrapErr(ctx context.Context, op string, err error) error {
	if cerr := vector.Cancelled(ctx); cerr != nil {
		return cerr
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", vector.ErrCancelled, err)
	}
	return fmt.Errorf("%w: %s %s: %w", vector.ErrStorage, d.drv.Dialect(), op, err)
}

var _ storage.Driver = (*Driver)(nil)
