// Package sqlitevec provides a SQLite-backed embedding store using sqlite-vec.
package sqlitevec

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"

	"github.com/papercomputeco/lightwiki/pkg/vector"
)

// SQLiteVecDriver implements vector.Source and vector.Sink using SQLite with
// sqlite-vec. Embeddings live in a vec0 virtual table in the raw float32
// layout.
type SQLiteVecDriver struct {
	db         *sql.DB
	dimensions int
	logger     *slog.Logger
}

// Config holds configuration for the SQLite vec driver.
type Config struct {
	// DBPath is the path to the SQLite database file.
	// Use ":memory:" for an in-memory database.
	DBPath string

	// Dimensions is the number of dimensions for the embedding vectors.
	// It is fixed when the vec0 table is created.
	Dimensions uint
}

// NewSQLiteVecDriver creates a new SQLite vector driver backed by sqlite-vec.
func NewSQLiteVecDriver(c Config, logger *slog.Logger) (*SQLiteVecDriver, error) {
	// enable connection to have sqlite-vec extension
	sqlite_vec.Auto()

	if c.DBPath == "" {
		return nil, errors.New("database path is required")
	}

	dimensions := c.Dimensions
	if dimensions == 0 {
		return nil, errors.New("sqlite-vec embedding dimensions cannot be 0, must be configured")
	}

	if logger == nil {
		logger = slog.Default()
	}

	db, err := sql.Open("sqlite3", c.DBPath)
	if err != nil {
		return nil, fmt.Errorf("%w: opening database: %w", vector.ErrStorage, err)
	}

	// Every pooled connection to ":memory:" would be a separate database.
	db.SetMaxOpenConns(1)

	// Verify sqlite-vec is loaded
	var vecVersion string
	if err := db.QueryRow("SELECT vec_version()").Scan(&vecVersion); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: sqlite-vec not available: %w", vector.ErrStorage, err)
	}

	// vec0 virtual tables use integer rowids, so string document ids are
	// mapped to rowids here.
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS vec_documents (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			doc_id TEXT NOT NULL UNIQUE
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: creating documents table: %w", vector.ErrStorage, err)
	}

	createVec := fmt.Sprintf(
		`CREATE VIRTUAL TABLE IF NOT EXISTS vec_embeddings USING vec0(embedding float[%d])`,
		dimensions,
	)
	if _, err := db.Exec(createVec); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: creating vec0 table: %w", vector.ErrStorage, err)
	}

	logger.Info("sqlite-vec vector driver initialized",
		"db_path", c.DBPath,
		"dimensions", dimensions,
		"vec_version", vecVersion,
	)

	return &SQLiteVecDriver{
		db:         db,
		dimensions: int(dimensions),
		logger:     logger,
	}, nil
}

// Upsert stores documents with their embeddings.
// If a document with the same ID already exists, it is updated.
func (d *SQLiteVecDriver) Upsert(ctx context.Context, docs []vector.Document) error {
	if len(docs) == 0 {
		return nil
	}

	for _, doc := range docs {
		if err := vector.CheckDimensions(d.dimensions, len(doc.Embedding)); err != nil {
			return fmt.Errorf("document %s: %w", doc.ID, err)
		}
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return wrapErr(ctx, "beginning transaction", err)
	}
	defer tx.Rollback()

	for _, doc := range docs {
		embBlob := vector.FormatRaw.Encode(doc.Embedding)

		var existingRowID int64
		err = tx.QueryRowContext(ctx,
			`SELECT rowid FROM vec_documents WHERE doc_id = ?`, doc.ID,
		).Scan(&existingRowID)

		switch {
		case err == nil:
			// vec0 does not support UPDATE
			if _, err := tx.ExecContext(ctx,
				`DELETE FROM vec_embeddings WHERE rowid = ?`, existingRowID,
			); err != nil {
				return wrapErr(ctx, "deleting old embedding for doc "+doc.ID, err)
			}

			if _, err := tx.ExecContext(ctx,
				`INSERT INTO vec_embeddings(rowid, embedding) VALUES (?, ?)`,
				existingRowID, embBlob,
			); err != nil {
				return wrapErr(ctx, "re-inserting embedding for doc "+doc.ID, err)
			}
		case errors.Is(err, sql.ErrNoRows):
			result, err := tx.ExecContext(ctx,
				`INSERT INTO vec_documents(doc_id) VALUES (?)`, doc.ID,
			)
			if err != nil {
				return wrapErr(ctx, "inserting document "+doc.ID, err)
			}

			rowID, err := result.LastInsertId()
			if err != nil {
				return wrapErr(ctx, "getting rowid for doc "+doc.ID, err)
			}

			if _, err := tx.ExecContext(ctx,
				`INSERT INTO vec_embeddings(rowid, embedding) VALUES (?, ?)`,
				rowID, embBlob,
			); err != nil {
				return wrapErr(ctx, "inserting embedding for doc "+doc.ID, err)
			}
		default:
			return wrapErr(ctx, "checking for existing document "+doc.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return wrapErr(ctx, "committing transaction", err)
	}

	d.logger.Debug("upserted documents to sqlite-vec", "count", len(docs))
	return nil
}

// LoadAll returns every stored embedding in raw float32 layout, ordered by
// document id.
func (d *SQLiteVecDriver) LoadAll(ctx context.Context) ([]vector.Record, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT d.doc_id, ve.embedding
		FROM vec_documents d
		INNER JOIN vec_embeddings ve ON ve.rowid = d.rowid
		ORDER BY d.doc_id
	`)
	if err != nil {
		return nil, wrapErr(ctx, "querying embeddings", err)
	}
	defer rows.Close()

	var records []vector.Record
	for rows.Next() {
		var rec vector.Record
		if err := rows.Scan(&rec.ID, &rec.Blob); err != nil {
			return nil, wrapErr(ctx, "scanning embedding", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr(ctx, "iterating embeddings", err)
	}

	d.logger.Debug("loaded embeddings from sqlite-vec", "rows", len(records))
	return records, nil
}

// Query runs sqlite-vec's own KNN search under L2 distance. The in-process
// index is the source of truth for ranking; this exists to cross-check it
// against the database.
func (d *SQLiteVecDriver) Query(ctx context.Context, embedding vector.Embedding, topK int) ([]vector.Neighbor, error) {
	if topK <= 0 {
		return nil, fmt.Errorf("%w: k must be positive, got %d", vector.ErrInvalidArgument, topK)
	}
	if err := vector.CheckDimensions(d.dimensions, len(embedding)); err != nil {
		return nil, err
	}

	rows, err := d.db.QueryContext(ctx, `
		SELECT
			d.doc_id,
			ve.distance
		FROM vec_embeddings ve
		INNER JOIN vec_documents d ON d.rowid = ve.rowid
		WHERE ve.embedding MATCH ?
			AND ve.k = ?
		ORDER BY ve.distance, d.doc_id
	`, vector.FormatRaw.Encode(embedding), topK)
	if err != nil {
		return nil, wrapErr(ctx, "querying vectors", err)
	}
	defer rows.Close()

	var results []vector.Neighbor
	for rows.Next() {
		var n vector.Neighbor
		if err := rows.Scan(&n.ID, &n.Distance); err != nil {
			return nil, wrapErr(ctx, "scanning query result", err)
		}
		results = append(results, n)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr(ctx, "iterating query results", err)
	}

	return results, nil
}

// Close releases resources held by the driver.
func (d *SQLiteVecDriver) Close() error {
	return d.db.Close()
}

func wrapErr(ctx context.Context, op string, err error) error {
	if cerr := vector.Cancelled(ctx); cerr != nil {
		return cerr
	}
	return fmt.Errorf("%w: sqlite-vec %s: %w", vector.ErrStorage, op, err)
}

var (
	_ vector.Source = (*SQLiteVecDriver)(nil)
	_ vector.Sink   = (*SQLiteVecDriver)(nil)
)
