// Package sqlite provides a SQLite-backed pages driver using ent's SQL driver.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	_ "github.com/mattn/go-sqlite3"

	"github.com/papercomputeco/lightwiki/pkg/storage/pagesql"
	"github.com/papercomputeco/lightwiki/pkg/vector"
)

// SQLiteDriver implements storage.Driver using SQLite via the ent driver.
type SQLiteDriver struct {
	*pagesql.Driver
}

// NewSQLiteDriver creates a new SQLite-backed driver.
// The dbPath can be a file path or ":memory:" for an in-memory database.
func NewSQLiteDriver(ctx context.Context, dbPath string, cfg pagesql.Config) (*SQLiteDriver, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("%w: sqlite database path is required", vector.ErrInvalidArgument)
	}

	// Open the database using the github.com/mattn/go-sqlite3 driver (registered as "sqlite3")
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open database: %w", vector.ErrStorage, err)
	}

	// Every pooled connection to ":memory:" would be a separate database, and
	// the pragma below only holds for the connection it ran on.
	db.SetMaxOpenConns(1)

	// SQLite-specific pragmas
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: failed to enable foreign keys: %w", vector.ErrStorage, err)
	}

	// Wrap the database connection with ent's SQL driver; pagesql runs the
	// schema migration.
	drv, err := pagesql.New(ctx, entsql.OpenDB(dialect.SQLite, db), cfg)
	if err != nil {
		db.Close()
		return nil, err
	}

	return &SQLiteDriver{Driver: drv}, nil
}
