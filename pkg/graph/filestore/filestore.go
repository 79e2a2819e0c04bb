// Package filestore persists graph snapshots as a JSON file on local disk.
package filestore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/papercomputeco/lightwiki/pkg/graph"
	"github.com/papercomputeco/lightwiki/pkg/vector"
)

// Store keeps the current graph snapshot in a single file. Saves write a
// temporary sibling and rename it over the target, so readers never see a
// partially written snapshot.
type Store struct {
	path   string
	logger *slog.Logger
}

// New creates a Store backed by the file at path. The parent directory is
// created on first Save.
func New(path string, logger *slog.Logger) (*Store, error) {
	if path == "" {
		return nil, errors.New("graph file path is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		path:   path,
		logger: logger,
	}, nil
}

// Path returns the snapshot file location.
func (s *Store) Path() string {
	return s.path
}

// Save atomically replaces the snapshot with g.
func (s *Store) Save(ctx context.Context, g *graph.Graph) error {
	if err := vector.Cancelled(ctx); err != nil {
		return err
	}

	data, err := graph.Encode(g)
	if err != nil {
		return err
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: creating graph dir: %w", vector.ErrStorage, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("%w: creating temp graph file: %w", vector.ErrStorage, err)
	}
	tmpName := tmp.Name()
	defer func() {
		// No-op once the rename has succeeded.
		_ = os.Remove(tmpName)
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("%w: writing graph: %w", vector.ErrStorage, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("%w: syncing graph: %w", vector.ErrStorage, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: closing graph: %w", vector.ErrStorage, err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("%w: replacing graph: %w", vector.ErrStorage, err)
	}

	s.logger.Debug("saved graph snapshot",
		"path", s.path,
		"nodes", len(g.Nodes),
		"bytes", len(data),
	)
	return nil
}

// Load reads and decodes the current snapshot.
func (s *Store) Load(ctx context.Context) (*graph.Graph, error) {
	data, err := s.read(ctx)
	if err != nil {
		return nil, err
	}
	return graph.Decode(data)
}

// LoadRaw returns the snapshot bytes exactly as stored, after checking they
// decode.
func (s *Store) LoadRaw(ctx context.Context) ([]byte, error) {
	data, err := s.read(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := graph.Decode(data); err != nil {
		return nil, err
	}
	return data, nil
}

func (s *Store) read(ctx context.Context) ([]byte, error) {
	if err := vector.Cancelled(ctx); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, graph.ErrNoSnapshot
	}
	if err != nil {
		return nil, fmt.Errorf("%w: reading graph: %w", vector.ErrStorage, err)
	}
	return data, nil
}

// Watch calls fn with every snapshot saved to the file until ctx is done. The
// current snapshot, if any, is delivered first. Snapshots that fail to decode
// are logged and skipped.
func (s *Store) Watch(ctx context.Context, fn func(*graph.Graph)) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: creating graph dir: %w", vector.ErrStorage, err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating graph watcher: %w", err)
	}
	defer watcher.Close()

	// Renames replace the file's inode, so watch the directory.
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watching graph dir: %w", err)
	}

	deliver := func() {
		g, err := s.Load(ctx)
		switch {
		case errors.Is(err, graph.ErrNoSnapshot):
		case err != nil:
			s.logger.Warn("skipping unreadable graph snapshot", "path", s.path, "error", err)
		default:
			fn(g)
		}
	}

	deliver()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != filepath.Clean(s.path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			deliver()
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("graph watcher error: %w", err)
		}
	}
}

// Close is a no-op; the file store holds no open handles between calls.
func (s *Store) Close() error {
	return nil
}
