// Package objectstore persists graph snapshots as a single object in an
// S3-compatible bucket.
package objectstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/papercomputeco/lightwiki/pkg/graph"
	"github.com/papercomputeco/lightwiki/pkg/vector"
)

// DefaultObjectKey is the object name used when Config.ObjectKey is empty.
const DefaultObjectKey = "graph.json"

// Config describes the bucket that holds the snapshot.
type Config struct {
	// Endpoint is the host[:port] of the S3-compatible service.
	Endpoint string

	// Bucket must already exist.
	Bucket string

	// ObjectKey names the snapshot object. Defaults to DefaultObjectKey.
	ObjectKey string

	AccessKey string
	SecretKey string

	// Region skips bucket location lookups when set.
	Region string

	// UseSSL selects https.
	UseSSL bool
}

func (c *Config) validate() error {
	if c.Endpoint == "" {
		return errors.New("object store endpoint is required")
	}
	if c.Bucket == "" {
		return errors.New("object store bucket is required")
	}
	c.ObjectKey = strings.TrimPrefix(c.ObjectKey, "/")
	if c.ObjectKey == "" {
		c.ObjectKey = DefaultObjectKey
	}
	return nil
}

// Store keeps the graph snapshot in one object. A PUT replaces the object
// atomically, so readers see either the old or the new snapshot.
type Store struct {
	client *minio.Client
	bucket string
	key    string
	logger *slog.Logger
}

// New connects to the service described by cfg.
func New(cfg Config, logger *slog.Logger) (*Store, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("creating object store client: %w", err)
	}

	return NewWithClient(client, cfg.Bucket, cfg.ObjectKey, logger), nil
}

// NewWithClient wraps an existing client.
func NewWithClient(client *minio.Client, bucket, key string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	if key == "" {
		key = DefaultObjectKey
	}
	return &Store{
		client: client,
		bucket: bucket,
		key:    key,
		logger: logger,
	}
}

// Save uploads g as the current snapshot.
func (s *Store) Save(ctx context.Context, g *graph.Graph) error {
	data, err := graph.Encode(g)
	if err != nil {
		return err
	}

	_, err = s.client.PutObject(ctx, s.bucket, s.key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: "application/json",
	})
	if err != nil {
		return wrapErr(ctx, "uploading graph", err)
	}

	s.logger.Debug("saved graph snapshot",
		"bucket", s.bucket,
		"key", s.key,
		"nodes", len(g.Nodes),
		"bytes", len(data),
	)
	return nil
}

// Load downloads and decodes the current snapshot.
func (s *Store) Load(ctx context.Context) (*graph.Graph, error) {
	data, err := s.read(ctx)
	if err != nil {
		return nil, err
	}
	return graph.Decode(data)
}

// LoadRaw downloads the current snapshot verbatim, after checking it decodes.
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
	obj, err := s.client.GetObject(ctx, s.bucket, s.key, minio.GetObjectOptions{})
	if err != nil {
		return nil, wrapErr(ctx, "fetching graph", err)
	}
	defer obj.Close()

	// GetObject is lazy; missing objects surface on the first read.
	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, wrapErr(ctx, "reading graph", err)
	}
	return data, nil
}

// Close is a no-op; the minio client has no resources to release.
func (s *Store) Close() error {
	return nil
}

func isNotFound(err error) bool {
	code := minio.ToErrorResponse(err).Code
	return code == "NoSuchKey" || code == "NotFound"
}

func wrapErr(ctx context.Context, op string, err error) error {
	if cerr := vector.Cancelled(ctx); cerr != nil {
		return cerr
	}
	if isNotFound(err) {
		return graph.ErrNoSnapshot
	}
	return fmt.Errorf("%w: %s: %w", vector.ErrStorage, op, err)
}
