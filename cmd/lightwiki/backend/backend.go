// Package backend opens the stores, embedder and graph snapshot store a
// lightwiki command needs from its merged configuration.
package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/papercomputeco/lightwiki/pkg/config"
	"github.com/papercomputeco/lightwiki/pkg/dotdir"
	"github.com/papercomputeco/lightwiki/pkg/embeddings"
	embeddingutils "github.com/papercomputeco/lightwiki/pkg/embeddings/utils"
	"github.com/papercomputeco/lightwiki/pkg/graph"
	"github.com/papercomputeco/lightwiki/pkg/graph/filestore"
	"github.com/papercomputeco/lightwiki/pkg/graph/neo4j"
	"github.com/papercomputeco/lightwiki/pkg/graph/objectstore"
	"github.com/papercomputeco/lightwiki/pkg/storage"
	"github.com/papercomputeco/lightwiki/pkg/storage/inmemory"
	"github.com/papercomputeco/lightwiki/pkg/storage/pagesql"
	"github.com/papercomputeco/lightwiki/pkg/storage/postgres"
	"github.com/papercomputeco/lightwiki/pkg/storage/sqlite"
	"github.com/papercomputeco/lightwiki/pkg/vector"
	"github.com/papercomputeco/lightwiki/pkg/vector/distance"
	vectorutils "github.com/papercomputeco/lightwiki/pkg/vector/utils"
)

// Environment-only secrets.
const (
	EnvGraphAccessKey     = config.EnvPrefix + "_GRAPH_ACCESS_KEY"
	EnvGraphSecretKey     = config.EnvPrefix + "_GRAPH_SECRET_KEY"
	EnvGraphRegion        = config.EnvPrefix + "_GRAPH_REGION"
	EnvGraphUseSSL        = config.EnvPrefix + "_GRAPH_USE_SSL"
	EnvGraphNeo4jPassword = config.EnvPrefix + "_GRAPH_NEO4J_PASSWORD"
	EnvOpenAIAPIKey       = "OPENAI_API_KEY"

	vectorsFile = "vectors.sqlite"
)

// ConnectionFlags are the registry keys of every flag that selects a backend.
var ConnectionFlags = []string{
	config.FlagStorageProv,
	config.FlagSQLite,
	config.FlagPostgres,
	config.FlagBlobFormat,
	config.FlagVectorStoreProv,
	config.FlagVectorStoreTgt,
	config.FlagEmbeddingProv,
	config.FlagEmbeddingTgt,
	config.FlagEmbeddingModel,
	config.FlagEmbeddingDims,
}

// Backends holds the pages database and the embedding backend. When no
// dedicated vector store is configured, Vectors is the pages database.
type Backends struct {
	Pages   storage.Driver
	Vectors vectorutils.Driver

	// Format is the blob layout Vectors returns from LoadAll.
	Format vector.BlobFormat

	dedicated bool
	logger    *slog.Logger
}

// Open connects to the configured pages database and embedding backend.
func Open(ctx context.Context, cfg *config.Config, configDir string, logger *slog.Logger) (*Backends, error) {
	format, err := vector.ParseBlobFormat(cfg.Storage.BlobFormat)
	if err != nil {
		return nil, err
	}

	pages, err := openPages(ctx, cfg, configDir, format, logger)
	if err != nil {
		return nil, err
	}

	b := &Backends{
		Pages:   pages,
		Vectors: pages,
		Format:  format,
		logger:  logger,
	}

	if cfg.VectorStore.Provider == "" {
		return b, nil
	}

	target := cfg.VectorStore.Target
	if target == "" && cfg.VectorStore.Provider == "sqlite-vec" {
		dir, err := dotdir.NewManager().Target(configDir)
		if err != nil {
			pages.Close()
			return nil, err
		}
		target = filepath.Join(dir, vectorsFile)
	}

	vectors, err := vectorutils.NewVectorDriver(ctx, &vectorutils.NewVectorDriverOpts{
		ProviderType: cfg.VectorStore.Provider,
		TargetURL:    target,
		Collection:   cfg.VectorStore.Collection,
		Dimensions:   cfg.Embedding.Dimensions,
		Logger:       logger,
	})
	if err != nil {
		pages.Close()
		return nil, err
	}

	b.Vectors = vectors
	b.Format = vector.FormatRaw
	b.dedicated = true
	return b, nil
}

func openPages(ctx context.Context, cfg *config.Config, configDir string, format vector.BlobFormat, logger *slog.Logger) (storage.Driver, error) {
	sqlCfg := pagesql.Config{Format: format, Logger: logger}

	switch cfg.Storage.Provider {
	case "", "sqlite":
		path, err := dotdir.NewManager().DatabasePath(configDir, cfg.Storage.SQLitePath)
		if err != nil {
			return nil, err
		}
		return sqlite.NewSQLiteDriver(ctx, path, sqlCfg)
	case "postgres":
		if cfg.Storage.PostgresDSN == "" {
			return nil, fmt.Errorf("%w: storage.postgres_dsn is required for the postgres provider", vector.ErrInvalidArgument)
		}
		return postgres.NewDriver(ctx, cfg.Storage.PostgresDSN, sqlCfg)
	case "memory":
		return inmemory.NewDriver(format), nil
	default:
		return nil, fmt.Errorf("%w: unsupported storage provider: %s", vector.ErrInvalidArgument, cfg.Storage.Provider)
	}
}

// LoadStore reads every embedding into memory.
func (b *Backends) LoadStore(ctx context.Context) (*vector.Store, error) {
	return vector.Load(ctx, b.Vectors, vector.LoadOptions{
		Format: b.Format,
		Logger: b.logger,
	})
}

// Close closes both backends.
func (b *Backends) Close() error {
	var errs []error
	if b.dedicated {
		errs = append(errs, b.Vectors.Close())
	}
	errs = append(errs, b.Pages.Close())
	return errors.Join(errs...)
}

// Metric parses the configured index metric.
func Metric(cfg *config.Config) (distance.Metric, error) {
	return distance.ParseMetric(cfg.Index.Metric)
}

// NewEmbedder creates the configured embedder. The OpenAI key is prompted for
// when it is missing from the environment and stdin is a terminal.
func NewEmbedder(cfg *config.Config) (embeddings.Embedder, error) {
	var apiKey string
	if cfg.Embedding.Provider == "openai" {
		var err error
		if apiKey, err = secrets.Secret(EnvOpenAIAPIKey, "OpenAI API key"); err != nil {
			return nil, err
		}
	}

	return embeddingutils.NewEmbedder(&embeddingutils.NewEmbedderOpts{
		ProviderType: cfg.Embedding.Provider,
		TargetURL:    cfg.Embedding.Target,
		Model:        cfg.Embedding.Model,
		APIKey:       apiKey,
		Dimensions:   int(cfg.Embedding.Dimensions),
	})
}

// OpenGraphStore opens the configured graph snapshot store.
func OpenGraphStore(ctx context.Context, cfg *config.Config, configDir string, logger *slog.Logger) (graph.Store, error) {
	switch cfg.Graph.Store {
	case "", "file":
		path, err := dotdir.NewManager().GraphPath(configDir, cfg.Graph.Path)
		if err != nil {
			return nil, err
		}
		return filestore.New(path, logger)

	case "s3":
		useSSL, _ := strconv.ParseBool(os.Getenv(EnvGraphUseSSL))
		accessKey := os.Getenv(EnvGraphAccessKey)
		var secretKey string
		if accessKey != "" {
			var err error
			if secretKey, err = secrets.Secret(EnvGraphSecretKey, "S3 secret key"); err != nil {
				return nil, err
			}
		}
		return objectstore.New(objectstore.Config{
			Endpoint:  cfg.Graph.Endpoint,
			Bucket:    cfg.Graph.Bucket,
			ObjectKey: cfg.Graph.ObjectKey,
			AccessKey: accessKey,
			SecretKey: secretKey,
			Region:    os.Getenv(EnvGraphRegion),
			UseSSL:    useSSL,
		}, logger)

	case "neo4j":
		password, err := secrets.Secret(EnvGraphNeo4jPassword, "Neo4j password")
		if err != nil {
			return nil, err
		}
		return neo4j.New(ctx, neo4j.Config{
			URI:      cfg.Graph.Neo4jURI,
			Username: cfg.Graph.Neo4jUser,
			Password: password,
		}, logger)

	default:
		return nil, fmt.Errorf("%w: unsupported graph store: %s", vector.ErrInvalidArgument, cfg.Graph.Store)
	}
}
