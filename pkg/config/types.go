package config

import (
	"fmt"
	"slices"
	"strconv"

	"github.com/papercomputeco/lightwiki/pkg/vector"
	"github.com/papercomputeco/lightwiki/pkg/vector/distance"
)

// Config represents the persistent lightwiki configuration stored as
// config.toml in the .lightwiki/ directory. The TOML layout uses sections for
// logical grouping.
type Config struct {
	Version     int               `toml:"version"`
	Storage     StorageConfig     `toml:"storage"`
	VectorStore VectorStoreConfig `toml:"vector_store"`
	Embedding   EmbeddingConfig   `toml:"embedding"`
	Index       IndexConfig       `toml:"index"`
	Search      SearchConfig      `toml:"search"`
	Graph       GraphConfig       `toml:"graph"`
}

// StorageConfig selects the pages database that holds page metadata and,
// unless a dedicated vector store is configured, the embeddings column.
type StorageConfig struct {
	Provider    string `toml:"provider,omitempty"`
	SQLitePath  string `toml:"sqlite_path,omitempty"`
	PostgresDSN string `toml:"postgres_dsn,omitempty"`
	BlobFormat  string `toml:"blob_format,omitempty"`
}

// VectorStoreConfig holds dedicated vector store settings. An empty provider
// keeps embeddings in the pages database.
type VectorStoreConfig struct {
	Provider   string `toml:"provider,omitempty"`
	Target     string `toml:"target,omitempty"`
	Collection string `toml:"collection,omitempty"`
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	Provider   string `toml:"provider,omitempty"`
	Target     string `toml:"target,omitempty"`
	Model      string `toml:"model,omitempty"`
	Dimensions uint   `toml:"dimensions,omitempty"`
}

// IndexConfig holds nearest-neighbor index settings.
type IndexConfig struct {
	Metric string `toml:"metric,omitempty"`

	// Workers bounds graph build parallelism. Zero uses every CPU.
	Workers uint `toml:"workers,omitempty"`
}

// SearchConfig holds search settings.
type SearchConfig struct {
	TopK uint `toml:"top_k,omitempty"`
}

// GraphConfig holds neighbor graph build and snapshot storage settings.
type GraphConfig struct {
	// K is the neighbors per node. Zero picks k from the corpus size.
	K      uint `toml:"k,omitempty"`
	Layout bool `toml:"layout,omitempty"`

	// Store is one of "file", "s3" or "neo4j".
	Store string `toml:"store,omitempty"`
	Path  string `toml:"path,omitempty"`

	Endpoint  string `toml:"endpoint,omitempty"`
	Bucket    string `toml:"bucket,omitempty"`
	ObjectKey string `toml:"object_key,omitempty"`

	Neo4jURI  string `toml:"neo4j_uri,omitempty"`
	Neo4jUser string `toml:"neo4j_user,omitempty"`
}

var (
	storageProviders = []string{"sqlite", "postgres", "memory"}
	vectorProviders  = []string{"", "sqlite-vec", "chroma", "qdrant"}
	embedProviders   = []string{"ollama", "openai"}
	graphStores      = []string{"file", "s3", "neo4j"}
)

// configKeyInfo maps a user-facing dotted key name to a getter and setter on *Config.
type configKeyInfo struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

func stringKey(field func(c *Config) *string) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string { return *field(c) },
		set: func(c *Config, v string) error { *field(c) = v; return nil },
	}
}

func oneOfKey(key string, allowed []string, field func(c *Config) *string) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string { return *field(c) },
		set: func(c *Config, v string) error {
			if !slices.Contains(allowed, v) {
				return fmt.Errorf("invalid value for %s: %q (available: %v)", key, v, allowed)
			}
			*field(c) = v
			return nil
		},
	}
}

func uintKey(key string, field func(c *Config) *uint) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string {
			if *field(c) == 0 {
				return ""
			}
			return strconv.FormatUint(uint64(*field(c)), 10)
		},
		set: func(c *Config, v string) error {
			n, err := strconv.ParseUint(v, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid value for %s: %w", key, err)
			}
			*field(c) = uint(n)
			return nil
		},
	}
}

// configKeys is the authoritative map of all supported config keys.
// Keys use dotted notation matching the TOML section structure.
var configKeys = map[string]configKeyInfo{
	"storage.provider": oneOfKey("storage.provider", storageProviders,
		func(c *Config) *string { return &c.Storage.Provider }),
	"storage.sqlite_path":  stringKey(func(c *Config) *string { return &c.Storage.SQLitePath }),
	"storage.postgres_dsn": stringKey(func(c *Config) *string { return &c.Storage.PostgresDSN }),
	"storage.blob_format": {
		get: func(c *Config) string { return c.Storage.BlobFormat },
		set: func(c *Config, v string) error {
			if _, err := vector.ParseBlobFormat(v); err != nil {
				return fmt.Errorf("invalid value for storage.blob_format: %w", err)
			}
			c.Storage.BlobFormat = v
			return nil
		},
	},
	"vector_store.provider": oneOfKey("vector_store.provider", vectorProviders,
		func(c *Config) *string { return &c.VectorStore.Provider }),
	"vector_store.target":     stringKey(func(c *Config) *string { return &c.VectorStore.Target }),
	"vector_store.collection": stringKey(func(c *Config) *string { return &c.VectorStore.Collection }),
	"embedding.provider": oneOfKey("embedding.provider", embedProviders,
		func(c *Config) *string { return &c.Embedding.Provider }),
	"embedding.target":     stringKey(func(c *Config) *string { return &c.Embedding.Target }),
	"embedding.model":      stringKey(func(c *Config) *string { return &c.Embedding.Model }),
	"embedding.dimensions": uintKey("embedding.dimensions", func(c *Config) *uint { return &c.Embedding.Dimensions }),
	"index.metric": {
		get: func(c *Config) string { return c.Index.Metric },
		set: func(c *Config, v string) error {
			m, err := distance.ParseMetric(v)
			if err != nil {
				return fmt.Errorf("invalid value for index.metric: %w", err)
			}
			c.Index.Metric = m.String()
			return nil
		},
	},
	"index.workers": uintKey("index.workers", func(c *Config) *uint { return &c.Index.Workers }),
	"search.top_k":  uintKey("search.top_k", func(c *Config) *uint { return &c.Search.TopK }),
	"graph.k":       uintKey("graph.k", func(c *Config) *uint { return &c.Graph.K }),
	"graph.layout": {
		get: func(c *Config) string { return strconv.FormatBool(c.Graph.Layout) },
		set: func(c *Config, v string) error {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("invalid value for graph.layout: %w", err)
			}
			c.Graph.Layout = b
			return nil
		},
	},
	"graph.store": oneOfKey("graph.store", graphStores,
		func(c *Config) *string { return &c.Graph.Store }),
	"graph.path":       stringKey(func(c *Config) *string { return &c.Graph.Path }),
	"graph.endpoint":   stringKey(func(c *Config) *string { return &c.Graph.Endpoint }),
	"graph.bucket":     stringKey(func(c *Config) *string { return &c.Graph.Bucket }),
	"graph.object_key": stringKey(func(c *Config) *string { return &c.Graph.ObjectKey }),
	"graph.neo4j_uri":  stringKey(func(c *Config) *string { return &c.Graph.Neo4jURI }),
	"graph.neo4j_user": stringKey(func(c *Config) *string { return &c.Graph.Neo4jUser }),
}
