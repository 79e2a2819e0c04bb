package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/papercomputeco/lightwiki/pkg/dotdir"
)

// EnvPrefix prefixes every environment variable lightwiki reads.
const EnvPrefix = "LIGHTWIKI"

// InitViper creates and returns a configured *viper.Viper.
// It sets defaults from NewDefaultConfig(), reads the config.toml file
// (if found via dotdir resolution), and binds environment variables
// with the LIGHTWIKI_ prefix.
//
// Config precedence (highest to lowest):
//  1. CLI flags (once bound via BindRegisteredFlags)
//  2. Environment variables (LIGHTWIKI_INDEX_METRIC, LIGHTWIKI_GRAPH_K, etc.)
//  3. config.toml file values
//  4. Defaults from NewDefaultConfig()
func InitViper(configDir string) (*viper.Viper, error) {
	v := viper.New()

	// 1. Register all defaults from NewDefaultConfig().
	setViperDefaults(v)

	// 2. Config file discovery via dotdir resolution.
	v.SetConfigName("config")
	v.SetConfigType("toml")

	ddm := dotdir.NewManager()
	target, err := ddm.Target(configDir)
	if err != nil {
		return nil, fmt.Errorf("resolving config dir: %w", err)
	}

	if target != "" {
		v.AddConfigPath(target)
		if err := v.ReadInConfig(); err != nil {
			// Config file not found errors are fine, defaults will apply.
			if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
				return nil, fmt.Errorf("reading config: %w", err)
			}
		}
	}

	// 3. Environment variables: LIGHTWIKI_STORAGE_SQLITE_PATH, LIGHTWIKI_GRAPH_STORE, etc.
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v, nil
}

// Decode reads every supported key out of v into a Config, so callers see the
// merged flag > env > file > default value of each field.
func Decode(v *viper.Viper) *Config {
	return &Config{
		Version: v.GetInt("version"),
		Storage: StorageConfig{
			Provider:    v.GetString("storage.provider"),
			SQLitePath:  v.GetString("storage.sqlite_path"),
			PostgresDSN: v.GetString("storage.postgres_dsn"),
			BlobFormat:  v.GetString("storage.blob_format"),
		},
		VectorStore: VectorStoreConfig{
			Provider:   v.GetString("vector_store.provider"),
			Target:     v.GetString("vector_store.target"),
			Collection: v.GetString("vector_store.collection"),
		},
		Embedding: EmbeddingConfig{
			Provider:   v.GetString("embedding.provider"),
			Target:     v.GetString("embedding.target"),
			Model:      v.GetString("embedding.model"),
			Dimensions: v.GetUint("embedding.dimensions"),
		},
		Index: IndexConfig{
			Metric:  v.GetString("index.metric"),
			Workers: v.GetUint("index.workers"),
		},
		Search: SearchConfig{
			TopK: v.GetUint("search.top_k"),
		},
		Graph: GraphConfig{
			K:         v.GetUint("graph.k"),
			Layout:    v.GetBool("graph.layout"),
			Store:     v.GetString("graph.store"),
			Path:      v.GetString("graph.path"),
			Endpoint:  v.GetString("graph.endpoint"),
			Bucket:    v.GetString("graph.bucket"),
			ObjectKey: v.GetString("graph.object_key"),
			Neo4jURI:  v.GetString("graph.neo4j_uri"),
			Neo4jUser: v.GetString("graph.neo4j_user"),
		},
	}
}

// setViperDefaults registers defaults from NewDefaultConfig() into viper
// using dotted-key notation. This keeps defaults.go as the single source of truth.
func setViperDefaults(v *viper.Viper) {
	d := NewDefaultConfig()

	v.SetDefault("version", d.Version)

	// Storage
	v.SetDefault("storage.provider", d.Storage.Provider)
	v.SetDefault("storage.sqlite_path", d.Storage.SQLitePath)
	v.SetDefault("storage.postgres_dsn", d.Storage.PostgresDSN)
	v.SetDefault("storage.blob_format", d.Storage.BlobFormat)

	// Vector store
	v.SetDefault("vector_store.provider", d.VectorStore.Provider)
	v.SetDefault("vector_store.target", d.VectorStore.Target)
	v.SetDefault("vector_store.collection", d.VectorStore.Collection)

	// Embedding
	v.SetDefault("embedding.provider", d.Embedding.Provider)
	v.SetDefault("embedding.target", d.Embedding.Target)
	v.SetDefault("embedding.model", d.Embedding.Model)
	v.SetDefault("embedding.dimensions", d.Embedding.Dimensions)

	// Index and search
	v.SetDefault("index.metric", d.Index.Metric)
	v.SetDefault("index.workers", d.Index.Workers)
	v.SetDefault("search.top_k", d.Search.TopK)

	// Graph
	v.SetDefault("graph.k", d.Graph.K)
	v.SetDefault("graph.layout", d.Graph.Layout)
	v.SetDefault("graph.store", d.Graph.Store)
	v.SetDefault("graph.path", d.Graph.Path)
	v.SetDefault("graph.endpoint", d.Graph.Endpoint)
	v.SetDefault("graph.bucket", d.Graph.Bucket)
	v.SetDefault("graph.object_key", d.Graph.ObjectKey)
	v.SetDefault("graph.neo4j_uri", d.Graph.Neo4jURI)
	v.SetDefault("graph.neo4j_user", d.Graph.Neo4jUser)
}
