package config

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Flag is the single source of truth for a CLI flag.
// Commands reference flags by registry key rather than hard-coding names,
// shorthands, defaults, and descriptions inline. This prevents flag drift
// when the same logical flag appears on multiple commands (e.g., --metric
// on both "lightwiki search" and "lightwiki graph build").
type Flag struct {
	// Name is the long flag name (e.g. "metric").
	Name string

	// Shorthand is the one-letter short flag (e.g. "m"). Empty for no shorthand.
	Shorthand string

	// ViperKey is the dotted config key this flag maps to (e.g. "index.metric").
	ViperKey string

	// Description is the help text shown in --help output.
	Description string
}

// FlagSet is a mapping of flag names to Flag structs that hold their name,
// shorthand, viper key, etc.
type FlagSet map[string]Flag

// Flag registry keys.
// Use these constants when calling AddStringFlag, AddUintFlag,
// and BindRegisteredFlags to avoid typos or drift from one command to another.
const (
	FlagStorageProv     = "storage-provider"
	FlagSQLite          = "sqlite"
	FlagPostgres        = "postgres"
	FlagBlobFormat      = "blob-format"
	FlagVectorStoreProv = "vector-store-provider"
	FlagVectorStoreTgt  = "vector-store-target"
	FlagEmbeddingProv   = "embedding-provider"
	FlagEmbeddingTgt    = "embedding-target"
	FlagEmbeddingModel  = "embedding-model"
	FlagEmbeddingDims   = "embedding-dimensions"
	FlagMetric          = "metric"
	FlagWorkers         = "workers"
	FlagTopK            = "top"
	FlagGraphK          = "k"
	FlagGraphLayout     = "layout"
	FlagGraphStore      = "graph-store"
	FlagGraphPath       = "graph-path"
)

// Flags is the registry shared by every lightwiki command.
var Flags = FlagSet{
	FlagStorageProv: {
		Name:        "storage-provider",
		ViperKey:    "storage.provider",
		Description: "Pages database provider (sqlite, postgres, memory)",
	},
	FlagSQLite: {
		Name:        "sqlite",
		Shorthand:   "s",
		ViperKey:    "storage.sqlite_path",
		Description: "Path to the SQLite pages database",
	},
	FlagPostgres: {
		Name:        "postgres",
		ViperKey:    "storage.postgres_dsn",
		Description: "PostgreSQL connection string for the pages database",
	},
	FlagBlobFormat: {
		Name:        "blob-format",
		ViperKey:    "storage.blob_format",
		Description: "Embedding blob layout in the pages database (raw, prefixed)",
	},
	FlagVectorStoreProv: {
		Name:        "vector-store-provider",
		ViperKey:    "vector_store.provider",
		Description: "Dedicated vector store provider (sqlite-vec, chroma, qdrant); empty uses the pages database",
	},
	FlagVectorStoreTgt: {
		Name:        "vector-store-target",
		ViperKey:    "vector_store.target",
		Description: "Vector store target: file path for sqlite-vec, URL for chroma, host:port for qdrant",
	},
	FlagEmbeddingProv: {
		Name:        "embedding-provider",
		ViperKey:    "embedding.provider",
		Description: "Embedding provider (ollama, openai)",
	},
	FlagEmbeddingTgt: {
		Name:        "embedding-target",
		ViperKey:    "embedding.target",
		Description: "Embedding provider URL",
	},
	FlagEmbeddingModel: {
		Name:        "embedding-model",
		ViperKey:    "embedding.model",
		Description: "Embedding model name",
	},
	FlagEmbeddingDims: {
		Name:        "embedding-dimensions",
		ViperKey:    "embedding.dimensions",
		Description: "Embedding dimensionality",
	},
	FlagMetric: {
		Name:        "metric",
		Shorthand:   "m",
		ViperKey:    "index.metric",
		Description: "Distance metric (cosine, euclidean)",
	},
	FlagWorkers: {
		Name:        "workers",
		Shorthand:   "w",
		ViperKey:    "index.workers",
		Description: "Parallel workers for graph builds (0 uses every CPU)",
	},
	FlagTopK: {
		Name:        "top",
		Shorthand:   "k",
		ViperKey:    "search.top_k",
		Description: "Number of results to return",
	},
	FlagGraphK: {
		Name:        "k",
		ViperKey:    "graph.k",
		Description: "Neighbors per node (0 picks k from the corpus size)",
	},
	FlagGraphLayout: {
		Name:        "layout",
		ViperKey:    "graph.layout",
		Description: "Compute 3D node positions for visualization",
	},
	FlagGraphStore: {
		Name:        "graph-store",
		ViperKey:    "graph.store",
		Description: "Graph snapshot store (file, s3, neo4j)",
	},
	FlagGraphPath: {
		Name:        "graph-path",
		ViperKey:    "graph.path",
		Description: "Graph snapshot file path for the file store",
	},
}

// AddStringFlag registers a string flag on cmd from the given FlagSet.
// The flag's name, shorthand, default, and description all come from the
// FlagSet entry so they cannot drift across commands.
func AddStringFlag(cmd *cobra.Command, fs FlagSet, key string, target *string) {
	def, ok := fs[key]
	if !ok {
		return
	}

	defaultVal := defaultString(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().StringVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().StringVar(target, def.Name, defaultVal, def.Description)
	}
}

// AddUintFlag registers a uint flag on cmd from the given FlagSet.
func AddUintFlag(cmd *cobra.Command, fs FlagSet, registryKey string, target *uint) {
	def, ok := fs[registryKey]
	if !ok {
		return
	}

	defaultVal := defaultUint(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().UintVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().UintVar(target, def.Name, defaultVal, def.Description)
	}
}

// AddBoolFlag registers a bool flag on cmd from the given FlagSet.
func AddBoolFlag(cmd *cobra.Command, fs FlagSet, registryKey string, target *bool) {
	def, ok := fs[registryKey]
	if !ok {
		return
	}

	defaultVal := defaultBool(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().BoolVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().BoolVar(target, def.Name, defaultVal, def.Description)
	}
}

// BindRegisteredFlags binds already-registered flags to viper using definitions
// from the given FlagSet. Call this in PreRunE after InitViper to connect flags
// to the viper precedence chain (flag > env > config file > default).
func BindRegisteredFlags(v *viper.Viper, cmd *cobra.Command, fs FlagSet, registryKeys []string) {
	for _, registryKey := range registryKeys {
		def, ok := fs[registryKey]
		if !ok {
			continue
		}

		f := cmd.Flags().Lookup(def.Name)
		if f == nil {
			continue
		}

		_ = v.BindPFlag(def.ViperKey, f)
	}
}

func defaults() *viper.Viper {
	v := viper.New()
	setViperDefaults(v)
	return v
}

// defaultString returns the default string value for a viper key from NewDefaultConfig.
func defaultString(viperKey string) string {
	return defaults().GetString(viperKey)
}

// defaultUint returns the default uint value for a viper key from NewDefaultConfig.
func defaultUint(viperKey string) uint {
	return defaults().GetUint(viperKey)
}

func defaultBool(viperKey string) bool {
	return defaults().GetBool(viperKey)
}

// AddFlags registers every flag in keys on cmd with a throwaway target. Use it
// for flags that are only ever read back through viper after
// BindRegisteredFlags.
func AddFlags(cmd *cobra.Command, fs FlagSet, keys ...string) {
	for _, key := range keys {
		switch key {
		case FlagEmbeddingDims, FlagWorkers, FlagTopK, FlagGraphK:
			AddUintFlag(cmd, fs, key, new(uint))
		case FlagGraphLayout:
			AddBoolFlag(cmd, fs, key, new(bool))
		default:
			AddStringFlag(cmd, fs, key, new(string))
		}
	}
}
