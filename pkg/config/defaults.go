package config

const (
	defaultStorageProvider = "sqlite"
	defaultBlobFormat      = "raw"

	defaultEmbeddingProvider   = "ollama"
	defaultEmbeddingModel      = "embeddinggemma"
	defaultEmbeddingDimensions = 768
	defaultEmbeddingTarget     = "http://localhost:11434"

	defaultMetric = "cosine"
	defaultTopK   = 5

	defaultGraphStore     = "file"
	defaultGraphObjectKey = "graph.json"
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		Storage: StorageConfig{
			Provider:   defaultStorageProvider,
			BlobFormat: defaultBlobFormat,
		},
		Embedding: EmbeddingConfig{
			Provider:   defaultEmbeddingProvider,
			Target:     defaultEmbeddingTarget,
			Model:      defaultEmbeddingModel,
			Dimensions: defaultEmbeddingDimensions,
		},
		Index: IndexConfig{
			Metric: defaultMetric,
		},
		Search: SearchConfig{
			TopK: defaultTopK,
		},
		Graph: GraphConfig{
			Store:     defaultGraphStore,
			ObjectKey: defaultGraphObjectKey,
		},
	}
}
