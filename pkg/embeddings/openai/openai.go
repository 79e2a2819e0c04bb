// Package openai implements pkg/embedding's Embedder client for OpenAI and
// OpenAI-compatible embedding APIs.
package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/papercomputeco/lightwiki/pkg/embeddings"
	"github.com/papercomputeco/lightwiki/pkg/vector"
)

const (
	// DefaultEmbeddingModel is the default model used for embeddings.
	DefaultEmbeddingModel = "text-embedding-3-small"

	// APIKeyEnv is the environment variable the API key is read from.
	APIKeyEnv = "OPENAI_API_KEY"
)

// EmbedderConfig holds configuration for the OpenAI embedder.
type EmbedderConfig struct {
	// BaseURL overrides the API URL for OpenAI-compatible providers.
	BaseURL string

	// APIKey authenticates requests.
	APIKey string

	// Model defaults to DefaultEmbeddingModel.
	Model string

	// Dimensions requests shortened embeddings from models that support it.
	// Zero leaves the model's native size.
	Dimensions int

	// MaxRetries bounds client retries. Negative disables retries; zero keeps
	// the client default.
	MaxRetries int

	// Timeout bounds each request. Defaults to two minutes.
	Timeout time.Duration
}

// Embedder wraps the OpenAI embeddings API.
type Embedder struct {
	client     openai.Client
	model      string
	dimensions int
}

// NewEmbedder creates a new embedder using the OpenAI embeddings API.
func NewEmbedder(cfg EmbedderConfig) (*Embedder, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai api key is required (set %s)", APIKeyEnv)
	}

	model := cfg.Model
	if model == "" {
		model = DefaultEmbeddingModel
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 120 * time.Second
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithHTTPClient(&http.Client{Timeout: timeout}),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	switch {
	case cfg.MaxRetries < 0:
		opts = append(opts, option.WithMaxRetries(0))
	case cfg.MaxRetries > 0:
		opts = append(opts, option.WithMaxRetries(cfg.MaxRetries))
	}

	return &Embedder{
		client:     openai.NewClient(opts...),
		model:      model,
		dimensions: cfg.Dimensions,
	}, nil
}

// Embed converts text into a vector embedding.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	params := openai.EmbeddingNewParams{
		Model:          e.model,
		Input:          openai.EmbeddingNewParamsInputUnion{OfString: openai.String(text)},
		EncodingFormat: openai.EmbeddingNewParamsEncodingFormatFloat,
	}
	if e.dimensions > 0 {
		params.Dimensions = openai.Int(int64(e.dimensions))
	}

	resp, err := e.client.Embeddings.New(ctx, params)
	if err != nil {
		return nil, embeddings.Unavailable(ctx, "openai request", err)
	}
	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		return nil, embeddings.Unavailable(ctx, "openai response", errors.New("no embeddings returned"))
	}

	src := resp.Data[0].Embedding
	out := make([]float32, len(src))
	for i, v := range src {
		out[i] = float32(v)
	}
	if e.dimensions > 0 {
		if err := vector.CheckDimensions(e.dimensions, len(out)); err != nil {
			return nil, embeddings.Unavailable(ctx, "openai response", err)
		}
	}
	return out, nil
}

// Close releases resources held by the embedder.
func (e *Embedder) Close() error {
	return nil
}

var _ embeddings.Embedder = (*Embedder)(nil)
