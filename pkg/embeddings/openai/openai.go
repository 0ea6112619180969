// Package openai implements pkg/embeddings' Embedder for OpenAI-compatible
// embedding APIs.
package openai

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/papercomputeco/switchyard/pkg/embeddings"
)

const (
	// ProviderName identifies OpenAI in configuration and errors.
	ProviderName = "openai"

	// DefaultBaseURL is the default OpenAI API base URL.
	DefaultBaseURL = "https://api.openai.com/v1"

	// DefaultEmbeddingModel is the default model used for embeddings.
	DefaultEmbeddingModel = "text-embedding-3-small"

	// DefaultDimensions matches DefaultEmbeddingModel.
	DefaultDimensions = 1536
)

// Embedder wraps the OpenAI embeddings endpoint.
type Embedder struct {
	client     openai.Client
	model      string
	dimensions int
}

// EmbedderConfig holds configuration for the OpenAI embedder.
type EmbedderConfig struct {
	// APIKey falls back to the OPENAI_API_KEY environment variable.
	APIKey string

	// BaseURL allows any OpenAI-compatible API. Defaults to DefaultBaseURL.
	BaseURL string

	// Model defaults to DefaultEmbeddingModel.
	Model string

	// Dimensions is requested from the API so the model truncates its output.
	// Defaults to DefaultDimensions.
	Dimensions int

	// MaxRetries overrides the client's retry count when non-nil.
	MaxRetries *int
}

// NewEmbedder creates a new OpenAI embedder.
func NewEmbedder(cfg EmbedderConfig) (*Embedder, error) {
	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if apiKey == "" {
		return nil, errors.New("OpenAI API key is required (provide via config or OPENAI_API_KEY environment variable)")
	}

	if cfg.Dimensions < 0 {
		return nil, fmt.Errorf("invalid openai embedding dimensions: %d", cfg.Dimensions)
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	model := cfg.Model
	if model == "" {
		model = DefaultEmbeddingModel
	}

	dimensions := cfg.Dimensions
	if dimensions == 0 {
		dimensions = DefaultDimensions
	}

	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithBaseURL(baseURL),
	}
	if cfg.MaxRetries != nil {
		opts = append(opts, option.WithMaxRetries(*cfg.MaxRetries))
	}

	return &Embedder{
		client:     openai.NewClient(opts...),
		model:      model,
		dimensions: dimensions,
	}, nil
}

// Embed converts text into a vector embedding.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := e.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{
			OfString: openai.String(text),
		},
		Model:      openai.EmbeddingModel(e.model),
		Dimensions: openai.Int(int64(e.dimensions)),
	})
	if err != nil {
		return nil, embeddings.NewProviderError(ProviderName, err)
	}

	if len(resp.Data) == 0 {
		return nil, embeddings.NewProviderError(ProviderName, errors.New("no embeddings returned"))
	}

	raw := resp.Data[0].Embedding
	vec := make([]float32, len(raw))
	for i, f := range raw {
		vec[i] = float32(f)
	}

	return vec, nil
}

// Dimensions returns the requested vector size.
func (e *Embedder) Dimensions() int {
	return e.dimensions
}

// Close is a no-op; the client holds no resources.
func (e *Embedder) Close() error {
	return nil
}

var _ embeddings.Embedder = (*Embedder)(nil)
