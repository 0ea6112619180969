// Package embeddingutils is the embeddings utility package
package embeddingutils

import (
	"errors"
	"fmt"

	"github.com/papercomputeco/switchyard/pkg/embeddings"
	"github.com/papercomputeco/switchyard/pkg/embeddings/cached"
	"github.com/papercomputeco/switchyard/pkg/embeddings/hashing"
	"github.com/papercomputeco/switchyard/pkg/embeddings/ollama"
	"github.com/papercomputeco/switchyard/pkg/embeddings/openai"
)

type NewEmbedderOpts struct {
	ProviderType string
	TargetURL    string
	Model        string
	Dimensions   uint

	// APIKey is only used by the openai provider.
	APIKey string

	// CacheSize wraps the provider in a cache of that many entries when non-zero.
	CacheSize int64
}

func NewEmbedder(o *NewEmbedderOpts) (embeddings.Embedder, error) {
	var (
		e   embeddings.Embedder
		err error
	)

	switch o.ProviderType {
	case hashing.ProviderName:
		e = hashing.NewEmbedder(int(o.Dimensions))
	case ollama.ProviderName:
		e, err = ollama.NewEmbedder(ollama.EmbedderConfig{
			BaseURL:    o.TargetURL,
			Model:      o.Model,
			Dimensions: int(o.Dimensions),
		})
	case openai.ProviderName:
		e, err = openai.NewEmbedder(openai.EmbedderConfig{
			APIKey:     o.APIKey,
			BaseURL:    o.TargetURL,
			Model:      o.Model,
			Dimensions: int(o.Dimensions),
		})
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", o.ProviderType)
	}
	if err != nil {
		return nil, err
	}

	if o.CacheSize > 0 {
		return WithCache(e, o.CacheSize)
	}

	return e, nil
}

// WithCache wraps e in a cache of size entries. e is closed when the cache
// cannot be built, so the caller only ever owns the returned embedder.
func WithCache(e embeddings.Embedder, size int64) (embeddings.Embedder, error) {
	c, err := cached.NewEmbedder(e, size)
	if err != nil {
		if closeErr := e.Close(); closeErr != nil {
			return nil, errors.Join(err, closeErr)
		}
		return nil, err
	}
	return c, nil
}
