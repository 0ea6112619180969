// Package cached decorates a pkg/embeddings Embedder with an in-process
// ristretto cache keyed by input text. Repeated recall queries and re-recorded
// texts then skip the provider round trip.
package cached

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/ristretto"

	"github.com/papercomputeco/switchyard/pkg/embeddings"
)

const (
	// DefaultSize is the number of embeddings kept when no size is configured.
	DefaultSize = 4096

	// MaxSize bounds the configured size. ristretto allocates ten counters
	// per entry up front.
	MaxSize = 1 << 24
)

// Embedder caches the vectors of an inner embedder.
type Embedder struct {
	inner embeddings.Embedder
	cache *ristretto.Cache
}

// NewEmbedder wraps inner with a cache holding up to size embeddings.
func NewEmbedder(inner embeddings.Embedder, size int64) (*Embedder, error) {
	if inner == nil {
		return nil, errors.New("cached embedder requires an inner embedder")
	}

	if size <= 0 {
		size = DefaultSize
	}
	if size > MaxSize {
		return nil, fmt.Errorf("embedding cache size %d exceeds %d", size, MaxSize)
	}

	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters:        size * 10,
		MaxCost:            size,
		BufferItems:        64,
		IgnoreInternalCost: true,
	})
	if err != nil {
		return nil, fmt.Errorf("creating embedding cache: %w", err)
	}

	return &Embedder{
		inner: inner,
		cache: cache,
	}, nil
}

// Embed returns the cached vector for text, computing and caching it on a
// miss. Callers receive a copy they are free to modify.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if v, ok := e.cache.Get(text); ok {
		if vec, ok := v.([]float32); ok {
			return clone(vec), nil
		}
	}

	vec, err := e.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	e.cache.Set(text, clone(vec), 1)
	e.cache.Wait()

	return vec, nil
}

// Dimensions returns the inner embedder's dimensions.
func (e *Embedder) Dimensions() int {
	return e.inner.Dimensions()
}

// Close stops the cache and closes the inner embedder.
func (e *Embedder) Close() error {
	e.cache.Close()
	return e.inner.Close()
}

func clone(v []float32) []float32 {
	out := make([]float32, len(v))
	copy(out, v)
	return out
}

var _ embeddings.Embedder = (*Embedder)(nil)
