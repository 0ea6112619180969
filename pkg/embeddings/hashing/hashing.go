// Package hashing implements an offline pkg/embeddings Embedder using the
// hashing trick: each lowercase word token is hashed into one of a fixed
// number of buckets with a hash-derived sign, and the resulting counts are
// scaled to unit length. Texts that share words land close together under
// squared Euclidean distance, which is enough for local recall without a
// model server.
package hashing

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"unicode"

	"github.com/papercomputeco/switchyard/pkg/embeddings"
)

const (
	// ProviderName identifies the hashing embedder in configuration.
	ProviderName = "hashing"

	// DefaultDimensions is used when no dimensions are configured.
	DefaultDimensions = 256
)

// Embedder is a deterministic, dependency-free embedder.
type Embedder struct {
	dimensions int
}

// NewEmbedder returns a hashing embedder producing vectors of the given size.
// A non-positive size selects DefaultDimensions.
func NewEmbedder(dimensions int) *Embedder {
	if dimensions <= 0 {
		dimensions = DefaultDimensions
	}
	return &Embedder{dimensions: dimensions}
}

// Embed hashes the tokens of text into a unit vector. Text without any
// tokens embeds to the zero vector.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, embeddings.NewProviderError(ProviderName, err)
	}

	vec := make([]float32, e.dimensions)
	for _, tok := range Tokenize(text) {
		h := fnv.New64a()
		_, _ = h.Write([]byte(tok))
		sum := h.Sum64()

		bucket := sum % uint64(e.dimensions)
		if sum>>63 == 1 {
			vec[bucket]--
		} else {
			vec[bucket]++
		}
	}

	return normalize(vec), nil
}

// Dimensions returns the embedding size.
func (e *Embedder) Dimensions() int {
	return e.dimensions
}

// Close is a no-op.
func (e *Embedder) Close() error {
	return nil
}

// Tokenize lowercases text and splits it on anything that is not a letter
// or a digit.
func Tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func normalize(vec []float32) []float32 {
	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}

	if norm == 0 {
		return vec
	}

	norm = math.Sqrt(norm)
	for i, v := range vec {
		vec[i] = float32(float64(v) / norm)
	}

	return vec
}

var _ embeddings.Embedder = (*Embedder)(nil)
