// Package vector provides the flat nearest-neighbor index used by hybrid memory.
//
// The index is exact: every search is a brute force scan over all stored
// embeddings using squared Euclidean distance on the raw vectors. No
// normalization is applied, so ranking follows the embedding provider's own
// scale conventions.
package vector

import (
	"errors"
	"sort"
)

// Entry is a single indexed text and its embedding.
type Entry struct {
	// Seq is the structured log sequence id the entry was recorded under.
	Seq int64

	// Text is the embedded text.
	Text string

	// Embedding is the raw vector produced by the embedding provider.
	Embedding []float32
}

// Match is a search result.
type Match struct {
	Entry

	// Position is the insertion index of the entry. Positions are stable for
	// the life of the index.
	Position int

	// Distance is the squared Euclidean distance to the query.
	Distance float64
}

// Index is an append-only, in-memory nearest-neighbor index. It is not safe
// for concurrent use; callers serialize access.
type Index struct {
	dimensions int
	entries    []Entry
}

// NewIndex creates an empty index over vectors of the given dimensionality.
func NewIndex(dimensions int) (*Index, error) {
	if dimensions <= 0 {
		return nil, errors.New("index dimensions must be positive")
	}

	return &Index{dimensions: dimensions}, nil
}

// Dimensions returns the vector size the index accepts.
func (i *Index) Dimensions() int {
	return i.dimensions
}

// Len returns the number of entries ever added.
func (i *Index) Len() int {
	return len(i.entries)
}

// Check reports whether v can be added to or searched against the index.
func (i *Index) Check(v []float32) error {
	if len(v) != i.dimensions {
		return DimensionMismatchError{Want: i.dimensions, Got: len(v)}
	}
	return nil
}

// Add appends an entry. The embedding is copied.
func (i *Index) Add(e Entry) error {
	if err := i.Check(e.Embedding); err != nil {
		return err
	}

	emb := make([]float32, len(e.Embedding))
	copy(emb, e.Embedding)
	e.Embedding = emb

	i.entries = append(i.entries, e)
	return nil
}

// Search returns up to k entries ordered by ascending distance to query.
// Ties keep insertion order. A non-positive k or an empty index yields an
// empty result, and k larger than the index is clamped.
func (i *Index) Search(query []float32, k int) ([]Match, error) {
	if k <= 0 || len(i.entries) == 0 {
		return []Match{}, nil
	}

	if err := i.Check(query); err != nil {
		return nil, err
	}

	matches := make([]Match, len(i.entries))
	for pos, e := range i.entries {
		matches[pos] = Match{
			Entry:    e,
			Position: pos,
			Distance: SquaredL2(query, e.Embedding),
		}
	}

	sort.SliceStable(matches, func(a, b int) bool {
		return matches[a].Distance < matches[b].Distance
	})

	if k > len(matches) {
		k = len(matches)
	}

	return matches[:k], nil
}

// SquaredL2 returns the squared Euclidean distance between a and b, which
// must be the same length.
func SquaredL2(a, b []float32) float64 {
	var sum float64
	for j := range a {
		d := float64(a[j]) - float64(b[j])
		sum += d * d
	}
	return sum
}
