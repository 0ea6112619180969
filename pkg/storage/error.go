package storage

import (
	"fmt"

	"github.com/papercomputeco/switchyard/pkg/vector"
)

// ErrDimensionMismatch is matched via errors.Is when an embedding, or a
// reopened store, does not have the expected dimensions.
var ErrDimensionMismatch = vector.ErrDimensionMismatch

// CheckEmbedding validates role and embedding size before a record is appended.
func CheckEmbedding(role Role, embedding []float32, dimensions int) error {
	if !role.Valid() {
		return fmt.Errorf("invalid role %q", role)
	}

	if len(embedding) != dimensions {
		return vector.DimensionMismatchError{Want: dimensions, Got: len(embedding)}
	}

	return nil
}

// MissingEmbeddingError is returned when a persisted record has no stored vector.
type MissingEmbeddingError struct {
	Seq int64
}

func (e MissingEmbeddingError) Error() string {
	return fmt.Sprintf("record %d has no stored embedding", e.Seq)
}
