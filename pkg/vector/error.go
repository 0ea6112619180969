package vector

import (
	"errors"
	"fmt"
)

// ErrDimensionMismatch is matched by every DimensionMismatchError via errors.Is.
var ErrDimensionMismatch = errors.New("vector dimension mismatch")

// DimensionMismatchError is returned when a vector's length differs from the
// dimensionality the index was constructed with.
type DimensionMismatchError struct {
	Want int
	Got  int
}

func (e DimensionMismatchError) Error() string {
	return fmt.Sprintf("vector dimension mismatch: want %d, got %d", e.Want, e.Got)
}

func (e DimensionMismatchError) Is(target error) bool {
	return target == ErrDimensionMismatch
}
