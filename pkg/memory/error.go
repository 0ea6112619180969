package memory

import (
	"errors"
	"fmt"

	"github.com/papercomputeco/switchyard/pkg/storage"
)

// ErrClosed is returned by every operation on a closed Memory.
var ErrClosed = errors.New("memory is closed")

// WriteError is returned when Record fails. Neither the structured log nor
// the vector index changed when it is returned.
type WriteError struct {
	Role storage.Role
	Text string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("recording %s turn: %v", e.Role, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}
