// Package inmemory provides a process-local storage.Driver. Nothing survives
// Close; it backs tests and throwaway sessions.
package inmemory

import (
	"context"
	"errors"
	"sync"

	"github.com/papercomputeco/switchyard/pkg/storage"
)

// Driver implements storage.Driver using an in-memory slice.
type Driver struct {
	// mu is a read write sync mutex for locking the turn log
	mu sync.RWMutex

	dimensions int

	// turns is ordered by sequence id; turns[i].Seq == i+1
	turns []storage.Turn
}

// NewDriver creates a new in-memory driver for embeddings of the given size.
func NewDriver(dimensions int) (*Driver, error) {
	if dimensions <= 0 {
		return nil, errors.New("in-memory storage dimensions must be positive")
	}

	return &Driver{
		dimensions: dimensions,
		turns:      make([]storage.Turn, 0),
	}, nil
}

// Append stores a record and its embedding under the next sequence id.
func (d *Driver) Append(_ context.Context, role storage.Role, content string, embedding []float32) (storage.Record, error) {
	if err := storage.CheckEmbedding(role, embedding, d.dimensions); err != nil {
		return storage.Record{}, err
	}

	emb := make([]float32, len(embedding))
	copy(emb, embedding)

	d.mu.Lock()
	defer d.mu.Unlock()

	rec := storage.Record{
		Seq:     int64(len(d.turns) + 1),
		Role:    role,
		Content: content,
	}
	d.turns = append(d.turns, storage.Turn{Record: rec, Embedding: emb})

	return rec, nil
}

// History returns every record in sequence order.
func (d *Driver) History(_ context.Context) ([]storage.Record, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	records := make([]storage.Record, len(d.turns))
	for i, t := range d.turns {
		records[i] = t.Record
	}
	return records, nil
}

// Turns returns copies of every stored turn in sequence order.
func (d *Driver) Turns(_ context.Context) ([]storage.Turn, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	turns := make([]storage.Turn, len(d.turns))
	for i, t := range d.turns {
		emb := make([]float32, len(t.Embedding))
		copy(emb, t.Embedding)
		turns[i] = storage.Turn{Record: t.Record, Embedding: emb}
	}
	return turns, nil
}

// Dimensions returns the embedding size.
func (d *Driver) Dimensions() int {
	return d.dimensions
}

// Close is a no-op for the in-memory driver.
func (d *Driver) Close() error {
	return nil
}

var _ storage.Driver = (*Driver)(nil)
