// Package memory provides hybrid conversation memory for switchyard.
//
// A Memory composes three collaborators: a storage.Driver holding the durable,
// sequence-ordered log of turns, an in-memory vector.Index over the same
// texts, and an embeddings.Embedder turning text into vectors. Record is the
// only write path and keeps the log and the index in lockstep: when it
// returns nil both contain the new turn, and when it fails neither does.
// Recall embeds a query and returns the nearest recorded texts by squared
// Euclidean distance.
//
// The index is rebuilt from the driver's stored embeddings when a Memory is
// opened, so a reopened store recalls everything it recorded before.
package memory

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/papercomputeco/switchyard/pkg/embeddings"
	"github.com/papercomputeco/switchyard/pkg/logger"
	"github.com/papercomputeco/switchyard/pkg/storage"
	"github.com/papercomputeco/switchyard/pkg/vector"
)

// Observer receives the outcome of every Record and Recall call.
type Observer interface {
	ObserveRecord(role storage.Role, elapsed time.Duration, err error)
	ObserveRecall(k int, results int, elapsed time.Duration, err error)
}

// Option configures a Memory.
type Option func(*Memory)

// WithLogger sets the logger. Defaults to a discarding logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *Memory) {
		m.logger = logger.OrNop(l)
	}
}

// WithObserver registers an observer for record and recall outcomes.
func WithObserver(o Observer) Option {
	return func(m *Memory) {
		m.observer = o
	}
}

// Memory is a hybrid structured log and vector index. It is safe for
// concurrent use; Record calls are serialized end to end.
type Memory struct {
	// mu guards index and closed and serializes Record.
	mu     sync.Mutex
	closed bool
	index  *vector.Index

	driver   storage.Driver
	embedder embeddings.Embedder
	logger   *slog.Logger
	observer Observer
}

// Open builds a Memory over driver and embedder, restoring the vector index
// from the turns already persisted by driver. Memory takes ownership of both
// and closes them in Close.
func Open(ctx context.Context, driver storage.Driver, embedder embeddings.Embedder, opts ...Option) (*Memory, error) {
	if driver == nil || embedder == nil {
		return nil, fmt.Errorf("memory requires a storage driver and an embedder")
	}

	m := &Memory{
		driver:   driver,
		embedder: embedder,
		logger:   logger.Nop(),
	}
	for _, opt := range opts {
		opt(m)
	}

	dims := embedder.Dimensions()
	if dims != driver.Dimensions() {
		return nil, fmt.Errorf("opening memory: %w", vector.DimensionMismatchError{
			Want: driver.Dimensions(),
			Got:  dims,
		})
	}

	index, err := vector.NewIndex(dims)
	if err != nil {
		return nil, fmt.Errorf("opening memory: %w", err)
	}

	turns, err := driver.Turns(ctx)
	if err != nil {
		return nil, fmt.Errorf("restoring memory: %w", err)
	}

	for _, t := range turns {
		if err := index.Add(vector.Entry{Seq: t.Seq, Text: t.Content, Embedding: t.Embedding}); err != nil {
			return nil, fmt.Errorf("restoring turn %d: %w", t.Seq, err)
		}
	}
	m.index = index

	m.logger.Info("memory opened",
		"turns", len(turns),
		"dimensions", dims,
	)

	return m, nil
}

// Record appends text under role to the structured log and indexes its
// embedding. The embedding is computed while holding the write lock so turns
// are logged in call order.
func (m *Memory) Record(ctx context.Context, role storage.Role, text string) (rec storage.Record, err error) {
	start := time.Now()
	defer func() {
		if m.observer != nil {
			m.observer.ObserveRecord(role, time.Since(start), err)
		}
	}()

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return storage.Record{}, ErrClosed
	}

	vec, err := m.embedder.Embed(ctx, text)
	if err != nil {
		return storage.Record{}, m.writeError(role, text, fmt.Errorf("embedding: %w", err))
	}

	if err := m.index.Check(vec); err != nil {
		return storage.Record{}, m.writeError(role, text, fmt.Errorf("embedding: %w", err))
	}

	rec, err = m.driver.Append(ctx, role, text, vec)
	if err != nil {
		return storage.Record{}, m.writeError(role, text, fmt.Errorf("appending to log: %w", err))
	}

	// Cannot fail: the vector was checked against the index above.
	_ = m.index.Add(vector.Entry{Seq: rec.Seq, Text: text, Embedding: vec})

	m.logger.Debug("recorded turn",
		"seq", rec.Seq,
		"role", role,
	)

	return rec, nil
}

func (m *Memory) writeError(role storage.Role, text string, err error) error {
	m.logger.Warn("record failed",
		"role", role,
		"err", err,
	)
	return &WriteError{Role: role, Text: text, Err: err}
}

// Recall returns up to k recorded texts nearest to query, closest first.
func (m *Memory) Recall(ctx context.Context, query string, k int) ([]string, error) {
	matches, err := m.RecallMatches(ctx, query, k)
	if err != nil {
		return nil, err
	}

	texts := make([]string, len(matches))
	for i, match := range matches {
		texts[i] = match.Text
	}
	return texts, nil
}

// RecallMatches is Recall with sequence ids, insertion positions and
// distances. A non-positive k or an empty memory yields an empty result
// without calling the embedder.
func (m *Memory) RecallMatches(ctx context.Context, query string, k int) (matches []vector.Match, err error) {
	start := time.Now()
	defer func() {
		if m.observer != nil {
			m.observer.ObserveRecall(k, len(matches), time.Since(start), err)
		}
	}()

	m.mu.Lock()
	closed, size := m.closed, m.index.Len()
	m.mu.Unlock()

	if closed {
		return nil, ErrClosed
	}

	if k <= 0 || size == 0 {
		return []vector.Match{}, nil
	}

	vec, err := m.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding recall query: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, ErrClosed
	}

	matches, err = m.index.Search(vec, k)
	if err != nil {
		return nil, fmt.Errorf("searching index: %w", err)
	}

	m.logger.Debug("recalled",
		"k", k,
		"results", len(matches),
	)

	return matches, nil
}

// History returns the full structured log in sequence order.
func (m *Memory) History(ctx context.Context) ([]storage.Record, error) {
	m.mu.Lock()
	closed := m.closed
	m.mu.Unlock()

	if closed {
		return nil, ErrClosed
	}

	return m.driver.History(ctx)
}

// Len returns the number of indexed turns, equal to the number of successful
// Record calls over the life of the store.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.index.Len()
}

// Dimensions returns the embedding size.
func (m *Memory) Dimensions() int {
	return m.index.Dimensions()
}

// Close closes the embedder and the storage driver. Later calls on m return
// ErrClosed.
func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}
	m.closed = true

	embErr := m.embedder.Close()
	drvErr := m.driver.Close()

	if embErr != nil {
		return fmt.Errorf("closing embedder: %w", embErr)
	}
	if drvErr != nil {
		return fmt.Errorf("closing storage: %w", drvErr)
	}
	return nil
}
