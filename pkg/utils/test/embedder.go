package testutils

import (
	"context"
	"fmt"
	"sync"

	"github.com/papercomputeco/switchyard/pkg/embeddings"
)

// MockEmbedder is a test embedder that returns predictable embeddings
type MockEmbedder struct {
	mu sync.Mutex

	Embeddings map[string][]float32

	// Dims is the size of the default embedding returned for unknown text.
	Dims int

	// FailOn causes Embed to return an error when the input text matches
	FailOn string

	// Calls counts Embed invocations, including failed ones.
	Calls int

	// Closed is set once Close is called.
	Closed bool
}

func NewMockEmbedder() *MockEmbedder {
	return &MockEmbedder{
		Embeddings: make(map[string][]float32),
		Dims:       3,
	}
}

func (m *MockEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Calls++

	if m.FailOn != "" && text == m.FailOn {
		return nil, embeddings.NewProviderError("mock", fmt.Errorf("mock embedding failure for: %s", text))
	}

	if emb, ok := m.Embeddings[text]; ok {
		return emb, nil
	}

	// Return a default embedding for any text
	emb := make([]float32, m.Dims)
	for i := range emb {
		emb[i] = 0.1 * float32(i+1)
	}
	return emb, nil
}

func (m *MockEmbedder) Dimensions() int {
	return m.Dims
}

func (m *MockEmbedder) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Closed = true
	return nil
}

// CallCount returns Calls under the embedder's lock.
func (m *MockEmbedder) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Calls
}

// LengthEmbedder embeds text as a single dimension holding its length in
// bytes, so squared distances between texts are easy to reason about.
type LengthEmbedder struct {
	// FailOn causes Embed to return an error when the input text matches
	FailOn string
}

func (l *LengthEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if l.FailOn != "" && text == l.FailOn {
		return nil, embeddings.NewProviderError("length", fmt.Errorf("length embedding failure for: %s", text))
	}
	return []float32{float32(len(text))}, nil
}

func (l *LengthEmbedder) Dimensions() int {
	return 1
}

func (l *LengthEmbedder) Close() error {
	return nil
}
