package embedding

import (
	"context"
	"hash/fnv"
	"math"
	"sync/atomic"

	"github.com/zjiaksmc/gen-ai-knowledge-base/pkg/utils"
)

// MockEmbedder is a deterministic embedder for tests: the same text always
// yields the same unit-length vector, and calls are counted so tests can
// assert that cached documents skip the embedding service.
type MockEmbedder struct {
	dimensions int
	calls      atomic.Int64

	// FailFor, when non-empty, makes Embed fail for exactly this text.
	FailFor string
}

// NewMockEmbedder returns an embedder producing deterministic embeddings of
// the given dimensions.
func NewMockEmbedder(dimensions int) *MockEmbedder {
	if dimensions <= 0 {
		dimensions = 1536
	}
	return &MockEmbedder{dimensions: dimensions}
}

// Embed returns a deterministic embedding derived from the text hash.
func (e *MockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	e.calls.Add(1)
	if e.FailFor != "" && text == e.FailFor {
		return nil, context.DeadlineExceeded
	}
	h := fnv.New32a()
	h.Write([]byte(text))
	seed := int(h.Sum32())

	vec := make([]float32, e.dimensions)
	for i := range vec {
		vec[i] = float32(math.Sin(float64(seed%997)*float64(i+1)) * 0.1)
	}
	utils.NormalizeL2(vec)
	return vec, nil
}

// Dimensions returns the embedding dimension.
func (e *MockEmbedder) Dimensions() int {
	return e.dimensions
}

// Checksum returns a fixed identity for the mock service.
func (e *MockEmbedder) Checksum() string {
	return "mock-embedder"
}

// Calls returns how many times Embed was invoked.
func (e *MockEmbedder) Calls() int64 {
	return e.calls.Load()
}
