// Package embedding provides the client for the remote embedding-generation
// service. The model itself is opaque; only the request/response contract and
// caching/rate-limiting live here.
package embedding

import "context"

// Embedder produces vector embeddings for text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)

	// Dimensions returns the fixed embedding vector length.
	Dimensions() int

	// Checksum identifies this service's configuration (deployment, API
	// version). Stored in the ledger so cached embeddings are invalidated
	// when the service changes.
	Checksum() string
}
