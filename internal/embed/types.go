// Package embed maps chunks to dense vectors: the {embed_batch, health}
// capability set the coordinator depends on, plus the coordinator itself
// — fingerprint-keyed caching, batching, retries, and degradation to
// keyword-only mode.
package embed

import (
	"context"
	"math"
)

// Embedder is the capability set the embedding coordinator treats as an
// external collaborator.
type Embedder interface {
	// EmbedBatch returns one L2-normalized vector per text, in order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Health reports whether the embedder is currently reachable and
	// serving. A non-nil error latches the coordinator toward
	// keyword-only mode.
	Health(ctx context.Context) error

	// Dimensions returns the embedding dimension this embedder produces.
	Dimensions() int

	// ModelName identifies the model behind this embedder.
	ModelName() string
}

// normalizeVector L2-normalizes a copy of v, returning the zero vector
// unchanged (normalization only applies to non-zero embeddings).
func normalizeVector(v []float32) []float32 {
	var sumSquares float64
	for _, x := range v {
		sumSquares += float64(x) * float64(x)
	}
	if sumSquares == 0 {
		return v
	}
	norm := math.Sqrt(sumSquares)
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out
}
