// Package embeddings implements the similarity service used by the scorer:
// batched text embeddings plus cosine similarity against a target
// description.
package embeddings

import (
	"context"
	"math"
)

// ProviderName identifies an embedding provider.
type ProviderName string

// Known providers.
const (
	ProviderOpenAI ProviderName = "openai"
	ProviderMock   ProviderName = "mock"
)

// Provider generates embeddings for batches of texts.
type Provider interface {
	// Name returns the provider identifier.
	Name() ProviderName

	// Embed generates one embedding per input text, preserving order.
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// CosineSimilarity computes the cosine similarity between two vectors.
// Mismatched or empty vectors yield 0.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64

	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
