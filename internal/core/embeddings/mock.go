package embeddings

import (
	"context"
	"crypto/sha256"
)

const mockDimensions = 64

// MockProvider is a deterministic embedding provider for tests and local
// development without an API key. Vectors are derived from a hash of the
// text, so identical texts always embed identically.
type MockProvider struct{}

// NewMockProvider creates a new mock provider.
func NewMockProvider() *MockProvider {
	return &MockProvider{}
}

// Name returns the provider identifier.
func (p *MockProvider) Name() ProviderName {
	return ProviderMock
}

// Embed generates hash-derived vectors, one per text.
func (p *MockProvider) Embed(_ context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vectors[i] = mockVector(text)
	}

	return vectors, nil
}

func mockVector(text string) []float32 {
	sum := sha256.Sum256([]byte(text))
	vec := make([]float32, mockDimensions)

	for i := 0; i < mockDimensions; i++ {
		b := sum[i%len(sum)]
		// Spread bytes into [-1,1] with a position-dependent twist so
		// different texts rarely collide.
		vec[i] = float32(int(b)+i*7%256)/128.0 - 1.0
	}

	return vec
}
