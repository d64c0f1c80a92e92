package embedding

import (
	"context"
	"hash/fnv"
)

// FakeClient produces deterministic pseudo-embeddings from a text hash, for
// local development and tests under FAKE_EMBEDDINGS=1 where no provider
// credentials are configured.
type FakeClient struct {
	dimension int
}

func NewFakeClient(dimension int) *FakeClient {
	return &FakeClient{dimension: dimension}
}

func (f *FakeClient) Dimension() int { return f.dimension }

func (f *FakeClient) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = deterministicVector(text, f.dimension)
	}
	return out, nil
}

func deterministicVector(text string, dimension int) []float32 {
	v := make([]float32, dimension)
	h := fnv.New64a()
	for i := 0; i < dimension; i++ {
		h.Write([]byte{byte(i)})
		_, _ = h.Write([]byte(text))
		sum := h.Sum64()
		v[i] = float32(sum%2000)/1000.0 - 1.0
	}
	return v
}
