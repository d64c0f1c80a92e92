package bootstrap

import (
	"context"

	"github.com/sony/gobreaker"

	"github.com/SaintWyss/rag-corp-sub001/pkg/ask"
	"github.com/SaintWyss/rag-corp-sub001/pkg/ingest"
	"github.com/SaintWyss/rag-corp-sub001/pkg/resilience"
)

// breakerEmbedder trips the named circuit breaker around the embedding
// provider so a run of failures fails fast instead of queuing timeouts
// behind every ask and ingest call.
type breakerEmbedder struct {
	inner ingest.Embedder
	cb    *gobreaker.CircuitBreaker
}

func breakEmbedder(inner ingest.Embedder, name string) *breakerEmbedder {
	return &breakerEmbedder{inner: inner, cb: resilience.NewBreaker(name)}
}

func (b *breakerEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	result, err := b.cb.Execute(func() (interface{}, error) {
		return b.inner.EmbedBatch(ctx, texts)
	})
	if err != nil {
		return nil, err
	}
	return result.([][]float32), nil
}

// breakerGenerator is the same circuit-breaker wrapping for the LLM call on
// the ask path.
type breakerGenerator struct {
	inner ask.Generator
	cb    *gobreaker.CircuitBreaker
}

func breakGenerator(inner ask.Generator, name string) *breakerGenerator {
	return &breakerGenerator{inner: inner, cb: resilience.NewBreaker(name)}
}

func (b *breakerGenerator) Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	result, err := b.cb.Execute(func() (interface{}, error) {
		return b.inner.Generate(ctx, systemPrompt, userPrompt)
	})
	if err != nil {
		return "", err
	}
	return result.(string), nil
}
