package retrieval

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SaintWyss/rag-corp-sub001/pkg/model"
)

type fakeRerankGenerator struct {
	reply string
	err   error
}

func (f *fakeRerankGenerator) Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	return f.reply, f.err
}

func TestLLMReranker_OrdersByParsedScore(t *testing.T) {
	candidates := []model.ScoredChunk{chunk(1, 0.5), chunk(2, 0.5), chunk(3, 0.5)}
	gen := &fakeRerankGenerator{reply: "1: 2\n2: 9\n3: 5"}
	reranker := NewLLMReranker(gen)

	out, err := reranker.Rerank(context.Background(), "query", candidates, 2)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, int64(2), out[0].Chunk.ID)
	assert.Equal(t, int64(3), out[1].Chunk.ID)
}

func TestLLMReranker_UnparseableReplyPreservesOriginalOrder(t *testing.T) {
	candidates := []model.ScoredChunk{chunk(1, 0.5), chunk(2, 0.5)}
	gen := &fakeRerankGenerator{reply: "no scores here"}
	reranker := NewLLMReranker(gen)

	out, err := reranker.Rerank(context.Background(), "query", candidates, 0)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, int64(1), out[0].Chunk.ID)
	assert.Equal(t, int64(2), out[1].Chunk.ID)
}

func TestLLMReranker_GeneratorErrorPropagates(t *testing.T) {
	reranker := NewLLMReranker(&fakeRerankGenerator{err: assert.AnError})
	_, err := reranker.Rerank(context.Background(), "query", []model.ScoredChunk{chunk(1, 0.5)}, 1)
	assert.Error(t, err)
}

func TestFakeReranker_SortsByExistingScoreDescending(t *testing.T) {
	candidates := []model.ScoredChunk{chunk(1, 0.2), chunk(2, 0.9), chunk(3, 0.5)}
	out, err := NewFakeReranker().Rerank(context.Background(), "query", candidates, 0)
	require.NoError(t, err)
	require.Len(t, out, 3)
	assert.Equal(t, int64(2), out[0].Chunk.ID)
	assert.Equal(t, int64(3), out[1].Chunk.ID)
	assert.Equal(t, int64(1), out[2].Chunk.ID)
}
