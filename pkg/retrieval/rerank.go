package retrieval

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/SaintWyss/rag-corp-sub001/pkg/model"
)

// Generator is the subset of ask.Generator the LLM-backed reranker needs.
// It's declared here rather than imported from pkg/ask because pkg/ask
// already imports pkg/retrieval; any concrete generator (llm.Client,
// llm.FakeGenerator, ask.Generator) satisfies it structurally.
type Generator interface {
	Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

const rerankPromptChars = 500

const rerankSystemPrompt = "Sos un sistema de reranking de documentos. Para cada fragmento numerado recibí una consulta y una lista de fragmentos. Respondé únicamente con una línea por fragmento en el formato \"N: score\", donde N es el número del fragmento y score es un entero de 0 (nada relevante) a 10 (totalmente relevante) para responder la consulta. No agregues explicaciones ni texto adicional."

var rerankScoreLine = regexp.MustCompile(`(?m)^\s*(\d+)\s*[:.\-]\s*(\d+(?:\.\d+)?)`)

// LLMReranker asks the chat model to score each candidate's relevance to
// the query and reorders candidates by that score, highest first.
// Candidates the model's reply doesn't score keep their original
// retrieval rank.
type LLMReranker struct {
	generator Generator
}

func NewLLMReranker(generator Generator) *LLMReranker {
	return &LLMReranker{generator: generator}
}

func (r *LLMReranker) Rerank(ctx context.Context, queryText string, candidates []model.ScoredChunk, topK int) ([]model.ScoredChunk, error) {
	if len(candidates) == 0 {
		return candidates, nil
	}

	reply, err := r.generator.Generate(ctx, rerankSystemPrompt, rerankPrompt(queryText, candidates))
	if err != nil {
		return nil, fmt.Errorf("retrieval: rerank: %w", err)
	}

	scores := parseRerankScores(reply, len(candidates))
	ranked := rankByScore(candidates, scores)
	if topK > 0 && topK < len(ranked) {
		ranked = ranked[:topK]
	}
	return ranked, nil
}

func rerankPrompt(queryText string, candidates []model.ScoredChunk) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Consulta: %s\n\n", queryText)
	for i, c := range candidates {
		fmt.Fprintf(&b, "%d: %s\n\n", i+1, truncateRunes(c.Chunk.Content, rerankPromptChars))
	}
	return b.String()
}

// parseRerankScores extracts a "N: score" line per candidate; a candidate
// the reply never mentions, or scores unparseably, falls back to a score
// that preserves its original rank rather than being treated as zero.
func parseRerankScores(reply string, n int) []float64 {
	scores := make([]float64, n)
	for i := range scores {
		scores[i] = float64(n-i) / float64(n+1)
	}
	for _, m := range rerankScoreLine.FindAllStringSubmatch(reply, -1) {
		idx, err := strconv.Atoi(m[1])
		if err != nil || idx < 1 || idx > n {
			continue
		}
		score, err := strconv.ParseFloat(m[2], 64)
		if err != nil {
			continue
		}
		scores[idx-1] = score
	}
	return scores
}

func rankByScore(candidates []model.ScoredChunk, scores []float64) []model.ScoredChunk {
	type pair struct {
		chunk model.ScoredChunk
		score float64
	}
	pairs := make([]pair, len(candidates))
	for i, c := range candidates {
		pairs[i] = pair{chunk: c, score: scores[i]}
	}
	sort.SliceStable(pairs, func(i, j int) bool { return pairs[i].score > pairs[j].score })

	out := make([]model.ScoredChunk, len(pairs))
	for i, p := range pairs {
		out[i] = p.chunk
	}
	return out
}

func truncateRunes(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}

// FakeReranker deterministically reorders candidates by their existing
// retrieval score, for local development and tests under FAKE_LLM=1 where
// no reranking provider credentials are configured.
type FakeReranker struct{}

func NewFakeReranker() *FakeReranker { return &FakeReranker{} }

func (FakeReranker) Rerank(ctx context.Context, queryText string, candidates []model.ScoredChunk, topK int) ([]model.ScoredChunk, error) {
	out := make([]model.ScoredChunk, len(candidates))
	copy(out, candidates)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if topK > 0 && topK < len(out) {
		out = out[:topK]
	}
	return out, nil
}
