package retrieval

import (
	"math"

	"github.com/SaintWyss/rag-corp-sub001/pkg/model"
)

// DefaultMMRLambda balances query relevance against intra-result diversity.
const DefaultMMRLambda = 0.5

// SelectMMR greedily selects topK chunks from a candidate pool (already
// ordered by descending similarity to the query) maximizing, at each step,
// λ·sim(query,c) − (1−λ)·max(sim(c,s)) over already-selected s. Candidates
// must carry their query-similarity in Score; cosine similarity between
// candidates is computed from their embeddings.
func SelectMMR(candidates []model.ScoredChunk, topK int, lambda float64) []model.ScoredChunk {
	if topK <= 0 || len(candidates) == 0 {
		return nil
	}
	if topK > len(candidates) {
		topK = len(candidates)
	}

	remaining := make([]model.ScoredChunk, len(candidates))
	copy(remaining, candidates)
	selected := make([]model.ScoredChunk, 0, topK)

	for len(selected) < topK && len(remaining) > 0 {
		bestIdx := -1
		bestScore := -1e18
		for i, cand := range remaining {
			diversityPenalty := 0.0
			for _, s := range selected {
				sim := cosineSimilarity(cand.Chunk.Embedding.Slice(), s.Chunk.Embedding.Slice())
				if sim > diversityPenalty {
					diversityPenalty = sim
				}
			}
			mmrScore := lambda*cand.Score - (1-lambda)*diversityPenalty
			if mmrScore > bestScore {
				bestScore = mmrScore
				bestIdx = i
			}
		}
		chosen := remaining[bestIdx]
		chosen.Score = bestScore
		selected = append(selected, chosen)
		remaining = append(remaining[:bestIdx], remaining[bestIdx+1:]...)
	}
	return selected
}

func cosineSimilarity(a, b []float32) float64 {
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
