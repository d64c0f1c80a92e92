package retrieval

import (
	"sort"

	"github.com/SaintWyss/rag-corp-sub001/pkg/model"
)

// rrfK is the Reciprocal Rank Fusion damping constant: score(d) = Σ 1/(k+rank).
const rrfK = 60

// FuseRRF combines any number of independently-ranked result lists into one
// fused ordering. Ranks are 1-indexed within each input ranker. A chunk's
// fusion key is its persisted ID when present, else document_id:chunk_index
// — see model.Chunk.Key. Fusion is commutative: FuseRRF(a, b) and
// FuseRRF(b, a) produce the same scores and therefore the same order.
func FuseRRF(rankers ...[]model.ScoredChunk) []model.ScoredChunk {
	scores := make(map[string]float64)
	first := make(map[string]model.Chunk)

	for _, ranked := range rankers {
		for i, sc := range ranked {
			key := sc.Chunk.Key()
			rank := i + 1
			scores[key] += 1.0 / float64(rrfK+rank)
			if _, seen := first[key]; !seen {
				first[key] = sc.Chunk
			}
		}
	}

	out := make([]model.ScoredChunk, 0, len(scores))
	for key, score := range scores {
		out = append(out, model.ScoredChunk{Chunk: first[key], Score: score})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Chunk.Key() < out[j].Chunk.Key()
	})
	return out
}
