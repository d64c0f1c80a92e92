// Package retrieval implements the dense/sparse/fused/reranked candidate
// pipeline, generalized from the teacher's SearchService mode-switch
// (keyword/semantic/hybrid) in pkg/service/search_service.go into the
// dense → sparse → RRF → rerank sequence this service needs.
package retrieval

import (
	"context"

	"github.com/SaintWyss/rag-corp-sub001/pkg/metrics"
	"github.com/SaintWyss/rag-corp-sub001/pkg/model"
)

const (
	defaultRerankMultiplier  = 5
	defaultMaxCandidates     = 200
	defaultMMRFetchMultiplier = 4
)

// Store is the subset of the chunk store the retrieval engine depends on.
type Store interface {
	FindSimilarChunks(ctx context.Context, embedding []float32, topK int, workspaceID int64) ([]model.ScoredChunk, error)
	FindSimilarChunksForMMR(ctx context.Context, embedding []float32, fetchK int, workspaceID int64) ([]model.ScoredChunk, error)
	FindChunksFullText(ctx context.Context, queryText string, topK int, workspaceID int64) ([]model.ScoredChunk, error)
}

// Reranker reorders candidates given the original query text.
type Reranker interface {
	Rerank(ctx context.Context, queryText string, candidates []model.ScoredChunk, topK int) ([]model.ScoredChunk, error)
}

type Options struct {
	WorkspaceID     int64
	QueryText       string
	QueryEmbedding  []float32
	TopK            int
	UseMMR          bool
	HybridEnabled   bool
	RerankEnabled   bool
	MMRLambda       float64
	RerankMultiplier int
	MaxCandidates   int
}

// Result carries the retrieved chunks plus the orchestration metadata the
// ask pipeline reports back to the caller.
type Result struct {
	Chunks          []model.ScoredChunk
	CandidatesCount int
	RerankApplied   bool
	RerankedCount   int
	HybridUsed      bool
}

type Engine struct {
	store    Store
	reranker Reranker
}

func NewEngine(store Store, reranker Reranker) *Engine {
	return &Engine{store: store, reranker: reranker}
}

// Retrieve runs the procedure: size the candidate pool for reranking,
// run dense (optionally MMR) retrieval, optionally fuse in sparse
// retrieval via RRF, and optionally rerank. It returns the full candidate
// pool, not just TopK — callers apply their own downstream filtering
// before truncating, so filtering sees every candidate the rerank
// multiplier fetched, not a pool already cut down to TopK.
func (e *Engine) Retrieve(ctx context.Context, opts Options) (Result, error) {
	mult := opts.RerankMultiplier
	if mult <= 0 {
		mult = defaultRerankMultiplier
	}
	maxCand := opts.MaxCandidates
	if maxCand <= 0 {
		maxCand = defaultMaxCandidates
	}

	candidateTopK := opts.TopK
	if opts.RerankEnabled {
		candidateTopK = minInt(maxInt(opts.TopK, opts.TopK*mult), maxCand)
	}

	dense, err := e.denseRetrieve(ctx, opts, candidateTopK, maxCand)
	if err != nil {
		return Result{}, err
	}

	candidates := dense
	hybridUsed := false
	if opts.HybridEnabled {
		sparse, serr := e.store.FindChunksFullText(ctx, opts.QueryText, candidateTopK, opts.WorkspaceID)
		if serr != nil {
			metrics.RetrievalFallback.WithLabelValues("sparse").Inc()
		} else {
			candidates = FuseRRF(dense, sparse)
			hybridUsed = true
		}
	}

	rerankApplied := false
	rerankedCount := 0
	if opts.RerankEnabled && e.reranker != nil {
		topKPrime := minInt(len(candidates), maxCand)
		reranked, rerr := e.reranker.Rerank(ctx, opts.QueryText, candidates, topKPrime)
		if rerr != nil {
			metrics.RetrievalFallback.WithLabelValues("rerank").Inc()
		} else {
			candidates = reranked
			rerankApplied = true
			rerankedCount = len(reranked)
		}
	}

	return Result{
		Chunks:          candidates,
		CandidatesCount: len(dense),
		RerankApplied:   rerankApplied,
		RerankedCount:   rerankedCount,
		HybridUsed:      hybridUsed,
	}, nil
}

func (e *Engine) denseRetrieve(ctx context.Context, opts Options, candidateTopK, maxCand int) ([]model.ScoredChunk, error) {
	if !opts.UseMMR {
		return e.store.FindSimilarChunks(ctx, opts.QueryEmbedding, candidateTopK, opts.WorkspaceID)
	}

	fetchK := minInt(maxInt(candidateTopK, candidateTopK*defaultMMRFetchMultiplier), maxCand)
	pool, err := e.store.FindSimilarChunksForMMR(ctx, opts.QueryEmbedding, fetchK, opts.WorkspaceID)
	if err != nil {
		return nil, err
	}
	lambda := opts.MMRLambda
	if lambda <= 0 {
		lambda = DefaultMMRLambda
	}
	return SelectMMR(pool, candidateTopK, lambda), nil
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
