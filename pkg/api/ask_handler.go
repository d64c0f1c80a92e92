package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/SaintWyss/rag-corp-sub001/pkg/apierrors"
	"github.com/SaintWyss/rag-corp-sub001/pkg/ask"
	"github.com/SaintWyss/rag-corp-sub001/pkg/injection"
	"github.com/SaintWyss/rag-corp-sub001/pkg/model"
)

// Asker is the subset of *ask.Orchestrator the HTTP layer depends on,
// narrowed to an interface so handler tests don't need a real retrieval
// engine, embedder, or generator.
type Asker interface {
	Ask(ctx context.Context, in ask.Input) (ask.Result, error)
	Search(ctx context.Context, in ask.Input) (ask.Result, error)
}

// AskHandler serves the ask and search endpoints, both thin wrappers over
// the same ask.Orchestrator.
type AskHandler struct {
	orchestrator       Asker
	injectionMode      injection.Mode
	injectionThreshold float64
}

func NewAskHandler(orchestrator Asker, injectionMode injection.Mode, injectionThreshold float64) *AskHandler {
	return &AskHandler{
		orchestrator:       orchestrator,
		injectionMode:      injectionMode,
		injectionThreshold: injectionThreshold,
	}
}

type askRequest struct {
	Query          string `json:"query"`
	TopK           *int   `json:"top_k"`
	UseMMR         bool   `json:"use_mmr"`
	ConversationID string `json:"conversation_id"`
}

type source struct {
	ChunkID    int64   `json:"chunk_id"`
	DocumentID int64   `json:"document_id"`
	Content    string  `json:"content"`
	Score      float64 `json:"score"`
}

// resultMetadata mirrors AskResult's metadata contract: every figure a
// caller needs to audit which pipeline stages ran and what they did.
type resultMetadata struct {
	TopK            int    `json:"top_k"`
	ChunksFound     int    `json:"chunks_found"`
	ChunksUsed      int    `json:"chunks_used"`
	ContextChars    int    `json:"context_chars"`
	PromptVersion   string `json:"prompt_version"`
	UseMMR          bool   `json:"use_mmr"`
	RerankApplied   bool   `json:"rerank_applied"`
	CandidatesCount int    `json:"candidates_count"`
	RerankedCount   int    `json:"reranked_count"`
	SelectedTopK    int    `json:"selected_top_k"`
	HybridUsed      bool   `json:"hybrid_used"`
	EmbedMillis     int64  `json:"embed_ms"`
	RetrieveMillis  int64  `json:"retrieve_ms"`
	LLMMillis       int64  `json:"llm_ms"`
	TotalMillis     int64  `json:"total_ms"`
}

func metadataFrom(result ask.Result) resultMetadata {
	return resultMetadata{
		TopK:            result.TopK,
		ChunksFound:     result.ChunksFound,
		ChunksUsed:      result.ChunksUsed,
		ContextChars:    result.ContextChars,
		PromptVersion:   result.PromptVersion,
		UseMMR:          result.UseMMR,
		RerankApplied:   result.RerankApplied,
		CandidatesCount: result.CandidatesCount,
		RerankedCount:   result.RerankedCount,
		SelectedTopK:    result.SelectedTopK,
		HybridUsed:      result.HybridUsed,
		EmbedMillis:     result.StageMillis["embed"],
		RetrieveMillis:  result.StageMillis["retrieve"],
		LLMMillis:       result.StageMillis["llm"],
		TotalMillis:     result.TotalMillis,
	}
}

type askResponse struct {
	Answer         string         `json:"answer"`
	Sources        []source       `json:"sources"`
	ConversationID string         `json:"conversation_id,omitempty"`
	Metadata       resultMetadata `json:"metadata"`
}

type searchResponse struct {
	Matches  []source       `json:"matches"`
	Metadata resultMetadata `json:"metadata"`
}

func sourcesFrom(chunks []model.ScoredChunk) []source {
	out := make([]source, 0, len(chunks))
	for _, c := range chunks {
		out = append(out, source{
			ChunkID:    c.Chunk.ID,
			DocumentID: c.Chunk.DocumentID,
			Content:    c.Chunk.Content,
			Score:      c.Score,
		})
	}
	return out
}

func (h *AskHandler) workspaceID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "ws"), 10, 64)
}

// Ask handles POST /v1/workspaces/{ws}/ask.
func (h *AskHandler) Ask(w http.ResponseWriter, r *http.Request) {
	workspaceID, err := h.workspaceID(r)
	if err != nil {
		writeProblem(w, r, apierrors.Validation("invalid workspace id"))
		return
	}

	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeProblem(w, r, apierrors.Validation("malformed request body"))
		return
	}

	result, err := h.orchestrator.Ask(r.Context(), ask.Input{
		WorkspaceID:        workspaceID,
		Query:              req.Query,
		Actor:              ActorFromContext(r.Context()),
		TopK:               req.TopK,
		UseMMR:             req.UseMMR,
		InjectionMode:      h.injectionMode,
		InjectionThreshold: h.injectionThreshold,
	})
	if err != nil {
		writeProblem(w, r, mapAskError(err))
		return
	}

	writeJSON(w, http.StatusOK, askResponse{
		Answer:         result.Answer,
		Sources:        sourcesFrom(result.Chunks),
		ConversationID: req.ConversationID,
		Metadata:       metadataFrom(result),
	})
}

type searchRequest struct {
	Query  string `json:"query"`
	TopK   *int   `json:"top_k"`
	UseMMR bool   `json:"use_mmr"`
}

// Search handles POST /v1/workspaces/{ws}/search.
func (h *AskHandler) Search(w http.ResponseWriter, r *http.Request) {
	workspaceID, err := h.workspaceID(r)
	if err != nil {
		writeProblem(w, r, apierrors.Validation("invalid workspace id"))
		return
	}

	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeProblem(w, r, apierrors.Validation("malformed request body"))
		return
	}

	result, err := h.orchestrator.Search(r.Context(), ask.Input{
		WorkspaceID:        workspaceID,
		Query:              req.Query,
		Actor:              ActorFromContext(r.Context()),
		TopK:               req.TopK,
		UseMMR:             req.UseMMR,
		InjectionMode:      h.injectionMode,
		InjectionThreshold: h.injectionThreshold,
	})
	if err != nil {
		writeProblem(w, r, mapAskError(err))
		return
	}

	writeJSON(w, http.StatusOK, searchResponse{
		Matches:  sourcesFrom(result.Chunks),
		Metadata: metadataFrom(result),
	})
}

// mapAskError translates ask's sentinel errors to the typed taxonomy;
// anything else is an opaque dependency failure.
func mapAskError(err error) *apierrors.Error {
	switch {
	case errors.Is(err, ask.ErrQueryRequired):
		return apierrors.Validation(err.Error())
	case errors.Is(err, ask.ErrNotFound):
		return apierrors.NotFound("workspace")
	case errors.Is(err, ask.ErrForbidden):
		return apierrors.Forbidden(err.Error())
	default:
		return apierrors.ServiceUnavailable("ask", err)
	}
}
