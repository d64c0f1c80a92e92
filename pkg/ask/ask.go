// Package ask is the RAG orchestrator: the single use case that embeds a
// query, retrieves and filters chunks, assembles a grounded context, and
// generates an answer. Grounded on answer_query.py's AnswerQueryUseCase —
// same step order (validate -> policy -> sanitize top_k -> embed ->
// retrieve -> rerank -> injection filter -> truncate -> context ->
// generate), the same literal fallback message, and the same
// "insufficient evidence" early returns — written in the teacher's thin
// composition-service style (a struct of collaborators, explicit
// context.Context plumbing, no DI framework).
package ask

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/SaintWyss/rag-corp-sub001/pkg/contextbuilder"
	"github.com/SaintWyss/rag-corp-sub001/pkg/injection"
	"github.com/SaintWyss/rag-corp-sub001/pkg/logging"
	"github.com/SaintWyss/rag-corp-sub001/pkg/metrics"
	"github.com/SaintWyss/rag-corp-sub001/pkg/model"
	"github.com/SaintWyss/rag-corp-sub001/pkg/policy"
	"github.com/SaintWyss/rag-corp-sub001/pkg/retrieval"
)

const (
	DefaultTopK = 5
	MaxTopK     = 50

	// InsufficientEvidenceMessage is returned verbatim whenever retrieval,
	// filtering, or context assembly leaves nothing to ground an answer on.
	InsufficientEvidenceMessage = "No hay evidencia suficiente en las fuentes. ¿Podés precisar más (keywords/fecha/documento)?"
)

var (
	ErrQueryRequired = errors.New("ask: query is required")
	ErrNotFound      = errors.New("ask: workspace not found")
	ErrForbidden     = errors.New("ask: access denied")
)

// WorkspaceStore is the subset of database.WorkspaceFacadeInterface the
// orchestrator needs to enforce read access.
type WorkspaceStore interface {
	GetByID(ctx context.Context, id int64) (*model.Workspace, error)
	ACLEntry(ctx context.Context, workspaceID int64, userID string) (*model.WorkspaceACLEntry, error)
}

// DocumentStore resolves a chunk's owning document for context-builder
// provenance rendering.
type DocumentStore interface {
	GetByID(ctx context.Context, id, workspaceID int64) (*model.Document, error)
}

// Embedder turns a query string into a dense vector.
type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// Generator turns an assembled context plus query into a final answer.
type Generator interface {
	Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Input is one ask request. TopK is a pointer so the zero value (0) can be
// told apart from "not specified": nil defaults to DefaultTopK, while an
// explicit value <= 0 short-circuits straight to the fallback result with
// no retrieval attempted, mirroring the original's top_k<=0 rule.
type Input struct {
	WorkspaceID        int64
	Query              string
	Actor              *model.Actor
	TopK               *int
	UseMMR             bool
	HybridEnabled      bool
	RerankEnabled      bool
	InjectionMode      injection.Mode
	InjectionThreshold float64
}

// Result is the structured answer plus observability metadata, mirroring
// QueryResult and its rerank/hybrid metadata from the original use case.
type Result struct {
	Answer          string
	Chunks          []model.ScoredChunk
	Query           string
	ChunksFound     int
	ChunksUsed      int
	ContextChars    int
	TopK            int
	SelectedTopK    int
	CandidatesCount int
	RerankedCount   int
	HybridUsed      bool
	RerankApplied   bool
	UseMMR          bool
	PromptVersion   string
	StageMillis     map[string]int64
	TotalMillis     int64
}

const systemPrompt = "Respondé únicamente en base al contexto provisto. Si el contexto no alcanza, decilo explícitamente."

// Config holds the orchestrator's service-level defaults, the ones the
// original wired at use-case construction time rather than per request
// (prompt version, context budget, and the rerank/hybrid feature flags and
// their candidate-pool sizing).
type Config struct {
	ContextBudget       int
	PromptVersion       string
	HybridEnabled       bool
	RerankEnabled       bool
	RerankMultiplier    int
	RerankMaxCandidates int
}

// Orchestrator wires every RAG stage behind a single Ask call.
type Orchestrator struct {
	workspaces          WorkspaceStore
	documents           DocumentStore
	retrieval           *retrieval.Engine
	embedder            Embedder
	generator           Generator
	budget              int
	promptVersion       string
	hybridEnabled       bool
	rerankEnabled       bool
	rerankMultiplier    int
	rerankMaxCandidates int
}

func NewOrchestrator(workspaces WorkspaceStore, documents DocumentStore, engine *retrieval.Engine, embedder Embedder, generator Generator, cfg Config) *Orchestrator {
	budget := cfg.ContextBudget
	if budget <= 0 {
		budget = contextbuilder.DefaultBudget
	}
	return &Orchestrator{
		workspaces:          workspaces,
		documents:           documents,
		retrieval:           engine,
		embedder:            embedder,
		generator:           generator,
		budget:              budget,
		promptVersion:       cfg.PromptVersion,
		hybridEnabled:       cfg.HybridEnabled,
		rerankEnabled:       cfg.RerankEnabled,
		rerankMultiplier:    cfg.RerankMultiplier,
		rerankMaxCandidates: cfg.RerankMaxCandidates,
	}
}

// Ask runs the full RAG step sequence. A "no evidence" outcome is a
// successful Result carrying InsufficientEvidenceMessage, never an error —
// only validation failures, access refusals, and dependency failures
// return an error.
func (o *Orchestrator) Ask(ctx context.Context, in Input) (Result, error) {
	totalStart := time.Now()

	if strings.TrimSpace(in.Query) == "" {
		return Result{}, ErrQueryRequired
	}

	if _, err := o.resolveRead(ctx, in.WorkspaceID, in.Actor); err != nil {
		return Result{}, err
	}

	stages := map[string]int64{}
	rtk := sanitizeTopK(in.TopK)
	if rtk.fallback {
		metrics.PolicyRefusal.WithLabelValues("insufficient_evidence").Inc()
		logging.With(logging.Fields{"workspace_id": in.WorkspaceID, "top_k": rtk.value}).
			Info("ask: top_k<=0 requested, returning fallback without retrieval")
		result := o.fallback(in, rtk.value, 0, stages)
		result.TotalMillis = time.Since(totalStart).Milliseconds()
		return result, nil
	}
	topK := rtk.value

	embedStart := time.Now()
	vectors, err := o.embedder.EmbedBatch(ctx, []string{in.Query})
	stages["embed"] = time.Since(embedStart).Milliseconds()
	metrics.StageLatency.WithLabelValues("embed").Observe(time.Since(embedStart).Seconds())
	if err != nil || len(vectors) == 0 {
		return Result{}, fmt.Errorf("ask: embed query: %w", err)
	}

	retrieved, filtered, err := o.retrieveFiltered(ctx, in, topK, vectors[0], stages)
	if err != nil {
		return Result{}, err
	}
	chunksFound := len(filtered)
	selected := truncate(filtered, topK)

	if len(selected) == 0 {
		metrics.PolicyRefusal.WithLabelValues("insufficient_evidence").Inc()
		logging.With(logging.Fields{"workspace_id": in.WorkspaceID, "chunks_found": chunksFound}).
			Info("ask: no chunks survived retrieval and filtering")
		result := o.fallback(in, topK, chunksFound, stages)
		result.TotalMillis = time.Since(totalStart).Milliseconds()
		o.annotateRetrieval(&result, retrieved, 0)
		return result, nil
	}

	built := contextbuilder.Build(selected, o.budget, func(documentID int64) (string, string) {
		doc, err := o.documents.GetByID(ctx, documentID, in.WorkspaceID)
		if err != nil || doc == nil {
			return "", ""
		}
		return doc.Title, doc.Source
	})

	if len(built.ChunksUsed) == 0 {
		metrics.PolicyRefusal.WithLabelValues("insufficient_evidence").Inc()
		result := o.fallback(in, topK, chunksFound, stages)
		result.TotalMillis = time.Since(totalStart).Milliseconds()
		o.annotateRetrieval(&result, retrieved, len(selected))
		return result, nil
	}

	llmStart := time.Now()
	answer, err := o.generator.Generate(ctx, systemPrompt, built.Context+"\n\nPregunta: "+in.Query)
	stages["llm"] = time.Since(llmStart).Milliseconds()
	metrics.StageLatency.WithLabelValues("llm").Observe(time.Since(llmStart).Seconds())
	if err != nil {
		return Result{}, fmt.Errorf("ask: generate answer: %w", err)
	}

	recordAnswerHygiene(answer, len(built.ChunksUsed))

	result := Result{
		Answer:       answer,
		Chunks:       built.ChunksUsed,
		Query:        in.Query,
		ChunksFound:  chunksFound,
		ChunksUsed:   len(built.ChunksUsed),
		ContextChars: len(built.Context),
		TopK:         topK,
		UseMMR:       in.UseMMR,
		StageMillis:  stages,
	}
	o.annotateRetrieval(&result, retrieved, len(selected))
	result.TotalMillis = time.Since(totalStart).Milliseconds()
	return result, nil
}

// Search runs the retrieval half of Ask only: embed, retrieve, injection-
// filter, truncate. No context assembly and no LLM call, for the plain
// /search endpoint that returns raw matches instead of a generated answer.
func (o *Orchestrator) Search(ctx context.Context, in Input) (Result, error) {
	totalStart := time.Now()

	if strings.TrimSpace(in.Query) == "" {
		return Result{}, ErrQueryRequired
	}
	if _, err := o.resolveRead(ctx, in.WorkspaceID, in.Actor); err != nil {
		return Result{}, err
	}

	stages := map[string]int64{}
	rtk := sanitizeTopK(in.TopK)
	if rtk.fallback {
		result := o.fallback(in, rtk.value, 0, stages)
		result.TotalMillis = time.Since(totalStart).Milliseconds()
		return result, nil
	}
	topK := rtk.value

	embedStart := time.Now()
	vectors, err := o.embedder.EmbedBatch(ctx, []string{in.Query})
	stages["embed"] = time.Since(embedStart).Milliseconds()
	metrics.StageLatency.WithLabelValues("embed").Observe(time.Since(embedStart).Seconds())
	if err != nil || len(vectors) == 0 {
		return Result{}, fmt.Errorf("ask: embed query: %w", err)
	}

	retrieved, filtered, err := o.retrieveFiltered(ctx, in, topK, vectors[0], stages)
	if err != nil {
		return Result{}, err
	}
	chunksFound := len(filtered)
	selected := truncate(filtered, topK)

	result := Result{
		Chunks:       selected,
		Query:        in.Query,
		ChunksFound:  chunksFound,
		ChunksUsed:   len(selected),
		TopK:         topK,
		UseMMR:       in.UseMMR,
		StageMillis:  stages,
	}
	o.annotateRetrieval(&result, retrieved, len(selected))
	result.TotalMillis = time.Since(totalStart).Milliseconds()
	return result, nil
}

// annotateRetrieval copies retrieval-stage metadata onto a Result: the
// candidate pool size and rerank outcome come straight from the engine,
// selectedTopK is the chunk count actually kept after the single
// post-filter truncation.
func (o *Orchestrator) annotateRetrieval(result *Result, retrieved retrieval.Result, selectedTopK int) {
	result.HybridUsed = retrieved.HybridUsed
	result.RerankApplied = retrieved.RerankApplied
	result.CandidatesCount = retrieved.CandidatesCount
	result.RerankedCount = retrieved.RerankedCount
	result.SelectedTopK = selectedTopK
	result.PromptVersion = o.promptVersion
}

// retrieveFiltered runs the shared embed-result -> retrieve -> rerank ->
// injection-filter sequence used by both Ask and Search. It deliberately
// does not truncate to topK: the engine over-fetches a reranking-sized
// candidate pool, and truncation must happen exactly once, after the
// injection filter has run over that full pool, so mode=exclude can still
// backfill from candidates beyond topK when high-risk chunks are dropped.
func (o *Orchestrator) retrieveFiltered(ctx context.Context, in Input, topK int, queryEmbedding []float32, stages map[string]int64) (retrieval.Result, []model.ScoredChunk, error) {
	retrieveStart := time.Now()
	retrieved, err := o.retrieval.Retrieve(ctx, retrieval.Options{
		WorkspaceID:      in.WorkspaceID,
		QueryText:        in.Query,
		QueryEmbedding:   queryEmbedding,
		TopK:             topK,
		UseMMR:           in.UseMMR,
		HybridEnabled:    in.HybridEnabled || o.hybridEnabled,
		RerankEnabled:    in.RerankEnabled || o.rerankEnabled,
		RerankMultiplier: o.rerankMultiplier,
		MaxCandidates:    o.rerankMaxCandidates,
	})
	stages["retrieve"] = time.Since(retrieveStart).Milliseconds()
	metrics.StageLatency.WithLabelValues("retrieve").Observe(time.Since(retrieveStart).Seconds())
	if err != nil {
		return retrieval.Result{}, nil, fmt.Errorf("ask: retrieve chunks: %w", err)
	}

	filtered := injection.Apply(retrieved.Chunks, in.InjectionMode, in.InjectionThreshold)
	return retrieved, filtered, nil
}

// truncate keeps at most topK chunks, the single point in the pipeline
// where the candidate pool is cut down to the caller's requested size.
func truncate(chunks []model.ScoredChunk, topK int) []model.ScoredChunk {
	if topK > 0 && len(chunks) > topK {
		return chunks[:topK]
	}
	return chunks
}

func (o *Orchestrator) resolveRead(ctx context.Context, workspaceID int64, actor *model.Actor) (*model.Workspace, error) {
	ws, err := o.workspaces.GetByID(ctx, workspaceID)
	if err != nil {
		return nil, ErrNotFound
	}
	acl := func(id int64, userID string) (model.ACLRole, bool) {
		entry, err := o.workspaces.ACLEntry(ctx, id, userID)
		if err != nil || entry == nil {
			return "", false
		}
		return entry.Role, true
	}
	switch policy.Resolve(ws, actor, policy.ModeRead, acl) {
	case policy.DecisionAllow:
		return ws, nil
	case policy.DecisionNotFound:
		return nil, ErrNotFound
	default:
		return nil, ErrForbidden
	}
}

func (o *Orchestrator) fallback(in Input, topK, chunksFound int, stages map[string]int64) Result {
	return Result{
		Answer:        InsufficientEvidenceMessage,
		Chunks:        nil,
		Query:         in.Query,
		ChunksFound:   chunksFound,
		ChunksUsed:    0,
		ContextChars:  0,
		TopK:          topK,
		UseMMR:        in.UseMMR,
		PromptVersion: o.promptVersion,
		StageMillis:   stages,
	}
}

// resolvedTopK is the outcome of sanitizing a possibly-unset top_k: either
// a usable value, or a signal that the caller explicitly asked for
// top_k<=0 and must get the fallback result without any retrieval
// attempted.
type resolvedTopK struct {
	value    int
	fallback bool
}

// sanitizeTopK distinguishes an unset top_k (nil, defaults to DefaultTopK)
// from an explicit non-positive one. The original's _sanitize_top_k
// returns a non-positive top_k unchanged and lets the caller short-circuit
// to the fallback; Go's int zero value can't carry "unset" vs "explicit
// zero" on its own, hence the pointer on Input.TopK.
func sanitizeTopK(topK *int) resolvedTopK {
	if topK == nil {
		return resolvedTopK{value: DefaultTopK}
	}
	if *topK <= 0 {
		return resolvedTopK{value: *topK, fallback: true}
	}
	if *topK > MaxTopK {
		return resolvedTopK{value: MaxTopK}
	}
	return resolvedTopK{value: *topK}
}

// recordAnswerHygiene flags answers that used sources but never reference
// them, mirroring _record_answer_source_hygiene's citation-hygiene check.
func recordAnswerHygiene(answer string, chunksUsed int) {
	if chunksUsed <= 0 {
		return
	}
	lower := strings.ToLower(answer)
	if !strings.Contains(lower, "fuente") && !strings.Contains(lower, "[s") {
		metrics.AnswerWithoutSources.Inc()
	}
}
