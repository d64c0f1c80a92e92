// Package ingest is the asynchronous document-processing state machine:
// download → extract → chunk → embed batch → atomically replace chunks,
// under a lock realized as a document status transition. Directly grounded
// on two sources: the teacher's pkg/importer/importer.go +
// pkg/service/import_commit.go (batch embedding generation, status
// bookkeeping) and other_examples RAGbox pipeline.go (the explicit
// parse → scan → chunk → embed → status state machine with a per-document
// in-flight guard and failDocument error path).
package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"

	"github.com/pgvector/pgvector-go"

	"github.com/SaintWyss/rag-corp-sub001/pkg/ingest/chunk"
	"github.com/SaintWyss/rag-corp-sub001/pkg/ingest/extract"
	"github.com/SaintWyss/rag-corp-sub001/pkg/injection"
	"github.com/SaintWyss/rag-corp-sub001/pkg/logging"
	"github.com/SaintWyss/rag-corp-sub001/pkg/model"
)

func toVector(v []float32) pgvector.Vector {
	return pgvector.NewVector(v)
}

// Outcome is the observable result of Process: the three states named in
// the ingestion algorithm's early-exit paths (MISSING, READY, PROCESSING)
// plus success/failure.
type Outcome string

const (
	OutcomeMissing    Outcome = "MISSING"
	OutcomeReady      Outcome = "READY"
	OutcomeProcessing Outcome = "PROCESSING"
	OutcomeProcessed  Outcome = "PROCESSED"
	OutcomeFailed     Outcome = "FAILED"
)

// DocumentStore is the subset of pkg/database's facades this pipeline
// depends on.
type DocumentStore interface {
	GetByID(ctx context.Context, id, workspaceID int64) (*model.Document, error)
	TransitionStatus(ctx context.Context, id, workspaceID int64, from []model.DocumentStatus, to model.DocumentStatus, errorMessage string) (bool, error)
	SaveDocumentWithChunks(ctx context.Context, doc *model.Document, chunks []model.Chunk, embeddingDim int) error
	UpdateChunkCount(ctx context.Context, id int64, count int) error
	UpdateChecksum(ctx context.Context, id int64, checksum string) error
}

// BlobStore downloads a document's stored blob by its opaque storage key.
type BlobStore interface {
	Download(ctx context.Context, storageKey string) ([]byte, error)
}

// Embedder generates one embedding per input text, in a single batch call.
type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimension() int
}

// Config governs chunking and extraction. Prompt-injection filtering by
// mode/threshold is an ask-time concern (see pkg/injection.Apply) — this
// pipeline only scans and records risk metadata per chunk at ingest time.
type Config struct {
	ChunkConfig     chunk.Config
	MaxExtractChars int
	MaxExtractPages int
	AllowEmpty      bool
}

// Pipeline runs the per-document ingestion algorithm. It guarantees at
// most one in-flight Process call per doc_id within this process, mirroring
// RAGbox's package-level processing guard; the real concurrency lock is
// still the database CAS in TransitionStatus, which protects across
// multiple worker processes too.
type Pipeline struct {
	store    DocumentStore
	blobs    BlobStore
	embedder Embedder
	parsers  *extract.Registry
	cfg      Config

	mu         sync.Mutex
	processing map[int64]bool
}

func NewPipeline(store DocumentStore, blobs BlobStore, embedder Embedder, parsers *extract.Registry, cfg Config) *Pipeline {
	return &Pipeline{
		store:      store,
		blobs:      blobs,
		embedder:   embedder,
		parsers:    parsers,
		cfg:        cfg,
		processing: make(map[int64]bool),
	}
}

// Process runs the full pipeline for one document. It is idempotent: a
// document already READY or PROCESSING short-circuits without touching
// chunks.
func (p *Pipeline) Process(ctx context.Context, docID, workspaceID int64) (Outcome, error) {
	if !p.tryGuard(docID) {
		return OutcomeProcessing, nil
	}
	defer p.releaseGuard(docID)

	doc, err := p.store.GetByID(ctx, docID, workspaceID)
	if err != nil {
		return OutcomeMissing, fmt.Errorf("ingest: load document: %w", err)
	}

	switch doc.Status {
	case model.DocumentReady:
		return OutcomeReady, nil
	case model.DocumentProcessing:
		return OutcomeProcessing, nil
	}

	acquired, err := p.store.TransitionStatus(ctx, docID, workspaceID,
		[]model.DocumentStatus{model.DocumentPending, model.DocumentFailed}, model.DocumentProcessing, "")
	if err != nil {
		return OutcomeFailed, fmt.Errorf("ingest: acquire lock: %w", err)
	}
	if !acquired {
		fresh, ferr := p.store.GetByID(ctx, docID, workspaceID)
		if ferr != nil {
			return OutcomeFailed, ferr
		}
		return Outcome(fresh.Status), nil
	}

	if err := p.runUnderLock(ctx, doc); err != nil {
		logging.With(logging.Fields{"document_id": docID, "workspace_id": workspaceID}).
			Warnf("ingest pipeline failed: %v", err)
		_, _ = p.store.TransitionStatus(ctx, docID, workspaceID,
			[]model.DocumentStatus{model.DocumentProcessing}, model.DocumentFailed, err.Error())
		return OutcomeFailed, err
	}

	return OutcomeProcessed, nil
}

func (p *Pipeline) runUnderLock(ctx context.Context, doc *model.Document) error {
	if doc.StorageKey == "" || doc.MimeType == "" {
		return fmt.Errorf("extract: missing storage key or mime type")
	}

	blob, err := p.blobs.Download(ctx, doc.StorageKey)
	if err != nil {
		return fmt.Errorf("download blob: %w", err)
	}

	parser, err := p.parsers.Get(doc.MimeType)
	if err != nil {
		return fmt.Errorf("select parser: %w", err)
	}

	extracted, err := parser.Parse(blob)
	if err != nil {
		return fmt.Errorf("extract text: %w", err)
	}
	if extracted.Text == "" && !p.cfg.AllowEmpty {
		return fmt.Errorf("extract: empty extraction not allowed")
	}

	sum := sha256.Sum256(blob)
	checksum := hex.EncodeToString(sum[:])
	_ = p.store.UpdateChecksum(ctx, doc.ID, checksum)

	texts := chunk.Split(extracted.Text, p.cfg.ChunkConfig)

	var chunks []model.Chunk
	if len(texts) > 0 {
		embeddings, err := p.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return fmt.Errorf("embed batch: %w", err)
		}
		if len(embeddings) != len(texts) {
			return fmt.Errorf("embed batch: got %d embeddings for %d chunks", len(embeddings), len(texts))
		}

		chunks = make([]model.Chunk, len(texts))
		for i, t := range texts {
			d := injection.Scan(t)
			chunks[i] = model.Chunk{
				DocumentID:  doc.ID,
				WorkspaceID: doc.WorkspaceID,
				ChunkIndex:  i,
				Content:     t,
				TokenCount:  chunk.EstimateTokens(t),
				Metadata: model.JSONMap{
					"risk_score":        d.RiskScore,
					"detected_patterns": d.DetectedPatterns,
					"security_flags":    d.SecurityFlags,
				},
			}
			chunks[i].Embedding = toVector(embeddings[i])
		}
	}

	doc.Status = model.DocumentProcessing
	doc.ContentChecksum = checksum
	doc.ChunkCount = len(chunks)
	if err := p.store.SaveDocumentWithChunks(ctx, doc, chunks, p.embedder.Dimension()); err != nil {
		return fmt.Errorf("persist chunks: %w", err)
	}
	return p.finalizeStatus(ctx, doc.ID, doc.WorkspaceID, len(chunks))
}

func (p *Pipeline) finalizeStatus(ctx context.Context, docID, workspaceID int64, chunkCount int) error {
	ok, err := p.store.TransitionStatus(ctx, docID, workspaceID,
		[]model.DocumentStatus{model.DocumentProcessing}, model.DocumentReady, "")
	if err != nil {
		return fmt.Errorf("finalize status: %w", err)
	}
	if !ok {
		return fmt.Errorf("finalize status: document left PROCESSING state unexpectedly")
	}
	return p.store.UpdateChunkCount(ctx, docID, chunkCount)
}

func (p *Pipeline) tryGuard(docID int64) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.processing[docID] {
		return false
	}
	p.processing[docID] = true
	return true
}

func (p *Pipeline) releaseGuard(docID int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.processing, docID)
}
