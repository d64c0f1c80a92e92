package database

import (
	"context"
	"fmt"

	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"

	"github.com/SaintWyss/rag-corp-sub001/pkg/model"
)

// ChunkFacadeInterface persists chunks and runs the two vector-backed
// search modes over them: plain dense similarity and MMR-diversified dense
// similarity. Both are workspace-scoped by construction — every query
// carries `workspace_id = ?` so a result can never cross tenants.
type ChunkFacadeInterface interface {
	SaveDocumentWithChunks(ctx context.Context, doc *model.Document, chunks []model.Chunk, embeddingDim int) error
	SaveChunks(ctx context.Context, documentID, workspaceID int64, chunks []model.Chunk) error
	DeleteChunksForDocument(ctx context.Context, documentID, workspaceID int64) error
	FindSimilarChunks(ctx context.Context, embedding []float32, topK int, workspaceID int64) ([]model.ScoredChunk, error)
	FindSimilarChunksForMMR(ctx context.Context, embedding []float32, fetchK int, workspaceID int64) ([]model.ScoredChunk, error)
	FindChunksFullText(ctx context.Context, queryText string, topK int, workspaceID int64) ([]model.ScoredChunk, error)
}

type ChunkFacade struct {
	db *gorm.DB
}

func NewChunkFacade(db *gorm.DB) *ChunkFacade {
	return &ChunkFacade{db: db}
}

// SaveDocumentWithChunks upserts the document and atomically replaces its
// chunk set in a single transaction. Every embedding's dimensionality is
// validated before any write; the whole transaction rolls back on the
// first validation or I/O failure.
func (f *ChunkFacade) SaveDocumentWithChunks(ctx context.Context, doc *model.Document, chunks []model.Chunk, embeddingDim int) error {
	for i := range chunks {
		if got := chunks[i].Embedding.Slice(); len(got) != 0 && len(got) != embeddingDim {
			return fmt.Errorf("database: chunk %d has embedding dimension %d, want %d", i, len(got), embeddingDim)
		}
	}

	return f.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(doc).Error; err != nil {
			return fmt.Errorf("database: save document: %w", err)
		}
		if err := tx.Where("document_id = ? AND workspace_id = ?", doc.ID, doc.WorkspaceID).
			Delete(&model.Chunk{}).Error; err != nil {
			return fmt.Errorf("database: delete prior chunks: %w", err)
		}
		if len(chunks) == 0 {
			return nil
		}
		if err := tx.Create(&chunks).Error; err != nil {
			return fmt.Errorf("database: create chunks: %w", err)
		}
		return nil
	})
}

// SaveChunks appends a batch; the caller must have already deleted any
// prior chunks for the document in the same unit of work.
func (f *ChunkFacade) SaveChunks(ctx context.Context, documentID, workspaceID int64, chunks []model.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	for i := range chunks {
		chunks[i].DocumentID = documentID
		chunks[i].WorkspaceID = workspaceID
	}
	return f.db.WithContext(ctx).Create(&chunks).Error
}

func (f *ChunkFacade) DeleteChunksForDocument(ctx context.Context, documentID, workspaceID int64) error {
	return f.db.WithContext(ctx).
		Where("document_id = ? AND workspace_id = ?", documentID, workspaceID).
		Delete(&model.Chunk{}).Error
}

type chunkSearchRow struct {
	model.Chunk
	Similarity float64
}

// FindSimilarChunks returns chunks ordered by dense cosine similarity
// descending, filtered to the requested workspace — `embedding <=> ?` is
// pgvector's cosine-distance operator, so similarity is `1 - distance`.
func (f *ChunkFacade) FindSimilarChunks(ctx context.Context, embedding []float32, topK int, workspaceID int64) ([]model.ScoredChunk, error) {
	return f.vectorSearch(ctx, embedding, topK, workspaceID)
}

// FindSimilarChunksForMMR returns the `fetchK` nearest neighbors so the
// caller's MMR reselection has a diverse enough candidate pool to draw
// `top_k < fetch_k` from.
func (f *ChunkFacade) FindSimilarChunksForMMR(ctx context.Context, embedding []float32, fetchK int, workspaceID int64) ([]model.ScoredChunk, error) {
	return f.vectorSearch(ctx, embedding, fetchK, workspaceID)
}

func (f *ChunkFacade) vectorSearch(ctx context.Context, embedding []float32, limit int, workspaceID int64) ([]model.ScoredChunk, error) {
	var rows []chunkSearchRow
	vec := pgvector.NewVector(embedding)
	err := f.db.WithContext(ctx).
		Model(&model.Chunk{}).
		Select("*, 1 - (embedding <=> ?) as similarity", vec).
		Where("workspace_id = ?", workspaceID).
		Order(gorm.Expr("embedding <=> ?", vec)).
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("database: vector search: %w", err)
	}
	return rowsToScored(rows), nil
}

// FindChunksFullText runs a Postgres tsvector/plainto_tsquery lexical
// ranking, workspace-scoped identically to the vector path.
func (f *ChunkFacade) FindChunksFullText(ctx context.Context, queryText string, topK int, workspaceID int64) ([]model.ScoredChunk, error) {
	var rows []chunkSearchRow
	err := f.db.WithContext(ctx).
		Model(&model.Chunk{}).
		Select("*, ts_rank(to_tsvector('english', content), plainto_tsquery('english', ?)) as similarity", queryText).
		Where("workspace_id = ? AND to_tsvector('english', content) @@ plainto_tsquery('english', ?)", workspaceID, queryText).
		Order("similarity DESC").
		Limit(topK).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("database: full text search: %w", err)
	}
	return rowsToScored(rows), nil
}

func rowsToScored(rows []chunkSearchRow) []model.ScoredChunk {
	out := make([]model.ScoredChunk, 0, len(rows))
	for _, r := range rows {
		out = append(out, model.ScoredChunk{Chunk: r.Chunk, Score: r.Similarity})
	}
	return out
}
