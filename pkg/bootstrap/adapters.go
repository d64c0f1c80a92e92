package bootstrap

import (
	"context"
	"time"

	"github.com/SaintWyss/rag-corp-sub001/pkg/database"
	"github.com/SaintWyss/rag-corp-sub001/pkg/model"
)

// pipelineStore satisfies ingest.DocumentStore, whose methods are split
// across the document and chunk facades: document status/identity lookups
// on one side, chunk replacement bookkeeping on the other.
type pipelineStore struct {
	documents database.DocumentFacadeInterface
	chunks    database.ChunkFacadeInterface
}

func (s *pipelineStore) GetByID(ctx context.Context, id, workspaceID int64) (*model.Document, error) {
	return s.documents.GetByID(ctx, id, workspaceID)
}

func (s *pipelineStore) TransitionStatus(ctx context.Context, id, workspaceID int64, from []model.DocumentStatus, to model.DocumentStatus, errorMessage string) (bool, error) {
	return s.documents.TransitionStatus(ctx, id, workspaceID, from, to, errorMessage)
}

func (s *pipelineStore) SaveDocumentWithChunks(ctx context.Context, doc *model.Document, chunks []model.Chunk, embeddingDim int) error {
	return s.chunks.SaveDocumentWithChunks(ctx, doc, chunks, embeddingDim)
}

func (s *pipelineStore) UpdateChunkCount(ctx context.Context, id int64, count int) error {
	return s.documents.UpdateChunkCount(ctx, id, count)
}

func (s *pipelineStore) UpdateChecksum(ctx context.Context, id int64, checksum string) error {
	return s.documents.UpdateChecksum(ctx, id, checksum)
}

// syncDocumentStore satisfies sync.DocumentStore, the same kind of split
// between document identity/metadata and chunk replacement.
type syncDocumentStore struct {
	documents database.DocumentFacadeInterface
	chunks    database.ChunkFacadeInterface
}

func (s *syncDocumentStore) GetByExternalSourceID(ctx context.Context, workspaceID int64, externalID string) (*model.Document, error) {
	return s.documents.GetByExternalSourceID(ctx, workspaceID, externalID)
}

func (s *syncDocumentStore) Save(ctx context.Context, doc *model.Document) error {
	return s.documents.Save(ctx, doc)
}

func (s *syncDocumentStore) DeleteChunksForDocument(ctx context.Context, documentID, workspaceID int64) error {
	return s.chunks.DeleteChunksForDocument(ctx, documentID, workspaceID)
}

func (s *syncDocumentStore) UpdateExternalSourceMetadata(ctx context.Context, id int64, provider, externalID, etag string, modifiedTime *time.Time) error {
	return s.documents.UpdateExternalSourceMetadata(ctx, id, provider, externalID, etag, modifiedTime)
}
