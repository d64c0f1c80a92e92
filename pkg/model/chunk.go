package model

import (
	"strconv"
	"time"

	"github.com/pgvector/pgvector-go"
)

const TableNameChunks = "chunks"

// Chunk is a single retrievable fragment of a Document's extracted text,
// carrying its own fixed-dimension embedding. Chunk sets for a document are
// always replaced atomically, never partially mutated.
type Chunk struct {
	ID          int64           `gorm:"column:id;primaryKey;autoIncrement:true" json:"id"`
	DocumentID  int64           `gorm:"column:document_id;not null;index" json:"document_id"`
	WorkspaceID int64           `gorm:"column:workspace_id;not null;index" json:"workspace_id"`
	ChunkIndex  int             `gorm:"column:chunk_index;not null" json:"chunk_index"`
	Content     string          `gorm:"column:content;not null" json:"content"`
	Embedding   pgvector.Vector `gorm:"column:embedding;type:vector(768)" json:"-"`
	TokenCount  int             `gorm:"column:token_count;default:0" json:"token_count"`
	Metadata    JSONMap         `gorm:"column:metadata;default:{}" json:"metadata"`
	CreatedAt   time.Time       `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (*Chunk) TableName() string { return TableNameChunks }

// ScoredChunk pairs a Chunk with a retrieval-stage score. The score's
// meaning (cosine similarity, MMR score, RRF fused score, rerank score)
// depends on which retrieval stage produced it.
type ScoredChunk struct {
	Chunk Chunk
	Score float64
}

// Key returns the fusion/dedup key for a chunk: its persisted ID when set,
// else the document_id:chunk_index composite used for not-yet-persisted or
// cross-source candidates.
func (c Chunk) Key() string {
	if c.ID != 0 {
		return strconv.FormatInt(c.ID, 10)
	}
	return strconv.FormatInt(c.DocumentID, 10) + ":" + strconv.Itoa(c.ChunkIndex)
}
