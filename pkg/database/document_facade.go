package database

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/SaintWyss/rag-corp-sub001/pkg/model"
)

// DocumentFacadeInterface persists documents and implements the
// status-transition CAS that serves as the ingestion pipeline's lock.
type DocumentFacadeInterface interface {
	GetByID(ctx context.Context, id, workspaceID int64) (*model.Document, error)
	Save(ctx context.Context, doc *model.Document) error
	UpdateChunkCount(ctx context.Context, id int64, count int) error
	UpdateChecksum(ctx context.Context, id int64, checksum string) error
	TransitionStatus(ctx context.Context, id, workspaceID int64, from []model.DocumentStatus, to model.DocumentStatus, errorMessage string) (bool, error)
	GetByExternalSourceID(ctx context.Context, workspaceID int64, externalID string) (*model.Document, error)
	UpdateExternalSourceMetadata(ctx context.Context, id int64, provider, externalID, etag string, modifiedTime *time.Time) error
	Delete(ctx context.Context, id, workspaceID int64) error
}

type DocumentFacade struct {
	db *gorm.DB
}

func NewDocumentFacade(db *gorm.DB) *DocumentFacade {
	return &DocumentFacade{db: db}
}

func (f *DocumentFacade) GetByID(ctx context.Context, id, workspaceID int64) (*model.Document, error) {
	var doc model.Document
	err := f.db.WithContext(ctx).
		Where("id = ? AND workspace_id = ?", id, workspaceID).
		First(&doc).Error
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

func (f *DocumentFacade) Save(ctx context.Context, doc *model.Document) error {
	return f.db.WithContext(ctx).Save(doc).Error
}

func (f *DocumentFacade) UpdateChunkCount(ctx context.Context, id int64, count int) error {
	return f.db.WithContext(ctx).Model(&model.Document{}).
		Where("id = ?", id).
		Update("chunk_count", count).Error
}

func (f *DocumentFacade) UpdateChecksum(ctx context.Context, id int64, checksum string) error {
	return f.db.WithContext(ctx).Model(&model.Document{}).
		Where("id = ?", id).
		Update("content_checksum", checksum).Error
}

// TransitionStatus is the compare-and-set lock: it only mutates the row
// when the current status is one of `from`, and reports whether it did.
func (f *DocumentFacade) TransitionStatus(ctx context.Context, id, workspaceID int64, from []model.DocumentStatus, to model.DocumentStatus, errorMessage string) (bool, error) {
	updates := map[string]interface{}{"status": to}
	if errorMessage != "" {
		updates["error_message"] = model.TruncateError(errorMessage)
	}
	tx := f.db.WithContext(ctx).Model(&model.Document{}).
		Where("id = ? AND workspace_id = ? AND status IN ?", id, workspaceID, from).
		Updates(updates)
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected == 1, nil
}

func (f *DocumentFacade) GetByExternalSourceID(ctx context.Context, workspaceID int64, externalID string) (*model.Document, error) {
	var doc model.Document
	err := f.db.WithContext(ctx).
		Where("workspace_id = ? AND external_id = ?", workspaceID, externalID).
		First(&doc).Error
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

func (f *DocumentFacade) UpdateExternalSourceMetadata(ctx context.Context, id int64, provider, externalID, etag string, modifiedTime *time.Time) error {
	return f.db.WithContext(ctx).Model(&model.Document{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"provider":      provider,
			"external_id":   externalID,
			"etag":          etag,
			"modified_time": modifiedTime,
		}).Error
}

// Delete removes a document row, workspace-scoped. Its chunks are deleted
// separately by ChunkFacade.DeleteChunksForDocument in the same use case.
func (f *DocumentFacade) Delete(ctx context.Context, id, workspaceID int64) error {
	return f.db.WithContext(ctx).
		Where("id = ? AND workspace_id = ?", id, workspaceID).
		Delete(&model.Document{}).Error
}
