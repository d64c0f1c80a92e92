package database

import (
	"context"

	"gorm.io/gorm"

	"github.com/SaintWyss/rag-corp-sub001/pkg/model"
)

// AuditFacadeInterface appends audit events. Writes are best-effort by
// caller convention — a failure here must never fail the triggering request.
type AuditFacadeInterface interface {
	Log(ctx context.Context, actor, action, targetID string, metadata model.JSONMap) error
}

type AuditFacade struct {
	db *gorm.DB
}

func NewAuditFacade(db *gorm.DB) *AuditFacade {
	return &AuditFacade{db: db}
}

func (f *AuditFacade) Log(ctx context.Context, actor, action, targetID string, metadata model.JSONMap) error {
	return f.db.WithContext(ctx).Create(&model.AuditEvent{
		Actor:        actor,
		Action:       action,
		TargetID:     targetID,
		MetadataJSON: metadata,
	}).Error
}
