package database

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/SaintWyss/rag-corp-sub001/pkg/model"
)

// WorkspaceFacadeInterface is the single entry point for workspace and ACL
// lookups used by the access-policy kernel.
type WorkspaceFacadeInterface interface {
	GetByID(ctx context.Context, id int64) (*model.Workspace, error)
	Create(ctx context.Context, ws *model.Workspace) error
	Archive(ctx context.Context, id int64) error
	Restore(ctx context.Context, id int64) error
	SetVisibility(ctx context.Context, id int64, visibility model.Visibility) error
	ACLEntry(ctx context.Context, workspaceID int64, userID string) (*model.WorkspaceACLEntry, error)
	AddACLEntry(ctx context.Context, entry *model.WorkspaceACLEntry) error
}

type WorkspaceFacade struct {
	db *gorm.DB
}

func NewWorkspaceFacade(db *gorm.DB) *WorkspaceFacade {
	return &WorkspaceFacade{db: db}
}

func (f *WorkspaceFacade) GetByID(ctx context.Context, id int64) (*model.Workspace, error) {
	var ws model.Workspace
	err := f.db.WithContext(ctx).Where("id = ?", id).First(&ws).Error
	if err != nil {
		return nil, err
	}
	return &ws, nil
}

func (f *WorkspaceFacade) Create(ctx context.Context, ws *model.Workspace) error {
	return f.db.WithContext(ctx).Create(ws).Error
}

func (f *WorkspaceFacade) Archive(ctx context.Context, id int64) error {
	return f.db.WithContext(ctx).Model(&model.Workspace{}).
		Where("id = ?", id).
		Update("archived_at", gorm.Expr("now()")).Error
}

func (f *WorkspaceFacade) Restore(ctx context.Context, id int64) error {
	return f.db.WithContext(ctx).Model(&model.Workspace{}).
		Where("id = ?", id).
		Update("archived_at", nil).Error
}

func (f *WorkspaceFacade) SetVisibility(ctx context.Context, id int64, visibility model.Visibility) error {
	return f.db.WithContext(ctx).Model(&model.Workspace{}).
		Where("id = ?", id).
		Update("visibility", visibility).Error
}

func (f *WorkspaceFacade) ACLEntry(ctx context.Context, workspaceID int64, userID string) (*model.WorkspaceACLEntry, error) {
	var entry model.WorkspaceACLEntry
	err := f.db.WithContext(ctx).
		Where("workspace_id = ? AND user_id = ?", workspaceID, userID).
		First(&entry).Error
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (f *WorkspaceFacade) AddACLEntry(ctx context.Context, entry *model.WorkspaceACLEntry) error {
	return f.db.WithContext(ctx).Create(entry).Error
}

// NormalizeName lower-cases a workspace name for the (owner_user_id,
// lower(name)) uniqueness constraint.
func NormalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
