package database

import (
	"context"

	"gorm.io/gorm"

	"github.com/SaintWyss/rag-corp-sub001/pkg/model"
)

// ConnectorFacadeInterface persists connector sources/accounts and
// implements the per-source SYNCING CAS lock.
type ConnectorFacadeInterface interface {
	GetSourceByID(ctx context.Context, id, workspaceID int64) (*model.ConnectorSource, error)
	GetAccount(ctx context.Context, workspaceID int64, provider string) (*model.ConnectorAccount, error)
	TryAcquireSyncLock(ctx context.Context, id int64) (bool, error)
	SetStatus(ctx context.Context, id int64, status model.ConnectorSourceStatus) error
	SetCursor(ctx context.Context, id int64, cursorJSON string) error
	UpsertAccount(ctx context.Context, account *model.ConnectorAccount) error
	CreateSource(ctx context.Context, source *model.ConnectorSource) error
}

type ConnectorFacade struct {
	db *gorm.DB
}

func NewConnectorFacade(db *gorm.DB) *ConnectorFacade {
	return &ConnectorFacade{db: db}
}

func (f *ConnectorFacade) GetSourceByID(ctx context.Context, id, workspaceID int64) (*model.ConnectorSource, error) {
	var src model.ConnectorSource
	err := f.db.WithContext(ctx).
		Where("id = ? AND workspace_id = ?", id, workspaceID).
		First(&src).Error
	if err != nil {
		return nil, err
	}
	return &src, nil
}

func (f *ConnectorFacade) GetAccount(ctx context.Context, workspaceID int64, provider string) (*model.ConnectorAccount, error) {
	var acc model.ConnectorAccount
	err := f.db.WithContext(ctx).
		Where("workspace_id = ? AND provider = ?", workspaceID, provider).
		First(&acc).Error
	if err != nil {
		return nil, err
	}
	return &acc, nil
}

// TryAcquireSyncLock is the per-source CAS lock: it flips any non-SYNCING
// status to SYNCING and reports whether this call won the race.
func (f *ConnectorFacade) TryAcquireSyncLock(ctx context.Context, id int64) (bool, error) {
	tx := f.db.WithContext(ctx).Model(&model.ConnectorSource{}).
		Where("id = ? AND status != ?", id, model.ConnectorSyncing).
		Update("status", model.ConnectorSyncing)
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected == 1, nil
}

func (f *ConnectorFacade) SetStatus(ctx context.Context, id int64, status model.ConnectorSourceStatus) error {
	return f.db.WithContext(ctx).Model(&model.ConnectorSource{}).
		Where("id = ?", id).
		Update("status", status).Error
}

func (f *ConnectorFacade) SetCursor(ctx context.Context, id int64, cursorJSON string) error {
	return f.db.WithContext(ctx).Model(&model.ConnectorSource{}).
		Where("id = ?", id).
		Update("cursor_json", cursorJSON).Error
}

// UpsertAccount replaces the stored (workspace_id, provider) account, the
// completion step of the OAuth callback: linking or relinking always
// supersedes whatever refresh token was stored before.
func (f *ConnectorFacade) UpsertAccount(ctx context.Context, account *model.ConnectorAccount) error {
	existing, err := f.GetAccount(ctx, account.WorkspaceID, account.Provider)
	if err == nil && existing != nil {
		account.ID = existing.ID
		return f.db.WithContext(ctx).Save(account).Error
	}
	return f.db.WithContext(ctx).Create(account).Error
}

func (f *ConnectorFacade) CreateSource(ctx context.Context, source *model.ConnectorSource) error {
	return f.db.WithContext(ctx).Create(source).Error
}
