package model

import "time"

const TableNameConnectorSources = "connector_sources"

type ConnectorSourceStatus string

const (
	ConnectorPending  ConnectorSourceStatus = "PENDING"
	ConnectorActive   ConnectorSourceStatus = "ACTIVE"
	ConnectorSyncing  ConnectorSourceStatus = "SYNCING"
	ConnectorError    ConnectorSourceStatus = "ERROR"
	ConnectorDisabled ConnectorSourceStatus = "DISABLED"
)

// ConnectorSource is a configured remote folder kept in sync with a
// workspace. status=SYNCING is the per-source CAS lock.
type ConnectorSource struct {
	ID          int64                 `gorm:"column:id;primaryKey;autoIncrement:true" json:"id"`
	WorkspaceID int64                 `gorm:"column:workspace_id;not null;index" json:"workspace_id"`
	Provider    string                `gorm:"column:provider;not null" json:"provider"`
	FolderID    string                `gorm:"column:folder_id;not null" json:"folder_id"`
	Status      ConnectorSourceStatus `gorm:"column:status;not null;default:PENDING" json:"status"`
	CursorJSON  string                `gorm:"column:cursor_json" json:"cursor_json,omitempty"`
	CreatedAt   time.Time             `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time             `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (*ConnectorSource) TableName() string { return TableNameConnectorSources }

const TableNameConnectorAccounts = "connector_accounts"

// ConnectorAccount holds the encrypted refresh token used to mint access
// tokens for a (workspace, provider) pair.
type ConnectorAccount struct {
	ID                    int64     `gorm:"column:id;primaryKey;autoIncrement:true" json:"id"`
	WorkspaceID           int64     `gorm:"column:workspace_id;not null;index" json:"workspace_id"`
	Provider              string    `gorm:"column:provider;not null" json:"provider"`
	AccountEmail          string    `gorm:"column:account_email" json:"account_email,omitempty"`
	EncryptedRefreshToken []byte    `gorm:"column:encrypted_refresh_token" json:"-"`
	CreatedAt             time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt             time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (*ConnectorAccount) TableName() string { return TableNameConnectorAccounts }

const TableNameAuditEvents = "audit_events"

// AuditEvent is append-only: never updated, never deleted.
type AuditEvent struct {
	ID           int64     `gorm:"column:id;primaryKey;autoIncrement:true" json:"id"`
	Actor        string    `gorm:"column:actor;not null" json:"actor"`
	Action       string    `gorm:"column:action;not null" json:"action"`
	TargetID     string    `gorm:"column:target_id" json:"target_id,omitempty"`
	MetadataJSON JSONMap   `gorm:"column:metadata_json;default:{}" json:"metadata_json"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (*AuditEvent) TableName() string { return TableNameAuditEvents }
