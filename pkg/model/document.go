package model

import "time"

const TableNameDocuments = "documents"

type DocumentStatus string

const (
	DocumentPending    DocumentStatus = "PENDING"
	DocumentProcessing DocumentStatus = "PROCESSING"
	DocumentReady      DocumentStatus = "READY"
	DocumentFailed     DocumentStatus = "FAILED"
)

const maxErrorMessageLen = 500

// Document is a single uploaded or synced artifact belonging to exactly one
// workspace. Its chunk set is replaced wholesale every time it is processed.
type Document struct {
	ID               int64          `gorm:"column:id;primaryKey;autoIncrement:true" json:"id"`
	WorkspaceID      int64          `gorm:"column:workspace_id;not null;index" json:"workspace_id"`
	Title            string         `gorm:"column:title;not null" json:"title"`
	Source           string         `gorm:"column:source" json:"source"`
	MimeType         string         `gorm:"column:mime_type" json:"mime_type"`
	StorageKey       string         `gorm:"column:storage_key" json:"storage_key"`
	Status           DocumentStatus `gorm:"column:status;not null;default:PENDING;index" json:"status"`
	ErrorMessage     string         `gorm:"column:error_message" json:"error_message,omitempty"`
	ContentHash      string         `gorm:"column:content_hash" json:"content_hash,omitempty"`
	ContentChecksum  string         `gorm:"column:content_checksum" json:"content_checksum,omitempty"`
	ChunkCount       int            `gorm:"column:chunk_count;default:0" json:"chunk_count"`
	Provider         string         `gorm:"column:provider" json:"provider,omitempty"`
	ExternalID       string         `gorm:"column:external_id;index" json:"external_id,omitempty"`
	ModifiedTime     *time.Time     `gorm:"column:modified_time" json:"modified_time,omitempty"`
	Etag             string         `gorm:"column:etag" json:"etag,omitempty"`
	UploadedByUserID string         `gorm:"column:uploaded_by_user_id" json:"uploaded_by_user_id,omitempty"`
	AllowedRoles     string         `gorm:"column:allowed_roles" json:"allowed_roles,omitempty"`
	Metadata         JSONMap        `gorm:"column:metadata;default:{}" json:"metadata"`
	CreatedAt        time.Time      `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time      `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (*Document) TableName() string { return TableNameDocuments }

// TruncateError clips an error string to the persisted column's contract:
// at most 500 characters, with a trailing ellipsis when clipped.
func TruncateError(msg string) string {
	if len(msg) <= maxErrorMessageLen {
		return msg
	}
	return msg[:maxErrorMessageLen-1] + "…"
}
