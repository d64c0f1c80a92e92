package model

import "time"

const TableNameWorkspaces = "workspaces"

// Visibility enumerates who can read a workspace absent an explicit ACL entry.
type Visibility string

const (
	VisibilityPrivate  Visibility = "PRIVATE"
	VisibilityOrgRead  Visibility = "ORG_READ"
	VisibilityShared   Visibility = "SHARED"
)

// Workspace is the tenant isolation unit: every document, chunk, and
// connector is scoped to exactly one workspace.
type Workspace struct {
	ID          int64      `gorm:"column:id;primaryKey;autoIncrement:true" json:"id"`
	Name        string     `gorm:"column:name;not null" json:"name"`
	OwnerUserID *string    `gorm:"column:owner_user_id" json:"owner_user_id,omitempty"`
	Visibility  Visibility `gorm:"column:visibility;not null;default:PRIVATE" json:"visibility"`
	ArchivedAt  *time.Time `gorm:"column:archived_at" json:"archived_at,omitempty"`
	CreatedAt   time.Time  `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (*Workspace) TableName() string { return TableNameWorkspaces }

// IsArchived reports whether the workspace must be treated as non-existent
// for every path except admin archive inspection.
func (w *Workspace) IsArchived() bool {
	return w != nil && w.ArchivedAt != nil
}

const TableNameWorkspaceACLEntries = "workspace_acl_entries"

type ACLRole string

const (
	ACLRoleViewer ACLRole = "VIEWER"
	ACLRoleEditor ACLRole = "EDITOR"
)

// WorkspaceACLEntry grants a user a role on a SHARED workspace.
type WorkspaceACLEntry struct {
	ID          int64     `gorm:"column:id;primaryKey;autoIncrement:true" json:"id"`
	WorkspaceID int64     `gorm:"column:workspace_id;not null;index" json:"workspace_id"`
	UserID      string    `gorm:"column:user_id;not null;index" json:"user_id"`
	Role        ACLRole   `gorm:"column:role;not null" json:"role"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (*WorkspaceACLEntry) TableName() string { return TableNameWorkspaceACLEntries }
