package workspace

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SaintWyss/rag-corp-sub001/pkg/model"
)

type fakeWorkspaceFacade struct {
	byID map[int64]*model.Workspace
	acl  map[int64]map[string]model.ACLRole
}

func newFakeWorkspaceFacade() *fakeWorkspaceFacade {
	return &fakeWorkspaceFacade{
		byID: map[int64]*model.Workspace{},
		acl:  map[int64]map[string]model.ACLRole{},
	}
}

func (f *fakeWorkspaceFacade) GetByID(ctx context.Context, id int64) (*model.Workspace, error) {
	ws, ok := f.byID[id]
	if !ok {
		return nil, assert.AnError
	}
	cp := *ws
	return &cp, nil
}

func (f *fakeWorkspaceFacade) Create(ctx context.Context, ws *model.Workspace) error {
	f.byID[ws.ID] = ws
	return nil
}

func (f *fakeWorkspaceFacade) Archive(ctx context.Context, id int64) error {
	now := time.Now()
	f.byID[id].ArchivedAt = &now
	return nil
}

func (f *fakeWorkspaceFacade) Restore(ctx context.Context, id int64) error {
	f.byID[id].ArchivedAt = nil
	return nil
}

func (f *fakeWorkspaceFacade) SetVisibility(ctx context.Context, id int64, visibility model.Visibility) error {
	f.byID[id].Visibility = visibility
	return nil
}

func (f *fakeWorkspaceFacade) ACLEntry(ctx context.Context, workspaceID int64, userID string) (*model.WorkspaceACLEntry, error) {
	byUser, ok := f.acl[workspaceID]
	if !ok {
		return nil, assert.AnError
	}
	role, ok := byUser[userID]
	if !ok {
		return nil, assert.AnError
	}
	return &model.WorkspaceACLEntry{WorkspaceID: workspaceID, UserID: userID, Role: role}, nil
}

func (f *fakeWorkspaceFacade) AddACLEntry(ctx context.Context, entry *model.WorkspaceACLEntry) error {
	if f.acl[entry.WorkspaceID] == nil {
		f.acl[entry.WorkspaceID] = map[string]model.ACLRole{}
	}
	f.acl[entry.WorkspaceID][entry.UserID] = entry.Role
	return nil
}

func ptr(s string) *string { return &s }

func TestService_Publish_PromotesVisibility(t *testing.T) {
	facade := newFakeWorkspaceFacade()
	facade.byID[1] = &model.Workspace{ID: 1, OwnerUserID: ptr("owner-1"), Visibility: model.VisibilityPrivate}
	svc := NewService(facade)

	ws, err := svc.Publish(context.Background(), 1, &model.Actor{UserID: "owner-1"})
	require.NoError(t, err)
	assert.Equal(t, model.VisibilityOrgRead, ws.Visibility)
	assert.Equal(t, model.VisibilityOrgRead, facade.byID[1].Visibility)
}

func TestService_Publish_AlreadyPublishedIsNoop(t *testing.T) {
	facade := newFakeWorkspaceFacade()
	facade.byID[1] = &model.Workspace{ID: 1, OwnerUserID: ptr("owner-1"), Visibility: model.VisibilityOrgRead}
	svc := NewService(facade)

	ws, err := svc.Publish(context.Background(), 1, &model.Actor{UserID: "owner-1"})
	require.NoError(t, err)
	assert.Equal(t, model.VisibilityOrgRead, ws.Visibility)
}

func TestService_Publish_NonOwnerForbidden(t *testing.T) {
	facade := newFakeWorkspaceFacade()
	facade.byID[1] = &model.Workspace{ID: 1, OwnerUserID: ptr("owner-1"), Visibility: model.VisibilityPrivate}
	svc := NewService(facade)

	_, err := svc.Publish(context.Background(), 1, &model.Actor{UserID: "someone-else"})
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestService_Publish_MissingWorkspaceNotFound(t *testing.T) {
	facade := newFakeWorkspaceFacade()
	svc := NewService(facade)

	_, err := svc.Publish(context.Background(), 99, &model.Actor{UserID: "owner-1"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestService_ArchiveWorkspace_ByOwner(t *testing.T) {
	facade := newFakeWorkspaceFacade()
	facade.byID[1] = &model.Workspace{ID: 1, OwnerUserID: ptr("owner-1")}
	svc := NewService(facade)

	err := svc.ArchiveWorkspace(context.Background(), 1, &model.Actor{UserID: "owner-1"})
	require.NoError(t, err)
	assert.True(t, facade.byID[1].IsArchived())
}

func TestService_RestoreWorkspace_RequiresAdmin(t *testing.T) {
	facade := newFakeWorkspaceFacade()
	now := time.Now()
	facade.byID[1] = &model.Workspace{ID: 1, OwnerUserID: ptr("owner-1"), ArchivedAt: &now}
	svc := NewService(facade)

	err := svc.RestoreWorkspace(context.Background(), 1, &model.Actor{UserID: "owner-1", Role: model.RoleEmployee})
	assert.ErrorIs(t, err, ErrForbidden)

	err = svc.RestoreWorkspace(context.Background(), 1, &model.Actor{UserID: "admin-1", Role: model.RoleAdmin})
	require.NoError(t, err)
	assert.False(t, facade.byID[1].IsArchived())
}
