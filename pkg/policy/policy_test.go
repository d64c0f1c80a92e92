package policy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/SaintWyss/rag-corp-sub001/pkg/model"
)

func strPtr(s string) *string { return &s }

func TestResolve_MissingOrArchivedAlwaysNotFound(t *testing.T) {
	admin := &model.Actor{UserID: "u1", Role: model.RoleAdmin}

	assert.Equal(t, DecisionNotFound, Resolve(nil, admin, ModeRead, nil))

	archived := time.Now()
	ws := &model.Workspace{ID: 1, Visibility: model.VisibilityOrgRead, ArchivedAt: &archived}
	assert.Equal(t, DecisionNotFound, Resolve(ws, admin, ModeRead, nil))
}

func TestResolve_NilActorForbidden(t *testing.T) {
	ws := &model.Workspace{ID: 1, Visibility: model.VisibilityOrgRead}
	assert.Equal(t, DecisionForbidden, Resolve(ws, nil, ModeRead, nil))
}

func TestResolve_AdminAlwaysAllowed(t *testing.T) {
	ws := &model.Workspace{ID: 1, Visibility: model.VisibilityPrivate, OwnerUserID: strPtr("owner")}
	admin := &model.Actor{UserID: "someone-else", Role: model.RoleAdmin}
	assert.Equal(t, DecisionAllow, Resolve(ws, admin, ModeWrite, nil))
}

func TestResolve_OwnerReadAndWriteAllowed(t *testing.T) {
	ws := &model.Workspace{ID: 1, Visibility: model.VisibilityPrivate, OwnerUserID: strPtr("owner")}
	owner := &model.Actor{UserID: "owner", Role: model.RoleEmployee}
	assert.Equal(t, DecisionAllow, Resolve(ws, owner, ModeRead, nil))
	assert.Equal(t, DecisionAllow, Resolve(ws, owner, ModeWrite, nil))
}

func TestResolve_OrgReadAllowsAnyEmployeeReadOnly(t *testing.T) {
	ws := &model.Workspace{ID: 1, Visibility: model.VisibilityOrgRead, OwnerUserID: strPtr("owner")}
	other := &model.Actor{UserID: "other", Role: model.RoleEmployee}
	assert.Equal(t, DecisionAllow, Resolve(ws, other, ModeRead, nil))
	assert.Equal(t, DecisionForbidden, Resolve(ws, other, ModeWrite, nil))
}

func TestResolve_SharedConsultsACL(t *testing.T) {
	ws := &model.Workspace{ID: 1, Visibility: model.VisibilityShared, OwnerUserID: strPtr("owner")}
	listed := &model.Actor{UserID: "viewer1", Role: model.RoleEmployee}
	notListed := &model.Actor{UserID: "stranger", Role: model.RoleEmployee}

	acl := func(workspaceID int64, userID string) (model.ACLRole, bool) {
		if userID == "viewer1" {
			return model.ACLRoleViewer, true
		}
		return "", false
	}

	assert.Equal(t, DecisionAllow, Resolve(ws, listed, ModeRead, acl))
	assert.Equal(t, DecisionForbidden, Resolve(ws, notListed, ModeRead, acl))
}

func TestResolve_PrivateNonOwnerForbidden(t *testing.T) {
	ws := &model.Workspace{ID: 1, Visibility: model.VisibilityPrivate, OwnerUserID: strPtr("owner")}
	other := &model.Actor{UserID: "other", Role: model.RoleEmployee}
	assert.Equal(t, DecisionForbidden, Resolve(ws, other, ModeRead, nil))
}
