// Package policy implements the workspace access-policy kernel: a pure
// function with no I/O of its own that combines workspace visibility, ACL
// membership, and actor role into a single read/write decision used
// uniformly by every pipeline.
package policy

import "github.com/SaintWyss/rag-corp-sub001/pkg/model"

type Mode string

const (
	ModeRead  Mode = "READ"
	ModeWrite Mode = "WRITE"
)

type Decision string

const (
	DecisionAllow    Decision = "ALLOW"
	DecisionNotFound Decision = "NOT_FOUND"
	DecisionForbidden Decision = "FORBIDDEN"
)

// ACLLookup resolves whether a user is present in a workspace's ACL, and
// under which role, without the kernel itself touching a database.
type ACLLookup func(workspaceID int64, userID string) (role model.ACLRole, present bool)

// Resolve evaluates the rules in order; first match wins. Missing or
// archived workspaces always resolve to NOT_FOUND regardless of actor.
// Every other denial, including a non-owner's read of an existing private
// workspace, resolves to FORBIDDEN.
func Resolve(ws *model.Workspace, actor *model.Actor, mode Mode, acl ACLLookup) Decision {
	if ws == nil || ws.IsArchived() {
		return DecisionNotFound
	}
	if actor == nil {
		return DecisionForbidden
	}
	if actor.IsAdmin() {
		return DecisionAllow
	}
	if mode == ModeRead && ws.OwnerUserID != nil && *ws.OwnerUserID == actor.UserID {
		return DecisionAllow
	}
	if mode == ModeRead && ws.Visibility == model.VisibilityOrgRead {
		return DecisionAllow
	}
	if mode == ModeRead && ws.Visibility == model.VisibilityShared && acl != nil {
		if _, ok := acl(ws.ID, actor.UserID); ok {
			return DecisionAllow
		}
	}
	if mode == ModeWrite && ws.OwnerUserID != nil && *ws.OwnerUserID == actor.UserID {
		return DecisionAllow
	}
	return DecisionForbidden
}
