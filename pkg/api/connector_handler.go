// Connector OAuth start/callback, grounded on the original's
// StartOAuthUseCase and HandleOAuthCallbackUseCase: state is an opaque
// JSON {workspace_id, provider} blob round-tripped through the provider,
// and the callback's first check is that state's workspace_id agrees with
// the URL path's — a mismatch means the callback is being replayed against
// the wrong workspace.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/SaintWyss/rag-corp-sub001/pkg/apierrors"
	"github.com/SaintWyss/rag-corp-sub001/pkg/connector"
	"github.com/SaintWyss/rag-corp-sub001/pkg/database"
	"github.com/SaintWyss/rag-corp-sub001/pkg/model"
	"github.com/SaintWyss/rag-corp-sub001/pkg/security"
)

const googleDriveProvider = "google_drive"

var errOAuthStateMismatch = errors.New("connector_handler: oauth state workspace_id mismatch")

// ConnectorHandler serves the Google Drive OAuth linking flow: a start
// endpoint that hands the caller an authorization URL, and the callback
// that exchanges the code and persists the encrypted refresh token.
type ConnectorHandler struct {
	workspaces       database.WorkspaceFacadeInterface
	connectors       database.ConnectorFacadeInterface
	oauth            *connector.GoogleOAuth
	encryption       *security.TokenEncryption
	redirectTemplate string // contains the literal "{workspace_id}" placeholder
}

func NewConnectorHandler(workspaces database.WorkspaceFacadeInterface, connectors database.ConnectorFacadeInterface, oauth *connector.GoogleOAuth, encryption *security.TokenEncryption, redirectTemplate string) *ConnectorHandler {
	return &ConnectorHandler{
		workspaces:       workspaces,
		connectors:       connectors,
		oauth:            oauth,
		encryption:       encryption,
		redirectTemplate: redirectTemplate,
	}
}

type oauthState struct {
	WorkspaceID string `json:"workspace_id"`
	Provider    string `json:"provider"`
}

type startOAuthResponse struct {
	AuthorizationURL string `json:"authorization_url"`
}

func (h *ConnectorHandler) redirectURI(workspaceID int64) string {
	return strings.ReplaceAll(h.redirectTemplate, "{workspace_id}", strconv.FormatInt(workspaceID, 10))
}

// StartOAuth handles POST /v1/workspaces/{ws}/connectors/oauth/start.
func (h *ConnectorHandler) StartOAuth(w http.ResponseWriter, r *http.Request) {
	workspaceID, err := strconv.ParseInt(chi.URLParam(r, "ws"), 10, 64)
	if err != nil {
		writeProblem(w, r, apierrors.Validation("invalid workspace id"))
		return
	}
	if _, err := h.workspaces.GetByID(r.Context(), workspaceID); err != nil {
		writeProblem(w, r, apierrors.NotFound("workspace"))
		return
	}

	state, err := json.Marshal(oauthState{
		WorkspaceID: strconv.FormatInt(workspaceID, 10),
		Provider:    googleDriveProvider,
	})
	if err != nil {
		writeProblem(w, r, apierrors.ServiceUnavailable("oauth", err))
		return
	}

	url := h.oauth.BuildAuthorizationURL(string(state), h.redirectURI(workspaceID))
	writeJSON(w, http.StatusOK, startOAuthResponse{AuthorizationURL: url})
}

type oauthCallbackResponse struct {
	AccountEmail string `json:"account_email"`
}

// Callback handles GET /v1/workspaces/{ws}/connectors/oauth/callback.
func (h *ConnectorHandler) Callback(w http.ResponseWriter, r *http.Request) {
	workspaceID, err := strconv.ParseInt(chi.URLParam(r, "ws"), 10, 64)
	if err != nil {
		writeProblem(w, r, apierrors.Validation("invalid workspace id"))
		return
	}

	var state oauthState
	if err := json.Unmarshal([]byte(r.URL.Query().Get("state")), &state); err != nil {
		writeProblem(w, r, apierrors.Validation("invalid oauth state"))
		return
	}
	if state.WorkspaceID != strconv.FormatInt(workspaceID, 10) {
		writeProblem(w, r, apierrors.Validation(errOAuthStateMismatch.Error()))
		return
	}

	if _, err := h.workspaces.GetByID(r.Context(), workspaceID); err != nil {
		writeProblem(w, r, apierrors.NotFound("workspace"))
		return
	}

	code := r.URL.Query().Get("code")
	tokens, err := h.oauth.ExchangeCode(r.Context(), code, h.redirectURI(workspaceID))
	if err != nil {
		writeProblem(w, r, apierrors.Validation(err.Error()))
		return
	}

	encrypted, err := h.encryption.Encrypt(tokens.RefreshToken)
	if err != nil {
		writeProblem(w, r, apierrors.ServiceUnavailable("encryption", err))
		return
	}

	account := &model.ConnectorAccount{
		WorkspaceID:           workspaceID,
		Provider:              googleDriveProvider,
		AccountEmail:          tokens.Email,
		EncryptedRefreshToken: encrypted,
	}
	if err := h.connectors.UpsertAccount(r.Context(), account); err != nil {
		writeProblem(w, r, apierrors.ServiceUnavailable("database", err))
		return
	}

	writeJSON(w, http.StatusOK, oauthCallbackResponse{AccountEmail: tokens.Email})
}
