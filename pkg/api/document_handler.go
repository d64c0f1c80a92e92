package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/SaintWyss/rag-corp-sub001/pkg/apierrors"
	"github.com/SaintWyss/rag-corp-sub001/pkg/database"
	"github.com/SaintWyss/rag-corp-sub001/pkg/model"
	"github.com/SaintWyss/rag-corp-sub001/pkg/policy"
	"github.com/SaintWyss/rag-corp-sub001/pkg/queue"
	"github.com/SaintWyss/rag-corp-sub001/pkg/storage"
)

// JobEnqueuer is the subset of *queue.Queue the document handler depends
// on, narrowed to an interface so tests don't need a live Redis connection.
type JobEnqueuer interface {
	Enqueue(ctx context.Context, job queue.Job) error
}

var (
	errDocWorkspaceNotFound  = errors.New("document_handler: workspace not found")
	errDocWorkspaceForbidden = errors.New("document_handler: write access denied")
)

// DocumentHandler serves the upload/reprocess/delete document endpoints,
// every one write-gated by the same access-policy kernel pkg/workspace
// uses, since uploading is itself a workspace write.
type DocumentHandler struct {
	workspaces     database.WorkspaceFacadeInterface
	documents      database.DocumentFacadeInterface
	chunks         database.ChunkFacadeInterface
	blobs          storage.Storage
	jobs           JobEnqueuer
	maxUploadBytes int64
}

func NewDocumentHandler(workspaces database.WorkspaceFacadeInterface, documents database.DocumentFacadeInterface, chunks database.ChunkFacadeInterface, blobs storage.Storage, jobs JobEnqueuer, maxUploadBytes int64) *DocumentHandler {
	return &DocumentHandler{
		workspaces:     workspaces,
		documents:      documents,
		chunks:         chunks,
		blobs:          blobs,
		jobs:           jobs,
		maxUploadBytes: maxUploadBytes,
	}
}

func (h *DocumentHandler) resolveWrite(r *http.Request, workspaceID int64) error {
	ws, err := h.workspaces.GetByID(r.Context(), workspaceID)
	if err != nil {
		return errDocWorkspaceNotFound
	}
	acl := func(id int64, userID string) (model.ACLRole, bool) {
		entry, err := h.workspaces.ACLEntry(r.Context(), id, userID)
		if err != nil || entry == nil {
			return "", false
		}
		return entry.Role, true
	}
	switch policy.Resolve(ws, ActorFromContext(r.Context()), policy.ModeWrite, acl) {
	case policy.DecisionAllow:
		return nil
	case policy.DecisionNotFound:
		return errDocWorkspaceNotFound
	default:
		return errDocWorkspaceForbidden
	}
}

func mapDocumentError(err error) *apierrors.Error {
	switch {
	case errors.Is(err, errDocWorkspaceNotFound):
		return apierrors.NotFound("workspace")
	case errors.Is(err, errDocWorkspaceForbidden):
		return apierrors.Forbidden("write access denied")
	default:
		return apierrors.ServiceUnavailable("document", err)
	}
}

type uploadResponse struct {
	DocumentID int64  `json:"document_id"`
	Status     string `json:"status"`
}

// Upload handles POST /v1/workspaces/{ws}/documents/upload (multipart).
// The uploaded blob is stored, a PENDING document row is created, and a
// job is enqueued for a worker to run through the ingestion pipeline — the
// handler never runs extraction inline.
func (h *DocumentHandler) Upload(w http.ResponseWriter, r *http.Request) {
	workspaceID, err := strconv.ParseInt(chi.URLParam(r, "ws"), 10, 64)
	if err != nil {
		writeProblem(w, r, apierrors.Validation("invalid workspace id"))
		return
	}
	if err := h.resolveWrite(r, workspaceID); err != nil {
		writeProblem(w, r, mapDocumentError(err))
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		writeProblem(w, r, apierrors.New(apierrors.CodePayloadTooLarge, "upload exceeds the configured size limit"))
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeProblem(w, r, apierrors.Validation("missing multipart field \"file\""))
		return
	}
	defer file.Close()

	title := r.FormValue("title")
	if title == "" {
		title = header.Filename
	}
	mimeType := header.Header.Get("Content-Type")
	storageKey := "ws-" + strconv.FormatInt(workspaceID, 10) + "/" + uuid.NewString() + "-" + header.Filename

	if err := h.blobs.Upload(r.Context(), storageKey, file); err != nil {
		writeProblem(w, r, apierrors.ServiceUnavailable("storage", err))
		return
	}

	actor := ActorFromContext(r.Context())
	doc := &model.Document{
		WorkspaceID: workspaceID,
		Title:       title,
		Source:      header.Filename,
		MimeType:    mimeType,
		StorageKey:  storageKey,
		Status:      model.DocumentPending,
	}
	if actor != nil {
		doc.UploadedByUserID = actor.UserID
	}
	if err := h.documents.Save(r.Context(), doc); err != nil {
		writeProblem(w, r, apierrors.ServiceUnavailable("database", err))
		return
	}

	if err := h.jobs.Enqueue(r.Context(), queue.Job{DocumentID: doc.ID, WorkspaceID: workspaceID}); err != nil {
		writeProblem(w, r, apierrors.ServiceUnavailable("queue", err))
		return
	}

	writeJSON(w, http.StatusAccepted, uploadResponse{DocumentID: doc.ID, Status: string(model.DocumentPending)})
}

// Reprocess handles POST /v1/workspaces/{ws}/documents/{id}/reprocess. A
// document must be READY or FAILED to be re-queued — one already PENDING
// or PROCESSING already has a job in flight.
func (h *DocumentHandler) Reprocess(w http.ResponseWriter, r *http.Request) {
	workspaceID, docID, err := h.pathIDs(r)
	if err != nil {
		writeProblem(w, r, apierrors.Validation("invalid path id"))
		return
	}
	if err := h.resolveWrite(r, workspaceID); err != nil {
		writeProblem(w, r, mapDocumentError(err))
		return
	}

	ok, err := h.documents.TransitionStatus(r.Context(), docID, workspaceID,
		[]model.DocumentStatus{model.DocumentReady, model.DocumentFailed}, model.DocumentPending, "")
	if err != nil {
		writeProblem(w, r, apierrors.ServiceUnavailable("database", err))
		return
	}
	if !ok {
		writeProblem(w, r, apierrors.New(apierrors.CodeConflict, "document is already pending or processing"))
		return
	}

	if err := h.jobs.Enqueue(r.Context(), queue.Job{DocumentID: docID, WorkspaceID: workspaceID}); err != nil {
		writeProblem(w, r, apierrors.ServiceUnavailable("queue", err))
		return
	}

	writeJSON(w, http.StatusAccepted, uploadResponse{DocumentID: docID, Status: string(model.DocumentPending)})
}

// Delete handles DELETE /v1/workspaces/{ws}/documents/{id}. Chunks are
// removed before the document row so a concurrent retrieval query never
// observes chunks belonging to a now-deleted document.
func (h *DocumentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	workspaceID, docID, err := h.pathIDs(r)
	if err != nil {
		writeProblem(w, r, apierrors.Validation("invalid path id"))
		return
	}
	if err := h.resolveWrite(r, workspaceID); err != nil {
		writeProblem(w, r, mapDocumentError(err))
		return
	}

	if err := h.chunks.DeleteChunksForDocument(r.Context(), docID, workspaceID); err != nil {
		writeProblem(w, r, apierrors.ServiceUnavailable("database", err))
		return
	}
	if err := h.documents.Delete(r.Context(), docID, workspaceID); err != nil {
		writeProblem(w, r, apierrors.ServiceUnavailable("database", err))
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *DocumentHandler) pathIDs(r *http.Request) (workspaceID, docID int64, err error) {
	workspaceID, err = strconv.ParseInt(chi.URLParam(r, "ws"), 10, 64)
	if err != nil {
		return 0, 0, err
	}
	docID, err = strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return workspaceID, docID, err
}
