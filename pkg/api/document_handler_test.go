package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SaintWyss/rag-corp-sub001/pkg/model"
	"github.com/SaintWyss/rag-corp-sub001/pkg/queue"
)

type fakeWorkspaceFacade struct {
	workspaces map[int64]*model.Workspace
	aclEntries map[string]*model.WorkspaceACLEntry
}

func (f *fakeWorkspaceFacade) GetByID(ctx context.Context, id int64) (*model.Workspace, error) {
	ws, ok := f.workspaces[id]
	if !ok {
		return nil, assertNotFoundErr
	}
	return ws, nil
}
func (f *fakeWorkspaceFacade) Create(ctx context.Context, ws *model.Workspace) error { return nil }
func (f *fakeWorkspaceFacade) Archive(ctx context.Context, id int64) error           { return nil }
func (f *fakeWorkspaceFacade) Restore(ctx context.Context, id int64) error           { return nil }
func (f *fakeWorkspaceFacade) SetVisibility(ctx context.Context, id int64, v model.Visibility) error {
	return nil
}
func (f *fakeWorkspaceFacade) ACLEntry(ctx context.Context, workspaceID int64, userID string) (*model.WorkspaceACLEntry, error) {
	entry, ok := f.aclEntries[userID]
	if !ok {
		return nil, nil
	}
	return entry, nil
}
func (f *fakeWorkspaceFacade) AddACLEntry(ctx context.Context, entry *model.WorkspaceACLEntry) error {
	return nil
}

var assertNotFoundErr = &notFoundErr{}

type notFoundErr struct{}

func (e *notFoundErr) Error() string { return "record not found" }

type fakeDocumentFacade struct {
	saved           *model.Document
	transitionOK    bool
	transitionErr   error
	deleteErr       error
	nextID          int64
}

func (f *fakeDocumentFacade) GetByID(ctx context.Context, id, workspaceID int64) (*model.Document, error) {
	return nil, assertNotFoundErr
}
func (f *fakeDocumentFacade) Save(ctx context.Context, doc *model.Document) error {
	f.nextID++
	doc.ID = f.nextID
	f.saved = doc
	return nil
}
func (f *fakeDocumentFacade) UpdateChunkCount(ctx context.Context, id int64, count int) error {
	return nil
}
func (f *fakeDocumentFacade) UpdateChecksum(ctx context.Context, id int64, checksum string) error {
	return nil
}
func (f *fakeDocumentFacade) TransitionStatus(ctx context.Context, id, workspaceID int64, from []model.DocumentStatus, to model.DocumentStatus, errorMessage string) (bool, error) {
	return f.transitionOK, f.transitionErr
}
func (f *fakeDocumentFacade) GetByExternalSourceID(ctx context.Context, workspaceID int64, externalID string) (*model.Document, error) {
	return nil, assertNotFoundErr
}
func (f *fakeDocumentFacade) UpdateExternalSourceMetadata(ctx context.Context, id int64, provider, externalID, etag string, modifiedTime *time.Time) error {
	return nil
}
func (f *fakeDocumentFacade) Delete(ctx context.Context, id, workspaceID int64) error {
	return f.deleteErr
}

type fakeChunkFacade struct {
	deleteErr error
}

func (f *fakeChunkFacade) SaveDocumentWithChunks(ctx context.Context, doc *model.Document, chunks []model.Chunk, embeddingDim int) error {
	return nil
}
func (f *fakeChunkFacade) SaveChunks(ctx context.Context, documentID, workspaceID int64, chunks []model.Chunk) error {
	return nil
}
func (f *fakeChunkFacade) DeleteChunksForDocument(ctx context.Context, documentID, workspaceID int64) error {
	return f.deleteErr
}
func (f *fakeChunkFacade) FindSimilarChunks(ctx context.Context, embedding []float32, topK int, workspaceID int64) ([]model.ScoredChunk, error) {
	return nil, nil
}
func (f *fakeChunkFacade) FindSimilarChunksForMMR(ctx context.Context, embedding []float32, fetchK int, workspaceID int64) ([]model.ScoredChunk, error) {
	return nil, nil
}
func (f *fakeChunkFacade) FindChunksFullText(ctx context.Context, queryText string, topK int, workspaceID int64) ([]model.ScoredChunk, error) {
	return nil, nil
}

type fakeStorage struct {
	uploadErr error
}

func (f *fakeStorage) Upload(ctx context.Context, key string, reader io.Reader) error {
	return f.uploadErr
}
func (f *fakeStorage) Download(ctx context.Context, key string) ([]byte, error) { return nil, nil }
func (f *fakeStorage) Delete(ctx context.Context, key string) error             { return nil }

type fakeJobEnqueuer struct {
	enqueued []queue.Job
	err      error
}

func (f *fakeJobEnqueuer) Enqueue(ctx context.Context, job queue.Job) error {
	f.enqueued = append(f.enqueued, job)
	return f.err
}

func newDocRouter(h *DocumentHandler) *chi.Mux {
	r := chi.NewRouter()
	r.Route("/v1/workspaces/{ws}", func(ws chi.Router) {
		ws.Post("/documents/upload", h.Upload)
		ws.Post("/documents/{id}/reprocess", h.Reprocess)
		ws.Delete("/documents/{id}", h.Delete)
	})
	return r
}

func ownerStr() *string {
	s := "owner-1"
	return &s
}

func TestDocumentHandler_Upload_ForbiddenForNonOwner(t *testing.T) {
	workspaces := &fakeWorkspaceFacade{
		workspaces: map[int64]*model.Workspace{1: {ID: 1, Visibility: model.VisibilityPrivate, OwnerUserID: ownerStr()}},
		aclEntries: map[string]*model.WorkspaceACLEntry{},
	}
	docs := &fakeDocumentFacade{}
	chunks := &fakeChunkFacade{}
	jobs := &fakeJobEnqueuer{}
	h := NewDocumentHandler(workspaces, docs, chunks, nil, jobs, 1<<20)
	router := newDocRouter(h)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, _ := mw.CreateFormFile("file", "policy.txt")
	fw.Write([]byte("content"))
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/v1/workspaces/1/documents/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req = withActorContext(req, &model.Actor{UserID: "someone-else"})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Empty(t, jobs.enqueued)
}

func TestDocumentHandler_Upload_NotFoundWorkspace(t *testing.T) {
	workspaces := &fakeWorkspaceFacade{workspaces: map[int64]*model.Workspace{}}
	h := NewDocumentHandler(workspaces, &fakeDocumentFacade{}, &fakeChunkFacade{}, nil, &fakeJobEnqueuer{}, 1<<20)
	router := newDocRouter(h)

	req := httptest.NewRequest(http.MethodPost, "/v1/workspaces/999/documents/upload", bytes.NewReader(nil))
	req = withActorContext(req, &model.Actor{UserID: "someone"})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDocumentHandler_Delete_ReturnsNoContent(t *testing.T) {
	workspaces := &fakeWorkspaceFacade{
		workspaces: map[int64]*model.Workspace{1: {ID: 1, Visibility: model.VisibilityPrivate, OwnerUserID: ownerStr()}},
	}
	docs := &fakeDocumentFacade{}
	chunks := &fakeChunkFacade{}
	h := NewDocumentHandler(workspaces, docs, chunks, nil, &fakeJobEnqueuer{}, 1<<20)
	router := newDocRouter(h)

	req := httptest.NewRequest(http.MethodDelete, "/v1/workspaces/1/documents/5", nil)
	req = withActorContext(req, &model.Actor{UserID: "owner-1"})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestDocumentHandler_Reprocess_ConflictWhenAlreadyInFlight(t *testing.T) {
	workspaces := &fakeWorkspaceFacade{
		workspaces: map[int64]*model.Workspace{1: {ID: 1, Visibility: model.VisibilityPrivate, OwnerUserID: ownerStr()}},
	}
	docs := &fakeDocumentFacade{transitionOK: false}
	h := NewDocumentHandler(workspaces, docs, &fakeChunkFacade{}, nil, &fakeJobEnqueuer{}, 1<<20)
	router := newDocRouter(h)

	req := httptest.NewRequest(http.MethodPost, "/v1/workspaces/1/documents/5/reprocess", nil)
	req = withActorContext(req, &model.Actor{UserID: "owner-1"})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestDocumentHandler_Reprocess_EnqueuesJobOnSuccess(t *testing.T) {
	workspaces := &fakeWorkspaceFacade{
		workspaces: map[int64]*model.Workspace{1: {ID: 1, Visibility: model.VisibilityPrivate, OwnerUserID: ownerStr()}},
	}
	docs := &fakeDocumentFacade{transitionOK: true}
	jobs := &fakeJobEnqueuer{}
	h := NewDocumentHandler(workspaces, docs, &fakeChunkFacade{}, nil, jobs, 1<<20)
	router := newDocRouter(h)

	req := httptest.NewRequest(http.MethodPost, "/v1/workspaces/1/documents/5/reprocess", nil)
	req = withActorContext(req, &model.Actor{UserID: "owner-1"})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code)
	require.Len(t, jobs.enqueued, 1)
	assert.Equal(t, int64(5), jobs.enqueued[0].DocumentID)

	var resp uploadResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, string(model.DocumentPending), resp.Status)
}
