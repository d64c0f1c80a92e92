package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SaintWyss/rag-corp-sub001/pkg/apierrors"
	"github.com/SaintWyss/rag-corp-sub001/pkg/ask"
	"github.com/SaintWyss/rag-corp-sub001/pkg/model"
)

type fakeAsker struct {
	askResult    ask.Result
	askErr       error
	searchResult ask.Result
	searchErr    error
}

func (f *fakeAsker) Ask(ctx context.Context, in ask.Input) (ask.Result, error) {
	return f.askResult, f.askErr
}

func (f *fakeAsker) Search(ctx context.Context, in ask.Input) (ask.Result, error) {
	return f.searchResult, f.searchErr
}

func newAskRouter(h *AskHandler) *chi.Mux {
	r := chi.NewRouter()
	r.Route("/v1/workspaces/{ws}", func(ws chi.Router) {
		ws.Post("/ask", h.Ask)
		ws.Post("/search", h.Search)
	})
	return r
}

func withActorContext(req *http.Request, actor *model.Actor) *http.Request {
	return req.WithContext(withActor(req.Context(), actor))
}

func TestAskHandler_Ask_ReturnsAnswerAndSources(t *testing.T) {
	asker := &fakeAsker{askResult: ask.Result{
		Answer: "Según [S1], el trabajo remoto requiere VPN.",
		Chunks: []model.ScoredChunk{{Chunk: model.Chunk{ID: 1, DocumentID: 10, Content: "VPN required"}, Score: 0.9}},
	}}
	h := NewAskHandler(asker, "downrank", 0.6)
	router := newAskRouter(h)

	body, _ := json.Marshal(askRequest{Query: "vpn?"})
	req := httptest.NewRequest(http.MethodPost, "/v1/workspaces/1/ask", bytes.NewReader(body))
	req = withActorContext(req, &model.Actor{UserID: "owner-1"})
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp askResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, asker.askResult.Answer, resp.Answer)
	assert.Len(t, resp.Sources, 1)
}

func TestAskHandler_Ask_InvalidWorkspaceID(t *testing.T) {
	h := NewAskHandler(&fakeAsker{}, "downrank", 0.6)
	router := newAskRouter(h)

	req := httptest.NewRequest(http.MethodPost, "/v1/workspaces/not-a-number/ask", bytes.NewReader([]byte(`{"query":"x"}`)))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAskHandler_Ask_ForbiddenMapsToProblem403(t *testing.T) {
	h := NewAskHandler(&fakeAsker{askErr: ask.ErrForbidden}, "downrank", 0.6)
	router := newAskRouter(h)

	req := httptest.NewRequest(http.MethodPost, "/v1/workspaces/1/ask", bytes.NewReader([]byte(`{"query":"x"}`)))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusForbidden, rec.Code)
	var problem apierrors.ProblemDocument
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
	assert.Equal(t, apierrors.CodeForbidden, problem.Code)
}

func TestAskHandler_Ask_NotFoundMapsToProblem404(t *testing.T) {
	h := NewAskHandler(&fakeAsker{askErr: ask.ErrNotFound}, "downrank", 0.6)
	router := newAskRouter(h)

	req := httptest.NewRequest(http.MethodPost, "/v1/workspaces/999/ask", bytes.NewReader([]byte(`{"query":"x"}`)))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAskHandler_Search_ReturnsMatchesOnly(t *testing.T) {
	asker := &fakeAsker{searchResult: ask.Result{
		Chunks: []model.ScoredChunk{{Chunk: model.Chunk{ID: 2, DocumentID: 11, Content: "match"}, Score: 0.5}},
	}}
	h := NewAskHandler(asker, "downrank", 0.6)
	router := newAskRouter(h)

	req := httptest.NewRequest(http.MethodPost, "/v1/workspaces/1/search", bytes.NewReader([]byte(`{"query":"x"}`)))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp searchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Matches, 1)
}
