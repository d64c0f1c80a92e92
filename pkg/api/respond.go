// Package api is the HTTP boundary: chi router, request parsing, and RFC
// 7807 problem-document rendering over the use cases in pkg/ask,
// pkg/workspace, pkg/ingest, and pkg/connector. Grounded on the teacher's
// pkg/api/handler.go (a Handler struct holding its collaborators plus a
// RegisterRoutes free function) and pkg/api/error_response.go (centralized
// error-response dispatch), adapted from gin to go-chi/chi and from a
// custom ErrorResponse shape to pkg/apierrors's problem documents.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/SaintWyss/rag-corp-sub001/pkg/apierrors"
)

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeProblem renders err as an application/problem+json body. Any error
// not already a *apierrors.Error is wrapped as INTERNAL_ERROR.
func writeProblem(w http.ResponseWriter, r *http.Request, err error) {
	apiErr := apierrors.As(err)
	problem := apierrors.ToProblem(apiErr, r.URL.Path)
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(problem.Status)
	_ = json.NewEncoder(w).Encode(problem)
}
