package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/SaintWyss/rag-corp-sub001/pkg/authn"
	"github.com/SaintWyss/rag-corp-sub001/pkg/resilience"
)

// Deps collects every handler and cross-cutting dependency the router
// wires together. Built by the composition root (pkg/bootstrap).
type Deps struct {
	Authenticator      *authn.Authenticator
	RateLimiter        *resilience.RateLimiter
	Ask                *AskHandler
	Documents          *DocumentHandler
	Connectors         *ConnectorHandler
	Health             *HealthHandler
	MaxBodyBytes       int64
	MetricsRequireAuth bool
}

// NewRouter builds the full chi.Mux: /healthz and /readyz unauthenticated
// and unthrottled; /metrics the same unless MetricsRequireAuth, in which
// case it sits behind rate-limit -> auth; everything under /v1 behind
// rate-limit -> body-cap -> auth, in that order ("rate limiting precedes
// auth").
func NewRouter(d Deps) *chi.Mux {
	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(RequestIDMiddleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodDelete},
		AllowedHeaders:   []string{"Authorization", "X-API-Key", "Content-Type", "X-Request-Id"},
		AllowCredentials: true,
	}))

	r.Get("/healthz", d.Health.Healthz)
	r.Get("/readyz", d.Health.Readyz)
	if d.MetricsRequireAuth {
		r.With(RateLimitMiddleware(d.RateLimiter), AuthMiddleware(d.Authenticator)).
			Get("/metrics", Metrics().ServeHTTP)
	} else {
		r.Get("/metrics", Metrics().ServeHTTP)
	}

	r.Route("/v1", func(v1 chi.Router) {
		v1.Use(RateLimitMiddleware(d.RateLimiter))
		v1.Use(BodyLimitMiddleware(d.MaxBodyBytes))
		v1.Use(AuthMiddleware(d.Authenticator))

		v1.Route("/workspaces/{ws}", func(ws chi.Router) {
			ws.Post("/ask", d.Ask.Ask)
			ws.Post("/search", d.Ask.Search)

			ws.Post("/documents/upload", d.Documents.Upload)
			ws.Post("/documents/{id}/reprocess", d.Documents.Reprocess)
			ws.Delete("/documents/{id}", d.Documents.Delete)

			ws.Post("/connectors/oauth/start", d.Connectors.StartOAuth)
			ws.Get("/connectors/oauth/callback", d.Connectors.Callback)
		})
	})

	return r
}
