package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/SaintWyss/rag-corp-sub001/pkg/apierrors"
	"github.com/SaintWyss/rag-corp-sub001/pkg/authn"
	"github.com/SaintWyss/rag-corp-sub001/pkg/metrics"
	"github.com/SaintWyss/rag-corp-sub001/pkg/model"
	"github.com/SaintWyss/rag-corp-sub001/pkg/resilience"
)

type ctxKey string

const actorContextKey ctxKey = "actor"

// ActorFromContext returns the Actor AuthMiddleware resolved for this
// request, or nil if the route isn't behind AuthMiddleware.
func ActorFromContext(ctx context.Context) *model.Actor {
	actor, _ := ctx.Value(actorContextKey).(*model.Actor)
	return actor
}

func withActor(ctx context.Context, actor *model.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey, actor)
}

// RequestIDMiddleware stamps every request with a request id, reusing the
// caller's X-Request-Id when present, and echoes it back on the response —
// the same id a worker job later logs against, per the queue's job-id
// contract.
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := resilience.RequestID(r.Header.Get("X-Request-Id"))
		ctx := resilience.WithRequestID(r.Context(), id)
		w.Header().Set("X-Request-Id", id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RateLimitMiddleware rejects a request once its identifier's token bucket
// is empty. Rate limiting precedes auth, per the external-interfaces
// contract, so this wraps the outermost layer of the router below health
// endpoints.
func RateLimitMiddleware(limiter *resilience.RateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			allowed, retryAfter := limiter.Consume(clientIdentifier(r), time.Now())
			if !allowed {
				metrics.RateLimitRejections.Inc()
				w.Header().Set("Retry-After", strconv.Itoa(int(retryAfter)+1))
				writeProblem(w, r, apierrors.New(apierrors.CodeRateLimited, "rate limit exceeded"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientIdentifier(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return fwd
	}
	return r.RemoteAddr
}

const accessTokenCookie = "access_token"

// AuthMiddleware resolves the request's Actor from a bearer JWT, an
// X-API-Key header, or — the cookie fallback the external-interfaces
// contract allows — an access_token cookie promoted to a Bearer header
// before Authenticator ever sees it. A resolution failure is a hard 401;
// routes that accept anonymous callers (health, metrics) are simply not
// wrapped in this middleware.
func AuthMiddleware(authenticator *authn.Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Authorization") == "" {
				if cookie, err := r.Cookie(accessTokenCookie); err == nil && cookie.Value != "" {
					r.Header.Set("Authorization", "Bearer "+cookie.Value)
				}
			}
			actor, err := authenticator.Authenticate(r)
			if err != nil {
				writeProblem(w, r, apierrors.New(apierrors.CodeUnauthorized, "authentication required"))
				return
			}
			next.ServeHTTP(w, r.WithContext(withActor(r.Context(), actor)))
		})
	}
}

// BodyLimitMiddleware rejects a request whose declared Content-Length
// exceeds maxBytes with 413 before any handler runs. A body without a
// declared length is wrapped in http.MaxBytesReader, so a handler's read
// past maxBytes fails instead of buffering the overrun.
func BodyLimitMiddleware(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > maxBytes {
				writeProblem(w, r, apierrors.New(apierrors.CodePayloadTooLarge, "request body exceeds the configured size limit"))
				return
			}
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}
