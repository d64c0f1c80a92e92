package resilience

import (
	"context"

	"github.com/google/uuid"
)

type contextKey string

const requestIDKey contextKey = "request_id"

const maxInboundRequestIDLen = 128

// RequestID resolves the request id for an inbound call: the caller-
// supplied X-Request-Id when present and ≤128 chars, else a fresh UUIDv4.
func RequestID(inbound string) string {
	if inbound != "" && len(inbound) <= maxInboundRequestIDLen {
		return inbound
	}
	return uuid.NewString()
}

func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

func RequestIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(requestIDKey).(string); ok {
		return v
	}
	return ""
}

// NormalizeEndpointLabel returns pattern unchanged. It does not collapse
// path parameters itself: a raw path such as "/v1/workspaces/42/ask" comes
// back as-is, while a chi route pattern such as "/v1/workspaces/{ws}/ask"
// is already in collapsed form.
func NormalizeEndpointLabel(pattern string) string {
	return pattern
}
