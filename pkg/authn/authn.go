// Package authn resolves an inbound request to an Actor through either of
// two credential paths, grounded on dual_auth.py's unified Principal: a
// JWT bearer token (interactive users) or a static API key (service
// callers). JWT wins when both are present. API keys are compared in
// constant time and only ever logged as a truncated SHA-256 hash, mirroring
// _constant_time_compare/_hash_key in identity/auth.py.
package authn

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/SaintWyss/rag-corp-sub001/pkg/model"
)

const apiKeyHashLen = 12

var ErrNoCredentials = errors.New("authn: no credentials presented")

// APIKeyEntry is one configured service credential and the role it grants.
type APIKeyEntry struct {
	Key  string
	Role model.Role
}

type Authenticator struct {
	jwtSecret []byte
	apiKeys   map[string]APIKeyEntry
}

func NewAuthenticator(jwtSecret []byte, apiKeys []APIKeyEntry) *Authenticator {
	byKey := make(map[string]APIKeyEntry, len(apiKeys))
	for _, k := range apiKeys {
		byKey[k.Key] = k
	}
	return &Authenticator{jwtSecret: jwtSecret, apiKeys: byKey}
}

type claims struct {
	jwt.RegisteredClaims
	Role string `json:"role"`
}

// Authenticate resolves the request's Authorization/X-API-Key headers into
// an Actor. JWT is tried first; a present-but-invalid JWT is a hard
// failure rather than a fallthrough to the API key path, since a caller
// presenting a bearer token meant to authenticate as that user.
func (a *Authenticator) Authenticate(r *http.Request) (*model.Actor, error) {
	if token := extractBearerToken(r); token != "" {
		return a.authenticateJWT(token)
	}
	if apiKey := strings.TrimSpace(r.Header.Get("X-API-Key")); apiKey != "" {
		return a.authenticateAPIKey(apiKey)
	}
	return nil, ErrNoCredentials
}

func extractBearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if strings.HasPrefix(header, prefix) {
		return strings.TrimSpace(header[len(prefix):])
	}
	return ""
}

func (a *Authenticator) authenticateJWT(tokenString string) (*model.Actor, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("authn: unexpected signing method %v", t.Method)
		}
		return a.jwtSecret, nil
	})
	if err != nil || !parsed.Valid {
		return nil, fmt.Errorf("authn: invalid token: %w", err)
	}
	c, ok := parsed.Claims.(*claims)
	if !ok {
		return nil, fmt.Errorf("authn: unexpected claims type")
	}
	return &model.Actor{
		UserID: c.Subject,
		Role:   model.Role(c.Role),
	}, nil
}

func (a *Authenticator) authenticateAPIKey(apiKey string) (*model.Actor, error) {
	for configured, entry := range a.apiKeys {
		if constantTimeEqual(apiKey, configured) {
			return &model.Actor{UserID: "service:" + hashKey(apiKey), Role: entry.Role}, nil
		}
	}
	return nil, fmt.Errorf("authn: unrecognized api key (hash %s)", hashKey(apiKey))
}

func constantTimeEqual(a, b string) bool {
	return hmac.Equal([]byte(a), []byte(b))
}

// hashKey never appears in a log line with the raw key, only this
// truncated digest, matching _hash_key's logging-safe fingerprint.
func hashKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])[:apiKeyHashLen]
}
