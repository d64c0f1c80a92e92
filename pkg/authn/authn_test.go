package authn

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SaintWyss/rag-corp-sub001/pkg/model"
)

const testSecret = "unit-test-secret"

func signToken(t *testing.T, secret []byte, subject, role string, expiresIn time.Duration) string {
	t.Helper()
	c := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiresIn)),
		},
		Role: role,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(secret)
	require.NoError(t, err)
	return signed
}

func TestAuthenticate_JWTSucceeds(t *testing.T) {
	a := NewAuthenticator([]byte(testSecret), nil)
	token := signToken(t, []byte(testSecret), "user-1", string(model.RoleAdmin), time.Hour)

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Bearer "+token)

	actor, err := a.Authenticate(r)
	require.NoError(t, err)
	assert.Equal(t, "user-1", actor.UserID)
	assert.Equal(t, model.RoleAdmin, actor.Role)
}

func TestAuthenticate_JWTExpiredFails(t *testing.T) {
	a := NewAuthenticator([]byte(testSecret), nil)
	token := signToken(t, []byte(testSecret), "user-1", string(model.RoleAdmin), -time.Hour)

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Bearer "+token)

	_, err := a.Authenticate(r)
	assert.Error(t, err)
}

func TestAuthenticate_JWTWrongSecretFails(t *testing.T) {
	a := NewAuthenticator([]byte(testSecret), nil)
	token := signToken(t, []byte("a-different-secret"), "user-1", string(model.RoleAdmin), time.Hour)

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Bearer "+token)

	_, err := a.Authenticate(r)
	assert.Error(t, err)
}

func TestAuthenticate_APIKeySucceeds(t *testing.T) {
	a := NewAuthenticator([]byte(testSecret), []APIKeyEntry{
		{Key: "svc-key-123", Role: model.RoleEmployee},
	})

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("X-API-Key", "svc-key-123")

	actor, err := a.Authenticate(r)
	require.NoError(t, err)
	assert.Equal(t, model.RoleEmployee, actor.Role)
	assert.Regexp(t, `^service:[0-9a-f]{12}$`, actor.UserID)
}

func TestAuthenticate_APIKeyUnrecognizedFails(t *testing.T) {
	a := NewAuthenticator([]byte(testSecret), []APIKeyEntry{
		{Key: "svc-key-123", Role: model.RoleEmployee},
	})

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("X-API-Key", "wrong-key")

	_, err := a.Authenticate(r)
	assert.Error(t, err)
}

func TestAuthenticate_JWTTakesPrecedenceOverAPIKey(t *testing.T) {
	a := NewAuthenticator([]byte(testSecret), []APIKeyEntry{
		{Key: "svc-key-123", Role: model.RoleEmployee},
	})
	token := signToken(t, []byte(testSecret), "user-1", string(model.RoleAdmin), time.Hour)

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Bearer "+token)
	r.Header.Set("X-API-Key", "svc-key-123")

	actor, err := a.Authenticate(r)
	require.NoError(t, err)
	assert.Equal(t, "user-1", actor.UserID)
}

func TestAuthenticate_NoCredentials(t *testing.T) {
	a := NewAuthenticator([]byte(testSecret), nil)
	r := httptest.NewRequest(http.MethodGet, "/", nil)

	_, err := a.Authenticate(r)
	assert.ErrorIs(t, err, ErrNoCredentials)
}

func TestHashKey_IsStableAndTruncated(t *testing.T) {
	h1 := hashKey("some-api-key")
	h2 := hashKey("some-api-key")
	assert.Equal(t, h1, h2)
	assert.Len(t, h1, apiKeyHashLen)
	assert.NotEqual(t, "some-api-key", h1)
}
