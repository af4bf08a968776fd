package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func signToken(t *testing.T, claims jwt.MapClaims, secret string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func identityProbe(t *testing.T, authHeader string) string {
	t.Helper()

	var captured string
	handler := Identity(testSecret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = UserIDFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, "identity middleware must never reject")
	return captured
}

func TestIdentityAttachesUserID(t *testing.T) {
	token := signToken(t, jwt.MapClaims{
		"user_id": "u1",
		"exp":     time.Now().Add(time.Hour).Unix(),
	}, testSecret)

	assert.Equal(t, "u1", identityProbe(t, "Bearer "+token))
}

func TestIdentityFallsBackToSubject(t *testing.T) {
	token := signToken(t, jwt.MapClaims{
		"sub": "u2",
		"exp": time.Now().Add(time.Hour).Unix(),
	}, testSecret)

	assert.Equal(t, "u2", identityProbe(t, "Bearer "+token))
}

func TestIdentityAnonymousWithoutToken(t *testing.T) {
	assert.Empty(t, identityProbe(t, ""))
}

func TestIdentityIgnoresInvalidToken(t *testing.T) {
	assert.Empty(t, identityProbe(t, "Bearer not.a.token"))
}

func TestIdentityIgnoresWrongSignature(t *testing.T) {
	token := signToken(t, jwt.MapClaims{
		"user_id": "u1",
		"exp":     time.Now().Add(time.Hour).Unix(),
	}, "other-secret")

	assert.Empty(t, identityProbe(t, "Bearer "+token))
}

func TestIdentityIgnoresExpiredToken(t *testing.T) {
	token := signToken(t, jwt.MapClaims{
		"user_id": "u1",
		"exp":     time.Now().Add(-time.Hour).Unix(),
	}, testSecret)

	assert.Empty(t, identityProbe(t, "Bearer "+token))
}
