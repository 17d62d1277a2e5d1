package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nocturna-project/nocturna/internal/api/middleware"
	"github.com/nocturna-project/nocturna/internal/auth"
)

func newJWTService() *auth.JWTService {
	return auth.NewJWTService(auth.JWTConfig{
		SigningKey: "middleware-test-key",
		Issuer:     "https://api.nocturna.test",
		Audience:   "nocturna-api",
	})
}

func protectedHandler(t *testing.T) http.Handler {
	t.Helper()
	return middleware.AdminAuth(newJWTService())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NotEmpty(t, middleware.GetOperator(r.Context()))
		w.WriteHeader(http.StatusOK)
	}))
}

func TestAdminAuth_MissingHeader(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/admin", nil)
	w := httptest.NewRecorder()

	protectedHandler(t).ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "application/problem+json", w.Header().Get("Content-Type"))
}

func TestAdminAuth_MalformedHeader(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/admin", nil)
	req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
	w := httptest.NewRecorder()

	protectedHandler(t).ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAdminAuth_InvalidToken(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/admin", nil)
	req.Header.Set("Authorization", "Bearer not.a.token")
	w := httptest.NewRecorder()

	protectedHandler(t).ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAdminAuth_NonAdminRole(t *testing.T) {
	token, _, err := newJWTService().GenerateOperatorToken("viewer@nocturna.test", "viewer")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()

	protectedHandler(t).ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestAdminAuth_ValidAdminToken(t *testing.T) {
	token, _, err := newJWTService().GenerateOperatorToken("ops@nocturna.test", auth.RoleAdmin)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()

	protectedHandler(t).ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}
