package auth_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nocturna-project/nocturna/internal/auth"
)

func newTestService() *auth.JWTService {
	return auth.NewJWTService(auth.JWTConfig{
		SigningKey: "test-signing-key",
		Issuer:     "https://api.nocturna.test",
		Audience:   "nocturna-api",
	})
}

func TestJWTService_GenerateAndValidate(t *testing.T) {
	svc := newTestService()

	token, expiresAt, err := svc.GenerateOperatorToken("ops@nocturna.test", auth.RoleAdmin)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	assert.WithinDuration(t, time.Now().Add(auth.OperatorTokenExpiry), expiresAt, time.Minute)

	claims, err := svc.ValidateOperatorToken(token)
	require.NoError(t, err)
	assert.Equal(t, "ops@nocturna.test", claims.Subject)
	assert.Equal(t, auth.RoleAdmin, claims.Role)
}

func TestJWTService_RejectsWrongKey(t *testing.T) {
	svc := newTestService()

	other := auth.NewJWTService(auth.JWTConfig{
		SigningKey: "a-different-key",
		Issuer:     "https://api.nocturna.test",
		Audience:   "nocturna-api",
	})

	token, _, err := other.GenerateOperatorToken("ops@nocturna.test", auth.RoleAdmin)
	require.NoError(t, err)

	_, err = svc.ValidateOperatorToken(token)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestJWTService_RejectsWrongAudience(t *testing.T) {
	svc := newTestService()

	other := auth.NewJWTService(auth.JWTConfig{
		SigningKey: "test-signing-key",
		Issuer:     "https://api.nocturna.test",
		Audience:   "some-other-service",
	})

	token, _, err := other.GenerateOperatorToken("ops@nocturna.test", auth.RoleAdmin)
	require.NoError(t, err)

	_, err = svc.ValidateOperatorToken(token)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestJWTService_RejectsExpiredToken(t *testing.T) {
	svc := newTestService()

	// Sign a token with the right key but an expiry in the past.
	claims := auth.OperatorClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "https://api.nocturna.test",
			Subject:   "ops@nocturna.test",
			Audience:  jwt.ClaimStrings{"nocturna-api"},
			IssuedAt:  jwt.NewNumericDate(time.Now().Add(-2 * time.Hour)),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
		Role: auth.RoleAdmin,
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-signing-key"))
	require.NoError(t, err)

	_, err = svc.ValidateOperatorToken(token)
	assert.ErrorIs(t, err, auth.ErrTokenExpired)
}

func TestJWTService_RejectsGarbage(t *testing.T) {
	svc := newTestService()

	_, err := svc.ValidateOperatorToken("not.a.token")
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestJWTService_RequireAdmin(t *testing.T) {
	svc := newTestService()

	adminToken, _, err := svc.GenerateOperatorToken("ops@nocturna.test", auth.RoleAdmin)
	require.NoError(t, err)

	claims, err := svc.RequireAdmin(adminToken)
	require.NoError(t, err)
	assert.Equal(t, auth.RoleAdmin, claims.Role)

	readerToken, _, err := svc.GenerateOperatorToken("viewer@nocturna.test", "viewer")
	require.NoError(t, err)

	_, err = svc.RequireAdmin(readerToken)
	assert.ErrorIs(t, err, auth.ErrRoleForbidden)
}
