// Package auth issues and validates operator tokens for the admin endpoints.
package auth

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token expiry constants.
const (
	// OperatorTokenExpiry is how long operator tokens are valid. Admin
	// tokens are issued out of band (deploy tooling, on-call runbooks) so
	// a short lifetime keeps a leaked token from lingering.
	OperatorTokenExpiry = 12 * time.Hour
)

// Operator roles carried in the token.
const (
	RoleAdmin = "admin"
)

// Predefined token errors.
var (
	ErrInvalidToken  = errors.New("invalid operator token")
	ErrTokenExpired  = errors.New("operator token has expired")
	ErrRoleForbidden = errors.New("token role not permitted")
)

// OperatorClaims represents the claims in operator tokens.
type OperatorClaims struct {
	jwt.RegisteredClaims

	// Role is the operator's role (currently only "admin").
	Role string `json:"role"`
}

// JWTService handles operator token creation and validation.
type JWTService struct {
	signingKey []byte
	issuer     string
	audience   string
}

// JWTConfig holds configuration for the JWT service.
type JWTConfig struct {
	// SigningKey is the secret key used to sign tokens.
	SigningKey string

	// Issuer is the issuer claim for tokens (e.g., "https://api.nocturna.dev").
	Issuer string

	// Audience is the audience claim for tokens (e.g., "nocturna-api").
	Audience string
}

// NewJWTService creates a new JWT service.
func NewJWTService(cfg JWTConfig) *JWTService {
	issuer := cfg.Issuer
	if issuer == "" {
		issuer = "https://api.nocturna.dev"
	}
	audience := cfg.Audience
	if audience == "" {
		audience = "nocturna-api"
	}
	return &JWTService{
		signingKey: []byte(cfg.SigningKey),
		issuer:     issuer,
		audience:   audience,
	}
}

// GenerateOperatorToken creates a signed token for the given operator subject.
func (s *JWTService) GenerateOperatorToken(subject, role string) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(OperatorTokenExpiry)

	claims := OperatorClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   subject,
			Audience:  jwt.ClaimStrings{s.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			NotBefore: jwt.NewNumericDate(now),
			ID:        generateTokenID(),
		},
		Role: role,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.signingKey)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("signing operator token: %w", err)
	}

	return tokenString, expiresAt, nil
}

// ValidateOperatorToken validates a token and returns its claims.
func (s *JWTService) ValidateOperatorToken(tokenString string) (*OperatorClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &OperatorClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.signingKey, nil
	}, jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(s.issuer),
		jwt.WithAudience(s.audience),
		jwt.WithExpirationRequired(),
	)

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %s", ErrInvalidToken, err.Error())
	}

	claims, ok := token.Claims.(*OperatorClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

// RequireAdmin validates a token and checks that it carries the admin role.
func (s *JWTService) RequireAdmin(tokenString string) (*OperatorClaims, error) {
	claims, err := s.ValidateOperatorToken(tokenString)
	if err != nil {
		return nil, err
	}
	if claims.Role != RoleAdmin {
		return nil, ErrRoleForbidden
	}
	return claims, nil
}

// generateTokenID generates a unique token ID.
func generateTokenID() string {
	bytes := make([]byte, 16)
	if _, err := rand.Read(bytes); err != nil {
		return ""
	}
	return base64.RawURLEncoding.EncodeToString(bytes)
}
