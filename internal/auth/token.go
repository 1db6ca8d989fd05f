package auth

import (
	"errors"

	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/spec-kit/aftersales-service/internal/domain"
)

// TokenManager validates bearer tokens issued by the identity service.
type TokenManager struct {
	secret []byte
	issuer string
}

// NewTokenManager builds a new manager. An empty issuer accepts any issuer.
func NewTokenManager(secret, issuer string) *TokenManager {
	return &TokenManager{secret: []byte(secret), issuer: issuer}
}

// Claims describes the JWT payload.
type Claims struct {
	TenantID    string   `json:"tenant_id"`
	Permissions []string `json:"permissions,omitempty"`
	jwt.RegisteredClaims
}

// Session converts the claims into the caller identity used by services.
func (c *Claims) Session() *domain.Session {
	perms := make([]string, len(c.Permissions))
	copy(perms, c.Permissions)
	return &domain.Session{UserID: c.Subject, TenantID: c.TenantID, Permissions: perms}
}

// ParseToken validates and returns claims.
func (tm *TokenManager) ParseToken(tokenStr string) (*Claims, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if tm.issuer != "" {
		opts = append(opts, jwt.WithIssuer(tm.issuer))
	}
	parsed, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return tm.secret, nil
	}, opts...)
	if err != nil {
		return nil, err
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, errors.New("invalid token claims")
	}
	if claims.Subject == "" || claims.TenantID == "" {
		return nil, errors.New("token is missing subject or tenant")
	}
	return claims, nil
}
