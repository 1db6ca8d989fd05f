package auth

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/spec-kit/aftersales-service/pkg/util/errorutil"
)

const testSecret = "test-secret"

func signToken(t *testing.T, secret string, claims Claims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &claims)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func validClaims() Claims {
	return Claims{
		TenantID:    "tenant-a",
		Permissions: []string{PermissionArbitrate},
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			Issuer:    "identity",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
}

func TestParseToken(t *testing.T) {
	tm := NewTokenManager(testSecret, "identity")

	claims, err := tm.ParseToken(signToken(t, testSecret, validClaims()))
	require.NoError(t, err)
	session := claims.Session()
	assert.Equal(t, "user-1", session.UserID)
	assert.Equal(t, "tenant-a", session.TenantID)
	assert.True(t, session.HasPermission(PermissionArbitrate))
	assert.False(t, session.HasPermission(PermissionReconcile))
}

func TestParseTokenRejects(t *testing.T) {
	tm := NewTokenManager(testSecret, "identity")

	expired := validClaims()
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))
	wrongIssuer := validClaims()
	wrongIssuer.Issuer = "elsewhere"
	noTenant := validClaims()
	noTenant.TenantID = ""

	cases := map[string]string{
		"wrong secret": signToken(t, "other", validClaims()),
		"expired":      signToken(t, testSecret, expired),
		"wrong issuer": signToken(t, testSecret, wrongIssuer),
		"no tenant":    signToken(t, testSecret, noTenant),
		"garbage":      "not-a-token",
	}
	for name, token := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := tm.ParseToken(token)
			assert.Error(t, err)
		})
	}
}

func newTestApp(tm *TokenManager) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			domainErr := apperrors.ToDomainError(err)
			return c.Status(domainErr.HTTPStatus).SendString(domainErr.Code)
		},
	})
	mw := NewAuthMiddleware(tm)
	app.Get("/me", mw.Handle, func(c *fiber.Ctx) error {
		session, _ := SessionFromContext(c)
		return c.SendString(session.TenantID + "/" + session.UserID)
	})
	app.Post("/reconcile", mw.Handle, RequirePermission(PermissionReconcile), func(c *fiber.Ctx) error {
		return c.SendStatus(http.StatusNoContent)
	})
	return app
}

func TestMiddleware(t *testing.T) {
	tm := NewTokenManager(testSecret, "")
	app := newTestApp(tm)
	token := signToken(t, testSecret, validClaims())

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := app.Test(req)
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "tenant-a/user-1", string(body))

	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	req = httptest.NewRequest(http.MethodPost, "/reconcile", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err = app.Test(req)
	require.NoError(t, err)
	body, _ = io.ReadAll(resp.Body)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, apperrors.CodeForbidden, string(body))
}
