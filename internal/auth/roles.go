package auth

import (
	"github.com/gofiber/fiber/v2"

	apperrors "github.com/spec-kit/aftersales-service/pkg/util/errorutil"
)

// Capabilities checked at the route level.
const (
	PermissionArbitrate = "after_sales:arbitrate"
	PermissionReconcile = "finance:reconcile"
	PermissionCostClose = "after_sales:close_cost"
)

// RequirePermission ensures the session carries perm (or the wildcard).
func RequirePermission(perm string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		session, ok := SessionFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized("login required")
		}
		if !session.HasPermission(perm) {
			return apperrors.NewForbidden("missing permission " + perm)
		}
		return c.Next()
	}
}

// RequireSession ensures a caller is authenticated.
func RequireSession() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, ok := SessionFromContext(c); !ok {
			return apperrors.NewUnauthorized("login required")
		}
		return c.Next()
	}
}
