package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/marketplace-access/pkg/util/errorutil"
)

// RequireAuthenticated ensures a principal is present.
func RequireAuthenticated() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, ok := PrincipalFromContext(c); !ok {
			return errorutil.NewAuthentication("authentication required")
		}
		return c.Next()
	}
}

// RequireStaff ensures the principal carries a staff role.
func RequireStaff() fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return errorutil.NewAuthentication("authentication required")
		}
		if !principal.Account.Role.IsStaff() {
			return errorutil.NewAuthorization("staff role required")
		}
		return c.Next()
	}
}
