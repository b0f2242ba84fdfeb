package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/media-locator/internal/domain"
	apperrors "github.com/spec-kit/media-locator/pkg/util"
)

// RequireAuthenticated ensures a principal is present.
func RequireAuthenticated() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, ok := PrincipalFromContext(c); !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		return c.Next()
	}
}

// RequireRole ensures the principal carries one of the allowed roles.
func RequireRole(allowed ...domain.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		for _, role := range allowed {
			if principal.Claims.HasRole(role) {
				return c.Next()
			}
		}
		return apperrors.NewForbidden("insufficient role")
	}
}

// RequireAdmin gates admin-only account operations.
func RequireAdmin() fiber.Handler {
	return RequireRole(domain.RoleAdmin)
}
