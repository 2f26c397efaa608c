package auth

import (
	"github.com/gofiber/fiber/v2"

	apperrors "github.com/spec-kit/blog-api/pkg/util/errorutil"
)

// RequireAuthority ensures the principal holds at least one of the allowed authorities.
func RequireAuthority(allowed ...string) fiber.Handler {
	allowedSet := make(map[string]struct{}, len(allowed))
	for _, a := range allowed {
		allowedSet[a] = struct{}{}
	}

	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return apperrors.NewUnauthenticated("authentication required")
		}
		if len(allowedSet) == 0 {
			return c.Next()
		}
		for _, a := range principal.Authorities {
			if _, exists := allowedSet[a]; exists {
				return c.Next()
			}
		}
		return apperrors.NewForbidden("insufficient authority")
	}
}

// RequireAuthenticated ensures a principal was attached by the gate.
func RequireAuthenticated() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, ok := PrincipalFromContext(c); !ok {
			return apperrors.NewUnauthenticated("authentication required")
		}
		return c.Next()
	}
}
