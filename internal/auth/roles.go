package auth

import (
	"github.com/gofiber/fiber/v2"

	apperrors "github.com/spec-kit/case-service/pkg/util/errorutil"
)

// Role is the access level of an API client.
type Role string

const (
	RoleViewer Role = "viewer"
	RoleAgent  Role = "agent"
	RoleAdmin  Role = "admin"
)

func (r Role) rank() int {
	switch r {
	case RoleViewer:
		return 1
	case RoleAgent:
		return 2
	case RoleAdmin:
		return 3
	}
	return 0
}

// Valid reports whether r is a known role.
func (r Role) Valid() bool { return r.rank() > 0 }

// Allows reports whether r grants at least min.
func (r Role) Allows(min Role) bool {
	return r.Valid() && r.rank() >= min.rank()
}

// RequireRole ensures the principal holds min or a higher role.
func RequireRole(min Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		if !principal.Role.Allows(min) {
			return apperrors.NewForbidden("insufficient role")
		}
		return c.Next()
	}
}
