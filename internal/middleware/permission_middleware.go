package middleware

import (
	"context"

	"github.com/NCGHoldings/StoresONE-sub000/pkg/utils"

	"github.com/gofiber/fiber/v2"
)

// RoleService is the slice of the role feature the middleware needs.
type RoleService interface {
	CheckPermission(ctx context.Context, roleNames []string, resource string, action string) (bool, error)
}

// PermissionMiddleware checks if the user holds a role granting
// resource/action, based on the roles carried in the JWT claims.
func PermissionMiddleware(roleService RoleService, resource string, action string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, ok := c.Locals(utils.UserClaimsKey).(*utils.UserClaims)
		if !ok || claims == nil {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "Access denied: No roles assigned",
			})
		}

		hasPermission, err := roleService.CheckPermission(c.UserContext(), claims.Roles, resource, action)
		if err != nil || !hasPermission {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "Access denied: Insufficient permissions for this action",
			})
		}

		return c.Next()
	}
}

// RequirePermission is a helper to create permission middleware
func RequirePermission(roleService RoleService, resource string, action string) fiber.Handler {
	return PermissionMiddleware(roleService, resource, action)
}
