package middleware

import (
	"fmt"

	"github.com/gofiber/fiber/v2"

	"github.com/sgpti/sgpti-api/internal/utils"
	"github.com/sgpti/sgpti-api/internal/workflow"
)

// RequireRole ensures that the authenticated user possesses one of the allowed roles.
func RequireRole(roles ...string) fiber.Handler {
	allowed := make(map[string]struct{}, len(roles))
	for _, role := range roles {
		if normalized := workflow.NormalizeRole(role); normalized != "" {
			allowed[normalized] = struct{}{}
		}
	}

	return func(c *fiber.Ctx) error {
		if c.Locals(LocalUserID) == nil {
			return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
		}
		role := normalizeRoleValue(c.Locals(LocalUserRole))
		if _, ok := allowed[role]; !ok {
			return utils.SendError(c, fiber.StatusForbidden, "insufficient permissions")
		}
		return c.Next()
	}
}

func normalizeRoleValue(value interface{}) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return workflow.NormalizeRole(v)
	case fmt.Stringer:
		return workflow.NormalizeRole(v.String())
	default:
		return workflow.NormalizeRole(fmt.Sprintf("%v", value))
	}
}
