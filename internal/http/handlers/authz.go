package handlers

import (
	applog "textilepro/internal/log"
	"textilepro/internal/services"

	"github.com/gofiber/fiber/v2"
)

// RequireAdmin guards the back office. Browsers are sent to the login page,
// API callers get 401/403.
func RequireAdmin(auth *services.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sid := c.Cookies("sid")
		if sid == "" {
			if wantsJSON(c) {
				return jsonError(c, fiber.StatusUnauthorized, "authentication required")
			}
			return c.Redirect("/login")
		}
		u, err := auth.CurrentUser(sid)
		if err != nil || !u.IsAdmin() {
			applog.Security(c, "access.denied.admin", map[string]any{"sid": sid})
			return fail(c, fiber.StatusForbidden, "Accès refusé")
		}
		c.Locals("user", u)
		return c.Next()
	}
}
