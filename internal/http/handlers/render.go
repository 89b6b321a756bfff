package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

func render(c *fiber.Ctx, tmpl string, data fiber.Map) error {
	if data == nil {
		data = fiber.Map{}
	}
	if u := c.Locals("user"); u != nil {
		data["User"] = u
	}
	// The CSRF middleware stores the token in Locals; the cookie carries the
	// same value when Locals was not populated.
	tok, _ := c.Locals("CSRFToken").(string)
	if tok == "" {
		tok = c.Cookies("csrf_")
	}
	data["CSRFToken"] = tok
	return c.Render(tmpl, data)
}

// wantsJSON tells API callers apart from browsers posting admin forms.
func wantsJSON(c *fiber.Ctx) bool {
	return strings.HasPrefix(c.Path(), "/api/") ||
		strings.Contains(c.Get(fiber.HeaderAccept), fiber.MIMEApplicationJSON) ||
		strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEApplicationJSON)
}

func jsonError(c *fiber.Ctx, status int, msg string) error {
	return c.Status(status).JSON(fiber.Map{"error": msg})
}

// fail answers with a JSON error or the friendly error page.
func fail(c *fiber.Ctx, status int, msg string) error {
	if wantsJSON(c) {
		return jsonError(c, status, msg)
	}
	return c.Status(status).Render("notfound", fiber.Map{"Message": msg})
}
