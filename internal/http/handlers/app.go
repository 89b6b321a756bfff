package handlers

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/csrf"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	html "github.com/gofiber/template/html/v2"

	applog "textilepro/internal/log"
)

const csrfHeader = "X-Csrf-Token"

type AppOptions struct {
	TemplatesDir string
	StaticDir    string
	// ReloadTemplates re-parses templates on every render (development).
	ReloadTemplates bool
	// RatePerMin is the global per-IP request budget.
	RatePerMin int
	// LoginMax bounds login attempts per IP over LoginWindow.
	LoginMax    int
	LoginWindow time.Duration
}

func (o *AppOptions) defaults() {
	if o.TemplatesDir == "" {
		o.TemplatesDir = "./web/templates"
	}
	if o.RatePerMin <= 0 {
		o.RatePerMin = 120
	}
	if o.LoginMax <= 0 {
		o.LoginMax = 5
	}
	if o.LoginWindow <= 0 {
		o.LoginWindow = 10 * time.Minute
	}
}

// NewApp builds the fiber application: middlewares first, then the
// storefront API, the admin surface and the fallbacks.
func NewApp(deps *Deps, o AppOptions) *fiber.App {
	o.defaults()

	engine := html.New(o.TemplatesDir, ".html")
	engine.Reload(o.ReloadTemplates)

	app := fiber.New(fiber.Config{
		Views:        engine,
		ErrorHandler: errorHandler,
	})
	// Global body size guard
	app.Server().MaxRequestBodySize = 1 << 20 // 1 MiB

	app.Use(requestid.New())
	app.Use(logger.New())
	app.Use(helmet.New())
	// Attach user to context if logged in (for templates/headers)
	app.Use(func(c *fiber.Ctx) error {
		if sid := c.Cookies("sid"); sid != "" {
			if u, err := deps.Auth.CurrentUser(sid); err == nil && u != nil {
				c.Locals("user", u)
				c.Locals("user_id", u.ID)
			}
		}
		return c.Next()
	})
	app.Use(limiter.New(limiter.Config{
		Max:        o.RatePerMin,
		Expiration: time.Minute,
		Next: func(c *fiber.Ctx) bool {
			p := c.Path()
			return strings.HasPrefix(p, "/static/") || p == "/healthz"
		},
		LimitReached: func(c *fiber.Ctx) error {
			applog.Security(c, "rate.global.hit", nil)
			return fail(c, fiber.StatusTooManyRequests, "Trop de requêtes, réessayez dans un instant.")
		},
	}))
	app.Use(csrf.New(csrf.Config{
		KeyLookup:      "form:csrf",
		CookieName:     "csrf_",
		CookieSameSite: "Lax",
		CookieSecure:   false, // set true behind HTTPS
		ContextKey:     "csrf",
		// JSON callers send the token in a header, forms in a field.
		Extractor: func(c *fiber.Ctx) (string, error) {
			if tok := c.Get(csrfHeader); tok != "" {
				return tok, nil
			}
			return csrf.CsrfFromForm("csrf")(c)
		},
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			applog.Security(c, "csrf.fail", map[string]any{"path": c.Path()})
			return fail(c, fiber.StatusForbidden, "Contrôle de sécurité échoué. Rechargez la page et réessayez.")
		},
	}))
	app.Use(func(c *fiber.Ctx) error {
		if tok, ok := c.Locals("csrf").(string); ok {
			c.Locals("CSRFToken", tok)
		}
		return c.Next()
	})

	if o.StaticDir != "" {
		app.Static("/static", o.StaticDir)
	}

	// ---------- Storefront API ----------
	api := app.Group("/api/v1")
	api.Get("/products", deps.CatalogHandler.Products)
	api.Get("/products/:sku", deps.CatalogHandler.Product)
	api.Get("/attributes", deps.CatalogHandler.Attributes)
	api.Get("/brands", deps.CatalogHandler.Brands)

	api.Get("/cart", deps.CartHandler.View)
	api.Post("/cart", deps.CartHandler.Add)
	api.Patch("/cart", deps.CartHandler.Update)
	api.Delete("/cart", deps.CartHandler.Clear)
	api.Delete("/cart/items", deps.CartHandler.Remove)

	api.Get("/quote-cart", deps.CartHandler.QuoteView)
	api.Post("/quote-cart", deps.CartHandler.QuoteAdd)
	api.Patch("/quote-cart", deps.CartHandler.QuoteUpdate)
	api.Delete("/quote-cart", deps.CartHandler.QuoteClear)
	api.Delete("/quote-cart/items", deps.CartHandler.QuoteRemove)

	api.Post("/quote-requests", limiter.New(limiter.Config{
		Max:        5,
		Expiration: 10 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP() + "|quote"
		},
		LimitReached: func(c *fiber.Ctx) error {
			applog.Security(c, "rate.quote.hit", nil)
			return jsonError(c, fiber.StatusTooManyRequests, "rate limit exceeded, retry later")
		},
	}), deps.QuoteHandler.Submit)

	// ---------- Auth (login throttled) ----------
	app.Get("/login", deps.AuthHandler.LoginForm)
	app.Post("/login", limiter.New(limiter.Config{
		Max:        o.LoginMax,
		Expiration: o.LoginWindow,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP() + "|login"
		},
		LimitReached: func(c *fiber.Ctx) error {
			applog.Security(c, "rate.login.hit", nil)
			return c.Status(fiber.StatusTooManyRequests).Render("login", fiber.Map{"Err": "Trop de tentatives. Réessayez plus tard."})
		},
	}), deps.AuthHandler.Login)
	app.Post("/logout", deps.AuthHandler.Logout)

	// ---------- Admin ----------
	admin := app.Group("/admin", RequireAdmin(deps.Auth))
	admin.Get("/sync", deps.SyncHandler.Page)
	admin.Get("/sync/status", deps.SyncHandler.Status)
	admin.Post("/sync/start", deps.SyncHandler.Start)
	admin.Post("/sync/force-restart", deps.SyncHandler.ForceRestart)

	// ---------- Health & 404 ----------
	app.Get("/healthz", func(c *fiber.Ctx) error { return c.JSON(fiber.Map{"ok": true}) })
	app.Use(func(c *fiber.Ctx) error {
		return fail(c, fiber.StatusNotFound, "Page introuvable")
	})
	return app
}

// errorHandler logs and answers with a friendly message, never the error
// itself.
func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}
	applog.Error(c, "server.error", err, map[string]any{"status": code})
	msg := "Une erreur est survenue. Veuillez réessayer."
	if wantsJSON(c) {
		return jsonError(c, code, msg)
	}
	if rerr := c.Status(code).Render("notfound", fiber.Map{"Message": msg}); rerr != nil {
		return c.Status(code).SendString(msg)
	}
	return nil
}
