package handlers

import (
	"errors"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	html "github.com/gofiber/template/html/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorHandlerHidesInternals(t *testing.T) {
	app := fiber.New(fiber.Config{
		Views:        html.New("../../../web/templates", ".html"),
		ErrorHandler: errorHandler,
	})
	app.Get("/err", func(c *fiber.Ctx) error {
		return fiber.NewError(fiber.StatusInternalServerError, "db timeout: secret trace")
	})
	app.Get("/api/v1/err", func(c *fiber.Ctx) error {
		return errors.New("db timeout: secret trace")
	})
	app.Get("/gone", func(c *fiber.Ctx) error {
		return fiber.ErrGone
	})

	cases := []struct {
		path   string
		status int
		json   bool
	}{
		{"/err", fiber.StatusInternalServerError, false},
		{"/api/v1/err", fiber.StatusInternalServerError, true},
		{"/gone", fiber.StatusGone, false},
	}
	for _, tc := range cases {
		resp, err := app.Test(httptest.NewRequest("GET", tc.path, nil))
		require.NoError(t, err)
		assert.Equal(t, tc.status, resp.StatusCode, tc.path)
		b, _ := io.ReadAll(resp.Body)
		s := string(b)
		assert.Contains(t, s, "Une erreur est survenue", tc.path)
		assert.NotContains(t, s, "secret", tc.path)
		if tc.json {
			assert.Contains(t, resp.Header.Get("Content-Type"), "application/json")
		}
	}
}

func TestWantsJSON(t *testing.T) {
	app := fiber.New()
	var got []bool
	app.Post("/*", func(c *fiber.Ctx) error {
		got = append(got, wantsJSON(c))
		return nil
	})

	req := httptest.NewRequest("POST", "/admin/sync/start", nil)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	_, _ = app.Test(req)

	req = httptest.NewRequest("POST", "/admin/sync/start", nil)
	req.Header.Set("Accept", "application/json")
	_, _ = app.Test(req)

	_, _ = app.Test(httptest.NewRequest("POST", "/api/v1/cart", nil))

	assert.Equal(t, []bool{false, true, true}, got)
}
