package handlers_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"textilepro/internal/http/handlers"
)

func TestNotFoundAnswersJSONOnAPI(t *testing.T) {
	app, _ := newTestApp(t, handlers.Backends{}, handlers.AppOptions{})
	c := newClient(t, app)

	resp := c.get("/api/v1/nope")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, map[string]string{"error": "Page introuvable"}, decode[map[string]string](t, resp))
}

func TestHealthz(t *testing.T) {
	app, _ := newTestApp(t, handlers.Backends{}, handlers.AppOptions{})
	resp := newClient(t, app).get("/healthz")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, map[string]bool{"ok": true}, decode[map[string]bool](t, resp))
}
