package handlers_test

import (
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"textilepro/internal/http/handlers"
)

func TestSeededAdminPasswordIsHashed(t *testing.T) {
	_, db := newTestApp(t, handlers.Backends{}, handlers.AppOptions{})

	var hashes []string
	require.NoError(t, db.Select(&hashes, `SELECT password_hash FROM users`))
	require.Len(t, hashes, 1)
	assert.NotContains(t, hashes[0], adminPassword)
	assert.True(t, strings.HasPrefix(hashes[0], "$2"))
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hashes[0]), []byte(adminPassword)))
}

func TestLoginSuccessFailAndThrottle(t *testing.T) {
	app, _ := newTestApp(t, handlers.Backends{}, handlers.AppOptions{LoginMax: 2, LoginWindow: time.Minute})
	c := newClient(t, app)

	resp := c.get("/login")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotEmpty(t, c.cookies["csrf_"], "csrf token missing")

	var entries []logEntry
	entries = captureLogs(t, func() {
		resp = c.form("/login", url.Values{"email": {adminEmail}, "password": {"Wrongpass1!"}})
	})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	e, ok := findAction(entries, "auth.login.fail")
	require.True(t, ok)
	assert.Equal(t, adminEmail, e.Fields["email"])

	entries = captureLogs(t, func() {
		resp = c.form("/login", url.Values{"email": {adminEmail}, "password": {adminPassword}})
	})
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/admin/sync", resp.Header.Get("Location"))
	_, ok = findAction(entries, "auth.login.success")
	assert.True(t, ok)

	resp = c.form("/login", url.Values{"email": {adminEmail}, "password": {adminPassword}})
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
}

func TestLoginWithoutCSRFTokenIsRejected(t *testing.T) {
	app, _ := newTestApp(t, handlers.Backends{}, handlers.AppOptions{})
	c := newClient(t, app)

	entries := captureLogs(t, func() {
		resp := c.form("/login", url.Values{"email": {adminEmail}, "password": {adminPassword}})
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})
	_, ok := findAction(entries, "csrf.fail")
	assert.True(t, ok)
	assert.Empty(t, c.cookies["sid"])
}

func TestLogoutEndsAdminSession(t *testing.T) {
	app, _ := newTestApp(t, handlers.Backends{Sync: &fakeSync{}}, handlers.AppOptions{})
	c := newClient(t, app)
	c.loginAdmin()
	sid := c.cookies["sid"]

	require.Equal(t, http.StatusOK, c.json(http.MethodGet, "/admin/sync/status", nil).StatusCode)

	resp := c.form("/logout", url.Values{})
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Empty(t, c.cookies["sid"])

	c.cookies["sid"] = sid
	assert.Equal(t, http.StatusForbidden, c.json(http.MethodGet, "/admin/sync/status", nil).StatusCode)
}
