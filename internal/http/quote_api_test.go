package handlers_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"textilepro/internal/http/handlers"
	"textilepro/internal/mail"
)

type recordingMailer struct {
	sent []mail.QuoteRequest
	err  error
}

func (m *recordingMailer) SendQuoteRequest(_ context.Context, q mail.QuoteRequest) error {
	m.sent = append(m.sent, q)
	return m.err
}

func TestQuoteRequestSendsQuoteCart(t *testing.T) {
	m := &recordingMailer{}
	app, _ := newTestApp(t, handlers.Backends{Mailer: m}, handlers.AppOptions{})
	c := newClient(t, app)
	c.get("/api/v1/quote-cart")
	c.json(http.MethodPost, "/api/v1/quote-cart", map[string]any{"sku": "K623", "color": "Navy", "size": "M", "quantity": 30})

	var resp *http.Response
	entries := captureLogs(t, func() {
		resp = c.json(http.MethodPost, "/api/v1/quote-requests", map[string]any{
			"nom": "Camille Martin", "email": "camille@example.fr", "telephone": "06 12 34 56 78",
			"message": "Broderie poitrine", "page": "/devis",
		})
	})
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	_, ok := findAction(entries, "quote.request.accepted")
	assert.True(t, ok)

	require.Len(t, m.sent, 1)
	assert.Equal(t, "Camille Martin", m.sent[0].Nom)
	require.Len(t, m.sent[0].Items, 1)
	assert.Equal(t, 30, m.sent[0].Items[0].Quantity)
	assert.Zero(t, decode[quoteCartResponse](t, c.json(http.MethodGet, "/api/v1/quote-cart", nil)).Count)
}

func TestQuoteRequestValidation(t *testing.T) {
	m := &recordingMailer{}
	app, _ := newTestApp(t, handlers.Backends{Mailer: m}, handlers.AppOptions{})
	c := newClient(t, app)
	c.get("/api/v1/quote-cart")

	cases := []map[string]any{
		{"nom": "", "email": "camille@example.fr"},
		{"nom": "Camille", "email": "camille@"},
		{"nom": "Camille", "email": "camille@example.fr", "telephone": "appelez-moi"},
		{"nom": "Camille", "email": "camille@example.fr", "product_ref": "K6 23;"},
	}
	for _, in := range cases {
		assert.Equal(t, http.StatusBadRequest, c.json(http.MethodPost, "/api/v1/quote-requests", in).StatusCode, "%v", in)
	}
	assert.Empty(t, m.sent)
}

func TestQuoteRelayFailures(t *testing.T) {
	m := &recordingMailer{err: &mail.SendError{StatusCode: 500, Message: "boom"}}
	app, _ := newTestApp(t, handlers.Backends{Mailer: m}, handlers.AppOptions{})
	c := newClient(t, app)
	c.get("/api/v1/quote-cart")
	c.json(http.MethodPost, "/api/v1/quote-cart", map[string]any{"sku": "K623", "quantity": 30})

	req := map[string]any{"nom": "Camille", "email": "camille@example.fr"}
	assert.Equal(t, http.StatusBadGateway, c.json(http.MethodPost, "/api/v1/quote-requests", req).StatusCode)
	assert.Equal(t, 30, decode[quoteCartResponse](t, c.json(http.MethodGet, "/api/v1/quote-cart", nil)).Count)

	m.err = mail.ErrNotConfigured
	assert.Equal(t, http.StatusServiceUnavailable, c.json(http.MethodPost, "/api/v1/quote-requests", req).StatusCode)
}

func TestQuoteRequestsWithoutMailer(t *testing.T) {
	app, _ := newTestApp(t, handlers.Backends{}, handlers.AppOptions{})
	c := newClient(t, app)
	c.get("/api/v1/quote-cart")
	resp := c.json(http.MethodPost, "/api/v1/quote-requests", map[string]any{"nom": "Camille", "email": "camille@example.fr"})
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}
