// Package mail relays quote requests through a transactional e-mail API.
package mail

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"textilepro/internal/cart"
	"textilepro/internal/config"
	applog "textilepro/internal/log"
)

var ErrNotConfigured = errors.New("mail relay not configured")

// SendError carries a non-2xx answer from the relay.
type SendError struct {
	StatusCode int
	Message    string
}

func (e *SendError) Error() string {
	return fmt.Sprintf("mail relay: status %d: %s", e.StatusCode, e.Message)
}

// Message is the relay's send payload.
type Message struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	ReplyTo string   `json:"reply_to,omitempty"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
	Text    string   `json:"text"`
}

// QuoteRequest is what the contact and quote forms submit.
type QuoteRequest struct {
	Nom         string           `json:"nom"`
	Email       string           `json:"email"`
	Telephone   string           `json:"telephone"`
	Company     string           `json:"company,omitempty"`
	Message     string           `json:"message"`
	ProductRef  string           `json:"product_ref,omitempty"`
	ProductName string           `json:"product_name,omitempty"`
	Page        string           `json:"page,omitempty"`
	Items       []cart.QuoteItem `json:"items,omitempty"`
}

type Client struct {
	apiURL string
	apiKey string
	from   string
	to     string
	http   *http.Client
}

func NewClient(cfg config.MailConfig, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{apiURL: cfg.APIURL, apiKey: cfg.APIKey, from: cfg.From, to: cfg.To, http: httpClient}
}

func (c *Client) Send(ctx context.Context, m Message) error {
	if c.apiKey == "" || c.apiURL == "" {
		return ErrNotConfigured
	}
	body, err := json.Marshal(m)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build mail request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("mail relay: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &SendError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(b))}
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// SendQuoteRequest mails the request to the shop inbox, then acknowledges it
// to the customer. Only the first send can fail the call.
func (c *Client) SendQuoteRequest(ctx context.Context, q QuoteRequest) error {
	html, text, err := renderQuote(q)
	if err != nil {
		return fmt.Errorf("render quote: %w", err)
	}
	err = c.Send(ctx, Message{
		From:    c.from,
		To:      []string{c.to},
		ReplyTo: q.Email,
		Subject: quoteSubject(q),
		HTML:    html,
		Text:    text,
	})
	if err != nil {
		return err
	}

	html, text, err = renderAck(q)
	if err == nil {
		err = c.Send(ctx, Message{
			From:    c.from,
			To:      []string{q.Email},
			Subject: "Nous avons bien reçu votre demande de devis",
			HTML:    html,
			Text:    text,
		})
	}
	if err != nil {
		applog.Warn(nil, "mail.auto_response", err, map[string]any{"email": q.Email})
	}
	return nil
}

func quoteSubject(q QuoteRequest) string {
	switch {
	case q.ProductRef != "" && q.ProductName != "":
		return fmt.Sprintf("Demande de devis : %s (%s)", q.ProductName, q.ProductRef)
	case q.ProductRef != "":
		return "Demande de devis : " + q.ProductRef
	case len(q.Items) > 0:
		return fmt.Sprintf("Demande de devis : %d article(s) - %s", len(q.Items), q.Nom)
	}
	return "Demande de contact - " + q.Nom
}
