package toptex

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"textilepro/internal/domain"
)

const (
	DefaultBaseURL    = "https://api.toptex.io"
	DefaultRatePerMin = 60
	DefaultTokenTTL   = 25 * time.Minute

	headerAPIKey = "x-api-key"
	headerAuth   = "x-toptex-authorization"

	// cap on how much of an error body ends up in APIError.Message
	maxErrorBody = 512
)

// Client talks to the TopTex v3 API. All calls share one rate limiter.
type Client struct {
	baseURL  string
	apiKey   string
	username string
	password string

	http    *http.Client
	tokens  *TokenCache
	limiter *rate.Limiter
}

type Options struct {
	BaseURL    string
	APIKey     string
	Username   string
	Password   string
	RatePerMin int
	TokenTTL   time.Duration

	HTTPClient *http.Client
	Tokens     *TokenCache
}

func NewClient(o Options) *Client {
	if o.BaseURL == "" {
		o.BaseURL = DefaultBaseURL
	}
	if o.RatePerMin <= 0 {
		o.RatePerMin = DefaultRatePerMin
	}
	if o.TokenTTL <= 0 {
		o.TokenTTL = DefaultTokenTTL
	}
	if o.HTTPClient == nil {
		// export files are large; the timeout covers the whole download
		o.HTTPClient = &http.Client{Timeout: 10 * time.Minute}
	}
	if o.Tokens == nil {
		o.Tokens = NewTokenCache(o.TokenTTL, time.Now)
	}
	return &Client{
		baseURL:  strings.TrimRight(o.BaseURL, "/"),
		apiKey:   o.APIKey,
		username: o.Username,
		password: o.Password,
		http:     o.HTTPClient,
		tokens:   o.Tokens,
		limiter:  rate.NewLimiter(rate.Every(time.Minute/time.Duration(o.RatePerMin)), o.RatePerMin),
	}
}

// Authenticate always asks upstream for a fresh token and refreshes the cache.
func (c *Client) Authenticate(ctx context.Context) (string, error) {
	body, _ := json.Marshal(map[string]string{"username": c.username, "password": c.password})
	req, err := c.newRequest(ctx, http.MethodPost, c.baseURL+"/v3/authenticate", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	var out struct {
		Token string `json:"token"`
	}
	if err := c.doJSON(req, "authenticate", &out); err != nil {
		return "", err
	}
	if out.Token == "" {
		return "", fmt.Errorf("%w: empty token", ErrUnauthorized)
	}
	c.tokens.Set(out.Token)
	return out.Token, nil
}

// Token returns the cached token or authenticates.
func (c *Client) Token(ctx context.Context) (string, error) {
	if t, ok := c.tokens.Get(); ok {
		return t, nil
	}
	return c.Authenticate(ctx)
}

// RequestExport asks for a full catalog export and returns the pre-signed
// link the file will eventually appear at.
func (c *Client) RequestExport(ctx context.Context, token string) (string, error) {
	q := url.Values{}
	q.Set("usage_right", "b2b_b2c")
	q.Set("display_prices", "1")
	q.Set("result_in_file", "1")
	req, err := c.newRequest(ctx, http.MethodGet, c.baseURL+"/v3/products/all?"+q.Encode(), nil)
	if err != nil {
		return "", err
	}
	req.Header.Set(headerAuth, token)

	var out struct {
		Link string `json:"link"`
	}
	if err := c.doJSON(req, "request export", &out); err != nil {
		return "", err
	}
	if out.Link == "" {
		return "", &APIError{Op: "request export", StatusCode: http.StatusOK, Message: "response has no link"}
	}
	return out.Link, nil
}

// Download is the body of one export poll.
type Download struct {
	Body          []byte
	ContentLength int64
}

// FetchExport polls the export link once. A 403 means the link expired.
func (c *Client) FetchExport(ctx context.Context, link string) (Download, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return Download{}, fmt.Errorf("rate limit wait: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return Download{}, fmt.Errorf("build export request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return Download{}, fmt.Errorf("fetch export: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusForbidden {
		_, _ = io.Copy(io.Discard, resp.Body)
		return Download{}, ErrExportExpired
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Download{}, apiError("fetch export", resp)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Download{}, fmt.Errorf("read export: %w", err)
	}
	return Download{Body: body, ContentLength: resp.ContentLength}, nil
}

// ProductQuery filters the upstream listing. Page is 1-based.
type ProductQuery struct {
	Query    string
	Brand    string
	Category string
	Page     int
	PageSize int
}

// Products proxies the paginated upstream listing, normalized.
func (c *Client) Products(ctx context.Context, pq ProductQuery) ([]domain.Product, int, error) {
	q := url.Values{}
	q.Set("usage_right", "b2b_b2c")
	q.Set("page_number", strconv.Itoa(max(pq.Page, 1)))
	if pq.PageSize > 0 {
		q.Set("page_size", strconv.Itoa(pq.PageSize))
	}
	if pq.Query != "" {
		q.Set("search", pq.Query)
	}
	if pq.Brand != "" {
		q.Set("brand", pq.Brand)
	}
	if pq.Category != "" {
		q.Set("family", pq.Category)
	}
	raw, err := c.authedGet(ctx, "list products", "/v3/products?"+q.Encode())
	if err != nil {
		return nil, 0, err
	}
	recs, err := DecodeProducts(raw)
	if err != nil {
		return nil, 0, err
	}
	products := make([]domain.Product, 0, len(recs))
	for _, r := range recs {
		if p, ok := NormalizeProduct(r); ok {
			products = append(products, p)
		}
	}
	return products, totalCount(raw, len(products)), nil
}

// Product looks one reference up upstream. Records for other references are
// ignored; ErrNotFound when none matches.
func (c *Client) Product(ctx context.Context, sku string) (domain.Product, error) {
	q := url.Values{}
	q.Set("usage_right", "b2b_b2c")
	q.Set("catalog_reference", sku)
	raw, err := c.authedGet(ctx, "get product", "/v3/products?"+q.Encode())
	if err != nil {
		return domain.Product{}, err
	}
	recs, err := DecodeProducts(raw)
	if err != nil {
		// single-object answers are also seen
		var one map[string]any
		if json.Unmarshal(raw, &one) != nil {
			return domain.Product{}, err
		}
		recs = []map[string]any{one}
	}
	for _, r := range recs {
		if p, ok := NormalizeProduct(r); ok && strings.EqualFold(p.SKU, sku) {
			return p, nil
		}
	}
	return domain.Product{}, ErrNotFound
}

// Attributes returns brands, families and subfamilies, normalized.
func (c *Client) Attributes(ctx context.Context) (domain.Attributes, error) {
	raw, err := c.authedGet(ctx, "attributes", "/v3/attributes?attributes=brand,family,subfamily")
	if err != nil {
		return domain.Attributes{}, err
	}
	return ParseAttributes(raw)
}

func (c *Client) authedGet(ctx context.Context, op, path string) ([]byte, error) {
	token, err := c.Token(ctx)
	if err != nil {
		return nil, err
	}
	req, err := c.newRequest(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set(headerAuth, token)
	body, status, err := c.do(req, op)
	if err != nil {
		if status == http.StatusUnauthorized {
			c.tokens.Invalidate()
		}
		return nil, err
	}
	return body, nil
}

func (c *Client) newRequest(ctx context.Context, method, u string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set(headerAPIKey, c.apiKey)
	req.Header.Set("Accept", "application/json")
	return req, nil
}

func (c *Client) do(req *http.Request, op string) ([]byte, int, error) {
	if err := c.limiter.Wait(req.Context()); err != nil {
		return nil, 0, fmt.Errorf("rate limit wait: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("toptex %s: %w", op, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, resp.StatusCode, apiError(op, resp)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("toptex %s: read body: %w", op, err)
	}
	return body, resp.StatusCode, nil
}

func (c *Client) doJSON(req *http.Request, op string, out any) error {
	body, _, err := c.do(req, op)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("toptex %s: decode: %w", op, err)
	}
	return nil
}

func apiError(op string, resp *http.Response) *APIError {
	b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	msg := strings.TrimSpace(string(b))
	var parsed struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if json.Unmarshal(b, &parsed) == nil {
		if parsed.Message != "" {
			msg = parsed.Message
		} else if parsed.Error != "" {
			msg = parsed.Error
		}
	}
	return &APIError{Op: op, StatusCode: resp.StatusCode, Message: msg}
}

// totalCount reads total_count/total from a wrapped listing, falling back
// to the page length.
func totalCount(raw []byte, fallback int) int {
	var env struct {
		TotalCount *int `json:"total_count"`
		Total      *int `json:"total"`
	}
	if json.Unmarshal(raw, &env) != nil {
		return fallback
	}
	switch {
	case env.TotalCount != nil:
		return *env.TotalCount
	case env.Total != nil:
		return *env.Total
	}
	return fallback
}
