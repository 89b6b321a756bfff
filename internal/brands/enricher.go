package brands

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/net/html"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"textilepro/internal/domain"
	applog "textilepro/internal/log"
)

const (
	DefaultCacheTTL = 24 * time.Hour
	maxPageBytes    = 2 << 20
	// concurrent brand page fetches on a cold cache
	scrapeLimit = 8
)

// BrandLister gives the distinct brands of the catalog with product counts.
type BrandLister interface {
	Brands(ctx context.Context) ([]domain.Brand, error)
}

type Options struct {
	// PageURL is the brand directory; <PageURL>/<slug> is scraped for a logo.
	// Empty disables scraping.
	PageURL string
	// LogoBaseURL serves <slug>.png fallbacks.
	LogoBaseURL string
	HTTPClient  *http.Client
	CacheTTL    time.Duration
	Now         func() time.Time
}

type logoEntry struct {
	url       string
	expiresAt time.Time
}

// Enricher decorates brands with display names, slugs and logo URLs.
// Every lookup is best effort.
type Enricher struct {
	repo     BrandLister
	pageURL  string
	logoBase string
	http     *http.Client
	ttl      time.Duration
	now      func() time.Time

	mu    sync.RWMutex
	logos map[string]logoEntry
}

func NewEnricher(repo BrandLister, o Options) *Enricher {
	if o.HTTPClient == nil {
		o.HTTPClient = &http.Client{Timeout: 5 * time.Second}
	}
	if o.CacheTTL <= 0 {
		o.CacheTTL = DefaultCacheTTL
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return &Enricher{
		repo:     repo,
		pageURL:  strings.TrimRight(o.PageURL, "/"),
		logoBase: strings.TrimRight(o.LogoBaseURL, "/"),
		http:     o.HTTPClient,
		ttl:      o.CacheTTL,
		now:      o.Now,
		logos:    map[string]logoEntry{},
	}
}

// Brands lists the catalog brands, enriched and sorted by display name.
func (e *Enricher) Brands(ctx context.Context) ([]domain.Brand, error) {
	raw, err := e.repo.Brands(ctx)
	if err != nil {
		return nil, fmt.Errorf("list brands: %w", err)
	}
	out := make([]domain.Brand, len(raw))
	var g errgroup.Group
	g.SetLimit(scrapeLimit)
	for i, b := range raw {
		g.Go(func() error {
			b.DisplayName = DisplayName(b.Name)
			b.Slug = Slug(b.Name)
			b.LogoURL = e.Logo(ctx, b.Name)
			out[i] = b
			return nil
		})
	}
	_ = g.Wait() // Logo never fails
	col := collate.New(language.French, collate.IgnoreCase)
	sort.SliceStable(out, func(i, j int) bool {
		return col.CompareString(out[i].DisplayName, out[j].DisplayName) < 0
	})
	return out, nil
}

// Logo returns a logo URL for brand, scraped from its page when possible and
// the static fallback otherwise. Results are cached either way.
func (e *Enricher) Logo(ctx context.Context, brand string) string {
	slug := Slug(brand)
	if slug == "" {
		return ""
	}

	e.mu.RLock()
	ent, ok := e.logos[slug]
	e.mu.RUnlock()
	if ok && e.now().Before(ent.expiresAt) {
		return ent.url
	}

	logo, err := e.scrape(ctx, slug)
	if err != nil {
		applog.Warn(nil, "brands.logo_scrape", err, map[string]any{"brand": brand})
	}
	if logo == "" {
		logo = e.fallback(slug)
	}

	e.mu.Lock()
	e.logos[slug] = logoEntry{url: logo, expiresAt: e.now().Add(e.ttl)}
	e.mu.Unlock()
	return logo
}

func (e *Enricher) fallback(slug string) string {
	return e.logoBase + "/" + slug + ".png"
}

func (e *Enricher) scrape(ctx context.Context, slug string) (string, error) {
	if e.pageURL == "" {
		return "", nil
	}
	page := e.pageURL + "/" + slug
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, page, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", "text/html")
	resp, err := e.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("brand page %s: status %d", page, resp.StatusCode)
	}
	doc, err := html.Parse(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return "", fmt.Errorf("parse brand page: %w", err)
	}
	src := findLogo(doc)
	if src == "" {
		return "", nil
	}
	return resolve(page, src), nil
}

// findLogo prefers the og:image meta tag, then the first <img> whose class
// mentions "logo".
func findLogo(doc *html.Node) string {
	var og, img string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if og != "" {
			return
		}
		if n.Type == html.ElementNode {
			switch n.Data {
			case "meta":
				if attr(n, "property") == "og:image" {
					og = strings.TrimSpace(attr(n, "content"))
				}
			case "img":
				if img == "" && strings.Contains(strings.ToLower(attr(n, "class")), "logo") {
					img = strings.TrimSpace(attr(n, "src"))
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	if og != "" {
		return og
	}
	return img
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func resolve(base, ref string) string {
	b, err := url.Parse(base)
	if err != nil {
		return ref
	}
	r, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return b.ResolveReference(r).String()
}

