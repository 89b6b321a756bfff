package services

import (
	"context"
	"database/sql"
	"errors"

	"textilepro/internal/config"
	"textilepro/internal/domain"
	"textilepro/internal/repos"
	"textilepro/internal/toptex"
)

const (
	defaultPageSize = 24
	maxPageSize     = 100
)

// CatalogUpstream is the live supplier API, used when the local table cannot
// answer.
type CatalogUpstream interface {
	Products(ctx context.Context, q toptex.ProductQuery) ([]domain.Product, int, error)
	Product(ctx context.Context, sku string) (domain.Product, error)
	Attributes(ctx context.Context) (domain.Attributes, error)
}

type CatalogService struct {
	Prods *repos.ProductRepo
	// Upstream stays nil when supplier credentials are not configured.
	Upstream CatalogUpstream
}

func NewCatalogService(prods *repos.ProductRepo, up CatalogUpstream) *CatalogService {
	return &CatalogService{Prods: prods, Upstream: up}
}

type Filter struct {
	Query    string
	Brand    string
	Category string
	Page     int
	PageSize int
	// Live bypasses the local table and asks the supplier directly.
	Live bool
}

type ProductPage struct {
	Items    []domain.Product `json:"items"`
	Total    int              `json:"total"`
	Page     int              `json:"page"`
	PageSize int              `json:"page_size"`
	Source   string           `json:"source"`
}

const (
	SourceLocal    = "local"
	SourceUpstream = "upstream"
)

func (f *Filter) normalize() {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PageSize <= 0 {
		f.PageSize = defaultPageSize
	}
	if f.PageSize > maxPageSize {
		f.PageSize = maxPageSize
	}
}

func (s *CatalogService) ListProducts(ctx context.Context, f Filter) (ProductPage, error) {
	f.normalize()
	page := ProductPage{Page: f.Page, PageSize: f.PageSize, Source: SourceLocal}

	if f.Live {
		if s.Upstream == nil {
			return ProductPage{}, config.ErrMissingCredentials
		}
		items, total, err := s.Upstream.Products(ctx, toptex.ProductQuery{
			Query: f.Query, Brand: f.Brand, Category: f.Category, Page: f.Page, PageSize: f.PageSize,
		})
		if err != nil {
			return ProductPage{}, err
		}
		page.Items, page.Total, page.Source = items, total, SourceUpstream
		return page, nil
	}

	items, total, err := s.Prods.List(ctx, repos.ProductFilter{
		Query:    f.Query,
		Brand:    f.Brand,
		Category: f.Category,
		Limit:    f.PageSize,
		Offset:   (f.Page - 1) * f.PageSize,
	})
	if err != nil {
		return ProductPage{}, err
	}
	page.Items, page.Total = items, total
	return page, nil
}

// GetProduct answers from the local table first and falls back to the
// supplier for SKUs the last sync did not bring in.
func (s *CatalogService) GetProduct(ctx context.Context, sku string) (domain.Product, error) {
	p, err := s.Prods.Get(ctx, sku)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return domain.Product{}, err
	}
	if s.Upstream == nil {
		return domain.Product{}, ErrNotFound
	}
	p, err = s.Upstream.Product(ctx, sku)
	if errors.Is(err, toptex.ErrNotFound) {
		return domain.Product{}, ErrNotFound
	}
	return p, err
}

func (s *CatalogService) Attributes(ctx context.Context) (domain.Attributes, error) {
	if s.Upstream == nil {
		return domain.Attributes{}, config.ErrMissingCredentials
	}
	return s.Upstream.Attributes(ctx)
}
