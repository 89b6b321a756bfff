package handlers

import (
	"textilepro/internal/brands"
	"textilepro/internal/config"
	"textilepro/internal/repos"
	"textilepro/internal/services"

	"github.com/jmoiron/sqlx"
)

// Backends are the outside collaborators; a nil field turns the matching
// routes into 503 answers.
type Backends struct {
	Upstream services.CatalogUpstream
	Mailer   services.QuoteMailer
	Sync     SyncController
	Brands   config.BrandConfig
}

type Deps struct {
	Auth           *services.AuthService
	AuthHandler    *AuthHandler
	CatalogHandler *CatalogHandler
	CartHandler    *CartHandler
	QuoteHandler   *QuoteHandler
	SyncHandler    *SyncHandler
}

func NewDeps(db *sqlx.DB, b Backends) *Deps {
	prodRepo := repos.NewProductRepo(db)
	userRepo := repos.NewUserRepo(db)
	storageRepo := repos.NewClientStorageRepo(db)

	authSvc := &services.AuthService{Users: userRepo}
	catalogSvc := services.NewCatalogService(prodRepo, b.Upstream)
	cartSvc := services.NewCartService(storageRepo)
	enricher := brands.NewEnricher(prodRepo, brands.Options{PageURL: b.Brands.PageURL, LogoBaseURL: b.Brands.LogoURL})

	var quoteSvc *services.QuoteService
	if b.Mailer != nil {
		quoteSvc = services.NewQuoteService(b.Mailer, cartSvc)
	}

	return &Deps{
		Auth:           authSvc,
		AuthHandler:    &AuthHandler{Auth: authSvc},
		CatalogHandler: &CatalogHandler{Catalog: catalogSvc, Enricher: enricher},
		CartHandler:    &CartHandler{Carts: cartSvc},
		QuoteHandler:   &QuoteHandler{Quotes: quoteSvc},
		SyncHandler:    &SyncHandler{Sync: b.Sync},
	}
}
