package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"textilepro/internal/brands"
	"textilepro/internal/config"
	"textilepro/internal/domain"
	applog "textilepro/internal/log"
	"textilepro/internal/services"
	"textilepro/internal/toptex"
	"textilepro/internal/validate"
)

type CatalogHandler struct {
	Catalog  *services.CatalogService
	Enricher *brands.Enricher
}

// GET /api/v1/products
func (h *CatalogHandler) Products(c *fiber.Ctx) error {
	f := services.Filter{
		Page:     c.QueryInt("page", 1),
		PageSize: c.QueryInt("page_size", 0),
		Live:     c.Query("source") == services.SourceUpstream,
	}
	if raw := c.Query("q"); raw != "" {
		q, ok := validate.Q(raw)
		if !ok {
			return jsonError(c, fiber.StatusBadRequest, "invalid search query")
		}
		f.Query = q
	}
	var ok bool
	if f.Brand, ok = validate.Label(c.Query("brand")); !ok {
		return jsonError(c, fiber.StatusBadRequest, "invalid brand")
	}
	if f.Category, ok = validate.Label(c.Query("category")); !ok {
		return jsonError(c, fiber.StatusBadRequest, "invalid category")
	}

	page, err := h.Catalog.ListProducts(c.UserContext(), f)
	if err != nil {
		return catalogError(c, "catalog.products.fail", err)
	}
	return c.JSON(page)
}

// GET /api/v1/products/:sku
func (h *CatalogHandler) Product(c *fiber.Ctx) error {
	sku, ok := validate.SKU(c.Params("sku"))
	if !ok {
		return jsonError(c, fiber.StatusBadRequest, "invalid sku")
	}
	p, err := h.Catalog.GetProduct(c.UserContext(), sku)
	if err != nil {
		return catalogError(c, "catalog.product.fail", err)
	}
	return c.JSON(p)
}

// GET /api/v1/attributes
func (h *CatalogHandler) Attributes(c *fiber.Ctx) error {
	attrs, err := h.Catalog.Attributes(c.UserContext())
	if err != nil {
		return catalogError(c, "catalog.attributes.fail", err)
	}
	return c.JSON(attrs)
}

// GET /api/v1/brands never fails: enrichment is decoration.
func (h *CatalogHandler) Brands(c *fiber.Ctx) error {
	list, err := h.Enricher.Brands(c.UserContext())
	if err != nil {
		applog.Warn(c, "catalog.brands.fail", err, nil)
		list = []domain.Brand{}
	}
	return c.JSON(list)
}

// catalogError maps supplier failures to 502 with the upstream status and
// message, so operators can tell them apart from local ones.
func catalogError(c *fiber.Ctx, action string, err error) error {
	var apiErr *toptex.APIError
	switch {
	case errors.Is(err, services.ErrNotFound):
		return jsonError(c, fiber.StatusNotFound, "product not found")
	case errors.Is(err, config.ErrMissingCredentials):
		applog.Warn(c, action, err, nil)
		return jsonError(c, fiber.StatusServiceUnavailable, "catalog upstream not configured")
	case errors.As(err, &apiErr):
		applog.Error(c, action, err, map[string]any{"upstream_status": apiErr.StatusCode})
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error":           "upstream catalog error",
			"upstream_status": apiErr.StatusCode,
			"message":         apiErr.Message,
		})
	}
	applog.Error(c, action, err, nil)
	return jsonError(c, fiber.StatusInternalServerError, "internal error")
}
