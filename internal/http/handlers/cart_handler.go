package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"textilepro/internal/cart"
	"textilepro/internal/services"
	"textilepro/internal/validate"
)

type CartHandler struct {
	Carts *services.CartService
}

type cartView struct {
	Items  []cart.Item `json:"items"`
	Count  int         `json:"count"`
	Totals cart.Totals `json:"totals"`
}

type quoteCartView struct {
	Items []cart.QuoteItem `json:"items"`
	Count int              `json:"count"`
}

// lineKey identifies a line in update and remove calls.
type lineKey struct {
	SKU      string `json:"sku" query:"sku"`
	Color    string `json:"color" query:"color"`
	Size     string `json:"size" query:"size"`
	Quantity int    `json:"quantity" query:"quantity"`
}

func (h *CartHandler) cart(c *fiber.Ctx) *cart.Cart {
	return h.Carts.Cart(c.UserContext(), ensureSID(c))
}

func (h *CartHandler) quoteCart(c *fiber.Ctx) *cart.QuoteCart {
	return h.Carts.QuoteCart(c.UserContext(), ensureSID(c))
}

func viewCart(c *fiber.Ctx, ct *cart.Cart) error {
	return c.JSON(cartView{Items: ct.List(), Count: ct.Count(), Totals: ct.Total()})
}

func viewQuoteCart(c *fiber.Ctx, qc *cart.QuoteCart) error {
	return c.JSON(quoteCartView{Items: qc.List(), Count: qc.Count()})
}

// GET /api/v1/cart
func (h *CartHandler) View(c *fiber.Ctx) error { return viewCart(c, h.cart(c)) }

// POST /api/v1/cart
func (h *CartHandler) Add(c *fiber.Ctx) error {
	var in cart.Item
	if err := c.BodyParser(&in); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid cart line")
	}
	if err := checkLine(&in.Line); err != nil {
		return jsonError(c, fiber.StatusBadRequest, err.Error())
	}
	if in.UnitPrice.IsNegative() {
		return jsonError(c, fiber.StatusBadRequest, "invalid unit price")
	}
	ct := h.cart(c)
	ct.Add(in)
	return viewCart(c, ct)
}

// PATCH /api/v1/cart
func (h *CartHandler) Update(c *fiber.Ctx) error {
	k, err := parseKey(c)
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, err.Error())
	}
	ct := h.cart(c)
	ct.Update(k.SKU, k.Color, k.Size, validate.QtyUpdate(k.Quantity))
	return viewCart(c, ct)
}

// DELETE /api/v1/cart/items
func (h *CartHandler) Remove(c *fiber.Ctx) error {
	k, err := parseKey(c)
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, err.Error())
	}
	ct := h.cart(c)
	ct.Remove(k.SKU, k.Color, k.Size)
	return viewCart(c, ct)
}

// DELETE /api/v1/cart
func (h *CartHandler) Clear(c *fiber.Ctx) error {
	ct := h.cart(c)
	ct.Clear()
	return viewCart(c, ct)
}

// GET /api/v1/quote-cart
func (h *CartHandler) QuoteView(c *fiber.Ctx) error { return viewQuoteCart(c, h.quoteCart(c)) }

// POST /api/v1/quote-cart
func (h *CartHandler) QuoteAdd(c *fiber.Ctx) error {
	var in cart.QuoteItem
	if err := c.BodyParser(&in); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid quote line")
	}
	if err := checkLine(&in.Line); err != nil {
		return jsonError(c, fiber.StatusBadRequest, err.Error())
	}
	qc := h.quoteCart(c)
	qc.Add(in)
	return viewQuoteCart(c, qc)
}

// PATCH /api/v1/quote-cart
func (h *CartHandler) QuoteUpdate(c *fiber.Ctx) error {
	k, err := parseKey(c)
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, err.Error())
	}
	qc := h.quoteCart(c)
	qc.Update(k.SKU, k.Color, k.Size, validate.QtyUpdate(k.Quantity))
	return viewQuoteCart(c, qc)
}

// DELETE /api/v1/quote-cart/items
func (h *CartHandler) QuoteRemove(c *fiber.Ctx) error {
	k, err := parseKey(c)
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, err.Error())
	}
	qc := h.quoteCart(c)
	qc.Remove(k.SKU, k.Color, k.Size)
	return viewQuoteCart(c, qc)
}

// DELETE /api/v1/quote-cart
func (h *CartHandler) QuoteClear(c *fiber.Ctx) error {
	qc := h.quoteCart(c)
	qc.Clear()
	return viewQuoteCart(c, qc)
}

var (
	errLineKey = errors.New("invalid line key")
	errSKU     = errors.New("invalid sku")
	errColor   = errors.New("invalid color")
	errSize    = errors.New("invalid size")
)

// parseKey reads the line key from a JSON body, or from the query string
// when there is no body.
func parseKey(c *fiber.Ctx) (lineKey, error) {
	var k lineKey
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&k); err != nil {
			return k, errLineKey
		}
	} else if err := c.QueryParser(&k); err != nil {
		return k, errLineKey
	}
	var ok bool
	if k.SKU, ok = validate.SKU(k.SKU); !ok {
		return k, errSKU
	}
	if k.Color, ok = validate.Label(k.Color); !ok {
		return k, errColor
	}
	if k.Size, ok = validate.Label(k.Size); !ok {
		return k, errSize
	}
	return k, nil
}

func checkLine(l *cart.Line) error {
	var ok bool
	if l.SKU, ok = validate.SKU(l.SKU); !ok {
		return errSKU
	}
	if l.Color, ok = validate.Label(l.Color); !ok {
		return errColor
	}
	if l.Size, ok = validate.Label(l.Size); !ok {
		return errSize
	}
	if l.Quantity > validate.MaxQty {
		l.Quantity = validate.MaxQty
	}
	l.Name = validate.Text(l.Name, 200)
	l.MarkingNotes = validate.Text(l.MarkingNotes, 500)
	l.AddedAt = ""
	return nil
}
