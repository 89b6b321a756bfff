package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"textilepro/internal/cart"
	applog "textilepro/internal/log"
	"textilepro/internal/mail"
	"textilepro/internal/services"
	"textilepro/internal/validate"
)

type QuoteHandler struct {
	Quotes *services.QuoteService
}

var (
	errNom        = errors.New("nom requis")
	errEmail      = errors.New("e-mail invalide")
	errPhone      = errors.New("téléphone invalide")
	errProductRef = errors.New("référence produit invalide")
)

type quoteInput struct {
	Nom         string           `json:"nom" form:"nom"`
	Email       string           `json:"email" form:"email"`
	Telephone   string           `json:"telephone" form:"telephone"`
	Company     string           `json:"company" form:"company"`
	Message     string           `json:"message" form:"message"`
	ProductRef  string           `json:"product_ref" form:"product_ref"`
	ProductName string           `json:"product_name" form:"product_name"`
	Page        string           `json:"page" form:"page"`
	Items       []cart.QuoteItem `json:"items" form:"-"`
}

func (in quoteInput) request() (mail.QuoteRequest, error) {
	nom, ok := validate.Name(in.Nom)
	if !ok {
		return mail.QuoteRequest{}, errNom
	}
	email, ok := validate.Email(in.Email)
	if !ok {
		return mail.QuoteRequest{}, errEmail
	}
	tel := in.Telephone
	if tel != "" {
		if tel, ok = validate.Phone(tel); !ok {
			return mail.QuoteRequest{}, errPhone
		}
	}
	ref := in.ProductRef
	if ref != "" {
		if ref, ok = validate.SKU(ref); !ok {
			return mail.QuoteRequest{}, errProductRef
		}
	}
	items := make([]cart.QuoteItem, 0, len(in.Items))
	for _, it := range in.Items {
		if err := checkLine(&it.Line); err != nil {
			return mail.QuoteRequest{}, err
		}
		if it.Quantity < 1 {
			it.Quantity = 1
		}
		items = append(items, it)
	}
	return mail.QuoteRequest{
		Nom:         nom,
		Email:       email,
		Telephone:   tel,
		Company:     validate.Text(in.Company, 120),
		Message:     validate.Text(in.Message, 5000),
		ProductRef:  ref,
		ProductName: validate.Text(in.ProductName, 200),
		Page:        validate.Text(in.Page, 300),
		Items:       items,
	}, nil
}

// POST /api/v1/quote-requests
func (h *QuoteHandler) Submit(c *fiber.Ctx) error {
	if h.Quotes == nil {
		return jsonError(c, fiber.StatusServiceUnavailable, "quote requests are not available")
	}
	var in quoteInput
	if err := c.BodyParser(&in); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid quote request")
	}
	req, err := in.request()
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, err.Error())
	}

	err = h.Quotes.Submit(c.UserContext(), ensureSID(c), req)
	var sendErr *mail.SendError
	switch {
	case err == nil:
		applog.Audit(c, "quote.request.accepted", map[string]any{"email": req.Email, "product_ref": req.ProductRef})
		return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"status": "sent"})
	case errors.Is(err, mail.ErrNotConfigured):
		applog.Error(c, "quote.request.fail", err, nil)
		return jsonError(c, fiber.StatusServiceUnavailable, "quote requests are not available")
	case errors.As(err, &sendErr):
		applog.Error(c, "quote.request.fail", err, map[string]any{"relay_status": sendErr.StatusCode})
		return jsonError(c, fiber.StatusBadGateway, "could not send the quote request")
	}
	applog.Error(c, "quote.request.fail", err, nil)
	return jsonError(c, fiber.StatusInternalServerError, "could not send the quote request")
}
