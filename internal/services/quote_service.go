package services

import (
	"context"

	applog "textilepro/internal/log"
	"textilepro/internal/mail"
)

type QuoteMailer interface {
	SendQuoteRequest(ctx context.Context, q mail.QuoteRequest) error
}

type QuoteService struct {
	Mail  QuoteMailer
	Carts *CartService
}

func NewQuoteService(m QuoteMailer, carts *CartService) *QuoteService {
	return &QuoteService{Mail: m, Carts: carts}
}

// Submit relays a quote request. When the form carries no lines, the
// session's quote cart is attached and emptied once the shop got the mail.
func (s *QuoteService) Submit(ctx context.Context, sid string, q mail.QuoteRequest) error {
	qc := s.Carts.QuoteCart(ctx, sid)
	fromCart := len(q.Items) == 0
	if fromCart {
		q.Items = qc.List()
	}
	if err := s.Mail.SendQuoteRequest(ctx, q); err != nil {
		return err
	}
	if fromCart && len(q.Items) > 0 {
		qc.Clear()
	}
	applog.Audit(nil, "quote.request.sent", map[string]any{"email": q.Email, "items": len(q.Items), "product_ref": q.ProductRef})
	return nil
}
