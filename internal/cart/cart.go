// Package cart holds the purchase cart and the quote-request cart. Both keep
// their whole content as one JSON snapshot in a key/value Storage and never
// surface storage problems to callers.
package cart

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	CartKey      = "textilepro_cart"
	QuoteCartKey = "textilepro_quote_cart"
)

// taxMultiplier applies the flat 20% VAT.
var taxMultiplier = decimal.RequireFromString("1.2")

// Item is a priced cart line.
type Item struct {
	Line
	UnitPrice decimal.Decimal `json:"unitPrice"`
}

// QuoteItem is a quote-cart line; quotes carry no price.
type QuoteItem struct {
	Line
}

type Totals struct {
	BeforeTax decimal.Decimal `json:"beforeTax"`
	AfterTax  decimal.Decimal `json:"afterTax"`
}

type Option func(*options)

type options struct {
	now func() time.Time
}

func WithClock(now func() time.Time) Option { return func(o *options) { o.now = now } }

// A nil bus gets a private one.
func buildOptions(bus *Bus, opts []Option) (options, *Bus) {
	o := options{now: time.Now}
	for _, fn := range opts {
		fn(&o)
	}
	if bus == nil {
		bus = NewBus()
	}
	return o, bus
}

// Cart is the priced purchase cart.
type Cart struct {
	s store[Item, *Item]
}

func NewCart(st Storage, bus *Bus, opts ...Option) *Cart {
	o, bus := buildOptions(bus, opts)
	return &Cart{s: store[Item, *Item]{storage: st, key: CartKey, event: CartUpdated, bus: bus, now: o.now}}
}

func (c *Cart) List() []Item { return c.s.list() }

// Add merges into the line with the same (SKU, Color, Size) or appends a new
// one. Quantities below 1 count as 1.
func (c *Cart) Add(item Item) { c.s.add(item) }

// Update overwrites the quantity of a line; qty <= 0 removes it. Unknown
// lines are ignored, but the cart is still persisted and announced.
func (c *Cart) Update(sku, color, size string, qty int) { c.s.update(sku, color, size, qty) }

func (c *Cart) Remove(sku, color, size string) { c.s.remove(sku, color, size) }
func (c *Cart) Clear()                         { c.s.clear() }

// Count is the sum of quantities, not the number of lines.
func (c *Cart) Count() int { return c.s.count() }

func (c *Cart) Total() Totals {
	before := decimal.Zero
	for _, it := range c.s.list() {
		before = before.Add(it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	return Totals{BeforeTax: before, AfterTax: before.Mul(taxMultiplier)}
}

func (c *Cart) Subscribe(fn func(Event)) (unsubscribe func()) { return c.s.subscribe(fn) }

// QuoteCart has the cart's semantics minus pricing, under its own key and
// event name.
type QuoteCart struct {
	s store[QuoteItem, *QuoteItem]
}

func NewQuoteCart(st Storage, bus *Bus, opts ...Option) *QuoteCart {
	o, bus := buildOptions(bus, opts)
	return &QuoteCart{s: store[QuoteItem, *QuoteItem]{storage: st, key: QuoteCartKey, event: QuoteCartUpdated, bus: bus, now: o.now}}
}

func (q *QuoteCart) List() []QuoteItem                             { return q.s.list() }
func (q *QuoteCart) Add(item QuoteItem)                            { q.s.add(item) }
func (q *QuoteCart) Update(sku, color, size string, qty int)       { q.s.update(sku, color, size, qty) }
func (q *QuoteCart) Remove(sku, color, size string)                { q.s.remove(sku, color, size) }
func (q *QuoteCart) Clear()                                        { q.s.clear() }
func (q *QuoteCart) Count() int                                    { return q.s.count() }
func (q *QuoteCart) Subscribe(fn func(Event)) (unsubscribe func()) { return q.s.subscribe(fn) }
