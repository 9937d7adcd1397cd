// Package cart implements the client-held shopping cart and its derived totals.
// It never reads or writes the catalog; products enter the cart as snapshots.
package cart

import (
	"github.com/shopspring/decimal"
)

// TaxRate is applied to the subtotal.
var TaxRate = decimal.NewFromFloat(0.10)

// ProductSnapshot is the product as the shopper saw it when adding it to the cart.
type ProductSnapshot struct {
	ID        string          `json:"id"        validate:"required"`
	Name      string          `json:"name"`
	Slug      string          `json:"slug"`
	Category  string          `json:"category"`
	Price     decimal.Decimal `json:"price"     validate:"gte=0"`
	Inventory int             `json:"inventory" validate:"gte=0"`
	Image     string          `json:"image,omitempty"`
}

// Line is one product in the cart. Quantity is at least 1 and never above the snapshot inventory.
type Line struct {
	Product  ProductSnapshot `json:"product"`
	Quantity int             `json:"quantity" validate:"gte=1"`
}

// Total is price times quantity.
func (l Line) Total() decimal.Decimal {
	return l.Product.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Totals are derived on demand and never stored.
type Totals struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	Tax      decimal.Decimal `json:"tax"`
	Total    decimal.Decimal `json:"total"`
}

// Cart is an ordered list of lines, at most one per product id.
// A Cart is not safe for concurrent use.
type Cart struct {
	lines []Line
}

func New() *Cart {
	return &Cart{}
}

// FromLines rebuilds a cart from client-held lines. Quantities are clamped to each
// snapshot's inventory, lines for the same product are merged and empty lines are dropped.
func FromLines(lines []Line) *Cart {
	c := New()
	for _, l := range lines {
		if l.Quantity < 1 {
			continue
		}
		if !c.Add(l.Product) {
			continue
		}
		current := c.quantityOf(l.Product.ID)
		c.SetQuantity(l.Product.ID, current+l.Quantity-1)
	}
	return c
}

// Add appends the product with quantity 1 or increments its existing line, keeping the
// snapshot taken on first add. It reports whether the quantity grew; out of stock or
// negatively priced products and lines already at the inventory limit are left unchanged.
func (c *Cart) Add(p ProductSnapshot) bool {
	if i := c.index(p.ID); i >= 0 {
		line := &c.lines[i]
		if line.Quantity >= line.Product.Inventory {
			return false
		}
		line.Quantity++
		return true
	}
	if p.Inventory <= 0 || p.Price.IsNegative() {
		return false
	}
	c.lines = append(c.lines, Line{Product: p, Quantity: 1})
	return true
}

// Remove deletes the line for productID, if any.
func (c *Cart) Remove(productID string) {
	if i := c.index(productID); i >= 0 {
		c.lines = append(c.lines[:i], c.lines[i+1:]...)
	}
}

// SetQuantity replaces the quantity of an existing line, clamped to the snapshot inventory.
// Quantities below 1 are ignored; use Remove to drop a line.
func (c *Cart) SetQuantity(productID string, n int) {
	if n < 1 {
		return
	}
	if i := c.index(productID); i >= 0 {
		line := &c.lines[i]
		line.Quantity = max(1, min(n, line.Product.Inventory))
	}
}

func (c *Cart) Clear() {
	c.lines = nil
}

// Lines returns a copy of the cart lines in insertion order.
func (c *Cart) Lines() []Line {
	out := make([]Line, len(c.lines))
	copy(out, c.lines)
	return out
}

// Count is the number of items across all lines.
func (c *Cart) Count() int {
	n := 0
	for _, l := range c.lines {
		n += l.Quantity
	}
	return n
}

func (c *Cart) IsEmpty() bool {
	return len(c.lines) == 0
}

// Totals computes subtotal, tax and grand total rounded to cents.
func (c *Cart) Totals() Totals {
	subtotal := decimal.Zero
	for _, l := range c.lines {
		subtotal = subtotal.Add(l.Total())
	}
	tax := subtotal.Mul(TaxRate).Round(2)
	subtotal = subtotal.Round(2)
	return Totals{Subtotal: subtotal, Tax: tax, Total: subtotal.Add(tax)}
}

func (c *Cart) index(productID string) int {
	for i := range c.lines {
		if c.lines[i].Product.ID == productID {
			return i
		}
	}
	return -1
}

func (c *Cart) quantityOf(productID string) int {
	if i := c.index(productID); i >= 0 {
		return c.lines[i].Quantity
	}
	return 0
}
