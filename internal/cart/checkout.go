package cart

import (
	"fmt"
	"strconv"
	"time"

	perrors "github.com/cartcraft/storefront/internal/errors"
)

// OrderNumberPrefix starts every receipt order number.
const OrderNumberPrefix = "CC-"

// Customer is the contact information collected at checkout.
type Customer struct {
	Name    string `json:"name"    validate:"required,max=200"`
	Email   string `json:"email"   validate:"required,email"`
	Phone   string `json:"phone"   validate:"required,max=50"`
	Address string `json:"address" validate:"required,max=500"`
}

// Receipt summarizes a checkout. It is returned to the shopper and not persisted.
type Receipt struct {
	OrderNumber string    `json:"orderNumber"`
	Date        time.Time `json:"date"`
	Customer    Customer  `json:"customer"`
	Items       []Line    `json:"items"`
	Totals
}

// OrderNumber formats the order number for a checkout at t.
func OrderNumber(t time.Time) string {
	return OrderNumberPrefix + strconv.FormatInt(t.UnixMilli(), 10)
}

// Checkout produces a receipt for the current lines and empties the cart.
// Returns ErrEmptyCart if there is nothing to check out.
func (c *Cart) Checkout(customer Customer, now time.Time) (*Receipt, error) {
	if c.IsEmpty() {
		return nil, fmt.Errorf("checkout: %w", perrors.ErrEmptyCart)
	}
	receipt := &Receipt{
		OrderNumber: OrderNumber(now),
		Date:        now.UTC(),
		Customer:    customer,
		Items:       c.Lines(),
		Totals:      c.Totals(),
	}
	c.Clear()
	return receipt, nil
}
