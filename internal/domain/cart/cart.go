// Package cart implements the draft shopping cart: an insertion-ordered set
// of product lines with derived subtotal, tax, and total. The cart never
// performs I/O; stock checks use the per-line snapshot captured when the line
// was added.
package cart

import (
	"fmt"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/saletrack/pos-checkout/internal/domain/product"
)

// ErrLineNotFound is returned when an operation targets a product that has no
// line in the cart.
var ErrLineNotFound = errors.New("product has no line in the cart")

// InvalidQuantityError indicates a non-positive quantity was requested.
type InvalidQuantityError struct {
	ProductID string
	Quantity  int
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("quantity %d is invalid for product %s: must be at least 1", e.Quantity, e.ProductID)
}

// StockExceededError indicates a requested quantity exceeds the stock
// snapshot known to the cart. The authoritative check happens again at
// finalization time.
type StockExceededError struct {
	ProductID string
	Requested int
	Available int
}

func (e *StockExceededError) Error() string {
	return fmt.Sprintf("requested %d of product %s but only %d in stock", e.Requested, e.ProductID, e.Available)
}

// Line is one cart entry: a product at a given quantity, with the unit price
// and stock copied from the product at add time.
type Line struct {
	ProductID string
	Name      string
	UnitPrice decimal.Decimal
	Quantity  int
	Stock     int
}

// Subtotal is UnitPrice multiplied by Quantity.
func (l Line) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Cart holds the draft's lines in insertion order. The zero value is not
// usable; construct with New.
type Cart struct {
	lines   []Line
	taxRate decimal.Decimal
}

// New returns an empty cart. taxRate is a fraction (0.16 for 16%); zero
// disables tax.
func New(taxRate decimal.Decimal) *Cart {
	return &Cart{taxRate: taxRate}
}

// AddItem appends a new line for the product, or increments the existing
// line's quantity. The combined quantity is checked against the product's
// stock as known now; the stock snapshot on an existing line is refreshed on
// merge. The cart is left untouched on error.
func (c *Cart) AddItem(p product.Product, quantity int) error {
	if quantity < 1 {
		return &InvalidQuantityError{ProductID: p.ID, Quantity: quantity}
	}

	for i := range c.lines {
		if c.lines[i].ProductID != p.ID {
			continue
		}
		combined := c.lines[i].Quantity + quantity
		if combined > p.Stock {
			return &StockExceededError{ProductID: p.ID, Requested: combined, Available: p.Stock}
		}
		c.lines[i].Quantity = combined
		c.lines[i].Stock = p.Stock
		return nil
	}

	if quantity > p.Stock {
		return &StockExceededError{ProductID: p.ID, Requested: quantity, Available: p.Stock}
	}
	c.lines = append(c.lines, Line{
		ProductID: p.ID,
		Name:      p.Name,
		UnitPrice: p.Price,
		Quantity:  quantity,
		Stock:     p.Stock,
	})
	return nil
}

// SetQuantity replaces a line's quantity. The line keeps its original unit
// price and stock snapshot.
func (c *Cart) SetQuantity(productID string, quantity int) error {
	if quantity < 1 {
		return &InvalidQuantityError{ProductID: productID, Quantity: quantity}
	}
	for i := range c.lines {
		if c.lines[i].ProductID != productID {
			continue
		}
		if quantity > c.lines[i].Stock {
			return &StockExceededError{ProductID: productID, Requested: quantity, Available: c.lines[i].Stock}
		}
		c.lines[i].Quantity = quantity
		return nil
	}
	return errors.Wrapf(ErrLineNotFound, "product %s", productID)
}

// RemoveItem removes the line for productID. Removing an absent product is
// a no-op.
func (c *Cart) RemoveItem(productID string) {
	for i := range c.lines {
		if c.lines[i].ProductID == productID {
			c.lines = append(c.lines[:i], c.lines[i+1:]...)
			return
		}
	}
}

// Clear drops every line.
func (c *Cart) Clear() {
	c.lines = nil
}

// Len returns the number of lines.
func (c *Cart) Len() int {
	return len(c.lines)
}

// Lines returns a copy of the lines in insertion order.
func (c *Cart) Lines() []Line {
	out := make([]Line, len(c.lines))
	copy(out, c.lines)
	return out
}

// Subtotal is the sum of all line subtotals.
func (c *Cart) Subtotal() decimal.Decimal {
	sum := decimal.Zero
	for _, l := range c.lines {
		sum = sum.Add(l.Subtotal())
	}
	return sum
}

// Tax is the subtotal multiplied by the configured tax rate.
func (c *Cart) Tax() decimal.Decimal {
	return c.Subtotal().Mul(c.taxRate)
}

// Total is subtotal plus tax.
func (c *Cart) Total() decimal.Decimal {
	return c.Subtotal().Add(c.Tax())
}

// TaxRate exposes the configured rate, used when rebuilding a cart from a
// cached draft.
func (c *Cart) TaxRate() decimal.Decimal {
	return c.taxRate
}

// Restore replaces the cart's lines wholesale. Used by the draft cache
// decoder; it performs no stock validation because the lines were validated
// when first added.
func (c *Cart) Restore(lines []Line) {
	c.lines = make([]Line, len(lines))
	copy(c.lines, lines)
}
