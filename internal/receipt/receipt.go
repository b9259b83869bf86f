// Package receipt renders a committed sale into a fixed-width text artifact
// suitable for register printers and plain-text email. Rendering is a pure
// function of the committed data; it has no write access to the sale.
package receipt

import (
	"fmt"
	"io"
	"strings"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/saletrack/pos-checkout/internal/domain/customer"
	"github.com/saletrack/pos-checkout/internal/domain/payment"
	"github.com/saletrack/pos-checkout/internal/domain/sale"
)

const width = 42

// Receipt renders completed sales with a fixed header and tax rate.
type Receipt struct {
	storeName string
	taxRate   decimal.Decimal
}

// New creates a renderer. storeName appears in the receipt header; taxRate
// is used to break the committed total into subtotal and tax lines.
func New(storeName string, taxRate decimal.Decimal) *Receipt {
	return &Receipt{storeName: storeName, taxRate: taxRate}
}

// Render writes the receipt for a completed sale. productNames maps product
// IDs to display names; lines fall back to the raw ID when missing. Lines
// appear in their persisted position order.
func (r *Receipt) Render(w io.Writer, s *sale.Sale, c *customer.Customer, productNames map[string]string) error {
	if s == nil {
		return errors.New("nil sale")
	}

	var b strings.Builder
	rule := strings.Repeat("=", width)
	thin := strings.Repeat("-", width)

	b.WriteString(center(r.storeName) + "\n")
	b.WriteString(rule + "\n")
	fmt.Fprintf(&b, "Sale:    %s\n", s.ID)
	fmt.Fprintf(&b, "Date:    %s\n", s.SaleDate.Format("2006-01-02 15:04:05"))
	if c != nil {
		fmt.Fprintf(&b, "Customer: %s\n", c.Name)
		fmt.Fprintf(&b, "ID:       %s %s\n", c.IDType, c.IDNumber)
	}
	b.WriteString(thin + "\n")

	for _, item := range s.Items {
		name := productNames[item.ProductID]
		if name == "" {
			name = item.ProductID
		}
		b.WriteString(trim(name) + "\n")
		qty := fmt.Sprintf("  %d x %s", item.Quantity, item.UnitPrice.StringFixed(2))
		b.WriteString(row(qty, item.Subtotal.StringFixed(2)) + "\n")
	}

	b.WriteString(thin + "\n")
	if !r.taxRate.IsZero() {
		// The persisted item subtotals are the exact pre-tax amounts.
		subtotal := decimal.Zero
		for _, item := range s.Items {
			subtotal = subtotal.Add(item.Subtotal)
		}
		b.WriteString(row("Subtotal", subtotal.StringFixed(2)) + "\n")
		b.WriteString(row("Tax", s.TotalAmount.Sub(subtotal).StringFixed(2)) + "\n")
	}
	b.WriteString(row("TOTAL", s.TotalAmount.StringFixed(2)) + "\n")
	b.WriteString(thin + "\n")

	fmt.Fprintf(&b, "Paid by: %s\n", s.Method)
	r.renderPaymentDetails(&b, s)
	b.WriteString(rule + "\n")
	b.WriteString(center("Thank you for your purchase") + "\n")

	_, err := io.WriteString(w, b.String())
	return err
}

func (r *Receipt) renderPaymentDetails(b *strings.Builder, s *sale.Sale) {
	switch s.Method {
	case payment.MethodCash:
		raw, ok := s.Details[payment.FieldAmountReceived]
		if !ok || raw == "" {
			return
		}
		received, err := decimal.NewFromString(raw)
		if err != nil {
			return
		}
		b.WriteString(row("Received", received.StringFixed(2)) + "\n")
		b.WriteString(row("Change", payment.Change(received, s.TotalAmount).StringFixed(2)) + "\n")
	default:
		for _, field := range payment.RequiredFields(s.Method) {
			if v := s.Details[field]; v != "" {
				b.WriteString(row(field, v) + "\n")
			}
		}
	}
}

func center(s string) string {
	if len(s) >= width {
		return s[:width]
	}
	pad := (width - len(s)) / 2
	return strings.Repeat(" ", pad) + s
}

func row(left, right string) string {
	gap := width - len(left) - len(right)
	if gap < 1 {
		gap = 1
	}
	return left + strings.Repeat(" ", gap) + right
}

func trim(s string) string {
	if len(s) > width {
		return s[:width]
	}
	return s
}
