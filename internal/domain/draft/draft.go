// Package draft holds the in-progress sale being assembled at a register:
// the selected customer, the cart, the payment method and its detail fields.
// A draft gates submission and serializes to a durable session cache so an
// interrupted capture can resume where it left off.
package draft

import (
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/saletrack/pos-checkout/internal/domain/cart"
	"github.com/saletrack/pos-checkout/internal/domain/customer"
	"github.com/saletrack/pos-checkout/internal/domain/payment"
	"github.com/saletrack/pos-checkout/internal/domain/product"
)

// ErrSubmitting is returned by every mutating operation while a submission
// for this draft is in flight.
var ErrSubmitting = errors.New("draft is being submitted")

// State describes how far along the capture workflow a draft is.
type State uint8

const (
	// StateEmpty is a fresh draft: no customer, no items.
	StateEmpty State = iota
	// StateCustomerSelected has a customer but an empty cart.
	StateCustomerSelected
	// StateHasItems has a customer and at least one line, but the payment
	// details do not yet pass the active method's validation.
	StateHasItems
	// StatePaymentReady may be submitted.
	StatePaymentReady
	// StateSubmitting has a finalization call in flight; all mutations are
	// rejected until it resolves.
	StateSubmitting
)

func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateCustomerSelected:
		return "customer_selected"
	case StateHasItems:
		return "has_items"
	case StatePaymentReady:
		return "payment_ready"
	case StateSubmitting:
		return "submitting"
	default:
		return "unknown"
	}
}

// Draft is the mutable pre-commit sale. It is not safe for concurrent use;
// the checkout session serializes access.
type Draft struct {
	customer   *customer.Customer
	cart       *cart.Cart
	method     payment.Method
	details    map[string]string
	submitting bool
}

// New returns an empty draft with the default payment method.
func New(taxRate decimal.Decimal) *Draft {
	return &Draft{
		cart:    cart.New(taxRate),
		method:  payment.DefaultMethod,
		details: make(map[string]string),
	}
}

// SelectCustomer replaces the draft's customer. There is no merge: the
// previous selection is discarded.
func (d *Draft) SelectCustomer(c customer.Customer) error {
	if d.submitting {
		return ErrSubmitting
	}
	d.customer = &c
	return nil
}

// AddItem adds quantity of the product to the cart.
func (d *Draft) AddItem(p product.Product, quantity int) error {
	if d.submitting {
		return ErrSubmitting
	}
	return d.cart.AddItem(p, quantity)
}

// SetQuantity replaces a line's quantity.
func (d *Draft) SetQuantity(productID string, quantity int) error {
	if d.submitting {
		return ErrSubmitting
	}
	return d.cart.SetQuantity(productID, quantity)
}

// RemoveItem removes a line from the cart.
func (d *Draft) RemoveItem(productID string) error {
	if d.submitting {
		return ErrSubmitting
	}
	d.cart.RemoveItem(productID)
	return nil
}

// SelectMethod switches the payment method and clears every previously
// entered detail field. Fields are not transferable across methods, so the
// wipe is intentional even when switching back and forth.
func (d *Draft) SelectMethod(m payment.Method) error {
	if d.submitting {
		return ErrSubmitting
	}
	d.method = m
	d.details = make(map[string]string)
	return nil
}

// SetDetail merges a single payment detail field. No validation happens
// here; the submission gate validates the full mapping.
func (d *Draft) SetDetail(field, value string) error {
	if d.submitting {
		return ErrSubmitting
	}
	d.details[field] = value
	return nil
}

// CanSubmit is the single submission gate: a customer is selected, the cart
// is non-empty, the active method's details validate, and for cash with an
// entered amount the amount covers the total.
func (d *Draft) CanSubmit() bool {
	if d.customer == nil || d.cart.Len() == 0 {
		return false
	}
	if payment.Validate(d.method, d.details) != nil {
		return false
	}
	if d.method == payment.MethodCash {
		if raw, ok := d.details[payment.FieldAmountReceived]; ok && raw != "" {
			received, err := decimal.NewFromString(raw)
			if err != nil || !payment.CashSufficient(received, d.cart.Total()) {
				return false
			}
		}
	}
	return true
}

// State derives the workflow state from the draft's contents.
func (d *Draft) State() State {
	switch {
	case d.submitting:
		return StateSubmitting
	case d.CanSubmit():
		return StatePaymentReady
	case d.customer != nil && d.cart.Len() > 0:
		return StateHasItems
	case d.customer != nil:
		return StateCustomerSelected
	default:
		return StateEmpty
	}
}

// BeginSubmit marks the draft as submitting, locking out mutations. It fails
// if a submission is already in flight.
func (d *Draft) BeginSubmit() error {
	if d.submitting {
		return ErrSubmitting
	}
	d.submitting = true
	return nil
}

// EndSubmit releases the submitting lock after the finalization call
// resolves, success or failure.
func (d *Draft) EndSubmit() {
	d.submitting = false
}

// Clear resets the draft to its initial empty state, keeping the tax rate.
func (d *Draft) Clear() {
	d.customer = nil
	d.cart.Clear()
	d.method = payment.DefaultMethod
	d.details = make(map[string]string)
	d.submitting = false
}

// Customer returns the selected customer, or nil.
func (d *Draft) Customer() *customer.Customer {
	if d.customer == nil {
		return nil
	}
	c := *d.customer
	return &c
}

// RestoreCustomer puts back a customer snapshot after a failed submission.
// A nil snapshot is ignored, as is a restore while a customer is already
// selected.
func (d *Draft) RestoreCustomer(c *customer.Customer) {
	if c == nil || d.customer != nil {
		return
	}
	snapshot := *c
	d.customer = &snapshot
}

// Lines returns the cart lines in insertion order.
func (d *Draft) Lines() []cart.Line {
	return d.cart.Lines()
}

// Method returns the active payment method.
func (d *Draft) Method() payment.Method {
	return d.method
}

// Details returns a copy of the payment detail mapping.
func (d *Draft) Details() map[string]string {
	out := make(map[string]string, len(d.details))
	for k, v := range d.details {
		out[k] = v
	}
	return out
}

// Subtotal, Tax, and Total expose the cart's derived amounts.
func (d *Draft) Subtotal() decimal.Decimal { return d.cart.Subtotal() }
func (d *Draft) Tax() decimal.Decimal      { return d.cart.Tax() }
func (d *Draft) Total() decimal.Decimal    { return d.cart.Total() }
