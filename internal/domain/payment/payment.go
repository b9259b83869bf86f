// Package payment defines the supported payment methods, their required
// detail fields, and the structural validation applied at the submission
// gate. Validation checks presence only; reference numbers and bank codes
// are record-keeping fields, not verified against any payment gateway.
package payment

import (
	"fmt"
	"strings"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Method enumerates the supported payment methods.
type Method string

const (
	MethodCash         Method = "cash"
	MethodMobile       Method = "mobile_payment"
	MethodBankTransfer Method = "bank_transfer"
	MethodPOSTerminal  Method = "pos_terminal"
)

// DefaultMethod is the method a fresh draft starts with.
const DefaultMethod = MethodCash

// ErrUnknownMethod is returned by ParseMethod for unrecognized values.
var ErrUnknownMethod = errors.New("unknown payment method")

// ParseMethod validates a raw payment method string.
func ParseMethod(s string) (Method, error) {
	switch m := Method(s); m {
	case MethodCash, MethodMobile, MethodBankTransfer, MethodPOSTerminal:
		return m, nil
	default:
		return "", errors.Wrapf(ErrUnknownMethod, "%q", s)
	}
}

// Detail field names shared across methods.
const (
	FieldPhoneNumber    = "phoneNumber"
	FieldBank           = "bank"
	FieldSourceBank     = "sourceBank"
	FieldTargetBank     = "targetBank"
	FieldReference      = "reference"
	FieldLastDigits     = "lastDigits"
	FieldAmountReceived = "amountReceived"
)

// requiredFields maps each method to its ordered required detail fields.
// Cash requires nothing: amountReceived is optional and only drives the
// client-side change calculation.
var requiredFields = map[Method][]string{
	MethodCash:         nil,
	MethodMobile:       {FieldPhoneNumber, FieldBank, FieldReference},
	MethodBankTransfer: {FieldSourceBank, FieldTargetBank, FieldReference},
	MethodPOSTerminal:  {FieldBank, FieldLastDigits, FieldReference},
}

// RequiredFields returns the ordered detail fields the method needs before
// a draft may be submitted.
func RequiredFields(m Method) []string {
	fields := requiredFields[m]
	out := make([]string, len(fields))
	copy(out, fields)
	return out
}

// IncompleteDetailsError reports which required fields are missing or empty.
type IncompleteDetailsError struct {
	Method  Method
	Missing []string
}

func (e *IncompleteDetailsError) Error() string {
	return fmt.Sprintf("payment details incomplete for %s: missing %s", e.Method, strings.Join(e.Missing, ", "))
}

// Validate checks the details mapping against the method's required fields.
// A field is missing when absent or blank after trimming.
func Validate(m Method, details map[string]string) error {
	var missing []string
	for _, field := range requiredFields[m] {
		if strings.TrimSpace(details[field]) == "" {
			missing = append(missing, field)
		}
	}
	if len(missing) > 0 {
		return &IncompleteDetailsError{Method: m, Missing: missing}
	}
	return nil
}

// Change computes cash change: received minus total, floored at zero.
func Change(received, total decimal.Decimal) decimal.Decimal {
	change := received.Sub(total)
	if change.IsNegative() {
		return decimal.Zero
	}
	return change
}

// CashSufficient reports whether an entered cash amount covers the total.
// This is an advisory client-side gate: the committed sale does not persist
// a short-payment invariant.
func CashSufficient(received, total decimal.Decimal) bool {
	return received.GreaterThanOrEqual(total)
}
