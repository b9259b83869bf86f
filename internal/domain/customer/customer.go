package customer

import (
	"context"

	"github.com/go-faster/errors"
)

// ErrNotFound is returned when a requested customer does not exist.
var ErrNotFound = errors.New("customer not found")

// IDType enumerates the supported customer identification document types.
type IDType string

const (
	IDTypeNational    IDType = "national"
	IDTypeForeign     IDType = "foreign"
	IDTypePassport    IDType = "passport"
	IDTypeLegalEntity IDType = "legal_entity"
	IDTypeOther       IDType = "other"
)

// ErrUnknownIDType is returned by ParseIDType for unrecognized values.
var ErrUnknownIDType = errors.New("unknown identification type")

// ParseIDType validates a raw identification type string.
func ParseIDType(s string) (IDType, error) {
	switch t := IDType(s); t {
	case IDTypeNational, IDTypeForeign, IDTypePassport, IDTypeLegalEntity, IDTypeOther:
		return t, nil
	default:
		return "", errors.Wrapf(ErrUnknownIDType, "%q", s)
	}
}

// Customer is the buyer a sale is recorded against. A customer is immutable
// for the lifetime of a single draft; edits happen through a separate update
// flow.
type Customer struct {
	ID       string
	Name     string
	IDType   IDType
	IDNumber string
	Email    string
	Phone    string
}

// Repository defines lookup and creation of customers.
type Repository interface {
	GetByID(ctx context.Context, id string) (*Customer, error)
	FindByIdentification(ctx context.Context, idType IDType, idNumber string) (*Customer, error)
	Create(ctx context.Context, c *Customer) error
}
