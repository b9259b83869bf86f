package product

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested product does not exist.
var ErrNotFound = errors.New("product not found")

// Product represents a catalog item available for sale. Stock is the
// authoritative on-hand quantity; readers outside the finalization
// transaction may observe a stale value.
type Product struct {
	ID          string
	SKU         string
	Name        string
	Description string
	Price       decimal.Decimal
	Stock       int
	MinStock    int
}

// BelowMinimum reports whether stock has fallen to or below the restock
// threshold.
func (p Product) BelowMinimum() bool {
	return p.Stock <= p.MinStock
}

// Repository defines read operations for the product catalog.
type Repository interface {
	Search(ctx context.Context, term string) ([]Product, error)
	GetByID(ctx context.Context, id string) (*Product, error)
	GetByIDs(ctx context.Context, ids []string) ([]Product, error)
	LowStock(ctx context.Context) ([]Product, error)
}
