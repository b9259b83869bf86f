package sale

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/saletrack/pos-checkout/internal/domain/payment"
	"github.com/saletrack/pos-checkout/internal/domain/product"
)

// Status enumerates a sale's lifecycle states.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// Sale is a committed, server-owned sale record.
type Sale struct {
	ID          string
	CustomerID  string
	UserID      string
	SaleDate    time.Time
	Method      payment.Method
	Details     map[string]string
	TotalAmount decimal.Decimal
	Status      Status
	Items       []Item
}

// Item is one persisted sale line: an immutable snapshot independent of
// later product price or stock changes.
type Item struct {
	SaleID    string
	ProductID string
	Quantity  int
	UnitPrice decimal.Decimal
	Subtotal  decimal.Decimal
	Position  int
}

// Line is one submitted draft line. UnitPrice is the price captured when the
// line was added to the cart; the server recomputes Subtotal from it rather
// than re-reading the product's current price.
type Line struct {
	ProductID string
	Quantity  int
	UnitPrice decimal.Decimal
	Subtotal  decimal.Decimal
}

// FinalizeRequest is the input to the finalization transaction. ClientTotal
// is advisory only; the persisted total is recomputed server-side.
type FinalizeRequest struct {
	CustomerID  string
	UserID      string
	Lines       []Line
	Method      payment.Method
	Details     map[string]string
	ClientTotal decimal.Decimal
}

// Sentinel errors for finalization validation.
var (
	ErrEmptyLines       = errors.New("sale lines required")
	ErrCustomerNotFound = errors.New("customer not found")
)

// ProductNotFoundError indicates a submitted line references a product that
// no longer exists.
type ProductNotFoundError struct {
	ProductID string
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("product %s not found", e.ProductID)
}

// InvalidQuantityError indicates a submitted line has a non-positive
// quantity. Client-side gating should prevent this; it is defense in depth.
type InvalidQuantityError struct {
	ProductID string
	Quantity  int
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("quantity %d is invalid for product %s", e.Quantity, e.ProductID)
}

// InsufficientStockError is the authoritative, commit-time stock rejection,
// distinct from the cart's snapshot-based check.
type InsufficientStockError struct {
	ProductID string
	Name      string
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s (%s): requested %d, available %d",
		e.ProductID, e.Name, e.Requested, e.Available)
}

// Tx is the set of persistence operations available inside one finalization
// transaction. Every method observes and mutates the same transactional
// snapshot; ProductsForUpdate locks the returned rows against concurrent
// finalizations until the transaction resolves.
type Tx interface {
	CustomerExists(ctx context.Context, customerID string) (bool, error)
	ProductsForUpdate(ctx context.Context, ids []string) ([]product.Product, error)
	InsertSale(ctx context.Context, s *Sale) error
	InsertItems(ctx context.Context, items []Item) error
	DecrementStock(ctx context.Context, productID string, quantity int) error
	MarkCompleted(ctx context.Context, saleID string) error
}

// Runner executes fn inside a single atomic transaction. If fn returns an
// error the transaction rolls back and no partial state is visible to any
// other reader.
type Runner interface {
	InTx(ctx context.Context, fn func(tx Tx) error) error
}

// Repository is the read side for committed sales, used by receipt emission.
type Repository interface {
	GetByID(ctx context.Context, id string) (*Sale, error)
}

// ErrNotFound is returned when a requested sale does not exist.
var ErrNotFound = errors.New("sale not found")
