package sale

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Service runs the sale finalization transaction: it re-validates everything
// the client already checked, persists the sale and its lines, and decrements
// stock, all inside one atomic unit.
type Service struct {
	runner Runner
	now    func() time.Time
}

// NewService creates a finalization Service on top of the given transaction
// runner.
func NewService(runner Runner) *Service {
	return &Service{runner: runner, now: time.Now}
}

// Finalize converts a submitted draft into a committed sale.
//
// Inside a single transaction it verifies the customer exists, batch-loads
// and locks every referenced product, checks stock for all lines before any
// decrement, recomputes the total from the submitted line prices, inserts
// the sale (pending) and its items, decrements stock, and marks the sale
// completed. Any failure rolls the whole transaction back.
func (s *Service) Finalize(ctx context.Context, req FinalizeRequest) (*Sale, error) {
	if len(req.Lines) == 0 {
		return nil, ErrEmptyLines
	}

	ids := make([]string, 0, len(req.Lines))
	seen := make(map[string]struct{}, len(req.Lines))
	for _, line := range req.Lines {
		if line.Quantity < 1 {
			return nil, &InvalidQuantityError{ProductID: line.ProductID, Quantity: line.Quantity}
		}
		if _, dup := seen[line.ProductID]; dup {
			continue
		}
		seen[line.ProductID] = struct{}{}
		ids = append(ids, line.ProductID)
	}

	var committed *Sale
	err := s.runner.InTx(ctx, func(tx Tx) error {
		ok, err := tx.CustomerExists(ctx, req.CustomerID)
		if err != nil {
			return errors.Wrap(err, "load customer")
		}
		if !ok {
			return ErrCustomerNotFound
		}

		// Batch load with row locks; lock order follows the repository's
		// deterministic ordering so contending finalizations cannot deadlock.
		products, err := tx.ProductsForUpdate(ctx, ids)
		if err != nil {
			return errors.Wrap(err, "load products")
		}
		byID := make(map[string]int, len(products))
		for i, p := range products {
			byID[p.ID] = i
		}

		// All stock checks complete before any decrement happens. Requested
		// quantities are accumulated per product so a payload with repeated
		// lines for one product cannot slip past a per-line check.
		needed := make(map[string]int, len(ids))
		for _, line := range req.Lines {
			i, ok := byID[line.ProductID]
			if !ok {
				return &ProductNotFoundError{ProductID: line.ProductID}
			}
			needed[line.ProductID] += line.Quantity
			if products[i].Stock < needed[line.ProductID] {
				return &InsufficientStockError{
					ProductID: line.ProductID,
					Name:      products[i].Name,
					Requested: needed[line.ProductID],
					Available: products[i].Stock,
				}
			}
		}

		// The server total is the sum of recomputed line subtotals. The
		// client's total is advisory: drift is tolerated, the recomputation
		// wins.
		items := make([]Item, len(req.Lines))
		total := decimal.Zero
		saleID := uuid.New().String()
		for i, line := range req.Lines {
			subtotal := line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity)))
			items[i] = Item{
				SaleID:    saleID,
				ProductID: line.ProductID,
				Quantity:  line.Quantity,
				UnitPrice: line.UnitPrice,
				Subtotal:  subtotal,
				Position:  i,
			}
			total = total.Add(subtotal)
		}
		total = total.Round(2)

		if !req.ClientTotal.IsZero() && !req.ClientTotal.Equal(total) {
			zctx.From(ctx).Debug("client total differs from server recomputation",
				zap.String("client_total", req.ClientTotal.String()),
				zap.String("server_total", total.String()),
			)
		}

		out := &Sale{
			ID:          saleID,
			CustomerID:  req.CustomerID,
			UserID:      req.UserID,
			SaleDate:    s.now().UTC(),
			Method:      req.Method,
			Details:     req.Details,
			TotalAmount: total,
			Status:      StatusPending,
			Items:       items,
		}

		if err := tx.InsertSale(ctx, out); err != nil {
			return errors.Wrap(err, "insert sale")
		}
		if err := tx.InsertItems(ctx, items); err != nil {
			return errors.Wrap(err, "insert sale items")
		}
		for _, line := range req.Lines {
			if err := tx.DecrementStock(ctx, line.ProductID, line.Quantity); err != nil {
				return errors.Wrapf(err, "decrement stock for %s", line.ProductID)
			}
		}
		if err := tx.MarkCompleted(ctx, saleID); err != nil {
			return errors.Wrap(err, "mark completed")
		}

		out.Status = StatusCompleted
		committed = out
		return nil
	})
	if err != nil {
		return nil, err
	}

	return committed, nil
}
