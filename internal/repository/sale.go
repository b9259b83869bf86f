package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/saletrack/pos-checkout/internal/domain/payment"
	"github.com/saletrack/pos-checkout/internal/domain/product"
	"github.com/saletrack/pos-checkout/internal/domain/sale"
)

const (
	customerExistsSQL = `SELECT EXISTS (SELECT 1 FROM customers WHERE id = $1)`

	// ORDER BY id gives every finalization the same lock acquisition order,
	// so transactions contending on overlapping product sets cannot
	// deadlock.
	productsForUpdateSQL = `SELECT ` + productColumns + ` FROM products
		WHERE id = ANY($1) ORDER BY id FOR UPDATE`

	insertSaleSQL = `INSERT INTO sales (id, customer_id, user_id, sale_date, payment_method, payment_details, total_amount, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	insertSaleItemSQL = `INSERT INTO sale_items (sale_id, product_id, position, quantity, unit_price, subtotal)
		VALUES ($1, $2, $3, $4, $5, $6)`

	// The stock >= 0 CHECK constraint backstops this update; the in-tx
	// check against the locked rows makes it unreachable in practice.
	decrementStockSQL = `UPDATE products SET stock = stock - $2 WHERE id = $1`

	markSaleCompletedSQL = `UPDATE sales SET status = $2 WHERE id = $1`

	getSaleSQL = `SELECT id, customer_id, user_id, sale_date, payment_method, payment_details, total_amount, status
		FROM sales WHERE id = $1`

	getSaleItemsSQL = `SELECT sale_id, product_id, position, quantity, unit_price, subtotal
		FROM sale_items WHERE sale_id = $1 ORDER BY position`
)

var (
	_ sale.Runner     = (*SaleRepository)(nil)
	_ sale.Repository = (*SaleRepository)(nil)
)

// SaleRepository runs finalization transactions and serves committed sales.
type SaleRepository struct {
	pool *pgxpool.Pool
}

// NewSaleRepository returns a SaleRepository that uses the given pool.
func NewSaleRepository(pool *pgxpool.Pool) *SaleRepository {
	return &SaleRepository{pool: pool}
}

// InTx runs fn inside a single database transaction. Any error rolls the
// transaction back; no partial sale, items, or stock change become visible.
func (r *SaleRepository) InTx(ctx context.Context, fn func(tx sale.Tx) error) error {
	pgtx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("begin finalization tx: %w", err)
	}
	defer func() {
		// No-op after a successful commit.
		_ = pgtx.Rollback(ctx)
	}()

	if err := fn(&saleTx{tx: pgtx}); err != nil {
		return err
	}

	if err := pgtx.Commit(ctx); err != nil {
		return fmt.Errorf("commit finalization tx: %w", err)
	}
	return nil
}

// saleTx adapts a pgx transaction to the sale.Tx interface.
type saleTx struct {
	tx pgx.Tx
}

func (t *saleTx) CustomerExists(ctx context.Context, customerID string) (bool, error) {
	var ok bool
	if err := t.tx.QueryRow(ctx, customerExistsSQL, customerID).Scan(&ok); err != nil {
		return false, fmt.Errorf("checking customer %q: %w", customerID, err)
	}
	return ok, nil
}

// ProductsForUpdate loads the referenced products with row locks held until
// the transaction resolves, serializing concurrent check-and-decrement
// sequences per product.
func (t *saleTx) ProductsForUpdate(ctx context.Context, ids []string) ([]product.Product, error) {
	rows, err := t.tx.Query(ctx, productsForUpdateSQL, ids)
	if err != nil {
		return nil, fmt.Errorf("locking products: %w", err)
	}
	return pgx.CollectRows(rows, scanProduct)
}

func (t *saleTx) InsertSale(ctx context.Context, s *sale.Sale) error {
	details, err := json.Marshal(s.Details)
	if err != nil {
		return fmt.Errorf("marshaling payment details: %w", err)
	}
	_, err = t.tx.Exec(ctx, insertSaleSQL,
		s.ID, s.CustomerID, s.UserID, s.SaleDate, string(s.Method), details, s.TotalAmount, string(s.Status),
	)
	if err != nil {
		return fmt.Errorf("inserting sale %q: %w", s.ID, err)
	}
	return nil
}

func (t *saleTx) InsertItems(ctx context.Context, items []sale.Item) error {
	for _, item := range items {
		_, err := t.tx.Exec(ctx, insertSaleItemSQL,
			item.SaleID, item.ProductID, item.Position, item.Quantity, item.UnitPrice, item.Subtotal,
		)
		if err != nil {
			return fmt.Errorf("inserting sale item %d of %q: %w", item.Position, item.SaleID, err)
		}
	}
	return nil
}

func (t *saleTx) DecrementStock(ctx context.Context, productID string, quantity int) error {
	_, err := t.tx.Exec(ctx, decrementStockSQL, productID, quantity)
	if err != nil {
		return fmt.Errorf("decrementing stock of %q by %d: %w", productID, quantity, err)
	}
	return nil
}

func (t *saleTx) MarkCompleted(ctx context.Context, saleID string) error {
	_, err := t.tx.Exec(ctx, markSaleCompletedSQL, saleID, string(sale.StatusCompleted))
	if err != nil {
		return fmt.Errorf("marking sale %q completed: %w", saleID, err)
	}
	return nil
}

// GetByID returns a committed sale with its items in position order.
func (r *SaleRepository) GetByID(ctx context.Context, id string) (*sale.Sale, error) {
	var (
		s          sale.Sale
		method     string
		status     string
		detailsRaw []byte
	)
	err := r.pool.QueryRow(ctx, getSaleSQL, id).Scan(
		&s.ID, &s.CustomerID, &s.UserID, &s.SaleDate, &method, &detailsRaw, &s.TotalAmount, &status,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, sale.ErrNotFound
		}
		return nil, fmt.Errorf("getting sale %q: %w", id, err)
	}
	s.Method = payment.Method(method)
	s.Status = sale.Status(status)
	if err := json.Unmarshal(detailsRaw, &s.Details); err != nil {
		return nil, fmt.Errorf("unmarshaling payment details of %q: %w", id, err)
	}

	rows, err := r.pool.Query(ctx, getSaleItemsSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting items of sale %q: %w", id, err)
	}
	s.Items, err = pgx.CollectRows(rows, scanSaleItem)
	if err != nil {
		return nil, fmt.Errorf("getting items of sale %q: %w", id, err)
	}
	return &s, nil
}

func scanSaleItem(row pgx.CollectableRow) (sale.Item, error) {
	var item sale.Item
	err := row.Scan(&item.SaleID, &item.ProductID, &item.Position, &item.Quantity, &item.UnitPrice, &item.Subtotal)
	return item, err
}
