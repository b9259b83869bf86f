package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/saletrack/pos-checkout/internal/domain/customer"
)

const (
	customerColumns = `id, name, id_type, id_number, email, phone`

	getCustomerByIDSQL = `SELECT ` + customerColumns + ` FROM customers WHERE id = $1`

	findCustomerByIdentSQL = `SELECT ` + customerColumns + ` FROM customers
		WHERE id_type = $1 AND id_number = $2`

	insertCustomerSQL = `INSERT INTO customers (id, name, id_type, id_number, email, phone)
		VALUES ($1, $2, $3, $4, $5, $6)`
)

var _ customer.Repository = (*CustomerRepository)(nil)

// CustomerRepository implements customer.Repository backed by PostgreSQL.
type CustomerRepository struct {
	pool *pgxpool.Pool
}

// NewCustomerRepository returns a CustomerRepository that uses the given pool.
func NewCustomerRepository(pool *pgxpool.Pool) *CustomerRepository {
	return &CustomerRepository{pool: pool}
}

// GetByID returns a single customer by its identifier.
func (r *CustomerRepository) GetByID(ctx context.Context, id string) (*customer.Customer, error) {
	rows, err := r.pool.Query(ctx, getCustomerByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting customer %q: %w", id, err)
	}

	c, err := pgx.CollectExactlyOneRow(rows, scanCustomer)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, customer.ErrNotFound
		}
		return nil, fmt.Errorf("getting customer %q: %w", id, err)
	}
	return &c, nil
}

// FindByIdentification looks a customer up by document type and number.
func (r *CustomerRepository) FindByIdentification(ctx context.Context, idType customer.IDType, idNumber string) (*customer.Customer, error) {
	rows, err := r.pool.Query(ctx, findCustomerByIdentSQL, string(idType), idNumber)
	if err != nil {
		return nil, fmt.Errorf("finding customer %s/%s: %w", idType, idNumber, err)
	}

	c, err := pgx.CollectExactlyOneRow(rows, scanCustomer)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, customer.ErrNotFound
		}
		return nil, fmt.Errorf("finding customer %s/%s: %w", idType, idNumber, err)
	}
	return &c, nil
}

// Create persists a new customer.
func (r *CustomerRepository) Create(ctx context.Context, c *customer.Customer) error {
	_, err := r.pool.Exec(ctx, insertCustomerSQL,
		c.ID, c.Name, string(c.IDType), c.IDNumber, c.Email, c.Phone,
	)
	if err != nil {
		return fmt.Errorf("creating customer %q: %w", c.ID, err)
	}
	return nil
}

func scanCustomer(row pgx.CollectableRow) (customer.Customer, error) {
	var (
		c      customer.Customer
		idType string
	)
	err := row.Scan(&c.ID, &c.Name, &idType, &c.IDNumber, &c.Email, &c.Phone)
	c.IDType = customer.IDType(idType)
	return c, err
}
