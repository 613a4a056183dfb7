package postgres

import (
	"context"

	"github.com/jmoiron/sqlx"

	"ridedispatch/internal/domain"
)

// CustomerRepository implements repository.CustomerRepository using PostgreSQL.
type CustomerRepository struct {
	q Querier
}

// NewCustomerRepository creates a new CustomerRepository.
func NewCustomerRepository(db *sqlx.DB) *CustomerRepository {
	return &CustomerRepository{q: db}
}

// NewCustomerRepositoryWithTx creates a customer repository using a transaction.
func NewCustomerRepositoryWithTx(tx *sqlx.Tx) *CustomerRepository {
	return &CustomerRepository{q: tx}
}

// Create adds a new customer.
func (r *CustomerRepository) Create(ctx context.Context, customer *domain.Customer) error {
	query := `INSERT INTO customers (id, name, phone, created_at) VALUES ($1, $2, $3, $4)`
	_, err := r.q.ExecContext(ctx, query, customer.ID, customer.Name, customer.Phone, customer.CreatedAt)
	return translateError(err)
}

// GetByID retrieves a customer by ID.
func (r *CustomerRepository) GetByID(ctx context.Context, id string) (*domain.Customer, error) {
	query := `SELECT id, name, phone, created_at FROM customers WHERE id = $1`
	row := r.q.QueryRowxContext(ctx, query, id)

	var customer domain.Customer
	if err := row.Scan(&customer.ID, &customer.Name, &customer.Phone, &customer.CreatedAt); err != nil {
		return nil, translateError(err)
	}
	return &customer, nil
}
