package repository

import (
	"context"

	"ridedispatch/internal/domain"
)

// CustomerRepository defines the persistence operations for customers.
type CustomerRepository interface {
	// Create adds a new customer.
	Create(ctx context.Context, customer *domain.Customer) error

	// GetByID retrieves a customer by ID.
	GetByID(ctx context.Context, id string) (*domain.Customer, error)
}
