package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"ridedispatch/internal/domain"
	"ridedispatch/internal/repository"
)

// CustomerService handles customer registration and lookup.
type CustomerService struct {
	store repository.Store
}

// NewCustomerService creates a new CustomerService.
func NewCustomerService(store repository.Store) *CustomerService {
	return &CustomerService{store: store}
}

// Register creates a customer.
func (s *CustomerService) Register(ctx context.Context, name, phone string) (*domain.Customer, error) {
	name, phone = strings.TrimSpace(name), strings.TrimSpace(phone)
	if name == "" || phone == "" {
		return nil, newError(ErrInvalidInput, "name and phone are required")
	}
	customer := &domain.Customer{
		ID:        uuid.New().String(),
		Name:      name,
		Phone:     phone,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.Customers().Create(ctx, customer); err != nil {
		return nil, err
	}
	return customer, nil
}

// GetCustomer retrieves a customer by ID.
func (s *CustomerService) GetCustomer(ctx context.Context, id string) (*domain.Customer, error) {
	if id == "" {
		return nil, ErrInvalidCustomerID
	}
	customer, err := s.store.Customers().GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, ErrCustomerNotFound)
	}
	return customer, nil
}
