package repository

import (
	"context"

	"ridedispatch/internal/domain"
)

// PaymentRepository defines the persistence operations for payments.
type PaymentRepository interface {
	// Create persists a new payment.
	Create(ctx context.Context, payment *domain.Payment) error

	// GetByID retrieves a payment by ID.
	GetByID(ctx context.Context, id string) (*domain.Payment, error)

	// GetByRideID retrieves the payment attached to a ride.
	GetByRideID(ctx context.Context, rideID string) (*domain.Payment, error)

	// Update persists the amount and status of a payment.
	Update(ctx context.Context, payment *domain.Payment) error
}
