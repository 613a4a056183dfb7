package repository

import (
	"context"
	"time"

	"ridedispatch/internal/domain"
)

// RideRepository defines the persistence operations for rides.
type RideRepository interface {
	// Create persists a new ride.
	Create(ctx context.Context, ride *domain.Ride) error

	// GetByID retrieves a ride by ID.
	GetByID(ctx context.Context, id string) (*domain.Ride, error)

	// GetForUpdate retrieves a ride and holds its row lock until the
	// enclosing unit of work ends.
	GetForUpdate(ctx context.Context, id string) (*domain.Ride, error)

	// ListByCustomer retrieves the most recent rides of a customer.
	ListByCustomer(ctx context.Context, customerID string, limit int) ([]*domain.Ride, error)

	// ListByDriver retrieves the most recent rides bound to a driver.
	ListByDriver(ctx context.Context, driverID string, limit int) ([]*domain.Ride, error)

	// ListRecent retrieves the most recent rides.
	ListRecent(ctx context.Context, limit int) ([]*domain.Ride, error)

	// ListStale retrieves rides in the given status created before cutoff.
	ListStale(ctx context.Context, status domain.RideStatus, cutoff time.Time, limit int) ([]*domain.Ride, error)

	// CountActiveNear counts unfinished rides whose pickup lies in one of the cells.
	CountActiveNear(ctx context.Context, cells []string) (int, error)

	// Update persists every mutable field of an existing ride.
	Update(ctx context.Context, ride *domain.Ride) error
}
