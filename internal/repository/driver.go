package repository

import (
	"context"

	"ridedispatch/internal/domain"
)

// DriverRepository defines the persistence operations for drivers.
type DriverRepository interface {
	// Create adds a new driver.
	Create(ctx context.Context, driver *domain.Driver) error

	// GetByID retrieves a driver by ID.
	GetByID(ctx context.Context, id string) (*domain.Driver, error)

	// GetForUpdate retrieves a driver and holds its row lock.
	GetForUpdate(ctx context.Context, id string) (*domain.Driver, error)

	// ListAvailableInCells returns AVAILABLE drivers with a known location
	// inside any of the given geohash cells.
	ListAvailableInCells(ctx context.Context, cells []string) ([]*domain.Driver, error)

	// LockAvailable locks the driver row if the driver is still AVAILABLE.
	// Rows already locked by a concurrent unit are skipped, so the call
	// returns ErrNotFound rather than waiting.
	LockAvailable(ctx context.Context, id string) (*domain.Driver, error)

	// UpdateAvailability sets the availability of a driver.
	UpdateAvailability(ctx context.Context, id string, availability domain.Availability) error

	// UpdateLocation stores the latest reported position of a driver.
	UpdateLocation(ctx context.Context, id string, location domain.GeoPoint, cell string) error
}
