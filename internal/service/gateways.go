package service

import (
	"context"

	"ridedispatch/internal/domain"
)

// GeoResolver normalises points and measures routes.
type GeoResolver interface {
	ResolveLocation(ctx context.Context, point domain.GeoPoint) (domain.GeoPoint, error)
	// CalculateDistance returns the length in meters of the path through points in order.
	CalculateDistance(ctx context.Context, points []domain.GeoPoint) (float64, error)
	CountryOf(ctx context.Context, point domain.GeoPoint) (string, error)
}

// PaymentGateway is the contract of the external payment processor.
type PaymentGateway interface {
	CreateIntent(ctx context.Context, amount float64, rideID string, metadata map[string]string) (string, error)
	UpdateIntent(ctx context.Context, intentID string, amount float64, metadata map[string]string) error
	AuthorizeIntent(ctx context.Context, intentID string) error
	CancelIntent(ctx context.Context, intentID string) error
}

// Notifier delivers ride events to the notification sink.
type Notifier interface {
	Publish(ctx context.Context, event domain.Event) error
}

// RideCache is a read-through cache of rides. A miss returns (nil, nil).
type RideCache interface {
	GetRide(ctx context.Context, id string) (*domain.Ride, error)
	SetRide(ctx context.Context, ride *domain.Ride) error
	InvalidateRide(ctx context.Context, id string) error
}
