package repository

import (
	"context"

	"ridedispatch/internal/domain"
)

// ParticipantRepository defines the persistence operations for ride participants.
type ParticipantRepository interface {
	// Create adds a participant. Returns ErrDuplicate if the rider is already on the ride.
	Create(ctx context.Context, participant *domain.Participant) error

	// Get retrieves the participant record of a rider on a ride.
	Get(ctx context.Context, rideID, riderID string) (*domain.Participant, error)

	// ListByRide retrieves all participants of a ride in invitation order.
	ListByRide(ctx context.Context, rideID string) ([]*domain.Participant, error)

	// Delete removes a rider from a ride.
	Delete(ctx context.Context, rideID, riderID string) error
}
