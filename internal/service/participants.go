package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"ridedispatch/internal/domain"
	"ridedispatch/internal/repository"
)

// ParticipantManager adds and removes secondary riders while a ride is
// still REQUESTED.
type ParticipantManager struct {
	store  repository.Store
	logger logrus.FieldLogger
}

// NewParticipantManager creates a new ParticipantManager.
func NewParticipantManager(store repository.Store, logger logrus.FieldLogger) *ParticipantManager {
	return &ParticipantManager{store: store, logger: logger}
}

// Invite adds riderID to the ride in INVITED status.
func (m *ParticipantManager) Invite(ctx context.Context, principal domain.Principal, rideID, riderID string) (*domain.Participant, error) {
	if rideID == "" {
		return nil, ErrInvalidRideID
	}
	if riderID == "" {
		return nil, ErrInvalidRiderID
	}

	var participant *domain.Participant
	err := m.store.WithinTx(ctx, func(ctx context.Context, uow repository.UnitOfWork) error {
		ride, err := m.openRide(ctx, uow, principal, rideID)
		if err != nil {
			return err
		}
		if riderID == ride.CustomerID {
			return ErrInviteOwner
		}
		if _, err := uow.Customers().GetByID(ctx, riderID); err != nil {
			return notFound(err, ErrCustomerNotFound)
		}

		_, err = uow.Participants().Get(ctx, rideID, riderID)
		if err == nil {
			return ErrParticipantExists
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return err
		}

		participant = &domain.Participant{
			ID:        uuid.New().String(),
			RideID:    rideID,
			RiderID:   riderID,
			Status:    domain.ParticipantStatusInvited,
			InvitedAt: time.Now().UTC(),
		}
		if err := uow.Participants().Create(ctx, participant); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return ErrParticipantExists
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	m.logger.WithFields(logrus.Fields{"ride_id": rideID, "rider_id": riderID}).Info("rider invited")
	return participant, nil
}

// Remove takes riderID off the ride.
func (m *ParticipantManager) Remove(ctx context.Context, principal domain.Principal, rideID, riderID string) error {
	if rideID == "" {
		return ErrInvalidRideID
	}
	if riderID == "" {
		return ErrInvalidRiderID
	}

	return m.store.WithinTx(ctx, func(ctx context.Context, uow repository.UnitOfWork) error {
		if _, err := m.openRide(ctx, uow, principal, rideID); err != nil {
			return err
		}
		if err := uow.Participants().Delete(ctx, rideID, riderID); err != nil {
			return notFound(err, ErrParticipantNotFound)
		}
		return nil
	})
}

// List returns the participants of a ride.
func (m *ParticipantManager) List(ctx context.Context, principal domain.Principal, rideID string) ([]*domain.Participant, error) {
	if rideID == "" {
		return nil, ErrInvalidRideID
	}
	ride, err := m.store.Rides().GetByID(ctx, rideID)
	if err != nil {
		return nil, notFound(err, ErrRideNotFound)
	}
	if err := authorizeCustomer(principal, ride); err != nil {
		return nil, err
	}
	return m.store.Participants().ListByRide(ctx, rideID)
}

// openRide locks the ride and checks it is owned by principal and REQUESTED.
func (m *ParticipantManager) openRide(ctx context.Context, uow repository.UnitOfWork, principal domain.Principal, rideID string) (*domain.Ride, error) {
	ride, err := uow.Rides().GetForUpdate(ctx, rideID)
	if err != nil {
		return nil, notFound(err, ErrRideNotFound)
	}
	if err := authorizeCustomer(principal, ride); err != nil {
		return nil, err
	}
	if ride.Status != domain.RideStatusRequested {
		return nil, ErrRideNotOpen
	}
	return ride, nil
}
