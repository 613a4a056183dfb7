package service

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"ridedispatch/internal/domain"
	"ridedispatch/internal/repository"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

// agentTargets lists the statuses a driver may move a ride to.
var agentTargets = map[domain.RideStatus]bool{
	domain.RideStatusAssigned:  true,
	domain.RideStatusArrived:   true,
	domain.RideStatusStarted:   true,
	domain.RideStatusCompleted: true,
	domain.RideStatusCancelled: true,
}

// RideService is the rider and driver facing entry point for ride reads and
// status changes.
type RideService struct {
	store     repository.Store
	lifecycle *RideLifecycle
	cache     RideCache
	logger    logrus.FieldLogger
}

// NewRideService creates a new RideService. cache may be nil.
func NewRideService(store repository.Store, lifecycle *RideLifecycle, cache RideCache, logger logrus.FieldLogger) *RideService {
	return &RideService{
		store:     store,
		lifecycle: lifecycle,
		cache:     cache,
		logger:    logger,
	}
}

// ChangeStatusRequest contains the parameters for a status change.
type ChangeStatusRequest struct {
	RideID string
	Target domain.RideStatus
	Reason string
}

// ChangeStatus moves a ride through the lifecycle on behalf of principal.
// Ownership is checked before the transition table is consulted.
func (s *RideService) ChangeStatus(ctx context.Context, principal domain.Principal, req ChangeStatusRequest) (*domain.Ride, error) {
	if err := validatePrincipal(principal); err != nil {
		return nil, err
	}
	if req.RideID == "" {
		return nil, ErrInvalidRideID
	}
	if !req.Target.Valid() {
		return nil, ErrInvalidStatus
	}

	var ride *domain.Ride
	err := s.store.WithinTx(ctx, func(ctx context.Context, uow repository.UnitOfWork) error {
		var err error
		ride, err = uow.Rides().GetForUpdate(ctx, req.RideID)
		if err != nil {
			return notFound(err, ErrRideNotFound)
		}

		opts := TransitionOptions{Reason: req.Reason}
		switch principal.Role {
		case domain.RoleCustomer:
			if ride.CustomerID != principal.ID {
				return ErrNotRideOwner
			}
			if req.Target != domain.RideStatusCancelled {
				return ErrRoleNotPermitted
			}
		case domain.RoleAgent:
			claiming := req.Target == domain.RideStatusAssigned && ride.DriverID == ""
			if ride.DriverID != principal.ID && !claiming {
				return ErrNotRideOwner
			}
			if !agentTargets[req.Target] {
				return ErrRoleNotPermitted
			}
			if claiming {
				opts.DriverID = principal.ID
			}
		}

		return s.lifecycle.Transition(ctx, uow, ride, req.Target, opts)
	})
	if err != nil {
		return nil, err
	}
	return ride, nil
}

// GetRide returns a ride visible to principal.
func (s *RideService) GetRide(ctx context.Context, principal domain.Principal, rideID string) (*domain.Ride, error) {
	if err := validatePrincipal(principal); err != nil {
		return nil, err
	}
	if rideID == "" {
		return nil, ErrInvalidRideID
	}

	ride, err := s.loadRide(ctx, rideID)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeView(ctx, principal, ride); err != nil {
		return nil, err
	}
	return ride, nil
}

// ListRides returns the most recent rides of principal.
func (s *RideService) ListRides(ctx context.Context, principal domain.Principal, limit int) ([]*domain.Ride, error) {
	if err := validatePrincipal(principal); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	switch principal.Role {
	case domain.RoleCustomer:
		return s.store.Rides().ListByCustomer(ctx, principal.ID, limit)
	case domain.RoleAgent:
		return s.store.Rides().ListByDriver(ctx, principal.ID, limit)
	default:
		return s.store.Rides().ListRecent(ctx, limit)
	}
}

// loadRide reads through the cache.
func (s *RideService) loadRide(ctx context.Context, rideID string) (*domain.Ride, error) {
	if s.cache != nil {
		cached, err := s.cache.GetRide(ctx, rideID)
		if err != nil {
			s.logger.WithError(err).WithField("ride_id", rideID).Warn("ride cache read failed")
		}
		if cached != nil {
			return cached, nil
		}
	}

	ride, err := s.store.Rides().GetByID(ctx, rideID)
	if err != nil {
		return nil, notFound(err, ErrRideNotFound)
	}

	if s.cache != nil {
		if err := s.cache.SetRide(ctx, ride); err != nil {
			s.logger.WithError(err).WithField("ride_id", rideID).Warn("ride cache write failed")
		}
	}
	return ride, nil
}

func (s *RideService) authorizeView(ctx context.Context, principal domain.Principal, ride *domain.Ride) error {
	switch principal.Role {
	case domain.RoleAdmin:
		return nil
	case domain.RoleAgent:
		if ride.DriverID == principal.ID {
			return nil
		}
		return ErrNotRideOwner
	}

	if ride.CustomerID == principal.ID {
		return nil
	}
	_, err := s.store.Participants().Get(ctx, ride.ID, principal.ID)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrNotRideOwner
	}
	return err
}

func validatePrincipal(p domain.Principal) error {
	if p.ID == "" || !p.Role.Valid() {
		return ErrInvalidPrincipal
	}
	return nil
}

// authorizeCustomer allows the ride owner and administrators.
func authorizeCustomer(p domain.Principal, ride *domain.Ride) error {
	if err := validatePrincipal(p); err != nil {
		return err
	}
	switch p.Role {
	case domain.RoleAdmin:
		return nil
	case domain.RoleCustomer:
		if ride.CustomerID == p.ID {
			return nil
		}
		return ErrNotRideOwner
	default:
		return ErrRoleNotPermitted
	}
}
