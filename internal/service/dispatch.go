package service

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"ridedispatch/internal/domain"
	"ridedispatch/internal/repository"
)

const expireBatchSize = 100

// ExpiredReason is the cancel reason recorded on rides removed by ExpireStale.
const ExpiredReason = "expired"

// DispatchCoordinator creates rides, matches them to drivers and keeps their
// fare and payment in step with the route.
type DispatchCoordinator struct {
	store         repository.Store
	geo           GeoResolver
	fares         *FareCalculator
	matcher       *GeoMatcher
	lifecycle     *RideLifecycle
	payments      *PaymentLedger
	demand        DemandEstimator
	notifications *NotificationService
	logger        logrus.FieldLogger
}

// NewDispatchCoordinator creates a new DispatchCoordinator. demand may be nil.
func NewDispatchCoordinator(
	store repository.Store,
	geo GeoResolver,
	fares *FareCalculator,
	matcher *GeoMatcher,
	lifecycle *RideLifecycle,
	payments *PaymentLedger,
	demand DemandEstimator,
	notifications *NotificationService,
	logger logrus.FieldLogger,
) *DispatchCoordinator {
	return &DispatchCoordinator{
		store:         store,
		geo:           geo,
		fares:         fares,
		matcher:       matcher,
		lifecycle:     lifecycle,
		payments:      payments,
		demand:        demand,
		notifications: notifications,
		logger:        logger,
	}
}

// RequestRideInput contains the parameters for requesting a ride.
type RequestRideInput struct {
	CustomerID  string
	Pickup      domain.GeoPoint
	Dropoff     domain.GeoPoint
	Stops       []domain.GeoPoint
	Category    domain.RideCategory
	ScheduledAt *time.Time

	// DemandFactor overrides the estimated demand when set.
	DemandFactor *float64
}

func (in RequestRideInput) validate(now time.Time) error {
	if in.CustomerID == "" {
		return ErrInvalidCustomerID
	}
	if !in.Pickup.Valid() {
		return ErrInvalidPickupLocation
	}
	if !in.Dropoff.Valid() {
		return ErrInvalidDropoffLocation
	}
	for _, stop := range in.Stops {
		if !stop.Valid() {
			return ErrInvalidStopLocation
		}
	}
	if _, ok := CategoryMultiplier(in.Category); !ok {
		return ErrInvalidCategory
	}
	if in.DemandFactor != nil && (*in.DemandFactor < 0 || math.IsNaN(*in.DemandFactor) || math.IsInf(*in.DemandFactor, 0)) {
		return ErrInvalidDemandFactor
	}
	if in.ScheduledAt != nil && !in.ScheduledAt.After(now) {
		return ErrScheduleInPast
	}
	return nil
}

// RequestRide creates a ride with its payment intent. On-demand rides are
// bound to the first lockable candidate; without one the ride stays
// REQUESTED. Rides with a scheduled time start SCHEDULED.
func (c *DispatchCoordinator) RequestRide(ctx context.Context, in RequestRideInput) (*domain.Ride, error) {
	if in.Category == "" {
		in.Category = domain.RideCategoryStandard
	}
	now := time.Now().UTC()
	if err := in.validate(now); err != nil {
		return nil, err
	}

	pickup, err := c.resolve(ctx, in.Pickup)
	if err != nil {
		return nil, err
	}
	dropoff, err := c.resolve(ctx, in.Dropoff)
	if err != nil {
		return nil, err
	}
	stops := make(domain.Stops, 0, len(in.Stops))
	for _, s := range in.Stops {
		p, err := c.resolve(ctx, s)
		if err != nil {
			return nil, err
		}
		stops = append(stops, p)
	}

	country, err := c.geo.CountryOf(ctx, pickup)
	if err != nil {
		return nil, dependency("resolve country", err)
	}

	ride := &domain.Ride{
		ID:          uuid.New().String(),
		CustomerID:  in.CustomerID,
		Pickup:      pickup,
		PickupCell:  LocationCell(pickup),
		Dropoff:     dropoff,
		Stops:       stops,
		CountryCode: country,
		Category:    in.Category,
		Status:      domain.RideStatusRequested,
		ScheduledAt: in.ScheduledAt,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if in.ScheduledAt != nil {
		ride.Status = domain.RideStatusScheduled
	}

	if ride.DistanceKm, err = c.routeKm(ctx, ride); err != nil {
		return nil, err
	}
	ride.DemandFactor = c.demandFactor(ctx, in, pickup)
	c.price(ride)

	err = c.store.WithinTx(ctx, func(ctx context.Context, uow repository.UnitOfWork) error {
		if _, err := uow.Customers().GetByID(ctx, ride.CustomerID); err != nil {
			return notFound(err, ErrCustomerNotFound)
		}

		if err := uow.Rides().Create(ctx, ride); err != nil {
			return err
		}
		if _, err := c.payments.Open(ctx, uow, ride); err != nil {
			return err
		}
		if err := uow.Rides().Update(ctx, ride); err != nil {
			return err
		}

		if ride.Status == domain.RideStatusRequested {
			matched, err := c.assignFirstAvailable(ctx, uow, ride)
			if err != nil {
				return err
			}
			if matched {
				return nil
			}
		}
		c.notifications.StatusUpdated(ctx, uow, ride)
		return nil
	})
	if err != nil {
		return nil, err
	}

	c.logger.WithFields(logrus.Fields{
		"ride_id":     ride.ID,
		"customer_id": ride.CustomerID,
		"driver_id":   ride.DriverID,
		"status":      ride.Status,
		"fare":        ride.Fare,
	}).Info("ride requested")
	return ride, nil
}

// AddStop appends a stop before the dropoff and reprices the ride and its
// payment intent.
func (c *DispatchCoordinator) AddStop(ctx context.Context, principal domain.Principal, rideID string, stop domain.GeoPoint) (*domain.Ride, error) {
	if rideID == "" {
		return nil, ErrInvalidRideID
	}
	if !stop.Valid() {
		return nil, ErrInvalidStopLocation
	}
	stop, err := c.resolve(ctx, stop)
	if err != nil {
		return nil, err
	}

	var ride *domain.Ride
	err = c.store.WithinTx(ctx, func(ctx context.Context, uow repository.UnitOfWork) error {
		var err error
		ride, err = uow.Rides().GetForUpdate(ctx, rideID)
		if err != nil {
			return notFound(err, ErrRideNotFound)
		}
		if err := authorizeCustomer(principal, ride); err != nil {
			return err
		}
		switch ride.Status {
		case domain.RideStatusRequested, domain.RideStatusScheduled, domain.RideStatusAssigned:
		default:
			return ErrStopsLocked
		}

		before := *ride
		ride.Stops = append(ride.Stops, stop)
		if ride.DistanceKm, err = c.routeKm(ctx, ride); err != nil {
			return err
		}
		c.price(ride)
		ride.UpdatedAt = time.Now().UTC()

		if err := uow.Rides().Update(ctx, ride); err != nil {
			return err
		}
		if _, err := c.payments.Reprice(ctx, uow, &before, ride); err != nil {
			return err
		}
		c.notifications.RideChanged(ctx, uow, ride.ID)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ride, nil
}

// RetryMatch attempts to bind a driver to a REQUESTED or SCHEDULED ride.
func (c *DispatchCoordinator) RetryMatch(ctx context.Context, principal domain.Principal, rideID string) (*domain.Ride, error) {
	if rideID == "" {
		return nil, ErrInvalidRideID
	}

	var ride *domain.Ride
	err := c.store.WithinTx(ctx, func(ctx context.Context, uow repository.UnitOfWork) error {
		var err error
		ride, err = uow.Rides().GetForUpdate(ctx, rideID)
		if err != nil {
			return notFound(err, ErrRideNotFound)
		}
		if err := authorizeCustomer(principal, ride); err != nil {
			return err
		}
		if !CanTransition(ride.Status, domain.RideStatusAssigned) {
			return &TransitionError{From: ride.Status, To: domain.RideStatusAssigned}
		}

		matched, err := c.assignFirstAvailable(ctx, uow, ride)
		if err != nil {
			return err
		}
		if !matched {
			return ErrNoDriverAvailable
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ride, nil
}

// ExpireStale cancels REQUESTED rides created more than olderThan ago and
// returns how many were cancelled.
func (c *DispatchCoordinator) ExpireStale(ctx context.Context, olderThan time.Duration) (int, error) {
	if olderThan <= 0 {
		return 0, ErrInvalidRetention
	}
	cutoff := time.Now().UTC().Add(-olderThan)

	stale, err := c.store.Rides().ListStale(ctx, domain.RideStatusRequested, cutoff, expireBatchSize)
	if err != nil {
		return 0, err
	}

	expired := 0
	for _, candidate := range stale {
		cancelled := false
		err := c.store.WithinTx(ctx, func(ctx context.Context, uow repository.UnitOfWork) error {
			cancelled = false
			ride, err := uow.Rides().GetForUpdate(ctx, candidate.ID)
			if err != nil {
				return notFound(err, ErrRideNotFound)
			}
			if ride.Status != domain.RideStatusRequested {
				return nil
			}
			if err := c.lifecycle.Transition(ctx, uow, ride, domain.RideStatusCancelled, TransitionOptions{Reason: ExpiredReason}); err != nil {
				return err
			}
			cancelled = true
			return nil
		})
		if err != nil {
			c.logger.WithError(err).WithField("ride_id", candidate.ID).Warn("failed to expire ride")
			continue
		}
		if cancelled {
			expired++
		}
	}
	return expired, nil
}

// assignFirstAvailable walks the candidates and binds the first driver whose
// row can be locked while still AVAILABLE.
func (c *DispatchCoordinator) assignFirstAvailable(ctx context.Context, uow repository.UnitOfWork, ride *domain.Ride) (bool, error) {
	candidates, err := c.matcher.FindCandidates(ctx, uow.Drivers(), ride.Pickup)
	if err != nil {
		return false, err
	}

	for _, cand := range candidates {
		err := c.lifecycle.Transition(ctx, uow, ride, domain.RideStatusAssigned, TransitionOptions{DriverID: cand.Driver.ID})
		if err == nil {
			return true, nil
		}
		if !errors.Is(err, ErrResourceUnavailable) {
			return false, err
		}
	}
	return false, nil
}

func (c *DispatchCoordinator) resolve(ctx context.Context, p domain.GeoPoint) (domain.GeoPoint, error) {
	resolved, err := c.geo.ResolveLocation(ctx, p)
	if err != nil {
		return domain.GeoPoint{}, dependency("resolve location", err)
	}
	return resolved, nil
}

// routeKm measures pickup -> stops -> dropoff, kept to meter precision.
func (c *DispatchCoordinator) routeKm(ctx context.Context, ride *domain.Ride) (float64, error) {
	meters, err := c.geo.CalculateDistance(ctx, ride.Route())
	if err != nil {
		return 0, dependency("calculate distance", err)
	}
	return math.Round(meters) / 1000, nil
}

func (c *DispatchCoordinator) demandFactor(ctx context.Context, in RequestRideInput, pickup domain.GeoPoint) float64 {
	if in.DemandFactor != nil {
		return *in.DemandFactor
	}
	if c.demand != nil {
		return c.demand.DemandFactor(ctx, pickup)
	}
	return 1.0
}

func (c *DispatchCoordinator) price(ride *domain.Ride) {
	ride.Fare = c.fares.Calculate(ride.DistanceKm, ride.Category, ride.DemandFactor, len(ride.Stops))
}
