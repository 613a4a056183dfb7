package service

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"ridedispatch/internal/domain"
	"ridedispatch/internal/repository"
)

// TransitionTable maps every ride status to the statuses it may move to.
// It is the only source of truth for status changes on every path.
var TransitionTable = map[domain.RideStatus][]domain.RideStatus{
	domain.RideStatusRequested: {domain.RideStatusScheduled, domain.RideStatusAssigned, domain.RideStatusCancelled},
	domain.RideStatusScheduled: {domain.RideStatusAssigned, domain.RideStatusCancelled},
	domain.RideStatusAssigned:  {domain.RideStatusArrived, domain.RideStatusCancelled},
	domain.RideStatusArrived:   {domain.RideStatusStarted, domain.RideStatusCancelled},
	domain.RideStatusStarted:   {domain.RideStatusCompleted},
	domain.RideStatusCompleted: {},
	domain.RideStatusCancelled: {},
}

// CanTransition reports whether the table allows from -> to.
func CanTransition(from, to domain.RideStatus) bool {
	for _, next := range TransitionTable[from] {
		if next == to {
			return true
		}
	}
	return false
}

// AllowedTransitions returns a copy of the statuses reachable from s.
func AllowedTransitions(s domain.RideStatus) []domain.RideStatus {
	return append([]domain.RideStatus(nil), TransitionTable[s]...)
}

// IsTerminal reports whether no transition leaves s.
func IsTerminal(s domain.RideStatus) bool {
	next, ok := TransitionTable[s]
	return ok && len(next) == 0
}

// ParseStatus parses a status name.
func ParseStatus(s string) (domain.RideStatus, error) {
	status := domain.RideStatus(s)
	if !status.Valid() {
		return "", ErrInvalidStatus
	}
	return status, nil
}

// TransitionOptions carries the inputs some transitions need.
type TransitionOptions struct {
	// DriverID is the driver to bind when entering ASSIGNED. When empty the
	// driver already referenced by the ride is used.
	DriverID string

	// Reason is recorded when entering CANCELLED.
	Reason string
}

// RideLifecycle applies status transitions and their side effects.
type RideLifecycle struct {
	payments      *PaymentLedger
	notifications *NotificationService
	logger        logrus.FieldLogger
}

// NewRideLifecycle creates a new RideLifecycle.
func NewRideLifecycle(payments *PaymentLedger, notifications *NotificationService, logger logrus.FieldLogger) *RideLifecycle {
	return &RideLifecycle{
		payments:      payments,
		notifications: notifications,
		logger:        logger,
	}
}

// Transition moves ride to target inside uow. The ride row must already be
// locked by the caller. On success the ride is persisted and a status event
// is scheduled for after commit; on error the caller must abort the unit.
func (l *RideLifecycle) Transition(ctx context.Context, uow repository.UnitOfWork, ride *domain.Ride, target domain.RideStatus, opts TransitionOptions) error {
	if !target.Valid() {
		return ErrInvalidStatus
	}
	if !CanTransition(ride.Status, target) {
		return &TransitionError{From: ride.Status, To: target}
	}

	now := time.Now().UTC()
	switch target {
	case domain.RideStatusScheduled:
		if ride.ScheduledAt == nil {
			return ErrScheduleRequired
		}

	case domain.RideStatusAssigned:
		if err := l.bindDriver(ctx, uow, ride, opts.DriverID); err != nil {
			return err
		}

	case domain.RideStatusCancelled:
		if err := l.releaseDriver(ctx, uow, ride); err != nil {
			return err
		}
		ride.DriverID = ""
		if err := l.payments.Cancel(ctx, uow, ride); err != nil {
			return err
		}
		ride.CancelReason = opts.Reason
		ride.CancelledAt = &now

	case domain.RideStatusCompleted:
		if err := l.payments.Authorize(ctx, uow, ride); err != nil {
			return err
		}
		if err := l.releaseDriver(ctx, uow, ride); err != nil {
			return err
		}
	}

	from := ride.Status
	ride.Status = target
	ride.UpdatedAt = now
	if err := uow.Rides().Update(ctx, ride); err != nil {
		return notFound(err, ErrRideNotFound)
	}

	l.logger.WithFields(logrus.Fields{
		"ride_id":   ride.ID,
		"driver_id": ride.DriverID,
		"from":      from,
		"status":    target,
	}).Info("ride status changed")

	l.notifications.StatusUpdated(ctx, uow, ride)
	return nil
}

// bindDriver locks an AVAILABLE driver, marks it BUSY and binds it to ride.
func (l *RideLifecycle) bindDriver(ctx context.Context, uow repository.UnitOfWork, ride *domain.Ride, driverID string) error {
	if driverID == "" {
		driverID = ride.DriverID
	}
	if driverID == "" {
		return ErrDriverRequired
	}

	if _, err := uow.Drivers().LockAvailable(ctx, driverID); err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			return err
		}
		// The row is missing, not AVAILABLE, or locked by another unit.
		if _, err := uow.Drivers().GetByID(ctx, driverID); err != nil {
			return notFound(err, ErrDriverNotFound)
		}
		return ErrDriverUnavailable
	}

	if err := uow.Drivers().UpdateAvailability(ctx, driverID, domain.AvailabilityBusy); err != nil {
		return notFound(err, ErrDriverNotFound)
	}
	ride.DriverID = driverID
	return nil
}

// releaseDriver returns the ride's driver, if any, to AVAILABLE.
func (l *RideLifecycle) releaseDriver(ctx context.Context, uow repository.UnitOfWork, ride *domain.Ride) error {
	if ride.DriverID == "" {
		return nil
	}
	if _, err := uow.Drivers().GetForUpdate(ctx, ride.DriverID); err != nil {
		return notFound(err, ErrDriverNotFound)
	}
	return uow.Drivers().UpdateAvailability(ctx, ride.DriverID, domain.AvailabilityAvailable)
}
