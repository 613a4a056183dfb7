package service

import (
	"context"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"ridedispatch/internal/domain"
	"ridedispatch/internal/repository"
)

// AdminService is the privileged path for status overrides, disputes and
// safety alerts. It uses the same lifecycle as every other caller.
type AdminService struct {
	store         repository.Store
	lifecycle     *RideLifecycle
	payments      *PaymentLedger
	notifications *NotificationService
	logger        logrus.FieldLogger
}

// NewAdminService creates a new AdminService.
func NewAdminService(
	store repository.Store,
	lifecycle *RideLifecycle,
	payments *PaymentLedger,
	notifications *NotificationService,
	logger logrus.FieldLogger,
) *AdminService {
	return &AdminService{
		store:         store,
		lifecycle:     lifecycle,
		payments:      payments,
		notifications: notifications,
		logger:        logger,
	}
}

// UpdateStatus moves a ride to target without ownership checks. Entering
// ASSIGNED requires driverID, or the driver already on the ride, to be AVAILABLE.
func (s *AdminService) UpdateStatus(ctx context.Context, rideID string, target domain.RideStatus, driverID, reason string) (*domain.Ride, error) {
	if rideID == "" {
		return nil, ErrInvalidRideID
	}
	if !target.Valid() {
		return nil, ErrInvalidStatus
	}

	var ride *domain.Ride
	err := s.store.WithinTx(ctx, func(ctx context.Context, uow repository.UnitOfWork) error {
		var err error
		ride, err = uow.Rides().GetForUpdate(ctx, rideID)
		if err != nil {
			return notFound(err, ErrRideNotFound)
		}
		return s.lifecycle.Transition(ctx, uow, ride, target, TransitionOptions{DriverID: driverID, Reason: reason})
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{"ride_id": rideID, "status": target}).Info("admin status override")
	return ride, nil
}

// ResolveDispute applies an administrative resolution to a ride. REFUND
// cancels the ride, which releases the driver and cancels the intent, then
// marks the payment refunded. DISMISS and ESCALATE only annotate the ride.
func (s *AdminService) ResolveDispute(ctx context.Context, rideID string, action domain.DisputeAction, reason string) (*domain.Ride, error) {
	if rideID == "" {
		return nil, ErrInvalidRideID
	}
	if !action.Valid() {
		return nil, ErrInvalidAction
	}
	reason = strings.TrimSpace(reason)

	var ride *domain.Ride
	err := s.store.WithinTx(ctx, func(ctx context.Context, uow repository.UnitOfWork) error {
		var err error
		ride, err = uow.Rides().GetForUpdate(ctx, rideID)
		if err != nil {
			return notFound(err, ErrRideNotFound)
		}

		if action == domain.DisputeActionRefund {
			if _, err := uow.Payments().GetByRideID(ctx, ride.ID); err != nil {
				return notFound(err, ErrPaymentNotFound)
			}
			if !CanTransition(ride.Status, domain.RideStatusCancelled) {
				return &TransitionError{From: ride.Status, To: domain.RideStatusCancelled}
			}
			if err := s.lifecycle.Transition(ctx, uow, ride, domain.RideStatusCancelled, TransitionOptions{Reason: reason}); err != nil {
				return err
			}
			if err := s.payments.MarkRefunded(ctx, uow, ride); err != nil {
				return err
			}
		}

		if ride.Dispute == nil {
			ride.Dispute = &domain.DisputeRecord{}
		}
		now := time.Now().UTC()
		ride.Dispute.Resolve(action, reason, now)
		ride.UpdatedAt = now
		if err := uow.Rides().Update(ctx, ride); err != nil {
			return err
		}

		s.notifications.DisputeResolved(ctx, uow, ride, action, reason)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{"ride_id": rideID, "action": action}).Info("dispute resolved")
	return ride, nil
}

// RaiseAlert appends a safety alert to the ride's dispute record.
func (s *AdminService) RaiseAlert(ctx context.Context, rideID, message string, severity domain.AlertSeverity) (*domain.Ride, error) {
	if rideID == "" {
		return nil, ErrInvalidRideID
	}
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, ErrEmptyAlertMessage
	}
	if !severity.Valid() {
		return nil, ErrInvalidSeverity
	}

	var ride *domain.Ride
	err := s.store.WithinTx(ctx, func(ctx context.Context, uow repository.UnitOfWork) error {
		var err error
		ride, err = uow.Rides().GetForUpdate(ctx, rideID)
		if err != nil {
			return notFound(err, ErrRideNotFound)
		}

		now := time.Now().UTC()
		alert := domain.SafetyAlert{Message: message, Severity: severity, RaisedAt: now}
		if ride.Dispute == nil {
			ride.Dispute = &domain.DisputeRecord{}
		}
		ride.Dispute.AddAlert(alert)
		ride.UpdatedAt = now
		if err := uow.Rides().Update(ctx, ride); err != nil {
			return err
		}

		s.notifications.Alert(ctx, uow, ride, alert)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{"ride_id": rideID, "severity": severity}).Warn("safety alert raised")
	return ride, nil
}
