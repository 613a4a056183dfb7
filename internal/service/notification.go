package service

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"ridedispatch/internal/domain"
	"ridedispatch/internal/repository"
)

// NotificationService turns committed ride changes into events.
type NotificationService struct {
	notifier Notifier
	cache    RideCache
	logger   logrus.FieldLogger
}

// NewNotificationService creates a new NotificationService. cache may be nil.
func NewNotificationService(notifier Notifier, cache RideCache, logger logrus.FieldLogger) *NotificationService {
	return &NotificationService{notifier: notifier, cache: cache, logger: logger}
}

// StatusUpdated schedules a ride.statusUpdated event for after commit.
func (s *NotificationService) StatusUpdated(ctx context.Context, uow repository.UnitOfWork, ride *domain.Ride) {
	s.afterCommit(ctx, uow, domain.Event{
		Type:       domain.EventStatusUpdated,
		RideID:     ride.ID,
		CustomerID: ride.CustomerID,
		Status:     ride.Status,
		DriverID:   ride.DriverID,
	})
}

// DisputeResolved schedules a ride.disputeResolved event for after commit.
func (s *NotificationService) DisputeResolved(ctx context.Context, uow repository.UnitOfWork, ride *domain.Ride, action domain.DisputeAction, reason string) {
	s.afterCommit(ctx, uow, domain.Event{
		Type:       domain.EventDisputeResolved,
		RideID:     ride.ID,
		CustomerID: ride.CustomerID,
		Action:     action,
		Reason:     reason,
	})
}

// Alert schedules a ride.alert event for after commit.
func (s *NotificationService) Alert(ctx context.Context, uow repository.UnitOfWork, ride *domain.Ride, alert domain.SafetyAlert) {
	s.afterCommit(ctx, uow, domain.Event{
		Type:       domain.EventAlert,
		RideID:     ride.ID,
		CustomerID: ride.CustomerID,
		Alert:      &alert,
	})
}

// RideChanged drops the cached copy of a ride once the unit commits.
func (s *NotificationService) RideChanged(ctx context.Context, uow repository.UnitOfWork, rideID string) {
	if s.cache == nil {
		return
	}
	uow.AfterCommit(func() {
		if err := s.cache.InvalidateRide(context.WithoutCancel(ctx), rideID); err != nil {
			s.logger.WithError(err).WithField("ride_id", rideID).Warn("failed to invalidate cached ride")
		}
	})
}

func (s *NotificationService) afterCommit(ctx context.Context, uow repository.UnitOfWork, event domain.Event) {
	s.RideChanged(ctx, uow, event.RideID)
	uow.AfterCommit(func() {
		event.OccurredAt = time.Now().UTC()
		s.send(context.WithoutCancel(ctx), event)
	})
}

// send delivers an event. Failures are logged and never returned.
func (s *NotificationService) send(ctx context.Context, event domain.Event) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Publish(ctx, event); err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"event":   event.Type,
			"ride_id": event.RideID,
		}).Error("failed to publish ride event")
	}
}
