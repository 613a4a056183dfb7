package service

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"ridedispatch/internal/domain"
	"ridedispatch/internal/repository"
)

// PaymentLedger keeps a ride's payment row in step with its intent at the
// payment gateway. Every method runs inside the caller's unit of work and,
// apart from Open, defers its gateway call until the unit's row writes are
// done.
type PaymentLedger struct {
	gateway PaymentGateway
	logger  logrus.FieldLogger
}

// NewPaymentLedger creates a new PaymentLedger.
func NewPaymentLedger(gateway PaymentGateway, logger logrus.FieldLogger) *PaymentLedger {
	return &PaymentLedger{gateway: gateway, logger: logger}
}

func intentMetadata(ride *domain.Ride) map[string]string {
	return map[string]string{
		"ride_id":     ride.ID,
		"customer_id": ride.CustomerID,
		"category":    string(ride.Category),
		"country":     ride.CountryCode,
		"stops":       strconv.Itoa(len(ride.Stops)),
	}
}

// Open creates the payment intent for the ride's fare and persists the
// payment row. If the unit of work rolls back, the intent is cancelled.
func (l *PaymentLedger) Open(ctx context.Context, uow repository.UnitOfWork, ride *domain.Ride) (*domain.Payment, error) {
	intentID, err := l.gateway.CreateIntent(ctx, ride.Fare, ride.ID, intentMetadata(ride))
	if err != nil {
		return nil, dependency("create payment intent", err)
	}

	uow.AfterRollback(func() {
		if err := l.gateway.CancelIntent(context.WithoutCancel(ctx), intentID); err != nil {
			l.logger.WithError(err).WithFields(logrus.Fields{
				"ride_id":   ride.ID,
				"intent_id": intentID,
			}).Error("failed to cancel orphaned payment intent")
		}
	})

	now := time.Now().UTC()
	payment := &domain.Payment{
		ID:        uuid.New().String(),
		RideID:    ride.ID,
		IntentID:  intentID,
		Amount:    ride.Fare,
		Status:    domain.PaymentStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := uow.Payments().Create(ctx, payment); err != nil {
		return nil, err
	}
	ride.PaymentID = payment.ID
	return payment, nil
}

// Reprice moves the payment row and its intent from the fare of before to the
// ride's current fare. If the unit rolls back after the intent was updated,
// the intent is moved back.
func (l *PaymentLedger) Reprice(ctx context.Context, uow repository.UnitOfWork, before, ride *domain.Ride) (*domain.Payment, error) {
	payment, err := uow.Payments().GetByRideID(ctx, ride.ID)
	if err != nil {
		return nil, notFound(err, ErrPaymentNotFound)
	}

	previous := payment.Amount
	payment.Amount = ride.Fare
	payment.UpdatedAt = time.Now().UTC()
	if err := uow.Payments().Update(ctx, payment); err != nil {
		return nil, err
	}

	intentID, amount := payment.IntentID, ride.Fare
	metadata, restore := intentMetadata(ride), intentMetadata(before)
	applied := false
	uow.BeforeCommit(func(ctx context.Context) error {
		if err := l.gateway.UpdateIntent(ctx, intentID, amount, metadata); err != nil {
			return dependency("update payment intent", err)
		}
		applied = true
		return nil
	})
	uow.AfterRollback(func() {
		if !applied {
			return
		}
		if err := l.gateway.UpdateIntent(context.WithoutCancel(ctx), intentID, previous, restore); err != nil {
			l.logger.WithError(err).WithFields(logrus.Fields{
				"ride_id":   ride.ID,
				"intent_id": intentID,
				"amount":    previous,
			}).Error("failed to restore payment intent amount")
		}
	})
	return payment, nil
}

// Authorize captures the ride's payment at the gateway. An already
// authorized payment is a no-op.
func (l *PaymentLedger) Authorize(ctx context.Context, uow repository.UnitOfWork, ride *domain.Ride) error {
	payment, err := uow.Payments().GetByRideID(ctx, ride.ID)
	if err != nil {
		return notFound(err, ErrPaymentNotFound)
	}
	if payment.Status == domain.PaymentStatusAuthorized {
		return nil
	}

	if err := l.setStatus(ctx, uow, payment, domain.PaymentStatusAuthorized); err != nil {
		return err
	}
	intentID := payment.IntentID
	uow.BeforeCommit(func(ctx context.Context) error {
		if err := l.gateway.AuthorizeIntent(ctx, intentID); err != nil {
			return dependency("authorize payment intent", err)
		}
		return nil
	})
	return nil
}

// Cancel cancels the ride's intent. A ride without a payment is a no-op.
func (l *PaymentLedger) Cancel(ctx context.Context, uow repository.UnitOfWork, ride *domain.Ride) error {
	payment, err := uow.Payments().GetByRideID(ctx, ride.ID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if payment.Status == domain.PaymentStatusCancelled || payment.Status == domain.PaymentStatusRefunded {
		return nil
	}

	if err := l.setStatus(ctx, uow, payment, domain.PaymentStatusCancelled); err != nil {
		return err
	}
	intentID := payment.IntentID
	uow.BeforeCommit(func(ctx context.Context) error {
		if err := l.gateway.CancelIntent(ctx, intentID); err != nil {
			return dependency("cancel payment intent", err)
		}
		return nil
	})
	return nil
}

// MarkRefunded records that the ride's payment was refunded.
func (l *PaymentLedger) MarkRefunded(ctx context.Context, uow repository.UnitOfWork, ride *domain.Ride) error {
	payment, err := uow.Payments().GetByRideID(ctx, ride.ID)
	if err != nil {
		return notFound(err, ErrPaymentNotFound)
	}
	return l.setStatus(ctx, uow, payment, domain.PaymentStatusRefunded)
}

func (l *PaymentLedger) setStatus(ctx context.Context, uow repository.UnitOfWork, payment *domain.Payment, status domain.PaymentStatus) error {
	payment.Status = status
	payment.UpdatedAt = time.Now().UTC()
	return uow.Payments().Update(ctx, payment)
}
