package service

import (
	"errors"
	"fmt"

	"ridedispatch/internal/domain"
	"ridedispatch/internal/repository"
)

// Error kinds. Every error returned by this package wraps exactly one of them.
var (
	ErrNotFound                = errors.New("not found")
	ErrUnauthorized            = errors.New("unauthorized")
	ErrInvalidInput            = errors.New("invalid input")
	ErrInvalidStatusTransition = errors.New("invalid status transition")
	ErrResourceUnavailable     = errors.New("resource unavailable")
	ErrAlreadyExists           = errors.New("already exists")
	ErrDependencyFailure       = errors.New("dependency failure")
)

// Machine-readable error codes.
const (
	CodeNotFound                = "NOT_FOUND"
	CodeUnauthorized            = "UNAUTHORIZED"
	CodeInvalidInput            = "INVALID_INPUT"
	CodeInvalidStatusTransition = "INVALID_STATUS_TRANSITION"
	CodeResourceUnavailable     = "RESOURCE_UNAVAILABLE"
	CodeAlreadyExists           = "ALREADY_EXISTS"
	CodeDependencyFailure       = "DEPENDENCY_FAILURE"
	CodeInternal                = "INTERNAL"
)

type kindError struct {
	kind error
	msg  string
}

func (e *kindError) Error() string { return e.msg }
func (e *kindError) Unwrap() error { return e.kind }

func newError(kind error, msg string) error {
	return &kindError{kind: kind, msg: msg}
}

var (
	// ErrRideNotFound is returned when a ride does not exist.
	ErrRideNotFound = newError(ErrNotFound, "ride not found")

	// ErrDriverNotFound is returned when a driver does not exist.
	ErrDriverNotFound = newError(ErrNotFound, "driver not found")

	// ErrCustomerNotFound is returned when a customer does not exist.
	ErrCustomerNotFound = newError(ErrNotFound, "customer not found")

	// ErrPaymentNotFound is returned when a ride has no payment.
	ErrPaymentNotFound = newError(ErrNotFound, "payment not found")

	// ErrParticipantNotFound is returned when a rider is not on the ride.
	ErrParticipantNotFound = newError(ErrNotFound, "participant not found")

	ErrNotRideOwner      = newError(ErrUnauthorized, "ride does not belong to principal")
	ErrRoleNotPermitted  = newError(ErrUnauthorized, "role may not perform this action")
	ErrAdminRequired     = newError(ErrUnauthorized, "administrative principal required")
	ErrNotDriverIdentity = newError(ErrUnauthorized, "principal is not this driver")

	ErrInvalidRideID          = newError(ErrInvalidInput, "invalid ride id")
	ErrInvalidCustomerID      = newError(ErrInvalidInput, "invalid customer id")
	ErrInvalidDriverID        = newError(ErrInvalidInput, "invalid driver id")
	ErrInvalidRiderID         = newError(ErrInvalidInput, "invalid rider id")
	ErrInvalidPrincipal       = newError(ErrInvalidInput, "invalid principal")
	ErrInvalidPickupLocation  = newError(ErrInvalidInput, "invalid pickup location")
	ErrInvalidDropoffLocation = newError(ErrInvalidInput, "invalid dropoff location")
	ErrInvalidStopLocation    = newError(ErrInvalidInput, "invalid stop location")
	ErrInvalidLocation        = newError(ErrInvalidInput, "invalid location")
	ErrInvalidCategory        = newError(ErrInvalidInput, "invalid ride category")
	ErrInvalidDemandFactor    = newError(ErrInvalidInput, "demand factor must be >= 0")
	ErrInvalidStatus          = newError(ErrInvalidInput, "invalid ride status")
	ErrInvalidAction          = newError(ErrInvalidInput, "invalid dispute action")
	ErrInvalidSeverity        = newError(ErrInvalidInput, "invalid alert severity")
	ErrInvalidAvailability    = newError(ErrInvalidInput, "invalid availability")
	ErrEmptyAlertMessage      = newError(ErrInvalidInput, "alert message is required")
	ErrScheduleRequired       = newError(ErrInvalidInput, "scheduled time is required")
	ErrScheduleInPast         = newError(ErrInvalidInput, "scheduled time must be in the future")
	ErrInviteOwner            = newError(ErrInvalidInput, "ride owner cannot be invited")
	ErrDriverRequired         = newError(ErrInvalidInput, "a driver is required to assign the ride")
	ErrInvalidRetention       = newError(ErrInvalidInput, "expiry age must be positive")

	ErrRideNotOpen = newError(ErrInvalidStatusTransition, "participants can only change while the ride is requested")
	ErrStopsLocked = newError(ErrInvalidStatusTransition, "stops can only be added before the driver arrives")
	ErrDriverBusy  = newError(ErrInvalidStatusTransition, "driver is busy with a ride")

	// ErrNoDriverAvailable is returned when no driver can be matched.
	ErrNoDriverAvailable = newError(ErrResourceUnavailable, "no driver available")

	// ErrDriverUnavailable is returned when a specific driver cannot be bound.
	ErrDriverUnavailable = newError(ErrResourceUnavailable, "driver is not available")

	// ErrParticipantExists is returned on duplicate invitations.
	ErrParticipantExists = newError(ErrAlreadyExists, "rider already invited to this ride")
)

// TransitionError reports a status change the transition table does not allow.
type TransitionError struct {
	From domain.RideStatus
	To   domain.RideStatus
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot transition ride from %s to %s", e.From, e.To)
}

func (e *TransitionError) Unwrap() error { return ErrInvalidStatusTransition }

// dependency wraps a collaborator failure.
func dependency(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrDependencyFailure, op, err)
}

// notFound translates repository.ErrNotFound into the given error.
func notFound(err, target error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return target
	}
	return err
}

// KindOf returns the stable machine-readable code for err.
func KindOf(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrDependencyFailure):
		return CodeDependencyFailure
	case errors.Is(err, ErrNotFound), errors.Is(err, repository.ErrNotFound):
		return CodeNotFound
	case errors.Is(err, ErrUnauthorized):
		return CodeUnauthorized
	case errors.Is(err, ErrInvalidInput):
		return CodeInvalidInput
	case errors.Is(err, ErrInvalidStatusTransition):
		return CodeInvalidStatusTransition
	case errors.Is(err, ErrResourceUnavailable):
		return CodeResourceUnavailable
	case errors.Is(err, ErrAlreadyExists), errors.Is(err, repository.ErrDuplicate):
		return CodeAlreadyExists
	default:
		return CodeInternal
	}
}
