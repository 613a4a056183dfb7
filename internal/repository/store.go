package repository

import "context"

// Repositories groups the repositories bound to one connection or transaction.
type Repositories interface {
	Rides() RideRepository
	Drivers() DriverRepository
	Payments() PaymentRepository
	Participants() ParticipantRepository
	Customers() CustomerRepository
}

// UnitOfWork is an open atomic unit. Repositories obtained from it share the
// unit's transaction and row locks.
type UnitOfWork interface {
	Repositories

	// BeforeCommit registers fn to run after every row write of the unit and
	// before it commits. An error rolls the unit back.
	BeforeCommit(fn func(ctx context.Context) error)

	// AfterCommit registers fn to run once the unit has committed.
	AfterCommit(fn func())

	// AfterRollback registers fn to run once the unit has rolled back.
	AfterRollback(fn func())
}

// Store opens units of work and serves reads outside of one.
type Store interface {
	Repositories

	// WithinTx runs fn inside a unit of work. The unit commits when fn
	// returns nil and rolls back when fn returns an error or panics.
	// Hooks registered on the unit run after the outcome is final.
	WithinTx(ctx context.Context, fn func(ctx context.Context, uow UnitOfWork) error) error
}
