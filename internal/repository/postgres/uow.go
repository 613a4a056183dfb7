package postgres

import (
	"context"

	"github.com/jmoiron/sqlx"

	"ridedispatch/internal/repository"
)

// Store is the PostgreSQL implementation of repository.Store.
type Store struct {
	db *sqlx.DB
}

// NewStore creates a Store over db.
func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db}
}

var _ repository.Store = (*Store)(nil)

// Rides returns a ride repository outside of any transaction.
func (s *Store) Rides() repository.RideRepository {
	return NewRideRepository(s.db)
}

// Drivers returns a driver repository outside of any transaction.
func (s *Store) Drivers() repository.DriverRepository {
	return NewDriverRepository(s.db)
}

// Payments returns a payment repository outside of any transaction.
func (s *Store) Payments() repository.PaymentRepository {
	return NewPaymentRepository(s.db)
}

// Participants returns a participant repository outside of any transaction.
func (s *Store) Participants() repository.ParticipantRepository {
	return NewParticipantRepository(s.db)
}

// Customers returns a customer repository outside of any transaction.
func (s *Store) Customers() repository.CustomerRepository {
	return NewCustomerRepository(s.db)
}

// WithinTx executes fn within a database transaction.
//   - If fn returns an error, the transaction is rolled back and the error is returned.
//   - If fn panics, the transaction is rolled back and the panic is rethrown.
//   - Otherwise before-commit hooks run in order; the first error rolls back.
//   - On success, the transaction is committed.
//
// After-commit hooks run only when the commit succeeds; after-rollback hooks
// run on every other outcome.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, uow repository.UnitOfWork) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	uow := &unitOfWork{tx: tx}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			uow.rolledBack()
			panic(p)
		}
	}()

	if err := fn(ctx, uow); err != nil {
		_ = tx.Rollback()
		uow.rolledBack()
		return err
	}
	for _, hook := range uow.beforeCommit {
		if err := hook(ctx); err != nil {
			_ = tx.Rollback()
			uow.rolledBack()
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		uow.rolledBack()
		return err
	}
	uow.committed()
	return nil
}

// unitOfWork binds repositories to one transaction.
type unitOfWork struct {
	tx           *sqlx.Tx
	beforeCommit []func(context.Context) error
	onCommit     []func()
	onRollback   []func()
}

func (u *unitOfWork) Rides() repository.RideRepository {
	return NewRideRepositoryWithTx(u.tx)
}

func (u *unitOfWork) Drivers() repository.DriverRepository {
	return NewDriverRepositoryWithTx(u.tx)
}

func (u *unitOfWork) Payments() repository.PaymentRepository {
	return NewPaymentRepositoryWithTx(u.tx)
}

func (u *unitOfWork) Participants() repository.ParticipantRepository {
	return NewParticipantRepositoryWithTx(u.tx)
}

func (u *unitOfWork) Customers() repository.CustomerRepository {
	return NewCustomerRepositoryWithTx(u.tx)
}

func (u *unitOfWork) BeforeCommit(fn func(ctx context.Context) error) {
	u.beforeCommit = append(u.beforeCommit, fn)
}

func (u *unitOfWork) AfterCommit(fn func()) {
	u.onCommit = append(u.onCommit, fn)
}

func (u *unitOfWork) AfterRollback(fn func()) {
	u.onRollback = append(u.onRollback, fn)
}

func (u *unitOfWork) committed() {
	for _, fn := range u.onCommit {
		fn()
	}
}

func (u *unitOfWork) rolledBack() {
	for _, fn := range u.onRollback {
		fn()
	}
}
