package postgres

import (
	"context"

	"github.com/jmoiron/sqlx"

	"ridedispatch/internal/domain"
)

const paymentColumns = `id, ride_id, intent_id, amount, status, created_at, updated_at`

// PaymentRepository is a PostgreSQL implementation of repository.PaymentRepository.
type PaymentRepository struct {
	q Querier
}

// NewPaymentRepository creates a new PostgreSQL payment repository.
func NewPaymentRepository(db *sqlx.DB) *PaymentRepository {
	return &PaymentRepository{q: db}
}

// NewPaymentRepositoryWithTx creates a payment repository using a transaction.
func NewPaymentRepositoryWithTx(tx *sqlx.Tx) *PaymentRepository {
	return &PaymentRepository{q: tx}
}

// Create persists a new payment.
func (r *PaymentRepository) Create(ctx context.Context, payment *domain.Payment) error {
	query := `
		INSERT INTO payments (id, ride_id, intent_id, amount, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.q.ExecContext(ctx, query,
		payment.ID,
		payment.RideID,
		payment.IntentID,
		payment.Amount,
		payment.Status,
		payment.CreatedAt,
		payment.UpdatedAt,
	)
	return translateError(err)
}

// GetByID retrieves a payment by ID.
func (r *PaymentRepository) GetByID(ctx context.Context, id string) (*domain.Payment, error) {
	return r.get(ctx, `SELECT `+paymentColumns+` FROM payments WHERE id = $1`, id)
}

// GetByRideID retrieves the payment attached to a ride.
func (r *PaymentRepository) GetByRideID(ctx context.Context, rideID string) (*domain.Payment, error) {
	return r.get(ctx, `SELECT `+paymentColumns+` FROM payments WHERE ride_id = $1`, rideID)
}

func (r *PaymentRepository) get(ctx context.Context, query string, args ...any) (*domain.Payment, error) {
	var payment domain.Payment
	err := r.q.QueryRowxContext(ctx, query, args...).Scan(
		&payment.ID,
		&payment.RideID,
		&payment.IntentID,
		&payment.Amount,
		&payment.Status,
		&payment.CreatedAt,
		&payment.UpdatedAt,
	)
	if err != nil {
		return nil, translateError(err)
	}
	return &payment, nil
}

// Update persists the amount and status of a payment.
func (r *PaymentRepository) Update(ctx context.Context, payment *domain.Payment) error {
	query := `UPDATE payments SET amount = $1, status = $2, updated_at = $3 WHERE id = $4`
	res, err := r.q.ExecContext(ctx, query, payment.Amount, payment.Status, payment.UpdatedAt, payment.ID)
	return expectAffected(res, err)
}
