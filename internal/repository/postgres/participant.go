package postgres

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"ridedispatch/internal/domain"
)

// ParticipantRepository is a PostgreSQL implementation of repository.ParticipantRepository.
type ParticipantRepository struct {
	q Querier
}

// NewParticipantRepository creates a new PostgreSQL participant repository.
func NewParticipantRepository(db *sqlx.DB) *ParticipantRepository {
	return &ParticipantRepository{q: db}
}

// NewParticipantRepositoryWithTx creates a participant repository using a transaction.
func NewParticipantRepositoryWithTx(tx *sqlx.Tx) *ParticipantRepository {
	return &ParticipantRepository{q: tx}
}

type participantRow struct {
	ID        string    `db:"id"`
	RideID    string    `db:"ride_id"`
	RiderID   string    `db:"rider_id"`
	Status    string    `db:"status"`
	InvitedAt time.Time `db:"invited_at"`
}

// Create adds a participant to a ride.
func (r *ParticipantRepository) Create(ctx context.Context, p *domain.Participant) error {
	query := `INSERT INTO ride_participants (id, ride_id, rider_id, status, invited_at) VALUES ($1, $2, $3, $4, $5)`
	_, err := r.q.ExecContext(ctx, query, p.ID, p.RideID, p.RiderID, p.Status, p.InvitedAt)
	return translateError(err)
}

// Get retrieves the participant record of a rider on a ride.
func (r *ParticipantRepository) Get(ctx context.Context, rideID, riderID string) (*domain.Participant, error) {
	query := `SELECT id, ride_id, rider_id, status, invited_at FROM ride_participants WHERE ride_id = $1 AND rider_id = $2`
	var row participantRow
	if err := sqlx.GetContext(ctx, r.q, &row, query, rideID, riderID); err != nil {
		return nil, translateError(err)
	}
	return row.toDomain(), nil
}

// ListByRide retrieves all participants of a ride in invitation order.
func (r *ParticipantRepository) ListByRide(ctx context.Context, rideID string) ([]*domain.Participant, error) {
	query := `SELECT id, ride_id, rider_id, status, invited_at FROM ride_participants WHERE ride_id = $1 ORDER BY invited_at`
	var rows []participantRow
	if err := sqlx.SelectContext(ctx, r.q, &rows, query, rideID); err != nil {
		return nil, err
	}
	out := make([]*domain.Participant, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

// Delete removes a rider from a ride.
func (r *ParticipantRepository) Delete(ctx context.Context, rideID, riderID string) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM ride_participants WHERE ride_id = $1 AND rider_id = $2`, rideID, riderID)
	return expectAffected(res, err)
}

func (row participantRow) toDomain() *domain.Participant {
	return &domain.Participant{
		ID:        row.ID,
		RideID:    row.RideID,
		RiderID:   row.RiderID,
		Status:    domain.ParticipantStatus(row.Status),
		InvitedAt: row.InvitedAt,
	}
}
