package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"ridedispatch/internal/domain"
)

const rideColumns = `id, customer_id, driver_id, pickup_lat, pickup_lng, pickup_cell, dropoff_lat, dropoff_lng,
	stops, country_code, category, status, fare, distance_km, demand_factor, scheduled_at,
	payment_id, dispute, cancel_reason, cancelled_at, created_at, updated_at`

// RideRepository is a PostgreSQL implementation of repository.RideRepository.
type RideRepository struct {
	q Querier
}

// NewRideRepository creates a new PostgreSQL ride repository.
func NewRideRepository(db *sqlx.DB) *RideRepository {
	return &RideRepository{q: db}
}

// NewRideRepositoryWithTx creates a ride repository using a transaction.
func NewRideRepositoryWithTx(tx *sqlx.Tx) *RideRepository {
	return &RideRepository{q: tx}
}

type rideRow struct {
	ID           string                `db:"id"`
	CustomerID   string                `db:"customer_id"`
	DriverID     sql.NullString        `db:"driver_id"`
	PickupLat    float64               `db:"pickup_lat"`
	PickupLng    float64               `db:"pickup_lng"`
	PickupCell   string                `db:"pickup_cell"`
	DropoffLat   float64               `db:"dropoff_lat"`
	DropoffLng   float64               `db:"dropoff_lng"`
	Stops        domain.Stops          `db:"stops"`
	CountryCode  string                `db:"country_code"`
	Category     string                `db:"category"`
	Status       string                `db:"status"`
	Fare         float64               `db:"fare"`
	DistanceKm   float64               `db:"distance_km"`
	DemandFactor float64               `db:"demand_factor"`
	ScheduledAt  *time.Time            `db:"scheduled_at"`
	PaymentID    sql.NullString        `db:"payment_id"`
	Dispute      *domain.DisputeRecord `db:"dispute"`
	CancelReason sql.NullString        `db:"cancel_reason"`
	CancelledAt  *time.Time            `db:"cancelled_at"`
	CreatedAt    time.Time             `db:"created_at"`
	UpdatedAt    time.Time             `db:"updated_at"`
}

func newRideRow(r *domain.Ride) rideRow {
	return rideRow{
		ID:           r.ID,
		CustomerID:   r.CustomerID,
		DriverID:     nullString(r.DriverID),
		PickupLat:    r.Pickup.Lat,
		PickupLng:    r.Pickup.Lng,
		PickupCell:   r.PickupCell,
		DropoffLat:   r.Dropoff.Lat,
		DropoffLng:   r.Dropoff.Lng,
		Stops:        r.Stops,
		CountryCode:  r.CountryCode,
		Category:     string(r.Category),
		Status:       string(r.Status),
		Fare:         r.Fare,
		DistanceKm:   r.DistanceKm,
		DemandFactor: r.DemandFactor,
		ScheduledAt:  r.ScheduledAt,
		PaymentID:    nullString(r.PaymentID),
		Dispute:      r.Dispute,
		CancelReason: nullString(r.CancelReason),
		CancelledAt:  r.CancelledAt,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

func (row rideRow) toDomain() *domain.Ride {
	return &domain.Ride{
		ID:           row.ID,
		CustomerID:   row.CustomerID,
		DriverID:     row.DriverID.String,
		Pickup:       domain.GeoPoint{Lat: row.PickupLat, Lng: row.PickupLng},
		PickupCell:   row.PickupCell,
		Dropoff:      domain.GeoPoint{Lat: row.DropoffLat, Lng: row.DropoffLng},
		Stops:        row.Stops,
		CountryCode:  row.CountryCode,
		Category:     domain.RideCategory(row.Category),
		Status:       domain.RideStatus(row.Status),
		Fare:         row.Fare,
		DistanceKm:   row.DistanceKm,
		DemandFactor: row.DemandFactor,
		ScheduledAt:  row.ScheduledAt,
		PaymentID:    row.PaymentID.String,
		Dispute:      row.Dispute,
		CancelReason: row.CancelReason.String,
		CancelledAt:  row.CancelledAt,
		CreatedAt:    row.CreatedAt,
		UpdatedAt:    row.UpdatedAt,
	}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// Create persists a new ride.
func (r *RideRepository) Create(ctx context.Context, ride *domain.Ride) error {
	query := `
		INSERT INTO rides (` + rideColumns + `)
		VALUES (:id, :customer_id, :driver_id, :pickup_lat, :pickup_lng, :pickup_cell, :dropoff_lat, :dropoff_lng,
			:stops, :country_code, :category, :status, :fare, :distance_km, :demand_factor, :scheduled_at,
			:payment_id, :dispute, :cancel_reason, :cancelled_at, :created_at, :updated_at)
	`
	_, err := sqlx.NamedExecContext(ctx, r.q, query, newRideRow(ride))
	return translateError(err)
}

// GetByID retrieves a ride by ID.
func (r *RideRepository) GetByID(ctx context.Context, id string) (*domain.Ride, error) {
	return r.get(ctx, `SELECT `+rideColumns+` FROM rides WHERE id = $1`, id)
}

// GetForUpdate retrieves a ride and locks its row for the rest of the transaction.
func (r *RideRepository) GetForUpdate(ctx context.Context, id string) (*domain.Ride, error) {
	return r.get(ctx, `SELECT `+rideColumns+` FROM rides WHERE id = $1 FOR UPDATE`, id)
}

func (r *RideRepository) get(ctx context.Context, query string, args ...any) (*domain.Ride, error) {
	var row rideRow
	if err := sqlx.GetContext(ctx, r.q, &row, query, args...); err != nil {
		return nil, translateError(err)
	}
	return row.toDomain(), nil
}

func (r *RideRepository) list(ctx context.Context, query string, args ...any) ([]*domain.Ride, error) {
	var rows []rideRow
	if err := sqlx.SelectContext(ctx, r.q, &rows, query, args...); err != nil {
		return nil, err
	}
	rides := make([]*domain.Ride, 0, len(rows))
	for _, row := range rows {
		rides = append(rides, row.toDomain())
	}
	return rides, nil
}

// ListByCustomer retrieves the most recent rides of a customer.
func (r *RideRepository) ListByCustomer(ctx context.Context, customerID string, limit int) ([]*domain.Ride, error) {
	query := `SELECT ` + rideColumns + ` FROM rides WHERE customer_id = $1 ORDER BY created_at DESC LIMIT $2`
	return r.list(ctx, query, customerID, limit)
}

// ListByDriver retrieves the most recent rides bound to a driver.
func (r *RideRepository) ListByDriver(ctx context.Context, driverID string, limit int) ([]*domain.Ride, error) {
	query := `SELECT ` + rideColumns + ` FROM rides WHERE driver_id = $1 ORDER BY created_at DESC LIMIT $2`
	return r.list(ctx, query, driverID, limit)
}

// ListRecent retrieves the most recent rides.
func (r *RideRepository) ListRecent(ctx context.Context, limit int) ([]*domain.Ride, error) {
	query := `SELECT ` + rideColumns + ` FROM rides ORDER BY created_at DESC LIMIT $1`
	return r.list(ctx, query, limit)
}

// ListStale retrieves rides in status created before cutoff, oldest first.
func (r *RideRepository) ListStale(ctx context.Context, status domain.RideStatus, cutoff time.Time, limit int) ([]*domain.Ride, error) {
	query := `SELECT ` + rideColumns + ` FROM rides WHERE status = $1 AND created_at < $2 ORDER BY created_at LIMIT $3`
	return r.list(ctx, query, status, cutoff, limit)
}

// CountActiveNear counts unfinished rides whose pickup falls in one of the cells.
func (r *RideRepository) CountActiveNear(ctx context.Context, cells []string) (int, error) {
	query := `
		SELECT COUNT(*) FROM rides
		WHERE status IN ('REQUESTED', 'SCHEDULED', 'ASSIGNED') AND pickup_cell = ANY($1)
	`
	var n int
	if err := sqlx.GetContext(ctx, r.q, &n, query, pq.Array(cells)); err != nil {
		return 0, err
	}
	return n, nil
}

// Update persists every mutable field of an existing ride.
func (r *RideRepository) Update(ctx context.Context, ride *domain.Ride) error {
	query := `
		UPDATE rides SET
			driver_id = :driver_id, dropoff_lat = :dropoff_lat, dropoff_lng = :dropoff_lng,
			stops = :stops, category = :category, status = :status, fare = :fare,
			distance_km = :distance_km, demand_factor = :demand_factor, scheduled_at = :scheduled_at,
			payment_id = :payment_id, dispute = :dispute, cancel_reason = :cancel_reason,
			cancelled_at = :cancelled_at, updated_at = :updated_at
		WHERE id = :id
	`
	res, err := sqlx.NamedExecContext(ctx, r.q, query, newRideRow(ride))
	return expectAffected(res, err)
}
