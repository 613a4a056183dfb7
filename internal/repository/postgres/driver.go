package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"ridedispatch/internal/domain"
)

const driverColumns = `id, COALESCE(name, '') AS name, COALESCE(phone, '') AS phone, availability,
	location_lat, location_lng, COALESCE(location_cell, '') AS location_cell, rating, rating_count, updated_at`

// DriverRepository is a PostgreSQL implementation of repository.DriverRepository.
type DriverRepository struct {
	q Querier
}

// NewDriverRepository creates a new PostgreSQL driver repository.
func NewDriverRepository(db *sqlx.DB) *DriverRepository {
	return &DriverRepository{q: db}
}

// NewDriverRepositoryWithTx creates a driver repository using a transaction.
func NewDriverRepositoryWithTx(tx *sqlx.Tx) *DriverRepository {
	return &DriverRepository{q: tx}
}

type driverRow struct {
	ID           string          `db:"id"`
	Name         string          `db:"name"`
	Phone        string          `db:"phone"`
	Availability string          `db:"availability"`
	LocationLat  sql.NullFloat64 `db:"location_lat"`
	LocationLng  sql.NullFloat64 `db:"location_lng"`
	LocationCell string          `db:"location_cell"`
	Rating       float64         `db:"rating"`
	RatingCount  int             `db:"rating_count"`
	UpdatedAt    time.Time       `db:"updated_at"`
}

func (row driverRow) toDomain() *domain.Driver {
	d := &domain.Driver{
		ID:           row.ID,
		Name:         row.Name,
		Phone:        row.Phone,
		Availability: domain.Availability(row.Availability),
		LocationCell: row.LocationCell,
		Rating:       row.Rating,
		RatingCount:  row.RatingCount,
		UpdatedAt:    row.UpdatedAt,
	}
	if row.LocationLat.Valid && row.LocationLng.Valid {
		d.Location = &domain.GeoPoint{Lat: row.LocationLat.Float64, Lng: row.LocationLng.Float64}
	}
	return d
}

// Create adds a new driver.
func (r *DriverRepository) Create(ctx context.Context, driver *domain.Driver) error {
	query := `INSERT INTO drivers (id, name, phone, availability) VALUES ($1, $2, $3, $4)`
	_, err := r.q.ExecContext(ctx, query, driver.ID, driver.Name, driver.Phone, driver.Availability)
	return translateError(err)
}

// GetByID retrieves a driver by ID.
func (r *DriverRepository) GetByID(ctx context.Context, id string) (*domain.Driver, error) {
	return r.get(ctx, `SELECT `+driverColumns+` FROM drivers WHERE id = $1`, id)
}

// GetForUpdate retrieves a driver and locks its row.
func (r *DriverRepository) GetForUpdate(ctx context.Context, id string) (*domain.Driver, error) {
	return r.get(ctx, `SELECT `+driverColumns+` FROM drivers WHERE id = $1 FOR UPDATE`, id)
}

// LockAvailable locks the driver row if it is AVAILABLE and not held by
// another transaction.
func (r *DriverRepository) LockAvailable(ctx context.Context, id string) (*domain.Driver, error) {
	query := `
		SELECT ` + driverColumns + ` FROM drivers
		WHERE id = $1 AND availability = 'AVAILABLE'
		FOR UPDATE SKIP LOCKED
	`
	return r.get(ctx, query, id)
}

func (r *DriverRepository) get(ctx context.Context, query string, args ...any) (*domain.Driver, error) {
	var row driverRow
	if err := sqlx.GetContext(ctx, r.q, &row, query, args...); err != nil {
		return nil, translateError(err)
	}
	return row.toDomain(), nil
}

// ListAvailableInCells returns AVAILABLE drivers with a location in any of the cells.
func (r *DriverRepository) ListAvailableInCells(ctx context.Context, cells []string) ([]*domain.Driver, error) {
	query := `
		SELECT ` + driverColumns + ` FROM drivers
		WHERE availability = 'AVAILABLE'
			AND location_lat IS NOT NULL AND location_lng IS NOT NULL
			AND location_cell = ANY($1)
		ORDER BY updated_at
	`
	var rows []driverRow
	if err := sqlx.SelectContext(ctx, r.q, &rows, query, pq.Array(cells)); err != nil {
		return nil, err
	}
	drivers := make([]*domain.Driver, 0, len(rows))
	for _, row := range rows {
		drivers = append(drivers, row.toDomain())
	}
	return drivers, nil
}

// UpdateAvailability sets the availability of a driver.
func (r *DriverRepository) UpdateAvailability(ctx context.Context, id string, availability domain.Availability) error {
	query := `UPDATE drivers SET availability = $1, updated_at = NOW() WHERE id = $2`
	res, err := r.q.ExecContext(ctx, query, availability, id)
	return expectAffected(res, err)
}

// UpdateLocation stores the latest reported position of a driver.
func (r *DriverRepository) UpdateLocation(ctx context.Context, id string, location domain.GeoPoint, cell string) error {
	query := `
		UPDATE drivers SET location_lat = $1, location_lng = $2, location_cell = $3, updated_at = NOW()
		WHERE id = $4
	`
	res, err := r.q.ExecContext(ctx, query, location.Lat, location.Lng, cell, id)
	return expectAffected(res, err)
}
