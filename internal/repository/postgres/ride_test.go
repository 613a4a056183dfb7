package postgres

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ridedispatch/internal/domain"
	"ridedispatch/internal/repository"
)

var rideColumnNames = []string{
	"id", "customer_id", "driver_id", "pickup_lat", "pickup_lng", "pickup_cell", "dropoff_lat", "dropoff_lng",
	"stops", "country_code", "category", "status", "fare", "distance_km", "demand_factor", "scheduled_at",
	"payment_id", "dispute", "cancel_reason", "cancelled_at", "created_at", "updated_at",
}

func rideRows() *sqlmock.Rows {
	return sqlmock.NewRows(rideColumnNames).
		AddRow("ride-1", "cust-1", "drv-1", 40.7128, -74.006, "dr5r", 40.73, -73.99,
			[]byte(`[{"lat":40.72,"lng":-74.0}]`), "US", "STANDARD", "ASSIGNED", 12.4, 3.1, 1.0, nil,
			"pay-1", []byte(`{"action":"DISMISS","reason":"no fault"}`), nil, nil, fixedTime, fixedTime)
}

func TestRideRepository_Create(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewRideRepository(db)

	ride := &domain.Ride{
		ID:          "ride-1",
		CustomerID:  "cust-1",
		Pickup:      domain.GeoPoint{Lat: 40.7128, Lng: -74.006},
		PickupCell:  "dr5r",
		Dropoff:     domain.GeoPoint{Lat: 40.73, Lng: -73.99},
		CountryCode: "US",
		Category:    domain.RideCategoryStandard,
		Status:      domain.RideStatusRequested,
		CreatedAt:   fixedTime,
		UpdatedAt:   fixedTime,
	}

	mock.ExpectExec("^INSERT INTO rides").WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, repo.Create(context.Background(), ride))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRideRepository_CreateDuplicate(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewRideRepository(db)

	mock.ExpectExec("^INSERT INTO rides").WillReturnError(errUniqueViolation())

	err := repo.Create(context.Background(), &domain.Ride{ID: "ride-1", CreatedAt: fixedTime, UpdatedAt: fixedTime})
	assert.ErrorIs(t, err, repository.ErrDuplicate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRideRepository_GetByID(t *testing.T) {
	testCases := []struct {
		name       string
		mockSetup  func(mock sqlmock.Sqlmock)
		assertFunc func(t *testing.T, ride *domain.Ride, err error)
	}{
		{
			name: "Success",
			mockSetup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(regexp.QuoteMeta("FROM rides WHERE id = $1")).
					WithArgs("ride-1").
					WillReturnRows(rideRows())
			},
			assertFunc: func(t *testing.T, ride *domain.Ride, err error) {
				require.NoError(t, err)
				assert.Equal(t, "ride-1", ride.ID)
				assert.Equal(t, "drv-1", ride.DriverID)
				assert.Equal(t, domain.RideStatusAssigned, ride.Status)
				assert.Equal(t, domain.RideCategoryStandard, ride.Category)
				assert.Equal(t, domain.GeoPoint{Lat: 40.7128, Lng: -74.006}, ride.Pickup)
				assert.Equal(t, domain.Stops{{Lat: 40.72, Lng: -74.0}}, ride.Stops)
				assert.Equal(t, 12.4, ride.Fare)
				assert.Equal(t, "pay-1", ride.PaymentID)
				require.NotNil(t, ride.Dispute)
				assert.Equal(t, domain.DisputeActionDismiss, ride.Dispute.Action)
				assert.Empty(t, ride.CancelReason)
				assert.Nil(t, ride.ScheduledAt)
			},
		},
		{
			name: "Not Found",
			mockSetup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(regexp.QuoteMeta("FROM rides WHERE id = $1")).
					WithArgs("ride-1").
					WillReturnError(sql.ErrNoRows)
			},
			assertFunc: func(t *testing.T, ride *domain.Ride, err error) {
				assert.ErrorIs(t, err, repository.ErrNotFound)
				assert.Nil(t, ride)
			},
		},
		{
			name: "Database Error",
			mockSetup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(regexp.QuoteMeta("FROM rides WHERE id = $1")).
					WithArgs("ride-1").
					WillReturnError(errors.New("database error"))
			},
			assertFunc: func(t *testing.T, ride *domain.Ride, err error) {
				assert.EqualError(t, err, "database error")
				assert.Nil(t, ride)
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			db, mock := setupMockDB(t)
			tc.mockSetup(mock)

			ride, err := NewRideRepository(db).GetByID(context.Background(), "ride-1")

			tc.assertFunc(t, ride, err)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestRideRepository_GetForUpdateLocksRow(t *testing.T) {
	db, mock := setupMockDB(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM rides WHERE id = $1 FOR UPDATE")).
		WithArgs("ride-1").
		WillReturnRows(rideRows())

	ride, err := NewRideRepository(db).GetForUpdate(context.Background(), "ride-1")
	require.NoError(t, err)
	assert.Equal(t, "ride-1", ride.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRideRepository_Lists(t *testing.T) {
	ctx := context.Background()

	t.Run("ByCustomer", func(t *testing.T) {
		db, mock := setupMockDB(t)
		mock.ExpectQuery(regexp.QuoteMeta("WHERE customer_id = $1 ORDER BY created_at DESC LIMIT $2")).
			WithArgs("cust-1", 20).
			WillReturnRows(rideRows())

		rides, err := NewRideRepository(db).ListByCustomer(ctx, "cust-1", 20)
		require.NoError(t, err)
		assert.Len(t, rides, 1)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("ByDriver", func(t *testing.T) {
		db, mock := setupMockDB(t)
		mock.ExpectQuery(regexp.QuoteMeta("WHERE driver_id = $1 ORDER BY created_at DESC LIMIT $2")).
			WithArgs("drv-1", 5).
			WillReturnRows(sqlmock.NewRows(rideColumnNames))

		rides, err := NewRideRepository(db).ListByDriver(ctx, "drv-1", 5)
		require.NoError(t, err)
		assert.Empty(t, rides)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Stale", func(t *testing.T) {
		db, mock := setupMockDB(t)
		mock.ExpectQuery(regexp.QuoteMeta("WHERE status = $1 AND created_at < $2 ORDER BY created_at LIMIT $3")).
			WithArgs(domain.RideStatusRequested, fixedTime, 100).
			WillReturnRows(rideRows())

		rides, err := NewRideRepository(db).ListStale(ctx, domain.RideStatusRequested, fixedTime, 100)
		require.NoError(t, err)
		assert.Len(t, rides, 1)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Error", func(t *testing.T) {
		db, mock := setupMockDB(t)
		mock.ExpectQuery("FROM rides ORDER BY created_at DESC").WillReturnError(errors.New("timeout"))

		rides, err := NewRideRepository(db).ListRecent(ctx, 10)
		assert.EqualError(t, err, "timeout")
		assert.Nil(t, rides)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestRideRepository_CountActiveNear(t *testing.T) {
	db, mock := setupMockDB(t)

	mock.ExpectQuery("SELECT COUNT").
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(7))

	n, err := NewRideRepository(db).CountActiveNear(context.Background(), []string{"dr5r", "dr5x"})
	require.NoError(t, err)
	assert.Equal(t, 7, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRideRepository_Update(t *testing.T) {
	ride := &domain.Ride{ID: "ride-1", Status: domain.RideStatusCancelled, CancelReason: "changed plans", UpdatedAt: fixedTime}

	t.Run("Success", func(t *testing.T) {
		db, mock := setupMockDB(t)
		mock.ExpectExec("^UPDATE rides SET").WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, NewRideRepository(db).Update(context.Background(), ride))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Missing", func(t *testing.T) {
		db, mock := setupMockDB(t)
		mock.ExpectExec("^UPDATE rides SET").WillReturnResult(sqlmock.NewResult(0, 0))

		err := NewRideRepository(db).Update(context.Background(), ride)
		assert.ErrorIs(t, err, repository.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
