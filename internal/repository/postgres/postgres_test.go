package postgres

import (
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ridedispatch/internal/repository"
)

var fixedTime = time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)

func setupMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })
	return sqlx.NewDb(mockDB, "postgres"), mock
}

func TestTranslateError(t *testing.T) {
	other := errors.New("connection reset")

	testCases := []struct {
		name string
		in   error
		want error
	}{
		{name: "nil", in: nil, want: nil},
		{name: "no rows", in: sql.ErrNoRows, want: repository.ErrNotFound},
		{name: "unique violation", in: &pq.Error{Code: "23505"}, want: repository.ErrDuplicate},
		{name: "other pq error", in: &pq.Error{Code: "23503"}, want: nil},
		{name: "passthrough", in: other, want: other},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := translateError(tc.in)
			switch {
			case tc.in == nil:
				assert.NoError(t, got)
			case tc.want != nil:
				assert.ErrorIs(t, got, tc.want)
			default:
				assert.Equal(t, tc.in, got)
			}
		})
	}
}

func TestExpectAffected(t *testing.T) {
	assert.NoError(t, expectAffected(sqlmock.NewResult(0, 1), nil))
	assert.ErrorIs(t, expectAffected(sqlmock.NewResult(0, 0), nil), repository.ErrNotFound)
	assert.ErrorIs(t, expectAffected(nil, &pq.Error{Code: "23505"}), repository.ErrDuplicate)

	assert.EqualError(t, expectAffected(sqlmock.NewErrorResult(errors.New("no count")), nil), "no count")
}

func errUniqueViolation() error {
	return &pq.Error{Code: uniqueViolation, Message: "duplicate key value violates unique constraint"}
}
