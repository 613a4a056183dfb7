package app

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/newrelic/go-agent/v3/integrations/nrpq" // Registers "nrpostgres" driver
	"github.com/newrelic/go-agent/v3/newrelic"

	"ridedispatch/internal/config"
)

// NewDatabase opens the PostgreSQL pool. When nrApp is set the New Relic
// instrumented driver is used so every query becomes a datastore segment.
func NewDatabase(ctx context.Context, cfg config.DatabaseConfig, nrApp *newrelic.Application) (*sqlx.DB, error) {
	driverName := "postgres"
	if nrApp != nil {
		driverName = "nrpostgres"
	}

	sqlDB, err := sql.Open(driverName, cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database with %s: %w", driverName, err)
	}
	// Named queries need the postgres bind type whichever driver is underneath.
	db := sqlx.NewDb(sqlDB, "postgres")

	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}
