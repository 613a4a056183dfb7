package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 5000.0, cfg.Dispatch.RadiusMeters)
	assert.Equal(t, "first", cfg.Dispatch.MatchStrategy)
	assert.Equal(t, 15*time.Minute, cfg.Dispatch.RequestTTL)
	assert.Equal(t, 2.50, cfg.Pricing.BaseFare)
	assert.Equal(t, 10*time.Second, cfg.Redis.RideTTL)
	assert.Empty(t, cfg.NSQ.Address)
}

func TestLoad_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	yaml := []byte(`
server:
  port: "9090"
dispatch:
  match_strategy: nearest
  radius_m: 2500
pricing:
  rate_per_km: 2
`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), yaml, 0o600))
	t.Setenv("DATABASE_HOST", "db.internal")

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "nearest", cfg.Dispatch.MatchStrategy)
	assert.Equal(t, 2500.0, cfg.Dispatch.RadiusMeters)
	assert.Equal(t, 2.0, cfg.Pricing.RatePerKm)
	assert.Equal(t, 1.0, cfg.Pricing.RatePerStop)
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Contains(t, cfg.Database.DSN(), "host=db.internal")
}

func TestValidate(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	cfg.Dispatch.RadiusMeters = 0
	assert.Error(t, cfg.Validate())

	cfg.Dispatch.RadiusMeters = 100
	cfg.Dispatch.JanitorInterval = 0
	assert.Error(t, cfg.Validate())

	cfg.Dispatch.RequestTTL = 0
	assert.NoError(t, cfg.Validate())

	cfg.Pricing.BaseFare = -1
	assert.Error(t, cfg.Validate())
}
