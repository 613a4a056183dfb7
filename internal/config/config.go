package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	NewRelic NewRelicConfig `mapstructure:"newrelic"`
	Log      LogConfig      `mapstructure:"log"`
	NSQ      NSQConfig      `mapstructure:"nsq"`
	Dispatch DispatchConfig `mapstructure:"dispatch"`
	Pricing  PricingConfig  `mapstructure:"pricing"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port            string        `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig holds PostgreSQL configuration.
type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

// DSN returns the lib/pq connection string.
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

// RedisConfig holds Redis configuration.
type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	PoolSize int           `mapstructure:"pool_size"`
	RideTTL  time.Duration `mapstructure:"ride_ttl"`
}

// NewRelicConfig holds New Relic configuration.
type NewRelicConfig struct {
	AppName    string `mapstructure:"app_name"`
	LicenseKey string `mapstructure:"license_key"`
	Enabled    bool   `mapstructure:"enabled"`
}

// LogConfig holds logger configuration.
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// NSQConfig holds the event publisher configuration. An empty address
// makes the service log events instead of publishing them.
type NSQConfig struct {
	Address string `mapstructure:"address"`
}

// DispatchConfig holds matching and housekeeping settings.
type DispatchConfig struct {
	RadiusMeters    float64       `mapstructure:"radius_m"`
	MatchStrategy   string        `mapstructure:"match_strategy"`
	DefaultCountry  string        `mapstructure:"default_country"`
	RequestTTL      time.Duration `mapstructure:"request_ttl"`
	JanitorInterval time.Duration `mapstructure:"janitor_interval"`
	SurgeEnabled    bool          `mapstructure:"surge_enabled"`
}

// PricingConfig holds the tariff constants.
type PricingConfig struct {
	BaseFare    float64 `mapstructure:"base_fare"`
	RatePerKm   float64 `mapstructure:"rate_per_km"`
	RatePerStop float64 `mapstructure:"rate_per_stop"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.read_timeout", 10*time.Second)
	v.SetDefault("server.write_timeout", 10*time.Second)
	v.SetDefault("server.shutdown_timeout", 5*time.Second)

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.dbname", "ride_dispatch")
	v.SetDefault("database.sslmode", "disable")

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.ride_ttl", 10*time.Second)

	v.SetDefault("newrelic.app_name", "ride-dispatch-service")
	v.SetDefault("newrelic.license_key", "")
	v.SetDefault("newrelic.enabled", false)

	v.SetDefault("log.level", "info")

	v.SetDefault("nsq.address", "")

	v.SetDefault("dispatch.radius_m", 5000.0)
	v.SetDefault("dispatch.match_strategy", "first")
	v.SetDefault("dispatch.default_country", "US")
	v.SetDefault("dispatch.request_ttl", 15*time.Minute)
	v.SetDefault("dispatch.janitor_interval", time.Minute)
	v.SetDefault("dispatch.surge_enabled", true)

	v.SetDefault("pricing.base_fare", 2.50)
	v.SetDefault("pricing.rate_per_km", 1.20)
	v.SetDefault("pricing.rate_per_stop", 1.00)
}

// Load reads config.yaml from the given paths (./config when none are
// given) and overlays environment variables such as DATABASE_HOST or
// DISPATCH_MATCH_STRATEGY. A missing config file is not an error.
func Load(paths ...string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if len(paths) == 0 {
		paths = []string{"./config"}
	}
	for _, p := range paths {
		v.AddConfigPath(p)
	}
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values that would otherwise fail later at wiring time.
func (c *Config) Validate() error {
	if c.Dispatch.RadiusMeters <= 0 {
		return errors.New("dispatch.radius_m must be positive")
	}
	if c.Dispatch.RequestTTL < 0 {
		return errors.New("dispatch.request_ttl must not be negative")
	}
	if c.Dispatch.RequestTTL > 0 && c.Dispatch.JanitorInterval <= 0 {
		return errors.New("dispatch.janitor_interval must be positive when request_ttl is set")
	}
	if c.Pricing.BaseFare < 0 || c.Pricing.RatePerKm < 0 || c.Pricing.RatePerStop < 0 {
		return errors.New("pricing values must not be negative")
	}
	return nil
}
