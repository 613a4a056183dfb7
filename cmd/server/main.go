package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"ridedispatch/internal/app"
	"ridedispatch/internal/config"
	"ridedispatch/internal/gateway"
	"ridedispatch/internal/handler"
	internalRedis "ridedispatch/internal/redis"
	"ridedispatch/internal/repository/postgres"
	"ridedispatch/internal/service"
)

func main() {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("failed to load config: %v", err)
	}
	logger := app.NewLogger(cfg.Log)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Initialize New Relic FIRST (before database so we can instrument DB).
	var nrApp *newrelic.Application
	if cfg.NewRelic.Enabled && cfg.NewRelic.LicenseKey != "" {
		nrApp, err = newrelic.NewApplication(
			newrelic.ConfigAppName(cfg.NewRelic.AppName),
			newrelic.ConfigLicense(cfg.NewRelic.LicenseKey),
			newrelic.ConfigDistributedTracerEnabled(true),
			newrelic.ConfigAppLogForwardingEnabled(true),
		)
		if err != nil {
			logger.WithError(err).Warn("failed to initialize New Relic")
		} else {
			logger.WithField("app", cfg.NewRelic.AppName).Info("New Relic enabled (with DB instrumentation)")
		}
	}

	db, err := app.NewDatabase(ctx, cfg.Database, nrApp)
	if err != nil {
		logger.WithError(err).Fatal("failed to connect to database")
	}
	defer db.Close()
	logger.Info("Connected to PostgreSQL")

	redisClient, err := app.NewRedisClient(ctx, cfg.Redis, nrApp)
	if err != nil {
		logger.WithError(err).Fatal("failed to connect to redis")
	}
	defer redisClient.Close()
	logger.Info("Connected to Redis")

	var notifier service.Notifier = gateway.NewLogNotifier(logger)
	if cfg.NSQ.Address != "" {
		producer, err := gateway.NewNSQProducer(cfg.NSQ.Address)
		if err != nil {
			logger.WithError(err).Fatal("failed to connect to nsqd")
		}
		defer producer.Stop()
		notifier = gateway.NewNSQNotifier(producer, logger)
		logger.WithField("address", cfg.NSQ.Address).Info("Publishing ride events to NSQ")
	}

	server, dispatch, err := wireServer(db, redisClient, notifier, nrApp, cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("failed to wire server")
	}

	runCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Dispatch.RequestTTL > 0 {
		go app.RunJanitor(runCtx, dispatch, internalRedis.NewLockStore(redisClient), cfg.Dispatch.RequestTTL, cfg.Dispatch.JanitorInterval, logger)
	}

	// Start server in goroutine.
	go func() {
		logger.WithField("port", cfg.Server.Port).Info("Starting server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("server error")
		}
	}()

	// Graceful shutdown.
	<-runCtx.Done()
	logger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("server forced to shutdown")
		os.Exit(1)
	}

	logger.Info("Server exited")
}

// wireServer wires all dependencies and returns the HTTP server together
// with the coordinator the janitor drives.
func wireServer(
	db *sqlx.DB,
	redisClient *redis.Client,
	notifier service.Notifier,
	nrApp *newrelic.Application,
	cfg *config.Config,
	logger *logrus.Logger,
) (*http.Server, *service.DispatchCoordinator, error) {
	strategy, err := service.ParseMatchStrategy(cfg.Dispatch.MatchStrategy)
	if err != nil {
		return nil, nil, err
	}

	store := postgres.NewStore(db)
	cache := internalRedis.NewCacheStore(redisClient, cfg.Redis.RideTTL)

	fares := service.NewFareCalculator(service.FareSchedule{
		BaseFare:    cfg.Pricing.BaseFare,
		RatePerKm:   cfg.Pricing.RatePerKm,
		RatePerStop: cfg.Pricing.RatePerStop,
	})
	matcher := service.NewGeoMatcher(cfg.Dispatch.RadiusMeters, strategy)
	geo := gateway.NewHaversineResolver(cfg.Dispatch.DefaultCountry)
	payments := service.NewPaymentLedger(gateway.NewLocalPaymentGateway(), logger)
	notifications := service.NewNotificationService(notifier, cache, logger)
	lifecycle := service.NewRideLifecycle(payments, notifications, logger)

	var demand service.DemandEstimator
	if cfg.Dispatch.SurgeEnabled {
		demand = service.NewSurgeService(store, service.DefaultSurgeConfig(), logger)
	}

	dispatch := service.NewDispatchCoordinator(store, geo, fares, matcher, lifecycle, payments, demand, notifications, logger)
	rideService := service.NewRideService(store, lifecycle, cache, logger)
	driverService := service.NewDriverService(store, logger)
	customerService := service.NewCustomerService(store)
	participants := service.NewParticipantManager(store, logger)
	admin := service.NewAdminService(store, lifecycle, payments, notifications, logger)

	router := app.NewRouter(app.RouterDeps{
		RideHandler:        handler.NewRideHandler(dispatch, rideService, fares),
		DriverHandler:      handler.NewDriverHandler(driverService),
		CustomerHandler:    handler.NewCustomerHandler(customerService),
		ParticipantHandler: handler.NewParticipantHandler(participants),
		AdminHandler:       handler.NewAdminHandler(admin, dispatch, fares),
		RedisClient:        redisClient,
		NewRelicApp:        nrApp,
		Logger:             logger,
	})

	return &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}, dispatch, nil
}
