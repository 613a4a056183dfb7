package app

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"ridedispatch/internal/domain"
	"ridedispatch/internal/handler"
	"ridedispatch/internal/middleware"
	internalRedis "ridedispatch/internal/redis"
)

// RouterDeps contains all dependencies needed for the router.
type RouterDeps struct {
	RideHandler        *handler.RideHandler
	DriverHandler      *handler.DriverHandler
	CustomerHandler    *handler.CustomerHandler
	ParticipantHandler *handler.ParticipantHandler
	AdminHandler       *handler.AdminHandler
	RedisClient        *redis.Client
	NewRelicApp        *newrelic.Application
	Logger             logrus.FieldLogger
}

// NewRouter creates a new Gin router with all routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	router := gin.New()

	// Global middleware.
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(deps.Logger))
	router.Use(middleware.CORSMiddleware())

	// Add New Relic middleware if enabled.
	if deps.NewRelicApp != nil {
		router.Use(nrgin.Middleware(deps.NewRelicApp))
	}

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := router.Group("/v1")

	// Registration is open; the upstream identity service owns credentials.
	v1.POST("/customers", deps.CustomerHandler.Register)
	v1.GET("/customers/:id", deps.CustomerHandler.GetCustomer)
	v1.POST("/drivers", deps.DriverHandler.Register)
	v1.GET("/drivers/:id", deps.DriverHandler.GetDriver)

	authed := v1.Group("")
	authed.Use(middleware.Principal())
	if deps.NewRelicApp != nil {
		authed.Use(middleware.NewRelicAttributes())
	}
	if deps.RedisClient != nil {
		authed.Use(middleware.Idempotency(internalRedis.NewIdempotencyStore(deps.RedisClient), deps.Logger))
	}

	// Ride routes.
	rides := authed.Group("/rides")
	{
		rides.POST("", deps.RideHandler.RequestRide)
		rides.GET("", deps.RideHandler.ListRides)
		rides.GET("/:id", deps.RideHandler.GetRide)
		rides.POST("/:id/status", deps.RideHandler.ChangeStatus)
		rides.POST("/:id/stops", deps.RideHandler.AddStop)
		rides.POST("/:id/match", deps.RideHandler.RetryMatch)

		rides.GET("/:id/participants", deps.ParticipantHandler.List)
		rides.POST("/:id/participants", deps.ParticipantHandler.Invite)
		rides.DELETE("/:id/participants/:rid", deps.ParticipantHandler.Remove)
	}

	// Driver routes.
	drivers := authed.Group("/drivers")
	{
		drivers.POST("/:id/location", deps.DriverHandler.UpdateLocation)
		drivers.POST("/:id/availability", deps.DriverHandler.SetAvailability)
	}

	// Admin routes.
	admin := authed.Group("/admin")
	admin.Use(middleware.RequireRole(domain.RoleAdmin))
	{
		admin.POST("/rides/expire", deps.AdminHandler.ExpireStale)
		admin.POST("/rides/:id/status", deps.AdminHandler.UpdateStatus)
		admin.POST("/rides/:id/dispute", deps.AdminHandler.ResolveDispute)
		admin.POST("/rides/:id/alerts", deps.AdminHandler.RaiseAlert)
	}

	return router
}
