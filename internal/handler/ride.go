package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"ridedispatch/internal/domain"
	"ridedispatch/internal/service"
)

// RideHandler handles HTTP requests for rides.
type RideHandler struct {
	dispatch    *service.DispatchCoordinator
	rideService *service.RideService
	fares       *service.FareCalculator
}

// NewRideHandler creates a new RideHandler.
func NewRideHandler(dispatch *service.DispatchCoordinator, rideService *service.RideService, fares *service.FareCalculator) *RideHandler {
	return &RideHandler{
		dispatch:    dispatch,
		rideService: rideService,
		fares:       fares,
	}
}

// RequestRideRequest is the HTTP request body for requesting a ride.
type RequestRideRequest struct {
	Pickup       PointRequest   `json:"pickup" binding:"required"`
	Dropoff      PointRequest   `json:"dropoff" binding:"required"`
	Stops        []PointRequest `json:"stops"`
	Category     string         `json:"category"`
	ScheduledAt  *time.Time     `json:"scheduled_at"`
	DemandFactor *float64       `json:"demand_factor"`
}

// ChangeStatusRequest is the HTTP request body for a status change.
type ChangeStatusRequest struct {
	Status string `json:"status" binding:"required"`
	Reason string `json:"reason"`
}

// AddStopRequest is the HTTP request body for adding a stop.
type AddStopRequest struct {
	Stop PointRequest `json:"stop" binding:"required"`
}

// RequestRide handles POST /v1/rides
func (h *RideHandler) RequestRide(c *gin.Context) {
	p := principal(c)
	if p.Role != domain.RoleCustomer {
		respondError(c, service.ErrRoleNotPermitted)
		return
	}

	var req RequestRideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	category, err := service.ParseCategory(req.Category)
	if err != nil {
		respondError(c, err)
		return
	}
	stops := make([]domain.GeoPoint, 0, len(req.Stops))
	for _, s := range req.Stops {
		if s.Lat == nil || s.Lng == nil {
			badRequest(c, "stop coordinates are required")
			return
		}
		stops = append(stops, s.point())
	}

	ride, err := h.dispatch.RequestRide(c.Request.Context(), service.RequestRideInput{
		CustomerID:   p.ID,
		Pickup:       req.Pickup.point(),
		Dropoff:      req.Dropoff.point(),
		Stops:        stops,
		Category:     category,
		ScheduledAt:  req.ScheduledAt,
		DemandFactor: req.DemandFactor,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, newRideResponse(ride, h.fares))
}

// ListRides handles GET /v1/rides
func (h *RideHandler) ListRides(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))

	rides, err := h.rideService.ListRides(c.Request.Context(), principal(c), limit)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, gin.H{"rides": newRideResponses(rides)})
}

// GetRide handles GET /v1/rides/:id
func (h *RideHandler) GetRide(c *gin.Context) {
	ride, err := h.rideService.GetRide(c.Request.Context(), principal(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, newRideResponse(ride, h.fares))
}

// ChangeStatus handles POST /v1/rides/:id/status
func (h *RideHandler) ChangeStatus(c *gin.Context) {
	var req ChangeStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	target, err := service.ParseStatus(req.Status)
	if err != nil {
		respondError(c, err)
		return
	}

	ride, err := h.rideService.ChangeStatus(c.Request.Context(), principal(c), service.ChangeStatusRequest{
		RideID: c.Param("id"),
		Target: target,
		Reason: req.Reason,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, newRideResponse(ride, h.fares))
}

// AddStop handles POST /v1/rides/:id/stops
func (h *RideHandler) AddStop(c *gin.Context) {
	var req AddStopRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	ride, err := h.dispatch.AddStop(c.Request.Context(), principal(c), c.Param("id"), req.Stop.point())
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, newRideResponse(ride, h.fares))
}

// RetryMatch handles POST /v1/rides/:id/match
func (h *RideHandler) RetryMatch(c *gin.Context) {
	ride, err := h.dispatch.RetryMatch(c.Request.Context(), principal(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, newRideResponse(ride, h.fares))
}
