package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"ridedispatch/internal/domain"
	"ridedispatch/internal/service"
)

// DriverHandler handles HTTP requests for drivers.
type DriverHandler struct {
	driverService *service.DriverService
}

// NewDriverHandler creates a new DriverHandler.
func NewDriverHandler(driverService *service.DriverService) *DriverHandler {
	return &DriverHandler{driverService: driverService}
}

// RegisterDriverRequest is the HTTP request body for driver registration.
type RegisterDriverRequest struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

// SetAvailabilityRequest is the HTTP request body for availability changes.
type SetAvailabilityRequest struct {
	Availability string `json:"availability" binding:"required"`
}

// DriverResponse is the HTTP response for driver data.
type DriverResponse struct {
	ID           string           `json:"id"`
	Name         string           `json:"name"`
	Phone        string           `json:"phone"`
	Availability string           `json:"availability"`
	Location     *domain.GeoPoint `json:"location,omitempty"`
	Rating       float64          `json:"rating"`
	UpdatedAt    time.Time        `json:"updated_at"`
}

func newDriverResponse(d *domain.Driver) DriverResponse {
	return DriverResponse{
		ID:           d.ID,
		Name:         d.Name,
		Phone:        d.Phone,
		Availability: string(d.Availability),
		Location:     d.Location,
		Rating:       d.Rating,
		UpdatedAt:    d.UpdatedAt,
	}
}

// Register handles POST /v1/drivers
func (h *DriverHandler) Register(c *gin.Context) {
	var req RegisterDriverRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	driver, err := h.driverService.Register(c.Request.Context(), service.RegisterDriverRequest{
		Name:  req.Name,
		Phone: req.Phone,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, newDriverResponse(driver))
}

// GetDriver handles GET /v1/drivers/:id
func (h *DriverHandler) GetDriver(c *gin.Context) {
	driver, err := h.driverService.GetDriver(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, newDriverResponse(driver))
}

// UpdateLocation handles POST /v1/drivers/:id/location
func (h *DriverHandler) UpdateLocation(c *gin.Context) {
	var req PointRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	if err := h.driverService.UpdateLocation(c.Request.Context(), principal(c), c.Param("id"), req.point()); err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, gin.H{"status": "location updated"})
}

// SetAvailability handles POST /v1/drivers/:id/availability
func (h *DriverHandler) SetAvailability(c *gin.Context) {
	var req SetAvailabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	availability := domain.Availability(strings.ToUpper(req.Availability))
	driver, err := h.driverService.SetAvailability(c.Request.Context(), principal(c), c.Param("id"), availability)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, newDriverResponse(driver))
}
