package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"ridedispatch/internal/domain"
	"ridedispatch/internal/service"
)

// AdminHandler handles the administrative override endpoints.
type AdminHandler struct {
	admin    *service.AdminService
	dispatch *service.DispatchCoordinator
	fares    *service.FareCalculator
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(admin *service.AdminService, dispatch *service.DispatchCoordinator, fares *service.FareCalculator) *AdminHandler {
	return &AdminHandler{admin: admin, dispatch: dispatch, fares: fares}
}

// AdminStatusRequest is the HTTP request body for a status override.
type AdminStatusRequest struct {
	Status   string `json:"status" binding:"required"`
	DriverID string `json:"driver_id"`
	Reason   string `json:"reason"`
}

// DisputeRequest is the HTTP request body for resolving a dispute.
type DisputeRequest struct {
	Action string `json:"action" binding:"required"`
	Reason string `json:"reason"`
}

// AlertRequest is the HTTP request body for raising a safety alert.
type AlertRequest struct {
	Message  string `json:"message" binding:"required"`
	Severity string `json:"severity" binding:"required"`
}

// ExpireRequest is the HTTP request body for expiring stale requests.
type ExpireRequest struct {
	OlderThan string `json:"older_than" binding:"required"` // Go duration, e.g. "15m"
}

// UpdateStatus handles POST /v1/admin/rides/:id/status
func (h *AdminHandler) UpdateStatus(c *gin.Context) {
	var req AdminStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	target, err := service.ParseStatus(strings.ToUpper(req.Status))
	if err != nil {
		respondError(c, err)
		return
	}

	ride, err := h.admin.UpdateStatus(c.Request.Context(), c.Param("id"), target, req.DriverID, req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, newRideResponse(ride, h.fares))
}

// ResolveDispute handles POST /v1/admin/rides/:id/dispute
func (h *AdminHandler) ResolveDispute(c *gin.Context) {
	var req DisputeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	action := domain.DisputeAction(strings.ToUpper(req.Action))
	ride, err := h.admin.ResolveDispute(c.Request.Context(), c.Param("id"), action, req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, newRideResponse(ride, h.fares))
}

// RaiseAlert handles POST /v1/admin/rides/:id/alerts
func (h *AdminHandler) RaiseAlert(c *gin.Context) {
	var req AlertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	severity := domain.AlertSeverity(strings.ToUpper(req.Severity))
	ride, err := h.admin.RaiseAlert(c.Request.Context(), c.Param("id"), req.Message, severity)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, newRideResponse(ride, h.fares))
}

// ExpireStale handles POST /v1/admin/rides/expire
func (h *AdminHandler) ExpireStale(c *gin.Context) {
	var req ExpireRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	olderThan, err := time.ParseDuration(req.OlderThan)
	if err != nil {
		badRequest(c, "older_than must be a duration such as 15m")
		return
	}

	n, err := h.dispatch.ExpireStale(c.Request.Context(), olderThan)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, gin.H{"expired": n})
}
