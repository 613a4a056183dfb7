package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"ridedispatch/internal/domain"
	"ridedispatch/internal/service"
)

// ParticipantHandler handles HTTP requests for ride participants.
type ParticipantHandler struct {
	participants *service.ParticipantManager
}

// NewParticipantHandler creates a new ParticipantHandler.
func NewParticipantHandler(participants *service.ParticipantManager) *ParticipantHandler {
	return &ParticipantHandler{participants: participants}
}

// InviteRequest is the HTTP request body for inviting a rider.
type InviteRequest struct {
	RiderID string `json:"rider_id" binding:"required"`
}

// ParticipantResponse is the HTTP response for a participant.
type ParticipantResponse struct {
	ID        string    `json:"id"`
	RideID    string    `json:"ride_id"`
	RiderID   string    `json:"rider_id"`
	Status    string    `json:"status"`
	InvitedAt time.Time `json:"invited_at"`
}

func newParticipantResponse(p *domain.Participant) ParticipantResponse {
	return ParticipantResponse{
		ID:        p.ID,
		RideID:    p.RideID,
		RiderID:   p.RiderID,
		Status:    string(p.Status),
		InvitedAt: p.InvitedAt,
	}
}

// Invite handles POST /v1/rides/:id/participants
func (h *ParticipantHandler) Invite(c *gin.Context) {
	var req InviteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	participant, err := h.participants.Invite(c.Request.Context(), principal(c), c.Param("id"), req.RiderID)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, newParticipantResponse(participant))
}

// Remove handles DELETE /v1/rides/:id/participants/:rid
func (h *ParticipantHandler) Remove(c *gin.Context) {
	if err := h.participants.Remove(c.Request.Context(), principal(c), c.Param("id"), c.Param("rid")); err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// List handles GET /v1/rides/:id/participants
func (h *ParticipantHandler) List(c *gin.Context) {
	participants, err := h.participants.List(c.Request.Context(), principal(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	out := make([]ParticipantResponse, 0, len(participants))
	for _, p := range participants {
		out = append(out, newParticipantResponse(p))
	}
	respondJSON(c, http.StatusOK, gin.H{"participants": out})
}
