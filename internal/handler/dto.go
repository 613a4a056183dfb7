package handler

import (
	"time"

	"ridedispatch/internal/domain"
	"ridedispatch/internal/service"
)

// PointRequest is a coordinate in a request body.
type PointRequest struct {
	Lat *float64 `json:"lat" binding:"required"`
	Lng *float64 `json:"lng" binding:"required"`
}

func (p PointRequest) point() domain.GeoPoint {
	return domain.GeoPoint{Lat: *p.Lat, Lng: *p.Lng}
}

// RideResponse is the HTTP representation of a ride.
type RideResponse struct {
	ID           string                 `json:"id"`
	CustomerID   string                 `json:"customer_id"`
	DriverID     string                 `json:"driver_id,omitempty"`
	Pickup       domain.GeoPoint        `json:"pickup"`
	Dropoff      domain.GeoPoint        `json:"dropoff"`
	Stops        []domain.GeoPoint      `json:"stops"`
	CountryCode  string                 `json:"country_code"`
	Category     string                 `json:"category"`
	Status       string                 `json:"status"`
	Fare         float64                `json:"fare"`
	FareDetail   *service.FareBreakdown `json:"fare_breakdown,omitempty"`
	DistanceKm   float64                `json:"distance_km"`
	DemandFactor float64                `json:"demand_factor"`
	ScheduledAt  *time.Time             `json:"scheduled_at,omitempty"`
	PaymentID    string                 `json:"payment_id,omitempty"`
	Dispute      *domain.DisputeRecord  `json:"dispute,omitempty"`
	CancelReason string                 `json:"cancel_reason,omitempty"`
	CancelledAt  *time.Time             `json:"cancelled_at,omitempty"`
	CreatedAt    time.Time              `json:"created_at"`
	UpdatedAt    time.Time              `json:"updated_at"`
}

func newRideResponse(r *domain.Ride, fares *service.FareCalculator) RideResponse {
	stops := []domain.GeoPoint(r.Stops)
	if stops == nil {
		stops = []domain.GeoPoint{}
	}
	resp := RideResponse{
		ID:           r.ID,
		CustomerID:   r.CustomerID,
		DriverID:     r.DriverID,
		Pickup:       r.Pickup,
		Dropoff:      r.Dropoff,
		Stops:        stops,
		CountryCode:  r.CountryCode,
		Category:     string(r.Category),
		Status:       string(r.Status),
		Fare:         r.Fare,
		DistanceKm:   r.DistanceKm,
		DemandFactor: r.DemandFactor,
		ScheduledAt:  r.ScheduledAt,
		PaymentID:    r.PaymentID,
		Dispute:      r.Dispute,
		CancelReason: r.CancelReason,
		CancelledAt:  r.CancelledAt,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
	if fares != nil {
		b := fares.Breakdown(r.DistanceKm, r.Category, r.DemandFactor, len(r.Stops))
		resp.FareDetail = &b
	}
	return resp
}

func newRideResponses(rides []*domain.Ride) []RideResponse {
	out := make([]RideResponse, 0, len(rides))
	for _, r := range rides {
		out = append(out, newRideResponse(r, nil))
	}
	return out
}
