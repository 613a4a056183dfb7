package domain

import "time"

// EventType names a notification topic.
type EventType string

const (
	EventStatusUpdated   EventType = "ride.statusUpdated"
	EventDisputeResolved EventType = "ride.disputeResolved"
	EventAlert           EventType = "ride.alert"
)

// Event is a fire-and-forget notification about a ride.
type Event struct {
	Type       EventType     `json:"type"`
	RideID     string        `json:"rideId"`
	CustomerID string        `json:"customerId"`
	Status     RideStatus    `json:"status,omitempty"`
	DriverID   string        `json:"driverId,omitempty"`
	Action     DisputeAction `json:"action,omitempty"`
	Reason     string        `json:"reason,omitempty"`
	Alert      *SafetyAlert  `json:"alert,omitempty"`
	OccurredAt time.Time     `json:"occurredAt"`
}
