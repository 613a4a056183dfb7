package domain

import "time"

// Availability represents whether a driver can take a ride.
type Availability string

const (
	AvailabilityAvailable Availability = "AVAILABLE"
	AvailabilityBusy      Availability = "BUSY"
	AvailabilityOffline   Availability = "OFFLINE"
)

// Driver is a transport agent. Rides reference drivers but never own them.
type Driver struct {
	ID           string
	Name         string
	Phone        string
	Availability Availability
	Location     *GeoPoint
	LocationCell string // geohash cell used to pre-filter nearby drivers
	Rating       float64
	RatingCount  int
	UpdatedAt    time.Time
}
