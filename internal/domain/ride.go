package domain

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// RideStatus represents the current status of a ride.
type RideStatus string

const (
	RideStatusRequested RideStatus = "REQUESTED"
	RideStatusScheduled RideStatus = "SCHEDULED"
	RideStatusAssigned  RideStatus = "ASSIGNED"
	RideStatusArrived   RideStatus = "ARRIVED"
	RideStatusStarted   RideStatus = "STARTED"
	RideStatusCompleted RideStatus = "COMPLETED"
	RideStatusCancelled RideStatus = "CANCELLED"
)

// RideStatuses lists every ride status in lifecycle order.
var RideStatuses = []RideStatus{
	RideStatusRequested,
	RideStatusScheduled,
	RideStatusAssigned,
	RideStatusArrived,
	RideStatusStarted,
	RideStatusCompleted,
	RideStatusCancelled,
}

// Valid reports whether s is a known ride status.
func (s RideStatus) Valid() bool {
	for _, known := range RideStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// HasAgent reports whether a ride in this status carries a bound driver.
func (s RideStatus) HasAgent() bool {
	switch s {
	case RideStatusAssigned, RideStatusArrived, RideStatusStarted, RideStatusCompleted:
		return true
	}
	return false
}

// RideCategory represents the service category requested for a ride.
type RideCategory string

const (
	RideCategoryStandard  RideCategory = "STANDARD"
	RideCategoryPremium   RideCategory = "PREMIUM"
	RideCategoryFree      RideCategory = "FREE"
	RideCategoryXL        RideCategory = "XL"
	RideCategoryEco       RideCategory = "ECO"
	RideCategoryMotorbike RideCategory = "MOTORBIKE"
	RideCategoryScheduled RideCategory = "SCHEDULED"
)

// Ride represents a ride request and its lifecycle.
type Ride struct {
	ID           string
	CustomerID   string
	DriverID     string // empty unless status carries an agent
	Pickup       GeoPoint
	PickupCell   string // geohash cell of the pickup
	Dropoff      GeoPoint
	Stops        Stops
	CountryCode  string
	Category     RideCategory
	Status       RideStatus
	Fare         float64
	DistanceKm   float64
	DemandFactor float64
	ScheduledAt  *time.Time
	PaymentID    string
	Dispute      *DisputeRecord
	CancelReason string
	CancelledAt  *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Route returns the ordered points the ride travels through.
func (r *Ride) Route() []GeoPoint {
	points := make([]GeoPoint, 0, len(r.Stops)+2)
	points = append(points, r.Pickup)
	points = append(points, r.Stops...)
	return append(points, r.Dropoff)
}

// Stops is an ordered list of intermediate points stored as a JSON column.
type Stops []GeoPoint

// Value implements driver.Valuer.
func (s Stops) Value() (driver.Value, error) {
	if s == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(s)
}

// Scan implements sql.Scanner.
func (s *Stops) Scan(src any) error {
	data, err := jsonBytes(src)
	if err != nil {
		return err
	}
	if len(data) == 0 {
		*s = nil
		return nil
	}
	return json.Unmarshal(data, s)
}

func jsonBytes(src any) ([]byte, error) {
	switch v := src.(type) {
	case nil:
		return nil, nil
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	default:
		return nil, errors.New("domain: unsupported json column type")
	}
}
