package domain

import "time"

// PaymentStatus mirrors the state of the intent at the payment gateway.
type PaymentStatus string

const (
	PaymentStatusPending    PaymentStatus = "PENDING"
	PaymentStatusAuthorized PaymentStatus = "AUTHORIZED"
	PaymentStatusCancelled  PaymentStatus = "CANCELLED"
	PaymentStatusRefunded   PaymentStatus = "REFUNDED"
)

// Payment is the payment intent attached to a ride.
type Payment struct {
	ID        string
	RideID    string
	IntentID  string
	Amount    float64
	Status    PaymentStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}
