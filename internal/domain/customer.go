package domain

import "time"

// Customer represents a rider who owns rides.
type Customer struct {
	ID        string
	Name      string
	Phone     string
	CreatedAt time.Time
}
