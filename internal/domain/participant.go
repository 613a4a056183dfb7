package domain

import "time"

// ParticipantStatus represents the invitation state of a secondary rider.
type ParticipantStatus string

const (
	ParticipantStatusInvited  ParticipantStatus = "INVITED"
	ParticipantStatusAccepted ParticipantStatus = "ACCEPTED"
	ParticipantStatusDeclined ParticipantStatus = "DECLINED"
)

// Participant is a secondary rider invited onto a ride.
type Participant struct {
	ID        string
	RideID    string
	RiderID   string
	Status    ParticipantStatus
	InvitedAt time.Time
}
