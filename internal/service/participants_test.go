package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ridedispatch/internal/domain"
	"ridedispatch/internal/service"
)

func TestParticipantManager_Invite(t *testing.T) {
	f := newFixture(service.MatchFirst)
	ride := seedRide(t, f, domain.RideStatusRequested)
	f.store.AddCustomer("c2")

	p, err := f.participants.Invite(context.Background(), customer("c1"), ride.ID, "c2")
	require.NoError(t, err)
	assert.Equal(t, domain.ParticipantStatusInvited, p.Status)
	assert.Equal(t, ride.ID, p.RideID)
	assert.Equal(t, "c2", p.RiderID)

	_, err = f.participants.Invite(context.Background(), customer("c1"), ride.ID, "c2")
	assert.ErrorIs(t, err, service.ErrParticipantExists)
	assert.Equal(t, service.CodeAlreadyExists, service.KindOf(err))

	list, err := f.participants.List(context.Background(), customer("c1"), ride.ID)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestParticipantManager_InviteRejections(t *testing.T) {
	testCases := []struct {
		name      string
		status    domain.RideStatus
		principal domain.Principal
		riderID   string
		wantErr   error
	}{
		{"ride already assigned", domain.RideStatusAssigned, customer("c1"), "c2", service.ErrRideNotOpen},
		{"scheduled ride", domain.RideStatusScheduled, customer("c1"), "c2", service.ErrRideNotOpen},
		{"not the owner", domain.RideStatusRequested, customer("c2"), "c3", service.ErrNotRideOwner},
		{"agent principal", domain.RideStatusRequested, agent("d1"), "c2", service.ErrRoleNotPermitted},
		{"owner invites self", domain.RideStatusRequested, customer("c1"), "c1", service.ErrInviteOwner},
		{"unknown rider", domain.RideStatusRequested, customer("c1"), "ghost", service.ErrCustomerNotFound},
		{"empty rider", domain.RideStatusRequested, customer("c1"), "", service.ErrInvalidRiderID},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(service.MatchFirst)
			ride := seedRide(t, f, tc.status)
			f.store.AddCustomer("c2")
			f.store.AddCustomer("c3")

			_, err := f.participants.Invite(context.Background(), tc.principal, ride.ID, tc.riderID)
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestParticipantManager_AdminMayInvite(t *testing.T) {
	f := newFixture(service.MatchFirst)
	ride := seedRide(t, f, domain.RideStatusRequested)
	f.store.AddCustomer("c2")

	_, err := f.participants.Invite(context.Background(), admin(), ride.ID, "c2")
	require.NoError(t, err)
}

func TestParticipantManager_Remove(t *testing.T) {
	f := newFixture(service.MatchFirst)
	ride := seedRide(t, f, domain.RideStatusRequested)
	f.store.AddCustomer("c2")

	_, err := f.participants.Invite(context.Background(), customer("c1"), ride.ID, "c2")
	require.NoError(t, err)

	require.NoError(t, f.participants.Remove(context.Background(), customer("c1"), ride.ID, "c2"))

	err = f.participants.Remove(context.Background(), customer("c1"), ride.ID, "c2")
	assert.ErrorIs(t, err, service.ErrParticipantNotFound)

	list, err := f.participants.List(context.Background(), customer("c1"), ride.ID)
	require.NoError(t, err)
	assert.Empty(t, list)
}
