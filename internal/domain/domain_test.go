package domain

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeoPoint_Valid(t *testing.T) {
	testCases := []struct {
		point GeoPoint
		want  bool
	}{
		{GeoPoint{Lat: 0, Lng: 0}, true},
		{GeoPoint{Lat: 90, Lng: 180}, true},
		{GeoPoint{Lat: -90, Lng: -180}, true},
		{GeoPoint{Lat: 90.0001, Lng: 0}, false},
		{GeoPoint{Lat: 0, Lng: -180.0001}, false},
		{GeoPoint{Lat: math.NaN(), Lng: 0}, false},
		{GeoPoint{Lat: 0, Lng: math.Inf(1)}, false},
	}

	for _, tc := range testCases {
		assert.Equal(t, tc.want, tc.point.Valid(), "%+v", tc.point)
	}
}

func TestHaversineMeters(t *testing.T) {
	assert.Zero(t, HaversineMeters(GeoPoint{Lat: 10, Lng: 10}, GeoPoint{Lat: 10, Lng: 10}))
	assert.InDelta(t, 1111.95, HaversineMeters(GeoPoint{}, GeoPoint{Lat: 0, Lng: 0.01}), 0.01)
	assert.InDelta(t, 3335.85, HaversineMeters(GeoPoint{}, GeoPoint{Lat: 0.03, Lng: 0}), 0.05)

	a, b := GeoPoint{Lat: 40.7128, Lng: -74.006}, GeoPoint{Lat: 51.5074, Lng: -0.1278}
	assert.InDelta(t, HaversineMeters(a, b), HaversineMeters(b, a), 1e-6)
}

func TestRide_Route(t *testing.T) {
	r := &Ride{
		Pickup:  GeoPoint{Lat: 1, Lng: 1},
		Stops:   Stops{{Lat: 2, Lng: 2}, {Lat: 3, Lng: 3}},
		Dropoff: GeoPoint{Lat: 4, Lng: 4},
	}
	assert.Equal(t, []GeoPoint{{1, 1}, {2, 2}, {3, 3}, {4, 4}}, r.Route())

	r.Stops = nil
	assert.Equal(t, []GeoPoint{{1, 1}, {4, 4}}, r.Route())
}

func TestRideStatus(t *testing.T) {
	assert.True(t, RideStatusStarted.Valid())
	assert.False(t, RideStatus("PAUSED").Valid())

	withAgent := []RideStatus{RideStatusAssigned, RideStatusArrived, RideStatusStarted, RideStatusCompleted}
	for _, s := range withAgent {
		assert.True(t, s.HasAgent(), s)
	}
	for _, s := range []RideStatus{RideStatusRequested, RideStatusScheduled, RideStatusCancelled} {
		assert.False(t, s.HasAgent(), s)
	}
}

func TestStops_ValueScan(t *testing.T) {
	v, err := Stops(nil).Value()
	require.NoError(t, err)
	assert.Equal(t, []byte("[]"), v)

	v, err = Stops{{Lat: 1.5, Lng: -2}}.Value()
	require.NoError(t, err)
	assert.JSONEq(t, `[{"lat":1.5,"lng":-2}]`, string(v.([]byte)))

	var s Stops
	require.NoError(t, s.Scan(v))
	assert.Equal(t, Stops{{Lat: 1.5, Lng: -2}}, s)

	require.NoError(t, s.Scan(`[{"lat":3,"lng":4}]`))
	assert.Equal(t, Stops{{Lat: 3, Lng: 4}}, s)

	require.NoError(t, s.Scan(nil))
	assert.Nil(t, s)

	assert.Error(t, s.Scan(42))
}

func TestDisputeRecord(t *testing.T) {
	var d DisputeRecord
	first := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	second := first.Add(time.Hour)

	d.Resolve(DisputeActionEscalate, "needs review", first)
	d.Resolve(DisputeActionRefund, "driver no-show", second)
	d.AddAlert(SafetyAlert{Message: "route deviation", Severity: AlertSeverityHigh, RaisedAt: first})

	assert.Equal(t, DisputeActionRefund, d.Action)
	assert.Equal(t, "driver no-show", d.Reason)
	require.NotNil(t, d.ResolvedAt)
	assert.Equal(t, second, *d.ResolvedAt)
	assert.Len(t, d.History, 2)
	assert.Len(t, d.Alerts, 1)

	v, err := d.Value()
	require.NoError(t, err)

	var scanned DisputeRecord
	require.NoError(t, scanned.Scan(v))
	assert.Equal(t, d.History, scanned.History)
	assert.Equal(t, d.Alerts, scanned.Alerts)

	var none *DisputeRecord
	v, err = none.Value()
	require.NoError(t, err)
	assert.Nil(t, v)

	require.NoError(t, scanned.Scan(nil))
	assert.Equal(t, DisputeRecord{}, scanned)
}

func TestEnumsValid(t *testing.T) {
	assert.True(t, DisputeActionDismiss.Valid())
	assert.False(t, DisputeAction("IGNORE").Valid())
	assert.True(t, AlertSeverityCritical.Valid())
	assert.False(t, AlertSeverity("URGENT").Valid())
	assert.True(t, RoleAgent.Valid())
	assert.False(t, Role("GUEST").Valid())
}
