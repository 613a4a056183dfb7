package service

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/mmcloughlin/geohash"

	"ridedispatch/internal/domain"
	"ridedispatch/internal/repository"
)

const (
	// DefaultSearchRadiusMeters is the proximity radius used to find drivers.
	DefaultSearchRadiusMeters = 5000.0

	// CellPrecision is the geohash precision of stored driver and pickup cells.
	// A precision-4 cell is about 19 km tall and 39 km wide at the equator, so
	// away from the poles a 5 km radius fits in the 3x3 block around a pickup.
	// SearchCells widens the block where cells narrow or the radius is larger.
	CellPrecision = 4

	earthRadiusMeters = 6371000.0
)

// MatchStrategy selects how candidates are ordered.
type MatchStrategy string

const (
	// MatchFirst keeps the order in which the store returns drivers.
	MatchFirst MatchStrategy = "first"

	// MatchNearest orders candidates by ascending distance.
	MatchNearest MatchStrategy = "nearest"
)

// ParseMatchStrategy parses a strategy name, defaulting to MatchFirst.
func ParseMatchStrategy(s string) (MatchStrategy, error) {
	switch MatchStrategy(s) {
	case "", MatchFirst:
		return MatchFirst, nil
	case MatchNearest:
		return MatchNearest, nil
	}
	return "", fmt.Errorf("unknown match strategy %q", s)
}

// Candidate is an available driver within the search radius.
type Candidate struct {
	Driver         *domain.Driver
	DistanceMeters float64
}

// GeoMatcher finds available drivers near a pickup point.
type GeoMatcher struct {
	radiusMeters float64
	strategy     MatchStrategy
}

// NewGeoMatcher creates a GeoMatcher. A non-positive radius uses the default.
func NewGeoMatcher(radiusMeters float64, strategy MatchStrategy) *GeoMatcher {
	if radiusMeters <= 0 {
		radiusMeters = DefaultSearchRadiusMeters
	}
	if strategy == "" {
		strategy = MatchFirst
	}
	return &GeoMatcher{radiusMeters: radiusMeters, strategy: strategy}
}

// LocationCell returns the geohash cell of a point.
func LocationCell(p domain.GeoPoint) string {
	return geohash.EncodeWithPrecision(p.Lat, p.Lng, CellPrecision)
}

// SearchCells returns the cells covering every point within radiusMeters of p.
// The cell of p comes first. A non-positive radius uses the default.
func SearchCells(p domain.GeoPoint, radiusMeters float64) []string {
	if radiusMeters <= 0 {
		radiusMeters = DefaultSearchRadiusMeters
	}
	cell := LocationCell(p)
	box := geohash.BoundingBox(cell)
	latStep := box.MaxLat - box.MinLat
	lngStep := box.MaxLng - box.MinLng
	centerLat, centerLng := box.Center()

	angle := radiusMeters / earthRadiusMeters
	rows := int(math.Ceil(angle * 180 / math.Pi / latStep))

	// Widest longitude offset reachable within the radius: asin(sin d / cos lat).
	columns := int(math.Round(360 / lngStep))
	cols := columns
	if cosLat := math.Cos(p.Lat * math.Pi / 180); math.Sin(angle) < cosLat {
		dLng := math.Asin(math.Sin(angle)/cosLat) * 180 / math.Pi
		if k := int(math.Ceil(dLng / lngStep)); 2*k+1 < columns {
			cols = 2*k + 1
		}
	}

	seen := map[string]bool{cell: true}
	cells := []string{cell}
	for i := -rows; i <= rows; i++ {
		lat := centerLat + float64(i)*latStep
		if lat < -90 || lat > 90 {
			continue
		}
		for j := 0; j < cols; j++ {
			lng := wrapLongitude(centerLng + float64(j-cols/2)*lngStep)
			c := geohash.EncodeWithPrecision(lat, lng, CellPrecision)
			if !seen[c] {
				seen[c] = true
				cells = append(cells, c)
			}
		}
	}
	return cells
}

func wrapLongitude(lng float64) float64 {
	for lng >= 180 {
		lng -= 360
	}
	for lng < -180 {
		lng += 360
	}
	return lng
}

// FindCandidates returns AVAILABLE drivers with a known location within the
// search radius of pickup.
func (m *GeoMatcher) FindCandidates(ctx context.Context, drivers repository.DriverRepository, pickup domain.GeoPoint) ([]Candidate, error) {
	pool, err := drivers.ListAvailableInCells(ctx, SearchCells(pickup, m.radiusMeters))
	if err != nil {
		return nil, err
	}

	candidates := make([]Candidate, 0, len(pool))
	for _, d := range pool {
		if d.Availability != domain.AvailabilityAvailable || d.Location == nil {
			continue
		}
		dist := domain.HaversineMeters(*d.Location, pickup)
		if dist > m.radiusMeters {
			continue
		}
		candidates = append(candidates, Candidate{Driver: d, DistanceMeters: dist})
	}

	if m.strategy == MatchNearest {
		sort.SliceStable(candidates, func(i, j int) bool {
			return candidates[i].DistanceMeters < candidates[j].DistanceMeters
		})
	}
	return candidates, nil
}
