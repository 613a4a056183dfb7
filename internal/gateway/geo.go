package gateway

import (
	"context"
	"errors"
	"math"

	"ridedispatch/internal/domain"
)

// ErrInvalidPoint is returned for coordinates outside WGS84 bounds.
var ErrInvalidPoint = errors.New("invalid coordinates")

// HaversineResolver resolves points locally: coordinates are validated and
// rounded to six decimals, distances are great-circle, and every point is
// attributed to one configured country.
type HaversineResolver struct {
	country string
}

// NewHaversineResolver creates a resolver reporting country for every point.
func NewHaversineResolver(country string) *HaversineResolver {
	return &HaversineResolver{country: country}
}

// ResolveLocation normalises a point.
func (r *HaversineResolver) ResolveLocation(ctx context.Context, point domain.GeoPoint) (domain.GeoPoint, error) {
	if !point.Valid() {
		return domain.GeoPoint{}, ErrInvalidPoint
	}
	return domain.GeoPoint{Lat: round6(point.Lat), Lng: round6(point.Lng)}, nil
}

// CalculateDistance returns the length in meters of the path through points.
func (r *HaversineResolver) CalculateDistance(ctx context.Context, points []domain.GeoPoint) (float64, error) {
	total := 0.0
	for i, p := range points {
		if !p.Valid() {
			return 0, ErrInvalidPoint
		}
		if i > 0 {
			total += domain.HaversineMeters(points[i-1], p)
		}
	}
	return total, nil
}

// CountryOf returns the configured country code.
func (r *HaversineResolver) CountryOf(ctx context.Context, point domain.GeoPoint) (string, error) {
	if !point.Valid() {
		return "", ErrInvalidPoint
	}
	return r.country, nil
}

func round6(v float64) float64 {
	return math.Round(v*1e6) / 1e6
}
