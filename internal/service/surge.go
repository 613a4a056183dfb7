package service

import (
	"context"

	"github.com/sirupsen/logrus"

	"ridedispatch/internal/domain"
	"ridedispatch/internal/repository"
)

// DemandEstimator supplies the demand factor for a new ride.
type DemandEstimator interface {
	DemandFactor(ctx context.Context, pickup domain.GeoPoint) float64
}

// SurgeConfig contains surge pricing configuration.
type SurgeConfig struct {
	LowSurgeRatio  float64 // Demand/supply ratio for 1.25x surge
	MedSurgeRatio  float64 // Demand/supply ratio for 1.5x surge
	HighSurgeRatio float64 // Demand/supply ratio for MaxSurge
	MaxSurge       float64
}

// DefaultSurgeConfig returns the default surge configuration.
func DefaultSurgeConfig() SurgeConfig {
	return SurgeConfig{
		LowSurgeRatio:  1.2,
		MedSurgeRatio:  1.5,
		HighSurgeRatio: 2.0,
		MaxSurge:       2.0,
	}
}

// SurgeService derives a demand factor from open rides and available
// drivers in the cells around a pickup.
type SurgeService struct {
	store  repository.Store
	config SurgeConfig
	logger logrus.FieldLogger
}

// NewSurgeService creates a new SurgeService.
func NewSurgeService(store repository.Store, config SurgeConfig, logger logrus.FieldLogger) *SurgeService {
	return &SurgeService{store: store, config: config, logger: logger}
}

var _ DemandEstimator = (*SurgeService)(nil)

// DemandFactor returns 1.0 when there is no surge, up to MaxSurge under
// high demand. Lookup failures fall back to 1.0.
func (s *SurgeService) DemandFactor(ctx context.Context, pickup domain.GeoPoint) float64 {
	cells := SearchCells(pickup, DefaultSearchRadiusMeters)

	drivers, err := s.store.Drivers().ListAvailableInCells(ctx, cells)
	if err != nil {
		s.logger.WithError(err).Warn("surge: supply lookup failed")
		return 1.0
	}
	demand, err := s.store.Rides().CountActiveNear(ctx, cells)
	if err != nil {
		s.logger.WithError(err).Warn("surge: demand lookup failed")
		return 1.0
	}
	return s.multiplier(len(drivers), demand)
}

func (s *SurgeService) multiplier(supply, demand int) float64 {
	if supply == 0 {
		if demand > 0 {
			return s.config.MaxSurge
		}
		return 1.0
	}

	ratio := float64(demand) / float64(supply)
	switch {
	case ratio >= s.config.HighSurgeRatio:
		return s.config.MaxSurge
	case ratio >= s.config.MedSurgeRatio:
		return 1.5
	case ratio >= s.config.LowSurgeRatio:
		return 1.25
	default:
		return 1.0
	}
}
