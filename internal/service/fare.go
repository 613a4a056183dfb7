package service

import (
	"math"
	"strings"

	"ridedispatch/internal/domain"
)

// FareSchedule holds the tariff constants of the fare formula.
type FareSchedule struct {
	BaseFare    float64
	RatePerKm   float64
	RatePerStop float64
}

// DefaultFareSchedule returns the default tariff.
func DefaultFareSchedule() FareSchedule {
	return FareSchedule{
		BaseFare:    2.50,
		RatePerKm:   1.20,
		RatePerStop: 1.00,
	}
}

var categoryMultipliers = map[domain.RideCategory]float64{
	domain.RideCategoryStandard:  1.0,
	domain.RideCategoryPremium:   1.5,
	domain.RideCategoryFree:      0,
	domain.RideCategoryXL:        1.3,
	domain.RideCategoryEco:       0.8,
	domain.RideCategoryMotorbike: 0.6,
	domain.RideCategoryScheduled: 1.2,
}

// CategoryMultiplier returns the fare multiplier of a category.
func CategoryMultiplier(category domain.RideCategory) (float64, bool) {
	m, ok := categoryMultipliers[category]
	return m, ok
}

// ParseCategory parses a category name. An empty name means STANDARD.
func ParseCategory(s string) (domain.RideCategory, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return domain.RideCategoryStandard, nil
	}
	category := domain.RideCategory(s)
	if _, ok := categoryMultipliers[category]; !ok {
		return "", ErrInvalidCategory
	}
	return category, nil
}

// FareBreakdown itemises a computed fare.
type FareBreakdown struct {
	Base               float64 `json:"base"`
	Distance           float64 `json:"distance"`
	Stops              float64 `json:"stops"`
	Subtotal           float64 `json:"subtotal"`
	CategoryMultiplier float64 `json:"category_multiplier"`
	DemandFactor       float64 `json:"demand_factor"`
	Total              float64 `json:"total"`
}

// FareCalculator computes ride fares. It is pure and safe for concurrent use.
type FareCalculator struct {
	schedule FareSchedule
}

// NewFareCalculator creates a FareCalculator with the given schedule.
func NewFareCalculator(schedule FareSchedule) *FareCalculator {
	return &FareCalculator{schedule: schedule}
}

// Schedule returns the tariff in use.
func (f *FareCalculator) Schedule() FareSchedule {
	return f.schedule
}

// Calculate returns the fare rounded to two decimals.
// distanceKm must not be negative; an unknown category is priced as STANDARD.
func (f *FareCalculator) Calculate(distanceKm float64, category domain.RideCategory, demandFactor float64, stopCount int) float64 {
	return f.Breakdown(distanceKm, category, demandFactor, stopCount).Total
}

// Breakdown returns the components of the fare.
func (f *FareCalculator) Breakdown(distanceKm float64, category domain.RideCategory, demandFactor float64, stopCount int) FareBreakdown {
	mult, ok := CategoryMultiplier(category)
	if !ok {
		mult = 1.0
	}

	b := FareBreakdown{
		Base:               f.schedule.BaseFare,
		Distance:           f.schedule.RatePerKm * distanceKm,
		Stops:              f.schedule.RatePerStop * float64(stopCount),
		CategoryMultiplier: mult,
		DemandFactor:       demandFactor,
	}
	b.Subtotal = round2(b.Base + b.Distance + b.Stops)
	b.Total = round2((b.Base + b.Distance + b.Stops) * mult * demandFactor)
	b.Distance = round2(b.Distance)
	b.Stops = round2(b.Stops)
	return b
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
