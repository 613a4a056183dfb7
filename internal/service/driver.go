package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"ridedispatch/internal/domain"
	"ridedispatch/internal/repository"
)

// DriverService handles driver registration, position reports and availability.
type DriverService struct {
	store  repository.Store
	logger logrus.FieldLogger
}

// NewDriverService creates a new DriverService.
func NewDriverService(store repository.Store, logger logrus.FieldLogger) *DriverService {
	return &DriverService{store: store, logger: logger}
}

// RegisterDriverRequest contains the parameters for registering a driver.
type RegisterDriverRequest struct {
	Name  string
	Phone string
}

// Register creates a driver in OFFLINE state.
func (s *DriverService) Register(ctx context.Context, req RegisterDriverRequest) (*domain.Driver, error) {
	if strings.TrimSpace(req.Name) == "" || strings.TrimSpace(req.Phone) == "" {
		return nil, newError(ErrInvalidInput, "name and phone are required")
	}
	driver := &domain.Driver{
		ID:           uuid.New().String(),
		Name:         strings.TrimSpace(req.Name),
		Phone:        strings.TrimSpace(req.Phone),
		Availability: domain.AvailabilityOffline,
		UpdatedAt:    time.Now().UTC(),
	}
	if err := s.store.Drivers().Create(ctx, driver); err != nil {
		return nil, err
	}
	return driver, nil
}

// GetDriver retrieves a driver by ID.
func (s *DriverService) GetDriver(ctx context.Context, driverID string) (*domain.Driver, error) {
	if driverID == "" {
		return nil, ErrInvalidDriverID
	}
	driver, err := s.store.Drivers().GetByID(ctx, driverID)
	if err != nil {
		return nil, notFound(err, ErrDriverNotFound)
	}
	return driver, nil
}

// UpdateLocation stores the driver's position and its geohash cell.
func (s *DriverService) UpdateLocation(ctx context.Context, principal domain.Principal, driverID string, location domain.GeoPoint) error {
	if err := authorizeDriver(principal, driverID); err != nil {
		return err
	}
	if !location.Valid() {
		return ErrInvalidLocation
	}

	err := s.store.Drivers().UpdateLocation(ctx, driverID, location, LocationCell(location))
	if err != nil {
		return notFound(err, ErrDriverNotFound)
	}
	return nil
}

// SetAvailability toggles a driver between AVAILABLE and OFFLINE. A BUSY
// driver is released only by its ride completing or being cancelled.
func (s *DriverService) SetAvailability(ctx context.Context, principal domain.Principal, driverID string, availability domain.Availability) (*domain.Driver, error) {
	if err := authorizeDriver(principal, driverID); err != nil {
		return nil, err
	}
	if availability != domain.AvailabilityAvailable && availability != domain.AvailabilityOffline {
		return nil, ErrInvalidAvailability
	}

	var driver *domain.Driver
	err := s.store.WithinTx(ctx, func(ctx context.Context, uow repository.UnitOfWork) error {
		var err error
		driver, err = uow.Drivers().GetForUpdate(ctx, driverID)
		if err != nil {
			return notFound(err, ErrDriverNotFound)
		}
		if driver.Availability == domain.AvailabilityBusy {
			return ErrDriverBusy
		}
		if driver.Availability == availability {
			return nil
		}
		if err := uow.Drivers().UpdateAvailability(ctx, driverID, availability); err != nil {
			return err
		}
		driver.Availability = availability
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{"driver_id": driverID, "availability": availability}).Info("driver availability changed")
	return driver, nil
}

// authorizeDriver allows the driver itself and administrators.
func authorizeDriver(p domain.Principal, driverID string) error {
	if err := validatePrincipal(p); err != nil {
		return err
	}
	if driverID == "" {
		return ErrInvalidDriverID
	}
	switch {
	case p.IsAdmin():
		return nil
	case p.Role == domain.RoleAgent && p.ID == driverID:
		return nil
	default:
		return ErrNotDriverIdentity
	}
}
