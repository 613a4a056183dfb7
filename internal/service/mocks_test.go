package service_test

import (
	"context"
	"errors"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"ridedispatch/internal/domain"
	"ridedispatch/internal/gateway"
	"ridedispatch/internal/repository"
	"ridedispatch/internal/service"
)

// ──────────────────────────────────────────────
// IN-MEMORY STORE
// ──────────────────────────────────────────────

type tables struct {
	rides        map[string]*domain.Ride
	drivers      map[string]*domain.Driver
	payments     map[string]*domain.Payment
	participants map[string]*domain.Participant
	customers    map[string]*domain.Customer
}

func newTables() *tables {
	return &tables{
		rides:        make(map[string]*domain.Ride),
		drivers:      make(map[string]*domain.Driver),
		payments:     make(map[string]*domain.Payment),
		participants: make(map[string]*domain.Participant),
		customers:    make(map[string]*domain.Customer),
	}
}

func (t *tables) clone() *tables {
	c := newTables()
	for k, v := range t.rides {
		c.rides[k] = cloneRide(v)
	}
	for k, v := range t.drivers {
		d := *v
		c.drivers[k] = &d
	}
	for k, v := range t.payments {
		p := *v
		c.payments[k] = &p
	}
	for k, v := range t.participants {
		p := *v
		c.participants[k] = &p
	}
	for k, v := range t.customers {
		cu := *v
		c.customers[k] = &cu
	}
	return c
}

func cloneRide(r *domain.Ride) *domain.Ride {
	c := *r
	c.Stops = append(domain.Stops(nil), r.Stops...)
	if r.Dispute != nil {
		d := *r.Dispute
		d.History = append([]domain.DisputeResolution(nil), r.Dispute.History...)
		d.Alerts = append([]domain.SafetyAlert(nil), r.Dispute.Alerts...)
		c.Dispute = &d
	}
	return &c
}

// MockStore is an in-memory repository.Store. Units of work are serialized,
// which stands in for row locks, and roll back to a snapshot on error.
type MockStore struct {
	txMu sync.Mutex
	mu   sync.Mutex
	data *tables

	// Drivers whose rows are held by some other unit; LockAvailable skips them.
	LockedDrivers map[string]bool

	// Error injection
	RideUpdateError    error
	PaymentCreateError error
	CommitError        error

	Commits   int
	Rollbacks int
}

// NewMockStore creates an empty MockStore.
func NewMockStore() *MockStore {
	return &MockStore{data: newTables(), LockedDrivers: make(map[string]bool)}
}

func (s *MockStore) Rides() repository.RideRepository { return &mockRides{s} }
func (s *MockStore) Drivers() repository.DriverRepository { return &mockDrivers{s} }
func (s *MockStore) Payments() repository.PaymentRepository { return &mockPayments{s} }
func (s *MockStore) Participants() repository.ParticipantRepository { return &mockParticipants{s} }
func (s *MockStore) Customers() repository.CustomerRepository { return &mockCustomers{s} }

func (s *MockStore) WithinTx(ctx context.Context, fn func(ctx context.Context, uow repository.UnitOfWork) error) (err error) {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.Lock()
	snapshot := s.data.clone()
	s.mu.Unlock()

	uow := &mockUnit{MockStore: s}
	defer func() {
		if p := recover(); p != nil {
			err = errors.New("panic in unit of work")
		}
		if err != nil {
			s.mu.Lock()
			s.data = snapshot
			s.Rollbacks++
			s.mu.Unlock()
			for _, h := range uow.onRollback {
				h()
			}
			return
		}
		s.mu.Lock()
		s.Commits++
		s.mu.Unlock()
		for _, h := range uow.onCommit {
			h()
		}
	}()

	if err := fn(ctx, uow); err != nil {
		return err
	}
	for _, h := range uow.beforeCommit {
		if err := h(ctx); err != nil {
			return err
		}
	}
	return s.CommitError
}

type mockUnit struct {
	*MockStore
	beforeCommit []func(context.Context) error
	onCommit     []func()
	onRollback   []func()
}

func (u *mockUnit) BeforeCommit(fn func(context.Context) error) {
	u.beforeCommit = append(u.beforeCommit, fn)
}

func (u *mockUnit) AfterCommit(fn func()) { u.onCommit = append(u.onCommit, fn) }
func (u *mockUnit) AfterRollback(fn func()) { u.onRollback = append(u.onRollback, fn) }

// Seeding helpers.

func (s *MockStore) AddCustomer(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.customers[id] = &domain.Customer{ID: id, Name: "Customer " + id, Phone: "+100" + id, CreatedAt: time.Now().UTC()}
}

func (s *MockStore) AddDriver(id string, availability domain.Availability, loc *domain.GeoPoint) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := &domain.Driver{ID: id, Name: "Driver " + id, Availability: availability, Location: loc, UpdatedAt: time.Now().UTC()}
	if loc != nil {
		d.LocationCell = service.LocationCell(*loc)
	}
	s.data.drivers[id] = d
}

func (s *MockStore) Ride(id string) *domain.Ride {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.data.rides[id]
	if !ok {
		return nil
	}
	return cloneRide(r)
}

func (s *MockStore) PutRide(r *domain.Ride) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.rides[r.ID] = cloneRide(r)
}

func (s *MockStore) Driver(id string) *domain.Driver {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.data.drivers[id]
	if !ok {
		return nil
	}
	c := *d
	return &c
}

func (s *MockStore) PaymentForRide(rideID string) *domain.Payment {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.data.payments {
		if p.RideID == rideID {
			c := *p
			return &c
		}
	}
	return nil
}

func (s *MockStore) RideCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.data.rides)
}

// ──────────────────────────────────────────────
// REPOSITORIES
// ──────────────────────────────────────────────

type mockRides struct{ s *MockStore }

func (r *mockRides) Create(ctx context.Context, ride *domain.Ride) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.data.rides[ride.ID]; ok {
		return repository.ErrDuplicate
	}
	r.s.data.rides[ride.ID] = cloneRide(ride)
	return nil
}

func (r *mockRides) GetByID(ctx context.Context, id string) (*domain.Ride, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	ride, ok := r.s.data.rides[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneRide(ride), nil
}

func (r *mockRides) GetForUpdate(ctx context.Context, id string) (*domain.Ride, error) {
	return r.GetByID(ctx, id)
}

func (r *mockRides) list(limit int, keep func(*domain.Ride) bool) []*domain.Ride {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*domain.Ride
	for _, ride := range r.s.data.rides {
		if keep(ride) {
			out = append(out, cloneRide(ride))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (r *mockRides) ListByCustomer(ctx context.Context, customerID string, limit int) ([]*domain.Ride, error) {
	return r.list(limit, func(ride *domain.Ride) bool { return ride.CustomerID == customerID }), nil
}

func (r *mockRides) ListByDriver(ctx context.Context, driverID string, limit int) ([]*domain.Ride, error) {
	return r.list(limit, func(ride *domain.Ride) bool { return ride.DriverID == driverID }), nil
}

func (r *mockRides) ListRecent(ctx context.Context, limit int) ([]*domain.Ride, error) {
	return r.list(limit, func(*domain.Ride) bool { return true }), nil
}

func (r *mockRides) ListStale(ctx context.Context, status domain.RideStatus, cutoff time.Time, limit int) ([]*domain.Ride, error) {
	return r.list(limit, func(ride *domain.Ride) bool {
		return ride.Status == status && ride.CreatedAt.Before(cutoff)
	}), nil
}

func (r *mockRides) CountActiveNear(ctx context.Context, cells []string) (int, error) {
	in := make(map[string]bool, len(cells))
	for _, c := range cells {
		in[c] = true
	}
	rides := r.list(0, func(ride *domain.Ride) bool {
		switch ride.Status {
		case domain.RideStatusRequested, domain.RideStatusScheduled, domain.RideStatusAssigned:
			return in[ride.PickupCell]
		}
		return false
	})
	return len(rides), nil
}

func (r *mockRides) Update(ctx context.Context, ride *domain.Ride) error {
	if r.s.RideUpdateError != nil {
		return r.s.RideUpdateError
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.data.rides[ride.ID]; !ok {
		return repository.ErrNotFound
	}
	r.s.data.rides[ride.ID] = cloneRide(ride)
	return nil
}

type mockDrivers struct{ s *MockStore }

func (r *mockDrivers) Create(ctx context.Context, driver *domain.Driver) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	d := *driver
	r.s.data.drivers[driver.ID] = &d
	return nil
}

func (r *mockDrivers) GetByID(ctx context.Context, id string) (*domain.Driver, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	d, ok := r.s.data.drivers[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	c := *d
	return &c, nil
}

func (r *mockDrivers) GetForUpdate(ctx context.Context, id string) (*domain.Driver, error) {
	return r.GetByID(ctx, id)
}

func (r *mockDrivers) ListAvailableInCells(ctx context.Context, cells []string) ([]*domain.Driver, error) {
	in := make(map[string]bool, len(cells))
	for _, c := range cells {
		in[c] = true
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*domain.Driver
	for _, d := range r.s.data.drivers {
		if d.Availability == domain.AvailabilityAvailable && d.Location != nil && in[d.LocationCell] {
			c := *d
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *mockDrivers) LockAvailable(ctx context.Context, id string) (*domain.Driver, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	d, ok := r.s.data.drivers[id]
	if !ok || d.Availability != domain.AvailabilityAvailable || r.s.LockedDrivers[id] {
		return nil, repository.ErrNotFound
	}
	c := *d
	return &c, nil
}

func (r *mockDrivers) UpdateAvailability(ctx context.Context, id string, availability domain.Availability) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	d, ok := r.s.data.drivers[id]
	if !ok {
		return repository.ErrNotFound
	}
	d.Availability = availability
	return nil
}

func (r *mockDrivers) UpdateLocation(ctx context.Context, id string, location domain.GeoPoint, cell string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	d, ok := r.s.data.drivers[id]
	if !ok {
		return repository.ErrNotFound
	}
	loc := location
	d.Location = &loc
	d.LocationCell = cell
	return nil
}

type mockPayments struct{ s *MockStore }

func (r *mockPayments) Create(ctx context.Context, payment *domain.Payment) error {
	if r.s.PaymentCreateError != nil {
		return r.s.PaymentCreateError
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, p := range r.s.data.payments {
		if p.RideID == payment.RideID {
			return repository.ErrDuplicate
		}
	}
	p := *payment
	r.s.data.payments[payment.ID] = &p
	return nil
}

func (r *mockPayments) GetByID(ctx context.Context, id string) (*domain.Payment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.data.payments[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	c := *p
	return &c, nil
}

func (r *mockPayments) GetByRideID(ctx context.Context, rideID string) (*domain.Payment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, p := range r.s.data.payments {
		if p.RideID == rideID {
			c := *p
			return &c, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *mockPayments) Update(ctx context.Context, payment *domain.Payment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.data.payments[payment.ID]; !ok {
		return repository.ErrNotFound
	}
	p := *payment
	r.s.data.payments[payment.ID] = &p
	return nil
}

type mockParticipants struct{ s *MockStore }

func participantKey(rideID, riderID string) string { return rideID + "/" + riderID }

func (r *mockParticipants) Create(ctx context.Context, participant *domain.Participant) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	key := participantKey(participant.RideID, participant.RiderID)
	if _, ok := r.s.data.participants[key]; ok {
		return repository.ErrDuplicate
	}
	p := *participant
	r.s.data.participants[key] = &p
	return nil
}

func (r *mockParticipants) Get(ctx context.Context, rideID, riderID string) (*domain.Participant, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.data.participants[participantKey(rideID, riderID)]
	if !ok {
		return nil, repository.ErrNotFound
	}
	c := *p
	return &c, nil
}

func (r *mockParticipants) ListByRide(ctx context.Context, rideID string) ([]*domain.Participant, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*domain.Participant
	for _, p := range r.s.data.participants {
		if p.RideID == rideID {
			c := *p
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].InvitedAt.Before(out[j].InvitedAt) })
	return out, nil
}

func (r *mockParticipants) Delete(ctx context.Context, rideID, riderID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	key := participantKey(rideID, riderID)
	if _, ok := r.s.data.participants[key]; !ok {
		return repository.ErrNotFound
	}
	delete(r.s.data.participants, key)
	return nil
}

type mockCustomers struct{ s *MockStore }

func (r *mockCustomers) Create(ctx context.Context, customer *domain.Customer) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c := *customer
	r.s.data.customers[customer.ID] = &c
	return nil
}

func (r *mockCustomers) GetByID(ctx context.Context, id string) (*domain.Customer, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.data.customers[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cu := *c
	return &cu, nil
}

// ──────────────────────────────────────────────
// COLLABORATORS
// ──────────────────────────────────────────────

// MockNotifier records published events.
type MockNotifier struct {
	mu     sync.Mutex
	events []domain.Event
	Err    error
}

func (n *MockNotifier) Publish(ctx context.Context, event domain.Event) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
	return n.Err
}

func (n *MockNotifier) Events() []domain.Event {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]domain.Event(nil), n.events...)
}

func (n *MockNotifier) OfType(t domain.EventType) []domain.Event {
	var out []domain.Event
	for _, e := range n.Events() {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

// MockCache is a map-backed RideCache.
type MockCache struct {
	mu          sync.Mutex
	rides       map[string]*domain.Ride
	Invalidated []string
}

func NewMockCache() *MockCache {
	return &MockCache{rides: make(map[string]*domain.Ride)}
}

func (c *MockCache) GetRide(ctx context.Context, id string) (*domain.Ride, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, ok := c.rides[id]
	if !ok {
		return nil, nil
	}
	return cloneRide(r), nil
}

func (c *MockCache) SetRide(ctx context.Context, ride *domain.Ride) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rides[ride.ID] = cloneRide(ride)
	return nil
}

func (c *MockCache) InvalidateRide(ctx context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.rides, id)
	c.Invalidated = append(c.Invalidated, id)
	return nil
}

// flakyGateway wraps the local gateway with error injection.
type flakyGateway struct {
	*gateway.LocalPaymentGateway
	UpdateError    error
	AuthorizeError error
	Cancelled      []string
}

func (g *flakyGateway) UpdateIntent(ctx context.Context, intentID string, amount float64, metadata map[string]string) error {
	if g.UpdateError != nil {
		return g.UpdateError
	}
	return g.LocalPaymentGateway.UpdateIntent(ctx, intentID, amount, metadata)
}

func (g *flakyGateway) AuthorizeIntent(ctx context.Context, intentID string) error {
	if g.AuthorizeError != nil {
		return g.AuthorizeError
	}
	return g.LocalPaymentGateway.AuthorizeIntent(ctx, intentID)
}

func (g *flakyGateway) CancelIntent(ctx context.Context, intentID string) error {
	g.Cancelled = append(g.Cancelled, intentID)
	return g.LocalPaymentGateway.CancelIntent(ctx, intentID)
}

// fixedDemand is a DemandEstimator returning a constant.
type fixedDemand float64

func (d fixedDemand) DemandFactor(context.Context, domain.GeoPoint) float64 { return float64(d) }

// ──────────────────────────────────────────────
// FIXTURE
// ──────────────────────────────────────────────

type fixture struct {
	store         *MockStore
	gateway       *flakyGateway
	notifier      *MockNotifier
	cache         *MockCache
	fares         *service.FareCalculator
	payments      *service.PaymentLedger
	notifications *service.NotificationService
	lifecycle     *service.RideLifecycle
	dispatch      *service.DispatchCoordinator
	rides         *service.RideService
	admin         *service.AdminService
	participants  *service.ParticipantManager
	drivers       *service.DriverService
	customers     *service.CustomerService
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func newFixture(strategy service.MatchStrategy) *fixture {
	logger := quietLogger()
	f := &fixture{
		store:    NewMockStore(),
		gateway:  &flakyGateway{LocalPaymentGateway: gateway.NewLocalPaymentGateway()},
		notifier: &MockNotifier{},
		cache:    NewMockCache(),
		fares:    service.NewFareCalculator(service.DefaultFareSchedule()),
	}
	f.payments = service.NewPaymentLedger(f.gateway, logger)
	f.notifications = service.NewNotificationService(f.notifier, f.cache, logger)
	f.lifecycle = service.NewRideLifecycle(f.payments, f.notifications, logger)
	matcher := service.NewGeoMatcher(service.DefaultSearchRadiusMeters, strategy)
	f.dispatch = service.NewDispatchCoordinator(
		f.store, gateway.NewHaversineResolver("US"), f.fares, matcher,
		f.lifecycle, f.payments, fixedDemand(1.0), f.notifications, logger,
	)
	f.rides = service.NewRideService(f.store, f.lifecycle, f.cache, logger)
	f.admin = service.NewAdminService(f.store, f.lifecycle, f.payments, f.notifications, logger)
	f.participants = service.NewParticipantManager(f.store, logger)
	f.drivers = service.NewDriverService(f.store, logger)
	f.customers = service.NewCustomerService(f.store)
	return f
}

var (
	pickupPoint   = domain.GeoPoint{Lat: 40.7128, Lng: -74.0060}
	dropoffPoint  = domain.GeoPoint{Lat: 40.7580, Lng: -73.9855}
	nearPickup    = domain.GeoPoint{Lat: 40.7138, Lng: -74.0070}
	fartherPickup = domain.GeoPoint{Lat: 40.7400, Lng: -74.0060}
)

func customer(id string) domain.Principal { return domain.Principal{ID: id, Role: domain.RoleCustomer} }
func agent(id string) domain.Principal { return domain.Principal{ID: id, Role: domain.RoleAgent} }
func admin() domain.Principal { return domain.Principal{ID: "admin-1", Role: domain.RoleAdmin} }

func ptr[T any](v T) *T { return &v }
