package gateway

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// Intent states tracked by LocalPaymentGateway.
const (
	IntentPending    = "PENDING"
	IntentAuthorized = "AUTHORIZED"
	IntentCancelled  = "CANCELLED"
)

var (
	// ErrIntentNotFound is returned for an unknown intent id.
	ErrIntentNotFound = errors.New("payment intent not found")

	// ErrIntentClosed is returned when an intent can no longer change.
	ErrIntentClosed = errors.New("payment intent is closed")

	// ErrInvalidAmount is returned for a negative amount.
	ErrInvalidAmount = errors.New("invalid payment amount")
)

// Intent is a payment intent held by LocalPaymentGateway.
type Intent struct {
	ID       string
	RideID   string
	Amount   float64
	Status   string
	Metadata map[string]string
}

// LocalPaymentGateway is an in-process payment processor. It accepts every
// well-formed request and keeps intents in memory.
type LocalPaymentGateway struct {
	mu      sync.RWMutex
	intents map[string]*Intent
}

// NewLocalPaymentGateway creates a new LocalPaymentGateway.
func NewLocalPaymentGateway() *LocalPaymentGateway {
	return &LocalPaymentGateway{intents: make(map[string]*Intent)}
}

// CreateIntent opens a PENDING intent.
func (g *LocalPaymentGateway) CreateIntent(ctx context.Context, amount float64, rideID string, metadata map[string]string) (string, error) {
	if amount < 0 {
		return "", ErrInvalidAmount
	}
	intent := &Intent{
		ID:       "pi_" + uuid.New().String(),
		RideID:   rideID,
		Amount:   amount,
		Status:   IntentPending,
		Metadata: copyMetadata(metadata),
	}

	g.mu.Lock()
	g.intents[intent.ID] = intent
	g.mu.Unlock()
	return intent.ID, nil
}

// UpdateIntent changes the amount of a PENDING intent.
func (g *LocalPaymentGateway) UpdateIntent(ctx context.Context, intentID string, amount float64, metadata map[string]string) error {
	if amount < 0 {
		return ErrInvalidAmount
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	intent, err := g.pending(intentID)
	if err != nil {
		return err
	}
	intent.Amount = amount
	intent.Metadata = copyMetadata(metadata)
	return nil
}

// AuthorizeIntent captures a PENDING intent. Authorizing twice is a no-op.
func (g *LocalPaymentGateway) AuthorizeIntent(ctx context.Context, intentID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if intent, ok := g.intents[intentID]; ok && intent.Status == IntentAuthorized {
		return nil
	}
	intent, err := g.pending(intentID)
	if err != nil {
		return err
	}
	intent.Status = IntentAuthorized
	return nil
}

// CancelIntent cancels an intent. Cancelling twice is a no-op.
func (g *LocalPaymentGateway) CancelIntent(ctx context.Context, intentID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	intent, ok := g.intents[intentID]
	if !ok {
		return ErrIntentNotFound
	}
	intent.Status = IntentCancelled
	return nil
}

// Intent returns a copy of the intent with the given id.
func (g *LocalPaymentGateway) Intent(intentID string) (Intent, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	intent, ok := g.intents[intentID]
	if !ok {
		return Intent{}, false
	}
	return *intent, true
}

func (g *LocalPaymentGateway) pending(intentID string) (*Intent, error) {
	intent, ok := g.intents[intentID]
	if !ok {
		return nil, ErrIntentNotFound
	}
	if intent.Status != IntentPending {
		return nil, fmt.Errorf("%w: %s", ErrIntentClosed, intent.Status)
	}
	return intent, nil
}

func copyMetadata(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
