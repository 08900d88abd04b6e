package grid

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/picklecourt/courtdesk/storage"
)

// CheckoutKey is the storage key staged selections live under.
const CheckoutKey = "checkout"

// Checkout is the staged state of a multi-step checkout.
type Checkout struct {
	Selections []Selection `json:"selections"`
	Tier       Tier        `json:"tier"`
	Method     Method      `json:"method"`
	OrderID    string      `json:"orderId,omitempty"`
	SavedAt    time.Time   `json:"savedAt"`
}

// Stager persists a Checkout between steps.
type Stager struct {
	backend storage.Backend
	key     string
	now     func() time.Time
}

// NewStager stages under CheckoutKey.
func NewStager(backend storage.Backend) *Stager {
	return &Stager{backend: backend, key: CheckoutKey, now: time.Now}
}

func (s *Stager) Stage(ctx context.Context, c Checkout) error {
	c.SavedAt = s.now().UTC()
	raw, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("grid: encode checkout: %w", err)
	}
	return s.backend.Set(ctx, s.key, raw)
}

// Load returns the staged checkout. ok is false when nothing is staged or the staged
// document is unreadable; an unreadable document is removed.
func (s *Stager) Load(ctx context.Context) (c Checkout, ok bool, err error) {
	raw, err := s.backend.Get(ctx, s.key)
	if errors.Is(err, storage.ErrNotFound) {
		return Checkout{}, false, nil
	}
	if err != nil {
		return Checkout{}, false, err
	}
	if err := json.Unmarshal(raw, &c); err != nil {
		return Checkout{}, false, s.Clear(ctx)
	}
	return c, true, nil
}

// Clear removes the staged checkout. It satisfies payment.CheckoutClearer.
func (s *Stager) Clear(ctx context.Context) error {
	return s.backend.Delete(ctx, s.key)
}
