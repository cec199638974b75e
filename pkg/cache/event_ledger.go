package cache

import (
	"context"
	"time"
)

const (
	eventKeyPrefix = "stripe:event:"
	// DefaultEventTTL covers Stripe's retry window for a failed delivery.
	DefaultEventTTL = 72 * time.Hour
)

// EventLedger records processed webhook event ids in a Cache so redelivered
// events can be acknowledged without touching the store.
type EventLedger struct {
	cache Cache
	ttl   time.Duration
}

// NewEventLedger creates a ledger. A non-positive ttl uses DefaultEventTTL.
func NewEventLedger(c Cache, ttl time.Duration) *EventLedger {
	if ttl <= 0 {
		ttl = DefaultEventTTL
	}
	return &EventLedger{cache: c, ttl: ttl}
}

func (l *EventLedger) Seen(ctx context.Context, eventID string) (bool, error) {
	return l.cache.Exists(ctx, eventKeyPrefix+eventID)
}

func (l *EventLedger) Mark(ctx context.Context, eventID string) error {
	return l.cache.Set(ctx, eventKeyPrefix+eventID, "1", l.ttl)
}
