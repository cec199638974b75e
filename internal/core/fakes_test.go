package core

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v82/webhook"
)

const testWebhookSecret = "whsec_test_secret"

var testClock = time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)

func fixedNow() time.Time { return testClock }

type fakeGateway struct {
	mu        sync.Mutex
	sessions  []CheckoutSessionParams
	subs      map[string]*SubscriptionDetails
	createErr error
	getErr    error
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{subs: make(map[string]*SubscriptionDetails)}
}

func (g *fakeGateway) CreateCheckoutSession(_ context.Context, params CheckoutSessionParams) (*CheckoutSession, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.createErr != nil {
		return nil, g.createErr
	}
	g.sessions = append(g.sessions, params)
	return &CheckoutSession{ID: "cs_test_1", URL: "https://checkout.stripe.com/c/pay/cs_test_1"}, nil
}

func (g *fakeGateway) GetSubscription(_ context.Context, id string) (*SubscriptionDetails, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.getErr != nil {
		return nil, g.getErr
	}
	d, ok := g.subs[id]
	if !ok {
		return nil, errors.New("no such subscription: " + id)
	}
	return d, nil
}

type fakeLedger struct {
	mu      sync.Mutex
	seen    map[string]bool
	seenErr error
}

func newFakeLedger() *fakeLedger { return &fakeLedger{seen: make(map[string]bool)} }

func (l *fakeLedger) Seen(_ context.Context, id string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.seenErr != nil {
		return false, l.seenErr
	}
	return l.seen[id], nil
}

func (l *fakeLedger) Mark(_ context.Context, id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.seen[id] = true
	return nil
}

type fakePublisher struct {
	mu   sync.Mutex
	msgs []SubscriptionChangedMessage
	err  error
}

func (p *fakePublisher) PublishSubscriptionChanged(_ context.Context, msg SubscriptionChangedMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.msgs = append(p.msgs, msg)
	return nil
}

func (p *fakePublisher) messages() []SubscriptionChangedMessage {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]SubscriptionChangedMessage(nil), p.msgs...)
}

// eventPayload builds a Stripe event envelope around obj.
func eventPayload(t *testing.T, id, eventType string, obj interface{}) []byte {
	t.Helper()
	b, err := json.Marshal(map[string]interface{}{
		"id":          id,
		"object":      "event",
		"type":        eventType,
		"created":     testClock.Unix(),
		"api_version": "2025-03-31.basil",
		"data":        map[string]interface{}{"object": obj},
	})
	require.NoError(t, err)
	return b
}

// sign returns the Stripe-Signature header for payload.
func sign(payload []byte, secret string) string {
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   payload,
		Secret:    secret,
		Timestamp: time.Now(),
	})
	return signed.Header
}

func checkoutSessionObject(sessionID, subscriptionID, customerID, email string) map[string]interface{} {
	obj := map[string]interface{}{
		"id":               sessionID,
		"object":           "checkout.session",
		"mode":             "subscription",
		"customer":         customerID,
		"customer_details": map[string]interface{}{"email": email},
		"metadata":         map[string]interface{}{"uid": "ignored"},
	}
	if subscriptionID != "" {
		obj["subscription"] = subscriptionID
	}
	return obj
}

func subscriptionObject(id, status, customer interface{}, interval string, amount int64) map[string]interface{} {
	return map[string]interface{}{
		"id":       id,
		"object":   "subscription",
		"status":   status,
		"customer": customer,
		"items": map[string]interface{}{
			"object": "list",
			"data": []interface{}{
				map[string]interface{}{
					"id":                   "si_1",
					"object":               "subscription_item",
					"current_period_start": int64(1717236000),
					"current_period_end":   int64(1719828000),
					"price": map[string]interface{}{
						"id":          "price_1",
						"object":      "price",
						"unit_amount": amount,
						"recurring":   map[string]interface{}{"interval": interval},
					},
				},
			},
		},
	}
}
