package core

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/stripe/stripe-go/v82"
)

// Stripe event types the reconciler acts on.
const (
	EventCheckoutCompleted   = "checkout.session.completed"
	EventInvoicePaid         = "invoice.payment_succeeded"
	EventSubscriptionCreated = "customer.subscription.created"
	EventSubscriptionUpdated = "customer.subscription.updated"
	EventSubscriptionDeleted = "customer.subscription.deleted"
)

// Event is a verified webhook event resolved to one typed variant:
// *CheckoutCompleted, *InvoicePaid, *SubscriptionChanged or *Unhandled.
type Event interface {
	Meta() EventMeta
}

// EventMeta is common to all events.
type EventMeta struct {
	ID      string
	Type    string
	Created time.Time
}

func (m EventMeta) Meta() EventMeta { return m }

// CheckoutCompleted is a finished hosted checkout.
type CheckoutCompleted struct {
	EventMeta
	SessionID      string
	Mode           string
	SubscriptionID string
	CustomerID     string
	Email          string
	Raw            map[string]interface{}
}

// InvoicePaid is a successful subscription invoice payment.
type InvoicePaid struct {
	EventMeta
	InvoiceID      string
	SubscriptionID string
	CustomerID     string
	Email          string
	// PaidAt is the invoice's paid_at transition, or the event time when absent.
	PaidAt time.Time
	Raw    map[string]interface{}
}

// SubscriptionChanged is a subscription created, updated or deleted event.
type SubscriptionChanged struct {
	EventMeta
	Subscription SubscriptionDetails
}

// Unhandled is any other event type. It is acknowledged and ignored.
type Unhandled struct {
	EventMeta
}

// SubscriptionDetails is the part of a Stripe subscription the store keeps.
type SubscriptionDetails struct {
	ID                 string
	Status             string
	CustomerID         string
	CustomerEmail      string
	Price              *int64
	Interval           string
	CurrentPeriodStart *int64
	CurrentPeriodEnd   *int64
	Raw                map[string]interface{}
}

// SubscriptionDetailsFromStripe flattens sub. Price, interval and period come
// from the first item.
func SubscriptionDetailsFromStripe(sub *stripe.Subscription, raw map[string]interface{}) SubscriptionDetails {
	d := SubscriptionDetails{
		ID:     sub.ID,
		Status: string(sub.Status),
		Raw:    raw,
	}
	if sub.Customer != nil {
		d.CustomerID = sub.Customer.ID
		d.CustomerEmail = sub.Customer.Email
	}
	if sub.Items != nil && len(sub.Items.Data) > 0 && sub.Items.Data[0] != nil {
		item := sub.Items.Data[0]
		if item.Price != nil {
			amount := item.Price.UnitAmount
			d.Price = &amount
			if item.Price.Recurring != nil {
				d.Interval = string(item.Price.Recurring.Interval)
			}
		}
		if item.CurrentPeriodStart != 0 {
			start := item.CurrentPeriodStart
			d.CurrentPeriodStart = &start
		}
		if item.CurrentPeriodEnd != 0 {
			end := item.CurrentPeriodEnd
			d.CurrentPeriodEnd = &end
		}
	}
	return d
}

// ParseEvent resolves a verified Stripe event into its typed variant.
func ParseEvent(evt stripe.Event) (Event, error) {
	meta := EventMeta{
		ID:      evt.ID,
		Type:    string(evt.Type),
		Created: time.Unix(evt.Created, 0).UTC(),
	}
	var raw json.RawMessage
	if evt.Data != nil {
		raw = evt.Data.Raw
	}

	switch meta.Type {
	case EventCheckoutCompleted:
		return parseCheckoutCompleted(meta, raw)
	case EventInvoicePaid:
		return parseInvoicePaid(meta, raw)
	case EventSubscriptionCreated, EventSubscriptionUpdated, EventSubscriptionDeleted:
		return parseSubscriptionChanged(meta, raw)
	}
	return &Unhandled{EventMeta: meta}, nil
}

func rawObject(raw json.RawMessage) (map[string]interface{}, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("event carries no data object")
	}
	var m map[string]interface{}
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	return m, nil
}

func parseCheckoutCompleted(meta EventMeta, raw json.RawMessage) (Event, error) {
	obj, err := rawObject(raw)
	if err != nil {
		return nil, fmt.Errorf("parse %s %s: %w", meta.Type, meta.ID, err)
	}
	var session stripe.CheckoutSession
	if err := json.Unmarshal(raw, &session); err != nil {
		return nil, fmt.Errorf("parse %s %s: %w", meta.Type, meta.ID, err)
	}

	e := &CheckoutCompleted{
		EventMeta: meta,
		SessionID: session.ID,
		Mode:      string(session.Mode),
		Raw:       obj,
	}
	if session.Subscription != nil {
		e.SubscriptionID = session.Subscription.ID
	}
	if session.Customer != nil {
		e.CustomerID = session.Customer.ID
	}
	if session.CustomerDetails != nil && session.CustomerDetails.Email != "" {
		e.Email = session.CustomerDetails.Email
	} else {
		e.Email = session.CustomerEmail
	}
	return e, nil
}

// expandableID accepts either an object id string or an expanded object.
type expandableID string

func (e *expandableID) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*e = expandableID(s)
		return nil
	}
	var obj struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(b, &obj); err != nil {
		return err
	}
	*e = expandableID(obj.ID)
	return nil
}

// invoicePayload covers both the legacy top-level subscription field and the
// newer parent.subscription_details one.
type invoicePayload struct {
	ID            string       `json:"id"`
	Customer      expandableID `json:"customer"`
	CustomerEmail string       `json:"customer_email"`
	Subscription  expandableID `json:"subscription"`
	Parent        *struct {
		SubscriptionDetails *struct {
			Subscription expandableID `json:"subscription"`
		} `json:"subscription_details"`
	} `json:"parent"`
	StatusTransitions struct {
		PaidAt int64 `json:"paid_at"`
	} `json:"status_transitions"`
}

func parseInvoicePaid(meta EventMeta, raw json.RawMessage) (Event, error) {
	obj, err := rawObject(raw)
	if err != nil {
		return nil, fmt.Errorf("parse %s %s: %w", meta.Type, meta.ID, err)
	}
	var inv invoicePayload
	if err := json.Unmarshal(raw, &inv); err != nil {
		return nil, fmt.Errorf("parse %s %s: %w", meta.Type, meta.ID, err)
	}

	e := &InvoicePaid{
		EventMeta:      meta,
		InvoiceID:      inv.ID,
		SubscriptionID: string(inv.Subscription),
		CustomerID:     string(inv.Customer),
		Email:          inv.CustomerEmail,
		PaidAt:         meta.Created,
		Raw:            obj,
	}
	if e.SubscriptionID == "" && inv.Parent != nil && inv.Parent.SubscriptionDetails != nil {
		e.SubscriptionID = string(inv.Parent.SubscriptionDetails.Subscription)
	}
	if inv.StatusTransitions.PaidAt > 0 {
		e.PaidAt = time.Unix(inv.StatusTransitions.PaidAt, 0).UTC()
	}
	return e, nil
}

func parseSubscriptionChanged(meta EventMeta, raw json.RawMessage) (Event, error) {
	obj, err := rawObject(raw)
	if err != nil {
		return nil, fmt.Errorf("parse %s %s: %w", meta.Type, meta.ID, err)
	}
	var sub stripe.Subscription
	if err := json.Unmarshal(raw, &sub); err != nil {
		return nil, fmt.Errorf("parse %s %s: %w", meta.Type, meta.ID, err)
	}
	if sub.ID == "" {
		return nil, fmt.Errorf("parse %s %s: subscription has no id", meta.Type, meta.ID)
	}
	return &SubscriptionChanged{
		EventMeta:    meta,
		Subscription: SubscriptionDetailsFromStripe(&sub, obj),
	}, nil
}
