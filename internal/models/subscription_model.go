package models

import "time"

// UnknownCustomerID keys the fallback record when an event carries no customer.
const UnknownCustomerID = "unknown"

// SubscriptionRecord mirrors a Stripe subscription under either
// users/{uid}/subscriptions or stripe_customers/{customerId}/subscriptions.
type SubscriptionRecord struct {
	DocID                string                 `json:"docId" firestore:"-"`
	ID                   string                 `json:"id,omitempty" firestore:"id,omitempty"`
	SessionID            string                 `json:"sessionId,omitempty" firestore:"sessionId,omitempty"`
	Email                string                 `json:"email,omitempty" firestore:"email,omitempty"`
	Status               string                 `json:"status,omitempty" firestore:"status,omitempty"`
	StripeCustomerID     string                 `json:"stripeCustomerId,omitempty" firestore:"stripeCustomerId,omitempty"`
	Price                *int64                 `json:"price,omitempty" firestore:"price,omitempty"`
	Interval             string                 `json:"interval,omitempty" firestore:"interval,omitempty"`
	CurrentPeriodStart   *int64                 `json:"current_period_start,omitempty" firestore:"current_period_start,omitempty"`
	CurrentPeriodEnd     *int64                 `json:"current_period_end,omitempty" firestore:"current_period_end,omitempty"`
	LastInvoiceID        string                 `json:"lastInvoiceId,omitempty" firestore:"lastInvoiceId,omitempty"`
	LastPaymentTimestamp *time.Time             `json:"lastPaymentTimestamp,omitempty" firestore:"lastPaymentTimestamp,omitempty"`
	Raw                  map[string]interface{} `json:"raw,omitempty" firestore:"raw,omitempty"`
	Invoice              map[string]interface{} `json:"invoice,omitempty" firestore:"invoice,omitempty"`
	CreatedAt            time.Time              `json:"createdAt,omitempty" firestore:"createdAt,omitempty"`
	UpdatedAt            time.Time              `json:"updatedAt,omitempty" firestore:"updatedAt,omitempty"`
}

// SubscriptionPatch is a merge-upsert of a SubscriptionRecord. Zero-valued
// fields are left untouched on the stored document, so applying the same
// patch twice yields the same document.
type SubscriptionPatch struct {
	ID                   string
	SessionID            string
	Email                string
	Status               string
	StripeCustomerID     string
	Price                *int64
	Interval             string
	CurrentPeriodStart   *int64
	CurrentPeriodEnd     *int64
	LastInvoiceID        string
	LastPaymentTimestamp *time.Time
	Raw                  map[string]interface{}
	Invoice              map[string]interface{}
	// MarkCreated stamps createdAt, as the checkout path does.
	MarkCreated bool
}

// Fields returns the patch as a Firestore merge map, without timestamps.
func (p SubscriptionPatch) Fields() map[string]interface{} {
	m := make(map[string]interface{})
	setString := func(k, v string) {
		if v != "" {
			m[k] = v
		}
	}
	setString("id", p.ID)
	setString("sessionId", p.SessionID)
	setString("email", p.Email)
	setString("status", p.Status)
	setString("stripeCustomerId", p.StripeCustomerID)
	setString("interval", p.Interval)
	setString("lastInvoiceId", p.LastInvoiceID)
	if p.Price != nil {
		m["price"] = *p.Price
	}
	if p.CurrentPeriodStart != nil {
		m["current_period_start"] = *p.CurrentPeriodStart
	}
	if p.CurrentPeriodEnd != nil {
		m["current_period_end"] = *p.CurrentPeriodEnd
	}
	if p.LastPaymentTimestamp != nil {
		m["lastPaymentTimestamp"] = *p.LastPaymentTimestamp
	}
	if p.Raw != nil {
		m["raw"] = p.Raw
	}
	if p.Invoice != nil {
		m["invoice"] = p.Invoice
	}
	return m
}

// Apply merges the patch into r.
func (p SubscriptionPatch) Apply(r *SubscriptionRecord, now time.Time) {
	merge := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	merge(&r.ID, p.ID)
	merge(&r.SessionID, p.SessionID)
	merge(&r.Email, p.Email)
	merge(&r.Status, p.Status)
	merge(&r.StripeCustomerID, p.StripeCustomerID)
	merge(&r.Interval, p.Interval)
	merge(&r.LastInvoiceID, p.LastInvoiceID)
	if p.Price != nil {
		v := *p.Price
		r.Price = &v
	}
	if p.CurrentPeriodStart != nil {
		v := *p.CurrentPeriodStart
		r.CurrentPeriodStart = &v
	}
	if p.CurrentPeriodEnd != nil {
		v := *p.CurrentPeriodEnd
		r.CurrentPeriodEnd = &v
	}
	if p.LastPaymentTimestamp != nil {
		v := *p.LastPaymentTimestamp
		r.LastPaymentTimestamp = &v
	}
	if p.Raw != nil {
		r.Raw = p.Raw
	}
	if p.Invoice != nil {
		r.Invoice = p.Invoice
	}
	if p.MarkCreated {
		r.CreatedAt = now
	}
	r.UpdatedAt = now
}

// StripeCustomer is the fallback record at stripe_customers/{customerId}
// used when an event cannot be matched to a known user.
type StripeCustomer struct {
	ID               string    `json:"id" firestore:"-"`
	Email            string    `json:"email,omitempty" firestore:"email"`
	StripeCustomerID string    `json:"stripeCustomerId,omitempty" firestore:"stripeCustomerId"`
	UpdatedAt        time.Time `json:"updatedAt" firestore:"updatedAt"`
}

// ProfileProjection returns the profile subscription fields a Stripe status
// and interval imply. ok is false when the pair says nothing definite.
func ProfileProjection(status, interval string) (plan Plan, subscribed bool, ok bool) {
	switch {
	case GrantsPremium(status):
		p, known := PlanForInterval(interval)
		if !known {
			return "", false, false
		}
		return p, true, true
	case status == "canceled" || status == "unpaid" || status == "incomplete_expired":
		return PlanFree, false, true
	}
	return "", false, false
}

// GrantsPremium reports whether a Stripe subscription status keeps premium
// access.
func GrantsPremium(status string) bool {
	return status == "active" || status == "trialing"
}
