package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/stripe/stripe-go/v82/webhook"
	"go.uber.org/zap"

	"github.com/example/summarist/internal/db"
	"github.com/example/summarist/internal/metrics"
	"github.com/example/summarist/internal/models"
)

// Webhook outcomes, as counted in metrics.
const (
	outcomeProcessed        = "processed"
	outcomeIgnored          = "ignored"
	outcomeDuplicate        = "duplicate"
	outcomeFailed           = "failed"
	outcomeInvalidSignature = "invalid_signature"
)

// WebhookReconcilerConfig carries the reconciler's collaborators. Only
// WebhookSecret and Repositories are required for processing; the rest may
// be nil.
type WebhookReconcilerConfig struct {
	WebhookSecret string
	Repositories  *db.Repositories
	Gateway       PaymentGateway
	Ledger        EventLedger
	Publisher     EventPublisher
	Metrics       *metrics.Metrics
	Logger        *zap.Logger
}

// WebhookReconciler applies Stripe webhook events to the Profile Store.
type WebhookReconciler struct {
	secret    string
	repos     *db.Repositories
	gateway   PaymentGateway
	ledger    EventLedger
	publisher EventPublisher
	metrics   *metrics.Metrics
	logger    *zap.Logger
}

func NewWebhookReconciler(cfg WebhookReconcilerConfig) *WebhookReconciler {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WebhookReconciler{
		secret:    cfg.WebhookSecret,
		repos:     cfg.Repositories,
		gateway:   cfg.Gateway,
		ledger:    cfg.Ledger,
		publisher: cfg.Publisher,
		metrics:   cfg.Metrics,
		logger:    logger,
	}
}

// change describes what a reconciled event wrote.
type change struct {
	uid            string
	customerID     string
	subscriptionID string
	status         string
	email          string
}

// HandleWebhook verifies payload against the signature header and applies
// the event. Verification happens before anything in the body is trusted.
func (r *WebhookReconciler) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	if r.secret == "" {
		return fmt.Errorf("%w: webhook secret not configured", ErrServiceUnavailable)
	}
	evt, err := webhook.ConstructEventWithOptions(payload, signature, r.secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		r.metrics.WebhookEvent("unknown", outcomeInvalidSignature)
		r.logger.Warn("Stripe webhook signature verification failed", zap.Error(err))
		return fmt.Errorf("%w: %v", ErrSignatureVerification, err)
	}
	if r.repos == nil {
		return fmt.Errorf("%w: profile store not configured", ErrServiceUnavailable)
	}

	event, err := ParseEvent(evt)
	if err != nil {
		r.metrics.WebhookEvent(string(evt.Type), outcomeFailed)
		return err
	}
	return r.Reconcile(ctx, event)
}

// Reconcile applies a parsed event. Events already recorded in the ledger
// are acknowledged without writing.
func (r *WebhookReconciler) Reconcile(ctx context.Context, event Event) error {
	meta := event.Meta()
	log := r.logger.With(zap.String("eventId", meta.ID), zap.String("eventType", meta.Type))

	if _, ok := event.(*Unhandled); ok {
		r.metrics.WebhookEvent(meta.Type, outcomeIgnored)
		log.Debug("Ignoring unhandled Stripe event")
		return nil
	}

	if r.ledger != nil && meta.ID != "" {
		seen, err := r.ledger.Seen(ctx, meta.ID)
		if err != nil {
			log.Warn("Event ledger lookup failed, processing anyway", zap.Error(err))
		} else if seen {
			r.metrics.WebhookEvent(meta.Type, outcomeDuplicate)
			log.Info("Stripe event already processed")
			return nil
		}
	}

	var (
		ch  *change
		err error
	)
	switch e := event.(type) {
	case *CheckoutCompleted:
		ch, err = r.checkoutCompleted(ctx, log, e)
	case *InvoicePaid:
		ch, err = r.invoicePaid(ctx, log, e)
	case *SubscriptionChanged:
		ch, err = r.subscriptionChanged(ctx, log, e)
	default:
		err = fmt.Errorf("unsupported event variant %T", event)
	}
	if err != nil {
		r.metrics.WebhookEvent(meta.Type, outcomeFailed)
		log.Error("Failed to reconcile Stripe event", zap.Error(err))
		return err
	}

	if r.ledger != nil && meta.ID != "" {
		if err := r.ledger.Mark(ctx, meta.ID); err != nil {
			log.Warn("Failed to record event in ledger", zap.Error(err))
		}
	}
	if ch != nil {
		r.publish(ctx, log, meta, ch)
	}
	r.metrics.WebhookEvent(meta.Type, outcomeProcessed)
	return nil
}

func (r *WebhookReconciler) publish(ctx context.Context, log *zap.Logger, meta EventMeta, ch *change) {
	if r.publisher == nil {
		return
	}
	msg := SubscriptionChangedMessage{
		EventID:        meta.ID,
		EventType:      meta.Type,
		SubscriptionID: ch.subscriptionID,
		Status:         ch.status,
		UID:            ch.uid,
		CustomerID:     ch.customerID,
		Email:          ch.email,
		OccurredAt:     meta.Created,
	}
	if err := r.publisher.PublishSubscriptionChanged(ctx, msg); err != nil {
		log.Warn("Failed to publish subscription change", zap.Error(err))
	}
}

// resolveUser finds the user whose index email matches exactly. An empty
// uid with a nil error means no match.
func (r *WebhookReconciler) resolveUser(ctx context.Context, email string) (string, error) {
	if email == "" {
		return "", nil
	}
	user, err := r.repos.Users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return "", nil
		}
		return "", fmt.Errorf("resolve user by email: %w", err)
	}
	return user.UID, nil
}

// resolveCustomer finds the user linked to a Stripe customer at checkout.
func (r *WebhookReconciler) resolveCustomer(ctx context.Context, customerID string) (string, error) {
	if customerID == "" {
		return "", nil
	}
	user, err := r.repos.Users.FindByStripeCustomerID(ctx, customerID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return "", nil
		}
		return "", fmt.Errorf("resolve user by Stripe customer: %w", err)
	}
	return user.UID, nil
}

// subscriberEmail asks Stripe for the subscription's customer email. Stripe
// sends subscription events with the customer as a bare id.
func (r *WebhookReconciler) subscriberEmail(ctx context.Context, log *zap.Logger, subscriptionID string) string {
	if r.gateway == nil {
		return ""
	}
	details, err := r.gateway.GetSubscription(ctx, subscriptionID)
	if err != nil {
		log.Warn("Failed to retrieve subscription customer", zap.String("subscriptionId", subscriptionID), zap.Error(err))
		return ""
	}
	return details.CustomerEmail
}

func (r *WebhookReconciler) checkoutCompleted(ctx context.Context, log *zap.Logger, e *CheckoutCompleted) (*change, error) {
	var details *SubscriptionDetails
	if e.SubscriptionID != "" && r.gateway != nil {
		d, err := r.gateway.GetSubscription(ctx, e.SubscriptionID)
		if err != nil {
			log.Warn("Failed to retrieve subscription", zap.String("subscriptionId", e.SubscriptionID), zap.Error(err))
		} else {
			details = d
		}
	}

	patch := models.SubscriptionPatch{
		ID:               e.SubscriptionID,
		Status:           "unknown",
		StripeCustomerID: e.CustomerID,
		Raw:              e.Raw,
		MarkCreated:      true,
	}
	if details != nil {
		if details.Status != "" {
			patch.Status = details.Status
		}
		patch.Price = details.Price
		patch.Interval = details.Interval
		patch.CurrentPeriodStart = details.CurrentPeriodStart
		patch.CurrentPeriodEnd = details.CurrentPeriodEnd
		if details.Raw != nil {
			patch.Raw = details.Raw
		}
	}
	ch := &change{
		customerID:     e.CustomerID,
		subscriptionID: e.SubscriptionID,
		status:         patch.Status,
		email:          e.Email,
	}

	uid, err := r.resolveUser(ctx, e.Email)
	if err != nil {
		return nil, err
	}

	if uid == "" {
		customerID := e.CustomerID
		if customerID == "" {
			customerID = models.UnknownCustomerID
		}
		log.Info("No user matches checkout email, recording under Stripe customer", zap.String("customerId", customerID))
		if err := r.repos.StripeCustomers.Upsert(ctx, &models.StripeCustomer{
			ID:               customerID,
			Email:            e.Email,
			StripeCustomerID: e.CustomerID,
		}); err != nil {
			return nil, err
		}
		if e.SubscriptionID != "" {
			if err := r.repos.Subscriptions.UpsertForCustomer(ctx, customerID, e.SubscriptionID, patch); err != nil {
				return nil, err
			}
		}
		return ch, nil
	}

	ch.uid = uid
	if err := r.repos.Users.LinkStripe(ctx, uid, e.CustomerID, ""); err != nil {
		return nil, err
	}
	if e.SubscriptionID == "" {
		sessionPatch := models.SubscriptionPatch{
			SessionID:        e.SessionID,
			StripeCustomerID: e.CustomerID,
			Email:            e.Email,
			Raw:              e.Raw,
			MarkCreated:      true,
		}
		if err := r.repos.Subscriptions.UpsertForUser(ctx, uid, "session-"+e.SessionID, sessionPatch); err != nil {
			return nil, err
		}
		ch.status = ""
		return ch, nil
	}

	if err := r.repos.Subscriptions.UpsertForUser(ctx, uid, e.SubscriptionID, patch); err != nil {
		return nil, err
	}
	if err := r.projectProfile(ctx, log, uid, e.CustomerID, e.SubscriptionID, patch.Status, patch.Interval, patch.CurrentPeriodStart, e.Created); err != nil {
		return nil, err
	}
	return ch, nil
}

func (r *WebhookReconciler) invoicePaid(ctx context.Context, log *zap.Logger, e *InvoicePaid) (*change, error) {
	if e.SubscriptionID == "" {
		log.Debug("Invoice is not for a subscription")
		return nil, nil
	}
	paidAt := e.PaidAt
	patch := models.SubscriptionPatch{
		Status:               "active",
		LastInvoiceID:        e.InvoiceID,
		LastPaymentTimestamp: &paidAt,
		Invoice:              e.Raw,
	}
	ch := &change{
		customerID:     e.CustomerID,
		subscriptionID: e.SubscriptionID,
		status:         patch.Status,
		email:          e.Email,
	}

	uid, err := r.resolveUser(ctx, e.Email)
	if err != nil {
		return nil, err
	}
	if uid == "" {
		if uid, err = r.resolveCustomer(ctx, e.CustomerID); err != nil {
			return nil, err
		}
	}
	if uid != "" {
		ch.uid = uid
		return ch, r.repos.Subscriptions.UpsertForUser(ctx, uid, e.SubscriptionID, patch)
	}

	customerID := e.CustomerID
	if customerID == "" {
		customerID = models.UnknownCustomerID
	}
	return ch, r.repos.Subscriptions.UpsertForCustomer(ctx, customerID, e.SubscriptionID, patch)
}

func (r *WebhookReconciler) subscriptionChanged(ctx context.Context, log *zap.Logger, e *SubscriptionChanged) (*change, error) {
	sub := e.Subscription
	patch := models.SubscriptionPatch{
		ID:                 sub.ID,
		Status:             sub.Status,
		Price:              sub.Price,
		Interval:           sub.Interval,
		CurrentPeriodStart: sub.CurrentPeriodStart,
		CurrentPeriodEnd:   sub.CurrentPeriodEnd,
		Raw:                sub.Raw,
	}
	ch := &change{
		customerID:     sub.CustomerID,
		subscriptionID: sub.ID,
		status:         sub.Status,
		email:          sub.CustomerEmail,
	}

	customer, err := r.repos.StripeCustomers.FindByCustomerID(ctx, sub.CustomerID)
	switch {
	case err == nil:
		return ch, r.repos.Subscriptions.UpsertForCustomer(ctx, customer.ID, sub.ID, patch)
	case !errors.Is(err, db.ErrNotFound):
		return nil, err
	}

	uid, err := r.resolveUser(ctx, sub.CustomerEmail)
	if err != nil {
		return nil, err
	}
	if uid == "" {
		if uid, err = r.resolveCustomer(ctx, sub.CustomerID); err != nil {
			return nil, err
		}
	}
	if uid == "" && sub.CustomerEmail == "" {
		email := r.subscriberEmail(ctx, log, sub.ID)
		if uid, err = r.resolveUser(ctx, email); err != nil {
			return nil, err
		}
		ch.email = email
	}
	if uid == "" {
		log.Info("Subscription event matches no customer or user", zap.String("subscriptionId", sub.ID), zap.String("customerId", sub.CustomerID))
		return nil, nil
	}

	ch.uid = uid
	patch.StripeCustomerID = sub.CustomerID
	if err := r.repos.Subscriptions.UpsertForUser(ctx, uid, sub.ID, patch); err != nil {
		return nil, err
	}
	if err := r.projectProfile(ctx, log, uid, sub.CustomerID, sub.ID, sub.Status, sub.Interval, sub.CurrentPeriodStart, e.Created); err != nil {
		return nil, err
	}
	return ch, nil
}

// projectProfile mirrors a definite subscription status onto profiles/{uid}.
// The subscription date is taken from the event so redelivery writes the
// same value. A subscription that grants premium becomes the user's current
// one; ending any other subscription leaves the profile alone while the
// current one is still live.
func (r *WebhookReconciler) projectProfile(ctx context.Context, log *zap.Logger, uid, customerID, subscriptionID, status, interval string, periodStart *int64, eventTime time.Time) error {
	plan, subscribed, ok := models.ProfileProjection(status, interval)
	if !ok {
		return nil
	}
	if !subscribed {
		current, err := r.liveSubscription(ctx, uid, subscriptionID)
		if err != nil {
			return err
		}
		if current != "" {
			log.Info("Keeping premium from a newer subscription", zap.String("uid", uid), zap.String("currentSubscriptionId", current))
			return nil
		}
	}
	update := db.SubscriptionUpdate{Plan: plan, Subscribed: subscribed}
	if subscribed {
		date := eventTime
		if periodStart != nil {
			date = time.Unix(*periodStart, 0).UTC()
		}
		update.SubscriptionDate = &date
	}
	if err := r.repos.Profiles.UpdateSubscription(ctx, uid, update); err != nil {
		return err
	}
	if subscribed {
		if err := r.repos.Users.LinkStripe(ctx, uid, customerID, subscriptionID); err != nil {
			return err
		}
	}
	log.Info("Projected subscription onto profile", zap.String("uid", uid), zap.String("plan", string(plan)), zap.Bool("subscribed", subscribed))
	return nil
}

// liveSubscription returns the user's current subscription id when it is a
// different subscription than ending and its record still grants premium.
func (r *WebhookReconciler) liveSubscription(ctx context.Context, uid, ending string) (string, error) {
	user, err := r.repos.Users.GetByID(ctx, uid)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return "", nil
		}
		return "", fmt.Errorf("read current subscription: %w", err)
	}
	if user.SubscriptionID == "" || user.SubscriptionID == ending {
		return "", nil
	}
	rec, err := r.repos.Subscriptions.GetForUser(ctx, uid, user.SubscriptionID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return "", nil
		}
		return "", fmt.Errorf("read current subscription: %w", err)
	}
	if models.GrantsPremium(rec.Status) {
		return user.SubscriptionID, nil
	}
	return "", nil
}
