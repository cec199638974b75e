package payments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/checkout/session"
	"github.com/stripe/stripe-go/v82/subscription"
	"go.uber.org/zap"

	"github.com/example/summarist/internal/core"
)

const checkoutCurrency = "usd"

// StripeGateway is the core.PaymentGateway backed by the Stripe API.
type StripeGateway struct {
	sessions      session.Client
	subscriptions subscription.Client
	logger        *zap.Logger
}

// NewStripeGateway creates a gateway using the default Stripe API backend.
func NewStripeGateway(secretKey string, logger *zap.Logger) (*StripeGateway, error) {
	return NewStripeGatewayWithBackend(secretKey, stripe.GetBackend(stripe.APIBackend), logger)
}

// NewStripeGatewayWithBackend creates a gateway that talks to backend.
func NewStripeGatewayWithBackend(secretKey string, backend stripe.Backend, logger *zap.Logger) (*StripeGateway, error) {
	if secretKey == "" {
		return nil, errors.New("stripe secret key is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StripeGateway{
		sessions:      session.Client{B: backend, Key: secretKey},
		subscriptions: subscription.Client{B: backend, Key: secretKey},
		logger:        logger,
	}, nil
}

// CreateCheckoutSession opens a subscription-mode hosted checkout with an
// inline recurring price, tagged with the payer's uid and plan.
func (g *StripeGateway) CreateCheckoutSession(ctx context.Context, p core.CheckoutSessionParams) (*core.CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{
		Mode:               stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency: stripe.String(checkoutCurrency),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(p.Title),
					},
					Recurring: &stripe.CheckoutSessionLineItemPriceDataRecurringParams{
						Interval: stripe.String(p.Interval),
					},
					UnitAmount: stripe.Int64(p.PriceCents),
				},
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL: stripe.String(p.SuccessURL),
		CancelURL:  stripe.String(p.CancelURL),
	}
	params.Context = ctx
	params.AddMetadata("uid", p.UID)
	params.AddMetadata("planId", p.PlanID)

	s, err := g.sessions.New(params)
	if err != nil {
		return nil, stripeMessage(err)
	}
	g.logger.Debug("Stripe checkout session created", zap.String("sessionId", s.ID))
	return &core.CheckoutSession{ID: s.ID, URL: s.URL}, nil
}

// GetSubscription retrieves a subscription and keeps its raw JSON.
func (g *StripeGateway) GetSubscription(ctx context.Context, subscriptionID string) (*core.SubscriptionDetails, error) {
	params := &stripe.SubscriptionParams{}
	params.Context = ctx
	params.AddExpand("customer")

	sub, err := g.subscriptions.Get(subscriptionID, params)
	if err != nil {
		return nil, stripeMessage(err)
	}

	raw := map[string]interface{}{}
	var body []byte
	if sub.LastResponse != nil && len(sub.LastResponse.RawJSON) > 0 {
		body = sub.LastResponse.RawJSON
	} else if body, err = json.Marshal(sub); err != nil {
		return nil, fmt.Errorf("encode subscription %s: %w", subscriptionID, err)
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("decode subscription %s: %w", subscriptionID, err)
	}
	details := core.SubscriptionDetailsFromStripe(sub, raw)
	return &details, nil
}

// stripeMessage reduces a Stripe API error to its user-facing message.
func stripeMessage(err error) error {
	var serr *stripe.Error
	if errors.As(err, &serr) && serr.Msg != "" {
		return errors.New(serr.Msg)
	}
	return err
}
