package core

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/example/summarist/internal/identity"
	"github.com/example/summarist/internal/metrics"
	"github.com/example/summarist/internal/models"
)

const defaultProductName = "Summarist Premium"

// checkoutService implements CheckoutService on a PaymentGateway.
type checkoutService struct {
	identity identity.Provider
	gateway  PaymentGateway
	siteURL  string
	metrics  *metrics.Metrics
	logger   *zap.Logger
}

// NewCheckoutService creates a CheckoutService. A nil provider or gateway
// makes every well-formed request fail with ErrServiceUnavailable.
func NewCheckoutService(provider identity.Provider, gateway PaymentGateway, siteURL string, m *metrics.Metrics, logger *zap.Logger) CheckoutService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &checkoutService{
		identity: provider,
		gateway:  gateway,
		siteURL:  strings.TrimRight(siteURL, "/"),
		metrics:  m,
		logger:   logger,
	}
}

func validateCheckout(req models.CheckoutRequest) error {
	var missing []string
	if req.PlanID == "" {
		missing = append(missing, "planId")
	}
	if req.PriceCents == nil || *req.PriceCents <= 0 {
		missing = append(missing, "priceCents")
	}
	if req.Interval == "" {
		missing = append(missing, "interval")
	}
	if len(missing) > 0 {
		return &ValidationError{Message: "Missing planId, priceCents or interval", Fields: missing}
	}
	if _, ok := models.PlanForInterval(req.Interval); !ok {
		return &ValidationError{Message: "interval must be month or year", Fields: []string{"interval"}}
	}
	return nil
}

// CreateCheckoutSession validates the request, verifies the caller and opens a
// subscription-mode checkout tagged with the caller's uid.
func (s *checkoutService) CreateCheckoutSession(ctx context.Context, req models.CheckoutRequest) (string, error) {
	if err := validateCheckout(req); err != nil {
		s.metrics.Checkout("invalid")
		return "", err
	}
	if req.IDToken == "" {
		s.metrics.Checkout("unauthenticated")
		return "", errAuthRequired
	}
	if s.identity == nil || s.gateway == nil {
		s.metrics.Checkout("unavailable")
		return "", fmt.Errorf("%w: checkout is not configured", ErrServiceUnavailable)
	}

	id, err := s.identity.VerifyIDToken(ctx, req.IDToken)
	if err != nil || id == nil || id.UID == "" {
		s.metrics.Checkout("unauthenticated")
		s.logger.Warn("Checkout token verification failed", zap.Error(err))
		return "", invalidToken(err)
	}

	title := req.Title
	if title == "" {
		title = defaultProductName
	}
	session, err := s.gateway.CreateCheckoutSession(ctx, CheckoutSessionParams{
		UID:        id.UID,
		PlanID:     req.PlanID,
		Title:      title,
		Interval:   req.Interval,
		PriceCents: *req.PriceCents,
		SuccessURL: s.siteURL + "/for-you?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:  s.siteURL + "/choose-plan",
	})
	if err != nil {
		s.metrics.Checkout("failed")
		s.logger.Error("Failed to create checkout session", zap.String("uid", id.UID), zap.Error(err))
		return "", &UpstreamError{Err: err}
	}

	s.metrics.Checkout("created")
	s.logger.Info("Checkout session created", zap.String("uid", id.UID), zap.String("planId", req.PlanID), zap.String("sessionId", session.ID))
	return session.URL, nil
}
