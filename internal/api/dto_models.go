package api

import (
	"time"

	"github.com/example/summarist/internal/middleware"
	"github.com/example/summarist/internal/models"
)

// ErrorResponse is a generic structure for returning errors via API.
type ErrorResponse = middleware.ErrorResponse

// SuccessResponse is a generic structure for simple success messages.
type SuccessResponse struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// CheckoutResponse carries the hosted checkout URL.
type CheckoutResponse struct {
	URL string `json:"url"`
}

// WebhookResponse acknowledges a webhook delivery.
type WebhookResponse struct {
	Received bool `json:"received"`
}

// SubscriptionResponse is the derived subscription state of the caller.
type SubscriptionResponse struct {
	Plan             models.Plan `json:"plan"`
	IsSubscribed     bool        `json:"isSubscribed"`
	HasPremiumAccess bool        `json:"hasPremiumAccess"`
	SubscriptionDate *time.Time  `json:"subscriptionDate,omitempty"`
	SimulatedBilling bool        `json:"simulatedBilling"`
}

func newSubscriptionResponse(s models.SubscriptionState, simulated bool) SubscriptionResponse {
	return SubscriptionResponse{
		Plan:             s.Plan,
		IsSubscribed:     s.IsSubscribed,
		HasPremiumAccess: s.HasPremiumAccess,
		SubscriptionDate: s.SubscriptionDate,
		SimulatedBilling: simulated,
	}
}
