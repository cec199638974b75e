package api

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/example/summarist/internal/core"
	"github.com/example/summarist/internal/models"
)

// maxWebhookBytes bounds the webhook body that is read for verification.
const maxWebhookBytes = 1 << 20

// WebhookProcessor verifies and applies one webhook delivery.
type WebhookProcessor interface {
	HandleWebhook(ctx context.Context, payload []byte, signature string) error
}

// BillingHandler serves checkout and the Stripe webhook.
type BillingHandler struct {
	checkout core.CheckoutService
	webhooks WebhookProcessor
	logger   *zap.Logger
}

func NewBillingHandler(checkout core.CheckoutService, webhooks WebhookProcessor, logger *zap.Logger) *BillingHandler {
	return &BillingHandler{checkout: checkout, webhooks: webhooks, logger: logger}
}

// CreateCheckoutSession handles POST /api/createcheckout. The caller's ID
// token travels in the body.
func (h *BillingHandler) CreateCheckoutSession(c *gin.Context) {
	var req models.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidPayload(c, err)
		return
	}
	if h.checkout == nil {
		serviceUnavailable(c)
		return
	}

	url, err := h.checkout.CreateCheckoutSession(c.Request.Context(), req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, CheckoutResponse{URL: url})
}

// HandleStripeWebhook handles POST /api/stripe-webhook. The raw body is
// passed through untouched so the signature can be checked.
func (h *BillingHandler) HandleStripeWebhook(c *gin.Context) {
	if h.webhooks == nil {
		serviceUnavailable(c)
		return
	}
	payload, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, ErrorResponse{Error: "Webhook payload too large"})
			return
		}
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Failed to read webhook payload", Details: err.Error()})
		return
	}

	if err := h.webhooks.HandleWebhook(c.Request.Context(), payload, c.GetHeader("Stripe-Signature")); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, WebhookResponse{Received: true})
}
