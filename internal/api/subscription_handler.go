package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/example/summarist/internal/core"
	"github.com/example/summarist/internal/middleware"
	"github.com/example/summarist/internal/models"
)

// SubscriptionHandler exposes the caller's derived subscription state and
// the simulated billing capability.
type SubscriptionHandler struct {
	contexts *core.SubscriptionContexts
	audit    core.AuditService
	logger   *zap.Logger
}

func NewSubscriptionHandler(contexts *core.SubscriptionContexts, audit core.AuditService, logger *zap.Logger) *SubscriptionHandler {
	return &SubscriptionHandler{contexts: contexts, audit: audit, logger: logger}
}

func (h *SubscriptionHandler) load(c *gin.Context) (*core.SubscriptionContext, bool) {
	if h.contexts == nil {
		serviceUnavailable(c)
		return nil, false
	}
	return h.contexts.Load(c.Request.Context(), middleware.IdentityFrom(c)), true
}

// GetSubscription handles GET /api/v1/subscription.
func (h *SubscriptionHandler) GetSubscription(c *gin.Context) {
	sc, ok := h.load(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, newSubscriptionResponse(sc.State(), h.contexts.SimulatedBilling()))
}

// SimulateSubscription handles POST /api/v1/subscription/simulate.
func (h *SubscriptionHandler) SimulateSubscription(c *gin.Context) {
	var req models.SimulateSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidPayload(c, err)
		return
	}
	plan, err := models.ParsePlan(req.Plan)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid plan", Details: err.Error()})
		return
	}
	sc, ok := h.load(c)
	if !ok {
		return
	}

	state, err := sc.ActivateSimulatedSubscription(c.Request.Context(), plan)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, newSubscriptionResponse(state, true))
}

// CancelSubscription handles POST /api/v1/subscription/cancel.
func (h *SubscriptionHandler) CancelSubscription(c *gin.Context) {
	sc, ok := h.load(c)
	if !ok {
		return
	}
	state, err := sc.CancelSubscription(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, newSubscriptionResponse(state, true))
}

// ListEvents handles GET /api/v1/subscription/events, the caller's audit
// trail of simulated changes.
func (h *SubscriptionHandler) ListEvents(c *gin.Context) {
	if h.audit == nil {
		serviceUnavailable(c)
		return
	}
	limit, _ := strconv.Atoi(c.Query("limit"))
	logs, err := h.audit.ListForUser(c.Request.Context(), c.GetString(middleware.ContextUserID), limit)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, logs)
}
