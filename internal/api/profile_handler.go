package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/example/summarist/internal/core"
	"github.com/example/summarist/internal/identity"
	"github.com/example/summarist/internal/middleware"
)

// ProfileHandler serves profile initialization, lookup and sign-out.
type ProfileHandler struct {
	profiles core.ProfileService
	identity identity.Provider
	logger   *zap.Logger
}

func NewProfileHandler(profiles core.ProfileService, provider identity.Provider, logger *zap.Logger) *ProfileHandler {
	return &ProfileHandler{profiles: profiles, identity: provider, logger: logger}
}

// InitializeProfile handles POST /api/v1/profile/initialize. It is called by
// the client after every sign-in; 201 means the profile was just created.
func (h *ProfileHandler) InitializeProfile(c *gin.Context) {
	id := middleware.IdentityFrom(c)
	if id == nil {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Authentication required"})
		return
	}
	if h.profiles == nil {
		serviceUnavailable(c)
		return
	}

	profile, created, err := h.profiles.Initialize(c.Request.Context(), *id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	if created {
		c.JSON(http.StatusCreated, profile)
		return
	}
	c.JSON(http.StatusOK, profile)
}

// GetProfile handles GET /api/v1/profile.
func (h *ProfileHandler) GetProfile(c *gin.Context) {
	if h.profiles == nil {
		serviceUnavailable(c)
		return
	}
	profile, err := h.profiles.GetProfile(c.Request.Context(), c.GetString(middleware.ContextUserID))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

// SignOut handles POST /api/v1/auth/signout by revoking the caller's
// refresh tokens.
func (h *ProfileHandler) SignOut(c *gin.Context) {
	if h.identity == nil {
		serviceUnavailable(c)
		return
	}
	uid := c.GetString(middleware.ContextUserID)
	if err := h.identity.RevokeSessions(c.Request.Context(), uid); err != nil {
		respondError(c, h.logger, err)
		return
	}
	h.logger.Info("Revoked sessions", zap.String("uid", uid))
	c.JSON(http.StatusOK, SuccessResponse{Message: "Signed out"})
}
