package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/example/summarist/internal/identity"
)

// Context keys set by the auth middleware.
const (
	ContextUserID          = "userID"
	ContextUserEmail       = "userEmail"
	ContextUserDisplayName = "userDisplayName"
	ContextUserPhotoURL    = "userPhotoURL"
	contextIdentity        = "identity"
)

// ErrorResponse mirrors api.ErrorResponse; the api package imports this one.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// AuthMiddleware verifies bearer ID tokens with an identity.Provider.
type AuthMiddleware struct {
	provider identity.Provider
	logger   *zap.Logger
}

// NewAuthMiddleware creates an AuthMiddleware. A nil provider makes every
// authenticated route answer 503.
func NewAuthMiddleware(provider identity.Provider, logger *zap.Logger) *AuthMiddleware {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthMiddleware{provider: provider, logger: logger}
}

func bearerToken(header string) (string, bool) {
	parts := strings.Split(header, " ")
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

// VerifyToken requires a valid bearer token and stores the identity in the
// gin context.
func (m *AuthMiddleware) VerifyToken() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: "Authorization header is required"})
			return
		}
		idToken, ok := bearerToken(authHeader)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: "Authorization header format must be 'Bearer {token}'"})
			return
		}
		if m.provider == nil {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, ErrorResponse{Error: "Service unavailable"})
			return
		}

		id, err := m.provider.VerifyIDToken(c.Request.Context(), idToken)
		if err != nil {
			m.logger.Warn("Error verifying ID token", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: "Invalid or expired authentication token"})
			return
		}
		setIdentity(c, id)
		c.Next()
	}
}

// OptionalToken stores the identity when a valid bearer token is present and
// lets the request through either way.
func (m *AuthMiddleware) OptionalToken() gin.HandlerFunc {
	return func(c *gin.Context) {
		idToken, ok := bearerToken(c.GetHeader("Authorization"))
		if ok && m.provider != nil {
			id, err := m.provider.VerifyIDToken(c.Request.Context(), idToken)
			if err == nil {
				setIdentity(c, id)
			} else {
				m.logger.Debug("Ignoring invalid optional ID token", zap.Error(err))
			}
		}
		c.Next()
	}
}

func setIdentity(c *gin.Context, id *identity.Identity) {
	c.Set(ContextUserID, id.UID)
	if id.Email != "" {
		c.Set(ContextUserEmail, id.Email)
	}
	if id.DisplayName != "" {
		c.Set(ContextUserDisplayName, id.DisplayName)
	}
	if id.PhotoURL != "" {
		c.Set(ContextUserPhotoURL, id.PhotoURL)
	}
	c.Set(contextIdentity, *id)
}

// IdentityFrom returns the identity stored by the auth middleware, or nil.
func IdentityFrom(c *gin.Context) *identity.Identity {
	v, ok := c.Get(contextIdentity)
	if !ok {
		return nil
	}
	id, ok := v.(identity.Identity)
	if !ok {
		return nil
	}
	return &id
}
