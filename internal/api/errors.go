package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/example/summarist/internal/core"
	"github.com/example/summarist/internal/db"
)

// respondError maps service errors to HTTP statuses and ErrorResponse
// bodies. Unknown errors are logged and answered with a generic 500.
func respondError(c *gin.Context, logger *zap.Logger, err error) {
	var (
		status int
		resp   ErrorResponse
	)

	var verr *core.ValidationError
	var aerr *core.AuthenticationError
	switch {
	case errors.As(err, &verr):
		status = http.StatusBadRequest
		resp = ErrorResponse{Error: verr.Message, Details: strings.Join(verr.Fields, ", ")}
	case errors.As(err, &aerr):
		status = http.StatusUnauthorized
		resp = ErrorResponse{Error: aerr.Message}
	case errors.Is(err, core.ErrValidation):
		status = http.StatusBadRequest
		resp = ErrorResponse{Error: err.Error()}
	case errors.Is(err, core.ErrAuthentication):
		status = http.StatusUnauthorized
		resp = ErrorResponse{Error: "Authentication required"}
	case errors.Is(err, core.ErrSignatureVerification):
		status = http.StatusBadRequest
		resp = ErrorResponse{Error: "Invalid signature"}
	case errors.Is(err, core.ErrServiceUnavailable):
		status = http.StatusServiceUnavailable
		resp = ErrorResponse{Error: "Service unavailable"}
	case errors.Is(err, core.ErrUpstream):
		status = http.StatusInternalServerError
		resp = ErrorResponse{Error: err.Error()}
	case errors.Is(err, core.ErrSimulationDisabled):
		status = http.StatusForbidden
		resp = ErrorResponse{Error: "Simulated billing is disabled"}
	case errors.Is(err, core.ErrPremiumRequired):
		status = http.StatusForbidden
		resp = ErrorResponse{Error: "Premium subscription required"}
	case errors.Is(err, db.ErrNotFound):
		status = http.StatusNotFound
		resp = ErrorResponse{Error: "Not found"}
	default:
		logger.Error("Unhandled error in handler", zap.String("path", c.FullPath()), zap.Error(err))
		status = http.StatusInternalServerError
		resp = ErrorResponse{Error: "An unexpected internal server error occurred."}
	}
	_ = c.Error(err)
	c.JSON(status, resp)
}

func serviceUnavailable(c *gin.Context) {
	c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "Service unavailable"})
}

func invalidPayload(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request payload", Details: err.Error()})
}
