package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/example/summarist/internal/core"
	"github.com/example/summarist/internal/db"
	"github.com/example/summarist/internal/middleware"
	"github.com/example/summarist/internal/models"
)

// LibraryHandler serves the caller's saved and finished books.
type LibraryHandler struct {
	library core.LibraryService
	logger  *zap.Logger
}

func NewLibraryHandler(library core.LibraryService, logger *zap.Logger) *LibraryHandler {
	return &LibraryHandler{library: library, logger: logger}
}

func (h *LibraryHandler) list(c *gin.Context, shelf db.Shelf) {
	if h.library == nil {
		serviceUnavailable(c)
		return
	}
	entries, err := h.library.List(c.Request.Context(), c.GetString(middleware.ContextUserID), shelf)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}

func (h *LibraryHandler) ListSaved(c *gin.Context)    { h.list(c, db.ShelfSaved) }
func (h *LibraryHandler) ListFinished(c *gin.Context) { h.list(c, db.ShelfFinished) }

// AddToLibrary handles POST /api/v1/library.
func (h *LibraryHandler) AddToLibrary(c *gin.Context) {
	var req models.AddLibraryEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidPayload(c, err)
		return
	}
	if h.library == nil {
		serviceUnavailable(c)
		return
	}
	entry, err := h.library.AddToLibrary(c.Request.Context(), c.GetString(middleware.ContextUserID), req.Book)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, entry)
}

// MarkFinished handles POST /api/v1/library/finished.
func (h *LibraryHandler) MarkFinished(c *gin.Context) {
	var req models.AddLibraryEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidPayload(c, err)
		return
	}
	if h.library == nil {
		serviceUnavailable(c)
		return
	}
	entry, err := h.library.MarkFinished(c.Request.Context(), c.GetString(middleware.ContextUserID), req.Book)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, entry)
}

// RemoveFromLibrary handles DELETE /api/v1/library/:bookId.
func (h *LibraryHandler) RemoveFromLibrary(c *gin.Context) {
	if h.library == nil {
		serviceUnavailable(c)
		return
	}
	if err := h.library.RemoveFromLibrary(c.Request.Context(), c.GetString(middleware.ContextUserID), c.Param("bookId")); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}
