package access

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/example/summarist/internal/books"
	"github.com/example/summarist/internal/core"
	"github.com/example/summarist/internal/identity"
	"github.com/example/summarist/internal/middleware"
	"github.com/example/summarist/internal/models"
)

const (
	contextBook     = "accessBook"
	contextDecision = "accessDecision"
)

// StateLoader yields a loaded subscription context for an identity.
type StateLoader interface {
	Load(ctx context.Context, id *identity.Identity) *core.SubscriptionContext
}

// DeniedResponse is the 403 body sent when premium access is missing.
type DeniedResponse struct {
	Error    string `json:"error"`
	Redirect string `json:"redirect"`
}

// Guard loads the book named by the :id route parameter and evaluates it
// against the caller's subscription state. It expects the optional auth
// middleware to have run first.
type Guard struct {
	books  books.Fetcher
	states StateLoader
	logger *zap.Logger
}

func NewGuard(fetcher books.Fetcher, states StateLoader, logger *zap.Logger) *Guard {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Guard{books: fetcher, states: states, logger: logger}
}

// Resolve loads the book and stores it with the guard decision, without
// blocking the request.
func (g *Guard) Resolve() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := g.resolve(c); ok {
			c.Next()
		}
	}
}

// RequirePremium answers 403 for premium items the caller may not open.
// Free items pass without authentication.
func (g *Guard) RequirePremium() gin.HandlerFunc {
	return func(c *gin.Context) {
		decision, ok := g.resolve(c)
		if !ok {
			return
		}
		if decision.Outcome == Redirect {
			_ = c.Error(core.ErrPremiumRequired)
			c.AbortWithStatusJSON(http.StatusForbidden, DeniedResponse{
				Error:    "Premium subscription required",
				Redirect: decision.RedirectTo,
			})
			return
		}
		c.Next()
	}
}

func (g *Guard) resolve(c *gin.Context) (Decision, bool) {
	book, ok := g.loadBook(c)
	if !ok {
		return Decision{}, false
	}
	state := models.FreeState()
	if id := middleware.IdentityFrom(c); id != nil && g.states != nil {
		state = g.states.Load(c.Request.Context(), id).State()
	}
	decision := Evaluate(book, state, false)
	c.Set(contextBook, book)
	c.Set(contextDecision, decision)
	return decision, true
}

func (g *Guard) loadBook(c *gin.Context) (*models.Book, bool) {
	if g.books == nil {
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, middleware.ErrorResponse{Error: "Service unavailable"})
		return nil, false
	}
	id := c.Param("id")
	book, err := g.books.GetBook(c.Request.Context(), id)
	switch {
	case err == nil:
		return book, true
	case errors.Is(err, books.ErrNotConfigured):
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, middleware.ErrorResponse{Error: "Service unavailable"})
	case errors.Is(err, books.ErrBookNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, middleware.ErrorResponse{Error: "Book not found", Details: "No data for id: " + id})
	default:
		g.logger.Error("Failed to fetch book", zap.String("id", id), zap.Error(err))
		c.AbortWithStatusJSON(http.StatusBadGateway, middleware.ErrorResponse{Error: "Failed to fetch book"})
	}
	return nil, false
}

// BookFrom returns the book loaded by the guard.
func BookFrom(c *gin.Context) *models.Book {
	v, _ := c.Get(contextBook)
	b, _ := v.(*models.Book)
	return b
}

// DecisionFrom returns the decision made by the guard.
func DecisionFrom(c *gin.Context) Decision {
	v, _ := c.Get(contextDecision)
	d, _ := v.(Decision)
	return d
}
