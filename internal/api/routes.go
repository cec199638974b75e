package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/example/summarist/internal/access"
	"github.com/example/summarist/internal/core"
	"github.com/example/summarist/internal/identity"
	"github.com/example/summarist/internal/middleware"
)

// Dependencies are the services the routes dispatch to. Any service may be
// nil, in which case its endpoints answer 503.
type Dependencies struct {
	Logger        *zap.Logger
	Identity      identity.Provider
	Checkout      core.CheckoutService
	Webhooks      WebhookProcessor
	Profiles      core.ProfileService
	Subscriptions *core.SubscriptionContexts
	Audit         core.AuditService
	Library       core.LibraryService
	Guard         *access.Guard
	Gatherer      prometheus.Gatherer
}

// SetupRoutes configures all the API routes for the application.
func SetupRoutes(router *gin.Engine, deps Dependencies) {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	auth := middleware.NewAuthMiddleware(deps.Identity, logger)
	guard := deps.Guard
	if guard == nil {
		guard = access.NewGuard(nil, nil, logger)
	}

	billing := NewBillingHandler(deps.Checkout, deps.Webhooks, logger)
	profiles := NewProfileHandler(deps.Profiles, deps.Identity, logger)
	subscriptions := NewSubscriptionHandler(deps.Subscriptions, deps.Audit, logger)
	library := NewLibraryHandler(deps.Library, logger)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "UP", "message": "Summarist backend is running"})
	})
	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})
	if deps.Gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	}

	// Paths the web client already calls.
	router.POST("/api/createcheckout", billing.CreateCheckoutSession)
	router.POST("/api/stripe-webhook", billing.HandleStripeWebhook)

	apiV1 := router.Group("/api/v1")
	{
		billingRoutes := apiV1.Group("/billing")
		{
			billingRoutes.POST("/checkout", billing.CreateCheckoutSession)
			billingRoutes.POST("/webhooks/stripe", billing.HandleStripeWebhook)
		}

		authRoutes := apiV1.Group("/auth")
		authRoutes.Use(auth.VerifyToken())
		{
			authRoutes.POST("/signout", profiles.SignOut)
		}

		profileRoutes := apiV1.Group("/profile")
		profileRoutes.Use(auth.VerifyToken())
		{
			profileRoutes.GET("", profiles.GetProfile)
			profileRoutes.POST("/initialize", profiles.InitializeProfile)
		}

		apiV1.GET("/subscription", auth.OptionalToken(), subscriptions.GetSubscription)
		subscriptionRoutes := apiV1.Group("/subscription")
		subscriptionRoutes.Use(auth.VerifyToken())
		{
			subscriptionRoutes.POST("/simulate", subscriptions.SimulateSubscription)
			subscriptionRoutes.POST("/cancel", subscriptions.CancelSubscription)
			subscriptionRoutes.GET("/events", subscriptions.ListEvents)
		}

		libraryRoutes := apiV1.Group("/library")
		libraryRoutes.Use(auth.VerifyToken())
		{
			libraryRoutes.GET("", library.ListSaved)
			libraryRoutes.POST("", library.AddToLibrary)
			libraryRoutes.DELETE("/:bookId", library.RemoveFromLibrary)
			libraryRoutes.GET("/finished", library.ListFinished)
			libraryRoutes.POST("/finished", library.MarkFinished)
		}

		apiV1.GET("/books/:id", auth.OptionalToken(), guard.RequirePremium(), GetBook)
		apiV1.GET("/access/books/:id", auth.OptionalToken(), guard.Resolve(), GetBookAccess)
	}
}
