package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/example/summarist/internal/access"
	"github.com/example/summarist/internal/api"
	"github.com/example/summarist/internal/books"
	"github.com/example/summarist/internal/config"
	"github.com/example/summarist/internal/core"
	"github.com/example/summarist/internal/db"
	"github.com/example/summarist/internal/identity"
	"github.com/example/summarist/internal/metrics"
	"github.com/example/summarist/internal/middleware"
	"github.com/example/summarist/internal/payments"
	"github.com/example/summarist/internal/publisher"
	"github.com/example/summarist/pkg/cache"
	"github.com/example/summarist/pkg/messagequeue"
)

func main() {
	// Environment variables are set directly in production.
	if os.Getenv("GIN_MODE") != "release" {
		if err := godotenv.Load(); err != nil {
			log.Println("No .env file loaded:", err)
		}
	}

	// --- 1. Configuration and logger ---
	appConfig, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	var zapLogger *zap.Logger
	if appConfig.IsRelease() {
		zapLogger, err = zap.NewProduction()
	} else {
		zapLogger, err = zap.NewDevelopment()
	}
	if err != nil {
		log.Fatalf("Failed to initialize zap logger: %v", err)
	}
	defer zapLogger.Sync()

	initCtx, cancelInit := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancelInit()

	// --- 2. Firebase (identity + Profile Store) ---
	var (
		provider identity.Provider
		repos    *db.Repositories
	)
	if appConfig.FirebaseConfigured() {
		clients, err := identity.InitClients(initCtx, appConfig, zapLogger)
		if err != nil {
			zapLogger.Fatal("Failed to initialize Firebase", zap.Error(err))
		}
		defer clients.Close()
		provider = identity.NewFirebaseProvider(clients.Auth)
		repos = db.NewFirestoreRepositories(clients.Firestore)
		zapLogger.Info("Firebase Auth and Firestore initialized")
	} else {
		zapLogger.Warn("Firebase is not configured; authenticated endpoints will answer 503")
	}

	// --- 3. Stripe ---
	var gateway core.PaymentGateway
	if appConfig.StripeConfigured() {
		stripeGateway, err := payments.NewStripeGateway(appConfig.StripeSecretKey, zapLogger)
		if err != nil {
			zapLogger.Fatal("Failed to initialize Stripe gateway", zap.Error(err))
		}
		gateway = stripeGateway
	} else {
		zapLogger.Warn("STRIPE_SECRET_KEY is not set; checkout will answer 503")
	}
	if !appConfig.WebhookConfigured() {
		zapLogger.Warn("STRIPE_WEBHOOK_SECRET is not set; webhooks will answer 503")
	}

	// --- 4. Optional Redis event ledger and RabbitMQ publisher ---
	var ledger core.EventLedger
	if appConfig.RedisAddr != "" {
		redisCache, err := cache.NewRedisCache(initCtx, cache.NewRedisCacheConfig{
			Address:  appConfig.RedisAddr,
			Password: appConfig.RedisPassword,
			DB:       appConfig.RedisDB,
			Logger:   zapLogger,
		})
		if err != nil {
			zapLogger.Warn("Redis unavailable; webhook redelivery relies on idempotent writes", zap.Error(err))
		} else {
			defer redisCache.Close()
			ledger = cache.NewEventLedger(redisCache, cache.DefaultEventTTL)
		}
	}

	var events core.EventPublisher
	if appConfig.RabbitMQURL != "" {
		mq, err := messagequeue.NewRabbitMQService(messagequeue.NewRabbitMQServiceConfig{
			URL:    appConfig.RabbitMQURL,
			Logger: zapLogger,
		})
		if err != nil {
			zapLogger.Warn("RabbitMQ unavailable; subscription changes will not be published", zap.Error(err))
		} else {
			defer mq.Close()
			events = publisher.NewQueuePublisher(mq, appConfig.RabbitMQQueue)
		}
	}

	// --- 5. Services ---
	m := metrics.New(prometheus.DefaultRegisterer)

	checkoutService := core.NewCheckoutService(provider, gateway, appConfig.SiteURL, m, zapLogger)
	reconciler := core.NewWebhookReconciler(core.WebhookReconcilerConfig{
		WebhookSecret: appConfig.StripeWebhookSecret,
		Repositories:  repos,
		Gateway:       gateway,
		Ledger:        ledger,
		Publisher:     events,
		Metrics:       m,
		Logger:        zapLogger,
	})

	deps := api.Dependencies{
		Logger:   zapLogger,
		Identity: provider,
		Checkout: checkoutService,
		Webhooks: reconciler,
		Gatherer: prometheus.DefaultGatherer,
	}

	var states access.StateLoader
	if repos != nil {
		audit := core.NewAuditService(repos.Audit)
		contexts := core.NewSubscriptionContexts(core.SubscriptionContextConfig{
			Profiles:         repos.Profiles,
			Audit:            audit,
			SimulatedBilling: appConfig.SimulatedBilling,
			Logger:           zapLogger,
		})
		states = contexts
		deps.Profiles = core.NewProfileService(repos.Profiles, repos.Users, zapLogger)
		deps.Subscriptions = contexts
		deps.Audit = audit
		deps.Library = core.NewLibraryService(repos.Library)
	}
	deps.Guard = access.NewGuard(books.NewClient(appConfig.BookAPIURL, zapLogger), states, zapLogger)

	// --- 6. HTTP engine ---
	if appConfig.IsRelease() {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}
	router := gin.New()
	router.Use(middleware.RequestID())
	router.Use(middleware.RequestLogger(zapLogger))
	router.Use(middleware.RecoveryMiddleware(zapLogger))
	router.Use(middleware.CORSMiddleware(appConfig.ClientURL))

	api.SetupRoutes(router, deps)

	// --- 7. Serve with graceful shutdown ---
	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%s", appConfig.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		zapLogger.Info("Starting HTTP server", zap.String("address", httpServer.Addr), zap.String("ginMode", gin.Mode()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLogger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	zapLogger.Info("Shutting down server", zap.String("signal", sig.String()))

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("Server forced to shut down", zap.Error(err))
	}
	zapLogger.Info("Server exited")
}
