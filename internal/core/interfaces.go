package core

import (
	"context"
	"time"

	"github.com/example/summarist/internal/db"
	"github.com/example/summarist/internal/identity"
	"github.com/example/summarist/internal/models"
)

// ProfileService defines profile initialization and lookup.
type ProfileService interface {
	// Initialize creates the profile on first sign-in, or merges the identity
	// fields into an existing one. The bool reports whether it was created.
	Initialize(ctx context.Context, id identity.Identity) (*models.Profile, bool, error)
	GetProfile(ctx context.Context, uid string) (*models.Profile, error)
}

// CheckoutService starts hosted checkout for a subscription plan.
type CheckoutService interface {
	// CreateCheckoutSession returns the URL to redirect the payer to.
	CreateCheckoutSession(ctx context.Context, req models.CheckoutRequest) (string, error)
}

// AuditService defines the interface for audit logging operations.
type AuditService interface {
	CreateAuditLog(ctx context.Context, logEntry models.AuditLog) error
	ListForUser(ctx context.Context, uid string, limit int) ([]*models.AuditLog, error)
}

// LibraryService manages a user's saved and finished books.
type LibraryService interface {
	AddToLibrary(ctx context.Context, uid string, book models.Book) (*models.LibraryEntry, error)
	MarkFinished(ctx context.Context, uid string, book models.Book) (*models.LibraryEntry, error)
	RemoveFromLibrary(ctx context.Context, uid, bookID string) error
	List(ctx context.Context, uid string, shelf db.Shelf) ([]*models.LibraryEntry, error)
}

// CheckoutSessionParams is what the payment gateway needs to open a session.
type CheckoutSessionParams struct {
	UID        string
	PlanID     string
	Title      string
	Interval   string
	PriceCents int64
	SuccessURL string
	CancelURL  string
}

// CheckoutSession is the gateway's answer to CheckoutSessionParams.
type CheckoutSession struct {
	ID  string
	URL string
}

// PaymentGateway is the payment provider as the services use it.
type PaymentGateway interface {
	CreateCheckoutSession(ctx context.Context, params CheckoutSessionParams) (*CheckoutSession, error)
	GetSubscription(ctx context.Context, subscriptionID string) (*SubscriptionDetails, error)
}

// EventLedger remembers webhook events that were fully processed.
type EventLedger interface {
	Seen(ctx context.Context, eventID string) (bool, error)
	Mark(ctx context.Context, eventID string) error
}

// SubscriptionChangedMessage is published after a webhook event changed
// stored subscription state.
type SubscriptionChangedMessage struct {
	EventID        string    `json:"eventId"`
	EventType      string    `json:"eventType"`
	SubscriptionID string    `json:"subscriptionId,omitempty"`
	Status         string    `json:"status,omitempty"`
	UID            string    `json:"uid,omitempty"`
	CustomerID     string    `json:"customerId,omitempty"`
	Email          string    `json:"email,omitempty"`
	OccurredAt     time.Time `json:"occurredAt"`
}

// EventPublisher fans subscription changes out to other consumers.
type EventPublisher interface {
	PublishSubscriptionChanged(ctx context.Context, msg SubscriptionChangedMessage) error
}
