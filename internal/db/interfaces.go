package db

import (
	"context"
	"errors"
	"time"

	"github.com/example/summarist/internal/models"
)

var (
	// ErrNotFound is returned when a document does not exist.
	ErrNotFound = errors.New("document not found")
	// ErrAlreadyExists is returned by Create when the document is already present.
	ErrAlreadyExists = errors.New("document already exists")
)

// Shelf names a per-user book collection.
type Shelf string

const (
	ShelfSaved    Shelf = "library"
	ShelfFinished Shelf = "finished"
)

// Valid reports whether s is a known shelf.
func (s Shelf) Valid() bool {
	return s == ShelfSaved || s == ShelfFinished
}

// SubscriptionUpdate is the set of profile fields that describe a
// subscription. All three are written together.
type SubscriptionUpdate struct {
	Plan             models.Plan
	Subscribed       bool
	SubscriptionDate *time.Time
}

// ProfileRepository stores profiles/{uid}.
type ProfileRepository interface {
	GetByID(ctx context.Context, uid string) (*models.Profile, error)
	// Create fails with ErrAlreadyExists if the profile is present.
	Create(ctx context.Context, profile *models.Profile) error
	// MergeIdentity writes the non-empty identity fields without touching
	// subscription fields.
	MergeIdentity(ctx context.Context, uid, email, displayName, photoURL string) error
	UpdateSubscription(ctx context.Context, uid string, update SubscriptionUpdate) error
}

// UserRepository stores the users/{uid} identity index.
type UserRepository interface {
	Upsert(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, uid string) (*models.User, error)
	// FindByEmail returns the first user whose email matches exactly.
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByStripeCustomerID(ctx context.Context, customerID string) (*models.User, error)
	// LinkStripe merges the non-empty customer and subscription ids into
	// users/{uid}.
	LinkStripe(ctx context.Context, uid, customerID, subscriptionID string) error
}

// SubscriptionRepository stores subscription records under a user or under a
// Stripe customer fallback record. Writes are merge-upserts keyed by docID.
type SubscriptionRepository interface {
	UpsertForUser(ctx context.Context, uid, docID string, patch models.SubscriptionPatch) error
	UpsertForCustomer(ctx context.Context, customerID, docID string, patch models.SubscriptionPatch) error
	GetForUser(ctx context.Context, uid, docID string) (*models.SubscriptionRecord, error)
}

// StripeCustomerRepository stores stripe_customers/{customerId}.
type StripeCustomerRepository interface {
	Upsert(ctx context.Context, customer *models.StripeCustomer) error
	FindByCustomerID(ctx context.Context, customerID string) (*models.StripeCustomer, error)
}

// AuditRepository defines the interface for audit log data storage operations.
type AuditRepository interface {
	Create(ctx context.Context, logEntry models.AuditLog) error
	ListByUser(ctx context.Context, uid string, limit int) ([]*models.AuditLog, error)
}

// LibraryRepository stores users/{uid}/library and users/{uid}/finished.
type LibraryRepository interface {
	Save(ctx context.Context, uid string, shelf Shelf, entry *models.LibraryEntry) error
	Remove(ctx context.Context, uid string, shelf Shelf, bookID string) error
	List(ctx context.Context, uid string, shelf Shelf) ([]*models.LibraryEntry, error)
}
