package db

import (
	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	profilesCollection        = "profiles"
	usersCollection           = "users"
	subscriptionsCollection   = "subscriptions"
	stripeCustomersCollection = "stripe_customers"
	auditLogsCollection       = "audit_logs"
)

// Repositories bundles the Firestore-backed repositories built from one client.
type Repositories struct {
	Profiles        ProfileRepository
	Users           UserRepository
	Subscriptions   SubscriptionRepository
	StripeCustomers StripeCustomerRepository
	Audit           AuditRepository
	Library         LibraryRepository
}

// NewFirestoreRepositories wires every repository to client.
func NewFirestoreRepositories(client *firestore.Client) *Repositories {
	return &Repositories{
		Profiles:        NewFirestoreProfileRepository(client),
		Users:           NewFirestoreUserRepository(client),
		Subscriptions:   NewFirestoreSubscriptionRepository(client),
		StripeCustomers: NewFirestoreStripeCustomerRepository(client),
		Audit:           NewFirestoreAuditRepository(client),
		Library:         NewFirestoreLibraryRepository(client),
	}
}

func isNotFound(err error) bool {
	return status.Code(err) == codes.NotFound
}
