package db

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"

	"github.com/example/summarist/internal/models"
)

type firestoreStripeCustomerRepository struct {
	client *firestore.Client
}

// NewFirestoreStripeCustomerRepository creates a StripeCustomerRepository backed by Firestore.
func NewFirestoreStripeCustomerRepository(client *firestore.Client) StripeCustomerRepository {
	return &firestoreStripeCustomerRepository{client: client}
}

// Upsert merges email and customer id into stripe_customers/{ID}.
func (r *firestoreStripeCustomerRepository) Upsert(ctx context.Context, customer *models.StripeCustomer) error {
	if customer.ID == "" {
		return errors.New("customer ID cannot be empty for Upsert operation")
	}
	fields := map[string]interface{}{
		"updatedAt": firestore.ServerTimestamp,
	}
	if customer.Email != "" {
		fields["email"] = customer.Email
	}
	if customer.StripeCustomerID != "" {
		fields["stripeCustomerId"] = customer.StripeCustomerID
	}
	if _, err := r.client.Collection(stripeCustomersCollection).Doc(customer.ID).Set(ctx, fields, firestore.MergeAll); err != nil {
		return fmt.Errorf("failed to upsert stripe customer '%s': %w", customer.ID, err)
	}
	return nil
}

// FindByCustomerID returns the fallback record whose stripeCustomerId matches.
func (r *firestoreStripeCustomerRepository) FindByCustomerID(ctx context.Context, customerID string) (*models.StripeCustomer, error) {
	if customerID == "" {
		return nil, fmt.Errorf("empty customer id: %w", ErrNotFound)
	}
	iter := r.client.Collection(stripeCustomersCollection).Where("stripeCustomerId", "==", customerID).Limit(1).Documents(ctx)
	defer iter.Stop()

	snap, err := iter.Next()
	if err == iterator.Done {
		return nil, fmt.Errorf("stripe customer '%s': %w", customerID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query stripe customer '%s': %w", customerID, err)
	}

	var customer models.StripeCustomer
	if err := snap.DataTo(&customer); err != nil {
		return nil, fmt.Errorf("failed to decode stripe customer '%s': %w", snap.Ref.ID, err)
	}
	customer.ID = snap.Ref.ID
	return &customer, nil
}
