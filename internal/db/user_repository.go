package db

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"

	"github.com/example/summarist/internal/models"
)

// firestoreUserRepository implements the UserRepository interface using Firestore.
type firestoreUserRepository struct {
	client *firestore.Client
}

// NewFirestoreUserRepository creates a new instance of firestoreUserRepository.
func NewFirestoreUserRepository(client *firestore.Client) UserRepository {
	return &firestoreUserRepository{client: client}
}

// Upsert merges the identity fields into users/{uid} and bumps lastSeen.
func (r *firestoreUserRepository) Upsert(ctx context.Context, user *models.User) error {
	if user.UID == "" {
		return errors.New("user UID cannot be empty for Upsert operation")
	}
	fields := map[string]interface{}{
		"uid":      user.UID,
		"lastSeen": firestore.ServerTimestamp,
	}
	if user.Email != "" {
		fields["email"] = user.Email
	}
	if user.DisplayName != "" {
		fields["displayName"] = user.DisplayName
	}
	if user.PhotoURL != "" {
		fields["photoURL"] = user.PhotoURL
	}
	if _, err := r.client.Collection(usersCollection).Doc(user.UID).Set(ctx, fields, firestore.MergeAll); err != nil {
		return fmt.Errorf("failed to upsert user '%s': %w", user.UID, err)
	}
	return nil
}

// GetByID reads users/{uid}.
func (r *firestoreUserRepository) GetByID(ctx context.Context, uid string) (*models.User, error) {
	if uid == "" {
		return nil, errors.New("uid cannot be empty for GetByID operation")
	}
	snap, err := r.client.Collection(usersCollection).Doc(uid).Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("user '%s': %w", uid, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user '%s': %w", uid, err)
	}
	return decodeUser(snap)
}

// FindByEmail returns the first users document whose email matches exactly.
func (r *firestoreUserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if email == "" {
		return nil, fmt.Errorf("empty email: %w", ErrNotFound)
	}
	return r.findOne(ctx, "email", email)
}

// FindByStripeCustomerID returns the user linked to a Stripe customer at
// checkout.
func (r *firestoreUserRepository) FindByStripeCustomerID(ctx context.Context, customerID string) (*models.User, error) {
	if customerID == "" {
		return nil, fmt.Errorf("empty customer id: %w", ErrNotFound)
	}
	return r.findOne(ctx, "stripeCustomerId", customerID)
}

func (r *firestoreUserRepository) findOne(ctx context.Context, field, value string) (*models.User, error) {
	iter := r.client.Collection(usersCollection).Where(field, "==", value).Limit(1).Documents(ctx)
	defer iter.Stop()

	snap, err := iter.Next()
	if err == iterator.Done {
		return nil, fmt.Errorf("user with %s '%s': %w", field, value, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query user by %s: %w", field, err)
	}
	return decodeUser(snap)
}

func decodeUser(snap *firestore.DocumentSnapshot) (*models.User, error) {
	var user models.User
	if err := snap.DataTo(&user); err != nil {
		return nil, fmt.Errorf("failed to decode user '%s': %w", snap.Ref.ID, err)
	}
	user.ID = snap.Ref.ID
	if user.UID == "" {
		user.UID = snap.Ref.ID
	}
	return &user, nil
}

func (r *firestoreUserRepository) LinkStripe(ctx context.Context, uid, customerID, subscriptionID string) error {
	if uid == "" {
		return errors.New("user UID cannot be empty for LinkStripe operation")
	}
	fields := map[string]interface{}{}
	if customerID != "" {
		fields["stripeCustomerId"] = customerID
	}
	if subscriptionID != "" {
		fields["subscriptionId"] = subscriptionID
	}
	if len(fields) == 0 {
		return nil
	}
	if _, err := r.client.Collection(usersCollection).Doc(uid).Set(ctx, fields, firestore.MergeAll); err != nil {
		return fmt.Errorf("failed to link Stripe ids to user '%s': %w", uid, err)
	}
	return nil
}
