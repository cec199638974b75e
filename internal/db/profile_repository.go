package db

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/example/summarist/internal/models"
)

type firestoreProfileRepository struct {
	client *firestore.Client
}

// NewFirestoreProfileRepository creates a ProfileRepository backed by Firestore.
func NewFirestoreProfileRepository(client *firestore.Client) ProfileRepository {
	return &firestoreProfileRepository{client: client}
}

func (r *firestoreProfileRepository) doc(uid string) *firestore.DocumentRef {
	return r.client.Collection(profilesCollection).Doc(uid)
}

// GetByID retrieves a profile by the Firebase Auth UID.
func (r *firestoreProfileRepository) GetByID(ctx context.Context, uid string) (*models.Profile, error) {
	if uid == "" {
		return nil, errors.New("uid cannot be empty for GetByID operation")
	}
	snap, err := r.doc(uid).Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("profile '%s' not found: %w", uid, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get profile '%s': %w", uid, err)
	}

	var profile models.Profile
	if err := snap.DataTo(&profile); err != nil {
		return nil, fmt.Errorf("failed to decode profile '%s': %w", uid, err)
	}
	profile.UID = snap.Ref.ID
	return &profile, nil
}

// Create writes a new profile; the document ID is the UID.
func (r *firestoreProfileRepository) Create(ctx context.Context, profile *models.Profile) error {
	if profile.UID == "" {
		return errors.New("profile UID cannot be empty for Create operation")
	}
	_, err := r.doc(profile.UID).Create(ctx, profile)
	if err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return fmt.Errorf("profile '%s': %w", profile.UID, ErrAlreadyExists)
		}
		return fmt.Errorf("failed to create profile '%s': %w", profile.UID, err)
	}
	return nil
}

func (r *firestoreProfileRepository) MergeIdentity(ctx context.Context, uid, email, displayName, photoURL string) error {
	if uid == "" {
		return errors.New("uid cannot be empty for MergeIdentity operation")
	}
	fields := map[string]interface{}{
		"uid":       uid,
		"updatedAt": firestore.ServerTimestamp,
	}
	if email != "" {
		fields["email"] = email
	}
	if displayName != "" {
		fields["displayName"] = displayName
	}
	if photoURL != "" {
		fields["photoURL"] = photoURL
	}
	if _, err := r.doc(uid).Set(ctx, fields, firestore.MergeAll); err != nil {
		return fmt.Errorf("failed to merge identity into profile '%s': %w", uid, err)
	}
	return nil
}

// UpdateSubscription merges plan, subscribed and subscriptionDate. A nil
// date is stored as null.
func (r *firestoreProfileRepository) UpdateSubscription(ctx context.Context, uid string, update SubscriptionUpdate) error {
	if uid == "" {
		return errors.New("uid cannot be empty for UpdateSubscription operation")
	}
	fields := map[string]interface{}{
		"uid":              uid,
		"plan":             string(update.Plan),
		"subscribed":       update.Subscribed,
		"subscriptionDate": nil,
		"updatedAt":        firestore.ServerTimestamp,
	}
	if update.SubscriptionDate != nil {
		fields["subscriptionDate"] = *update.SubscriptionDate
	}
	if _, err := r.doc(uid).Set(ctx, fields, firestore.MergeAll); err != nil {
		return fmt.Errorf("failed to update subscription on profile '%s': %w", uid, err)
	}
	return nil
}
