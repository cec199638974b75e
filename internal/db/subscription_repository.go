package db

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/firestore"

	"github.com/example/summarist/internal/models"
)

type firestoreSubscriptionRepository struct {
	client *firestore.Client
}

// NewFirestoreSubscriptionRepository creates a SubscriptionRepository backed by Firestore.
func NewFirestoreSubscriptionRepository(client *firestore.Client) SubscriptionRepository {
	return &firestoreSubscriptionRepository{client: client}
}

func (r *firestoreSubscriptionRepository) userDoc(uid, docID string) *firestore.DocumentRef {
	return r.client.Collection(usersCollection).Doc(uid).Collection(subscriptionsCollection).Doc(docID)
}

func (r *firestoreSubscriptionRepository) customerDoc(customerID, docID string) *firestore.DocumentRef {
	return r.client.Collection(stripeCustomersCollection).Doc(customerID).Collection(subscriptionsCollection).Doc(docID)
}

func (r *firestoreSubscriptionRepository) UpsertForUser(ctx context.Context, uid, docID string, patch models.SubscriptionPatch) error {
	if uid == "" || docID == "" {
		return errors.New("uid and docID are required for UpsertForUser operation")
	}
	return r.upsert(ctx, r.userDoc(uid, docID), patch)
}

func (r *firestoreSubscriptionRepository) UpsertForCustomer(ctx context.Context, customerID, docID string, patch models.SubscriptionPatch) error {
	if customerID == "" || docID == "" {
		return errors.New("customerID and docID are required for UpsertForCustomer operation")
	}
	return r.upsert(ctx, r.customerDoc(customerID, docID), patch)
}

func (r *firestoreSubscriptionRepository) upsert(ctx context.Context, ref *firestore.DocumentRef, patch models.SubscriptionPatch) error {
	fields := patch.Fields()
	fields["updatedAt"] = firestore.ServerTimestamp
	if patch.MarkCreated {
		fields["createdAt"] = firestore.ServerTimestamp
	}
	if _, err := ref.Set(ctx, fields, firestore.MergeAll); err != nil {
		return fmt.Errorf("failed to upsert subscription record '%s': %w", ref.Path, err)
	}
	return nil
}

func (r *firestoreSubscriptionRepository) GetForUser(ctx context.Context, uid, docID string) (*models.SubscriptionRecord, error) {
	if uid == "" || docID == "" {
		return nil, fmt.Errorf("subscription record '%s/%s': %w", uid, docID, ErrNotFound)
	}
	ref := r.userDoc(uid, docID)
	snap, err := ref.Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("subscription record '%s': %w", ref.ID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get subscription record '%s': %w", ref.ID, err)
	}
	var rec models.SubscriptionRecord
	if err := snap.DataTo(&rec); err != nil {
		return nil, fmt.Errorf("failed to decode subscription record '%s': %w", ref.ID, err)
	}
	rec.DocID = snap.Ref.ID
	return &rec, nil
}
