package db

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"

	"github.com/example/summarist/internal/models"
)

type firestoreLibraryRepository struct {
	client *firestore.Client
}

// NewFirestoreLibraryRepository creates a LibraryRepository backed by Firestore.
func NewFirestoreLibraryRepository(client *firestore.Client) LibraryRepository {
	return &firestoreLibraryRepository{client: client}
}

func (r *firestoreLibraryRepository) shelf(uid string, shelf Shelf) *firestore.CollectionRef {
	return r.client.Collection(usersCollection).Doc(uid).Collection(string(shelf))
}

func shelfOrderField(shelf Shelf) string {
	if shelf == ShelfFinished {
		return "finishedAt"
	}
	return "addedAt"
}

// Save overwrites users/{uid}/{shelf}/{bookId} with the entry.
func (r *firestoreLibraryRepository) Save(ctx context.Context, uid string, shelf Shelf, entry *models.LibraryEntry) error {
	if uid == "" || entry == nil || entry.ID == "" {
		return errors.New("uid and book id are required for Save operation")
	}
	if _, err := r.shelf(uid, shelf).Doc(entry.ID).Set(ctx, entry); err != nil {
		return fmt.Errorf("failed to save book '%s' to %s: %w", entry.ID, shelf, err)
	}
	return nil
}

func (r *firestoreLibraryRepository) Remove(ctx context.Context, uid string, shelf Shelf, bookID string) error {
	if uid == "" || bookID == "" {
		return errors.New("uid and book id are required for Remove operation")
	}
	if _, err := r.shelf(uid, shelf).Doc(bookID).Delete(ctx); err != nil {
		return fmt.Errorf("failed to remove book '%s' from %s: %w", bookID, shelf, err)
	}
	return nil
}

// List returns the shelf newest first.
func (r *firestoreLibraryRepository) List(ctx context.Context, uid string, shelf Shelf) ([]*models.LibraryEntry, error) {
	iter := r.shelf(uid, shelf).OrderBy(shelfOrderField(shelf), firestore.Desc).Documents(ctx)
	defer iter.Stop()

	entries := []*models.LibraryEntry{}
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list %s for user '%s': %w", shelf, uid, err)
		}
		var entry models.LibraryEntry
		if err := snap.DataTo(&entry); err != nil {
			return nil, fmt.Errorf("failed to decode library entry '%s': %w", snap.Ref.ID, err)
		}
		entry.ID = snap.Ref.ID
		entries = append(entries, &entry)
	}
	return entries, nil
}
