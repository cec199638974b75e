package db

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"

	"github.com/example/summarist/internal/models"
)

type firestoreAuditRepository struct {
	client *firestore.Client
}

// NewFirestoreAuditRepository creates an AuditRepository backed by Firestore.
func NewFirestoreAuditRepository(client *firestore.Client) AuditRepository {
	return &firestoreAuditRepository{client: client}
}

// Create adds an entry with an auto-generated ID.
func (r *firestoreAuditRepository) Create(ctx context.Context, logEntry models.AuditLog) error {
	if _, _, err := r.client.Collection(auditLogsCollection).Add(ctx, logEntry); err != nil {
		return fmt.Errorf("failed to write audit log for user '%s': %w", logEntry.UserID, err)
	}
	return nil
}

// ListByUser returns the newest entries for uid first.
func (r *firestoreAuditRepository) ListByUser(ctx context.Context, uid string, limit int) ([]*models.AuditLog, error) {
	query := r.client.Collection(auditLogsCollection).Where("userId", "==", uid).OrderBy("timestamp", firestore.Desc)
	if limit > 0 {
		query = query.Limit(limit)
	}
	iter := query.Documents(ctx)
	defer iter.Stop()

	var logs []*models.AuditLog
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list audit logs for user '%s': %w", uid, err)
		}
		var entry models.AuditLog
		if err := snap.DataTo(&entry); err != nil {
			return nil, fmt.Errorf("failed to decode audit log '%s': %w", snap.Ref.ID, err)
		}
		entry.ID = snap.Ref.ID
		logs = append(logs, &entry)
	}
	return logs, nil
}
