package models

import "time"

// AuditLog records an action taken against a user's subscription outside the
// payment provider, such as a simulated activation.
type AuditLog struct {
	ID         string                 `json:"id" firestore:"-"`
	Timestamp  time.Time              `json:"timestamp" firestore:"timestamp"`
	UserID     string                 `json:"userId" firestore:"userId"`
	Action     string                 `json:"action" firestore:"action"` // e.g. "SUBSCRIPTION_SIMULATED"
	TargetType string                 `json:"targetType,omitempty" firestore:"targetType,omitempty"`
	TargetID   string                 `json:"targetId,omitempty" firestore:"targetId,omitempty"`
	Details    map[string]interface{} `json:"details,omitempty" firestore:"details,omitempty"`
}

const (
	AuditActionSubscriptionSimulated = "SUBSCRIPTION_SIMULATED"
	AuditActionSubscriptionCancelled = "SUBSCRIPTION_CANCELLED"
	AuditTargetProfile               = "PROFILE"
)
