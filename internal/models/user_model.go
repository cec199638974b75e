package models

import "time"

// User is the identity index document at users/{uid}. Payer emails from
// Stripe are resolved against this collection.
type User struct {
	ID          string    `json:"id" firestore:"-"`
	UID         string    `json:"uid" firestore:"uid"`
	Email       string    `json:"email" firestore:"email"`
	DisplayName string    `json:"displayName,omitempty" firestore:"displayName"`
	PhotoURL    string    `json:"photoURL,omitempty" firestore:"photoURL"`
	LastSeen    time.Time `json:"lastSeen" firestore:"lastSeen"`
	// StripeCustomerID and SubscriptionID link the user to the Stripe
	// customer that paid and to the subscription that last granted premium.
	StripeCustomerID string `json:"stripeCustomerId,omitempty" firestore:"stripeCustomerId,omitempty"`
	SubscriptionID   string `json:"subscriptionId,omitempty" firestore:"subscriptionId,omitempty"`
}
