package models

// CheckoutRequest is the body of the checkout endpoint. PriceCents is a
// pointer so a missing value can be told apart from zero.
type CheckoutRequest struct {
	PlanID     string `json:"planId"`
	PriceCents *int64 `json:"priceCents"`
	Interval   string `json:"interval"`
	Title      string `json:"title"`
	IDToken    string `json:"idToken"`
}

// SimulateSubscriptionRequest is the body of the simulated activation endpoint.
type SimulateSubscriptionRequest struct {
	Plan string `json:"plan" binding:"required"`
}

// AddLibraryEntryRequest saves a book snapshot to the caller's library.
type AddLibraryEntryRequest struct {
	Book Book `json:"book"`
}
