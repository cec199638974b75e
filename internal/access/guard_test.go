package access

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/example/summarist/internal/models"
)

func TestRequiresPremium(t *testing.T) {
	assert.True(t, RequiresPremium(&models.Book{Type: "premium"}))
	assert.True(t, RequiresPremium(&models.Book{SubscriptionRequired: true}))
	assert.False(t, RequiresPremium(&models.Book{Type: "audio"}))
	assert.False(t, RequiresPremium(nil))
}

func TestEvaluate(t *testing.T) {
	premium := models.SubscriptionState{Plan: models.PlanPremiumMonthly, IsSubscribed: true, HasPremiumAccess: true}
	free := models.FreeState()
	premiumBook := &models.Book{ID: "b1", SubscriptionRequired: true}
	freeBook := &models.Book{ID: "b2"}

	tests := []struct {
		name    string
		book    *models.Book
		state   models.SubscriptionState
		loading bool
		want    Decision
	}{
		{"loading waits", premiumBook, free, true, Decision{Outcome: Wait}},
		{"loading waits even for free item", freeBook, premium, true, Decision{Outcome: Wait}},
		{"premium item without access redirects", premiumBook, free, false, Decision{Outcome: Redirect, RedirectTo: "/choose-plan"}},
		{"premium item with access allowed", premiumBook, premium, false, Decision{Outcome: Allow}},
		{"free item allowed", freeBook, free, false, Decision{Outcome: Allow}},
		{"stale plan without subscription redirects", premiumBook, models.DeriveSubscriptionState(&models.Profile{Plan: models.PlanPremiumYearly}), false, Decision{Outcome: Redirect, RedirectTo: "/choose-plan"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Evaluate(tt.book, tt.state, tt.loading))
		})
	}
}
