package models

import (
	"fmt"
	"time"
)

// Plan is the subscription plan stored on a profile.
type Plan string

const (
	PlanFree           Plan = "free"
	PlanBasic          Plan = "basic"
	PlanPremiumMonthly Plan = "premium-monthly"
	PlanPremiumYearly  Plan = "premium-yearly"
)

// ParsePlan validates a plan string.
func ParsePlan(s string) (Plan, error) {
	switch p := Plan(s); p {
	case PlanFree, PlanBasic, PlanPremiumMonthly, PlanPremiumYearly:
		return p, nil
	}
	return "", fmt.Errorf("unknown plan %q", s)
}

// IsPremium reports whether the plan grants premium content access.
func (p Plan) IsPremium() bool {
	return p == PlanPremiumMonthly || p == PlanPremiumYearly
}

// PlanForInterval maps a Stripe recurring interval to the premium plan it buys.
func PlanForInterval(interval string) (Plan, bool) {
	switch interval {
	case "month":
		return PlanPremiumMonthly, true
	case "year":
		return PlanPremiumYearly, true
	}
	return "", false
}

// Profile is the per-user subscription document stored at profiles/{uid}.
type Profile struct {
	UID              string     `json:"uid" firestore:"uid"`
	Email            string     `json:"email,omitempty" firestore:"email"`
	DisplayName      string     `json:"displayName,omitempty" firestore:"displayName"`
	PhotoURL         string     `json:"photoURL,omitempty" firestore:"photoURL"`
	Plan             Plan       `json:"plan" firestore:"plan"`
	Subscribed       bool       `json:"subscribed" firestore:"subscribed"`
	SubscriptionDate *time.Time `json:"subscriptionDate,omitempty" firestore:"subscriptionDate"`
	CreatedAt        time.Time  `json:"createdAt" firestore:"createdAt"`
	UpdatedAt        time.Time  `json:"updatedAt,omitempty" firestore:"updatedAt,omitempty"`
}

// EffectivePlan ignores the stored plan unless the profile is subscribed.
func (p *Profile) EffectivePlan() Plan {
	if p == nil || !p.Subscribed || p.Plan == "" {
		return PlanFree
	}
	return p.Plan
}

// SubscriptionState is the subscription view derived from a profile.
type SubscriptionState struct {
	Plan             Plan       `json:"plan"`
	IsSubscribed     bool       `json:"isSubscribed"`
	HasPremiumAccess bool       `json:"hasPremiumAccess"`
	SubscriptionDate *time.Time `json:"subscriptionDate,omitempty"`
}

// FreeState is the state of a signed-out user or one without a profile.
func FreeState() SubscriptionState {
	return SubscriptionState{Plan: PlanFree}
}

// DeriveSubscriptionState computes the subscription state for a profile.
// A nil profile yields FreeState.
func DeriveSubscriptionState(p *Profile) SubscriptionState {
	if p == nil {
		return FreeState()
	}
	plan := p.EffectivePlan()
	return SubscriptionState{
		Plan:             plan,
		IsSubscribed:     p.Subscribed,
		HasPremiumAccess: plan.IsPremium(),
		SubscriptionDate: p.SubscriptionDate,
	}
}
