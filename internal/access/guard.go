package access

import (
	"github.com/example/summarist/internal/models"
)

// PlanSelectionPath is where callers without premium access are sent.
const PlanSelectionPath = "/choose-plan"

// Outcome is the guard's verdict for one item.
type Outcome string

const (
	Wait     Outcome = "wait"
	Allow    Outcome = "allow"
	Redirect Outcome = "redirect"
)

// Decision is an Outcome plus, for Redirect, its target.
type Decision struct {
	Outcome    Outcome `json:"outcome"`
	RedirectTo string  `json:"redirectTo,omitempty"`
}

// RequiresPremium reports whether the item is premium content.
func RequiresPremium(book *models.Book) bool {
	if book == nil {
		return false
	}
	return book.Type == "premium" || book.SubscriptionRequired
}

// Evaluate decides whether the item may be opened. Nothing is decided while
// the subscription state is still loading.
func Evaluate(book *models.Book, state models.SubscriptionState, loading bool) Decision {
	if loading {
		return Decision{Outcome: Wait}
	}
	if RequiresPremium(book) && !state.HasPremiumAccess {
		return Decision{Outcome: Redirect, RedirectTo: PlanSelectionPath}
	}
	return Decision{Outcome: Allow}
}
