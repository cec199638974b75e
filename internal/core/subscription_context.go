package core

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/example/summarist/internal/db"
	"github.com/example/summarist/internal/identity"
	"github.com/example/summarist/internal/models"
)

// SubscriptionContextConfig holds what every SubscriptionContext shares.
type SubscriptionContextConfig struct {
	Profiles db.ProfileRepository
	Audit    AuditService
	// SimulatedBilling allows writing subscription state without a payment.
	SimulatedBilling bool
	Logger           *zap.Logger
	Now              func() time.Time
}

// SubscriptionContext caches the derived subscription state of whoever is
// signed in. It starts loading, with free state, until the first identity
// is set.
type SubscriptionContext struct {
	cfg SubscriptionContextConfig

	mu         sync.Mutex
	identity   *identity.Identity
	state      models.SubscriptionState
	loading    bool
	generation uint64
}

func NewSubscriptionContext(cfg SubscriptionContextConfig) *SubscriptionContext {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &SubscriptionContext{
		cfg:     cfg,
		state:   models.FreeState(),
		loading: true,
	}
}

// SetIdentity reloads state for id. A nil id is a sign-out and resets to free
// at once, as does switching to another uid, so a failed read never leaves
// one user holding another's plan. When a newer identity change lands while
// the profile is being read, the older result is dropped.
func (c *SubscriptionContext) SetIdentity(ctx context.Context, id *identity.Identity) {
	c.mu.Lock()
	c.generation++
	gen := c.generation
	if id == nil {
		c.identity = nil
		c.state = models.FreeState()
		c.loading = false
		c.mu.Unlock()
		return
	}
	if c.identity == nil || c.identity.UID != id.UID {
		c.state = models.FreeState()
	}
	cp := *id
	c.identity = &cp
	c.loading = true
	c.mu.Unlock()

	profile, err := c.cfg.Profiles.GetByID(ctx, id.UID)

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.generation {
		return
	}
	c.loading = false
	switch {
	case err == nil:
		c.state = models.DeriveSubscriptionState(profile)
	case errors.Is(err, db.ErrNotFound):
		c.state = models.FreeState()
	default:
		c.cfg.Logger.Warn("Failed to load subscription state", zap.String("uid", id.UID), zap.Error(err))
	}
}

// State returns the current derived subscription state.
func (c *SubscriptionContext) State() models.SubscriptionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *SubscriptionContext) Loading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loading
}

func (c *SubscriptionContext) HasPremiumAccess() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.HasPremiumAccess
}

// Identity returns the signed-in identity, or nil.
func (c *SubscriptionContext) Identity() *identity.Identity {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.identity == nil {
		return nil
	}
	cp := *c.identity
	return &cp
}

// ActivateSimulatedSubscription writes a premium plan straight to the
// profile, as a webhook would after payment.
func (c *SubscriptionContext) ActivateSimulatedSubscription(ctx context.Context, plan models.Plan) (models.SubscriptionState, error) {
	if !plan.IsPremium() {
		return c.State(), &ValidationError{Message: "only premium plans can be simulated", Fields: []string{"plan"}}
	}
	now := c.cfg.Now().UTC()
	next := models.SubscriptionState{
		Plan:             plan,
		IsSubscribed:     true,
		HasPremiumAccess: true,
		SubscriptionDate: &now,
	}
	return c.writeSubscription(ctx, next, models.AuditActionSubscriptionSimulated)
}

// CancelSubscription writes the free plan straight to the profile.
func (c *SubscriptionContext) CancelSubscription(ctx context.Context) (models.SubscriptionState, error) {
	return c.writeSubscription(ctx, models.FreeState(), models.AuditActionSubscriptionCancelled)
}

func (c *SubscriptionContext) writeSubscription(ctx context.Context, next models.SubscriptionState, action string) (models.SubscriptionState, error) {
	c.mu.Lock()
	if c.identity == nil {
		c.mu.Unlock()
		return models.FreeState(), &AuthenticationError{Message: "User must be logged in"}
	}
	if !c.cfg.SimulatedBilling {
		state := c.state
		c.mu.Unlock()
		return state, ErrSimulationDisabled
	}
	uid := c.identity.UID
	c.generation++
	gen := c.generation
	c.loading = true
	c.mu.Unlock()

	err := c.cfg.Profiles.UpdateSubscription(ctx, uid, db.SubscriptionUpdate{
		Plan:             next.Plan,
		Subscribed:       next.IsSubscribed,
		SubscriptionDate: next.SubscriptionDate,
	})

	c.mu.Lock()
	if gen == c.generation {
		c.loading = false
		if err == nil {
			c.state = next
		}
	}
	state := c.state
	c.mu.Unlock()

	if err != nil {
		return state, fmt.Errorf("failed to update subscription for '%s': %w", uid, err)
	}

	if c.cfg.Audit != nil {
		entry := models.AuditLog{
			Timestamp:  c.cfg.Now().UTC(),
			UserID:     uid,
			Action:     action,
			TargetType: models.AuditTargetProfile,
			TargetID:   uid,
			Details: map[string]interface{}{
				"plan":       string(next.Plan),
				"subscribed": next.IsSubscribed,
			},
		}
		if err := c.cfg.Audit.CreateAuditLog(ctx, entry); err != nil {
			c.cfg.Logger.Warn("Failed to write audit log", zap.String("uid", uid), zap.String("action", action), zap.Error(err))
		}
	}
	c.cfg.Logger.Info("Subscription changed without payment", zap.String("uid", uid), zap.String("plan", string(next.Plan)), zap.String("action", action))
	return next, nil
}

// SubscriptionContexts builds a loaded SubscriptionContext per request.
type SubscriptionContexts struct {
	cfg SubscriptionContextConfig
}

func NewSubscriptionContexts(cfg SubscriptionContextConfig) *SubscriptionContexts {
	return &SubscriptionContexts{cfg: cfg}
}

// SimulatedBilling reports whether simulate and cancel are enabled.
func (f *SubscriptionContexts) SimulatedBilling() bool {
	return f.cfg.SimulatedBilling
}

// Load returns a context with id already applied. A nil id yields free state.
func (f *SubscriptionContexts) Load(ctx context.Context, id *identity.Identity) *SubscriptionContext {
	sc := NewSubscriptionContext(f.cfg)
	sc.SetIdentity(ctx, id)
	return sc
}
