package core

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/summarist/internal/db"
	"github.com/example/summarist/internal/identity"
	"github.com/example/summarist/internal/models"
)

func newContextFixture(t *testing.T, simulated bool) (*db.Repositories, *SubscriptionContext) {
	t.Helper()
	repos := db.NewMemoryStore(fixedNow).Repositories()
	sc := NewSubscriptionContext(SubscriptionContextConfig{
		Profiles:         repos.Profiles,
		Audit:            NewAuditService(repos.Audit),
		SimulatedBilling: simulated,
		Now:              fixedNow,
	})
	return repos, sc
}

func TestSubscriptionContext_StartsLoadingAndFree(t *testing.T) {
	_, sc := newContextFixture(t, false)
	assert.True(t, sc.Loading())
	assert.Equal(t, models.FreeState(), sc.State())
	assert.False(t, sc.HasPremiumAccess())
	assert.Nil(t, sc.Identity())
}

func TestSubscriptionContext_DerivesFromProfile(t *testing.T) {
	repos, sc := newContextFixture(t, false)
	ctx := context.Background()
	date := testClock
	require.NoError(t, repos.Profiles.UpdateSubscription(ctx, "u1", db.SubscriptionUpdate{
		Plan: models.PlanPremiumMonthly, Subscribed: true, SubscriptionDate: &date,
	}))

	sc.SetIdentity(ctx, &identity.Identity{UID: "u1"})
	assert.False(t, sc.Loading())
	state := sc.State()
	assert.Equal(t, models.PlanPremiumMonthly, state.Plan)
	assert.True(t, state.IsSubscribed)
	assert.True(t, state.HasPremiumAccess)
	require.NotNil(t, state.SubscriptionDate)
	assert.True(t, state.SubscriptionDate.Equal(date))
}

func TestSubscriptionContext_StalePlanWithoutSubscriptionIsFree(t *testing.T) {
	repos, sc := newContextFixture(t, false)
	ctx := context.Background()
	require.NoError(t, repos.Profiles.UpdateSubscription(ctx, "u1", db.SubscriptionUpdate{
		Plan: models.PlanPremiumYearly, Subscribed: false,
	}))

	sc.SetIdentity(ctx, &identity.Identity{UID: "u1"})
	assert.Equal(t, models.PlanFree, sc.State().Plan)
	assert.False(t, sc.HasPremiumAccess())
}

func TestSubscriptionContext_MissingProfileIsFree(t *testing.T) {
	_, sc := newContextFixture(t, false)
	sc.SetIdentity(context.Background(), &identity.Identity{UID: "nobody"})
	assert.False(t, sc.Loading())
	assert.Equal(t, models.FreeState(), sc.State())
}

func TestSubscriptionContext_SignOutResets(t *testing.T) {
	repos, sc := newContextFixture(t, false)
	ctx := context.Background()
	require.NoError(t, repos.Profiles.UpdateSubscription(ctx, "u1", db.SubscriptionUpdate{
		Plan: models.PlanPremiumMonthly, Subscribed: true,
	}))
	sc.SetIdentity(ctx, &identity.Identity{UID: "u1"})
	require.True(t, sc.HasPremiumAccess())

	sc.SetIdentity(ctx, nil)
	assert.Nil(t, sc.Identity())
	assert.False(t, sc.Loading())
	assert.Equal(t, models.FreeState(), sc.State())
}

type failingProfiles struct{ db.ProfileRepository }

func (failingProfiles) GetByID(context.Context, string) (*models.Profile, error) {
	return nil, errors.New("firestore unavailable")
}

func TestSubscriptionContext_ReadErrorKeepsPreviousState(t *testing.T) {
	repos, sc := newContextFixture(t, false)
	ctx := context.Background()
	require.NoError(t, repos.Profiles.UpdateSubscription(ctx, "u1", db.SubscriptionUpdate{
		Plan: models.PlanPremiumMonthly, Subscribed: true,
	}))
	sc.SetIdentity(ctx, &identity.Identity{UID: "u1"})
	require.True(t, sc.HasPremiumAccess())

	sc.cfg.Profiles = failingProfiles{repos.Profiles}
	sc.SetIdentity(ctx, &identity.Identity{UID: "u1"})
	assert.False(t, sc.Loading())
	assert.True(t, sc.HasPremiumAccess())
}

func TestSubscriptionContext_ReadErrorAfterSwitchIsFree(t *testing.T) {
	repos, sc := newContextFixture(t, false)
	ctx := context.Background()
	require.NoError(t, repos.Profiles.UpdateSubscription(ctx, "a", db.SubscriptionUpdate{
		Plan: models.PlanPremiumMonthly, Subscribed: true,
	}))
	sc.SetIdentity(ctx, &identity.Identity{UID: "a"})
	require.True(t, sc.HasPremiumAccess())

	sc.cfg.Profiles = failingProfiles{repos.Profiles}
	sc.SetIdentity(ctx, &identity.Identity{UID: "b"})
	assert.Equal(t, "b", sc.Identity().UID)
	assert.False(t, sc.Loading())
	assert.False(t, sc.HasPremiumAccess())
	assert.Equal(t, models.FreeState(), sc.State())
}

// blockingProfiles holds GetByID for one uid until release is closed.
type blockingProfiles struct {
	db.ProfileRepository
	uid     string
	entered chan struct{}
	release chan struct{}
}

func (b *blockingProfiles) GetByID(ctx context.Context, uid string) (*models.Profile, error) {
	if uid == b.uid {
		close(b.entered)
		<-b.release
	}
	return b.ProfileRepository.GetByID(ctx, uid)
}

func TestSubscriptionContext_SupersededLoadIsDiscarded(t *testing.T) {
	repos := db.NewMemoryStore(fixedNow).Repositories()
	ctx := context.Background()
	require.NoError(t, repos.Profiles.UpdateSubscription(ctx, "slow", db.SubscriptionUpdate{
		Plan: models.PlanPremiumYearly, Subscribed: true,
	}))
	blocking := &blockingProfiles{
		ProfileRepository: repos.Profiles,
		uid:               "slow",
		entered:           make(chan struct{}),
		release:           make(chan struct{}),
	}
	sc := NewSubscriptionContext(SubscriptionContextConfig{Profiles: blocking, Now: fixedNow})

	done := make(chan struct{})
	go func() {
		sc.SetIdentity(ctx, &identity.Identity{UID: "slow"})
		close(done)
	}()
	<-blocking.entered

	sc.SetIdentity(ctx, &identity.Identity{UID: "fast"})
	assert.Equal(t, "fast", sc.Identity().UID)
	assert.Equal(t, models.FreeState(), sc.State())

	close(blocking.release)
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("superseded load did not return")
	}

	assert.Equal(t, "fast", sc.Identity().UID)
	assert.False(t, sc.HasPremiumAccess(), "the older load must not overwrite newer state")
	assert.False(t, sc.Loading())
}

func TestSubscriptionContext_SimulationDisabled(t *testing.T) {
	repos, sc := newContextFixture(t, false)
	ctx := context.Background()
	sc.SetIdentity(ctx, &identity.Identity{UID: "u1"})

	_, err := sc.ActivateSimulatedSubscription(ctx, models.PlanPremiumMonthly)
	assert.ErrorIs(t, err, ErrSimulationDisabled)
	_, err = sc.CancelSubscription(ctx)
	assert.ErrorIs(t, err, ErrSimulationDisabled)

	_, err = repos.Profiles.GetByID(ctx, "u1")
	assert.ErrorIs(t, err, db.ErrNotFound, "nothing was written")
}

func TestSubscriptionContext_SimulateRequiresIdentity(t *testing.T) {
	_, sc := newContextFixture(t, true)

	_, err := sc.ActivateSimulatedSubscription(context.Background(), models.PlanPremiumMonthly)
	require.ErrorIs(t, err, ErrAuthentication)
	assert.Equal(t, "User must be logged in", err.Error())
}

func TestSubscriptionContext_SimulateRejectsNonPremiumPlan(t *testing.T) {
	_, sc := newContextFixture(t, true)
	sc.SetIdentity(context.Background(), &identity.Identity{UID: "u1"})

	_, err := sc.ActivateSimulatedSubscription(context.Background(), models.PlanBasic)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestSubscriptionContext_SimulateThenCancel(t *testing.T) {
	repos, sc := newContextFixture(t, true)
	ctx := context.Background()
	sc.SetIdentity(ctx, &identity.Identity{UID: "u1"})

	state, err := sc.ActivateSimulatedSubscription(ctx, models.PlanPremiumYearly)
	require.NoError(t, err)
	assert.Equal(t, models.PlanPremiumYearly, state.Plan)
	assert.True(t, state.HasPremiumAccess)
	assert.True(t, sc.HasPremiumAccess())

	profile, err := repos.Profiles.GetByID(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, profile.Subscribed)
	assert.Equal(t, models.PlanPremiumYearly, profile.Plan)
	require.NotNil(t, profile.SubscriptionDate)
	assert.True(t, profile.SubscriptionDate.Equal(testClock))

	state, err = sc.CancelSubscription(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.FreeState(), state)
	assert.False(t, sc.HasPremiumAccess())

	profile, err = repos.Profiles.GetByID(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, profile.Subscribed)
	assert.Equal(t, models.PlanFree, profile.Plan)
	assert.Nil(t, profile.SubscriptionDate)

	logs, err := repos.Audit.ListByUser(ctx, "u1", 10)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, models.AuditActionSubscriptionCancelled, logs[0].Action)
	assert.Equal(t, models.AuditActionSubscriptionSimulated, logs[1].Action)
	assert.Equal(t, "premium-yearly", logs[1].Details["plan"])
}

func TestSubscriptionContexts_Load(t *testing.T) {
	repos := db.NewMemoryStore(fixedNow).Repositories()
	require.NoError(t, repos.Profiles.UpdateSubscription(context.Background(), "u1", db.SubscriptionUpdate{
		Plan: models.PlanPremiumMonthly, Subscribed: true,
	}))
	factory := NewSubscriptionContexts(SubscriptionContextConfig{Profiles: repos.Profiles, SimulatedBilling: true})
	assert.True(t, factory.SimulatedBilling())

	sc := factory.Load(context.Background(), &identity.Identity{UID: "u1"})
	assert.False(t, sc.Loading())
	assert.True(t, sc.HasPremiumAccess())

	anon := factory.Load(context.Background(), nil)
	assert.False(t, anon.Loading())
	assert.False(t, anon.HasPremiumAccess())
}
