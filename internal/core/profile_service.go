package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/example/summarist/internal/db"
	"github.com/example/summarist/internal/identity"
	"github.com/example/summarist/internal/models"
)

// profileService implements the ProfileService interface.
type profileService struct {
	profiles db.ProfileRepository
	users    db.UserRepository
	now      func() time.Time
	logger   *zap.Logger
}

// NewProfileService creates a new ProfileService instance.
func NewProfileService(profiles db.ProfileRepository, users db.UserRepository, logger *zap.Logger) ProfileService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &profileService{profiles: profiles, users: users, now: time.Now, logger: logger}
}

// Initialize keeps users/{uid} in step with the identity, then creates the
// profile defaulted to free or merges identity fields into the existing one.
// Subscription fields of an existing profile are never touched here.
func (s *profileService) Initialize(ctx context.Context, id identity.Identity) (*models.Profile, bool, error) {
	if id.UID == "" {
		return nil, false, &ValidationError{Message: "uid is required", Fields: []string{"uid"}}
	}

	if err := s.users.Upsert(ctx, &models.User{
		UID:         id.UID,
		Email:       id.Email,
		DisplayName: id.DisplayName,
		PhotoURL:    id.PhotoURL,
	}); err != nil {
		return nil, false, fmt.Errorf("failed to index user '%s': %w", id.UID, err)
	}

	existing, err := s.profiles.GetByID(ctx, id.UID)
	if err != nil && !errors.Is(err, db.ErrNotFound) {
		return nil, false, fmt.Errorf("failed to get profile '%s': %w", id.UID, err)
	}

	if existing == nil {
		profile := &models.Profile{
			UID:         id.UID,
			Email:       id.Email,
			DisplayName: id.DisplayName,
			PhotoURL:    id.PhotoURL,
			Plan:        models.PlanFree,
			Subscribed:  false,
			CreatedAt:   s.now().UTC(),
		}
		err := s.profiles.Create(ctx, profile)
		if err == nil {
			s.logger.Info("Created profile with free plan", zap.String("uid", id.UID))
			return profile, true, nil
		}
		if !errors.Is(err, db.ErrAlreadyExists) {
			return nil, false, fmt.Errorf("failed to create profile '%s': %w", id.UID, err)
		}
		// Lost a race with a concurrent first sign-in; merge instead.
	}

	if err := s.profiles.MergeIdentity(ctx, id.UID, id.Email, id.DisplayName, id.PhotoURL); err != nil {
		return nil, false, fmt.Errorf("failed to update profile '%s': %w", id.UID, err)
	}
	profile, err := s.profiles.GetByID(ctx, id.UID)
	if err != nil {
		return nil, false, fmt.Errorf("failed to reload profile '%s': %w", id.UID, err)
	}
	return profile, false, nil
}

// GetProfile returns the stored profile. A missing profile wraps db.ErrNotFound.
func (s *profileService) GetProfile(ctx context.Context, uid string) (*models.Profile, error) {
	profile, err := s.profiles.GetByID(ctx, uid)
	if err != nil {
		return nil, err
	}
	return profile, nil
}
