package identity

import (
	"context"
	"errors"
	"fmt"

	"firebase.google.com/go/v4/auth"
)

// ErrInvalidToken is returned when an ID token fails verification.
var ErrInvalidToken = errors.New("invalid identity token")

// Identity is the verified user behind an ID token.
type Identity struct {
	UID         string `json:"uid"`
	Email       string `json:"email,omitempty"`
	DisplayName string `json:"displayName,omitempty"`
	PhotoURL    string `json:"photoURL,omitempty"`
}

// Provider verifies ID tokens and ends sessions.
type Provider interface {
	VerifyIDToken(ctx context.Context, idToken string) (*Identity, error)
	// RevokeSessions invalidates every refresh token issued to uid.
	RevokeSessions(ctx context.Context, uid string) error
}

// FirebaseProvider is the Provider backed by Firebase Auth.
type FirebaseProvider struct {
	client *auth.Client
}

func NewFirebaseProvider(client *auth.Client) *FirebaseProvider {
	return &FirebaseProvider{client: client}
}

func (p *FirebaseProvider) VerifyIDToken(ctx context.Context, idToken string) (*Identity, error) {
	if idToken == "" {
		return nil, ErrInvalidToken
	}
	token, err := p.client.VerifyIDToken(ctx, idToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return FromToken(token), nil
}

func (p *FirebaseProvider) RevokeSessions(ctx context.Context, uid string) error {
	if err := p.client.RevokeRefreshTokens(ctx, uid); err != nil {
		return fmt.Errorf("revoke refresh tokens for '%s': %w", uid, err)
	}
	return nil
}

// FromToken reads the standard Firebase claims off a verified token.
func FromToken(token *auth.Token) *Identity {
	id := &Identity{UID: token.UID}
	if email, ok := token.Claims["email"].(string); ok {
		id.Email = email
	}
	if name, ok := token.Claims["name"].(string); ok {
		id.DisplayName = name
	}
	if picture, ok := token.Claims["picture"].(string); ok {
		id.PhotoURL = picture
	}
	return id
}
