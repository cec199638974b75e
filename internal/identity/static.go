package identity

import (
	"context"
	"sync"
)

// StaticProvider accepts a fixed set of tokens. It backs tests and local
// development without a Firebase project.
type StaticProvider struct {
	mu      sync.Mutex
	tokens  map[string]Identity
	revoked map[string]int
}

func NewStaticProvider() *StaticProvider {
	return &StaticProvider{
		tokens:  make(map[string]Identity),
		revoked: make(map[string]int),
	}
}

// Register makes token verify as id.
func (p *StaticProvider) Register(token string, id Identity) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tokens[token] = id
}

func (p *StaticProvider) VerifyIDToken(_ context.Context, idToken string) (*Identity, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	id, ok := p.tokens[idToken]
	if !ok {
		return nil, ErrInvalidToken
	}
	return &id, nil
}

// RevokeSessions drops every token issued to uid.
func (p *StaticProvider) RevokeSessions(_ context.Context, uid string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	for token, id := range p.tokens {
		if id.UID == uid {
			delete(p.tokens, token)
		}
	}
	p.revoked[uid]++
	return nil
}

// Revocations reports how many times uid was signed out.
func (p *StaticProvider) Revocations(uid string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.revoked[uid]
}
