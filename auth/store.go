package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"sync"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrInvalidIdentity = errors.New("invalid identity")
)

// MemoryStore is an in-process SessionStore used for development and tests.
// Production deployments point the Resolver at the shared auth backend
// instead; the store interface is the seam.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]Identity
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]Identity),
	}
}

// Issue registers a new session for the identity and returns its token.
func (s *MemoryStore) Issue(identity Identity) (string, error) {
	if identity.UserID <= 0 {
		return "", ErrInvalidIdentity
	}

	token := generateToken()

	s.mu.Lock()
	s.sessions[token] = identity
	s.mu.Unlock()

	return token, nil
}

// Put registers a session under a caller-chosen token, replacing any
// existing binding. Used to seed fixed development tokens from the
// environment.
func (s *MemoryStore) Put(token string, identity Identity) error {
	if token == "" {
		return ErrSessionNotFound
	}
	if identity.UserID <= 0 {
		return ErrInvalidIdentity
	}

	s.mu.Lock()
	s.sessions[token] = identity
	s.mu.Unlock()

	return nil
}

// Revoke removes a session. Revoking an unknown token is a no-op.
func (s *MemoryStore) Revoke(token string) {
	s.mu.Lock()
	delete(s.sessions, token)
	s.mu.Unlock()
}

// Lookup implements SessionStore.
func (s *MemoryStore) Lookup(ctx context.Context, token string) (Identity, error) {
	if err := ctx.Err(); err != nil {
		return Identity{}, err
	}

	s.mu.RLock()
	identity, ok := s.sessions[token]
	s.mu.RUnlock()

	if !ok {
		return Identity{}, ErrSessionNotFound
	}
	return identity, nil
}

// Len returns the number of live sessions.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// generateToken creates a random 16-byte hex token.
func generateToken() string {
	bytes := make([]byte, 16)
	rand.Read(bytes)
	return hex.EncodeToString(bytes)
}
