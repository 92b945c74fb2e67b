package auth

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrUnauthenticated is returned for any handshake credential that does not
// resolve to a known identity, including store timeouts. Callers must treat
// it as terminal for that attempt.
var ErrUnauthenticated = errors.New("unauthenticated")

// Identity is a resolved user.
type Identity struct {
	UserID   int    `json:"userId"`
	Username string `json:"username"`
}

// SessionStore is the external collaborator that owns session persistence.
// The realtime core never writes sessions; it only looks them up.
type SessionStore interface {
	Lookup(ctx context.Context, token string) (Identity, error)
}

// Resolver validates handshake credentials against a SessionStore with a
// bounded timeout.
type Resolver struct {
	store   SessionStore
	timeout time.Duration
}

// NewResolver creates a resolver. A zero timeout defaults to 3 seconds.
func NewResolver(store SessionStore, timeout time.Duration) *Resolver {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &Resolver{store: store, timeout: timeout}
}

// Resolve maps a raw session token to an identity. Every failure mode
// (empty token, unknown token, store error, timeout) collapses into
// ErrUnauthenticated so the transport layer has a single rejection path.
func (r *Resolver) Resolve(ctx context.Context, rawToken string) (Identity, error) {
	if rawToken == "" {
		return Identity{}, ErrUnauthenticated
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	identity, err := r.store.Lookup(ctx, rawToken)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}
	return identity, nil
}
