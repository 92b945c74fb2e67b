// Package auth resolves the opaque session token carried by a websocket
// handshake into a user identity.
//
// The resolver is read-only and stateless: it delegates to an external
// SessionStore behind a bounded timeout, so a slow or unavailable auth
// backend rejects the handshake instead of hanging the server. There are no
// retries at this layer; a client that fails resolution re-attempts the
// whole handshake.
package auth
