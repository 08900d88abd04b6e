// Package session holds the authenticated user, token and UI language preference, and
// persists them through a [storage.Backend].
//
// # Persistence
//
// The language preference is kept in plain storage under "app". The session is kept
// under "auth" as a sealed blob: a versioned JSON payload encrypted with
// XChaCha20-Poly1305 under a key derived by argon2id from the configured storage
// secret. Anything that fails to open, decode, or carries an expired token loads as
// "no session" and the blob is purged.
//
// # Architecture boundaries
//
// This package owns the [Store] and the [Session] model. It reads token claims for
// expiry only and never verifies signatures; authority stays with the API.
//
// # What this package must NOT do
//
//   - Import courtdesk, remote, or guard (no upward imports).
//   - Make routing or authorization decisions.
//   - Fall back to a built-in encryption key.
package session
