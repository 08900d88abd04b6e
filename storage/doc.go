// Package storage provides the durable key/value backends courtdesk persists client
// state into: the sealed session blob, plain preferences, and staged checkout data.
//
// # Backends
//
//   - [Memory]: process-local, used by tests and ephemeral CLI runs.
//   - [File]: a single JSON document on disk, written atomically with 0600 permissions.
//   - [Redis]: prefixed keys in a shared Redis, for kiosks and BFF deployments where
//     several processes serve the same operator.
//
// # What this package must NOT do
//
//   - Interpret or encrypt values (sealing belongs to session).
//   - Import courtdesk or any sibling package.
package storage
