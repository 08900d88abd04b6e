// Package internal contains helper utilities that are intentionally private to
// courtdesk, such as secure random generation.
//
// # Sub-packages
//
//   - backoff: exponential reconnect delays with jitter
//   - logging: zap logger construction and nil-logger defaults
//
// # What this package must NOT do
//
//   - Export types that appear in the public courtdesk API.
//   - Be imported by any package outside the courtdesk module.
package internal
