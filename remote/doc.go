// Package remote is the HTTP client every other component talks to the booking API
// through.
//
// [Client.Do] attaches the bearer token for authenticated requests, normalizes every
// failure into a [*RemoteError], and on a 401 for a request that carried a token clears
// the session and reports a login URL that preserves the originating path. It never
// retries.
//
// # What this package must NOT do
//
//   - Display anything. Failures reach the user through the optional [ErrorHook].
//   - Import courtdesk, session, or search.
package remote
