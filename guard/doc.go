// Package guard decides whether the current session may enter a screen.
//
// The decision has three outcomes: [Allow], [RedirectToLogin] when nobody is signed in,
// and [RedirectToForbidden] when the effective role is not among the required roles.
// An empty required list means "any authenticated user". Route requirements come from
// the same [permission.RuleSet] that renders the menu.
//
// # Architecture boundaries
//
// This package translates session state into a decision. It does NOT resolve roles
// (session does) and it does NOT talk to the API.
//
// # What this package must NOT do
//
//   - Mutate the session.
//   - Keep its own copy of role tables.
package guard
