// Package permission defines role names, the fixed role precedence used to pick an
// effective role, permission sets, and the declarative rule set that drives both route
// guarding and menu visibility.
//
// # Architecture boundaries
//
// This package is a pure in-memory data structure with no I/O. Session owns which
// roles a user holds; guard owns the allow/redirect decision. Both consult the single
// [RuleSet] here so navigation and guarding cannot diverge.
//
// # What this package must NOT do
//
//   - Access storage or the network.
//   - Import courtdesk, session, or guard.
package permission
