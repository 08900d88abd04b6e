// Package courtdesk is a client kit for the pickleball court-booking API.
//
// A [Desk] wires the pieces a booking front end needs: the [remote.Client] every call
// goes through, the encrypted [session.Store], the role [guard.Guard] and menu built
// from one [permission.RuleSet], list controllers from package search, the booking
// grid stager and the payment watcher. Build one with [New] and [Builder.Build]; all
// Desk methods are safe for concurrent use afterwards.
//
// # Architecture boundaries
//
// courtdesk is the composition root. Subpackages never import it. Configuration is
// loaded here ([LoadConfig]) and handed down as plain values.
//
// # What this package must NOT do
//
//   - Render anything. Notifications go to a [notify.Sink] chosen by the caller.
//   - Fall back to a built-in storage key for a durable backend.
//   - Retry failed requests.
package courtdesk
