// Package notify carries transient user-facing notifications (the "toast" layer) from
// library components to whatever surface renders them.
//
// # Components
//
//   - [Sink] is the consumer interface (channel, writer, zap logger, no-op).
//   - [Dispatcher] is a buffered async relay with drop-if-full or block-if-full semantics.
//   - [Notification] is the record: level, message, optional code, timestamp.
//
// # Architecture boundaries
//
// This package owns buffering and delivery only. Deciding which failures deserve a
// notification belongs to the caller (the remote client error hook, the desk).
//
// # What this package must NOT do
//
//   - Import courtdesk or any component package.
//   - Perform I/O beyond what a caller-supplied Sink does.
package notify
