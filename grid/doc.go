// Package grid holds the selection state of the weekly court-booking grid.
//
// A [Grid] is one date's courts and their time slots. Only AVAILABLE and SELECTED are
// locally mutable: [Grid.Toggle] flips between them and ignores BOOKED and LOCKED
// slots, which belong to the server. Live updates from the booking service arrive
// through [Grid.ApplyUpdate]; a slot that becomes LOCKED or BOOKED loses any local
// selection.
//
// A [Planner] groups grids for the several dates a customer books in one checkout, and
// a [Stager] writes the committed selections to durable storage so a multi-step
// checkout survives a restart. [Quote] reproduces the deposit rules shown to the
// customer; the server remains the pricing authority.
//
// # What this package must NOT do
//
//   - Decide availability. Status comes from [FetchSlots] and [Grid.ApplyUpdate].
//   - Talk to the payment channel.
package grid
