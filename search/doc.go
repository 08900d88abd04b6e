// Package search implements the fetch-filter-paginate controller behind every list
// screen.
//
// A [Controller] owns filter values and pagination, merges them into one query per
// fetch, and normalizes the list envelope the API answers with. Filter changes always
// reset to page 1. Responses are ordered by sequence token: only the most recently
// issued request may update results, so a slow early response can never overwrite a
// newer one. A failed fetch leaves the previous results in place.
//
// # Envelopes
//
// By default the rows are taken from the first present array among "data", "orders",
// "transactions", "users" and "result", or from a bare array. With
// Config.StrictEnvelope only {"data": [...]} is accepted.
//
// # What this package must NOT do
//
//   - Render anything beyond the plain-text [Table].
//   - Retry failed fetches.
package search
