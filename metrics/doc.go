// Package metrics provides lock-free counters and a request latency histogram for
// courtdesk observability.
//
// # Design
//
// Counters are stored in cache-line-padded uint64 slots and incremented
// atomically via [sync/atomic.AddUint64]. The histogram uses 8 fixed buckets
// (≤50ms … +Inf). Both are allocation-free on the write path.
//
// # Architecture boundaries
//
// This package owns metric storage and snapshot creation. Export (Prometheus text,
// OTel) lives in metrics/export/ and reads Snapshot values. Every component takes a
// *Metrics and a nil value is a valid no-op recorder.
//
// # What this package must NOT do
//
//   - Perform I/O or network calls.
//   - Import courtdesk or any component package.
//   - Expose global metric registries.
package metrics
