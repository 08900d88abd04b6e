// Package otel provides OpenTelemetry metric exporter bindings for courtdesk counters
// and the request latency histogram.
//
// [NewOTelExporter] registers Int64ObservableCounter instruments for each counter and
// Int64ObservableGauge per histogram bucket. A single callback reads
// [courtdesk.Desk.MetricsSnapshot] on each collection cycle.
//
// # What this package must NOT do
//
//   - Own the OTel MeterProvider. Callers supply the Meter.
//   - Mutate desk state.
package otel
