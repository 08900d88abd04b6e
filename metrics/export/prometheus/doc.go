// Package prometheus renders courtdesk metrics in Prometheus text exposition format.
//
// [NewPrometheusExporter] accepts any [Source] (a *courtdesk.Desk in practice) and
// exposes both a string [PrometheusExporter.Render] for CLI dumps and an [http.Handler]
// for BFF deployments. Counter names are prefixed courtdesk_*_total; the single
// histogram is courtdesk_request_latency_seconds.
//
// # What this package must NOT do
//
//   - Register metrics in a global Prometheus registry. Callers mount the Handler.
//   - Mutate desk state.
package prometheus
