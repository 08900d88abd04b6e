package internaldefs

import "github.com/picklecourt/courtdesk/metrics"

// CounterDef names one exported counter.
type CounterDef struct {
	ID   metrics.ID
	Name string
	Help string
}

// HistogramDef names one exported histogram.
type HistogramDef struct {
	ID   metrics.ID
	Name string
	Help string
}

// NotificationsDroppedName is exported from the dispatcher rather than the counter set.
const NotificationsDroppedName = "courtdesk_notifications_dropped_total"

var CounterDefs = []CounterDef{
	{ID: metrics.Requests, Name: "courtdesk_requests_total", Help: "HTTP requests issued to the API."},
	{ID: metrics.RequestFailures, Name: "courtdesk_request_failures_total", Help: "Requests that failed with a remote error."},
	{ID: metrics.Unauthorized, Name: "courtdesk_unauthorized_total", Help: "401 responses that cleared the active session."},
	{ID: metrics.StaleResponsesDropped, Name: "courtdesk_stale_responses_dropped_total", Help: "Search responses discarded because a newer request was issued."},
	{ID: metrics.SearchFetches, Name: "courtdesk_search_fetches_total", Help: "Fetches started by search controllers."},
	{ID: metrics.PageClamps, Name: "courtdesk_page_clamps_total", Help: "Pages clamped after a past-the-end response."},
	{ID: metrics.SlotToggles, Name: "courtdesk_slot_toggles_total", Help: "Effective booking slot toggles."},
	{ID: metrics.SlotUpdates, Name: "courtdesk_slot_updates_total", Help: "Live slot status updates applied."},
	{ID: metrics.PaymentsConfirmed, Name: "courtdesk_payments_confirmed_total", Help: "Payment watches that ended confirmed."},
	{ID: metrics.PaymentsTimedOut, Name: "courtdesk_payments_timed_out_total", Help: "Payment watches that timed out."},
	{ID: metrics.WebsocketReconnects, Name: "courtdesk_websocket_reconnects_total", Help: "Payment push channel reconnect attempts."},
	{ID: metrics.StatusPolls, Name: "courtdesk_status_polls_total", Help: "Payment status polls issued while disconnected."},
	{ID: metrics.SessionsRestored, Name: "courtdesk_sessions_restored_total", Help: "Sessions rehydrated from storage."},
	{ID: metrics.SessionsRejected, Name: "courtdesk_sessions_rejected_total", Help: "Persisted sessions discarded as corrupt or expired."},
}

var HistogramDefs = []HistogramDef{
	{ID: metrics.RequestLatency, Name: "courtdesk_request_latency_seconds", Help: "Remote request latency histogram."},
}

// HistogramBounds are the upper bounds of the latency buckets, in seconds.
var HistogramBounds = []string{"0.05", "0.1", "0.25", "0.5", "1", "2.5", "5", "+Inf"}

// Session gauges, exported when the source implements SessionSource.
const (
	SessionAuthenticatedName = "courtdesk_session_authenticated"
	SessionExpiresInName     = "courtdesk_session_expires_in_seconds"
)

// SessionSource is the optional session side of an exporter source.
type SessionSource interface {
	SessionState() metrics.SessionState
}

// SessionOf returns the session state of source when it exposes one.
func SessionOf(source any) (metrics.SessionState, bool) {
	ss, ok := source.(SessionSource)
	if !ok {
		return metrics.SessionState{}, false
	}
	return ss.SessionState(), true
}

// NormalizeBuckets pads or truncates raw to the fixed bucket count.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets converts per-bucket counts into running totals.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
