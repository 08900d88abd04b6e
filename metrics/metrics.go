package metrics

import (
	"sync/atomic"
	"time"
)

// ID identifies one counter.
type ID uint16

const (
	// Requests counts HTTP requests issued by the remote client.
	Requests ID = iota
	// RequestFailures counts requests that ended in a RemoteError.
	RequestFailures
	// Unauthorized counts 401 responses that cleared an active session.
	Unauthorized
	// StaleResponsesDropped counts search responses discarded by sequence check.
	StaleResponsesDropped
	// SearchFetches counts fetches started by search controllers.
	SearchFetches
	// PageClamps counts pages clamped after a past-the-end response.
	PageClamps
	// SlotToggles counts effective grid toggles.
	SlotToggles
	// SlotUpdates counts live slot status updates applied to a grid.
	SlotUpdates
	// PaymentsConfirmed counts payment watches ending in confirmation.
	PaymentsConfirmed
	// PaymentsTimedOut counts payment watches ending in timeout.
	PaymentsTimedOut
	// WebsocketReconnects counts payment push channel reconnect attempts.
	WebsocketReconnects
	// StatusPolls counts payment status polls issued while disconnected.
	StatusPolls
	// SessionsRestored counts sessions rehydrated from storage.
	SessionsRestored
	// SessionsRejected counts persisted sessions discarded as corrupt or expired.
	SessionsRejected
	// RequestLatency is the histogram id for remote request latency.
	RequestLatency
	idCount
)

const (
	histBucketCount = 8
	cacheLineSize   = 64
)

type histogram struct {
	buckets [histBucketCount]uint64
}

type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Config toggles recording.
type Config struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// Metrics is a fixed-size set of counters plus the request latency histogram.
type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      [idCount]paddedCounter
	latency       histogram
}

// Snapshot is a point-in-time copy of all metrics.
type Snapshot struct {
	Counters   map[ID]uint64
	Histograms map[ID][]uint64
}

// SessionState is the point-in-time session view exported as gauges.
type SessionState struct {
	Authenticated bool
	// ExpiresIn is zero when the token carries no expiry or there is no session.
	ExpiresIn time.Duration
}

func New(cfg Config) *Metrics {
	return &Metrics{
		enabled:       cfg.Enabled,
		enableLatency: cfg.Enabled && cfg.EnableLatencyHistograms,
	}
}

func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

// Inc adds one to counter id. Nil and disabled recorders ignore the call.
func (m *Metrics) Inc(id ID) {
	if m == nil || !m.enabled || id >= idCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// ObserveRequest records one request latency.
func (m *Metrics) ObserveRequest(d time.Duration) {
	if m == nil || !m.enableLatency {
		return
	}
	atomic.AddUint64(&m.latency.buckets[bucketIndex(d)], 1)
}

func (m *Metrics) Value(id ID) uint64 {
	if m == nil || id >= idCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

// Snapshot copies current values. A disabled recorder yields empty maps.
func (m *Metrics) Snapshot() Snapshot {
	if m == nil || !m.enabled {
		return Snapshot{
			Counters:   map[ID]uint64{},
			Histograms: map[ID][]uint64{},
		}
	}

	s := Snapshot{
		Counters:   make(map[ID]uint64, int(idCount)),
		Histograms: make(map[ID][]uint64, 1),
	}
	for id := ID(0); id < RequestLatency; id++ {
		s.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}

	if m.enableLatency {
		buckets := make([]uint64, histBucketCount)
		for i := 0; i < histBucketCount; i++ {
			buckets[i] = atomic.LoadUint64(&m.latency.buckets[i])
		}
		s.Histograms[RequestLatency] = buckets
	}

	return s
}

func bucketIndex(d time.Duration) int {
	ms := d.Milliseconds()

	switch {
	case ms <= 50:
		return 0
	case ms <= 100:
		return 1
	case ms <= 250:
		return 2
	case ms <= 500:
		return 3
	case ms <= 1000:
		return 4
	case ms <= 2500:
		return 5
	case ms <= 5000:
		return 6
	default:
		return 7
	}
}
