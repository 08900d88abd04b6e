package otel

import (
	"context"
	"errors"
	"fmt"

	"github.com/picklecourt/courtdesk/metrics"
	"github.com/picklecourt/courtdesk/metrics/export/internaldefs"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	ErrNilMeter  = errors.New("nil meter")
	ErrNilSource = errors.New("nil metrics source")
)

// Source is satisfied by *courtdesk.Desk.
type Source interface {
	MetricsSnapshot() metrics.Snapshot
	NotificationsDropped() uint64
}

// OTelExporter mirrors the recorder into observable instruments. Histogram buckets
// are one cumulative gauge per histogram with an "le" attribute.
type OTelExporter struct {
	source       Source
	registration metric.Registration
	counters     map[metrics.ID]metric.Int64ObservableCounter
	buckets      map[metrics.ID]metric.Int64ObservableGauge
	bucketAttrs  []metric.ObserveOption
	dropped      metric.Int64ObservableCounter

	authenticated metric.Int64ObservableGauge
	expiresIn     metric.Float64ObservableGauge
}

func NewOTelExporter(meter metric.Meter, source Source) (*OTelExporter, error) {
	if meter == nil {
		return nil, ErrNilMeter
	}
	if source == nil {
		return nil, ErrNilSource
	}

	e := &OTelExporter{
		source:   source,
		counters: make(map[metrics.ID]metric.Int64ObservableCounter, len(internaldefs.CounterDefs)),
		buckets:  make(map[metrics.ID]metric.Int64ObservableGauge, len(internaldefs.HistogramDefs)),
	}
	for _, le := range internaldefs.HistogramBounds {
		e.bucketAttrs = append(e.bucketAttrs, metric.WithAttributes(attribute.String("le", le)))
	}

	var observables []metric.Observable
	for _, def := range internaldefs.CounterDefs {
		ins, err := meter.Int64ObservableCounter(def.Name, metric.WithDescription(def.Help))
		if err != nil {
			return nil, fmt.Errorf("counter %s: %w", def.Name, err)
		}
		e.counters[def.ID] = ins
		observables = append(observables, ins)
	}
	for _, def := range internaldefs.HistogramDefs {
		ins, err := meter.Int64ObservableGauge(def.Name+"_bucket",
			metric.WithDescription(def.Help+" Cumulative count per upper bound."))
		if err != nil {
			return nil, fmt.Errorf("histogram %s: %w", def.Name, err)
		}
		e.buckets[def.ID] = ins
		observables = append(observables, ins)
	}

	var err error
	if e.dropped, err = meter.Int64ObservableCounter(internaldefs.NotificationsDroppedName,
		metric.WithDescription("Notifications dropped because the dispatcher buffer was full.")); err != nil {
		return nil, fmt.Errorf("counter %s: %w", internaldefs.NotificationsDroppedName, err)
	}
	observables = append(observables, e.dropped)

	if _, ok := internaldefs.SessionOf(source); ok {
		if e.authenticated, err = meter.Int64ObservableGauge(internaldefs.SessionAuthenticatedName,
			metric.WithDescription("1 while a session is active.")); err != nil {
			return nil, fmt.Errorf("gauge %s: %w", internaldefs.SessionAuthenticatedName, err)
		}
		if e.expiresIn, err = meter.Float64ObservableGauge(internaldefs.SessionExpiresInName,
			metric.WithDescription("Seconds until the session token expires, 0 when unknown."),
			metric.WithUnit("s")); err != nil {
			return nil, fmt.Errorf("gauge %s: %w", internaldefs.SessionExpiresInName, err)
		}
		observables = append(observables, e.authenticated, e.expiresIn)
	}

	if e.registration, err = meter.RegisterCallback(e.observe, observables...); err != nil {
		return nil, fmt.Errorf("register callback: %w", err)
	}
	return e, nil
}

func (e *OTelExporter) observe(_ context.Context, o metric.Observer) error {
	snapshot := e.source.MetricsSnapshot()
	for id, ins := range e.counters {
		o.ObserveInt64(ins, int64(snapshot.Counters[id]))
	}
	for id, ins := range e.buckets {
		cumulative := internaldefs.CumulativeBuckets(internaldefs.NormalizeBuckets(snapshot.Histograms[id]))
		for i, attrs := range e.bucketAttrs {
			o.ObserveInt64(ins, int64(cumulative[i]), attrs)
		}
	}
	o.ObserveInt64(e.dropped, int64(e.source.NotificationsDropped()))

	if st, ok := internaldefs.SessionOf(e.source); ok && e.authenticated != nil {
		var v int64
		if st.Authenticated {
			v = 1
		}
		o.ObserveInt64(e.authenticated, v)
		o.ObserveFloat64(e.expiresIn, max(st.ExpiresIn.Seconds(), 0))
	}
	return nil
}

// Close unregisters the callback. The instruments stay registered with the meter.
func (e *OTelExporter) Close() error {
	if e == nil || e.registration == nil {
		return nil
	}
	return e.registration.Unregister()
}
