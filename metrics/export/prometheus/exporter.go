package prometheus

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/picklecourt/courtdesk/metrics"
	"github.com/picklecourt/courtdesk/metrics/export/internaldefs"
)

// Source is satisfied by *courtdesk.Desk. Sources that also implement
// internaldefs.SessionSource get the session gauges.
type Source interface {
	MetricsSnapshot() metrics.Snapshot
	NotificationsDropped() uint64
}

// PrometheusExporter renders courtdesk metrics in Prometheus text exposition format.
type PrometheusExporter struct {
	source Source
}

func NewPrometheusExporter(source Source) *PrometheusExporter {
	return &PrometheusExporter{source: source}
}

// Handler serves Render over HTTP.
func (p *PrometheusExporter) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
		_, _ = w.Write([]byte(p.Render()))
	})
}

// Render returns the current metrics, or "" when recording is disabled and nothing
// was dropped.
func (p *PrometheusExporter) Render() string {
	if p == nil || p.source == nil {
		return ""
	}

	snapshot := p.source.MetricsSnapshot()
	dropped := p.source.NotificationsDropped()
	if len(snapshot.Counters) == 0 && len(snapshot.Histograms) == 0 && dropped == 0 {
		return ""
	}

	var w exposition
	w.b.Grow(4096)
	for _, def := range internaldefs.CounterDefs {
		w.family(def.Name, def.Help, "counter")
		w.sample(def.Name, "", snapshot.Counters[def.ID])
	}
	for _, def := range internaldefs.HistogramDefs {
		w.histogram(def.Name, def.Help, internaldefs.CumulativeBuckets(internaldefs.NormalizeBuckets(snapshot.Histograms[def.ID])))
	}
	w.family(internaldefs.NotificationsDroppedName, "Notifications dropped because the dispatcher buffer was full.", "counter")
	w.sample(internaldefs.NotificationsDroppedName, "", dropped)

	if st, ok := internaldefs.SessionOf(p.source); ok {
		var authenticated uint64
		if st.Authenticated {
			authenticated = 1
		}
		w.family(internaldefs.SessionAuthenticatedName, "1 while a session is active.", "gauge")
		w.sample(internaldefs.SessionAuthenticatedName, "", authenticated)
		w.family(internaldefs.SessionExpiresInName, "Seconds until the session token expires, 0 when unknown.", "gauge")
		w.sample(internaldefs.SessionExpiresInName, "", uint64(max(st.ExpiresIn.Seconds(), 0)))
	}
	return w.b.String()
}

type exposition struct {
	b strings.Builder
}

func (w *exposition) family(name, help, kind string) {
	w.b.WriteString("# HELP " + name + " " + escapeHelp(help) + "\n")
	w.b.WriteString("# TYPE " + name + " " + kind + "\n")
}

func (w *exposition) sample(name, labels string, value uint64) {
	w.b.WriteString(name)
	if labels != "" {
		w.b.WriteString("{" + labels + "}")
	}
	w.b.WriteByte(' ')
	w.b.WriteString(strconv.FormatUint(value, 10))
	w.b.WriteByte('\n')
}

func (w *exposition) histogram(name, help string, cumulative [8]uint64) {
	w.family(name, help, "histogram")
	for i, le := range internaldefs.HistogramBounds {
		w.sample(name+"_bucket", `le="`+le+`"`, cumulative[i])
	}
	w.sample(name+"_count", "", cumulative[len(cumulative)-1])
	// Snapshots carry no sum.
	w.sample(name+"_sum", "", 0)
}

func escapeHelp(help string) string {
	return strings.NewReplacer(`\`, `\\`, "\n", `\n`).Replace(help)
}
