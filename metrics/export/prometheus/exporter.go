package prometheus

import (
	"context"
	"log"
	"net/http"
	"sort"
	"strconv"
	"strings"

	goEnroll "github.com/MrEthical07/goEnroll"
	"github.com/MrEthical07/goEnroll/metrics/export/internaldefs"
)

type metricsSource interface {
	MetricsSnapshot() goEnroll.MetricsSnapshot
	AuditDroppedByType() map[string]uint64
}

// seatSource is implemented by sources that can report live class seats.
// [goEnroll.Engine] is one.
type seatSource interface {
	ClassSeats(ctx context.Context) ([]goEnroll.ClassSeats, error)
}

// PrometheusExporter renders enrollment metrics in Prometheus text exposition
// format: the engine counters, join and leave outcomes as one labeled family
// each, per-class seat gauges, and audit drops by event type.
type PrometheusExporter struct {
	source metricsSource
}

// NewPrometheusExporter creates a Prometheus exporter that reads from the given [goEnroll.Engine].
func NewPrometheusExporter(engine *goEnroll.Engine) *PrometheusExporter {
	return &PrometheusExporter{source: engine}
}

// NewPrometheusExporterFromSource creates an exporter over any snapshot source.
// Seat gauges are rendered only when source also has a ClassSeats method.
func NewPrometheusExporterFromSource(source metricsSource) *PrometheusExporter {
	return &PrometheusExporter{source: source}
}

// Handler returns an http.Handler that serves Prometheus metrics.
func (p *PrometheusExporter) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
		_, _ = w.Write([]byte(p.RenderContext(r.Context())))
	})
}

// Render is RenderContext with a background context.
func (p *PrometheusExporter) Render() string {
	return p.RenderContext(context.Background())
}

// RenderContext writes the current metrics. It returns an empty string while
// the engine records nothing; ctx bounds the seat query.
func (p *PrometheusExporter) RenderContext(ctx context.Context) string {
	if p == nil || p.source == nil {
		return ""
	}

	snapshot := p.source.MetricsSnapshot()
	dropped := p.source.AuditDroppedByType()
	if len(snapshot.Counters) == 0 && len(snapshot.Histograms) == 0 && len(dropped) == 0 {
		return ""
	}

	var b strings.Builder
	b.Grow(8192)

	for _, def := range internaldefs.CounterDefs {
		writeCounter(&b, def.Name, def.Help, snapshot.Counters[def.ID])
	}

	for _, fam := range internaldefs.OutcomeFamilies {
		writeHeader(&b, fam.Name, fam.Help, "counter")
		for _, o := range fam.Outcomes {
			writeSample(&b, fam.Name, `outcome="`+o.Label+`"`, snapshot.Counters[o.ID])
		}
	}

	for _, def := range internaldefs.HistogramDefs {
		nonCumulative := internaldefs.NormalizeBuckets(snapshot.Histograms[def.ID])
		cumulative := internaldefs.CumulativeBuckets(nonCumulative)
		writeHistogram(&b, def.Name, def.Help, cumulative)
	}

	writeAuditDrops(&b, dropped)

	if seats, ok := p.source.(seatSource); ok {
		rows, err := seats.ClassSeats(ctx)
		if err != nil {
			log.Printf("goEnroll/metrics: class seats: %v", err)
		} else {
			writeSeats(&b, rows)
		}
	}

	return b.String()
}

func writeAuditDrops(b *strings.Builder, dropped map[string]uint64) {
	const name = "goenroll_audit_dropped_total"
	writeHeader(b, name, "Audit events that never reached the sink, by event type.", "counter")
	if len(dropped) == 0 {
		writeSample(b, name, "", 0)
		return
	}
	types := make([]string, 0, len(dropped))
	for t := range dropped {
		types = append(types, t)
	}
	sort.Strings(types)
	for _, t := range types {
		writeSample(b, name, `event="`+escapeLabel(t)+`"`, dropped[t])
	}
}

func writeSeats(b *strings.Builder, rows []goEnroll.ClassSeats) {
	if len(rows) == 0 {
		return
	}
	const (
		available = "goenroll_class_available_seats"
		capacity  = "goenroll_class_capacity_seats"
	)
	writeHeader(b, available, "Open seats per class session.", "gauge")
	for _, r := range rows {
		writeSample(b, available, seatLabels(r), uint64(max(r.AvailableSpots, 0)))
	}
	writeHeader(b, capacity, "Seat capacity per class session.", "gauge")
	for _, r := range rows {
		writeSample(b, capacity, seatLabels(r), uint64(max(r.TotalMaxSpots, 0)))
	}
}

func seatLabels(r goEnroll.ClassSeats) string {
	return `class_id="` + strconv.FormatUint(uint64(r.ClassID), 10) +
		`",course_id="` + strconv.FormatUint(uint64(r.CourseID), 10) + `"`
}

func writeCounter(b *strings.Builder, name, help string, value uint64) {
	writeHeader(b, name, help, "counter")
	writeSample(b, name, "", value)
}

func writeHeader(b *strings.Builder, name, help, kind string) {
	b.WriteString("# HELP ")
	b.WriteString(name)
	b.WriteByte(' ')
	b.WriteString(escapeHelp(help))
	b.WriteByte('\n')
	b.WriteString("# TYPE ")
	b.WriteString(name)
	b.WriteByte(' ')
	b.WriteString(kind)
	b.WriteByte('\n')
}

func writeSample(b *strings.Builder, name, labels string, value uint64) {
	b.WriteString(name)
	if labels != "" {
		b.WriteByte('{')
		b.WriteString(labels)
		b.WriteByte('}')
	}
	b.WriteByte(' ')
	b.WriteString(strconv.FormatUint(value, 10))
	b.WriteByte('\n')
}

func writeHistogram(b *strings.Builder, name, help string, cumulative [8]uint64) {
	writeHeader(b, name, help, "histogram")
	for i, le := range internaldefs.HistogramBounds {
		writeSample(b, name+"_bucket", `le="`+le+`"`, cumulative[i])
	}
	writeSample(b, name+"_count", "", cumulative[len(cumulative)-1])
	// Snapshots carry bucket counts only.
	b.WriteString(name)
	b.WriteString("_sum 0\n")
}

func escapeHelp(help string) string {
	help = strings.ReplaceAll(help, "\\", "\\\\")
	help = strings.ReplaceAll(help, "\n", "\\n")
	return help
}

func escapeLabel(v string) string {
	v = escapeHelp(v)
	return strings.ReplaceAll(v, `"`, `\"`)
}
