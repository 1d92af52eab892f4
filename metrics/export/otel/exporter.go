package otel

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"

	goEnroll "github.com/MrEthical07/goEnroll"
	"github.com/MrEthical07/goEnroll/metrics/export/internaldefs"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	ErrNilMeter  = errors.New("nil meter")
	ErrNilSource = errors.New("nil metrics source")
)

type metricsSource interface {
	MetricsSnapshot() goEnroll.MetricsSnapshot
	AuditDroppedByType() map[string]uint64
}

// seatSource is implemented by sources that can report live class seats.
type seatSource interface {
	ClassSeats(ctx context.Context) ([]goEnroll.ClassSeats, error)
}

type observedCounter struct {
	id         goEnroll.MetricID
	instrument metric.Int64ObservableCounter
}

type observedOutcomes struct {
	family     internaldefs.OutcomeFamily
	instrument metric.Int64ObservableCounter
	attrs      []metric.ObserveOption
}

type observedHistogram struct {
	id      goEnroll.MetricID
	buckets [8]metric.Int64ObservableGauge
	count   metric.Int64ObservableGauge
}

// OTelExporter publishes enrollment metrics as OTel observable instruments.
// Join and leave outcomes carry an "outcome" attribute, seat gauges carry
// "class_id" and "course_id", and audit drops carry "event".
type OTelExporter struct {
	source       metricsSource
	seats        seatSource
	registration metric.Registration
	counters     []observedCounter
	outcomes     []observedOutcomes
	histograms   []observedHistogram
	auditDropped metric.Int64ObservableCounter
	available    metric.Int64ObservableGauge
	capacity     metric.Int64ObservableGauge
}

func NewOTelExporter(meter metric.Meter, engine *goEnroll.Engine) (*OTelExporter, error) {
	return NewOTelExporterFromSource(meter, engine)
}

// NewOTelExporterFromSource registers instruments over any snapshot source.
// Seat gauges are observed only when source also has a ClassSeats method.
func NewOTelExporterFromSource(meter metric.Meter, source metricsSource) (*OTelExporter, error) {
	if meter == nil {
		return nil, ErrNilMeter
	}
	if source == nil {
		return nil, ErrNilSource
	}

	exporter := &OTelExporter{
		source:     source,
		counters:   make([]observedCounter, 0, len(internaldefs.CounterDefs)),
		outcomes:   make([]observedOutcomes, 0, len(internaldefs.OutcomeFamilies)),
		histograms: make([]observedHistogram, 0, len(internaldefs.HistogramDefs)),
	}
	exporter.seats, _ = source.(seatSource)

	observables := make([]metric.Observable, 0,
		len(internaldefs.CounterDefs)+len(internaldefs.OutcomeFamilies)+len(internaldefs.HistogramDefs)*9+3)

	for _, def := range internaldefs.CounterDefs {
		ins, err := meter.Int64ObservableCounter(def.Name, metric.WithDescription(def.Help))
		if err != nil {
			return nil, fmt.Errorf("create observable counter %s: %w", def.Name, err)
		}
		exporter.counters = append(exporter.counters, observedCounter{id: def.ID, instrument: ins})
		observables = append(observables, ins)
	}

	for _, fam := range internaldefs.OutcomeFamilies {
		ins, err := meter.Int64ObservableCounter(fam.Name, metric.WithDescription(fam.Help))
		if err != nil {
			return nil, fmt.Errorf("create outcome counter %s: %w", fam.Name, err)
		}
		o := observedOutcomes{family: fam, instrument: ins, attrs: make([]metric.ObserveOption, len(fam.Outcomes))}
		for i, outcome := range fam.Outcomes {
			o.attrs[i] = metric.WithAttributes(attribute.String("outcome", outcome.Label))
		}
		exporter.outcomes = append(exporter.outcomes, o)
		observables = append(observables, ins)
	}

	for _, def := range internaldefs.HistogramDefs {
		h := observedHistogram{id: def.ID}
		for i := 0; i < len(internaldefs.HistogramBoundSuffix); i++ {
			name := def.Name + "_bucket_le_" + internaldefs.HistogramBoundSuffix[i]
			ins, err := meter.Int64ObservableGauge(name, metric.WithDescription("Cumulative histogram bucket count."))
			if err != nil {
				return nil, fmt.Errorf("create histogram bucket gauge %s: %w", name, err)
			}
			h.buckets[i] = ins
			observables = append(observables, ins)
		}
		countName := def.Name + "_count"
		countIns, err := meter.Int64ObservableGauge(countName, metric.WithDescription("Histogram total sample count."))
		if err != nil {
			return nil, fmt.Errorf("create histogram count gauge %s: %w", countName, err)
		}
		h.count = countIns
		observables = append(observables, countIns)
		exporter.histograms = append(exporter.histograms, h)
	}

	auditDropped, err := meter.Int64ObservableCounter(
		"goenroll_audit_dropped_total",
		metric.WithDescription("Audit events that never reached the sink, by event type."),
	)
	if err != nil {
		return nil, fmt.Errorf("create audit dropped counter: %w", err)
	}
	exporter.auditDropped = auditDropped
	observables = append(observables, auditDropped)

	if exporter.seats != nil {
		available, err := meter.Int64ObservableGauge(
			"goenroll_class_available_seats",
			metric.WithDescription("Open seats per class session."),
		)
		if err != nil {
			return nil, fmt.Errorf("create available seats gauge: %w", err)
		}
		capacity, err := meter.Int64ObservableGauge(
			"goenroll_class_capacity_seats",
			metric.WithDescription("Seat capacity per class session."),
		)
		if err != nil {
			return nil, fmt.Errorf("create capacity seats gauge: %w", err)
		}
		exporter.available, exporter.capacity = available, capacity
		observables = append(observables, available, capacity)
	}

	registration, err := meter.RegisterCallback(exporter.observe, observables...)
	if err != nil {
		return nil, fmt.Errorf("register callback: %w", err)
	}

	exporter.registration = registration
	return exporter, nil
}

func (e *OTelExporter) observe(ctx context.Context, observer metric.Observer) error {
	snapshot := e.source.MetricsSnapshot()
	for _, c := range e.counters {
		observer.ObserveInt64(c.instrument, int64(snapshot.Counters[c.id]))
	}
	for _, o := range e.outcomes {
		for i, outcome := range o.family.Outcomes {
			observer.ObserveInt64(o.instrument, int64(snapshot.Counters[outcome.ID]), o.attrs[i])
		}
	}
	for _, h := range e.histograms {
		nonCumulative := internaldefs.NormalizeBuckets(snapshot.Histograms[h.id])
		cumulative := internaldefs.CumulativeBuckets(nonCumulative)
		for i := 0; i < len(cumulative); i++ {
			observer.ObserveInt64(h.buckets[i], int64(cumulative[i]))
		}
		observer.ObserveInt64(h.count, int64(cumulative[len(cumulative)-1]))
	}
	for eventType, n := range e.source.AuditDroppedByType() {
		observer.ObserveInt64(e.auditDropped, int64(n), metric.WithAttributes(attribute.String("event", eventType)))
	}

	if e.seats == nil {
		return nil
	}
	rows, err := e.seats.ClassSeats(ctx)
	if err != nil {
		// The other instruments are already observed for this cycle.
		log.Printf("goEnroll/metrics: class seats: %v", err)
		return nil
	}
	for _, r := range rows {
		attrs := metric.WithAttributes(
			attribute.String("class_id", strconv.FormatUint(uint64(r.ClassID), 10)),
			attribute.String("course_id", strconv.FormatUint(uint64(r.CourseID), 10)),
		)
		observer.ObserveInt64(e.available, r.AvailableSpots, attrs)
		observer.ObserveInt64(e.capacity, r.TotalMaxSpots, attrs)
	}
	return nil
}

// Close unregisters the collection callback.
func (e *OTelExporter) Close() error {
	if e == nil || e.registration == nil {
		return nil
	}
	return e.registration.Unregister()
}
