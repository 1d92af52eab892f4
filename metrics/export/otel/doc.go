// Package otel publishes goEnroll engine metrics through an OpenTelemetry
// meter.
//
// Each counter becomes an Int64ObservableCounter and each histogram bucket an
// Int64ObservableGauge. One callback reads [goEnroll.Engine.MetricsSnapshot]
// per collection, plus a seat query when the source is an engine. Join and
// leave outcomes, class seats and audit drops are attribute-labeled.
// Callers own the MeterProvider.
package otel
