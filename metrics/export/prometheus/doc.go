// Package prometheus renders goEnroll engine metrics in Prometheus text
// exposition format.
//
// Counters are named goenroll_*_total. The join and leave transactions each
// get a latency histogram, goenroll_join_latency_seconds and
// goenroll_leave_latency_seconds. Their outcomes are also rendered as
// goenroll_join_outcomes_total and goenroll_leave_outcomes_total with an
// outcome label. When the source is an engine, every class session gets a
// goenroll_class_available_seats and goenroll_class_capacity_seats gauge
// labeled with class_id and course_id, read fresh on each scrape.
//
// Nothing is registered globally; callers mount [PrometheusExporter.Handler]
// themselves.
package prometheus
