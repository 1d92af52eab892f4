package prometheus

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	goEnroll "github.com/MrEthical07/goEnroll"
)

type fakeSource struct {
	snapshot goEnroll.MetricsSnapshot
	dropped  map[string]uint64
}

func (f fakeSource) MetricsSnapshot() goEnroll.MetricsSnapshot { return f.snapshot }
func (f fakeSource) AuditDroppedByType() map[string]uint64     { return f.dropped }

type seatedSource struct {
	fakeSource
	seats []goEnroll.ClassSeats
	err   error
}

func (s seatedSource) ClassSeats(context.Context) ([]goEnroll.ClassSeats, error) {
	return s.seats, s.err
}

func TestRenderEmptyWhenMetricsDisabled(t *testing.T) {
	exp := NewPrometheusExporterFromSource(fakeSource{
		snapshot: goEnroll.MetricsSnapshot{
			Counters:   map[goEnroll.MetricID]uint64{},
			Histograms: map[goEnroll.MetricID][]uint64{},
		},
	})

	if got := exp.Render(); got != "" {
		t.Fatalf("expected empty output for disabled metrics, got:\n%s", got)
	}
}

func TestRenderIncludesCountersAndHistograms(t *testing.T) {
	exp := NewPrometheusExporterFromSource(fakeSource{
		snapshot: goEnroll.MetricsSnapshot{
			Counters: map[goEnroll.MetricID]uint64{
				goEnroll.MetricJoinSuccess:    7,
				goEnroll.MetricJoinNoCapacity: 3,
			},
			Histograms: map[goEnroll.MetricID][]uint64{
				goEnroll.MetricJoinLatency: {1, 2, 3, 4, 5, 6, 7, 8},
			},
		},
		dropped: map[string]uint64{"login": 2, "course_update": 1},
	})

	out := exp.Render()
	for _, want := range []string{
		"goenroll_join_success_total 7",
		"goenroll_join_no_capacity_total 3",
		"goenroll_leave_success_total 0",
		"# TYPE goenroll_join_latency_seconds histogram",
		"goenroll_join_latency_seconds_bucket{le=\"0.005\"} 1",
		"goenroll_join_latency_seconds_bucket{le=\"+Inf\"} 36",
		"goenroll_join_latency_seconds_count 36",
		"goenroll_leave_latency_seconds_bucket{le=\"+Inf\"} 0",
		`goenroll_join_outcomes_total{outcome="success"} 7`,
		`goenroll_join_outcomes_total{outcome="no_capacity"} 3`,
		`goenroll_join_outcomes_total{outcome="already_enrolled"} 0`,
		`goenroll_leave_outcomes_total{outcome="not_enrolled"} 0`,
		`goenroll_audit_dropped_total{event="course_update"} 1`,
		`goenroll_audit_dropped_total{event="login"} 2`,
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output, got:\n%s", want, out)
		}
	}
}

func TestRenderWritesSeatGauges(t *testing.T) {
	exp := NewPrometheusExporterFromSource(seatedSource{
		fakeSource: fakeSource{
			snapshot: goEnroll.MetricsSnapshot{
				Counters: map[goEnroll.MetricID]uint64{goEnroll.MetricJoinSuccess: 1},
			},
		},
		seats: []goEnroll.ClassSeats{
			{ClassID: 4, CourseID: 1, AvailableSpots: 0, TotalMaxSpots: 10},
			{ClassID: 9, CourseID: 2, AvailableSpots: 3, TotalMaxSpots: 5},
		},
	})

	out := exp.Render()
	for _, want := range []string{
		"# TYPE goenroll_class_available_seats gauge",
		`goenroll_class_available_seats{class_id="4",course_id="1"} 0`,
		`goenroll_class_available_seats{class_id="9",course_id="2"} 3`,
		`goenroll_class_capacity_seats{class_id="4",course_id="1"} 10`,
		"goenroll_audit_dropped_total 0",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output, got:\n%s", want, out)
		}
	}
}

func TestRenderSkipsSeatsOnQueryError(t *testing.T) {
	exp := NewPrometheusExporterFromSource(seatedSource{
		fakeSource: fakeSource{
			snapshot: goEnroll.MetricsSnapshot{
				Counters: map[goEnroll.MetricID]uint64{goEnroll.MetricJoinSuccess: 1},
			},
		},
		err: errors.New("database is locked"),
	})

	out := exp.Render()
	if strings.Contains(out, "goenroll_class_available_seats") {
		t.Fatalf("expected no seat gauges, got:\n%s", out)
	}
	if !strings.Contains(out, "goenroll_join_success_total 1") {
		t.Fatalf("expected counters despite the seat error, got:\n%s", out)
	}
}

func TestRenderIsDeterministic(t *testing.T) {
	exp := NewPrometheusExporterFromSource(fakeSource{
		snapshot: goEnroll.MetricsSnapshot{
			Counters: map[goEnroll.MetricID]uint64{goEnroll.MetricLoginSuccess: 1, goEnroll.MetricLogout: 4},
		},
		dropped: map[string]uint64{"login": 1, "logout": 2, "register": 3},
	})
	if a, b := exp.Render(), exp.Render(); a != b {
		t.Fatal("expected identical output for identical snapshots")
	}
}

func TestHandlerWritesPrometheusContentType(t *testing.T) {
	exp := NewPrometheusExporterFromSource(fakeSource{
		snapshot: goEnroll.MetricsSnapshot{
			Counters:   map[goEnroll.MetricID]uint64{goEnroll.MetricLoginSuccess: 1},
			Histograms: map[goEnroll.MetricID][]uint64{},
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	exp.Handler().ServeHTTP(rec, req)

	if got := rec.Header().Get("Content-Type"); !strings.Contains(got, "text/plain") {
		t.Fatalf("expected prometheus content type, got %q", got)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestNilExporterRendersNothing(t *testing.T) {
	var exp *PrometheusExporter
	if exp.Render() != "" {
		t.Fatal("expected empty output")
	}
}

func BenchmarkRender(b *testing.B) {
	exp := NewPrometheusExporterFromSource(fakeSource{
		snapshot: goEnroll.MetricsSnapshot{
			Counters: map[goEnroll.MetricID]uint64{
				goEnroll.MetricLoginSuccess:   1000,
				goEnroll.MetricLoginFailure:   40,
				goEnroll.MetricRefreshSuccess: 800,
				goEnroll.MetricJoinSuccess:    900,
				goEnroll.MetricJoinNoCapacity: 120,
				goEnroll.MetricLeaveSuccess:   300,
			},
			Histograms: map[goEnroll.MetricID][]uint64{
				goEnroll.MetricJoinLatency:  {10, 20, 30, 40, 50, 60, 70, 80},
				goEnroll.MetricLeaveLatency: {5, 5, 5, 5, 5, 5, 5, 5},
			},
		},
	})

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = exp.Render()
	}
}
