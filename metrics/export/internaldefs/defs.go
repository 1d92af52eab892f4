package internaldefs

import (
	goEnroll "github.com/MrEthical07/goEnroll"
)

// CounterDef maps an engine counter to its exported name.
type CounterDef struct {
	ID   goEnroll.MetricID
	Name string
	Help string
}

// HistogramDef maps an engine latency histogram to its exported name.
type HistogramDef struct {
	ID   goEnroll.MetricID
	Name string
	Help string
}

// CounterDefs lists every exported counter in render order.
var CounterDefs = []CounterDef{
	{ID: goEnroll.MetricRegisterSuccess, Name: "goenroll_register_success_total", Help: "Successful registrations."},
	{ID: goEnroll.MetricRegisterDuplicate, Name: "goenroll_register_duplicate_total", Help: "Registrations rejected for an already registered email."},
	{ID: goEnroll.MetricRegisterRateLimited, Name: "goenroll_register_rate_limited_total", Help: "Rate-limited registrations."},
	{ID: goEnroll.MetricLoginSuccess, Name: "goenroll_login_success_total", Help: "Successful logins."},
	{ID: goEnroll.MetricLoginFailure, Name: "goenroll_login_failure_total", Help: "Failed logins."},
	{ID: goEnroll.MetricLoginRateLimited, Name: "goenroll_login_rate_limited_total", Help: "Rate-limited logins."},
	{ID: goEnroll.MetricRefreshSuccess, Name: "goenroll_refresh_success_total", Help: "Successful token refreshes."},
	{ID: goEnroll.MetricRefreshFailure, Name: "goenroll_refresh_failure_total", Help: "Failed token refreshes."},
	{ID: goEnroll.MetricRefreshReuseDetected, Name: "goenroll_refresh_reuse_detected_total", Help: "Refresh tokens presented after rotation."},
	{ID: goEnroll.MetricRefreshRateLimited, Name: "goenroll_refresh_rate_limited_total", Help: "Rate-limited token refreshes."},
	{ID: goEnroll.MetricLogout, Name: "goenroll_logout_total", Help: "Logouts."},
	{ID: goEnroll.MetricAccountDeleted, Name: "goenroll_account_deleted_total", Help: "Deleted accounts."},
	{ID: goEnroll.MetricAuthFailure, Name: "goenroll_auth_failure_total", Help: "Rejected access tokens."},
	{ID: goEnroll.MetricForbidden, Name: "goenroll_forbidden_total", Help: "Requests denied for missing admin role."},
	{ID: goEnroll.MetricCourseCreated, Name: "goenroll_course_created_total", Help: "Created courses."},
	{ID: goEnroll.MetricCourseUpdated, Name: "goenroll_course_updated_total", Help: "Updated courses."},
	{ID: goEnroll.MetricCourseDeleted, Name: "goenroll_course_deleted_total", Help: "Deleted courses."},
	{ID: goEnroll.MetricClassCreated, Name: "goenroll_class_created_total", Help: "Created class sessions."},
	{ID: goEnroll.MetricClassUpdated, Name: "goenroll_class_updated_total", Help: "Updated class sessions."},
	{ID: goEnroll.MetricClassDeleted, Name: "goenroll_class_deleted_total", Help: "Deleted class sessions."},
	{ID: goEnroll.MetricJoinSuccess, Name: "goenroll_join_success_total", Help: "Seats taken."},
	{ID: goEnroll.MetricJoinNoCapacity, Name: "goenroll_join_no_capacity_total", Help: "Joins rejected because the class was full."},
	{ID: goEnroll.MetricJoinAlreadyEnrolled, Name: "goenroll_join_already_enrolled_total", Help: "Joins rejected because the caller already held a seat."},
	{ID: goEnroll.MetricLeaveSuccess, Name: "goenroll_leave_success_total", Help: "Seats given back."},
	{ID: goEnroll.MetricLeaveNotEnrolled, Name: "goenroll_leave_not_enrolled_total", Help: "Leaves rejected because the caller held no seat."},
	{ID: goEnroll.MetricSeatsReleased, Name: "goenroll_seats_released_total", Help: "Seats released by account deletion."},
}

// Outcome is one label value of an outcome family.
type Outcome struct {
	Label string
	ID    goEnroll.MetricID
}

// OutcomeFamily groups the counters that end one enrollment operation under a
// single metric with an outcome label.
type OutcomeFamily struct {
	Name     string
	Help     string
	Outcomes []Outcome
}

// OutcomeFamilies lists the labeled join and leave counters.
var OutcomeFamilies = []OutcomeFamily{
	{
		Name: "goenroll_join_outcomes_total",
		Help: "Join attempts by outcome.",
		Outcomes: []Outcome{
			{Label: "success", ID: goEnroll.MetricJoinSuccess},
			{Label: "no_capacity", ID: goEnroll.MetricJoinNoCapacity},
			{Label: "already_enrolled", ID: goEnroll.MetricJoinAlreadyEnrolled},
		},
	},
	{
		Name: "goenroll_leave_outcomes_total",
		Help: "Leave attempts by outcome.",
		Outcomes: []Outcome{
			{Label: "success", ID: goEnroll.MetricLeaveSuccess},
			{Label: "not_enrolled", ID: goEnroll.MetricLeaveNotEnrolled},
		},
	},
}

// HistogramDefs lists every exported latency histogram.
var HistogramDefs = []HistogramDef{
	{ID: goEnroll.MetricJoinLatency, Name: "goenroll_join_latency_seconds", Help: "Join transaction latency."},
	{ID: goEnroll.MetricLeaveLatency, Name: "goenroll_leave_latency_seconds", Help: "Leave transaction latency."},
}

// HistogramBounds are the upper bounds, in seconds, of the engine's eight
// latency buckets.
var HistogramBounds = []string{
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"+Inf",
}

// HistogramBoundSuffix is HistogramBounds in a form usable inside a metric name.
var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets copies raw into a fixed eight-bucket array, zero-filling
// or truncating as needed.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets turns per-bucket counts into running totals.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
