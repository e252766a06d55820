package internaldefs

import (
	lumio "github.com/lumioedu/lumio-go"
)

// CounterDef binds one counter slot to its exported name.
type CounterDef struct {
	ID   lumio.MetricID
	Name string
	Help string
}

// HistogramDef binds one histogram slot to its exported name.
type HistogramDef struct {
	ID   lumio.MetricID
	Name string
	Help string
}

// CounterDefs lists every exported counter in a stable order.
var CounterDefs = []CounterDef{
	{ID: lumio.MetricLoginSuccess, Name: "lumio_login_success_total", Help: "Successful logins."},
	{ID: lumio.MetricLoginFailure, Name: "lumio_login_failure_total", Help: "Rejected or failed logins."},
	{ID: lumio.MetricRegisterSuccess, Name: "lumio_register_success_total", Help: "Successful registrations."},
	{ID: lumio.MetricRegisterFailure, Name: "lumio_register_failure_total", Help: "Rejected registrations."},
	{ID: lumio.MetricRefreshSuccess, Name: "lumio_refresh_success_total", Help: "Successful token refreshes."},
	{ID: lumio.MetricRefreshFailure, Name: "lumio_refresh_failure_total", Help: "Failed token refreshes."},
	{ID: lumio.MetricRefreshDeduplicated, Name: "lumio_refresh_deduplicated_total", Help: "Callers that joined an in-flight refresh."},
	{ID: lumio.MetricSessionRestored, Name: "lumio_session_restored_total", Help: "Startups that recovered a persisted session."},
	{ID: lumio.MetricRestoreUnauthenticated, Name: "lumio_restore_unauthenticated_total", Help: "Startups that ended unauthenticated."},
	{ID: lumio.MetricLogout, Name: "lumio_logout_total", Help: "Explicit logouts."},
	{ID: lumio.MetricForcedLogout, Name: "lumio_forced_logout_total", Help: "Logouts forced by refresh exhaustion."},
	{ID: lumio.MetricRetryAfterRefresh, Name: "lumio_retry_after_refresh_total", Help: "Requests replayed after a 401-triggered refresh."},
	{ID: lumio.MetricForbiddenRedirect, Name: "lumio_forbidden_redirect_total", Help: "403 responses that triggered the home redirect."},
	{ID: lumio.MetricServerError, Name: "lumio_server_error_total", Help: "5xx responses observed by the pipeline."},
	{ID: lumio.MetricQuizLoaded, Name: "lumio_quiz_loaded_total", Help: "Quiz sessions that reached the editing state."},
	{ID: lumio.MetricAttemptScored, Name: "lumio_attempt_scored_total", Help: "Attempts finished with a server score."},
	{ID: lumio.MetricAttemptFailed, Name: "lumio_attempt_failed_total", Help: "Attempt submissions that failed."},
	{ID: lumio.MetricBadgeAwarded, Name: "lumio_badge_awarded_total", Help: "Badges granted on finalization."},
}

// HistogramDefs lists every exported histogram in a stable order.
var HistogramDefs = []HistogramDef{
	{ID: lumio.MetricRequestLatency, Name: "lumio_request_latency_seconds", Help: "Pipeline round-trip latency histogram."},
}

// HistogramBounds are the upper bucket bounds in seconds, Prometheus style.
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

// HistogramBoundSuffix are the bound labels in instrument-name-safe form.
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

// NormalizeBuckets pads or truncates a raw snapshot slice to the fixed
// bucket count.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets converts per-bucket counts to Prometheus-style
// cumulative counts.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
