package internaldefs

import (
	"github.com/MrEthical07/authcore"
)

// CounterDef names one engine counter for export.
type CounterDef struct {
	ID   authcore.MetricID
	Name string
	Help string
}

// HistogramDef names one engine histogram for export.
type HistogramDef struct {
	ID   authcore.MetricID
	Name string
	Help string
}

// BackpressureDef names a counter read from the snapshot's queue fields
// rather than from the MetricID table.
type BackpressureDef struct {
	Name  string
	Help  string
	Value func(authcore.MetricsSnapshot) uint64
}

// CounterDefs lists every exported engine counter.
var CounterDefs = []CounterDef{
	{ID: authcore.MetricRegisterSuccess, Name: "authcore_register_success_total", Help: "Successful registrations."},
	{ID: authcore.MetricRegisterDuplicate, Name: "authcore_register_duplicate_total", Help: "Registrations rejected because the email is taken."},
	{ID: authcore.MetricLoginSuccess, Name: "authcore_login_success_total", Help: "Password checks that led to an OTP being sent."},
	{ID: authcore.MetricLoginFailure, Name: "authcore_login_failure_total", Help: "Failed login attempts."},
	{ID: authcore.MetricLoginUnverified, Name: "authcore_login_unverified_total", Help: "Logins rejected because the email is not verified."},
	{ID: authcore.MetricRateLimitHit, Name: "authcore_rate_limit_hit_total", Help: "Requests denied by a rate limit."},
	{ID: authcore.MetricOTPIssued, Name: "authcore_otp_issued_total", Help: "Issued one-time codes."},
	{ID: authcore.MetricOTPSuccess, Name: "authcore_otp_success_total", Help: "Accepted one-time codes."},
	{ID: authcore.MetricOTPFailure, Name: "authcore_otp_failure_total", Help: "Rejected one-time codes."},
	{ID: authcore.MetricSessionCreated, Name: "authcore_session_created_total", Help: "Created sessions."},
	{ID: authcore.MetricRefreshSuccess, Name: "authcore_refresh_success_total", Help: "Successful refresh rotations."},
	{ID: authcore.MetricRefreshFailure, Name: "authcore_refresh_failure_total", Help: "Failed refresh rotations."},
	{ID: authcore.MetricRefreshReuseDetected, Name: "authcore_refresh_reuse_detected_total", Help: "Detected refresh token reuses."},
	{ID: authcore.MetricLogout, Name: "authcore_logout_total", Help: "Single-session logouts."},
	{ID: authcore.MetricEmailVerificationRequest, Name: "authcore_email_verification_request_total", Help: "Issued email verification tokens."},
	{ID: authcore.MetricEmailVerificationSuccess, Name: "authcore_email_verification_success_total", Help: "Confirmed email addresses."},
	{ID: authcore.MetricEmailVerificationFailure, Name: "authcore_email_verification_failure_total", Help: "Rejected email verification tokens."},
	{ID: authcore.MetricPasswordChangeSuccess, Name: "authcore_password_change_success_total", Help: "Successful password changes."},
	{ID: authcore.MetricPasswordChangeInvalidOld, Name: "authcore_password_change_invalid_old_total", Help: "Password changes rejected for a wrong current password."},
	{ID: authcore.MetricEmailChanged, Name: "authcore_email_changed_total", Help: "Email address changes."},
	{ID: authcore.MetricAccountDeleted, Name: "authcore_account_deleted_total", Help: "Deleted accounts."},
	{ID: authcore.MetricMailQueueFull, Name: "authcore_mail_queue_full_total", Help: "Operations that failed because the mail queue was full."},
}

// HistogramDefs lists every exported engine histogram.
var HistogramDefs = []HistogramDef{
	{ID: authcore.MetricValidateLatency, Name: "authcore_validate_latency_seconds", Help: "Access token validation latency."},
}

// BackpressureDefs lists the mail queue, background runner and audit counters.
var BackpressureDefs = []BackpressureDef{
	{
		Name:  "authcore_mail_dropped_total",
		Help:  "Mail messages rejected because the queue was full.",
		Value: func(s authcore.MetricsSnapshot) uint64 { return s.MailDropped },
	},
	{
		Name:  "authcore_mail_failed_total",
		Help:  "Mail messages the transport failed to deliver.",
		Value: func(s authcore.MetricsSnapshot) uint64 { return s.MailFailed },
	},
	{
		Name:  "authcore_tasks_dropped_total",
		Help:  "Background tasks the runner could not accept.",
		Value: func(s authcore.MetricsSnapshot) uint64 { return s.TasksDropped },
	},
	{
		Name:  "authcore_tasks_failed_total",
		Help:  "Background tasks that returned an error or panicked.",
		Value: func(s authcore.MetricsSnapshot) uint64 { return s.TasksFailed },
	},
	{
		Name:  "authcore_audit_dropped_total",
		Help:  "Audit events dropped because the dispatcher buffer was full.",
		Value: func(s authcore.MetricsSnapshot) uint64 { return s.AuditDropped },
	},
}

// HistogramBounds are the upper bounds, in seconds, of the latency buckets.
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

// HistogramBoundSuffix is HistogramBounds made safe for instrument names.
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

// NormalizeBuckets copies raw into a fixed array, zero-filling missing buckets.
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
