// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-passkey.
//
// go-passkey is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

// Package metrics provides Prometheus instrumentation for go-passkey
// operations. It exposes authentication counters, challenge lifecycle
// metrics, HTTP histograms, and resource gauges for monitoring the login
// service.
package metrics

import (
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	// Namespace is the Prometheus namespace for all passkey metrics
	Namespace = "passkey"

	// Label names
	LabelResult     = "result"
	LabelFlow       = "flow"
	LabelStatus     = "status"
	LabelMethod     = "method"
	LabelStatusCode = "status_code"

	// Result values for authentications. "verified" is the success case;
	// failures carry the normalized reason string.
	ResultVerified = "verified"

	// Flow values for challenge issuance
	FlowDiscoverable = "discoverable"
	FlowTargeted     = "targeted"

	// Status values for challenge consumption
	StatusConsumed = "consumed"
	StatusNotFound = "not_found"
)

var (
	// ChallengesIssuedTotal tracks issued challenges by flow.
	ChallengesIssuedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "challenges_issued_total",
			Help:      "Total number of login challenges issued by flow",
		},
		[]string{LabelFlow},
	)

	// ChallengesConsumedTotal tracks challenge consumption attempts by status.
	// A rising not_found rate indicates expired sessions or replay attempts.
	ChallengesConsumedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "challenges_consumed_total",
			Help:      "Total number of challenge consumption attempts by status",
		},
		[]string{LabelStatus},
	)

	// AuthenticationsTotal tracks authentication outcomes. The result label
	// is "verified" or a normalized failure reason.
	AuthenticationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "authentications_total",
			Help:      "Total number of authentication attempts by result",
		},
		[]string{LabelResult},
	)

	// AuthenticationDuration tracks end-to-end assertion verification latency.
	AuthenticationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "authentication_duration_seconds",
			Help:      "Duration of assertion verification in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		},
	)

	// CloneDetectionsTotal counts signature counter regressions. Any
	// increase warrants investigation.
	CloneDetectionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "clone_detections_total",
			Help:      "Total number of detected signature counter regressions",
		},
	)

	// PendingChallenges tracks challenges currently stored and consumable.
	PendingChallenges = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "pending_challenges",
			Help:      "Number of challenges currently awaiting consumption",
		},
	)

	// HTTPRequestsTotal tracks HTTP requests by method and status code.
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests by method and status code",
		},
		[]string{LabelMethod, LabelStatusCode},
	)

	// HTTPRequestDuration tracks the duration of HTTP requests in seconds.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{LabelMethod},
	)

	// ActiveConnections tracks in-flight HTTP requests.
	ActiveConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "active_connections",
			Help:      "Number of in-flight HTTP requests",
		},
	)

	// Goroutines tracks the current number of goroutines in the server.
	// Updated periodically by the resource collector.
	Goroutines = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "goroutines",
			Help:      "Current number of goroutines",
		},
	)

	// MemoryAllocBytes tracks the current bytes of allocated heap objects.
	MemoryAllocBytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "memory_alloc_bytes",
			Help:      "Current bytes of allocated heap objects",
		},
	)

	// MemorySysBytes tracks the total bytes of memory obtained from the OS.
	MemorySysBytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "memory_sys_bytes",
			Help:      "Total bytes of memory obtained from the OS",
		},
	)

	// GCPauseTotalSeconds tracks cumulative GC stop-the-world pause time.
	GCPauseTotalSeconds = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "gc_pause_total_seconds",
			Help:      "Cumulative time spent in GC stop-the-world pauses",
		},
	)

	// ServerUptime tracks the server uptime in seconds since startup.
	ServerUptime = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "server_uptime_seconds",
			Help:      "Server uptime in seconds since startup",
		},
	)

	// enabled tracks whether metrics collection is enabled
	enabled atomic.Bool
)

func init() {
	// Metrics are enabled by default
	enabled.Store(true)
}

// RecordChallengeIssued records a challenge issuance.
//
// Parameters:
//   - flow: FlowDiscoverable or FlowTargeted
func RecordChallengeIssued(flow string) {
	if !enabled.Load() {
		return
	}
	ChallengesIssuedTotal.WithLabelValues(flow).Inc()
}

// RecordChallengeConsumed records a challenge consumption attempt.
//
// Parameters:
//   - status: StatusConsumed or StatusNotFound
func RecordChallengeConsumed(status string) {
	if !enabled.Load() {
		return
	}
	ChallengesConsumedTotal.WithLabelValues(status).Inc()
}

// RecordAuthentication records an authentication attempt with its duration.
//
// Parameters:
//   - result: ResultVerified or the normalized failure reason string
//   - duration: The attempt duration in seconds
//
// Example:
//
//	start := time.Now()
//	result, err := coordinator.SubmitAssertion(ctx, sessionID, assertion)
//	duration := time.Since(start).Seconds()
//	if err != nil {
//	    RecordAuthentication(string(passkey.ReasonFromError(err)), duration)
//	} else {
//	    RecordAuthentication(ResultVerified, duration)
//	}
func RecordAuthentication(result string, duration float64) {
	if !enabled.Load() {
		return
	}
	AuthenticationsTotal.WithLabelValues(result).Inc()
	AuthenticationDuration.Observe(duration)
}

// RecordCloneDetection records a signature counter regression.
func RecordCloneDetection() {
	if !enabled.Load() {
		return
	}
	CloneDetectionsTotal.Inc()
}

// SetPendingChallenges sets the pending challenge gauge.
func SetPendingChallenges(count float64) {
	if !enabled.Load() {
		return
	}
	PendingChallenges.Set(count)
}

// RecordHTTPRequest records an HTTP request with its duration and status.
//
// Parameters:
//   - method: The HTTP method (GET, POST, etc.)
//   - statusCode: The HTTP status code as a string
//   - duration: The request duration in seconds
func RecordHTTPRequest(method, statusCode string, duration float64) {
	if !enabled.Load() {
		return
	}
	HTTPRequestsTotal.WithLabelValues(method, statusCode).Inc()
	HTTPRequestDuration.WithLabelValues(method).Observe(duration)
}

// IncrementActiveConnections increments the in-flight request gauge.
func IncrementActiveConnections() {
	if !enabled.Load() {
		return
	}
	ActiveConnections.Inc()
}

// DecrementActiveConnections decrements the in-flight request gauge.
func DecrementActiveConnections() {
	if !enabled.Load() {
		return
	}
	ActiveConnections.Dec()
}

// Enable enables metrics collection.
func Enable() {
	enabled.Store(true)
}

// Disable disables metrics collection.
// Useful for testing or when metrics are not desired.
func Disable() {
	enabled.Store(false)
}

// IsEnabled returns whether metrics collection is currently enabled.
func IsEnabled() bool {
	return enabled.Load()
}
