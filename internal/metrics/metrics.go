// Coachsync - Coaching Session Booking and Calendar Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/coachsync

// Package metrics declares the Prometheus collectors exported on /metrics.
package metrics

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Reconciliation

	SyncDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "coachsync_sync_duration_seconds",
			Help:    "Duration of reconciliation runs in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		},
	)

	SyncRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coachsync_sync_runs_total",
			Help: "Total reconciliation runs by result",
		},
		[]string{"result"}, // success, in_sync, failure, rejected_busy
	)

	SyncEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coachsync_sync_events_total",
			Help: "Session changes applied by reconciliation, by action",
		},
		[]string{"action"}, // imported, updated, deleted, past_completed, pushed, rejected, warned
	)

	SyncLastSuccess = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "coachsync_sync_last_success_timestamp",
			Help: "Unix timestamp of the last successful reconciliation",
		},
	)

	IdentityResolutions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coachsync_identity_resolutions_total",
			Help: "Identity resolutions for unmatched events by strategy",
		},
		[]string{"strategy"}, // metadata, hybrid, fallback, none
	)

	// Calendar API

	CalendarRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coachsync_calendar_requests_total",
			Help: "Calendar API calls by operation and result",
		},
		[]string{"operation", "result"}, // result: ok, not_found, error
	)

	CalendarRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "coachsync_calendar_request_duration_seconds",
			Help:    "Calendar API call latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	// Circuit breaker

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker",
		},
		[]string{"name", "result"}, // success, failure, rejected
	)

	CircuitBreakerConsecutiveFailures = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_consecutive_failures",
			Help: "Current number of consecutive failures",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	// HTTP API

	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coachsync_http_requests_total",
			Help: "HTTP requests by method, route pattern and status",
		},
		[]string{"method", "route", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "coachsync_http_request_duration_seconds",
			Help:    "HTTP request latency by route pattern",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	WebSocketClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "coachsync_websocket_clients",
			Help: "Connected websocket clients",
		},
	)
)

// SyncResult is the subset of a reconciliation result the metrics need.
type SyncResult struct {
	Imported, Updated, Deleted, PastCompleted, Pushed int
	Rejected, Warned                                 int
	InSync                                           bool
}

// RecordSyncRun records one finished reconciliation run.
func RecordSyncRun(duration time.Duration, res SyncResult, err error) {
	SyncDuration.Observe(duration.Seconds())
	if err != nil {
		SyncRunsTotal.WithLabelValues("failure").Inc()
		return
	}

	if res.InSync {
		SyncRunsTotal.WithLabelValues("in_sync").Inc()
	} else {
		SyncRunsTotal.WithLabelValues("success").Inc()
	}
	SyncLastSuccess.Set(float64(time.Now().Unix()))

	for action, n := range map[string]int{
		"imported":       res.Imported,
		"updated":        res.Updated,
		"deleted":        res.Deleted,
		"past_completed": res.PastCompleted,
		"pushed":         res.Pushed,
		"rejected":       res.Rejected,
		"warned":         res.Warned,
	} {
		if n > 0 {
			SyncEventsTotal.WithLabelValues(action).Add(float64(n))
		}
	}
}

// RecordBusyRejection counts a trigger refused because a run was in flight.
func RecordBusyRejection() {
	SyncRunsTotal.WithLabelValues("rejected_busy").Inc()
}

// RecordCalendarCall records one calendar API call. result is ok,
// not_found or error.
func RecordCalendarCall(operation, result string, duration time.Duration) {
	CalendarRequestDuration.WithLabelValues(operation).Observe(duration.Seconds())
	CalendarRequests.WithLabelValues(operation, result).Inc()
}

// RecordAPIRequest records an HTTP request.
func RecordAPIRequest(method, route, status string, duration time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	APIRequestsTotal.WithLabelValues(strings.ToUpper(method), route, status).Inc()
	APIRequestDuration.WithLabelValues(strings.ToUpper(method), route).Observe(duration.Seconds())
}
