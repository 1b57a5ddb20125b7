// Coachsync - Coaching Session Booking and Calendar Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/coachsync

/*
Package api serves the coachsync HTTP API on a chi router.

Routes live under /api/v1:

	GET    /health                     liveness and database ping
	GET    /sync/status                coordinator state
	POST   /sync/run                   one reconciliation run (409 while busy)
	POST   /sync/force                 past sweep, reconcile, push
	POST   /sync/push                  push every pending session
	POST   /sync/periodic/start        {"interval_minutes": N}
	POST   /sync/periodic/stop
	GET    /sync/problems              last run's rejected and warned events
	DELETE /sync/problems
	POST   /sync/problems/seen
	POST   /sync/problems/evict?hours=N
	GET    /sessions?from=&to=         dates (YYYY-MM-DD) or RFC 3339
	POST   /sessions
	GET    /sessions/{id}
	PATCH  /sessions/{id}              status, start_time, end_time, notes
	DELETE /sessions/{id}
	GET    /coaches, /players
	POST   /coaches, /players
	GET    /ws                         websocket feed of sync results

/metrics serves Prometheus collectors.

Every JSON response uses the models.APIResponse envelope. Request bodies are
decoded strictly: unknown fields are rejected and structs are checked with
the shared validator.

Error codes:

	VALIDATION_ERROR      400
	NOT_FOUND             404
	SYNC_ALREADY_RUNNING  409
	UNKNOWN_PARTICIPANT   422
	CALENDAR_ERROR        502
	CALENDAR_UNAVAILABLE  503 (circuit breaker open)
	INTERNAL_ERROR        500
*/
package api
