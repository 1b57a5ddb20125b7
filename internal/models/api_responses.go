// Coachsync - Coaching Session Booking and Calendar Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/coachsync

package models

import "time"

// APIResponse is the envelope for every JSON response.
type APIResponse struct {
	Status   string      `json:"status"`
	Data     interface{} `json:"data"`
	Metadata Metadata    `json:"metadata"`
	Error    *APIError   `json:"error,omitempty"`
}

type Metadata struct {
	Timestamp   time.Time `json:"timestamp"`
	QueryTimeMS int64     `json:"query_time_ms,omitempty"`
}

// APIError is a machine-readable error code plus a human message.
type APIError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// SyncTriggerResponse is returned by the manual sync endpoints.
type SyncTriggerResponse struct {
	Run     *SyncRun `json:"run"`
	InSync  bool     `json:"in_sync"`
	Message string   `json:"message"`
}

// SessionResponse is returned by session writes. A session that was saved
// but could not be pushed has Pushed false and the calendar error in
// PushError; it stays pending for the next push.
type SessionResponse struct {
	Session   *Session `json:"session"`
	Pushed    bool     `json:"pushed"`
	PushError string   `json:"push_error,omitempty"`
}

// PushResponse is returned by the push-all endpoint.
type PushResponse struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
}

// PeriodicRequest starts periodic sync.
type PeriodicRequest struct {
	IntervalMinutes int `json:"interval_minutes" validate:"required,gt=0,lte=1440"`
}

// PeriodicResponse reports whether a periodic start/stop changed anything.
type PeriodicResponse struct {
	Changed  bool   `json:"changed"`
	Interval string `json:"interval,omitempty"`
}

// HealthResponse is returned by /api/v1/health.
type HealthResponse struct {
	Status        string  `json:"status"`
	Version       string  `json:"version"`
	Database      bool    `json:"database"`
	SyncRunning   bool    `json:"sync_running"`
	UptimeSeconds float64 `json:"uptime_seconds"`
}
