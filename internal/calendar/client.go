// Coachsync - Coaching Session Booking and Calendar Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/coachsync

// Package calendar talks to the external calendar service and maps sessions
// to and from its event format.
//
// The reconciliation engine depends only on the Client interface. The
// production implementation is GoogleClient, wrapped in a
// CircuitBreakerClient.
package calendar

import (
	"context"
	"errors"
	"time"

	"github.com/tomtom215/coachsync/internal/models"
)

var (
	// ErrNotFound is returned when the event id no longer exists (404/410).
	// Patch callers fall back to create; delete callers treat it as done.
	ErrNotFound = errors.New("calendar event not found")

	// ErrCircuitOpen is returned while the circuit breaker rejects calls.
	ErrCircuitOpen = errors.New("calendar circuit breaker open")
)

// Client is the subset of the calendar API the sync engine needs.
type Client interface {
	ListEvents(ctx context.Context, calendarID string, timeMin, timeMax time.Time) ([]models.CalendarEvent, error)
	CreateEvent(ctx context.Context, calendarID string, body *EventBody) (string, error)
	PatchEvent(ctx context.Context, calendarID, eventID string, body *EventBody) error
	DeleteEvent(ctx context.Context, calendarID, eventID string) error
}

// EventTime is a local wall-clock time plus an explicit IANA zone name.
type EventTime struct {
	DateTime string // 2006-01-02T15:04:05, no offset
	TimeZone string
}

// EventBody is the payload for creating or patching an event. A body with
// nil Start/End is a partial patch: only its non-empty Summary, ColorID and
// Private fields are sent.
type EventBody struct {
	Summary     string
	Description string
	Start       *EventTime
	End         *EventTime
	ColorID     string
	Private     map[string]string
}

// Full reports whether the body carries the complete event definition.
func (b *EventBody) Full() bool {
	return b.Start != nil && b.End != nil
}
