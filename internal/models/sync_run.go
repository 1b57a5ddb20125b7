// Coachsync - Coaching Session Booking and Calendar Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/coachsync

package models

import "time"

// CalendarEvent is a snapshot of one external calendar event as listed
// during a reconciliation run.
type CalendarEvent struct {
	ID          string
	Summary     string
	Description string
	Start       time.Time
	End         time.Time
	ColorID     string

	// Private holds the event's private extended properties. Coachsync
	// writes session_id, coach_id and player_id here.
	Private map[string]string

	// Unreadable marks an event whose times could not be parsed. Only ID
	// and Summary are set.
	Unreadable bool
}

// Metadata keys stored in CalendarEvent.Private.
const (
	MetaSessionID = "session_id"
	MetaCoachID   = "coach_id"
	MetaPlayerID  = "player_id"
)

// RejectedEvent is a calendar event that could not be imported.
type RejectedEvent struct {
	Title      string `json:"title"`
	Date       string `json:"date"`
	Time       string `json:"time"`
	Reason     string `json:"reason"`
	Suggestion string `json:"suggestion"`
}

// WarnedEvent was imported or updated but looks unusual.
type WarnedEvent struct {
	Title    string   `json:"title"`
	Date     string   `json:"date"`
	Time     string   `json:"time"`
	Warnings []string `json:"warnings"`
}

// SyncRun is the in-memory result of one reconciliation run.
type SyncRun struct {
	Imported      int             `json:"imported"`
	Updated       int             `json:"updated"`
	Deleted       int             `json:"deleted"`
	PastCompleted int             `json:"past_completed"`
	Pushed        int             `json:"pushed"`
	Rejected      []RejectedEvent `json:"rejected"`
	Warnings      []WarnedEvent   `json:"warnings"`
	Duration      time.Duration   `json:"duration_ns"`
	Timestamp     time.Time       `json:"timestamp"`
	Success       bool            `json:"success"`
	Error         string          `json:"error,omitempty"`
}

// Changes is the number of rows the run created, updated or deleted.
func (r *SyncRun) Changes() int {
	return r.Imported + r.Updated + r.Deleted + r.PastCompleted + r.Pushed
}

// HasProblems reports whether any event was rejected or warned about.
func (r *SyncRun) HasProblems() bool {
	return len(r.Rejected) > 0 || len(r.Warnings) > 0
}

// InSync is the "already in sync" state: a successful run that changed
// nothing and found nothing to report.
func (r *SyncRun) InSync() bool {
	return r.Success && r.Changes() == 0 && !r.HasProblems()
}

// Warn appends a warning for the event identified by title/date/time,
// merging into an existing entry for the same event.
func (r *SyncRun) Warn(title, date, clock string, msgs ...string) {
	if len(msgs) == 0 {
		return
	}
	for i := range r.Warnings {
		w := &r.Warnings[i]
		if w.Title == title && w.Date == date && w.Time == clock {
			w.Warnings = append(w.Warnings, msgs...)
			return
		}
	}
	r.Warnings = append(r.Warnings, WarnedEvent{Title: title, Date: date, Time: clock, Warnings: msgs})
}
