// Coachsync - Coaching Session Booking and Calendar Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/coachsync

package models

import (
	"fmt"
	"time"
)

// SessionStatus is the lifecycle state of a coaching session.
type SessionStatus string

const (
	StatusScheduled SessionStatus = "scheduled"
	StatusCompleted SessionStatus = "completed"
	StatusCanceled  SessionStatus = "canceled"
)

// Valid reports whether s is one of the known statuses.
func (s SessionStatus) Valid() bool {
	switch s {
	case StatusScheduled, StatusCompleted, StatusCanceled:
		return true
	default:
		return false
	}
}

// ParseSessionStatus rejects anything outside the closed set.
func ParseSessionStatus(v string) (SessionStatus, error) {
	s := SessionStatus(v)
	if !s.Valid() {
		return "", fmt.Errorf("unknown session status %q", v)
	}
	return s, nil
}

// Provenance records where a session row was first created.
type Provenance string

const (
	ProvenanceApp      Provenance = "app"
	ProvenanceCalendar Provenance = "calendar"
)

func (p Provenance) Valid() bool {
	switch p {
	case ProvenanceApp, ProvenanceCalendar:
		return true
	default:
		return false
	}
}

// Session is one booked coaching session.
//
// The sync tracking columns (CalendarEventID, SyncHash, IsDirty, LastSyncAt,
// Version) are owned by the reconciliation engine. Any local edit must set
// IsDirty so the stored hash is not trusted until it is recomputed.
type Session struct {
	ID        int64         `db:"id" json:"id"`
	CoachID   int64         `db:"coach_id" json:"coach_id"`
	PlayerID  int64         `db:"player_id" json:"player_id"`
	StartTime time.Time     `db:"start_time" json:"start_time"`
	EndTime   time.Time     `db:"end_time" json:"end_time"`
	Status    SessionStatus `db:"status" json:"status"`
	Notes     *string       `db:"notes" json:"notes,omitempty"`
	Source    Provenance    `db:"source" json:"source"`

	CalendarEventID *string    `db:"calendar_event_id" json:"calendar_event_id,omitempty"`
	SyncHash        *string    `db:"sync_hash" json:"-"`
	IsDirty         bool       `db:"is_dirty" json:"is_dirty"`
	LastSyncAt      *time.Time `db:"last_sync_at" json:"last_sync_at,omitempty"`
	Version         int64      `db:"version" json:"version"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// NotesOrEmpty returns the notes text or "".
func (s *Session) NotesOrEmpty() string {
	if s.Notes == nil {
		return ""
	}
	return *s.Notes
}

// EventID returns the linked calendar event id or "".
func (s *Session) EventID() string {
	if s.CalendarEventID == nil {
		return ""
	}
	return *s.CalendarEventID
}

// Linked reports whether the session has been pushed to the calendar.
func (s *Session) Linked() bool {
	return s.CalendarEventID != nil && *s.CalendarEventID != ""
}

// Clone returns a deep copy, pointer fields included.
func (s *Session) Clone() *Session {
	c := *s
	if s.Notes != nil {
		v := *s.Notes
		c.Notes = &v
	}
	if s.CalendarEventID != nil {
		v := *s.CalendarEventID
		c.CalendarEventID = &v
	}
	if s.SyncHash != nil {
		v := *s.SyncHash
		c.SyncHash = &v
	}
	if s.LastSyncAt != nil {
		v := *s.LastSyncAt
		c.LastSyncAt = &v
	}
	return &c
}

// StringPtr returns nil for "" and a pointer to v otherwise.
func StringPtr(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}

// SessionCreate is the body accepted when a user books a session.
type SessionCreate struct {
	CoachID   int64     `json:"coach_id" validate:"required,gt=0"`
	PlayerID  int64     `json:"player_id" validate:"required,gt=0"`
	StartTime time.Time `json:"start_time" validate:"required"`
	EndTime   time.Time `json:"end_time" validate:"required,gtfield=StartTime"`
	Notes     string    `json:"notes" validate:"max=2000"`
}

// SessionUpdate lists every field a user may change on an existing session.
// Nil means unchanged. Participants and sync tracking are not editable.
type SessionUpdate struct {
	Status    *string    `json:"status,omitempty" validate:"omitempty,session_status"`
	StartTime *time.Time `json:"start_time,omitempty"`
	EndTime   *time.Time `json:"end_time,omitempty"`
	Notes     *string    `json:"notes,omitempty" validate:"omitempty,max=2000"`
}

// Empty reports whether the update changes nothing.
func (u *SessionUpdate) Empty() bool {
	return u.Status == nil && u.StartTime == nil && u.EndTime == nil && u.Notes == nil
}

// Apply copies the allowed fields onto s and reports whether anything
// changed. It refuses updates that would leave start >= end.
func (u *SessionUpdate) Apply(s *Session) (bool, error) {
	next := s.Clone()
	if u.Status != nil {
		st, err := ParseSessionStatus(*u.Status)
		if err != nil {
			return false, err
		}
		next.Status = st
	}
	if u.StartTime != nil {
		next.StartTime = *u.StartTime
	}
	if u.EndTime != nil {
		next.EndTime = *u.EndTime
	}
	if u.Notes != nil {
		next.Notes = StringPtr(*u.Notes)
	}
	if !next.StartTime.Before(next.EndTime) {
		return false, fmt.Errorf("start_time must be before end_time")
	}

	changed := next.Status != s.Status ||
		!next.StartTime.Equal(s.StartTime) ||
		!next.EndTime.Equal(s.EndTime) ||
		next.NotesOrEmpty() != s.NotesOrEmpty()
	if changed {
		s.Status = next.Status
		s.StartTime = next.StartTime
		s.EndTime = next.EndTime
		s.Notes = next.Notes
	}
	return changed, nil
}
