// Coachsync - Coaching Session Booking and Calendar Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/coachsync

// Package fingerprint computes change-detection digests for sessions.
//
// A fingerprint covers participants, time window, status and notes. It is a
// change detector, not a security primitive, so MD5 is sufficient.
package fingerprint

import (
	"crypto/md5" //nolint:gosec // change detection only
	"encoding/hex"
	"strconv"
	"strings"
	"time"

	"github.com/tomtom215/coachsync/internal/models"
)

// InstantLayout is the canonical text form of a normalized instant.
const InstantLayout = "2006-01-02T15:04:05+00:00"

// Hasher normalizes instants against the application's local zone.
type Hasher struct {
	loc *time.Location
}

// New returns a Hasher. A nil location means UTC.
func New(loc *time.Location) *Hasher {
	if loc == nil {
		loc = time.UTC
	}
	return &Hasher{loc: loc}
}

// Localize reinterprets the wall clock of t in the local zone. Use it for
// values that carry no zone of their own, such as offset-less calendar
// times and all-day dates.
func (h *Hasher) Localize(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), h.loc)
}

// Normalize converts t to UTC, drops sub-second precision and formats it.
// Normalize(parse(Normalize(t))) == Normalize(t).
func Normalize(t time.Time) string {
	return t.UTC().Truncate(time.Second).Format(InstantLayout)
}

// Compute returns the fingerprint of the session's current fields.
func (h *Hasher) Compute(s *models.Session) string {
	return h.compute(s.CoachID, s.PlayerID, s.StartTime, s.EndTime, s.Status, s.NotesOrEmpty())
}

func (h *Hasher) compute(coachID, playerID int64, start, end time.Time, status models.SessionStatus, notes string) string {
	parts := []string{
		strconv.FormatInt(coachID, 10),
		strconv.FormatInt(playerID, 10),
		Normalize(start),
		Normalize(end),
		string(status),
		notes,
	}
	sum := md5.Sum([]byte(strings.Join(parts, "|"))) //nolint:gosec // change detection only
	return hex.EncodeToString(sum[:])
}

// HasRealChanges reports whether the session must be pushed: it is dirty,
// has never been hashed, or its stored hash no longer matches its fields.
func (h *Hasher) HasRealChanges(s *models.Session) bool {
	if s.IsDirty || s.SyncHash == nil || *s.SyncHash == "" {
		return true
	}
	return *s.SyncHash != h.Compute(s)
}

// MarkSynced updates the tracking columns after a successful sync write:
// fresh hash, clean flag, sync time and a version bump.
func (h *Hasher) MarkSynced(s *models.Session, now time.Time) {
	hash := h.Compute(s)
	s.SyncHash = &hash
	s.IsDirty = false
	s.UpdatedAt = now
	s.LastSyncAt = &now
	s.Version++
}
