// Coachsync - Coaching Session Booking and Calendar Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/coachsync

// Package problems keeps the rejected and warned events of the latest sync
// run so users can review them after the fact.
package problems

import (
	"sync"
	"time"

	"github.com/tomtom215/coachsync/internal/logging"
	"github.com/tomtom215/coachsync/internal/models"
)

// Snapshot is what the last run reported. Only the most recent run is kept.
type Snapshot struct {
	Rejected  []models.RejectedEvent `json:"rejected"`
	Warnings  []models.WarnedEvent   `json:"warnings"`
	Timestamp time.Time              `json:"timestamp"`
	Seen      bool                   `json:"seen"`
	Duration  time.Duration          `json:"duration_ns"`
	Imported  int                    `json:"imported"`
	Updated   int                    `json:"updated"`
	Deleted   int                    `json:"deleted"`
}

// HasProblems reports whether anything was rejected or warned about.
func (s *Snapshot) HasProblems() bool {
	return len(s.Rejected) > 0 || len(s.Warnings) > 0
}

// Count is the number of affected events.
func (s *Snapshot) Count() int {
	return len(s.Rejected) + len(s.Warnings)
}

// Store is safe for concurrent use.
type Store struct {
	mu       sync.RWMutex
	snapshot *Snapshot
	now      func() time.Time
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{now: time.Now}
}

// Save replaces the stored snapshot with the problems of run, even when run
// reported none, so stale problems never outlive a clean run.
func (s *Store) Save(run *models.SyncRun) {
	snap := &Snapshot{
		Rejected:  append([]models.RejectedEvent(nil), run.Rejected...),
		Warnings:  append([]models.WarnedEvent(nil), run.Warnings...),
		Timestamp: run.Timestamp,
		Duration:  run.Duration,
		Imported:  run.Imported,
		Updated:   run.Updated,
		Deleted:   run.Deleted,
	}
	if snap.Timestamp.IsZero() {
		snap.Timestamp = s.now()
	}

	s.mu.Lock()
	s.snapshot = snap
	s.mu.Unlock()

	if snap.HasProblems() {
		logging.Info().
			Int("rejected", len(snap.Rejected)).
			Int("warnings", len(snap.Warnings)).
			Msg("Sync problems saved")
	}
}

// Get returns a copy of the stored snapshot.
func (s *Store) Get() (Snapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.snapshot == nil {
		return Snapshot{}, false
	}
	snap := *s.snapshot
	snap.Rejected = append([]models.RejectedEvent(nil), s.snapshot.Rejected...)
	snap.Warnings = append([]models.WarnedEvent(nil), s.snapshot.Warnings...)
	return snap, true
}

// Clear drops the stored snapshot.
func (s *Store) Clear() {
	s.mu.Lock()
	s.snapshot = nil
	s.mu.Unlock()
}

// MarkSeen flags the snapshot as reviewed. It reports false when there is
// nothing stored.
func (s *Store) MarkSeen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.snapshot == nil {
		return false
	}
	s.snapshot.Seen = true
	return true
}

// EvictOlderThan clears the snapshot when it is older than hours and
// reports whether it did.
func (s *Store) EvictOlderThan(hours int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.snapshot == nil {
		return false
	}
	if s.now().Sub(s.snapshot.Timestamp) <= time.Duration(hours)*time.Hour {
		return false
	}
	s.snapshot = nil
	logging.Debug().Int("max_age_hours", hours).Msg("Evicted old sync problems")
	return true
}

// HasProblems reports whether the stored snapshot has any problems.
func (s *Store) HasProblems() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot != nil && s.snapshot.HasProblems()
}
