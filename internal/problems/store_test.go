// Coachsync - Coaching Session Booking and Calendar Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/coachsync

package problems

import (
	"testing"
	"time"

	"github.com/tomtom215/coachsync/internal/models"
)

func runWithProblems(ts time.Time) *models.SyncRun {
	return &models.SyncRun{
		Imported:  2,
		Rejected:  []models.RejectedEvent{{Title: "Mystery", Reason: "Could not identify coach and player"}},
		Warnings:  []models.WarnedEvent{{Title: "Late one", Warnings: []string{"late"}}},
		Timestamp: ts,
		Success:   true,
	}
}

func TestStoreSaveAndGet(t *testing.T) {
	t.Parallel()

	s := NewStore()
	if _, ok := s.Get(); ok {
		t.Fatal("new store must be empty")
	}

	ts := time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)
	s.Save(runWithProblems(ts))

	snap, ok := s.Get()
	if !ok {
		t.Fatal("expected a snapshot")
	}
	if snap.Count() != 2 || snap.Imported != 2 || snap.Seen || !snap.Timestamp.Equal(ts) {
		t.Errorf("snapshot = %+v", snap)
	}
	if !s.HasProblems() {
		t.Error("HasProblems = false")
	}

	snap.Rejected[0].Title = "mutated"
	again, _ := s.Get()
	if again.Rejected[0].Title != "Mystery" {
		t.Error("Get must return a copy")
	}
}

func TestStoreCleanRunReplacesProblems(t *testing.T) {
	t.Parallel()

	s := NewStore()
	s.Save(runWithProblems(time.Now()))
	s.Save(&models.SyncRun{Success: true, Timestamp: time.Now()})

	if s.HasProblems() {
		t.Error("a clean run must replace earlier problems")
	}
}

func TestStoreMarkSeenAndClear(t *testing.T) {
	t.Parallel()

	s := NewStore()
	if s.MarkSeen() {
		t.Error("MarkSeen on empty store = true")
	}
	s.Save(runWithProblems(time.Now()))
	if !s.MarkSeen() {
		t.Fatal("MarkSeen = false")
	}
	if snap, _ := s.Get(); !snap.Seen {
		t.Error("snapshot not marked seen")
	}

	s.Clear()
	if _, ok := s.Get(); ok {
		t.Error("Clear left a snapshot")
	}
}

func TestStoreEvictOlderThan(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 5, 5, 12, 0, 0, 0, time.UTC)
	s := NewStore()
	s.now = func() time.Time { return now }

	s.Save(runWithProblems(now.Add(-23 * time.Hour)))
	if s.EvictOlderThan(24) {
		t.Error("23h old snapshot evicted with a 24h limit")
	}

	s.Save(runWithProblems(now.Add(-25 * time.Hour)))
	if !s.EvictOlderThan(24) {
		t.Error("25h old snapshot kept with a 24h limit")
	}
	if _, ok := s.Get(); ok {
		t.Error("evicted snapshot still present")
	}
}
