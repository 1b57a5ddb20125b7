// Coachsync - Coaching Session Booking and Calendar Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/coachsync

package sync

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/tomtom215/coachsync/internal/models"
)

func TestSweepPastSessions(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	// Linked row that ended a minute ago.
	end := f.now.Add(-time.Minute)
	linked := f.linkedRow("g1", end.Add(-time.Hour), end)
	f.cal.Put(models.CalendarEvent{ID: "g1", ColorID: "9", Start: end.Add(-time.Hour), End: end})

	unlinked := f.appRow(3, 10)
	future := f.appRow(6, 10)

	n, warnings, err := f.engine.SweepPastSessions(ctx)
	if err != nil {
		t.Fatalf("SweepPastSessions: %v", err)
	}
	if n != 2 || len(warnings) != 0 {
		t.Fatalf("n = %d, warnings = %v", n, warnings)
	}

	s, _ := f.repo.session(linked)
	if s.Status != models.StatusCompleted || s.IsDirty {
		t.Errorf("linked row = %+v, want completed and clean", s)
	}
	if ev, _ := f.cal.Get("g1"); ev.ColorID != "2" {
		t.Errorf("event color = %q, want 2", ev.ColorID)
	}

	u, _ := f.repo.session(unlinked.ID)
	if u.Status != models.StatusCompleted || !u.IsDirty {
		t.Errorf("unlinked row = %+v, want completed and dirty", u)
	}
	if fu, _ := f.repo.session(future.ID); fu.Status != models.StatusScheduled {
		t.Errorf("future row status = %s", fu.Status)
	}
}

func TestSweepPatchFailureIsWarning(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	end := f.now.Add(-time.Minute)
	id := f.linkedRow("g1", end.Add(-time.Hour), end)
	f.cal.PatchErr = errors.New("rate limited")

	n, warnings, err := f.engine.SweepPastSessions(context.Background())
	if err != nil {
		t.Fatalf("SweepPastSessions: %v", err)
	}
	if n != 1 || len(warnings) != 1 || !strings.Contains(warnings[0], "rate limited") {
		t.Fatalf("n = %d, warnings = %v", n, warnings)
	}
	s, _ := f.repo.session(id)
	if s.Status != models.StatusCompleted || !s.IsDirty {
		t.Errorf("row = %+v, want completed and dirty", s)
	}
}

func TestSweepRollsBackOnUpdateError(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	s := f.appRow(3, 10)
	f.repo.updateErr = errors.New("locked")

	if _, _, err := f.engine.SweepPastSessions(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if got, _ := f.repo.session(s.ID); got.Status != models.StatusScheduled {
		t.Errorf("status = %s, want scheduled", got.Status)
	}
}
