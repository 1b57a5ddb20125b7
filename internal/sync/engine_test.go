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

	"github.com/tomtom215/coachsync/internal/calendar/calendartest"
	"github.com/tomtom215/coachsync/internal/models"
)

type fixture struct {
	repo   *memRepo
	cal    *calendartest.Fake
	engine *Engine
	loc    *time.Location
	now    time.Time
}

// newFixture builds an engine at Monday 4 May 2026 08:00 Madrid time with
// coaches 1 (Jane Doe) and 7 (Ana Ruiz) and players 2 (John Smith) and
// 12 (Luis Gil).
func newFixture(t *testing.T) *fixture {
	t.Helper()
	loc, err := time.LoadLocation("Europe/Madrid")
	if err != nil {
		t.Fatal(err)
	}

	repo := newMemRepo()
	repo.addCoach(1, "Jane Doe")
	repo.addCoach(7, "Ana Ruiz")
	repo.addPlayer(2, "John Smith")
	repo.addPlayer(12, "Luis Gil")

	cal := calendartest.New()
	f := &fixture{
		repo: repo,
		cal:  cal,
		loc:  loc,
		now:  time.Date(2026, 5, 4, 8, 0, 0, 0, loc),
	}
	f.engine = NewEngine(repo, cal, EngineConfig{
		CalendarID:    "primary",
		Location:      loc,
		WindowBack:    30 * 24 * time.Hour,
		WindowForward: 60 * 24 * time.Hour,
		MaxMetadataID: 100,
		Rules:         DefaultImportRules(),
	})
	f.engine.now = func() time.Time { return f.now }
	return f
}

// at returns a local time in May 2026.
func (f *fixture) at(day, hour, minute int) time.Time {
	return time.Date(2026, 5, day, hour, minute, 0, 0, f.loc)
}

func (f *fixture) reconcile(t *testing.T) *models.SyncRun {
	t.Helper()
	run, err := f.engine.Reconcile(context.Background())
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	return run
}

// linkedRow stores a clean, synced session linked to eventID.
func (f *fixture) linkedRow(eventID string, start, end time.Time) int64 {
	link := eventID
	s := &models.Session{
		CoachID: 1, PlayerID: 2,
		StartTime: start.UTC(), EndTime: end.UTC(),
		Status: models.StatusScheduled, Source: models.ProvenanceApp,
		CalendarEventID: &link,
	}
	f.engine.hasher.MarkSynced(s, f.now)
	return f.repo.insert(*s)
}

func TestReconcileImportsNamedEventAndNormalizesIt(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.cal.Put(models.CalendarEvent{
		ID: "g1", Summary: "Session: Jane Doe × John Smith",
		Start: f.at(6, 10, 30), End: f.at(6, 11, 30),
	})

	run := f.reconcile(t)
	if run.Imported != 1 || run.Updated != 0 || run.Deleted != 0 {
		t.Fatalf("run = %+v, want one import", run)
	}
	if run.HasProblems() {
		t.Errorf("unexpected problems: %+v %+v", run.Rejected, run.Warnings)
	}

	rows := f.repo.all()
	if len(rows) != 1 {
		t.Fatalf("rows = %d", len(rows))
	}
	s := rows[0]
	if s.CoachID != 1 || s.PlayerID != 2 {
		t.Errorf("pair = (%d, %d), want (1, 2)", s.CoachID, s.PlayerID)
	}
	if s.Source != models.ProvenanceCalendar || s.Status != models.StatusScheduled || s.EventID() != "g1" {
		t.Errorf("row = %+v", s)
	}
	if s.IsDirty || s.SyncHash == nil || s.Version != 1 {
		t.Errorf("tracking not set: dirty=%v hash=%v version=%d", s.IsDirty, s.SyncHash, s.Version)
	}

	ev, _ := f.cal.Get("g1")
	if ev.Summary != "Session: Jane Doe × John Smith #C1 #P2" || ev.ColorID != "9" {
		t.Errorf("event not normalized: %+v", ev)
	}
	if ev.Private[models.MetaSessionID] == "" {
		t.Error("normalized event must carry session_id")
	}
	if !ev.Start.Equal(f.at(6, 10, 30)) {
		t.Errorf("normalize must not move the event, start = %v", ev.Start)
	}
}

func TestReconcileIsIdempotent(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.cal.Put(models.CalendarEvent{
		ID: "g1", Summary: "Session: Jane Doe × John Smith",
		Start: f.at(6, 10, 30), End: f.at(6, 11, 30),
	})
	f.cal.Put(models.CalendarEvent{
		ID: "g2", Summary: "Session: A × B #C7 #P12", Description: "serve drills",
		Start: f.at(7, 9, 0), End: f.at(7, 10, 0), ColorID: "2",
	})

	first := f.reconcile(t)
	if first.Imported != 2 {
		t.Fatalf("first run imported %d, want 2", first.Imported)
	}
	before := f.repo.all()
	f.cal.ResetCalls()

	second := f.reconcile(t)
	if !second.InSync() {
		t.Errorf("second run must be in sync, got %+v", second)
	}
	if calls := f.cal.Calls(); len(calls) != 1 || calls[0] != "list" {
		t.Errorf("second run calls = %v, want only list", calls)
	}
	after := f.repo.all()
	for i := range before {
		if before[i].Version != after[i].Version || *before[i].SyncHash != *after[i].SyncHash {
			t.Errorf("row %d changed on an idle run", before[i].ID)
		}
	}
}

func TestReconcileResolvesTagsRegardlessOfNames(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.cal.Put(models.CalendarEvent{
		ID: "g2", Summary: "Session: A × B #C7 #P12",
		Start: f.at(7, 9, 0), End: f.at(7, 10, 0), ColorID: "2",
	})

	run := f.reconcile(t)
	if run.Imported != 1 {
		t.Fatalf("run = %+v", run)
	}
	s := f.repo.all()[0]
	if s.CoachID != 7 || s.PlayerID != 12 {
		t.Errorf("pair = (%d, %d), want (7, 12)", s.CoachID, s.PlayerID)
	}
	if s.Status != models.StatusCompleted {
		t.Errorf("status = %s, want completed from the green color", s.Status)
	}
	ev, _ := f.cal.Get("g2")
	if ev.Summary != "Session: Ana Ruiz × Luis Gil #C7 #P12" {
		t.Errorf("summary = %q", ev.Summary)
	}
}

func TestReconcileRejections(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		event  func(f *fixture) models.CalendarEvent
		reason string
	}{
		{
			name: "unidentified",
			event: func(f *fixture) models.CalendarEvent {
				return models.CalendarEvent{ID: "x", Summary: "Dentist", Start: f.at(6, 10, 0), End: f.at(6, 11, 0)}
			},
			reason: unidentifiedReason,
		},
		{
			name: "unknown coach",
			event: func(f *fixture) models.CalendarEvent {
				return models.CalendarEvent{ID: "x", Summary: "Session: A × B #C9 #P2", Start: f.at(6, 10, 0), End: f.at(6, 11, 0)}
			},
			reason: "Coach ID 9 does not exist",
		},
		{
			name: "unknown player",
			event: func(f *fixture) models.CalendarEvent {
				return models.CalendarEvent{ID: "x", Summary: "Session: A × B #C1 #P99", Start: f.at(6, 10, 0), End: f.at(6, 11, 0)}
			},
			reason: "Player ID 99 does not exist",
		},
		{
			name: "too long",
			event: func(f *fixture) models.CalendarEvent {
				return models.CalendarEvent{ID: "x", Summary: "Session: Jane Doe × John Smith", Start: f.at(6, 9, 0), End: f.at(6, 13, 0)}
			},
			reason: "Excessive duration: 4.0 hours (maximum: 3h)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f := newFixture(t)
			f.cal.Put(tt.event(f))

			run := f.reconcile(t)
			if run.Imported != 0 || f.repo.count() != 0 {
				t.Fatalf("event must not be imported, run = %+v", run)
			}
			if len(run.Rejected) != 1 {
				t.Fatalf("rejected = %+v", run.Rejected)
			}
			rej := run.Rejected[0]
			if rej.Reason != tt.reason {
				t.Errorf("reason = %q, want %q", rej.Reason, tt.reason)
			}
			if rej.Date != "06/05/2026" || rej.Suggestion == "" {
				t.Errorf("rejection = %+v", rej)
			}
		})
	}
}

func TestReconcileRecordsImportWarnings(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.cal.Put(models.CalendarEvent{
		ID: "g1", Summary: "Session: Jane Doe × John Smith",
		Start: f.at(6, 7, 0), End: f.at(6, 8, 0),
	})

	run := f.reconcile(t)
	if run.Imported != 1 {
		t.Fatalf("run = %+v", run)
	}
	if len(run.Warnings) != 1 || run.Warnings[0].Time != "07:00-08:00" {
		t.Fatalf("warnings = %+v", run.Warnings)
	}
	if got := run.Warnings[0].Warnings; len(got) != 1 || got[0] != "Early start: 07:00 (recommended: 08:00-18:00)" {
		t.Errorf("warnings = %v", got)
	}
}

func TestReconcileNormalizeFailureBecomesWarning(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.cal.PatchErr = errors.New("quota exceeded")
	f.cal.Put(models.CalendarEvent{
		ID: "g1", Summary: "Session: Jane Doe × John Smith",
		Start: f.at(6, 10, 0), End: f.at(6, 11, 0),
	})

	run := f.reconcile(t)
	if run.Imported != 1 || !run.Success {
		t.Fatalf("import must survive a failed normalize, run = %+v", run)
	}
	if len(run.Warnings) != 1 || !strings.Contains(run.Warnings[0].Warnings[0], "Could not normalize calendar event: quota exceeded") {
		t.Errorf("warnings = %+v", run.Warnings)
	}
}

func TestReconcileCalendarWins(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	id := f.linkedRow("g1", f.at(6, 10, 0), f.at(6, 11, 0))
	f.cal.Put(models.CalendarEvent{
		ID: "g1", Summary: "Session: Jane Doe × John Smith #C1 #P2", Description: "bring rackets",
		Start: f.at(6, 12, 0), End: f.at(6, 13, 0), ColorID: "11",
	})

	run := f.reconcile(t)
	if run.Updated != 1 || run.Imported != 0 {
		t.Fatalf("run = %+v", run)
	}
	s, _ := f.repo.session(id)
	if s.Status != models.StatusCanceled {
		t.Errorf("status = %s", s.Status)
	}
	if !s.StartTime.Equal(f.at(6, 12, 0)) || !s.EndTime.Equal(f.at(6, 13, 0)) {
		t.Errorf("times = %v - %v", s.StartTime, s.EndTime)
	}
	if s.NotesOrEmpty() != "bring rackets" {
		t.Errorf("notes = %q", s.NotesOrEmpty())
	}
	if s.Version != 2 || s.IsDirty {
		t.Errorf("tracking: version=%d dirty=%v", s.Version, s.IsDirty)
	}
}

func TestReconcileRejectsCalendarEditWithoutDuration(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		end  time.Time
	}{
		{"end equals start", time.Date(2026, 5, 6, 12, 0, 0, 0, time.UTC)},
		{"end before start", time.Date(2026, 5, 6, 11, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f := newFixture(t)
			id := f.linkedRow("g1", f.at(6, 10, 0), f.at(6, 11, 0))
			before, _ := f.repo.session(id)
			f.cal.Put(models.CalendarEvent{
				ID: "g1", Summary: "Session: Jane Doe × John Smith #C1 #P2", ColorID: "11",
				Start: time.Date(2026, 5, 6, 12, 0, 0, 0, time.UTC), End: tt.end,
			})

			run := f.reconcile(t)
			if len(run.Rejected) != 1 || run.Updated != 0 || run.Deleted != 0 {
				t.Fatalf("run = %+v, want one rejection", run)
			}
			if r := run.Rejected[0]; r.Suggestion != timesSuggestion || r.Date != "06/05/2026" {
				t.Errorf("rejection = %+v", r)
			}
			after, ok := f.repo.session(id)
			if !ok {
				t.Fatal("row must survive a rejected edit")
			}
			if !after.StartTime.Equal(before.StartTime) || !after.EndTime.Equal(before.EndTime) ||
				after.Status != before.Status || after.Version != before.Version || after.IsDirty {
				t.Errorf("row changed: before %+v after %+v", before, after)
			}
		})
	}
}

func TestReconcileEmptyDescriptionClearsNotes(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	id := f.linkedRow("g1", f.at(6, 10, 0), f.at(6, 11, 0))
	s, _ := f.repo.session(id)
	s.Notes = models.StringPtr("old")
	f.engine.hasher.MarkSynced(&s, f.now)
	f.repo.insert(s)
	f.cal.Put(models.CalendarEvent{ID: "g1", Summary: "x", Start: f.at(6, 10, 0), End: f.at(6, 11, 0), ColorID: "9"})

	run := f.reconcile(t)
	if run.Updated != 1 {
		t.Fatalf("run = %+v", run)
	}
	got, _ := f.repo.session(id)
	if got.Notes != nil {
		t.Errorf("notes = %q, want nil", *got.Notes)
	}
}

func TestReconcileMatchesByMetadataSessionID(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	id := f.repo.insert(models.Session{
		CoachID: 1, PlayerID: 2, StartTime: f.at(6, 10, 0).UTC(), EndTime: f.at(6, 11, 0).UTC(),
		Status: models.StatusScheduled, Source: models.ProvenanceApp, IsDirty: true,
	})
	f.cal.Put(models.CalendarEvent{
		ID: "g9", Summary: "renamed by hand", ColorID: "9",
		Start: f.at(6, 10, 0), End: f.at(6, 11, 0),
		Private: map[string]string{models.MetaSessionID: "1"},
	})

	run := f.reconcile(t)
	if run.Imported != 0 || run.Updated != 1 {
		t.Fatalf("run = %+v", run)
	}
	s, _ := f.repo.session(id)
	if s.EventID() != "g9" {
		t.Errorf("link = %q, want g9", s.EventID())
	}
}

func TestReconcileCopiedEventIsNotMatchedByMetadata(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	id := f.linkedRow("g1", f.at(6, 10, 0), f.at(6, 11, 0))
	meta := map[string]string{models.MetaSessionID: "1", models.MetaCoachID: "1", models.MetaPlayerID: "2"}
	f.cal.Put(models.CalendarEvent{ID: "g1", Summary: "s", ColorID: "9", Start: f.at(6, 10, 0), End: f.at(6, 11, 0), Private: meta})
	f.cal.Put(models.CalendarEvent{ID: "g1-copy", Summary: "s", ColorID: "9", Start: f.at(8, 10, 0), End: f.at(8, 11, 0), Private: meta})

	run := f.reconcile(t)
	if run.Imported != 1 {
		t.Fatalf("copy must be imported as a new session, run = %+v", run)
	}
	s, _ := f.repo.session(id)
	if s.EventID() != "g1" || !s.StartTime.Equal(f.at(6, 10, 0)) {
		t.Errorf("original row was modified: %+v", s)
	}
}

func TestReconcileFuzzyMatch(t *testing.T) {
	t.Parallel()

	unlinked := func(f *fixture, startHour int) int64 {
		return f.repo.insert(models.Session{
			CoachID: 1, PlayerID: 2,
			StartTime: f.at(6, startHour, 0).UTC(), EndTime: f.at(6, startHour+1, 0).UTC(),
			Status: models.StatusScheduled, Source: models.ProvenanceApp, IsDirty: true,
		})
	}

	t.Run("single candidate binds", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		id := unlinked(f, 10)
		f.cal.Put(models.CalendarEvent{ID: "g1", Summary: "Jane Doe x John Smith", ColorID: "9", Start: f.at(6, 10, 30), End: f.at(6, 11, 30)})

		run := f.reconcile(t)
		if run.Updated != 1 || run.Imported != 0 {
			t.Fatalf("run = %+v", run)
		}
		s, _ := f.repo.session(id)
		if s.EventID() != "g1" || !s.StartTime.Equal(f.at(6, 10, 30)) {
			t.Errorf("row = %+v", s)
		}
	})

	t.Run("overlap breaks the tie", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		unlinked(f, 9)
		second := unlinked(f, 16)
		f.cal.Put(models.CalendarEvent{ID: "g1", Summary: "Jane Doe × John Smith", ColorID: "9", Start: f.at(6, 16, 30), End: f.at(6, 17, 30)})

		run := f.reconcile(t)
		if run.Updated != 1 || run.Imported != 0 {
			t.Fatalf("run = %+v", run)
		}
		if s, _ := f.repo.session(second); s.EventID() != "g1" {
			t.Errorf("overlapping row not bound: %+v", s)
		}
	})

	t.Run("no overlap is ambiguous", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		unlinked(f, 9)
		unlinked(f, 16)
		f.cal.Put(models.CalendarEvent{ID: "g1", Summary: "Jane Doe × John Smith", ColorID: "9", Start: f.at(6, 12, 0), End: f.at(6, 13, 0)})

		run := f.reconcile(t)
		if run.Imported != 1 || run.Updated != 0 {
			t.Fatalf("run = %+v", run)
		}
		if f.repo.count() != 3 {
			t.Errorf("rows = %d, want 3", f.repo.count())
		}
	})

	t.Run("other day does not bind", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		id := unlinked(f, 10)
		f.cal.Put(models.CalendarEvent{ID: "g1", Summary: "Jane Doe × John Smith", ColorID: "9", Start: f.at(7, 10, 0), End: f.at(7, 11, 0)})

		run := f.reconcile(t)
		if run.Imported != 1 {
			t.Fatalf("run = %+v", run)
		}
		if s, _ := f.repo.session(id); s.Linked() {
			t.Errorf("row on another day was bound: %+v", s)
		}
	})
}

func TestReconcileDeletionWindowBoundary(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	edge := f.now.Add(-30 * 24 * time.Hour)
	inside := f.linkedRow("gone-edge", edge, edge.Add(time.Hour))
	outside := f.linkedRow("gone-older", edge.Add(-time.Microsecond), edge.Add(time.Hour))
	_, winEnd := f.engine.Window(f.now)
	atEnd := f.linkedRow("gone-at-end", winEnd, winEnd.Add(time.Hour))
	kept := f.linkedRow("alive", f.at(6, 10, 0), f.at(6, 11, 0))
	f.cal.Put(models.CalendarEvent{ID: "alive", Summary: "s", ColorID: "9", Start: f.at(6, 10, 0), End: f.at(6, 11, 0)})

	run := f.reconcile(t)
	if run.Deleted != 1 {
		t.Fatalf("deleted = %d, want 1", run.Deleted)
	}
	if _, ok := f.repo.session(inside); ok {
		t.Error("row exactly at the window start must be deleted")
	}
	if _, ok := f.repo.session(outside); !ok {
		t.Error("row one microsecond before the window must be kept")
	}
	if _, ok := f.repo.session(atEnd); !ok {
		t.Error("row starting exactly at the window end must be kept")
	}
	if _, ok := f.repo.session(kept); !ok {
		t.Error("row with a listed event must be kept")
	}
}

func TestReconcileKeepsRowOfUnreadableEvent(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	id := f.linkedRow("g1", f.at(6, 10, 0), f.at(6, 11, 0))
	gone := f.linkedRow("g2", f.at(7, 10, 0), f.at(7, 11, 0))
	f.cal.Put(models.CalendarEvent{ID: "g1", Summary: "Session: Jane Doe × John Smith", Unreadable: true})

	run := f.reconcile(t)
	if run.Deleted != 1 || run.Updated != 0 || run.Imported != 0 {
		t.Fatalf("run = %+v", run)
	}
	if len(run.Rejected) != 1 || run.Rejected[0].Reason != unreadableReason {
		t.Errorf("rejected = %+v", run.Rejected)
	}
	if _, ok := f.repo.session(id); !ok {
		t.Error("row of an unreadable event must not be treated as deleted")
	}
	if _, ok := f.repo.session(gone); ok {
		t.Error("row of a missing event must still be deleted")
	}
}

func TestReconcileRollsBackOnError(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.cal.Put(models.CalendarEvent{ID: "new", Summary: "Session: Jane Doe × John Smith", Start: f.at(5, 10, 0), End: f.at(5, 11, 0)})
	f.linkedRow("g1", f.at(6, 10, 0), f.at(6, 11, 0))
	f.cal.Put(models.CalendarEvent{ID: "g1", Summary: "s", ColorID: "11", Start: f.at(6, 10, 0), End: f.at(6, 11, 0)})
	f.repo.updateErr = errors.New("disk full")

	if _, err := f.engine.Reconcile(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if f.repo.count() != 1 {
		t.Errorf("import must be rolled back, rows = %d", f.repo.count())
	}
	for _, call := range f.cal.Calls() {
		if strings.HasPrefix(call, "patch:") {
			t.Errorf("no normalize patch may run after a rollback, got %s", call)
		}
	}
}

func TestReconcileListFailure(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.cal.ListErr = errors.New("unavailable")

	run, err := f.engine.Reconcile(context.Background())
	if err == nil || !strings.Contains(err.Error(), "unavailable") {
		t.Fatalf("err = %v", err)
	}
	if !errors.Is(err, ErrCalendar) {
		t.Errorf("list failure must be marked ErrCalendar, got %v", err)
	}
	if run.Success {
		t.Error("failed run must not be marked successful")
	}
	if f.repo.txCount != 0 {
		t.Error("no transaction may start when listing fails")
	}
}
