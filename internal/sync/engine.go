// Coachsync - Coaching Session Booking and Calendar Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/coachsync

// Package sync reconciles the sessions table with the external calendar.
//
// Engine holds the algorithms: the calendar-to-database pull
// (Reconcile), the database-to-calendar push (PushSession, PushAllPending,
// DeleteRemote) and the sweep that completes past sessions. Coordinator
// serializes runs and drives periodic sync. SessionService is the write
// path used by the API: every local change is pushed immediately.
//
// The calendar wins conflicts during a pull. Rows are matched to events by,
// in order: the session_id in the event metadata, the stored event link,
// and finally a fuzzy match on the resolved coach/player pair and local
// date. Events that match nothing are imported after validation.
package sync

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/tomtom215/coachsync/internal/calendar"
	"github.com/tomtom215/coachsync/internal/config"
	"github.com/tomtom215/coachsync/internal/database"
	"github.com/tomtom215/coachsync/internal/fingerprint"
	"github.com/tomtom215/coachsync/internal/identity"
	"github.com/tomtom215/coachsync/internal/logging"
	"github.com/tomtom215/coachsync/internal/metrics"
	"github.com/tomtom215/coachsync/internal/models"
)

var (
	// ErrAlreadyRunning is returned when a run is requested while another
	// is in flight.
	ErrAlreadyRunning = errors.New("sync already running")

	// ErrCalendar marks failures of the calendar service itself, as
	// opposed to local storage errors.
	ErrCalendar = errors.New("calendar request failed")

	// ErrInvalidUpdate is returned for session updates that would break a
	// row invariant.
	ErrInvalidUpdate = errors.New("invalid session update")
)

// Store and Repository are the persistence the engine needs.
type (
	Store      = database.Store
	Repository = database.Repository
)

const (
	unidentifiedReason     = "Could not identify coach and player"
	unidentifiedSuggestion = "Verify format: 'Jane × John #C1 #P5' or add #C<id> #P<id> tags"
	timesSuggestion        = "Fix the event times in the calendar and run a manual sync"
	unreadableReason       = "The event times could not be read"

	dateLayout  = "02/01/2006"
	clockLayout = "15:04"
)

// EngineConfig holds the engine settings.
type EngineConfig struct {
	CalendarID    string
	Location      *time.Location
	WindowBack    time.Duration
	WindowForward time.Duration
	MaxMetadataID int64
	Rules         ImportRules
}

// EngineConfigFrom derives the engine settings from the application config.
func EngineConfigFrom(cfg *config.Config, loc *time.Location) EngineConfig {
	return EngineConfig{
		CalendarID:    cfg.Calendar.CalendarID,
		Location:      loc,
		WindowBack:    cfg.Sync.WindowBack(),
		WindowForward: cfg.Sync.WindowForward(),
		MaxMetadataID: cfg.Sync.MaxMetadataID,
		Rules:         RulesFromConfig(&cfg.Sync),
	}
}

// Engine implements reconciliation and push. It keeps no per-run state and
// is safe to reuse; Coordinator makes sure only one run executes at a time.
type Engine struct {
	repo   Repository
	cal    calendar.Client
	hasher *fingerprint.Hasher
	cfg    EngineConfig
	now    func() time.Time
}

// NewEngine creates an engine.
func NewEngine(repo Repository, cal calendar.Client, cfg EngineConfig) *Engine {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &Engine{
		repo:   repo,
		cal:    cal,
		hasher: fingerprint.New(cfg.Location),
		cfg:    cfg,
		now:    time.Now,
	}
}

// Hasher returns the fingerprint hasher bound to the local zone.
func (e *Engine) Hasher() *fingerprint.Hasher {
	return e.hasher
}

// Window returns the polling window for a run started at now.
func (e *Engine) Window(now time.Time) (start, end time.Time) {
	return now.Add(-e.cfg.WindowBack), now.Add(e.cfg.WindowForward)
}

// normalizeJob is a best-effort event rewrite applied after the run commits.
type normalizeJob struct {
	event   *models.CalendarEvent
	session *models.Session
	coach   string
	player  string
}

// Reconcile pulls the calendar window into the database. All writes share
// one transaction; any error rolls the run back and is returned.
func (e *Engine) Reconcile(ctx context.Context) (*models.SyncRun, error) {
	started := e.now()
	run := &models.SyncRun{Timestamp: started}
	winStart, winEnd := e.Window(started)
	log := logging.Ctx(ctx)

	events, err := e.cal.ListEvents(ctx, e.cfg.CalendarID, winStart, winEnd)
	if err != nil {
		return run, fmt.Errorf("%w: %w", ErrCalendar, err)
	}
	log.Debug().
		Int("events", len(events)).
		Time("window_start", winStart).
		Time("window_end", winEnd).
		Msg("Calendar events listed")

	var jobs []normalizeJob
	err = e.repo.WithTx(ctx, func(st Store) error {
		resolver, err := e.newResolver(ctx, st)
		if err != nil {
			return err
		}

		seen := make(map[string]bool, len(events))
		for i := range events {
			ev := &events[i]
			seen[ev.ID] = true
			if ev.Unreadable {
				run.Rejected = append(run.Rejected, models.RejectedEvent{
					Title: ev.Summary, Reason: unreadableReason, Suggestion: timesSuggestion,
				})
				continue
			}
			job, err := e.reconcileEvent(ctx, st, resolver, ev, run)
			if err != nil {
				return err
			}
			if job != nil {
				jobs = append(jobs, *job)
			}
		}

		deleted, err := e.detectDeletions(ctx, st, winStart, winEnd, seen)
		if err != nil {
			return err
		}
		run.Deleted = deleted
		return nil
	})
	if err != nil {
		return run, err
	}

	for _, job := range jobs {
		e.normalize(ctx, job, run)
	}

	run.Success = true
	run.Duration = e.now().Sub(started)
	log.Info().
		Int("imported", run.Imported).
		Int("updated", run.Updated).
		Int("deleted", run.Deleted).
		Int("rejected", len(run.Rejected)).
		Int("warnings", len(run.Warnings)).
		Dur("duration", run.Duration).
		Msg("Reconciliation finished")
	return run, nil
}

func (e *Engine) newResolver(ctx context.Context, st Store) (*identity.Resolver, error) {
	coaches, err := st.ActiveCoaches(ctx)
	if err != nil {
		return nil, err
	}
	players, err := st.ActivePlayers(ctx)
	if err != nil {
		return nil, err
	}
	return identity.NewResolver(
		identity.Directory{Coaches: coaches, Players: players},
		identity.Options{MaxMetadataID: e.cfg.MaxMetadataID},
	), nil
}

func (e *Engine) reconcileEvent(ctx context.Context, st Store, resolver *identity.Resolver, ev *models.CalendarEvent, run *models.SyncRun) (*normalizeJob, error) {
	s, err := e.matchLinked(ctx, st, ev)
	if err != nil {
		return nil, err
	}
	if s != nil {
		return nil, e.pull(ctx, st, s, ev, run)
	}

	pair, resolved := resolver.Resolve(ev)
	if resolved {
		metrics.IdentityResolutions.WithLabelValues(string(pair.Strategy)).Inc()
		s, err = e.matchFuzzy(ctx, st, ev, pair)
		if err != nil {
			return nil, err
		}
		if s != nil {
			return nil, e.pull(ctx, st, s, ev, run)
		}
	} else {
		metrics.IdentityResolutions.WithLabelValues("none").Inc()
	}

	return e.importEvent(ctx, st, ev, pair, resolved, run)
}

// matchLinked finds the row an event is already tied to, by metadata
// session_id first and stored link second. A metadata hit on a row linked
// to a different event is ignored: the event is a copy.
func (e *Engine) matchLinked(ctx context.Context, st Store, ev *models.CalendarEvent) (*models.Session, error) {
	if id, err := strconv.ParseInt(ev.Private[models.MetaSessionID], 10, 64); err == nil && id > 0 {
		s, err := st.GetSession(ctx, id)
		switch {
		case err == nil && (s.EventID() == ev.ID || !s.Linked()):
			return s, nil
		case err != nil && !errors.Is(err, database.ErrNotFound):
			return nil, err
		}
	}

	s, err := st.GetSessionByEventID(ctx, ev.ID)
	if errors.Is(err, database.ErrNotFound) {
		return nil, nil
	}
	return s, err
}

// matchFuzzy binds an unlinked row of the same pair on the event's local
// date. Several candidates are narrowed to the single one overlapping the
// event; anything else counts as no match.
func (e *Engine) matchFuzzy(ctx context.Context, st Store, ev *models.CalendarEvent, pair identity.Result) (*models.Session, error) {
	local := ev.Start.In(e.cfg.Location)
	dayStart := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, e.cfg.Location)
	dayEnd := dayStart.AddDate(0, 0, 1)

	candidates, err := st.FindUnlinkedOnDate(ctx, pair.CoachID, pair.PlayerID, dayStart, dayEnd)
	if err != nil {
		return nil, err
	}

	var match *models.Session
	switch len(candidates) {
	case 0:
		return nil, nil
	case 1:
		match = &candidates[0]
	default:
		for i := range candidates {
			c := &candidates[i]
			if c.StartTime.Before(ev.End) && ev.Start.Before(c.EndTime) {
				if match != nil {
					match = nil
					break
				}
				match = c
			}
		}
		if match == nil {
			logging.Ctx(ctx).Warn().
				Str("event_id", ev.ID).
				Int("candidates", len(candidates)).
				Msg("Ambiguous fuzzy match, treating event as new")
			return nil, nil
		}
	}

	return match, nil
}

// pull applies the calendar's view of an event to its row. A row that is
// not yet linked to the event is bound and always written. An event that
// does not end after it starts is rejected and the row is left as is.
func (e *Engine) pull(ctx context.Context, st Store, s *models.Session, ev *models.CalendarEvent, run *models.SyncRun) error {
	if !ev.End.After(ev.Start) {
		start, end := ev.Start.In(e.cfg.Location), ev.End.In(e.cfg.Location)
		run.Rejected = append(run.Rejected, models.RejectedEvent{
			Title:      ev.Summary,
			Date:       start.Format(dateLayout),
			Time:       start.Format(clockLayout) + "-" + end.Format(clockLayout),
			Reason:     "End time must be later than start time",
			Suggestion: timesSuggestion,
		})
		logging.Ctx(ctx).Warn().Int64("session_id", s.ID).Str("event_id", ev.ID).Msg("Calendar edit rejected, session left unchanged")
		return nil
	}

	bound := s.EventID() != ev.ID
	changed := bound
	if bound {
		link := ev.ID
		s.CalendarEventID = &link
	}

	if status := calendar.StatusFromColor(ev.ColorID); s.Status != status {
		s.Status = status
		changed = true
	}
	if fingerprint.Normalize(s.StartTime) != fingerprint.Normalize(ev.Start) {
		s.StartTime = ev.Start.UTC()
		changed = true
	}
	if fingerprint.Normalize(s.EndTime) != fingerprint.Normalize(ev.End) {
		s.EndTime = ev.End.UTC()
		changed = true
	}
	if s.NotesOrEmpty() != ev.Description {
		s.Notes = models.StringPtr(ev.Description)
		changed = true
	}
	if !changed {
		return nil
	}

	e.hasher.MarkSynced(s, e.now())
	if err := st.UpdateSession(ctx, s); err != nil {
		return fmt.Errorf("failed to update session %d from event %s: %w", s.ID, ev.ID, err)
	}
	run.Updated++
	logging.Ctx(ctx).Debug().Int64("session_id", s.ID).Str("event_id", ev.ID).Bool("bound", bound).Msg("Session updated from calendar")
	return nil
}

func (e *Engine) importEvent(ctx context.Context, st Store, ev *models.CalendarEvent, pair identity.Result, resolved bool, run *models.SyncRun) (*normalizeJob, error) {
	start, end := ev.Start.In(e.cfg.Location), ev.End.In(e.cfg.Location)
	date := start.Format(dateLayout)
	clock := start.Format(clockLayout) + "-" + end.Format(clockLayout)
	reject := func(reason, suggestion string) {
		run.Rejected = append(run.Rejected, models.RejectedEvent{
			Title: ev.Summary, Date: date, Time: clock, Reason: reason, Suggestion: suggestion,
		})
		logging.Ctx(ctx).Warn().Str("event_id", ev.ID).Str("title", ev.Summary).Str("reason", reason).Msg("Calendar event rejected")
	}

	reason, warnings := e.cfg.Rules.Check(start, end)
	if reason != "" {
		reject(reason, timesSuggestion)
		return nil, nil
	}
	if !resolved {
		reject(unidentifiedReason, unidentifiedSuggestion)
		return nil, nil
	}

	ok, err := st.CoachExists(ctx, pair.CoachID)
	if err != nil {
		return nil, err
	}
	if !ok {
		reject(fmt.Sprintf("Coach ID %d does not exist", pair.CoachID), "Check that the coach is registered in the application")
		return nil, nil
	}
	ok, err = st.PlayerExists(ctx, pair.PlayerID)
	if err != nil {
		return nil, err
	}
	if !ok {
		reject(fmt.Sprintf("Player ID %d does not exist", pair.PlayerID), "Check that the player is registered in the application")
		return nil, nil
	}

	link := ev.ID
	s := &models.Session{
		CoachID:         pair.CoachID,
		PlayerID:        pair.PlayerID,
		StartTime:       ev.Start.UTC(),
		EndTime:         ev.End.UTC(),
		Status:          calendar.StatusFromColor(ev.ColorID),
		Notes:           models.StringPtr(ev.Description),
		Source:          models.ProvenanceCalendar,
		CalendarEventID: &link,
	}
	e.hasher.MarkSynced(s, e.now())
	if err := st.CreateSession(ctx, s); err != nil {
		return nil, fmt.Errorf("failed to import event %s: %w", ev.ID, err)
	}
	run.Imported++
	run.Warn(ev.Summary, date, clock, warnings...)
	logging.Ctx(ctx).Info().
		Int64("session_id", s.ID).
		Str("event_id", ev.ID).
		Str("strategy", string(pair.Strategy)).
		Msg("Calendar event imported")

	if !calendar.NeedsNormalize(ev, s) {
		return nil, nil
	}
	coach, player, err := e.names(ctx, st, s)
	if err != nil {
		return nil, err
	}
	return &normalizeJob{event: ev, session: s, coach: coach, player: player}, nil
}

func (e *Engine) normalize(ctx context.Context, job normalizeJob, run *models.SyncRun) {
	body := calendar.NormalizePatch(job.session, job.coach, job.player)
	if err := e.cal.PatchEvent(ctx, e.cfg.CalendarID, job.event.ID, body); err != nil {
		start, end := job.event.Start.In(e.cfg.Location), job.event.End.In(e.cfg.Location)
		run.Warn(job.event.Summary, start.Format(dateLayout), start.Format(clockLayout)+"-"+end.Format(clockLayout),
			"Could not normalize calendar event: "+err.Error())
		logging.Ctx(ctx).Warn().Err(err).Str("event_id", job.event.ID).Msg("Failed to normalize imported event")
	}
}

// detectDeletions removes linked rows in the window whose event was not
// listed. The window start is inclusive and its end exclusive.
func (e *Engine) detectDeletions(ctx context.Context, st Store, winStart, winEnd time.Time, seen map[string]bool) (int, error) {
	linked, err := st.ListLinkedInWindow(ctx, winStart, winEnd)
	if err != nil {
		return 0, err
	}
	deleted := 0
	for i := range linked {
		s := &linked[i]
		if seen[s.EventID()] {
			continue
		}
		if err := st.DeleteSession(ctx, s.ID); err != nil {
			return deleted, fmt.Errorf("failed to delete session %d: %w", s.ID, err)
		}
		deleted++
		logging.Ctx(ctx).Info().Int64("session_id", s.ID).Str("event_id", s.EventID()).Msg("Session deleted, calendar event is gone")
	}
	return deleted, nil
}

// names returns the display names used in event titles. Missing
// participants fall back to their ids.
func (e *Engine) names(ctx context.Context, st Store, s *models.Session) (coach, player string, err error) {
	coach = "Coach " + strconv.FormatInt(s.CoachID, 10)
	player = "Player " + strconv.FormatInt(s.PlayerID, 10)

	c, err := st.GetCoach(ctx, s.CoachID)
	switch {
	case err == nil:
		coach = c.Name
	case !errors.Is(err, database.ErrNotFound):
		return "", "", err
	}
	p, err := st.GetPlayer(ctx, s.PlayerID)
	switch {
	case err == nil:
		player = p.Name
	case !errors.Is(err, database.ErrNotFound):
		return "", "", err
	}
	return coach, player, nil
}
