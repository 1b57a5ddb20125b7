// Coachsync - Coaching Session Booking and Calendar Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/coachsync

package sync

import (
	"context"
	"errors"
	"fmt"

	"github.com/tomtom215/coachsync/internal/calendar"
	"github.com/tomtom215/coachsync/internal/logging"
	"github.com/tomtom215/coachsync/internal/models"
)

// PushAction is what PushSession did with the calendar.
type PushAction string

const (
	PushSkipped PushAction = "skipped"
	PushCreated PushAction = "created"
	PushUpdated PushAction = "updated"
)

// PushSession writes s to the calendar and records the sync on its row.
//
// A linked row is patched; if its event is gone the link is dropped and a
// new event is created. A linked row with no real changes is skipped.
// On failure the row is left untouched, so it stays pending.
func (e *Engine) PushSession(ctx context.Context, st Store, s *models.Session) (PushAction, error) {
	if s.Linked() && !e.hasher.HasRealChanges(s) {
		return PushSkipped, nil
	}

	coach, player, err := e.names(ctx, st, s)
	if err != nil {
		return "", err
	}
	body := calendar.BuildEventBody(s, coach, player, e.cfg.Location)
	log := logging.Ctx(ctx).With().Int64("session_id", s.ID).Logger()

	action := PushUpdated
	if s.Linked() {
		err := e.cal.PatchEvent(ctx, e.cfg.CalendarID, s.EventID(), body)
		switch {
		case err == nil:
		case errors.Is(err, calendar.ErrNotFound):
			log.Warn().Str("event_id", s.EventID()).Msg("Linked calendar event is gone, recreating")
			s.CalendarEventID = nil
		default:
			return "", fmt.Errorf("%w: session %d: %w", ErrCalendar, s.ID, err)
		}
	}
	if !s.Linked() {
		id, err := e.cal.CreateEvent(ctx, e.cfg.CalendarID, body)
		if err != nil {
			return "", fmt.Errorf("%w: session %d: %w", ErrCalendar, s.ID, err)
		}
		s.CalendarEventID = &id
		action = PushCreated
	}

	e.hasher.MarkSynced(s, e.now())
	if err := st.UpdateSession(ctx, s); err != nil {
		return "", fmt.Errorf("failed to record sync for session %d: %w", s.ID, err)
	}
	log.Debug().Str("event_id", s.EventID()).Str("action", string(action)).Msg("Session pushed")
	return action, nil
}

// DeleteRemote removes the event linked to s. An event that is already gone
// counts as deleted.
func (e *Engine) DeleteRemote(ctx context.Context, s *models.Session) error {
	if !s.Linked() {
		return nil
	}
	err := e.cal.DeleteEvent(ctx, e.cfg.CalendarID, s.EventID())
	if err != nil && !errors.Is(err, calendar.ErrNotFound) {
		return fmt.Errorf("%w: %w", ErrCalendar, err)
	}
	return nil
}

// PushAllPending pushes every unlinked, dirty or never-hashed row. Each row
// is pushed and recorded on its own so a later failure cannot orphan events
// already created. Failures are collected and the loop continues.
func (e *Engine) PushAllPending(ctx context.Context) (created, updated int, err error) {
	pending, err := e.repo.ListPendingPush(ctx)
	if err != nil {
		return 0, 0, err
	}

	var errs []error
	for i := range pending {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}
		action, perr := e.PushSession(ctx, e.repo, &pending[i])
		if perr != nil {
			logging.Ctx(ctx).Error().Err(perr).Int64("session_id", pending[i].ID).Msg("Push failed")
			errs = append(errs, perr)
			continue
		}
		switch action {
		case PushCreated:
			created++
		case PushUpdated:
			updated++
		}
	}

	logging.Ctx(ctx).Info().
		Int("pending", len(pending)).
		Int("created", created).
		Int("updated", updated).
		Int("failed", len(errs)).
		Msg("Pending sessions pushed")
	return created, updated, errors.Join(errs...)
}
