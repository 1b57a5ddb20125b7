// Coachsync - Coaching Session Booking and Calendar Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/coachsync

package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/tomtom215/coachsync/internal/models"
)

const sessionColumns = `id, coach_id, player_id, start_time, end_time, status, notes, source,
	calendar_event_id, sync_hash, is_dirty, last_sync_at, version, created_at, updated_at`

func (r *Repo) GetSession(ctx context.Context, id int64) (*models.Session, error) {
	var s models.Session
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE id = $1`
	if err := sqlx.GetContext(ctx, r.q, &s, query, id); err != nil {
		return nil, notFound(err, fmt.Sprintf("session %d", id))
	}
	return &s, nil
}

func (r *Repo) GetSessionByEventID(ctx context.Context, eventID string) (*models.Session, error) {
	var s models.Session
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE calendar_event_id = $1 LIMIT 1`
	if err := sqlx.GetContext(ctx, r.q, &s, query, eventID); err != nil {
		return nil, notFound(err, "session for event "+eventID)
	}
	return &s, nil
}

// ListSessions returns sessions starting in [from, to). Zero bounds are open.
func (r *Repo) ListSessions(ctx context.Context, from, to time.Time) ([]models.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE 1=1`
	var args []interface{}
	if !from.IsZero() {
		args = append(args, from)
		query += fmt.Sprintf(" AND start_time >= $%d", len(args))
	}
	if !to.IsZero() {
		args = append(args, to)
		query += fmt.Sprintf(" AND start_time < $%d", len(args))
	}
	query += " ORDER BY start_time, id"
	return r.selectSessions(ctx, "list sessions", query, args...)
}

// CreateSession inserts s and sets its ID and CreatedAt.
func (r *Repo) CreateSession(ctx context.Context, s *models.Session) error {
	now := time.Now().UTC()
	if s.UpdatedAt.IsZero() {
		s.UpdatedAt = now
	}
	query := `INSERT INTO sessions (coach_id, player_id, start_time, end_time, status, notes, source,
		calendar_event_id, sync_hash, is_dirty, last_sync_at, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING id, created_at`
	row := r.q.QueryRowxContext(ctx, query,
		s.CoachID, s.PlayerID, s.StartTime.UTC(), s.EndTime.UTC(), string(s.Status), s.Notes, string(s.Source),
		s.CalendarEventID, s.SyncHash, s.IsDirty, s.LastSyncAt, s.Version, now, s.UpdatedAt)
	if err := row.Scan(&s.ID, &s.CreatedAt); err != nil {
		return fmt.Errorf("failed to insert session: %w", err)
	}
	return nil
}

// UpdateSession writes every mutable column of s.
func (r *Repo) UpdateSession(ctx context.Context, s *models.Session) error {
	query := `UPDATE sessions SET coach_id = $1, player_id = $2, start_time = $3, end_time = $4,
		status = $5, notes = $6, source = $7, calendar_event_id = $8, sync_hash = $9,
		is_dirty = $10, last_sync_at = $11, version = $12, updated_at = $13
		WHERE id = $14`
	res, err := r.q.ExecContext(ctx, query,
		s.CoachID, s.PlayerID, s.StartTime.UTC(), s.EndTime.UTC(), string(s.Status), s.Notes, string(s.Source),
		s.CalendarEventID, s.SyncHash, s.IsDirty, s.LastSyncAt, s.Version, s.UpdatedAt.UTC(), s.ID)
	if err != nil {
		return fmt.Errorf("failed to update session %d: %w", s.ID, err)
	}
	return expectOne(res, fmt.Sprintf("session %d", s.ID))
}

func (r *Repo) DeleteSession(ctx context.Context, id int64) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM sessions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete session %d: %w", id, err)
	}
	return expectOne(res, fmt.Sprintf("session %d", id))
}

func (r *Repo) FindUnlinkedOnDate(ctx context.Context, coachID, playerID int64, dayStart, dayEnd time.Time) ([]models.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions
		WHERE coach_id = $1 AND player_id = $2
		AND (calendar_event_id IS NULL OR calendar_event_id = '')
		AND start_time >= $3 AND start_time < $4
		ORDER BY start_time, id`
	return r.selectSessions(ctx, "find unlinked sessions", query, coachID, playerID, dayStart.UTC(), dayEnd.UTC())
}

func (r *Repo) ListLinkedInWindow(ctx context.Context, from, to time.Time) ([]models.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions
		WHERE calendar_event_id IS NOT NULL AND calendar_event_id <> ''
		AND start_time >= $1 AND start_time < $2
		ORDER BY start_time, id`
	return r.selectSessions(ctx, "list linked sessions", query, from.UTC(), to.UTC())
}

func (r *Repo) ListPendingPush(ctx context.Context) ([]models.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions
		WHERE calendar_event_id IS NULL OR calendar_event_id = '' OR is_dirty OR sync_hash IS NULL
		ORDER BY start_time, id`
	return r.selectSessions(ctx, "list pending sessions", query)
}

func (r *Repo) ListOverdueScheduled(ctx context.Context, now time.Time) ([]models.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions
		WHERE status = $1 AND end_time <= $2
		ORDER BY start_time, id`
	return r.selectSessions(ctx, "list overdue sessions", query, string(models.StatusScheduled), now.UTC())
}

func (r *Repo) selectSessions(ctx context.Context, op, query string, args ...interface{}) ([]models.Session, error) {
	var out []models.Session
	if err := sqlx.SelectContext(ctx, r.q, &out, query, args...); err != nil {
		return nil, fmt.Errorf("failed to %s: %w", op, err)
	}
	return out, nil
}
