// Coachsync - Coaching Session Booking and Calendar Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/coachsync

package sync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tomtom215/coachsync/internal/logging"
	"github.com/tomtom215/coachsync/internal/models"
)

// ErrUnknownParticipant is returned when a booking names a coach or player
// that does not exist or is inactive.
var ErrUnknownParticipant = errors.New("unknown coach or player")

// PushError reports a session that was saved locally but could not be
// written to the calendar. The row stays dirty for the next push.
type PushError struct {
	Session *models.Session
	Err     error
}

func (e *PushError) Error() string {
	return fmt.Sprintf("session %d saved but not pushed: %v", e.Session.ID, e.Err)
}

func (e *PushError) Unwrap() error {
	return e.Err
}

// SessionService is the write path for locally booked sessions. Every
// change is committed first and pushed to the calendar right after.
type SessionService struct {
	repo   Repository
	engine *Engine
}

// NewSessionService creates a session service.
func NewSessionService(repo Repository, engine *Engine) *SessionService {
	return &SessionService{repo: repo, engine: engine}
}

// Get returns one session.
func (s *SessionService) Get(ctx context.Context, id int64) (*models.Session, error) {
	return s.repo.GetSession(ctx, id)
}

// List returns sessions starting in [from, to]. Zero bounds are open.
func (s *SessionService) List(ctx context.Context, from, to time.Time) ([]models.Session, error) {
	return s.repo.ListSessions(ctx, from, to)
}

// Create books a session and pushes it. A push failure is returned as a
// *PushError together with the saved session.
func (s *SessionService) Create(ctx context.Context, req *models.SessionCreate) (*models.Session, error) {
	if !req.StartTime.Before(req.EndTime) {
		return nil, fmt.Errorf("%w: start_time must be before end_time", ErrInvalidUpdate)
	}
	if err := s.checkParticipants(ctx, req.CoachID, req.PlayerID); err != nil {
		return nil, err
	}

	now := time.Now()
	sess := &models.Session{
		CoachID:   req.CoachID,
		PlayerID:  req.PlayerID,
		StartTime: req.StartTime.UTC(),
		EndTime:   req.EndTime.UTC(),
		Status:    models.StatusScheduled,
		Notes:     models.StringPtr(req.Notes),
		Source:    models.ProvenanceApp,
		IsDirty:   true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.CreateSession(ctx, sess); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	logging.Ctx(ctx).Info().Int64("session_id", sess.ID).Msg("Session created")

	return sess, s.push(ctx, sess)
}

// Update applies an allow-listed change and pushes the row. An update that
// changes nothing is not pushed.
func (s *SessionService) Update(ctx context.Context, id int64, upd *models.SessionUpdate) (*models.Session, error) {
	sess, err := s.repo.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}
	changed, err := upd.Apply(sess)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidUpdate, err)
	}
	if !changed {
		return sess, nil
	}

	sess.IsDirty = true
	sess.UpdatedAt = time.Now()
	if err := s.repo.UpdateSession(ctx, sess); err != nil {
		return nil, fmt.Errorf("failed to update session %d: %w", id, err)
	}
	logging.Ctx(ctx).Info().Int64("session_id", id).Msg("Session updated")

	return sess, s.push(ctx, sess)
}

// Delete removes the calendar event and then the row. A calendar failure
// leaves the row in place.
func (s *SessionService) Delete(ctx context.Context, id int64) error {
	sess, err := s.repo.GetSession(ctx, id)
	if err != nil {
		return err
	}
	if err := s.engine.DeleteRemote(ctx, sess); err != nil {
		return err
	}
	if err := s.repo.DeleteSession(ctx, id); err != nil {
		return fmt.Errorf("failed to delete session %d: %w", id, err)
	}
	logging.Ctx(ctx).Info().Int64("session_id", id).Str("event_id", sess.EventID()).Msg("Session deleted")
	return nil
}

func (s *SessionService) push(ctx context.Context, sess *models.Session) error {
	if _, err := s.engine.PushSession(ctx, s.repo, sess); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Int64("session_id", sess.ID).Msg("Session saved but push failed")
		return &PushError{Session: sess, Err: err}
	}
	return nil
}

func (s *SessionService) checkParticipants(ctx context.Context, coachID, playerID int64) error {
	ok, err := s.repo.CoachExists(ctx, coachID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: coach %d", ErrUnknownParticipant, coachID)
	}
	ok, err = s.repo.PlayerExists(ctx, playerID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: player %d", ErrUnknownParticipant, playerID)
	}
	return nil
}

// Directory exposes coach and player management to the API.
type Directory struct {
	repo Repository
}

// NewDirectory creates a directory service.
func NewDirectory(repo Repository) *Directory {
	return &Directory{repo: repo}
}

func (d *Directory) Coaches(ctx context.Context) ([]models.Participant, error) {
	return d.repo.ActiveCoaches(ctx)
}

func (d *Directory) Players(ctx context.Context) ([]models.Participant, error) {
	return d.repo.ActivePlayers(ctx)
}

func (d *Directory) CreateCoach(ctx context.Context, req *models.ParticipantCreate) (*models.Participant, error) {
	p := &models.Participant{Name: req.Name, Email: models.StringPtr(req.Email)}
	if err := d.repo.CreateCoach(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to create coach: %w", err)
	}
	return p, nil
}

// CreatePlayer adds a player. A non-zero CoachID must name an active coach.
func (d *Directory) CreatePlayer(ctx context.Context, req *models.ParticipantCreate) (*models.Participant, error) {
	p := &models.Participant{Name: req.Name, Email: models.StringPtr(req.Email)}
	if req.CoachID > 0 {
		ok, err := d.repo.CoachExists(ctx, req.CoachID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("%w: coach %d", ErrUnknownParticipant, req.CoachID)
		}
		coachID := req.CoachID
		p.CoachID = &coachID
	}
	if err := d.repo.CreatePlayer(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to create player: %w", err)
	}
	return p, nil
}
