// Coachsync - Coaching Session Booking and Calendar Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/coachsync

package sync

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/tomtom215/coachsync/internal/database"
	"github.com/tomtom215/coachsync/internal/models"
)

// memRepo is an in-memory Repository. WithTx restores a snapshot when fn
// fails, which is all the engine relies on.
type memRepo struct {
	mu       sync.Mutex
	sessions map[int64]models.Session
	coaches  map[int64]models.Participant
	players  map[int64]models.Participant
	nextID   int64

	// updateErr fails every UpdateSession when set.
	updateErr error
	txCount   int
}

func newMemRepo() *memRepo {
	return &memRepo{
		sessions: make(map[int64]models.Session),
		coaches:  make(map[int64]models.Participant),
		players:  make(map[int64]models.Participant),
	}
}

var _ database.Repository = (*memRepo)(nil)

func (r *memRepo) addCoach(id int64, name string) {
	r.coaches[id] = models.Participant{ID: id, Name: name, Active: true}
}

func (r *memRepo) addPlayer(id int64, name string) {
	r.players[id] = models.Participant{ID: id, Name: name, Active: true}
}

// insert stores s as-is and returns its id.
func (r *memRepo) insert(s models.Session) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s.ID == 0 {
		r.nextID++
		s.ID = r.nextID
	} else if s.ID > r.nextID {
		r.nextID = s.ID
	}
	r.sessions[s.ID] = *s.Clone()
	return s.ID
}

func (r *memRepo) session(id int64) (models.Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return s, false
	}
	return *s.Clone(), true
}

func (r *memRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

func (r *memRepo) all() []models.Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.filter(func(models.Session) bool { return true })
}

// filter must be called with mu held.
func (r *memRepo) filter(keep func(models.Session) bool) []models.Session {
	var out []models.Session
	for _, s := range r.sessions {
		if keep(s) {
			out = append(out, *s.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].StartTime.Equal(out[j].StartTime) {
			return out[i].ID < out[j].ID
		}
		return out[i].StartTime.Before(out[j].StartTime)
	})
	return out
}

func (r *memRepo) WithTx(_ context.Context, fn func(database.Store) error) error {
	r.mu.Lock()
	r.txCount++
	snapshot := make(map[int64]models.Session, len(r.sessions))
	for id, s := range r.sessions {
		snapshot[id] = *s.Clone()
	}
	nextID := r.nextID
	r.mu.Unlock()

	if err := fn(r); err != nil {
		r.mu.Lock()
		r.sessions = snapshot
		r.nextID = nextID
		r.mu.Unlock()
		return err
	}
	return nil
}

func (r *memRepo) GetSession(_ context.Context, id int64) (*models.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	return s.Clone(), nil
}

func (r *memRepo) GetSessionByEventID(_ context.Context, eventID string) (*models.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.sessions {
		if s.EventID() == eventID {
			return s.Clone(), nil
		}
	}
	return nil, database.ErrNotFound
}

func (r *memRepo) ListSessions(_ context.Context, from, to time.Time) ([]models.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.filter(func(s models.Session) bool {
		return (from.IsZero() || !s.StartTime.Before(from)) && (to.IsZero() || !s.StartTime.After(to))
	}), nil
}

func (r *memRepo) CreateSession(_ context.Context, s *models.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	s.ID = r.nextID
	s.CreatedAt = time.Now().UTC()
	r.sessions[s.ID] = *s.Clone()
	return nil
}

func (r *memRepo) UpdateSession(_ context.Context, s *models.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.updateErr != nil {
		return r.updateErr
	}
	if _, ok := r.sessions[s.ID]; !ok {
		return database.ErrNotFound
	}
	r.sessions[s.ID] = *s.Clone()
	return nil
}

func (r *memRepo) DeleteSession(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[id]; !ok {
		return database.ErrNotFound
	}
	delete(r.sessions, id)
	return nil
}

func (r *memRepo) FindUnlinkedOnDate(_ context.Context, coachID, playerID int64, dayStart, dayEnd time.Time) ([]models.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.filter(func(s models.Session) bool {
		return s.CoachID == coachID && s.PlayerID == playerID && !s.Linked() &&
			!s.StartTime.Before(dayStart) && s.StartTime.Before(dayEnd)
	}), nil
}

func (r *memRepo) ListLinkedInWindow(_ context.Context, from, to time.Time) ([]models.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.filter(func(s models.Session) bool {
		return s.Linked() && !s.StartTime.Before(from) && s.StartTime.Before(to)
	}), nil
}

func (r *memRepo) ListPendingPush(_ context.Context) ([]models.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.filter(func(s models.Session) bool {
		return !s.Linked() || s.IsDirty || s.SyncHash == nil
	}), nil
}

func (r *memRepo) ListOverdueScheduled(_ context.Context, now time.Time) ([]models.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.filter(func(s models.Session) bool {
		return s.Status == models.StatusScheduled && !s.EndTime.After(now)
	}), nil
}

func (r *memRepo) ActiveCoaches(_ context.Context) ([]models.Participant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return activeOf(r.coaches), nil
}

func (r *memRepo) ActivePlayers(_ context.Context) ([]models.Participant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return activeOf(r.players), nil
}

func activeOf(m map[int64]models.Participant) []models.Participant {
	var out []models.Participant
	for _, p := range m {
		if p.Active {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r *memRepo) GetCoach(_ context.Context, id int64) (*models.Participant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.coaches[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	return &p, nil
}

func (r *memRepo) GetPlayer(_ context.Context, id int64) (*models.Participant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.players[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	return &p, nil
}

func (r *memRepo) CoachExists(_ context.Context, id int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.coaches[id]
	return ok && p.Active, nil
}

func (r *memRepo) PlayerExists(_ context.Context, id int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.players[id]
	return ok && p.Active, nil
}

func (r *memRepo) CreateCoach(_ context.Context, p *models.Participant) error {
	return r.createParticipant(r.coaches, p)
}

func (r *memRepo) CreatePlayer(_ context.Context, p *models.Participant) error {
	return r.createParticipant(r.players, p)
}

func (r *memRepo) createParticipant(m map[int64]models.Participant, p *models.Participant) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p.Name == "" {
		return errors.New("name required")
	}
	p.ID = int64(len(m) + 1)
	for {
		if _, taken := m[p.ID]; !taken {
			break
		}
		p.ID++
	}
	p.Active = true
	m[p.ID] = *p
	return nil
}
