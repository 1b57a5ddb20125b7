// Coachsync - Coaching Session Booking and Calendar Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/coachsync

package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/coachsync/internal/models"
	syncpkg "github.com/tomtom215/coachsync/internal/sync"
	"github.com/tomtom215/coachsync/internal/validation"
)

func sessionID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		respondError(w, http.StatusBadRequest, validation.ErrorCode, "id must be a positive integer", nil)
		return 0, false
	}
	return id, true
}

// respondSessionWrite reports a saved session. A *sync.PushError still
// answers with the saved row: the write happened, only the push is pending.
func respondSessionWrite(w http.ResponseWriter, status int, s *models.Session, err error, start time.Time) {
	var pushErr *syncpkg.PushError
	switch {
	case err == nil:
		respondSuccess(w, status, models.SessionResponse{Session: s, Pushed: true}, start)
	case errors.As(err, &pushErr):
		respondSuccess(w, status, models.SessionResponse{Session: pushErr.Session, PushError: pushErr.Err.Error()}, start)
	default:
		respondErr(w, err)
	}
}

// SessionsList handles GET /api/v1/sessions?from=&to=.
func (h *Handler) SessionsList(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	from, err := parseTimeParam(r, "from", h.loc, false)
	if err != nil {
		respondError(w, http.StatusBadRequest, validation.ErrorCode, err.Error(), nil)
		return
	}
	to, err := parseTimeParam(r, "to", h.loc, true)
	if err != nil {
		respondError(w, http.StatusBadRequest, validation.ErrorCode, err.Error(), nil)
		return
	}
	if !from.IsZero() && !to.IsZero() && to.Before(from) {
		respondError(w, http.StatusBadRequest, validation.ErrorCode, "to must not be before from", nil)
		return
	}

	sessions, err := h.sessions.List(r.Context(), from, to)
	if err != nil {
		respondErr(w, err)
		return
	}
	if sessions == nil {
		sessions = []models.Session{}
	}
	respondSuccess(w, http.StatusOK, sessions, start)
}

// SessionsCreate handles POST /api/v1/sessions.
func (h *Handler) SessionsCreate(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	var req models.SessionCreate
	if !decodeJSON(w, r, &req) {
		return
	}
	s, err := h.sessions.Create(r.Context(), &req)
	respondSessionWrite(w, http.StatusCreated, s, err, start)
}

// SessionsGet handles GET /api/v1/sessions/{id}.
func (h *Handler) SessionsGet(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	id, ok := sessionID(w, r)
	if !ok {
		return
	}
	s, err := h.sessions.Get(r.Context(), id)
	if err != nil {
		respondErr(w, err)
		return
	}
	respondSuccess(w, http.StatusOK, s, start)
}

// SessionsUpdate handles PATCH /api/v1/sessions/{id}.
func (h *Handler) SessionsUpdate(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	id, ok := sessionID(w, r)
	if !ok {
		return
	}
	var upd models.SessionUpdate
	if !decodeJSON(w, r, &upd) {
		return
	}
	if upd.Empty() {
		respondError(w, http.StatusBadRequest, validation.ErrorCode, "Update must change at least one field", nil)
		return
	}
	s, err := h.sessions.Update(r.Context(), id, &upd)
	respondSessionWrite(w, http.StatusOK, s, err, start)
}

// SessionsDelete handles DELETE /api/v1/sessions/{id}.
func (h *Handler) SessionsDelete(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	id, ok := sessionID(w, r)
	if !ok {
		return
	}
	if err := h.sessions.Delete(r.Context(), id); err != nil {
		respondErr(w, err)
		return
	}
	respondSuccess(w, http.StatusOK, map[string]int64{"deleted": id}, start)
}

func (h *Handler) listParticipants(list func(context.Context) ([]models.Participant, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		people, err := list(r.Context())
		if err != nil {
			respondErr(w, err)
			return
		}
		if people == nil {
			people = []models.Participant{}
		}
		respondSuccess(w, http.StatusOK, people, start)
	}
}

func (h *Handler) createParticipant(create func(context.Context, *models.ParticipantCreate) (*models.Participant, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		var req models.ParticipantCreate
		if !decodeJSON(w, r, &req) {
			return
		}
		p, err := create(r.Context(), &req)
		if err != nil {
			respondErr(w, err)
			return
		}
		respondSuccess(w, http.StatusCreated, p, start)
	}
}

// CoachesList handles GET /api/v1/coaches.
func (h *Handler) CoachesList(w http.ResponseWriter, r *http.Request) {
	h.listParticipants(h.directory.Coaches)(w, r)
}

// CoachesCreate handles POST /api/v1/coaches.
func (h *Handler) CoachesCreate(w http.ResponseWriter, r *http.Request) {
	h.createParticipant(h.directory.CreateCoach)(w, r)
}

// PlayersList handles GET /api/v1/players.
func (h *Handler) PlayersList(w http.ResponseWriter, r *http.Request) {
	h.listParticipants(h.directory.Players)(w, r)
}

// PlayersCreate handles POST /api/v1/players. A coach_id, when given, must
// name an active coach.
func (h *Handler) PlayersCreate(w http.ResponseWriter, r *http.Request) {
	h.createParticipant(h.directory.CreatePlayer)(w, r)
}
