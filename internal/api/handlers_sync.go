// Coachsync - Coaching Session Booking and Calendar Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/coachsync

package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/tomtom215/coachsync/internal/logging"
	"github.com/tomtom215/coachsync/internal/models"
)

// SyncStatus handles GET /api/v1/sync/status.
func (h *Handler) SyncStatus(w http.ResponseWriter, r *http.Request) {
	respondSuccess(w, http.StatusOK, h.sync.GetStatus(), time.Now())
}

// SyncRun handles POST /api/v1/sync/run.
func (h *Handler) SyncRun(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	run, err := h.sync.RunReconciliation(r.Context())
	if err != nil {
		respondErr(w, err)
		return
	}
	respondSuccess(w, http.StatusOK, triggerResponse(run), start)
}

// SyncForce handles POST /api/v1/sync/force.
func (h *Handler) SyncForce(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	run, err := h.sync.ForceSync(r.Context())
	if err != nil {
		respondErr(w, err)
		return
	}
	respondSuccess(w, http.StatusOK, triggerResponse(run), start)
}

func triggerResponse(run *models.SyncRun) models.SyncTriggerResponse {
	resp := models.SyncTriggerResponse{Run: run, InSync: run.InSync()}
	if resp.InSync {
		resp.Message = "Already in sync"
		return resp
	}
	resp.Message = fmt.Sprintf("Imported %d, updated %d, deleted %d, completed %d, pushed %d",
		run.Imported, run.Updated, run.Deleted, run.PastCompleted, run.Pushed)
	if n := len(run.Rejected) + len(run.Warnings); n > 0 {
		resp.Message += fmt.Sprintf("; %d event(s) need attention", n)
	}
	return resp
}

// SyncPush handles POST /api/v1/sync/push. Sessions pushed before a failure
// stay pushed; the counts are not reported on error.
func (h *Handler) SyncPush(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	created, updated, err := h.sync.PushAllPending(r.Context())
	if err != nil {
		respondErr(w, err)
		return
	}
	respondSuccess(w, http.StatusOK, models.PushResponse{Created: created, Updated: updated}, start)
}

// PeriodicStart handles POST /api/v1/sync/periodic/start.
func (h *Handler) PeriodicStart(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	var req models.PeriodicRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	changed := h.sync.StartPeriodic(time.Duration(req.IntervalMinutes) * time.Minute)
	status := h.sync.GetStatus()
	logging.Ctx(r.Context()).Info().Bool("changed", changed).Dur("interval", status.Interval).Msg("Periodic sync start requested")
	respondSuccess(w, http.StatusOK, models.PeriodicResponse{Changed: changed, Interval: status.Interval.String()}, start)
}

// PeriodicStop handles POST /api/v1/sync/periodic/stop.
func (h *Handler) PeriodicStop(w http.ResponseWriter, r *http.Request) {
	respondSuccess(w, http.StatusOK, models.PeriodicResponse{Changed: h.sync.StopPeriodic()}, time.Now())
}

// ProblemsGet handles GET /api/v1/sync/problems. Data is null when the last
// run reported nothing.
func (h *Handler) ProblemsGet(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	snap, ok := h.problems.Get()
	if !ok {
		respondSuccess(w, http.StatusOK, nil, start)
		return
	}
	respondSuccess(w, http.StatusOK, snap, start)
}

// ProblemsClear handles DELETE /api/v1/sync/problems.
func (h *Handler) ProblemsClear(w http.ResponseWriter, r *http.Request) {
	h.problems.Clear()
	respondSuccess(w, http.StatusOK, map[string]bool{"cleared": true}, time.Now())
}

// ProblemsSeen handles POST /api/v1/sync/problems/seen.
func (h *Handler) ProblemsSeen(w http.ResponseWriter, r *http.Request) {
	respondSuccess(w, http.StatusOK, map[string]bool{"changed": h.problems.MarkSeen()}, time.Now())
}

// ProblemsEvict handles POST /api/v1/sync/problems/evict?hours=N.
func (h *Handler) ProblemsEvict(w http.ResponseWriter, r *http.Request) {
	hours, err := getIntParam(r, "hours", 24)
	if err != nil || hours <= 0 {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "hours must be a positive integer", nil)
		return
	}
	respondSuccess(w, http.StatusOK, map[string]bool{"evicted": h.problems.EvictOlderThan(hours)}, time.Now())
}
