// Coachsync - Coaching Session Booking and Calendar Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/coachsync

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tomtom215/coachsync/internal/models"
	"github.com/tomtom215/coachsync/internal/problems"
	syncpkg "github.com/tomtom215/coachsync/internal/sync"
	ws "github.com/tomtom215/coachsync/internal/websocket"
)

// SyncController is the coordinator surface the API drives.
// Implemented by *sync.Coordinator.
type SyncController interface {
	RunReconciliation(ctx context.Context) (*models.SyncRun, error)
	ForceSync(ctx context.Context) (*models.SyncRun, error)
	PushAllPending(ctx context.Context) (created, updated int, err error)
	IsSyncRunning() bool
	StartPeriodic(interval time.Duration) bool
	StopPeriodic() bool
	GetStatus() syncpkg.Status
}

// ProblemStore is implemented by *problems.Store.
type ProblemStore interface {
	Get() (problems.Snapshot, bool)
	Clear()
	MarkSeen() bool
	EvictOlderThan(hours int) bool
}

// SessionManager is implemented by *sync.SessionService.
type SessionManager interface {
	Get(ctx context.Context, id int64) (*models.Session, error)
	List(ctx context.Context, from, to time.Time) ([]models.Session, error)
	Create(ctx context.Context, req *models.SessionCreate) (*models.Session, error)
	Update(ctx context.Context, id int64, upd *models.SessionUpdate) (*models.Session, error)
	Delete(ctx context.Context, id int64) error
}

// ParticipantDirectory is implemented by *sync.Directory.
type ParticipantDirectory interface {
	Coaches(ctx context.Context) ([]models.Participant, error)
	Players(ctx context.Context) ([]models.Participant, error)
	CreateCoach(ctx context.Context, req *models.ParticipantCreate) (*models.Participant, error)
	CreatePlayer(ctx context.Context, req *models.ParticipantCreate) (*models.Participant, error)
}

// Pinger is implemented by *database.DB.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Dependencies groups everything the handlers call. Hub may be nil, in
// which case /ws answers 503.
type Dependencies struct {
	DB             Pinger
	Sync           SyncController
	Problems       ProblemStore
	Sessions       SessionManager
	Directory      ParticipantDirectory
	Hub            *ws.Hub
	AllowedOrigins []string
	Location       *time.Location
	Version        string
}

// Handler holds the HTTP handlers.
//
// Handler methods are split across files:
//   - handlers.go: Handler, constructor, health, websocket
//   - handlers_sync.go: coordinator and problem store endpoints
//   - handlers_sessions.go: session and directory endpoints
type Handler struct {
	db        Pinger
	sync      SyncController
	problems  ProblemStore
	sessions  SessionManager
	directory ParticipantDirectory
	hub       *ws.Hub
	upgrader  websocket.Upgrader
	loc       *time.Location
	version   string
	startTime time.Time
}

// NewHandler creates the handler set.
func NewHandler(deps Dependencies) *Handler {
	loc := deps.Location
	if loc == nil {
		loc = time.Local
	}
	return &Handler{
		db:        deps.DB,
		sync:      deps.Sync,
		problems:  deps.Problems,
		sessions:  deps.Sessions,
		directory: deps.Directory,
		hub:       deps.Hub,
		upgrader:  ws.Upgrader(deps.AllowedOrigins),
		loc:       loc,
		version:   deps.Version,
		startTime: time.Now(),
	}
}

// Health reports liveness. A failed database ping marks the service
// degraded but still answers 200 so the process is not restarted for it.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	dbOK := h.db != nil && h.db.Ping(r.Context()) == nil

	status := "healthy"
	if !dbOK {
		status = "degraded"
	}
	respondSuccess(w, http.StatusOK, models.HealthResponse{
		Status:        status,
		Version:       h.version,
		Database:      dbOK,
		SyncRunning:   h.sync != nil && h.sync.IsSyncRunning(),
		UptimeSeconds: time.Since(h.startTime).Seconds(),
	}, start)
}

// WebSocket upgrades to the sync result feed.
func (h *Handler) WebSocket(w http.ResponseWriter, r *http.Request) {
	if h.hub == nil {
		respondError(w, http.StatusServiceUnavailable, "WEBSOCKET_UNAVAILABLE", "Realtime updates are disabled", nil)
		return
	}
	ws.ServeWS(h.hub, &h.upgrader, w, r)
}
