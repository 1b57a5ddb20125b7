// Coachsync - Coaching Session Booking and Calendar Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/coachsync

package supervisor

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/tomtom215/coachsync/internal/logging"
)

// StartStopper is satisfied by *sync.Coordinator.
type StartStopper interface {
	Start(ctx context.Context) error
	Stop() error
}

// CoordinatorService adapts the Start/Stop lifecycle of the sync
// coordinator to suture's Serve.
type CoordinatorService struct {
	manager StartStopper
	name    string
}

// NewCoordinatorService wraps manager.
func NewCoordinatorService(manager StartStopper) *CoordinatorService {
	return &CoordinatorService{manager: manager, name: "sync-coordinator"}
}

// Serve starts the coordinator, blocks until ctx is done and stops it.
func (s *CoordinatorService) Serve(ctx context.Context) error {
	if err := s.manager.Start(ctx); err != nil {
		return fmt.Errorf("sync coordinator start failed: %w", err)
	}

	<-ctx.Done()

	if err := s.manager.Stop(); err != nil {
		return fmt.Errorf("sync coordinator stop failed: %w", err)
	}
	return ctx.Err()
}

func (s *CoordinatorService) String() string { return s.name }

// ContextRunner is satisfied by *websocket.Hub.
type ContextRunner interface {
	RunWithContext(ctx context.Context) error
}

// HubService runs the websocket hub under supervision.
type HubService struct {
	hub  ContextRunner
	name string
}

// NewHubService wraps hub.
func NewHubService(hub ContextRunner) *HubService {
	return &HubService{hub: hub, name: "websocket-hub"}
}

func (h *HubService) Serve(ctx context.Context) error {
	return h.hub.RunWithContext(ctx)
}

func (h *HubService) String() string { return h.name }

// HTTPServer is satisfied by *http.Server.
type HTTPServer interface {
	ListenAndServe() error
	Shutdown(ctx context.Context) error
}

// HTTPServerService runs an HTTP server and drains it on shutdown.
type HTTPServerService struct {
	server          HTTPServer
	shutdownTimeout time.Duration
	name            string
}

// NewHTTPServerService wraps server. A non-positive timeout means 10s.
func NewHTTPServerService(server HTTPServer, shutdownTimeout time.Duration) *HTTPServerService {
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	return &HTTPServerService{server: server, shutdownTimeout: shutdownTimeout, name: "http-server"}
}

// Serve returns the listener error if the server fails on its own, or
// ctx.Err() after a graceful shutdown.
func (h *HTTPServerService) Serve(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		if err := h.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), h.shutdownTimeout)
		defer cancel()
		if err := h.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http server shutdown failed: %w", err)
		}
		<-errCh
		return ctx.Err()
	}
}

func (h *HTTPServerService) String() string { return h.name }

// Evicter is satisfied by *problems.Store.
type Evicter interface {
	EvictOlderThan(hours int) bool
}

// ProblemEvictionService drops the problem snapshot once it is older than
// maxAgeHours, checking every interval.
type ProblemEvictionService struct {
	store       Evicter
	maxAgeHours int
	interval    time.Duration
	name        string
}

// NewProblemEvictionService wraps store. Non-positive values fall back to
// 24 hours and a check every 15 minutes.
func NewProblemEvictionService(store Evicter, maxAgeHours int, interval time.Duration) *ProblemEvictionService {
	if maxAgeHours <= 0 {
		maxAgeHours = 24
	}
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	return &ProblemEvictionService{
		store:       store,
		maxAgeHours: maxAgeHours,
		interval:    interval,
		name:        "problem-eviction",
	}
}

func (p *ProblemEvictionService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if p.store.EvictOlderThan(p.maxAgeHours) {
				logging.Info().Int("max_age_hours", p.maxAgeHours).Msg("Evicted stale sync problems")
			}
		}
	}
}

func (p *ProblemEvictionService) String() string { return p.name }
