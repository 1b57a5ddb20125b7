// Coachsync - Coaching Session Booking and Calendar Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/coachsync

package sync

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tomtom215/coachsync/internal/config"
	"github.com/tomtom215/coachsync/internal/logging"
	"github.com/tomtom215/coachsync/internal/metrics"
	"github.com/tomtom215/coachsync/internal/models"
)

// Broadcast message types published to the websocket hub.
const (
	MessageSyncCompleted = "sync_completed"
	MessageSyncFailed    = "sync_failed"
	MessageSyncProblems  = "sync_problems"
)

// DefaultMinInterval is the floor applied to periodic intervals when the
// config does not set one.
const DefaultMinInterval = 5 * time.Minute

// WebSocketHub broadcasts run results to connected clients.
// Implemented by internal/websocket/Hub.
type WebSocketHub interface {
	BroadcastJSON(messageType string, data interface{})
}

// ProblemSink receives the result of every run.
// Implemented by internal/problems/Store.
type ProblemSink interface {
	Save(run *models.SyncRun)
	Clear()
}

// Status is the coordinator state exposed to the API.
type Status struct {
	Running         bool          `json:"running"`
	Periodic        bool          `json:"periodic"`
	Interval        time.Duration `json:"interval_ns"`
	LastSyncTime    *time.Time    `json:"last_sync_time,omitempty"`
	LastDuration    time.Duration `json:"last_duration_ns"`
	TotalSyncs      int64         `json:"total_syncs"`
	SuccessfulSyncs int64         `json:"successful_syncs"`
	FailedSyncs     int64         `json:"failed_syncs"`
	LastError       string        `json:"last_error,omitempty"`
	LastChanges     int           `json:"last_changes"`
}

// FailurePayload is the body of a sync_failed message.
type FailurePayload struct {
	Error     string    `json:"error"`
	Timestamp time.Time `json:"timestamp"`
}

// Coordinator owns the single-run guard, run statistics and the periodic
// scheduler. It is created once per process.
//
// Thread Safety:
//   - running: at most one run (reconcile, force, push) is in flight
//   - mu: protects stats
//   - periodicMu: protects the periodic scheduler state
type Coordinator struct {
	engine   *Engine
	problems ProblemSink
	hub      WebSocketHub
	cfg      config.SyncConfig

	running atomic.Bool

	mu    sync.RWMutex
	stats Status

	periodicMu sync.Mutex
	periodic   bool
	interval   time.Duration
	stopChan   chan struct{}
	wg         sync.WaitGroup
	baseCtx    context.Context
}

// NewCoordinator creates a coordinator. problems and hub may be nil.
func NewCoordinator(engine *Engine, problems ProblemSink, hub WebSocketHub, cfg config.SyncConfig) *Coordinator {
	if cfg.MinInterval <= 0 {
		cfg.MinInterval = DefaultMinInterval
	}
	return &Coordinator{
		engine:   engine,
		problems: problems,
		hub:      hub,
		cfg:      cfg,
		baseCtx:  context.Background(),
	}
}

// IsSyncRunning reports whether a run is in flight.
func (c *Coordinator) IsSyncRunning() bool {
	return c.running.Load()
}

// acquire claims the run guard or reports ErrAlreadyRunning.
func (c *Coordinator) acquire() error {
	if !c.running.CompareAndSwap(false, true) {
		metrics.RecordBusyRejection()
		return ErrAlreadyRunning
	}
	return nil
}

func (c *Coordinator) release() {
	c.running.Store(false)
}

// RunReconciliation runs one calendar-to-database pull.
func (c *Coordinator) RunReconciliation(ctx context.Context) (*models.SyncRun, error) {
	if err := c.acquire(); err != nil {
		return nil, err
	}
	defer c.release()

	ctx = logging.ContextWithRunID(ctx, logging.GenerateCorrelationID())
	run, err := c.engine.Reconcile(ctx)
	c.finish(ctx, run, err)
	return run, err
}

// ForceSync reconciles, completes past sessions, and pushes again when the
// sweep changed anything. The sweep must follow the pull: a swept row whose
// color patch failed stays completed and pending.
func (c *Coordinator) ForceSync(ctx context.Context) (*models.SyncRun, error) {
	if err := c.acquire(); err != nil {
		return nil, err
	}
	defer c.release()

	ctx = logging.ContextWithRunID(ctx, logging.GenerateCorrelationID())
	log := logging.Ctx(ctx)
	log.Info().Msg("Forced sync started")

	run, err := c.engine.Reconcile(ctx)
	if err != nil {
		c.finish(ctx, run, err)
		return run, err
	}

	swept, warnings, err := c.engine.SweepPastSessions(ctx)
	if err != nil {
		err = fmt.Errorf("past session sweep: %w", err)
		c.finish(ctx, run, err)
		return run, err
	}
	run.PastCompleted = swept
	run.Warn("Past session sweep", "", "", warnings...)

	if swept > 0 {
		created, updated, perr := c.engine.PushAllPending(ctx)
		run.Pushed = created + updated
		if perr != nil {
			log.Warn().Err(perr).Msg("Push after past session sweep had failures")
			run.Warn("Pending push", "", "", "Some sessions could not be pushed: "+perr.Error())
		}
	}

	c.finish(ctx, run, nil)
	return run, nil
}

// PushAllPending pushes every pending row under the run guard.
func (c *Coordinator) PushAllPending(ctx context.Context) (created, updated int, err error) {
	if err := c.acquire(); err != nil {
		return 0, 0, err
	}
	defer c.release()

	ctx = logging.ContextWithRunID(ctx, logging.GenerateCorrelationID())
	return c.engine.PushAllPending(ctx)
}

// finish records stats, metrics, problems and broadcasts for a run.
func (c *Coordinator) finish(ctx context.Context, run *models.SyncRun, err error) {
	now := time.Now()
	var duration time.Duration
	if run != nil {
		duration = run.Duration
		if duration == 0 {
			duration = now.Sub(run.Timestamp)
		}
	}

	c.mu.Lock()
	c.stats.TotalSyncs++
	c.stats.LastDuration = duration
	if err != nil {
		c.stats.FailedSyncs++
		c.stats.LastError = err.Error()
	} else {
		c.stats.SuccessfulSyncs++
		c.stats.LastError = ""
		c.stats.LastChanges = run.Changes()
		c.stats.LastSyncTime = &now
	}
	c.mu.Unlock()

	if err != nil {
		metrics.RecordSyncRun(duration, metrics.SyncResult{}, err)
		logging.Ctx(ctx).Error().Err(err).Msg("Sync run failed")
		if c.problems != nil {
			c.problems.Clear()
		}
		c.broadcast(MessageSyncFailed, FailurePayload{Error: err.Error(), Timestamp: now})
		return
	}

	metrics.RecordSyncRun(duration, metrics.SyncResult{
		Imported:      run.Imported,
		Updated:       run.Updated,
		Deleted:       run.Deleted,
		PastCompleted: run.PastCompleted,
		Pushed:        run.Pushed,
		Rejected:      len(run.Rejected),
		Warned:        len(run.Warnings),
		InSync:        run.InSync(),
	}, nil)
	if c.problems != nil {
		c.problems.Save(run)
	}
	c.broadcast(MessageSyncCompleted, run)
	if run.HasProblems() {
		c.broadcast(MessageSyncProblems, map[string]interface{}{
			"rejected": run.Rejected,
			"warnings": run.Warnings,
		})
	}
}

func (c *Coordinator) broadcast(messageType string, data interface{}) {
	if c.hub != nil {
		c.hub.BroadcastJSON(messageType, data)
	}
}

// StartPeriodic runs reconciliation every interval. Intervals below the
// configured minimum are raised to it. It returns false when periodic sync
// is already on.
func (c *Coordinator) StartPeriodic(interval time.Duration) bool {
	c.periodicMu.Lock()
	defer c.periodicMu.Unlock()
	if c.periodic {
		return false
	}
	if interval < c.cfg.MinInterval {
		logging.Warn().
			Dur("requested", interval).
			Dur("minimum", c.cfg.MinInterval).
			Msg("Periodic sync interval too low, using minimum")
		interval = c.cfg.MinInterval
	}

	c.periodic = true
	c.interval = interval
	c.stopChan = make(chan struct{})
	c.wg.Add(1)
	go c.periodicLoop(c.baseCtx, interval, c.stopChan)

	logging.Info().Dur("interval", interval).Msg("Periodic sync started")
	return true
}

// StopPeriodic stops the scheduler and waits for its goroutine. It returns
// false when periodic sync was not on.
func (c *Coordinator) StopPeriodic() bool {
	c.periodicMu.Lock()
	if !c.periodic {
		c.periodicMu.Unlock()
		return false
	}
	c.periodic = false
	close(c.stopChan)
	c.periodicMu.Unlock()

	c.wg.Wait()
	logging.Info().Msg("Periodic sync stopped")
	return true
}

func (c *Coordinator) periodicLoop(ctx context.Context, interval time.Duration, stop <-chan struct{}) {
	defer c.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-stop:
			return
		case <-ticker.C:
			if _, err := c.RunReconciliation(ctx); err != nil {
				if errors.Is(err, ErrAlreadyRunning) {
					logging.Debug().Msg("Periodic sync skipped, a run is in flight")
					continue
				}
				logging.Warn().Err(err).Msg("Periodic sync failed (will retry)")
			}
		}
	}
}

// GetStatus returns a snapshot of the coordinator state.
func (c *Coordinator) GetStatus() Status {
	c.mu.RLock()
	st := c.stats
	c.mu.RUnlock()

	c.periodicMu.Lock()
	st.Periodic = c.periodic
	if c.periodic {
		st.Interval = c.interval
	}
	c.periodicMu.Unlock()

	st.Running = c.running.Load()
	return st
}

// Start binds the scheduler to ctx and enables periodic sync when
// auto_start is set.
func (c *Coordinator) Start(ctx context.Context) error {
	c.periodicMu.Lock()
	c.baseCtx = ctx
	c.periodicMu.Unlock()

	if c.cfg.AutoStart {
		c.StartPeriodic(c.cfg.Interval)
	}
	logging.Info().Bool("auto_start", c.cfg.AutoStart).Msg("Sync coordinator started")
	return nil
}

// Stop halts periodic sync if it is running.
func (c *Coordinator) Stop() error {
	c.StopPeriodic()
	logging.Info().Msg("Sync coordinator stopped")
	return nil
}
