// Coachsync - Coaching Session Booking and Calendar Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/coachsync

package api

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/coachsync/internal/database"
	"github.com/tomtom215/coachsync/internal/logging"
	"github.com/tomtom215/coachsync/internal/models"
	"github.com/tomtom215/coachsync/internal/problems"
	syncpkg "github.com/tomtom215/coachsync/internal/sync"
)

func init() {
	logging.SetLogger(logging.NewTestLogger(io.Discard))
}

// fakeSync records coordinator calls. Func fields override the defaults.
type fakeSync struct {
	mu        sync.Mutex
	run       func(ctx context.Context) (*models.SyncRun, error)
	force     func(ctx context.Context) (*models.SyncRun, error)
	push      func(ctx context.Context) (int, int, error)
	running   bool
	periodic  bool
	interval  time.Duration
	lastStart time.Duration
}

func (f *fakeSync) RunReconciliation(ctx context.Context) (*models.SyncRun, error) {
	if f.run != nil {
		return f.run(ctx)
	}
	return &models.SyncRun{Success: true}, nil
}

func (f *fakeSync) ForceSync(ctx context.Context) (*models.SyncRun, error) {
	if f.force != nil {
		return f.force(ctx)
	}
	return &models.SyncRun{Success: true}, nil
}

func (f *fakeSync) PushAllPending(ctx context.Context) (int, int, error) {
	if f.push != nil {
		return f.push(ctx)
	}
	return 0, 0, nil
}

func (f *fakeSync) IsSyncRunning() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.running
}

func (f *fakeSync) StartPeriodic(interval time.Duration) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastStart = interval
	if f.periodic {
		return false
	}
	f.periodic = true
	f.interval = interval
	return true
}

func (f *fakeSync) StopPeriodic() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	was := f.periodic
	f.periodic = false
	return was
}

func (f *fakeSync) GetStatus() syncpkg.Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	return syncpkg.Status{Running: f.running, Periodic: f.periodic, Interval: f.interval}
}

// fakeSessions is a map-backed SessionManager.
type fakeSessions struct {
	mu        sync.Mutex
	rows      map[int64]*models.Session
	nextID    int64
	pushErr   error
	deleteErr error
	createErr error
	listFrom  time.Time
	listTo    time.Time
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{rows: map[int64]*models.Session{}, nextID: 1}
}

func (f *fakeSessions) Get(_ context.Context, id int64) (*models.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.rows[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	return s.Clone(), nil
}

func (f *fakeSessions) List(_ context.Context, from, to time.Time) ([]models.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listFrom, f.listTo = from, to
	var out []models.Session
	for _, s := range f.rows {
		out = append(out, *s)
	}
	return out, nil
}

func (f *fakeSessions) Create(_ context.Context, req *models.SessionCreate) (*models.Session, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.mu.Lock()
	s := &models.Session{
		ID: f.nextID, CoachID: req.CoachID, PlayerID: req.PlayerID,
		StartTime: req.StartTime, EndTime: req.EndTime,
		Status: models.StatusScheduled, Source: models.ProvenanceApp, IsDirty: true,
	}
	f.nextID++
	f.rows[s.ID] = s
	f.mu.Unlock()

	if f.pushErr != nil {
		return s, &syncpkg.PushError{Session: s, Err: f.pushErr}
	}
	s.IsDirty = false
	s.CalendarEventID = models.StringPtr("evt-" + s.StartTime.Format("150405"))
	return s, nil
}

func (f *fakeSessions) Update(_ context.Context, id int64, upd *models.SessionUpdate) (*models.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.rows[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	if _, err := upd.Apply(s); err != nil {
		return nil, errors.Join(syncpkg.ErrInvalidUpdate, err)
	}
	return s.Clone(), nil
}

func (f *fakeSessions) Delete(_ context.Context, id int64) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.rows[id]; !ok {
		return database.ErrNotFound
	}
	delete(f.rows, id)
	return nil
}

type fakeDirectory struct {
	coaches []models.Participant
	players []models.Participant
}

func (f *fakeDirectory) Coaches(context.Context) ([]models.Participant, error) { return f.coaches, nil }
func (f *fakeDirectory) Players(context.Context) ([]models.Participant, error) { return f.players, nil }

func (f *fakeDirectory) CreateCoach(_ context.Context, req *models.ParticipantCreate) (*models.Participant, error) {
	p := models.Participant{ID: int64(len(f.coaches) + 1), Name: req.Name, Active: true}
	f.coaches = append(f.coaches, p)
	return &p, nil
}

func (f *fakeDirectory) CreatePlayer(_ context.Context, req *models.ParticipantCreate) (*models.Participant, error) {
	if req.CoachID != 0 && req.CoachID > int64(len(f.coaches)) {
		return nil, syncpkg.ErrUnknownParticipant
	}
	p := models.Participant{ID: int64(len(f.players) + 1), Name: req.Name, Active: true}
	f.players = append(f.players, p)
	return &p, nil
}

type fakePinger struct{ err error }

func (f fakePinger) Ping(context.Context) error { return f.err }

type testEnv struct {
	sync      *fakeSync
	sessions  *fakeSessions
	directory *fakeDirectory
	problems  *problems.Store
	db        fakePinger
	handler   http.Handler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		sync:      &fakeSync{},
		sessions:  newFakeSessions(),
		directory: &fakeDirectory{},
		problems:  problems.NewStore(),
	}
	env.build(nil)
	return env
}

// build (re)creates the router. A nil config disables rate limiting.
func (e *testEnv) build(mwCfg *ChiMiddlewareConfig) {
	if mwCfg == nil {
		mwCfg = DefaultChiMiddlewareConfig()
		mwCfg.RateLimitDisabled = true
	}
	loc, _ := time.LoadLocation("Europe/Madrid")
	h := NewHandler(Dependencies{
		DB:        e.db,
		Sync:      e.sync,
		Problems:  e.problems,
		Sessions:  e.sessions,
		Directory: e.directory,
		Location:  loc,
		Version:   "test",
	})
	e.handler = NewRouter(h, NewChiMiddleware(mwCfg)).SetupChi()
}

type envelope struct {
	Status string           `json:"status"`
	Data   json.RawMessage  `json:"data"`
	Error  *models.APIError `json:"error"`
}

func (e *testEnv) do(t *testing.T, method, path, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)

	var env envelope
	if ct := rec.Header().Get("Content-Type"); ct == "application/json" {
		if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
			t.Fatalf("decode %s %s response: %v\n%s", method, path, err, rec.Body.String())
		}
	}
	return rec, env
}

func decodeData(t *testing.T, env envelope, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(env.Data, v); err != nil {
		t.Fatalf("decode data: %v (%s)", err, env.Data)
	}
}

func wantError(t *testing.T, rec *httptest.ResponseRecorder, env envelope, status int, code string) {
	t.Helper()
	if rec.Code != status {
		t.Errorf("status = %d, want %d (%s)", rec.Code, status, rec.Body.String())
	}
	if env.Error == nil || env.Error.Code != code {
		t.Errorf("error = %+v, want code %s", env.Error, code)
	}
	if env.Status != "error" {
		t.Errorf("envelope status = %q, want error", env.Status)
	}
}
