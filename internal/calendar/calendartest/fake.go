// Coachsync - Coaching Session Booking and Calendar Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/coachsync

// Package calendartest provides an in-memory calendar.Client for tests.
package calendartest

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/tomtom215/coachsync/internal/calendar"
	"github.com/tomtom215/coachsync/internal/models"
)

// Fake is an in-memory calendar. The *Err fields inject failures; a
// non-nil hook replaces the default behavior of that call.
type Fake struct {
	mu     sync.Mutex
	events map[string]models.CalendarEvent
	nextID int
	calls  []string

	ListErr   error
	CreateErr error
	PatchErr  error
	DeleteErr error

	// OnList runs inside ListEvents before events are collected.
	OnList func(ctx context.Context)
}

// New returns an empty fake calendar.
func New() *Fake {
	return &Fake{events: make(map[string]models.CalendarEvent)}
}

// Put stores ev as if it had been created outside the application.
func (f *Fake) Put(ev models.CalendarEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if ev.Private == nil {
		ev.Private = map[string]string{}
	}
	f.events[ev.ID] = ev
}

// Get returns the stored event.
func (f *Fake) Get(id string) (models.CalendarEvent, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ev, ok := f.events[id]
	return ev, ok
}

// Remove deletes an event as if a user removed it in the calendar UI.
func (f *Fake) Remove(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.events, id)
}

// Len returns the number of stored events.
func (f *Fake) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.events)
}

// Calls returns the operations performed so far, e.g. "patch:evt1".
func (f *Fake) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// ResetCalls clears the call log.
func (f *Fake) ResetCalls() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = nil
}

func (f *Fake) ListEvents(ctx context.Context, _ string, timeMin, timeMax time.Time) ([]models.CalendarEvent, error) {
	if f.OnList != nil {
		f.OnList(ctx)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "list")
	if f.ListErr != nil {
		return nil, f.ListErr
	}
	var out []models.CalendarEvent
	for _, ev := range f.events {
		if ev.Unreadable || (ev.End.After(timeMin) && ev.Start.Before(timeMax)) {
			out = append(out, copyEvent(ev))
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Start.Equal(out[j].Start) {
			return out[i].ID < out[j].ID
		}
		return out[i].Start.Before(out[j].Start)
	})
	return out, nil
}

func (f *Fake) CreateEvent(_ context.Context, _ string, body *calendar.EventBody) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.CreateErr != nil {
		f.calls = append(f.calls, "create:error")
		return "", f.CreateErr
	}
	f.nextID++
	id := fmt.Sprintf("evt-%d", f.nextID)
	ev := models.CalendarEvent{ID: id, Private: map[string]string{}}
	if err := apply(&ev, body); err != nil {
		return "", err
	}
	f.events[id] = ev
	f.calls = append(f.calls, "create:"+id)
	return id, nil
}

func (f *Fake) PatchEvent(_ context.Context, _ string, eventID string, body *calendar.EventBody) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "patch:"+eventID)
	if f.PatchErr != nil {
		return f.PatchErr
	}
	ev, ok := f.events[eventID]
	if !ok {
		return fmt.Errorf("patch %s: %w", eventID, calendar.ErrNotFound)
	}
	if err := apply(&ev, body); err != nil {
		return err
	}
	f.events[eventID] = ev
	return nil
}

func (f *Fake) DeleteEvent(_ context.Context, _ string, eventID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "delete:"+eventID)
	if f.DeleteErr != nil {
		return f.DeleteErr
	}
	if _, ok := f.events[eventID]; !ok {
		return fmt.Errorf("delete %s: %w", eventID, calendar.ErrNotFound)
	}
	delete(f.events, eventID)
	return nil
}

func apply(ev *models.CalendarEvent, body *calendar.EventBody) error {
	if body.ColorID != "" {
		ev.ColorID = body.ColorID
	}
	if body.Summary != "" {
		ev.Summary = body.Summary
	}
	if len(body.Private) > 0 {
		if ev.Private == nil {
			ev.Private = map[string]string{}
		}
		for k, v := range body.Private {
			ev.Private[k] = v
		}
	}
	if !body.Full() {
		return nil
	}
	start, err := parseWall(body.Start)
	if err != nil {
		return err
	}
	end, err := parseWall(body.End)
	if err != nil {
		return err
	}
	ev.Summary = body.Summary
	ev.Description = body.Description
	ev.Start, ev.End = start, end
	return nil
}

func parseWall(t *calendar.EventTime) (time.Time, error) {
	loc, err := time.LoadLocation(t.TimeZone)
	if err != nil {
		return time.Time{}, err
	}
	return time.ParseInLocation(calendar.WallClockLayout, t.DateTime, loc)
}

func copyEvent(ev models.CalendarEvent) models.CalendarEvent {
	props := make(map[string]string, len(ev.Private))
	for k, v := range ev.Private {
		props[k] = v
	}
	ev.Private = props
	return ev
}
