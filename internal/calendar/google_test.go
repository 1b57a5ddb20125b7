// Coachsync - Coaching Session Booking and Calendar Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/coachsync

package calendar

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"google.golang.org/api/option"

	"github.com/tomtom215/coachsync/internal/config"
	"github.com/tomtom215/coachsync/internal/models"
)

const listResponse = `{
  "kind": "calendar#events",
  "items": [
    {
      "id": "evt1",
      "status": "confirmed",
      "summary": "Session: Jane Doe × John Smith #C1 #P2",
      "description": "notes",
      "colorId": "2",
      "start": {"dateTime": "2026-05-04T10:30:00+02:00"},
      "end": {"dateTime": "2026-05-04T11:30:00+02:00"},
      "extendedProperties": {"private": {"session_id": "5", "coach_id": "1", "player_id": "2"}}
    },
    {
      "id": "evt2",
      "status": "cancelled",
      "summary": "gone",
      "start": {"dateTime": "2026-05-04T12:00:00+02:00"},
      "end": {"dateTime": "2026-05-04T13:00:00+02:00"}
    },
    {
      "id": "evt3",
      "status": "confirmed",
      "summary": "Holiday",
      "start": {"date": "2026-05-05"},
      "end": {"date": "2026-05-06"}
    }
  ]
}`

func newTestGoogleClient(t *testing.T, handler http.HandlerFunc) *GoogleClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	loc, err := time.LoadLocation("Europe/Madrid")
	if err != nil {
		t.Fatal(err)
	}
	cfg := &config.CalendarConfig{CalendarID: "cal", RequestsPerSec: 100, Burst: 10, Timeout: 5 * time.Second}
	c, err := NewGoogleClient(context.Background(), cfg, loc,
		option.WithEndpoint(srv.URL+"/"),
		option.WithHTTPClient(srv.Client()),
	)
	if err != nil {
		t.Fatalf("NewGoogleClient: %v", err)
	}
	return c
}

func TestGoogleClientListEvents(t *testing.T) {
	t.Parallel()

	var query string
	c := newTestGoogleClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/calendars/cal/events" {
			http.Error(w, "unexpected "+r.Method+" "+r.URL.Path, http.StatusBadRequest)
			return
		}
		query = r.URL.RawQuery
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, listResponse)
	})

	from := time.Date(2026, 4, 4, 0, 0, 0, 0, time.UTC)
	events, err := c.ListEvents(context.Background(), "cal", from, from.AddDate(0, 0, 90))
	if err != nil {
		t.Fatalf("ListEvents: %v", err)
	}
	for _, want := range []string{"singleEvents=true", "orderBy=startTime", "timeMin=2026-04-04T00"} {
		if !strings.Contains(query, want) {
			t.Errorf("query %q missing %q", query, want)
		}
	}
	if len(events) != 2 {
		t.Fatalf("expected cancelled event to be skipped, got %d events", len(events))
	}

	ev := events[0]
	if ev.ID != "evt1" || ev.ColorID != "2" || ev.Private[models.MetaSessionID] != "5" {
		t.Errorf("event = %+v", ev)
	}
	if !ev.Start.Equal(time.Date(2026, 5, 4, 8, 30, 0, 0, time.UTC)) {
		t.Errorf("Start = %v", ev.Start)
	}

	allDay := events[1]
	if allDay.Start.Hour() != 0 || allDay.Start.Location().String() != "Europe/Madrid" {
		t.Errorf("all-day start must be local midnight, got %v", allDay.Start)
	}
}

func TestGoogleClientListEventsTimeHandling(t *testing.T) {
	t.Parallel()

	c := newTestGoogleClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"items": [
			{"id": "naive", "status": "confirmed", "summary": "a",
			 "start": {"dateTime": "2026-05-04T10:30:00"}, "end": {"dateTime": "2026-05-04T11:30:00"}},
			{"id": "zoned", "status": "confirmed", "summary": "b",
			 "start": {"dateTime": "2026-05-04T10:30:00", "timeZone": "America/New_York"},
			 "end": {"dateTime": "2026-05-04T11:30:00", "timeZone": "America/New_York"}},
			{"id": "broken", "status": "confirmed", "summary": "Session: Jane Doe × John Smith",
			 "start": {"dateTime": "not a time"}, "end": {"dateTime": "2026-05-04T11:30:00"}}
		]}`)
	})

	from := time.Date(2026, 4, 4, 0, 0, 0, 0, time.UTC)
	events, err := c.ListEvents(context.Background(), "cal", from, from.AddDate(0, 0, 90))
	if err != nil {
		t.Fatalf("ListEvents: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("unreadable events must stay in the listing, got %d events", len(events))
	}

	tests := []struct {
		id    string
		start time.Time
	}{
		{"naive", time.Date(2026, 5, 4, 8, 30, 0, 0, time.UTC)},
		{"zoned", time.Date(2026, 5, 4, 14, 30, 0, 0, time.UTC)},
	}
	for i, tt := range tests {
		ev := events[i]
		if ev.ID != tt.id || ev.Unreadable || !ev.Start.Equal(tt.start) {
			t.Errorf("event %d = %s start %v unreadable %v, want %s start %v", i, ev.ID, ev.Start, ev.Unreadable, tt.id, tt.start)
		}
	}

	broken := events[2]
	if broken.ID != "broken" || !broken.Unreadable || broken.Summary != "Session: Jane Doe × John Smith" {
		t.Errorf("broken event = %+v", broken)
	}
}

func TestGoogleClientCreateEventSendsZoneAndDescription(t *testing.T) {
	t.Parallel()

	var body string
	c := newTestGoogleClient(t, func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		body = string(b)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":"new-event"}`)
	})

	loc, _ := time.LoadLocation("Europe/Madrid")
	start := time.Date(2026, 5, 4, 8, 30, 0, 0, time.UTC)
	s := &models.Session{ID: 1, CoachID: 1, PlayerID: 2, StartTime: start, EndTime: start.Add(time.Hour), Status: models.StatusScheduled}

	id, err := c.CreateEvent(context.Background(), "cal", BuildEventBody(s, "Jane", "John", loc))
	if err != nil {
		t.Fatalf("CreateEvent: %v", err)
	}
	if id != "new-event" {
		t.Errorf("id = %q", id)
	}
	for _, want := range []string{`"timeZone":"Europe/Madrid"`, `"dateTime":"2026-05-04T10:30:00"`, `"description":""`, `"colorId":"9"`} {
		if !strings.Contains(body, want) {
			t.Errorf("request body %s missing %s", body, want)
		}
	}
}

func TestGoogleClientNotFoundMapping(t *testing.T) {
	t.Parallel()

	c := newTestGoogleClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.HasSuffix(r.URL.Path, "/gone"):
			w.WriteHeader(http.StatusGone)
			_, _ = io.WriteString(w, `{"error":{"code":410,"message":"Resource has been deleted"}}`)
		case strings.HasSuffix(r.URL.Path, "/missing"):
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, `{"error":{"code":404,"message":"Not Found"}}`)
		case strings.HasSuffix(r.URL.Path, "/boom"):
			w.WriteHeader(http.StatusForbidden)
			_, _ = io.WriteString(w, `{"error":{"code":403,"message":"Forbidden"}}`)
		default:
			w.WriteHeader(http.StatusNoContent)
		}
	})
	ctx := context.Background()

	if err := c.PatchEvent(ctx, "cal", "missing", ColorPatch(models.StatusCompleted)); !errors.Is(err, ErrNotFound) {
		t.Errorf("patch 404 = %v, want ErrNotFound", err)
	}
	if err := c.DeleteEvent(ctx, "cal", "gone"); !errors.Is(err, ErrNotFound) {
		t.Errorf("delete 410 = %v, want ErrNotFound", err)
	}
	if err := c.DeleteEvent(ctx, "cal", "boom"); err == nil || errors.Is(err, ErrNotFound) {
		t.Errorf("delete 403 = %v, want a non-not-found error", err)
	}
	if err := c.DeleteEvent(ctx, "cal", "ok"); err != nil {
		t.Errorf("delete 204 = %v", err)
	}
}
