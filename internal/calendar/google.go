// Coachsync - Coaching Session Booking and Calendar Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/coachsync

package calendar

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/time/rate"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/tomtom215/coachsync/internal/config"
	"github.com/tomtom215/coachsync/internal/fingerprint"
	"github.com/tomtom215/coachsync/internal/logging"
	"github.com/tomtom215/coachsync/internal/metrics"
	"github.com/tomtom215/coachsync/internal/models"
)

const listPageSize = 250

// GoogleClient implements Client on the Google Calendar v3 API.
type GoogleClient struct {
	svc     *gcal.Service
	limiter *rate.Limiter
	local   *fingerprint.Hasher
	timeout time.Duration
}

// NewGoogleClient builds a client from a service-account credentials file.
// Extra options are appended, which tests use to point at a fake server.
func NewGoogleClient(ctx context.Context, cfg *config.CalendarConfig, loc *time.Location, opts ...option.ClientOption) (*GoogleClient, error) {
	base := []option.ClientOption{option.WithScopes(gcal.CalendarEventsScope)}
	if cfg.CredentialsFile != "" {
		base = append(base, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	svc, err := gcal.NewService(ctx, append(base, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar service: %w", err)
	}

	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	logging.Info().
		Str("calendar_id", cfg.CalendarID).
		Float64("requests_per_second", cfg.RequestsPerSec).
		Msg("Google Calendar client configured")

	return &GoogleClient{
		svc:     svc,
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSec), burst),
		local:   fingerprint.New(loc),
		timeout: cfg.Timeout,
	}, nil
}

// call applies the rate limit and per-call timeout, maps 404/410 to
// ErrNotFound and records metrics.
func (c *GoogleClient) call(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("calendar rate limiter: %w", err)
	}
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	start := time.Now()
	err := mapError(fn(ctx))
	result := "ok"
	switch {
	case err == nil:
	case errors.Is(err, ErrNotFound):
		result = "not_found"
	default:
		result = "error"
	}
	metrics.RecordCalendarCall(op, result, time.Since(start))
	return err
}

func mapError(err error) error {
	if err == nil {
		return nil
	}
	var gerr *googleapi.Error
	if errors.As(err, &gerr) && (gerr.Code == http.StatusNotFound || gerr.Code == http.StatusGone) {
		return fmt.Errorf("%w: %s", ErrNotFound, gerr.Message)
	}
	return err
}

// ListEvents returns single (expanded) events ordered by start time.
// Cancelled events are excluded. Events with unreadable times are kept
// with Unreadable set.
func (c *GoogleClient) ListEvents(ctx context.Context, calendarID string, timeMin, timeMax time.Time) ([]models.CalendarEvent, error) {
	var out []models.CalendarEvent
	err := c.call(ctx, "list", func(ctx context.Context) error {
		out = out[:0]
		return c.svc.Events.List(calendarID).
			TimeMin(timeMin.Format(time.RFC3339)).
			TimeMax(timeMax.Format(time.RFC3339)).
			SingleEvents(true).
			OrderBy("startTime").
			ShowDeleted(false).
			MaxResults(listPageSize).
			Pages(ctx, func(page *gcal.Events) error {
				for _, item := range page.Items {
					if item.Status == "cancelled" {
						continue
					}
					ev, err := c.fromGoogle(item)
					if err != nil {
						logging.Warn().Err(err).Str("event_id", item.Id).Msg("Calendar event has unreadable times")
						out = append(out, models.CalendarEvent{ID: item.Id, Summary: item.Summary, Unreadable: true})
						continue
					}
					out = append(out, ev)
				}
				return nil
			})
	})
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return out, nil
}

// CreateEvent inserts a new event and returns its id.
func (c *GoogleClient) CreateEvent(ctx context.Context, calendarID string, body *EventBody) (string, error) {
	var id string
	err := c.call(ctx, "create", func(ctx context.Context) error {
		created, err := c.svc.Events.Insert(calendarID, toGoogle(body)).Context(ctx).Do()
		if err != nil {
			return err
		}
		id = created.Id
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("create event: %w", err)
	}
	return id, nil
}

// PatchEvent updates only the fields present in body.
func (c *GoogleClient) PatchEvent(ctx context.Context, calendarID, eventID string, body *EventBody) error {
	err := c.call(ctx, "patch", func(ctx context.Context) error {
		_, err := c.svc.Events.Patch(calendarID, eventID, toGoogle(body)).Context(ctx).Do()
		return err
	})
	if err != nil {
		return fmt.Errorf("patch event %s: %w", eventID, err)
	}
	return nil
}

// DeleteEvent removes the event.
func (c *GoogleClient) DeleteEvent(ctx context.Context, calendarID, eventID string) error {
	err := c.call(ctx, "delete", func(ctx context.Context) error {
		return c.svc.Events.Delete(calendarID, eventID).Context(ctx).Do()
	})
	if err != nil {
		return fmt.Errorf("delete event %s: %w", eventID, err)
	}
	return nil
}

func toGoogle(b *EventBody) *gcal.Event {
	ev := &gcal.Event{ColorId: b.ColorID, Summary: b.Summary}
	if b.Full() {
		ev.Description = b.Description
		ev.Start = &gcal.EventDateTime{DateTime: b.Start.DateTime, TimeZone: b.Start.TimeZone}
		ev.End = &gcal.EventDateTime{DateTime: b.End.DateTime, TimeZone: b.End.TimeZone}
		// An empty description must clear the remote one on patch.
		ev.ForceSendFields = []string{"Description"}
	}
	if len(b.Private) > 0 {
		ev.ExtendedProperties = &gcal.EventExtendedProperties{Private: b.Private}
	}
	return ev
}

func (c *GoogleClient) fromGoogle(item *gcal.Event) (models.CalendarEvent, error) {
	start, err := c.parseTime(item.Start)
	if err != nil {
		return models.CalendarEvent{}, fmt.Errorf("start: %w", err)
	}
	end, err := c.parseTime(item.End)
	if err != nil {
		return models.CalendarEvent{}, fmt.Errorf("end: %w", err)
	}
	ev := models.CalendarEvent{
		ID:          item.Id,
		Summary:     item.Summary,
		Description: item.Description,
		Start:       start,
		End:         end,
		ColorID:     item.ColorId,
		Private:     map[string]string{},
	}
	if item.ExtendedProperties != nil {
		for k, v := range item.ExtendedProperties.Private {
			ev.Private[k] = v
		}
	}
	return ev, nil
}

// parseTime reads an RFC 3339 date-time, a zoneless wall-clock time (in the
// event's zone or the local one) or an all-day date (local midnight).
func (c *GoogleClient) parseTime(t *gcal.EventDateTime) (time.Time, error) {
	if t == nil {
		return time.Time{}, errors.New("missing time")
	}
	var (
		wall time.Time
		err  error
	)
	switch {
	case t.DateTime != "":
		if ts, err := time.Parse(time.RFC3339, t.DateTime); err == nil {
			return ts, nil
		}
		wall, err = time.Parse(WallClockLayout, t.DateTime)
	case t.Date != "":
		wall, err = time.Parse("2006-01-02", t.Date)
	default:
		return time.Time{}, errors.New("event time has neither dateTime nor date")
	}
	if err != nil {
		return time.Time{}, err
	}
	if t.TimeZone != "" {
		if loc, lerr := time.LoadLocation(t.TimeZone); lerr == nil {
			return fingerprint.New(loc).Localize(wall), nil
		}
	}
	return c.local.Localize(wall), nil
}
