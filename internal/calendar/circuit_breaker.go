// Coachsync - Coaching Session Booking and Calendar Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/coachsync

package calendar

import (
	"context"
	"errors"
	"fmt"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/coachsync/internal/logging"
	"github.com/tomtom215/coachsync/internal/metrics"
	"github.com/tomtom215/coachsync/internal/models"
)

// BreakerSettings configures CircuitBreakerClient.
type BreakerSettings struct {
	Name        string
	MaxRequests uint32        // allowed through while half-open
	Interval    time.Duration // closed-state count reset
	Timeout     time.Duration // open -> half-open delay
	MinRequests uint32        // requests before the ratio is considered
	TripRatio   float64
}

// DefaultBreakerSettings opens after 60% failures over at least 10 calls
// and probes again after two minutes.
func DefaultBreakerSettings() BreakerSettings {
	return BreakerSettings{
		Name:        "google-calendar",
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     2 * time.Minute,
		MinRequests: 10,
		TripRatio:   0.6,
	}
}

// CircuitBreakerClient wraps a Client so a failing calendar API is rejected
// fast instead of stalling every reconciliation run.
//
// ErrNotFound is a normal answer (it drives self-healing) and does not count
// as a breaker failure.
type CircuitBreakerClient struct {
	client Client
	cb     *gobreaker.CircuitBreaker[any]
	name   string
}

// NewCircuitBreakerClient wraps client.
func NewCircuitBreakerClient(client Client, s BreakerSettings) *CircuitBreakerClient {
	metrics.CircuitBreakerState.WithLabelValues(s.Name).Set(0)
	metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(s.Name).Set(0)

	cb := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        s.Name,
		MaxRequests: s.MaxRequests,
		Interval:    s.Interval,
		Timeout:     s.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < s.MinRequests {
				return false
			}
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			if ratio >= s.TripRatio {
				logging.Warn().
					Uint32("failures", counts.TotalFailures).
					Float64("failure_rate", ratio*100).
					Msg("[CIRCUIT BREAKER] Opening circuit")
				return true
			}
			return false
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrNotFound) || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			fromStr, toStr := stateToString(from), stateToString(to)
			logging.Info().Str("breaker", name).Str("from", fromStr).Str("to", toStr).Msg("[CIRCUIT BREAKER] State transition")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, fromStr, toStr).Inc()
			if to == gobreaker.StateClosed {
				metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(name).Set(0)
			}
		},
	})

	return &CircuitBreakerClient{client: client, cb: cb, name: s.Name}
}

// State returns the breaker state as closed, half-open or open.
func (c *CircuitBreakerClient) State() string {
	return stateToString(c.cb.State())
}

func (c *CircuitBreakerClient) execute(fn func() (any, error)) (any, error) {
	result, err := c.cb.Execute(fn)
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.CircuitBreakerRequests.WithLabelValues(c.name, "rejected").Inc()
			logging.Warn().Err(err).Msg("[CIRCUIT BREAKER] Request rejected")
			return nil, fmt.Errorf("%w: %w", ErrCircuitOpen, err)
		}
		if errors.Is(err, ErrNotFound) {
			metrics.CircuitBreakerRequests.WithLabelValues(c.name, "success").Inc()
			return nil, err
		}
		metrics.CircuitBreakerRequests.WithLabelValues(c.name, "failure").Inc()
		metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(c.name).Set(float64(c.cb.Counts().ConsecutiveFailures))
		return nil, err
	}
	metrics.CircuitBreakerRequests.WithLabelValues(c.name, "success").Inc()
	metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(c.name).Set(0)
	return result, nil
}

func castResult[T any](result any, err error) (T, error) {
	var zero T
	if err != nil {
		return zero, err
	}
	typed, ok := result.(T)
	if !ok {
		return zero, fmt.Errorf("circuit breaker: unexpected result type %T", result)
	}
	return typed, nil
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

func stateToString(state gobreaker.State) string {
	switch state {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

func (c *CircuitBreakerClient) ListEvents(ctx context.Context, calendarID string, timeMin, timeMax time.Time) ([]models.CalendarEvent, error) {
	return castResult[[]models.CalendarEvent](c.execute(func() (any, error) {
		return c.client.ListEvents(ctx, calendarID, timeMin, timeMax)
	}))
}

func (c *CircuitBreakerClient) CreateEvent(ctx context.Context, calendarID string, body *EventBody) (string, error) {
	return castResult[string](c.execute(func() (any, error) {
		return c.client.CreateEvent(ctx, calendarID, body)
	}))
}

func (c *CircuitBreakerClient) PatchEvent(ctx context.Context, calendarID, eventID string, body *EventBody) error {
	_, err := c.execute(func() (any, error) {
		return nil, c.client.PatchEvent(ctx, calendarID, eventID, body)
	})
	return err
}

func (c *CircuitBreakerClient) DeleteEvent(ctx context.Context, calendarID, eventID string) error {
	_, err := c.execute(func() (any, error) {
		return nil, c.client.DeleteEvent(ctx, calendarID, eventID)
	})
	return err
}
