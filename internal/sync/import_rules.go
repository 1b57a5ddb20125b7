// Coachsync - Coaching Session Booking and Calendar Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/coachsync

package sync

import (
	"fmt"
	"strconv"
	"time"

	"github.com/tomtom215/coachsync/internal/config"
)

// ImportRules decide whether a calendar event may become a new session and
// which oddities are worth a warning. Hours are local wall-clock hours.
type ImportRules struct {
	MinDuration  time.Duration
	MaxDuration  time.Duration
	ShortSession time.Duration
	LongSession  time.Duration

	WorkingHoursStart  int
	WorkingHoursEnd    int
	ExtendedHoursStart int
	ExtendedHoursEnd   int
}

// DefaultImportRules accepts 1 to 180 minute single-day sessions and warns
// outside 08:00-18:00, under an hour, over two hours and on weekends.
func DefaultImportRules() ImportRules {
	return ImportRules{
		MinDuration:        time.Minute,
		MaxDuration:        180 * time.Minute,
		ShortSession:       60 * time.Minute,
		LongSession:        120 * time.Minute,
		WorkingHoursStart:  8,
		WorkingHoursEnd:    18,
		ExtendedHoursStart: 6,
		ExtendedHoursEnd:   20,
	}
}

// RulesFromConfig reads the rules from the sync section.
func RulesFromConfig(c *config.SyncConfig) ImportRules {
	return ImportRules{
		MinDuration:        c.MinDuration,
		MaxDuration:        c.MaxDuration,
		ShortSession:       c.ShortSession,
		LongSession:        c.LongSession,
		WorkingHoursStart:  c.WorkingHoursStart,
		WorkingHoursEnd:    c.WorkingHoursEnd,
		ExtendedHoursStart: c.ExtendedHoursStart,
		ExtendedHoursEnd:   c.ExtendedHoursEnd,
	}
}

// Check validates a local start/end pair. A non-empty reason rejects the
// event; warnings never do.
func (r ImportRules) Check(start, end time.Time) (reason string, warnings []string) {
	if !end.After(start) {
		return "End time must be later than start time", nil
	}
	if !sameDay(start, end) {
		return "The session cannot be spread over multiple days", nil
	}

	d := end.Sub(start)
	if d > r.MaxDuration {
		return fmt.Sprintf("Excessive duration: %.1f hours (maximum: %s)", d.Hours(), hours(r.MaxDuration)), nil
	}
	if d < r.MinDuration {
		return fmt.Sprintf("Duration too short: %d min (minimum: %d min)", int(d.Minutes()), int(r.MinDuration.Minutes())), nil
	}

	warnings = append(warnings, r.clockWarnings(start)...)
	if d < r.ShortSession {
		warnings = append(warnings, fmt.Sprintf("Duration short: %d min (recommended: %d min)", int(d.Minutes()), int(r.ShortSession.Minutes())))
	}
	if d > r.LongSession {
		warnings = append(warnings, fmt.Sprintf("Duration long: %.1fh (recommended: less than %s)", d.Hours(), hours(r.LongSession)))
	}
	if wd := start.Weekday(); wd == time.Saturday || wd == time.Sunday {
		warnings = append(warnings, "Weekend session: "+wd.String())
	}
	return "", warnings
}

func (r ImportRules) clockWarnings(start time.Time) []string {
	clock := sinceMidnight(start)
	at := start.Format("15:04")
	recommended := fmt.Sprintf("%02d:00-%02d:00", r.WorkingHoursStart, r.WorkingHoursEnd)

	switch {
	case clock < hourOfDay(r.WorkingHoursStart):
		if clock >= hourOfDay(r.ExtendedHoursStart) {
			return []string{fmt.Sprintf("Early start: %s (recommended: %s)", at, recommended)}
		}
		return []string{fmt.Sprintf("Very early start: %s (limit: %02d:00)", at, r.ExtendedHoursStart)}
	case clock > hourOfDay(r.WorkingHoursEnd):
		if clock <= hourOfDay(r.ExtendedHoursEnd) {
			return []string{fmt.Sprintf("Late start: %s (recommended: %s)", at, recommended)}
		}
		return []string{fmt.Sprintf("Very late start: %s (limit: %02d:00)", at, r.ExtendedHoursEnd)}
	}
	return nil
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func sinceMidnight(t time.Time) time.Duration {
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute + time.Duration(t.Second())*time.Second
}

func hourOfDay(h int) time.Duration {
	return time.Duration(h) * time.Hour
}

// hours renders whole-hour durations as "3h".
func hours(d time.Duration) string {
	return strconv.FormatFloat(d.Hours(), 'f', -1, 64) + "h"
}
