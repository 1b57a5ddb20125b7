// Coachsync - Coaching Session Booking and Calendar Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/coachsync

package config

import (
	"fmt"
	"strings"
	"time"
)

// Validate checks that required configuration is present and consistent.
func (c *Config) Validate() error {
	if err := c.validateDatabase(); err != nil {
		return err
	}
	if err := c.validateCalendar(); err != nil {
		return err
	}
	if err := c.validateSync(); err != nil {
		return err
	}
	if err := c.validateServer(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateDatabase() error {
	switch strings.ToLower(c.Database.Driver) {
	case "duckdb":
		if c.Database.Path == "" {
			return fmt.Errorf("DUCKDB_PATH is required when DB_DRIVER=duckdb")
		}
	case "postgres":
		if c.Database.DSN == "" {
			return fmt.Errorf("DATABASE_URL is required when DB_DRIVER=postgres")
		}
	default:
		return fmt.Errorf("DB_DRIVER must be 'duckdb' or 'postgres', got %q", c.Database.Driver)
	}
	return nil
}

func (c *Config) validateCalendar() error {
	if c.Calendar.CalendarID == "" {
		return fmt.Errorf("GOOGLE_CALENDAR_ID is required")
	}
	if _, err := time.LoadLocation(c.Calendar.Timezone); err != nil {
		return fmt.Errorf("TIMEZONE is invalid: %w", err)
	}
	if c.Calendar.RequestsPerSec <= 0 {
		return fmt.Errorf("CALENDAR_REQUESTS_PER_SECOND must be positive")
	}
	return nil
}

// validateSync does not reject an interval below the floor; the coordinator
// clamps it and logs a warning instead.
func (c *Config) validateSync() error {
	s := c.Sync
	if s.MinInterval <= 0 {
		return fmt.Errorf("SYNC_MIN_INTERVAL must be positive")
	}
	if s.WindowBackDays < 0 || s.WindowForwardDays <= 0 {
		return fmt.Errorf("sync window must cover the future (back=%d, forward=%d)", s.WindowBackDays, s.WindowForwardDays)
	}
	if s.MaxMetadataID < 0 {
		return fmt.Errorf("SYNC_MAX_METADATA_ID must be >= 0 (0 disables the bound)")
	}
	if s.MinDuration <= 0 || s.MaxDuration <= s.MinDuration {
		return fmt.Errorf("SYNC_MAX_DURATION (%v) must exceed SYNC_MIN_DURATION (%v)", s.MaxDuration, s.MinDuration)
	}
	if !validHour(s.ExtendedHoursStart) || !validHour(s.WorkingHoursStart) ||
		!validHour(s.WorkingHoursEnd) || !validHour(s.ExtendedHoursEnd) {
		return fmt.Errorf("working hours must be between 0 and 23")
	}
	if s.ExtendedHoursStart > s.WorkingHoursStart || s.WorkingHoursEnd > s.ExtendedHoursEnd {
		return fmt.Errorf("extended hours must enclose working hours")
	}
	return nil
}

func validHour(h int) bool {
	return h >= 0 && h <= 23
}

func (c *Config) validateServer() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535, got %d", c.Server.Port)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch strings.ToLower(c.Logging.Format) {
	case "json", "console":
		return nil
	default:
		return fmt.Errorf("LOG_FORMAT must be 'json' or 'console', got %q", c.Logging.Format)
	}
}
