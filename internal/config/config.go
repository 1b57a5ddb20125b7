// Coachsync - Coaching Session Booking and Calendar Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/coachsync

// Package config loads Coachsync configuration.
//
// Sources are layered with Koanf v2, lowest priority first:
//
//  1. Built-in defaults (defaultConfig)
//  2. Optional YAML file (CONFIG_PATH or config.yaml)
//  3. A .env file, loaded into the process environment via godotenv
//  4. Environment variables
//
// Environment variables are mapped explicitly in envTransformFunc so that
// unrelated variables never leak into the configuration tree.
package config

import (
	"fmt"
	"time"
)

// Config is the root configuration.
type Config struct {
	Database DatabaseConfig `koanf:"database"`
	Calendar CalendarConfig `koanf:"calendar"`
	Sync     SyncConfig     `koanf:"sync"`
	Server   ServerConfig   `koanf:"server"`
	Security SecurityConfig `koanf:"security"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// DatabaseConfig selects the SQL backend. DuckDB is embedded and needs only
// a file path; Postgres needs a DSN.
type DatabaseConfig struct {
	Driver       string `koanf:"driver"` // duckdb or postgres
	Path         string `koanf:"path"`
	DSN          string `koanf:"dsn"`
	MaxOpenConns int    `koanf:"max_open_conns"`
}

// CalendarConfig configures the Google Calendar client.
type CalendarConfig struct {
	CalendarID      string        `koanf:"calendar_id"`
	CredentialsFile string        `koanf:"credentials_file"`
	Timezone        string        `koanf:"timezone"`
	RequestsPerSec  float64       `koanf:"requests_per_second"`
	Burst           int           `koanf:"burst"`
	Timeout         time.Duration `koanf:"timeout"`
}

// Location resolves Timezone. Validate has already checked it loads.
func (c CalendarConfig) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("unknown timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// SyncConfig controls reconciliation and the periodic scheduler.
type SyncConfig struct {
	Interval    time.Duration `koanf:"interval"`
	MinInterval time.Duration `koanf:"min_interval"`
	AutoStart   bool          `koanf:"auto_start"`

	WindowBackDays    int `koanf:"window_back_days"`
	WindowForwardDays int `koanf:"window_forward_days"`

	// MaxMetadataID bounds ids accepted from event metadata. 0 disables it.
	MaxMetadataID int64 `koanf:"max_metadata_id"`

	ProblemMaxAgeHours int `koanf:"problem_max_age_hours"`

	// Import rules applied to events that would create a new session.
	MinDuration        time.Duration `koanf:"min_duration"`
	MaxDuration        time.Duration `koanf:"max_duration"`
	ShortSession       time.Duration `koanf:"short_session"`
	LongSession        time.Duration `koanf:"long_session"`
	WorkingHoursStart  int           `koanf:"working_hours_start"`
	WorkingHoursEnd    int           `koanf:"working_hours_end"`
	ExtendedHoursStart int           `koanf:"extended_hours_start"`
	ExtendedHoursEnd   int           `koanf:"extended_hours_end"`
}

// WindowBack returns the past half of the polling window.
func (s SyncConfig) WindowBack() time.Duration {
	return time.Duration(s.WindowBackDays) * 24 * time.Hour
}

// WindowForward returns the future half of the polling window.
func (s SyncConfig) WindowForward() time.Duration {
	return time.Duration(s.WindowForwardDays) * 24 * time.Hour
}

type ServerConfig struct {
	Host    string        `koanf:"host"`
	Port    int           `koanf:"port"`
	Timeout time.Duration `koanf:"timeout"`
}

// Addr returns host:port for net/http.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type SecurityConfig struct {
	CORSOrigins       []string      `koanf:"cors_origins"`
	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
}

type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}
