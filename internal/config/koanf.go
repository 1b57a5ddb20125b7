// Coachsync - Coaching Session Booking and Calendar Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/coachsync

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths are searched in order when CONFIG_PATH is unset.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/coachsync/config.yaml",
}

const (
	// ConfigPathEnvVar overrides the config file location.
	ConfigPathEnvVar = "CONFIG_PATH"

	// DotenvPathEnvVar overrides the .env file location.
	DotenvPathEnvVar = "DOTENV_PATH"
)

func defaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Driver:       "duckdb",
			Path:         "/data/coachsync.duckdb",
			MaxOpenConns: 4,
		},
		Calendar: CalendarConfig{
			CalendarID:      "primary",
			CredentialsFile: "",
			Timezone:        "Europe/Madrid",
			RequestsPerSec:  5,
			Burst:           10,
			Timeout:         30 * time.Second,
		},
		Sync: SyncConfig{
			Interval:           15 * time.Minute,
			MinInterval:        5 * time.Minute,
			AutoStart:          false,
			WindowBackDays:     30,
			WindowForwardDays:  60,
			MaxMetadataID:      100,
			ProblemMaxAgeHours: 24,
			MinDuration:        time.Minute,
			MaxDuration:        180 * time.Minute,
			ShortSession:       60 * time.Minute,
			LongSession:        120 * time.Minute,
			WorkingHoursStart:  8,
			WorkingHoursEnd:    18,
			ExtendedHoursStart: 6,
			ExtendedHoursEnd:   20,
		},
		Server: ServerConfig{
			Host:    "0.0.0.0",
			Port:    8420,
			Timeout: 30 * time.Second,
		},
		Security: SecurityConfig{
			CORSOrigins:     []string{"*"},
			RateLimitReqs:   100,
			RateLimitWindow: time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// LoadWithKoanf builds the configuration from defaults, file and environment,
// then validates it.
func LoadWithKoanf() (*Config, error) {
	if err := loadDotenv(); err != nil {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// loadDotenv populates the process environment from a .env file. Variables
// already set in the environment win. A missing file is not an error.
func loadDotenv() error {
	path := os.Getenv(DotenvPathEnvVar)
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return err
	}
	return nil
}

func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// Comma-separated env values for these keys become string slices.
var sliceConfigPaths = []string{
	"security.cors_origins",
}

func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok || strVal == "" {
			continue
		}
		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if err := k.Set(path, trimmed); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

var envMappings = map[string]string{
	"db_driver":         "database.driver",
	"duckdb_path":       "database.path",
	"database_url":      "database.dsn",
	"db_max_open_conns": "database.max_open_conns",

	"google_calendar_id":             "calendar.calendar_id",
	"google_credentials_file":        "calendar.credentials_file",
	"google_application_credentials": "calendar.credentials_file",
	"timezone":                       "calendar.timezone",
	"calendar_requests_per_second":   "calendar.requests_per_second",
	"calendar_burst":                 "calendar.burst",
	"calendar_timeout":               "calendar.timeout",

	"sync_interval":              "sync.interval",
	"sync_min_interval":          "sync.min_interval",
	"sync_auto_start":            "sync.auto_start",
	"sync_window_back_days":      "sync.window_back_days",
	"sync_window_forward_days":   "sync.window_forward_days",
	"sync_max_metadata_id":       "sync.max_metadata_id",
	"sync_problem_max_age_hours": "sync.problem_max_age_hours",
	"sync_min_duration":          "sync.min_duration",
	"sync_max_duration":          "sync.max_duration",

	"http_host":    "server.host",
	"http_port":    "server.port",
	"http_timeout": "server.timeout",

	"cors_origins":        "security.cors_origins",
	"rate_limit_requests": "security.rate_limit_reqs",
	"rate_limit_window":   "security.rate_limit_window",
	"disable_rate_limit":  "security.rate_limit_disabled",

	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",
}

// envTransformFunc maps an environment variable name to a config key.
// Unmapped variables return "" and are skipped.
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}
