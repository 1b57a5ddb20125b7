// Coachsync - Coaching Session Booking and Calendar Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/coachsync

package database

import (
	"context"
	"fmt"
	"time"

	"github.com/tomtom215/coachsync/internal/logging"
)

// Migration is one versioned schema change. Migrations are append-only:
// never edit or remove one that has shipped.
type Migration struct {
	Version     int       `db:"version"`
	Name        string    `db:"name"`
	Description string    `db:"description"`
	SQL         []string  `db:"-"`
	AppliedAt   time.Time `db:"applied_at"`
}

const schemaMigrationsTable = `CREATE TABLE IF NOT EXISTS schema_migrations (
	version INTEGER PRIMARY KEY,
	name TEXT NOT NULL,
	description TEXT,
	applied_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
)`

// sessions carries no foreign keys: DuckDB rewrites an UPDATE as
// delete+insert and rejects it when a key is referenced.
var migrations = []Migration{
	{
		Version:     1,
		Name:        "initial_schema",
		Description: "coaches, players and sessions with sync tracking",
		SQL: []string{
			`CREATE SEQUENCE IF NOT EXISTS coaches_id_seq START 1`,
			`CREATE SEQUENCE IF NOT EXISTS players_id_seq START 1`,
			`CREATE SEQUENCE IF NOT EXISTS sessions_id_seq START 1`,
			`CREATE TABLE IF NOT EXISTS coaches (
				id BIGINT PRIMARY KEY DEFAULT nextval('coaches_id_seq'),
				name TEXT NOT NULL,
				email TEXT,
				active BOOLEAN NOT NULL DEFAULT TRUE,
				created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
			)`,
			`CREATE TABLE IF NOT EXISTS players (
				id BIGINT PRIMARY KEY DEFAULT nextval('players_id_seq'),
				name TEXT NOT NULL,
				email TEXT,
				coach_id BIGINT,
				active BOOLEAN NOT NULL DEFAULT TRUE,
				created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
			)`,
			`CREATE TABLE IF NOT EXISTS sessions (
				id BIGINT PRIMARY KEY DEFAULT nextval('sessions_id_seq'),
				coach_id BIGINT NOT NULL,
				player_id BIGINT NOT NULL,
				start_time TIMESTAMPTZ NOT NULL,
				end_time TIMESTAMPTZ NOT NULL,
				status TEXT NOT NULL DEFAULT 'scheduled',
				notes TEXT,
				source TEXT NOT NULL DEFAULT 'app',
				calendar_event_id TEXT,
				sync_hash TEXT,
				is_dirty BOOLEAN NOT NULL DEFAULT TRUE,
				last_sync_at TIMESTAMPTZ,
				version BIGINT NOT NULL DEFAULT 0,
				created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
			)`,
			`CREATE INDEX IF NOT EXISTS idx_sessions_start_time ON sessions (start_time)`,
			`CREATE INDEX IF NOT EXISTS idx_sessions_pair ON sessions (coach_id, player_id)`,
		},
	},
	{
		Version:     2,
		Name:        "event_link_index",
		Description: "lookup by calendar_event_id",
		SQL: []string{
			`CREATE INDEX IF NOT EXISTS idx_sessions_calendar_event_id ON sessions (calendar_event_id)`,
		},
	},
}

func (db *DB) runMigrations(ctx context.Context) error {
	if _, err := db.conn.ExecContext(ctx, schemaMigrationsTable); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	var applied []int
	if err := db.conn.SelectContext(ctx, &applied, `SELECT version FROM schema_migrations ORDER BY version`); err != nil {
		return fmt.Errorf("failed to query applied migrations: %w", err)
	}
	done := make(map[int]bool, len(applied))
	for _, v := range applied {
		done[v] = true
	}

	count := 0
	for _, m := range migrations {
		if done[m.Version] {
			continue
		}
		for _, stmt := range m.SQL {
			if _, err := db.conn.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("failed to execute migration v%d (%s): %w", m.Version, m.Name, err)
			}
		}
		if _, err := db.conn.ExecContext(ctx,
			`INSERT INTO schema_migrations (version, name, description) VALUES ($1, $2, $3)`,
			m.Version, m.Name, m.Description); err != nil {
			return fmt.Errorf("failed to record migration v%d: %w", m.Version, err)
		}
		count++
	}

	if count > 0 {
		logging.Info().Int("applied", count).Msg("Applied database migrations")
	}
	return nil
}

// SchemaVersion returns the highest applied migration version.
func (db *DB) SchemaVersion(ctx context.Context) (int, error) {
	var version int
	if err := db.conn.GetContext(ctx, &version, `SELECT COALESCE(MAX(version), 0) FROM schema_migrations`); err != nil {
		return 0, fmt.Errorf("failed to get schema version: %w", err)
	}
	return version, nil
}
