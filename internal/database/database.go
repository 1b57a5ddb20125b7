// Coachsync - Coaching Session Booking and Calendar Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/coachsync

// Package database stores sessions and the coach/player directory.
//
// Two drivers are supported behind jmoiron/sqlx: embedded DuckDB (default)
// and PostgreSQL through pgx's database/sql adapter. Every query uses $n
// placeholders and RETURNING, which both engines accept, so one schema and
// one query set serve both.
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"

	"github.com/tomtom215/coachsync/internal/config"
	"github.com/tomtom215/coachsync/internal/logging"
)

// Driver names accepted in config.
const (
	DriverDuckDB   = "duckdb"
	DriverPostgres = "postgres"
)

// DB owns the connection pool. Its embedded Repo runs outside any
// transaction; WithTx hands out a Repo bound to a transaction.
type DB struct {
	*Repo
	conn *sqlx.DB
	cfg  *config.DatabaseConfig
}

// New opens the configured database and applies pending migrations.
func New(ctx context.Context, cfg *config.DatabaseConfig) (*DB, error) {
	driver, dsn, err := connectionString(cfg)
	if err != nil {
		return nil, err
	}

	if cfg.Driver == DriverDuckDB {
		dir := filepath.Dir(cfg.Path)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o750); err != nil {
				return nil, fmt.Errorf("failed to create database directory %s: %w", dir, err)
			}
		}
	}

	conn, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		conn.SetMaxOpenConns(cfg.MaxOpenConns)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := conn.PingContext(pingCtx); err != nil {
		closeQuietly(conn)
		return nil, fmt.Errorf("failed to connect to %s: %w", cfg.Driver, err)
	}

	db := NewWithConn(conn, cfg)
	if err := db.initialize(ctx); err != nil {
		closeQuietly(conn)
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	logging.Info().Str("driver", cfg.Driver).Msg("Database ready")
	return db, nil
}

// NewWithConn wraps an open connection without touching the schema. Tests
// use it with go-sqlmock.
func NewWithConn(conn *sqlx.DB, cfg *config.DatabaseConfig) *DB {
	return &DB{Repo: &Repo{q: conn}, conn: conn, cfg: cfg}
}

func connectionString(cfg *config.DatabaseConfig) (driver, dsn string, err error) {
	switch cfg.Driver {
	case DriverDuckDB:
		// Extensions are loaded explicitly; autoload would reach the network.
		return "duckdb", cfg.Path + "?access_mode=read_write&autoinstall_known_extensions=false&autoload_known_extensions=false", nil
	case DriverPostgres:
		return "pgx", cfg.DSN, nil
	default:
		return "", "", fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

func (db *DB) initialize(ctx context.Context) error {
	if db.cfg.Driver == DriverDuckDB {
		// TIMESTAMPTZ arithmetic needs ICU. Builds that bundle it load it
		// silently; others still work for plain comparisons.
		if _, err := db.conn.ExecContext(ctx, "LOAD icu"); err != nil {
			logging.Debug().Err(err).Msg("ICU extension not loaded")
		}
	}
	return db.runMigrations(ctx)
}

// Conn returns the underlying pool.
func (db *DB) Conn() *sqlx.DB {
	return db.conn
}

// Ping checks the connection.
func (db *DB) Ping(ctx context.Context) error {
	if db.conn == nil {
		return errors.New("database connection is nil")
	}
	return db.conn.PingContext(ctx)
}

// Close checkpoints DuckDB and closes the pool.
func (db *DB) Close() error {
	if db.conn == nil {
		return nil
	}
	if db.cfg != nil && db.cfg.Driver == DriverDuckDB {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		if _, err := db.conn.ExecContext(ctx, "CHECKPOINT"); err != nil {
			logging.Warn().Err(err).Msg("Failed to checkpoint database before close")
		}
		cancel()
	}
	return db.conn.Close()
}

// WithTx runs fn inside a transaction. The transaction commits when fn
// returns nil and rolls back otherwise.
func (db *DB) WithTx(ctx context.Context, fn func(Store) error) (err error) {
	tx, err := db.conn.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(&Repo{q: tx}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			logging.Error().Err(rbErr).Msg("Failed to roll back transaction")
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
