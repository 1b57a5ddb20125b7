// Coachsync - Coaching Session Booking and Calendar Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/coachsync

/*
Package main is the entry point for the Coachsync server.

Coachsync keeps a local database of coaching sessions in step with a shared
Google Calendar. Sessions booked in the app are pushed to the calendar, and
events created or edited directly in the calendar are pulled back, matched to
a coach and player, and imported.

# Application Architecture

Long-running components run under a Suture v4 supervisor tree:

	RootSupervisor ("coachsync")
	├── DataSupervisor ("data-layer")
	│   └── Problem eviction (drops stale sync problem snapshots)
	├── SyncSupervisor ("sync-layer")
	│   ├── Sync coordinator (periodic reconciliation)
	│   └── WebSocket hub (sync status broadcasts)
	└── APISupervisor ("api-layer")
	    └── HTTP server (chi router)

Component initialization order:

 1. Configuration: Koanf v2 with environment variables and config files
 2. Logging: zerolog with JSON/console output modes
 3. Database: DuckDB (embedded) or PostgreSQL
 4. Calendar: Google Calendar client behind a circuit breaker
 5. Sync engine, coordinator and session service
 6. WebSocket hub and HTTP router
 7. Supervisor tree

# Configuration

Priority: Environment variables > Config file > Defaults

	DATABASE_DRIVER=duckdb        # duckdb or postgres
	DATABASE_PATH=/data/coachsync.duckdb
	CALENDAR_CALENDAR_ID=primary
	CALENDAR_CREDENTIALS_FILE=/secrets/service-account.json
	CALENDAR_TIMEZONE=Europe/Madrid
	SYNC_INTERVAL=15m
	SYNC_AUTO_START=true
	SERVER_PORT=8080
	LOGGING_LEVEL=info

# Shutdown

SIGINT and SIGTERM cancel the root context. The supervisor stops the HTTP
server gracefully, stops the periodic scheduler and closes the database.
*/
package main
