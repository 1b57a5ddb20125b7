// Coachsync - Coaching Session Booking and Calendar Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/coachsync

/*
Package supervisor runs the long-lived coachsync services under a suture v4
supervisor tree.

	coachsync
	├── data-layer
	│   └── ProblemEvictionService
	├── sync-layer
	│   ├── CoordinatorService (sync.Coordinator Start/Stop)
	│   └── HubService (websocket.Hub RunWithContext)
	└── api-layer
	    └── HTTPServerService

Each layer restarts its own services; a crashed HTTP listener does not stop
periodic reconciliation. Supervisor events are logged through sutureslog,
which writes to zerolog via logging.NewSlogLogger.

Serve return values follow suture's convention: ctx.Err() on shutdown, any
other error triggers a restart with backoff.
*/
package supervisor
