// Coachsync - Coaching Session Booking and Calendar Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/coachsync

/*
Package websocket pushes sync results to connected browsers.

The package uses gorilla/websocket with a hub-and-client layout:

  - Hub: owns the client set and fans messages out in client id order
  - Client: one connection with a read pump (pings, close detection) and a
    write pump (queued messages, keepalive pings)
  - Message: {"type": ..., "data": ...} encoded with goccy/go-json

The sync coordinator publishes through Hub.BroadcastJSON:

  - sync_completed: the full run result
  - sync_failed: {"error", "timestamp"}
  - sync_problems: rejected events and warnings of the last run

A client may send {"type":"ping"} and receives {"type":"pong"}.

Hub.RunWithContext is run under the supervisor. On shutdown every client
is closed and the method returns ctx.Err().
*/
package websocket
