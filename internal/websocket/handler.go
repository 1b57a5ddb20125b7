// Coachsync - Coaching Session Booking and Calendar Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/coachsync

package websocket

import (
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tomtom215/coachsync/internal/logging"
)

// Upgrader returns a websocket upgrader that accepts the listed origins.
// "*" allows any origin. Requests without an Origin header are refused.
func Upgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:   1024,
		WriteBufferSize:  1024,
		HandshakeTimeout: 10 * time.Second,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				logging.Warn().Msg("Websocket connection rejected: missing Origin header")
				return false
			}
			for _, allowed := range allowedOrigins {
				if allowed == "*" || strings.EqualFold(allowed, origin) {
					return true
				}
			}
			logging.Warn().Str("origin", strings.ReplaceAll(origin, "\n", "")).Msg("Websocket connection rejected from unauthorized origin")
			return false
		},
	}
}

// ServeWS upgrades the request and registers the connection with hub.
func ServeWS(hub *Hub, upgrader *websocket.Upgrader, w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Warn().Err(err).Msg("Websocket upgrade failed")
		return
	}
	client := NewClient(hub, conn)
	hub.Register <- client
	client.Start()
}
