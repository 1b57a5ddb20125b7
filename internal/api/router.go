// Coachsync - Coaching Session Booking and Calendar Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/coachsync

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Router wires handlers to routes.
type Router struct {
	handler    *Handler
	middleware *ChiMiddleware
}

// NewRouter creates a router. A nil middleware uses defaults.
func NewRouter(handler *Handler, mw *ChiMiddleware) *Router {
	if mw == nil {
		mw = NewChiMiddleware(nil)
	}
	return &Router{handler: handler, middleware: mw}
}

// SetupChi builds the route tree.
func (router *Router) SetupChi() http.Handler {
	h := router.handler
	mw := router.middleware

	r := chi.NewRouter()
	r.Use(RequestIDWithLogging())
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(mw.CORS())
	r.Use(PrometheusMetrics)

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.With(mw.RateLimitCustom(RateLimitHealth), APISecurityHeaders()).Get("/health", h.Health)
		r.With(mw.RateLimitCustom(RateLimitWebSocket)).Get("/ws", h.WebSocket)

		r.Group(func(r chi.Router) {
			r.Use(mw.RateLimit())
			r.Use(APISecurityHeaders())
			r.Use(chimiddleware.Compress(5, "application/json"))

			r.Route("/sync", func(r chi.Router) {
				r.Get("/status", h.SyncStatus)

				r.Group(func(r chi.Router) {
					r.Use(mw.RateLimitCustom(RateLimitSync))
					r.Post("/run", h.SyncRun)
					r.Post("/force", h.SyncForce)
					r.Post("/push", h.SyncPush)
				})

				r.Post("/periodic/start", h.PeriodicStart)
				r.Post("/periodic/stop", h.PeriodicStop)

				r.Get("/problems", h.ProblemsGet)
				r.Delete("/problems", h.ProblemsClear)
				r.Post("/problems/seen", h.ProblemsSeen)
				r.Post("/problems/evict", h.ProblemsEvict)
			})

			r.Route("/sessions", func(r chi.Router) {
				r.Get("/", h.SessionsList)
				r.Post("/", h.SessionsCreate)
				r.Get("/{id}", h.SessionsGet)
				r.Patch("/{id}", h.SessionsUpdate)
				r.Delete("/{id}", h.SessionsDelete)
			})

			r.Get("/coaches", h.CoachesList)
			r.Post("/coaches", h.CoachesCreate)
			r.Get("/players", h.PlayersList)
			r.Post("/players", h.PlayersCreate)
		})
	})

	return r
}
