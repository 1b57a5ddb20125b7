// Coachsync - Coaching Session Booking and Calendar Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/coachsync

package database

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/tomtom215/coachsync/internal/models"
)

// Store is the data access used by the sync engine and the API. Lookups by
// id return ErrNotFound when no row matches.
type Store interface {
	GetSession(ctx context.Context, id int64) (*models.Session, error)
	GetSessionByEventID(ctx context.Context, eventID string) (*models.Session, error)
	ListSessions(ctx context.Context, from, to time.Time) ([]models.Session, error)
	CreateSession(ctx context.Context, s *models.Session) error
	UpdateSession(ctx context.Context, s *models.Session) error
	DeleteSession(ctx context.Context, id int64) error

	// FindUnlinkedOnDate returns unlinked sessions of the pair starting in
	// [dayStart, dayEnd).
	FindUnlinkedOnDate(ctx context.Context, coachID, playerID int64, dayStart, dayEnd time.Time) ([]models.Session, error)
	// ListLinkedInWindow returns linked sessions with from <= start_time < to.
	ListLinkedInWindow(ctx context.Context, from, to time.Time) ([]models.Session, error)
	// ListPendingPush returns sessions that are unlinked, dirty or unhashed.
	ListPendingPush(ctx context.Context) ([]models.Session, error)
	// ListOverdueScheduled returns scheduled sessions with end_time <= now.
	ListOverdueScheduled(ctx context.Context, now time.Time) ([]models.Session, error)

	ActiveCoaches(ctx context.Context) ([]models.Participant, error)
	ActivePlayers(ctx context.Context) ([]models.Participant, error)
	GetCoach(ctx context.Context, id int64) (*models.Participant, error)
	GetPlayer(ctx context.Context, id int64) (*models.Participant, error)
	CoachExists(ctx context.Context, id int64) (bool, error)
	PlayerExists(ctx context.Context, id int64) (bool, error)
	CreateCoach(ctx context.Context, p *models.Participant) error
	CreatePlayer(ctx context.Context, p *models.Participant) error
}

// Repository is a Store that can open transactions.
type Repository interface {
	Store
	WithTx(ctx context.Context, fn func(Store) error) error
}

// Repo implements Store on a pool or a transaction.
type Repo struct {
	q sqlx.ExtContext
}

var (
	_ Store      = (*Repo)(nil)
	_ Repository = (*DB)(nil)
)
