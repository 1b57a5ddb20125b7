// Coachsync - Coaching Session Booking and Calendar Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/coachsync

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/tomtom215/coachsync/internal/models"
)

const (
	coachColumns  = `id, name, email, active, created_at`
	playerColumns = `id, name, email, coach_id, active, created_at`
)

func (r *Repo) ActiveCoaches(ctx context.Context) ([]models.Participant, error) {
	var out []models.Participant
	query := `SELECT ` + coachColumns + ` FROM coaches WHERE active ORDER BY id`
	if err := sqlx.SelectContext(ctx, r.q, &out, query); err != nil {
		return nil, fmt.Errorf("failed to list coaches: %w", err)
	}
	return out, nil
}

func (r *Repo) ActivePlayers(ctx context.Context) ([]models.Participant, error) {
	var out []models.Participant
	query := `SELECT ` + playerColumns + ` FROM players WHERE active ORDER BY id`
	if err := sqlx.SelectContext(ctx, r.q, &out, query); err != nil {
		return nil, fmt.Errorf("failed to list players: %w", err)
	}
	return out, nil
}

func (r *Repo) GetCoach(ctx context.Context, id int64) (*models.Participant, error) {
	var p models.Participant
	if err := sqlx.GetContext(ctx, r.q, &p, `SELECT `+coachColumns+` FROM coaches WHERE id = $1`, id); err != nil {
		return nil, notFound(err, fmt.Sprintf("coach %d", id))
	}
	return &p, nil
}

func (r *Repo) GetPlayer(ctx context.Context, id int64) (*models.Participant, error) {
	var p models.Participant
	if err := sqlx.GetContext(ctx, r.q, &p, `SELECT `+playerColumns+` FROM players WHERE id = $1`, id); err != nil {
		return nil, notFound(err, fmt.Sprintf("player %d", id))
	}
	return &p, nil
}

// CoachExists reports whether an active coach has this id.
func (r *Repo) CoachExists(ctx context.Context, id int64) (bool, error) {
	return r.exists(ctx, `SELECT 1 FROM coaches WHERE id = $1 AND active`, id)
}

// PlayerExists reports whether an active player has this id.
func (r *Repo) PlayerExists(ctx context.Context, id int64) (bool, error) {
	return r.exists(ctx, `SELECT 1 FROM players WHERE id = $1 AND active`, id)
}

func (r *Repo) exists(ctx context.Context, query string, id int64) (bool, error) {
	var one int
	err := sqlx.GetContext(ctx, r.q, &one, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check existence: %w", err)
	}
	return true, nil
}

// CreateCoach inserts an active coach and sets its ID and CreatedAt.
func (r *Repo) CreateCoach(ctx context.Context, p *models.Participant) error {
	p.Active = true
	row := r.q.QueryRowxContext(ctx,
		`INSERT INTO coaches (name, email, active, created_at) VALUES ($1, $2, $3, $4) RETURNING id, created_at`,
		p.Name, p.Email, p.Active, time.Now().UTC())
	if err := row.Scan(&p.ID, &p.CreatedAt); err != nil {
		return fmt.Errorf("failed to insert coach: %w", err)
	}
	return nil
}

// CreatePlayer inserts an active player and sets its ID and CreatedAt.
func (r *Repo) CreatePlayer(ctx context.Context, p *models.Participant) error {
	p.Active = true
	row := r.q.QueryRowxContext(ctx,
		`INSERT INTO players (name, email, coach_id, active, created_at) VALUES ($1, $2, $3, $4, $5) RETURNING id, created_at`,
		p.Name, p.Email, p.CoachID, p.Active, time.Now().UTC())
	if err := row.Scan(&p.ID, &p.CreatedAt); err != nil {
		return fmt.Errorf("failed to insert player: %w", err)
	}
	return nil
}
