// Coachsync - Coaching Session Booking and Calendar Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/coachsync

package models

import "time"

// Participant is a coach or a player. Both tables share this shape; CoachID
// is only set for players that belong to a coach.
type Participant struct {
	ID        int64     `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Email     *string   `db:"email" json:"email,omitempty"`
	CoachID   *int64    `db:"coach_id" json:"coach_id,omitempty"`
	Active    bool      `db:"active" json:"active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// ParticipantCreate is the body accepted when adding a coach or player.
type ParticipantCreate struct {
	Name    string `json:"name" validate:"required,min=2,max=120"`
	Email   string `json:"email" validate:"omitempty,email"`
	CoachID int64  `json:"coach_id" validate:"omitempty,gt=0"`
}
