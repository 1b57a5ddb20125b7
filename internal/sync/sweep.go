// Coachsync - Coaching Session Booking and Calendar Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/coachsync

package sync

import (
	"context"
	"fmt"

	"github.com/tomtom215/coachsync/internal/calendar"
	"github.com/tomtom215/coachsync/internal/logging"
	"github.com/tomtom215/coachsync/internal/models"
)

// SweepPastSessions marks scheduled sessions whose end has passed as
// completed. The status change commits first; recoloring linked events is
// best effort and each failure comes back as a warning, leaving that row
// dirty for the next push.
func (e *Engine) SweepPastSessions(ctx context.Context) (int, []string, error) {
	now := e.now()
	var swept []models.Session

	err := e.repo.WithTx(ctx, func(st Store) error {
		overdue, err := st.ListOverdueScheduled(ctx, now)
		if err != nil {
			return err
		}
		for i := range overdue {
			s := &overdue[i]
			s.Status = models.StatusCompleted
			s.IsDirty = true
			s.UpdatedAt = now
			if err := st.UpdateSession(ctx, s); err != nil {
				return fmt.Errorf("failed to complete session %d: %w", s.ID, err)
			}
		}
		swept = overdue
		return nil
	})
	if err != nil {
		return 0, nil, err
	}

	var warnings []string
	for i := range swept {
		s := &swept[i]
		if !s.Linked() {
			continue
		}
		if err := e.cal.PatchEvent(ctx, e.cfg.CalendarID, s.EventID(), calendar.ColorPatch(s.Status)); err != nil {
			warnings = append(warnings, fmt.Sprintf("Could not recolor event for session %d: %v", s.ID, err))
			continue
		}
		e.hasher.MarkSynced(s, e.now())
		if err := e.repo.UpdateSession(ctx, s); err != nil {
			warnings = append(warnings, fmt.Sprintf("Could not record sync for session %d: %v", s.ID, err))
		}
	}

	if len(swept) > 0 {
		logging.Ctx(ctx).Info().Int("completed", len(swept)).Int("warnings", len(warnings)).Msg("Past sessions marked completed")
	}
	return len(swept), warnings, nil
}
