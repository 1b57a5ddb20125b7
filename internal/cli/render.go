// Coachsync - Coaching Session Booking and Calendar Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/coachsync

package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/tomtom215/coachsync/internal/models"
	"github.com/tomtom215/coachsync/internal/problems"
	syncpkg "github.com/tomtom215/coachsync/internal/sync"
)

func yesNo(b bool) string {
	if b {
		return successStyle.Render("yes")
	}
	return mutedStyle.Render("no")
}

// RenderStatus formats the coordinator status.
func RenderStatus(st *syncpkg.Status) string {
	lines := []string{
		titleStyle.Render("Sync status"),
		row("Running", yesNo(st.Running)),
	}
	periodic := yesNo(st.Periodic)
	if st.Periodic {
		periodic += mutedStyle.Render(" every " + st.Interval.String())
	}
	lines = append(lines, row("Periodic", periodic))

	last := mutedStyle.Render("never")
	if st.LastSyncTime != nil {
		last = st.LastSyncTime.Local().Format(time.DateTime) +
			mutedStyle.Render(fmt.Sprintf(" (%s, %d change(s))", st.LastDuration.Round(time.Millisecond), st.LastChanges))
	}
	lines = append(lines,
		row("Last sync", last),
		row("Runs", fmt.Sprintf("%d total, %s, %s",
			st.TotalSyncs,
			successStyle.Render(fmt.Sprintf("%d ok", st.SuccessfulSyncs)),
			failedCount(st.FailedSyncs))),
	)
	if st.LastError != "" {
		lines = append(lines, row("Last error", errorStyle.Render(st.LastError)))
	}
	return boxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

func failedCount(n int64) string {
	s := fmt.Sprintf("%d failed", n)
	if n == 0 {
		return mutedStyle.Render(s)
	}
	return errorStyle.Render(s)
}

// RenderTrigger formats the result of a manual sync.
func RenderTrigger(res *models.SyncTriggerResponse) string {
	if res.InSync {
		return successStyle.Render("✓ " + res.Message)
	}
	var b strings.Builder
	b.WriteString(res.Message)
	if res.Run != nil && (len(res.Run.Rejected) > 0 || len(res.Run.Warnings) > 0) {
		b.WriteString("\n")
		b.WriteString(mutedStyle.Render("Run `coachsyncctl problems` for details."))
	}
	return b.String()
}

// RenderProblems formats the stored problem snapshot. A nil snapshot means
// the last run had nothing to report.
func RenderProblems(snap *problems.Snapshot) string {
	if snap == nil {
		return successStyle.Render("✓ No sync problems")
	}

	header := fmt.Sprintf("Sync problems from %s", snap.Timestamp.Local().Format(time.DateTime))
	if snap.Seen {
		header += mutedStyle.Render(" (seen)")
	}
	lines := []string{titleStyle.Render(header)}

	if len(snap.Rejected) > 0 {
		lines = append(lines, "", errorStyle.Render(fmt.Sprintf("Not imported (%d)", len(snap.Rejected))))
		for _, r := range snap.Rejected {
			lines = append(lines, fmt.Sprintf("  %s %s  %s", r.Date, r.Time, r.Title))
			lines = append(lines, mutedStyle.Render("    "+r.Reason))
			if r.Suggestion != "" {
				lines = append(lines, mutedStyle.Render("    → "+r.Suggestion))
			}
		}
	}
	if len(snap.Warnings) > 0 {
		lines = append(lines, "", warningStyle.Render(fmt.Sprintf("Imported with warnings (%d)", len(snap.Warnings))))
		for _, w := range snap.Warnings {
			lines = append(lines, fmt.Sprintf("  %s %s  %s", w.Date, w.Time, w.Title))
			for _, msg := range w.Warnings {
				lines = append(lines, warningStyle.Render("    ! "+msg))
			}
		}
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

// RenderSessions formats sessions one per line, colored by status.
func RenderSessions(sessions []models.Session) string {
	if len(sessions) == 0 {
		return mutedStyle.Render("No sessions in range")
	}
	lines := make([]string, 0, len(sessions)+1)
	lines = append(lines, titleStyle.Render(fmt.Sprintf("%-6s %-16s %-6s %-7s %-7s %-10s %s",
		"ID", "START", "END", "COACH", "PLAYER", "STATUS", "SYNC")))
	for i := range sessions {
		s := &sessions[i]
		sync := successStyle.Render("synced")
		switch {
		case !s.Linked():
			sync = warningStyle.Render("unlinked")
		case s.IsDirty:
			sync = warningStyle.Render("pending")
		}
		lines = append(lines, fmt.Sprintf("%-6d %-16s %-6s %-7d %-7d %s %s",
			s.ID,
			s.StartTime.Local().Format("2006-01-02 15:04"),
			s.EndTime.Local().Format("15:04"),
			s.CoachID,
			s.PlayerID,
			statusStyle(s.Status).Width(10).Render(string(s.Status)),
			sync))
	}
	return strings.Join(lines, "\n")
}
