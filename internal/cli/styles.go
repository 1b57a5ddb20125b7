// Coachsync - Coaching Session Booking and Calendar Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/coachsync

package cli

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/tomtom215/coachsync/internal/calendar"
	"github.com/tomtom215/coachsync/internal/models"
)

// Palette. Session status colors come from the calendar color table so the
// terminal matches what coaches see in Google Calendar.
const (
	ColorAccent    = "#7C3AED"
	ColorMuted     = "#6D7383"
	ColorSecondary = "#B1B8C7"
	ColorSuccess   = "#4CAF50"
	ColorWarning   = "#F59E0B"
	ColorError     = "#F44336"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color(ColorAccent))

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(ColorSecondary)).
			Width(18)

	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color(ColorMuted))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(ColorSuccess))
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(ColorWarning))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color(ColorError)).Bold(true)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color(ColorMuted)).
			Padding(0, 1)
)

// statusStyle colors a session status like its calendar event.
func statusStyle(s models.SessionStatus) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(calendar.ColorForStatus(s).Hex))
}

// row renders "label value" with an aligned label column.
func row(label, value string) string {
	return lipgloss.JoinHorizontal(lipgloss.Top, labelStyle.Render(label), value)
}
