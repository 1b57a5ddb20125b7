// Coachsync - Coaching Session Booking and Calendar Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/coachsync

package calendar

import (
	"fmt"
	"strconv"
	"time"

	"github.com/tomtom215/coachsync/internal/models"
)

// WallClockLayout is the layout of EventTime.DateTime.
const WallClockLayout = "2006-01-02T15:04:05"

// Color is one entry of the status color table.
type Color struct {
	ID  string // calendar colorId
	Hex string
}

// StatusColors is the canonical status -> color table.
var StatusColors = map[models.SessionStatus]Color{
	models.StatusScheduled: {ID: "9", Hex: "#1E88E5"},
	models.StatusCompleted: {ID: "2", Hex: "#4CAF50"},
	models.StatusCanceled:  {ID: "11", Hex: "#F44336"},
}

// ColorForStatus returns the color for s. Unknown statuses get the
// scheduled color.
func ColorForStatus(s models.SessionStatus) Color {
	switch s {
	case models.StatusScheduled, models.StatusCompleted, models.StatusCanceled:
		return StatusColors[s]
	default:
		return StatusColors[models.StatusScheduled]
	}
}

// StatusFromColor maps a calendar colorId back to a status. The mapping is
// deliberately coarse: reds mean canceled, greens mean completed, and every
// other color (including none) means scheduled. It is only the inverse of
// ColorForStatus for ids in StatusColors.
func StatusFromColor(colorID string) models.SessionStatus {
	switch colorID {
	case "11", "6":
		return models.StatusCanceled
	case "2", "10":
		return models.StatusCompleted
	default:
		return models.StatusScheduled
	}
}

// KnownColor reports whether colorID is one of the canonical colors.
func KnownColor(colorID string) bool {
	for _, c := range StatusColors {
		if c.ID == colorID {
			return true
		}
	}
	return false
}

// Title renders the canonical event title. The trailing tags let the
// identity resolver recover the pair even if metadata is lost.
func Title(coachName, playerName string, coachID, playerID int64) string {
	return fmt.Sprintf("Session: %s × %s #C%d #P%d", coachName, playerName, coachID, playerID)
}

// WallClock formats t as local wall time in loc with its zone name.
func WallClock(t time.Time, loc *time.Location) *EventTime {
	return &EventTime{DateTime: t.In(loc).Format(WallClockLayout), TimeZone: loc.String()}
}

// BuildEventBody maps a session to a full event payload.
func BuildEventBody(s *models.Session, coachName, playerName string, loc *time.Location) *EventBody {
	return &EventBody{
		Summary:     Title(coachName, playerName, s.CoachID, s.PlayerID),
		Description: s.NotesOrEmpty(),
		Start:       WallClock(s.StartTime, loc),
		End:         WallClock(s.EndTime, loc),
		ColorID:     ColorForStatus(s.Status).ID,
		Private:     Metadata(s),
	}
}

// Metadata returns the private properties that link an event to s.
func Metadata(s *models.Session) map[string]string {
	return map[string]string{
		models.MetaSessionID: strconv.FormatInt(s.ID, 10),
		models.MetaCoachID:   strconv.FormatInt(s.CoachID, 10),
		models.MetaPlayerID:  strconv.FormatInt(s.PlayerID, 10),
	}
}

// NeedsNormalize reports whether an imported event lacks the link to s or
// carries a color outside the status table.
func NeedsNormalize(ev *models.CalendarEvent, s *models.Session) bool {
	return ev.Private[models.MetaSessionID] != strconv.FormatInt(s.ID, 10) || !KnownColor(ev.ColorID)
}

// NormalizePatch rewrites an imported event's title, color and metadata to
// the canonical form without touching its times or description.
func NormalizePatch(s *models.Session, coachName, playerName string) *EventBody {
	return &EventBody{
		Summary: Title(coachName, playerName, s.CoachID, s.PlayerID),
		ColorID: ColorForStatus(s.Status).ID,
		Private: Metadata(s),
	}
}

// ColorPatch is a partial body that only changes the event color.
func ColorPatch(status models.SessionStatus) *EventBody {
	return &EventBody{ColorID: ColorForStatus(status).ID}
}
