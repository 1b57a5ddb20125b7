// Coachsync - Coaching Session Booking and Calendar Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/coachsync

// Package identity extracts the (coach, player) pair a calendar event refers to.
//
// Three strategies are tried in order and the first success wins:
//
//  1. Metadata: coach_id/player_id in the event's private properties.
//  2. Hybrid: split the title on "×" (or a standalone "x") into a coach and a
//     player segment. An inline #C<id>/#P<id> tag wins over the segment's
//     name; otherwise the name must match exactly one active participant.
//  3. Fallback: #C<id>, Coach <id>, #P<id>, Player <id> anywhere in the title.
//
// A failed resolution is final. Callers reject the event rather than guess.
package identity

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/tomtom215/coachsync/internal/models"
)

// Strategy names the rule that produced a Result.
type Strategy string

const (
	StrategyMetadata Strategy = "metadata"
	StrategyHybrid   Strategy = "hybrid"
	StrategyFallback Strategy = "fallback"
)

// Result is a resolved participant pair.
type Result struct {
	CoachID  int64
	PlayerID int64
	Strategy Strategy
}

// Directory is a snapshot of active coaches and players.
type Directory struct {
	Coaches []models.Participant
	Players []models.Participant
}

// Options tune the resolver.
type Options struct {
	// MaxMetadataID rejects metadata ids >= this bound as corrupt. 0 disables
	// the check.
	MaxMetadataID int64
}

var (
	prefixRe     = regexp.MustCompile(`(?i)^(?:sesión|session)[:\-]\s*`)
	timesSplitRe = regexp.MustCompile(`^(.+?)\s*×\s*(.+)$`)
	xSplitRe     = regexp.MustCompile(`^(.+?)\s+[xX]\s+(.+)$`)
	tagRe        = regexp.MustCompile(`#[CcPp]\d+`)
	coachTagRe   = regexp.MustCompile(`#[Cc](\d+)`)
	playerTagRe  = regexp.MustCompile(`#[Pp](\d+)`)

	fallbackCoachRe = []*regexp.Regexp{
		regexp.MustCompile(`(?i)#C(\d+)`),
		regexp.MustCompile(`(?i)Coach[#\s]*(\d+)`),
	}
	fallbackPlayerRe = []*regexp.Regexp{
		regexp.MustCompile(`(?i)#P(\d+)`),
		regexp.MustCompile(`(?i)Player[#\s]*(\d+)`),
	}
)

// Resolver resolves events against one directory snapshot. Build a new one
// per reconciliation run so name lookups see the current directory.
type Resolver struct {
	opts    Options
	coaches map[string][]int64
	players map[string][]int64
}

// NewResolver indexes the directory by normalized name.
func NewResolver(dir Directory, opts Options) *Resolver {
	return &Resolver{
		opts:    opts,
		coaches: indexByName(dir.Coaches),
		players: indexByName(dir.Players),
	}
}

func indexByName(ps []models.Participant) map[string][]int64 {
	idx := make(map[string][]int64, len(ps))
	for _, p := range ps {
		if !p.Active {
			continue
		}
		key := NormalizeName(p.Name)
		idx[key] = append(idx[key], p.ID)
	}
	return idx
}

// Resolve returns the pair for ev, or ok=false when no strategy succeeds.
func (r *Resolver) Resolve(ev *models.CalendarEvent) (Result, bool) {
	if res, ok := r.fromMetadata(ev.Private); ok {
		return res, true
	}
	if res, ok := r.fromTitle(ev.Summary); ok {
		return res, true
	}
	if res, ok := fromBareIDs(ev.Summary); ok {
		return res, true
	}
	return Result{}, false
}

func (r *Resolver) fromMetadata(props map[string]string) (Result, bool) {
	cid, okC := positiveInt(props[models.MetaCoachID])
	pid, okP := positiveInt(props[models.MetaPlayerID])
	if !okC || !okP {
		return Result{}, false
	}
	if bound := r.opts.MaxMetadataID; bound > 0 && (cid >= bound || pid >= bound) {
		return Result{}, false
	}
	return Result{CoachID: cid, PlayerID: pid, Strategy: StrategyMetadata}, true
}

func (r *Resolver) fromTitle(title string) (Result, bool) {
	left, right, ok := SplitTitle(title)
	if !ok {
		return Result{}, false
	}

	// Tags belong to their own segment, but the canonical title appends both
	// tags after the player name, so the opposite segment is checked next.
	coachID, ok := tagID(coachTagRe, left, right)
	if !ok {
		coachID, ok = unique(r.coaches, left)
	}
	if !ok {
		return Result{}, false
	}

	playerID, ok := tagID(playerTagRe, right, left)
	if !ok {
		playerID, ok = unique(r.players, right)
	}
	if !ok {
		return Result{}, false
	}
	return Result{CoachID: coachID, PlayerID: playerID, Strategy: StrategyHybrid}, true
}

// SplitTitle strips a leading "Session:" label and splits the rest into the
// coach and player segments.
func SplitTitle(title string) (left, right string, ok bool) {
	clean := strings.TrimSpace(prefixRe.ReplaceAllString(strings.TrimSpace(title), ""))
	m := timesSplitRe.FindStringSubmatch(clean)
	if m == nil {
		m = xSplitRe.FindStringSubmatch(clean)
	}
	if m == nil {
		return "", "", false
	}
	return strings.TrimSpace(m[1]), strings.TrimSpace(m[2]), true
}

func tagID(re *regexp.Regexp, segments ...string) (int64, bool) {
	for _, seg := range segments {
		if m := re.FindStringSubmatch(seg); m != nil {
			if id, ok := positiveInt(m[1]); ok {
				return id, true
			}
		}
	}
	return 0, false
}

// unique looks the segment up by normalized name. Zero or several matches
// both fail.
func unique(idx map[string][]int64, segment string) (int64, bool) {
	name := NormalizeName(tagRe.ReplaceAllString(segment, " "))
	if name == "" {
		return 0, false
	}
	ids := idx[name]
	if len(ids) != 1 {
		return 0, false
	}
	return ids[0], true
}

func fromBareIDs(title string) (Result, bool) {
	cid, okC := firstID(fallbackCoachRe, title)
	pid, okP := firstID(fallbackPlayerRe, title)
	if !okC || !okP {
		return Result{}, false
	}
	return Result{CoachID: cid, PlayerID: pid, Strategy: StrategyFallback}, true
}

func firstID(res []*regexp.Regexp, text string) (int64, bool) {
	for _, re := range res {
		if m := re.FindStringSubmatch(text); m != nil {
			if id, ok := positiveInt(m[1]); ok {
				return id, true
			}
		}
	}
	return 0, false
}

func positiveInt(v string) (int64, bool) {
	n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}
