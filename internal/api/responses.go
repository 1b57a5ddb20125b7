// Coachsync - Coaching Session Booking and Calendar Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/coachsync

package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/coachsync/internal/calendar"
	"github.com/tomtom215/coachsync/internal/database"
	"github.com/tomtom215/coachsync/internal/logging"
	"github.com/tomtom215/coachsync/internal/models"
	syncpkg "github.com/tomtom215/coachsync/internal/sync"
	"github.com/tomtom215/coachsync/internal/validation"
)

const maxBodyBytes = 1 << 20

// sanitizeLogValue escapes control characters so request-derived strings
// cannot forge log lines.
func sanitizeLogValue(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r < 0x20 || r == 0x7F {
			fmt.Fprintf(&b, "\\x%02x", r)
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func respondJSON(w http.ResponseWriter, status int, response *models.APIResponse) {
	data, err := json.Marshal(response)
	if err != nil {
		logging.Error().Err(err).Msg("Failed to marshal JSON response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		logging.Error().Err(err).Msg("Failed to write JSON response")
	}
}

func respondSuccess(w http.ResponseWriter, status int, data interface{}, start time.Time) {
	respondJSON(w, status, &models.APIResponse{
		Status: "success",
		Data:   data,
		Metadata: models.Metadata{
			Timestamp:   time.Now(),
			QueryTimeMS: time.Since(start).Milliseconds(),
		},
	})
}

func respondError(w http.ResponseWriter, status int, code, message string, err error) {
	if err != nil {
		logging.Error().Str("code", code).Str("error", sanitizeLogValue(err.Error())).Msg("API error")
	}
	respondJSON(w, status, &models.APIResponse{
		Status:   "error",
		Metadata: models.Metadata{Timestamp: time.Now()},
		Error:    &models.APIError{Code: code, Message: message},
	})
}

func respondAPIError(w http.ResponseWriter, status int, apiErr *models.APIError) {
	respondJSON(w, status, &models.APIResponse{
		Status:   "error",
		Metadata: models.Metadata{Timestamp: time.Now()},
		Error:    apiErr,
	})
}

// classifyError maps domain errors to an HTTP status and error code.
func classifyError(err error) (int, string) {
	switch {
	case errors.Is(err, syncpkg.ErrAlreadyRunning):
		return http.StatusConflict, "SYNC_ALREADY_RUNNING"
	case errors.Is(err, database.ErrNotFound):
		return http.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, syncpkg.ErrInvalidUpdate):
		return http.StatusBadRequest, validation.ErrorCode
	case errors.Is(err, syncpkg.ErrUnknownParticipant):
		return http.StatusUnprocessableEntity, "UNKNOWN_PARTICIPANT"
	case errors.Is(err, calendar.ErrCircuitOpen):
		return http.StatusServiceUnavailable, "CALENDAR_UNAVAILABLE"
	case errors.Is(err, syncpkg.ErrCalendar):
		return http.StatusBadGateway, "CALENDAR_ERROR"
	default:
		return http.StatusInternalServerError, "INTERNAL_ERROR"
	}
}

// respondErr writes err with its mapped status. Server-side failures get a
// generic message; client errors echo the error text.
func respondErr(w http.ResponseWriter, err error) {
	status, code := classifyError(err)
	if status >= http.StatusInternalServerError {
		message := "Internal server error"
		switch code {
		case "CALENDAR_ERROR":
			message = "Calendar request failed: " + err.Error()
		case "CALENDAR_UNAVAILABLE":
			message = "Calendar temporarily unavailable"
		}
		respondError(w, status, code, message, err)
		return
	}
	respondError(w, status, code, err.Error(), nil)
}

// decodeJSON reads a single JSON object into v, rejecting unknown fields,
// trailing data and oversized bodies, then validates it. It writes the 400
// response itself and reports whether decoding succeeded.
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body: "+err.Error(), nil)
		return false
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		respondError(w, http.StatusBadRequest, "INVALID_JSON", "Request body must contain a single JSON object", nil)
		return false
	}
	if verr := validation.ValidateStruct(v); verr != nil {
		respondAPIError(w, http.StatusBadRequest, verr.ToAPIError())
		return false
	}
	return true
}

func getIntParam(r *http.Request, key string, defaultValue int) (int, error) {
	value := r.URL.Query().Get(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer", key)
	}
	return n, nil
}

// parseTimeParam accepts RFC 3339 or a YYYY-MM-DD date in loc. endOfDay
// moves a bare date to the last instant of that day.
func parseTimeParam(r *http.Request, key string, loc *time.Location, endOfDay bool) (time.Time, error) {
	value := r.URL.Query().Get(key)
	if value == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	day, err := time.ParseInLocation("2006-01-02", value, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s must be a date (YYYY-MM-DD) or RFC 3339 time", key)
	}
	if endOfDay {
		return day.AddDate(0, 0, 1).Add(-time.Nanosecond), nil
	}
	return day, nil
}
