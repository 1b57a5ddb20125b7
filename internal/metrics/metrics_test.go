// Coachsync - Coaching Session Booking and Calendar Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/coachsync

package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordSyncRun(t *testing.T) {
	beforeOK := testutil.ToFloat64(SyncRunsTotal.WithLabelValues("success"))
	beforeInSync := testutil.ToFloat64(SyncRunsTotal.WithLabelValues("in_sync"))
	beforeFail := testutil.ToFloat64(SyncRunsTotal.WithLabelValues("failure"))
	beforeImported := testutil.ToFloat64(SyncEventsTotal.WithLabelValues("imported"))

	RecordSyncRun(time.Second, SyncResult{Imported: 3, Rejected: 1}, nil)
	RecordSyncRun(time.Second, SyncResult{InSync: true}, nil)
	RecordSyncRun(time.Second, SyncResult{Imported: 99}, errors.New("calendar down"))

	if got := testutil.ToFloat64(SyncRunsTotal.WithLabelValues("success")) - beforeOK; got != 1 {
		t.Errorf("success runs delta = %v, want 1", got)
	}
	if got := testutil.ToFloat64(SyncRunsTotal.WithLabelValues("in_sync")) - beforeInSync; got != 1 {
		t.Errorf("in_sync runs delta = %v, want 1", got)
	}
	if got := testutil.ToFloat64(SyncRunsTotal.WithLabelValues("failure")) - beforeFail; got != 1 {
		t.Errorf("failure runs delta = %v, want 1", got)
	}
	if got := testutil.ToFloat64(SyncEventsTotal.WithLabelValues("imported")) - beforeImported; got != 3 {
		t.Errorf("imported delta = %v, want 3 (failed runs must not count)", got)
	}
	if testutil.ToFloat64(SyncLastSuccess) == 0 {
		t.Error("last success timestamp must be set")
	}
}

func TestRecordCalendarCall(t *testing.T) {
	for _, result := range []string{"ok", "not_found", "error"} {
		before := testutil.ToFloat64(CalendarRequests.WithLabelValues("patch", result))
		RecordCalendarCall("patch", result, 10*time.Millisecond)
		if got := testutil.ToFloat64(CalendarRequests.WithLabelValues("patch", result)) - before; got != 1 {
			t.Errorf("%s delta = %v, want 1", result, got)
		}
	}
}

func TestRecordAPIRequestUnmatchedRoute(t *testing.T) {
	before := testutil.ToFloat64(APIRequestsTotal.WithLabelValues("GET", "unmatched", "404"))
	RecordAPIRequest("get", "", "404", time.Millisecond)
	if got := testutil.ToFloat64(APIRequestsTotal.WithLabelValues("GET", "unmatched", "404")) - before; got != 1 {
		t.Errorf("unmatched delta = %v, want 1", got)
	}
}
