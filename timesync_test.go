package main

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func dateHeaderServer(t *testing.T, skew time.Duration) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Date", time.Now().Add(skew).UTC().Format(http.TimeFormat))
	}))
}

func TestTimeSyncAgainstServer(t *testing.T) {
	server := dateHeaderServer(t, 0)
	defer server.Close()

	ts := NewTimeSync([]string{server.URL}, testLogger())

	if ts.IsSynced() {
		t.Error("TimeSync should not be synced initially")
	}

	if err := ts.Sync(); err != nil {
		t.Fatalf("Failed to sync time: %v", err)
	}

	if !ts.IsSynced() {
		t.Error("TimeSync should be synced after calling Sync()")
	}

	// HTTP Date has one-second resolution; the offset against a local
	// server must stay within that.
	offset := ts.Offset()
	if offset > 2*time.Second || offset < -2*time.Second {
		t.Errorf("Time offset seems unreasonable: %v", offset)
	}
}

func TestTimeSyncSkewedServer(t *testing.T) {
	server := dateHeaderServer(t, time.Hour)
	defer server.Close()

	ts := NewTimeSync([]string{server.URL}, testLogger())
	if err := ts.Sync(); err != nil {
		t.Fatalf("Failed to sync time: %v", err)
	}

	offset := ts.Offset()
	if offset < 58*time.Minute || offset > 62*time.Minute {
		t.Errorf("Expected roughly one hour offset, got %v", offset)
	}

	diff := ts.Now().Sub(time.Now().Add(time.Hour))
	if diff > 2*time.Second || diff < -2*time.Second {
		t.Errorf("Now() does not track the skewed clock: %v", diff)
	}
}

func TestTimeSyncNoServers(t *testing.T) {
	ts := NewTimeSync(nil, testLogger())

	if err := ts.Sync(); err == nil {
		t.Error("Expected error when no servers are reachable")
	}
	if ts.IsSynced() {
		t.Error("TimeSync must not report synced after a failed sync")
	}
}

func TestTimeSyncNoDateHeader(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// httptest sets Date automatically; suppress it.
		w.Header()["Date"] = nil
	}))
	defer server.Close()

	ts := NewTimeSync([]string{server.URL}, testLogger())
	if err := ts.Sync(); err == nil {
		t.Error("Expected error when the Date header is missing")
	}
}

func TestTimeSyncResync(t *testing.T) {
	server := dateHeaderServer(t, 0)
	defer server.Close()

	ts := NewTimeSync([]string{server.URL}, testLogger())

	if !ts.ShouldResync() {
		t.Error("Should need to resync when not yet synced")
	}

	if err := ts.Sync(); err != nil {
		t.Fatalf("Failed to sync time: %v", err)
	}

	if ts.ShouldResync() {
		t.Error("Should not need to resync immediately after syncing")
	}

	ts.lastSyncTime = time.Now().Add(-2 * time.Hour)

	if !ts.ShouldResync() {
		t.Error("Should need to resync after 2 hours")
	}
}

func TestTimeSyncBeforeSync(t *testing.T) {
	ts := NewTimeSync(nil, testLogger())

	diff := ts.Now().Sub(time.Now())
	if diff > 100*time.Millisecond || diff < -100*time.Millisecond {
		t.Errorf("Unsynced time differs from system time: %v", diff)
	}
}
