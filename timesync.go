package main

import (
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// TimeSync estimates the offset between the local clock and real time by
// sampling Date headers from reliable hosts. Promotions rotate at a fixed
// instant, so a skewed local clock would start the run early or late.
type TimeSync struct {
	servers      []string
	offset       time.Duration
	lastSyncTime time.Time
	synced       bool
	log          *zap.SugaredLogger
}

func NewTimeSync(servers []string, log *zap.SugaredLogger) *TimeSync {
	return &TimeSync{
		servers: servers,
		log:     log,
	}
}

// Sync averages the offset over every reachable server. Fails only when no
// server responds at all.
func (ts *TimeSync) Sync() error {
	var totalOffset time.Duration
	successCount := 0

	for _, server := range ts.servers {
		offset, err := ts.serverOffset(server)
		if err != nil {
			ts.log.Debugf("Time sync failed for %s: %v", server, err)
			continue
		}

		totalOffset += offset
		successCount++
		ts.log.Debugf("Time offset from %s: %v", server, offset)
	}

	if successCount == 0 {
		return fmt.Errorf("failed to sync time with any server")
	}

	ts.offset = totalOffset / time.Duration(successCount)
	ts.lastSyncTime = time.Now()
	ts.synced = true

	ts.log.Infof("Time synchronized (average offset: %v)", ts.offset)
	return nil
}

// serverOffset makes an HTTP HEAD request and reads the Date header,
// compensating for half the round trip.
func (ts *TimeSync) serverOffset(url string) (time.Duration, error) {
	client := &http.Client{Timeout: 5 * time.Second}

	beforeRequest := time.Now()

	req, err := http.NewRequest("HEAD", url, nil)
	if err != nil {
		return 0, err
	}

	resp, err := client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	afterRequest := time.Now()

	dateHeader := resp.Header.Get("Date")
	if dateHeader == "" {
		return 0, fmt.Errorf("no Date header in response")
	}

	serverTime, err := http.ParseTime(dateHeader)
	if err != nil {
		return 0, fmt.Errorf("failed to parse Date header: %w", err)
	}

	latency := afterRequest.Sub(beforeRequest) / 2
	localTime := beforeRequest.Add(latency)

	return serverTime.Sub(localTime), nil
}

// Now returns the current time adjusted by the measured offset, or local
// time when no sync has happened yet.
func (ts *TimeSync) Now() time.Time {
	if !ts.synced {
		return time.Now()
	}
	return time.Now().Add(ts.offset)
}

func (ts *TimeSync) IsSynced() bool {
	return ts.synced
}

func (ts *TimeSync) Offset() time.Duration {
	return ts.offset
}

// ShouldResync reports whether the measurement is stale (older than an hour).
func (ts *TimeSync) ShouldResync() bool {
	if !ts.synced {
		return true
	}
	return time.Since(ts.lastSyncTime) > time.Hour
}
