package main

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

// ParseRotationTime parses the configured weekly rotation instant.
// Supported formats (all assumed to be UTC):
//   - "2025-01-16T16:00:00Z"      (RFC3339)
//   - "2025-01-16 16:00"          (YYYY-MM-DD HH:MM)
//   - "2025-01-16 16:00 UTC"
//   - "2025-01-16 16:00:00"
func ParseRotationTime(timeStr string) (time.Time, error) {
	timeStr = strings.TrimSpace(timeStr)

	timeStr = strings.TrimSuffix(timeStr, " UTC")
	timeStr = strings.TrimSuffix(timeStr, "UTC")
	timeStr = strings.TrimSpace(timeStr)

	if t, err := time.Parse(time.RFC3339, timeStr); err == nil {
		return t, nil
	}

	if t, err := time.Parse("2006-01-02 15:04", timeStr); err == nil {
		return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), 0, 0, time.UTC), nil
	}

	if t, err := time.Parse("2006-01-02 15:04:05", timeStr); err == nil {
		return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, time.UTC), nil
	}

	return time.Time{}, fmt.Errorf("invalid time format %q, use YYYY-MM-DD HH:MM (assumed UTC)", timeStr)
}

// waitForRotation stays dormant until the rotation instant, logging progress
// every 30 seconds and resyncing the clock when the measurement goes stale.
// Returns immediately when the instant is already in the past.
func waitForRotation(target time.Time, ts *TimeSync, log *zap.SugaredLogger) {
	if err := ts.Sync(); err != nil {
		log.Warnf("Clock sync failed, using local time: %v", err)
	}

	now := ts.Now()
	if !now.Before(target) {
		log.Infof("Rotation time %s already passed, starting now", target.Format(time.RFC3339))
		return
	}

	log.Infof("Waiting for rotation at %s (%v from now)",
		target.Format(time.RFC3339), target.Sub(now).Round(time.Second))

	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		now = ts.Now()
		remaining := target.Sub(now)

		if remaining <= 0 {
			return
		}

		if remaining < 30*time.Second {
			time.Sleep(remaining)
			return
		}

		<-ticker.C

		if ts.ShouldResync() {
			log.Debugf("Resyncing clock")
			if err := ts.Sync(); err != nil {
				log.Debugf("Clock resync failed: %v", err)
			}
		}

		now = ts.Now()
		if remaining = target.Sub(now); remaining > 0 {
			log.Infof("Rotation in %v", remaining.Round(time.Second))
		}
	}
}
