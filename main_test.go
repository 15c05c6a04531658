package main

import (
	"strings"
	"testing"
)

func TestGetUserDataDir(t *testing.T) {
	dir := getUserDataDir()

	if dir == "" {
		t.Fatal("getUserDataDir returned empty string")
	}

	if !strings.Contains(dir, "gleaner") {
		t.Errorf("Expected user data dir to contain 'gleaner', got %q", dir)
	}
}

func TestNewLogger(t *testing.T) {
	logger, err := newLogger(false)
	if err != nil {
		t.Fatalf("newLogger failed: %v", err)
	}
	if logger == nil {
		t.Fatal("newLogger returned nil")
	}

	debugLogger, err := newLogger(true)
	if err != nil {
		t.Fatalf("newLogger(debug) failed: %v", err)
	}
	if !debugLogger.Core().Enabled(-1) {
		t.Error("Debug logger should enable the debug level")
	}
}

func TestNewAutomation(t *testing.T) {
	config := DefaultConfig()
	automation := NewAutomation(config, testLogger())

	if automation == nil {
		t.Fatal("NewAutomation returned nil")
	}

	if automation.config != config {
		t.Error("Automation config does not match provided config")
	}

	if automation.stopChan == nil {
		t.Error("Stop channel not initialized")
	}
}

func TestIsBrowserAlive(t *testing.T) {
	automation := NewAutomation(DefaultConfig(), testLogger())

	if automation.isBrowserAlive() {
		t.Error("isBrowserAlive() should return false when browser is nil")
	}
}
