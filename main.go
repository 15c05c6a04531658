package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to configuration file")
	dryRun := flag.Bool("dry-run", false, "Test mode: stop before any order is placed")
	debug := flag.Bool("debug", false, "Enable detailed debug logging")
	headless := flag.Bool("headless", false, "Run the browser headless")
	locale := flag.String("locale", "", "Storefront locale (e.g. en-US), overrides config")
	claimAt := flag.String("claim-at", "", "Rotation time to wait for (e.g. '2025-01-16 16:00 UTC')")
	flag.Parse()

	checkUserDataDirPermissions()

	config, err := LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if *dryRun {
		config.DryRun = true
	}
	if *debug {
		config.DebugMode = true
	}
	if *headless {
		config.Headless = true
	}
	if *locale != "" {
		config.Locale = *locale
	}
	if *claimAt != "" {
		config.RotationTime = *claimAt
	}

	logger, err := newLogger(config.DebugMode)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()
	sugar := logger.Sugar()

	fmt.Println("╔═══════════════════════════════════════════════════════════╗")
	fmt.Println("║              Weekly Free-Game Claimer                    ║")
	fmt.Println("╚═══════════════════════════════════════════════════════════╝")
	fmt.Println()
	fmt.Printf("Browser Profile: %s\n", config.BrowserProfilePath)

	if config.DryRun {
		fmt.Println("🧪 DRY RUN MODE - No orders will be placed")
	}
	if config.DebugMode {
		fmt.Println("🔍 DEBUG MODE - Detailed logging enabled")
	}
	fmt.Println()

	if config.RotationTime != "" {
		target, err := ParseRotationTime(config.RotationTime)
		if err != nil {
			sugar.Fatalf("Invalid rotation time: %v", err)
		}
		ts := NewTimeSync(config.TimeServers, sugar)
		waitForRotation(target, ts, sugar)
	}

	automation := NewAutomation(config, sugar)
	defer automation.Close()

	if err := automation.setupBrowser(); err != nil {
		sugar.Fatalf("Failed to setup browser: %v", err)
	}

	pageLocale := config.Locale
	if pageLocale == "" {
		pageLocale = DetectSystemLocale()
	}
	if err := automation.openPage(pageLocale); err != nil {
		sugar.Fatalf("Failed to open storefront: %v", err)
	}

	solver := NewWidgetWatcher(automation.page, config.Challenge, sugar)
	agent := NewAgent(automation.page, config, solver, sugar)
	agent.CollectGames()

	if config.KeepBrowserOpen {
		sugar.Infof("Keeping browser open for 30 seconds")
		time.Sleep(30 * time.Second)
	}
}

func newLogger(debug bool) (*zap.Logger, error) {
	config := zap.NewDevelopmentConfig()
	config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	if debug {
		config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	} else {
		config.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	}
	return config.Build()
}

// Store init error for later display
var initUserDataDirError error

func init() {
	userDataDir := getUserDataDir()
	if err := os.MkdirAll(userDataDir, 0755); err != nil {
		initUserDataDirError = err
	}
}

func checkUserDataDirPermissions() {
	if initUserDataDirError != nil {
		log.Printf("Warning: failed to create user data dir %s: %v",
			getUserDataDir(), initUserDataDirError)
	}
}

func getUserDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./gleaner-data"
	}
	return filepath.Join(home, ".gleaner")
}
