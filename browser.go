package main

import (
	"fmt"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"go.uber.org/zap"
)

type Automation struct {
	config   *Config
	browser  *rod.Browser
	page     *rod.Page
	launcher *launcher.Launcher
	stopChan chan bool
	log      *zap.SugaredLogger
}

func NewAutomation(config *Config, log *zap.SugaredLogger) *Automation {
	return &Automation{
		config:   config,
		stopChan: make(chan bool, 1),
		log:      log,
	}
}

func (a *Automation) Close() {
	select {
	case a.stopChan <- true:
	default:
	}

	a.log.Debugf("Cleaning up browser resources")

	if a.page != nil {
		a.page.Close()
	}

	if a.browser != nil {
		a.browser.Close()
	}

	if a.launcher != nil {
		a.launcher.Cleanup()
	}
}

func (a *Automation) isBrowserAlive() bool {
	if a.browser == nil {
		return false
	}

	if _, err := a.browser.Version(); err != nil {
		a.log.Debugf("Browser version check failed: %v", err)
		return false
	}

	if a.page != nil {
		if _, err := a.page.Info(); err != nil {
			a.log.Debugf("Page info check failed: %v", err)
			return false
		}
	}

	return true
}

func (a *Automation) checkBrowserOrExit() {
	if !a.isBrowserAlive() {
		a.log.Infof("Browser was closed, shutting down")
		os.Exit(0)
	}
}

func (a *Automation) watchBrowser() {
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-a.stopChan:
			return
		case <-ticker.C:
			a.checkBrowserOrExit()
		}
	}
}

func (a *Automation) setupBrowser() error {
	a.log.Infof("Launching browser")

	// Disable leakless mode on Windows to prevent deadlock
	// See: https://github.com/go-rod/rod/issues/853
	useLeakless := runtime.GOOS != "windows"

	chromePath, chromeExists := launcher.LookPath()

	a.launcher = launcher.New().
		Leakless(useLeakless).
		Headless(a.config.Headless)

	// Persistent profile keeps the storefront session across runs; login
	// happens once in a headed session and cookies survive in the profile.
	if a.config.BrowserProfilePath != "" {
		a.launcher = a.launcher.UserDataDir(a.config.BrowserProfilePath)
		a.log.Debugf("Browser profile: %s", a.config.BrowserProfilePath)
	}

	if chromeExists {
		a.launcher = a.launcher.Bin(chromePath)
		a.log.Debugf("Using system Chrome: %s", chromePath)
	} else {
		a.log.Infof("System Chrome not found, downloading Chromium")
	}

	url, err := a.launcher.Launch()
	if err != nil {
		errMsg := err.Error()
		if strings.Contains(errMsg, "Opening in existing browser session") ||
			strings.Contains(errMsg, "ProcessSingleton") ||
			strings.Contains(errMsg, "SingletonLock") {
			return fmt.Errorf("chrome is already running with this profile, close it and try again: %w", err)
		}
		return fmt.Errorf("failed to launch browser: %w", err)
	}

	browser := rod.New().ControlURL(url)
	if err := browser.Connect(); err != nil {
		return fmt.Errorf("failed to connect to browser: %w", err)
	}
	a.browser = browser

	go a.watchBrowser()

	a.log.Infof("Browser launched")
	return nil
}

// openPage creates the stealth page used for the whole run and lands it on
// the claim page so the session cookies attach.
func (a *Automation) openPage(locale string) error {
	page, err := stealth.Page(a.browser)
	if err != nil {
		return fmt.Errorf("failed to create stealth page: %w", err)
	}
	a.page = page

	if err := a.page.SetUserAgent(&proto.NetworkSetUserAgentOverride{
		UserAgent: browserUserAgent,
	}); err != nil {
		a.log.Debugf("Failed to set user agent: %v", err)
	}

	if err := a.page.Navigate(claimURL(locale)); err != nil {
		return fmt.Errorf("failed to navigate to claim page: %w", err)
	}
	if err := a.page.WaitLoad(); err != nil {
		return fmt.Errorf("claim page failed to load: %w", err)
	}

	return nil
}
