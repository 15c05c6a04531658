package main

import (
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"go.uber.org/zap"
)

// Agent decides whether any claiming work is needed and gathers the minimal
// state to drive it: current promotions, purchase history, and the owned
// namespace set. All of it lives for one run only.
type Agent struct {
	page     *rod.Page
	config   *Config
	checkout *Checkout
	log      *zap.SugaredLogger
	locale   string

	// fetchPromotions and loadOrders are swappable so reconciliation can be
	// tested without hitting the backend.
	fetchPromotions func() []PromotionGame
	loadOrders      func() ([]OrderItem, error)

	promotions []PromotionGame
	orders     []OrderItem
	namespaces map[string]bool
	loggedIn   bool
}

func NewAgent(page *rod.Page, config *Config, solver ChallengeSolver, log *zap.SugaredLogger) *Agent {
	locale := config.Locale
	if locale == "" {
		locale = DetectSystemLocale()
	}

	a := &Agent{
		page:     page,
		config:   config,
		checkout: NewCheckout(page, config, solver, locale, log),
		log:      log,
		locale:   locale,
		fetchPromotions: func() []PromotionGame {
			return GetPromotions(config, log)
		},
	}
	a.loadOrders = a.loadOrderHistory
	return a
}

// syncOrderHistory populates the purchase history once per run. Failures are
// soft: an empty history only causes redundant claim attempts downstream,
// and those are idempotent on the storefront side.
func (a *Agent) syncOrderHistory() {
	if len(a.orders) > 0 {
		return
	}

	completed, err := a.loadOrders()
	if err != nil {
		a.log.Warnf("Failed to sync order history: %v", err)
		return
	}
	a.orders = completed
}

func (a *Agent) loadOrderHistory() ([]OrderItem, error) {
	if err := a.page.Navigate(urlOrderHistory); err != nil {
		return nil, fmt.Errorf("failed to open order history: %w", err)
	}
	if err := a.page.WaitLoad(); err != nil {
		return nil, fmt.Errorf("order history failed to load: %w", err)
	}

	// The endpoint renders the JSON payload inside a <pre> element.
	pre, err := a.page.Timeout(10 * time.Second).ElementX(a.config.Selectors.OrderHistoryBody)
	if err != nil {
		return nil, fmt.Errorf("order history payload not found: %w", err)
	}
	text, err := pre.Text()
	if err != nil {
		return nil, fmt.Errorf("failed to read order history payload: %w", err)
	}

	items, err := parseOrderHistory([]byte(text))
	if err != nil {
		return nil, fmt.Errorf("failed to parse order history: %w", err)
	}
	return items, nil
}

// checkOrders recomputes pending promotions: discovery results minus the
// owned namespace set. The set is derived from the first non-empty history
// sync; until one succeeds, every discovered promotion counts as pending.
func (a *Agent) checkOrders() {
	a.syncOrderHistory()

	if a.namespaces == nil && len(a.orders) > 0 {
		a.namespaces = make(map[string]bool, len(a.orders))
		for _, item := range a.orders {
			a.namespaces[item.Namespace] = true
		}
	}

	var pending []PromotionGame
	for _, p := range a.fetchPromotions() {
		if a.namespaces[p.Namespace] {
			continue
		}
		pending = append(pending, p)
	}
	a.promotions = pending
}

// shouldIgnoreTask reports whether the run can be skipped entirely: either
// the session cookies are unusable, or everything on offer is already owned.
func (a *Agent) shouldIgnoreTask() bool {
	a.loggedIn = false

	if err := a.page.Navigate(claimURL(a.locale)); err != nil {
		a.log.Warnf("Failed to open claim page: %v", err)
		return true
	}
	if err := a.page.WaitLoad(); err != nil {
		a.log.Warnf("Claim page failed to load: %v", err)
		return true
	}

	nav, err := a.page.Timeout(10 * time.Second).ElementX(a.config.Selectors.LoginIndicator)
	if err != nil {
		a.log.Errorf("Login indicator not found: %v", err)
		return true
	}

	status, err := nav.Attribute("isloggedin")
	if err != nil || status == nil || *status == "false" {
		a.log.Errorf("Context cookies are not available, log in with a headed session first")
		return true
	}
	a.loggedIn = true

	a.checkOrders()
	return len(a.promotions) == 0
}

// CollectGames is the top-level entry: gate, reconcile, then hand the
// pending list to the checkout orchestrator. A failed promotion never
// crashes the caller.
func (a *Agent) CollectGames() {
	if a.shouldIgnoreTask() {
		if !a.loggedIn {
			return
		}
		a.log.Infof("All week-free games are already in the library")
		return
	}

	if len(a.promotions) == 0 {
		a.checkOrders()
	}
	if len(a.promotions) == 0 {
		a.log.Infof("All week-free games are already in the library")
		return
	}

	for _, p := range a.promotions {
		a.log.Infof("Discover promotion: %s (%s)", p.Title, p.URL)
	}

	if err := a.checkout.CollectWeeklyGames(a.promotions); err != nil {
		a.log.Errorf("Failed to collect weekly games: %v", err)
	}

	a.log.Debugf("All tasks in the workflow have been completed")
}
