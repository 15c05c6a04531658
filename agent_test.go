package main

import (
	"errors"
	"testing"
)

func testAgent(owned []OrderItem, discovered []PromotionGame) *Agent {
	return &Agent{
		config: DefaultConfig(),
		log:    testLogger(),
		locale: "en-US",
		orders: owned,
		fetchPromotions: func() []PromotionGame {
			return discovered
		},
	}
}

func TestCheckOrdersSetMinus(t *testing.T) {
	ownedNS := validNamespace
	newNS := "ffffffffffffffffffffffffffffffff"

	agent := testAgent(
		[]OrderItem{{Namespace: ownedNS}},
		[]PromotionGame{
			{Title: "Owned Game", Namespace: ownedNS},
			{Title: "New Game", Namespace: newNS},
		},
	)

	agent.checkOrders()

	if len(agent.promotions) != 1 {
		t.Fatalf("Expected 1 pending promotion, got %d", len(agent.promotions))
	}
	if agent.promotions[0].Title != "New Game" {
		t.Errorf("Expected 'New Game' to be pending, got %q", agent.promotions[0].Title)
	}
}

func TestCheckOrdersIdempotent(t *testing.T) {
	agent := testAgent(
		[]OrderItem{{Namespace: validNamespace}},
		[]PromotionGame{
			{Title: "New Game", Namespace: "ffffffffffffffffffffffffffffffff"},
		},
	)

	agent.checkOrders()
	first := len(agent.promotions)

	agent.checkOrders()
	second := len(agent.promotions)

	if first != second {
		t.Errorf("checkOrders not idempotent: %d then %d pending", first, second)
	}
}

func TestCheckOrdersNamespacesDerivedOnce(t *testing.T) {
	agent := testAgent(
		[]OrderItem{{Namespace: validNamespace}},
		[]PromotionGame{{Title: "Game", Namespace: validNamespace}},
	)

	agent.checkOrders()
	if len(agent.promotions) != 0 {
		t.Fatalf("Expected no pending promotions, got %d", len(agent.promotions))
	}

	// New orders appearing mid-session must not change the derived set.
	agent.orders = append(agent.orders, OrderItem{Namespace: "ffffffffffffffffffffffffffffffff"})
	agent.checkOrders()

	if len(agent.namespaces) != 1 {
		t.Errorf("Namespace set should be derived once per session, got %d entries", len(agent.namespaces))
	}
}

func TestCheckOrdersRecoversAfterFailedSync(t *testing.T) {
	agent := testAgent(nil, []PromotionGame{{Title: "Owned Game", Namespace: validNamespace}})
	agent.loadOrders = func() ([]OrderItem, error) {
		return nil, errors.New("order history unavailable")
	}

	agent.checkOrders()
	if len(agent.promotions) != 1 {
		t.Fatalf("Expected 1 pending promotion while history is unknown, got %d", len(agent.promotions))
	}
	if agent.namespaces != nil {
		t.Fatal("Namespace set must stay underived until a history sync succeeds")
	}

	agent.loadOrders = func() ([]OrderItem, error) {
		return []OrderItem{{Namespace: validNamespace}}, nil
	}
	agent.checkOrders()
	if len(agent.promotions) != 0 {
		t.Errorf("Owned promotion still pending after history sync recovered: %d", len(agent.promotions))
	}
}

func TestCheckOrdersAllNew(t *testing.T) {
	agent := testAgent(
		[]OrderItem{{Namespace: "cccccccccccccccccccccccccccccccc"}},
		[]PromotionGame{
			{Title: "A", Namespace: "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"},
			{Title: "B", Namespace: "bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"},
		},
	)

	agent.checkOrders()
	if len(agent.promotions) != 2 {
		t.Errorf("Expected 2 pending promotions, got %d", len(agent.promotions))
	}
}

func TestSyncOrderHistoryIdempotent(t *testing.T) {
	agent := testAgent([]OrderItem{{Namespace: validNamespace}}, nil)

	// With orders already populated this must return without touching the
	// page (agent.page is nil, so any navigation would panic).
	agent.syncOrderHistory()

	if len(agent.orders) != 1 {
		t.Errorf("syncOrderHistory should keep existing orders, got %d", len(agent.orders))
	}
}

func TestNewAgent(t *testing.T) {
	config := DefaultConfig()
	agent := NewAgent(nil, config, &stubSolver{}, testLogger())

	if agent == nil {
		t.Fatal("NewAgent returned nil")
	}
	if agent.checkout == nil {
		t.Error("Agent checkout orchestrator not initialized")
	}
	if agent.fetchPromotions == nil {
		t.Error("Agent promotions fetcher not initialized")
	}
	if agent.loadOrders == nil {
		t.Error("Agent order history loader not initialized")
	}
	if agent.loggedIn {
		t.Error("loggedIn should be false initially")
	}
}
