package main

import (
	"strings"
	"testing"
)

const validNamespace = "0123456789abcdef0123456789abcdef"

func TestParseOrderHistory(t *testing.T) {
	payload := `{
		"orders": [
			{
				"orderType": "PURCHASE",
				"orderId": "A1",
				"items": [
					{"namespace": "` + validNamespace + `", "description": "Game One"},
					{"namespace": "tooshort", "description": "Broken Row"}
				]
			},
			{
				"orderType": "REFUND",
				"orderId": "A2",
				"items": [
					{"namespace": "` + validNamespace + `", "description": "Refunded Game"}
				]
			}
		]
	}`

	items, err := parseOrderHistory([]byte(payload))
	if err != nil {
		t.Fatalf("parseOrderHistory failed: %v", err)
	}

	if len(items) != 1 {
		t.Fatalf("Expected 1 item, got %d", len(items))
	}
	if items[0].Description != "Game One" {
		t.Errorf("Expected 'Game One', got %q", items[0].Description)
	}
}

func TestParseOrderHistoryNamespaceLength(t *testing.T) {
	tests := []struct {
		namespace string
		retained  bool
	}{
		{validNamespace, true},
		{validNamespace[:31], false},
		{validNamespace + "0", false},
		{"", false},
	}

	for _, test := range tests {
		payload := `{"orders": [{"orderType": "PURCHASE", "items": [{"namespace": "` + test.namespace + `"}]}]}`
		items, err := parseOrderHistory([]byte(payload))
		if err != nil {
			t.Fatalf("parseOrderHistory failed for namespace %q: %v", test.namespace, err)
		}

		retained := len(items) == 1
		if retained != test.retained {
			t.Errorf("namespace of length %d: retained = %v, expected %v",
				len(test.namespace), retained, test.retained)
		}
	}
}

func TestParseOrderHistoryNonPurchaseExcluded(t *testing.T) {
	for _, orderType := range []string{"REFUND", "CHARGEBACK", "purchase", ""} {
		payload := `{"orders": [{"orderType": "` + orderType + `", "items": [{"namespace": "` + validNamespace + `"}]}]}`
		items, err := parseOrderHistory([]byte(payload))
		if err != nil {
			t.Fatalf("parseOrderHistory failed: %v", err)
		}
		if len(items) != 0 {
			t.Errorf("Order type %q should be excluded, got %d items", orderType, len(items))
		}
	}
}

func TestParseOrderHistoryInvalidJSON(t *testing.T) {
	_, err := parseOrderHistory([]byte("<html>not json</html>"))
	if err == nil {
		t.Error("Expected error for invalid JSON, got nil")
	}
}

func TestParseOrderHistoryEmpty(t *testing.T) {
	items, err := parseOrderHistory([]byte(`{"orders": []}`))
	if err != nil {
		t.Fatalf("parseOrderHistory failed: %v", err)
	}
	if len(items) != 0 {
		t.Errorf("Expected no items, got %d", len(items))
	}
}

func TestParseOrderHistoryManyItems(t *testing.T) {
	var rows []string
	for i := 0; i < 5; i++ {
		rows = append(rows, `{"namespace": "`+validNamespace+`"}`)
	}
	payload := `{"orders": [{"orderType": "PURCHASE", "items": [` + strings.Join(rows, ",") + `]}]}`

	items, err := parseOrderHistory([]byte(payload))
	if err != nil {
		t.Fatalf("parseOrderHistory failed: %v", err)
	}
	if len(items) != 5 {
		t.Errorf("Expected 5 items, got %d", len(items))
	}
}
