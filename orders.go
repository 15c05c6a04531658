package main

import "encoding/json"

// Namespaces are 32-char hex identifiers; anything else in the payload is a
// non-game line item (DLC keys, refunds, placeholder rows).
const namespaceLength = 32

type Order struct {
	OrderType string      `json:"orderType"`
	OrderID   string      `json:"orderId"`
	Items     []OrderItem `json:"items"`
}

type OrderItem struct {
	Namespace   string `json:"namespace"`
	Description string `json:"description"`
	OfferID     string `json:"offerId"`
}

type orderHistoryPayload struct {
	Orders []Order `json:"orders"`
}

// parseOrderHistory extracts owned items from the order-history JSON payload.
// An item counts only when its parent order is a completed PURCHASE and its
// namespace is well-formed.
func parseOrderHistory(data []byte) ([]OrderItem, error) {
	var payload orderHistoryPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, err
	}

	var completed []OrderItem
	for _, order := range payload.Orders {
		if order.OrderType != "PURCHASE" {
			continue
		}
		for _, item := range order.Items {
			if len(item.Namespace) != namespaceLength {
				continue
			}
			completed = append(completed, item)
		}
	}

	return completed, nil
}
