package domain

import (
	"fmt"
	"strings"
)

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "Pending"
	OrderStatusProcessing OrderStatus = "Processing"
	OrderStatusShipped    OrderStatus = "Shipped"
	OrderStatusDelivered  OrderStatus = "Delivered"
	OrderStatusCancelled  OrderStatus = "Cancelled"
)

var transitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:    {OrderStatusProcessing, OrderStatusCancelled},
	OrderStatusProcessing: {OrderStatusShipped, OrderStatusCancelled},
	OrderStatusShipped:    {OrderStatusDelivered, OrderStatusCancelled},
	OrderStatusDelivered:  {},
	OrderStatusCancelled:  {},
}

// ParseOrderStatus accepts any letter case ("pending", "PENDING") and the
// single-l spelling "canceled".
func ParseOrderStatus(s string) (OrderStatus, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pending":
		return OrderStatusPending, nil
	case "processing":
		return OrderStatusProcessing, nil
	case "shipped":
		return OrderStatusShipped, nil
	case "delivered":
		return OrderStatusDelivered, nil
	case "cancelled", "canceled":
		return OrderStatusCancelled, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownStatus, s)
}

func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled
}

func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func (s OrderStatus) String() string {
	return string(s)
}
