package domain

import "strings"

// OrderStatus is the processing state of an order.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusCompleted OrderStatus = "completed"
)

// ParseOrderStatus normalizes a raw status string from uploads or query
// params. Unknown values are rejected.
func ParseOrderStatus(s string) (OrderStatus, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pending":
		return OrderStatusPending, true
	case "completed":
		return OrderStatusCompleted, true
	default:
		return "", false
	}
}

// Severity classifies a product's restock urgency.
type Severity string

const (
	SeverityOutOfStock Severity = "out_of_stock"
	SeverityLow        Severity = "low"
	SeveritySufficient Severity = "sufficient"
)
