package main

import "time"

// StatusChangeMessage is the payload the API publishes to the order-events
// queue on every persisted status transition.
type StatusChangeMessage struct {
	OrderID     string    `json:"orderId"`
	NewStatus   string    `json:"newStatus"`
	UpdatedAt   time.Time `json:"updatedAt"`
	Image       string    `json:"image,omitempty"`
	ProductName string    `json:"productName,omitempty"`
}
