package notify

import "time"

// NotificationTypeOrder is the only type this service emits.
const NotificationTypeOrder = "order"

// Notification is the write-once record persisted in the notifications
// table. Owned by the notification subsystem after creation; the order
// service never updates or deletes one.
type Notification struct {
	NotificationID string    `dynamodbav:"notification_id" json:"notification_id"` // PK
	UserID         string    `dynamodbav:"user_id" json:"user_id"`
	Type           string    `dynamodbav:"type" json:"type"`
	Title          string    `dynamodbav:"title" json:"title"`
	Message        string    `dynamodbav:"message" json:"message"`
	OrderID        string    `dynamodbav:"order_id" json:"order_id"`
	Image          string    `dynamodbav:"image,omitempty" json:"image,omitempty"`
	ProductName    string    `dynamodbav:"product_name,omitempty" json:"product_name,omitempty"`
	Read           bool      `dynamodbav:"read" json:"read"`
	CreatedAt      time.Time `dynamodbav:"created_at" json:"created_at"`
}

// StatusChange describes a persisted order status transition. The order
// service builds one after the new status is durably written; everything
// the dispatcher does with it is best-effort.
type StatusChange struct {
	OrderID     string    `json:"orderId"`
	UserID      string    `json:"-"`
	NewStatus   string    `json:"newStatus"`
	UpdatedAt   time.Time `json:"updatedAt"`
	Image       string    `json:"image"`
	ProductName string    `json:"productName"`
}
