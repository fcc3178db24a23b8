package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"
)

// EventOrderStatusUpdated is the realtime event name pushed to clients.
const EventOrderStatusUpdated = "orderStatusUpdated"

// Emitter pushes a realtime event to one user's channel.
type Emitter interface {
	Emit(ctx context.Context, userID, event string, payload any) error
}

// EventSender publishes an event message onto the order-events queue.
type EventSender interface {
	SendEventMessage(ctx context.Context, messageBody string, attributes map[string]string) error
}

// Dispatcher fans a persisted status change out to the notification table,
// the realtime channel and the order-events queue. Every branch is
// best-effort: the transition is already durable, so failures here are
// logged and swallowed, never returned to the caller.
type Dispatcher struct {
	store   *Store
	emitter Emitter
	events  EventSender
	log     *zap.Logger
}

// NewDispatcher wires a Dispatcher. emitter and events may be nil when the
// deployment has no socket gateway or event queue.
func NewDispatcher(store *Store, emitter Emitter, events EventSender, log *zap.Logger) *Dispatcher {
	return &Dispatcher{
		store:   store,
		emitter: emitter,
		events:  events,
		log:     log,
	}
}

// OrderStatusChanged records and broadcasts one status change.
func (d *Dispatcher) OrderStatusChanged(ctx context.Context, change StatusChange) {
	n := Notification{
		UserID:      change.UserID,
		Type:        NotificationTypeOrder,
		Title:       "Order update",
		Message:     Message(change.OrderID, change.NewStatus),
		OrderID:     change.OrderID,
		Image:       change.Image,
		ProductName: change.ProductName,
	}
	if _, err := d.store.Create(ctx, n); err != nil {
		d.log.Error("failed to persist notification",
			zap.Error(err),
			zap.String("order_id", change.OrderID),
			zap.String("user_id", change.UserID))
	}

	if d.emitter != nil {
		if err := d.emitter.Emit(ctx, change.UserID, EventOrderStatusUpdated, change); err != nil {
			d.log.Warn("failed to emit realtime event",
				zap.Error(err),
				zap.String("order_id", change.OrderID),
				zap.String("user_id", change.UserID))
		}
	}

	if d.events != nil {
		body, err := json.Marshal(change)
		if err != nil {
			d.log.Error("failed to marshal status change event", zap.Error(err))
			return
		}
		attrs := map[string]string{
			"order_id":   change.OrderID,
			"new_status": change.NewStatus,
		}
		if err := d.events.SendEventMessage(ctx, string(body), attrs); err != nil {
			d.log.Warn("failed to publish status change event",
				zap.Error(err),
				zap.String("order_id", change.OrderID))
		}
	}
}

// Message builds the human-readable notification text, referencing the
// order by the last six characters of its id.
func Message(orderID, status string) string {
	short := orderID
	if len(short) > 6 {
		short = short[len(short)-6:]
	}
	if status == "cancelled" {
		return fmt.Sprintf("Order #%s has been cancelled.", short)
	}
	return fmt.Sprintf("Order #%s moved to status: %s.", short, status)
}
