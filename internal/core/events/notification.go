package events

import (
	"context"
)

// Notification event types published by the domain services.
const (
	TypeAuditImportCompleted = "audit.import.completed"
	TypeAssetStatusChanged   = "asset.status.changed"
)

// Notifier adapts the bus to the notify(event) contract the domain services
// consume: they construct the payload, the notification system owns
// delivery.
type Notifier struct {
	bus *Bus
}

func NewNotifier(bus *Bus) *Notifier {
	return &Notifier{bus: bus}
}

func (n *Notifier) Notify(ctx context.Context, eventType, title, body string, metadata map[string]interface{}) {
	data := map[string]interface{}{
		"title": title,
		"body":  body,
	}
	for k, v := range metadata {
		data[k] = v
	}
	n.bus.Publish(ctx, NewEvent(eventType, data))
}
