// Package messaging defines the event publishing contract used by services.
package messaging

import (
	"context"
)

const OrdersPlacedSubject = "orders.placed"

type Event interface {
	Subject() string
	Payload() ([]byte, error)
}

type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// NopPublisher discards every event. Used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }
