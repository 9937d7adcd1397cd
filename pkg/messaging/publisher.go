// Package messaging defines the transport-neutral event publishing contract.
package messaging

import (
	"context"
)

// Event is anything that can be routed to a subject with an encoded payload.
type Event interface {
	Subject() string
	Payload() ([]byte, error)
}

type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// NopPublisher drops every event. Used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }
