// Package messaging defines the contracts between event producers and the message broker.
package messaging

import "context"

// Event is a message with a broker subject and a serialized payload.
type Event interface {
	Subject() string
	Payload() ([]byte, error)
}

// Publisher delivers an event to the broker. Implementations must honour ctx deadlines.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}
