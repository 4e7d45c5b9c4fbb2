package messaging

import (
	"context"
)

// Event is a payload that can be forwarded to an external broker.
type Event interface {
	Subject() string
	Payload() ([]byte, error)
}

// Publisher delivers events to an external broker.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}
