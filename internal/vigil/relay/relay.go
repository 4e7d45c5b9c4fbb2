// Package relay mirrors selected in-process bus events to an external
// broker so out-of-process consumers see the same fan-out.
package relay

import (
	"context"
	"log/slog"
	"time"

	"github.com/mkravets/vigil/pkg/bus"
	"github.com/mkravets/vigil/pkg/messaging"
)

// Relay forwards purchase-confirmed and avatar-updated bus events through a
// messaging.Publisher. Forwarding happens synchronously on the publishing
// goroutine; broker failures are logged and never propagate back to the
// component that published on the bus.
type Relay struct {
	bus       *bus.Bus
	publisher messaging.Publisher
	timeout   time.Duration
	logger    *slog.Logger
	subs      []*bus.Subscription
}

// New creates a Relay. timeout bounds each broker publish.
func New(b *bus.Bus, publisher messaging.Publisher, timeout time.Duration, logger *slog.Logger) *Relay {
	return &Relay{
		bus:       b,
		publisher: publisher,
		timeout:   timeout,
		logger:    logger.With("component", "relay"),
	}
}

// Start registers the relay on the mirrored topics.
func (r *Relay) Start() {
	for _, topic := range []string{messaging.TopicPurchaseConfirmed, messaging.TopicAvatarUpdated} {
		r.subs = append(r.subs, r.bus.Subscribe(topic, r.forward))
	}
}

// Stop unregisters the relay from the bus. Events published afterwards are
// not mirrored.
func (r *Relay) Stop() {
	for _, sub := range r.subs {
		r.bus.Unsubscribe(sub)
	}
	r.subs = nil
}

// forward sends one bus payload to the broker. Payloads that do not
// implement messaging.Event are dropped with a log entry.
func (r *Relay) forward(payload any) {
	event, ok := payload.(messaging.Event)
	if !ok {
		r.logger.Error("payload does not implement messaging.Event", "payload", payload)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	if err := r.publisher.Publish(ctx, event); err != nil {
		r.logger.Error("failed to mirror event to broker", "subject", event.Subject(), "error", err)
	}
}
