// Package view owns the application's active-view state and reacts to
// navigation requests published on the bus.
package view

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/mkravets/vigil/pkg/bus"
	"github.com/mkravets/vigil/pkg/messaging"
)

var ErrUnknownView = errors.New("unknown view")

// View enumerates the application's top-level screens.
type View string

const (
	ViewDashboard  View = "dashboard"
	ViewCamera     View = "camera"
	ViewStatistics View = "statistics"
	ViewShop       View = "shop"
	ViewThemes     View = "themes"
	ViewSettings   View = "settings"
)

// All lists every valid view.
var All = []View{ViewDashboard, ViewCamera, ViewStatistics, ViewShop, ViewThemes, ViewSettings}

// Parse converts a string to a View. Returns ErrUnknownView for anything
// outside the enumeration.
func Parse(s string) (View, error) {
	for _, v := range All {
		if string(v) == s {
			return v, nil
		}
	}
	return "", ErrUnknownView
}

// Topic returns the payload-free bus topic requesting navigation to v.
func Topic(v View) string {
	return messaging.TopicNavigatePrefix + string(v)
}

// Selector is the single owner of the current-view state. It consumes the
// payload-free navigation topics; any view may transition to any other view
// and the selector stays live for the application's entire lifetime.
type Selector struct {
	mu      sync.RWMutex
	current View

	subs   []*bus.Subscription
	bus    *bus.Bus
	logger *slog.Logger
}

// NewSelector creates a Selector starting on the dashboard view and
// registers it for every navigation topic on the bus.
func NewSelector(b *bus.Bus, logger *slog.Logger) *Selector {
	s := &Selector{
		current: ViewDashboard,
		bus:     b,
		logger:  logger.With("component", "view"),
	}
	for _, v := range All {
		target := v
		s.subs = append(s.subs, b.Subscribe(Topic(target), func(any) {
			s.set(target)
		}))
	}
	return s
}

// Current returns the active view.
func (s *Selector) Current() View {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Close unregisters the selector from the bus. Navigation events published
// afterwards are dropped.
func (s *Selector) Close() {
	for _, sub := range s.subs {
		s.bus.Unsubscribe(sub)
	}
	s.subs = nil
}

func (s *Selector) set(v View) {
	s.mu.Lock()
	previous := s.current
	s.current = v
	s.mu.Unlock()

	if previous != v {
		s.logger.Debug("view changed", "from", string(previous), "to", string(v))
	}
}
