// Package shared assembles the handle every Core module receives at
// construction time: the CoreEvent bus, the Pulse subscriptions that
// module needs, and a component-scoped logger. Nothing in Resources
// is mutable after New returns; modules clone the Pulse receivers they
// need out of it during their own setup.
package shared

import (
	"github.com/rs/zerolog"

	"github.com/Vickeviking/SwarmSync-sub000/pkg/corebus"
	"github.com/Vickeviking/SwarmSync-sub000/pkg/pulse"
)

// Resources is the immutable dependency bundle passed into every
// long-running module's constructor.
type Resources struct {
	Bus    *corebus.ServiceChannels
	Pulse  *pulse.Broadcaster
	Logger zerolog.Logger
}

// New builds a Resources handle. component scopes the logger the way
// pkg/log.WithComponent does, so every module's log lines are
// attributable without each module repeating the boilerplate.
func New(bus *corebus.ServiceChannels, pb *pulse.Broadcaster, logger zerolog.Logger, component string) *Resources {
	return &Resources{
		Bus:    bus,
		Pulse:  pb,
		Logger: logger.With().Str("component", component).Logger(),
	}
}

// Events subscribes this module's own receiver on the CoreEvent bus.
func (r *Resources) Events() corebus.Receiver {
	return r.Bus.Subscribe()
}
