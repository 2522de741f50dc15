// Package corebus implements ServiceChannels: the process-singleton
// CoreEvent broadcast bus every Core module subscribes to for lifecycle
// transitions (Startup, Shutdown, Restart). It is deliberately the
// simplest piece of cross-module plumbing in the Core — modules never
// talk to each other directly, only through this bus, through Pulse
// broadcasts (pkg/pulse), or through the store.
package corebus

import "sync"

// CoreEvent is a lifecycle signal broadcast to every module.
type CoreEvent int

const (
	Startup CoreEvent = iota
	Shutdown
	Restart
)

func (e CoreEvent) String() string {
	switch e {
	case Startup:
		return "Startup"
	case Shutdown:
		return "Shutdown"
	case Restart:
		return "Restart"
	default:
		return "Unknown"
	}
}

// subscriberBuffer is generous enough that a module observing events at
// its own pulse tier never misses a Shutdown under normal scheduling;
// it is not a correctness guarantee, only a practical cushion.
const subscriberBuffer = 8

// Receiver is an independent, buffered view onto the CoreEvent stream.
// Delivery per receiver is FIFO; a receiver that falls behind has the
// oldest pending event dropped rather than blocking the broadcaster.
// Callers should only ever receive from it; Unsubscribe is the sole
// writer-side operation (it closes the channel).
type Receiver chan CoreEvent

// ServiceChannels owns the CoreEvent broadcast sender and hands out
// independent receivers. Shutdown is a one-way signal: after it has
// been broadcast, ServiceChannels keeps serving already-created
// receivers until callers stop reading from them.
type ServiceChannels struct {
	mu          sync.RWMutex
	subscribers map[Receiver]struct{}
	shutdown    bool
}

// New creates an empty ServiceChannels ready to accept subscribers.
func New() *ServiceChannels {
	return &ServiceChannels{
		subscribers: make(map[Receiver]struct{}),
	}
}

// Subscribe returns a new independent receiver. If Shutdown has already
// been broadcast, the returned receiver is pre-loaded with a single
// Shutdown event so a module that subscribes late still observes it.
func (s *ServiceChannels) Subscribe() Receiver {
	ch := make(Receiver, subscriberBuffer)

	s.mu.Lock()
	s.subscribers[ch] = struct{}{}
	alreadyDown := s.shutdown
	s.mu.Unlock()

	if alreadyDown {
		ch <- Shutdown
	}
	return ch
}

// Unsubscribe removes and closes a receiver. Modules should call this
// once they have observed Shutdown and finished their own teardown.
func (s *ServiceChannels) Unsubscribe(ch Receiver) {
	s.mu.Lock()
	if _, exists := s.subscribers[ch]; exists {
		delete(s.subscribers, ch)
		close(ch)
	}
	s.mu.Unlock()
}

// Broadcast delivers event to every live subscriber without blocking on
// any one of them: a full subscriber buffer has its oldest pending
// event dropped to make room, which is the bus's lag-tolerance policy.
func (s *ServiceChannels) Broadcast(event CoreEvent) {
	s.mu.Lock()
	if event == Shutdown {
		s.shutdown = true
	}
	subs := make([]Receiver, 0, len(s.subscribers))
	for ch := range s.subscribers {
		subs = append(subs, ch)
	}
	s.mu.Unlock()

	for _, ch := range subs {
		select {
		case ch <- event:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- event:
			default:
			}
		}
	}
}

// ShutdownRequested reports whether Shutdown has already been
// broadcast, for late subscribers that want to check synchronously.
func (s *ServiceChannels) ShutdownRequested() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.shutdown
}
