// Package pulse implements the PulseBroadcaster: three independent
// periodic tickers (Slow=10s, Medium=1s, Fast=50ms) that every module
// schedules its work against, instead of each module running its own
// ad-hoc ticker. It is a buffered fan-out modelled on the broadcast
// semantics Rust's tokio::sync::broadcast gives the original
// implementation: delivery per subscriber is FIFO, the sender never
// blocks, and when a subscriber's buffer is full the oldest pending
// tick is dropped. No separate lag signal is sent; a subscriber that
// falls behind simply observes "at least one tick elapsed" rather
// than replaying ticks.
package pulse

import (
	"sync"
	"time"

	"github.com/Vickeviking/SwarmSync-sub000/pkg/corebus"
)

// Tier identifies which pulse tier a tick came from.
type Tier int

const (
	Slow Tier = iota
	Medium
	Fast
)

func (t Tier) String() string {
	switch t {
	case Slow:
		return "Slow"
	case Medium:
		return "Medium"
	case Fast:
		return "Fast"
	default:
		return "Unknown"
	}
}

const (
	SlowPeriod   = 10 * time.Second
	MediumPeriod = 1 * time.Second
	FastPeriod   = 50 * time.Millisecond
)

const subscriberBuffer = 4

// Receiver is a per-subscriber view onto one pulse tier.
type Receiver chan Tier

// Broadcaster owns the three tiered tickers. Subscribers are
// independent per call to Subscribe{Slow,Medium,Fast}; the broadcaster
// does not guarantee phase alignment between tiers.
type Broadcaster struct {
	mu       sync.Mutex
	slowSubs map[Receiver]struct{}
	medSubs  map[Receiver]struct{}
	fastSubs map[Receiver]struct{}

	coreEvents corebus.Receiver
}

// New creates a Broadcaster that stops all three tickers when it
// observes corebus.Shutdown on events.
func New(events corebus.Receiver) *Broadcaster {
	return &Broadcaster{
		slowSubs:   make(map[Receiver]struct{}),
		medSubs:    make(map[Receiver]struct{}),
		fastSubs:   make(map[Receiver]struct{}),
		coreEvents: events,
	}
}

func (b *Broadcaster) SubscribeSlow() Receiver   { return b.subscribe(&b.slowSubs) }
func (b *Broadcaster) SubscribeMedium() Receiver { return b.subscribe(&b.medSubs) }
func (b *Broadcaster) SubscribeFast() Receiver   { return b.subscribe(&b.fastSubs) }

func (b *Broadcaster) subscribe(set *map[Receiver]struct{}) Receiver {
	ch := make(Receiver, subscriberBuffer)
	b.mu.Lock()
	(*set)[ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

// Run drives the three tickers until Shutdown is observed on the
// CoreEvent bus. It is meant to be run in its own goroutine for the
// lifetime of the process.
func (b *Broadcaster) Run() {
	slow := time.NewTicker(SlowPeriod)
	medium := time.NewTicker(MediumPeriod)
	fast := time.NewTicker(FastPeriod)
	defer slow.Stop()
	defer medium.Stop()
	defer fast.Stop()

	for {
		select {
		case <-slow.C:
			b.emit(&b.slowSubs, Slow)
		case <-medium.C:
			b.emit(&b.medSubs, Medium)
		case <-fast.C:
			b.emit(&b.fastSubs, Fast)
		case ev, ok := <-b.coreEvents:
			if !ok || ev == corebus.Shutdown {
				return
			}
		}
	}
}

func (b *Broadcaster) emit(set *map[Receiver]struct{}, tier Tier) {
	b.mu.Lock()
	subs := make([]Receiver, 0, len(*set))
	for ch := range *set {
		subs = append(subs, ch)
	}
	b.mu.Unlock()

	for _, ch := range subs {
		select {
		case ch <- tier:
		default:
			// Subscriber is lagging: drop the oldest pending tick and
			// deliver this one, so a slow consumer still observes "at
			// least one tick elapsed" without blocking the broadcaster.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- tier:
			default:
			}
		}
	}
}
