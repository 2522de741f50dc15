package corebus

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServiceChannels_BroadcastDeliversToAllSubscribers(t *testing.T) {
	bus := New()
	a := bus.Subscribe()
	b := bus.Subscribe()

	bus.Broadcast(Startup)

	assertReceives(t, a, Startup)
	assertReceives(t, b, Startup)
}

func TestServiceChannels_LateSubscriberObservesPastShutdown(t *testing.T) {
	bus := New()
	bus.Broadcast(Shutdown)

	ch := bus.Subscribe()

	assertReceives(t, ch, Shutdown)
	assert.True(t, bus.ShutdownRequested())
}

func TestServiceChannels_FullBufferDropsOldestRatherThanBlocking(t *testing.T) {
	bus := New()
	ch := bus.Subscribe()

	for i := 0; i < subscriberBuffer+4; i++ {
		bus.Broadcast(Restart)
	}

	done := make(chan struct{})
	go func() {
		for range ch {
		}
		close(done)
	}()
	bus.Unsubscribe(ch)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Broadcast blocked instead of dropping oldest event")
	}
}

func TestServiceChannels_UnsubscribeClosesChannel(t *testing.T) {
	bus := New()
	ch := bus.Subscribe()
	bus.Unsubscribe(ch)

	_, ok := <-ch
	assert.False(t, ok, "channel should be closed after Unsubscribe")
}

func assertReceives(t *testing.T, ch Receiver, want CoreEvent) {
	t.Helper()
	select {
	case got := <-ch:
		require.Equal(t, want, got)
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for %s", want)
	}
}
