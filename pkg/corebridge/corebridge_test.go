package corebridge

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/Vickeviking/SwarmSync-sub000/pkg/corebus"
)

func TestBridge_StartupMarksServing(t *testing.T) {
	bus := corebus.New()
	b := New(bus)

	resp, err := b.Check(context.Background(), &healthpb.HealthCheckRequest{Service: serviceName})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, resp.Status)

	go b.watchLifecycle()
	bus.Broadcast(corebus.Startup)
	time.Sleep(10 * time.Millisecond)

	resp, err = b.Check(context.Background(), &healthpb.HealthCheckRequest{Service: serviceName})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.Status)
}

func TestBridge_ExecuteCommandBroadcastsShutdown(t *testing.T) {
	bus := corebus.New()
	b := New(bus)
	rx := bus.Subscribe()

	require.NoError(t, b.ExecuteCommand(CommandShutdown))

	select {
	case ev := <-rx:
		assert.Equal(t, corebus.Shutdown, ev)
	case <-time.After(time.Second):
		t.Fatal("expected Shutdown event")
	}
}

func TestBridge_ExecuteCommandRejectsUnknown(t *testing.T) {
	bus := corebus.New()
	b := New(bus)
	err := b.ExecuteCommand(Command(99))
	assert.Error(t, err)
}
