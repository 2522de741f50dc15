// Package corebridge exposes SwarmCore to the Core API over gRPC: a
// standard health-checking service that tracks corebus lifecycle
// events, plus a plain Go method the Core API's own gRPC handlers call
// into to translate an operator Command into a corebus broadcast.
package corebridge

import (
	"context"
	"fmt"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/Vickeviking/SwarmSync-sub000/pkg/corebus"
)

// Command is an operator-issued directive translated onto the
// CoreEvent bus.
type Command int

const (
	CommandRestart Command = iota
	CommandShutdown
)

// serviceName is the name SwarmCore registers itself under with the
// standard gRPC health service.
const serviceName = "swarmcore.Core"

// Bridge owns the gRPC server and the health service backing it.
type Bridge struct {
	server  *grpc.Server
	health  *health.Server
	bus     *corebus.ServiceChannels
	events  corebus.Receiver
}

// New constructs a Bridge. Call Run to start serving; it stops once
// Shutdown is broadcast on the bus. ExecuteCommand may be called at
// any point after New returns.
func New(bus *corebus.ServiceChannels) *Bridge {
	healthSrv := health.NewServer()
	server := grpc.NewServer()
	healthpb.RegisterHealthServer(server, healthSrv)

	b := &Bridge{
		server: server,
		health: healthSrv,
		bus:    bus,
		events: bus.Subscribe(),
	}
	healthSrv.SetServingStatus(serviceName, healthpb.HealthCheckResponse_NOT_SERVING)
	return b
}

// ExecuteCommand translates an operator Command into the matching
// CoreEvent, broadcasting it to every subscribed module.
func (b *Bridge) ExecuteCommand(cmd Command) error {
	switch cmd {
	case CommandRestart:
		b.bus.Broadcast(corebus.Restart)
	case CommandShutdown:
		b.bus.Broadcast(corebus.Shutdown)
	default:
		return fmt.Errorf("corebridge: unknown command %d", cmd)
	}
	return nil
}

// Run binds listenAddr and serves until Shutdown is observed on the
// CoreEvent bus or the listener errors.
func (b *Bridge) Run(listenAddr string) error {
	lis, err := net.Listen("tcp", listenAddr)
	if err != nil {
		return fmt.Errorf("corebridge: listen %s: %w", listenAddr, err)
	}

	go b.watchLifecycle()

	return b.server.Serve(lis)
}

func (b *Bridge) watchLifecycle() {
	defer b.bus.Unsubscribe(b.events)
	for ev := range b.events {
		switch ev {
		case corebus.Startup:
			b.health.SetServingStatus(serviceName, healthpb.HealthCheckResponse_SERVING)
		case corebus.Shutdown:
			b.health.SetServingStatus(serviceName, healthpb.HealthCheckResponse_NOT_SERVING)
			b.server.GracefulStop()
			return
		}
	}
}

// Check exposes the health service's own Check for embedding tests
// that don't want to stand up a network listener.
func (b *Bridge) Check(ctx context.Context, req *healthpb.HealthCheckRequest) (*healthpb.HealthCheckResponse, error) {
	return b.health.Check(ctx, req)
}
