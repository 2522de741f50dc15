package moduleinit

import (
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Vickeviking/SwarmSync-sub000/pkg/corerr"
	"github.com/Vickeviking/SwarmSync-sub000/pkg/dispatcher"
	"github.com/Vickeviking/SwarmSync-sub000/pkg/storage"
	"github.com/Vickeviking/SwarmSync-sub000/pkg/workerexec"
)

func TestCore_StartupThenShutdownReturns(t *testing.T) {
	store := storage.NewMemStore()
	cfg := Config{
		UDPListenAddr:         "127.0.0.1:0",
		DispatcherUnreachable: dispatcher.DefaultReachableTimeout,
		ArchiveHorizon:        30 * 24 * time.Hour,
		Executor:              workerexec.NewSimulator(),
	}
	core := New(store, zerolog.Nop(), cfg)
	core.Startup()

	// Give the dispatcher's UDP listener a moment to bind before tearing
	// everything down, so Shutdown exercises the real socket-close path.
	time.Sleep(20 * time.Millisecond)

	done := make(chan struct{})
	go func() {
		core.Shutdown()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Shutdown did not return within 2s")
	}

	assert.True(t, core.Bus().ShutdownRequested())
}

func TestCore_DispatcherBindFailureSurfacesOnFatal(t *testing.T) {
	addr := "127.0.0.1:18351"

	holder := storage.NewMemStore()
	holderCfg := Config{
		UDPListenAddr:         addr,
		DispatcherUnreachable: dispatcher.DefaultReachableTimeout,
		ArchiveHorizon:        30 * 24 * time.Hour,
		Executor:              workerexec.NewSimulator(),
	}
	holderCore := New(holder, zerolog.Nop(), holderCfg)
	holderCore.Startup()
	defer holderCore.Shutdown()
	time.Sleep(20 * time.Millisecond)

	store := storage.NewMemStore()
	cfg := Config{
		UDPListenAddr:         addr,
		DispatcherUnreachable: dispatcher.DefaultReachableTimeout,
		ArchiveHorizon:        30 * 24 * time.Hour,
		Executor:              workerexec.NewSimulator(),
	}
	core := New(store, zerolog.Nop(), cfg)
	core.Startup()
	defer core.Shutdown()

	select {
	case err := <-core.Fatal():
		var fatal *corerr.Fatal
		require.True(t, errors.As(err, &fatal))
		assert.Equal(t, "dispatcher", fatal.Component)
	case <-time.After(2 * time.Second):
		t.Fatal("expected a Fatal error from the second dispatcher's failed UDP bind")
	}
}
