// Package moduleinit assembles and runs the full set of Core modules
// (C4-C10) against one shared CoreEvent bus and Pulse broadcaster, and
// sequences their startup and shutdown.
package moduleinit

import (
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/Vickeviking/SwarmSync-sub000/pkg/archive"
	"github.com/Vickeviking/SwarmSync-sub000/pkg/corebus"
	"github.com/Vickeviking/SwarmSync-sub000/pkg/corelog"
	"github.com/Vickeviking/SwarmSync-sub000/pkg/corerr"
	"github.com/Vickeviking/SwarmSync-sub000/pkg/dispatcher"
	"github.com/Vickeviking/SwarmSync-sub000/pkg/harvester"
	"github.com/Vickeviking/SwarmSync-sub000/pkg/hibernator"
	"github.com/Vickeviking/SwarmSync-sub000/pkg/pulse"
	"github.com/Vickeviking/SwarmSync-sub000/pkg/receiver"
	"github.com/Vickeviking/SwarmSync-sub000/pkg/scheduler"
	"github.com/Vickeviking/SwarmSync-sub000/pkg/shared"
	"github.com/Vickeviking/SwarmSync-sub000/pkg/storage"
	"github.com/Vickeviking/SwarmSync-sub000/pkg/workerexec"
)

// Core owns the bus, the Pulse broadcaster, and every long-running
// module. It is the single place that knows the full module roster.
type Core struct {
	bus   *corebus.ServiceChannels
	pulse *pulse.Broadcaster
	wg    sync.WaitGroup

	logger     *corelog.Logger
	dispatcher *dispatcher.Dispatcher

	// fatal carries a module's *corerr.Fatal if one of the modules
	// spawned by New suffers an unrecoverable startup failure. It is
	// buffered so the reporting goroutine never blocks on it.
	fatal chan error
}

// Config bundles the per-module settings New needs to construct the
// roster.
type Config struct {
	UDPListenAddr         string
	DispatcherUnreachable time.Duration
	ArchiveHorizon        time.Duration
	Executor              workerexec.Executor
}

// New assembles every Core module, wired to a shared Store and the
// shared CoreEvent bus. Nothing is started yet.
func New(store storage.Store, baseLogger zerolog.Logger, cfg Config) *Core {
	bus := corebus.New()
	pb := pulse.New(bus.Subscribe())

	logRes := shared.New(bus, pb, baseLogger, "logger")
	logger := corelog.New(logRes, store)

	receiverRes := shared.New(bus, pb, baseLogger, "receiver")
	rcv := receiver.New(receiverRes, store, logger)

	schedulerRes := shared.New(bus, pb, baseLogger, "scheduler")
	sched := scheduler.New(schedulerRes, store)

	dispatcherRes := shared.New(bus, pb, baseLogger, "dispatcher")
	disp := dispatcher.New(dispatcherRes, store, logger, cfg.UDPListenAddr, cfg.DispatcherUnreachable)

	harvesterRes := shared.New(bus, pb, baseLogger, "harvester")
	harv := harvester.New(harvesterRes, store, logger, cfg.Executor)

	hibernatorRes := shared.New(bus, pb, baseLogger, "hibernator")
	hib := hibernator.New(hibernatorRes, store, logger)

	archiveRes := shared.New(bus, pb, baseLogger, "archive")
	arc := archive.New(archiveRes, store, cfg.ArchiveHorizon)

	c := &Core{bus: bus, pulse: pb, logger: logger, dispatcher: disp, fatal: make(chan error, 1)}

	c.spawn(pb.Run)
	c.spawn(logger.Run)
	c.spawn(rcv.Run)
	c.spawn(sched.Run)
	c.spawn(hib.Run)
	c.spawn(harv.Run)
	c.spawn(arc.Run)
	c.spawn(func() {
		if err := disp.Startup(); err != nil {
			c.reportFatal(baseLogger, &corerr.Fatal{Component: "dispatcher", Err: err})
			return
		}
		if err := disp.Run(); err != nil {
			c.reportFatal(baseLogger, err)
		}
	})

	return c
}

// reportFatal logs err and, if it is a *corerr.Fatal, surfaces it on
// the Fatal channel so the process embedding this Core can terminate.
// A *corerr.Fatal is logged at fatal level (without exiting the
// process here); non-Fatal errors (a transient Run error that isn't a
// bind failure) are logged at error level only, matching every other
// module's "log and move on" contract.
func (c *Core) reportFatal(baseLogger zerolog.Logger, err error) {
	var fatal *corerr.Fatal
	if !errors.As(err, &fatal) {
		baseLogger.Error().Err(err).Msg("moduleinit: module failed")
		return
	}
	baseLogger.WithLevel(zerolog.FatalLevel).Err(err).Msg("moduleinit: module failed")
	select {
	case c.fatal <- err:
	default:
	}
}

// Fatal returns a channel that receives a module's unrecoverable
// startup failure, if one occurs. Callers should select on it
// alongside their own shutdown signal and treat a received error as
// grounds to terminate the process.
func (c *Core) Fatal() <-chan error {
	return c.fatal
}

func (c *Core) spawn(fn func()) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		fn()
	}()
}

// Startup broadcasts Startup to every module.
func (c *Core) Startup() {
	c.bus.Broadcast(corebus.Startup)
}

// Bus exposes the shared CoreEvent bus, for components constructed
// outside the module roster (e.g. the gRPC bridge) that still need to
// observe or drive the same lifecycle.
func (c *Core) Bus() *corebus.ServiceChannels {
	return c.bus
}

// Shutdown broadcasts Shutdown and blocks until every module has
// returned from its Run loop.
func (c *Core) Shutdown() {
	c.bus.Broadcast(corebus.Shutdown)
	c.wg.Wait()
}
