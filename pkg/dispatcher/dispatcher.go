// Package dispatcher implements the Dispatcher module (C7): the
// Core's worker-liveness subsystem. It maintains three in-memory
// tables owned exclusively by the Dispatcher (worker metadata, status,
// last-seen instants), fed by a UDP heartbeat listener, and reconciles
// reachability on every Fast pulse.
package dispatcher

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/Vickeviking/SwarmSync-sub000/pkg/corebus"
	"github.com/Vickeviking/SwarmSync-sub000/pkg/corelog"
	"github.com/Vickeviking/SwarmSync-sub000/pkg/corerr"
	"github.com/Vickeviking/SwarmSync-sub000/pkg/metrics"
	"github.com/Vickeviking/SwarmSync-sub000/pkg/pulse"
	"github.com/Vickeviking/SwarmSync-sub000/pkg/shared"
	"github.com/Vickeviking/SwarmSync-sub000/pkg/storage"
	"github.com/Vickeviking/SwarmSync-sub000/pkg/types"
)

// Verb is a heartbeat frame's action.
type Verb string

const (
	VerbConnect    Verb = "CONNECT"
	VerbIdle       Verb = "IDLE"
	VerbBusy       Verb = "BUSY"
	VerbDisconnect Verb = "DISCONNECT"
)

// DefaultReachableTimeout is the duration after which a silent
// Idle/Busy worker is declared Unreachable.
const DefaultReachableTimeout = 2 * time.Second

// DefaultListenAddr is the Core's well-known UDP heartbeat port.
const DefaultListenAddr = ":5001"

// nowFunc is overridden in tests that need deterministic timestamps.
var nowFunc = time.Now

// Dispatcher owns worker_map, status_map, and last_seen. Nothing
// outside this package ever reads or writes them directly.
type Dispatcher struct {
	res    *shared.Resources
	store  storage.Store
	logger *corelog.Logger

	listenAddr       string
	reachableTimeout time.Duration

	mu        sync.Mutex
	workerMap map[string]*types.Worker
	statusMap map[string]types.WorkerStatusEnum
	lastSeen  map[string]time.Time

	connMu sync.Mutex
	conn   net.PacketConn

	events corebus.Receiver
	fast   pulse.Receiver
}

// New constructs a Dispatcher. Call Startup before Run.
func New(res *shared.Resources, store storage.Store, logger *corelog.Logger, listenAddr string, reachableTimeout time.Duration) *Dispatcher {
	if listenAddr == "" {
		listenAddr = DefaultListenAddr
	}
	if reachableTimeout <= 0 {
		reachableTimeout = DefaultReachableTimeout
	}
	return &Dispatcher{
		res:              res,
		store:            store,
		logger:           logger,
		listenAddr:       listenAddr,
		reachableTimeout: reachableTimeout,
		workerMap:        make(map[string]*types.Worker),
		statusMap:        make(map[string]types.WorkerStatusEnum),
		lastSeen:         make(map[string]time.Time),
		events:           res.Events(),
		fast:             res.Pulse.SubscribeFast(),
	}
}

// Startup loads every Worker into worker_map, initializes its status
// to Offline, and sets last_seen to now. It must run before Run.
func (d *Dispatcher) Startup() error {
	workers, err := d.store.ListWorkers()
	if err != nil {
		return fmt.Errorf("dispatcher: failed to load workers: %w", err)
	}

	now := nowFunc()
	d.mu.Lock()
	for _, w := range workers {
		d.workerMap[w.ID] = w
		d.statusMap[w.ID] = types.WorkerOffline
		d.lastSeen[w.ID] = now
	}
	d.mu.Unlock()
	return nil
}

// Run binds the UDP listener and drives the receiver and sweep tasks
// until Shutdown. The socket is closed within 1s of Shutdown as
// required by the module's join contract. A failure to bind is
// unrecoverable: it is reported as a *corerr.Fatal so the caller can
// terminate the process instead of limping along without heartbeats.
func (d *Dispatcher) Run() error {
	conn, err := net.ListenPacket("udp", d.listenAddr)
	if err != nil {
		return &corerr.Fatal{Component: "dispatcher", Err: fmt.Errorf("failed to bind %s: %w", d.listenAddr, err)}
	}
	d.connMu.Lock()
	d.conn = conn
	d.connMu.Unlock()

	shutdown := make(chan struct{})
	go d.watchShutdown(conn, shutdown)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		d.receiveLoop(conn, shutdown)
	}()
	go func() {
		defer wg.Done()
		d.sweepLoop(shutdown)
	}()

	wg.Wait()
	return nil
}

// receiveLoop reads datagrams until the socket is closed (by
// watchShutdown) or Shutdown is observed directly.
func (d *Dispatcher) receiveLoop(conn net.PacketConn, shutdown <-chan struct{}) {
	defer d.res.Bus.Unsubscribe(d.events)
	buf := make([]byte, 256)

	for {
		_ = conn.SetReadDeadline(nowFunc().Add(200 * time.Millisecond))
		n, _, err := conn.ReadFrom(buf)
		if err != nil {
			select {
			case <-shutdown:
				return
			default:
			}
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				continue
			}
			continue
		}
		d.HandleFrame(string(buf[:n]))
	}
}

// watchShutdown closes conn as soon as CoreEvent::Shutdown arrives,
// satisfying the module's 1s shutdown deadline by unblocking the
// in-flight ReadFrom immediately.
func (d *Dispatcher) watchShutdown(conn net.PacketConn, shutdown chan struct{}) {
	for ev := range d.events {
		if ev == corebus.Shutdown {
			close(shutdown)
			_ = conn.Close()
			return
		}
	}
}

// sweepLoop transitions silent Idle/Busy workers to Unreachable on
// every Fast pulse until Shutdown is observed or the fast receiver is
// closed.
func (d *Dispatcher) sweepLoop(shutdown <-chan struct{}) {
	for {
		select {
		case <-shutdown:
			return
		case tier, ok := <-d.fast:
			if !ok {
				return
			}
			if tier == pulse.Fast {
				d.sweepOnce()
			}
		}
	}
}

// HandleFrame parses and applies one heartbeat frame. It is exported
// so tests can drive the state machine without a real socket.
func (d *Dispatcher) HandleFrame(raw string) {
	workerID, verb, ok := parseFrame(raw)
	if !ok {
		metrics.DispatcherDroppedFramesTotal.Inc()
		d.logger.Log(types.LogInfo, types.ModuleDispatcher, types.ActionCustom, fmt.Sprintf("dropped malformed frame: %q", raw))
		return
	}

	d.mu.Lock()
	_, known := d.workerMap[workerID]
	if !known {
		d.mu.Unlock()
		return
	}
	current := d.statusMap[workerID]
	next, ok := transition(current, verb)
	if !ok {
		d.mu.Unlock()
		return
	}
	now := nowFunc()
	d.statusMap[workerID] = next
	d.lastSeen[workerID] = now
	d.mu.Unlock()

	metrics.DispatcherHeartbeatsTotal.Inc()
	d.persistTransition(workerID, next, now)
}

func (d *Dispatcher) persistTransition(workerID string, status types.WorkerStatusEnum, at time.Time) {
	if worker, err := d.store.GetWorker(workerID); err == nil {
		worker.LastSeenAt = &at
		if err := d.store.UpdateWorker(worker); err != nil {
			d.res.Logger.Error().Err(err).Str("worker_id", workerID).Msg("dispatcher: failed to persist worker last_seen")
		}
	}

	ws, err := d.store.GetWorkerStatus(workerID)
	if err != nil {
		ws = &types.WorkerStatus{WorkerID: workerID}
	}
	ws.Status = status
	ws.LastHeartbeat = &at
	ws.UpdatedAt = at
	if status == types.WorkerOffline {
		ws.ActiveJobID = nil
	}
	if err := d.store.UpsertWorkerStatus(ws); err != nil {
		d.res.Logger.Error().Err(err).Str("worker_id", workerID).Msg("dispatcher: failed to persist worker status")
		return
	}

	d.logger.Log(types.LogInfo, types.ModuleDispatcher, types.ActionCustom,
		fmt.Sprintf("Worker %s status → %s", workerID, status))
}

// sweepOnce copies the status snapshot out from under the lock before
// persisting, per the spec's forbidding of store calls inside the
// critical section.
func (d *Dispatcher) sweepOnce() {
	now := nowFunc()

	d.mu.Lock()
	var toMark []string
	for id, status := range d.statusMap {
		if status != types.WorkerIdle && status != types.WorkerBusy {
			continue
		}
		if now.Sub(d.lastSeen[id]) > d.reachableTimeout {
			d.statusMap[id] = types.WorkerUnreachable
			toMark = append(toMark, id)
		}
	}
	d.mu.Unlock()

	for _, id := range toMark {
		metrics.DispatcherUnreachableTotal.Inc()
		ws, err := d.store.GetWorkerStatus(id)
		if err != nil {
			ws = &types.WorkerStatus{WorkerID: id}
		}
		ws.Status = types.WorkerUnreachable
		ws.UpdatedAt = now
		if err := d.store.UpsertWorkerStatus(ws); err != nil {
			d.res.Logger.Error().Err(err).Str("worker_id", id).Msg("dispatcher: failed to persist unreachable transition")
			continue
		}
		d.logger.Log(types.LogWarning, types.ModuleDispatcher, types.ActionCustom,
			fmt.Sprintf("Worker %s UNREACHABLE: no heartbeat for over %s", id, d.reachableTimeout))
	}
}

// parseFrame parses "<worker_id>,<VERB>" (trailing newline optional).
func parseFrame(raw string) (workerID string, verb Verb, ok bool) {
	trimmed := strings.TrimRight(raw, "\r\n")
	parts := strings.Split(trimmed, ",")
	if len(parts) != 2 {
		return "", "", false
	}
	idPart, verbPart := parts[0], parts[1]
	if _, err := strconv.Atoi(idPart); err != nil {
		return "", "", false
	}
	switch Verb(verbPart) {
	case VerbConnect, VerbIdle, VerbBusy, VerbDisconnect:
		return idPart, Verb(verbPart), true
	default:
		return "", "", false
	}
}

// transition applies the §4.7.2 state machine. ok is false when the
// verb does not cause a transition from the current state (e.g. a
// verb received while Offline that is not CONNECT/IDLE/DISCONNECT).
func transition(current types.WorkerStatusEnum, verb Verb) (types.WorkerStatusEnum, bool) {
	if verb == VerbDisconnect {
		return types.WorkerOffline, true
	}

	switch current {
	case types.WorkerOffline:
		if verb == VerbConnect || verb == VerbIdle {
			return types.WorkerIdle, true
		}
		return current, false
	case types.WorkerIdle:
		if verb == VerbBusy {
			return types.WorkerBusy, true
		}
		if verb == VerbIdle || verb == VerbConnect {
			return types.WorkerIdle, true
		}
		return current, false
	case types.WorkerBusy:
		if verb == VerbIdle {
			return types.WorkerIdle, true
		}
		if verb == VerbBusy {
			return types.WorkerBusy, true
		}
		return current, false
	case types.WorkerUnreachable:
		if verb == VerbIdle {
			return types.WorkerIdle, true
		}
		if verb == VerbBusy {
			return types.WorkerBusy, true
		}
		return current, false
	default:
		return current, false
	}
}
