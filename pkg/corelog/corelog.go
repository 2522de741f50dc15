// Package corelog implements the Logger module (C4): a buffered,
// append-only sink for LogEntry values that every module writes
// through instead of touching the store directly. Entries sit in
// memory until the Slow pulse flushes them, so a burst of log() calls
// never blocks on disk or network I/O.
package corelog

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Vickeviking/SwarmSync-sub000/pkg/corebus"
	"github.com/Vickeviking/SwarmSync-sub000/pkg/metrics"
	"github.com/Vickeviking/SwarmSync-sub000/pkg/pulse"
	"github.com/Vickeviking/SwarmSync-sub000/pkg/shared"
	"github.com/Vickeviking/SwarmSync-sub000/pkg/storage"
	"github.com/Vickeviking/SwarmSync-sub000/pkg/types"
)

// nowFunc is overridden in tests that need deterministic timestamps.
var nowFunc = time.Now

// Logger is the single process-wide instance; every module is handed
// the same *Logger by ModuleInitializer.
type Logger struct {
	res   *shared.Resources
	store storage.Store

	mu     sync.Mutex
	buffer []*types.LogEntry

	events corebus.Receiver
	slow   pulse.Receiver
}

// New constructs a Logger subscribed to CoreEvents and the Slow pulse.
func New(res *shared.Resources, store storage.Store) *Logger {
	return &Logger{
		res:    res,
		store:  store,
		events: res.Events(),
		slow:   res.Pulse.SubscribeSlow(),
	}
}

// Log appends an entry to the buffer. It never blocks on persistence;
// the entry is only durable once Run's next Slow-pulse flush succeeds.
func (l *Logger) Log(level types.LogLevel, module types.ModuleName, action types.LogAction, custom string) {
	now := nowFunc()
	entry := &types.LogEntry{
		ID:        uuid.New().String(),
		Level:     level,
		Module:    module,
		Action:    action,
		CreatedAt: now,
		ExpiresAt: now.Add(types.TTL(level)),
		CustomMsg: custom,
	}
	l.append(entry)
}

// LogClientConnected is a convenience wrapper around Log for the
// client-connected action, carrying its structured payload.
func (l *Logger) LogClientConnected(workerID, ip string) {
	now := nowFunc()
	entry := &types.LogEntry{
		ID:              uuid.New().String(),
		Level:           types.LogInfo,
		Module:          types.ModuleDispatcher,
		Action:          types.ActionClientConnected,
		CreatedAt:       now,
		ExpiresAt:       now.Add(types.TTL(types.LogInfo)),
		ClientConnected: &types.ClientConnectedPayload{WorkerID: workerID, IP: ip},
	}
	l.append(entry)
}

// LogJobSubmitted is a convenience wrapper carrying the job-submitted payload.
func (l *Logger) LogJobSubmitted(jobID, jobName string) {
	now := nowFunc()
	entry := &types.LogEntry{
		ID:           uuid.New().String(),
		Level:        types.LogSuccess,
		Module:       types.ModuleReceiver,
		Action:       types.ActionJobSubmitted,
		CreatedAt:    now,
		ExpiresAt:    now.Add(types.TTL(types.LogSuccess)),
		JobSubmitted: &types.JobSubmittedPayload{JobID: jobID, JobName: jobName},
	}
	l.append(entry)
}

// LogJobCompleted is a convenience wrapper carrying the job-completed payload.
func (l *Logger) LogJobCompleted(jobID, workerID string, exitCode int) {
	now := nowFunc()
	level := types.LogSuccess
	if exitCode != 0 {
		level = types.LogWarning
	}
	entry := &types.LogEntry{
		ID:           uuid.New().String(),
		Level:        level,
		Module:       types.ModuleHarvester,
		Action:       types.ActionJobCompleted,
		CreatedAt:    now,
		ExpiresAt:    now.Add(types.TTL(level)),
		JobCompleted: &types.JobCompletedPayload{JobID: jobID, WorkerID: workerID, ExitCode: exitCode},
	}
	l.append(entry)
}

func (l *Logger) append(entry *types.LogEntry) {
	l.mu.Lock()
	l.buffer = append(l.buffer, entry)
	size := len(l.buffer)
	l.mu.Unlock()
	metrics.LoggerBufferSize.Set(float64(size))
}

// Run drives the Logger's background loop: on Startup it does
// nothing, on Restart and Shutdown it flushes synchronously, and on
// every Slow pulse it both purges expired rows and flushes the
// buffer. It returns once Shutdown has been observed and flushed.
func (l *Logger) Run() {
	defer l.res.Bus.Unsubscribe(l.events)
	for {
		select {
		case ev, ok := <-l.events:
			if !ok {
				return
			}
			switch ev {
			case corebus.Restart:
				l.flush()
			case corebus.Shutdown:
				l.flush()
				return
			}
		case tier, ok := <-l.slow:
			if !ok {
				return
			}
			if tier == pulse.Slow {
				l.clean()
				l.flush()
			}
		}
	}
}

// flush drains the buffer and writes every entry to the store. On
// failure the entries are re-prepended so nothing already in the
// buffer is lost, ordering them ahead of anything logged meanwhile.
func (l *Logger) flush() {
	l.mu.Lock()
	pending := l.buffer
	l.buffer = nil
	l.mu.Unlock()

	if len(pending) == 0 {
		return
	}

	var failed []*types.LogEntry
	for _, entry := range pending {
		if err := l.store.CreateLogEntry(entry.ToDB()); err != nil {
			failed = append(failed, entry)
			continue
		}
		metrics.LoggerFlushedTotal.Inc()
	}

	if len(failed) > 0 {
		l.mu.Lock()
		l.buffer = append(failed, l.buffer...)
		l.mu.Unlock()
	}

	l.mu.Lock()
	metrics.LoggerBufferSize.Set(float64(len(l.buffer)))
	l.mu.Unlock()
}

// clean purges rows whose TTL has elapsed.
func (l *Logger) clean() {
	expired, err := l.store.ListExpiredLogEntries(nowFunc().Unix())
	if err != nil {
		return
	}
	for _, row := range expired {
		if err := l.store.DeleteLogEntry(row.ID); err == nil {
			metrics.LoggerExpiredTotal.Inc()
		}
	}
}
