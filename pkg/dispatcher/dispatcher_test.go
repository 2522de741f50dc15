package dispatcher

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Vickeviking/SwarmSync-sub000/pkg/corebus"
	"github.com/Vickeviking/SwarmSync-sub000/pkg/corelog"
	"github.com/Vickeviking/SwarmSync-sub000/pkg/pulse"
	"github.com/Vickeviking/SwarmSync-sub000/pkg/shared"
	"github.com/Vickeviking/SwarmSync-sub000/pkg/storage"
	"github.com/Vickeviking/SwarmSync-sub000/pkg/types"
)

func newTestDispatcher(t *testing.T) (*Dispatcher, *storage.MemStore) {
	t.Helper()
	bus := corebus.New()
	pb := pulse.New(bus.Subscribe())
	store := storage.NewMemStore()
	res := shared.New(bus, pb, zerolog.Nop(), "dispatcher")
	logger := corelog.New(shared.New(bus, pb, zerolog.Nop(), "logger"), store)
	d := New(res, store, logger, "", 0)
	return d, store
}

func TestParseFrame(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantID  string
		wantVrb Verb
		wantOK  bool
	}{
		{"connect", "7,CONNECT", "7", VerbConnect, true},
		{"idle with newline", "7,IDLE\n", "7", VerbIdle, true},
		{"busy", "42,BUSY", "42", VerbBusy, true},
		{"disconnect", "7,DISCONNECT", "7", VerbDisconnect, true},
		{"non-integer id", "abc,IDLE", "", "", false},
		{"unknown verb", "7,WAT", "", "", false},
		{"missing field", "7", "", "", false},
		{"extra field", "7,IDLE,extra", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, verb, ok := parseFrame(tt.raw)
			assert.Equal(t, tt.wantOK, ok)
			if ok {
				assert.Equal(t, tt.wantID, id)
				assert.Equal(t, tt.wantVrb, verb)
			}
		})
	}
}

func TestTransition(t *testing.T) {
	tests := []struct {
		name    string
		from    types.WorkerStatusEnum
		verb    Verb
		want    types.WorkerStatusEnum
		wantOK  bool
	}{
		{"offline connect to idle", types.WorkerOffline, VerbConnect, types.WorkerIdle, true},
		{"offline idle to idle", types.WorkerOffline, VerbIdle, types.WorkerIdle, true},
		{"offline busy rejected", types.WorkerOffline, VerbBusy, types.WorkerOffline, false},
		{"idle to busy", types.WorkerIdle, VerbBusy, types.WorkerBusy, true},
		{"busy to idle", types.WorkerBusy, VerbIdle, types.WorkerIdle, true},
		{"any to offline", types.WorkerBusy, VerbDisconnect, types.WorkerOffline, true},
		{"unreachable recovers to idle", types.WorkerUnreachable, VerbIdle, types.WorkerIdle, true},
		{"unreachable recovers to busy", types.WorkerUnreachable, VerbBusy, types.WorkerBusy, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := transition(tt.from, tt.verb)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDispatcher_HandleFrameIgnoresUnknownWorker(t *testing.T) {
	d, store := newTestDispatcher(t)

	d.HandleFrame("999,IDLE")

	_, err := store.GetWorkerStatus("999")
	assert.Error(t, err, "heartbeat from a worker never loaded at startup must be ignored")
}

func TestDispatcher_HandleFrameTransitionsAndPersists(t *testing.T) {
	d, store := newTestDispatcher(t)
	require.NoError(t, store.CreateWorker(&types.Worker{ID: "7"}))
	require.NoError(t, d.Startup())

	d.HandleFrame("7,IDLE")

	status, err := store.GetWorkerStatus("7")
	require.NoError(t, err)
	assert.Equal(t, types.WorkerIdle, status.Status)
}

func TestDispatcher_SameFrameTwiceIsIdempotent(t *testing.T) {
	d, store := newTestDispatcher(t)
	require.NoError(t, store.CreateWorker(&types.Worker{ID: "7"}))
	require.NoError(t, d.Startup())

	d.HandleFrame("7,IDLE")
	first, err := store.GetWorkerStatus("7")
	require.NoError(t, err)

	d.HandleFrame("7,IDLE")
	second, err := store.GetWorkerStatus("7")
	require.NoError(t, err)

	assert.Equal(t, first.Status, second.Status)
}

func TestDispatcher_SweepMarksUnreachableAfterTimeout(t *testing.T) {
	d, store := newTestDispatcher(t)
	d.reachableTimeout = 50 * time.Millisecond
	require.NoError(t, store.CreateWorker(&types.Worker{ID: "7"}))
	require.NoError(t, d.Startup())
	d.HandleFrame("7,IDLE")

	base := nowFunc()
	nowFunc = func() time.Time { return base.Add(100 * time.Millisecond) }
	defer func() { nowFunc = time.Now }()

	d.sweepOnce()

	status, err := store.GetWorkerStatus("7")
	require.NoError(t, err)
	assert.Equal(t, types.WorkerUnreachable, status.Status)
}

func TestDispatcher_SweepNeverMarksOfflineUnreachable(t *testing.T) {
	d, store := newTestDispatcher(t)
	d.reachableTimeout = 50 * time.Millisecond
	require.NoError(t, store.CreateWorker(&types.Worker{ID: "7"}))
	require.NoError(t, d.Startup())

	base := nowFunc()
	nowFunc = func() time.Time { return base.Add(time.Hour) }
	defer func() { nowFunc = time.Now }()

	d.sweepOnce()

	_, err := store.GetWorkerStatus("7")
	assert.Error(t, err, "an Offline worker was never persisted and must stay that way")
}

func TestDispatcher_RecoversFromUnreachable(t *testing.T) {
	d, store := newTestDispatcher(t)
	d.reachableTimeout = 50 * time.Millisecond
	require.NoError(t, store.CreateWorker(&types.Worker{ID: "7"}))
	require.NoError(t, d.Startup())
	d.HandleFrame("7,IDLE")

	base := nowFunc()
	nowFunc = func() time.Time { return base.Add(100 * time.Millisecond) }
	d.sweepOnce()
	status, err := store.GetWorkerStatus("7")
	require.NoError(t, err)
	require.Equal(t, types.WorkerUnreachable, status.Status)

	nowFunc = time.Now
	d.HandleFrame("7,BUSY")
	status, err = store.GetWorkerStatus("7")
	require.NoError(t, err)
	assert.Equal(t, types.WorkerBusy, status.Status)
}
