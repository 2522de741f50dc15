package corelog

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Vickeviking/SwarmSync-sub000/pkg/corebus"
	"github.com/Vickeviking/SwarmSync-sub000/pkg/pulse"
	"github.com/Vickeviking/SwarmSync-sub000/pkg/shared"
	"github.com/Vickeviking/SwarmSync-sub000/pkg/storage"
	"github.com/Vickeviking/SwarmSync-sub000/pkg/types"
)

func newTestLogger(t *testing.T) (*Logger, *storage.MemStore, *corebus.ServiceChannels, *pulse.Broadcaster) {
	t.Helper()
	bus := corebus.New()
	pb := pulse.New(bus.Subscribe())
	res := shared.New(bus, pb, zerolog.Nop(), "logger")
	store := storage.NewMemStore()
	return New(res, store), store, bus, pb
}

func TestLogger_LogBuffersUntilFlush(t *testing.T) {
	logger, store, _, _ := newTestLogger(t)

	logger.Log(types.LogInfo, types.ModuleScheduler, types.ActionCustom, "hello")

	entries, err := store.ListExpiredLogEntries(time.Now().Add(24 * time.Hour).Unix())
	require.NoError(t, err)
	assert.Empty(t, entries, "entry should still be buffered, not persisted")

	logger.flush()

	entries, err = store.ListExpiredLogEntries(time.Now().Add(24 * time.Hour).Unix())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "hello", entries[0].CustomMsg)
}

func TestLogger_CleanPurgesExpiredOnly(t *testing.T) {
	logger, store, _, _ := newTestLogger(t)
	now := time.Now()
	nowFunc = func() time.Time { return now }
	defer func() { nowFunc = time.Now }()

	require.NoError(t, store.CreateLogEntry(&types.DBLogEntry{ID: "expired", ExpiresAt: now.Add(-time.Minute)}))
	require.NoError(t, store.CreateLogEntry(&types.DBLogEntry{ID: "fresh", ExpiresAt: now.Add(time.Hour)}))

	logger.clean()

	remaining, err := store.ListExpiredLogEntries(now.Add(24 * time.Hour).Unix())
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, "fresh", remaining[0].ID)
}

func TestLogger_RunFlushesOnShutdown(t *testing.T) {
	logger, store, bus, _ := newTestLogger(t)
	logger.Log(types.LogError, types.ModuleDispatcher, types.ActionCustom, "boom")

	done := make(chan struct{})
	go func() {
		logger.Run()
		close(done)
	}()

	bus.Broadcast(corebus.Shutdown)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after Shutdown")
	}

	entries, err := store.ListExpiredLogEntries(time.Now().Add(8 * 24 * time.Hour).Unix())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "boom", entries[0].CustomMsg)
}
