package hibernator

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

func newTestHibernator(t *testing.T) (*Hibernator, *storage.MemStore) {
	t.Helper()
	bus := corebus.New()
	pb := pulse.New(bus.Subscribe())
	store := storage.NewMemStore()
	res := shared.New(bus, pb, zerolog.Nop(), "hibernator")
	logger := corelog.New(shared.New(bus, pb, zerolog.Nop(), "logger"), store)
	return New(res, store, logger), store
}

func TestHibernator_RequeuesDueCronJob(t *testing.T) {
	h, store := newTestHibernator(t)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	nowFunc = func() time.Time { return now }
	defer func() { nowFunc = time.Now }()

	job := &types.Job{
		ID: "j1", State: types.JobCompleted,
		ScheduleType: types.ScheduleCron, CronExpression: "*/1 * * * *",
		UpdatedAt: now.Add(-90 * time.Second),
	}
	require.NoError(t, store.CreateJob(job))

	h.cycle()

	got, err := store.GetJob("j1")
	require.NoError(t, err)
	assert.Equal(t, types.JobQueued, got.State)
	assert.Equal(t, now, got.UpdatedAt)
}

func TestHibernator_LeavesNotYetDueJobAlone(t *testing.T) {
	h, store := newTestHibernator(t)
	now := time.Date(2026, 1, 1, 12, 0, 30, 0, time.UTC)
	nowFunc = func() time.Time { return now }
	defer func() { nowFunc = time.Now }()

	job := &types.Job{
		ID: "j1", State: types.JobCompleted,
		ScheduleType: types.ScheduleCron, CronExpression: "*/1 * * * *",
		UpdatedAt: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC),
	}
	require.NoError(t, store.CreateJob(job))

	h.cycle()

	got, err := store.GetJob("j1")
	require.NoError(t, err)
	assert.Equal(t, types.JobCompleted, got.State)
}

func TestHibernator_InvalidCronFailsJob(t *testing.T) {
	h, store := newTestHibernator(t)
	job := &types.Job{
		ID: "j1", State: types.JobSubmitted,
		ScheduleType: types.ScheduleCron, CronExpression: "not a cron",
		UpdatedAt: time.Now(),
	}
	require.NoError(t, store.CreateJob(job))

	h.cycle()

	got, err := store.GetJob("j1")
	require.NoError(t, err)
	assert.Equal(t, types.JobFailed, got.State)
	assert.Contains(t, got.ErrorMessage, "invalid cron")
}

func TestHibernator_IgnoresOnceScheduledJobs(t *testing.T) {
	h, store := newTestHibernator(t)
	job := &types.Job{ID: "j1", State: types.JobCompleted, ScheduleType: types.ScheduleOnce}
	require.NoError(t, store.CreateJob(job))

	h.cycle()

	got, err := store.GetJob("j1")
	require.NoError(t, err)
	assert.Equal(t, types.JobCompleted, got.State)
}
