package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Vickeviking/SwarmSync-sub000/pkg/types"
)

func newTestBoltStore(t *testing.T) *BoltStore {
	t.Helper()
	store, err := NewBoltStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestBoltStore_JobCRUD(t *testing.T) {
	store := newTestBoltStore(t)

	require.NoError(t, store.CreateJob(&types.Job{ID: "j1", State: types.JobQueued}))

	job, err := store.GetJob("j1")
	require.NoError(t, err)
	assert.Equal(t, types.JobQueued, job.State)

	job.State = types.JobRunning
	require.NoError(t, store.UpdateJob(job))

	updated, err := store.GetJob("j1")
	require.NoError(t, err)
	assert.Equal(t, types.JobRunning, updated.State)

	require.NoError(t, store.DeleteJob("j1"))
	_, err = store.GetJob("j1")
	assert.Error(t, err)
}

func TestBoltStore_ListJobsByState(t *testing.T) {
	store := newTestBoltStore(t)
	require.NoError(t, store.CreateJob(&types.Job{ID: "j1", State: types.JobQueued}))
	require.NoError(t, store.CreateJob(&types.Job{ID: "j2", State: types.JobRunning}))
	require.NoError(t, store.CreateJob(&types.Job{ID: "j3", State: types.JobQueued}))

	queued, err := store.ListJobsByState(types.JobQueued)
	require.NoError(t, err)
	assert.Len(t, queued, 2)
}

func TestBoltStore_ArchiveJobIsAtomicAcrossBuckets(t *testing.T) {
	store := newTestBoltStore(t)

	require.NoError(t, store.CreateJob(&types.Job{ID: "j1", State: types.JobCompleted}))
	require.NoError(t, store.CreateAssignment(&types.JobAssignment{ID: "a1", JobID: "j1"}))
	require.NoError(t, store.CreateResult(&types.JobResult{ID: "r1", JobID: "j1"}))
	require.NoError(t, store.UpsertMetric(&types.JobMetric{JobID: "j1", WorkerID: "w1"}))

	require.NoError(t, store.ArchiveJob("j1"))

	_, err := store.GetJob("j1")
	assert.Error(t, err, "archived job must be gone from the live jobs bucket")

	assignments, err := store.ListAssignmentsByJob("j1")
	require.NoError(t, err)
	assert.Empty(t, assignments)

	_, err = store.GetResultByJob("j1")
	assert.Error(t, err)

	_, err = store.GetMetric("j1", "w1")
	assert.Error(t, err, "archived job's metric must be gone from the live metrics bucket")
}

func TestBoltStore_ArchiveJobFailsForUnknownJob(t *testing.T) {
	store := newTestBoltStore(t)
	err := store.ArchiveJob("does-not-exist")
	assert.Error(t, err)
}

func TestBoltStore_WorkerStatusUpsert(t *testing.T) {
	store := newTestBoltStore(t)
	require.NoError(t, store.UpsertWorkerStatus(&types.WorkerStatus{WorkerID: "w1"}))
	require.NoError(t, store.UpsertWorkerStatus(&types.WorkerStatus{WorkerID: "w1"}))

	statuses, err := store.ListWorkerStatuses()
	require.NoError(t, err)
	assert.Len(t, statuses, 1, "upsert on the same WorkerID must replace, not append")
}

func TestBoltStore_MetricUpsertKeyedByJobAndWorker(t *testing.T) {
	store := newTestBoltStore(t)
	first := 1.5
	require.NoError(t, store.UpsertMetric(&types.JobMetric{JobID: "j1", WorkerID: "w1", CPUUsagePct: &first}))

	second := 2.5
	require.NoError(t, store.UpsertMetric(&types.JobMetric{JobID: "j1", WorkerID: "w1", CPUUsagePct: &second}))

	metric, err := store.GetMetric("j1", "w1")
	require.NoError(t, err)
	assert.Equal(t, 2.5, *metric.CPUUsagePct)
}

func TestBoltStore_ListExpiredLogEntries(t *testing.T) {
	store := newTestBoltStore(t)
	now := time.Now()
	require.NoError(t, store.CreateLogEntry(&types.DBLogEntry{ID: "l1", ExpiresAt: now.Add(-time.Minute)}))
	require.NoError(t, store.CreateLogEntry(&types.DBLogEntry{ID: "l2", ExpiresAt: now.Add(time.Hour)}))

	expired, err := store.ListExpiredLogEntries(now.Unix())
	require.NoError(t, err)
	require.Len(t, expired, 1)
	assert.Equal(t, "l1", expired[0].ID)
}
