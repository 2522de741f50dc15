package harvester

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
	"github.com/Vickeviking/SwarmSync-sub000/pkg/workerexec"
)

func newTestHarvester(t *testing.T) (*Harvester, *storage.MemStore, *workerexec.Simulator) {
	t.Helper()
	bus := corebus.New()
	pb := pulse.New(bus.Subscribe())
	store := storage.NewMemStore()
	res := shared.New(bus, pb, zerolog.Nop(), "harvester")
	logger := corelog.New(shared.New(bus, pb, zerolog.Nop(), "logger"), store)
	sim := workerexec.NewSimulator()
	return New(res, store, logger, sim), store, sim
}

func setupRunningJob(t *testing.T, store *storage.MemStore, jobID, workerID string) *types.JobAssignment {
	t.Helper()
	now := time.Now()
	require.NoError(t, store.CreateJob(&types.Job{ID: jobID, State: types.JobRunning}))
	require.NoError(t, store.UpsertWorkerStatus(&types.WorkerStatus{WorkerID: workerID, Status: types.WorkerBusy, ActiveJobID: &jobID}))
	assignment := &types.JobAssignment{ID: "a-" + jobID, JobID: jobID, WorkerID: workerID, AssignedAt: now}
	require.NoError(t, store.CreateAssignment(assignment))
	return assignment
}

func TestHarvester_StillRunningSkipsJob(t *testing.T) {
	h, store, sim := newTestHarvester(t)
	setupRunningJob(t, store, "job1", "w1")
	sim.Schedule("job1", time.Hour, workerexec.Outcome{ExitCode: 0})

	h.cycle()

	job, err := store.GetJob("job1")
	require.NoError(t, err)
	assert.Equal(t, types.JobRunning, job.State)
}

func TestHarvester_SuccessCompletesJobAndIdlesWorker(t *testing.T) {
	h, store, sim := newTestHarvester(t)
	setupRunningJob(t, store, "job1", "w1")
	sim.Schedule("job1", 0, workerexec.Outcome{ExitCode: 0, Stdout: "hi"})

	h.cycle()

	job, err := store.GetJob("job1")
	require.NoError(t, err)
	assert.Equal(t, types.JobCompleted, job.State)

	result, err := store.GetResultByJob("job1")
	require.NoError(t, err)
	assert.Equal(t, "hi", result.Stdout)

	metric, err := store.GetMetric("job1", "w1")
	require.NoError(t, err)
	require.NotNil(t, metric.ExitCode)
	assert.Equal(t, 0, *metric.ExitCode)

	status, err := store.GetWorkerStatus("w1")
	require.NoError(t, err)
	assert.Equal(t, types.WorkerIdle, status.Status)
	assert.Nil(t, status.ActiveJobID)

	assignments, err := store.ListActiveAssignments()
	require.NoError(t, err)
	assert.Empty(t, assignments)
}

func TestHarvester_NonZeroExitFailsJob(t *testing.T) {
	h, store, sim := newTestHarvester(t)
	setupRunningJob(t, store, "job1", "w1")
	sim.Schedule("job1", 0, workerexec.Outcome{ExitCode: 1, Reason: "container OOM-killed"})

	h.cycle()

	job, err := store.GetJob("job1")
	require.NoError(t, err)
	assert.Equal(t, types.JobFailed, job.State)
	assert.Equal(t, "container OOM-killed", job.ErrorMessage, "the worker's reported failure reason must flow through, not a generic message")
}

func TestHarvester_NonZeroExitWithoutReasonFallsBackToGenericMessage(t *testing.T) {
	h, store, sim := newTestHarvester(t)
	setupRunningJob(t, store, "job1", "w1")
	sim.Schedule("job1", 0, workerexec.Outcome{ExitCode: 1})

	h.cycle()

	job, err := store.GetJob("job1")
	require.NoError(t, err)
	assert.Equal(t, types.JobFailed, job.State)
	assert.NotEmpty(t, job.ErrorMessage)
}
