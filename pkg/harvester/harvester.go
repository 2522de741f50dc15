// Package harvester implements the Harvester module (C8): it polls
// the worker execution contract for every live JobAssignment and
// records terminal state once a job finishes, running once per
// Medium pulse.
package harvester

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/Vickeviking/SwarmSync-sub000/pkg/corebus"
	"github.com/Vickeviking/SwarmSync-sub000/pkg/corelog"
	"github.com/Vickeviking/SwarmSync-sub000/pkg/metrics"
	"github.com/Vickeviking/SwarmSync-sub000/pkg/pulse"
	"github.com/Vickeviking/SwarmSync-sub000/pkg/shared"
	"github.com/Vickeviking/SwarmSync-sub000/pkg/storage"
	"github.com/Vickeviking/SwarmSync-sub000/pkg/types"
	"github.com/Vickeviking/SwarmSync-sub000/pkg/workerexec"
)

// nowFunc is overridden in tests that need deterministic timestamps.
var nowFunc = time.Now

// pollTimeout bounds a single Executor.Poll call.
const pollTimeout = 5 * time.Second

// Harvester collects results for Running assignments.
type Harvester struct {
	res      *shared.Resources
	store    storage.Store
	logger   *corelog.Logger
	executor workerexec.Executor

	events corebus.Receiver
	medium pulse.Receiver
}

// New constructs a Harvester subscribed to CoreEvents and the Medium pulse.
func New(res *shared.Resources, store storage.Store, logger *corelog.Logger, executor workerexec.Executor) *Harvester {
	return &Harvester{
		res:      res,
		store:    store,
		logger:   logger,
		executor: executor,
		events:   res.Events(),
		medium:   res.Pulse.SubscribeMedium(),
	}
}

// Run drives the Harvester loop until Shutdown.
func (h *Harvester) Run() {
	defer h.res.Bus.Unsubscribe(h.events)
	for {
		select {
		case ev, ok := <-h.events:
			if !ok || ev == corebus.Shutdown {
				return
			}
		case tier, ok := <-h.medium:
			if !ok {
				return
			}
			if tier == pulse.Medium {
				h.cycle()
			}
		}
	}
}

func (h *Harvester) cycle() {
	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.HarvesterLatency)

	assignments, err := h.store.ListActiveAssignments()
	if err != nil {
		h.res.Logger.Error().Err(err).Msg("harvester: failed to list active assignments")
		return
	}

	for _, assignment := range assignments {
		h.harvestOne(assignment)
	}
}

func (h *Harvester) harvestOne(assignment *types.JobAssignment) {
	job, err := h.store.GetJob(assignment.JobID)
	if err != nil {
		h.res.Logger.Error().Err(err).Str("job_id", assignment.JobID).Msg("harvester: failed to load job")
		return
	}
	if job.State != types.JobRunning {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), pollTimeout)
	outcome, err := h.executor.Poll(ctx, job.ID, assignment.WorkerID)
	cancel()
	if err != nil {
		h.res.Logger.Warn().Err(err).Str("job_id", job.ID).Msg("harvester: poll failed, will retry next cycle")
		return
	}
	if !outcome.Done {
		return
	}

	h.finish(job, assignment, outcome)
}

// finish writes JobResult, upserts JobMetric, marks the assignment
// finished, resolves the job's terminal state, and resets the
// worker's status, in that order. Each write runs only after the
// previous one succeeded: a failing write is logged and ends the
// sequence, and the writes already made are not rolled back.
func (h *Harvester) finish(job *types.Job, assignment *types.JobAssignment, outcome workerexec.Outcome) {
	now := nowFunc()

	result := &types.JobResult{
		ID:      uuid.New().String(),
		JobID:   job.ID,
		Stdout:  outcome.Stdout,
		Files:   outcome.Files,
		SavedAt: now,
	}
	if err := h.store.CreateResult(result); err != nil {
		h.res.Logger.Error().Err(err).Str("job_id", job.ID).Msg("harvester: failed to write job result")
		return
	}

	duration := now.Sub(assignment.AssignedAt).Seconds()
	exitCode := outcome.ExitCode
	metric := &types.JobMetric{
		ID:          uuid.New().String(),
		JobID:       job.ID,
		WorkerID:    assignment.WorkerID,
		DurationSec: &duration,
		CPUUsagePct: &outcome.CPUUsage,
		MemUsageMB:  &outcome.MemUsage,
		ExitCode:    &exitCode,
		Timestamp:   now,
	}
	if err := h.store.UpsertMetric(metric); err != nil {
		h.res.Logger.Error().Err(err).Str("job_id", job.ID).Msg("harvester: failed to upsert job metric")
		return
	}

	assignment.FinishedAt = &now
	if err := h.store.UpdateAssignment(assignment); err != nil {
		h.res.Logger.Error().Err(err).Str("job_id", job.ID).Msg("harvester: failed to finish assignment")
		return
	}

	if outcome.ExitCode == 0 {
		job.State = types.JobCompleted
	} else {
		job.State = types.JobFailed
		job.ErrorMessage = outcome.Reason
		if job.ErrorMessage == "" {
			job.ErrorMessage = "worker reported non-zero exit code"
		}
	}
	if err := h.store.UpdateJob(job); err != nil {
		h.res.Logger.Error().Err(err).Str("job_id", job.ID).Msg("harvester: failed to finalize job state")
		return
	}

	if status, err := h.store.GetWorkerStatus(assignment.WorkerID); err == nil {
		status.Status = types.WorkerIdle
		status.ActiveJobID = nil
		status.UpdatedAt = now
		if err := h.store.UpsertWorkerStatus(status); err != nil {
			h.res.Logger.Error().Err(err).Str("worker_id", assignment.WorkerID).Msg("harvester: failed to idle worker")
		}
	}

	metrics.JobsCompletedTotal.WithLabelValues(string(job.State)).Inc()
	h.logger.LogJobCompleted(job.ID, assignment.WorkerID, outcome.ExitCode)
}
