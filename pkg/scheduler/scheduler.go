// Package scheduler implements the Scheduler module (C6): it matches
// Ready jobs to eligible workers and creates JobAssignments, running
// once per Medium pulse.
package scheduler

import (
	"sort"
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

// Scheduler assigns Queued jobs to Idle workers.
type Scheduler struct {
	res   *shared.Resources
	store storage.Store

	events corebus.Receiver
	medium pulse.Receiver
}

// New constructs a Scheduler subscribed to CoreEvents and the Medium pulse.
func New(res *shared.Resources, store storage.Store) *Scheduler {
	return &Scheduler{
		res:    res,
		store:  store,
		events: res.Events(),
		medium: res.Pulse.SubscribeMedium(),
	}
}

// Run drives the Scheduler loop until Shutdown.
func (s *Scheduler) Run() {
	defer s.res.Bus.Unsubscribe(s.events)
	for {
		select {
		case ev, ok := <-s.events:
			if !ok || ev == corebus.Shutdown {
				return
			}
		case tier, ok := <-s.medium:
			if !ok {
				return
			}
			if tier == pulse.Medium {
				s.cycle()
			}
		}
	}
}

// cycle performs one scheduling pass: a FCFS snapshot of ready jobs
// against a freshest-heartbeat-first snapshot of eligible workers.
func (s *Scheduler) cycle() {
	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.SchedulerLatency)

	readyJobs, err := s.readyJobs()
	if err != nil {
		s.res.Logger.Error().Err(err).Msg("scheduler: failed to list ready jobs")
		return
	}
	if len(readyJobs) == 0 {
		return
	}

	eligibleWorkers, err := s.eligibleWorkers()
	if err != nil {
		s.res.Logger.Error().Err(err).Msg("scheduler: failed to list eligible workers")
		return
	}

	i := 0
	for _, job := range readyJobs {
		if i >= len(eligibleWorkers) {
			break
		}
		worker := eligibleWorkers[i]
		if s.assign(job, worker) {
			i++
		}
	}
}

func (s *Scheduler) readyJobs() ([]*types.Job, error) {
	jobs, err := s.store.ListJobsByState(types.JobQueued)
	if err != nil {
		return nil, err
	}
	sort.Slice(jobs, func(a, b int) bool {
		return jobs[a].CreatedAt.Before(jobs[b].CreatedAt)
	})
	return jobs, nil
}

func (s *Scheduler) eligibleWorkers() ([]*types.WorkerStatus, error) {
	statuses, err := s.store.ListWorkerStatuses()
	if err != nil {
		return nil, err
	}
	active, err := s.store.ListActiveAssignments()
	if err != nil {
		return nil, err
	}
	busyWorker := make(map[string]bool, len(active))
	for _, a := range active {
		busyWorker[a.WorkerID] = true
	}

	var eligible []*types.WorkerStatus
	for _, status := range statuses {
		if status.Status == types.WorkerIdle && !busyWorker[status.WorkerID] {
			eligible = append(eligible, status)
		}
	}

	sort.Slice(eligible, func(i, j int) bool {
		a, b := eligible[i], eligible[j]
		at, bt := heartbeatOrZero(a), heartbeatOrZero(b)
		if !at.Equal(bt) {
			return at.After(bt)
		}
		return a.WorkerID < b.WorkerID
	})
	return eligible, nil
}

// assign creates a JobAssignment for job against worker and advances
// both entities' state. It returns false if any of its three writes
// fails. The job stays Queued only when the failure comes before it is
// marked Running; writes already made are not rolled back.
func (s *Scheduler) assign(job *types.Job, worker *types.WorkerStatus) bool {
	now := nowFunc()

	assignment := &types.JobAssignment{
		ID:         uuid.New().String(),
		JobID:      job.ID,
		WorkerID:   worker.WorkerID,
		AssignedAt: now,
	}
	if err := s.store.CreateAssignment(assignment); err != nil {
		s.res.Logger.Error().Err(err).Str("job_id", job.ID).Msg("scheduler: failed to create assignment")
		return false
	}

	job.State = types.JobRunning
	if err := s.store.UpdateJob(job); err != nil {
		s.res.Logger.Error().Err(err).Str("job_id", job.ID).Msg("scheduler: failed to mark job running")
		return false
	}

	activeJobID := job.ID
	worker.Status = types.WorkerBusy
	worker.ActiveJobID = &activeJobID
	worker.UpdatedAt = now
	if err := s.store.UpsertWorkerStatus(worker); err != nil {
		s.res.Logger.Error().Err(err).Str("worker_id", worker.WorkerID).Msg("scheduler: failed to mark worker busy")
		return false
	}

	metrics.AssignmentsCreatedTotal.Inc()
	return true
}

func heartbeatOrZero(w *types.WorkerStatus) time.Time {
	if w.LastHeartbeat != nil {
		return *w.LastHeartbeat
	}
	return time.Time{}
}
