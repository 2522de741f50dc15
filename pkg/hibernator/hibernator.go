// Package hibernator implements the Hibernator module (C9): it
// evaluates Cron-scheduled jobs against wall clock on every Slow
// pulse and re-queues them once they are due.
package hibernator

import (
	"fmt"
	"time"

	"github.com/Vickeviking/SwarmSync-sub000/pkg/corebus"
	"github.com/Vickeviking/SwarmSync-sub000/pkg/corelog"
	"github.com/Vickeviking/SwarmSync-sub000/pkg/cron"
	"github.com/Vickeviking/SwarmSync-sub000/pkg/metrics"
	"github.com/Vickeviking/SwarmSync-sub000/pkg/pulse"
	"github.com/Vickeviking/SwarmSync-sub000/pkg/shared"
	"github.com/Vickeviking/SwarmSync-sub000/pkg/storage"
	"github.com/Vickeviking/SwarmSync-sub000/pkg/types"
)

// nowFunc is overridden in tests that need deterministic timestamps.
var nowFunc = time.Now

// eligibleStates are the Job states a Cron job may be re-queued from:
// not currently Queued or Running.
var eligibleStates = []types.JobState{types.JobSubmitted, types.JobCompleted, types.JobFailed}

// Hibernator re-queues due Cron jobs.
type Hibernator struct {
	res    *shared.Resources
	store  storage.Store
	logger *corelog.Logger

	events corebus.Receiver
	slow   pulse.Receiver
}

// New constructs a Hibernator subscribed to CoreEvents and the Slow pulse.
func New(res *shared.Resources, store storage.Store, logger *corelog.Logger) *Hibernator {
	return &Hibernator{
		res:    res,
		store:  store,
		logger: logger,
		events: res.Events(),
		slow:   res.Pulse.SubscribeSlow(),
	}
}

// Run drives the Hibernator loop until Shutdown.
func (h *Hibernator) Run() {
	defer h.res.Bus.Unsubscribe(h.events)
	for {
		select {
		case ev, ok := <-h.events:
			if !ok || ev == corebus.Shutdown {
				return
			}
		case tier, ok := <-h.slow:
			if !ok {
				return
			}
			if tier == pulse.Slow {
				h.cycle()
			}
		}
	}
}

func (h *Hibernator) cycle() {
	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.HibernatorLatency)

	for _, state := range eligibleStates {
		jobs, err := h.store.ListJobsByState(state)
		if err != nil {
			h.res.Logger.Error().Err(err).Msg("hibernator: failed to list jobs")
			continue
		}
		for _, job := range jobs {
			h.evaluate(job)
		}
	}
}

func (h *Hibernator) evaluate(job *types.Job) {
	if job.ScheduleType != types.ScheduleCron {
		return
	}

	now := nowFunc()
	due, err := cron.Due(job.CronExpression, job.UpdatedAt, now)
	if err != nil {
		job.State = types.JobFailed
		job.ErrorMessage = fmt.Sprintf("invalid cron: %v", err)
		if updErr := h.store.UpdateJob(job); updErr != nil {
			h.res.Logger.Error().Err(updErr).Str("job_id", job.ID).Msg("hibernator: failed to persist invalid cron")
		}
		return
	}
	if !due {
		return
	}

	job.State = types.JobQueued
	job.UpdatedAt = now
	if err := h.store.UpdateJob(job); err != nil {
		h.res.Logger.Error().Err(err).Str("job_id", job.ID).Msg("hibernator: failed to re-queue cron job")
		return
	}
	metrics.CronRequeuedTotal.Inc()
}
