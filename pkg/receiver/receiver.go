// Package receiver implements the Receiver module (C5): the only
// module that moves a Job out of Submitted, promoting it to Queued
// once its §3 invariants validate, or to Failed with an error_message
// otherwise.
package receiver

import (
	"github.com/Vickeviking/SwarmSync-sub000/pkg/corebus"
	"github.com/Vickeviking/SwarmSync-sub000/pkg/corelog"
	"github.com/Vickeviking/SwarmSync-sub000/pkg/corerr"
	"github.com/Vickeviking/SwarmSync-sub000/pkg/metrics"
	"github.com/Vickeviking/SwarmSync-sub000/pkg/pulse"
	"github.com/Vickeviking/SwarmSync-sub000/pkg/shared"
	"github.com/Vickeviking/SwarmSync-sub000/pkg/storage"
	"github.com/Vickeviking/SwarmSync-sub000/pkg/types"
)

// Receiver promotes Submitted jobs to Queued on every Medium pulse.
type Receiver struct {
	res    *shared.Resources
	store  storage.Store
	logger *corelog.Logger

	events corebus.Receiver
	medium pulse.Receiver
}

// New constructs a Receiver subscribed to CoreEvents and the Medium pulse.
func New(res *shared.Resources, store storage.Store, logger *corelog.Logger) *Receiver {
	return &Receiver{
		res:    res,
		store:  store,
		logger: logger,
		events: res.Events(),
		medium: res.Pulse.SubscribeMedium(),
	}
}

// Run drives the Receiver loop until Shutdown.
func (r *Receiver) Run() {
	defer r.res.Bus.Unsubscribe(r.events)
	for {
		select {
		case ev, ok := <-r.events:
			if !ok || ev == corebus.Shutdown {
				return
			}
		case tier, ok := <-r.medium:
			if !ok {
				return
			}
			if tier == pulse.Medium {
				r.processOnce()
			}
		}
	}
}

func (r *Receiver) processOnce() {
	jobs, err := r.store.ListJobsByState(types.JobSubmitted)
	if err != nil {
		r.res.Logger.Error().Err(err).Msg("receiver: failed to list submitted jobs")
		return
	}

	for _, job := range jobs {
		r.process(job)
	}
}

func (r *Receiver) process(job *types.Job) {
	if err := job.Validate(); err != nil {
		reason := err.Error()
		if verr, ok := err.(*corerr.ValidationError); ok {
			reason = verr.Field + ": " + verr.Reason
		}
		job.State = types.JobFailed
		job.ErrorMessage = reason
		if err := r.store.UpdateJob(job); err != nil {
			r.res.Logger.Error().Err(err).Str("job_id", job.ID).Msg("receiver: failed to persist validation failure")
			return
		}
		metrics.JobsRejectedTotal.Inc()
		return
	}

	job.State = types.JobQueued
	if err := r.store.UpdateJob(job); err != nil {
		r.res.Logger.Error().Err(err).Str("job_id", job.ID).Msg("receiver: failed to promote job to queued")
		return
	}
	metrics.JobsSubmittedTotal.Inc()
	r.logger.LogJobSubmitted(job.ID, job.JobName)
}
