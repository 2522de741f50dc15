// Package archive implements the TaskArchive module (C10): it sweeps
// terminal Jobs whose last update is older than the configured
// retention horizon into cold storage, once per Slow pulse.
package archive

import (
	"time"

	"github.com/Vickeviking/SwarmSync-sub000/pkg/corebus"
	"github.com/Vickeviking/SwarmSync-sub000/pkg/metrics"
	"github.com/Vickeviking/SwarmSync-sub000/pkg/pulse"
	"github.com/Vickeviking/SwarmSync-sub000/pkg/shared"
	"github.com/Vickeviking/SwarmSync-sub000/pkg/storage"
	"github.com/Vickeviking/SwarmSync-sub000/pkg/types"
)

// nowFunc is overridden in tests that need deterministic timestamps.
var nowFunc = time.Now

// terminalStates are the Job states eligible for archival.
var terminalStates = []types.JobState{types.JobCompleted, types.JobFailed}

// Archive sweeps aged terminal jobs into cold storage.
type Archive struct {
	res      *shared.Resources
	store    storage.Store
	horizon  time.Duration

	events corebus.Receiver
	slow   pulse.Receiver
}

// New constructs an Archive subscribed to CoreEvents and the Slow
// pulse, sweeping jobs whose UpdatedAt is older than horizon.
func New(res *shared.Resources, store storage.Store, horizon time.Duration) *Archive {
	return &Archive{
		res:     res,
		store:   store,
		horizon: horizon,
		events:  res.Events(),
		slow:    res.Pulse.SubscribeSlow(),
	}
}

// Run drives the Archive loop until Shutdown.
func (a *Archive) Run() {
	defer a.res.Bus.Unsubscribe(a.events)
	for {
		select {
		case ev, ok := <-a.events:
			if !ok || ev == corebus.Shutdown {
				return
			}
		case tier, ok := <-a.slow:
			if !ok {
				return
			}
			if tier == pulse.Slow {
				a.cycle()
			}
		}
	}
}

func (a *Archive) cycle() {
	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.ArchiveLatency)

	cutoff := nowFunc().Add(-a.horizon)
	for _, state := range terminalStates {
		jobs, err := a.store.ListJobsByState(state)
		if err != nil {
			a.res.Logger.Error().Err(err).Msg("archive: failed to list jobs")
			continue
		}
		for _, job := range jobs {
			if job.UpdatedAt.After(cutoff) {
				continue
			}
			a.sweep(job.ID)
		}
	}
}

// sweep archives a single job. ArchiveJob is all-or-nothing per job
// (job + its assignments + its result move together, or none do), so
// a failure here leaves the job exactly where it was for the next cycle.
func (a *Archive) sweep(jobID string) {
	if err := a.store.ArchiveJob(jobID); err != nil {
		a.res.Logger.Error().Err(err).Str("job_id", jobID).Msg("archive: failed to archive job")
		return
	}
	metrics.ArchiveSweptTotal.Inc()
}
