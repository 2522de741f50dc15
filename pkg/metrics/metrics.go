package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Job lifecycle
	JobsTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "swarmcore_jobs_total",
			Help: "Total number of jobs by state",
		},
		[]string{"state"},
	)

	JobsSubmittedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "swarmcore_jobs_submitted_total",
			Help: "Total number of jobs moved from Submitted to Queued by the Receiver",
		},
	)

	JobsRejectedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "swarmcore_jobs_rejected_total",
			Help: "Total number of jobs marked Failed by the Receiver during validation",
		},
	)

	// Worker liveness
	WorkersTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "swarmcore_workers_total",
			Help: "Total number of workers by liveness status",
		},
		[]string{"status"},
	)

	DispatcherHeartbeatsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "swarmcore_dispatcher_heartbeats_total",
			Help: "Total number of valid UDP heartbeat frames processed",
		},
	)

	DispatcherDroppedFramesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "swarmcore_dispatcher_dropped_frames_total",
			Help: "Total number of malformed UDP frames dropped",
		},
	)

	DispatcherUnreachableTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "swarmcore_dispatcher_unreachable_total",
			Help: "Total number of workers transitioned to Unreachable by the reachability sweep",
		},
	)

	// Scheduler
	SchedulerLatency = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "swarmcore_scheduler_cycle_duration_seconds",
			Help:    "Time taken to complete one Scheduler cycle",
			Buckets: prometheus.DefBuckets,
		},
	)

	AssignmentsCreatedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "swarmcore_assignments_created_total",
			Help: "Total number of JobAssignments created",
		},
	)

	// Harvester
	HarvesterLatency = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "swarmcore_harvester_cycle_duration_seconds",
			Help:    "Time taken to complete one Harvester cycle",
			Buckets: prometheus.DefBuckets,
		},
	)

	JobsCompletedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "swarmcore_jobs_finished_total",
			Help: "Total number of jobs that reached a terminal state, by outcome",
		},
		[]string{"outcome"},
	)

	// Hibernator
	HibernatorLatency = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "swarmcore_hibernator_cycle_duration_seconds",
			Help:    "Time taken to evaluate all Cron jobs in one Slow pulse",
			Buckets: prometheus.DefBuckets,
		},
	)

	CronRequeuedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "swarmcore_cron_requeued_total",
			Help: "Total number of Cron jobs re-queued by the Hibernator",
		},
	)

	// TaskArchive
	ArchiveLatency = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "swarmcore_archive_cycle_duration_seconds",
			Help:    "Time taken to complete one TaskArchive sweep",
			Buckets: prometheus.DefBuckets,
		},
	)

	ArchiveSweptTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "swarmcore_archive_swept_total",
			Help: "Total number of terminal jobs swept into archival storage",
		},
	)

	// Logger
	LoggerBufferSize = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "swarmcore_logger_buffer_size",
			Help: "Current number of LogEntry values buffered but not yet flushed",
		},
	)

	LoggerFlushedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "swarmcore_logger_flushed_total",
			Help: "Total number of LogEntry values flushed to the store",
		},
	)

	LoggerExpiredTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "swarmcore_logger_expired_total",
			Help: "Total number of DBLogEntry rows purged for exceeding their TTL",
		},
	)
)

func init() {
	prometheus.MustRegister(
		JobsTotal,
		JobsSubmittedTotal,
		JobsRejectedTotal,
		WorkersTotal,
		DispatcherHeartbeatsTotal,
		DispatcherDroppedFramesTotal,
		DispatcherUnreachableTotal,
		SchedulerLatency,
		AssignmentsCreatedTotal,
		HarvesterLatency,
		JobsCompletedTotal,
		HibernatorLatency,
		CronRequeuedTotal,
		ArchiveLatency,
		ArchiveSweptTotal,
		LoggerBufferSize,
		LoggerFlushedTotal,
		LoggerExpiredTotal,
	)
}

// Handler returns the Prometheus HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer is a helper for timing operations.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the duration to a histogram.
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	histogram.Observe(time.Since(t.start).Seconds())
}

// ObserveDurationVec records the duration to a histogram vec with labels.
func (t *Timer) ObserveDurationVec(histogram prometheus.ObserverVec, labels ...string) {
	histogram.WithLabelValues(labels...).Observe(time.Since(t.start).Seconds())
}

// Duration returns the elapsed time since the timer started.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
