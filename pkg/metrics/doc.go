/*
Package metrics provides Prometheus metrics collection and exposition for
SwarmSync Core.

The metrics package defines and registers every Core metric using the
Prometheus client library, providing observability into job lifecycle,
worker liveness, and the per-module cycle latency of the scheduler,
dispatcher, harvester, hibernator, and archive. Metrics are exposed via
an HTTP endpoint for scraping by Prometheus servers.

# Architecture

	┌──────────────────── METRICS SYSTEM ──────────────────────┐
	│                                                            │
	│  ┌────────────────────────────────────────────┐          │
	│  │          Prometheus Registry                │          │
	│  │  - Global DefaultRegistry                   │          │
	│  │  - MustRegister at package init             │          │
	│  │  - Automatic Go runtime metrics             │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │              Metric Types                   │          │
	│  │                                              │          │
	│  │  Gauge: Instant values (worker count)       │          │
	│  │  Counter: Monotonic increases (heartbeats)  │          │
	│  │  Histogram: Distributions (cycle latency)   │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │           Metric Categories                 │          │
	│  │                                              │          │
	│  │  Job lifecycle: submitted, rejected, total  │          │
	│  │  Worker liveness: status gauge, heartbeats  │          │
	│  │  Scheduler: cycle latency, assignments      │          │
	│  │  Harvester: cycle latency, outcomes         │          │
	│  │  Hibernator: cycle latency, re-queues       │          │
	│  │  Archive: cycle latency, jobs swept         │          │
	│  │  Logger: buffer depth, flushes, expiries    │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │          HTTP Metrics Endpoint              │          │
	│  │  - Path: /metrics                           │          │
	│  │  - Format: Prometheus text exposition       │          │
	│  │  - Handler: metrics.Handler()                │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │         Prometheus Server                   │          │
	│  │  - Scrapes /metrics periodically             │          │
	│  │  - Stores time series data                  │          │
	│  │  - Provides PromQL query interface          │          │
	│  └────────────────────────────────────────────┘           │
	└────────────────────────────────────────────────────────┘

# Core Components

Metric Registry:
  - Global Prometheus DefaultRegistry
  - All metrics registered at package init
  - Thread-safe for concurrent updates

Gauge Metrics:
  - Instant value that can go up or down
  - Examples: JobsTotal (by state), WorkersTotal (by status)
  - Operations: Set, Inc, Dec, Add, Sub

Counter Metrics:
  - Monotonically increasing value
  - Examples: JobsSubmittedTotal, DispatcherHeartbeatsTotal
  - Operations: Inc, Add (cannot decrease)

Histogram Metrics:
  - Distribution of observed values
  - Examples: SchedulerLatency, HarvesterLatency, ArchiveLatency
  - Includes: sum, count, buckets

Timer Helper:
  - Convenience wrapper for timing operations
  - Start timer, observe duration to a histogram
  - Supports label values for histogram vectors

# Metrics Catalog

Job Lifecycle:

swarmcore_jobs_total{state}:
  - Type: Gauge
  - Description: Total jobs by state
  - Note: registered, but no Core module sets it
  - Example: swarmcore_jobs_total{state="queued"} 12

swarmcore_jobs_submitted_total:
  - Type: Counter
  - Description: Total jobs moved from Submitted to Queued by the Receiver

swarmcore_jobs_rejected_total:
  - Type: Counter
  - Description: Total jobs marked Failed by the Receiver during validation

Worker Liveness:

swarmcore_workers_total{status}:
  - Type: Gauge
  - Description: Total workers by liveness status (offline/idle/busy/unreachable)
  - Note: registered, but no Core module sets it

swarmcore_dispatcher_heartbeats_total:
  - Type: Counter
  - Description: Total valid UDP heartbeat frames processed

swarmcore_dispatcher_dropped_frames_total:
  - Type: Counter
  - Description: Total malformed UDP frames dropped

swarmcore_dispatcher_unreachable_total:
  - Type: Counter
  - Description: Total workers transitioned to Unreachable by the reachability sweep

Scheduler:

swarmcore_scheduler_cycle_duration_seconds:
  - Type: Histogram
  - Description: Time taken to complete one Scheduler cycle

swarmcore_assignments_created_total:
  - Type: Counter
  - Description: Total JobAssignments created

Harvester:

swarmcore_harvester_cycle_duration_seconds:
  - Type: Histogram
  - Description: Time taken to complete one Harvester cycle

swarmcore_jobs_finished_total{outcome}:
  - Type: Counter
  - Description: Total jobs that reached a terminal state, by outcome

Hibernator:

swarmcore_hibernator_cycle_duration_seconds:
  - Type: Histogram
  - Description: Time taken to evaluate all cron jobs in one Slow pulse

swarmcore_cron_requeued_total:
  - Type: Counter
  - Description: Total cron jobs re-queued by the Hibernator

TaskArchive:

swarmcore_archive_cycle_duration_seconds:
  - Type: Histogram
  - Description: Time taken to complete one TaskArchive sweep

swarmcore_archive_swept_total:
  - Type: Counter
  - Description: Total terminal jobs swept into archival storage

Logger:

swarmcore_logger_buffer_size:
  - Type: Gauge
  - Description: Current number of LogEntry values buffered but not yet flushed

swarmcore_logger_flushed_total:
  - Type: Counter
  - Description: Total LogEntry values flushed to the store

swarmcore_logger_expired_total:
  - Type: Counter
  - Description: Total DBLogEntry rows purged for exceeding their TTL

# Usage

Updating Gauge Metrics:

	import "github.com/Vickeviking/SwarmSync-sub000/pkg/metrics"

	// Set absolute value
	metrics.WorkersTotal.WithLabelValues("idle").Set(5)

	// Increment/decrement
	metrics.LoggerBufferSize.Inc()
	metrics.LoggerBufferSize.Dec()

Updating Counter Metrics:

	// Increment by 1
	metrics.AssignmentsCreatedTotal.Inc()

	// Add arbitrary value
	metrics.JobsCompletedTotal.WithLabelValues("completed").Add(1)

Recording Histogram Observations:

	// Using Timer helper
	timer := metrics.NewTimer()
	// ... perform one scheduler cycle ...
	timer.ObserveDuration(metrics.SchedulerLatency)

Complete Example:

	package main

	import (
		"net/http"
		"github.com/Vickeviking/SwarmSync-sub000/pkg/metrics"
	)

	func main() {
		metrics.WorkersTotal.WithLabelValues("idle").Set(3)
		metrics.WorkersTotal.WithLabelValues("busy").Set(5)
		metrics.JobsTotal.WithLabelValues("running").Set(8)

		timer := metrics.NewTimer()
		runSchedulerCycle()
		timer.ObserveDuration(metrics.SchedulerLatency)

		http.Handle("/metrics", metrics.Handler())
		http.ListenAndServe(":9090", nil)
	}

	func runSchedulerCycle() {}

# Integration Points

This package integrates with:

  - pkg/receiver: records job submission and rejection counts
  - pkg/scheduler: records scheduling latency and assignment counts
  - pkg/dispatcher: records heartbeat traffic, dropped frames, and unreachable transitions
  - pkg/harvester: records result poll latency and job outcomes
  - pkg/hibernator: records cron re-queue latency and counts
  - pkg/archive: records archive sweep latency and counts
  - pkg/corelog: records buffered log depth, flushes, and expiries
  - Prometheus: scrapes /metrics

# Design Patterns

Package Init Registration:
  - All metrics registered in init()
  - MustRegister panics on duplicate registration
  - Ensures metrics available before main()

Label Discipline:
  - Use WithLabelValues for cardinality-bounded labels (state, status, outcome)
  - Avoid high-cardinality labels (job IDs, timestamps)

Timer Pattern:
  - Create a timer at the start of a module cycle
  - Call ObserveDuration once the cycle completes

Global Metrics:
  - Package-level variables for all metrics
  - Accessible from any Core package
  - Thread-safe concurrent updates

# Troubleshooting

Missing Metrics:
  - Symptom: Metric not appearing in /metrics output
  - Check: Metric registered in init()
  - Solution: Verify the metric variable is exported and referenced

High Cardinality:
  - Symptom: Prometheus memory usage grows
  - Cause: Using job or worker IDs as labels
  - Solution: Remove high-cardinality labels, aggregate by state/status instead

# Monitoring

Job Health:
  - Queue depth: swarmcore_jobs_total{state="queued"} (empty unless something outside the Core modules sets this gauge)
  - Failure rate: rate(swarmcore_jobs_finished_total{outcome="failed"}[5m])

Worker Health:
  - Unreachable transitions: rate(swarmcore_dispatcher_unreachable_total[5m])
  - Heartbeat drop rate: rate(swarmcore_dispatcher_dropped_frames_total[1m])

Scheduler Performance:
  - p95 cycle latency: histogram_quantile(0.95, swarmcore_scheduler_cycle_duration_seconds_bucket)

# See Also

  - Prometheus documentation: https://prometheus.io/docs/
  - Prometheus client library: https://github.com/prometheus/client_golang
  - Histogram best practices: https://prometheus.io/docs/practices/histograms/
*/
package metrics
