// Package storage defines the persistence boundary every Core module
// talks through. No module holds a direct BoltDB handle; they only
// see the Store interface, so the Dispatcher's in-memory liveness
// tables and the Logger's buffer are the only state that lives outside
// it.
package storage

import (
	"github.com/Vickeviking/SwarmSync-sub000/pkg/types"
)

// Store defines the interface for Core entity persistence. It is
// implemented by BoltStore (production) and MemStore (tests).
type Store interface {
	// Jobs
	CreateJob(job *types.Job) error
	GetJob(id string) (*types.Job, error)
	ListJobs() ([]*types.Job, error)
	ListJobsByState(state types.JobState) ([]*types.Job, error)
	UpdateJob(job *types.Job) error
	DeleteJob(id string) error

	// Workers
	CreateWorker(worker *types.Worker) error
	GetWorker(id string) (*types.Worker, error)
	ListWorkers() ([]*types.Worker, error)
	UpdateWorker(worker *types.Worker) error
	DeleteWorker(id string) error

	// WorkerStatus (one per Worker)
	GetWorkerStatus(workerID string) (*types.WorkerStatus, error)
	ListWorkerStatuses() ([]*types.WorkerStatus, error)
	UpsertWorkerStatus(status *types.WorkerStatus) error

	// JobAssignments
	CreateAssignment(assignment *types.JobAssignment) error
	GetAssignment(id string) (*types.JobAssignment, error)
	ListAssignmentsByJob(jobID string) ([]*types.JobAssignment, error)
	ListActiveAssignments() ([]*types.JobAssignment, error)
	UpdateAssignment(assignment *types.JobAssignment) error

	// JobResults
	CreateResult(result *types.JobResult) error
	GetResultByJob(jobID string) (*types.JobResult, error)

	// JobMetrics (upsert key: JobID+WorkerID)
	UpsertMetric(metric *types.JobMetric) error
	GetMetric(jobID, workerID string) (*types.JobMetric, error)

	// Logs
	CreateLogEntry(entry *types.DBLogEntry) error
	ListExpiredLogEntries(before int64) ([]*types.DBLogEntry, error)
	DeleteLogEntry(id string) error

	// Archive moves a terminal job and its dependents into cold storage.
	ArchiveJob(jobID string) error

	// Utility
	Close() error
}
