package storage

import (
	"fmt"
	"sync"

	"github.com/Vickeviking/SwarmSync-sub000/pkg/types"
)

// MemStore is an in-memory Store used by unit tests that exercise
// module logic without standing up a BoltDB file.
type MemStore struct {
	mu sync.RWMutex

	jobs         map[string]*types.Job
	workers      map[string]*types.Worker
	workerStatus map[string]*types.WorkerStatus
	assignments  map[string]*types.JobAssignment
	results      map[string]*types.JobResult
	metrics      map[string]*types.JobMetric
	logs         map[string]*types.DBLogEntry
	archive      map[string]*types.Job
}

// NewMemStore returns an empty MemStore.
func NewMemStore() *MemStore {
	return &MemStore{
		jobs:         make(map[string]*types.Job),
		workers:      make(map[string]*types.Worker),
		workerStatus: make(map[string]*types.WorkerStatus),
		assignments:  make(map[string]*types.JobAssignment),
		results:      make(map[string]*types.JobResult),
		metrics:      make(map[string]*types.JobMetric),
		logs:         make(map[string]*types.DBLogEntry),
		archive:      make(map[string]*types.Job),
	}
}

func (m *MemStore) Close() error { return nil }

// Jobs

func (m *MemStore) CreateJob(job *types.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *job
	m.jobs[job.ID] = &cp
	return nil
}

func (m *MemStore) GetJob(id string) (*types.Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	job, ok := m.jobs[id]
	if !ok {
		return nil, fmt.Errorf("job not found: %s", id)
	}
	cp := *job
	return &cp, nil
}

func (m *MemStore) ListJobs() ([]*types.Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	jobs := make([]*types.Job, 0, len(m.jobs))
	for _, job := range m.jobs {
		cp := *job
		jobs = append(jobs, &cp)
	}
	return jobs, nil
}

func (m *MemStore) ListJobsByState(state types.JobState) ([]*types.Job, error) {
	all, err := m.ListJobs()
	if err != nil {
		return nil, err
	}
	var filtered []*types.Job
	for _, job := range all {
		if job.State == state {
			filtered = append(filtered, job)
		}
	}
	return filtered, nil
}

func (m *MemStore) UpdateJob(job *types.Job) error {
	return m.CreateJob(job)
}

func (m *MemStore) DeleteJob(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.jobs, id)
	return nil
}

// Workers

func (m *MemStore) CreateWorker(worker *types.Worker) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *worker
	m.workers[worker.ID] = &cp
	return nil
}

func (m *MemStore) GetWorker(id string) (*types.Worker, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	worker, ok := m.workers[id]
	if !ok {
		return nil, fmt.Errorf("worker not found: %s", id)
	}
	cp := *worker
	return &cp, nil
}

func (m *MemStore) ListWorkers() ([]*types.Worker, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	workers := make([]*types.Worker, 0, len(m.workers))
	for _, worker := range m.workers {
		cp := *worker
		workers = append(workers, &cp)
	}
	return workers, nil
}

func (m *MemStore) UpdateWorker(worker *types.Worker) error {
	return m.CreateWorker(worker)
}

func (m *MemStore) DeleteWorker(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.workers, id)
	return nil
}

// WorkerStatus

func (m *MemStore) UpsertWorkerStatus(status *types.WorkerStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *status
	m.workerStatus[status.WorkerID] = &cp
	return nil
}

func (m *MemStore) GetWorkerStatus(workerID string) (*types.WorkerStatus, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	status, ok := m.workerStatus[workerID]
	if !ok {
		return nil, fmt.Errorf("worker status not found: %s", workerID)
	}
	cp := *status
	return &cp, nil
}

func (m *MemStore) ListWorkerStatuses() ([]*types.WorkerStatus, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	statuses := make([]*types.WorkerStatus, 0, len(m.workerStatus))
	for _, status := range m.workerStatus {
		cp := *status
		statuses = append(statuses, &cp)
	}
	return statuses, nil
}

// JobAssignments

func (m *MemStore) CreateAssignment(assignment *types.JobAssignment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *assignment
	m.assignments[assignment.ID] = &cp
	return nil
}

func (m *MemStore) GetAssignment(id string) (*types.JobAssignment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	assignment, ok := m.assignments[id]
	if !ok {
		return nil, fmt.Errorf("assignment not found: %s", id)
	}
	cp := *assignment
	return &cp, nil
}

func (m *MemStore) ListAssignmentsByJob(jobID string) ([]*types.JobAssignment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var assignments []*types.JobAssignment
	for _, a := range m.assignments {
		if a.JobID == jobID {
			cp := *a
			assignments = append(assignments, &cp)
		}
	}
	return assignments, nil
}

func (m *MemStore) ListActiveAssignments() ([]*types.JobAssignment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var assignments []*types.JobAssignment
	for _, a := range m.assignments {
		if a.Active() {
			cp := *a
			assignments = append(assignments, &cp)
		}
	}
	return assignments, nil
}

func (m *MemStore) UpdateAssignment(assignment *types.JobAssignment) error {
	return m.CreateAssignment(assignment)
}

// JobResults

func (m *MemStore) CreateResult(result *types.JobResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *result
	m.results[result.ID] = &cp
	return nil
}

func (m *MemStore) GetResultByJob(jobID string) (*types.JobResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, r := range m.results {
		if r.JobID == jobID {
			cp := *r
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("result not found for job: %s", jobID)
}

// JobMetrics

func (m *MemStore) UpsertMetric(metric *types.JobMetric) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *metric
	m.metrics[metric.JobID+":"+metric.WorkerID] = &cp
	return nil
}

func (m *MemStore) GetMetric(jobID, workerID string) (*types.JobMetric, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	metric, ok := m.metrics[jobID+":"+workerID]
	if !ok {
		return nil, fmt.Errorf("metric not found for job %s worker %s", jobID, workerID)
	}
	cp := *metric
	return &cp, nil
}

// Logs

func (m *MemStore) CreateLogEntry(entry *types.DBLogEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *entry
	m.logs[entry.ID] = &cp
	return nil
}

func (m *MemStore) ListExpiredLogEntries(before int64) ([]*types.DBLogEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var expired []*types.DBLogEntry
	for _, e := range m.logs {
		if e.ExpiresAt.Unix() < before {
			cp := *e
			expired = append(expired, &cp)
		}
	}
	return expired, nil
}

func (m *MemStore) DeleteLogEntry(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.logs, id)
	return nil
}

// ArchiveJob moves the job into the archive map and deletes its live
// assignments, result, and metrics, mirroring BoltStore's per-job
// transaction.
func (m *MemStore) ArchiveJob(jobID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[jobID]
	if !ok {
		return fmt.Errorf("job not found: %s", jobID)
	}
	cp := *job
	m.archive[jobID] = &cp
	delete(m.jobs, jobID)

	for id, a := range m.assignments {
		if a.JobID == jobID {
			delete(m.assignments, id)
		}
	}
	for id, r := range m.results {
		if r.JobID == jobID {
			delete(m.results, id)
		}
	}
	for id, metric := range m.metrics {
		if metric.JobID == jobID {
			delete(m.metrics, id)
		}
	}
	return nil
}
