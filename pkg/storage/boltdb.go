package storage

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/Vickeviking/SwarmSync-sub000/pkg/types"
	bolt "go.etcd.io/bbolt"
)

var (
	bucketJobs         = []byte("jobs")
	bucketWorkers       = []byte("workers")
	bucketWorkerStatus  = []byte("worker_status")
	bucketAssignments   = []byte("assignments")
	bucketResults       = []byte("results")
	bucketMetrics       = []byte("metrics")
	bucketLogs          = []byte("logs")
	bucketArchive       = []byte("archive")
)

// BoltStore implements Store using an embedded BoltDB file, one
// bucket per entity, JSON-encoded values keyed by the entity's ID.
type BoltStore struct {
	db *bolt.DB
}

// NewBoltStore opens (or creates) the database under dataDir.
func NewBoltStore(dataDir string) (*BoltStore, error) {
	dbPath := filepath.Join(dataDir, "swarmcore.db")

	db, err := bolt.Open(dbPath, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		buckets := [][]byte{
			bucketJobs,
			bucketWorkers,
			bucketWorkerStatus,
			bucketAssignments,
			bucketResults,
			bucketMetrics,
			bucketLogs,
			bucketArchive,
		}
		for _, bucket := range buckets {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltStore{db: db}, nil
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}

// Jobs

func (s *BoltStore) CreateJob(job *types.Job) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketJobs)
		data, err := json.Marshal(job)
		if err != nil {
			return err
		}
		return b.Put([]byte(job.ID), data)
	})
}

func (s *BoltStore) GetJob(id string) (*types.Job, error) {
	var job types.Job
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketJobs)
		data := b.Get([]byte(id))
		if data == nil {
			return fmt.Errorf("job not found: %s", id)
		}
		return json.Unmarshal(data, &job)
	})
	return &job, err
}

func (s *BoltStore) ListJobs() ([]*types.Job, error) {
	var jobs []*types.Job
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketJobs)
		return b.ForEach(func(k, v []byte) error {
			var job types.Job
			if err := json.Unmarshal(v, &job); err != nil {
				return err
			}
			jobs = append(jobs, &job)
			return nil
		})
	})
	return jobs, err
}

func (s *BoltStore) ListJobsByState(state types.JobState) ([]*types.Job, error) {
	all, err := s.ListJobs()
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

func (s *BoltStore) UpdateJob(job *types.Job) error {
	return s.CreateJob(job)
}

func (s *BoltStore) DeleteJob(id string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketJobs)
		return b.Delete([]byte(id))
	})
}

// Workers

func (s *BoltStore) CreateWorker(worker *types.Worker) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketWorkers)
		data, err := json.Marshal(worker)
		if err != nil {
			return err
		}
		return b.Put([]byte(worker.ID), data)
	})
}

func (s *BoltStore) GetWorker(id string) (*types.Worker, error) {
	var worker types.Worker
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketWorkers)
		data := b.Get([]byte(id))
		if data == nil {
			return fmt.Errorf("worker not found: %s", id)
		}
		return json.Unmarshal(data, &worker)
	})
	return &worker, err
}

func (s *BoltStore) ListWorkers() ([]*types.Worker, error) {
	var workers []*types.Worker
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketWorkers)
		return b.ForEach(func(k, v []byte) error {
			var worker types.Worker
			if err := json.Unmarshal(v, &worker); err != nil {
				return err
			}
			workers = append(workers, &worker)
			return nil
		})
	})
	return workers, err
}

func (s *BoltStore) UpdateWorker(worker *types.Worker) error {
	return s.CreateWorker(worker)
}

func (s *BoltStore) DeleteWorker(id string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketWorkers)
		return b.Delete([]byte(id))
	})
}

// WorkerStatus

func (s *BoltStore) UpsertWorkerStatus(status *types.WorkerStatus) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketWorkerStatus)
		data, err := json.Marshal(status)
		if err != nil {
			return err
		}
		return b.Put([]byte(status.WorkerID), data)
	})
}

func (s *BoltStore) GetWorkerStatus(workerID string) (*types.WorkerStatus, error) {
	var status types.WorkerStatus
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketWorkerStatus)
		data := b.Get([]byte(workerID))
		if data == nil {
			return fmt.Errorf("worker status not found: %s", workerID)
		}
		return json.Unmarshal(data, &status)
	})
	return &status, err
}

func (s *BoltStore) ListWorkerStatuses() ([]*types.WorkerStatus, error) {
	var statuses []*types.WorkerStatus
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketWorkerStatus)
		return b.ForEach(func(k, v []byte) error {
			var status types.WorkerStatus
			if err := json.Unmarshal(v, &status); err != nil {
				return err
			}
			statuses = append(statuses, &status)
			return nil
		})
	})
	return statuses, err
}

// JobAssignments

func (s *BoltStore) CreateAssignment(assignment *types.JobAssignment) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketAssignments)
		data, err := json.Marshal(assignment)
		if err != nil {
			return err
		}
		return b.Put([]byte(assignment.ID), data)
	})
}

func (s *BoltStore) GetAssignment(id string) (*types.JobAssignment, error) {
	var assignment types.JobAssignment
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketAssignments)
		data := b.Get([]byte(id))
		if data == nil {
			return fmt.Errorf("assignment not found: %s", id)
		}
		return json.Unmarshal(data, &assignment)
	})
	return &assignment, err
}

func (s *BoltStore) ListAssignmentsByJob(jobID string) ([]*types.JobAssignment, error) {
	var assignments []*types.JobAssignment
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketAssignments)
		return b.ForEach(func(k, v []byte) error {
			var assignment types.JobAssignment
			if err := json.Unmarshal(v, &assignment); err != nil {
				return err
			}
			if assignment.JobID == jobID {
				assignments = append(assignments, &assignment)
			}
			return nil
		})
	})
	return assignments, err
}

func (s *BoltStore) ListActiveAssignments() ([]*types.JobAssignment, error) {
	var assignments []*types.JobAssignment
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketAssignments)
		return b.ForEach(func(k, v []byte) error {
			var assignment types.JobAssignment
			if err := json.Unmarshal(v, &assignment); err != nil {
				return err
			}
			if assignment.Active() {
				assignments = append(assignments, &assignment)
			}
			return nil
		})
	})
	return assignments, err
}

func (s *BoltStore) UpdateAssignment(assignment *types.JobAssignment) error {
	return s.CreateAssignment(assignment)
}

// JobResults

func (s *BoltStore) CreateResult(result *types.JobResult) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketResults)
		data, err := json.Marshal(result)
		if err != nil {
			return err
		}
		return b.Put([]byte(result.ID), data)
	})
}

func (s *BoltStore) GetResultByJob(jobID string) (*types.JobResult, error) {
	var found *types.JobResult
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketResults)
		return b.ForEach(func(k, v []byte) error {
			var result types.JobResult
			if err := json.Unmarshal(v, &result); err != nil {
				return err
			}
			if result.JobID == jobID {
				found = &result
			}
			return nil
		})
	})
	if err == nil && found == nil {
		return nil, fmt.Errorf("result not found for job: %s", jobID)
	}
	return found, err
}

// JobMetrics

func metricKey(jobID, workerID string) []byte {
	return []byte(jobID + ":" + workerID)
}

func (s *BoltStore) UpsertMetric(metric *types.JobMetric) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketMetrics)
		data, err := json.Marshal(metric)
		if err != nil {
			return err
		}
		return b.Put(metricKey(metric.JobID, metric.WorkerID), data)
	})
}

func (s *BoltStore) GetMetric(jobID, workerID string) (*types.JobMetric, error) {
	var metric types.JobMetric
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketMetrics)
		data := b.Get(metricKey(jobID, workerID))
		if data == nil {
			return fmt.Errorf("metric not found for job %s worker %s", jobID, workerID)
		}
		return json.Unmarshal(data, &metric)
	})
	return &metric, err
}

// Logs

func (s *BoltStore) CreateLogEntry(entry *types.DBLogEntry) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketLogs)
		data, err := json.Marshal(entry)
		if err != nil {
			return err
		}
		return b.Put([]byte(entry.ID), data)
	})
}

func (s *BoltStore) ListExpiredLogEntries(before int64) ([]*types.DBLogEntry, error) {
	var expired []*types.DBLogEntry
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketLogs)
		return b.ForEach(func(k, v []byte) error {
			var entry types.DBLogEntry
			if err := json.Unmarshal(v, &entry); err != nil {
				return err
			}
			if entry.ExpiresAt.Unix() < before {
				expired = append(expired, &entry)
			}
			return nil
		})
	})
	return expired, err
}

func (s *BoltStore) DeleteLogEntry(id string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketLogs)
		return b.Delete([]byte(id))
	})
}

// ArchiveJob moves a job and its dependent rows (assignments, result,
// metrics) into the archive bucket as one JSON blob and removes them
// from their live buckets, all inside a single transaction so the
// sweep is all-or-nothing per job.
func (s *BoltStore) ArchiveJob(jobID string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		jobs := tx.Bucket(bucketJobs)
		jobData := jobs.Get([]byte(jobID))
		if jobData == nil {
			return fmt.Errorf("job not found: %s", jobID)
		}

		var job types.Job
		if err := json.Unmarshal(jobData, &job); err != nil {
			return err
		}

		assignmentsBucket := tx.Bucket(bucketAssignments)
		var assignments []*types.JobAssignment
		if err := assignmentsBucket.ForEach(func(k, v []byte) error {
			var a types.JobAssignment
			if err := json.Unmarshal(v, &a); err != nil {
				return err
			}
			if a.JobID == jobID {
				assignments = append(assignments, &a)
			}
			return nil
		}); err != nil {
			return err
		}

		resultsBucket := tx.Bucket(bucketResults)
		var result *types.JobResult
		var resultKey []byte
		if err := resultsBucket.ForEach(func(k, v []byte) error {
			var r types.JobResult
			if err := json.Unmarshal(v, &r); err != nil {
				return err
			}
			if r.JobID == jobID {
				result = &r
				resultKey = append([]byte(nil), k...)
			}
			return nil
		}); err != nil {
			return err
		}

		metricsBucket := tx.Bucket(bucketMetrics)
		var jobMetrics []*types.JobMetric
		var metricKeys [][]byte
		if err := metricsBucket.ForEach(func(k, v []byte) error {
			var m types.JobMetric
			if err := json.Unmarshal(v, &m); err != nil {
				return err
			}
			if m.JobID == jobID {
				jobMetrics = append(jobMetrics, &m)
				metricKeys = append(metricKeys, append([]byte(nil), k...))
			}
			return nil
		}); err != nil {
			return err
		}

		bundle := struct {
			Job         types.Job              `json:"job"`
			Assignments []*types.JobAssignment `json:"assignments"`
			Result      *types.JobResult       `json:"result,omitempty"`
			Metrics     []*types.JobMetric     `json:"metrics,omitempty"`
		}{Job: job, Assignments: assignments, Result: result, Metrics: jobMetrics}

		data, err := json.Marshal(bundle)
		if err != nil {
			return err
		}

		archive := tx.Bucket(bucketArchive)
		if err := archive.Put([]byte(jobID), data); err != nil {
			return err
		}

		if err := jobs.Delete([]byte(jobID)); err != nil {
			return err
		}
		for _, a := range assignments {
			if err := assignmentsBucket.Delete([]byte(a.ID)); err != nil {
				return err
			}
		}
		if resultKey != nil {
			if err := resultsBucket.Delete(resultKey); err != nil {
				return err
			}
		}
		for _, k := range metricKeys {
			if err := metricsBucket.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
}
