// Package types holds the entities shared by every module of the Core:
// jobs, workers, worker liveness, assignments, results, metrics, and log
// entries. The repository's persistence layer and HTTP façade are not
// part of this package; they consume these types through pkg/storage.
package types

import (
	"time"

	"github.com/Vickeviking/SwarmSync-sub000/pkg/corerr"
)

// JobState is the finite set of states a Job can occupy.
type JobState string

const (
	JobSubmitted JobState = "submitted"
	JobQueued    JobState = "queued"
	JobRunning   JobState = "running"
	JobCompleted JobState = "completed"
	JobFailed    JobState = "failed"
)

// Terminal reports whether the state is absorbing.
func (s JobState) Terminal() bool {
	return s == JobCompleted || s == JobFailed
}

// ImageFormat describes how Job.ImageURL should be interpreted.
type ImageFormat string

const (
	ImageTarball        ImageFormat = "tarball"
	ImageDockerRegistry ImageFormat = "docker_registry"
)

// OutputType selects how a Job's result is captured.
type OutputType string

const (
	OutputStdout OutputType = "stdout"
	OutputFiles  OutputType = "files"
)

// ScheduleType selects whether a Job runs once or on a cron schedule.
type ScheduleType string

const (
	ScheduleOnce ScheduleType = "once"
	ScheduleCron ScheduleType = "cron"
)

// Job is a user-submitted unit of work.
type Job struct {
	ID             string
	UserID         string
	JobName        string
	ImageURL       string
	ImageFormat    ImageFormat
	DockerFlags    []string
	OutputType     OutputType
	OutputPaths    []string
	ScheduleType   ScheduleType
	CronExpression string
	Notes          string
	State          JobState
	ErrorMessage   string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Validate checks the invariants from the data model: a Cron job must
// carry an expression, and Files output must name at least one path.
func (j *Job) Validate() error {
	if j.ScheduleType == ScheduleCron && j.CronExpression == "" {
		return &corerr.ValidationError{Field: "cron_expression", Reason: "required when schedule_type is Cron"}
	}
	if j.OutputType == OutputFiles && len(j.OutputPaths) == 0 {
		return &corerr.ValidationError{Field: "output_paths", Reason: "required when output_type is Files"}
	}
	return nil
}

// Worker is a registered execution agent.
type Worker struct {
	ID            string
	UserID        string
	Label         string
	IPAddress     string
	Hostname      string
	OS            string
	Arch          string
	DockerVersion string
	Tags          []string
	CreatedAt     time.Time
	LastSeenAt    *time.Time
}

// WorkerStatusEnum is the Dispatcher-owned liveness state machine.
type WorkerStatusEnum string

const (
	WorkerOffline     WorkerStatusEnum = "offline"
	WorkerIdle        WorkerStatusEnum = "idle"
	WorkerBusy        WorkerStatusEnum = "busy"
	WorkerUnreachable WorkerStatusEnum = "unreachable"
)

// WorkerStatus is the one-per-Worker liveness and assignment record.
type WorkerStatus struct {
	WorkerID      string
	Status        WorkerStatusEnum
	LastHeartbeat *time.Time
	ActiveJobID   *string
	UptimeSec     *int64
	LoadAvg       *float64
	LastError     string
	UpdatedAt     time.Time
}

// JobAssignment binds a Job to the Worker executing it for one attempt.
type JobAssignment struct {
	ID         string
	JobID      string
	WorkerID   string
	AssignedAt time.Time
	StartedAt  *time.Time
	FinishedAt *time.Time
}

// Active reports whether this assignment is still the live attempt.
func (a *JobAssignment) Active() bool {
	return a.FinishedAt == nil
}

// JobResult is the captured output of a completed or failed Job.
type JobResult struct {
	ID      string
	JobID   string
	Stdout  string
	Files   map[string][]byte
	SavedAt time.Time
}

// JobMetric is the per-execution telemetry for a Job/Worker pair.
// Upsert key: (JobID, WorkerID).
type JobMetric struct {
	ID          string
	JobID       string
	WorkerID    string
	DurationSec *float64
	CPUUsagePct *float64
	MemUsageMB  *float64
	ExitCode    *int
	Timestamp   time.Time
}

// LogLevel is the severity of a LogEntry; it determines TTL (see
// TTL).
type LogLevel string

const (
	LogInfo    LogLevel = "info"
	LogSuccess LogLevel = "success"
	LogWarning LogLevel = "warning"
	LogError   LogLevel = "error"
	LogFatal   LogLevel = "fatal"
)

// ModuleName identifies the Core module that emitted a LogEntry.
type ModuleName string

const (
	ModuleDispatcher  ModuleName = "dispatcher"
	ModuleHarvester   ModuleName = "harvester"
	ModuleHibernator  ModuleName = "hibernator"
	ModuleReceiver    ModuleName = "receiver"
	ModuleScheduler   ModuleName = "scheduler"
	ModuleTaskArchive ModuleName = "task_archive"
)

// LogAction classifies a LogEntry for downstream querying.
type LogAction string

const (
	ActionClientConnected LogAction = "client_connected"
	ActionJobSubmitted    LogAction = "job_submitted"
	ActionJobCompleted    LogAction = "job_completed"
	ActionSystemStarted   LogAction = "system_started"
	ActionSystemShutdown  LogAction = "system_shutdown"
	ActionCustom          LogAction = "custom"
)

// ClientConnectedPayload is the optional payload for a client-connected log.
type ClientConnectedPayload struct {
	WorkerID string
	IP       string
}

// JobSubmittedPayload is the optional payload for a job-submitted log.
type JobSubmittedPayload struct {
	JobID   string
	JobName string
}

// JobCompletedPayload is the optional payload for a job-completed log.
type JobCompletedPayload struct {
	JobID    string
	WorkerID string
	ExitCode int
}

// LogEntry is the in-memory representation buffered by the Logger
// module before it is flushed to the store.
type LogEntry struct {
	ID              string
	Level           LogLevel
	Module          ModuleName
	Action          LogAction
	CreatedAt       time.Time
	ExpiresAt       time.Time
	ClientConnected *ClientConnectedPayload
	JobSubmitted    *JobSubmittedPayload
	JobCompleted    *JobCompletedPayload
	CustomMsg       string
}

// DBLogEntry is the flattened, store-ready projection of a LogEntry.
// Conversion between the two must round-trip (see LogEntry.ToDB and FromDB).
type DBLogEntry struct {
	ID        string
	Level     LogLevel
	Module    ModuleName
	Action    LogAction
	CreatedAt time.Time
	ExpiresAt time.Time

	HasClientConnected      bool
	ClientConnectedWorkerID string
	ClientConnectedIP       string

	HasJobSubmitted     bool
	JobSubmittedJobID   string
	JobSubmittedJobName string

	HasJobCompleted      bool
	JobCompletedJobID    string
	JobCompletedWorkerID string
	JobCompletedExitCode int

	CustomMsg string
}

// ToDB flattens a LogEntry into its store-ready projection.
func (e *LogEntry) ToDB() *DBLogEntry {
	db := &DBLogEntry{
		ID:        e.ID,
		Level:     e.Level,
		Module:    e.Module,
		Action:    e.Action,
		CreatedAt: e.CreatedAt,
		ExpiresAt: e.ExpiresAt,
		CustomMsg: e.CustomMsg,
	}
	if e.ClientConnected != nil {
		db.HasClientConnected = true
		db.ClientConnectedWorkerID = e.ClientConnected.WorkerID
		db.ClientConnectedIP = e.ClientConnected.IP
	}
	if e.JobSubmitted != nil {
		db.HasJobSubmitted = true
		db.JobSubmittedJobID = e.JobSubmitted.JobID
		db.JobSubmittedJobName = e.JobSubmitted.JobName
	}
	if e.JobCompleted != nil {
		db.HasJobCompleted = true
		db.JobCompletedJobID = e.JobCompleted.JobID
		db.JobCompletedWorkerID = e.JobCompleted.WorkerID
		db.JobCompletedExitCode = e.JobCompleted.ExitCode
	}
	return db
}

// FromDB hydrates a LogEntry from its store-ready projection.
func FromDB(db *DBLogEntry) *LogEntry {
	e := &LogEntry{
		ID:        db.ID,
		Level:     db.Level,
		Module:    db.Module,
		Action:    db.Action,
		CreatedAt: db.CreatedAt,
		ExpiresAt: db.ExpiresAt,
		CustomMsg: db.CustomMsg,
	}
	if db.HasClientConnected {
		e.ClientConnected = &ClientConnectedPayload{WorkerID: db.ClientConnectedWorkerID, IP: db.ClientConnectedIP}
	}
	if db.HasJobSubmitted {
		e.JobSubmitted = &JobSubmittedPayload{JobID: db.JobSubmittedJobID, JobName: db.JobSubmittedJobName}
	}
	if db.HasJobCompleted {
		e.JobCompleted = &JobCompletedPayload{
			JobID:    db.JobCompletedJobID,
			WorkerID: db.JobCompletedWorkerID,
			ExitCode: db.JobCompletedExitCode,
		}
	}
	return e
}

// TTL returns the retention duration for a given log level (spec §3).
func TTL(level LogLevel) time.Duration {
	switch level {
	case LogInfo:
		return 5 * time.Minute
	case LogSuccess:
		return 24 * time.Hour
	case LogWarning:
		return 3 * 24 * time.Hour
	case LogError, LogFatal:
		return 7 * 24 * time.Hour
	default:
		return 5 * time.Minute
	}
}
