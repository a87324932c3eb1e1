// Package jobs defines the background job contracts used by the
// recurring-transaction worker.
package jobs

import (
	"context"
	"time"
)

// JobType represents the type of job to be executed.
type JobType string

const (
	// JobTypeProcessRecurring represents a due recurring transaction
	// that needs a new occurrence materialized.
	JobTypeProcessRecurring JobType = "process_recurring"
)

// JobStatus represents the current status of a job.
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusRetrying  JobStatus = "retrying"
)

// ProcessRecurringJob asks the worker to materialize the next
// occurrence of one recurring transaction.
type ProcessRecurringJob struct {
	// JobID is the unique identifier for this job.
	JobID string `json:"job_id"`

	// TransactionID is the recurring template transaction.
	TransactionID string `json:"transaction_id"`

	// UserID owns the transaction; every store call is scoped to it.
	UserID string `json:"user_id"`

	// DueAt is the occurrence date the scheduler observed. Processing
	// re-checks due-ness against the row, so a stale job is a no-op.
	DueAt time.Time `json:"due_at"`

	Status      JobStatus  `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// Error contains error details if the job failed.
	Error string `json:"error,omitempty"`

	// RetryCount is the number of times this job has been retried.
	RetryCount int `json:"retry_count"`

	// MaxRetries is the maximum number of retries allowed.
	MaxRetries int `json:"max_retries"`
}

// Job is a generic interface for all job types.
type Job interface {
	GetID() string
	GetType() JobType
	GetStatus() JobStatus
}

func (j *ProcessRecurringJob) GetID() string        { return j.JobID }
func (j *ProcessRecurringJob) GetType() JobType     { return JobTypeProcessRecurring }
func (j *ProcessRecurringJob) GetStatus() JobStatus { return j.Status }

// Publisher defines the interface for publishing jobs to a queue.
// This abstraction allows for different queue implementations
// (in-memory, Cloud Tasks, Pub/Sub).
type Publisher interface {
	// PublishProcessRecurring enqueues a recurring-transaction job.
	PublishProcessRecurring(ctx context.Context, job *ProcessRecurringJob) error

	// Close closes the publisher and releases resources.
	Close() error
}

// Consumer defines the interface for consuming jobs from a queue.
type Consumer interface {
	// Start begins consuming jobs from the queue. The handler function
	// is called for each job received.
	Start(ctx context.Context, handler JobHandler) error

	// Stop stops consuming jobs and waits for in-flight jobs to complete.
	Stop(ctx context.Context) error
}

// JobHandler is a function that processes a job. It should return an
// error if the job failed and should be retried.
type JobHandler func(ctx context.Context, job Job) error

// JobStore defines the interface for storing and retrieving job status.
type JobStore interface {
	// SaveJob saves or updates a job's state.
	SaveJob(ctx context.Context, job *ProcessRecurringJob) error

	// GetJob retrieves a job by ID.
	GetJob(ctx context.Context, jobID string) (*ProcessRecurringJob, error)

	// ListJobs retrieves jobs with optional filtering.
	ListJobs(ctx context.Context, filter JobFilter) ([]*ProcessRecurringJob, error)
}

// JobFilter defines filtering criteria for listing jobs.
type JobFilter struct {
	// TransactionID filters jobs by the recurring template they target.
	TransactionID string

	// Status filters jobs by status.
	Status JobStatus

	// Limit limits the number of results.
	Limit int

	// Offset for pagination.
	Offset int
}
