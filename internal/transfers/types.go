package transfers

import (
	"context"
	"errors"
	"time"

	"github.com/dvloznov/nova-bank/internal/domain"
	"github.com/shopspring/decimal"
)

// ErrJobNotFound is returned by Store.GetJob for unknown ids.
var ErrJobNotFound = errors.New("transfer job not found")

// ErrQueueClosed is returned when publishing to a stopped queue.
var ErrQueueClosed = errors.New("transfer queue is closed")

// JobStatus represents the current status of a transfer job.
type JobStatus string

const (
	// JobStatusPending indicates the transfer is waiting to be processed.
	JobStatusPending JobStatus = "pending"
	// JobStatusRunning indicates the transfer is being processed.
	JobStatusRunning JobStatus = "running"
	// JobStatusCompleted indicates the transfer was applied to the account.
	JobStatusCompleted JobStatus = "completed"
	// JobStatusFailed indicates the transfer was rejected or abandoned.
	JobStatusFailed JobStatus = "failed"
)

// Job is one submitted transfer.
type Job struct {
	JobID     string          `json:"job_id"`
	Recipient string          `json:"recipient"`
	Amount    decimal.Decimal `json:"amount"`
	Note      string          `json:"note,omitempty"`
	Status    JobStatus       `json:"status"`

	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// Error is set when Status is failed.
	Error string `json:"error,omitempty"`
	// TransactionID is set when Status is completed.
	TransactionID string `json:"transaction_id,omitempty"`
}

// Done reports whether the job reached a final status.
func (j *Job) Done() bool {
	return j.Status == JobStatusCompleted || j.Status == JobStatusFailed
}

// Handler applies a transfer job and returns the resulting ledger entry.
type Handler func(ctx context.Context, job *Job) (domain.Transaction, error)

// Publisher enqueues transfers.
type Publisher interface {
	Publish(ctx context.Context, job *Job) (*Job, error)
	Close() error
}

// Consumer runs queued transfers.
type Consumer interface {
	// Start begins processing jobs with handler.
	Start(ctx context.Context, handler Handler) error

	// Stop stops processing and waits for the in-flight job to finish.
	Stop(ctx context.Context) error
}

// Store records transfer jobs.
type Store interface {
	SaveJob(ctx context.Context, job *Job) error
	GetJob(ctx context.Context, jobID string) (*Job, error)
	ListJobs(ctx context.Context, filter JobFilter) ([]*Job, error)
}

// JobFilter narrows ListJobs. Zero values match everything.
type JobFilter struct {
	Status JobStatus
	Limit  int
	Offset int
}
