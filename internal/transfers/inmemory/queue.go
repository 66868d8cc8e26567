package inmemory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dvloznov/nova-bank/internal/logger"
	"github.com/dvloznov/nova-bank/internal/transfers"
	"github.com/google/uuid"
)

// Queue is a channel-backed transfer queue with a single worker, so
// transfers are applied strictly in submission order. Failed transfers are
// never retried: a retry after an ambiguous failure could send money twice.
type Queue struct {
	jobChan   chan *transfers.Job
	closeChan chan struct{}
	wg        sync.WaitGroup
	mu        sync.RWMutex
	store     transfers.Store
	now       func() time.Time
	closed    bool
	started   bool
}

// NewQueue creates a queue. bufferSize is how many transfers may wait before
// Publish blocks.
func NewQueue(bufferSize int, store transfers.Store) *Queue {
	return &Queue{
		jobChan:   make(chan *transfers.Job, bufferSize),
		closeChan: make(chan struct{}),
		store:     store,
		now:       time.Now,
	}
}

// Publish records the job as pending and enqueues it. The returned job is a
// snapshot taken at enqueue time.
func (q *Queue) Publish(ctx context.Context, job *transfers.Job) (*transfers.Job, error) {
	q.mu.RLock()
	closed := q.closed
	q.mu.RUnlock()
	if closed {
		return nil, transfers.ErrQueueClosed
	}

	queued := copyJob(job)
	if queued.JobID == "" {
		queued.JobID = uuid.NewString()
	}
	queued.Status = transfers.JobStatusPending
	if queued.CreatedAt.IsZero() {
		queued.CreatedAt = q.now()
	}

	if err := q.store.SaveJob(ctx, queued); err != nil {
		return nil, fmt.Errorf("failed to save job: %w", err)
	}

	snapshot := copyJob(queued)
	select {
	case q.jobChan <- queued:
		return snapshot, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-q.closeChan:
		return nil, transfers.ErrQueueClosed
	}
}

// Start launches the worker.
func (q *Queue) Start(ctx context.Context, handler transfers.Handler) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return transfers.ErrQueueClosed
	}
	if q.started {
		return fmt.Errorf("transfer queue already started")
	}
	q.started = true

	q.wg.Add(1)
	go q.worker(ctx, handler)
	return nil
}

func (q *Queue) worker(ctx context.Context, handler transfers.Handler) {
	defer q.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-q.closeChan:
			return
		case job := <-q.jobChan:
			q.process(ctx, job, handler)
		}
	}
}

func (q *Queue) process(ctx context.Context, job *transfers.Job, handler transfers.Handler) {
	log := logger.FromContext(ctx).With().Str("job_id", job.JobID).Logger()

	started := q.now()
	job.Status = transfers.JobStatusRunning
	job.StartedAt = &started
	q.save(ctx, job)

	tx, err := handler(ctx, job)

	completed := q.now()
	job.CompletedAt = &completed
	if err != nil {
		job.Status = transfers.JobStatusFailed
		job.Error = err.Error()
		log.Warn().Err(err).Msg("Transfer failed")
	} else {
		job.Status = transfers.JobStatusCompleted
		job.TransactionID = tx.ID
		log.Info().Str("transaction_id", tx.ID).Msg("Transfer job completed")
	}
	q.save(context.WithoutCancel(ctx), job)
}

func (q *Queue) save(ctx context.Context, job *transfers.Job) {
	if err := q.store.SaveJob(ctx, job); err != nil {
		log := logger.FromContext(ctx)
		log.Error().Err(err).Str("job_id", job.JobID).Msg("Failed to save transfer job")
	}
}

// Stop closes the queue and waits for the in-flight transfer. Jobs still
// queued stay pending.
func (q *Queue) Stop(ctx context.Context) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	close(q.closeChan)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close implements transfers.Publisher.
func (q *Queue) Close() error {
	return q.Stop(context.Background())
}

var (
	_ transfers.Publisher = (*Queue)(nil)
	_ transfers.Consumer  = (*Queue)(nil)
)
