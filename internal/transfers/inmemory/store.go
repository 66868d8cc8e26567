package inmemory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/dvloznov/nova-bank/internal/transfers"
)

// Store is an in-memory transfers.Store. It is safe for concurrent use and
// never hands out pointers to its own records.
type Store struct {
	mu   sync.RWMutex
	jobs map[string]*transfers.Job
}

// NewStore creates an empty job store.
func NewStore() *Store {
	return &Store{
		jobs: make(map[string]*transfers.Job),
	}
}

// SaveJob implements transfers.Store.
func (s *Store) SaveJob(ctx context.Context, job *transfers.Job) error {
	if job.JobID == "" {
		return fmt.Errorf("job ID is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.jobs[job.JobID] = copyJob(job)
	return nil
}

// GetJob implements transfers.Store.
func (s *Store) GetJob(ctx context.Context, jobID string) (*transfers.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, exists := s.jobs[jobID]
	if !exists {
		return nil, fmt.Errorf("%w: %s", transfers.ErrJobNotFound, jobID)
	}
	return copyJob(job), nil
}

// ListJobs implements transfers.Store. Jobs are returned newest first.
func (s *Store) ListJobs(ctx context.Context, filter transfers.JobFilter) ([]*transfers.Job, error) {
	s.mu.RLock()
	result := make([]*transfers.Job, 0, len(s.jobs))
	for _, job := range s.jobs {
		if filter.Status != "" && job.Status != filter.Status {
			continue
		}
		result = append(result, copyJob(job))
	}
	s.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].JobID < result[j].JobID
		}
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})

	if filter.Offset > 0 {
		if filter.Offset >= len(result) {
			return []*transfers.Job{}, nil
		}
		result = result[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(result) {
		result = result[:filter.Limit]
	}
	return result, nil
}

func copyJob(job *transfers.Job) *transfers.Job {
	c := *job
	if job.StartedAt != nil {
		t := *job.StartedAt
		c.StartedAt = &t
	}
	if job.CompletedAt != nil {
		t := *job.CompletedAt
		c.CompletedAt = &t
	}
	return &c
}

var _ transfers.Store = (*Store)(nil)
