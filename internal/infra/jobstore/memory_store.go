package jobstore

import (
	"context"
	"sync"
	"time"

	"github.com/yanqian/eventradar/internal/domain/search"
	"github.com/yanqian/eventradar/pkg/util"
)

type jobRecord struct {
	job       search.Job
	expiresAt time.Time
}

// MemoryStore keeps jobs in process memory. Expired jobs are swept lazily on
// every access.
type MemoryStore struct {
	mu   sync.Mutex
	jobs map[string]jobRecord
	now  util.Clock
}

// NewMemoryStore constructs an in-memory job store.
func NewMemoryStore(clock util.Clock) *MemoryStore {
	return &MemoryStore{jobs: make(map[string]jobRecord), now: clock}
}

// Save implements search.JobStore.
func (s *MemoryStore) Save(_ context.Context, job search.Job, ttl time.Duration) error {
	now := s.now.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweep(now)
	exp := time.Time{}
	if ttl > 0 {
		exp = now.Add(ttl)
	}
	s.jobs[job.ID] = jobRecord{job: job, expiresAt: exp}
	return nil
}

// Get implements search.JobStore.
func (s *MemoryStore) Get(_ context.Context, id string) (search.Job, bool, error) {
	now := s.now.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweep(now)
	record, ok := s.jobs[id]
	if !ok {
		return search.Job{}, false, nil
	}
	return record.job, true, nil
}

// Len reports how many unexpired jobs are held.
func (s *MemoryStore) Len() int {
	now := s.now.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweep(now)
	return len(s.jobs)
}

func (s *MemoryStore) sweep(now time.Time) {
	for id, record := range s.jobs {
		if !record.expiresAt.IsZero() && !now.Before(record.expiresAt) {
			delete(s.jobs, id)
		}
	}
}

var _ search.JobStore = (*MemoryStore)(nil)
