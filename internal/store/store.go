package store

import (
	"sort"
	"strings"
	"sync"
	"time"

	"mediafetch/internal/domain"
)

// Store is the in-memory job registry. Records are held by value: Put and
// Update replace the whole record under the write lock, so readers always
// see either the previous or the next version of a job, never a mix.
type Store struct {
	mu   sync.RWMutex
	jobs map[string]domain.Job
}

// New creates an empty store. The instance is injected wherever jobs are
// read or written; there is no package-level registry.
func New() *Store {
	return &Store{jobs: make(map[string]domain.Job)}
}

// Put inserts or replaces a job record.
func (s *Store) Put(job domain.Job) {
	s.mu.Lock()
	s.jobs[job.ID] = job
	s.mu.Unlock()
}

// Get returns the job with the exact id.
func (s *Store) Get(jobID string) (domain.Job, bool) {
	s.mu.RLock()
	job, ok := s.jobs[jobID]
	s.mu.RUnlock()
	return job, ok
}

// Update applies fn to a copy of the record and stores the result. Returns
// the updated record. Mutations never escape the write lock, so pollers
// reading concurrently observe complete records only.
func (s *Store) Update(jobID string, fn func(*domain.Job)) (domain.Job, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return domain.Job{}, false
	}
	fn(&job)
	job.UpdatedAt = time.Now()
	s.jobs[jobID] = job
	return job, true
}

// Resolve locates a job by any of the three addressing modes callers use:
// the full job id, the bare video id (matched as a key prefix), or a video
// id that no longer appears in any key (matched against the record field).
// First match wins; a miss is domain.ErrNotFound.
func (s *Store) Resolve(id string) (domain.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if job, ok := s.jobs[id]; ok {
		return job, nil
	}

	prefix := id + "_"
	var best domain.Job
	found := false
	for key, job := range s.jobs {
		if strings.HasPrefix(key, prefix) && (!found || job.CreatedAt.After(best.CreatedAt)) {
			best, found = job, true
		}
	}
	if found {
		return best, nil
	}

	for _, job := range s.jobs {
		if job.VideoID == id && (!found || job.CreatedAt.After(best.CreatedAt)) {
			best, found = job, true
		}
	}
	if found {
		return best, nil
	}
	return domain.Job{}, domain.ErrNotFound
}

// FindByVideoID returns the most recent job for the given video id.
func (s *Store) FindByVideoID(videoID string) (domain.Job, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var best domain.Job
	found := false
	for _, job := range s.jobs {
		if job.VideoID == videoID && (!found || job.CreatedAt.After(best.CreatedAt)) {
			best, found = job, true
		}
	}
	return best, found
}

// List returns all records, newest first.
func (s *Store) List() []domain.Job {
	s.mu.RLock()
	out := make([]domain.Job, 0, len(s.jobs))
	for _, job := range s.jobs {
		out = append(out, job)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// DeleteByVideoID removes every record sharing the video id and reports how
// many were dropped. Deletion is bulk by design: stale retries of the same
// video must not survive a cleanup.
func (s *Store) DeleteByVideoID(videoID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for key, job := range s.jobs {
		if job.VideoID == videoID {
			delete(s.jobs, key)
			n++
		}
	}
	return n
}
