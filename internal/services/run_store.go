package services

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

// RunStatus is the lifecycle state of a report run.
type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
)

// Run is the registry record of one report run.
type Run struct {
	ID          string            `json:"id"`
	Source      string            `json:"source"`
	Status      RunStatus         `json:"status"`
	Dir         string            `json:"-"`
	Files       map[string]string `json:"-"`
	Sections    int               `json:"sections"`
	Warnings    int               `json:"warnings"`
	Error       string            `json:"error,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	CompletedAt time.Time         `json:"completed_at,omitempty"`
}

func (r *Run) finished() bool {
	return r.Status == RunCompleted || r.Status == RunFailed
}

func (r *Run) copy() *Run {
	c := *r
	if r.Files != nil {
		c.Files = make(map[string]string, len(r.Files))
		for k, v := range r.Files {
			c.Files[k] = v
		}
	}
	return &c
}

// RunStore is an in-memory registry of report runs
type RunStore struct {
	mu   sync.RWMutex
	runs map[string]*Run
}

// NewRunStore creates an empty run registry
func NewRunStore() *RunStore {
	return &RunStore{runs: make(map[string]*Run)}
}

// Create registers a new run
func (s *RunStore) Create(run *Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.runs[run.ID]; exists {
		return fmt.Errorf("%w: %s", ErrRunExists, run.ID)
	}

	s.runs[run.ID] = run.copy()
	return nil
}

// Get retrieves a copy of a run by ID
func (s *RunStore) Get(id string) (*Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	run, exists := s.runs[id]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return run.copy(), nil
}

// Update applies fn to the stored run under the write lock
func (s *RunStore) Update(id string, fn func(*Run)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	run, exists := s.runs[id]
	if !exists {
		return fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	fn(run)
	return nil
}

// File returns the path of one generated file of a completed run.
func (s *RunStore) File(id, format string) (string, error) {
	run, err := s.Get(id)
	if err != nil {
		return "", err
	}
	path, ok := run.Files[format]
	if !ok || run.Status != RunCompleted {
		return "", fmt.Errorf("%w: %s/%s", ErrFileMissing, id, format)
	}
	return path, nil
}

// List returns copies of all runs, newest first; limit <= 0 means all.
func (s *RunStore) List(limit int) []*Run {
	s.mu.RLock()
	out := make([]*Run, 0, len(s.runs))
	for _, run := range s.runs {
		out = append(out, run.copy())
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Cleanup forgets finished runs created before now minus olderThan and
// returns them so the caller can remove their files.
func (s *RunStore) Cleanup(olderThan time.Duration) []*Run {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().Add(-olderThan)
	var removed []*Run
	for id, run := range s.runs {
		if run.finished() && run.CreatedAt.Before(cutoff) {
			removed = append(removed, run)
			delete(s.runs, id)
		}
	}
	return removed
}

// Stats counts runs by status
func (s *RunStore) Stats() map[RunStatus]int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := make(map[RunStatus]int, 3)
	for _, run := range s.runs {
		stats[run.Status]++
	}
	return stats
}
