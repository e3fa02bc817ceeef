package jobs

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// MemoryStore is a concurrency-safe, process-local Store. Finished tasks are
// kept for retention, or forever when retention is zero.
type MemoryStore struct {
	mu        sync.Mutex
	tasks     map[string]*Task
	retention time.Duration
	now       func() time.Time
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore(retention time.Duration) *MemoryStore {
	return &MemoryStore{
		tasks:     make(map[string]*Task),
		retention: retention,
		now:       time.Now,
	}
}

// Admit registers task as running unless another task is running.
func (s *MemoryStore) Admit(_ context.Context, task *Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sweepLocked()
	for _, t := range s.tasks {
		if t.Status == StatusRunning {
			return ErrConflict
		}
	}
	if _, exists := s.tasks[task.ID]; exists {
		return fmt.Errorf("task %s already registered", task.ID)
	}
	task.Status = StatusRunning
	if task.StartedAt.IsZero() {
		task.StartedAt = s.now().UTC()
	}
	s.tasks[task.ID] = cloneTask(task)
	return nil
}

// Get returns a copy of the task.
func (s *MemoryStore) Get(_ context.Context, id string) (*Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sweepLocked()
	t, ok := s.tasks[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneTask(t), nil
}

// Set replaces an existing task.
func (s *MemoryStore) Set(_ context.Context, task *Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tasks[task.ID]; !ok {
		return ErrNotFound
	}
	s.tasks[task.ID] = cloneTask(task)
	return nil
}

// List returns every retained task, oldest first.
func (s *MemoryStore) List(_ context.Context) ([]*Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sweepLocked()
	out := make([]*Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		out = append(out, cloneTask(t))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.Before(out[j].StartedAt) })
	return out, nil
}

func (s *MemoryStore) sweepLocked() {
	if s.retention <= 0 {
		return
	}
	cutoff := s.now().Add(-s.retention)
	for id, t := range s.tasks {
		if t.Terminal() && t.FinishedAt != nil && t.FinishedAt.Before(cutoff) {
			delete(s.tasks, id)
		}
	}
}
