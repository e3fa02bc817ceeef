// Package jobs runs long reset and populate operations in the background and
// tracks their state in a shared task registry.
package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// Status is the lifecycle state of a task.
type Status string

const (
	StatusRunning  Status = "running"
	StatusComplete Status = "complete"
	StatusError    Status = "error"
)

// Error classifications reported for failed tasks.
const (
	ClassValidation         = "validation"
	ClassServiceUnavailable = "service_unavailable"
	ClassInternal           = "internal"
)

var (
	// ErrConflict is returned when a task is admitted while another is running.
	ErrConflict = errors.New("a task is already running")
	// ErrNotFound is returned for an unknown task id.
	ErrNotFound = errors.New("task not found")
	// ErrAlreadyRunning is returned when a Runner is started twice.
	ErrAlreadyRunning = errors.New("runner already started")
	// ErrNotRunning is returned when a Runner is awaited before it starts or
	// after its result has been consumed.
	ErrNotRunning = errors.New("runner is not running")
)

// Task is one registry entry.
type Task struct {
	ID         string          `json:"uuid"`
	Name       string          `json:"name"`
	Status     Status          `json:"status"`
	Error      *TaskError      `json:"error,omitempty"`
	Result     json.RawMessage `json:"result,omitempty"`
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt *time.Time      `json:"finished_at,omitempty"`
}

// Terminal reports whether the task has finished.
func (t *Task) Terminal() bool {
	return t.Status == StatusComplete || t.Status == StatusError
}

// TaskError is the recorded failure of a task.
type TaskError struct {
	Classification string `json:"classification"`
	Message        string `json:"message"`
}

// Classifier is implemented by errors that know their classification.
type Classifier interface {
	Classification() string
}

// Classify returns the classification of err, or ClassInternal.
func Classify(err error) string {
	var c Classifier
	if errors.As(err, &c) {
		return c.Classification()
	}
	return ClassInternal
}

// Store is the task registry. Admit registers a running task only if no
// other task is running, as one atomic step.
type Store interface {
	Admit(ctx context.Context, task *Task) error
	Get(ctx context.Context, id string) (*Task, error)
	Set(ctx context.Context, task *Task) error
	List(ctx context.Context) ([]*Task, error)
}

func cloneTask(t *Task) *Task {
	cp := *t
	if t.Error != nil {
		e := *t.Error
		cp.Error = &e
	}
	if t.FinishedAt != nil {
		f := *t.FinishedAt
		cp.FinishedAt = &f
	}
	if t.Result != nil {
		cp.Result = append(json.RawMessage(nil), t.Result...)
	}
	return &cp
}
