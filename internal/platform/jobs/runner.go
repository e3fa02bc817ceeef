package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// KeepAliveInterval is how often Stream writes a keep-alive frame.
const KeepAliveInterval = 500 * time.Millisecond

// Func is the body of a task. Its result is JSON-encoded on success.
type Func func(ctx context.Context) (any, error)

// PanicError wraps a recovered panic from a task body.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string { return fmt.Sprintf("task panicked: %v", e.Value) }

type outcome struct {
	payload json.RawMessage
	err     error
}

// Runner executes one task in the background. A Runner is single-use: Start
// succeeds once, and its outcome is delivered to one Stream or Wait call.
type Runner struct {
	store     Store
	logger    zerolog.Logger
	name      string
	keepAlive time.Duration

	mu        sync.Mutex
	started   bool
	delivered bool
	id        string
	done      chan struct{}
	out       outcome
}

// NewRunner creates a Runner that records its task in store under name.
func NewRunner(store Store, logger zerolog.Logger, name string) *Runner {
	return &Runner{
		store:     store,
		logger:    logger,
		name:      name,
		keepAlive: KeepAliveInterval,
		done:      make(chan struct{}),
	}
}

// ID returns the task id once started.
func (r *Runner) ID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.id
}

// Start admits a new task and runs fn on its own goroutine. fn keeps running
// after ctx is cancelled; ctx only supplies values such as the request id.
// Returns ErrConflict if another task is running and ErrAlreadyRunning if
// this Runner was started before.
func (r *Runner) Start(ctx context.Context, fn Func) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started {
		return "", ErrAlreadyRunning
	}

	task := &Task{ID: uuid.NewString(), Name: r.name, Status: StatusRunning, StartedAt: time.Now().UTC()}
	if err := r.store.Admit(ctx, task); err != nil {
		return "", err
	}
	r.started = true
	r.id = task.ID

	logger := r.logger.With().Str("task_id", task.ID).Str("task", r.name).Logger()
	runCtx := logger.WithContext(context.WithoutCancel(ctx))
	logger.Info().Msg("task started")

	go r.run(runCtx, logger, task, fn)
	return task.ID, nil
}

func (r *Runner) run(ctx context.Context, logger zerolog.Logger, task *Task, fn Func) {
	start := time.Now()
	out := execute(ctx, fn)

	finished := time.Now().UTC()
	task.FinishedAt = &finished
	elapsed := time.Since(start).Seconds()
	if out.err != nil {
		task.Status = StatusError
		task.Error = &TaskError{Classification: Classify(out.err), Message: out.err.Error()}
		ev := logger.Error().Err(out.err).Str("classification", task.Error.Classification).Float64("elapsed", elapsed)
		if pe, ok := out.err.(*PanicError); ok {
			ev = ev.Bytes("stack", pe.Stack)
		}
		ev.Msg("task failed")
	} else {
		task.Status = StatusComplete
		task.Result = out.payload
		logger.Info().Float64("elapsed", elapsed).Msg("task complete")
	}

	if err := r.store.Set(ctx, task); err != nil {
		logger.Error().Err(err).Msg("failed to record task outcome")
	}

	r.mu.Lock()
	r.out = out
	r.mu.Unlock()
	close(r.done)
}

func execute(ctx context.Context, fn Func) (out outcome) {
	defer func() {
		if v := recover(); v != nil {
			out = outcome{err: &PanicError{Value: v, Stack: debug.Stack()}}
		}
	}()
	res, err := fn(ctx)
	if err != nil {
		return outcome{err: err}
	}
	payload, err := json.Marshal(res)
	if err != nil {
		return outcome{err: fmt.Errorf("encode task result: %w", err)}
	}
	return outcome{payload: payload}
}

func (r *Runner) claim() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.started || r.delivered {
		return ErrNotRunning
	}
	r.delivered = true
	return nil
}

// Stream writes a "\n" keep-alive frame to w every interval until the task
// finishes, then writes the encoded result as the final frame. A task failure
// is returned instead of written. flush may be nil.
func (r *Runner) Stream(ctx context.Context, w io.Writer, flush func()) error {
	if err := r.claim(); err != nil {
		return err
	}

	ticker := time.NewTicker(r.keepAlive)
	defer ticker.Stop()
	for {
		select {
		case <-r.done:
			if r.out.err != nil {
				return r.out.err
			}
			if _, err := w.Write(r.out.payload); err != nil {
				return err
			}
			if flush != nil {
				flush()
			}
			return nil
		case <-ticker.C:
			if _, err := io.WriteString(w, "\n"); err != nil {
				return err
			}
			if flush != nil {
				flush()
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Wait blocks until the task finishes and returns its encoded result.
func (r *Runner) Wait(ctx context.Context) (json.RawMessage, error) {
	if err := r.claim(); err != nil {
		return nil, err
	}
	select {
	case <-r.done:
		return r.out.payload, r.out.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
