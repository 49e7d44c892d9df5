// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package tasks

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jeranaias/jeeves/internal/ai"
)

var (
	// ErrStopped is returned by Submit after Stop.
	ErrStopped = errors.New("tasks: worker stopped")

	// ErrUnknownTask is returned by Wait for an id the queue does not hold.
	ErrUnknownTask = errors.New("tasks: unknown task")

	// ErrWaitTimeout is returned by Wait when the wait deadline passes. The
	// task itself keeps running.
	ErrWaitTimeout = errors.New("tasks: wait deadline exceeded")

	// ErrCanceled is returned by Wait for a task canceled before it ran.
	ErrCanceled = errors.New("tasks: task canceled")
)

// unboundedBuffer is the pending-channel size when the queue has no limit.
const unboundedBuffer = 1024

// =============================================================================
// WORKER
// =============================================================================

// WorkerConfig configures a Worker.
type WorkerConfig struct {
	// Workers is the number of goroutines calling the provider (default 1).
	Workers int

	// WaitTimeout bounds how long Wait blocks (0 = no bound).
	WaitTimeout time.Duration

	// MaxHistory is the number of finished tasks kept for Get (0 = unlimited).
	MaxHistory int

	// MaxQueueSize is the number of tasks allowed to wait (0 = unlimited).
	MaxQueueSize int
}

// Worker runs provider requests on dedicated goroutines so callers never
// block on a slow native generation.
type Worker struct {
	provider    ai.Provider
	queue       *Queue
	pending     chan *Task
	workers     int
	waitTimeout time.Duration

	wg       sync.WaitGroup
	stop     chan struct{}
	stopOnce sync.Once
	running  atomic.Int32

	// mu orders enqueueing against Stop; stopped is guarded by it.
	mu      sync.Mutex
	stopped bool
}

// NewWorker creates a worker over p. Call Start before submitting.
func NewWorker(p ai.Provider, cfg WorkerConfig) *Worker {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	buf := cfg.MaxQueueSize
	if buf <= 0 {
		buf = unboundedBuffer
	}
	return &Worker{
		provider:    p,
		queue:       NewQueue(cfg.MaxHistory, cfg.MaxQueueSize),
		pending:     make(chan *Task, buf),
		workers:     cfg.Workers,
		waitTimeout: cfg.WaitTimeout,
		stop:        make(chan struct{}),
	}
}

// =============================================================================
// WORKER LIFECYCLE
// =============================================================================

// Start launches the worker goroutines.
func (w *Worker) Start() {
	for i := 0; i < w.workers; i++ {
		w.wg.Add(1)
		go w.loop(i)
	}
}

// Stop stops accepting tasks, waits for running ones to finish and cancels
// everything still queued.
func (w *Worker) Stop() {
	w.stopOnce.Do(func() {
		w.mu.Lock()
		w.stopped = true
		close(w.stop)
		w.mu.Unlock()
		w.wg.Wait()

		for {
			select {
			case task := <-w.pending:
				if task.Cancel() {
					w.queue.finished(task)
				}
			default:
				return
			}
		}
	})
}

func (w *Worker) loop(n int) {
	defer w.wg.Done()
	for {
		select {
		case <-w.stop:
			return
		case task := <-w.pending:
			w.run(n, task)
		}
	}
}

// run executes a single task. The provider context is never canceled by the
// worker; a started native generation runs to completion.
func (w *Worker) run(n int, task *Task) {
	if !task.markStarted() {
		return
	}

	w.running.Add(1)
	resp := complete(context.Background(), w.provider, task.Request)
	w.running.Add(-1)

	task.finish(resp)
	w.queue.finished(task)
	log.Printf("WORKER | worker=%d task=%s op=%s status=%s provider=%s ms=%d",
		n, task.ID[:8], task.Request.Operation, task.GetStatus(), resp.Metadata.ProviderID, task.Duration().Milliseconds())
}

// complete calls the provider, converting a panic into a failed response.
func complete(ctx context.Context, p ai.Provider, req *ai.Request) (resp *ai.Response) {
	defer func() {
		if rec := recover(); rec != nil {
			resp = ai.Fail(req, p.ID(), ai.Errorf(ai.CodeProviderPanic, "%s panicked: %v", p.ID(), rec))
		}
	}()
	resp = p.Complete(ctx, req)
	if resp == nil {
		resp = ai.Fail(req, p.ID(), ai.Errorf(ai.CodeGenerationFailed, "%s returned no response", p.ID()))
	}
	return resp
}

// =============================================================================
// SUBMISSION
// =============================================================================

// Submit queues req and returns its task immediately.
func (w *Worker) Submit(req *ai.Request) (*Task, error) {
	if req == nil {
		return nil, ai.NewError(ai.CodeInvalidRequest, "request is nil", nil)
	}

	// Held until the task is in pending, so Stop either rejects it here or
	// finds it when draining.
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return nil, ErrStopped
	}

	task := NewTask(req)
	if err := w.queue.Add(task); err != nil {
		return nil, err
	}
	select {
	case w.pending <- task:
		return task.Clone(), nil
	default:
		if task.Cancel() {
			w.queue.finished(task)
		}
		return nil, fmt.Errorf("%w: pending buffer exhausted", ErrQueueFull)
	}
}

// Wait blocks until the task finishes, ctx is done, or the wait deadline
// passes. A failed provider response is returned with a nil error; the
// caller inspects Response.Success.
func (w *Worker) Wait(ctx context.Context, id string) (*ai.Response, error) {
	task := w.queue.lookup(id)
	if task == nil {
		return nil, ErrUnknownTask
	}

	var deadline <-chan time.Time
	if w.waitTimeout > 0 {
		timer := time.NewTimer(w.waitTimeout)
		defer timer.Stop()
		deadline = timer.C
	}

	select {
	case <-task.Done():
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-deadline:
		return nil, fmt.Errorf("%w after %v (task %s is %s)", ErrWaitTimeout, w.waitTimeout, id, task.GetStatus())
	}

	if task.GetStatus() == TaskStatusCanceled {
		return nil, ErrCanceled
	}
	return task.GetResponse(), nil
}

// Run submits req and waits for it.
func (w *Worker) Run(ctx context.Context, req *ai.Request) (*ai.Response, error) {
	task, err := w.Submit(req)
	if err != nil {
		return nil, err
	}
	return w.Wait(ctx, task.ID)
}

// Get returns a copy of the task, or nil if unknown.
func (w *Worker) Get(id string) *Task { return w.queue.Get(id) }

// Cancel cancels a task that has not started yet.
func (w *Worker) Cancel(id string) bool { return w.queue.Cancel(id) }

// Notifications delivers one notification per finished task.
func (w *Worker) Notifications() <-chan TaskNotification { return w.queue.Notifications() }

// Queue exposes the task history.
func (w *Worker) Queue() *Queue { return w.queue }

// Running returns the number of provider calls in flight.
func (w *Worker) Running() int { return int(w.running.Load()) }
