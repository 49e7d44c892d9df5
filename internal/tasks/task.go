// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package tasks

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jeranaias/jeeves/internal/ai"
	"github.com/jeranaias/jeeves/internal/util"
)

// =============================================================================
// TASK STATUS
// =============================================================================

// TaskStatus represents the current state of an inference task.
type TaskStatus string

const (
	// TaskStatusQueued indicates the task is waiting for a worker
	TaskStatusQueued TaskStatus = "Queued"

	// TaskStatusRunning indicates a worker is running the request
	TaskStatusRunning TaskStatus = "Running"

	// TaskStatusComplete indicates the provider returned a successful response
	TaskStatusComplete TaskStatus = "Complete"

	// TaskStatusFailed indicates the provider returned a failed response
	TaskStatusFailed TaskStatus = "Failed"

	// TaskStatusCanceled indicates the task was canceled before it ran
	TaskStatusCanceled TaskStatus = "Canceled"
)

// String returns the string representation of the task status.
func (s TaskStatus) String() string {
	return string(s)
}

// Terminal reports whether no further transition is possible.
func (s TaskStatus) Terminal() bool {
	return s == TaskStatusComplete || s == TaskStatusFailed || s == TaskStatusCanceled
}

// =============================================================================
// TASK STRUCTURE
// =============================================================================

// Task is one request handed to the worker.
type Task struct {
	// ID is a unique identifier for this task
	ID string

	// Description is a short label, derived from the request by default
	Description string

	// Request is the work to run
	Request *ai.Request

	// Status is the current state of the task
	Status TaskStatus

	SubmitTime time.Time
	StartTime  time.Time
	EndTime    time.Time

	// Response is set once the task reaches Complete or Failed
	Response *ai.Response

	// Error is the error message if the task failed or was canceled
	Error string

	// done is closed on the first terminal transition
	done     chan struct{}
	doneOnce sync.Once

	mu sync.RWMutex
}

// =============================================================================
// TASK CREATION
// =============================================================================

// NewTask creates a queued task for req.
func NewTask(req *ai.Request) *Task {
	desc := ""
	if req != nil {
		desc = fmt.Sprintf("%s: %s", req.Operation, util.TruncateRunes(req.Input, 40))
	}
	return &Task{
		ID:          uuid.New().String(),
		Description: desc,
		Request:     req,
		Status:      TaskStatusQueued,
		SubmitTime:  time.Now(),
		done:        make(chan struct{}),
	}
}

// =============================================================================
// TASK METHODS
// =============================================================================

// SetStatus updates the task status (thread-safe).
// Valid transitions: Queued -> Running -> Complete/Failed, Queued -> Canceled.
func (t *Task) SetStatus(status TaskStatus) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !isValidTransition(t.Status, status) {
		return fmt.Errorf("invalid status transition from %s to %s", t.Status, status)
	}
	t.Status = status
	return nil
}

func isValidTransition(from, to TaskStatus) bool {
	if from == to {
		return true
	}
	switch from {
	case TaskStatusQueued:
		return to == TaskStatusRunning || to == TaskStatusCanceled
	case TaskStatusRunning:
		// A running native generation cannot be interrupted.
		return to == TaskStatusComplete || to == TaskStatusFailed
	default:
		return false
	}
}

// GetStatus returns the current task status (thread-safe).
func (t *Task) GetStatus() TaskStatus {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.Status
}

// GetResponse returns the provider response, or nil while unfinished.
func (t *Task) GetResponse() *ai.Response {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.Response
}

// GetError returns the error message (thread-safe).
func (t *Task) GetError() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.Error
}

// Done is closed when the task reaches a terminal status.
func (t *Task) Done() <-chan struct{} {
	return t.done
}

// markStarted moves a queued task to Running. It reports false if the task
// was canceled while queued.
func (t *Task) markStarted() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.Status != TaskStatusQueued {
		return false
	}
	t.Status = TaskStatusRunning
	t.StartTime = time.Now()
	return true
}

// finish records the provider response and closes Done.
func (t *Task) finish(resp *ai.Response) {
	t.mu.Lock()
	t.Response = resp
	t.EndTime = time.Now()
	if resp != nil && resp.Success {
		t.Status = TaskStatusComplete
	} else {
		t.Status = TaskStatusFailed
		if err := resp.Err(); err != nil {
			t.Error = err.Error()
		}
	}
	t.mu.Unlock()
	t.doneOnce.Do(func() { close(t.done) })
}

// Cancel cancels a queued task. Running tasks cannot be canceled.
// Returns true if the task was canceled.
func (t *Task) Cancel() bool {
	t.mu.Lock()
	if t.Status != TaskStatusQueued {
		t.mu.Unlock()
		return false
	}
	t.Status = TaskStatusCanceled
	t.Error = "canceled before start"
	t.EndTime = time.Now()
	t.mu.Unlock()
	t.doneOnce.Do(func() { close(t.done) })
	return true
}

// Duration returns how long the task has been running or took to complete.
func (t *Task) Duration() time.Duration {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.StartTime.IsZero() {
		return 0
	}
	if t.EndTime.IsZero() {
		return time.Since(t.StartTime)
	}
	return t.EndTime.Sub(t.StartTime)
}

// IsRunning returns true if the task is currently running.
func (t *Task) IsRunning() bool {
	return t.GetStatus() == TaskStatusRunning
}

// IsComplete returns true if the task has finished (success, failure, or canceled).
func (t *Task) IsComplete() bool {
	return t.GetStatus().Terminal()
}

// Summary returns a one-line summary of the task.
func (t *Task) Summary() string {
	status := t.GetStatus()
	duration := t.Duration()

	summary := fmt.Sprintf("[%s] %s - %s", t.ID[:8], t.Description, status)
	if resp := t.GetResponse(); resp != nil && resp.Success {
		summary += fmt.Sprintf(" via %s (%.2f)", resp.Metadata.ProviderID, resp.Confidence())
	}
	if duration > 0 {
		summary += fmt.Sprintf(" (%.1fs)", duration.Seconds())
	}
	return summary
}

// Clone creates a copy of the task for reading. Request and Response are
// shared; neither is mutated after the task finishes.
func (t *Task) Clone() *Task {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return &Task{
		ID:          t.ID,
		Description: t.Description,
		Request:     t.Request,
		Status:      t.Status,
		SubmitTime:  t.SubmitTime,
		StartTime:   t.StartTime,
		EndTime:     t.EndTime,
		Response:    t.Response,
		Error:       t.Error,
		done:        t.done,
	}
}
