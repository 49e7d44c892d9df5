// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package tasks

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/jeranaias/jeeves/internal/ai"
)

// ErrQueueFull is returned by Add when the queued-task limit is reached.
var ErrQueueFull = errors.New("tasks: queue is full")

// =============================================================================
// TASK QUEUE
// =============================================================================

// Queue tracks every task the worker knows about, in submission order.
type Queue struct {
	// tasks is the list of all tasks (both queued and finished)
	tasks []*Task

	// byID indexes tasks for Get
	byID map[string]*Task

	// maxHistory is the maximum number of finished tasks to keep
	maxHistory int

	// maxQueueSize is the maximum number of queued tasks allowed (0 = unlimited)
	maxQueueSize int

	mu sync.RWMutex

	// notifyChan sends notifications when tasks finish
	notifyChan chan TaskNotification
}

// TaskNotification reports a task reaching a terminal status.
type TaskNotification struct {
	TaskID      string
	Description string
	Status      TaskStatus
	Error       string
	Duration    time.Duration

	ProviderID string
	Route      ai.Route
	Confidence float64
}

// =============================================================================
// QUEUE CREATION
// =============================================================================

// NewQueue creates a task queue.
// maxHistory: maximum number of finished tasks to keep (0 = unlimited)
// maxQueueSize: maximum number of queued tasks allowed (0 = unlimited)
func NewQueue(maxHistory, maxQueueSize int) *Queue {
	return &Queue{
		byID:         make(map[string]*Task),
		maxHistory:   maxHistory,
		maxQueueSize: maxQueueSize,
		notifyChan:   make(chan TaskNotification, 100),
	}
}

// =============================================================================
// TASK MANAGEMENT
// =============================================================================

// Add appends a queued task. Returns ErrQueueFull if the limit is reached.
func (q *Queue) Add(task *Task) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.maxQueueSize > 0 {
		if n := q.countLocked(TaskStatusQueued); n >= q.maxQueueSize {
			return fmt.Errorf("%w: %d queued (max %d)", ErrQueueFull, n, q.maxQueueSize)
		}
	}
	q.tasks = append(q.tasks, task)
	q.byID[task.ID] = task
	return nil
}

// Get retrieves a copy of a task by ID, or nil if unknown.
func (q *Queue) Get(id string) *Task {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if task, ok := q.byID[id]; ok {
		return task.Clone()
	}
	return nil
}

// lookup returns the live task for id.
func (q *Queue) lookup(id string) *Task {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.byID[id]
}

// Cancel cancels a queued task by ID.
func (q *Queue) Cancel(id string) bool {
	task := q.lookup(id)
	if task == nil || !task.Cancel() {
		return false
	}
	q.finished(task)
	return true
}

// finished sends the terminal notification and trims history.
func (q *Queue) finished(task *Task) {
	n := TaskNotification{
		TaskID:      task.ID,
		Description: task.Description,
		Status:      task.GetStatus(),
		Error:       task.GetError(),
		Duration:    task.Duration(),
	}
	if resp := task.GetResponse(); resp != nil {
		n.ProviderID = resp.Metadata.ProviderID
		n.Route = resp.Metadata.Route
		n.Confidence = resp.Confidence()
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	q.notify(n)
	q.cleanupLocked()
}

// =============================================================================
// QUEUE QUERIES
// =============================================================================

// All returns a copy of all tasks.
func (q *Queue) All() []*Task {
	q.mu.RLock()
	defer q.mu.RUnlock()

	result := make([]*Task, len(q.tasks))
	for i, task := range q.tasks {
		result[i] = task.Clone()
	}
	return result
}

// Count returns the total number of tasks.
func (q *Queue) Count() int {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return len(q.tasks)
}

// CountStatus returns the number of tasks with the given status.
func (q *Queue) CountStatus(status TaskStatus) int {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.countLocked(status)
}

func (q *Queue) countLocked(status TaskStatus) int {
	n := 0
	for _, t := range q.tasks {
		if t.GetStatus() == status {
			n++
		}
	}
	return n
}

// =============================================================================
// NOTIFICATIONS
// =============================================================================

// Notifications returns the notification channel.
func (q *Queue) Notifications() <-chan TaskNotification {
	return q.notifyChan
}

// notify sends a notification (must be called with lock held).
func (q *Queue) notify(notification TaskNotification) {
	select {
	case q.notifyChan <- notification:
	default:
		log.Printf("WORKER | notification channel full, dropped task=%s status=%s",
			notification.TaskID, notification.Status)
	}
}

// =============================================================================
// CLEANUP
// =============================================================================

// cleanupLocked removes the oldest finished tasks beyond maxHistory.
// Removal follows slice order, not completion time.
func (q *Queue) cleanupLocked() {
	if q.maxHistory <= 0 {
		return
	}

	completed := 0
	for _, task := range q.tasks {
		if task.IsComplete() {
			completed++
		}
	}
	if completed <= q.maxHistory {
		return
	}

	toRemove := completed - q.maxHistory
	kept := make([]*Task, 0, len(q.tasks)-toRemove)
	for _, task := range q.tasks {
		if task.IsComplete() && toRemove > 0 {
			toRemove--
			delete(q.byID, task.ID)
			continue
		}
		kept = append(kept, task)
	}
	q.tasks = kept
}

// Clear removes all finished tasks from the history.
func (q *Queue) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()

	kept := make([]*Task, 0)
	for _, task := range q.tasks {
		if !task.IsComplete() {
			kept = append(kept, task)
			continue
		}
		delete(q.byID, task.ID)
	}
	q.tasks = kept
}

// =============================================================================
// FORMATTING
// =============================================================================

// Summary returns a formatted summary of the queue.
func (q *Queue) Summary() string {
	q.mu.RLock()
	defer q.mu.RUnlock()

	counts := map[TaskStatus]int{}
	for _, task := range q.tasks {
		counts[task.GetStatus()]++
	}
	return fmt.Sprintf("Running: %d | Queued: %d | Completed: %d | Failed: %d",
		counts[TaskStatusRunning], counts[TaskStatusQueued], counts[TaskStatusComplete], counts[TaskStatusFailed])
}
