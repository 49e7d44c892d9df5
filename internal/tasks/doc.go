// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package tasks runs inference requests in the background.
//
// A native generation can block for seconds and cannot be interrupted, so
// callers that must stay responsive hand requests to a Worker instead of
// calling Complete directly.
//
// # Key Types
//
//   - Task: one submitted request with status, timing and response
//   - Queue: task history with notifications and bounded size
//   - Worker: goroutines that call the provider (one by default)
//   - TaskStatus: Queued, Running, Complete, Failed, Canceled
//
// # Usage
//
//	w := tasks.NewWorker(router, tasks.WorkerConfig{WaitTimeout: 30 * time.Second})
//	w.Start()
//	defer w.Stop()
//
//	task, err := w.Submit(ai.NewRequest(ai.OpClassifyPriority, "Pay rent"))
//	if err != nil {
//	    return err
//	}
//	resp, err := w.Wait(ctx, task.ID)
//
// The wait deadline only bounds the caller. A task that outlives it keeps
// running and can still be fetched with Get.
package tasks
