// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ondevice

import (
	"context"
	"sync"

	"github.com/jeranaias/jeeves/internal/ai"
)

// chunkQueue is an unbounded hand-off between the native piece callback and
// the stream reader. push never blocks, so a slow or absent reader cannot
// hold the engine lock.
type chunkQueue struct {
	mu     sync.Mutex
	items  []ai.StreamChunk
	closed bool
	ready  chan struct{}
}

func newChunkQueue() *chunkQueue {
	return &chunkQueue{ready: make(chan struct{}, 1)}
}

func (q *chunkQueue) push(c ai.StreamChunk) {
	q.mu.Lock()
	q.items = append(q.items, c)
	q.mu.Unlock()
	q.signal()
}

// close marks the end of input. It must follow the last push; chunks already
// pushed are still delivered.
func (q *chunkQueue) close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.signal()
}

func (q *chunkQueue) signal() {
	select {
	case q.ready <- struct{}{}:
	default:
	}
}

func (q *chunkQueue) take() ([]ai.StreamChunk, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	items := q.items
	q.items = nil
	return items, q.closed
}

// deliver forwards queued chunks to ch until the queue is closed and
// drained, then closes ch. Once ctx is done chunks are discarded.
func (q *chunkQueue) deliver(ctx context.Context, ch chan<- ai.StreamChunk) {
	defer close(ch)
	for {
		<-q.ready
		items, closed := q.take()
		for _, c := range items {
			if ctx.Err() != nil {
				break
			}
			select {
			case ch <- c:
			case <-ctx.Done():
			}
		}
		if closed {
			return
		}
	}
}
