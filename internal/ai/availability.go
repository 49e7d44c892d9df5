// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ai

import "sync"

// Availability is an observable boolean. Reads never block on subscribers.
type Availability struct {
	mu     sync.RWMutex
	value  bool
	nextID int
	subs   map[int]chan bool
}

// NewAvailability creates an availability flag with an initial value.
func NewAvailability(initial bool) *Availability {
	return &Availability{value: initial, subs: make(map[int]chan bool)}
}

// Get returns the current value.
func (a *Availability) Get() bool {
	if a == nil {
		return false
	}
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.value
}

// Set updates the value and notifies subscribers when it changed.
// Slow subscribers miss intermediate values but always see the latest.
func (a *Availability) Set(v bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.value == v {
		return
	}
	a.value = v
	for _, ch := range a.subs {
		select {
		case <-ch:
		default:
		}
		ch <- v
	}
}

// Subscribe returns a channel receiving each change plus a cancel func that
// closes it. The current value is delivered immediately.
func (a *Availability) Subscribe() (<-chan bool, func()) {
	a.mu.Lock()
	defer a.mu.Unlock()

	ch := make(chan bool, 1)
	ch <- a.value
	id := a.nextID
	a.nextID++
	a.subs[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			a.mu.Lock()
			defer a.mu.Unlock()
			delete(a.subs, id)
			close(ch)
		})
	}
	return ch, cancel
}
