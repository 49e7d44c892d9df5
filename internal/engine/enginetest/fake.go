// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package enginetest provides a scripted in-memory engine.Backend for tests
// that must not depend on the native library.
package enginetest

import (
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jeranaias/jeeves/internal/engine"
)

// Backend is a scriptable engine.Backend. Zero value is ready to use and
// replies with Reply (or an empty string).
type Backend struct {
	mu sync.Mutex

	InitErr         error
	LoadErr         error
	GenerateErr     error
	PanicOnLoad     bool
	PanicOnGenerate bool
	Delay           time.Duration
	Memory          int64

	// Reply maps a prompt to the model output.
	Reply func(prompt string) string

	Inits     atomic.Int32
	Loads     atomic.Int32
	Frees     atomic.Int32
	Closes    atomic.Int32
	Generates atomic.Int32

	active    atomic.Int32
	maxActive atomic.Int32
}

// ReplyWith returns a backend that always answers text.
func ReplyWith(text string) *Backend {
	return &Backend{Reply: func(string) string { return text }}
}

// MaxConcurrent reports the highest number of simultaneous Generate calls
// observed.
func (b *Backend) MaxConcurrent() int { return int(b.maxActive.Load()) }

// SetReply swaps the reply function.
func (b *Backend) SetReply(f func(string) string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Reply = f
}

func (b *Backend) reply(prompt string) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.Reply == nil {
		return ""
	}
	return b.Reply(prompt)
}

func (b *Backend) Name() string { return "fake" }

func (b *Backend) Init() error {
	b.Inits.Add(1)
	return b.InitErr
}

func (b *Backend) Free() { b.Frees.Add(1) }

func (b *Backend) Load(path string, p engine.LoadParams) (engine.Model, error) {
	b.Loads.Add(1)
	if b.PanicOnLoad {
		panic("fake load panic")
	}
	if b.LoadErr != nil {
		return nil, b.LoadErr
	}
	mem := b.Memory
	if mem == 0 {
		mem = 64 << 20
	}
	return &model{b: b, mem: mem}, nil
}

type model struct {
	b      *Backend
	mem    int64
	closed atomic.Bool
}

func (m *model) MemoryBytes() int64 { return m.mem }

func (m *model) Close() error {
	if m.closed.CompareAndSwap(false, true) {
		m.b.Closes.Add(1)
	}
	return nil
}

// Generate emits the reply word by word and counts each word as a token.
func (m *model) Generate(prompt string, p engine.GenerateParams, onPiece func(string)) (int, error) {
	b := m.b
	b.Generates.Add(1)
	n := b.active.Add(1)
	defer b.active.Add(-1)
	for {
		cur := b.maxActive.Load()
		if n <= cur || b.maxActive.CompareAndSwap(cur, n) {
			break
		}
	}

	if m.closed.Load() {
		return 0, errors.New("generate on closed model")
	}
	if b.Delay > 0 {
		time.Sleep(b.Delay)
	}
	if b.PanicOnGenerate {
		panic("fake generate panic")
	}
	if b.GenerateErr != nil {
		return 0, b.GenerateErr
	}

	tokens := 0
	for _, piece := range strings.SplitAfter(b.reply(prompt), " ") {
		if piece == "" {
			continue
		}
		if p.MaxTokens > 0 && tokens >= p.MaxTokens {
			break
		}
		onPiece(piece)
		tokens++
	}
	return tokens, nil
}
