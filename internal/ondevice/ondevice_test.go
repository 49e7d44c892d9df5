// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ondevice

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/jeeves/internal/ai"
	"github.com/jeranaias/jeeves/internal/engine"
	"github.com/jeranaias/jeeves/internal/engine/enginetest"
)

const doFirstJSON = `{"quadrant": "DO_FIRST", "confidence": 0.9, "explanation": "Production is down"}`

func writeModel(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte("GGUF"), 0o600))
	return path
}

func newProvider(t *testing.T, fake *enginetest.Backend) *Provider {
	t.Helper()
	path := writeModel(t, "Phi-3-mini-4k-instruct-q4.gguf")
	p := New(engine.New(engine.WithBackend(fake)), Config{ModelPath: path, ContextSize: 512, Threads: 2})
	t.Cleanup(func() { _ = p.Release() })
	return p
}

func TestAvailabilityFollowsModel(t *testing.T) {
	p := newProvider(t, enginetest.ReplyWith(doFirstJSON))
	assert.False(t, p.Availability().Get())
	assert.Empty(t, p.ModelID())

	require.NoError(t, p.Initialize(context.Background()))
	assert.True(t, p.Availability().Get())
	assert.Equal(t, "Phi-3-mini-4k-instruct-q4.gguf", p.ModelID())

	p.Unload()
	assert.False(t, p.Availability().Get())
}

func TestInitializeWithoutBackend(t *testing.T) {
	p := New(engine.New(engine.WithBackend(nil)), Config{ModelPath: writeModel(t, "m.gguf")})
	err := p.Initialize(context.Background())
	assert.ErrorIs(t, err, ai.ErrBackendUnavailable)
	assert.False(t, p.Availability().Get())

	resp := p.Complete(context.Background(), ai.NewRequest(ai.OpChat, "hello"))
	assert.False(t, resp.Success)
	assert.Equal(t, ai.CodeBackendUnavailable, resp.ErrorCode)
}

func TestInitializeWithoutModelPath(t *testing.T) {
	p := New(engine.New(engine.WithBackend(&enginetest.Backend{})), Config{})
	require.NoError(t, p.Initialize(context.Background()))
	assert.False(t, p.Availability().Get())

	resp := p.Complete(context.Background(), ai.NewRequest(ai.OpChat, "hello"))
	assert.Equal(t, ai.CodeModelNotLoaded, resp.ErrorCode)
}

func TestInitializeMissingModel(t *testing.T) {
	p := New(engine.New(engine.WithBackend(&enginetest.Backend{})),
		Config{ModelPath: filepath.Join(t.TempDir(), "absent.gguf")})
	err := p.Initialize(context.Background())
	assert.ErrorIs(t, err, ai.ErrModelNotFound)
	assert.False(t, p.Availability().Get())
}

func TestConcurrentInitializeLoadsOnce(t *testing.T) {
	fake := enginetest.ReplyWith(doFirstJSON)
	p := newProvider(t, fake)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, p.Initialize(context.Background()))
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), fake.Loads.Load())
	assert.True(t, p.Availability().Get())
}

func TestCompleteClassification(t *testing.T) {
	fake := enginetest.ReplyWith(doFirstJSON)
	var seen string
	fake.SetReply(func(prompt string) string {
		seen = prompt
		return doFirstJSON
	})
	p := newProvider(t, fake)
	require.NoError(t, p.Initialize(context.Background()))

	resp := p.Complete(context.Background(), ai.NewRequest(ai.OpClassifyPriority, "Fix the production outage"))
	require.True(t, resp.Success, "error: %v", resp.Err())
	assert.Equal(t, ProviderID, resp.Metadata.ProviderID)
	assert.Equal(t, "Phi-3-mini-4k-instruct-q4.gguf", resp.Metadata.ModelID)
	assert.Positive(t, resp.Metadata.CompletionTokens)
	assert.False(t, resp.Metadata.FromRuleBased)

	pc, ok := resp.Classification()
	require.True(t, ok)
	assert.Equal(t, ai.QuadrantDoFirst, pc.Quadrant)
	assert.InDelta(t, 0.9, resp.Confidence(), 1e-9)

	assert.Contains(t, seen, "<|user|>")
	assert.Contains(t, seen, "Fix the production outage")
}

func TestCompleteClampsConfidence(t *testing.T) {
	p := newProvider(t, enginetest.ReplyWith(`{"quadrant": "Q3", "confidence": 3.2}`))
	require.NoError(t, p.Initialize(context.Background()))

	resp := p.Complete(context.Background(), ai.NewRequest(ai.OpClassifyPriority, "Reply to the vendor"))
	require.True(t, resp.Success)
	assert.Equal(t, 1.0, resp.Confidence())
	pc, ok := resp.Classification()
	require.True(t, ok)
	assert.Equal(t, ai.QuadrantDelegate, pc.Quadrant)
}

func TestCompleteParseFailure(t *testing.T) {
	p := newProvider(t, enginetest.ReplyWith("I am not sure what you mean."))
	require.NoError(t, p.Initialize(context.Background()))

	resp := p.Complete(context.Background(), ai.NewRequest(ai.OpClassifyPriority, "Water the plants"))
	assert.False(t, resp.Success)
	assert.Equal(t, ai.CodeParseFailed, resp.ErrorCode)
	assert.Nil(t, resp.Result)
	assert.Positive(t, resp.Metadata.CompletionTokens)
}

func TestCompleteGenerationFailure(t *testing.T) {
	fake := enginetest.ReplyWith(doFirstJSON)
	fake.GenerateErr = errors.New("decode failed")
	p := newProvider(t, fake)
	require.NoError(t, p.Initialize(context.Background()))

	resp := p.Complete(context.Background(), ai.NewRequest(ai.OpChat, "hi"))
	assert.False(t, resp.Success)
	assert.Equal(t, ai.CodeGenerationFailed, resp.ErrorCode)
}

func TestCompleteInvalidRequest(t *testing.T) {
	fake := enginetest.ReplyWith(doFirstJSON)
	p := newProvider(t, fake)
	require.NoError(t, p.Initialize(context.Background()))

	resp := p.Complete(context.Background(), ai.NewRequest(ai.OpClassifyPriority, "   "))
	assert.False(t, resp.Success)
	assert.Equal(t, ai.CodeInvalidRequest, resp.ErrorCode)
	assert.Equal(t, int32(0), fake.Generates.Load())
}

func TestRequestOptionsOverrideDefaults(t *testing.T) {
	p := New(nil, Config{MaxTokens: 100})
	req := ai.NewRequest(ai.OpChat, "hi")
	req.Options.MaxTokens = 12
	req.Options.TopP = 1.5
	req.Options.Temperature = 0

	gp := p.params(req)
	assert.Equal(t, 12, gp.MaxTokens)
	assert.Equal(t, 0.9, gp.TopP)
	assert.Equal(t, 0.1, gp.Temperature)
}

func TestStreamEndsWithDone(t *testing.T) {
	p := newProvider(t, enginetest.ReplyWith("Good morning to you"))
	require.NoError(t, p.Initialize(context.Background()))

	ch, err := p.Stream(context.Background(), ai.NewRequest(ai.OpChat, "hello"))
	require.NoError(t, err)

	var (
		text strings.Builder
		last ai.StreamChunk
	)
	for c := range ch {
		text.WriteString(c.Text)
		last = c
	}
	assert.True(t, last.Done)
	assert.NoError(t, last.Err)
	assert.Equal(t, "Good morning to you", text.String())
}

func TestStreamReportsError(t *testing.T) {
	fake := enginetest.ReplyWith("x")
	fake.GenerateErr = errors.New("boom")
	p := newProvider(t, fake)
	require.NoError(t, p.Initialize(context.Background()))

	ch, err := p.Stream(context.Background(), ai.NewRequest(ai.OpChat, "hello"))
	require.NoError(t, err)

	var last ai.StreamChunk
	for c := range ch {
		last = c
	}
	assert.False(t, last.Done)
	assert.ErrorIs(t, last.Err, ai.ErrGenerationFailed)
}

func TestStreamCancelledReaderDoesNotLeak(t *testing.T) {
	fake := enginetest.ReplyWith(strings.Repeat("word ", 500))
	p := newProvider(t, fake)
	require.NoError(t, p.Initialize(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	req := ai.NewRequest(ai.OpChat, "hello")
	req.Options.MaxTokens = 500
	ch, err := p.Stream(ctx, req)
	require.NoError(t, err)
	cancel()

	done := make(chan struct{})
	go func() {
		for range ch {
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("stream did not close after cancel")
	}
}

func TestAbandonedStreamReleasesEngine(t *testing.T) {
	fake := enginetest.ReplyWith(strings.Repeat("word ", 200))
	p := newProvider(t, fake)
	require.NoError(t, p.Initialize(context.Background()))

	req := ai.NewRequest(ai.OpChat, "hello")
	req.Options.MaxTokens = 200
	_, err := p.Stream(context.Background(), req)
	require.NoError(t, err)

	fake.SetReply(func(string) string { return doFirstJSON })
	done := make(chan *ai.Response, 1)
	go func() {
		done <- p.Complete(context.Background(), ai.NewRequest(ai.OpClassifyPriority, "Production is down"))
	}()
	select {
	case resp := <-done:
		assert.True(t, resp.Success, "%v", resp.Err())
	case <-time.After(5 * time.Second):
		t.Fatal("Complete blocked behind a stream nobody reads")
	}
}

func TestStreamUnavailable(t *testing.T) {
	p := newProvider(t, enginetest.ReplyWith(doFirstJSON))
	_, err := p.Stream(context.Background(), ai.NewRequest(ai.OpChat, "hello"))
	assert.ErrorIs(t, err, ai.ErrModelNotLoaded)
}

func TestReleaseMakesUnavailable(t *testing.T) {
	fake := enginetest.ReplyWith(doFirstJSON)
	p := newProvider(t, fake)
	require.NoError(t, p.Initialize(context.Background()))

	require.NoError(t, p.Release())
	assert.False(t, p.Availability().Get())
	assert.Equal(t, engine.StateUninitialized, p.Engine().State())
	assert.Equal(t, int32(1), fake.Closes.Load())

	resp := p.Complete(context.Background(), ai.NewRequest(ai.OpChat, "hi"))
	assert.False(t, resp.Success)
	require.NoError(t, p.Release())
}

func TestLoadModelSwapsTemplate(t *testing.T) {
	p := newProvider(t, enginetest.ReplyWith(doFirstJSON))
	require.NoError(t, p.Initialize(context.Background()))

	res := p.LoadModel(writeModel(t, "qwen2.5-0.5b-instruct-q4_k_m.gguf"))
	require.True(t, res.Success)
	assert.Equal(t, "qwen2.5-0.5b-instruct-q4_k_m.gguf", p.ModelID())
	assert.True(t, p.Availability().Get())
}
