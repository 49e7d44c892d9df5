// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package router

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/jeeves/internal/ai"
	"github.com/jeranaias/jeeves/internal/engine"
	"github.com/jeranaias/jeeves/internal/engine/enginetest"
	"github.com/jeranaias/jeeves/internal/ondevice"
	"github.com/jeranaias/jeeves/internal/rules"
)

// =============================================================================
// FAKE PROVIDER
// =============================================================================

type fakeProvider struct {
	id    string
	caps  ai.Capabilities
	avail *ai.Availability

	quadrant   ai.Quadrant
	confidence float64
	fail       bool
	panics     bool
	nilResp    bool
	stream     []string

	initErr      error
	initPanic    bool
	releaseErr   error
	releasePanic bool

	calls    atomic.Int32
	inits    atomic.Int32
	releases atomic.Int32
}

func newFake(id string, available bool) *fakeProvider {
	return &fakeProvider{
		id:         id,
		caps:       ai.AllCapabilities(),
		avail:      ai.NewAvailability(available),
		quadrant:   ai.QuadrantSchedule,
		confidence: 0.9,
	}
}

func (f *fakeProvider) ID() string                     { return f.id }
func (f *fakeProvider) Capabilities() ai.Capabilities  { return f.caps }
func (f *fakeProvider) Availability() *ai.Availability { return f.avail }

func (f *fakeProvider) Initialize(context.Context) error {
	f.inits.Add(1)
	if f.initPanic {
		panic("init exploded")
	}
	if f.initErr == nil {
		f.avail.Set(true)
	}
	return f.initErr
}

func (f *fakeProvider) Release() error {
	f.releases.Add(1)
	if f.releasePanic {
		panic("release exploded")
	}
	f.avail.Set(false)
	return f.releaseErr
}

func (f *fakeProvider) Complete(_ context.Context, req *ai.Request) *ai.Response {
	f.calls.Add(1)
	switch {
	case f.panics:
		panic("complete exploded")
	case f.nilResp:
		return nil
	case f.fail:
		return ai.Fail(req, f.id, ai.ErrGenerationFailed)
	}
	return &ai.Response{
		Success:   true,
		RequestID: req.ID,
		Result: &ai.PriorityClassification{
			Quadrant:    f.quadrant,
			Confidence:  f.confidence,
			Explanation: f.id + " says so",
		},
		Metadata: ai.Metadata{ProviderID: f.id, ModelID: f.id + "-model"},
	}
}

type streamingFake struct {
	*fakeProvider
}

func (s streamingFake) Stream(ctx context.Context, req *ai.Request) (<-chan ai.StreamChunk, error) {
	s.calls.Add(1)
	ch := make(chan ai.StreamChunk, len(s.stream)+1)
	for _, piece := range s.stream {
		ch <- ai.StreamChunk{Text: piece}
	}
	ch <- ai.StreamChunk{Done: true}
	close(ch)
	return ch, nil
}

func newRouter(t *testing.T, mode Mode, secondary, primary ai.Provider) *Router {
	t.Helper()
	r, err := New(Config{Rules: rules.New(), Secondary: secondary, Primary: primary, Mode: mode})
	require.NoError(t, err)
	return r
}

func classify(input string) *ai.Request {
	return ai.NewRequest(ai.OpClassifyPriority, input)
}

const (
	confidentInput = "URGENT EMERGENCY: Production server down NOW!"
	vagueInput     = "Think about some stuff"
)

// =============================================================================
// CONSTRUCTION AND REGISTRY
// =============================================================================

func TestNewRequiresRuleTier(t *testing.T) {
	_, err := New(Config{Primary: newFake("p", true), Mode: ModeHybrid})
	assert.ErrorIs(t, err, ErrNoRuleTier)

	_, err = New(Config{Rules: rules.New(), Mode: Mode(42)})
	assert.Error(t, err)
}

func TestNewRejectsDuplicateIDs(t *testing.T) {
	_, err := New(Config{Rules: rules.New(), Secondary: newFake("x", true), Primary: newFake("x", true)})
	assert.Error(t, err)
}

func TestRegistry(t *testing.T) {
	secondary := newFake("secondary", false)
	primary := newFake("primary", false)
	r := newRouter(t, ModeHybrid, secondary, primary)

	p, ok := r.Provider("primary")
	require.True(t, ok)
	assert.Same(t, primary, p)

	_, ok = r.Provider("missing")
	assert.False(t, ok)

	ids := []string{}
	for _, p := range r.Providers() {
		ids = append(ids, p.ID())
	}
	assert.Equal(t, []string{rules.ProviderID, "secondary", "primary"}, ids)

	assert.Equal(t, ProviderID, r.ID())
	assert.True(t, r.Availability().Get())
	assert.Equal(t, ai.AllCapabilities(), r.Capabilities())
}

func TestModeParsing(t *testing.T) {
	for _, m := range []Mode{ModeRuleBasedOnly, ModeModelOnly, ModeHybrid, ModeHybridSecondary} {
		got, err := ParseMode(m.String())
		require.NoError(t, err)
		assert.Equal(t, m, got)
	}
	got, err := ParseMode("Hybrid-With-Secondary")
	require.NoError(t, err)
	assert.Equal(t, ModeHybridSecondary, got)

	_, err = ParseMode("cloud")
	assert.Error(t, err)
	assert.Equal(t, "Mode(9)", Mode(9).String())
}

func TestTierEscalation(t *testing.T) {
	assert.Equal(t, []Tier{TierPrimary}, ModeHybrid.escalation())
	assert.Equal(t, []Tier{TierSecondary, TierPrimary}, ModeHybridSecondary.escalation())
	assert.Nil(t, TierPrimary.Escalate())
	assert.False(t, TierRule.IsModel())
	assert.Equal(t, "secondary", TierSecondary.String())
}

// =============================================================================
// RULE-BASED ONLY
// =============================================================================

func TestRuleBasedOnlyNeverCallsModels(t *testing.T) {
	secondary := newFake("secondary", true)
	primary := newFake("primary", true)
	r := newRouter(t, ModeRuleBasedOnly, secondary, primary)

	inputs := []string{confidentInput, vagueInput, "Plan quarterly strategy", "Scroll social media someday"}
	for _, in := range inputs {
		resp := r.Complete(context.Background(), classify(in).WithMinConfidence(0.99))
		require.True(t, resp.Success)
		assert.Equal(t, ai.RouteRuleDirect, resp.Metadata.Route)
		assert.True(t, resp.Metadata.FromRuleBased)
	}
	assert.Zero(t, secondary.calls.Load())
	assert.Zero(t, primary.calls.Load())

	stats := r.Stats()
	assert.Equal(t, uint64(len(inputs)), stats.TotalRequests)
	assert.Equal(t, uint64(len(inputs)), stats.RuleBasedDirect)
}

// =============================================================================
// HYBRID
// =============================================================================

func TestHybridConfidentRuleIsDirect(t *testing.T) {
	primary := newFake("primary", true)
	r := newRouter(t, ModeHybrid, nil, primary)

	resp := r.Complete(context.Background(), classify(confidentInput))
	require.True(t, resp.Success)
	pc, ok := resp.Classification()
	require.True(t, ok)
	assert.Equal(t, ai.QuadrantDoFirst, pc.Quadrant)
	assert.Equal(t, ai.RouteRuleDirect, resp.Metadata.Route)
	assert.Equal(t, rules.ProviderID, resp.Metadata.ProviderID)
	assert.Zero(t, primary.calls.Load())

	stats := r.Stats()
	assert.Equal(t, uint64(1), stats.RuleBasedDirect)
	assert.Zero(t, stats.EscalatedSuccess+stats.EscalatedFailure+stats.EscalationSkipped)
}

func TestHybridEscalatesToPrimary(t *testing.T) {
	secondary := newFake("secondary", true)
	primary := newFake("primary", true)
	r := newRouter(t, ModeHybrid, secondary, primary)

	resp := r.Complete(context.Background(), classify(vagueInput).WithMinConfidence(0.99))
	require.True(t, resp.Success)
	assert.Equal(t, "primary", resp.Metadata.ProviderID)
	assert.Equal(t, ai.RouteEscalated, resp.Metadata.Route)
	pc, ok := resp.Classification()
	require.True(t, ok)
	assert.Equal(t, ai.QuadrantSchedule, pc.Quadrant)

	assert.Equal(t, int32(1), primary.calls.Load())
	assert.Zero(t, secondary.calls.Load())
	assert.Equal(t, uint64(1), r.Stats().EscalatedSuccess)
}

func TestHybridDefaultThresholdEscalatesVagueInput(t *testing.T) {
	primary := newFake("primary", true)
	r := newRouter(t, ModeHybrid, nil, primary)

	resp := r.Complete(context.Background(), classify(vagueInput))
	require.True(t, resp.Success)
	assert.Equal(t, "primary", resp.Metadata.ProviderID)
}

func TestHybridAllEscalationFailsReturnsRuleResult(t *testing.T) {
	secondary := newFake("secondary", true)
	secondary.fail = true
	primary := newFake("primary", true)
	primary.fail = true
	r := newRouter(t, ModeHybridSecondary, secondary, primary)

	resp := r.Complete(context.Background(), classify(vagueInput).WithMinConfidence(0.99))
	require.True(t, resp.Success)
	assert.Equal(t, rules.ProviderID, resp.Metadata.ProviderID)
	assert.Equal(t, ai.RouteFallback, resp.Metadata.Route)
	assert.True(t, resp.Metadata.IsLLMFallback)
	assert.True(t, resp.Metadata.FromRuleBased)
	assert.Equal(t, int32(1), secondary.calls.Load())
	assert.Equal(t, int32(1), primary.calls.Load())

	stats := r.Stats()
	assert.Equal(t, uint64(1), stats.EscalatedFailure)
	assert.Zero(t, stats.EscalatedSuccess)
}

func TestHybridUnavailableTiersAreSkipped(t *testing.T) {
	primary := newFake("primary", false)
	r := newRouter(t, ModeHybrid, nil, primary)

	resp := r.Complete(context.Background(), classify(vagueInput).WithMinConfidence(0.99))
	require.True(t, resp.Success)
	assert.True(t, resp.Metadata.IsLLMFallback)
	assert.Zero(t, primary.calls.Load())
	assert.Equal(t, uint64(1), r.Stats().EscalationSkipped)
}

func TestHybridWithoutModelTiers(t *testing.T) {
	r := newRouter(t, ModeHybrid, nil, nil)
	resp := r.Complete(context.Background(), classify(vagueInput))
	require.True(t, resp.Success)
	assert.Equal(t, ai.RouteFallback, resp.Metadata.Route)
	assert.Equal(t, uint64(1), r.Stats().EscalationSkipped)
}

func TestHybridSecondaryTriedFirst(t *testing.T) {
	secondary := newFake("secondary", true)
	secondary.quadrant = ai.QuadrantDelegate
	primary := newFake("primary", true)
	r := newRouter(t, ModeHybridSecondary, secondary, primary)

	resp := r.Complete(context.Background(), classify(vagueInput).WithMinConfidence(0.99))
	require.True(t, resp.Success)
	assert.Equal(t, "secondary", resp.Metadata.ProviderID)
	assert.Equal(t, int32(1), secondary.calls.Load())
	assert.Zero(t, primary.calls.Load())
	assert.Equal(t, uint64(1), r.Stats().EscalatedSuccess)
}

func TestHybridSecondaryFailureFallsThroughToPrimary(t *testing.T) {
	secondary := newFake("secondary", true)
	secondary.fail = true
	primary := newFake("primary", true)
	r := newRouter(t, ModeHybridSecondary, secondary, primary)

	resp := r.Complete(context.Background(), classify(vagueInput).WithMinConfidence(0.99))
	require.True(t, resp.Success)
	assert.Equal(t, "primary", resp.Metadata.ProviderID)
	assert.Equal(t, int32(1), secondary.calls.Load())
	assert.Equal(t, uint64(1), r.Stats().EscalatedSuccess)
}

func TestHybridSkipsIncapableTier(t *testing.T) {
	secondary := newFake("secondary", true)
	secondary.caps = ai.CapabilitiesOf(ai.OpChat)
	primary := newFake("primary", true)
	r := newRouter(t, ModeHybridSecondary, secondary, primary)

	resp := r.Complete(context.Background(), classify(vagueInput).WithMinConfidence(0.99))
	require.True(t, resp.Success)
	assert.Equal(t, "primary", resp.Metadata.ProviderID)
	assert.Zero(t, secondary.calls.Load())
}

func TestHybridPanickingTierDoesNotBreakChain(t *testing.T) {
	secondary := newFake("secondary", true)
	secondary.panics = true
	primary := newFake("primary", true)
	r := newRouter(t, ModeHybridSecondary, secondary, primary)

	var resp *ai.Response
	require.NotPanics(t, func() {
		resp = r.Complete(context.Background(), classify(vagueInput).WithMinConfidence(0.99))
	})
	require.True(t, resp.Success)
	assert.Equal(t, "primary", resp.Metadata.ProviderID)
}

func TestHybridNilResponseIsFailure(t *testing.T) {
	primary := newFake("primary", true)
	primary.nilResp = true
	r := newRouter(t, ModeHybrid, nil, primary)

	resp := r.Complete(context.Background(), classify(vagueInput).WithMinConfidence(0.99))
	require.True(t, resp.Success)
	assert.True(t, resp.Metadata.IsLLMFallback)
	assert.Equal(t, uint64(1), r.Stats().EscalatedFailure)
}

func TestHybridModelTiersDisallowed(t *testing.T) {
	primary := newFake("primary", true)
	r := newRouter(t, ModeHybrid, nil, primary)

	req := classify(vagueInput).WithMinConfidence(0.99)
	req.Options.AllowModelTiers = false
	resp := r.Complete(context.Background(), req)
	require.True(t, resp.Success)
	assert.Equal(t, ai.RouteRuleDirect, resp.Metadata.Route)
	assert.Zero(t, primary.calls.Load())
}

func TestHybridRuleFallbackDisallowed(t *testing.T) {
	primary := newFake("primary", true)
	primary.fail = true
	r := newRouter(t, ModeHybrid, nil, primary)

	req := classify(vagueInput).WithMinConfidence(0.99)
	req.Options.AllowRuleFallback = false
	resp := r.Complete(context.Background(), req)
	assert.False(t, resp.Success)
	assert.Equal(t, ai.CodeAllTiersFailed, resp.ErrorCode)
	assert.ErrorIs(t, resp.Err(), ai.ErrGenerationFailed)
}

func TestAllTiersFailedWhenRuleTierFails(t *testing.T) {
	broken := newFake("broken-rules", true)
	broken.panics = true
	primary := newFake("primary", true)
	primary.fail = true
	r, err := New(Config{Rules: broken, Primary: primary, Mode: ModeHybrid})
	require.NoError(t, err)

	resp := r.Complete(context.Background(), classify(vagueInput))
	assert.False(t, resp.Success)
	assert.Equal(t, ai.CodeAllTiersFailed, resp.ErrorCode)
	assert.ErrorIs(t, resp.Err(), ai.ErrProviderPanic)
	assert.Equal(t, int32(1), primary.calls.Load())
}

func TestRouterClampsTierConfidence(t *testing.T) {
	primary := newFake("primary", true)
	primary.confidence = 1.7
	r := newRouter(t, ModeHybrid, nil, primary)

	resp := r.Complete(context.Background(), classify(vagueInput).WithMinConfidence(0.99))
	require.True(t, resp.Success)
	pc, _ := resp.Classification()
	assert.Equal(t, 1.0, pc.Confidence)
}

func TestInvalidRequest(t *testing.T) {
	primary := newFake("primary", true)
	r := newRouter(t, ModeHybrid, nil, primary)

	resp := r.Complete(context.Background(), classify("  "))
	assert.False(t, resp.Success)
	assert.Equal(t, ai.CodeInvalidRequest, resp.ErrorCode)
	assert.Zero(t, primary.calls.Load())

	resp = r.Complete(context.Background(), nil)
	assert.Equal(t, ai.CodeInvalidRequest, resp.ErrorCode)
	assert.Equal(t, uint64(2), r.Stats().EscalationSkipped)
}

// =============================================================================
// MODEL ONLY
// =============================================================================

func TestModelOnly(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		primary := newFake("primary", true)
		r := newRouter(t, ModeModelOnly, nil, primary)
		resp := r.Complete(context.Background(), classify(confidentInput))
		require.True(t, resp.Success)
		assert.Equal(t, "primary", resp.Metadata.ProviderID)
		assert.Equal(t, ai.RouteModelOnly, resp.Metadata.Route)
		assert.Equal(t, uint64(1), r.Stats().EscalatedSuccess)
	})

	t.Run("failure falls back to rules", func(t *testing.T) {
		primary := newFake("primary", true)
		primary.fail = true
		r := newRouter(t, ModeModelOnly, nil, primary)
		resp := r.Complete(context.Background(), classify(confidentInput))
		require.True(t, resp.Success)
		assert.Equal(t, rules.ProviderID, resp.Metadata.ProviderID)
		assert.True(t, resp.Metadata.IsLLMFallback)
		assert.Equal(t, uint64(1), r.Stats().EscalatedFailure)
	})

	t.Run("unavailable is skipped", func(t *testing.T) {
		primary := newFake("primary", false)
		r := newRouter(t, ModeModelOnly, nil, primary)
		resp := r.Complete(context.Background(), classify(confidentInput))
		require.True(t, resp.Success)
		assert.Zero(t, primary.calls.Load())
		assert.Equal(t, uint64(1), r.Stats().EscalationSkipped)
	})

	t.Run("no rule fallback", func(t *testing.T) {
		primary := newFake("primary", true)
		primary.fail = true
		r := newRouter(t, ModeModelOnly, nil, primary)
		req := classify(confidentInput)
		req.Options.AllowRuleFallback = false
		resp := r.Complete(context.Background(), req)
		assert.Equal(t, ai.CodeAllTiersFailed, resp.ErrorCode)
	})

	t.Run("never uses secondary", func(t *testing.T) {
		secondary := newFake("secondary", true)
		r := newRouter(t, ModeModelOnly, secondary, nil)
		resp := r.Complete(context.Background(), classify(vagueInput))
		require.True(t, resp.Success)
		assert.Zero(t, secondary.calls.Load())
	})
}

// =============================================================================
// LIFECYCLE
// =============================================================================

func TestInitializeUpgradesToSecondary(t *testing.T) {
	secondary := newFake("secondary", false)
	primary := newFake("primary", false)
	r := newRouter(t, ModeHybrid, secondary, primary)

	require.NoError(t, r.Initialize(context.Background()))
	assert.Equal(t, ModeHybridSecondary, r.Mode())
	assert.Equal(t, int32(1), primary.inits.Load())

	require.NoError(t, r.Initialize(context.Background()))
	assert.Equal(t, int32(1), secondary.inits.Load())
	assert.Equal(t, int32(2), primary.inits.Load())
}

func TestInitializeSecondaryFailureKeepsMode(t *testing.T) {
	secondary := newFake("secondary", false)
	secondary.initErr = errors.New("daemon not running")
	r := newRouter(t, ModeHybrid, secondary, nil)

	require.NoError(t, r.Initialize(context.Background()))
	assert.Equal(t, ModeHybrid, r.Mode())

	secondary.initErr = nil
	require.NoError(t, r.Initialize(context.Background()))
	assert.Equal(t, ModeHybrid, r.Mode())
	assert.Equal(t, int32(1), secondary.inits.Load())
}

func TestInitializeSecondaryPanicKeepsMode(t *testing.T) {
	secondary := newFake("secondary", false)
	secondary.initPanic = true
	r := newRouter(t, ModeHybrid, secondary, nil)

	require.NotPanics(t, func() {
		require.NoError(t, r.Initialize(context.Background()))
	})
	assert.Equal(t, ModeHybrid, r.Mode())
}

func TestInitializeOnlyUpgradesPlainHybrid(t *testing.T) {
	secondary := newFake("secondary", false)
	r := newRouter(t, ModeRuleBasedOnly, secondary, nil)
	require.NoError(t, r.Initialize(context.Background()))
	assert.Equal(t, ModeRuleBasedOnly, r.Mode())
}

func TestInitializePrimaryFailureIsNotFatal(t *testing.T) {
	primary := newFake("primary", false)
	primary.initErr = ai.ErrModelNotFound
	r := newRouter(t, ModeHybrid, nil, primary)

	require.NoError(t, r.Initialize(context.Background()))
	resp := r.Complete(context.Background(), classify(vagueInput))
	require.True(t, resp.Success)
	assert.Equal(t, rules.ProviderID, resp.Metadata.ProviderID)
}

func TestReleaseIsolatesFailures(t *testing.T) {
	secondary := newFake("secondary", true)
	secondary.releasePanic = true
	primary := newFake("primary", true)
	primary.releaseErr = errors.New("unload failed")
	r := newRouter(t, ModeHybridSecondary, secondary, primary)

	err := r.Release()
	require.Error(t, err)
	assert.ErrorIs(t, err, ai.ErrProviderPanic)
	assert.Contains(t, err.Error(), "unload failed")
	assert.Equal(t, int32(1), secondary.releases.Load())
	assert.Equal(t, int32(1), primary.releases.Load())
}

func TestSetMode(t *testing.T) {
	r := newRouter(t, ModeHybrid, nil, nil)
	require.NoError(t, r.SetMode(ModeRuleBasedOnly))
	assert.Equal(t, ModeRuleBasedOnly, r.Mode())
	assert.Error(t, r.SetMode(Mode(-1)))
}

// =============================================================================
// CONCURRENCY AND DETERMINISM
// =============================================================================

func TestStatsConsistentUnderConcurrency(t *testing.T) {
	primary := newFake("primary", true)
	r := newRouter(t, ModeHybrid, nil, primary)

	inputs := []string{confidentInput, vagueInput}
	var wg sync.WaitGroup
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			resp := r.Complete(context.Background(), classify(inputs[i%2]))
			assert.True(t, resp.Success)
		}(i)
	}
	wg.Wait()

	s := r.Stats()
	assert.Equal(t, uint64(64), s.TotalRequests)
	assert.Equal(t, s.TotalRequests, s.RuleBasedDirect+s.EscalatedSuccess+s.EscalatedFailure+s.EscalationSkipped)
	assert.Equal(t, uint64(32), s.RuleBasedDirect)
	assert.Equal(t, uint64(32), s.EscalatedSuccess)
	assert.InDelta(t, 0.5, s.EscalationRate(), 1e-9)
	assert.Contains(t, s.String(), "total=64")
}

func TestRoutingIsDeterministic(t *testing.T) {
	r := newRouter(t, ModeRuleBasedOnly, nil, nil)
	first := r.Complete(context.Background(), classify("Client invoice due today"))
	for i := 0; i < 20; i++ {
		again := r.Complete(context.Background(), classify("Client invoice due today"))
		a, _ := first.Classification()
		b, _ := again.Classification()
		assert.Equal(t, a.Quadrant, b.Quadrant)
		assert.Equal(t, a.Confidence, b.Confidence)
	}
}

func TestConfidenceAlwaysInRange(t *testing.T) {
	primary := newFake("primary", true)
	primary.confidence = -3
	r := newRouter(t, ModeHybrid, nil, primary)
	for _, in := range []string{confidentInput, vagueInput, "Pay rent", "Call mom ASAP!!!"} {
		resp := r.Complete(context.Background(), classify(in))
		c := resp.Confidence()
		assert.GreaterOrEqual(t, c, 0.0)
		assert.LessOrEqual(t, c, 1.0)
	}
}

// =============================================================================
// STREAM
// =============================================================================

func TestStreamFromModelTier(t *testing.T) {
	primary := streamingFake{newFake("primary", true)}
	primary.stream = []string{"Sure, ", "here it is."}
	r := newRouter(t, ModeHybrid, nil, primary)

	ch, err := r.Stream(context.Background(), ai.NewRequest(ai.OpChat, vagueInput))
	require.NoError(t, err)

	var b strings.Builder
	var last ai.StreamChunk
	for c := range ch {
		b.WriteString(c.Text)
		last = c
	}
	assert.True(t, last.Done)
	assert.Equal(t, "Sure, here it is.", b.String())
	assert.Equal(t, uint64(1), r.Stats().EscalatedSuccess)
}

func TestStreamRuleDirectIsSingleChunk(t *testing.T) {
	primary := streamingFake{newFake("primary", true)}
	r := newRouter(t, ModeHybrid, nil, primary)

	ch, err := r.Stream(context.Background(), classify(confidentInput))
	require.NoError(t, err)

	var chunks []ai.StreamChunk
	for c := range ch {
		chunks = append(chunks, c)
	}
	require.Len(t, chunks, 2)
	assert.True(t, strings.HasPrefix(chunks[0].Text, string(ai.QuadrantDoFirst)))
	assert.True(t, chunks[1].Done)
	assert.Zero(t, primary.calls.Load())
}

func TestStreamRejectsInvalidRequest(t *testing.T) {
	r := newRouter(t, ModeHybrid, nil, nil)
	_, err := r.Stream(context.Background(), classify(""))
	assert.ErrorIs(t, err, ai.ErrInvalidRequest)
}

// failingOnDevice returns an initialized on-device tier whose native
// generation always fails.
func failingOnDevice(t *testing.T) *ondevice.Provider {
	t.Helper()
	fake := enginetest.ReplyWith("never produced")
	fake.GenerateErr = errors.New("native boom")
	path := filepath.Join(t.TempDir(), "qwen2.5-0.5b-instruct-q4_k_m.gguf")
	require.NoError(t, os.WriteFile(path, []byte("GGUF"), 0o600))

	p := ondevice.New(engine.New(engine.WithBackend(fake)), ondevice.Config{ModelPath: path})
	require.NoError(t, p.Initialize(context.Background()))
	require.True(t, p.Availability().Get())
	t.Cleanup(func() { _ = p.Release() })
	return p
}

func drain(ch <-chan ai.StreamChunk) []ai.StreamChunk {
	var chunks []ai.StreamChunk
	for c := range ch {
		chunks = append(chunks, c)
	}
	return chunks
}

func TestStreamFailureFallsBackToRuleAnswer(t *testing.T) {
	r := newRouter(t, ModeHybrid, nil, failingOnDevice(t))
	ctx := context.Background()

	req := classify(vagueInput)
	req.Options.MinConfidence = 0.99
	resp := r.Complete(ctx, req)
	require.True(t, resp.Success)
	assert.Equal(t, rules.ProviderID, resp.Metadata.ProviderID)
	assert.Equal(t, ai.RouteFallback, resp.Metadata.Route)

	req = classify(vagueInput)
	req.Options.MinConfidence = 0.99
	ch, err := r.Stream(ctx, req)
	require.NoError(t, err)
	chunks := drain(ch)

	require.NotEmpty(t, chunks)
	for _, c := range chunks {
		assert.NoError(t, c.Err)
	}
	last := chunks[len(chunks)-1]
	assert.True(t, last.Done)

	var fallback []ai.StreamChunk
	for _, c := range chunks {
		if c.Fallback {
			fallback = append(fallback, c)
		}
	}
	require.Len(t, fallback, 1)
	assert.Equal(t, ai.ResultText(resp.Result), fallback[0].Text)

	stats := r.Stats()
	assert.Equal(t, uint64(2), stats.EscalatedFailure, "stream and complete take the same path")
	assert.Zero(t, stats.EscalatedSuccess)
	assert.Equal(t, uint64(2), stats.TotalRequests)
}

func TestStreamFailureWithoutRuleFallback(t *testing.T) {
	r := newRouter(t, ModeHybrid, nil, failingOnDevice(t))

	req := classify(vagueInput)
	req.Options.MinConfidence = 0.99
	req.Options.AllowRuleFallback = false
	ch, err := r.Stream(context.Background(), req)
	require.NoError(t, err)
	chunks := drain(ch)

	require.NotEmpty(t, chunks)
	last := chunks[len(chunks)-1]
	assert.False(t, last.Done)
	assert.ErrorIs(t, last.Err, ai.ErrAllTiersFailed)
	assert.Equal(t, uint64(1), r.Stats().EscalatedFailure)
}

func TestStreamModelOnlyFailureFallsBack(t *testing.T) {
	r := newRouter(t, ModeModelOnly, nil, failingOnDevice(t))

	ch, err := r.Stream(context.Background(), classify(vagueInput))
	require.NoError(t, err)
	chunks := drain(ch)

	require.GreaterOrEqual(t, len(chunks), 2)
	assert.True(t, chunks[len(chunks)-2].Fallback)
	assert.True(t, chunks[len(chunks)-1].Done)
	assert.Equal(t, uint64(1), r.Stats().EscalatedFailure)
}
