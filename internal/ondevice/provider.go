// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ondevice

import (
	"context"
	"log"
	"path/filepath"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/jeranaias/jeeves/internal/ai"
	"github.com/jeranaias/jeeves/internal/engine"
	"github.com/jeranaias/jeeves/internal/prompt"
)

// ProviderID is the registry key of the on-device model tier.
const ProviderID = "on-device"

// streamBuffer is the channel capacity between the piece queue and the reader.
const streamBuffer = 64

// Config configures the on-device provider.
type Config struct {
	// ModelPath is loaded by Initialize when set.
	ModelPath   string
	ContextSize int
	Threads     int

	// Generation defaults for requests that leave options at zero.
	MaxTokens   int
	Temperature float64
	TopP        float64
}

// loadedModel is swapped atomically on every successful load.
type loadedModel struct {
	id       string
	template prompt.Template
}

// Provider runs requests through the native engine.
type Provider struct {
	cfg   Config
	eng   *engine.Engine
	avail *ai.Availability
	model atomic.Pointer[loadedModel]
	group singleflight.Group
}

// New creates a provider over eng. The provider starts unavailable.
func New(eng *engine.Engine, cfg Config) *Provider {
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = engine.DefaultMaxTokens
	}
	if cfg.Temperature <= 0 {
		cfg.Temperature = 0.1
	}
	if cfg.TopP <= 0 {
		cfg.TopP = 0.9
	}
	return &Provider{cfg: cfg, eng: eng, avail: ai.NewAvailability(false)}
}

// ID implements ai.Provider.
func (p *Provider) ID() string { return ProviderID }

// Capabilities implements ai.Provider.
func (p *Provider) Capabilities() ai.Capabilities { return ai.AllCapabilities() }

// Availability implements ai.Provider. True iff a model is loaded and the
// engine is not in stub mode.
func (p *Provider) Availability() *ai.Availability { return p.avail }

// Engine exposes the underlying engine for metrics.
func (p *Provider) Engine() *engine.Engine { return p.eng }

// ModelID returns the id of the loaded model, or "".
func (p *Provider) ModelID() string {
	if m := p.model.Load(); m != nil {
		return m.id
	}
	return ""
}

func (p *Provider) refresh() {
	p.avail.Set(p.eng.IsLoaded() && !p.eng.IsStub())
}

// Initialize initializes the engine and loads the configured model.
// Concurrent calls share one initialization.
func (p *Provider) Initialize(ctx context.Context) error {
	_, err, _ := p.group.Do("init", func() (any, error) {
		return nil, p.initialize()
	})
	return err
}

func (p *Provider) initialize() error {
	defer p.refresh()

	if err := p.eng.Initialize(); err != nil {
		return err
	}
	if p.eng.IsStub() {
		return ai.NewError(ai.CodeBackendUnavailable, "on-device engine has no native backend", nil)
	}
	if p.cfg.ModelPath == "" {
		return nil
	}
	if p.eng.IsLoaded() && p.eng.ModelPath() == p.cfg.ModelPath {
		return nil
	}
	res := p.load(p.cfg.ModelPath)
	return res.Err
}

// LoadModel loads or replaces the model and updates availability.
func (p *Provider) LoadModel(path string) engine.LoadResult {
	v, _, _ := p.group.Do("load:"+path, func() (any, error) {
		return p.load(path), nil
	})
	p.refresh()
	return v.(engine.LoadResult)
}

func (p *Provider) load(path string) engine.LoadResult {
	res := p.eng.LoadModel(path, p.cfg.ContextSize, p.cfg.Threads)
	if res.Success {
		id := filepath.Base(path)
		p.model.Store(&loadedModel{id: id, template: prompt.Lookup(id)})
		log.Printf("ONDEVICE | model=%s family=%s", id, prompt.Lookup(id).Family)
	}
	return res
}

// Unload frees the model; the provider becomes unavailable.
func (p *Provider) Unload() {
	p.eng.Unload()
	p.model.Store(nil)
	p.refresh()
}

// Release implements ai.Provider.
func (p *Provider) Release() error {
	p.eng.Cleanup()
	p.model.Store(nil)
	p.refresh()
	return nil
}

// unavailable explains why no generation can run.
func (p *Provider) unavailable() error {
	switch {
	case p.eng.IsStub():
		return ai.NewError(ai.CodeBackendUnavailable, "on-device engine has no native backend", nil)
	case !p.eng.IsLoaded():
		return ai.ErrModelNotLoaded
	default:
		return ai.ErrProviderUnavailable
	}
}

func (p *Provider) params(req *ai.Request) engine.GenerateParams {
	gp := engine.GenerateParams{
		MaxTokens:   req.Options.MaxTokens,
		Temperature: req.Options.Temperature,
		TopP:        req.Options.TopP,
	}
	if gp.MaxTokens <= 0 {
		gp.MaxTokens = p.cfg.MaxTokens
	}
	if gp.Temperature <= 0 {
		gp.Temperature = p.cfg.Temperature
	}
	if gp.TopP <= 0 || gp.TopP > 1 {
		gp.TopP = p.cfg.TopP
	}
	return gp
}

// Complete implements ai.Provider.
func (p *Provider) Complete(ctx context.Context, req *ai.Request) *ai.Response {
	start := time.Now()
	if err := req.Validate(); err != nil {
		return p.finish(ai.Fail(req, ProviderID, err), start, 0)
	}
	m := p.model.Load()
	if !p.avail.Get() || m == nil {
		return p.finish(ai.Fail(req, ProviderID, p.unavailable()), start, 0)
	}

	out := p.eng.Generate(ctx, prompt.Render(m.template, req), p.params(req))
	if out.Err != nil {
		log.Printf("ONDEVICE | op=%s generate failed err=%v", req.Operation, out.Err)
		return p.finish(ai.Fail(req, ProviderID, out.Err), start, out.TokensGenerated)
	}

	result, err := prompt.Parse(req.Operation, out.Text)
	if err != nil {
		log.Printf("ONDEVICE | op=%s parse failed tokens=%d err=%v", req.Operation, out.TokensGenerated, err)
		return p.finish(ai.Fail(req, ProviderID, err), start, out.TokensGenerated)
	}

	resp := p.finish(ai.Succeed(req, ProviderID, result), start, out.TokensGenerated)
	log.Printf("ONDEVICE | op=%s tokens=%d ms=%d confidence=%.2f",
		req.Operation, out.TokensGenerated, resp.Metadata.Latency.Milliseconds(), resp.Confidence())
	return resp
}

func (p *Provider) finish(resp *ai.Response, start time.Time, tokens int) *ai.Response {
	resp.Metadata.ModelID = p.ModelID()
	resp.Metadata.Latency = time.Since(start)
	resp.Metadata.CompletionTokens = tokens
	return resp
}

// Stream implements ai.Streamer. The native generation never waits on the
// reader: pieces queue without bound and are dropped once ctx is done, and
// the generation runs to completion either way.
func (p *Provider) Stream(ctx context.Context, req *ai.Request) (<-chan ai.StreamChunk, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	m := p.model.Load()
	if !p.avail.Get() || m == nil {
		return nil, p.unavailable()
	}

	text := prompt.Render(m.template, req)
	params := p.params(req)
	ch := make(chan ai.StreamChunk, streamBuffer)
	q := newChunkQueue()

	go q.deliver(ctx, ch)
	go func() {
		defer q.close()
		out := p.eng.GenerateStream(ctx, text, params, func(piece string) {
			q.push(ai.StreamChunk{Text: piece})
		})
		if out.Err != nil {
			q.push(ai.StreamChunk{Err: out.Err})
			return
		}
		q.push(ai.StreamChunk{Done: true})
	}()
	return ch, nil
}

var (
	_ ai.Provider = (*Provider)(nil)
	_ ai.Streamer = (*Provider)(nil)
)
