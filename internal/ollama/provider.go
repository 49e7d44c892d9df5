// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ollama

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/jeranaias/jeeves/internal/ai"
	"github.com/jeranaias/jeeves/internal/prompt"
)

// ProviderID is the registry key of the secondary tier.
const ProviderID = "ollama-secondary"

// DefaultModel is a small instruct model that fits next to the primary tier.
const DefaultModel = "qwen2.5:0.5b"

// secondaryCapabilities are the operations a sub-billion parameter model
// answers well. Goal and briefing generation stay with the primary tier.
var secondaryCapabilities = ai.CapabilitiesOf(
	ai.OpClassifyPriority,
	ai.OpParseTask,
	ai.OpExtractActionItems,
	ai.OpSummarize,
	ai.OpChat,
)

// ProviderConfig configures the secondary tier.
type ProviderConfig struct {
	Client ClientConfig
	Model  string

	// Generation defaults for requests that leave options at zero.
	MaxTokens   int
	Temperature float64
	ContextSize int
}

// Provider is the lightweight secondary tier backed by a model served by the
// local daemon.
type Provider struct {
	cfg      ProviderConfig
	client   *Client
	template prompt.Template
	avail    *ai.Availability
}

// NewProvider creates an unavailable provider; Initialize probes the daemon.
func NewProvider(cfg ProviderConfig) *Provider {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 256
	}
	if cfg.Temperature <= 0 {
		cfg.Temperature = 0.1
	}
	return &Provider{
		cfg:      cfg,
		client:   NewClient(cfg.Client),
		template: prompt.Lookup(cfg.Model),
		avail:    ai.NewAvailability(false),
	}
}

// ID implements ai.Provider.
func (p *Provider) ID() string { return ProviderID }

// Capabilities implements ai.Provider.
func (p *Provider) Capabilities() ai.Capabilities { return secondaryCapabilities }

// Availability implements ai.Provider.
func (p *Provider) Availability() *ai.Availability { return p.avail }

// Model returns the served model name.
func (p *Provider) Model() string { return p.cfg.Model }

// Client exposes the daemon client.
func (p *Provider) Client() *Client { return p.client }

// Initialize checks that the daemon answers on loopback and that the model
// is pulled. Any failure leaves the provider unavailable.
func (p *Provider) Initialize(ctx context.Context) error {
	if err := p.client.CheckRunning(ctx); err != nil {
		p.avail.Set(false)
		return ai.NewError(ai.CodeProviderUnavailable, "secondary daemon at "+p.client.BaseURL(), err)
	}
	ok, err := p.client.ModelExists(ctx, p.cfg.Model)
	if err != nil {
		p.avail.Set(false)
		return ai.NewError(ai.CodeProviderUnavailable, "secondary model lookup", err)
	}
	if !ok {
		p.avail.Set(false)
		return ai.Errorf(ai.CodeModelNotFound, "secondary model %s is not pulled", p.cfg.Model)
	}
	p.avail.Set(true)
	log.Printf("SECONDARY | ready model=%s url=%s", p.cfg.Model, p.client.BaseURL())
	return nil
}

// Release implements ai.Provider. The daemon owns the model; nothing is freed.
func (p *Provider) Release() error {
	p.avail.Set(false)
	return nil
}

func (p *Provider) request(req *ai.Request) GenerateRequest {
	opts := &Options{
		Temperature: req.Options.Temperature,
		TopP:        req.Options.TopP,
		NumPredict:  req.Options.MaxTokens,
		NumCtx:      p.cfg.ContextSize,
	}
	if opts.Temperature <= 0 {
		opts.Temperature = p.cfg.Temperature
	}
	if opts.NumPredict <= 0 {
		opts.NumPredict = p.cfg.MaxTokens
	}
	if opts.TopP <= 0 || opts.TopP > 1 {
		opts.TopP = 0
	}
	gr := GenerateRequest{
		Model:   p.cfg.Model,
		Prompt:  prompt.Render(p.template, req),
		Raw:     true,
		Options: opts,
	}
	if req.Operation != ai.OpChat {
		gr.Format = "json"
	}
	return gr
}

// check returns the reason a request cannot run, or nil.
func (p *Provider) check(req *ai.Request) error {
	if err := req.Validate(); err != nil {
		return err
	}
	if !secondaryCapabilities.Has(req.Operation) {
		return ai.Errorf(ai.CodeUnsupportedOperation, "%s does not handle %s", ProviderID, req.Operation)
	}
	if !p.avail.Get() {
		return ai.ErrProviderUnavailable
	}
	return nil
}

// generationError maps a client failure and drops availability when the
// daemon has gone away.
func (p *Provider) generationError(err error) error {
	if IsNotRunning(err) {
		p.avail.Set(false)
		return ai.NewError(ai.CodeProviderUnavailable, "secondary daemon stopped", err)
	}
	if IsModelNotFound(err) {
		p.avail.Set(false)
		return ai.NewError(ai.CodeModelNotFound, "secondary model removed", err)
	}
	return ai.NewError(ai.CodeGenerationFailed, "secondary generation", err)
}

// Complete implements ai.Provider.
func (p *Provider) Complete(ctx context.Context, req *ai.Request) *ai.Response {
	start := time.Now()
	if err := p.check(req); err != nil {
		return p.finish(ai.Fail(req, ProviderID, err), start, nil)
	}

	out, err := p.client.Generate(ctx, p.request(req))
	if err != nil {
		log.Printf("SECONDARY | op=%s failed err=%v", req.Operation, err)
		return p.finish(ai.Fail(req, ProviderID, p.generationError(err)), start, nil)
	}

	result, err := prompt.Parse(req.Operation, out.Response)
	if err != nil {
		return p.finish(ai.Fail(req, ProviderID, err), start, out)
	}
	resp := p.finish(ai.Succeed(req, ProviderID, result), start, out)
	log.Printf("SECONDARY | op=%s tokens=%d tps=%.1f confidence=%.2f",
		req.Operation, out.EvalCount, out.TokensPerSecond(), resp.Confidence())
	return resp
}

func (p *Provider) finish(resp *ai.Response, start time.Time, out *GenerateResponse) *ai.Response {
	resp.Metadata.ModelID = p.cfg.Model
	resp.Metadata.Latency = time.Since(start)
	if out != nil {
		resp.Metadata.PromptTokens = out.PromptEvalCount
		resp.Metadata.CompletionTokens = out.EvalCount
	}
	return resp
}

// Stream implements ai.Streamer.
func (p *Provider) Stream(ctx context.Context, req *ai.Request) (<-chan ai.StreamChunk, error) {
	if err := p.check(req); err != nil {
		return nil, err
	}
	gr := p.request(req)
	ch := make(chan ai.StreamChunk, 64)

	go func() {
		defer close(ch)
		send := func(c ai.StreamChunk) {
			select {
			case ch <- c:
			case <-ctx.Done():
			}
		}
		err := p.client.GenerateStream(ctx, gr, func(chunk GenerateResponse) {
			if chunk.Response != "" {
				send(ai.StreamChunk{Text: chunk.Response})
			}
		})
		if err != nil {
			send(ai.StreamChunk{Err: p.generationError(err)})
			return
		}
		send(ai.StreamChunk{Done: true})
	}()
	return ch, nil
}

func (p *Provider) String() string {
	return fmt.Sprintf("%s(%s @ %s)", ProviderID, p.cfg.Model, p.client.BaseURL())
}

var (
	_ ai.Provider = (*Provider)(nil)
	_ ai.Streamer = (*Provider)(nil)
)
