// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package router

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jeranaias/jeeves/internal/ai"
	"github.com/jeranaias/jeeves/internal/util"
)

// ProviderID is the id the router reports when used as a provider.
const ProviderID = "router"

// logInputRunes bounds the request text echoed into routing logs.
const logInputRunes = 50

// ErrNoRuleTier is returned by New when the rule tier is missing.
var ErrNoRuleTier = errors.New("router: rule-based tier is required")

// Config wires the tiers. Secondary and Primary may be nil.
type Config struct {
	Rules     ai.Provider
	Secondary ai.Provider
	Primary   ai.Provider
	Mode      Mode
}

// tier pairs a provider with its chain position.
type tier struct {
	pos Tier
	id  string
	p   ai.Provider
}

// Router runs the tiered fallback chain. It implements ai.Provider so it can
// stand in anywhere a single provider is expected. All mutable state is
// atomic; concurrent calls never contend on a router lock.
type Router struct {
	tiers    map[Tier]*tier
	registry map[string]*tier
	order    []*tier

	mode  atomic.Int32
	stats counters
	avail *ai.Availability

	secondaryOnce sync.Once
}

// New creates a router. The rule tier is mandatory.
func New(cfg Config) (*Router, error) {
	if cfg.Rules == nil {
		return nil, ErrNoRuleTier
	}
	if !cfg.Mode.Valid() {
		return nil, fmt.Errorf("router: invalid mode %d", int32(cfg.Mode))
	}

	r := &Router{
		tiers:    make(map[Tier]*tier, 3),
		registry: make(map[string]*tier, 3),
		avail:    ai.NewAvailability(true),
	}
	for _, t := range []struct {
		pos Tier
		p   ai.Provider
	}{
		{TierRule, cfg.Rules},
		{TierSecondary, cfg.Secondary},
		{TierPrimary, cfg.Primary},
	} {
		if t.p == nil {
			continue
		}
		entry := &tier{pos: t.pos, id: t.p.ID(), p: t.p}
		if _, dup := r.registry[entry.id]; dup {
			return nil, fmt.Errorf("router: duplicate provider id %q", entry.id)
		}
		r.tiers[t.pos] = entry
		r.registry[entry.id] = entry
		r.order = append(r.order, entry)
	}
	r.mode.Store(int32(cfg.Mode))
	return r, nil
}

// =============================================================================
// REGISTRY AND STATE
// =============================================================================

// ID implements ai.Provider.
func (r *Router) ID() string { return ProviderID }

// Capabilities implements ai.Provider: the union of every tier.
func (r *Router) Capabilities() ai.Capabilities {
	var c ai.Capabilities
	for _, t := range r.order {
		c = c.Union(t.p.Capabilities())
	}
	return c
}

// Availability implements ai.Provider. The router is available as long as
// its rule tier is, which is always.
func (r *Router) Availability() *ai.Availability { return r.avail }

// Provider looks up a tier by provider id.
func (r *Router) Provider(id string) (ai.Provider, bool) {
	t, ok := r.registry[id]
	if !ok {
		return nil, false
	}
	return t.p, true
}

// Providers returns the configured tiers, lightest first.
func (r *Router) Providers() []ai.Provider {
	out := make([]ai.Provider, len(r.order))
	for i, t := range r.order {
		out[i] = t.p
	}
	return out
}

// Mode returns the current routing mode.
func (r *Router) Mode() Mode { return Mode(r.mode.Load()) }

// SetMode replaces the routing mode.
func (r *Router) SetMode(m Mode) error {
	if !m.Valid() {
		return fmt.Errorf("router: invalid mode %d", int32(m))
	}
	r.mode.Store(int32(m))
	return nil
}

// Stats returns a snapshot of the routing counters.
func (r *Router) Stats() Stats { return r.stats.snapshot() }

// =============================================================================
// LIFECYCLE
// =============================================================================

// Initialize brings up the rule and primary tiers, then probes the secondary
// tier once per router. A nil error from the secondary upgrades plain hybrid
// to hybrid_secondary. Only a rule tier failure is returned.
func (r *Router) Initialize(ctx context.Context) error {
	if err := guardInit(ctx, r.tiers[TierRule]); err != nil {
		return fmt.Errorf("router: rule tier: %w", err)
	}
	if t := r.tiers[TierPrimary]; t != nil {
		if err := guardInit(ctx, t); err != nil {
			log.Printf("ROUTING | init tier=primary provider=%s err=%v", t.id, err)
		}
	}
	r.secondaryOnce.Do(func() {
		t := r.tiers[TierSecondary]
		if t == nil {
			return
		}
		if err := guardInit(ctx, t); err != nil {
			log.Printf("ROUTING | init tier=secondary provider=%s err=%v mode=%s", t.id, err, r.Mode())
			return
		}
		if r.mode.CompareAndSwap(int32(ModeHybrid), int32(ModeHybridSecondary)) {
			log.Printf("ROUTING | mode upgraded %s -> %s", ModeHybrid, ModeHybridSecondary)
		}
	})
	return nil
}

// Release releases every tier, heaviest first. A failing or panicking tier
// does not stop the others; all errors are joined.
func (r *Router) Release() error {
	var errs []error
	for i := len(r.order) - 1; i >= 0; i-- {
		t := r.order[i]
		if err := guardRelease(t); err != nil {
			log.Printf("ROUTING | release provider=%s err=%v", t.id, err)
			errs = append(errs, fmt.Errorf("%s: %w", t.id, err))
		}
	}
	return errors.Join(errs...)
}

func guardInit(ctx context.Context, t *tier) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = ai.Errorf(ai.CodeProviderPanic, "%s initialize panicked: %v", t.id, rec)
		}
	}()
	return t.p.Initialize(ctx)
}

func guardRelease(t *tier) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = ai.Errorf(ai.CodeProviderPanic, "%s release panicked: %v", t.id, rec)
		}
	}()
	return t.p.Release()
}

// =============================================================================
// COMPLETE
// =============================================================================

// call invokes one tier and converts panics and nil responses into typed
// failures.
func call(ctx context.Context, t *tier, req *ai.Request) (resp *ai.Response) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Printf("ROUTING | provider=%s panic=%v", t.id, rec)
			resp = ai.Fail(req, t.id, ai.Errorf(ai.CodeProviderPanic, "%s panicked: %v", t.id, rec))
		}
	}()
	resp = t.p.Complete(ctx, req)
	switch {
	case resp == nil:
		resp = ai.Fail(req, t.id, ai.Errorf(ai.CodeGenerationFailed, "%s returned no response", t.id))
	case resp.Success && resp.Result == nil:
		resp = ai.Fail(req, t.id, ai.Errorf(ai.CodeGenerationFailed, "%s reported success without a result", t.id))
	case resp.Success:
		resp.Result.Normalize()
	}
	return resp
}

// usable reports whether a tier can take req right now.
func usable(t *tier, op ai.Operation) (ok bool) {
	if t == nil {
		return false
	}
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()
	return t.p.Capabilities().Has(op) && t.p.Availability().Get()
}

// decision collects what one call did, for the routing log line.
type decision struct {
	mode      Mode
	outcome   outcome
	tier      string
	attempted []string
	ruleConf  float64
}

// Complete implements ai.Provider. It never returns nil and never panics on
// a misbehaving tier.
func (r *Router) Complete(ctx context.Context, req *ai.Request) *ai.Response {
	start := time.Now()
	d := &decision{mode: r.Mode()}

	var resp *ai.Response
	if err := req.Validate(); err != nil {
		d.outcome = outcomeSkipped
		resp = ai.Fail(req, ProviderID, err)
	} else {
		resp = r.route(ctx, req, d)
	}

	resp.Metadata.Latency = time.Since(start)
	r.stats.record(d.outcome)
	r.logDecision(req, resp, d)
	return resp
}

func (r *Router) route(ctx context.Context, req *ai.Request, d *decision) *ai.Response {
	switch d.mode {
	case ModeRuleBasedOnly:
		return r.ruleOnly(ctx, req, d)
	case ModeModelOnly:
		return r.modelOnly(ctx, req, d)
	default:
		return r.hybrid(ctx, req, d)
	}
}

func (r *Router) ruleOnly(ctx context.Context, req *ai.Request, d *decision) *ai.Response {
	resp := call(ctx, r.tiers[TierRule], req)
	d.outcome, d.tier = outcomeRuleDirect, resp.Metadata.ProviderID
	d.ruleConf = resp.Confidence()
	resp.Metadata.Route = ai.RouteRuleDirect
	return resp
}

func (r *Router) modelOnly(ctx context.Context, req *ai.Request, d *decision) *ai.Response {
	primary := r.tiers[TierPrimary]
	var lastErr error

	if usable(primary, req.Operation) {
		d.attempted = append(d.attempted, primary.id)
		resp := call(ctx, primary, req)
		if resp.Success {
			d.outcome, d.tier = outcomeEscalatedSuccess, primary.id
			resp.Metadata.Route = ai.RouteModelOnly
			return resp
		}
		d.outcome = outcomeEscalatedFailure
		lastErr = resp.Err()
	} else {
		d.outcome = outcomeSkipped
		lastErr = ai.ErrProviderUnavailable
	}

	if !req.Options.AllowRuleFallback {
		return ai.Fail(req, ProviderID, ai.NewError(ai.CodeAllTiersFailed, "primary tier failed and rule fallback is disabled", lastErr))
	}
	rule := call(ctx, r.tiers[TierRule], req)
	d.ruleConf = rule.Confidence()
	if !rule.Success {
		return ai.Fail(req, ProviderID, ai.NewError(ai.CodeAllTiersFailed, "no tier produced a result", errors.Join(lastErr, rule.Err())))
	}
	d.tier = rule.Metadata.ProviderID
	rule.Metadata.Route = ai.RouteFallback
	rule.Metadata.IsLLMFallback = true
	return rule
}

func (r *Router) hybrid(ctx context.Context, req *ai.Request, d *decision) *ai.Response {
	rule := call(ctx, r.tiers[TierRule], req)
	d.ruleConf = rule.Confidence()

	direct := rule.Success && rule.Confidence() >= req.Options.Threshold()
	if direct || !req.Options.AllowModelTiers {
		d.outcome, d.tier = outcomeRuleDirect, rule.Metadata.ProviderID
		rule.Metadata.Route = ai.RouteRuleDirect
		return rule
	}

	errs := []error{rule.Err()}
	for _, pos := range d.mode.escalation() {
		t := r.tiers[pos]
		if !usable(t, req.Operation) {
			continue
		}
		d.attempted = append(d.attempted, t.id)
		resp := call(ctx, t, req)
		if resp.Success {
			d.outcome, d.tier = outcomeEscalatedSuccess, t.id
			resp.Metadata.Route = ai.RouteEscalated
			return resp
		}
		errs = append(errs, resp.Err())
	}

	if len(d.attempted) > 0 {
		d.outcome = outcomeEscalatedFailure
	} else {
		d.outcome = outcomeSkipped
	}

	if rule.Success && req.Options.AllowRuleFallback {
		d.tier = rule.Metadata.ProviderID
		rule.Metadata.Route = ai.RouteFallback
		rule.Metadata.IsLLMFallback = true
		return rule
	}
	return ai.Fail(req, ProviderID, ai.NewError(ai.CodeAllTiersFailed, "no tier produced an acceptable result", errors.Join(errs...)))
}

func (r *Router) logDecision(req *ai.Request, resp *ai.Response, d *decision) {
	input := ""
	op := ai.Operation(0)
	if req != nil {
		input, op = req.Input, req.Operation
	}
	log.Printf("ROUTING | op=%s mode=%s input=%q rule_conf=%.2f attempted=%v -> outcome=%s tier=%s success=%t conf=%.2f ms=%d",
		op, d.mode, util.TruncateRunes(input, logInputRunes), d.ruleConf, d.attempted,
		d.outcome, d.tier, resp.Success, resp.Confidence(), resp.Metadata.Latency.Milliseconds())
}

// =============================================================================
// STREAM
// =============================================================================

// Stream implements ai.Streamer. When the call would escalate and a usable
// model tier can stream, its chunks are relayed and the outcome is recorded
// when the stream ends. A tier stream that fails is followed by the rule
// answer in a Fallback chunk. Otherwise the answer from Complete is delivered
// as a single chunk.
func (r *Router) Stream(ctx context.Context, req *ai.Request) (<-chan ai.StreamChunk, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	d := &decision{mode: r.Mode()}
	if t, rule := r.streamTier(ctx, req, d); t != nil {
		in, err := guardStream(ctx, t, req)
		if err == nil {
			log.Printf("ROUTING | op=%s mode=%s -> stream tier=%s", req.Operation, d.mode, t.id)
			out := make(chan ai.StreamChunk, streamRelayBuffer)
			go r.relay(ctx, req, t, rule, d, in, out)
			return out, nil
		}
		log.Printf("ROUTING | stream provider=%s err=%v", t.id, err)
	}

	resp := r.Complete(ctx, req)
	ch := make(chan ai.StreamChunk, 2)
	if resp.Success {
		ch <- ai.StreamChunk{Text: ai.ResultText(resp.Result), Fallback: resp.Metadata.Route == ai.RouteFallback}
		ch <- ai.StreamChunk{Done: true}
	} else {
		ch <- ai.StreamChunk{Err: resp.Err()}
	}
	close(ch)
	return ch, nil
}

// streamRelayBuffer is the channel capacity of a relayed tier stream.
const streamRelayBuffer = 16

// relay forwards a tier stream to out and settles the call once the tier
// stream ends. Exactly one outcome is recorded. The tier stream is always
// drained, even after ctx is done.
func (r *Router) relay(ctx context.Context, req *ai.Request, t *tier, rule *ai.Response, d *decision, in <-chan ai.StreamChunk, out chan<- ai.StreamChunk) {
	defer close(out)
	start := time.Now()
	send := func(c ai.StreamChunk) {
		select {
		case out <- c:
		case <-ctx.Done():
		}
	}

	var (
		streamErr error
		done      bool
	)
	for c := range in {
		switch {
		case streamErr != nil || done:
		case c.Err != nil:
			streamErr = c.Err
		case c.Done:
			done = true
		default:
			send(ai.StreamChunk{Text: c.Text})
		}
	}
	if streamErr == nil && !done {
		streamErr = ai.Errorf(ai.CodeGenerationFailed, "%s stream ended without completing", t.id)
	}

	d.attempted = append(d.attempted, t.id)
	if streamErr == nil {
		d.outcome, d.tier = outcomeEscalatedSuccess, t.id
		r.stats.record(d.outcome)
		r.logStream(req, d, start, nil)
		send(ai.StreamChunk{Done: true})
		return
	}

	d.outcome = outcomeEscalatedFailure
	if req.Options.AllowRuleFallback && rule == nil {
		rule = call(ctx, r.tiers[TierRule], req)
		d.ruleConf = rule.Confidence()
	}
	r.stats.record(d.outcome)
	if !req.Options.AllowRuleFallback || !rule.Success {
		err := ai.NewError(ai.CodeAllTiersFailed, "model stream failed and no rule answer is usable", streamErr)
		r.logStream(req, d, start, err)
		send(ai.StreamChunk{Err: err})
		return
	}
	d.tier = rule.Metadata.ProviderID
	r.logStream(req, d, start, streamErr)
	send(ai.StreamChunk{Text: ai.ResultText(rule.Result), Fallback: true})
	send(ai.StreamChunk{Done: true})
}

func (r *Router) logStream(req *ai.Request, d *decision, start time.Time, err error) {
	log.Printf("ROUTING | stream op=%s mode=%s input=%q rule_conf=%.2f attempted=%v -> outcome=%s tier=%s err=%v ms=%d",
		req.Operation, d.mode, util.TruncateRunes(req.Input, logInputRunes), d.ruleConf, d.attempted,
		d.outcome, d.tier, err, time.Since(start).Milliseconds())
}

// streamTier picks the first streaming tier the escalation path would use.
// In hybrid modes it also returns the rule response it consulted.
func (r *Router) streamTier(ctx context.Context, req *ai.Request, d *decision) (*tier, *ai.Response) {
	var (
		chain []Tier
		rule  *ai.Response
	)
	switch d.mode {
	case ModeRuleBasedOnly:
		return nil, nil
	case ModeModelOnly:
		chain = []Tier{TierPrimary}
	default:
		if !req.Options.AllowModelTiers {
			return nil, nil
		}
		rule = call(ctx, r.tiers[TierRule], req)
		d.ruleConf = rule.Confidence()
		if rule.Success && rule.Confidence() >= req.Options.Threshold() {
			return nil, nil
		}
		chain = d.mode.escalation()
	}
	for _, pos := range chain {
		t := r.tiers[pos]
		if !usable(t, req.Operation) {
			continue
		}
		if _, ok := t.p.(ai.Streamer); ok {
			return t, rule
		}
	}
	return nil, nil
}

func guardStream(ctx context.Context, t *tier, req *ai.Request) (ch <-chan ai.StreamChunk, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			ch, err = nil, ai.Errorf(ai.CodeProviderPanic, "%s stream panicked: %v", t.id, rec)
		}
	}()
	return t.p.(ai.Streamer).Stream(ctx, req)
}

var (
	_ ai.Provider = (*Router)(nil)
	_ ai.Streamer = (*Router)(nil)
)
