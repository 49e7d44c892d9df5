// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"strings"

	"github.com/jeranaias/jeeves/internal/ai"
	"github.com/jeranaias/jeeves/internal/config"
	"github.com/jeranaias/jeeves/internal/detect"
	"github.com/jeranaias/jeeves/internal/engine"
	"github.com/jeranaias/jeeves/internal/offline"
	"github.com/jeranaias/jeeves/internal/ollama"
	"github.com/jeranaias/jeeves/internal/ondevice"
	"github.com/jeranaias/jeeves/internal/router"
	"github.com/jeranaias/jeeves/internal/rules"
)

// =============================================================================
// PROVIDER STACK
// =============================================================================

// Stack is the full set of tiers built from one configuration.
type Stack struct {
	Config    *config.Config
	Host      *detect.HostInfo
	Rules     *rules.Provider
	OnDevice  *ondevice.Provider
	Secondary *ollama.Provider // nil when disabled
	Router    *router.Router
}

// StackOption customizes NewStack.
type StackOption func(*stackOptions)

type stackOptions struct {
	engine *engine.Engine
	host   *detect.HostInfo
}

// WithEngine uses eng instead of an engine over the compiled-in backend.
func WithEngine(eng *engine.Engine) StackOption {
	return func(o *stackOptions) { o.engine = eng }
}

// WithHost skips host detection.
func WithHost(h *detect.HostInfo) StackOption {
	return func(o *stackOptions) { o.host = h }
}

// NewStack builds every tier and the router. Nothing is initialized yet;
// call Initialize before the first request.
func NewStack(cfg *config.Config, opts ...StackOption) (*Stack, error) {
	var o stackOptions
	for _, opt := range opts {
		opt(&o)
	}
	if o.host == nil {
		o.host = detect.DetectHostCached()
	}
	if o.engine == nil {
		o.engine = engine.New()
	}

	offline.SetOfflineMode(cfg.Routing.OfflineMode)

	threads := cfg.Engine.Threads
	if threads <= 0 {
		threads = detect.RecommendThreads(o.host)
	}
	if path := cfg.Engine.ModelPath; path != "" && o.host.MemoryMB > 0 {
		id := filepath.Base(path)
		if !detect.WillModelFit(id, cfg.Engine.ContextSize, o.host.MemoryMB) {
			log.Printf("ENGINE | model=%s est_mb=%d host_mb=%d may not fit in memory",
				id, detect.EstimateMemoryMB(id, cfg.Engine.ContextSize), o.host.MemoryMB)
		}
	}

	s := &Stack{
		Config: cfg,
		Host:   o.host,
		Rules:  rules.New(),
		OnDevice: ondevice.New(o.engine, ondevice.Config{
			ModelPath:   cfg.Engine.ModelPath,
			ContextSize: cfg.Engine.ContextSize,
			Threads:     threads,
			MaxTokens:   cfg.Generation.MaxTokens,
			Temperature: cfg.Generation.Temperature,
			TopP:        cfg.Generation.TopP,
		}),
	}

	rc := router.Config{Rules: s.Rules, Primary: s.OnDevice, Mode: cfg.RoutingMode()}
	if cfg.Secondary.Enabled {
		s.Secondary = ollama.NewProvider(ollama.ProviderConfig{
			Client:      cfg.OllamaClient(),
			Model:       cfg.Secondary.Model,
			MaxTokens:   cfg.Generation.MaxTokens,
			Temperature: cfg.Generation.Temperature,
			ContextSize: cfg.Engine.ContextSize,
		})
		rc.Secondary = s.Secondary
	}

	r, err := router.New(rc)
	if err != nil {
		return nil, err
	}
	s.Router = r
	return s, nil
}

// Initialize brings up the router and its tiers. Model tier failures are
// logged by the router and leave the rule tier serving.
func (s *Stack) Initialize(ctx context.Context) error {
	return s.Router.Initialize(ctx)
}

// Threads returns the configured or detected inference thread count.
func (s *Stack) Threads() int {
	if s.Config.Engine.Threads > 0 {
		return s.Config.Engine.Threads
	}
	return detect.RecommendThreads(s.Host)
}

// Close releases every tier.
func (s *Stack) Close() error {
	return s.Router.Release()
}

// Provider names accepted by Select, besides the provider ids themselves.
var providerAliases = map[string]string{
	"rules":     rules.ProviderID,
	"rule":      rules.ProviderID,
	"ondevice":  ondevice.ProviderID,
	"primary":   ondevice.ProviderID,
	"secondary": ollama.ProviderID,
	"ollama":    ollama.ProviderID,
}

// Select resolves a comma-separated provider list. "all" (or empty) selects
// every configured tier followed by the router itself.
func (s *Stack) Select(list string) ([]ai.Provider, error) {
	list = strings.TrimSpace(list)
	if list == "" || list == "all" {
		return append(s.Router.Providers(), s.Router), nil
	}

	var out []ai.Provider
	seen := make(map[string]bool)
	for _, name := range strings.Split(list, ",") {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" {
			continue
		}
		if alias, ok := providerAliases[name]; ok {
			name = alias
		}
		if seen[name] {
			continue
		}
		seen[name] = true

		if name == router.ProviderID {
			out = append(out, s.Router)
			continue
		}
		p, ok := s.Router.Provider(name)
		if !ok {
			return nil, fmt.Errorf("unknown or disabled provider %q", name)
		}
		out = append(out, p)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no providers selected")
	}
	return out, nil
}
