// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/jeranaias/jeeves/internal/offline"
	"github.com/jeranaias/jeeves/internal/router"
)

// isolate points the home directory at a temp dir and clears overrides.
func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("USERPROFILE", home)
	for _, k := range []string{
		"JEEVES_MODEL_PATH", "JEEVES_THREADS", "JEEVES_MODE", "JEEVES_MIN_CONFIDENCE",
		"JEEVES_OFFLINE", "JEEVES_OLLAMA_URL", "JEEVES_SECONDARY_MODEL",
	} {
		t.Setenv(k, "")
	}
	return home
}

// TestConfig_ConcurrentAccess tests that Global() and SetGlobal() can be
// called concurrently.
// Run with: go test -race -v ./internal/config/
func TestConfig_ConcurrentAccess(t *testing.T) {
	isolate(t)
	ResetGlobalForTesting()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)

		go func() {
			defer wg.Done()
			c := Default()
			c.Version = "test"
			SetGlobal(c)
		}()

		go func() {
			defer wg.Done()
			if Global() == nil {
				t.Error("Global() returned nil")
			}
		}()
	}
	wg.Wait()
}

// TestConfig_ConcurrentMixedOperations mixes Global, SetGlobal and ReloadGlobal.
func TestConfig_ConcurrentMixedOperations(t *testing.T) {
	isolate(t)
	ResetGlobalForTesting()

	var wg sync.WaitGroup
	for i := 0; i < 90; i++ {
		wg.Add(1)
		switch i % 3 {
		case 0:
			go func() {
				defer wg.Done()
				if Global() == nil {
					t.Error("Global() returned nil")
				}
			}()
		case 1:
			go func() {
				defer wg.Done()
				c := Default()
				c.Version = "concurrent-test"
				SetGlobal(c)
			}()
		case 2:
			go func() {
				defer wg.Done()
				_ = ReloadGlobal()
			}()
		}
	}
	wg.Wait()
}

func TestConfig_GlobalInitialization(t *testing.T) {
	isolate(t)
	ResetGlobalForTesting()

	cfg := Global()
	if cfg == nil {
		t.Fatal("Global() returned nil")
	}
	if cfg.Routing.Mode != "hybrid" {
		t.Errorf("Expected hybrid mode, got %q", cfg.Routing.Mode)
	}
}

func TestConfig_Default(t *testing.T) {
	cfg := Default()

	if cfg.RoutingMode() != router.ModeHybrid {
		t.Errorf("Expected hybrid, got %s", cfg.RoutingMode())
	}
	if !cfg.Routing.OfflineMode {
		t.Error("Offline mode should default to on")
	}
	if cfg.Routing.MinConfidence != 0.7 {
		t.Errorf("Expected min confidence 0.7, got %v", cfg.Routing.MinConfidence)
	}
	if cfg.Worker.Workers != 1 {
		t.Errorf("Expected one worker, got %d", cfg.Worker.Workers)
	}

	opts := cfg.RequestOptions()
	if opts.MaxTokens != 256 || opts.Temperature != 0.1 || opts.TopP != 0.9 {
		t.Errorf("unexpected generation defaults %+v", opts)
	}
	if !opts.AllowModelTiers || !opts.AllowRuleFallback {
		t.Error("model tiers and rule fallback should default to allowed")
	}

	client := cfg.OllamaClient()
	if client.Timeout != 60*time.Second {
		t.Errorf("Expected 60s timeout, got %v", client.Timeout)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		field   string
		wantErr bool
	}{
		{name: "valid default config"},
		{name: "alias mode", mutate: func(c *Config) { c.Routing.Mode = "hybrid-with-secondary" }},
		{name: "invalid mode", mutate: func(c *Config) { c.Routing.Mode = "cloud" }, field: "routing.mode", wantErr: true},
		{name: "min confidence above one", mutate: func(c *Config) { c.Routing.MinConfidence = 1.5 }, field: "routing.min_confidence", wantErr: true},
		{name: "remote daemon offline", mutate: func(c *Config) { c.Secondary.OllamaURL = "http://10.0.0.5:11434" }, field: "secondary.ollama_url", wantErr: true},
		{name: "remote daemon online", mutate: func(c *Config) {
			c.Routing.OfflineMode = false
			c.Secondary.OllamaURL = "http://10.0.0.5:11434"
		}},
		{name: "remote daemon disabled tier", mutate: func(c *Config) {
			c.Secondary.Enabled = false
			c.Secondary.OllamaURL = "http://10.0.0.5:11434"
		}},
		{name: "bad scheme", mutate: func(c *Config) { c.Secondary.OllamaURL = "ftp://localhost" }, field: "secondary.ollama_url", wantErr: true},
		{name: "negative threads", mutate: func(c *Config) { c.Engine.Threads = -2 }, field: "engine.threads", wantErr: true},
		{name: "top_p out of range", mutate: func(c *Config) { c.Generation.TopP = 1.2 }, field: "generation.top_p", wantErr: true},
		{name: "negative wait timeout", mutate: func(c *Config) { c.Worker.WaitTimeoutSecs = -1 }, field: "worker.wait_timeout_secs", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default()
			if tt.mutate != nil {
				tt.mutate(c)
			}
			err := c.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr {
				return
			}
			var verrs ValidateErrors
			if !errors.As(err, &verrs) || verrs[0].Field != tt.field {
				t.Errorf("Expected error on %s, got %v", tt.field, err)
			}
		})
	}
}

func TestConfig_ValidateLeavesProcessOfflineFlag(t *testing.T) {
	before := offline.IsOfflineMode()
	c := Default()
	c.Routing.OfflineMode = !before
	_ = c.Validate()
	if offline.IsOfflineMode() != before {
		t.Error("Validate must not change the process-wide offline flag")
	}
}

func TestConfig_EnvOverrides(t *testing.T) {
	isolate(t)
	t.Setenv("JEEVES_MODEL_PATH", "/models/phi3.gguf")
	t.Setenv("JEEVES_THREADS", "6")
	t.Setenv("JEEVES_MODE", "rule_based_only")
	t.Setenv("JEEVES_MIN_CONFIDENCE", "0.85")
	t.Setenv("JEEVES_OFFLINE", "false")
	t.Setenv("JEEVES_OLLAMA_URL", "http://192.168.1.20:11434")
	t.Setenv("JEEVES_SECONDARY_MODEL", "llama3.2:1b")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Engine.ModelPath != "/models/phi3.gguf" || cfg.Engine.Threads != 6 {
		t.Errorf("engine overrides not applied: %+v", cfg.Engine)
	}
	if cfg.RoutingMode() != router.ModeRuleBasedOnly {
		t.Errorf("Expected rule_based_only, got %s", cfg.Routing.Mode)
	}
	if cfg.Routing.MinConfidence != 0.85 || cfg.Routing.OfflineMode {
		t.Errorf("routing overrides not applied: %+v", cfg.Routing)
	}
	if cfg.Secondary.Model != "llama3.2:1b" {
		t.Errorf("Expected secondary model override, got %q", cfg.Secondary.Model)
	}
	if cfg.WatchPath() != "/models/phi3.gguf" {
		t.Errorf("Expected watch path /models/phi3.gguf, got %q", cfg.WatchPath())
	}
}

func TestConfig_DerivedSettings(t *testing.T) {
	isolate(t)

	cfg := Default()
	cfg.Engine.ModelPath = "/models/phi3.gguf"
	cfg.Engine.ModelDir = "/srv/incoming"
	cfg.Worker.WaitTimeoutSecs = 30

	if got := cfg.WatchPath(); got != filepath.Join("/srv/incoming", "phi3.gguf") {
		t.Errorf("WatchPath() = %q", got)
	}
	wc := cfg.TaskWorker()
	if wc.Workers != 1 || wc.WaitTimeout != 30*time.Second || wc.MaxQueueSize != 64 {
		t.Errorf("TaskWorker() = %+v", wc)
	}

	dir, err := cfg.BenchmarkDir()
	if err != nil || filepath.Base(dir) != "benchmarks" {
		t.Errorf("BenchmarkDir() = %q, %v", dir, err)
	}
	cfg.Benchmark.HistoryDB = "/tmp/h.db"
	if p, _ := cfg.HistoryPath(); p != "/tmp/h.db" {
		t.Errorf("HistoryPath() = %q", p)
	}
}

func TestConfig_LoadTOMLThenJSON(t *testing.T) {
	home := isolate(t)
	dir := filepath.Join(home, ".jeeves")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}

	jsonBody := `{"routing": {"mode": "model_only"}}`
	if err := os.WriteFile(filepath.Join(dir, "config.json"), []byte(jsonBody), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.RoutingMode() != router.ModeModelOnly {
		t.Errorf("JSON config not loaded, mode=%s", cfg.Routing.Mode)
	}
	if cfg.Secondary.Model == "" {
		t.Error("missing sections should keep defaults")
	}

	tomlBody := "[routing]\nmode = \"hybrid_secondary\"\nmin_confidence = 0.8\n"
	if err := os.WriteFile(filepath.Join(dir, "config.toml"), []byte(tomlBody), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg, err = Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.RoutingMode() != router.ModeHybridSecondary || cfg.Routing.MinConfidence != 0.8 {
		t.Errorf("TOML should take precedence, got %+v", cfg.Routing)
	}
}

func TestConfig_LoadBrokenFileFallsBackToDefaults(t *testing.T) {
	home := isolate(t)
	dir := filepath.Join(home, ".jeeves")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "config.toml"), []byte("[routing\nmode="), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load()
	if err == nil {
		t.Error("Expected a load error for a broken file")
	}
	if cfg == nil || cfg.RoutingMode() != router.ModeHybrid {
		t.Error("Expected defaults alongside the load error")
	}
}

func TestConfig_SaveRoundTrip(t *testing.T) {
	isolate(t)

	cfg := Default()
	cfg.Engine.ModelPath = "/models/qwen2.5-0.5b-instruct-q4_k_m.gguf"
	cfg.Routing.Mode = "model_only"
	if err := Save(cfg); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	path, _ := ConfigPathTOML()
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 && os.PathSeparator == '/' {
		t.Errorf("Expected 0600 permissions, got %o", perm)
	}

	loaded, err := LoadFromPath(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Engine.ModelPath != cfg.Engine.ModelPath || loaded.RoutingMode() != router.ModeModelOnly {
		t.Errorf("round trip lost settings: %+v", loaded)
	}
}

func TestConfig_GetSet(t *testing.T) {
	cfg := Default()

	val, err := cfg.Get("routing.mode")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if val != "hybrid" {
		t.Errorf("Get('routing.mode') = %v, want 'hybrid'", val)
	}

	if err := cfg.Set("routing.min_confidence", "0.9"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if cfg.Routing.MinConfidence != 0.9 {
		t.Errorf("Set float failed, got %v", cfg.Routing.MinConfidence)
	}
	if err := cfg.Set("secondary.enabled", "no"); err != nil || cfg.Secondary.Enabled {
		t.Errorf("Set bool failed: %v", err)
	}
	if err := cfg.Set("engine.threads", 4); err != nil || cfg.Engine.Threads != 4 {
		t.Errorf("Set int failed: %v", err)
	}

	if _, err := cfg.Get("invalid.key"); err == nil {
		t.Error("Get() with invalid key should return error")
	}
	if err := cfg.Set("routing.mode.deeper", "x"); err == nil {
		t.Error("Set() through a non-struct field should return error")
	}
}

func TestConfig_GetAllKeysResolve(t *testing.T) {
	cfg := Default()
	keys := GetAllKeys()
	if len(keys) == 0 {
		t.Fatal("no keys")
	}
	for _, k := range keys {
		if _, err := cfg.Get(k); err != nil {
			t.Errorf("key %s does not resolve: %v", k, err)
		}
	}
}

func TestConfig_Clone(t *testing.T) {
	original := Default()
	clone := original.Clone()
	clone.Routing.Mode = "model_only"

	if original.Routing.Mode != "hybrid" {
		t.Error("Clone should create an independent copy")
	}
}
