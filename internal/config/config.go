// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/jeranaias/jeeves/internal/ai"
	"github.com/jeranaias/jeeves/internal/offline"
	"github.com/jeranaias/jeeves/internal/ollama"
	"github.com/jeranaias/jeeves/internal/router"
	"github.com/jeranaias/jeeves/internal/tasks"
	"github.com/jeranaias/jeeves/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete jeeves configuration.
type Config struct {
	Version string `toml:"version" json:"version"`

	Engine     EngineConfig     `toml:"engine" json:"engine"`
	Routing    RoutingConfig    `toml:"routing" json:"routing"`
	Secondary  SecondaryConfig  `toml:"secondary" json:"secondary"`
	Generation GenerationConfig `toml:"generation" json:"generation"`
	Worker     WorkerConfig     `toml:"worker" json:"worker"`
	Benchmark  BenchmarkConfig  `toml:"benchmark" json:"benchmark"`
}

// EngineConfig configures the native on-device engine.
type EngineConfig struct {
	// ModelPath is the GGUF file loaded at startup (empty = no model)
	ModelPath string `toml:"model_path" json:"model_path"`
	// ModelDir is watched for replacement model files (empty = dir of ModelPath)
	ModelDir string `toml:"model_dir" json:"model_dir"`
	// WatchModel reloads the model when the file changes on disk
	WatchModel bool `toml:"watch_model" json:"watch_model"`
	// ContextSize is the token context window
	ContextSize int `toml:"context_size" json:"context_size"`
	// Threads is the inference thread count (0 = detect from host)
	Threads int `toml:"threads" json:"threads"`
}

// RoutingConfig contains tier routing configuration.
type RoutingConfig struct {
	// Mode is one of: rule_based_only, model_only, hybrid, hybrid_secondary
	Mode string `toml:"mode" json:"mode"`
	// MinConfidence is the rule-tier threshold below which a request escalates
	MinConfidence float64 `toml:"min_confidence" json:"min_confidence"`
	// AllowModelTiers permits escalation to model tiers
	AllowModelTiers bool `toml:"allow_model_tiers" json:"allow_model_tiers"`
	// AllowRuleFallback returns the rule answer when every model tier failed
	AllowRuleFallback bool `toml:"allow_rule_fallback" json:"allow_rule_fallback"`
	// OfflineMode restricts the secondary tier to loopback hosts
	OfflineMode bool `toml:"offline_mode" json:"offline_mode"`
}

// SecondaryConfig configures the platform daemon tier.
type SecondaryConfig struct {
	Enabled           bool    `toml:"enabled" json:"enabled"`
	OllamaURL         string  `toml:"ollama_url" json:"ollama_url"`
	Model             string  `toml:"model" json:"model"`
	TimeoutSecs       int     `toml:"timeout_secs" json:"timeout_secs"`
	RequestsPerSecond float64 `toml:"requests_per_second" json:"requests_per_second"`
	Burst             int     `toml:"burst" json:"burst"`
}

// GenerationConfig holds default sampling parameters.
type GenerationConfig struct {
	MaxTokens   int     `toml:"max_tokens" json:"max_tokens"`
	Temperature float64 `toml:"temperature" json:"temperature"`
	TopP        float64 `toml:"top_p" json:"top_p"`
}

// WorkerConfig configures the background inference worker.
type WorkerConfig struct {
	Workers int `toml:"workers" json:"workers"`
	// WaitTimeoutSecs bounds how long callers wait for a result (0 = no bound)
	WaitTimeoutSecs int `toml:"wait_timeout_secs" json:"wait_timeout_secs"`
	MaxHistory      int `toml:"max_history" json:"max_history"`
	MaxQueueSize    int `toml:"max_queue_size" json:"max_queue_size"`
}

// BenchmarkConfig configures the benchmark harness.
type BenchmarkConfig struct {
	// Dataset is a JSON sample file (empty = built-in set)
	Dataset string `toml:"dataset" json:"dataset"`
	// OutputDir receives JSON results (empty = ~/.jeeves/benchmarks)
	OutputDir string `toml:"output_dir" json:"output_dir"`
	// HistoryDB is the SQLite run history (empty = ~/.jeeves/bench.db)
	HistoryDB string `toml:"history_db" json:"history_db"`
	// RatePerSecond paces samples per provider (0 = unpaced)
	RatePerSecond float64 `toml:"rate_per_second" json:"rate_per_second"`
}

// =============================================================================
// DEFAULTS
// =============================================================================

// Default returns a configuration with every field set to its default.
func Default() *Config {
	return &Config{
		Version: "1",
		Engine: EngineConfig{
			ContextSize: 2048,
		},
		Routing: RoutingConfig{
			Mode:              router.ModeHybrid.String(),
			MinConfidence:     ai.DefaultMinConfidence,
			AllowModelTiers:   true,
			AllowRuleFallback: true,
			OfflineMode:       true,
		},
		Secondary: SecondaryConfig{
			Enabled:           true,
			OllamaURL:         ollama.DefaultBaseURL,
			Model:             ollama.DefaultModel,
			TimeoutSecs:       60,
			RequestsPerSecond: 4,
			Burst:             2,
		},
		Generation: GenerationConfig{
			MaxTokens:   256,
			Temperature: 0.1,
			TopP:        0.9,
		},
		Worker: WorkerConfig{
			Workers:      1,
			MaxHistory:   100,
			MaxQueueSize: 64,
		},
	}
}

// SetDefaults fills zero values that have no meaningful zero.
func (c *Config) SetDefaults() {
	d := Default()
	if c.Version == "" {
		c.Version = d.Version
	}
	if c.Engine.ContextSize <= 0 {
		c.Engine.ContextSize = d.Engine.ContextSize
	}
	if c.Routing.Mode == "" {
		c.Routing.Mode = d.Routing.Mode
	}
	if c.Routing.MinConfidence == 0 {
		c.Routing.MinConfidence = d.Routing.MinConfidence
	}
	if c.Secondary.OllamaURL == "" {
		c.Secondary.OllamaURL = d.Secondary.OllamaURL
	}
	if c.Secondary.Model == "" {
		c.Secondary.Model = d.Secondary.Model
	}
	if c.Secondary.TimeoutSecs <= 0 {
		c.Secondary.TimeoutSecs = d.Secondary.TimeoutSecs
	}
	if c.Secondary.RequestsPerSecond <= 0 {
		c.Secondary.RequestsPerSecond = d.Secondary.RequestsPerSecond
	}
	if c.Secondary.Burst <= 0 {
		c.Secondary.Burst = d.Secondary.Burst
	}
	if c.Generation.MaxTokens <= 0 {
		c.Generation.MaxTokens = d.Generation.MaxTokens
	}
	if c.Generation.Temperature == 0 {
		c.Generation.Temperature = d.Generation.Temperature
	}
	if c.Generation.TopP == 0 {
		c.Generation.TopP = d.Generation.TopP
	}
	if c.Worker.Workers <= 0 {
		c.Worker.Workers = d.Worker.Workers
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the jeeves configuration directory path.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".jeeves"), nil
}

// ConfigPathTOML returns the path to the TOML config file.
func ConfigPathTOML() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// ConfigPathJSON returns the path to the JSON config file.
func ConfigPathJSON() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// EnsureConfigDir ensures the config directory exists.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0o755)
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load loads configuration from ~/.jeeves. TOML is tried first, then JSON,
// then defaults. Environment overrides are applied last. A file that fails
// to decode is reported alongside the default config.
func Load() (*Config, error) {
	var loadErr error

	for _, candidate := range []struct {
		path func() (string, error)
		load func(*Config, string) error
	}{
		{ConfigPathTOML, LoadTOML},
		{ConfigPathJSON, LoadJSON},
	} {
		path, err := candidate.path()
		if err != nil {
			continue
		}
		if _, statErr := os.Stat(path); statErr != nil {
			continue
		}
		cfg := Default()
		if err := candidate.load(cfg, path); err != nil {
			loadErr = fmt.Errorf("failed to load %s: %w", path, err)
			break
		}
		return finish(cfg)
	}

	cfg, err := finish(Default())
	if err != nil {
		return nil, err
	}
	return cfg, loadErr
}

// LoadFromPath loads configuration from a specific TOML or JSON file.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()
	load := LoadTOML
	if strings.HasSuffix(path, ".json") {
		load = LoadJSON
	}
	if err := load(cfg, path); err != nil {
		return nil, fmt.Errorf("failed to load config from %s: %w", path, err)
	}
	return finish(cfg)
}

func finish(cfg *Config) (*Config, error) {
	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadTOML decodes a TOML file over cfg.
func LoadTOML(cfg *Config, path string) error {
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	return nil
}

// LoadJSON decodes a JSON file over cfg.
func LoadJSON(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read JSON file: %w", err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to decode JSON file: %w", err)
	}
	return nil
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// Save saves the configuration to the default TOML file.
func Save(cfg *Config) error {
	if err := EnsureConfigDir(); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	path, err := ConfigPathTOML()
	if err != nil {
		return err
	}
	return SaveTOML(cfg, path)
}

// SaveTOML writes the configuration atomically with 0600 permissions.
func SaveTOML(cfg *Config, path string) error {
	var buf bytes.Buffer
	buf.WriteString("# jeeves configuration file\n")
	buf.WriteString("# Generated by jeeves - edit with care\n\n")
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := util.AtomicWriteFile(path, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// SaveJSON writes the configuration as indented JSON.
func SaveJSON(cfg *Config, path string) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := util.AtomicWriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	msgs := make([]string, len(e))
	for i, err := range e {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "; ")
}

// Validate checks every section and returns ValidateErrors on failure.
func (c *Config) Validate() error {
	var errs ValidateErrors
	add := func(field, format string, args ...any) {
		errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	if c.Engine.ContextSize < 0 {
		add("engine.context_size", "must not be negative, got %d", c.Engine.ContextSize)
	}
	if c.Engine.Threads < 0 {
		add("engine.threads", "must not be negative, got %d", c.Engine.Threads)
	}

	if _, err := router.ParseMode(c.Routing.Mode); err != nil {
		add("routing.mode", "invalid mode '%s', must be one of: rule_based_only, model_only, hybrid, hybrid_secondary", c.Routing.Mode)
	}
	if c.Routing.MinConfidence < 0 || c.Routing.MinConfidence > 1 {
		add("routing.min_confidence", "must be within [0, 1], got %v", c.Routing.MinConfidence)
	}

	if c.Secondary.Enabled {
		if err := validateDaemonURL(c.Secondary.OllamaURL, c.Routing.OfflineMode); err != nil {
			add("secondary.ollama_url", "%v", err)
		}
		if strings.TrimSpace(c.Secondary.Model) == "" {
			add("secondary.model", "must not be empty")
		}
	}
	if c.Secondary.TimeoutSecs < 0 {
		add("secondary.timeout_secs", "must not be negative")
	}

	if c.Generation.MaxTokens < 0 {
		add("generation.max_tokens", "must not be negative, got %d", c.Generation.MaxTokens)
	}
	if c.Generation.Temperature < 0 || c.Generation.Temperature > 2 {
		add("generation.temperature", "must be within [0, 2], got %v", c.Generation.Temperature)
	}
	if c.Generation.TopP < 0 || c.Generation.TopP > 1 {
		add("generation.top_p", "must be within [0, 1], got %v", c.Generation.TopP)
	}

	if c.Worker.Workers < 0 {
		add("worker.workers", "must not be negative")
	}
	if c.Worker.WaitTimeoutSecs < 0 {
		add("worker.wait_timeout_secs", "must not be negative")
	}
	if c.Benchmark.RatePerSecond < 0 {
		add("benchmark.rate_per_second", "must not be negative")
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// validateDaemonURL checks the daemon URL against the configured offline
// setting rather than the process-wide flag.
func validateDaemonURL(raw string, offlineMode bool) error {
	if err := offline.ValidateURL(raw); err != nil && !errors.Is(err, offline.ErrNonLocalhost) {
		return err
	}
	if u, _ := url.Parse(raw); offlineMode && !offline.IsLocalhost(u.Hostname()) {
		return offline.ErrNonLocalhost
	}
	return nil
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides to the config.
//
// Supported environment variables:
//   - JEEVES_MODEL_PATH: overrides engine.model_path
//   - JEEVES_THREADS: overrides engine.threads
//   - JEEVES_MODE: overrides routing.mode
//   - JEEVES_MIN_CONFIDENCE: overrides routing.min_confidence
//   - JEEVES_OFFLINE: "1"/"true" or "0"/"false" for routing.offline_mode
//   - JEEVES_OLLAMA_URL: overrides secondary.ollama_url
//   - JEEVES_SECONDARY_MODEL: overrides secondary.model
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("JEEVES_MODEL_PATH"); v != "" {
		c.Engine.ModelPath = v
	}
	if v := os.Getenv("JEEVES_THREADS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Engine.Threads = n
		}
	}
	if v := os.Getenv("JEEVES_MODE"); v != "" {
		c.Routing.Mode = v
	}
	if v := os.Getenv("JEEVES_MIN_CONFIDENCE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.Routing.MinConfidence = f
		}
	}
	if v := os.Getenv("JEEVES_OFFLINE"); v != "" {
		c.Routing.OfflineMode = parseBool(v)
	}
	if v := os.Getenv("JEEVES_OLLAMA_URL"); v != "" {
		c.Secondary.OllamaURL = v
	}
	if v := os.Getenv("JEEVES_SECONDARY_MODEL"); v != "" {
		c.Secondary.Model = v
	}
}

func parseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

// =============================================================================
// DERIVED SETTINGS
// =============================================================================

// RoutingMode parses Routing.Mode.
func (c *Config) RoutingMode() router.Mode {
	m, _ := router.ParseMode(c.Routing.Mode)
	return m
}

// RequestOptions returns per-request options built from the routing and
// generation sections.
func (c *Config) RequestOptions() ai.Options {
	return ai.Options{
		MaxTokens:         c.Generation.MaxTokens,
		Temperature:       c.Generation.Temperature,
		TopP:              c.Generation.TopP,
		MinConfidence:     c.Routing.MinConfidence,
		AllowModelTiers:   c.Routing.AllowModelTiers,
		AllowRuleFallback: c.Routing.AllowRuleFallback,
	}
}

// OllamaClient returns the client settings of the secondary tier.
func (c *Config) OllamaClient() ollama.ClientConfig {
	return ollama.ClientConfig{
		BaseURL:           c.Secondary.OllamaURL,
		Timeout:           time.Duration(c.Secondary.TimeoutSecs) * time.Second,
		RequestsPerSecond: c.Secondary.RequestsPerSecond,
		Burst:             c.Secondary.Burst,
	}
}

// WatchPath returns the model file the watcher tracks. ModelDir, when set,
// replaces the directory part of ModelPath.
func (c *Config) WatchPath() string {
	if c.Engine.ModelPath == "" {
		return ""
	}
	if c.Engine.ModelDir != "" {
		return filepath.Join(c.Engine.ModelDir, filepath.Base(c.Engine.ModelPath))
	}
	return c.Engine.ModelPath
}

// TaskWorker returns the settings of the background inference worker.
func (c *Config) TaskWorker() tasks.WorkerConfig {
	return tasks.WorkerConfig{
		Workers:      c.Worker.Workers,
		WaitTimeout:  time.Duration(c.Worker.WaitTimeoutSecs) * time.Second,
		MaxHistory:   c.Worker.MaxHistory,
		MaxQueueSize: c.Worker.MaxQueueSize,
	}
}

// BenchmarkDir returns the directory receiving JSON benchmark results.
func (c *Config) BenchmarkDir() (string, error) {
	if c.Benchmark.OutputDir != "" {
		return c.Benchmark.OutputDir, nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "benchmarks"), nil
}

// HistoryPath returns the SQLite benchmark history file.
func (c *Config) HistoryPath() (string, error) {
	if c.Benchmark.HistoryDB != "" {
		return c.Benchmark.HistoryDB, nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "bench.db"), nil
}

// =============================================================================
// GET/SET HELPERS (DOT NOTATION)
// =============================================================================

// Get retrieves a configuration value using dot notation (e.g., "routing.mode").
func (c *Config) Get(key string) (any, error) {
	field, err := c.lookup(key)
	if err != nil {
		return nil, err
	}
	return field.Interface(), nil
}

// Set sets a configuration value using dot notation. String values are
// converted to the field type.
func (c *Config) Set(key string, value any) error {
	field, err := c.lookup(key)
	if err != nil {
		return err
	}
	if !field.CanSet() {
		return fmt.Errorf("cannot set field: %s", key)
	}
	return setFieldValue(field, value)
}

func (c *Config) lookup(key string) (reflect.Value, error) {
	if strings.TrimSpace(key) == "" {
		return reflect.Value{}, errors.New("empty key")
	}
	parts := strings.Split(key, ".")
	v := reflect.ValueOf(c).Elem()
	for i, part := range parts {
		fieldName := normalizeFieldName(part)
		field := v.FieldByNameFunc(func(name string) bool {
			return strings.EqualFold(name, fieldName)
		})
		if !field.IsValid() {
			return reflect.Value{}, fmt.Errorf("unknown field: %s", strings.Join(parts[:i+1], "."))
		}
		if i == len(parts)-1 {
			return field, nil
		}
		if field.Kind() != reflect.Struct {
			return reflect.Value{}, fmt.Errorf("field '%s' is not a struct", strings.Join(parts[:i+1], "."))
		}
		v = field
	}
	return reflect.Value{}, fmt.Errorf("invalid key: %s", key)
}

// normalizeFieldName converts a snake_case or kebab-case name to its Go field equivalent.
func normalizeFieldName(name string) string {
	parts := strings.FieldsFunc(name, func(r rune) bool {
		return r == '_' || r == '-'
	})

	var result strings.Builder
	for _, part := range parts {
		result.WriteString(strings.ToUpper(part[:1]))
		result.WriteString(strings.ToLower(part[1:]))
	}
	return result.String()
}

// setFieldValue sets a reflect.Value from an arbitrary value with type conversion.
func setFieldValue(field reflect.Value, value any) error {
	if strVal, ok := value.(string); ok {
		switch field.Kind() {
		case reflect.String:
			field.SetString(strVal)
			return nil
		case reflect.Int, reflect.Int64:
			intVal, err := strconv.ParseInt(strVal, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid integer value: %v", err)
			}
			field.SetInt(intVal)
			return nil
		case reflect.Float64:
			floatVal, err := strconv.ParseFloat(strVal, 64)
			if err != nil {
				return fmt.Errorf("invalid float value: %v", err)
			}
			field.SetFloat(floatVal)
			return nil
		case reflect.Bool:
			field.SetBool(parseBool(strVal))
			return nil
		}
	}

	val := reflect.ValueOf(value)
	if !val.IsValid() {
		return fmt.Errorf("cannot assign nil to %s", field.Type())
	}
	if val.Type().AssignableTo(field.Type()) {
		field.Set(val)
		return nil
	}
	if val.Type().ConvertibleTo(field.Type()) {
		field.Set(val.Convert(field.Type()))
		return nil
	}
	return fmt.Errorf("cannot assign %T to %s", value, field.Type())
}

// GetAllKeys returns all configuration keys in dot notation.
func GetAllKeys() []string {
	var keys []string
	collectKeys(reflect.TypeOf(Config{}), "", &keys)
	return keys
}

func collectKeys(t reflect.Type, prefix string, keys *[]string) {
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		name := strings.Split(f.Tag.Get("toml"), ",")[0]
		if name == "" {
			continue
		}
		if f.Type.Kind() == reflect.Struct {
			collectKeys(f.Type, prefix+name+".", keys)
			continue
		}
		*keys = append(*keys, prefix+name)
	}
}

// Clone creates a copy of the configuration. Config holds no reference
// types, so a value copy is deep.
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}

// String returns the configuration as indented JSON.
func (c *Config) String() string {
	data, _ := json.MarshalIndent(c, "", "  ")
	return string(data)
}

// =============================================================================
// SINGLETON PATTERN (THREAD-SAFE)
// =============================================================================

var (
	globalConfig     *Config
	globalConfigOnce sync.Once
	globalConfigMu   sync.RWMutex
)

// Global returns the global configuration instance, loading it on first
// access. Load errors fall back to defaults.
func Global() *Config {
	globalConfigOnce.Do(func() {
		cfg, err := Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v (using defaults)\n", err)
		}
		if cfg == nil {
			cfg = Default()
		}
		globalConfigMu.Lock()
		if globalConfig == nil {
			globalConfig = cfg
		}
		globalConfigMu.Unlock()
	})

	globalConfigMu.RLock()
	defer globalConfigMu.RUnlock()
	return globalConfig
}

// ReloadGlobal reloads the global configuration from disk. Thread-safe.
func ReloadGlobal() error {
	cfg, err := Load()
	if err != nil {
		return err
	}
	SetGlobal(cfg)
	return nil
}

// SetGlobal sets the global configuration instance. Thread-safe.
func SetGlobal(cfg *Config) {
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = cfg
}

// ResetGlobalForTesting resets the global config state between tests.
func ResetGlobalForTesting() {
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = nil
	globalConfigOnce = sync.Once{}
}
