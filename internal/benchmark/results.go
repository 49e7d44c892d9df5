// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package benchmark

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/jeranaias/jeeves/internal/ai"
	"github.com/jeranaias/jeeves/internal/util"
)

// =============================================================================
// RESULT TYPES
// =============================================================================

// Result holds the aggregated outcome for one provider.
type Result struct {
	ProviderID     string         `json:"provider_id"`
	StartTime      time.Time      `json:"start_time"`
	EndTime        time.Time      `json:"end_time"`
	Duration       time.Duration  `json:"duration"`
	Samples        []SampleResult `json:"samples"`
	Total          int            `json:"total"`
	Correct        int            `json:"correct"`
	Failures       int            `json:"failures"`
	Accuracy       float64        `json:"accuracy"` // correct / answered, 0-1
	MeanConfidence float64        `json:"mean_confidence"`
	P50            time.Duration  `json:"p50"`
	P90            time.Duration  `json:"p90"`
	P99            time.Duration  `json:"p99"`
	Routes         map[string]int `json:"routes,omitempty"`
}

// SampleResult is the outcome of a single sample against one provider.
type SampleResult struct {
	Name       string        `json:"name"`
	Expected   ai.Quadrant   `json:"expected"`
	Got        ai.Quadrant   `json:"got,omitempty"`
	Correct    bool          `json:"correct"`
	Confidence float64       `json:"confidence"`
	Latency    time.Duration `json:"latency"`
	Route      ai.Route      `json:"route,omitempty"`
	ModelID    string        `json:"model_id,omitempty"`
	Error      string        `json:"error,omitempty"`
}

// Comparison holds results from running the same samples through several
// providers.
type Comparison struct {
	RunID     string             `json:"run_id"`
	Dataset   string             `json:"dataset"`
	Providers []string           `json:"providers"`
	Results   map[string]*Result `json:"results"`
	StartTime time.Time          `json:"start_time"`
	EndTime   time.Time          `json:"end_time"`
	Duration  time.Duration      `json:"duration"`
}

// =============================================================================
// AGGREGATION
// =============================================================================

// computeAggregates fills the summary fields from r.Samples.
func (r *Result) computeAggregates() {
	r.Total = len(r.Samples)
	r.Correct, r.Failures = 0, 0
	r.Routes = make(map[string]int)

	var confSum float64
	latencies := make([]time.Duration, 0, len(r.Samples))
	for _, s := range r.Samples {
		latencies = append(latencies, s.Latency)
		if s.Error != "" {
			r.Failures++
			continue
		}
		confSum += s.Confidence
		if s.Correct {
			r.Correct++
		}
		if s.Route != "" {
			r.Routes[string(s.Route)]++
		}
	}

	answered := r.Total - r.Failures
	r.Accuracy, r.MeanConfidence = 0, 0
	if answered > 0 {
		r.Accuracy = float64(r.Correct) / float64(answered)
		r.MeanConfidence = confSum / float64(answered)
	}

	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })
	r.P50 = Percentile(latencies, 50)
	r.P90 = Percentile(latencies, 90)
	r.P99 = Percentile(latencies, 99)
}

// Percentile returns the nearest-rank percentile of sorted latencies.
func Percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 100 {
		return sorted[len(sorted)-1]
	}
	rank := int(math.Ceil(p/100*float64(len(sorted)))) - 1
	if rank < 0 {
		rank = 0
	}
	return sorted[min(rank, len(sorted)-1)]
}

// =============================================================================
// RESULT STORAGE
// =============================================================================

// Storage saves and loads comparison files.
type Storage struct {
	dir string
}

// NewStorage creates a storage instance rooted at ~/.jeeves/benchmarks.
func NewStorage() (*Storage, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get home directory: %w", err)
	}
	return NewStorageWithDir(filepath.Join(homeDir, ".jeeves", "benchmarks"))
}

// NewStorageWithDir creates a storage instance with a custom directory.
func NewStorageWithDir(dir string) (*Storage, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}
	return &Storage{dir: dir}, nil
}

// Dir returns the storage directory.
func (s *Storage) Dir() string { return s.dir }

// Save writes the comparison atomically and returns the file name.
func (s *Storage) Save(c *Comparison) (string, error) {
	timestamp := c.StartTime.Format("20060102-150405.000")
	filename := fmt.Sprintf("bench_%s_%s.json", timestamp, shortID(c.RunID))

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal comparison: %w", err)
	}
	if err := util.AtomicWriteFile(filepath.Join(s.dir, filename), data, 0644); err != nil {
		return "", fmt.Errorf("failed to write comparison: %w", err)
	}
	return filename, nil
}

// Load reads a comparison file from the storage directory.
func (s *Storage) Load(filename string) (*Comparison, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, filepath.Base(filename)))
	if err != nil {
		return nil, fmt.Errorf("failed to read comparison: %w", err)
	}

	var c Comparison
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to unmarshal comparison: %w", err)
	}
	return &c, nil
}

// List returns all comparison files, newest first. File names embed the
// start timestamp so a reverse name sort orders them by time.
func (s *Storage) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}

	files := make([]string, 0)
	for _, entry := range entries {
		name := entry.Name()
		if !entry.IsDir() && strings.HasPrefix(name, "bench_") && filepath.Ext(name) == ".json" {
			files = append(files, name)
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(files)))
	return files, nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	if id == "" {
		return "run"
	}
	return id
}

// =============================================================================
// RESULT ANALYSIS
// =============================================================================

// Best returns the provider with the highest accuracy. Ties go to the lower
// p50 latency, then to provider order.
func (c *Comparison) Best() (string, *Result) {
	var best string
	var bestResult *Result
	for _, id := range c.Providers {
		r := c.Results[id]
		if r == nil || r.Total == r.Failures {
			continue
		}
		if bestResult == nil ||
			r.Accuracy > bestResult.Accuracy ||
			(r.Accuracy == bestResult.Accuracy && r.P50 < bestResult.P50) {
			best, bestResult = id, r
		}
	}
	return best, bestResult
}

// Fastest returns the provider with the lowest p50 latency.
func (c *Comparison) Fastest() (string, *Result) {
	var fastest string
	var fastestResult *Result
	for _, id := range c.Providers {
		r := c.Results[id]
		if r == nil || r.Total == r.Failures {
			continue
		}
		if fastestResult == nil || r.P50 < fastestResult.P50 {
			fastest, fastestResult = id, r
		}
	}
	return fastest, fastestResult
}

// =============================================================================
// SUMMARY GENERATION
// =============================================================================

// Summary returns a text summary of the provider result.
func (r *Result) Summary() string {
	return fmt.Sprintf(
		"Provider: %s\n"+
			"Duration: %s\n"+
			"Samples: %d (%d failed)\n"+
			"Accuracy: %s\n"+
			"Mean confidence: %.2f\n"+
			"Latency p50/p90/p99: %s / %s / %s",
		r.ProviderID,
		FormatDuration(r.Duration),
		r.Total,
		r.Failures,
		FormatAccuracy(r.Accuracy),
		r.MeanConfidence,
		FormatLatency(r.P50),
		FormatLatency(r.P90),
		FormatLatency(r.P99),
	)
}

// ComparisonSummary returns a text summary of the whole run.
func (c *Comparison) ComparisonSummary() string {
	var b strings.Builder
	b.WriteString("Benchmark Comparison Summary\n")
	fmt.Fprintf(&b, "Dataset: %s\n", c.Dataset)
	fmt.Fprintf(&b, "Providers tested: %d\n", len(c.Providers))
	fmt.Fprintf(&b, "Total duration: %s\n\n", FormatDuration(c.Duration))

	if best, r := c.Best(); r != nil {
		fmt.Fprintf(&b, "Most accurate: %s (%s, p50 %s)\n", best, FormatAccuracy(r.Accuracy), FormatLatency(r.P50))
	}
	if fastest, r := c.Fastest(); r != nil {
		fmt.Fprintf(&b, "Fastest: %s (p50 %s)\n", fastest, FormatLatency(r.P50))
	}
	return b.String()
}

// =============================================================================
// FORMATTING HELPERS
// =============================================================================

// FormatLatency formats a latency for display.
func FormatLatency(d time.Duration) string {
	if d == 0 {
		return "N/A"
	}
	if d < time.Millisecond {
		return fmt.Sprintf("%dµs", d.Microseconds())
	}
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return fmt.Sprintf("%.2fs", d.Seconds())
}

// FormatAccuracy formats a 0-1 accuracy as a percentage.
func FormatAccuracy(a float64) string {
	return fmt.Sprintf("%.1f%%", a*100)
}

// FormatDuration formats a duration for display.
func FormatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	minutes := int(d.Minutes())
	seconds := int(d.Seconds()) % 60
	return fmt.Sprintf("%dm %ds", minutes, seconds)
}
